package wer

import (
	"fmt"
	"os"
	"path/filepath"

	"embedding-bench/internal/models"
)

// SentinelUnscored marks a page that could not be scored: no reference
// transcript was available or the computation failed. It is excluded from
// aggregates rather than treated as a zero.
const SentinelUnscored = -1.0

// ReferenceStore supplies the ground-truth transcript for a page. found is
// false when no reference exists for that page.
type ReferenceStore interface {
	Reference(pageNumber int) (text string, found bool, err error)
}

// DirStore reads reference transcripts from page_<n>.txt files in a
// directory.
type DirStore struct {
	Dir string
}

func (s DirStore) Reference(pageNumber int) (string, bool, error) {
	path := filepath.Join(s.Dir, fmt.Sprintf("page_%d.txt", pageNumber))
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", false, nil
		}
		return "", false, err
	}
	return string(data), true, nil
}

// ScoreSession scores every OCR page against its reference transcript.
// Pages without a reference (or whose reference cannot be read) get the -1
// sentinel and a placeholder reference text.
func ScoreSession(pages []models.Page, refs ReferenceStore) []models.WerRecord {
	records := make([]models.WerRecord, 0, len(pages))
	for _, page := range pages {
		ref, found, err := refs.Reference(page.PageNumber)
		if err != nil || !found {
			records = append(records, models.WerRecord{
				PageNumber:    page.PageNumber,
				OcrText:       page.OcrText,
				ReferenceText: "(reference not found)",
				Score:         SentinelUnscored,
			})
			continue
		}
		records = append(records, models.WerRecord{
			PageNumber:    page.PageNumber,
			OcrText:       page.OcrText,
			ReferenceText: ref,
			Score:         Score(page.OcrText, ref),
		})
	}
	return records
}

// Mean averages the scores of records that were actually scored. Sentinel
// records are excluded from the average, not counted as zero. An all-
// sentinel (or empty) input yields 0.
func Mean(records []models.WerRecord) float64 {
	var sum float64
	var n int
	for _, r := range records {
		if r.Score >= 0 {
			sum += r.Score
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

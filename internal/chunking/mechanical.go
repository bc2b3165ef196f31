// Package chunking produces the two alternative segmentations of a
// session's OCR text: fixed-size recursive character windows and
// LLM-proposed semantic sections.
package chunking

import (
	"strings"
	"unicode/utf8"

	"github.com/tmc/langchaingo/textsplitter"

	"embedding-bench/internal/config"
	"embedding-bench/internal/models"
)

// separator order matters: paragraph breaks first, then line breaks, then
// sentence enders (CJK and Latin), then words.
var separators = []string{"\n\n", "\n", "。", ".", " ", ""}

// Mechanical splits each page independently into recursive character
// chunks, preserving page boundaries. Blank pages are skipped.
func Mechanical(pages []models.Page, cfg config.ChunkingConfig) ([]models.Chunk, error) {
	splitter := textsplitter.NewRecursiveCharacter(
		textsplitter.WithChunkSize(cfg.Size),
		textsplitter.WithChunkOverlap(cfg.Overlap),
		textsplitter.WithSeparators(separators),
		textsplitter.WithLenFunc(utf8.RuneCountInString),
	)

	var chunks []models.Chunk
	for _, page := range pages {
		text := page.OcrText
		if strings.TrimSpace(text) == "" {
			continue
		}
		parts, err := splitter.SplitText(text)
		if err != nil {
			return nil, err
		}
		for idx, part := range parts {
			chunks = append(chunks, models.Chunk{
				PageNumber: page.PageNumber,
				ChunkIndex: idx,
				Text:       part,
				Size:       utf8.RuneCountInString(part),
			})
		}
	}
	return chunks, nil
}

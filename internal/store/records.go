package store

import (
	"context"

	"github.com/uptrace/bun"

	"embedding-bench/internal/models"
)

// ReplaceOcrPages stores a fresh OCR result for a session. A new document
// invalidates everything derived from the old one, so chunks, embeddings,
// answers, questions, and WER scores for the session are all cleared first.
func ReplaceOcrPages(ctx context.Context, db *bun.DB, sessionID int64, pages []models.Page) error {
	children := []any{
		(*OcrPage)(nil),
		(*Chunk)(nil),
		(*ChunkEmbedding)(nil),
		(*Question)(nil),
		(*AnswerRecord)(nil),
		(*WerResult)(nil),
	}
	for _, model := range children {
		if _, err := db.NewDelete().Model(model).Where("session_id = ?", sessionID).Exec(ctx); err != nil {
			return err
		}
	}

	if len(pages) == 0 {
		return nil
	}
	rows := make([]OcrPage, len(pages))
	for i, p := range pages {
		rows[i] = OcrPage{SessionID: sessionID, PageNumber: p.PageNumber, OcrText: p.OcrText}
	}
	_, err := db.NewInsert().Model(&rows).Exec(ctx)
	return err
}

func OcrPages(ctx context.Context, db *bun.DB, sessionID int64) ([]models.Page, error) {
	var rows []OcrPage
	err := db.NewSelect().Model(&rows).
		Where("op.session_id = ?", sessionID).
		OrderExpr("op.page_number").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	pages := make([]models.Page, len(rows))
	for i, r := range rows {
		pages[i] = models.Page{PageNumber: r.PageNumber, OcrText: r.OcrText}
	}
	return pages, nil
}

// ReplaceChunks stores both chunk sets for a session. Regenerating chunks
// invalidates embeddings and answers derived from the old ones, so the
// cascade clears those too before inserting.
func ReplaceChunks(ctx context.Context, db *bun.DB, sessionID int64, mechanical, semantic []models.Chunk) error {
	downstream := []any{
		(*Chunk)(nil),
		(*ChunkEmbedding)(nil),
		(*AnswerRecord)(nil),
	}
	for _, model := range downstream {
		if _, err := db.NewDelete().Model(model).Where("session_id = ?", sessionID).Exec(ctx); err != nil {
			return err
		}
	}

	var rows []Chunk
	appendSet := func(set models.ChunkSet, chunks []models.Chunk) {
		for _, c := range chunks {
			rows = append(rows, Chunk{
				SessionID:  sessionID,
				ChunkSet:   string(set),
				PageNumber: c.PageNumber,
				ChunkIndex: c.ChunkIndex,
				ChunkText:  c.Text,
				ChunkTitle: c.Title,
				ChunkSize:  c.Size,
			})
		}
	}
	appendSet(models.ChunkSetMechanical, mechanical)
	appendSet(models.ChunkSetSemantic, semantic)

	if len(rows) == 0 {
		return nil
	}
	_, err := db.NewInsert().Model(&rows).Exec(ctx)
	return err
}

// Chunks returns one chunk set for a session in insertion order.
func Chunks(ctx context.Context, db *bun.DB, sessionID int64, set models.ChunkSet) ([]Chunk, error) {
	var rows []Chunk
	err := db.NewSelect().Model(&rows).
		Where("c.session_id = ?", sessionID).
		Where("c.chunk_set = ?", string(set)).
		OrderExpr("c.id").
		Scan(ctx)
	return rows, err
}

// ReplaceEmbeddings stores the embedding rows for a session, clearing the
// old ones and the answers derived from them.
func ReplaceEmbeddings(ctx context.Context, db *bun.DB, sessionID int64, rows []ChunkEmbedding) error {
	downstream := []any{
		(*ChunkEmbedding)(nil),
		(*AnswerRecord)(nil),
	}
	for _, model := range downstream {
		if _, err := db.NewDelete().Model(model).Where("session_id = ?", sessionID).Exec(ctx); err != nil {
			return err
		}
	}
	if len(rows) == 0 {
		return nil
	}
	_, err := db.NewInsert().Model(&rows).Exec(ctx)
	return err
}

// Embeddings returns a session's embedding rows, optionally filtered to
// one chunk set. ChunkSetAll selects the union of both sets.
func Embeddings(ctx context.Context, db *bun.DB, sessionID int64, set models.ChunkSet) ([]ChunkEmbedding, error) {
	var rows []ChunkEmbedding
	q := db.NewSelect().Model(&rows).
		Where("ce.session_id = ?", sessionID).
		OrderExpr("ce.id")
	if set != models.ChunkSetAll {
		q = q.Where("ce.chunk_set = ?", string(set))
	}
	err := q.Scan(ctx)
	return rows, err
}

// ReplaceQuestions overwrites the session's question set.
func ReplaceQuestions(ctx context.Context, db *bun.DB, sessionID int64, questions []models.Question) error {
	if _, err := db.NewDelete().Model((*Question)(nil)).Where("session_id = ?", sessionID).Exec(ctx); err != nil {
		return err
	}
	if len(questions) == 0 {
		return nil
	}
	rows := make([]Question, len(questions))
	for i, q := range questions {
		rows[i] = Question{
			SessionID:       sessionID,
			QuestionNumber:  q.Number,
			QuestionText:    q.Text,
			ReferenceAnswer: q.ReferenceAnswer,
		}
	}
	_, err := db.NewInsert().Model(&rows).Exec(ctx)
	return err
}

func Questions(ctx context.Context, db *bun.DB, sessionID int64) ([]models.Question, error) {
	var rows []Question
	err := db.NewSelect().Model(&rows).
		Where("q.session_id = ?", sessionID).
		OrderExpr("q.question_number").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	questions := make([]models.Question, len(rows))
	for i, r := range rows {
		questions[i] = models.Question{Number: r.QuestionNumber, Text: r.QuestionText, ReferenceAnswer: r.ReferenceAnswer}
	}
	return questions, nil
}

// ReplaceAnswers stores RAG results for one chunk-set selection, replacing
// any previous run for the same selection. One row per (question, variant)
// pair that actually ran, error outcomes included.
func ReplaceAnswers(ctx context.Context, db *bun.DB, sessionID int64, set models.ChunkSet, results []models.QuestionResult, variantOrder []string) error {
	if _, err := db.NewDelete().Model((*AnswerRecord)(nil)).
		Where("session_id = ?", sessionID).
		Where("chunk_set = ?", string(set)).
		Exec(ctx); err != nil {
		return err
	}

	var rows []AnswerRecord
	for _, r := range results {
		for _, key := range variantOrder {
			mr, ok := r.ByModel[key]
			if !ok {
				continue
			}
			rows = append(rows, AnswerRecord{
				SessionID:       sessionID,
				QuestionNumber:  r.Number,
				QuestionText:    r.Text,
				ModelKey:        key,
				ChunkSet:        string(set),
				Retrieved:       mr.Retrieved,
				Answer:          mr.Answer,
				Prompt:          mr.Prompt,
				ReferenceAnswer: r.ReferenceAnswer,
				GenError:        mr.Err,
			})
		}
	}
	if len(rows) == 0 {
		return nil
	}
	_, err := db.NewInsert().Model(&rows).Exec(ctx)
	return err
}

// Answers returns the live answer records for one chunk-set selection.
func Answers(ctx context.Context, db *bun.DB, sessionID int64, set models.ChunkSet) ([]AnswerRecord, error) {
	var rows []AnswerRecord
	err := db.NewSelect().Model(&rows).
		Where("ar.session_id = ?", sessionID).
		Where("ar.chunk_set = ?", string(set)).
		OrderExpr("ar.question_number, ar.model_key").
		Scan(ctx)
	return rows, err
}

// ApplyEvaluations writes the grading narrative and per-variant scores
// onto the matching answer records. Evaluations that failed outright are
// skipped; their rows keep a NULL score.
func ApplyEvaluations(ctx context.Context, db *bun.DB, sessionID int64, set models.ChunkSet, evals []models.Evaluation) error {
	for _, ev := range evals {
		if ev.Err != "" {
			continue
		}
		for key, score := range ev.Scores {
			_, err := db.NewUpdate().Model((*AnswerRecord)(nil)).
				Set("eval_narrative = ?", ev.Narrative).
				Set("eval_score = ?", score).
				Where("session_id = ?", sessionID).
				Where("chunk_set = ?", string(set)).
				Where("question_number = ?", ev.Number).
				Where("model_key = ?", key).
				Exec(ctx)
			if err != nil {
				return err
			}
		}
	}
	return nil
}

// ReplaceWerResults stores per-page WER records and mirrors each score
// onto its OCR page row.
func ReplaceWerResults(ctx context.Context, db *bun.DB, sessionID int64, records []models.WerRecord) error {
	if _, err := db.NewDelete().Model((*WerResult)(nil)).Where("session_id = ?", sessionID).Exec(ctx); err != nil {
		return err
	}
	if len(records) == 0 {
		return nil
	}

	rows := make([]WerResult, len(records))
	for i, r := range records {
		rows[i] = WerResult{
			SessionID:     sessionID,
			PageNumber:    r.PageNumber,
			OcrText:       r.OcrText,
			ReferenceText: r.ReferenceText,
			WerScore:      r.Score,
		}
	}
	if _, err := db.NewInsert().Model(&rows).Exec(ctx); err != nil {
		return err
	}

	for _, r := range records {
		if _, err := db.NewUpdate().Model((*OcrPage)(nil)).
			Set("wer_score = ?", r.Score).
			Where("session_id = ?", sessionID).
			Where("page_number = ?", r.PageNumber).
			Exec(ctx); err != nil {
			return err
		}
	}
	return nil
}

func WerResults(ctx context.Context, db *bun.DB, sessionID int64) ([]WerResult, error) {
	var rows []WerResult
	err := db.NewSelect().Model(&rows).
		Where("wr.session_id = ?", sessionID).
		OrderExpr("wr.page_number").
		Scan(ctx)
	return rows, err
}

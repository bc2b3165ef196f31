package store

import (
	"time"

	"github.com/uptrace/bun"

	"embedding-bench/internal/models"
)

type Session struct {
	bun.BaseModel `bun:"table:sessions,alias:s"`

	ID         int64         `bun:"id,pk,autoincrement"`
	Filename   string        `bun:"filename,notnull"`
	TotalPages int           `bun:"total_pages"`
	Status     models.Status `bun:"status,notnull,default:'uploaded'"`
	CreatedAt  time.Time     `bun:"created_at,nullzero,default:current_timestamp"`
}

type OcrPage struct {
	bun.BaseModel `bun:"table:ocr_pages,alias:op"`

	ID         int64     `bun:"id,pk,autoincrement"`
	SessionID  int64     `bun:"session_id,notnull"`
	PageNumber int       `bun:"page_number,notnull"`
	OcrText    string    `bun:"ocr_text"`
	WerScore   *float64  `bun:"wer_score"`
	CreatedAt  time.Time `bun:"created_at,nullzero,default:current_timestamp"`
}

// Chunk stores one segment of a page's text. ChunkSet discriminates the
// mechanical and semantic sets; Title is empty for mechanical chunks.
type Chunk struct {
	bun.BaseModel `bun:"table:chunks,alias:c"`

	ID         int64     `bun:"id,pk,autoincrement"`
	SessionID  int64     `bun:"session_id,notnull"`
	ChunkSet   string    `bun:"chunk_set,notnull"`
	PageNumber int       `bun:"page_number"`
	ChunkIndex int       `bun:"chunk_index,notnull"`
	ChunkText  string    `bun:"chunk_text,notnull"`
	ChunkTitle string    `bun:"chunk_title"`
	ChunkSize  int       `bun:"chunk_size"`
	CreatedAt  time.Time `bun:"created_at,nullzero,default:current_timestamp"`
}

// ChunkEmbedding holds one row per chunk with one vector per embedding
// variant, keyed by variant key. The map is sparse: a variant that has not
// run yet has no entry.
type ChunkEmbedding struct {
	bun.BaseModel `bun:"table:chunk_embeddings,alias:ce"`

	ID        int64                `bun:"id,pk,autoincrement"`
	SessionID int64                `bun:"session_id,notnull"`
	ChunkID   int64                `bun:"chunk_id,notnull"`
	ChunkSet  string               `bun:"chunk_set,notnull"`
	ChunkText string               `bun:"chunk_text"`
	Vectors   map[string][]float32 `bun:"vectors,type:jsonb"`
	CreatedAt time.Time            `bun:"created_at,nullzero,default:current_timestamp"`
}

type Question struct {
	bun.BaseModel `bun:"table:questions,alias:q"`

	ID              int64     `bun:"id,pk,autoincrement"`
	SessionID       int64     `bun:"session_id,notnull"`
	QuestionNumber  int       `bun:"question_number,notnull"`
	QuestionText    string    `bun:"question_text,notnull"`
	ReferenceAnswer string    `bun:"reference_answer"`
	CreatedAt       time.Time `bun:"created_at,nullzero,default:current_timestamp"`
}

// AnswerRecord is the live record for one (question, variant, chunk set)
// triple: the retrieval trace, the rendered prompt, the generated answer,
// and, once grading has run, the shared narrative plus this variant's
// score. Re-running RAG for a chunk set replaces these rows.
type AnswerRecord struct {
	bun.BaseModel `bun:"table:answer_records,alias:ar"`

	ID              int64                   `bun:"id,pk,autoincrement"`
	SessionID       int64                   `bun:"session_id,notnull"`
	QuestionNumber  int                     `bun:"question_number,notnull"`
	QuestionText    string                  `bun:"question_text"`
	ModelKey        string                  `bun:"model_key,notnull"`
	ChunkSet        string                  `bun:"chunk_set,notnull"`
	Retrieved       []models.RetrievedChunk `bun:"retrieved,type:jsonb"`
	Answer          string                  `bun:"answer"`
	Prompt          string                  `bun:"prompt"`
	ReferenceAnswer string                  `bun:"reference_answer"`
	GenError        string                  `bun:"gen_error"`
	EvalNarrative   string                  `bun:"eval_narrative"`
	EvalScore       *float64                `bun:"eval_score"`
	CreatedAt       time.Time               `bun:"created_at,nullzero,default:current_timestamp"`
}

type WerResult struct {
	bun.BaseModel `bun:"table:wer_results,alias:wr"`

	ID            int64     `bun:"id,pk,autoincrement"`
	SessionID     int64     `bun:"session_id,notnull"`
	PageNumber    int       `bun:"page_number,notnull"`
	OcrText       string    `bun:"ocr_text"`
	ReferenceText string    `bun:"reference_text"`
	WerScore      float64   `bun:"wer_score"`
	CreatedAt     time.Time `bun:"created_at,nullzero,default:current_timestamp"`
}

package models

// ChunkSet identifies one of the two alternative segmentations of a
// session's OCR text.
type ChunkSet string

const (
	ChunkSetMechanical ChunkSet = "mechanical"
	ChunkSetSemantic   ChunkSet = "semantic"
	// ChunkSetAll selects the union of both sets for retrieval. It is a
	// query-time selector, not a third stored set.
	ChunkSetAll ChunkSet = "all"
)

// Page is one OCR'd page of an uploaded document.
type Page struct {
	PageNumber int
	OcrText    string
}

// Chunk is one segment of a page's OCR text. Title is set only for
// semantic chunks.
type Chunk struct {
	PageNumber int
	ChunkIndex int
	Text       string
	Title      string
	Size       int
}

// Question is one benchmark question with its human-authored reference
// answer, unique per (session, number).
type Question struct {
	Number          int
	Text            string
	ReferenceAnswer string
}

// RetrievedChunk is one retrieval hit attached to a generated answer.
type RetrievedChunk struct {
	Text       string  `json:"text"`
	Similarity float64 `json:"sim"`
	ChunkSet   string  `json:"set"`
}

// ModelResult holds the outcome of the retrieve-then-generate step for one
// (question, model variant) pair. Err is set when the backend call for this
// pair failed; the pair is recorded and the pipeline moves on.
type ModelResult struct {
	Retrieved []RetrievedChunk
	Answer    string
	Prompt    string
	Err       string
}

// QuestionResult groups per-variant results for one question.
type QuestionResult struct {
	Number          int
	Text            string
	ReferenceAnswer string
	ByModel         map[string]ModelResult
}

// Evaluation is the grading outcome for one question: a single comparative
// narrative shared by all variants plus one numeric score per variant.
type Evaluation struct {
	Number          int
	Text            string
	ReferenceAnswer string
	Narrative       string
	Scores          map[string]float64
	Err             string
}

// WerRecord is the transcription-quality score for one page. Score is in
// [0,1], or -1 when no reference was available or scoring failed.
type WerRecord struct {
	PageNumber    int
	OcrText       string
	ReferenceText string
	Score         float64
}

package models

// Status tracks a session through its processing stages. Transitions are
// one-directional side effects of completing a stage; the value is advisory
// progress reporting, not a hard gate.
type Status string

const (
	StatusUploaded  Status = "uploaded"
	StatusOcrDone   Status = "ocr_done"
	StatusChunked   Status = "chunked"
	StatusEmbedded  Status = "embedded"
	StatusRagDone   Status = "rag_done"
	StatusEvaluated Status = "evaluated"
)

var statusOrder = []Status{
	StatusUploaded,
	StatusOcrDone,
	StatusChunked,
	StatusEmbedded,
	StatusRagDone,
	StatusEvaluated,
}

// Rank returns the position of s in the stage order, or -1 for an unknown
// status.
func (s Status) Rank() int {
	for i, st := range statusOrder {
		if st == s {
			return i
		}
	}
	return -1
}

// Valid reports whether s is one of the defined stages.
func (s Status) Valid() bool { return s.Rank() >= 0 }

// After reports whether s is a later stage than other.
func (s Status) After(other Status) bool { return s.Rank() > other.Rank() }

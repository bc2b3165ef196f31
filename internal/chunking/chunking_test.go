package chunking

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"embedding-bench/internal/config"
	"embedding-bench/internal/models"
)

func TestMechanicalSplitsPerPage(t *testing.T) {
	pages := []models.Page{
		{PageNumber: 1, OcrText: strings.Repeat("para one.\n\n", 20)},
		{PageNumber: 2, OcrText: "short page"},
	}

	chunks, err := Mechanical(pages, config.ChunkingConfig{Size: 50, Overlap: 5})
	require.NoError(t, err)
	require.NotEmpty(t, chunks)

	// Page 1 must split into multiple chunks, page 2 stays whole.
	var p1, p2 int
	for _, c := range chunks {
		switch c.PageNumber {
		case 1:
			p1++
		case 2:
			p2++
		}
		assert.Equal(t, len([]rune(c.Text)), c.Size)
	}
	assert.Greater(t, p1, 1)
	assert.Equal(t, 1, p2)

	// Chunk indexes restart on each page.
	for _, c := range chunks {
		if c.PageNumber == 2 {
			assert.Equal(t, 0, c.ChunkIndex)
		}
	}
}

func TestMechanicalSkipsBlankPages(t *testing.T) {
	pages := []models.Page{
		{PageNumber: 1, OcrText: "   \n\t  "},
		{PageNumber: 2, OcrText: "content"},
	}

	chunks, err := Mechanical(pages, config.ChunkingConfig{Size: 100, Overlap: 10})
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, 2, chunks[0].PageNumber)
}

type fakeGenerator struct {
	response string
	err      error
}

func (f fakeGenerator) Generate(_ context.Context, _, _ string, _ config.GenOptions) (string, error) {
	return f.response, f.err
}

func TestSemanticParsesSections(t *testing.T) {
	gen := fakeGenerator{response: `Here you go:
[
  {"title": "Intro", "text": "first section"},
  {"title": "Detail", "text": "second section"}
]`}
	pages := []models.Page{{PageNumber: 3, OcrText: "page text"}}

	chunks := Semantic(context.Background(), gen, "llm", config.GenOptions{}, pages, zerolog.Nop())
	require.Len(t, chunks, 2)
	assert.Equal(t, "Intro", chunks[0].Title)
	assert.Equal(t, "first section", chunks[0].Text)
	assert.Equal(t, 3, chunks[0].PageNumber)
	assert.Equal(t, 0, chunks[0].ChunkIndex)
	assert.Equal(t, 1, chunks[1].ChunkIndex)
}

func TestSemanticRepairsControlCharacters(t *testing.T) {
	// Literal newline inside a JSON string value: strict parse fails, the
	// sanitiser must recover it.
	gen := fakeGenerator{response: "[{\"title\": \"T\", \"text\": \"line one\nline two\"}]"}
	pages := []models.Page{{PageNumber: 1, OcrText: "page text"}}

	chunks := Semantic(context.Background(), gen, "llm", config.GenOptions{}, pages, zerolog.Nop())
	require.Len(t, chunks, 1)
	assert.Equal(t, "line one\nline two", chunks[0].Text)
}

func TestSemanticFallbackOnBackendError(t *testing.T) {
	gen := fakeGenerator{err: errors.New("connection refused")}
	pages := []models.Page{{PageNumber: 7, OcrText: "page seven text"}}

	chunks := Semantic(context.Background(), gen, "llm", config.GenOptions{}, pages, zerolog.Nop())
	require.Len(t, chunks, 1)
	assert.Equal(t, "Page 7 (fallback)", chunks[0].Title)
	assert.Equal(t, "page seven text", chunks[0].Text)
	assert.Equal(t, 0, chunks[0].ChunkIndex)
}

func TestSemanticFallbackOnUnparsableJSON(t *testing.T) {
	gen := fakeGenerator{response: `[{"title": broken}]`}
	pages := []models.Page{{PageNumber: 2, OcrText: "page two"}}

	chunks := Semantic(context.Background(), gen, "llm", config.GenOptions{}, pages, zerolog.Nop())
	require.Len(t, chunks, 1)
	assert.Equal(t, "Page 2 (fallback)", chunks[0].Title)
}

func TestSemanticWholePageWhenNoArray(t *testing.T) {
	gen := fakeGenerator{response: "I cannot produce JSON for this."}
	pages := []models.Page{{PageNumber: 4, OcrText: "page four"}}

	chunks := Semantic(context.Background(), gen, "llm", config.GenOptions{}, pages, zerolog.Nop())
	require.Len(t, chunks, 1)
	assert.Equal(t, "Page 4", chunks[0].Title)
	assert.Equal(t, "page four", chunks[0].Text)
}

func TestSanitizeJSONLeavesValidInputAlone(t *testing.T) {
	in := `[{"title": "a", "text": "b\nc"}]`
	assert.Equal(t, in, sanitizeJSON(in))
}

func TestSanitizeJSONEscapesTabs(t *testing.T) {
	in := "{\"a\": \"x\ty\"}"
	assert.Equal(t, `{"a": "x\ty"}`, sanitizeJSON(in))
}

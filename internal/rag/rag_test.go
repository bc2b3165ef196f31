package rag

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"embedding-bench/internal/config"
	"embedding-bench/internal/index"
	"embedding-bench/internal/models"
)

type fakeEmbedder struct {
	vectors map[string][]float32
	err     error
}

func (f fakeEmbedder) Embed(_ context.Context, model, _ string, _ int) ([]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.vectors[model], nil
}

type fakeGenerator struct {
	prompts []string
	err     error
}

func (f *fakeGenerator) Generate(_ context.Context, _, prompt string, _ config.GenOptions) (string, error) {
	f.prompts = append(f.prompts, prompt)
	if f.err != nil {
		return "", f.err
	}
	return fmt.Sprintf("answer %d", len(f.prompts)), nil
}

var testVariants = []config.ModelVariant{
	{Key: "4b", Model: "embed-4b", Dim: 2},
	{Key: "8b", Model: "embed-8b", Dim: 2},
}

func TestBuildPromptFormat(t *testing.T) {
	matches := []index.Match{
		{Text: "chunk one", Similarity: 0.9123456},
		{Text: "chunk two", Similarity: 0.5},
	}

	prompt := BuildPrompt("what is it?", matches)
	assert.Contains(t, prompt, "[Chunk 1] (similarity: 0.9123):\nchunk one")
	assert.Contains(t, prompt, "[Chunk 2] (similarity: 0.5000):\nchunk two")
	assert.Contains(t, prompt, "\n\n---\n\n")
	assert.Contains(t, prompt, "Question: what is it?")
}

func TestRunVariantsRetrieveIndependently(t *testing.T) {
	// Variant 4b's query vector prefers chunk A, 8b's prefers chunk B. The
	// retrieved sets must differ while the question pairing is identical.
	embedder := fakeEmbedder{vectors: map[string][]float32{
		"embed-4b": {1, 0},
		"embed-8b": {0, 1},
	}}
	candidates := map[string][]index.Candidate{
		"4b": {
			{Text: "chunk A", Vector: []float32{1, 0}},
			{Text: "chunk B", Vector: []float32{0, 1}},
		},
		"8b": {
			{Text: "chunk A", Vector: []float32{1, 0}},
			{Text: "chunk B", Vector: []float32{0, 1}},
		},
	}
	gen := &fakeGenerator{}
	p := NewPipeline(embedder, gen, "llm", testVariants, 1, zerolog.Nop())

	questions := []models.Question{{Number: 1, Text: "q", ReferenceAnswer: "ref"}}
	results, err := p.Run(context.Background(), questions, candidates, config.GenOptions{})
	require.NoError(t, err)
	require.Len(t, results, 1)

	r := results[0]
	assert.Equal(t, 1, r.Number)
	assert.Equal(t, "ref", r.ReferenceAnswer)
	require.Contains(t, r.ByModel, "4b")
	require.Contains(t, r.ByModel, "8b")
	assert.Equal(t, "chunk A", r.ByModel["4b"].Retrieved[0].Text)
	assert.Equal(t, "chunk B", r.ByModel["8b"].Retrieved[0].Text)
	assert.NotEmpty(t, r.ByModel["4b"].Answer)
	assert.NotEmpty(t, r.ByModel["4b"].Prompt)
}

func TestRunSkipsVariantsWithoutEmbeddings(t *testing.T) {
	embedder := fakeEmbedder{vectors: map[string][]float32{"embed-4b": {1, 0}}}
	candidates := map[string][]index.Candidate{
		"4b": {{Text: "c", Vector: []float32{1, 0}}},
	}
	gen := &fakeGenerator{}
	p := NewPipeline(embedder, gen, "llm", testVariants, 3, zerolog.Nop())

	results, err := p.Run(context.Background(), []models.Question{{Number: 1, Text: "q"}}, candidates, config.GenOptions{})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Contains(t, results[0].ByModel, "4b")
	assert.NotContains(t, results[0].ByModel, "8b")
}

func TestRunIsolatesGenerationFailure(t *testing.T) {
	embedder := fakeEmbedder{vectors: map[string][]float32{
		"embed-4b": {1, 0},
		"embed-8b": {1, 0},
	}}
	candidates := map[string][]index.Candidate{
		"4b": {{Text: "c", Vector: []float32{1, 0}}},
		"8b": {{Text: "c", Vector: []float32{1, 0}}},
	}
	gen := &fakeGenerator{err: errors.New("backend timeout")}
	p := NewPipeline(embedder, gen, "llm", testVariants, 1, zerolog.Nop())

	results, err := p.Run(context.Background(), []models.Question{{Number: 1, Text: "q"}}, candidates, config.GenOptions{})
	require.NoError(t, err)
	require.Len(t, results, 1)

	// Both pairs ran; each carries its own recorded error and keeps its
	// retrieved chunks and prompt for inspection.
	for _, key := range []string{"4b", "8b"} {
		r := results[0].ByModel[key]
		assert.True(t, strings.Contains(r.Err, "backend timeout"), "variant %s: %q", key, r.Err)
		assert.NotEmpty(t, r.Retrieved)
		assert.NotEmpty(t, r.Prompt)
		assert.Empty(t, r.Answer)
	}
	assert.Len(t, gen.prompts, 2)
}

func TestRunDimensionMismatchAborts(t *testing.T) {
	embedder := fakeEmbedder{vectors: map[string][]float32{"embed-4b": {1, 0, 0}}}
	candidates := map[string][]index.Candidate{
		"4b": {{Text: "c", Vector: []float32{1, 0}}},
	}
	p := NewPipeline(embedder, &fakeGenerator{}, "llm", testVariants, 1, zerolog.Nop())

	_, err := p.Run(context.Background(), []models.Question{{Number: 1, Text: "q"}}, candidates, config.GenOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dimension")
}

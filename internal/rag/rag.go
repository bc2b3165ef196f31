// Package rag runs the retrieve-then-generate step of the benchmark: for
// each question and each embedding-model variant, retrieve the most similar
// chunks and ask the generation model to answer from them.
package rag

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"embedding-bench/internal/config"
	"embedding-bench/internal/index"
	"embedding-bench/internal/models"
)

// Embedder produces a query vector for a given embedding model.
type Embedder interface {
	Embed(ctx context.Context, model, text string, keepAlive int) ([]float32, error)
}

// Generator runs a single completion call.
type Generator interface {
	Generate(ctx context.Context, model, prompt string, opts config.GenOptions) (string, error)
}

const answerPromptTemplate = `You are an expert on the subject matter of the source documents.

Based on the following reference content:

%s

---

Question: %s

Answer the question above concisely and to the point, using only the reference content supplied. Answer in the same language as the source documents. Do not give a lengthy explanation; state only the essential points.`

// BuildPrompt renders the generation prompt: each retrieved chunk labeled
// with its rank and similarity, then the question and the answering
// instruction. The rendered prompt is stored verbatim for auditability.
func BuildPrompt(question string, matches []index.Match) string {
	parts := make([]string, len(matches))
	for i, m := range matches {
		parts[i] = fmt.Sprintf("[Chunk %d] (similarity: %.4f):\n%s", i+1, m.Similarity, m.Text)
	}
	return fmt.Sprintf(answerPromptTemplate, strings.Join(parts, "\n\n---\n\n"), question)
}

// Pipeline orchestrates answer generation across questions and variants.
type Pipeline struct {
	embedder Embedder
	gen      Generator
	llmModel string
	variants []config.ModelVariant
	topK     int
	log      zerolog.Logger
}

func NewPipeline(embedder Embedder, gen Generator, llmModel string, variants []config.ModelVariant, topK int, log zerolog.Logger) *Pipeline {
	return &Pipeline{
		embedder: embedder,
		gen:      gen,
		llmModel: llmModel,
		variants: variants,
		topK:     topK,
		log:      log,
	}
}

// Run processes questions one at a time, and within a question each variant
// in the configured order. The backend serializes on one loaded model, so
// there is deliberately no parallelism here: interleaving variants would
// thrash model loads.
//
// A backend failure for one (question, variant) pair is recorded on that
// pair and the remaining pairs still run. A dimension mismatch between the
// query vector and stored candidates is a precondition violation and aborts
// the run.
func (p *Pipeline) Run(ctx context.Context, questions []models.Question, candidatesByModel map[string][]index.Candidate, opts config.GenOptions) ([]models.QuestionResult, error) {
	var results []models.QuestionResult

	for _, q := range questions {
		p.log.Info().Int("question", q.Number).Msg("processing question")

		byModel := make(map[string]models.ModelResult, len(p.variants))
		for _, variant := range p.variants {
			candidates, ok := candidatesByModel[variant.Key]
			if !ok || len(candidates) == 0 {
				continue
			}

			result, err := p.answerOne(ctx, q, variant, candidates, opts)
			if err != nil {
				return nil, fmt.Errorf("question %d, variant %s: %w", q.Number, variant.Key, err)
			}
			byModel[variant.Key] = result
		}

		results = append(results, models.QuestionResult{
			Number:          q.Number,
			Text:            q.Text,
			ReferenceAnswer: q.ReferenceAnswer,
			ByModel:         byModel,
		})
	}
	return results, nil
}

// answerOne handles one (question, variant) pair. Backend call failures are
// absorbed into the returned ModelResult; only retrieval precondition
// violations surface as errors.
func (p *Pipeline) answerOne(ctx context.Context, q models.Question, variant config.ModelVariant, candidates []index.Candidate, opts config.GenOptions) (models.ModelResult, error) {
	queryVec, err := p.embedder.Embed(ctx, variant.Model, q.Text, -1)
	if err != nil {
		p.log.Error().Err(err).Int("question", q.Number).Str("variant", variant.Key).Msg("query embedding failed")
		return models.ModelResult{Err: fmt.Sprintf("query embedding: %v", err)}, nil
	}

	matches, err := index.TopK(queryVec, candidates, p.topK)
	if err != nil {
		return models.ModelResult{}, err
	}
	if len(matches) > 0 {
		p.log.Info().Str("variant", variant.Key).Int("retrieved", len(matches)).
			Float64("top_similarity", matches[0].Similarity).Msg("retrieval done")
	}

	prompt := BuildPrompt(q.Text, matches)
	retrieved := make([]models.RetrievedChunk, len(matches))
	for i, m := range matches {
		retrieved[i] = models.RetrievedChunk{Text: m.Text, Similarity: m.Similarity, ChunkSet: m.Origin}
	}

	answer, err := p.gen.Generate(ctx, p.llmModel, prompt, opts)
	if err != nil {
		p.log.Error().Err(err).Int("question", q.Number).Str("variant", variant.Key).Msg("answer generation failed")
		return models.ModelResult{Retrieved: retrieved, Prompt: prompt, Err: fmt.Sprintf("generation: %v", err)}, nil
	}

	return models.ModelResult{Retrieved: retrieved, Prompt: prompt, Answer: answer}, nil
}

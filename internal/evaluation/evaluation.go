// Package evaluation grades generated answers against reference answers.
// One grading call per question covers every model variant side by side so
// the grader reasons comparatively, then per-variant numeric scores are
// parsed out of its free-form response.
package evaluation

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"embedding-bench/internal/config"
	"embedding-bench/internal/models"
)

// Generator runs a single completion call.
type Generator interface {
	Generate(ctx context.Context, model, prompt string, opts config.GenOptions) (string, error)
}

// ScoresDelimiter separates the grader's analysis from the score lines.
const ScoresDelimiter = "---SCORES---"

// ScoreLabel returns the score-line label for a variant key, e.g. "SCORE_4B".
func ScoreLabel(key string) string {
	return "SCORE_" + strings.ToUpper(key)
}

// DefaultTemplate builds the default grading prompt for the configured
// variant set. Placeholders: {question}, {reference_answer}, and one
// {answer_<key>} per variant.
func DefaultTemplate(variants []config.ModelVariant) string {
	var b strings.Builder
	b.WriteString(`You are a quality assessor for answers produced by a RAG (Retrieval-Augmented Generation) system.

**Question:**
{question}

**Reference answer (use it as the criterion for the essential points):**
{reference_answer}

`)
	for _, v := range variants {
		label := v.Label
		if label == "" {
			label = v.Key
		}
		fmt.Fprintf(&b, "**Answer from embedding model %s:**\n{answer_%s}\n\n", label, v.Key)
	}

	b.WriteString(`---

## Scoring principles (important, read fully before scoring)

Score on the essential points, not on word-for-word similarity with the reference answer: a good answer may use different phrasing with the same meaning.

- **High (70-100)**: the answer covers all essential points of the reference, even with different wording. Rephrasing is acceptable as long as the core facts are correct and complete.
- **Middle (40-69)**: the answer is partially correct or misses some important details.
- **Low (0-39)**: the answer is wrong on the main points or misses the core content.

Assess on:
1. **Completeness**: are the reference's key facts present (not verbatim)?
2. **Correctness**: is the information factually accurate?
3. **Relevance**: does the answer address the question?

---

## Response format (follow strictly)

Respond in the following structure only, without adding or changing sections:

## Analysis

`)
	for _, v := range variants {
		label := v.Label
		if label == "" {
			label = v.Key
		}
		fmt.Fprintf(&b, "### Model %s\n- Essential points covered: [list what matches the reference]\n- Missing/incorrect points: [list if any, otherwise \"none\"]\n\n", label)
	}

	b.WriteString(`### Summary
[compare the models and state which answered better and why]

` + ScoresDelimiter + "\n")
	for _, v := range variants {
		fmt.Fprintf(&b, "%s: [number only, e.g. 75; no ** or other text on this line]\n", ScoreLabel(v.Key))
	}
	b.WriteString("\nNote: the score lines must appear after " + ScoresDelimiter + " only; do not state scores inside the analysis.")
	return b.String()
}

// RenderPrompt substitutes the question, reference answer, and per-variant
// answers into the template. Placeholders the template does not contain are
// simply not substituted; a custom template may cover fewer variants.
func RenderPrompt(template, question, referenceAnswer string, answers map[string]string, variants []config.ModelVariant) string {
	pairs := []string{
		"{question}", question,
		"{reference_answer}", referenceAnswer,
	}
	for _, v := range variants {
		pairs = append(pairs, "{answer_"+v.Key+"}", answers[v.Key])
	}
	return strings.NewReplacer(pairs...).Replace(template)
}

// Evaluator grades RAG results question by question.
type Evaluator struct {
	gen      Generator
	llmModel string
	variants []config.ModelVariant
	prompts  *PromptStore
	log      zerolog.Logger
}

func NewEvaluator(gen Generator, llmModel string, variants []config.ModelVariant, prompts *PromptStore, log zerolog.Logger) *Evaluator {
	return &Evaluator{
		gen:      gen,
		llmModel: llmModel,
		variants: variants,
		prompts:  prompts,
		log:      log,
	}
}

// EvaluateQuestion runs one comparative grading call and extracts one score
// per variant from the response. A variant whose score line is missing or
// unparsable scores 0; graders sometimes omit a line and that must not
// abort the evaluation.
func (e *Evaluator) EvaluateQuestion(ctx context.Context, question, referenceAnswer string, answers map[string]string, opts config.GenOptions) (string, map[string]float64, error) {
	prompt := RenderPrompt(e.prompts.Template(), question, referenceAnswer, answers, e.variants)

	narrative, err := e.gen.Generate(ctx, e.llmModel, prompt, opts)
	if err != nil {
		return "", nil, fmt.Errorf("grading call: %w", err)
	}

	scores := make(map[string]float64, len(e.variants))
	for _, v := range e.variants {
		scores[v.Key] = ExtractScore(narrative, ScoreLabel(v.Key))
	}
	return narrative, scores, nil
}

// EvaluateAll grades every question result. A grading-call failure is
// recorded on that question's evaluation and the remaining questions still
// run.
func (e *Evaluator) EvaluateAll(ctx context.Context, results []models.QuestionResult, opts config.GenOptions) []models.Evaluation {
	evaluations := make([]models.Evaluation, 0, len(results))
	for _, r := range results {
		e.log.Info().Int("question", r.Number).Msg("evaluating question")

		answers := make(map[string]string, len(r.ByModel))
		for key, mr := range r.ByModel {
			answers[key] = mr.Answer
		}

		ev := models.Evaluation{
			Number:          r.Number,
			Text:            r.Text,
			ReferenceAnswer: r.ReferenceAnswer,
		}
		narrative, scores, err := e.EvaluateQuestion(ctx, r.Text, r.ReferenceAnswer, answers, opts)
		if err != nil {
			e.log.Error().Err(err).Int("question", r.Number).Msg("evaluation failed")
			ev.Err = err.Error()
		} else {
			ev.Narrative = narrative
			ev.Scores = scores
		}
		evaluations = append(evaluations, ev)
	}
	return evaluations
}

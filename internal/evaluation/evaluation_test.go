package evaluation

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"embedding-bench/internal/config"
	"embedding-bench/internal/models"
)

var testVariants = []config.ModelVariant{
	{Key: "4b", Model: "embed-4b", Label: "Embedding 4B"},
	{Key: "8b", Model: "embed-8b", Label: "Embedding 8B"},
}

func TestExtractScoreBoldMarkup(t *testing.T) {
	text := "analysis text\n---SCORES---\nSCORE_4B: **82**\nSCORE_8B: 90\n"
	assert.Equal(t, 82.0, ExtractScore(text, "SCORE_4B"))
	assert.Equal(t, 90.0, ExtractScore(text, "SCORE_8B"))
}

func TestExtractScoreMissingLabel(t *testing.T) {
	text := "no scores here at all"
	assert.Equal(t, 0.0, ExtractScore(text, "SCORE_4B"))
}

func TestExtractScoreDecimalWithTrailingText(t *testing.T) {
	text := "SCORE_8B: 91.5 (borderline)"
	assert.Equal(t, 91.5, ExtractScore(text, "SCORE_8B"))
}

func TestExtractScoreLabelWithoutNumber(t *testing.T) {
	text := "SCORE_4B: not stated"
	assert.Equal(t, 0.0, ExtractScore(text, "SCORE_4B"))
}

func TestExtractScoreEmphasizedLabel(t *testing.T) {
	text := "**SCORE_4B**: 65"
	assert.Equal(t, 65.0, ExtractScore(text, "SCORE_4B"))
}

func TestDefaultTemplateContainsAllPlaceholders(t *testing.T) {
	tmpl := DefaultTemplate(testVariants)
	assert.Contains(t, tmpl, "{question}")
	assert.Contains(t, tmpl, "{reference_answer}")
	assert.Contains(t, tmpl, "{answer_4b}")
	assert.Contains(t, tmpl, "{answer_8b}")
	assert.Contains(t, tmpl, ScoresDelimiter)
	assert.Contains(t, tmpl, "SCORE_4B")
	assert.Contains(t, tmpl, "SCORE_8B")
}

func TestRenderPromptSubstitutesPresentPlaceholders(t *testing.T) {
	tmpl := "Q: {question}\nRef: {reference_answer}\nA4: {answer_4b}"
	answers := map[string]string{"4b": "four", "8b": "eight"}

	got := RenderPrompt(tmpl, "the question", "the ref", answers, testVariants)
	assert.Contains(t, got, "Q: the question")
	assert.Contains(t, got, "Ref: the ref")
	assert.Contains(t, got, "A4: four")
	// The template has no 8b placeholder; the 8b answer is simply absent.
	assert.NotContains(t, got, "eight")
}

type fakeGrader struct {
	response string
	err      error
	prompts  []string
}

func (f *fakeGrader) Generate(_ context.Context, _, prompt string, _ config.GenOptions) (string, error) {
	f.prompts = append(f.prompts, prompt)
	return f.response, f.err
}

func newTestEvaluator(t *testing.T, gen Generator) *Evaluator {
	t.Helper()
	store := NewPromptStore(filepath.Join(t.TempDir(), "evaluation_prompt.txt"), testVariants)
	return NewEvaluator(gen, "grader", testVariants, store, zerolog.Nop())
}

func TestEvaluateQuestionScoresPerVariant(t *testing.T) {
	grader := &fakeGrader{response: "## Analysis\ngood stuff\n---SCORES---\nSCORE_4B: 70\nSCORE_8B: 85\n"}
	e := newTestEvaluator(t, grader)

	narrative, scores, err := e.EvaluateQuestion(context.Background(), "q", "ref",
		map[string]string{"4b": "a4", "8b": "a8"}, config.GenOptions{})
	require.NoError(t, err)
	assert.Contains(t, narrative, "good stuff")
	assert.Equal(t, 70.0, scores["4b"])
	assert.Equal(t, 85.0, scores["8b"])

	// One joint call, with both answers embedded side by side.
	require.Len(t, grader.prompts, 1)
	assert.Contains(t, grader.prompts[0], "a4")
	assert.Contains(t, grader.prompts[0], "a8")
}

func TestEvaluateQuestionOmittedScoreLineDefaultsToZero(t *testing.T) {
	grader := &fakeGrader{response: "analysis\n---SCORES---\nSCORE_8B: 55\n"}
	e := newTestEvaluator(t, grader)

	_, scores, err := e.EvaluateQuestion(context.Background(), "q", "ref",
		map[string]string{"4b": "a4", "8b": "a8"}, config.GenOptions{})
	require.NoError(t, err)
	assert.Equal(t, 0.0, scores["4b"])
	assert.Equal(t, 55.0, scores["8b"])
}

func TestEvaluateAllIsolatesFailures(t *testing.T) {
	grader := &fakeGrader{err: errors.New("grader down")}
	e := newTestEvaluator(t, grader)

	results := []models.QuestionResult{
		{Number: 1, Text: "q1", ByModel: map[string]models.ModelResult{"4b": {Answer: "a"}}},
		{Number: 2, Text: "q2", ByModel: map[string]models.ModelResult{"4b": {Answer: "b"}}},
	}
	evals := e.EvaluateAll(context.Background(), results, config.GenOptions{})
	require.Len(t, evals, 2)
	for _, ev := range evals {
		assert.Contains(t, ev.Err, "grader down")
		assert.Empty(t, ev.Narrative)
	}
}

func TestPromptStoreSaveValidation(t *testing.T) {
	store := NewPromptStore(filepath.Join(t.TempDir(), "prompt.txt"), testVariants)

	err := store.Save("template without placeholders")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "{question}")
	assert.Contains(t, err.Error(), "{reference_answer}")
	assert.False(t, store.IsCustom())

	err = store.Save("")
	require.Error(t, err)

	valid := "Q {question} R {reference_answer} A {answer_4b}"
	require.NoError(t, store.Save(valid))
	assert.True(t, store.IsCustom())
	assert.Equal(t, valid, store.Template())
}

func TestPromptStoreResetRestoresDefault(t *testing.T) {
	store := NewPromptStore(filepath.Join(t.TempDir(), "prompt.txt"), testVariants)
	require.NoError(t, store.Save("Q {question} R {reference_answer}"))

	require.NoError(t, store.Reset())
	assert.False(t, store.IsCustom())
	assert.Equal(t, store.Default(), store.Template())

	// Resetting with no custom template saved is not an error.
	require.NoError(t, store.Reset())
}

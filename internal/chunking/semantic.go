package chunking

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"embedding-bench/internal/config"
	"embedding-bench/internal/models"
)

// Generator is the generation backend used to propose semantic sections.
type Generator interface {
	Generate(ctx context.Context, model, prompt string, opts config.GenOptions) (string, error)
}

const semanticPromptTemplate = `You are an expert at splitting documents into semantically coherent sections (semantic chunking).

The following text is the content of page %d of a document:

---
%s
---

Split this text into semantic chunks. Each chunk should:
1. Be self-contained
2. Cover a single topic or main point
3. Be no longer than 1500 characters

Respond with a JSON array only, where each element has:
- "title": a short title for the chunk, in the language of the document
- "text": the chunk content

Example format:
[
  {"title": "Topic 1", "text": "Content..."},
  {"title": "Topic 2", "text": "Content..."}
]

Respond with the JSON array only, no other text.`

type semanticSection struct {
	Title string `json:"title"`
	Text  string `json:"text"`
}

// Semantic asks the LLM to segment each page into titled sections. A failed
// call or unparsable response degrades that page to a single fallback chunk
// with a distinct title; it never aborts the remaining pages.
func Semantic(ctx context.Context, gen Generator, model string, opts config.GenOptions, pages []models.Page, log zerolog.Logger) []models.Chunk {
	var chunks []models.Chunk
	for _, page := range pages {
		text := page.OcrText
		if strings.TrimSpace(text) == "" {
			continue
		}

		sections, err := segmentPage(ctx, gen, model, opts, page.PageNumber, text)
		if err != nil {
			log.Warn().Err(err).Int("page", page.PageNumber).Msg("semantic chunking failed, falling back to whole page")
			chunks = append(chunks, fallbackChunk(page.PageNumber, text))
			continue
		}
		for idx, s := range sections {
			chunks = append(chunks, models.Chunk{
				PageNumber: page.PageNumber,
				ChunkIndex: idx,
				Text:       s.Text,
				Title:      s.Title,
				Size:       utf8.RuneCountInString(s.Text),
			})
		}
		log.Info().Int("page", page.PageNumber).Int("chunks", len(sections)).Msg("semantic chunking done")
	}
	return chunks
}

func segmentPage(ctx context.Context, gen Generator, model string, opts config.GenOptions, pageNum int, text string) ([]semanticSection, error) {
	prompt := fmt.Sprintf(semanticPromptTemplate, pageNum, text)
	response, err := gen.Generate(ctx, model, prompt, opts)
	if err != nil {
		return nil, err
	}
	return parseSections(response, pageNum, text)
}

func parseSections(response string, pageNum int, pageText string) ([]semanticSection, error) {
	start := strings.Index(response, "[")
	end := strings.LastIndex(response, "]")
	if start < 0 || end <= start {
		// No JSON array in the response: the whole page becomes one chunk,
		// titled normally because the model did answer.
		return []semanticSection{{Title: fmt.Sprintf("Page %d", pageNum), Text: pageText}}, nil
	}

	sections, err := unmarshalSections(response[start : end+1])
	if err != nil {
		return nil, err
	}
	return sections, nil
}

func fallbackChunk(pageNum int, text string) models.Chunk {
	return models.Chunk{
		PageNumber: pageNum,
		ChunkIndex: 0,
		Text:       text,
		Title:      fmt.Sprintf("Page %d (fallback)", pageNum),
		Size:       utf8.RuneCountInString(text),
	}
}

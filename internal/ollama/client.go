package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"embedding-bench/internal/config"
)

// Client talks to a local Ollama server. Embedding and generation calls are
// blocking round trips with minutes-scale timeouts; large models are slow to
// load and answer, and nothing here streams.
type Client struct {
	baseURL string
	embed   *http.Client
	gen     *http.Client
	log     zerolog.Logger
}

func NewClient(cfg config.OllamaConfig, log zerolog.Logger) *Client {
	base := strings.TrimSuffix(cfg.BaseURL, "/")
	if base == "" {
		base = "http://localhost:11434"
	}
	return &Client{
		baseURL: base,
		embed:   &http.Client{Timeout: 5 * time.Minute},
		gen:     &http.Client{Timeout: 10 * time.Minute},
		log:     log,
	}
}

type embedRequest struct {
	Model     string `json:"model"`
	Input     string `json:"input"`
	KeepAlive int    `json:"keep_alive"`
}

type embedResponse struct {
	Embeddings [][]float64 `json:"embeddings"`
}

// Embed returns the embedding vector for text under the given model.
// keepAlive -1 keeps the model loaded; 0 asks Ollama to evict it after the
// call.
func (c *Client) Embed(ctx context.Context, model, text string, keepAlive int) ([]float32, error) {
	body, err := json.Marshal(embedRequest{Model: model, Input: text, KeepAlive: keepAlive})
	if err != nil {
		return nil, fmt.Errorf("marshal embed request: %w", err)
	}

	resp, err := c.post(ctx, c.embed, "/api/embed", body)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, httpError("embed", resp)
	}

	var out embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode embed response: %w", err)
	}
	if len(out.Embeddings) == 0 {
		return nil, fmt.Errorf("embed: empty embedding for model %s", model)
	}

	vec := make([]float32, len(out.Embeddings[0]))
	for i, v := range out.Embeddings[0] {
		vec[i] = float32(v)
	}
	return vec, nil
}

// EmbedBatch embeds texts one at a time in order. When unloadAfter is set,
// the final call carries keep_alive 0 so the model is evicted before the
// next variant loads.
func (c *Client) EmbedBatch(ctx context.Context, model string, texts []string, unloadAfter bool) ([][]float32, error) {
	results := make([][]float32, 0, len(texts))
	for i, text := range texts {
		if i > 0 && i%10 == 0 {
			c.log.Info().Str("model", model).Msgf("embedded %d/%d chunks", i, len(texts))
		}
		keepAlive := -1
		if unloadAfter && i == len(texts)-1 {
			keepAlive = 0
		}
		vec, err := c.Embed(ctx, model, text, keepAlive)
		if err != nil {
			return nil, fmt.Errorf("embed chunk %d: %w", i, err)
		}
		results = append(results, vec)
	}
	return results, nil
}

// Unload asks Ollama to evict a model from memory. Best effort: failure is
// logged and swallowed, a stuck model only costs VRAM.
func (c *Client) Unload(ctx context.Context, model string) {
	body, _ := json.Marshal(embedRequest{Model: model, Input: "", KeepAlive: 0})
	resp, err := c.post(ctx, &http.Client{Timeout: 30 * time.Second}, "/api/embed", body)
	if err != nil {
		c.log.Warn().Err(err).Str("model", model).Msg("could not unload model")
		return
	}
	resp.Body.Close()
	c.log.Debug().Str("model", model).Msg("unloaded model")
}

type generateRequest struct {
	Model   string         `json:"model"`
	Prompt  string         `json:"prompt"`
	Stream  bool           `json:"stream"`
	Options map[string]any `json:"options"`
}

type generateResponse struct {
	Response string `json:"response"`
}

// Generate runs a single non-streaming completion and returns the trimmed
// response text.
func (c *Client) Generate(ctx context.Context, model, prompt string, opts config.GenOptions) (string, error) {
	options := map[string]any{
		"temperature": opts.Temperature,
		"top_p":       opts.TopP,
		"num_predict": opts.NumPredict,
	}
	if opts.NumCtx > 0 {
		options["num_ctx"] = opts.NumCtx
	}

	body, err := json.Marshal(generateRequest{Model: model, Prompt: prompt, Options: options})
	if err != nil {
		return "", fmt.Errorf("marshal generate request: %w", err)
	}

	resp, err := c.post(ctx, c.gen, "/api/generate", body)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", httpError("generate", resp)
	}

	var out generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode generate response: %w", err)
	}
	return strings.TrimSpace(out.Response), nil
}

func (c *Client) post(ctx context.Context, client *http.Client, path string, body []byte) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ollama %s: %w", path, err)
	}
	return resp, nil
}

func httpError(op string, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return fmt.Errorf("ollama %s: status %d: %s", op, resp.StatusCode, string(body))
}

package knowledge

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/planweave/planweave/internal/llm"
)

const (
	defaultEmbedBaseURL = "https://api.openai.com"
	defaultEmbedModel   = "text-embedding-3-small"
)

// OpenAIEmbedder calls the OpenAI embeddings endpoint.
type OpenAIEmbedder struct {
	baseURL string
	apiKey  string
	model   string
	http    *http.Client
}

var _ Embedder = (*OpenAIEmbedder)(nil)

// EmbedOption configures an OpenAIEmbedder.
type EmbedOption func(*OpenAIEmbedder)

func WithEmbedBaseURL(u string) EmbedOption {
	return func(e *OpenAIEmbedder) { e.baseURL = u }
}

func WithEmbedModel(m string) EmbedOption {
	return func(e *OpenAIEmbedder) { e.model = m }
}

func WithEmbedHTTPClient(hc *http.Client) EmbedOption {
	return func(e *OpenAIEmbedder) { e.http = hc }
}

func NewOpenAIEmbedder(apiKey string, opts ...EmbedOption) *OpenAIEmbedder {
	e := &OpenAIEmbedder{
		baseURL: defaultEmbedBaseURL,
		apiKey:  apiKey,
		model:   defaultEmbedModel,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Embed returns the embedding vector for text.
func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	body, err := json.Marshal(map[string]any{
		"model": e.model,
		"input": text,
	})
	if err != nil {
		return nil, fmt.Errorf("knowledge: encode embed request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/v1/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("knowledge: build embed request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+e.apiKey)

	resp, err := e.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("knowledge: embed request: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, llm.ErrRateLimited
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, llm.ErrUnauthorized
	case resp.StatusCode >= 500:
		return nil, llm.ErrUnavailable
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("knowledge: embed request: unexpected status %d", resp.StatusCode)
	}

	var out struct {
		Data []struct {
			Embedding []float32 `json:"embedding"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("knowledge: decode embed response: %w", err)
	}
	if len(out.Data) == 0 {
		return nil, errors.New("knowledge: empty embed response")
	}
	return out.Data[0].Embedding, nil
}

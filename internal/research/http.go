package research

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/planweave/planweave/internal/llm"
)

const (
	defaultEndpoint = "https://api.perplexity.ai/chat/completions"
	defaultModel    = "sonar-pro"
	maxAttempts     = 3
)

// researchDirective instructs the web-research model to return the structured
// Result contract and to report every contradiction it encounters.
const researchDirective = `You are a research agent that must SEARCH THE WEB and then return structured data.

User context:
- We are building a B2B ACCOUNT PLAN for a client.
- You must pull information ONLY from the web and cite sources.
- You must return sources from which you generated the response all the time.

IMPORTANT - Conflict Detection:
- Actively look for and report ANY conflicting information found across different sources.
- Conflicts include: different numbers/figures, contradictory statements, varying dates, inconsistent facts.
- Be thorough - even minor discrepancies should be reported.
- Format: "[Topic]: Source A says X, but Source B says Y".

Return a JSON object with fields:
- summary: string (3-6 sentences)
- key_points: string[]
- sources: {title: string, url: string, snippet: string}[]
- conflicts: string[] (explicitly list ALL conflicting data points found; empty list if none)

DO NOT add extra text, only valid JSON.`

// Compile-time interface check.
var _ Client = (*HTTPClient)(nil)

// sleep is swapped out in tests.
var sleep = time.Sleep

// HTTPClient implements Client against a Perplexity-style chat completions
// endpoint that performs web search.
type HTTPClient struct {
	endpoint string
	apiKey   string
	model    string
	http     *http.Client
}

// ClientOption configures an HTTPClient.
type ClientOption func(*HTTPClient)

// WithEndpoint overrides the API endpoint URL.
func WithEndpoint(u string) ClientOption {
	return func(c *HTTPClient) { c.endpoint = u }
}

// WithSearchModel overrides the research model.
func WithSearchModel(m string) ClientOption {
	return func(c *HTTPClient) { c.model = m }
}

// WithHTTPClient replaces the underlying *http.Client entirely.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *HTTPClient) { c.http = hc }
}

// NewHTTPClient creates a research client with a fixed connection-level
// timeout; a timeout surfaces as a call failure handled by the caller's
// fallback path.
func NewHTTPClient(apiKey string, opts ...ClientOption) *HTTPClient {
	c := &HTTPClient{
		endpoint: defaultEndpoint,
		apiKey:   apiKey,
		model:    defaultModel,
		http: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type completionRequest struct {
	Model    string        `json:"model"`
	Messages []llm.Message `json:"messages"`
}

type completionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Search posts the query with the research directive and decodes the
// structured result. Rate-limit responses are retried with doubling backoff up
// to three attempts.
func (c *HTTPClient) Search(ctx context.Context, query string) (*Result, error) {
	body, err := json.Marshal(completionRequest{
		Model: c.model,
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: researchDirective},
			{Role: llm.RoleUser, Content: query},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("research: marshal request: %w", err)
	}

	var content string
	for attempt := 0; attempt < maxAttempts; attempt++ {
		content, err = c.post(ctx, body)
		if err == nil {
			break
		}
		if errors.Is(err, llm.ErrRateLimited) && attempt < maxAttempts-1 {
			sleep(time.Duration(2*(attempt+1)) * time.Second)
			continue
		}
		return nil, err
	}
	if err != nil {
		return nil, err
	}

	return decodeResult(content), nil
}

func (c *HTTPClient) post(ctx context.Context, body []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("research: create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("research: send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return "", llm.ErrRateLimited
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		data, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("research: HTTP %d: %s", resp.StatusCode, string(data))
	}

	var cr completionResponse
	if err := json.NewDecoder(resp.Body).Decode(&cr); err != nil {
		return "", fmt.Errorf("research: decode response: %w", err)
	}
	if len(cr.Choices) == 0 {
		return "", errors.New("research: empty response")
	}
	return cr.Choices[0].Message.Content, nil
}

// decodeResult forces raw model output into the Result contract: markdown
// fences are stripped, a result the upstream model double-wrapped inside its
// own summary field is unwrapped, and undecodable text degrades to a Result
// whose summary is the text itself.
func decodeResult(content string) *Result {
	cleaned := stripFences(content)

	var r Result
	if err := json.Unmarshal([]byte(cleaned), &r); err != nil {
		return &Result{Summary: content}
	}

	// The upstream model sometimes nests the whole payload inside summary.
	summary := strings.TrimSpace(r.Summary)
	if strings.HasPrefix(summary, "{") || strings.HasPrefix(summary, "```json") {
		var inner Result
		if err := json.Unmarshal([]byte(stripFences(summary)), &inner); err == nil {
			if inner.Summary != "" || len(inner.KeyPoints) > 0 {
				return &inner
			}
		}
	}

	return &r
}

func stripFences(s string) string {
	trimmed := strings.TrimSpace(s)
	if strings.HasPrefix(trimmed, "```json") {
		trimmed = strings.ReplaceAll(trimmed, "```json", "")
		trimmed = strings.ReplaceAll(trimmed, "```", "")
	} else if strings.HasPrefix(trimmed, "```") {
		trimmed = strings.ReplaceAll(trimmed, "```", "")
	}
	return strings.TrimSpace(trimmed)
}

// Package gemini implements the search-grounded model collaborator against
// the Gemini generateContent REST API. The client is an explicit handle
// created once at process start and passed by reference to the orchestrator.
package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/omnisearch/omnisearch/internal/session"
)

const (
	defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	defaultModel   = "gemini-2.5-flash"
	defaultTimeout = 60 * time.Second
	maxRetries     = 3
	initialBackoff = 500 * time.Millisecond
)

// Client communicates with the Gemini API.
type Client struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a Gemini client with the given API key. An empty model
// selects the default.
func NewClient(apiKey, model string) *Client {
	if model == "" {
		model = defaultModel
	}
	return &Client{
		apiKey:  apiKey,
		model:   model,
		baseURL: defaultBaseURL,
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
	}
}

// NewClientWithBaseURL creates a client pointing at a custom base URL (for testing).
func NewClientWithBaseURL(apiKey, model, baseURL string) *Client {
	c := NewClient(apiKey, model)
	c.baseURL = strings.TrimRight(baseURL, "/")
	return c
}

// Search runs a grounded one-shot query under the given category and returns
// the structured answer plus deduplicated citations.
func (c *Client) Search(ctx context.Context, query string, cat session.Category) (*session.SearchResult, error) {
	req := generateRequest{
		Contents: []content{
			{Role: "user", Parts: []part{{Text: BuildSearchPrompt(query, cat)}}},
		},
		Tools: []tool{{GoogleSearch: &googleSearch{}}},
	}
	return c.generate(ctx, req)
}

// Chat sends one conversational turn with the full prior transcript so the
// model keeps context across turns.
func (c *Client) Chat(ctx context.Context, text string, cat session.Category, history []session.ChatMessage) (*session.SearchResult, error) {
	contents := make([]content, 0, len(history)+1)
	for _, m := range history {
		contents = append(contents, content{
			Role:  roleName(m.Role),
			Parts: []part{{Text: m.Text}},
		})
	}
	contents = append(contents, content{Role: "user", Parts: []part{{Text: text}}})

	req := generateRequest{
		SystemInstruction: &content{Parts: []part{{Text: BuildChatInstruction(cat)}}},
		Contents:          contents,
		Tools:             []tool{{GoogleSearch: &googleSearch{}}},
	}
	return c.generate(ctx, req)
}

func roleName(r session.Role) string {
	if r == session.RoleModel {
		return "model"
	}
	return "user"
}

// generate posts the request with bounded retry on rate limiting, mirroring
// how upstream providers signal transient pressure with HTTP 429.
func (c *Client) generate(ctx context.Context, req generateRequest) (*session.SearchResult, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	var lastErr error
	for attempt := range maxRetries {
		result, err := c.doGenerate(ctx, body)
		if err == nil {
			return result, nil
		}

		if !isRateLimit(err) {
			return nil, err
		}

		lastErr = err
		if attempt < maxRetries-1 {
			backoff := time.Duration(float64(initialBackoff) * math.Pow(2, float64(attempt)))
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
		}
	}

	return nil, fmt.Errorf("rate limited after %d retries: %w", maxRetries, lastErr)
}

// rateLimitError is returned on HTTP 429.
type rateLimitError struct {
	status int
}

func (e *rateLimitError) Error() string {
	return fmt.Sprintf("rate limited (HTTP %d)", e.status)
}

func isRateLimit(err error) bool {
	_, ok := err.(*rateLimitError)
	return ok
}

func (c *Client) doGenerate(ctx context.Context, body []byte) (*session.SearchResult, error) {
	url := fmt.Sprintf("%s/models/%s:generateContent", c.baseURL, c.model)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, &rateLimitError{status: resp.StatusCode}
	}

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		var ae apiError
		if json.Unmarshal(respBody, &ae) == nil && ae.Error.Message != "" {
			return nil, fmt.Errorf("gemini returned %d: %s", resp.StatusCode, ae.Error.Message)
		}
		return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(respBody))
	}

	var gr generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&gr); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	return parseResult(gr), nil
}

// parseResult extracts the answer text and grounding citations from the
// first candidate. Missing text yields a fixed placeholder rather than an
// error; citations are deduplicated by URI in first-appearance order.
func parseResult(gr generateResponse) *session.SearchResult {
	result := &session.SearchResult{
		MarkdownText: "No information found.",
		Sources:      []session.Source{},
	}
	if len(gr.Candidates) == 0 {
		return result
	}

	cand := gr.Candidates[0]

	var sb strings.Builder
	for _, p := range cand.Content.Parts {
		sb.WriteString(p.Text)
	}
	if text := sb.String(); text != "" {
		result.MarkdownText = text
	}

	if cand.GroundingMetadata != nil {
		var raw []session.Source
		for _, chunk := range cand.GroundingMetadata.GroundingChunks {
			if chunk.Web == nil || chunk.Web.URI == "" {
				continue
			}
			raw = append(raw, session.Source{Title: chunk.Web.Title, URI: chunk.Web.URI})
		}
		result.Sources = session.DedupeSources(raw)
	}

	return result
}

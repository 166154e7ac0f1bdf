package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/omnisearch/omnisearch/internal/config"
)

type recordedRequest struct {
	Method string
	Path   string
	Body   string
	Auth   string
}

type testServer struct {
	server   *httptest.Server
	requests []recordedRequest
}

func newTestServer(t *testing.T, responses map[string]string) *testServer {
	t.Helper()
	ts := &testServer{}

	ts.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body bytes.Buffer
		body.ReadFrom(r.Body)

		ts.requests = append(ts.requests, recordedRequest{
			Method: r.Method,
			Path:   r.URL.RequestURI(),
			Body:   body.String(),
			Auth:   r.Header.Get("Authorization"),
		})

		key := r.Method + " " + r.URL.Path
		if resp, ok := responses[key]; ok {
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(resp))
			return
		}

		w.WriteHeader(404)
		w.Write([]byte(`{"error":{"message":"not found","type":"not_found"}}`))
	}))

	t.Cleanup(ts.server.Close)
	return ts
}

func (ts *testServer) client() *apiClient {
	return &apiClient{
		baseURL:    ts.server.URL,
		token:      "test-token",
		httpClient: ts.server.Client(),
	}
}

var ctx = context.Background()

func TestAPIClientAuth(t *testing.T) {
	ts := newTestServer(t, map[string]string{
		"GET /health": `{"status":"ok"}`,
	})

	client := ts.client()
	client.token = "my-secret-token"

	resp, err := client.get(ctx, "/health")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	resp.Body.Close()

	if len(ts.requests) != 1 {
		t.Fatalf("expected 1 request, got %d", len(ts.requests))
	}
	if ts.requests[0].Auth != "Bearer my-secret-token" {
		t.Errorf("auth = %q, want 'Bearer my-secret-token'", ts.requests[0].Auth)
	}
}

func TestAPIClientNoTokenOmitsHeader(t *testing.T) {
	ts := newTestServer(t, map[string]string{
		"GET /health": `{"status":"ok"}`,
	})

	client := ts.client()
	client.token = ""

	resp, err := client.get(ctx, "/health")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	resp.Body.Close()

	if ts.requests[0].Auth != "" {
		t.Errorf("auth header should be absent without a token, got %q", ts.requests[0].Auth)
	}
}

func TestAPIClientServerDown(t *testing.T) {
	ts := newTestServer(t, map[string]string{})
	ts.server.Close()

	_, err := ts.client().get(ctx, "/health")
	if err == nil {
		t.Fatal("expected error for stopped server")
	}
	if !strings.Contains(err.Error(), "not reachable") {
		t.Errorf("error = %q, want it to mention 'not reachable'", err.Error())
	}
}

func TestDecodeJSON_ErrorResponse(t *testing.T) {
	ts := newTestServer(t, map[string]string{})

	resp, err := ts.client().get(ctx, "/sessions/missing")
	if err != nil {
		t.Fatalf("unexpected transport error: %v", err)
	}

	var result any
	err = decodeJSON(resp, &result)
	if err == nil {
		t.Fatal("expected error for 404 response")
	}
	if !strings.Contains(err.Error(), "404") {
		t.Errorf("error = %q, want it to contain '404'", err.Error())
	}
}

func TestSearchRequestShape(t *testing.T) {
	ts := newTestServer(t, map[string]string{
		"POST /sessions/abc/search": `{"id":"abc","status":"loading","query":"grounded llms"}`,
	})

	client := ts.client()
	body := map[string]string{"query": "grounded llms", "category": "Health"}
	resp, err := client.post(ctx, "/sessions/abc/search", body)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var s sessionJSON
	if err := decodeJSON(resp, &s); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if s.Status != "loading" {
		t.Errorf("status = %q, want loading", s.Status)
	}

	var sent map[string]string
	if err := json.Unmarshal([]byte(ts.requests[0].Body), &sent); err != nil {
		t.Fatalf("body parse error: %v", err)
	}
	if sent["query"] != "grounded llms" || sent["category"] != "Health" {
		t.Errorf("sent body = %v", sent)
	}
}

func TestPollSessionResolves(t *testing.T) {
	calls := 0
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		if calls < 3 {
			w.Write([]byte(`{"id":"abc","status":"loading"}`))
			return
		}
		w.Write([]byte(`{"id":"abc","status":"success","result":{"markdown_text":"done","sources":[]}}`))
	}))
	defer ts.Close()

	client := &apiClient{baseURL: ts.URL, httpClient: ts.Client()}

	s, err := pollSession(ctx, client, "abc")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Status != "success" {
		t.Errorf("status = %q, want success", s.Status)
	}
	if s.Result == nil || s.Result.MarkdownText != "done" {
		t.Errorf("result = %+v", s.Result)
	}
	if calls != 3 {
		t.Errorf("expected 3 polls, got %d", calls)
	}
}

func TestPollSessionErrorState(t *testing.T) {
	ts := newTestServer(t, map[string]string{
		"GET /sessions/abc": `{"id":"abc","status":"error","error":"Failed to retrieve search results. Please verify your API key and network connection."}`,
	})

	s, err := pollSession(ctx, ts.client(), "abc")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Status != "error" || s.Error == "" {
		t.Errorf("session = %+v", s)
	}
}

func TestNoColorFlag(t *testing.T) {
	old := noColor
	defer func() { noColor = old }()

	noColor = true
	result := colorize(colorGreen, "test message")
	if strings.Contains(result, "\033[") {
		t.Errorf("colorize with noColor=true should not contain ANSI codes, got %q", result)
	}
	if result != "test message" {
		t.Errorf("result = %q, want %q", result, "test message")
	}

	noColor = false
	result = colorize(colorGreen, "test message")
	if !strings.Contains(result, "\033[") {
		t.Errorf("colorize with noColor=false should contain ANSI codes, got %q", result)
	}
}

func TestConfigShowAll(t *testing.T) {
	cfg := config.Config{}
	cfg.Server.Port = 4600
	cfg.Gemini.Model = "gemini-2.5-flash"

	keys := config.ShowAll(cfg)
	if len(keys) == 0 {
		t.Fatal("expected non-empty keys from ShowAll")
	}

	found := false
	for _, k := range keys {
		if k.Key == "server.port" && k.Value == "4600" {
			found = true
		}
	}
	if !found {
		t.Error("expected to find server.port=4600 in ShowAll output")
	}
}

func TestOutputHelpers(t *testing.T) {
	oldW, oldColor := outW, noColor
	defer func() { outW, noColor = oldW, oldColor }()

	var buf bytes.Buffer
	outW = &buf
	noColor = true

	printSuccess("done in %dms", 12)
	printError("failed")
	printWarning("retrying in %s", "2s")
	printStatus("Port", "%d", 4600)
	printStep("fetching")

	got := buf.String()
	for _, want := range []string{
		"✓ done in 12ms",
		"✗ failed",
		"⚠ retrying in 2s",
		"  Port: 4600",
		"→ fetching",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q:\n%s", want, got)
		}
	}
}

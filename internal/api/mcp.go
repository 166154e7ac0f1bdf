package api

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/omnisearch/omnisearch/internal/history"
	"github.com/omnisearch/omnisearch/internal/orchestrator"
	"github.com/omnisearch/omnisearch/internal/session"
)

// MCPDeps holds dependencies for the MCP server.
type MCPDeps struct {
	Store   *session.Store
	Querier orchestrator.Querier
	History history.Store // optional; if nil, searches are not logged
}

// NewMCPServer creates an MCP server exposing grounded research search and
// session inspection to agent clients.
func NewMCPServer(deps MCPDeps) *server.MCPServer {
	s := server.NewMCPServer(
		"omnisearch",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithInstructions("omnisearch — search-grounded research assistant with categorized sources and sectioned answers."),
		server.WithRecovery(),
	)

	s.AddTool(
		mcp.NewTool("research_search",
			mcp.WithDescription("Run a search-grounded research query and return a sectioned Markdown answer with cited sources."),
			mcp.WithString("query", mcp.Description("The research topic"), mcp.Required()),
			mcp.WithString("category", mcp.Description("Domain filter: General, Health, Emotion, Business, Education, or Creative")),
		),
		mcpResearchSearch(deps),
	)

	s.AddTool(
		mcp.NewTool("list_sessions",
			mcp.WithDescription("List the current research sessions with their status and titles."),
		),
		mcpListSessions(deps),
	)

	s.AddResource(
		mcp.NewResource(
			"sessions://active",
			"Active Session",
			mcp.WithResourceDescription("The currently active research session as JSON"),
			mcp.WithMIMEType("application/json"),
		),
		mcpResourceActive(deps),
	)

	return s
}

func mcpResearchSearch(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		query, err := req.RequireString("query")
		if err != nil {
			return mcpError("query is required"), nil
		}

		cat, err := session.ParseCategory(req.GetString("category", ""))
		if err != nil {
			return mcpError(fmt.Sprintf("invalid category: %v", err)), nil
		}

		result, err := deps.Querier.Search(ctx, query, cat)
		if err != nil {
			return mcpError(fmt.Sprintf("search failed: %v", err)), nil
		}

		if deps.History != nil {
			sourcesJSON, _ := json.Marshal(result.Sources)
			rec := history.Record{
				ID:           uuid.New().String(),
				CreatedAt:    time.Now().UTC(),
				SessionID:    "mcp",
				Mode:         string(session.ModeSearch),
				Category:     string(cat),
				Query:        query,
				ResponseText: result.MarkdownText,
				SourcesJSON:  string(sourcesJSON),
				Status:       "success",
			}
			// Logging is best-effort; the answer is returned regardless.
			_ = deps.History.Save(ctx, rec)
		}

		b, err := json.Marshal(result)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal result: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpListSessions(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		type sessionSummary struct {
			ID       string `json:"id"`
			Title    string `json:"title"`
			Mode     string `json:"mode"`
			Category string `json:"category"`
			Status   string `json:"status"`
			Active   bool   `json:"active"`
		}

		activeID := deps.Store.Active().ID
		sessions := deps.Store.List()
		summaries := make([]sessionSummary, len(sessions))
		for i, s := range sessions {
			summaries[i] = sessionSummary{
				ID:       s.ID,
				Title:    s.Title,
				Mode:     string(s.Mode),
				Category: string(s.Category),
				Status:   string(s.Status),
				Active:   s.ID == activeID,
			}
		}

		b, err := json.Marshal(summaries)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal sessions: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpResourceActive(deps MCPDeps) server.ResourceHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		b, err := json.Marshal(deps.Store.Active())
		if err != nil {
			return nil, fmt.Errorf("failed to marshal active session: %w", err)
		}

		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      req.Params.URI,
				MIMEType: "application/json",
				Text:     string(b),
			},
		}, nil
	}
}

func mcpText(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

func mcpError(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}

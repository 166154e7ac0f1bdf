package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/omnisearch/omnisearch/internal/config"
)

type sessionJSON struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Mode     string `json:"mode"`
	Category string `json:"category"`
	Status   string `json:"status"`
	Query    string `json:"query"`
	Result   *struct {
		MarkdownText string       `json:"markdown_text"`
		Sources      []sourceJSON `json:"sources"`
	} `json:"result"`
	Messages []struct {
		Role    string       `json:"role"`
		Text    string       `json:"text"`
		Sources []sourceJSON `json:"sources"`
	} `json:"messages"`
	Error     string `json:"error"`
	UpdatedAt string `json:"updated_at"`
}

type sourceJSON struct {
	Title string `json:"title"`
	URI   string `json:"uri"`
}

// pollSession polls a session until it leaves the loading state.
func pollSession(ctx context.Context, client *apiClient, id string) (sessionJSON, error) {
	deadline := time.Now().Add(2 * time.Minute)
	for {
		resp, err := client.get(ctx, "/sessions/"+id)
		if err != nil {
			return sessionJSON{}, err
		}
		var s sessionJSON
		if err := decodeJSON(resp, &s); err != nil {
			return sessionJSON{}, err
		}
		if s.Status != "loading" {
			return s, nil
		}
		if time.Now().After(deadline) {
			return s, fmt.Errorf("timed out waiting for session %s", id)
		}
		select {
		case <-ctx.Done():
			return s, ctx.Err()
		case <-time.After(500 * time.Millisecond):
		}
	}
}

func printSources(sources []sourceJSON) {
	if len(sources) == 0 {
		return
	}
	fmt.Printf("\n%s\n", colorize(colorBold, "Sources:"))
	for _, src := range sources {
		title := src.Title
		if title == "" {
			title = src.URI
		}
		fmt.Printf("  %s %s\n", colorize(colorCyan, "•"), title)
		fmt.Printf("    %s\n", src.URI)
	}
}

// --- search ---

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Run a grounded research query in the active session",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		query := strings.Join(args, " ")
		category, _ := cmd.Flags().GetString("category")

		client, err := newAPIClient()
		if err != nil {
			return err
		}
		ctx := cmd.Context()

		resp, err := client.get(ctx, "/sessions/active")
		if err != nil {
			return err
		}
		var active sessionJSON
		if err := decodeJSON(resp, &active); err != nil {
			return err
		}
		if active.Mode != "search" {
			// Chat sessions take messages, not queries; open a fresh search session.
			resp, err := client.post(ctx, "/sessions", map[string]string{"mode": "search"})
			if err != nil {
				return err
			}
			if err := decodeJSON(resp, &active); err != nil {
				return err
			}
		}

		printStep("Searching: %s", query)
		body := map[string]string{"query": query}
		if category != "" {
			body["category"] = category
		}
		if resp, err = client.post(ctx, "/sessions/"+active.ID+"/search", body); err != nil {
			return err
		}
		if err := decodeJSON(resp, &active); err != nil {
			return err
		}

		s, err := pollSession(ctx, client, active.ID)
		if err != nil {
			return err
		}
		if s.Status == "error" {
			printError("%s", s.Error)
			return fmt.Errorf("search failed")
		}
		if s.Result == nil {
			return fmt.Errorf("session completed without a result")
		}

		fmt.Println(s.Result.MarkdownText)
		printSources(s.Result.Sources)
		return nil
	},
}

func init() {
	searchCmd.Flags().String("category", "", "domain filter: General, Health, Emotion, Business, Education, or Creative")
}

// --- chat ---

var chatCmd = &cobra.Command{
	Use:   "chat <message>",
	Short: "Send a message to the active chat session",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		text := strings.Join(args, " ")
		category, _ := cmd.Flags().GetString("category")

		client, err := newAPIClient()
		if err != nil {
			return err
		}
		ctx := cmd.Context()

		resp, err := client.get(ctx, "/sessions/active")
		if err != nil {
			return err
		}
		var active sessionJSON
		if err := decodeJSON(resp, &active); err != nil {
			return err
		}
		if active.Mode != "chat" {
			resp, err := client.post(ctx, "/sessions", map[string]string{"mode": "chat"})
			if err != nil {
				return err
			}
			if err := decodeJSON(resp, &active); err != nil {
				return err
			}
		}

		body := map[string]string{"text": text}
		if category != "" {
			body["category"] = category
		}
		if resp, err = client.post(ctx, "/sessions/"+active.ID+"/messages", body); err != nil {
			return err
		}
		if err := decodeJSON(resp, &active); err != nil {
			return err
		}

		s, err := pollSession(ctx, client, active.ID)
		if err != nil {
			return err
		}
		if s.Status == "error" {
			printError("%s", s.Error)
			return fmt.Errorf("chat failed")
		}
		for i := len(s.Messages) - 1; i >= 0; i-- {
			if s.Messages[i].Role == "model" {
				fmt.Println(s.Messages[i].Text)
				printSources(s.Messages[i].Sources)
				return nil
			}
		}
		return fmt.Errorf("session completed without a reply")
	},
}

func init() {
	chatCmd.Flags().String("category", "", "domain filter: General, Health, Emotion, Business, Education, or Creative")
	rootCmd.AddCommand(chatCmd)
}

// --- sessions ---

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "Manage research sessions",
}

var sessionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List sessions",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.get(cmd.Context(), "/sessions")
		if err != nil {
			return err
		}

		var result struct {
			Sessions []sessionJSON `json:"sessions"`
			ActiveID string        `json:"active_id"`
		}
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		for _, s := range result.Sessions {
			marker := " "
			if s.ID == result.ActiveID {
				marker = colorize(colorGreen, "*")
			}
			fmt.Printf("%s %s  %-6s  %-8s  %s\n",
				marker,
				colorize(colorCyan, s.ID[:8]),
				s.Mode,
				s.Status,
				s.Title,
			)
		}
		return nil
	},
}

var sessionsShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a session as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.get(cmd.Context(), "/sessions/"+args[0])
		if err != nil {
			return err
		}

		var s any
		if err := decodeJSON(resp, &s); err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(s)
	},
}

var sessionsNewCmd = &cobra.Command{
	Use:   "new",
	Short: "Create a session and make it active",
	RunE: func(cmd *cobra.Command, args []string) error {
		mode, _ := cmd.Flags().GetString("mode")

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.post(cmd.Context(), "/sessions", map[string]string{"mode": mode})
		if err != nil {
			return err
		}

		var s sessionJSON
		if err := decodeJSON(resp, &s); err != nil {
			return err
		}

		printSuccess("Created %s session %s", s.Mode, s.ID[:8])
		return nil
	},
}

var sessionsCloseCmd = &cobra.Command{
	Use:   "close <id>",
	Short: "Close a session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.delete(cmd.Context(), "/sessions/"+args[0])
		if err != nil {
			return err
		}

		var result map[string]string
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		printSuccess("Closed session; active is now %s", result["active_id"][:8])
		return nil
	},
}

var sessionsActivateCmd = &cobra.Command{
	Use:   "activate <id>",
	Short: "Switch the active session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.post(cmd.Context(), "/sessions/"+args[0]+"/activate", nil)
		if err != nil {
			return err
		}

		var result map[string]string
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		printSuccess("Session %s is now active", args[0][:8])
		return nil
	},
}

func init() {
	sessionsNewCmd.Flags().String("mode", "search", "session mode: search or chat")
	sessionsCmd.AddCommand(sessionsListCmd)
	sessionsCmd.AddCommand(sessionsShowCmd)
	sessionsCmd.AddCommand(sessionsNewCmd)
	sessionsCmd.AddCommand(sessionsCloseCmd)
	sessionsCmd.AddCommand(sessionsActivateCmd)
}

// --- history ---

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Browse the research history log",
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent history records",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.get(cmd.Context(), fmt.Sprintf("/history?limit=%d", limit))
		if err != nil {
			return err
		}

		var records []struct {
			ID        string `json:"id"`
			CreatedAt string `json:"created_at"`
			Mode      string `json:"mode"`
			Category  string `json:"category"`
			Query     string `json:"query"`
			Status    string `json:"status"`
		}
		if err := decodeJSON(resp, &records); err != nil {
			return err
		}

		if len(records) == 0 {
			fmt.Println("No history records found.")
			return nil
		}

		for _, rec := range records {
			query := rec.Query
			if len(query) > 80 {
				query = query[:80] + "..."
			}
			fmt.Printf("%s  %s  %-6s  %-9s  %s\n",
				colorize(colorCyan, rec.ID[:8]),
				rec.CreatedAt,
				rec.Mode,
				rec.Category,
				query,
			)
		}
		return nil
	},
}

var historyDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a history record",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.delete(cmd.Context(), "/history/"+args[0])
		if err != nil {
			return err
		}

		var result map[string]string
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		printSuccess("Deleted record %s", args[0][:8])
		return nil
	},
}

func init() {
	historyListCmd.Flags().Int("limit", 20, "maximum number of records to list")
	historyCmd.AddCommand(historyListCmd)
	historyCmd.AddCommand(historyDeleteCmd)
}

// --- export ---

var exportCmd = &cobra.Command{
	Use:   "export <session-id>",
	Short: "Export a session as Markdown or JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		format, _ := cmd.Flags().GetString("format")
		output, _ := cmd.Flags().GetString("output")

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		path := "/sessions/" + args[0] + "/export?format=" + url.QueryEscape(format)
		resp, err := client.get(cmd.Context(), path)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 400 {
			var apiErr struct {
				Error struct {
					Message string `json:"message"`
				} `json:"error"`
			}
			if json.NewDecoder(resp.Body).Decode(&apiErr) == nil && apiErr.Error.Message != "" {
				printWarning("%s", apiErr.Error.Message)
				return fmt.Errorf("export failed")
			}
			return fmt.Errorf("server returned %d", resp.StatusCode)
		}

		var writer io.Writer = os.Stdout
		if output != "" {
			f, err := os.Create(output)
			if err != nil {
				return fmt.Errorf("creating output file: %w", err)
			}
			defer f.Close()
			writer = f
		}

		if _, err := io.Copy(writer, resp.Body); err != nil {
			return fmt.Errorf("writing export: %w", err)
		}
		if output != "" {
			printSuccess("Exported session to %s", output)
		}
		return nil
	},
}

func init() {
	exportCmd.Flags().String("format", "md", "export format: md or json")
	exportCmd.Flags().String("output", "", "output file path (default: stdout)")
}

// --- config ---

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or update configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		keys := config.ShowAll(cfg)
		for _, k := range keys {
			fmt.Printf("  %s = %s\n", colorize(colorBold, k.Key), k.Value)
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]

		if err := config.SetKey(key, value); err != nil {
			return err
		}

		printSuccess("Set %s = %s", key, value)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}

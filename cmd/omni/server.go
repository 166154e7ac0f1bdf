package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/omnisearch/omnisearch/internal/api"
	"github.com/omnisearch/omnisearch/internal/config"
	"github.com/omnisearch/omnisearch/internal/gemini"
	"github.com/omnisearch/omnisearch/internal/history"
	"github.com/omnisearch/omnisearch/internal/orchestrator"
	"github.com/omnisearch/omnisearch/internal/session"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the omnisearch server (foreground)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServer()
	},
}

func runServer() error {
	fmt.Fprintf(os.Stderr, "omni version %s\n", version)

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	// Initialize structured logging.
	logLevel := slog.LevelInfo
	if strings.EqualFold(cfg.Log.Level, "debug") {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Open the research history store.
	var hist history.Store
	switch cfg.Storage.Backend {
	case "postgres":
		hist, err = history.OpenPostgres(ctx, cfg.Storage.PostgresURL)
	case "sqlite":
		hist, err = history.OpenSQLite(cfg.Storage.DataDir)
	default:
		return fmt.Errorf("unknown storage backend %q (want sqlite or postgres)", cfg.Storage.Backend)
	}
	if err != nil {
		return fmt.Errorf("opening history store: %w", err)
	}
	defer func() {
		if err := hist.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "warning: closing history store: %v\n", err)
		}
	}()

	printStatus("Port", "%d", cfg.Server.Port)
	printStatus("Storage", "%s", cfg.Storage.Backend)
	printStatus("Model", "%s", cfg.Gemini.Model)

	store := session.NewStore(session.ModeSearch)
	geminiClient := gemini.NewClient(cfg.Gemini.APIKey, cfg.Gemini.Model)
	orch := orchestrator.New(store, geminiClient, hist)

	handler := api.NewHandler(api.Deps{
		Store:        store,
		Orchestrator: orch,
		History:      hist,
		Token:        cfg.Server.APIToken,
	})

	addr := fmt.Sprintf("127.0.0.1:%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: handler,
	}

	// MCP server over stdio for agent clients.
	mcpSrv := api.NewMCPServer(api.MCPDeps{
		Store:   store,
		Querier: geminiClient,
		History: hist,
	})
	stdioSrv := server.NewStdioServer(mcpSrv)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info("omnisearch listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		if err := stdioSrv.Listen(gctx, os.Stdin, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
			slog.Error("MCP stdio server error", "error", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		fmt.Fprintln(os.Stderr, "shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	err = g.Wait()

	// Let in-flight model calls finish so their completions are recorded.
	orch.Wait()

	return err
}

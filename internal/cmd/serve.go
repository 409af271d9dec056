package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/Kushall-07/Ai-tower/internal/server"
)

var (
	serveAddr      string
	serveRateLimit int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the control tower HTTP API",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "HTTP listen address (default from config)")
	serveCmd.Flags().IntVar(&serveRateLimit, "rate-limit", 10, "per-caller requests per second (0 disables)")
	rootCmd.AddCommand(serveCmd)
}

// parseAPIKeys returns a map of key -> caller from TOWER_API_KEYS
// (comma-separated; each entry key or key:caller).
func parseAPIKeys(env string) map[string]string {
	m := make(map[string]string)
	if env == "" {
		return m
	}
	for _, part := range strings.Split(env, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		caller := "default"
		if idx := strings.Index(part, ":"); idx > 0 {
			caller = strings.TrimSpace(part[idx+1:])
			part = strings.TrimSpace(part[:idx])
		}
		m[part] = caller
	}
	return m
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	t, err := buildTower(ctx)
	if err != nil {
		return err
	}
	defer t.Close()

	apiKeys := parseAPIKeys(os.Getenv("TOWER_API_KEYS"))
	if len(apiKeys) == 0 {
		log.Warn().Msg("TOWER_API_KEYS not set — API authentication disabled. Set for production.")
	}

	srv := server.NewServer(
		t.runner,
		t.store,
		t.policy,
		apiKeys,
		server.WithDatasets(t.datasets),
		server.WithCORSOrigins([]string{"*"}),
		server.WithRateLimit(serveRateLimit),
	)

	addr := serveAddr
	if addr == "" {
		addr = t.cfg.ListenAddr
	}
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      srv.Routes(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 2 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	log.Info().
		Str("addr", addr).
		Str("policy_version", t.policy.VersionTag).
		Str("model", t.cfg.LLMModel).
		Msg("tower_serve_started")

	errCh := make(chan error, 1)
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("shutdown_signal_received")
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	log.Info().Msg("server_stopped")
	return nil
}

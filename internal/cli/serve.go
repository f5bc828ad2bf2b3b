package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ppiankov/veritas/internal/api"
	"github.com/ppiankov/veritas/internal/pipeline"
	"github.com/spf13/cobra"
)

var (
	serveAddr       string
	shutdownTimeout time.Duration
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Long: `Serve exposes the analysis pipeline, the record feed and the
vote/moderation endpoints over HTTP.

Routes are mounted at the root and under /api/fact-check.

Example:
  veritas serve
  veritas serve --addr :8080
  VERITAS_STORE_DRIVER=postgres VERITAS_STORE_DSN=postgres://... veritas serve`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides server.addr)")
	serveCmd.Flags().DurationVar(&shutdownTimeout, "shutdown-timeout", 15*time.Second, "grace period for in-flight requests")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if serveAddr != "" {
		cfg.Server.Addr = serveAddr
	}
	logger := newLogger(true)

	if !verbose {
		gin.SetMode(gin.ReleaseMode)
	}
	if cfg.Auth.JWTSecret == "" {
		logger.Warn("no JWT secret configured; vote and status routes will reject every request")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	p, err := pipeline.NewFromConfig(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("build pipeline: %w", err)
	}
	defer func() {
		if err := p.Close(); err != nil {
			logger.Warn("close store", "error", err)
		}
	}()

	srv := api.NewServer(p, cfg.Server, cfg.Auth, logger)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return <-errCh
}

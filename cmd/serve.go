package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dotcommander/mbiscore/internal/batch"
	"github.com/dotcommander/mbiscore/internal/config"
	"github.com/dotcommander/mbiscore/internal/server"
	"github.com/dotcommander/mbiscore/internal/tabular"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Expose the scoring engine over HTTP",
	Long: `Start a stateless HTTP API that scores single respondents and batches.

Endpoints:
  GET  /healthz
  GET  /v1/instrument
  POST /v1/score    {"id": "...", "responses": [22 answers]}
  POST /v1/batch    JSON rows, text/csv, xlsx or multipart "file" upload
                    (?export=csv|xlsx returns a download)`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", ":8080", "Listen address")
	viper.BindPFlag("serve.addr", serveCmd.Flags().Lookup("addr"))
}

func runServe(ctx context.Context) error {
	cfg, err := config.LoadConfig(rootPath)
	if err != nil {
		return fmt.Errorf("error loading configuration: %w", err)
	}

	engine, err := loadEngine()
	if err != nil {
		return err
	}

	logger := slog.Default()
	handler := server.NewRouter(engine, batch.NewProcessor(engine, cfg.EffectiveConcurrency()), server.Options{
		AllowedOrigins: cfg.Serve.AllowedOrigins,
		MaxUploadBytes: int64(cfg.Serve.MaxUploadMB) << 20,
		Tabular:        tabular.Options{IDColumns: cfg.Batch.IDColumns, Sheet: cfg.Batch.Sheet},
		Logger:         logger,
	})

	srv := &http.Server{
		Addr:              cfg.Serve.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", srv.Addr, "instrument", engine.Instrument().String())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("error shutting down: %w", err)
	}
	return nil
}

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/iwvelando/diet-optimizer/internal/metrics"
	"github.com/iwvelando/diet-optimizer/internal/server"
	"github.com/iwvelando/diet-optimizer/pkg/constants"
)

var serverConfigLocation string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the optimization API over HTTP",
	RunE:  serve,
}

func init() {
	serveCmd.Flags().StringVar(&serverConfigLocation, "server-config", constants.DefaultServerConfigFile, "path to server configuration file")
	rootCmd.AddCommand(serveCmd)
}

func serve(cmd *cobra.Command, _ []string) error {
	cfg, err := server.LoadConfig(serverConfigLocation)
	if err != nil {
		return err
	}

	logger, err := initializeLogger(cfg.Logging, logLevel)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	handler := server.NewHandler(logger, cfg.UploadSizeBytes(), version,
		server.WithRecorder(metrics.New()),
		server.WithRequestTimeout(cfg.RequestTimeoutDuration()),
	)
	srv := &http.Server{
		Addr:              cfg.Address,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening",
			zap.String("op", "main.serve"),
			zap.String("address", cfg.Address),
			zap.Int64("maxUploadSize", cfg.UploadSizeBytes()),
		)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	logger.Info("server shutting down", zap.String("op", "main.serve"))
	return srv.Shutdown(shutdownCtx)
}

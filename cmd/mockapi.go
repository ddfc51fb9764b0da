package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/zjrosen/barangay/internal/config"
	"github.com/zjrosen/barangay/internal/log"
	"github.com/zjrosen/barangay/internal/mockapi"
)

var (
	mockAddr    string
	mockToken   string
	mockLatency time.Duration
	mockNoSeed  bool
)

var mockAPICmd = &cobra.Command{
	Use:   "mock-api",
	Short: "Run an in-memory barangay API for local development",
	Long: `Run an in-memory barangay API seeded with sample residents.

Point the console at it with --api-url http://localhost:8080 (the default).
Prometheus metrics are served on /metrics.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		log.InitWriter(os.Stderr)
		log.SetMinLevel(log.ParseLevel(cfg.LogLevel))

		addr := mockAddr
		if addr == "" {
			addr = cfg.MockAPI.Addr
		}
		if addr == "" {
			addr = config.Defaults().MockAPI.Addr
		}
		srv := &http.Server{
			Addr:              addr,
			Handler:           mockapi.New(mockapi.Options{Token: mockToken, Latency: mockLatency, Seed: !mockNoSeed}),
			ReadHeaderTimeout: 5 * time.Second,
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		errCh := make(chan error, 1)
		go func() { errCh <- srv.ListenAndServe() }()
		log.Info(log.CatMock, "Mock API listening", "addr", addr)
		fmt.Fprintf(cmd.OutOrStdout(), "mock barangay API listening on %s\n", addr)

		select {
		case err := <-errCh:
			if !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("serving mock api: %w", err)
			}
			return nil
		case <-ctx.Done():
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		log.Info(log.CatMock, "Shutting down mock API")
		return srv.Shutdown(shutdownCtx)
	},
}

func init() {
	mockAPICmd.Flags().StringVar(&mockAddr, "addr", "", "listen address (default from mock_api.addr)")
	mockAPICmd.Flags().StringVar(&mockToken, "token", "", "require this bearer token")
	mockAPICmd.Flags().DurationVar(&mockLatency, "latency", 0, "artificial delay added to every API request")
	mockAPICmd.Flags().BoolVar(&mockNoSeed, "no-seed", false, "start without sample residents")
	rootCmd.AddCommand(mockAPICmd)
}

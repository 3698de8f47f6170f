package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"intrinseco/pkg/api/chunks"
	apiconfig "intrinseco/pkg/api/config"
	"intrinseco/pkg/core/logging"
	"intrinseco/pkg/core/store"
	"intrinseco/pkg/core/utils"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Long: `Serves normalization, statement location, extraction, the stored
tickers, provider selection and Prometheus metrics over HTTP.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from configuration)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	log := logging.Named("server")

	d, err := newDispatcher()
	if err != nil {
		return err
	}
	defer d.Close()

	mgr := newManager()
	extractor, err := newExtractor(mgr)
	if err != nil {
		return err
	}
	repo, err := openRepository(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	mux := http.NewServeMux()
	h := chunks.NewHandler(newLoader(), d, extractor, repo)
	h.MinHits = cfg.MinHits
	h.Dump = utils.NewDumpWriter(cfg.DumpDir)
	h.Register(mux)
	apiconfig.NewHandler(mgr).Register(mux)

	addr := serveAddr
	if addr == "" {
		addr = cfg.Addr
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("API server starting", zap.String("addr", addr), zap.String("provider", mgr.GetActiveProvider()))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

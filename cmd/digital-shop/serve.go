package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Stas733/digital-shop/internal/delivery"
	"github.com/Stas733/digital-shop/internal/metrics"
	"github.com/Stas733/digital-shop/internal/storage"
	"github.com/Stas733/digital-shop/internal/web"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the shop web server",
	Long: `Start the digital-shop web server.

Serves the delivery API, the token download endpoint and the admin
item API. Configuration comes from environment variables (SHOP_ADDR,
SHOP_DB, SHOP_FILES_DIR, SHOP_BASE_URL).`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides SHOP_ADDR)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := LoadConfig()
	if serveAddr != "" {
		cfg.Addr = serveAddr
	}

	if err := os.MkdirAll(cfg.FilesDir, 0755); err != nil {
		return fmt.Errorf("failed to create files directory: %w", err)
	}

	store, err := storage.NewStore(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer store.Close()

	metrics.Register()

	resolver := delivery.NewResolver(store, store, cfg.BaseURL)
	server := web.NewServer(store, store, resolver, cfg.FilesDir)

	httpServer := &http.Server{
		Addr:         cfg.Addr,
		Handler:      server.Router(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 5 * time.Minute, // large artifact downloads
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.Printf("digital-shop listening on %s", cfg.Addr)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case <-ctx.Done():
		log.Println("shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown failed: %w", err)
		}
	}

	return nil
}

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/barekit/givingfaq/pkg/server"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the FAQ API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			kb, err := loadKnowledgeBase(ctx, cfg)
			if err != nil {
				return err
			}
			slog.Info("knowledge base loaded", "entries", kb.Len(), "model", kb.Model(), "built_at", kb.BuiltAt())

			gin.SetMode(cfg.Server.Mode)
			srv := &http.Server{
				Addr:              cfg.Server.Addr,
				Handler:           server.New(kb, newResolver(cfg, kb), cfg.Debug).Handler(),
				ReadHeaderTimeout: 10 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				slog.Info("listening", "addr", cfg.Server.Addr)
				errCh <- srv.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				if !errors.Is(err, http.ErrServerClosed) {
					return fmt.Errorf("serve: %w", err)
				}
				return nil
			case <-ctx.Done():
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}
}

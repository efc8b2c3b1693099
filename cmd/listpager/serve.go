package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/Sternrassler/listpager/internal/host"
	"github.com/Sternrassler/listpager/pkg/feeds"
	"github.com/Sternrassler/listpager/pkg/session"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 5 * time.Second

func newServeCmd(root *rootOptions) *cobra.Command {
	var (
		flags  selectionFlags
		listen string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run all screens as a headless HTTP host",
		Long: `Serve creates one engine per screen and exposes visibility, intents and
snapshots over HTTP. A screen loads its first page when it is first made
visible.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := root.setup(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			if listen == "" {
				listen = a.cfg.Server.Listen
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return serve(ctx, a, listen, flags.sel)
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVar(&listen, "listen", "", "Listen address (default from config)")
	return cmd
}

// newHost registers one engine per screen, built with the shared selection.
// A session invalidation hides every screen until the session is reset.
func newHost(a *app, sel feeds.Selection) (*host.Host, error) {
	h := host.New(a.logger, a.session)
	for _, name := range feeds.Names() {
		ctrl, err := feeds.NewController(name, a.deps(), sel)
		if err != nil {
			h.Close()
			return nil, err
		}
		if err := h.Register(ctrl); err != nil {
			ctrl.Close()
			h.Close()
			return nil, err
		}
	}

	a.session.OnInvalidated(func(e session.Event) {
		a.logger.Warn().
			Str("source", e.Source).
			Bool("remote", e.Remote).
			Msg("Session invalidated, hiding all screens")
		h.HideAll()
	})
	return h, nil
}

func serve(ctx context.Context, a *app, listen string, sel feeds.Selection) error {
	h, err := newHost(a, sel)
	if err != nil {
		return err
	}
	defer h.Close()

	if a.redis != nil {
		go func() {
			if err := a.session.Listen(ctx); err != nil {
				a.logger.Error().Err(err).Msg("Session listener stopped")
			}
		}()
	}

	srv := &http.Server{
		Addr:              listen,
		Handler:           host.NewHandler(h),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		a.logger.Info().
			Str("addr", listen).
			Str("api", a.cfg.API.BaseURL).
			Strs("screens", h.Names()).
			Msg("Starting screen host")
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server: %w", err)

	case <-ctx.Done():
		a.logger.Info().Msg("Shutting down screen host")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			a.logger.Warn().Err(err).Dur("timeout", shutdownTimeout).Msg("Graceful shutdown did not complete")
			return srv.Close()
		}
		a.logger.Info().Msg("Screen host stopped")
		return nil
	}
}

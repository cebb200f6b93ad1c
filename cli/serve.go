package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/xiaoyuanzhu-com/flowtrack/api"
	"github.com/xiaoyuanzhu-com/flowtrack/log"
	"github.com/xiaoyuanzhu-com/flowtrack/mirror"
	"github.com/xiaoyuanzhu-com/flowtrack/server"
	"github.com/xiaoyuanzhu-com/flowtrack/vendors"
)

const shutdownTimeout = 15 * time.Second

func newServeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and watch the repository",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context(), a)
		},
	}
}

func serve(ctx context.Context, a *app) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if a.cfg.LogLevel != "" {
		log.SetLevel(a.cfg.LogLevel)
	}

	client, err := vendors.NewMirrorClient(ctx, a.cfg)
	if err != nil {
		log.Warn().Err(err).Str("provider", a.cfg.MirrorProvider).Msg("mirror unavailable, sync runs will fail")
		client = mirror.Unavailable{Err: err}
	}

	srv, err := server.New(server.NewConfig(a.cfg, client))
	if err != nil {
		return err
	}
	api.SetupRoutes(srv.Router(), api.NewHandlers(srv))

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	var runErr error
	select {
	case <-quit:
	case runErr = <-errCh:
		log.Error().Err(runErr).Msg("server error")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil && runErr == nil {
		runErr = err
	}

	log.Info().Msg("server stopped")
	return runErr
}

package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"graphd/internal/config"
	"graphd/internal/httpapi"
)

func newServeCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and serve the graph editor",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			svc, closeDB, err := c.openService(ctx)
			if err != nil {
				return err
			}
			defer closeDB()

			app := httpapi.NewApp(svc, c.logger, httpOptions(c.cfg.Server, c.cfg.Auth))
			srv := &http.Server{
				Addr:         c.cfg.Server.Addr,
				Handler:      app.Handler(),
				ReadTimeout:  c.cfg.Server.ReadTimeout,
				WriteTimeout: c.cfg.Server.WriteTimeout,
			}
			return runServer(ctx, srv, c.cfg.Server, c.logger)
		},
	}
	cmd.Flags().String("addr", "", "listen address (overrides server.addr)")
	cmd.Flags().String("static", "", "directory of the built graph editor (overrides server.static_dir)")
	_ = c.v.BindPFlag("server.addr", cmd.Flags().Lookup("addr"))
	_ = c.v.BindPFlag("server.static_dir", cmd.Flags().Lookup("static"))
	return cmd
}

func httpOptions(s config.ServerConfig, a config.AuthConfig) httpapi.Options {
	opts := httpapi.Options{
		AllowedOrigin: s.CORSAllowedOrigin,
		RateLimit:     s.RateLimit,
		RateBurst:     s.RateBurst,
		StaticDir:     s.StaticDir,
	}
	if a.JWTSecret != "" {
		opts.JWTSecret = []byte(a.JWTSecret)
	}
	return opts
}

// runServer serves until ctx is cancelled by a signal, then shuts down within the
// configured timeout.
func runServer(ctx context.Context, srv *http.Server, cfg config.ServerConfig, logger *zap.Logger) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("Listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("Bye")
	return nil
}

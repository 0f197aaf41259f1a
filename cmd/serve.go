package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v3"

	"resolvd/internal/ratelimit"
	"resolvd/internal/resolver"
	"resolvd/internal/server"
	"resolvd/internal/shared"
)

// Serve runs the HTTP resolution service until interrupted.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	r.reloadConfig(cmd.String("config"))

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cache, db, err := r.openCache()
	if err != nil {
		r.logger.Warn("match cache unavailable, serving without it", "error", err)
		cache = nil
	} else {
		defer db.Close()
	}

	store := ratelimit.NewStore(ratelimit.Config{
		Capacity:      r.config.RateLimit.Capacity,
		Window:        shared.Millis(r.config.RateLimit.WindowMS),
		SweepInterval: shared.Millis(r.config.RateLimit.SweepIntervalMS),
		MaxIdleAge:    shared.Millis(r.config.RateLimit.MaxIdleMS),
	}, r.logger)
	store.Start(ctx)
	defer store.Stop()

	factory := func(ctx context.Context, token string) (*resolver.Engine, error) {
		var c resolver.Cache
		if cache != nil {
			c = cache
		}
		return r.buildEngine(ctx, token, c)
	}

	handler := server.NewResolveHandler(factory, r.resolveOpts(), r.logger)

	router := server.NewBasicRouter()
	router.Use(server.Logging(r.logger), server.RateLimit(store))
	router.Handler(handler)
	router.Handle("GET", "/health", http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	}))

	serverAddr := fmt.Sprintf("%s:%d", r.config.Server.Host, r.config.Server.Port)
	httpServer := &http.Server{
		Addr:    serverAddr,
		Handler: router,
	}

	serverErrors := make(chan error, 1)
	go func() {
		r.logger.Infof("starting resolution server at %v", serverAddr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrors <- err
		}
	}()

	r.writePlain("→ Listening on http://%s\n", serverAddr)

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	r.logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		r.logger.Warn("error shutting down server", "error", err)
	}

	return nil
}

func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the HTTP resolution service",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
				Value:   "config.toml",
			},
		},
		Action: r.Serve,
	}
}

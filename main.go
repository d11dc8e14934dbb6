package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	v1 "github.com/va6996/travelassist/apis/v1"
	"github.com/va6996/travelassist/bootstrap"
	"github.com/va6996/travelassist/config"
	"github.com/va6996/travelassist/log"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
)

func main() {
	// 0. Load Config
	cfg, err := config.Load()
	if err != nil {
		log.Init("info")
		log.Fatalf(context.Background(), "Failed to load config: %v", err)
	}
	log.Init(cfg.LogLevel)

	// Setup signal handling for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 1. Init App Components using Bootstrap
	app, err := bootstrap.Setup(ctx, cfg)
	if err != nil {
		log.Fatalf(context.Background(), "Setup failed: %v", err)
	}
	defer app.Close()

	if app.Cache != nil {
		go sweepCache(ctx, app)
	}

	// 2. Start API Server
	server := v1.NewServer(app.TravelAgent, cfg.Server.AllowedOrigins)

	// Use h2c for HTTP/2 without TLS (common for dev and internal services)
	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           h2c.NewHandler(server.Routes(), &http2.Server{}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		log.Info(context.Background(), "Shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Errorf(context.Background(), "Shutdown failed: %v", err)
		}
	}()

	log.Infof(context.Background(), "Starting server on port %s", cfg.Server.Port)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf(context.Background(), "Server failed: %v", err)
	}
}

// sweepCache drops expired SerpApi responses once per TTL.
func sweepCache(ctx context.Context, app *bootstrap.App) {
	interval := app.Config.Cache.TTL
	if interval <= 0 {
		interval = 15 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n, err := app.Cache.Cleanup(ctx); err != nil {
				log.Warnf(ctx, "Cache cleanup failed: %v", err)
			} else if n > 0 {
				log.Debugf(ctx, "Removed %d expired cache entries", n)
			}
		}
	}
}

// Package app assembles the server from its parts: configuration, routing,
// middleware, metrics and the connection loop, plus signal-driven shutdown.
package app

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/searchktools/stream-server/config"
	"github.com/searchktools/stream-server/core"
	"github.com/searchktools/stream-server/core/middleware"
	"github.com/searchktools/stream-server/core/observability"
	"github.com/searchktools/stream-server/core/router"
)

// shutdownGrace is how long in-flight requests get to finish on SIGTERM.
const shutdownGrace = 10 * time.Second

// App is one configured server instance.
type App struct {
	cfg     *config.Config
	mux     *router.ServeMux
	metrics *observability.Metrics
	srv     *core.Server
}

// New creates an application. Routes are registered on Mux before Run.
func New(cfg *config.Config) *App {
	return &App{
		cfg:     cfg,
		mux:     router.NewServeMux(),
		metrics: observability.NewMetrics(),
	}
}

// Mux returns the route registry.
func (a *App) Mux() *router.ServeMux {
	return a.mux
}

// Metrics returns the metrics collectors for custom instrumentation.
func (a *App) Metrics() *observability.Metrics {
	return a.metrics
}

// Run mounts the built-in endpoints, wraps the mux in the middleware stack
// and serves until a termination signal arrives.
func (a *App) Run() error {
	if err := a.mux.Handle("/metrics", a.metrics); err != nil {
		return err
	}

	mws := []middleware.Middleware{
		middleware.Recovery(),
		a.metrics.Instrument(),
		middleware.RequestID(),
	}
	if !a.cfg.IsProduction() {
		mws = append(mws, middleware.Logger())
	}
	if a.cfg.RateLimit > 0 {
		mws = append(mws, middleware.RateLimiter(a.cfg.RateLimit))
	}

	// CORS sits outermost so preflights are answered before anything else
	// sees them.
	handler := router.NewCorsMux(middleware.Chain(a.mux, mws...), a.cfg.CrossDomain)

	a.srv = core.NewServer(core.ServerOptions{
		Addr:           a.cfg.Listen,
		Handler:        handler,
		MaxConnections: a.cfg.MaxConnections,
		MaxHeaderBytes: a.cfg.MaxHeaderBytes,
		IdleTimeout:    a.cfg.IdleTimeout,
		WriteTimeout:   a.cfg.WriteTimeout,
		Metrics:        a.metrics,
	})

	go a.awaitSignal()

	log.Printf("🎬 Stream server starting on %s [%s]", a.cfg.Listen, a.cfg.Env)
	return a.srv.ListenAndServe()
}

func (a *App) awaitSignal() {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	sig := <-quit
	log.Printf("🛑 Signal received: %v, draining connections", sig)

	ctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := a.srv.Shutdown(ctx); err != nil {
		log.Printf("⚠️ Shutdown incomplete: %v", err)
	}
}

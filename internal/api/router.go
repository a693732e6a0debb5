// Package api exposes the evaluation service over HTTP.
package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/metahkg/metahkg-redirect/internal/model"
)

// URLEvaluator produces a Verdict for a raw URL.
type URLEvaluator interface {
	Evaluate(ctx context.Context, rawURL string) (*model.Verdict, error)
}

// Admitter counts requests per client and returns the count seen so far in
// the current window.
type Admitter interface {
	Admit(ctx context.Context, clientID string) int
}

// ReadyChecker reports whether the service can answer evaluations.
type ReadyChecker interface {
	Ready() bool
}

// Config wires the router's collaborators.
type Config struct {
	Evaluator    URLEvaluator
	Limiter      Admitter
	Ready        ReadyChecker
	RateLimitMax int
	TrustProxy   bool
	Logger       *slog.Logger
}

// NewRouter builds the gin engine with all routes and middleware installed.
func NewRouter(cfg Config) *gin.Engine {
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}

	r := gin.New()
	r.Use(gin.Recovery(), RequestID(), RequestLogger(log))
	if !cfg.TrustProxy {
		_ = r.SetTrustedProxies(nil)
	}

	h := &handlers{eval: cfg.Evaluator, ready: cfg.Ready, log: log}

	r.GET("/healthz", h.Health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/api/info", RateLimit(cfg.Limiter, cfg.RateLimitMax), h.Info)

	return r
}

// Run serves the engine until ctx is cancelled, then shuts down gracefully.
func Run(ctx context.Context, addr string, engine *gin.Engine, log *slog.Logger) error {
	srv := &http.Server{Addr: addr, Handler: engine}

	errc := make(chan error, 1)
	go func() {
		errc <- srv.ListenAndServe()
	}()
	log.Info("listening", "addr", addr)

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		log.Info("shutting down")
		return srv.Shutdown(context.Background())
	}
}

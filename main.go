// metahkg-redirect evaluates the safety of URLs: reachability, redirect
// resolution, tracking-parameter cleanup, Safe Browsing and URLHaus threat
// lookups, with verdicts cached in Redis.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/metahkg/metahkg-redirect/internal/api"
	"github.com/metahkg/metahkg-redirect/internal/cache"
	"github.com/metahkg/metahkg-redirect/internal/config"
	"github.com/metahkg/metahkg-redirect/internal/evaluate"
	"github.com/metahkg/metahkg-redirect/internal/feed"
	"github.com/metahkg/metahkg-redirect/internal/hostguard"
	"github.com/metahkg/metahkg-redirect/internal/probe"
	"github.com/metahkg/metahkg-redirect/internal/ratelimit"
	"github.com/metahkg/metahkg-redirect/internal/safebrowsing"
	"github.com/metahkg/metahkg-redirect/internal/tidy"
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(log)

	if err := run(log); err != nil {
		log.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run(log *slog.Logger) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rdb := redis.NewClient(&redis.Options{
		Addr:        cfg.RedisAddr(),
		Password:    cfg.RedisPassword,
		DialTimeout: 500 * time.Millisecond,
		MaxRetries:  1,
	})
	defer rdb.Close()
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Warn("redis unreachable at startup", "addr", cfg.RedisAddr(), "error", err)
	}

	guard := hostguard.New(nil, log)

	feeds := feed.NewStore(feed.Config{
		URLFeedURL:  cfg.URLFeedURL,
		HostFeedURL: cfg.HostFeedURL,
		DataDir:     cfg.FeedDataDir,
		Interval:    cfg.FeedRefreshInterval,
		Logger:      log,
	})
	feeds.RestoreSnapshot()
	go feeds.Run(ctx)

	evaluator := evaluate.New(evaluate.Deps{
		Guard:   guard,
		Prober:  probe.New(guard, cfg.ProbeTimeout, log),
		Threats: safebrowsing.New(cfg.SafebrowsingAPIKey, cfg.SafebrowsingEndpoint),
		Feeds:   feeds,
		Cache:   cache.New(rdb, config.KeyPrefix, cfg.CacheTTL, log),
		Clean:   tidy.Clean,
		Logger:  log,
	})

	limiter := ratelimit.New(rdb, config.KeyPrefix, cfg.RateLimitWindow, cfg.RateLimitMax, log)

	gin.SetMode(gin.ReleaseMode)
	engine := api.NewRouter(api.Config{
		Evaluator:    evaluator,
		Limiter:      limiter,
		Ready:        feeds,
		RateLimitMax: cfg.RateLimitMax,
		TrustProxy:   cfg.TrustProxy,
		Logger:       log,
	})

	if err := api.Run(ctx, cfg.ListenAddr, engine, log); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

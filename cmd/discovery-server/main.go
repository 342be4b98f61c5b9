package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"restaurant-discovery/internal/api"
	"restaurant-discovery/internal/common/config"
	"restaurant-discovery/internal/common/database"
	"restaurant-discovery/internal/common/httpclient"
	"restaurant-discovery/internal/common/logger"
	"restaurant-discovery/internal/discovery"
	"restaurant-discovery/internal/place"
	"restaurant-discovery/internal/provider"
	"restaurant-discovery/internal/provider/foursquare"
	"restaurant-discovery/internal/provider/googleplaces"
	"restaurant-discovery/internal/provider/osm"
	"restaurant-discovery/internal/provider/static"
	"restaurant-discovery/internal/reconcile"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		zapLog := logger.New("info", "console")
		zapLog.Fatal("failed to load configuration", zap.Error(err))
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("starting discovery server",
		zap.String("address", cfg.Server.Address),
		zap.Strings("providerPriority", cfg.Providers.Priority),
	)

	providerClient := httpclient.New(cfg.Providers.Timeout())
	staticAdapter := static.New()

	adapters := buildChain(cfg, providerClient, log)

	orchestrator := discovery.New(
		adapters,
		staticAdapter,
		cfg.Providers.Timeout(),
		cfg.Providers.MaxResults,
		log,
	)

	cache, cleanup := buildCache(cfg, zapLog)
	defer cleanup()

	reconciler := reconcile.New(
		cfg.Backend.BaseURL,
		httpclient.New(cfg.Backend.Timeout()),
		cache,
		log,
	)

	if cfg.App.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())

	handler := api.NewDiscoveryHandler(orchestrator, reconciler, cfg.Providers.DefaultRadius, log)
	handler.Register(router)

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET(cfg.Server.MetricsPath, gin.WrapH(promhttp.Handler()))

	srv := &http.Server{
		Addr:    cfg.Server.Address,
		Handler: router,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLog.Fatal("server error", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zapLog.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		zapLog.Error("shutdown error", zap.Error(err))
	}
}

// buildChain assembles the ordered provider chain from configuration. The
// static provider can appear in the chain like any other; it additionally
// serves as the orchestrator's unconditional fallback.
func buildChain(cfg *config.Config, client *httpclient.Client, log logger.Logger) []provider.Adapter {
	byName := map[string]provider.Adapter{
		string(place.ProviderOSM):        osm.New(cfg.Providers.OSM, client, log),
		string(place.ProviderFoursquare): foursquare.New(cfg.Providers.Foursquare, client, log),
		string(place.ProviderGoogle):     googleplaces.New(cfg.Providers.Google, client, log),
		string(place.ProviderStatic):     static.New(),
	}

	adapters := make([]provider.Adapter, 0, len(cfg.Providers.Priority))
	for _, name := range cfg.Providers.Priority {
		if adapter, ok := byName[name]; ok {
			adapters = append(adapters, adapter)
		}
	}
	return adapters
}

func buildCache(cfg *config.Config, zapLog *zap.Logger) (reconcile.Cache, func()) {
	if cfg.Cache.Backend != "redis" {
		return reconcile.NewMemoryCache(), func() {}
	}

	redisClient, err := database.NewRedis(cfg.Database.Redis)
	if err != nil {
		zapLog.Warn("redis cache unavailable, using memory cache", zap.Error(err))
		return reconcile.NewMemoryCache(), func() {}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := redisClient.Ping(ctx); err != nil {
		zapLog.Warn("redis unreachable, using memory cache", zap.Error(err))
		return reconcile.NewMemoryCache(), func() {}
	}

	// Resolutions are immutable for their lifetime; the TTL only bounds
	// memory in long-lived shared deployments.
	cache := reconcile.NewRedisCache(redisClient.Client, 24*time.Hour)
	return cache, func() { _ = redisClient.Close() }
}

package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"restaurant-discovery/internal/api"
	"restaurant-discovery/internal/common/config"
	"restaurant-discovery/internal/common/database"
	"restaurant-discovery/internal/common/logger"
	"restaurant-discovery/internal/restaurantstore"
)

// restaurant-server is the reference persistence collaborator: it owns the
// restaurants table and serves the idempotent get-or-create endpoint the
// discovery server's reconciliation client talks to.
func main() {
	cfg, err := config.Load()
	if err != nil {
		zapLog := logger.New("info", "console")
		zapLog.Fatal("failed to load configuration", zap.Error(err))
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	pg, err := database.NewPostgres(cfg.Database.Postgres)
	if err != nil {
		zapLog.Fatal("failed to open postgres", zap.Error(err))
	}
	defer pg.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := pg.Ping(ctx); err != nil {
		cancel()
		zapLog.Fatal("postgres unreachable", zap.Error(err))
	}

	store := restaurantstore.New(pg.DB)
	if err := store.EnsureSchema(ctx); err != nil {
		cancel()
		zapLog.Fatal("failed to ensure schema", zap.Error(err))
	}
	cancel()

	if cfg.App.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())

	handler, err := api.NewRestaurantHandler(store, log)
	if err != nil {
		zapLog.Fatal("failed to build handler", zap.Error(err))
	}
	handler.Register(router)

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	addr := os.Getenv("RESTAURANT_SERVER_ADDRESS")
	if addr == "" {
		addr = ":8081"
	}

	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	zapLog.Info("starting restaurant server", zap.String("address", addr))
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLog.Fatal("server error", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zapLog.Info("shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("shutdown error", zap.Error(err))
	}
}

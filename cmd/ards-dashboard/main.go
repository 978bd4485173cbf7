package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/sccm-datasci/ards-platform/pkg/common/config"
	"github.com/sccm-datasci/ards-platform/pkg/common/database"
	"github.com/sccm-datasci/ards-platform/pkg/common/logger"
	"github.com/sccm-datasci/ards-platform/pkg/dashboard"
	"github.com/sccm-datasci/ards-platform/pkg/pipeline"
	"github.com/sccm-datasci/ards-platform/pkg/source"
)

func main() {
	logger.Init()
	cfg := config.Load()

	db, err := database.GetPostgres(cfg)
	if err != nil {
		logger.Log.WithError(err).Fatal("Failed to connect to postgres")
	}
	defer database.ClosePostgres()

	store := pipeline.NewStore(db)
	if err := store.AutoMigrate(); err != nil {
		logger.Log.WithError(err).Fatal("Failed to migrate analysis tables")
	}

	src := source.NewPostgres(db, cfg.SourceName)
	cache := database.GetRedis(cfg)
	service := dashboard.NewService(store, src, cache, cfg.TrajectoryTTL)
	handler := dashboard.NewHTTPHandler(service, cfg.SourceName)

	router := mux.NewRouter()
	router.Use(dashboard.Recovery)
	router.Use(dashboard.Logging)
	handler.Register(router)
	router.PathPrefix("/").Handler(http.FileServer(http.Dir("web")))

	server := &http.Server{
		Addr:    fmt.Sprintf("%s:%s", cfg.ServerHost, cfg.ServerPort),
		Handler: router,
	}

	go func() {
		logger.Log.WithFields(map[string]interface{}{
			"host": cfg.ServerHost,
			"port": cfg.ServerPort,
		}).Info("Dashboard started")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.WithError(err).Fatal("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Log.Info("Shutting down dashboard...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Log.WithError(err).Error("Server forced to shutdown")
	}

	database.CloseRedis()
	logger.Log.Info("Dashboard stopped")
}

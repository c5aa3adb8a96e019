package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"grocery-recommender/internal/api"
	"grocery-recommender/internal/core/ai/cache"
	"grocery-recommender/internal/core/ai/queue"
	"grocery-recommender/internal/core/ai/service"
	"grocery-recommender/internal/core/catalog"
	"grocery-recommender/internal/infrastructure/config"
	"grocery-recommender/internal/pkg/common"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	// 載入 .env
	if err := godotenv.Load(); err != nil {
		fmt.Println("Warning: .env file not found")
	}

	// 載入設定
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 初始化 logger（需在載入 config 後）
	if err := common.InitLogger(cfg.LogLevel); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer common.Sync()

	common.LogInfo("載入設定",
		zap.String("ai_provider", cfg.AI.Provider),
		zap.String("catalog_dir", cfg.Catalog.Dir),
		zap.Strings("stores", cfg.Catalog.Stores),
		zap.String("pricing_mode", cfg.Pricing.Mode),
	)

	// 載入商店價格資料集，任何一家失敗即無法服務
	catalogs, err := catalog.LoadDir(cfg.Catalog.Dir, cfg.Catalog.Stores)
	if err != nil {
		common.LogFatal("Failed to load store catalogs", zap.Error(err))
	}
	common.LogInfo("商店資料集載入完成", zap.Any("records", catalogs.Sizes()))

	p, err := service.NewProvider(cfg)
	if err != nil {
		common.LogFatal("Failed to create AI provider", zap.Error(err))
	}

	// 初始化快取
	cacheManager := cache.NewManager(cfg)
	defer cacheManager.Close()

	initCtx, initCancel := context.WithTimeout(context.Background(), 5*time.Second)
	redisCache, err := cache.NewService(initCtx, &cfg.Redis)
	initCancel()
	if err != nil {
		common.LogFatal("Failed to connect to redis", zap.Error(err))
	}
	defer redisCache.Close()

	requestQueue := queue.NewManager(cfg)
	defer requestQueue.Close()

	aiService, err := service.NewService(cfg, p, cacheManager, redisCache, requestQueue)
	if err != nil {
		common.LogFatal("Failed to create AI service", zap.Error(err))
	}
	defer aiService.Close()

	// 設置路由
	router, err := api.SetupRouter(cfg, api.Dependencies{
		Catalogs: catalogs,
		Backend:  aiService,
		Cache:    cacheManager,
		Queue:    requestQueue,
	})
	if err != nil {
		common.LogFatal("Failed to setup router", zap.Error(err))
	}

	// 設置 HTTP 服務器
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// 啟動服務器
	go func() {
		common.LogInfo("啟動應用",
			zap.String("version", cfg.App.Version),
			zap.String("env", cfg.App.Env),
			zap.Bool("debug", cfg.App.Debug),
			zap.Int("port", cfg.Server.Port),
		)

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			common.LogFatal("Failed to start server", zap.Error(err))
		}
	}()

	// 等待中斷信號
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	common.LogInfo("Shutting down server...")

	// 設置關閉超時
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		common.LogError("Server forced to shutdown", zap.Error(err))
	}

	common.LogInfo("Server exited")
}

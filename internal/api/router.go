package api

import (
	"errors"
	"net/http"
	"time"

	"grocery-recommender/internal/api/handlers/grocery"
	"grocery-recommender/internal/api/handlers/health"
	"grocery-recommender/internal/api/middleware"
	"grocery-recommender/internal/core/ai/cache"
	"grocery-recommender/internal/core/ai/queue"
	"grocery-recommender/internal/core/catalog"
	groceryService "grocery-recommender/internal/core/grocery"
	"grocery-recommender/internal/core/oracle"
	"grocery-recommender/internal/infrastructure/config"
	"grocery-recommender/internal/pkg/common"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Dependencies 路由所需的服務
type Dependencies struct {
	Catalogs *catalog.Set
	Backend  oracle.Backend
	Cache    *cache.CacheManager
	Queue    *queue.Manager
}

// SetupRouter 設置路由
func SetupRouter(cfg *config.Config, deps Dependencies) (*gin.Engine, error) {
	if deps.Catalogs == nil {
		return nil, errors.New("catalogs are required")
	}
	if deps.Backend == nil {
		return nil, errors.New("oracle backend is required")
	}

	common.LogInfo("Starting router setup",
		zap.Bool("debug_mode", cfg.App.Debug),
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Env),
	)

	// 設置 gin 模式
	if !cfg.App.Debug && gin.Mode() != gin.TestMode {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// 註冊基礎中間件
	router.Use(middleware.Recovery())
	router.Use(middleware.Logger())
	router.Use(requestid.New())

	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-ID"},
		ExposeHeaders:    []string{"Content-Length", "X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))

	if cfg.Server.MaxBodyBytes > 0 {
		router.Use(middleware.BodySizeLimit(cfg.Server.MaxBodyBytes))
	}

	// 初始化服務
	base := groceryService.NewService(oracle.New(deps.Backend), deps.Catalogs, cfg.Pricing)
	priceSvc := groceryService.NewPriceService(base)
	ingredientSvc := groceryService.NewIngredientService(base)
	handler := grocery.NewHandler(priceSvc, ingredientSvc, cfg.App.Debug)

	common.LogInfo("Grocery services initialized",
		zap.Strings("stores", deps.Catalogs.Stores()),
		zap.String("pricing_mode", cfg.Pricing.Mode),
		zap.String("unresolved_policy", cfg.Pricing.UnresolvedPolicy),
		zap.Int("concurrency", cfg.Pricing.Concurrency),
		zap.Bool("cache_enabled", deps.Cache != nil),
	)

	// 注入健康檢查所需的狀態
	router.Use(func(c *gin.Context) {
		c.Set(health.ConfigKey, cfg)
		c.Set(health.CatalogsKey, deps.Catalogs)
		if deps.Queue != nil {
			c.Set(health.QueueKey, deps.Queue)
		}
		if deps.Cache != nil {
			c.Set(health.CacheKey, deps.Cache)
		}
		c.Next()
	})

	// 健康檢查路由
	router.GET("/health", health.HealthCheck)
	router.GET("/ready", health.ReadinessCheck)
	router.GET("/live", health.LivenessCheck)

	api := router.Group("/api/v1")
	{
		// WebSocket 為長連線，不套用請求逾時
		api.GET("/ws/recommendation/:id", handler.HandleRecommendationStream)

		var limits []gin.HandlerFunc
		if cfg.Server.RequestTimeout > 0 {
			limits = append(limits, middleware.Timeout(cfg.Server.RequestTimeout))
		}
		if cfg.RateLimit.Enabled {
			limits = append(limits, middleware.RateLimit(cfg.RateLimit.Requests, cfg.RateLimit.Window))
		}
		limits = append(limits, middleware.Deduplication(cfg.DedupWindow))

		v1 := api.Group("", limits...)
		{
			v1.GET("/stores", handler.HandleStores)

			v1.POST("/recommendation", handler.HandleRecommendation)
			v1.GET("/recommendation", handler.HandleRecommendationQuery)

			ingredientGroup := v1.Group("/ingredients")
			{
				ingredientGroup.POST("/generate", handler.HandleGenerateIngredients)
				ingredientGroup.POST("/generate/recommendation", handler.HandleGenerateRecommendation)
			}
		}
	}

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, common.ErrNotFound.Response(false))
	})

	common.LogInfo("Router setup completed successfully",
		zap.Duration("timeout", cfg.Server.RequestTimeout),
		zap.Int64("max_body_size", cfg.Server.MaxBodyBytes),
		zap.Bool("rate_limit_enabled", cfg.RateLimit.Enabled),
	)

	return router, nil
}

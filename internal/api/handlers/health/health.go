package health

import (
	"net/http"
	"runtime"
	"time"

	"grocery-recommender/internal/core/ai/cache"
	"grocery-recommender/internal/core/ai/queue"
	"grocery-recommender/internal/core/catalog"
	"grocery-recommender/internal/infrastructure/config"
	"grocery-recommender/internal/pkg/common"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// context keys
const (
	ConfigKey   = "config"
	CatalogsKey = "catalogs"
	QueueKey    = "queue"
	CacheKey    = "cache"
)

// HealthResponse 健康檢查響應
type HealthResponse struct {
	Status    string                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Version   string                 `json:"version"`
	Runtime   map[string]interface{} `json:"runtime"`
	Queue     *queue.Status          `json:"queue,omitempty"`
	Cache     *cache.Stats           `json:"cache,omitempty"`
}

// ReadinessResponse 就緒檢查響應
type ReadinessResponse struct {
	Status   string         `json:"status"`
	Catalogs map[string]int `json:"catalogs,omitempty"`
	Queue    *queue.Status  `json:"queue,omitempty"`
	Error    string         `json:"error,omitempty"`
}

// HealthCheck 健康檢查處理器
func HealthCheck(c *gin.Context) {
	cfg, ok := c.MustGet(ConfigKey).(*config.Config)
	if !ok {
		common.LogError("Invalid configuration type in context")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Invalid configuration type",
		})
		return
	}

	// 獲取運行時信息
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	response := HealthResponse{
		Status:    "ok",
		Timestamp: time.Now(),
		Version:   cfg.App.Version,
		Runtime: map[string]interface{}{
			"goroutines": runtime.NumGoroutine(),
			"memory": map[string]interface{}{
				"alloc":       m.Alloc,
				"total_alloc": m.TotalAlloc,
				"sys":         m.Sys,
				"num_gc":      m.NumGC,
			},
		},
	}

	if q, ok := c.Get(QueueKey); ok {
		if manager, ok := q.(*queue.Manager); ok && manager != nil {
			response.Queue = manager.GetQueueStatus()
		}
	}
	if v, ok := c.Get(CacheKey); ok {
		if manager, ok := v.(*cache.CacheManager); ok && manager != nil {
			stats := manager.GetStats()
			response.Cache = &stats
		}
	}

	common.LogDebug("Health check request",
		zap.String("client_ip", c.ClientIP()),
		zap.String("path", c.Request.URL.Path),
	)

	c.JSON(http.StatusOK, response)
}

// ReadinessCheck 就緒檢查處理器，所有商店資料集載入且隊列運作中才算就緒
func ReadinessCheck(c *gin.Context) {
	response := ReadinessResponse{Status: "ready"}

	catalogs, _ := c.Get(CatalogsKey)
	set, ok := catalogs.(*catalog.Set)
	if !ok || set == nil {
		c.JSON(http.StatusServiceUnavailable, ReadinessResponse{
			Status: "not_ready",
			Error:  "catalogs not configured",
		})
		return
	}
	response.Catalogs = set.Sizes()

	if err := set.EnsureLoaded(); err != nil {
		response.Status = "not_ready"
		response.Error = err.Error()
	}

	if q, ok := c.Get(QueueKey); ok {
		if manager, ok := q.(*queue.Manager); ok && manager != nil {
			response.Queue = manager.GetQueueStatus()
			if !response.Queue.Running {
				response.Status = "not_ready"
				response.Error = "request queue is not running"
			}
		}
	}

	if response.Status != "ready" {
		c.JSON(http.StatusServiceUnavailable, response)
		return
	}
	c.JSON(http.StatusOK, response)
}

// LivenessCheck 存活檢查處理器
func LivenessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "alive",
	})
}

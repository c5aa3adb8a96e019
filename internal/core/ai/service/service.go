package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"grocery-recommender/internal/core/ai/cache"
	"grocery-recommender/internal/core/ai/gemini"
	"grocery-recommender/internal/core/ai/openrouter"
	"grocery-recommender/internal/core/ai/provider"
	"grocery-recommender/internal/core/ai/queue"
	"grocery-recommender/internal/core/oracle"
	"grocery-recommender/internal/infrastructure/config"
	"grocery-recommender/internal/pkg/common"

	"go.uber.org/zap"
)

// Response AI 回應結構
type Response struct {
	Content  string
	CacheHit bool
}

// Service AI 服務，依序查詢記憶體快取、Redis、再經由隊列呼叫模型
type Service struct {
	config       *config.Config
	provider     provider.Provider
	cacheManager *cache.CacheManager
	redisCache   *cache.Service
	queue        *queue.Manager
}

// NewProvider 依設定建立 AI 提供者
func NewProvider(cfg *config.Config) (provider.Provider, error) {
	switch cfg.AI.Provider {
	case config.ProviderOpenRouter:
		return openrouter.NewClient(cfg), nil
	case config.ProviderGemini:
		return gemini.NewClient(cfg), nil
	default:
		return nil, fmt.Errorf("unsupported AI provider: %s", cfg.AI.Provider)
	}
}

// NewService 創建 AI 服務，q 不為 nil 時以本服務啟動其 worker
func NewService(cfg *config.Config, p provider.Provider, cacheManager *cache.CacheManager, redisCache *cache.Service, q *queue.Manager) (*Service, error) {
	if p == nil {
		return nil, errors.New("ai provider is required")
	}

	s := &Service{
		config:       cfg,
		provider:     p,
		cacheManager: cacheManager,
		redisCache:   redisCache,
		queue:        q,
	}

	if q != nil {
		q.Start(s.generate)
	}

	return s, nil
}

// ProcessRequest 統一對外方法
func (s *Service) ProcessRequest(ctx context.Context, prompt string) (*Response, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return nil, common.NewValidationError("prompt is empty")
	}

	// 統一空白字元，確保快取 key 一致
	key := strings.Join(strings.Fields(prompt), " ")

	if val, err := s.cacheManager.Get(ctx, key); err == nil {
		return &Response{Content: val, CacheHit: true}, nil
	}

	if val, err := s.redisCache.Get(ctx, key); err == nil {
		_ = s.cacheManager.Set(ctx, key, val)
		return &Response{Content: val, CacheHit: true}, nil
	} else if !errors.Is(err, common.ErrCacheMiss) && !errors.Is(err, common.ErrCacheDisabled) {
		common.LogWarn("Redis 快取讀取失敗", zap.Error(err))
	}

	var (
		content string
		err     error
	)
	if s.queue != nil {
		content, err = s.queue.Submit(ctx, prompt)
	} else {
		content, err = s.generate(ctx, prompt)
	}
	if err != nil {
		return nil, err
	}

	// 無法解析為 JSON 的回覆不寫入快取，下次請求重新詢問模型
	if !cacheable(content) {
		common.LogDebug("回應不是 JSON，略過快取", zap.Int("content_length", len(content)))
		return &Response{Content: content}, nil
	}

	if err := s.cacheManager.Set(ctx, key, content); err != nil {
		common.LogDebug("記憶體快取寫入失敗", zap.Error(err))
	}
	if err := s.redisCache.Set(ctx, key, content); err != nil {
		common.LogWarn("Redis 快取寫入失敗", zap.Error(err))
	}

	return &Response{Content: content}, nil
}

// cacheable 回覆去除 code fence 後為單一 JSON 值
func cacheable(content string) bool {
	cleaned := oracle.StripCodeFence(content)
	if cleaned == "" {
		return false
	}
	var v interface{}
	return common.ParseJSON(cleaned, &v) == nil
}

// Complete 回傳模型文字回應，供價格查詢使用
func (s *Service) Complete(ctx context.Context, prompt string) (string, error) {
	resp, err := s.ProcessRequest(ctx, prompt)
	if err != nil {
		return "", err
	}
	return resp.Content, nil
}

// generate 在提供者的逾時限制內呼叫模型
func (s *Service) generate(ctx context.Context, prompt string) (string, error) {
	timeout := s.provider.GetTimeout()
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	start := time.Now()
	resp, err := s.provider.Generate(ctx, provider.UserPrompt(prompt))
	common.LogAICall(s.config.AI.Provider, time.Since(start), err)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", fmt.Errorf("ai request timed out after %s: %w", timeout, err)
		}
		return "", err
	}

	return resp.Content, nil
}

// Close 關閉提供者連接
func (s *Service) Close() error {
	return s.provider.Close()
}

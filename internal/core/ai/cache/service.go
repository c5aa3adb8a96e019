package cache

import (
	"context"
	"errors"
	"fmt"

	"grocery-recommender/internal/infrastructure/config"
	"grocery-recommender/internal/pkg/common"

	"github.com/go-redis/redis/v8"
)

// Service Redis 共享快取，讓多個實例共用模型回應
type Service struct {
	client *redis.Client
	config *config.RedisConfig
}

// NewService 創建緩存服務，停用時回傳不連線的空服務
func NewService(ctx context.Context, cfg *config.RedisConfig) (*Service, error) {
	if !cfg.Enabled {
		return &Service{config: cfg}, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	// 測試連接
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &Service{
		client: client,
		config: cfg,
	}, nil
}

// Enabled 是否已連線
func (s *Service) Enabled() bool {
	return s != nil && s.config.Enabled && s.client != nil
}

// Get 獲取緩存
func (s *Service) Get(ctx context.Context, prompt string) (string, error) {
	if !s.Enabled() {
		return "", common.ErrCacheDisabled
	}

	val, err := s.client.Get(ctx, s.generateKey(prompt)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			common.LogCacheMiss("redis")
			return "", common.ErrCacheMiss
		}
		return "", fmt.Errorf("failed to get cache: %w", err)
	}

	common.LogCacheHit("redis")
	return val, nil
}

// Set 設置緩存
func (s *Service) Set(ctx context.Context, prompt, value string) error {
	if !s.Enabled() {
		return nil
	}

	if err := s.client.Set(ctx, s.generateKey(prompt), value, s.config.TTL).Err(); err != nil {
		return fmt.Errorf("failed to set cache: %w", err)
	}
	return nil
}

// Ping 檢查 Redis 連線
func (s *Service) Ping(ctx context.Context) error {
	if !s.Enabled() {
		return nil
	}
	return s.client.Ping(ctx).Err()
}

// Close 關閉 Redis 連線
func (s *Service) Close() error {
	if !s.Enabled() {
		return nil
	}
	return s.client.Close()
}

// generateKey 生成緩存鍵
func (s *Service) generateKey(prompt string) string {
	return fmt.Sprintf("grocery:oracle:%s", hashString(prompt))
}

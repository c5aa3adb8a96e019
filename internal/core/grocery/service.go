package grocery

import (
	"context"
	"time"

	"grocery-recommender/internal/core/catalog"
	"grocery-recommender/internal/core/oracle"
	"grocery-recommender/internal/infrastructure/config"
)

const defaultOracleTimeout = 20 * time.Second

// Service 比價服務基礎結構
type Service struct {
	oracle   *oracle.Oracle
	catalogs *catalog.Set
	pricing  config.PricingConfig
}

// NewService 創建新的比價服務基礎結構
func NewService(o *oracle.Oracle, catalogs *catalog.Set, pricing config.PricingConfig) *Service {
	if pricing.Mode == "" {
		pricing.Mode = config.PricingModeEstimate
	}
	if pricing.UnresolvedPolicy == "" {
		pricing.UnresolvedPolicy = config.UnresolvedExclude
	}
	if pricing.OracleTimeout <= 0 {
		pricing.OracleTimeout = defaultOracleTimeout
	}
	if pricing.Concurrency <= 0 {
		pricing.Concurrency = 1
	}

	return &Service{
		oracle:   o,
		catalogs: catalogs,
		pricing:  pricing,
	}
}

// Stores 商店標準順序
func (s *Service) Stores() []string {
	return s.catalogs.Stores()
}

// Catalogs 商店價格資料集
func (s *Service) Catalogs() *catalog.Set {
	return s.catalogs
}

// queryObject 在單次查詢逾時限制內要求 JSON 物件
func (s *Service) queryObject(ctx context.Context, prompt string) (map[string]interface{}, error) {
	ctx, cancel := context.WithTimeout(ctx, s.pricing.OracleTimeout)
	defer cancel()
	return s.oracle.QueryObject(ctx, prompt)
}

// queryArray 在單次查詢逾時限制內要求 JSON 陣列
func (s *Service) queryArray(ctx context.Context, prompt string) ([]interface{}, error) {
	ctx, cancel := context.WithTimeout(ctx, s.pricing.OracleTimeout)
	defer cancel()
	return s.oracle.QueryArray(ctx, prompt)
}

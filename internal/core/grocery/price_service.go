package grocery

import (
	"context"
	"sync"

	"grocery-recommender/internal/core/oracle"
	"grocery-recommender/internal/infrastructure/config"
	"grocery-recommender/internal/pkg/common"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// PriceService 食材比價服務
type PriceService struct {
	*Service
}

// NewPriceService 創建新的食材比價服務
func NewPriceService(base *Service) *PriceService {
	return &PriceService{Service: base}
}

// RecommendOption 比價選項
type RecommendOption func(*recommendOptions)

type recommendOptions struct {
	progress func(index int, result IngredientResult)
}

// WithProgress 每解析完一項食材即呼叫 fn，呼叫會依序進行不會重疊
func WithProgress(fn func(index int, result IngredientResult)) RecommendOption {
	return func(o *recommendOptions) {
		o.progress = fn
	}
}

// Recommend 解析所有食材價格並產生推薦結果
func (s *PriceService) Recommend(ctx context.Context, req *RecommendationRequest, opts ...RecommendOption) (*RecommendationResponse, error) {
	if err := s.catalogs.EnsureLoaded(); err != nil {
		return nil, err
	}

	var options recommendOptions
	for _, opt := range opts {
		opt(&options)
	}

	stores := s.Stores()
	results, err := s.resolveAll(ctx, req.Ingredients, options.progress)
	if err != nil {
		return nil, err
	}

	agg := Accumulate(stores, results)
	outcome := EvaluateBudget(agg.TotalCost, req.Budget)
	recommended := SelectStore(stores, agg)

	common.LogInfo("比價完成",
		zap.Int("ingredients", len(results)),
		zap.Float64("total_cost", agg.TotalCost),
		zap.Stringp("recommended_store", recommended),
		zap.Bool("within_budget", outcome.WithinBudget),
	)

	return &RecommendationResponse{
		RecommendedStore: recommended,
		Ingredients:      results,
		TotalCost:        agg.TotalCost,
		TotalPerStore:    agg.StoreTotals,
		StoreCounts:      agg.StoreCounts,
		WithinBudget:     outcome.WithinBudget,
		AdjustedBudget:   outcome.AdjustedBudget,
		People:           req.People,
		Budget:           req.Budget,
		Stores:           stores,
	}, nil
}

// resolveAll 以有限併發解析食材，結果依輸入順序排列
func (s *PriceService) resolveAll(ctx context.Context, ingredients []Ingredient, progress func(int, IngredientResult)) ([]IngredientResult, error) {
	results := make([]IngredientResult, len(ingredients))
	if len(ingredients) == 0 {
		return results, nil
	}

	var progressMu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.pricing.Concurrency)

	for i, ing := range ingredients {
		i, ing := i, ing
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			results[i] = s.ResolveIngredient(gctx, ing)

			if progress != nil {
				progressMu.Lock()
				progress(i, results[i])
				progressMu.Unlock()
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	// 請求已取消時丟棄部分結果
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

// ResolveIngredient 先查商店資料集，全部查無價格時才詢問模型
func (s *PriceService) ResolveIngredient(ctx context.Context, ing Ingredient) IngredientResult {
	stores := s.Stores()
	quote := common.NewPriceQuote(stores)
	sources := make(map[string]string, len(stores))

	for _, store := range stores {
		if p := s.catalogs.Lookup(store, ing.Name); p != nil {
			quote[store] = p
			sources[store] = SourceCatalog
		}
	}

	if !quote.Resolved() {
		s.consultOracle(ctx, ing.Name, stores, quote, sources)
	}

	cheapestStore, cheapestPrice := CheapestStore(stores, quote)
	return IngredientResult{
		Name:          ing.Name,
		Quantity:      ing.Quantity,
		Prices:        quote,
		PriceSources:  sources,
		CheapestStore: cheapestStore,
		CheapestPrice: cheapestPrice,
	}
}

// consultOracle 依定價模式補齊缺少的價格，只會寫入仍為 nil 的商店
func (s *PriceService) consultOracle(ctx context.Context, name string, stores []string, quote common.PriceQuote, sources map[string]string) {
	// raw 保存模型對各商店的原始回覆，供 zero 策略正規化
	raw := make(map[string]interface{}, len(stores))

	if s.pricing.Mode == config.PricingModeWebscrape {
		s.webscrape(ctx, name, stores, quote, sources, raw)
	}

	if missing := quote.Missing(stores); len(missing) > 0 {
		s.estimate(ctx, name, missing, quote, sources, raw)
	}

	if s.pricing.UnresolvedPolicy == config.UnresolvedZero {
		for _, store := range quote.Missing(stores) {
			quote[store] = common.Float(oracle.NormalizePrice(raw[store]))
			sources[store] = s.pricing.Mode
		}
	}
}

// estimate 以單一 prompt 估算多間商店的價格
func (s *PriceService) estimate(ctx context.Context, name string, missing []string, quote common.PriceQuote, sources map[string]string, raw map[string]interface{}) {
	obj, err := s.queryObject(ctx, estimatePrompt(name, missing))
	if err != nil {
		common.LogWarn("價格估算失敗",
			zap.String("ingredient", name),
			zap.Strings("stores", missing),
			zap.Bool("malformed", oracle.IsMalformed(err)),
			zap.Error(err),
		)
		return
	}

	for _, store := range missing {
		if quote[store] != nil {
			continue
		}
		raw[store] = obj[store]
		if p, ok := oracle.ParsePrice(obj[store]); ok {
			quote[store] = common.Float(p)
			sources[store] = SourceEstimate
		}
	}
}

// webscrape 每間商店各自查詢一次，查詢彼此獨立並行
func (s *PriceService) webscrape(ctx context.Context, name string, stores []string, quote common.PriceQuote, sources map[string]string, raw map[string]interface{}) {
	found := make([]interface{}, len(stores))

	var wg sync.WaitGroup
	for i, store := range stores {
		if quote[store] != nil {
			continue
		}
		wg.Add(1)
		go func(i int, store string) {
			defer wg.Done()

			obj, err := s.queryObject(ctx, webscrapePrompt(store, name))
			if err != nil {
				common.LogWarn("網頁價格查詢失敗",
					zap.String("ingredient", name),
					zap.String("store", store),
					zap.Bool("malformed", oracle.IsMalformed(err)),
					zap.Error(err),
				)
				return
			}
			found[i] = obj["price"]
		}(i, store)
	}
	wg.Wait()

	for i, store := range stores {
		if quote[store] != nil || found[i] == nil {
			continue
		}
		raw[store] = found[i]
		if p, ok := oracle.ParsePrice(found[i]); ok {
			quote[store] = common.Float(p)
			sources[store] = SourceWebscrape
		}
	}
}

// CheapestStore 依商店標準順序取最低價，同價時取順序在前者
func CheapestStore(stores []string, quote common.PriceQuote) (*string, *float64) {
	var (
		bestStore string
		bestPrice *float64
	)
	for _, store := range stores {
		p := quote[store]
		if p == nil {
			continue
		}
		if bestPrice == nil || *p < *bestPrice {
			bestStore = store
			bestPrice = p
		}
	}

	if bestPrice == nil {
		return nil, nil
	}
	price := *bestPrice
	return &bestStore, &price
}

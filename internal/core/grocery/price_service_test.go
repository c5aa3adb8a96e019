package grocery

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"grocery-recommender/internal/core/catalog"
	"grocery-recommender/internal/core/oracle"
	"grocery-recommender/internal/infrastructure/config"
	"grocery-recommender/internal/pkg/common"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testStores = []string{"osave", "dali", "dti"}

// testCatalogs 建立三間商店的資料集，prices 為 store -> name -> price
func testCatalogs(prices map[string]map[string]float64) *catalog.Set {
	catalogs := make([]*catalog.Catalog, 0, len(testStores))
	for _, store := range testStores {
		records := []catalog.Record{{Name: "Placeholder " + store}}
		for name, p := range prices[store] {
			records = append(records, catalog.Record{Name: name, Price: common.Float(p)})
		}
		catalogs = append(catalogs, catalog.New(store, records))
	}
	return catalog.NewSet(testStores, catalogs...)
}

func riceCatalogs() *catalog.Set {
	return testCatalogs(map[string]map[string]float64{
		"osave": {"Rice": 50},
		"dali":  {"Rice": 48},
		"dti":   {"Rice": 52},
	})
}

type countingBackend struct {
	calls int32
	fn    func(ctx context.Context, prompt string) (string, error)
}

func (b *countingBackend) Complete(ctx context.Context, prompt string) (string, error) {
	atomic.AddInt32(&b.calls, 1)
	return b.fn(ctx, prompt)
}

func (b *countingBackend) Calls() int {
	return int(atomic.LoadInt32(&b.calls))
}

func staticReply(text string) *countingBackend {
	return &countingBackend{fn: func(ctx context.Context, prompt string) (string, error) {
		return text, nil
	}}
}

func newPriceService(catalogs *catalog.Set, backend oracle.Backend, pricing config.PricingConfig) *PriceService {
	return NewPriceService(NewService(oracle.New(backend), catalogs, pricing))
}

func rice() []Ingredient {
	return []Ingredient{{Name: "Rice", Quantity: "1kg"}}
}

func TestRecommendRiceScenario(t *testing.T) {
	backend := staticReply(`{}`)
	svc := newPriceService(riceCatalogs(), backend, config.PricingConfig{Concurrency: 2})

	resp, err := svc.Recommend(context.Background(), &RecommendationRequest{
		People:      1,
		Budget:      common.Float(100),
		Ingredients: rice(),
	})
	require.NoError(t, err)

	require.Len(t, resp.Ingredients, 1)
	result := resp.Ingredients[0]
	require.NotNil(t, result.CheapestStore)
	assert.Equal(t, "dali", *result.CheapestStore)
	assert.Equal(t, 48.0, *result.CheapestPrice)
	assert.Equal(t, "1kg", result.Quantity)
	assert.Equal(t, SourceCatalog, result.PriceSources["osave"])

	assert.Equal(t, 48.0, resp.TotalCost)
	require.NotNil(t, resp.RecommendedStore)
	assert.Equal(t, "dali", *resp.RecommendedStore)
	assert.True(t, resp.WithinBudget)
	assert.Nil(t, resp.AdjustedBudget)
	assert.Equal(t, map[string]int{"osave": 0, "dali": 1, "dti": 0}, resp.StoreCounts)
	assert.Equal(t, testStores, resp.Stores)
	assert.Equal(t, 0, backend.Calls(), "catalog hits never consult the oracle")
}

func TestRecommendOverBudget(t *testing.T) {
	svc := newPriceService(riceCatalogs(), staticReply(`{}`), config.PricingConfig{})

	resp, err := svc.Recommend(context.Background(), &RecommendationRequest{
		People:      1,
		Budget:      common.Float(40),
		Ingredients: rice(),
	})
	require.NoError(t, err)
	assert.False(t, resp.WithinBudget)
	require.NotNil(t, resp.AdjustedBudget)
	assert.Equal(t, 48.0, *resp.AdjustedBudget)
}

func TestRecommendBudgetBoundaryInclusive(t *testing.T) {
	svc := newPriceService(riceCatalogs(), staticReply(`{}`), config.PricingConfig{})

	resp, err := svc.Recommend(context.Background(), &RecommendationRequest{
		Budget:      common.Float(48),
		Ingredients: rice(),
	})
	require.NoError(t, err)
	assert.True(t, resp.WithinBudget)
	assert.Nil(t, resp.AdjustedBudget)
}

func TestRecommendEmptyList(t *testing.T) {
	backend := staticReply(`{}`)
	svc := newPriceService(riceCatalogs(), backend, config.PricingConfig{})

	resp, err := svc.Recommend(context.Background(), &RecommendationRequest{People: 2})
	require.NoError(t, err)
	assert.Equal(t, 0.0, resp.TotalCost)
	assert.Nil(t, resp.RecommendedStore)
	assert.True(t, resp.WithinBudget)
	assert.NotNil(t, resp.Ingredients)
	assert.Empty(t, resp.Ingredients)
	assert.Equal(t, 0, backend.Calls())
}

func TestOracleFallbackFillsNulls(t *testing.T) {
	backend := staticReply("```json\n{\"osave\":30,\"dali\":null,\"dti\":25}\n```")
	svc := newPriceService(riceCatalogs(), backend, config.PricingConfig{})

	result := svc.ResolveIngredient(context.Background(), Ingredient{Name: "Saffron", Quantity: "1g"})

	require.NotNil(t, result.CheapestStore)
	assert.Equal(t, "dti", *result.CheapestStore)
	assert.Equal(t, 25.0, *result.CheapestPrice)
	assert.Equal(t, 30.0, *result.Prices["osave"])
	assert.Contains(t, result.Prices, "dali")
	assert.Nil(t, result.Prices["dali"])
	assert.Equal(t, SourceEstimate, result.PriceSources["dti"])
	assert.NotContains(t, result.PriceSources, "dali")
	assert.Equal(t, 1, backend.Calls())
}

func TestOracleStringPricesAreNormalized(t *testing.T) {
	svc := newPriceService(riceCatalogs(), staticReply(`{"osave":"₱1,200.50","dali":"n/a","dti":-5}`), config.PricingConfig{})

	result := svc.ResolveIngredient(context.Background(), Ingredient{Name: "Ham"})
	assert.Equal(t, 1200.5, *result.Prices["osave"])
	assert.Nil(t, result.Prices["dali"])
	assert.Nil(t, result.Prices["dti"])
}

func TestMalformedOracleLeavesNullsAndDoesNotFail(t *testing.T) {
	backend := staticReply("I could not find prices for that, sorry!")
	svc := newPriceService(riceCatalogs(), backend, config.PricingConfig{Concurrency: 4})

	resp, err := svc.Recommend(context.Background(), &RecommendationRequest{
		Ingredients: []Ingredient{
			{Name: "Rice", Quantity: "1kg"},
			{Name: "Unobtainium", Quantity: "1"},
		},
	})
	require.NoError(t, err)

	require.Len(t, resp.Ingredients, 2)
	assert.Equal(t, "dali", *resp.Ingredients[0].CheapestStore)

	unknown := resp.Ingredients[1]
	assert.Nil(t, unknown.CheapestStore)
	assert.Nil(t, unknown.CheapestPrice)
	for _, store := range testStores {
		assert.Contains(t, unknown.Prices, store)
		assert.Nil(t, unknown.Prices[store])
	}
	assert.Equal(t, 48.0, resp.TotalCost)
}

func TestBackendFailureDegradesToNull(t *testing.T) {
	backend := &countingBackend{fn: func(ctx context.Context, prompt string) (string, error) {
		return "", errors.New("quota exceeded")
	}}
	svc := newPriceService(riceCatalogs(), backend, config.PricingConfig{})

	resp, err := svc.Recommend(context.Background(), &RecommendationRequest{
		Ingredients: []Ingredient{{Name: "Truffle"}},
	})
	require.NoError(t, err)
	assert.Nil(t, resp.Ingredients[0].CheapestStore)
	assert.Nil(t, resp.RecommendedStore)
	assert.Equal(t, 0.0, resp.TotalCost)
}

func TestOracleTimeoutDegradesToNull(t *testing.T) {
	backend := &countingBackend{fn: func(ctx context.Context, prompt string) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	}}
	svc := newPriceService(riceCatalogs(), backend, config.PricingConfig{OracleTimeout: 10 * time.Millisecond})

	start := time.Now()
	result := svc.ResolveIngredient(context.Background(), Ingredient{Name: "Truffle"})
	assert.Nil(t, result.CheapestStore)
	assert.Less(t, time.Since(start), time.Second)
}

func TestCatalogPriceWinsOverOracle(t *testing.T) {
	catalogs := testCatalogs(map[string]map[string]float64{
		"dti": {"Garlic": 120},
	})
	backend := staticReply(`{"osave":1,"dali":1,"dti":1}`)
	svc := newPriceService(catalogs, backend, config.PricingConfig{})

	result := svc.ResolveIngredient(context.Background(), Ingredient{Name: "garlic"})
	assert.Equal(t, 120.0, *result.Prices["dti"])
	assert.Equal(t, "dti", *result.CheapestStore)
	assert.Nil(t, result.Prices["osave"])
	assert.Equal(t, 0, backend.Calls())
}

func TestCheapestStoreTieUsesCanonicalOrder(t *testing.T) {
	catalogs := testCatalogs(map[string]map[string]float64{
		"osave": {"Egg": 9},
		"dali":  {"Egg": 8},
		"dti":   {"Egg": 8},
	})
	svc := newPriceService(catalogs, staticReply(`{}`), config.PricingConfig{})

	for i := 0; i < 20; i++ {
		result := svc.ResolveIngredient(context.Background(), Ingredient{Name: "Egg"})
		assert.Equal(t, "dali", *result.CheapestStore)
		assert.Equal(t, 8.0, *result.CheapestPrice)
	}
}

func TestCheapestStore(t *testing.T) {
	quote := common.PriceQuote{"osave": common.Float(10), "dali": nil, "dti": common.Float(10)}
	store, price := CheapestStore(testStores, quote)
	require.NotNil(t, store)
	assert.Equal(t, "osave", *store)
	assert.Equal(t, 10.0, *price)

	store, price = CheapestStore(testStores, common.NewPriceQuote(testStores))
	assert.Nil(t, store)
	assert.Nil(t, price)
}

func TestWebscrapeModeWithEstimateFallback(t *testing.T) {
	var mu sync.Mutex
	var prompts []string

	backend := &countingBackend{fn: func(ctx context.Context, prompt string) (string, error) {
		mu.Lock()
		prompts = append(prompts, prompt)
		mu.Unlock()

		switch {
		case strings.Contains(prompt, "web scraping") && strings.Contains(prompt, StoreLabel("osave")):
			return `{"price": 40}`, nil
		case strings.Contains(prompt, "web scraping") && strings.Contains(prompt, StoreLabel("dali")):
			return `{"price": null}`, nil
		case strings.Contains(prompt, "web scraping"):
			return "no idea", nil
		default:
			return `{"osave": 1, "dali": 45, "dti": 60}`, nil
		}
	}}
	svc := newPriceService(riceCatalogs(), backend, config.PricingConfig{Mode: config.PricingModeWebscrape})

	result := svc.ResolveIngredient(context.Background(), Ingredient{Name: "Calamansi"})

	assert.Equal(t, 4, backend.Calls())
	assert.Equal(t, 40.0, *result.Prices["osave"], "webscrape price is not overwritten by the estimate")
	assert.Equal(t, 45.0, *result.Prices["dali"])
	assert.Equal(t, 60.0, *result.Prices["dti"])
	assert.Equal(t, SourceWebscrape, result.PriceSources["osave"])
	assert.Equal(t, SourceEstimate, result.PriceSources["dali"])
	assert.Equal(t, "osave", *result.CheapestStore)

	var estimate string
	for _, p := range prompts {
		if !strings.Contains(p, "web scraping") {
			estimate = p
		}
	}
	assert.NotContains(t, estimate, `"osave"`, "fallback prompt only asks for missing stores")
	assert.Contains(t, estimate, `"dali"`)
}

func TestWebscrapeModeSkipsFallbackWhenComplete(t *testing.T) {
	backend := staticReply(`{"price": 12.5}`)
	svc := newPriceService(riceCatalogs(), backend, config.PricingConfig{Mode: config.PricingModeWebscrape})

	result := svc.ResolveIngredient(context.Background(), Ingredient{Name: "Salt"})
	assert.Equal(t, 3, backend.Calls())
	assert.Equal(t, "osave", *result.CheapestStore)
	assert.Equal(t, 12.5, *result.CheapestPrice)
}

func TestZeroPolicyNormalizesUnresolved(t *testing.T) {
	backend := staticReply(`{"osave": null, "dali": 70, "dti": "unknown"}`)
	svc := newPriceService(riceCatalogs(), backend, config.PricingConfig{UnresolvedPolicy: config.UnresolvedZero})

	result := svc.ResolveIngredient(context.Background(), Ingredient{Name: "Squid"})
	assert.Equal(t, 0.0, *result.Prices["osave"])
	assert.Equal(t, 70.0, *result.Prices["dali"])
	assert.Equal(t, 0.0, *result.Prices["dti"])
	assert.Equal(t, "osave", *result.CheapestStore)
	assert.Equal(t, 0.0, *result.CheapestPrice)
}

func TestZeroPolicyAfterBackendFailure(t *testing.T) {
	backend := &countingBackend{fn: func(ctx context.Context, prompt string) (string, error) {
		return "", errors.New("quota exceeded")
	}}
	svc := newPriceService(riceCatalogs(), backend, config.PricingConfig{
		Mode:             config.PricingModeWebscrape,
		UnresolvedPolicy: config.UnresolvedZero,
	})

	result := svc.ResolveIngredient(context.Background(), Ingredient{Name: "Squid"})
	for _, store := range testStores {
		require.NotNil(t, result.Prices[store], store)
		assert.Equal(t, 0.0, *result.Prices[store])
		assert.Equal(t, config.PricingModeWebscrape, result.PriceSources[store])
	}
	assert.Equal(t, "osave", *result.CheapestStore)
}

func TestRecommendRequiresLoadedCatalogs(t *testing.T) {
	catalogs := catalog.NewSet(testStores,
		catalog.New("osave", []catalog.Record{{Name: "Rice", Price: common.Float(50)}}),
		catalog.New("dali", nil),
	)
	backend := staticReply(`{}`)
	svc := newPriceService(catalogs, backend, config.PricingConfig{})

	_, err := svc.Recommend(context.Background(), &RecommendationRequest{Ingredients: rice()})
	require.Error(t, err)

	var loadErr *catalog.LoadError
	assert.ErrorAs(t, err, &loadErr)
	assert.ErrorIs(t, err, catalog.ErrEmptyOrMissing)
	assert.Equal(t, 0, backend.Calls())
}

func TestRecommendCancelledContext(t *testing.T) {
	backend := staticReply(`{"osave": 1}`)
	svc := newPriceService(riceCatalogs(), backend, config.PricingConfig{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	resp, err := svc.Recommend(ctx, &RecommendationRequest{Ingredients: []Ingredient{{Name: "Beef"}}})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, resp)
}

func TestRecommendPreservesInputOrderUnderConcurrency(t *testing.T) {
	names := []string{"A", "B", "C", "D", "E", "F", "G", "H"}
	var inFlight, peak int32

	backend := &countingBackend{fn: func(ctx context.Context, prompt string) (string, error) {
		n := atomic.AddInt32(&inFlight, 1)
		defer atomic.AddInt32(&inFlight, -1)
		for {
			p := atomic.LoadInt32(&peak)
			if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
				break
			}
		}
		// 後面的食材較快完成
		for i, name := range names {
			if strings.Contains(prompt, `"`+name+`"`) {
				time.Sleep(time.Duration(len(names)-i) * 2 * time.Millisecond)
				return `{"dali": ` + string(rune('1'+i)) + `}`, nil
			}
		}
		return `{}`, nil
	}}
	svc := newPriceService(riceCatalogs(), backend, config.PricingConfig{Concurrency: 3})

	ingredients := make([]Ingredient, len(names))
	for i, n := range names {
		ingredients[i] = Ingredient{Name: n}
	}

	var progressCalls int32
	seen := make(map[int]bool)
	resp, err := svc.Recommend(context.Background(), &RecommendationRequest{Ingredients: ingredients},
		WithProgress(func(index int, result IngredientResult) {
			atomic.AddInt32(&progressCalls, 1)
			seen[index] = true
			assert.Equal(t, names[index], result.Name)
		}),
	)
	require.NoError(t, err)

	for i, r := range resp.Ingredients {
		assert.Equal(t, names[i], r.Name)
		assert.Equal(t, float64(i+1), *r.CheapestPrice)
	}
	assert.Equal(t, int32(len(names)), atomic.LoadInt32(&progressCalls))
	assert.Len(t, seen, len(names))
	assert.LessOrEqual(t, atomic.LoadInt32(&peak), int32(3))
	assert.Equal(t, 36.0, resp.TotalCost)
	assert.Equal(t, 8, resp.StoreCounts["dali"])
}

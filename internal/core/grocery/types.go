package grocery

import (
	"grocery-recommender/internal/pkg/common"
)

// 價格來源
const (
	SourceCatalog   = "catalog"
	SourceEstimate  = "estimate"
	SourceWebscrape = "webscrape"
)

// Ingredient 食材
type Ingredient = common.Ingredient

// IngredientResult 單一食材的比價結果
type IngredientResult struct {
	Name          string            `json:"name"`
	Quantity      string            `json:"quantity"`
	Prices        common.PriceQuote `json:"prices"`
	PriceSources  map[string]string `json:"price_sources"`
	CheapestStore *string           `json:"cheapest_store"`
	CheapestPrice *float64          `json:"cheapest_price"`
}

// Aggregate 依輸入順序彙總的各商店統計
type Aggregate struct {
	StoreCounts map[string]int
	StoreTotals map[string]float64
	TotalCost   float64
}

// BudgetOutcome 預算判斷結果
type BudgetOutcome struct {
	WithinBudget   bool
	AdjustedBudget *float64
}

// RecommendationRequest 已驗證的比價請求
type RecommendationRequest struct {
	People      int
	Budget      *float64
	Ingredients []Ingredient
}

// RecommendationResponse 比價推薦結果
type RecommendationResponse struct {
	RecommendedStore *string            `json:"recommended_store"`
	Ingredients      []IngredientResult `json:"ingredients"`
	TotalCost        float64            `json:"total_cost"`
	TotalPerStore    map[string]float64 `json:"total_per_store"`
	StoreCounts      map[string]int     `json:"store_counts"`
	WithinBudget     bool               `json:"within_budget"`
	AdjustedBudget   *float64           `json:"adjusted_budget"`
	People           int                `json:"people"`
	Budget           *float64           `json:"budget"`
	Stores           []string           `json:"stores"`
}

// GenerationRequest 已驗證的食材生成請求
type GenerationRequest struct {
	Dish   string
	People int
	Budget *float64
}

// GenerationResponse 食材生成結果
type GenerationResponse struct {
	Dish        string       `json:"dish"`
	People      int          `json:"people"`
	Ingredients []Ingredient `json:"ingredients"`
}

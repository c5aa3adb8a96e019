package grocery

import (
	"grocery-recommender/internal/pkg/common"
)

// Accumulate 彙總各商店的最低價次數與金額
func Accumulate(stores []string, results []IngredientResult) Aggregate {
	agg := Aggregate{
		StoreCounts: make(map[string]int, len(stores)),
		StoreTotals: make(map[string]float64, len(stores)),
	}
	for _, store := range stores {
		agg.StoreCounts[store] = 0
		agg.StoreTotals[store] = 0
	}

	for _, r := range results {
		if r.CheapestStore == nil || r.CheapestPrice == nil {
			continue
		}
		store := *r.CheapestStore
		agg.StoreCounts[store]++
		agg.StoreTotals[store] = common.SumPrices(agg.StoreTotals[store], *r.CheapestPrice)
		agg.TotalCost = common.SumPrices(agg.TotalCost, *r.CheapestPrice)
	}

	return agg
}

// SelectStore 次數最多者優先，其次為累計金額較低者，再依商店標準順序
func SelectStore(stores []string, agg Aggregate) *string {
	var (
		best      string
		bestCount int
		bestTotal float64
	)
	for _, store := range stores {
		count := agg.StoreCounts[store]
		if count == 0 {
			continue
		}
		total := agg.StoreTotals[store]
		if best == "" || count > bestCount || (count == bestCount && total < bestTotal) {
			best, bestCount, bestTotal = store, count, total
		}
	}

	if best == "" {
		return nil
	}
	return &best
}

// EvaluateBudget 未提供預算或總額不超過預算即視為在預算內
func EvaluateBudget(total float64, budget *float64) BudgetOutcome {
	if budget == nil || total <= *budget {
		return BudgetOutcome{WithinBudget: true}
	}
	return BudgetOutcome{WithinBudget: false, AdjustedBudget: common.Float(total)}
}

package grocery

import (
	"testing"

	"grocery-recommender/internal/pkg/common"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resolved(store string, price float64) IngredientResult {
	return IngredientResult{CheapestStore: &store, CheapestPrice: common.Float(price)}
}

func TestAccumulate(t *testing.T) {
	results := []IngredientResult{
		resolved("dali", 48),
		{Name: "unresolved"},
		resolved("dali", 0.1),
		resolved("dti", 0.2),
	}

	agg := Accumulate(testStores, results)
	assert.Equal(t, map[string]int{"osave": 0, "dali": 2, "dti": 1}, agg.StoreCounts)
	assert.Equal(t, 48.1, agg.StoreTotals["dali"])
	assert.Equal(t, 0.0, agg.StoreTotals["osave"])
	assert.Equal(t, 48.3, agg.TotalCost)
}

func TestSelectStore(t *testing.T) {
	tests := []struct {
		name    string
		results []IngredientResult
		want    string
	}{
		{
			name:    "most wins",
			results: []IngredientResult{resolved("dti", 90), resolved("dti", 80), resolved("osave", 1)},
			want:    "dti",
		},
		{
			name:    "count tie broken by lower total",
			results: []IngredientResult{resolved("osave", 30), resolved("dali", 20)},
			want:    "dali",
		},
		{
			name:    "full tie broken by canonical order",
			results: []IngredientResult{resolved("dti", 20), resolved("dali", 20)},
			want:    "dali",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SelectStore(testStores, Accumulate(testStores, tt.results))
			require.NotNil(t, got)
			assert.Equal(t, tt.want, *got)
		})
	}
}

func TestSelectStoreNoneResolved(t *testing.T) {
	assert.Nil(t, SelectStore(testStores, Accumulate(testStores, []IngredientResult{{Name: "x"}})))
	assert.Nil(t, SelectStore(testStores, Accumulate(testStores, nil)))
}

func TestEvaluateBudget(t *testing.T) {
	out := EvaluateBudget(48, nil)
	assert.True(t, out.WithinBudget)
	assert.Nil(t, out.AdjustedBudget)

	out = EvaluateBudget(48, common.Float(48))
	assert.True(t, out.WithinBudget)
	assert.Nil(t, out.AdjustedBudget)

	out = EvaluateBudget(48.01, common.Float(48))
	assert.False(t, out.WithinBudget)
	require.NotNil(t, out.AdjustedBudget)
	assert.Equal(t, 48.01, *out.AdjustedBudget)

	out = EvaluateBudget(0, common.Float(0))
	assert.True(t, out.WithinBudget)
}

package grocery

import (
	"encoding/json"
	"strings"
	"testing"

	"grocery-recommender/internal/pkg/common"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeInput(t *testing.T, body string) RecommendationInput {
	t.Helper()
	var in RecommendationInput
	require.NoError(t, common.DecodeJSON(strings.NewReader(body), &in))
	return in
}

func TestParseRecommendationRequestJSON(t *testing.T) {
	req, err := ParseRecommendationRequest(decodeInput(t, `{
		"people": 4,
		"budget": 500.5,
		"ingredients": [{"name": "Rice", "quantity": "1kg"}, {"quantity": "2"}, 7]
	}`))
	require.NoError(t, err)
	assert.Equal(t, 4, req.People)
	require.NotNil(t, req.Budget)
	assert.Equal(t, 500.5, *req.Budget)
	assert.Equal(t, []Ingredient{{Name: "Rice", Quantity: "1kg"}}, req.Ingredients)
}

func TestParseRecommendationRequestDefaults(t *testing.T) {
	req, err := ParseRecommendationRequest(decodeInput(t, `{}`))
	require.NoError(t, err)
	assert.Equal(t, 1, req.People)
	assert.Nil(t, req.Budget)
	assert.NotNil(t, req.Ingredients)
	assert.Empty(t, req.Ingredients)
}

func TestParseRecommendationRequestQueryStrings(t *testing.T) {
	req, err := ParseRecommendationRequest(RecommendationInput{
		People:      "3",
		Budget:      "₱1,000",
		Ingredients: `[{"name":"Egg","quantity":"12"}]`,
	})
	require.NoError(t, err)
	assert.Equal(t, 3, req.People)
	assert.Equal(t, 1000.0, *req.Budget)
	assert.Equal(t, []Ingredient{{Name: "Egg", Quantity: "12"}}, req.Ingredients)

	req, err = ParseRecommendationRequest(RecommendationInput{People: "", Budget: "", Ingredients: ""})
	require.NoError(t, err)
	assert.Equal(t, 1, req.People)
	assert.Nil(t, req.Budget)
	assert.Empty(t, req.Ingredients)
}

func TestParseRecommendationRequestErrors(t *testing.T) {
	tests := []struct {
		name string
		in   RecommendationInput
	}{
		{"zero people", RecommendationInput{People: json.Number("0")}},
		{"negative people", RecommendationInput{People: json.Number("-2")}},
		{"fractional people", RecommendationInput{People: json.Number("2.5")}},
		{"people not a number", RecommendationInput{People: "many"}},
		{"people boolean", RecommendationInput{People: true}},
		{"negative budget", RecommendationInput{Budget: json.Number("-1")}},
		{"budget not a number", RecommendationInput{Budget: "cheap"}},
		{"ingredients object", RecommendationInput{Ingredients: map[string]interface{}{"name": "Rice"}}},
		{"ingredients number", RecommendationInput{Ingredients: json.Number("3")}},
		{"ingredients invalid json string", RecommendationInput{Ingredients: "[{"}},
		{"ingredients json object string", RecommendationInput{Ingredients: `{"name":"Rice"}`}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseRecommendationRequest(tt.in)
			require.Error(t, err)
			assert.True(t, common.IsValidationError(err))
		})
	}
}

func TestParsePeopleAcceptsWholeFloats(t *testing.T) {
	people, err := parsePeople(json.Number("2.0"))
	require.NoError(t, err)
	assert.Equal(t, 2, people)

	people, err = parsePeople(float64(5))
	require.NoError(t, err)
	assert.Equal(t, 5, people)
}

func TestParseGenerationRequest(t *testing.T) {
	req, err := ParseGenerationRequest(GenerationInput{Dish: "  Kare-kare ", People: json.Number("6"), Budget: json.Number("800")})
	require.NoError(t, err)
	assert.Equal(t, "Kare-kare", req.Dish)
	assert.Equal(t, 6, req.People)
	assert.Equal(t, 800.0, *req.Budget)

	req, err = ParseGenerationRequest(GenerationInput{Dish: "Lugaw"})
	require.NoError(t, err)
	assert.Equal(t, 1, req.People)
	assert.Nil(t, req.Budget)

	for _, in := range []GenerationInput{
		{},
		{Dish: "   "},
		{Dish: 12},
		{Dish: "Adobo", People: json.Number("0")},
		{Dish: "Adobo", Budget: json.Number("-10")},
	} {
		_, err := ParseGenerationRequest(in)
		assert.True(t, common.IsValidationError(err), "input %+v", in)
	}
}

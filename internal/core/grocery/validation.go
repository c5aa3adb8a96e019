package grocery

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"grocery-recommender/internal/pkg/common"
)

// RecommendationInput 未驗證的比價請求，欄位可能是數字、字串或 JSON 字串
type RecommendationInput struct {
	People      interface{} `json:"people"`
	Budget      interface{} `json:"budget"`
	Ingredients interface{} `json:"ingredients"`
}

// GenerationInput 未驗證的食材生成請求
type GenerationInput struct {
	Dish   interface{} `json:"dish"`
	People interface{} `json:"people"`
	Budget interface{} `json:"budget"`
}

// ParseRecommendationRequest 驗證比價請求
func ParseRecommendationRequest(in RecommendationInput) (*RecommendationRequest, error) {
	people, err := parsePeople(in.People)
	if err != nil {
		return nil, err
	}
	budget, err := parseBudget(in.Budget)
	if err != nil {
		return nil, err
	}
	ingredients, err := parseIngredients(in.Ingredients)
	if err != nil {
		return nil, err
	}

	return &RecommendationRequest{
		People:      people,
		Budget:      budget,
		Ingredients: ingredients,
	}, nil
}

// ParseGenerationRequest 驗證食材生成請求
func ParseGenerationRequest(in GenerationInput) (*GenerationRequest, error) {
	dish, ok := in.Dish.(string)
	if !ok || strings.TrimSpace(dish) == "" {
		return nil, common.NewValidationError("dish must be a non-empty string")
	}
	people, err := parsePeople(in.People)
	if err != nil {
		return nil, err
	}
	budget, err := parseBudget(in.Budget)
	if err != nil {
		return nil, err
	}

	return &GenerationRequest{
		Dish:   strings.TrimSpace(dish),
		People: people,
		Budget: budget,
	}, nil
}

// parsePeople 未提供時為 1，否則必須是不小於 1 的整數
func parsePeople(v interface{}) (int, error) {
	invalid := common.NewValidationError("people must be an integer >= 1")

	var f float64
	switch val := v.(type) {
	case nil:
		return 1, nil
	case json.Number:
		n, err := val.Float64()
		if err != nil {
			return 0, invalid
		}
		f = n
	case float64:
		f = val
	case int:
		f = float64(val)
	case string:
		s := strings.TrimSpace(val)
		if s == "" {
			return 1, nil
		}
		n, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, invalid
		}
		f = n
	default:
		return 0, invalid
	}

	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) || f < 1 || f > math.MaxInt32 {
		return 0, invalid
	}
	return int(f), nil
}

// parseBudget 未提供時為 nil，否則必須是非負數
func parseBudget(v interface{}) (*float64, error) {
	if v == nil {
		return nil, nil
	}
	if s, ok := v.(string); ok && strings.TrimSpace(s) == "" {
		return nil, nil
	}

	budget, ok := common.ParsePrice(v)
	if !ok {
		return nil, common.NewValidationError("budget must be a non-negative number")
	}
	return common.Float(budget), nil
}

// parseIngredients 接受陣列或 JSON 編碼的陣列字串，格式錯誤的元素略過
func parseIngredients(v interface{}) ([]Ingredient, error) {
	if s, ok := v.(string); ok {
		s = strings.TrimSpace(s)
		if s == "" {
			return []Ingredient{}, nil
		}
		var decoded interface{}
		if err := common.ParseJSON(s, &decoded); err != nil {
			return nil, common.NewValidationError("ingredients must be a JSON array")
		}
		v = decoded
	}

	switch val := v.(type) {
	case nil:
		return []Ingredient{}, nil
	case []interface{}:
		return FilterIngredients(val), nil
	default:
		return nil, common.NewValidationError("ingredients must be an array of {name, quantity} objects")
	}
}

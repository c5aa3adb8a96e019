package grocery

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"grocery-recommender/internal/core/oracle"
	"grocery-recommender/internal/pkg/common"

	"go.uber.org/zap"
)

// GenerationErrorKind 食材生成錯誤類別
type GenerationErrorKind string

const (
	// KindOracleFailed 模型呼叫失敗或回應無法解析
	KindOracleFailed GenerationErrorKind = "oracle_failed"
	// KindNotAList 回應是合法 JSON 但不是陣列
	KindNotAList GenerationErrorKind = "not_a_list"
)

// GenerationError 食材生成錯誤
type GenerationError struct {
	Kind GenerationErrorKind
	Err  error
}

func (e *GenerationError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("ingredient generation failed: %s", e.Kind)
	}
	return fmt.Sprintf("ingredient generation failed (%s): %v", e.Kind, e.Err)
}

// Unwrap 取得原始錯誤
func (e *GenerationError) Unwrap() error {
	return e.Err
}

// IngredientService 食材清單生成服務
type IngredientService struct {
	*Service
}

// NewIngredientService 創建新的食材清單生成服務
func NewIngredientService(base *Service) *IngredientService {
	return &IngredientService{Service: base}
}

// GenerateIngredients 請模型列出料理所需食材並依人數調整份量
func (s *IngredientService) GenerateIngredients(ctx context.Context, dish string, people int) ([]Ingredient, error) {
	dish = strings.TrimSpace(dish)
	if dish == "" {
		return nil, common.NewValidationError("dish must be a non-empty string")
	}
	if people < 1 {
		return nil, common.NewValidationError("people must be an integer >= 1")
	}

	items, err := s.queryArray(ctx, ingredientsPrompt(dish, people))
	if errors.Is(err, oracle.ErrUnexpectedShape) {
		common.LogWarn("食材清單格式錯誤", zap.String("dish", dish), zap.Error(err))
		return nil, &GenerationError{Kind: KindNotAList, Err: err}
	}
	if err != nil {
		common.LogError("Failed to generate ingredients",
			zap.String("dish", dish),
			zap.Bool("backend_failure", oracle.IsBackendFailure(err)),
			zap.Error(err),
		)
		return nil, &GenerationError{Kind: KindOracleFailed, Err: err}
	}

	ingredients := FilterIngredients(items)
	common.LogInfo("Successfully generated ingredients",
		zap.String("dish", dish),
		zap.Int("people", people),
		zap.Int("received", len(items)),
		zap.Int("ingredients_count", len(ingredients)),
	)
	return ingredients, nil
}

// FilterIngredients 保留具有非空名稱的物件，其餘元素略過
func FilterIngredients(items []interface{}) []Ingredient {
	ingredients := make([]Ingredient, 0, len(items))
	for _, item := range items {
		obj, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		name, ok := obj["name"].(string)
		if !ok {
			continue
		}
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		ingredients = append(ingredients, Ingredient{
			Name:     name,
			Quantity: quantityString(obj["quantity"]),
		})
	}
	return ingredients
}

func quantityString(v interface{}) string {
	switch q := v.(type) {
	case string:
		return strings.TrimSpace(q)
	case json.Number:
		return q.String()
	case float64:
		return strconv.FormatFloat(q, 'f', -1, 64)
	default:
		return ""
	}
}

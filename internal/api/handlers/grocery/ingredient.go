package grocery

import (
	"net/http"

	groceryService "grocery-recommender/internal/core/grocery"
	"grocery-recommender/internal/pkg/common"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// GeneratedRecommendationResponse 生成食材後直接比價的結果
type GeneratedRecommendationResponse struct {
	Dish string `json:"dish"`
	*groceryService.RecommendationResponse
}

func (h *Handler) parseGeneration(c *gin.Context, requestID string) (*groceryService.GenerationRequest, bool) {
	var in groceryService.GenerationInput
	if err := common.DecodeJSON(c.Request.Body, &in); err != nil {
		h.writeError(c, requestID, common.NewValidationError("request body must be a JSON object: "+err.Error()))
		return nil, false
	}

	req, err := groceryService.ParseGenerationRequest(in)
	if err != nil {
		h.writeError(c, requestID, err)
		return nil, false
	}
	return req, true
}

// HandleGenerateIngredients 依料理名稱與人數生成食材清單
func (h *Handler) HandleGenerateIngredients(c *gin.Context) {
	requestID := requestIDFrom(c)

	req, ok := h.parseGeneration(c, requestID)
	if !ok {
		return
	}

	common.LogInfo("開始處理食材生成請求",
		zap.String("request_id", requestID),
		zap.String("dish", req.Dish),
		zap.Int("people", req.People),
	)

	ingredients, err := h.ingredientService.GenerateIngredients(c.Request.Context(), req.Dish, req.People)
	if err != nil {
		h.writeError(c, requestID, err)
		return
	}

	c.JSON(http.StatusOK, groceryService.GenerationResponse{
		Dish:        req.Dish,
		People:      req.People,
		Ingredients: ingredients,
	})
}

// HandleGenerateRecommendation 生成食材清單後直接比價
func (h *Handler) HandleGenerateRecommendation(c *gin.Context) {
	requestID := requestIDFrom(c)

	req, ok := h.parseGeneration(c, requestID)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	ingredients, err := h.ingredientService.GenerateIngredients(ctx, req.Dish, req.People)
	if err != nil {
		h.writeError(c, requestID, err)
		return
	}

	resp, err := h.priceService.Recommend(ctx, &groceryService.RecommendationRequest{
		People:      req.People,
		Budget:      req.Budget,
		Ingredients: ingredients,
	})
	if err != nil {
		h.writeError(c, requestID, err)
		return
	}

	common.LogInfo("Generated ingredients priced",
		zap.String("request_id", requestID),
		zap.String("dish", req.Dish),
		zap.Int("ingredients_count", len(ingredients)),
	)

	c.JSON(http.StatusOK, GeneratedRecommendationResponse{
		Dish:                   req.Dish,
		RecommendationResponse: resp,
	})
}

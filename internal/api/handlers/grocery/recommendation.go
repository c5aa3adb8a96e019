package grocery

import (
	"net/http"

	groceryService "grocery-recommender/internal/core/grocery"
	"grocery-recommender/internal/pkg/common"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Handler 比價與食材生成處理程序
type Handler struct {
	priceService      *groceryService.PriceService
	ingredientService *groceryService.IngredientService
	debug             bool
}

// NewHandler 創建新的處理程序
func NewHandler(priceService *groceryService.PriceService, ingredientService *groceryService.IngredientService, debug bool) *Handler {
	return &Handler{
		priceService:      priceService,
		ingredientService: ingredientService,
		debug:             debug,
	}
}

// HandleRecommendation 處理 JSON 主體的比價請求
func (h *Handler) HandleRecommendation(c *gin.Context) {
	requestID := requestIDFrom(c)

	var in groceryService.RecommendationInput
	if err := common.DecodeJSON(c.Request.Body, &in); err != nil {
		h.writeError(c, requestID, common.NewValidationError("request body must be a JSON object: "+err.Error()))
		return
	}

	h.recommend(c, requestID, in)
}

// HandleRecommendationQuery 處理查詢字串形式的比價請求，ingredients 為 JSON 字串
func (h *Handler) HandleRecommendationQuery(c *gin.Context) {
	requestID := requestIDFrom(c)

	var in groceryService.RecommendationInput
	if v, ok := c.GetQuery("people"); ok {
		in.People = v
	}
	if v, ok := c.GetQuery("budget"); ok {
		in.Budget = v
	}
	if v, ok := c.GetQuery("ingredients"); ok {
		in.Ingredients = v
	}

	h.recommend(c, requestID, in)
}

func (h *Handler) recommend(c *gin.Context, requestID string, in groceryService.RecommendationInput) {
	req, err := groceryService.ParseRecommendationRequest(in)
	if err != nil {
		h.writeError(c, requestID, err)
		return
	}

	common.LogInfo("開始處理比價請求",
		zap.String("request_id", requestID),
		zap.Int("people", req.People),
		zap.Int("ingredients_count", len(req.Ingredients)),
	)

	resp, err := h.priceService.Recommend(c.Request.Context(), req)
	if err != nil {
		h.writeError(c, requestID, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

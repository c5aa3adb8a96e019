package grocery

import (
	"context"
	"errors"
	"net/http"

	"grocery-recommender/internal/core/catalog"
	groceryService "grocery-recommender/internal/core/grocery"
	"grocery-recommender/internal/pkg/common"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// requestIDFrom 取得或產生請求 ID
func requestIDFrom(c *gin.Context) string {
	requestID := c.GetHeader("X-Request-ID")
	if requestID == "" {
		requestID = c.Writer.Header().Get("X-Request-ID")
	}
	if requestID == "" {
		requestID = common.GenerateUUID()
		c.Header("X-Request-ID", requestID)
	}
	return requestID
}

// classifyError 將服務層錯誤對應為 API 錯誤，第二個回傳值表示是否附上詳細信息
func classifyError(err error) (*common.CustomError, bool) {
	var (
		loadErr   *catalog.LoadError
		genErr    *groceryService.GenerationError
		customErr *common.CustomError
	)

	switch {
	case common.IsValidationError(err):
		return common.ErrValidation.WithError(err), true
	case errors.As(err, &loadErr):
		return common.ErrCatalogUnavailable.WithError(err), false
	case errors.As(err, &genErr):
		return common.ErrGenerationFailed.WithError(err), false
	case errors.Is(err, context.DeadlineExceeded):
		return common.NewError(common.ErrCodeRequestTimeout, "請求超時", http.StatusGatewayTimeout, err), false
	case errors.As(err, &customErr):
		return customErr, false
	default:
		return common.ErrInternalError.WithError(err), false
	}
}

// writeError 寫入錯誤響應
func (h *Handler) writeError(c *gin.Context, requestID string, err error) {
	if errors.Is(err, context.Canceled) {
		common.LogInfo("Client disconnected before completion",
			zap.String("request_id", requestID),
			zap.String("path", c.Request.URL.Path),
		)
		c.Abort()
		return
	}

	apiErr, withDetails := classifyError(err)
	if apiErr.Status >= http.StatusInternalServerError {
		common.LogError("請求處理失敗",
			zap.Error(err),
			zap.String("code", apiErr.Code),
			zap.String("request_id", requestID),
		)
	} else {
		common.LogWarn("請求處理失敗",
			zap.Error(err),
			zap.String("code", apiErr.Code),
			zap.String("request_id", requestID),
		)
	}

	c.AbortWithStatusJSON(apiErr.Status, apiErr.Response(withDetails || h.debug))
}

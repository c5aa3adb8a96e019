package grocery

import (
	"net/http"

	groceryService "grocery-recommender/internal/core/grocery"

	"github.com/gin-gonic/gin"
)

// StoreInfo 商店資訊
type StoreInfo struct {
	ID      string `json:"id"`
	Label   string `json:"label"`
	Records int    `json:"records"`
}

// HandleStores 依標準順序列出商店與資料筆數
func (h *Handler) HandleStores(c *gin.Context) {
	catalogs := h.priceService.Catalogs()
	sizes := catalogs.Sizes()

	stores := make([]StoreInfo, 0, len(sizes))
	for _, id := range catalogs.Stores() {
		stores = append(stores, StoreInfo{
			ID:      id,
			Label:   groceryService.StoreLabel(id),
			Records: sizes[id],
		})
	}

	c.JSON(http.StatusOK, gin.H{"stores": stores})
}

package grocery

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	groceryService "grocery-recommender/internal/core/grocery"
	"grocery-recommender/internal/pkg/common"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	wsWriteWait      = 10 * time.Second
	wsMaxMessageSize = 1 << 20
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// StreamEvent WebSocket 推送事件
type StreamEvent struct {
	Type           string                                 `json:"type"`
	ConnectionID   string                                 `json:"connection_id"`
	Index          *int                                   `json:"index,omitempty"`
	Ingredient     *groceryService.IngredientResult       `json:"ingredient,omitempty"`
	Recommendation *groceryService.RecommendationResponse `json:"recommendation,omitempty"`
	Error          *common.ErrorResponse                  `json:"error,omitempty"`
}

// wsConn 序列化寫入的連線
type wsConn struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (w *wsConn) send(v interface{}) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	_ = w.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
	return w.conn.WriteJSON(v)
}

// HandleRecommendationStream 每收到一筆比價請求即逐項推送食材結果，最後推送彙總
func (h *Handler) HandleRecommendationStream(c *gin.Context) {
	id := c.Param("id")

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		common.LogWarn("WebSocket upgrade failed",
			zap.String("connection_id", id),
			zap.Error(err),
		)
		return
	}
	defer conn.Close()
	conn.SetReadLimit(wsMaxMessageSize)

	ws := &wsConn{conn: conn}
	if err := ws.send(gin.H{"message": "WebSocket connection established"}); err != nil {
		return
	}
	common.LogInfo("WebSocket 連線建立", zap.String("connection_id", id))

	// 用戶端斷線時取消進行中的模型查詢
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	messages := make(chan []byte)
	go func() {
		defer cancel()
		defer close(messages)
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					common.LogWarn("WebSocket read failed",
						zap.String("connection_id", id),
						zap.Error(err),
					)
				}
				return
			}
			select {
			case messages <- data:
			case <-ctx.Done():
				return
			}
		}
	}()

	for data := range messages {
		if !h.streamRecommendation(ctx, ws, id, data) {
			break
		}
	}

	common.LogInfo("WebSocket 連線關閉", zap.String("connection_id", id))
}

// streamRecommendation 處理單一請求，回傳 false 表示連線已無法使用
func (h *Handler) streamRecommendation(ctx context.Context, ws *wsConn, id string, data []byte) bool {
	var in groceryService.RecommendationInput
	if err := common.ParseJSONBytes(data, &in); err != nil {
		return h.sendStreamError(ws, id, common.NewValidationError("message must be a JSON object: "+err.Error()))
	}

	req, err := groceryService.ParseRecommendationRequest(in)
	if err != nil {
		return h.sendStreamError(ws, id, err)
	}

	var sendErr error
	resp, err := h.priceService.Recommend(ctx, req,
		groceryService.WithProgress(func(index int, result groceryService.IngredientResult) {
			if sendErr != nil {
				return
			}
			i := index
			sendErr = ws.send(StreamEvent{
				Type:         "ingredient",
				ConnectionID: id,
				Index:        &i,
				Ingredient:   &result,
			})
		}),
	)
	if sendErr != nil {
		return false
	}
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return false
		}
		return h.sendStreamError(ws, id, err)
	}

	return ws.send(StreamEvent{
		Type:           "summary",
		ConnectionID:   id,
		Recommendation: resp,
	}) == nil
}

func (h *Handler) sendStreamError(ws *wsConn, id string, err error) bool {
	apiErr, withDetails := classifyError(err)
	resp := apiErr.Response(withDetails || h.debug)

	common.LogWarn("WebSocket 請求失敗",
		zap.String("connection_id", id),
		zap.String("code", apiErr.Code),
		zap.Error(err),
	)

	return ws.send(StreamEvent{
		Type:         "error",
		ConnectionID: id,
		Error:        &resp,
	}) == nil
}

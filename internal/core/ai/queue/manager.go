package queue

import (
	"context"
	"sync"
	"sync/atomic"

	"grocery-recommender/internal/infrastructure/config"
	"grocery-recommender/internal/pkg/common"

	"go.uber.org/zap"
)

// Handler 處理單一 prompt 的函式
type Handler func(ctx context.Context, prompt string) (string, error)

// Request 隊列請求
type Request struct {
	Context context.Context
	Prompt  string
	Result  chan Result
}

// Result 處理結果
type Result struct {
	Content string
	Error   error
}

// Status 隊列狀態
type Status struct {
	QueueLength    int  `json:"queue_length"`
	Active         int  `json:"active"`
	ProcessedCount int  `json:"processed_count"`
	MaxQueueSize   int  `json:"max_queue_size"`
	Workers        int  `json:"workers"`
	Running        bool `json:"running"`
}

// Manager 隊列管理器，以固定數量的 worker 限制同時進行的模型請求
type Manager struct {
	config    *config.QueueConfig
	queue     chan *Request
	done      chan struct{}
	processed int64
	active    int64
	started   int32
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// NewManager 創建新的隊列管理器
func NewManager(cfg *config.Config) *Manager {
	return &Manager{
		config: &cfg.Queue,
		queue:  make(chan *Request, cfg.Queue.MaxSize),
		done:   make(chan struct{}),
	}
}

// Start 啟動 worker，重複呼叫無效果
func (m *Manager) Start(handler Handler) {
	if !atomic.CompareAndSwapInt32(&m.started, 0, 1) {
		return
	}

	workers := m.config.Workers
	if workers <= 0 {
		workers = 1
	}
	for i := 0; i < workers; i++ {
		m.wg.Add(1)
		go m.worker(handler)
	}

	common.LogInfo("請求隊列已啟動",
		zap.Int("workers", workers),
		zap.Int("max_queue_size", m.config.MaxSize),
	)
}

func (m *Manager) worker(handler Handler) {
	defer m.wg.Done()

	for {
		select {
		case <-m.done:
			return
		case req := <-m.queue:
			if err := req.Context.Err(); err != nil {
				req.Result <- Result{Error: err}
				continue
			}

			atomic.AddInt64(&m.active, 1)
			content, err := handler(req.Context, req.Prompt)
			atomic.AddInt64(&m.active, -1)
			atomic.AddInt64(&m.processed, 1)

			req.Result <- Result{Content: content, Error: err}
		}
	}
}

// Enqueue 將請求加入隊列，隊列已滿時立即回傳 common.ErrQueueFull
func (m *Manager) Enqueue(ctx context.Context, prompt string) (<-chan Result, error) {
	select {
	case <-m.done:
		return nil, common.ErrQueueClosed
	default:
	}

	req := &Request{
		Context: ctx,
		Prompt:  prompt,
		Result:  make(chan Result, 1),
	}

	select {
	case m.queue <- req:
		common.LogDebug("Request enqueued",
			zap.Int("queue_length", len(m.queue)),
			zap.Int("max_queue_size", m.config.MaxSize),
		)
		return req.Result, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-m.done:
		return nil, common.ErrQueueClosed
	default:
		common.LogWarn("Request queue full", zap.Int("max_queue_size", m.config.MaxSize))
		return nil, common.ErrQueueFull
	}
}

// Submit 加入隊列並等待結果
func (m *Manager) Submit(ctx context.Context, prompt string) (string, error) {
	result, err := m.Enqueue(ctx, prompt)
	if err != nil {
		return "", err
	}

	select {
	case res := <-result:
		return res.Content, res.Error
	case <-ctx.Done():
		return "", ctx.Err()
	case <-m.done:
		return "", common.ErrQueueClosed
	}
}

// GetQueueStatus 獲取隊列狀態
func (m *Manager) GetQueueStatus() *Status {
	running := atomic.LoadInt32(&m.started) == 1
	select {
	case <-m.done:
		running = false
	default:
	}

	return &Status{
		QueueLength:    len(m.queue),
		Active:         int(atomic.LoadInt64(&m.active)),
		ProcessedCount: int(atomic.LoadInt64(&m.processed)),
		MaxQueueSize:   m.config.MaxSize,
		Workers:        m.config.Workers,
		Running:        running,
	}
}

// Close 關閉隊列管理器並等待 worker 結束
func (m *Manager) Close() {
	m.closeOnce.Do(func() {
		close(m.done)
	})
	m.wg.Wait()
}

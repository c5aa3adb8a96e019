package queue

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"grocery-recommender/internal/infrastructure/config"
	"grocery-recommender/internal/pkg/common"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(workers, maxSize int) *Manager {
	return NewManager(&config.Config{
		Queue: config.QueueConfig{Workers: workers, MaxSize: maxSize},
	})
}

func TestSubmitReturnsHandlerResult(t *testing.T) {
	m := newTestManager(2, 4)
	m.Start(func(ctx context.Context, prompt string) (string, error) {
		return strings.ToUpper(prompt), nil
	})
	defer m.Close()

	out, err := m.Submit(context.Background(), "rice")
	require.NoError(t, err)
	assert.Equal(t, "RICE", out)

	status := m.GetQueueStatus()
	assert.Equal(t, 1, status.ProcessedCount)
	assert.True(t, status.Running)
}

func TestSubmitPropagatesHandlerError(t *testing.T) {
	cause := errors.New("upstream down")
	m := newTestManager(1, 1)
	m.Start(func(ctx context.Context, prompt string) (string, error) {
		return "", cause
	})
	defer m.Close()

	_, err := m.Submit(context.Background(), "rice")
	assert.ErrorIs(t, err, cause)
}

func TestWorkersBoundConcurrency(t *testing.T) {
	const workers = 2
	var inFlight, peak int32

	m := newTestManager(workers, 16)
	m.Start(func(ctx context.Context, prompt string) (string, error) {
		n := atomic.AddInt32(&inFlight, 1)
		for {
			p := atomic.LoadInt32(&peak)
			if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
				break
			}
		}
		time.Sleep(10 * time.Millisecond)
		atomic.AddInt32(&inFlight, -1)
		return prompt, nil
	})
	defer m.Close()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := m.Submit(context.Background(), "p")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.LessOrEqual(t, atomic.LoadInt32(&peak), int32(workers))
	assert.Equal(t, 8, m.GetQueueStatus().ProcessedCount)
}

func TestEnqueueFullQueue(t *testing.T) {
	m := newTestManager(1, 1)
	// 未啟動 worker，隊列不會被消化
	_, err := m.Enqueue(context.Background(), "a")
	require.NoError(t, err)

	_, err = m.Enqueue(context.Background(), "b")
	assert.ErrorIs(t, err, common.ErrQueueFull)
	m.Close()
}

func TestSubmitAfterClose(t *testing.T) {
	m := newTestManager(1, 1)
	m.Start(func(ctx context.Context, prompt string) (string, error) { return prompt, nil })
	m.Close()
	m.Close()

	_, err := m.Submit(context.Background(), "a")
	assert.ErrorIs(t, err, common.ErrQueueClosed)
	assert.False(t, m.GetQueueStatus().Running)
}

func TestSubmitHonoursContext(t *testing.T) {
	release := make(chan struct{})
	m := newTestManager(1, 4)
	m.Start(func(ctx context.Context, prompt string) (string, error) {
		<-release
		return prompt, nil
	})
	defer m.Close()
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := m.Submit(ctx, "slow")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

package usecase

import (
	"context"
	"sort"
	"sync"
	"time"

	"social-scheduler/domain/model"
	"social-scheduler/domain/repository"
	"social-scheduler/infrastructure/logger"
)

// BatchListener receives one call per tick.
type BatchListener func(model.BatchResult)

type IServiceController interface {
	Start() bool
	Stop() bool
	IsRunning() bool
	Subscribe(listener BatchListener) (unsubscribe func())
	RunOnce(ctx context.Context) model.BatchResult
	LastBatch() (model.BatchResult, bool)
}

// ServiceController owns the engine lifecycle and fans batch results out to listeners.
type ServiceController struct {
	engine IScheduler

	mu        sync.RWMutex
	listeners map[int]BatchListener
	nextID    int
	last      *model.BatchResult
}

func NewServiceController(engine IScheduler) *ServiceController {
	c := &ServiceController{engine: engine, listeners: make(map[int]BatchListener)}
	engine.SetBatchHandler(c.dispatch)
	return c
}

func (c *ServiceController) Start() bool     { return c.engine.Start() }
func (c *ServiceController) Stop() bool      { return c.engine.Stop() }
func (c *ServiceController) IsRunning() bool { return c.engine.Running() }

// RunOnce triggers a tick immediately; listeners are notified as for a timed tick.
func (c *ServiceController) RunOnce(ctx context.Context) model.BatchResult {
	return c.engine.Tick(ctx)
}

func (c *ServiceController) LastBatch() (model.BatchResult, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.last == nil {
		return model.BatchResult{}, false
	}
	return *c.last, true
}

func (c *ServiceController) Subscribe(listener BatchListener) func() {
	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.listeners[id] = listener
	c.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			delete(c.listeners, id)
			c.mu.Unlock()
		})
	}
}

func (c *ServiceController) dispatch(result model.BatchResult) {
	c.mu.Lock()
	r := result
	c.last = &r
	ids := make([]int, 0, len(c.listeners))
	for id := range c.listeners {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	listeners := make([]BatchListener, 0, len(ids))
	for _, id := range ids {
		listeners = append(listeners, c.listeners[id])
	}
	c.mu.Unlock()

	for _, l := range listeners {
		notify(l, result)
	}
}

func notify(l BatchListener, result model.BatchResult) {
	defer func() {
		if r := recover(); r != nil {
			logger.GetLogger().WithField("panic", r).Error("Batch listener panicked")
		}
	}()
	l(result)
}

// PublisherListener forwards batches to a broker, bounding each send by timeout.
func PublisherListener(name string, p repository.IBatchPublisher, timeout time.Duration) BatchListener {
	return func(result model.BatchResult) {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		if err := p.PublishBatch(ctx, result); err != nil {
			logger.GetLogger().WithField("publisher", name).WithField("error", err).Warn("Failed to publish batch event")
		}
	}
}

// HistoryListener records every batch summary.
func HistoryListener(h repository.IBatchHistory, timeout time.Duration) BatchListener {
	return func(result model.BatchResult) {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		if err := h.Record(ctx, result); err != nil {
			logger.GetLogger().WithField("error", err).Warn("Failed to record batch history")
		}
	}
}

var _ IServiceController = (*ServiceController)(nil)

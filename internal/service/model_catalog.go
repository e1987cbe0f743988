package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"llmdesk/internal/model"
	"llmdesk/pkg/logger"

	"golang.org/x/sync/singleflight"
)

type ModelLister interface {
	ListModels(ctx context.Context) ([]model.ModelInfo, error)
}

// ModelCatalog 缓存可用模型列表；并发刷新合并为一次外部调用
type ModelCatalog struct {
	lister ModelLister
	group  singleflight.Group

	mu          sync.RWMutex
	models      []model.ModelInfo
	refreshedAt time.Time
}

func NewModelCatalog(lister ModelLister) *ModelCatalog {
	return &ModelCatalog{lister: lister}
}

func (c *ModelCatalog) Refresh(ctx context.Context) ([]model.ModelInfo, error) {
	v, err, _ := c.group.Do("models", func() (interface{}, error) {
		models, err := c.lister.ListModels(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list models: %w", err)
		}

		c.mu.Lock()
		c.models = models
		c.refreshedAt = time.Now()
		c.mu.Unlock()

		logger.Debugf("Model catalog refreshed: %d models", len(models))
		return models, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]model.ModelInfo), nil
}

// Models 返回缓存的列表；从未刷新过时先刷新一次
func (c *ModelCatalog) Models(ctx context.Context) ([]model.ModelInfo, error) {
	c.mu.RLock()
	models, refreshed := c.models, !c.refreshedAt.IsZero()
	c.mu.RUnlock()

	if refreshed {
		return models, nil
	}
	return c.Refresh(ctx)
}

func (c *ModelCatalog) RefreshedAt() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.refreshedAt
}

// OnOperationCompleted 作为下载轮询器的完成回调
func (c *ModelCatalog) OnOperationCompleted(ctx context.Context, key string) {
	if _, err := c.Refresh(ctx); err != nil {
		logger.Warnf("Failed to refresh models after %s completed: %v", key, err)
	}
}

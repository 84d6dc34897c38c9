// Package cache 缓存层 mock 实现
package cache

import (
	"context"

	"blossom-shop/internal/shared/model"
)

// NoOpCache 是一个不做任何操作的 Cache 实现（用于测试和未配置 Redis 的场景）
type NoOpCache struct{}

// NewNoOpCache 创建 NoOpCache 实例
func NewNoOpCache() *NoOpCache {
	return &NoOpCache{}
}

// Close 关闭缓存
func (c *NoOpCache) Close() error {
	return nil
}

func (c *NoOpCache) GetProductList(ctx context.Context, key string) ([]*model.Product, error) {
	return nil, nil
}

func (c *NoOpCache) SetProductList(ctx context.Context, key string, products []*model.Product) error {
	return nil
}

func (c *NoOpCache) GetProduct(ctx context.Context, id string) (*model.Product, error) {
	return nil, nil
}

func (c *NoOpCache) SetProduct(ctx context.Context, product *model.Product) error {
	return nil
}

func (c *NoOpCache) InvalidateProducts(ctx context.Context) error {
	return nil
}

var _ Cache = (*NoOpCache)(nil)

// Package cache 缓存层抽象接口
//
// 提供商品目录的读缓存能力，当前由 Redis 实现。
package cache

import (
	"context"
	"time"

	"blossom-shop/internal/shared/model"
)

// ProductCache 商品缓存接口
//
// Get 返回 (nil, nil) 表示缓存未命中；写操作失败只应记录日志，
// 不应影响主流程（缓存是加速层，不是数据源）。
type ProductCache interface {
	GetProductList(ctx context.Context, key string) ([]*model.Product, error)
	SetProductList(ctx context.Context, key string, products []*model.Product) error
	GetProduct(ctx context.Context, id string) (*model.Product, error)
	SetProduct(ctx context.Context, product *model.Product) error
	// InvalidateProducts 清除全部商品缓存（写操作后调用）
	InvalidateProducts(ctx context.Context) error
}

// Cache 缓存组合接口
type Cache interface {
	ProductCache
	Close() error
}

// Key 前缀和 TTL 常量
const (
	// Key 前缀
	KeyProduct     = "product:"
	KeyProductList = "product_list:"

	// TTL 常量
	TTLProduct     = 5 * time.Minute
	TTLProductList = 1 * time.Minute
)

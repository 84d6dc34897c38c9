// Package redis 商品缓存操作
package redis

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"

	"blossom-shop/internal/shared/cache"
	"blossom-shop/internal/shared/model"
)

// GetProductList 按查询键获取商品列表缓存
func (s *Store) GetProductList(ctx context.Context, key string) ([]*model.Product, error) {
	data, err := s.client.Get(ctx, cache.KeyProductList+key).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var products []*model.Product
	if err := json.Unmarshal([]byte(data), &products); err != nil {
		return nil, err
	}
	return products, nil
}

// SetProductList 写入商品列表缓存
func (s *Store) SetProductList(ctx context.Context, key string, products []*model.Product) error {
	data, err := json.Marshal(products)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, cache.KeyProductList+key, data, cache.TTLProductList).Err()
}

// GetProduct 获取单个商品缓存
func (s *Store) GetProduct(ctx context.Context, id string) (*model.Product, error) {
	data, err := s.client.Get(ctx, cache.KeyProduct+id).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var product model.Product
	if err := json.Unmarshal([]byte(data), &product); err != nil {
		return nil, err
	}
	return &product, nil
}

// SetProduct 写入单个商品缓存
func (s *Store) SetProduct(ctx context.Context, product *model.Product) error {
	data, err := json.Marshal(product)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, cache.KeyProduct+product.ID, data, cache.TTLProduct).Err()
}

// InvalidateProducts 清除全部商品缓存
//
// 使用 SCAN 替代 KEYS，避免在键数量大时阻塞 Redis
func (s *Store) InvalidateProducts(ctx context.Context) error {
	for _, pattern := range []string{cache.KeyProduct + "*", cache.KeyProductList + "*"} {
		iter := s.client.Scan(ctx, 0, pattern, 100).Iterator()
		for iter.Next(ctx) {
			if err := s.client.Del(ctx, iter.Val()).Err(); err != nil {
				return err
			}
		}
		if err := iter.Err(); err != nil {
			return err
		}
	}
	return nil
}

var _ cache.Cache = (*Store)(nil)

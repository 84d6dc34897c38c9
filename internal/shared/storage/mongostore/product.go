package mongostore

import (
	"context"
	"time"

	"blossom-shop/internal/shared/model"
	"blossom-shop/internal/shared/storage"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// ============================================================================
// ProductStore
// ============================================================================

// 可排序字段白名单（防止任意字段注入排序）
var productSortFields = map[string]bool{
	"created_at":    true,
	"name":          true,
	"bouquet_price": true,
}

func (s *Store) CreateProduct(ctx context.Context, p *model.Product) error {
	return insertOne(ctx, s.col(ColProducts), p)
}

func (s *Store) GetProduct(ctx context.Context, id string) (*model.Product, error) {
	return findOne[model.Product](ctx, s.col(ColProducts), bson.D{{Key: "_id", Value: id}})
}

func (s *Store) UpdateProduct(ctx context.Context, p *model.Product) error {
	p.UpdatedAt = time.Now()
	return replaceByID(ctx, s.col(ColProducts), p.ID, p)
}

func (s *Store) DeleteProduct(ctx context.Context, id string) error {
	return deleteByID(ctx, s.col(ColProducts), id)
}

func (s *Store) ListProducts(ctx context.Context, filter storage.ProductFilter) ([]*model.Product, int, error) {
	query := bson.D{}
	if filter.Category != "" {
		query = append(query, bson.E{Key: "category", Value: filter.Category})
	}
	if filter.Search != "" {
		query = append(query, bson.E{Key: "name", Value: bson.D{
			{Key: "$regex", Value: filter.Search},
			{Key: "$options", Value: "i"},
		}})
	}

	total, err := countDocs(ctx, s.col(ColProducts), query)
	if err != nil {
		return nil, 0, err
	}

	sortBy := filter.SortBy
	if !productSortFields[sortBy] {
		sortBy = "created_at"
	}
	dir := -1
	if filter.Order == "asc" {
		dir = 1
	}

	opts := options.Find().SetSort(bson.D{{Key: sortBy, Value: dir}})
	if filter.Offset > 0 {
		opts = opts.SetSkip(int64(filter.Offset))
	}
	if filter.Limit > 0 {
		opts = opts.SetLimit(int64(filter.Limit))
	}

	products, err := findMany[model.Product](ctx, s.col(ColProducts), query, opts)
	if err != nil {
		return nil, 0, err
	}
	return products, total, nil
}

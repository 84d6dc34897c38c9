package mongostore

import (
	"context"
	"time"

	"blossom-shop/internal/shared/model"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// ============================================================================
// OrderStore
// ============================================================================

func (s *Store) CreateOrder(ctx context.Context, o *model.Order) error {
	return insertOne(ctx, s.col(ColOrders), o)
}

func (s *Store) GetOrder(ctx context.Context, id string) (*model.Order, error) {
	return findOne[model.Order](ctx, s.col(ColOrders), bson.D{{Key: "_id", Value: id}})
}

func (s *Store) ListOrdersByUser(ctx context.Context, userID string) ([]*model.Order, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	return findMany[model.Order](ctx, s.col(ColOrders), bson.D{{Key: "user_id", Value: userID}}, opts)
}

func (s *Store) ListOrders(ctx context.Context, limit, offset int) ([]*model.Order, int, error) {
	total, err := countDocs(ctx, s.col(ColOrders), bson.D{})
	if err != nil {
		return nil, 0, err
	}

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	if offset > 0 {
		opts = opts.SetSkip(int64(offset))
	}
	if limit > 0 {
		opts = opts.SetLimit(int64(limit))
	}

	orders, err := findMany[model.Order](ctx, s.col(ColOrders), bson.D{}, opts)
	if err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

func (s *Store) UpdateOrderStatus(ctx context.Context, id string, status model.OrderStatus) error {
	return updateByID(ctx, s.col(ColOrders), id, bson.D{
		{Key: "$set", Value: bson.D{
			{Key: "status", Value: status},
			{Key: "updated_at", Value: time.Now()},
		}},
	})
}

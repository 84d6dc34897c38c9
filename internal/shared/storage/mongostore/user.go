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
// UserStore
// ============================================================================

func (s *Store) CreateUser(ctx context.Context, user *model.User) error {
	return insertOne(ctx, s.col(ColUsers), user)
}

func (s *Store) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	return findOne[model.User](ctx, s.col(ColUsers), bson.D{{Key: "_id", Value: id}})
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	return findOne[model.User](ctx, s.col(ColUsers), bson.D{{Key: "email", Value: email}})
}

func (s *Store) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	return findOne[model.User](ctx, s.col(ColUsers), bson.D{{Key: "username", Value: username}})
}

func (s *Store) GetUserByResetTokenHash(ctx context.Context, tokenHash string) (*model.User, error) {
	if tokenHash == "" {
		return nil, nil
	}
	return findOne[model.User](ctx, s.col(ColUsers), bson.D{{Key: "reset_token_hash", Value: tokenHash}})
}

func (s *Store) UpdateUser(ctx context.Context, user *model.User) error {
	user.UpdatedAt = time.Now()
	return replaceByID(ctx, s.col(ColUsers), user.ID, user)
}

// UpdateUserPassword 写入新密码哈希并在同一次更新中清除重置令牌字段
func (s *Store) UpdateUserPassword(ctx context.Context, id, passwordHash string) error {
	return updateByID(ctx, s.col(ColUsers), id, bson.D{
		{Key: "$set", Value: bson.D{
			{Key: "password_hash", Value: passwordHash},
			{Key: "updated_at", Value: time.Now()},
		}},
		{Key: "$unset", Value: bson.D{
			{Key: "reset_token_hash", Value: ""},
			{Key: "reset_expires", Value: ""},
		}},
	})
}

func (s *Store) SetUserResetToken(ctx context.Context, id, tokenHash string, expires time.Time) error {
	return updateByID(ctx, s.col(ColUsers), id, bson.D{
		{Key: "$set", Value: bson.D{
			{Key: "reset_token_hash", Value: tokenHash},
			{Key: "reset_expires", Value: expires},
			{Key: "updated_at", Value: time.Now()},
		}},
	})
}

func (s *Store) DeleteUser(ctx context.Context, id string) error {
	return deleteByID(ctx, s.col(ColUsers), id)
}

func (s *Store) ListUsers(ctx context.Context, filter storage.UserFilter) ([]*model.User, int, error) {
	query := bson.D{}
	if filter.Role != "" {
		query = append(query, bson.E{Key: "role", Value: filter.Role})
	}
	if filter.Search != "" {
		regex := bson.D{{Key: "$regex", Value: filter.Search}, {Key: "$options", Value: "i"}}
		query = append(query, bson.E{Key: "$or", Value: bson.A{
			bson.D{{Key: "username", Value: regex}},
			bson.D{{Key: "email", Value: regex}},
			bson.D{{Key: "first_name", Value: regex}},
			bson.D{{Key: "last_name", Value: regex}},
		}})
	}

	total, err := countDocs(ctx, s.col(ColUsers), query)
	if err != nil {
		return nil, 0, err
	}

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	if filter.Offset > 0 {
		opts = opts.SetSkip(int64(filter.Offset))
	}
	if filter.Limit > 0 {
		opts = opts.SetLimit(int64(filter.Limit))
	}

	users, err := findMany[model.User](ctx, s.col(ColUsers), query, opts)
	if err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

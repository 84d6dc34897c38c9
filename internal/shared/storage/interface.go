package storage

import (
	"context"
	"time"

	"blossom-shop/internal/shared/model"
)

// UserFilter 用户列表查询条件
type UserFilter struct {
	Search string // 模糊匹配 username/email/姓名
	Role   string // 按角色筛选
	Limit  int
	Offset int
}

// ProductFilter 商品列表查询条件
type ProductFilter struct {
	Search   string // 模糊匹配名称
	Category string
	SortBy   string // created_at | name | bouquet_price
	Order    string // asc | desc
	Limit    int
	Offset   int
}

// UserStore 用户目录
//
// 业务层只通过本接口读写用户记录，唯一性最终由存储层唯一索引保证：
// 即使调用方做了存在性预检查，CreateUser 仍可能返回 ErrDuplicate。
type UserStore interface {
	CreateUser(ctx context.Context, user *model.User) error
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	GetUserByUsername(ctx context.Context, username string) (*model.User, error)
	// GetUserByResetTokenHash 按重置令牌摘要查找，过期校验由调用方完成
	GetUserByResetTokenHash(ctx context.Context, tokenHash string) (*model.User, error)
	// UpdateUser 整体替换（updated_at 由存储层刷新）
	UpdateUser(ctx context.Context, user *model.User) error
	// UpdateUserPassword 写入新密码哈希并清除重置令牌字段（单文档原子更新）
	UpdateUserPassword(ctx context.Context, id, passwordHash string) error
	// SetUserResetToken 写入重置令牌摘要与过期时间（覆盖旧令牌）
	SetUserResetToken(ctx context.Context, id, tokenHash string, expires time.Time) error
	DeleteUser(ctx context.Context, id string) error
	// ListUsers 返回 (用户列表, 满足条件的总数)
	ListUsers(ctx context.Context, filter UserFilter) ([]*model.User, int, error)
}

// ProductStore 商品存储
type ProductStore interface {
	CreateProduct(ctx context.Context, p *model.Product) error
	GetProduct(ctx context.Context, id string) (*model.Product, error)
	UpdateProduct(ctx context.Context, p *model.Product) error
	DeleteProduct(ctx context.Context, id string) error
	ListProducts(ctx context.Context, filter ProductFilter) ([]*model.Product, int, error)
}

// OrderStore 订单存储
type OrderStore interface {
	CreateOrder(ctx context.Context, o *model.Order) error
	GetOrder(ctx context.Context, id string) (*model.Order, error)
	ListOrdersByUser(ctx context.Context, userID string) ([]*model.Order, error)
	ListOrders(ctx context.Context, limit, offset int) ([]*model.Order, int, error)
	UpdateOrderStatus(ctx context.Context, id string, status model.OrderStatus) error
}

// PersistentStore 持久化存储全集
type PersistentStore interface {
	UserStore
	ProductStore
	OrderStore
	Close() error
}

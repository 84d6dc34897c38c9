// memstore.go 提供用于测试的内存版 PersistentStore
//
// 行为与 mongostore 对齐：唯一索引冲突返回 ErrDuplicate，
// 查不到返回 (nil, nil)，更新不存在的实体返回 ErrNotFound。
package storage

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"blossom-shop/internal/shared/model"
)

// MemStore 内存存储（仅测试用）
type MemStore struct {
	mu       sync.RWMutex
	users    map[string]*model.User
	products map[string]*model.Product
	orders   map[string]*model.Order
}

// NewMemStore 创建内存存储实例
func NewMemStore() *MemStore {
	return &MemStore{
		users:    make(map[string]*model.User),
		products: make(map[string]*model.Product),
		orders:   make(map[string]*model.Order),
	}
}

// Close 关闭存储
func (s *MemStore) Close() error { return nil }

var _ PersistentStore = (*MemStore)(nil)

// ============================================================================
// UserStore
// ============================================================================

func (s *MemStore) CreateUser(ctx context.Context, user *model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[user.ID]; ok {
		return ErrDuplicate
	}
	for _, u := range s.users {
		if u.Email == user.Email || u.Username == user.Username {
			return ErrDuplicate
		}
	}
	cp := *user
	s.users[user.ID] = &cp
	return nil
}

func (s *MemStore) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if u, ok := s.users[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, nil
}

func (s *MemStore) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	return s.findUser(func(u *model.User) bool { return u.Email == email })
}

func (s *MemStore) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	return s.findUser(func(u *model.User) bool { return u.Username == username })
}

func (s *MemStore) GetUserByResetTokenHash(ctx context.Context, tokenHash string) (*model.User, error) {
	if tokenHash == "" {
		return nil, nil
	}
	return s.findUser(func(u *model.User) bool { return u.ResetTokenHash == tokenHash })
}

func (s *MemStore) findUser(match func(*model.User) bool) (*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if match(u) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *MemStore) UpdateUser(ctx context.Context, user *model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[user.ID]; !ok {
		return ErrNotFound
	}
	for _, u := range s.users {
		if u.ID == user.ID {
			continue
		}
		if u.Email == user.Email || u.Username == user.Username {
			return ErrDuplicate
		}
	}
	cp := *user
	cp.UpdatedAt = time.Now()
	s.users[user.ID] = &cp
	return nil
}

func (s *MemStore) UpdateUserPassword(ctx context.Context, id, passwordHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return ErrNotFound
	}
	u.PasswordHash = passwordHash
	u.ResetTokenHash = ""
	u.ResetExpires = nil
	u.UpdatedAt = time.Now()
	return nil
}

func (s *MemStore) SetUserResetToken(ctx context.Context, id, tokenHash string, expires time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return ErrNotFound
	}
	u.ResetTokenHash = tokenHash
	u.ResetExpires = &expires
	u.UpdatedAt = time.Now()
	return nil
}

func (s *MemStore) DeleteUser(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[id]; !ok {
		return ErrNotFound
	}
	delete(s.users, id)
	return nil
}

func (s *MemStore) ListUsers(ctx context.Context, filter UserFilter) ([]*model.User, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var all []*model.User
	for _, u := range s.users {
		if filter.Role != "" && string(u.Role) != filter.Role {
			continue
		}
		if filter.Search != "" && !userMatches(u, filter.Search) {
			continue
		}
		cp := *u
		all = append(all, &cp)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })
	total := len(all)
	return paginate(all, filter.Limit, filter.Offset), total, nil
}

func userMatches(u *model.User, search string) bool {
	q := strings.ToLower(search)
	for _, f := range []string{u.Username, u.Email, u.FirstName, u.LastName} {
		if strings.Contains(strings.ToLower(f), q) {
			return true
		}
	}
	return false
}

// ============================================================================
// ProductStore
// ============================================================================

func (s *MemStore) CreateProduct(ctx context.Context, p *model.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.products[p.ID]; ok {
		return ErrDuplicate
	}
	cp := *p
	s.products[p.ID] = &cp
	return nil
}

func (s *MemStore) GetProduct(ctx context.Context, id string) (*model.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if p, ok := s.products[id]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, nil
}

func (s *MemStore) UpdateProduct(ctx context.Context, p *model.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.products[p.ID]; !ok {
		return ErrNotFound
	}
	cp := *p
	cp.UpdatedAt = time.Now()
	s.products[p.ID] = &cp
	return nil
}

func (s *MemStore) DeleteProduct(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.products[id]; !ok {
		return ErrNotFound
	}
	delete(s.products, id)
	return nil
}

func (s *MemStore) ListProducts(ctx context.Context, filter ProductFilter) ([]*model.Product, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var all []*model.Product
	for _, p := range s.products {
		if filter.Category != "" && p.Category != filter.Category {
			continue
		}
		if filter.Search != "" && !strings.Contains(strings.ToLower(p.Name), strings.ToLower(filter.Search)) {
			continue
		}
		cp := *p
		all = append(all, &cp)
	}

	asc := filter.Order == "asc"
	sort.Slice(all, func(i, j int) bool {
		var less bool
		switch filter.SortBy {
		case "name":
			less = all[i].Name < all[j].Name
		case "bouquet_price":
			less = all[i].BouquetPrice < all[j].BouquetPrice
		default:
			less = all[i].CreatedAt.Before(all[j].CreatedAt)
		}
		if asc {
			return less
		}
		return !less
	})
	total := len(all)
	return paginate(all, filter.Limit, filter.Offset), total, nil
}

// ============================================================================
// OrderStore
// ============================================================================

func (s *MemStore) CreateOrder(ctx context.Context, o *model.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.orders[o.ID]; ok {
		return ErrDuplicate
	}
	for _, existing := range s.orders {
		if existing.OrderNumber == o.OrderNumber {
			return ErrDuplicate
		}
	}
	cp := *o
	s.orders[o.ID] = &cp
	return nil
}

func (s *MemStore) GetOrder(ctx context.Context, id string) (*model.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if o, ok := s.orders[id]; ok {
		cp := *o
		return &cp, nil
	}
	return nil, nil
}

func (s *MemStore) ListOrdersByUser(ctx context.Context, userID string) ([]*model.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var result []*model.Order
	for _, o := range s.orders {
		if o.UserID == userID {
			cp := *o
			result = append(result, &cp)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.After(result[j].CreatedAt) })
	return result, nil
}

func (s *MemStore) ListOrders(ctx context.Context, limit, offset int) ([]*model.Order, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var all []*model.Order
	for _, o := range s.orders {
		cp := *o
		all = append(all, &cp)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })
	total := len(all)
	return paginate(all, limit, offset), total, nil
}

func (s *MemStore) UpdateOrderStatus(ctx context.Context, id string, status model.OrderStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return ErrNotFound
	}
	o.Status = status
	o.UpdatedAt = time.Now()
	return nil
}

// paginate 切片分页
func paginate[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return []T{}
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}

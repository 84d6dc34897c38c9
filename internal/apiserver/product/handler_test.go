package product

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"blossom-shop/internal/apiserver/auth"
	"blossom-shop/internal/shared/model"
	"blossom-shop/internal/shared/storage"
)

// fakeCache 可观测的内存缓存实现
type fakeCache struct {
	lists       map[string][]*model.Product
	products    map[string]*model.Product
	invalidated int
}

func newFakeCache() *fakeCache {
	return &fakeCache{
		lists:    make(map[string][]*model.Product),
		products: make(map[string]*model.Product),
	}
}

func (c *fakeCache) GetProductList(ctx context.Context, key string) ([]*model.Product, error) {
	return c.lists[key], nil
}

func (c *fakeCache) SetProductList(ctx context.Context, key string, products []*model.Product) error {
	c.lists[key] = products
	return nil
}

func (c *fakeCache) GetProduct(ctx context.Context, id string) (*model.Product, error) {
	return c.products[id], nil
}

func (c *fakeCache) SetProduct(ctx context.Context, product *model.Product) error {
	c.products[product.ID] = product
	return nil
}

func (c *fakeCache) InvalidateProducts(ctx context.Context) error {
	c.lists = make(map[string][]*model.Product)
	c.products = make(map[string]*model.Product)
	c.invalidated++
	return nil
}

type testEnv struct {
	store *storage.MemStore
	cache *fakeCache
	mux   *http.ServeMux
	admin *auth.AuthUser
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{
		store: storage.NewMemStore(),
		cache: newFakeCache(),
		admin: &auth.AuthUser{ID: "user-admin1", Role: "admin"},
	}
	env.mux = http.NewServeMux()
	NewHandler(env.store, env.cache).RegisterRoutes(env.mux)
	return env
}

func seedProduct(t *testing.T, store *storage.MemStore, id, name, category string, bouquetPrice int64) {
	t.Helper()
	now := time.Now()
	err := store.CreateProduct(context.Background(), &model.Product{
		ID: id, Name: name, Category: category,
		PricePerStem: 350, BouquetPrice: bouquetPrice, InStock: true,
		CreatedAt: now, UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("seed product %s: %v", name, err)
	}
}

func (env *testEnv) do(t *testing.T, method, path, body string, user *auth.AuthUser) *httptest.ResponseRecorder {
	t.Helper()
	var r *http.Request
	if body != "" {
		r = httptest.NewRequest(method, path, strings.NewReader(body))
	} else {
		r = httptest.NewRequest(method, path, nil)
	}
	if user != nil {
		r = r.WithContext(auth.WithAuthUser(r.Context(), user))
	}
	w := httptest.NewRecorder()
	env.mux.ServeHTTP(w, r)
	return w
}

func TestListProducts(t *testing.T) {
	env := newTestEnv(t)
	seedProduct(t, env.store, "prod-1", "Red Rose", "roses", 2500)
	seedProduct(t, env.store, "prod-2", "White Tulip", "tulips", 1800)

	// 无需登录
	w := env.do(t, "GET", "/api/v1/products", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var out struct {
		Data struct {
			Products []*model.Product `json:"products"`
			Count    int              `json:"count"`
		} `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if out.Data.Count != 2 {
		t.Errorf("count = %d, want 2", out.Data.Count)
	}

	// 列表已写入缓存，命中后不再查库
	if len(env.cache.lists) != 1 {
		t.Fatalf("cache lists = %d, want 1", len(env.cache.lists))
	}
	env.store.DeleteProduct(context.Background(), "prod-1")
	w = env.do(t, "GET", "/api/v1/products", "", nil)
	json.Unmarshal(w.Body.Bytes(), &out)
	if out.Data.Count != 2 {
		t.Errorf("cached count = %d, want 2 (served from cache)", out.Data.Count)
	}

	// 分类过滤用不同缓存键
	w = env.do(t, "GET", "/api/v1/products?category=tulips", "", nil)
	json.Unmarshal(w.Body.Bytes(), &out)
	if out.Data.Count != 1 {
		t.Errorf("category filter: count = %d, want 1", out.Data.Count)
	}
}

func TestGetProduct(t *testing.T) {
	env := newTestEnv(t)
	seedProduct(t, env.store, "prod-1", "Red Rose", "roses", 2500)

	w := env.do(t, "GET", "/api/v1/products/prod-1", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if env.cache.products["prod-1"] == nil {
		t.Error("product not cached after read")
	}

	w = env.do(t, "GET", "/api/v1/products/prod-nope", "", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("unknown product: status = %d, want 404", w.Code)
	}
}

func TestCreateProduct(t *testing.T) {
	env := newTestEnv(t)

	body := `{"name":"Red Rose","category":"roses","price_per_stem":350,"bouquet_price":2500}`

	// 未登录 → 401，普通用户 → 403
	if w := env.do(t, "POST", "/api/v1/products", body, nil); w.Code != http.StatusUnauthorized {
		t.Errorf("anonymous: status = %d, want 401", w.Code)
	}
	normal := &auth.AuthUser{ID: "user-x", Role: "user"}
	if w := env.do(t, "POST", "/api/v1/products", body, normal); w.Code != http.StatusForbidden {
		t.Errorf("non-admin: status = %d, want 403", w.Code)
	}

	w := env.do(t, "POST", "/api/v1/products", body, env.admin)
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	if env.cache.invalidated != 1 {
		t.Errorf("invalidated = %d, want 1", env.cache.invalidated)
	}

	// 校验失败
	tests := []struct {
		name string
		body string
	}{
		{"缺少名称", `{"bouquet_price":2500}`},
		{"负价格", `{"name":"x","bouquet_price":-1}`},
		{"折扣越界", `{"name":"x","discount":120}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if w := env.do(t, "POST", "/api/v1/products", tt.body, env.admin); w.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", w.Code)
			}
		})
	}
}

func TestUpdateAndDeleteProduct(t *testing.T) {
	env := newTestEnv(t)
	seedProduct(t, env.store, "prod-1", "Red Rose", "roses", 2500)

	w := env.do(t, "PUT", "/api/v1/products/prod-1",
		`{"name":"Red Rose Deluxe","category":"roses","bouquet_price":3000,"in_stock":false}`, env.admin)
	if w.Code != http.StatusOK {
		t.Fatalf("update: status = %d, body = %s", w.Code, w.Body.String())
	}
	p, _ := env.store.GetProduct(context.Background(), "prod-1")
	if p.Name != "Red Rose Deluxe" || p.BouquetPrice != 3000 || p.InStock {
		t.Errorf("after update: %+v", p)
	}
	if env.cache.invalidated != 1 {
		t.Errorf("invalidated = %d, want 1", env.cache.invalidated)
	}

	w = env.do(t, "PUT", "/api/v1/products/prod-nope", `{"name":"x"}`, env.admin)
	if w.Code != http.StatusNotFound {
		t.Errorf("unknown product update: status = %d, want 404", w.Code)
	}

	w = env.do(t, "DELETE", "/api/v1/products/prod-1", "", env.admin)
	if w.Code != http.StatusOK {
		t.Fatalf("delete: status = %d", w.Code)
	}
	if p, _ := env.store.GetProduct(context.Background(), "prod-1"); p != nil {
		t.Error("product still exists after delete")
	}
	if env.cache.invalidated != 2 {
		t.Errorf("invalidated = %d, want 2", env.cache.invalidated)
	}
}

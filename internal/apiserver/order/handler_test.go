package order

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

type testEnv struct {
	store *storage.MemStore
	mux   *http.ServeMux
	alice *auth.AuthUser
	bob   *auth.AuthUser
	admin *auth.AuthUser
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{
		store: storage.NewMemStore(),
		alice: &auth.AuthUser{ID: "user-alice", Username: "alice", Role: "user"},
		bob:   &auth.AuthUser{ID: "user-bob", Username: "bob", Role: "user"},
		admin: &auth.AuthUser{ID: "user-admin1", Username: "root", Role: "admin"},
	}
	env.mux = http.NewServeMux()
	NewHandler(env.store, env.store).RegisterRoutes(env.mux)

	now := time.Now()
	for _, p := range []*model.Product{
		{ID: "prod-rose", Name: "Red Rose", BouquetPrice: 2500, InStock: true, CreatedAt: now, UpdatedAt: now},
		{ID: "prod-tulip", Name: "White Tulip", BouquetPrice: 1800, InStock: true, CreatedAt: now, UpdatedAt: now},
		{ID: "prod-gone", Name: "Wilted Lily", BouquetPrice: 900, InStock: false, CreatedAt: now, UpdatedAt: now},
	} {
		if err := env.store.CreateProduct(context.Background(), p); err != nil {
			t.Fatalf("seed product: %v", err)
		}
	}
	return env
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

func decodeOrder(t *testing.T, w *httptest.ResponseRecorder) *model.Order {
	t.Helper()
	var out struct {
		Data *model.Order `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("invalid JSON: %v\nbody: %s", err, w.Body.String())
	}
	return out.Data
}

func TestCreateOrder(t *testing.T) {
	env := newTestEnv(t)

	body := `{"items":[{"product_id":"prod-rose","quantity":2},{"product_id":"prod-tulip","quantity":1}],
		"delivery_address":"1 Garden St","payment_method":"card"}`

	// 未登录 → 401
	if w := env.do(t, "POST", "/api/v1/orders", body, nil); w.Code != http.StatusUnauthorized {
		t.Errorf("anonymous: status = %d, want 401", w.Code)
	}

	w := env.do(t, "POST", "/api/v1/orders", body, env.alice)
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	order := decodeOrder(t, w)
	// 总价由服务端按现价计算：2*2500 + 1*1800
	if order.Total != 6800 {
		t.Errorf("total = %d, want 6800", order.Total)
	}
	if order.Status != model.OrderStatusPending {
		t.Errorf("status = %q, want pending", order.Status)
	}
	if order.UserID != "user-alice" {
		t.Errorf("user_id = %q", order.UserID)
	}
	if !strings.HasPrefix(order.OrderNumber, "ORD-") || len(order.OrderNumber) != 12 {
		t.Errorf("order_number = %q", order.OrderNumber)
	}
	// 条目是商品快照
	if len(order.Items) != 2 || order.Items[0].Name != "Red Rose" || order.Items[0].Price != 2500 {
		t.Errorf("items = %+v", order.Items)
	}

	tests := []struct {
		name string
		body string
	}{
		{"空条目", `{"items":[],"delivery_address":"1 Garden St"}`},
		{"缺少地址", `{"items":[{"product_id":"prod-rose","quantity":1}]}`},
		{"数量为零", `{"items":[{"product_id":"prod-rose","quantity":0}],"delivery_address":"x"}`},
		{"未知商品", `{"items":[{"product_id":"prod-nope","quantity":1}],"delivery_address":"x"}`},
		{"缺货商品", `{"items":[{"product_id":"prod-gone","quantity":1}],"delivery_address":"x"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if w := env.do(t, "POST", "/api/v1/orders", tt.body, env.alice); w.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", w.Code)
			}
		})
	}
}

func TestOrderVisibility(t *testing.T) {
	env := newTestEnv(t)
	body := `{"items":[{"product_id":"prod-rose","quantity":1}],"delivery_address":"1 Garden St"}`
	w := env.do(t, "POST", "/api/v1/orders", body, env.alice)
	order := decodeOrder(t, w)

	// 本人可见
	if w := env.do(t, "GET", "/api/v1/orders/"+order.ID, "", env.alice); w.Code != http.StatusOK {
		t.Errorf("owner: status = %d, want 200", w.Code)
	}
	// 他人不可见（404，不泄露存在性）
	if w := env.do(t, "GET", "/api/v1/orders/"+order.ID, "", env.bob); w.Code != http.StatusNotFound {
		t.Errorf("other user: status = %d, want 404", w.Code)
	}
	// 管理员可见
	if w := env.do(t, "GET", "/api/v1/orders/"+order.ID, "", env.admin); w.Code != http.StatusOK {
		t.Errorf("admin: status = %d, want 200", w.Code)
	}

	// 我的订单列表只含自己的
	w = env.do(t, "GET", "/api/v1/orders", "", env.bob)
	var out struct {
		Data struct {
			Orders []*model.Order `json:"orders"`
			Count  int            `json:"count"`
		} `json:"data"`
	}
	json.Unmarshal(w.Body.Bytes(), &out)
	if out.Data.Count != 0 {
		t.Errorf("bob's orders = %d, want 0", out.Data.Count)
	}
	w = env.do(t, "GET", "/api/v1/orders", "", env.alice)
	json.Unmarshal(w.Body.Bytes(), &out)
	if out.Data.Count != 1 {
		t.Errorf("alice's orders = %d, want 1", out.Data.Count)
	}
}

func TestAdminOrders(t *testing.T) {
	env := newTestEnv(t)
	body := `{"items":[{"product_id":"prod-rose","quantity":1}],"delivery_address":"1 Garden St"}`
	order := decodeOrder(t, env.do(t, "POST", "/api/v1/orders", body, env.alice))
	env.do(t, "POST", "/api/v1/orders", body, env.bob)

	// 普通用户无权访问
	if w := env.do(t, "GET", "/api/v1/admin/orders", "", env.alice); w.Code != http.StatusForbidden {
		t.Errorf("non-admin list: status = %d, want 403", w.Code)
	}

	w := env.do(t, "GET", "/api/v1/admin/orders", "", env.admin)
	if w.Code != http.StatusOK {
		t.Fatalf("admin list: status = %d", w.Code)
	}
	var out struct {
		Data struct {
			Total int `json:"total"`
		} `json:"data"`
	}
	json.Unmarshal(w.Body.Bytes(), &out)
	if out.Data.Total != 2 {
		t.Errorf("total = %d, want 2", out.Data.Total)
	}

	// 状态流转
	w = env.do(t, "PUT", "/api/v1/admin/orders/"+order.ID+"/status", `{"status":"shipped"}`, env.admin)
	if w.Code != http.StatusOK {
		t.Fatalf("update status: status = %d, body = %s", w.Code, w.Body.String())
	}
	got, _ := env.store.GetOrder(context.Background(), order.ID)
	if got.Status != model.OrderStatusShipped {
		t.Errorf("order status = %q, want shipped", got.Status)
	}

	// 非法状态
	w = env.do(t, "PUT", "/api/v1/admin/orders/"+order.ID+"/status", `{"status":"teleported"}`, env.admin)
	if w.Code != http.StatusBadRequest {
		t.Errorf("invalid status: status = %d, want 400", w.Code)
	}

	// 未知订单
	w = env.do(t, "PUT", "/api/v1/admin/orders/order-nope/status", `{"status":"shipped"}`, env.admin)
	if w.Code != http.StatusNotFound {
		t.Errorf("unknown order: status = %d, want 404", w.Code)
	}
}

// Package server 路由配置
package server

import (
	"net/http"

	"blossom-shop/internal/apiserver/admin"
	"blossom-shop/internal/apiserver/auth"
	"blossom-shop/internal/apiserver/order"
	"blossom-shop/internal/apiserver/product"
	"blossom-shop/internal/apiserver/profile"
	"blossom-shop/internal/apiserver/upload"
)

// Router 返回配置好的 HTTP 路由
//
// 路由规则：
//
// 认证 (Auth):
//   - POST /api/v1/auth/register              - 注册
//   - POST /api/v1/auth/login                 - 登录
//   - POST /api/v1/auth/forgot-password       - 申请密码重置
//   - POST /api/v1/auth/reset-password/{token} - 重置密码
//   - GET  /api/v1/auth/me                    - 当前用户
//   - PUT  /api/v1/auth/password              - 修改密码
//   - PUT  /api/v1/auth/{id}                  - 更新本人资料
//
// 公开资料 (Profile):
//   - GET /api/v1/profiles/{id}               - 公开主页
//
// 商品 (Product)：读公开，写仅管理员:
//   - GET/POST /api/v1/products、GET/PUT/DELETE /api/v1/products/{id}
//
// 订单 (Order):
//   - POST/GET /api/v1/orders、GET /api/v1/orders/{id}
//   - GET /api/v1/admin/orders、PUT /api/v1/admin/orders/{id}/status
//
// 用户管理 (Admin):
//   - GET/POST /api/v1/admin/users、GET/PUT/DELETE /api/v1/admin/users/{id}
//
// 头像 (Upload，需配置 MinIO):
//   - POST /api/v1/uploads/profile-image
//   - GET  /api/v1/uploads/{key...}
//   - DELETE /api/v1/uploads/profile-image/{userID}
func (h *Handler) Router() http.Handler {
	mux := http.NewServeMux()

	// 健康检查
	mux.HandleFunc("GET /health", h.Health)

	// Prometheus 指标端点
	mux.Handle("GET /metrics", MetricsHandler())

	// Auth 接口
	authHandler := auth.NewHandler(h.store, h.mail, h.authCfg, h.publicURL)
	authHandler.RegisterRoutes(mux)

	// 公开资料接口
	profileHandler := profile.NewHandler(h.store)
	profileHandler.RegisterRoutes(mux)

	// 商品接口
	productHandler := product.NewHandler(h.store, h.productCache)
	productHandler.RegisterRoutes(mux)

	// 订单接口
	orderHandler := order.NewHandler(h.store, h.store)
	orderHandler.RegisterRoutes(mux)

	// 用户管理接口
	var deleter admin.ObjectDeleter
	if h.objects != nil {
		deleter = h.objects
	}
	adminHandler := admin.NewHandler(h.store, deleter)
	adminHandler.RegisterRoutes(mux)

	// 头像接口（未配置 MinIO 时不注册）
	if h.objects != nil {
		uploadHandler := upload.NewHandler(h.store, h.objects)
		uploadHandler.RegisterRoutes(mux)
	}

	// 中间件链：metrics → auth → CORS
	apiHandler := h.metrics.MetricsMiddleware(mux)
	authedHandler := auth.Middleware(h.authCfg)(apiHandler)
	return corsMiddleware(authedHandler)
}

// corsMiddleware 添加 CORS 头支持跨域请求
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// Package server 提供 HTTP API 路由与核心基础设施
//
// 各业务领域（auth/profile/admin/product/order/upload）在独立包中实现，
// 本包负责：
//   - common.go: Handler 定义、健康检查、统计采集
//   - handler.go: 路由装配与中间件链
//   - metrics.go: Prometheus 指标
package server

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"blossom-shop/internal/apiserver/auth"
	"blossom-shop/internal/apiserver/upload"
	"blossom-shop/internal/mailer"
	"blossom-shop/internal/shared/cache"
	"blossom-shop/internal/shared/storage"
)

// Handler API 处理器
//
// Handler 是所有 HTTP API 的入口，负责：
//   - 路由请求到各领域处理器
//   - 管理存储层连接
//   - 导出 Prometheus 指标
type Handler struct {
	store storage.PersistentStore // MongoDB 存储层（持久化业务数据）

	productCache cache.ProductCache // 商品缓存（未配置 Redis 时为 NoOp）
	objects      upload.ObjectStore // MinIO 对象存储（可为 nil）
	mail         mailer.Mailer      // 邮件投递

	authCfg   auth.Config
	publicURL string

	metrics *Metrics // Prometheus 指标
}

// NewHandler 创建 Handler 实例
//
// productCache 为 nil 时商品缓存退化为 NoOp；
// objects 为 nil 时上传接口不注册、删除用户时跳过头像清理。
func NewHandler(store storage.PersistentStore, productCache cache.ProductCache,
	objects upload.ObjectStore, mail mailer.Mailer, authCfg auth.Config, publicURL string) *Handler {
	if productCache == nil {
		productCache = cache.NewNoOpCache()
	}
	if mail == nil {
		mail = mailer.NewLogMailer()
	}
	return &Handler{
		store:        store,
		productCache: productCache,
		objects:      objects,
		mail:         mail,
		authCfg:      authCfg,
		publicURL:    publicURL,
		metrics:      NewMetrics("shop"),
	}
}

// Health 健康检查接口
//
// 路由: GET /health
//
// 用于负载均衡器和监控系统检查服务状态。
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// StartStatsCollector 周期采集业务统计指标（用户数/订单数）
// 直到 ctx 取消为止。
func (h *Handler) StartStatsCollector(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			h.collectStats(ctx)
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()
}

func (h *Handler) collectStats(ctx context.Context) {
	start := time.Now()
	if _, total, err := h.store.ListUsers(ctx, storage.UserFilter{Limit: 1}); err == nil {
		h.metrics.RecordDBQuery("count", "users", time.Since(start))
		h.metrics.SetUsersCount(total)
	} else {
		log.Printf("[stats] Failed to count users: %v", err)
	}
	start = time.Now()
	if _, total, err := h.store.ListOrders(ctx, 1, 0); err == nil {
		h.metrics.RecordDBQuery("count", "orders", time.Since(start))
		h.metrics.SetOrdersCount(total)
	} else {
		log.Printf("[stats] Failed to count orders: %v", err)
	}
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

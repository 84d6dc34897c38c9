// Package order 订单领域 - HTTP 处理
//
// 下单必须登录。条目价格以商品库当前价为准（快照进订单），
// 总价由服务端计算，不信任客户端提交的金额。
package order

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"blossom-shop/internal/apiserver/auth"
	"blossom-shop/internal/shared/model"
	"blossom-shop/internal/shared/storage"
)

// Handler 订单 HTTP 处理器
type Handler struct {
	orders   storage.OrderStore
	products storage.ProductStore
}

// NewHandler 创建订单处理器
func NewHandler(orders storage.OrderStore, products storage.ProductStore) *Handler {
	return &Handler{orders: orders, products: products}
}

// RegisterRoutes 注册订单路由
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/v1/orders", h.CreateOrder)
	mux.HandleFunc("GET /api/v1/orders", h.ListMyOrders)
	mux.HandleFunc("GET /api/v1/orders/{id}", h.GetOrder)
	mux.HandleFunc("GET /api/v1/admin/orders", auth.AdminOnly(h.ListAllOrders))
	mux.HandleFunc("PUT /api/v1/admin/orders/{id}/status", auth.AdminOnly(h.UpdateStatus))
}

// newOrderNumber 生成对外订单号
// 格式：ORD-XXXXXXXX（UUID 前 8 位十六进制，大写）
func newOrderNumber() string {
	return "ORD-" + strings.ToUpper(uuid.NewString()[:8])
}

type createOrderRequest struct {
	Items           []orderItemRequest `json:"items"`
	DeliveryAddress string             `json:"delivery_address"`
	DeliveryTime    string             `json:"delivery_time"`
	CustomerName    string             `json:"customer_name"`
	CustomerPhone   string             `json:"customer_phone"`
	PaymentMethod   string             `json:"payment_method"`
}

type orderItemRequest struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	authUser := auth.GetAuthUser(r.Context())
	if authUser == nil {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Items) == 0 {
		writeError(w, http.StatusBadRequest, "order must contain at least one item")
		return
	}
	if req.DeliveryAddress == "" {
		writeError(w, http.StatusBadRequest, "delivery_address is required")
		return
	}

	// 逐条目取商品现价做快照
	var items []model.OrderItem
	var total int64
	for _, it := range req.Items {
		if it.Quantity < 1 {
			writeError(w, http.StatusBadRequest, "item quantity must be at least 1")
			return
		}
		product, err := h.products.GetProduct(r.Context(), it.ProductID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to load product")
			return
		}
		if product == nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown product: %s", it.ProductID))
			return
		}
		if !product.InStock {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("product out of stock: %s", product.Name))
			return
		}
		items = append(items, model.OrderItem{
			ProductID: product.ID,
			Name:      product.Name,
			Quantity:  it.Quantity,
			Price:     product.BouquetPrice,
			Image:     product.Image,
		})
		total += product.BouquetPrice * int64(it.Quantity)
	}

	now := time.Now()
	order := &model.Order{
		ID:              generateID("order"),
		OrderNumber:     newOrderNumber(),
		UserID:          authUser.ID,
		Items:           items,
		Total:           total,
		Status:          model.OrderStatusPending,
		DeliveryAddress: req.DeliveryAddress,
		DeliveryTime:    req.DeliveryTime,
		CustomerName:    req.CustomerName,
		CustomerPhone:   req.CustomerPhone,
		PaymentMethod:   req.PaymentMethod,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	// 订单号撞库时换号重试一次
	if err := h.orders.CreateOrder(r.Context(), order); err != nil {
		if errors.Is(err, storage.ErrDuplicate) {
			order.OrderNumber = newOrderNumber()
			err = h.orders.CreateOrder(r.Context(), order)
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to create order")
			return
		}
	}
	writeData(w, http.StatusCreated, order)
}

// ListMyOrders 当前用户的订单列表
func (h *Handler) ListMyOrders(w http.ResponseWriter, r *http.Request) {
	authUser := auth.GetAuthUser(r.Context())
	if authUser == nil {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	orders, err := h.orders.ListOrdersByUser(r.Context(), authUser.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list orders")
		return
	}
	if orders == nil {
		orders = []*model.Order{}
	}
	writeData(w, http.StatusOK, map[string]interface{}{"orders": orders, "count": len(orders)})
}

// GetOrder 订单详情（本人或管理员）
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	authUser := auth.GetAuthUser(r.Context())
	if authUser == nil {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	id := r.PathValue("id")
	order, err := h.orders.GetOrder(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get order")
		return
	}
	if order == nil {
		writeError(w, http.StatusNotFound, "order not found")
		return
	}
	if order.UserID != authUser.ID && authUser.Role != string(model.UserRoleAdmin) {
		// 对他人订单返回 404 而非 403，避免泄露订单 ID 的存在性
		writeError(w, http.StatusNotFound, "order not found")
		return
	}
	writeData(w, http.StatusOK, order)
}

// ListAllOrders 管理员分页查看全部订单
func (h *Handler) ListAllOrders(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	if page < 1 {
		page = 1
	}
	limit, _ := strconv.Atoi(q.Get("limit"))
	if limit < 1 || limit > 100 {
		limit = 20
	}
	orders, total, err := h.orders.ListOrders(r.Context(), limit, (page-1)*limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list orders")
		return
	}
	if orders == nil {
		orders = []*model.Order{}
	}
	writeData(w, http.StatusOK, map[string]interface{}{
		"orders":      orders,
		"total":       total,
		"page":        page,
		"total_pages": (total + limit - 1) / limit,
	})
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

// UpdateStatus 管理员更新订单状态
func (h *Handler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	status := model.OrderStatus(req.Status)
	if !status.Valid() {
		writeError(w, http.StatusBadRequest, "invalid order status")
		return
	}
	if err := h.orders.UpdateOrderStatus(r.Context(), id, status); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "order not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to update order status")
		return
	}
	writeMessage(w, http.StatusOK, "order status updated")
}

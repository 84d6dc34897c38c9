// Package product 商品目录领域 - HTTP 处理
//
// 读接口公开（带缓存），写接口仅管理员。写操作后整体失效商品缓存，
// 保证读到的数据最多滞后一个缓存 TTL。
package product

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"blossom-shop/internal/apiserver/auth"
	"blossom-shop/internal/shared/cache"
	"blossom-shop/internal/shared/model"
	"blossom-shop/internal/shared/storage"
)

// Handler 商品目录 HTTP 处理器
type Handler struct {
	store storage.ProductStore
	cache cache.ProductCache
}

// NewHandler 创建商品处理器
func NewHandler(store storage.ProductStore, productCache cache.ProductCache) *Handler {
	if productCache == nil {
		productCache = cache.NewNoOpCache()
	}
	return &Handler{store: store, cache: productCache}
}

// RegisterRoutes 注册商品路由
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/products", h.ListProducts)
	mux.HandleFunc("GET /api/v1/products/{id}", h.GetProduct)
	mux.HandleFunc("POST /api/v1/products", auth.AdminOnly(h.CreateProduct))
	mux.HandleFunc("PUT /api/v1/products/{id}", auth.AdminOnly(h.UpdateProduct))
	mux.HandleFunc("DELETE /api/v1/products/{id}", auth.AdminOnly(h.DeleteProduct))
}

// listCacheKey 把查询参数规整成稳定的缓存键
func listCacheKey(f storage.ProductFilter) string {
	return fmt.Sprintf("s=%s&c=%s&sb=%s&o=%s&l=%d&of=%d",
		f.Search, f.Category, f.SortBy, f.Order, f.Limit, f.Offset)
}

func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	if limit < 1 || limit > 100 {
		limit = 20
	}
	page, _ := strconv.Atoi(q.Get("page"))
	if page < 1 {
		page = 1
	}
	filter := storage.ProductFilter{
		Search:   q.Get("search"),
		Category: q.Get("category"),
		SortBy:   q.Get("sort_by"),
		Order:    q.Get("order"),
		Limit:    limit,
		Offset:   (page - 1) * limit,
	}

	key := listCacheKey(filter)
	if cached, err := h.cache.GetProductList(r.Context(), key); err != nil {
		log.Printf("[product] Cache read failed: %v", err)
	} else if cached != nil {
		writeData(w, http.StatusOK, map[string]interface{}{"products": cached, "count": len(cached)})
		return
	}

	products, _, err := h.store.ListProducts(r.Context(), filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list products")
		return
	}
	if products == nil {
		products = []*model.Product{}
	}

	if err := h.cache.SetProductList(r.Context(), key, products); err != nil {
		log.Printf("[product] Cache write failed: %v", err)
	}
	writeData(w, http.StatusOK, map[string]interface{}{"products": products, "count": len(products)})
}

func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	if cached, err := h.cache.GetProduct(r.Context(), id); err != nil {
		log.Printf("[product] Cache read failed: %v", err)
	} else if cached != nil {
		writeData(w, http.StatusOK, cached)
		return
	}

	product, err := h.store.GetProduct(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get product")
		return
	}
	if product == nil {
		writeError(w, http.StatusNotFound, "product not found")
		return
	}

	if err := h.cache.SetProduct(r.Context(), product); err != nil {
		log.Printf("[product] Cache write failed: %v", err)
	}
	writeData(w, http.StatusOK, product)
}

type productRequest struct {
	Name                 string `json:"name"`
	Description          string `json:"description"`
	Category             string `json:"category"`
	Image                string `json:"image"`
	PricePerStem         int64  `json:"price_per_stem"`
	BouquetPrice         int64  `json:"bouquet_price"`
	OriginalPricePerStem int64  `json:"original_price_per_stem"`
	OriginalBouquetPrice int64  `json:"original_bouquet_price"`
	Discount             int    `json:"discount"`
	InStock              *bool  `json:"in_stock"`
}

func (req *productRequest) validate() string {
	if req.Name == "" {
		return "name is required"
	}
	if req.PricePerStem < 0 || req.BouquetPrice < 0 {
		return "prices must not be negative"
	}
	if req.Discount < 0 || req.Discount > 100 {
		return "discount must be between 0 and 100"
	}
	return ""
}

func (h *Handler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var req productRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if msg := req.validate(); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	now := time.Now()
	inStock := true
	if req.InStock != nil {
		inStock = *req.InStock
	}
	product := &model.Product{
		ID:                   generateID("prod"),
		Name:                 req.Name,
		Description:          req.Description,
		Category:             req.Category,
		Image:                req.Image,
		PricePerStem:         req.PricePerStem,
		BouquetPrice:         req.BouquetPrice,
		OriginalPricePerStem: req.OriginalPricePerStem,
		OriginalBouquetPrice: req.OriginalBouquetPrice,
		Discount:             req.Discount,
		InStock:              inStock,
		CreatedAt:            now,
		UpdatedAt:            now,
	}
	if err := h.store.CreateProduct(r.Context(), product); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to create product")
		return
	}
	h.invalidateCache(r)
	writeData(w, http.StatusCreated, product)
}

func (h *Handler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	var req productRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if msg := req.validate(); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	product, err := h.store.GetProduct(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get product")
		return
	}
	if product == nil {
		writeError(w, http.StatusNotFound, "product not found")
		return
	}

	product.Name = req.Name
	product.Description = req.Description
	product.Category = req.Category
	product.Image = req.Image
	product.PricePerStem = req.PricePerStem
	product.BouquetPrice = req.BouquetPrice
	product.OriginalPricePerStem = req.OriginalPricePerStem
	product.OriginalBouquetPrice = req.OriginalBouquetPrice
	product.Discount = req.Discount
	if req.InStock != nil {
		product.InStock = *req.InStock
	}
	product.UpdatedAt = time.Now()

	if err := h.store.UpdateProduct(r.Context(), product); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to update product")
		return
	}
	h.invalidateCache(r)
	writeData(w, http.StatusOK, product)
}

func (h *Handler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	product, err := h.store.GetProduct(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get product")
		return
	}
	if product == nil {
		writeError(w, http.StatusNotFound, "product not found")
		return
	}
	if err := h.store.DeleteProduct(r.Context(), id); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to delete product")
		return
	}
	h.invalidateCache(r)
	writeMessage(w, http.StatusOK, "product deleted")
}

func (h *Handler) invalidateCache(r *http.Request) {
	if err := h.cache.InvalidateProducts(r.Context()); err != nil {
		log.Printf("[product] Cache invalidation failed: %v", err)
	}
}

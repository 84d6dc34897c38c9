// Package admin 用户管理领域 - HTTP 处理（仅管理员）
package admin

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"blossom-shop/internal/apiserver/auth"
	"blossom-shop/internal/shared/model"
	"blossom-shop/internal/shared/storage"
)

// ObjectDeleter 删除对象存储中的文件（用户删除时清理头像）
type ObjectDeleter interface {
	Delete(ctx context.Context, key string) error
}

// Handler 用户管理 HTTP 处理器
type Handler struct {
	store   storage.UserStore
	objects ObjectDeleter
}

// NewHandler 创建用户管理处理器
// objects 可为 nil（未配置对象存储时跳过头像清理）
func NewHandler(store storage.UserStore, objects ObjectDeleter) *Handler {
	return &Handler{store: store, objects: objects}
}

// RegisterRoutes 注册用户管理路由（全部 AdminOnly）
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/admin/users", auth.AdminOnly(h.ListUsers))
	mux.HandleFunc("POST /api/v1/admin/users", auth.AdminOnly(h.CreateUser))
	mux.HandleFunc("GET /api/v1/admin/users/{id}", auth.AdminOnly(h.GetUser))
	mux.HandleFunc("PUT /api/v1/admin/users/{id}", auth.AdminOnly(h.UpdateUser))
	mux.HandleFunc("DELETE /api/v1/admin/users/{id}", auth.AdminOnly(h.DeleteUser))
}

// ListUsers 分页列出用户，支持关键词搜索和角色过滤
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	if page < 1 {
		page = 1
	}
	limit, _ := strconv.Atoi(q.Get("limit"))
	if limit < 1 || limit > 100 {
		limit = 20
	}

	filter := storage.UserFilter{
		Search: q.Get("search"),
		Role:   q.Get("role"),
		Limit:  limit,
		Offset: (page - 1) * limit,
	}
	users, total, err := h.store.ListUsers(r.Context(), filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list users")
		return
	}

	totalPages := (total + limit - 1) / limit
	writeData(w, http.StatusOK, map[string]interface{}{
		"users":       users,
		"total":       total,
		"page":        page,
		"total_pages": totalPages,
	})
}

type createUserRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

// CreateUser 管理员创建用户，可直接指定角色
func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Username == "" || req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "username, email and password are required")
		return
	}
	if len(req.Password) < 6 {
		writeError(w, http.StatusBadRequest, "password must be at least 6 characters")
		return
	}
	role := model.UserRole(req.Role)
	if req.Role == "" {
		role = model.UserRoleUser
	}
	if !role.Valid() {
		writeError(w, http.StatusBadRequest, "invalid role")
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to hash password")
		return
	}

	now := time.Now()
	user := &model.User{
		ID:           generateID("usr"),
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: hash,
		Role:         role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := h.store.CreateUser(r.Context(), user); err != nil {
		if errors.Is(err, storage.ErrDuplicate) {
			writeError(w, http.StatusConflict, "email or username already in use")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to create user")
		return
	}
	writeData(w, http.StatusCreated, user)
}

func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	user, err := h.store.GetUserByID(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get user")
		return
	}
	if user == nil {
		writeError(w, http.StatusNotFound, "user not found")
		return
	}
	writeData(w, http.StatusOK, user)
}

type updateUserRequest struct {
	Username  *string `json:"username"`
	Email     *string `json:"email"`
	Role      *string `json:"role"`
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
	Bio       *string `json:"bio"`
	Phone     *string `json:"phone"`
}

// UpdateUser 管理员更新任意用户（含角色变更）
func (h *Handler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	var req updateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := h.store.GetUserByID(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get user")
		return
	}
	if user == nil {
		writeError(w, http.StatusNotFound, "user not found")
		return
	}

	if req.Role != nil {
		role := model.UserRole(*req.Role)
		if !role.Valid() {
			writeError(w, http.StatusBadRequest, "invalid role")
			return
		}
		user.Role = role
	}
	if req.Username != nil && *req.Username != user.Username {
		existing, err := h.store.GetUserByUsername(r.Context(), *req.Username)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to check username")
			return
		}
		if existing != nil {
			writeError(w, http.StatusConflict, "username already in use")
			return
		}
		user.Username = *req.Username
	}
	if req.Email != nil && *req.Email != user.Email {
		existing, err := h.store.GetUserByEmail(r.Context(), *req.Email)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to check email")
			return
		}
		if existing != nil {
			writeError(w, http.StatusConflict, "email already in use")
			return
		}
		user.Email = *req.Email
	}
	if req.FirstName != nil {
		user.FirstName = *req.FirstName
	}
	if req.LastName != nil {
		user.LastName = *req.LastName
	}
	if req.Bio != nil {
		user.Bio = *req.Bio
	}
	if req.Phone != nil {
		user.Phone = *req.Phone
	}
	user.UpdatedAt = time.Now()

	if err := h.store.UpdateUser(r.Context(), user); err != nil {
		if errors.Is(err, storage.ErrDuplicate) {
			writeError(w, http.StatusConflict, "email or username already in use")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to update user")
		return
	}
	writeData(w, http.StatusOK, user)
}

// DeleteUser 删除用户（管理员不能删除自己）
func (h *Handler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	authUser := auth.GetAuthUser(r.Context())
	if authUser != nil && authUser.ID == id {
		writeError(w, http.StatusBadRequest, "cannot delete your own account")
		return
	}

	user, err := h.store.GetUserByID(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get user")
		return
	}
	if user == nil {
		writeError(w, http.StatusNotFound, "user not found")
		return
	}

	if err := h.store.DeleteUser(r.Context(), id); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to delete user")
		return
	}

	// 清理头像对象，失败只记录
	if h.objects != nil && user.ProfileImage != "" {
		if err := h.objects.Delete(r.Context(), user.ProfileImage); err != nil {
			log.Printf("[admin] Failed to delete profile image %s: %v", user.ProfileImage, err)
		}
	}

	writeMessage(w, http.StatusOK, "user deleted")
}

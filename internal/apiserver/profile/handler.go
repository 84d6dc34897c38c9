// Package profile 公开资料领域 - HTTP 处理
//
// 只读接口，无需登录。返回裁剪后的公开视图，邮箱/手机号等联系方式不外露。
package profile

import (
	"encoding/json"
	"net/http"

	"blossom-shop/internal/shared/model"
	"blossom-shop/internal/shared/storage"
)

// Handler 公开资料 HTTP 处理器
type Handler struct {
	store storage.UserStore
}

// NewHandler 创建公开资料处理器
func NewHandler(store storage.UserStore) *Handler {
	return &Handler{store: store}
}

// RegisterRoutes 注册公开资料路由
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/profiles/{id}", h.GetProfile)
}

// PublicProfile 用户公开视图
type PublicProfile struct {
	ID           string `json:"id"`
	Username     string `json:"username"`
	FirstName    string `json:"first_name,omitempty"`
	LastName     string `json:"last_name,omitempty"`
	Bio          string `json:"bio,omitempty"`
	ProfileImage string `json:"profile_image,omitempty"`
}

func toPublicProfile(u *model.User) *PublicProfile {
	return &PublicProfile{
		ID:           u.ID,
		Username:     u.Username,
		FirstName:    u.FirstName,
		LastName:     u.LastName,
		Bio:          u.Bio,
		ProfileImage: u.ProfileImage,
	}
}

func (h *Handler) GetProfile(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	user, err := h.store.GetUserByID(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get profile")
		return
	}
	if user == nil {
		writeError(w, http.StatusNotFound, "profile not found")
		return
	}
	writeData(w, http.StatusOK, toPublicProfile(user))
}

// 统一响应信封（与 auth 保持一致）

type envelope struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeData(w http.ResponseWriter, status int, data interface{}) {
	writeJSON(w, status, envelope{Success: true, Data: data})
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, envelope{Success: false, Message: message})
}

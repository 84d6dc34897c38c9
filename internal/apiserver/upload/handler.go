// Package upload 头像上传领域 - HTTP 处理
//
// 文件存 MinIO，数据库只存对象 key。类型按文件内容嗅探判断，
// 不信任扩展名和客户端声明的 Content-Type。
package upload

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"

	"blossom-shop/internal/apiserver/auth"
	"blossom-shop/internal/shared/storage"
)

// MaxImageSize 头像上限 5MiB
const MaxImageSize = 5 << 20

// 允许的图片类型 → 对象 key 扩展名
var allowedImageTypes = map[string]string{
	"image/jpeg": "jpg",
	"image/png":  "png",
	"image/webp": "webp",
}

// ObjectStore 对象存储操作（由 objstore.Client 实现）
type ObjectStore interface {
	Upload(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error
	Download(ctx context.Context, key string) (io.ReadCloser, minio.ObjectInfo, error)
	Delete(ctx context.Context, key string) error
}

// Handler 头像上传 HTTP 处理器
type Handler struct {
	store   storage.UserStore
	objects ObjectStore
}

// NewHandler 创建上传处理器
func NewHandler(store storage.UserStore, objects ObjectStore) *Handler {
	return &Handler{store: store, objects: objects}
}

// RegisterRoutes 注册上传路由
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/v1/uploads/profile-image", h.UploadProfileImage)
	mux.HandleFunc("GET /api/v1/uploads/{key...}", h.ServeImage)
	mux.HandleFunc("DELETE /api/v1/uploads/profile-image/{userID}", h.DeleteProfileImage)
}

// UploadProfileImage 上传当前用户头像，替换旧头像时删除旧对象
func (h *Handler) UploadProfileImage(w http.ResponseWriter, r *http.Request) {
	authUser := auth.GetAuthUser(r.Context())
	if authUser == nil {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, MaxImageSize+4096) // 预留 multipart 开销
	if err := r.ParseMultipartForm(MaxImageSize); err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, "image exceeds 5MB limit")
		return
	}
	file, header, err := r.FormFile("image")
	if err != nil {
		writeError(w, http.StatusBadRequest, "image file is required")
		return
	}
	defer file.Close()

	if header.Size > MaxImageSize {
		writeError(w, http.StatusRequestEntityTooLarge, "image exceeds 5MB limit")
		return
	}

	// 按内容嗅探类型
	head := make([]byte, 512)
	n, err := io.ReadFull(file, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		writeError(w, http.StatusInternalServerError, "failed to read image")
		return
	}
	contentType := http.DetectContentType(head[:n])
	ext, ok := allowedImageTypes[contentType]
	if !ok {
		writeError(w, http.StatusBadRequest, "only jpeg, png and webp images are allowed")
		return
	}

	user, err := h.store.GetUserByID(r.Context(), authUser.ID)
	if err != nil || user == nil {
		writeError(w, http.StatusInternalServerError, "failed to load user")
		return
	}

	key := fmt.Sprintf("profiles/%s/%s.%s", user.ID, randomHex(12), ext)
	reader := io.MultiReader(bytes.NewReader(head[:n]), file)
	if err := h.objects.Upload(r.Context(), key, reader, header.Size, contentType); err != nil {
		log.Printf("[upload] Upload failed: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to store image")
		return
	}

	oldKey := user.ProfileImage
	user.ProfileImage = key
	user.UpdatedAt = time.Now()
	if err := h.store.UpdateUser(r.Context(), user); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to update user")
		return
	}

	// 替换后清理旧对象，失败只记录
	if oldKey != "" && oldKey != key {
		if err := h.objects.Delete(r.Context(), oldKey); err != nil {
			log.Printf("[upload] Failed to delete old image %s: %v", oldKey, err)
		}
	}

	writeData(w, http.StatusCreated, map[string]string{"profile_image": key})
}

// ServeImage 流式返回图片（公开）
func (h *Handler) ServeImage(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")
	if key == "" || strings.Contains(key, "..") {
		writeError(w, http.StatusBadRequest, "invalid image key")
		return
	}
	obj, info, err := h.objects.Download(r.Context(), key)
	if err != nil {
		writeError(w, http.StatusNotFound, "image not found")
		return
	}
	defer obj.Close()

	w.Header().Set("Content-Type", info.ContentType)
	if info.Size > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(info.Size, 10))
	}
	w.Header().Set("Cache-Control", "public, max-age=86400")
	io.Copy(w, obj)
}

// DeleteProfileImage 删除头像（本人或管理员）
func (h *Handler) DeleteProfileImage(w http.ResponseWriter, r *http.Request) {
	authUser := auth.GetAuthUser(r.Context())
	if authUser == nil {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	userID := r.PathValue("userID")
	if userID != authUser.ID && authUser.Role != "admin" {
		writeError(w, http.StatusForbidden, "you can only delete your own profile image")
		return
	}

	user, err := h.store.GetUserByID(r.Context(), userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load user")
		return
	}
	if user == nil {
		writeError(w, http.StatusNotFound, "user not found")
		return
	}
	if user.ProfileImage == "" {
		writeError(w, http.StatusNotFound, "no profile image set")
		return
	}

	key := user.ProfileImage
	user.ProfileImage = ""
	user.UpdatedAt = time.Now()
	if err := h.store.UpdateUser(r.Context(), user); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to update user")
		return
	}
	if err := h.objects.Delete(r.Context(), key); err != nil {
		log.Printf("[upload] Failed to delete image %s: %v", key, err)
	}
	writeMessage(w, http.StatusOK, "profile image deleted")
}

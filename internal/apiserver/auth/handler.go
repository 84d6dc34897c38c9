package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"blossom-shop/internal/mailer"
	"blossom-shop/internal/shared/model"
	"blossom-shop/internal/shared/storage"
)

// Handler 认证 HTTP 处理器
type Handler struct {
	store     storage.UserStore
	mail      mailer.Mailer
	cfg       Config
	publicURL string // 重置链接的站点前缀
}

// NewHandler 创建认证处理器
func NewHandler(store storage.UserStore, mail mailer.Mailer, cfg Config, publicURL string) *Handler {
	return &Handler{store: store, mail: mail, cfg: cfg, publicURL: publicURL}
}

// RegisterRoutes 注册认证相关路由
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/v1/auth/register", h.Register)
	mux.HandleFunc("POST /api/v1/auth/login", h.Login)
	mux.HandleFunc("POST /api/v1/auth/forgot-password", h.ForgotPassword)
	mux.HandleFunc("POST /api/v1/auth/reset-password/{token}", h.ResetPassword)
	mux.HandleFunc("GET /api/v1/auth/me", h.Me)
	mux.HandleFunc("PUT /api/v1/auth/password", h.ChangePassword)
	mux.HandleFunc("PUT /api/v1/auth/{id}", h.UpdateProfile)
}

// ============================================================================
// 请求/响应类型
// ============================================================================

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

type resetPasswordRequest struct {
	NewPassword string `json:"new_password"`
}

type changePasswordRequest struct {
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

// updateProfileRequest 资料更新请求
// 指针区分“未提交”和“显式清空”：nil 保持原值，空字符串清空可选字段
type updateProfileRequest struct {
	Email     *string `json:"email"`
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
	Bio       *string `json:"bio"`
	Phone     *string `json:"phone"`
}

// ============================================================================
// Handlers
// ============================================================================

// Register 用户注册
// POST /api/v1/auth/register
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Username == "" || req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "username, email, password are required")
		return
	}
	if len(req.Username) < 3 || len(req.Username) > 30 {
		writeError(w, http.StatusBadRequest, "username must be 3-30 characters")
		return
	}
	if !isValidEmail(req.Email) {
		writeError(w, http.StatusBadRequest, "invalid email format")
		return
	}
	if len(req.Password) < 6 {
		writeError(w, http.StatusBadRequest, "password must be at least 6 characters")
		return
	}

	// 唯一性预检查：先邮箱后用户名。
	// 预检查与插入之间存在竞态，最终以存储层唯一索引为准（见下方 ErrDuplicate 分支）。
	existing, err := h.store.GetUserByEmail(r.Context(), req.Email)
	if err != nil {
		log.Printf("[auth.register] GetUserByEmail error: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if existing != nil {
		writeError(w, http.StatusConflict, "email already in use")
		return
	}
	existing, err = h.store.GetUserByUsername(r.Context(), req.Username)
	if err != nil {
		log.Printf("[auth.register] GetUserByUsername error: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if existing != nil {
		writeError(w, http.StatusConflict, "username already in use")
		return
	}

	hash, err := HashPassword(req.Password)
	if err != nil {
		log.Printf("[auth.register] HashPassword error: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	now := time.Now()
	user := &model.User{
		ID:           generateID("usr"),
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: hash,
		Role:         model.UserRoleUser,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := h.store.CreateUser(r.Context(), user); err != nil {
		// 并发注册撞上唯一索引：与预检查同样按冲突处理
		if errors.Is(err, storage.ErrDuplicate) {
			writeError(w, http.StatusConflict, "email or username already in use")
			return
		}
		log.Printf("[auth.register] CreateUser error: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to create user")
		return
	}

	token, err := GenerateSessionToken(h.cfg, user.ID, user.Username, user.Email, string(user.Role))
	if err != nil {
		log.Printf("[auth.register] GenerateSessionToken error: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	registrationsTotal.Inc()
	log.Printf("[auth] User registered: %s (%s)", user.Email, user.ID)
	writeAuth(w, http.StatusCreated, "User created", user, token)
}

// Login 用户登录
// POST /api/v1/auth/login
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "email and password are required")
		return
	}

	user, err := h.store.GetUserByEmail(r.Context(), req.Email)
	if err != nil {
		log.Printf("[auth.login] GetUserByEmail error: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if user == nil {
		loginsTotal.WithLabelValues("failure").Inc()
		writeError(w, http.StatusNotFound, "no user found")
		return
	}
	if !CheckPassword(req.Password, user.PasswordHash) {
		loginsTotal.WithLabelValues("failure").Inc()
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	token, err := GenerateSessionToken(h.cfg, user.ID, user.Username, user.Email, string(user.Role))
	if err != nil {
		log.Printf("[auth.login] GenerateSessionToken error: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	loginsTotal.WithLabelValues("success").Inc()
	log.Printf("[auth] User logged in: %s", user.Email)
	writeAuth(w, http.StatusOK, "Login successful", user, token)
}

// ForgotPassword 发起密码找回
// POST /api/v1/auth/forgot-password
//
// 成功响应不反映邮件投递结果；投递失败只记日志。
// 未注册邮箱返回 404（保留原有行为，见 DESIGN.md）。
func (h *Handler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req forgotPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if !isValidEmail(req.Email) {
		writeError(w, http.StatusBadRequest, "invalid email format")
		return
	}

	user, err := h.store.GetUserByEmail(r.Context(), req.Email)
	if err != nil {
		log.Printf("[auth.forgot] GetUserByEmail error: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if user == nil {
		writeError(w, http.StatusNotFound, "no user found")
		return
	}

	plaintext, tokenHash, expires, err := GenerateResetToken(h.cfg)
	if err != nil {
		log.Printf("[auth.forgot] GenerateResetToken error: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	// 覆盖旧令牌：每个用户至多一个有效重置令牌
	if err := h.store.SetUserResetToken(r.Context(), user.ID, tokenHash, expires); err != nil {
		log.Printf("[auth.forgot] SetUserResetToken error: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	resetRequestsTotal.Inc()
	link := fmt.Sprintf("%s/reset-password/%s", h.publicURL, plaintext)
	if err := h.mail.SendPasswordReset(r.Context(), user.Email, link); err != nil {
		// 投递失败不泄露给调用方，也不回滚令牌
		log.Printf("[auth.forgot] SendPasswordReset error: %v", err)
	}

	writeMessage(w, http.StatusOK, "Recovery email sent")
}

// ResetPassword 使用重置令牌设置新密码
// POST /api/v1/auth/reset-password/{token}
func (h *Handler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	plaintext := r.PathValue("token")

	var req resetPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.NewPassword) < 6 {
		writeError(w, http.StatusBadRequest, "password must be at least 6 characters")
		return
	}

	user, err := h.store.GetUserByResetTokenHash(r.Context(), HashResetToken(plaintext))
	if err != nil {
		log.Printf("[auth.reset] GetUserByResetTokenHash error: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if !ResetTokenValid(user, plaintext, time.Now()) {
		writeError(w, http.StatusBadRequest, "invalid or expired reset token")
		return
	}

	hash, err := HashPassword(req.NewPassword)
	if err != nil {
		log.Printf("[auth.reset] HashPassword error: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	// 改密与清除重置字段在同一次单文档更新中完成，令牌随之一次性作废
	if err := h.store.UpdateUserPassword(r.Context(), user.ID, hash); err != nil {
		log.Printf("[auth.reset] UpdateUserPassword error: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to update password")
		return
	}

	log.Printf("[auth] Password reset completed: %s", user.Email)
	writeMessage(w, http.StatusOK, "Password updated")
}

// Me 获取当前用户信息
// GET /api/v1/auth/me
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	authUser := GetAuthUser(r.Context())
	if authUser == nil {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	user, err := h.store.GetUserByID(r.Context(), authUser.ID)
	if err != nil {
		log.Printf("[auth.me] GetUserByID error: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if user == nil {
		writeError(w, http.StatusNotFound, "user not found")
		return
	}

	writeData(w, http.StatusOK, "", user)
}

// ChangePassword 修改密码（需提供旧密码）
// PUT /api/v1/auth/password
func (h *Handler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	authUser := GetAuthUser(r.Context())
	if authUser == nil {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	var req changePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.OldPassword == "" || req.NewPassword == "" {
		writeError(w, http.StatusBadRequest, "old_password and new_password are required")
		return
	}
	if len(req.NewPassword) < 6 {
		writeError(w, http.StatusBadRequest, "password must be at least 6 characters")
		return
	}

	user, err := h.store.GetUserByID(r.Context(), authUser.ID)
	if err != nil {
		log.Printf("[auth.password] GetUserByID error: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if user == nil {
		writeError(w, http.StatusNotFound, "user not found")
		return
	}
	if !CheckPassword(req.OldPassword, user.PasswordHash) {
		writeError(w, http.StatusUnauthorized, "incorrect old password")
		return
	}

	hash, err := HashPassword(req.NewPassword)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if err := h.store.UpdateUserPassword(r.Context(), user.ID, hash); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to update password")
		return
	}

	writeMessage(w, http.StatusOK, "Password updated")
}

// UpdateProfile 更新个人资料（仅限本人，管理员也不能代改此路径）
// PUT /api/v1/auth/{id}
func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	authUser := GetAuthUser(r.Context())
	if authUser == nil {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}
	if authUser.ID != id {
		writeError(w, http.StatusForbidden, "you can only update your own profile")
		return
	}

	var req updateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := h.store.GetUserByID(r.Context(), id)
	if err != nil {
		log.Printf("[auth.profile] GetUserByID error: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if user == nil {
		writeError(w, http.StatusNotFound, "user not found")
		return
	}

	// 邮箱变更需要保持全局唯一
	if req.Email != nil && *req.Email != user.Email {
		if !isValidEmail(*req.Email) {
			writeError(w, http.StatusBadRequest, "invalid email format")
			return
		}
		other, err := h.store.GetUserByEmail(r.Context(), *req.Email)
		if err != nil {
			log.Printf("[auth.profile] GetUserByEmail error: %v", err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		if other != nil {
			writeError(w, http.StatusConflict, "email already in use")
			return
		}
		user.Email = *req.Email
	}

	// 可选字段：nil 保持不变，空字符串清空
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
			writeError(w, http.StatusConflict, "email already in use")
			return
		}
		log.Printf("[auth.profile] UpdateUser error: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to update profile")
		return
	}

	writeData(w, http.StatusOK, "Profile updated", user)
}

// ============================================================================
// Admin Bootstrap
// ============================================================================

// EnsureAdminUser 确保管理员用户存在（启动时调用）
// 如果配置了 adminEmail 且数据库中不存在该用户，则自动创建
func EnsureAdminUser(store storage.UserStore, adminEmail, adminPassword string) error {
	if adminEmail == "" || adminPassword == "" {
		return nil
	}

	ctx := context.Background()
	existing, err := store.GetUserByEmail(ctx, adminEmail)
	if err != nil {
		return fmt.Errorf("check admin user: %w", err)
	}
	if existing != nil {
		log.Printf("[auth] Admin user already exists: %s (%s)", adminEmail, existing.ID)
		return nil
	}

	hash, err := HashPassword(adminPassword)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}

	now := time.Now()
	user := &model.User{
		ID:           generateID("usr"),
		Username:     "admin",
		Email:        adminEmail,
		PasswordHash: hash,
		Role:         model.UserRoleAdmin,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := store.CreateUser(ctx, user); err != nil {
		return fmt.Errorf("create admin user: %w", err)
	}
	log.Printf("[auth] Created admin user: %s (%s)", adminEmail, user.ID)
	return nil
}

package auth

import (
	"log"
	"net/http"
	"strings"

	"blossom-shop/internal/shared/model"
)

// 免认证路由白名单（前缀匹配）
var publicPrefixes = []string{
	"/api/v1/auth/register",
	"/api/v1/auth/login",
	"/api/v1/auth/forgot-password",
	"/api/v1/auth/reset-password/",
	"/health",
	"/metrics",
}

func isPublicRoute(method, path string) bool {
	for _, prefix := range publicPrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	// 商品目录与公开主页资料只读接口无需登录
	if method == "GET" && strings.HasPrefix(path, "/api/v1/products") {
		return true
	}
	if method == "GET" && strings.HasPrefix(path, "/api/v1/profiles/") {
		return true
	}
	// 图片走公开只读接口（头像展示在商品页/主页）
	if method == "GET" && strings.HasPrefix(path, "/api/v1/uploads/") {
		return true
	}
	return false
}

// Middleware 创建 JWT 认证中间件
//
// 令牌只接受 Authorization: Bearer 头；缺失、无效、过期一律 401 短路，
// 不执行后续 handler。每次调用相互独立，无共享可变状态。
func Middleware(cfg Config) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// 公开路由：直接放行
			if isPublicRoute(r.Method, r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			// 提取 Bearer Token
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				writeError(w, http.StatusUnauthorized, "missing authorization header")
				return
			}
			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
				writeError(w, http.StatusUnauthorized, "invalid authorization header")
				return
			}

			// 解析 JWT
			claims, err := ParseToken(cfg, parts[1])
			if err != nil {
				log.Printf("[auth] token parse error: %v", err)
				writeError(w, http.StatusUnauthorized, "invalid or expired token")
				return
			}

			// 注入 auth user 到 context（信任签发时的声明，不回查存储）
			user := &AuthUser{
				ID:       claims.Subject,
				Username: claims.Username,
				Email:    claims.Email,
				Role:     claims.Role,
			}
			next.ServeHTTP(w, r.WithContext(WithAuthUser(r.Context(), user)))
		})
	}
}

// AdminOnly 管理员专属路由中间件
func AdminOnly(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := GetAuthUser(r.Context())
		if user == nil {
			writeError(w, http.StatusUnauthorized, "not authenticated")
			return
		}
		if user.Role != string(model.UserRoleAdmin) {
			writeError(w, http.StatusForbidden, "admin access required")
			return
		}
		next(w, r)
	}
}

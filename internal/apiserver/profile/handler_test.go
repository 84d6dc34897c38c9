package profile

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"blossom-shop/internal/shared/model"
	"blossom-shop/internal/shared/storage"
)

func TestGetProfile(t *testing.T) {
	store := storage.NewMemStore()
	user := &model.User{
		ID:           "user-abc123",
		Username:     "alice",
		Email:        "alice@x.com",
		PasswordHash: "$2a$12$fakehash",
		Role:         model.UserRoleUser,
		FirstName:    "Alice",
		Bio:          "flower lover",
		Phone:        "555-0100",
	}
	if err := store.CreateUser(context.Background(), user); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	mux := http.NewServeMux()
	NewHandler(store).RegisterRoutes(mux)

	t.Run("存在的用户", func(t *testing.T) {
		r := httptest.NewRequest("GET", "/api/v1/profiles/user-abc123", nil)
		w := httptest.NewRecorder()
		mux.ServeHTTP(w, r)

		if w.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", w.Code)
		}
		var out struct {
			Success bool          `json:"success"`
			Data    PublicProfile `json:"data"`
		}
		if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if out.Data.Username != "alice" || out.Data.Bio != "flower lover" {
			t.Errorf("data = %+v", out.Data)
		}
		// 公开视图不含联系方式和凭据
		body := w.Body.String()
		for _, secret := range []string{"alice@x.com", "555-0100", "$2a$12"} {
			if strings.Contains(body, secret) {
				t.Errorf("public profile leaks %q", secret)
			}
		}
	})

	t.Run("不存在的用户", func(t *testing.T) {
		r := httptest.NewRequest("GET", "/api/v1/profiles/user-nope", nil)
		w := httptest.NewRecorder()
		mux.ServeHTTP(w, r)
		if w.Code != http.StatusNotFound {
			t.Errorf("status = %d, want 404", w.Code)
		}
	})
}

package upload

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/minio/minio-go/v7"

	"blossom-shop/internal/apiserver/auth"
	"blossom-shop/internal/shared/model"
	"blossom-shop/internal/shared/storage"
)

// fakeObjectStore 内存对象存储
type fakeObjectStore struct {
	objects map[string][]byte
	types   map[string]string
}

func newFakeObjectStore() *fakeObjectStore {
	return &fakeObjectStore{
		objects: make(map[string][]byte),
		types:   make(map[string]string),
	}
}

func (f *fakeObjectStore) Upload(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error {
	data, err := io.ReadAll(reader)
	if err != nil {
		return err
	}
	f.objects[key] = data
	f.types[key] = contentType
	return nil
}

func (f *fakeObjectStore) Download(ctx context.Context, key string) (io.ReadCloser, minio.ObjectInfo, error) {
	data, ok := f.objects[key]
	if !ok {
		return nil, minio.ObjectInfo{}, fmt.Errorf("object not found: %s", key)
	}
	info := minio.ObjectInfo{Key: key, Size: int64(len(data)), ContentType: f.types[key]}
	return io.NopCloser(bytes.NewReader(data)), info, nil
}

func (f *fakeObjectStore) Delete(ctx context.Context, key string) error {
	delete(f.objects, key)
	delete(f.types, key)
	return nil
}

type testEnv struct {
	store   *storage.MemStore
	objects *fakeObjectStore
	mux     *http.ServeMux
	alice   *auth.AuthUser
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{
		store:   storage.NewMemStore(),
		objects: newFakeObjectStore(),
		alice:   &auth.AuthUser{ID: "user-alice", Username: "alice", Role: "user"},
	}
	env.mux = http.NewServeMux()
	NewHandler(env.store, env.objects).RegisterRoutes(env.mux)

	now := time.Now()
	err := env.store.CreateUser(context.Background(), &model.User{
		ID: "user-alice", Username: "alice", Email: "alice@x.com",
		PasswordHash: "$2a$12$fakehash", Role: model.UserRoleUser,
		CreatedAt: now, UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return env
}

// pngBytes 最小可嗅探的 PNG 内容
func pngBytes() []byte {
	return append([]byte("\x89PNG\r\n\x1a\n"), bytes.Repeat([]byte{0}, 64)...)
}

func jpegBytes() []byte {
	return append([]byte("\xff\xd8\xff\xe0"), bytes.Repeat([]byte{0}, 64)...)
}

// multipartUpload 组装 multipart 请求
func (env *testEnv) multipartUpload(t *testing.T, field, filename string, content []byte, user *auth.AuthUser) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile(field, filename)
	if err != nil {
		t.Fatalf("CreateFormFile: %v", err)
	}
	fw.Write(content)
	mw.Close()

	r := httptest.NewRequest("POST", "/api/v1/uploads/profile-image", &buf)
	r.Header.Set("Content-Type", mw.FormDataContentType())
	if user != nil {
		r = r.WithContext(auth.WithAuthUser(r.Context(), user))
	}
	w := httptest.NewRecorder()
	env.mux.ServeHTTP(w, r)
	return w
}

func TestUploadProfileImage(t *testing.T) {
	env := newTestEnv(t)

	// 未登录 → 401
	if w := env.multipartUpload(t, "image", "a.png", pngBytes(), nil); w.Code != http.StatusUnauthorized {
		t.Errorf("anonymous: status = %d, want 401", w.Code)
	}

	w := env.multipartUpload(t, "image", "a.png", pngBytes(), env.alice)
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	user, _ := env.store.GetUserByID(context.Background(), "user-alice")
	if !strings.HasPrefix(user.ProfileImage, "profiles/user-alice/") || !strings.HasSuffix(user.ProfileImage, ".png") {
		t.Errorf("profile_image = %q", user.ProfileImage)
	}
	if _, ok := env.objects.objects[user.ProfileImage]; !ok {
		t.Error("object not stored")
	}
	firstKey := user.ProfileImage

	// 再次上传：新对象替换旧对象
	w = env.multipartUpload(t, "image", "b.jpg", jpegBytes(), env.alice)
	if w.Code != http.StatusCreated {
		t.Fatalf("second upload: status = %d", w.Code)
	}
	user, _ = env.store.GetUserByID(context.Background(), "user-alice")
	if !strings.HasSuffix(user.ProfileImage, ".jpg") {
		t.Errorf("profile_image = %q, want .jpg", user.ProfileImage)
	}
	if _, ok := env.objects.objects[firstKey]; ok {
		t.Error("old object not deleted after replacement")
	}

	// 非图片内容被拒绝（扩展名伪装无效）
	w = env.multipartUpload(t, "image", "evil.png", []byte("#!/bin/sh\necho pwned"), env.alice)
	if w.Code != http.StatusBadRequest {
		t.Errorf("non-image: status = %d, want 400", w.Code)
	}

	// 缺少文件字段
	w = env.multipartUpload(t, "wrong_field", "a.png", pngBytes(), env.alice)
	if w.Code != http.StatusBadRequest {
		t.Errorf("missing field: status = %d, want 400", w.Code)
	}
}

func TestServeImage(t *testing.T) {
	env := newTestEnv(t)
	env.multipartUpload(t, "image", "a.png", pngBytes(), env.alice)
	user, _ := env.store.GetUserByID(context.Background(), "user-alice")

	r := httptest.NewRequest("GET", "/api/v1/uploads/"+user.ProfileImage, nil)
	w := httptest.NewRecorder()
	env.mux.ServeHTTP(w, r)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "image/png" {
		t.Errorf("Content-Type = %q, want image/png", ct)
	}
	if !bytes.Equal(w.Body.Bytes(), pngBytes()) {
		t.Error("served content differs from upload")
	}

	r = httptest.NewRequest("GET", "/api/v1/uploads/profiles/nope/missing.png", nil)
	w = httptest.NewRecorder()
	env.mux.ServeHTTP(w, r)
	if w.Code != http.StatusNotFound {
		t.Errorf("missing object: status = %d, want 404", w.Code)
	}
}

func TestDeleteProfileImage(t *testing.T) {
	env := newTestEnv(t)
	env.multipartUpload(t, "image", "a.png", pngBytes(), env.alice)
	user, _ := env.store.GetUserByID(context.Background(), "user-alice")
	key := user.ProfileImage

	doDelete := func(userID string, as *auth.AuthUser) *httptest.ResponseRecorder {
		r := httptest.NewRequest("DELETE", "/api/v1/uploads/profile-image/"+userID, nil)
		if as != nil {
			r = r.WithContext(auth.WithAuthUser(r.Context(), as))
		}
		w := httptest.NewRecorder()
		env.mux.ServeHTTP(w, r)
		return w
	}

	// 他人无权删除
	bob := &auth.AuthUser{ID: "user-bob", Role: "user"}
	if w := doDelete("user-alice", bob); w.Code != http.StatusForbidden {
		t.Errorf("other user: status = %d, want 403", w.Code)
	}

	// 本人删除
	if w := doDelete("user-alice", env.alice); w.Code != http.StatusOK {
		t.Fatalf("owner delete: status = %d", w.Code)
	}
	user, _ = env.store.GetUserByID(context.Background(), "user-alice")
	if user.ProfileImage != "" {
		t.Errorf("profile_image = %q, want empty", user.ProfileImage)
	}
	if _, ok := env.objects.objects[key]; ok {
		t.Error("object not deleted")
	}

	// 已无头像 → 404
	if w := doDelete("user-alice", env.alice); w.Code != http.StatusNotFound {
		t.Errorf("no image: status = %d, want 404", w.Code)
	}

	// 管理员可删他人头像
	env.multipartUpload(t, "image", "a.png", pngBytes(), env.alice)
	admin := &auth.AuthUser{ID: "user-admin1", Role: "admin"}
	if w := doDelete("user-alice", admin); w.Code != http.StatusOK {
		t.Errorf("admin delete: status = %d, want 200", w.Code)
	}
}

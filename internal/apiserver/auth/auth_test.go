package auth

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"blossom-shop/internal/shared/model"
)

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.JWTSecret = "test-secret"
	return cfg
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("secret1")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if hash == "secret1" {
		t.Fatal("hash equals plaintext")
	}
	if !strings.HasPrefix(hash, "$2a$") {
		t.Errorf("unexpected hash format: %s", hash)
	}

	if !CheckPassword("secret1", hash) {
		t.Error("CheckPassword(correct) = false")
	}
	if CheckPassword("secret2", hash) {
		t.Error("CheckPassword(wrong) = true")
	}

	// 两次哈希同一密码产生不同盐值
	hash2, _ := HashPassword("secret1")
	if hash == hash2 {
		t.Error("two hashes of same password are identical")
	}

	// 非法哈希格式不 panic，返回 false
	if CheckPassword("secret1", "not-a-bcrypt-hash") {
		t.Error("CheckPassword(malformed hash) = true")
	}
	if CheckPassword("secret1", "") {
		t.Error("CheckPassword(empty hash) = true")
	}
}

func TestSessionTokenRoundTrip(t *testing.T) {
	cfg := testConfig()

	token, err := GenerateSessionToken(cfg, "usr-001", "alice", "alice@x.com", "user")
	if err != nil {
		t.Fatalf("GenerateSessionToken: %v", err)
	}

	claims, err := ParseToken(cfg, token)
	if err != nil {
		t.Fatalf("ParseToken: %v", err)
	}
	if claims.Subject != "usr-001" {
		t.Errorf("Subject = %q, want usr-001", claims.Subject)
	}
	if claims.Username != "alice" || claims.Email != "alice@x.com" || claims.Role != "user" {
		t.Errorf("claims = %+v", claims)
	}

	// 过期时间约为 30 天后
	exp := claims.ExpiresAt.Time
	want := time.Now().Add(cfg.SessionTTL)
	if exp.Before(want.Add(-time.Minute)) || exp.After(want.Add(time.Minute)) {
		t.Errorf("ExpiresAt = %v, want ~%v", exp, want)
	}
}

func TestParseToken_Failures(t *testing.T) {
	cfg := testConfig()
	token, _ := GenerateSessionToken(cfg, "usr-001", "alice", "alice@x.com", "user")

	t.Run("签名不符", func(t *testing.T) {
		bad := cfg
		bad.JWTSecret = "other-secret"
		if _, err := ParseToken(bad, token); err == nil {
			t.Error("ParseToken with wrong secret succeeded")
		}
	})

	t.Run("格式非法", func(t *testing.T) {
		if _, err := ParseToken(cfg, "not.a.jwt"); err == nil {
			t.Error("ParseToken with garbage succeeded")
		}
	})

	t.Run("已过期", func(t *testing.T) {
		expired := cfg
		expired.SessionTTL = -time.Hour
		tok, _ := GenerateSessionToken(expired, "usr-001", "alice", "alice@x.com", "user")
		_, err := ParseToken(cfg, tok)
		if !errors.Is(err, jwt.ErrTokenExpired) {
			t.Errorf("err = %v, want ErrTokenExpired", err)
		}
	})
}

func TestGenerateResetToken(t *testing.T) {
	cfg := testConfig()

	plaintext, tokenHash, expires, err := GenerateResetToken(cfg)
	if err != nil {
		t.Fatalf("GenerateResetToken: %v", err)
	}

	// 32 字节 → 64 字符 hex
	if len(plaintext) != 64 {
		t.Errorf("plaintext length = %d, want 64", len(plaintext))
	}
	if tokenHash == plaintext {
		t.Error("stored hash equals plaintext")
	}
	if tokenHash != HashResetToken(plaintext) {
		t.Error("hash does not match HashResetToken(plaintext)")
	}

	want := time.Now().Add(cfg.ResetTokenTTL)
	if expires.Before(want.Add(-time.Minute)) || expires.After(want.Add(time.Minute)) {
		t.Errorf("expires = %v, want ~%v", expires, want)
	}

	// 两次生成互不相同
	p2, _, _, _ := GenerateResetToken(cfg)
	if plaintext == p2 {
		t.Error("two generated tokens are identical")
	}
}

func TestResetTokenValid(t *testing.T) {
	cfg := testConfig()
	plaintext, tokenHash, expires, _ := GenerateResetToken(cfg)
	now := time.Now()

	tests := []struct {
		name string
		user *model.User
		tok  string
		now  time.Time
		want bool
	}{
		{"有效令牌", &model.User{ResetTokenHash: tokenHash, ResetExpires: &expires}, plaintext, now, true},
		{"令牌不匹配", &model.User{ResetTokenHash: tokenHash, ResetExpires: &expires}, "wrong-token", now, false},
		{"已过期", &model.User{ResetTokenHash: tokenHash, ResetExpires: &expires}, plaintext, expires.Add(time.Second), false},
		{"无存储令牌", &model.User{}, plaintext, now, false},
		{"缺少过期时间", &model.User{ResetTokenHash: tokenHash}, plaintext, now, false},
		{"用户为空", nil, plaintext, now, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ResetTokenValid(tt.user, tt.tok, tt.now); got != tt.want {
				t.Errorf("ResetTokenValid() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIsValidEmail(t *testing.T) {
	valid := []string{"alice@x.com", "a.b+c@sub.domain.org"}
	invalid := []string{"", "alice", "alice@", "@x.com", "alice@x"}

	for _, e := range valid {
		if !isValidEmail(e) {
			t.Errorf("isValidEmail(%q) = false", e)
		}
	}
	for _, e := range invalid {
		if isValidEmail(e) {
			t.Errorf("isValidEmail(%q) = true", e)
		}
	}
}

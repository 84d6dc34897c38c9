package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"blossom-shop/internal/shared/model"
)

// GenerateResetToken 生成密码重置令牌
//
// 返回 (明文令牌, 存储用 SHA-256 摘要, 过期时间)。
// 明文为 32 字节随机值的 hex 编码，只通过邮件下发，绝不落库；
// 库中只存摘要。输入本身是高熵随机值，摘要用快速哈希即可，
// bcrypt 留给低熵的用户密码。
func GenerateResetToken(cfg Config) (plaintext, tokenHash string, expires time.Time, err error) {
	b := make([]byte, 32)
	if _, err = rand.Read(b); err != nil {
		return "", "", time.Time{}, err
	}
	plaintext = hex.EncodeToString(b)
	tokenHash = HashResetToken(plaintext)
	expires = time.Now().Add(cfg.ResetTokenTTL)
	return plaintext, tokenHash, expires, nil
}

// HashResetToken 计算重置令牌的存储摘要
func HashResetToken(plaintext string) string {
	sum := sha256.Sum256([]byte(plaintext))
	return hex.EncodeToString(sum[:])
}

// ResetTokenValid 校验用户记录上的重置令牌是否与明文匹配且未过期
func ResetTokenValid(u *model.User, plaintext string, now time.Time) bool {
	if u == nil || u.ResetTokenHash == "" || u.ResetExpires == nil {
		return false
	}
	if now.After(*u.ResetExpires) {
		return false
	}
	return u.ResetTokenHash == HashResetToken(plaintext)
}

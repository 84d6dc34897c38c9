package model

import "time"

// UserRole 用户角色
type UserRole string

const (
	UserRoleAdmin UserRole = "admin"
	UserRoleUser  UserRole = "user"
)

// Valid 角色是否合法
func (r UserRole) Valid() bool {
	return r == UserRoleAdmin || r == UserRoleUser
}

// User 用户
//
// PasswordHash 和密码重置字段通过 json:"-" 保证永远不会出现在 API 响应中。
// ResetTokenHash 只存储重置令牌的 SHA-256 摘要，明文令牌仅通过邮件下发。
type User struct {
	ID             string     `json:"id" bson:"_id"`
	Username       string     `json:"username" bson:"username"`
	Email          string     `json:"email" bson:"email"`
	PasswordHash   string     `json:"-" bson:"password_hash"` // never expose in JSON
	Role           UserRole   `json:"role" bson:"role"`
	FirstName      string     `json:"first_name,omitempty" bson:"first_name,omitempty"`
	LastName       string     `json:"last_name,omitempty" bson:"last_name,omitempty"`
	Bio            string     `json:"bio,omitempty" bson:"bio,omitempty"`
	Phone          string     `json:"phone,omitempty" bson:"phone,omitempty"`
	ProfileImage   string     `json:"profile_image,omitempty" bson:"profile_image,omitempty"` // 对象存储 key
	ResetTokenHash string     `json:"-" bson:"reset_token_hash,omitempty"`
	ResetExpires   *time.Time `json:"-" bson:"reset_expires,omitempty"`
	CreatedAt      time.Time  `json:"created_at" bson:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at" bson:"updated_at"`
}

// FullName 拼接显示名
func (u *User) FullName() string {
	switch {
	case u.FirstName == "":
		return u.LastName
	case u.LastName == "":
		return u.FirstName
	default:
		return u.FirstName + " " + u.LastName
	}
}

// IsAdmin 是否管理员
func (u *User) IsAdmin() bool {
	return u.Role == UserRoleAdmin
}

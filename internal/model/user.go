package model

import "time"

// Role はユーザーの権限種別を表す。
type Role string

const (
	// RoleAdmin は管理画面にアクセスできる管理者。
	RoleAdmin Role = "admin"
	// RoleUser は一般ユーザー。
	RoleUser Role = "user"
)

// User はAPIが返すユーザー情報を表す。
// クライアント側では変更せず、認証レスポンスごとに丸ごと置き換える。
type User struct {
	ID              int64      `json:"id"`
	Name            string     `json:"name"`
	Email           string     `json:"email"`
	Role            Role       `json:"role"`
	EmailVerifiedAt *time.Time `json:"email_verified_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// IsAdmin はユーザーが管理者かどうかを返す。
func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

// LoginRequest はログインAPIのリクエストボディ。
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RegisterRequest はユーザー登録APIのリクエストボディ。
type RegisterRequest struct {
	Name                 string `json:"name"`
	Email                string `json:"email"`
	Password             string `json:"password"`
	PasswordConfirmation string `json:"password_confirmation"`
}

// AuthPayload はlogin/register/refreshが返すdata部。
type AuthPayload struct {
	User        *User  `json:"user"`
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

package apiclient

import (
	"context"
	"net/http"

	"github.com/hitoshi/showroom/internal/model"
)

// AuthService は認証APIの操作を提供する。
// Logout・Me・RefreshはWithTokenで付与したトークンで認証される。
type AuthService struct {
	client *Client
}

// Login はメールアドレスとパスワードでログインする。
func (s *AuthService) Login(ctx context.Context, req model.LoginRequest) (*model.AuthPayload, error) {
	return s.authenticate(ctx, "login", "/auth/login", req)
}

// Register はユーザーを登録し、そのままログイン状態のペイロードを返す。
func (s *AuthService) Register(ctx context.Context, req model.RegisterRequest) (*model.AuthPayload, error) {
	return s.authenticate(ctx, "register", "/auth/register", req)
}

// Refresh はアクセストークンを更新する。
func (s *AuthService) Refresh(ctx context.Context) (*model.AuthPayload, error) {
	return s.authenticate(ctx, "refresh", "/auth/refresh", nil)
}

// Logout はサーバーにログアウトを通知する。
func (s *AuthService) Logout(ctx context.Context) error {
	cl := call{resource: "auth", operation: "logout", method: http.MethodPost, path: "/auth/logout"}
	return s.client.do(ctx, cl, nil)
}

// Me はトークンに紐づくユーザー情報を取得する。
func (s *AuthService) Me(ctx context.Context) (*model.User, error) {
	var user model.User
	cl := call{resource: "auth", operation: "me", method: http.MethodGet, path: "/auth/me"}
	if err := s.client.do(ctx, cl, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *AuthService) authenticate(ctx context.Context, operation, path string, payload any) (*model.AuthPayload, error) {
	cl, err := jsonCall("auth", operation, http.MethodPost, path, payload)
	if err != nil {
		return nil, err
	}
	var out model.AuthPayload
	if err := s.client.do(ctx, cl, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

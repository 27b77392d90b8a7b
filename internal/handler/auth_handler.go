package handler

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/hitoshi/showroom/internal/apiclient"
	"github.com/hitoshi/showroom/internal/model"
	"github.com/hitoshi/showroom/internal/session"
	"github.com/hitoshi/showroom/internal/view"
)

// AuthHandler はログイン・登録・ログアウトなど、セッションの認証状態を変えるHTTPハンドラー。
// 操作対象のストアはセッションミドルウェアがコンテキストに注入する。
type AuthHandler struct {
	logger *slog.Logger
}

// NewAuthHandler はAuthHandlerを生成する。
func NewAuthHandler(logger *slog.Logger) *AuthHandler {
	return &AuthHandler{logger: logger}
}

// sessionResponse はセッション状態のAPIレスポンス。
type sessionResponse struct {
	Authenticated bool        `json:"authenticated"`
	IsAdmin       bool        `json:"is_admin"`
	User          *model.User `json:"user"`
}

func toSessionResponse(s session.Session) sessionResponse {
	return sessionResponse{
		Authenticated: s.IsAuthenticated(),
		IsAdmin:       s.IsAdmin(),
		User:          s.User,
	}
}

// Login はメールアドレスとパスワードでログインする。
// POST /api/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	store := storeFromRequest(w, r, h.logger)
	if store == nil {
		return
	}

	var req model.LoginRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.Email = strings.TrimSpace(req.Email)
	if req.Email == "" || req.Password == "" {
		handleError(w, r, h.logger, model.NewValidationError(view.MsgLoginFields), "")
		return
	}

	s, err := store.Login(r.Context(), req)
	if err != nil {
		handleError(w, r, h.logger, err, "Invalid credentials")
		return
	}
	writeJSON(w, http.StatusOK, toSessionResponse(s))
}

// Register はユーザーを登録し、そのままログイン状態にする。
// POST /api/auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	store := storeFromRequest(w, r, h.logger)
	if store == nil {
		return
	}

	var req model.RegisterRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.TrimSpace(req.Email)
	if req.Name == "" || req.Email == "" || req.Password == "" {
		handleError(w, r, h.logger, model.NewValidationError(view.MsgLoginFields), "")
		return
	}
	if req.PasswordConfirmation != req.Password {
		handleError(w, r, h.logger, model.NewValidationError("Passwords do not match"), "")
		return
	}

	s, err := store.Register(r.Context(), req)
	if err != nil {
		handleError(w, r, h.logger, err, "Registration failed")
		return
	}
	writeJSON(w, http.StatusCreated, toSessionResponse(s))
}

// Logout はセッションを消去し、ストアが返した遷移先を返す。
// サーバーへの通知の成否に関わらず、ローカルの状態は必ず消去される。
// POST /api/auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	store := storeFromRequest(w, r, h.logger)
	if store == nil {
		return
	}

	landing := store.Logout(r.Context())
	writeJSON(w, http.StatusOK, map[string]string{"redirect": landing})
}

// Me は現在のセッション状態を返す。
// ログイン済みの場合はサーバーからユーザー情報を取り直す。
// 取り直しが401の場合はセッションが消去され401を返す。それ以外の失敗ではキャッシュを返す。
// GET /api/auth/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	store := storeFromRequest(w, r, h.logger)
	if store == nil {
		return
	}

	if !store.IsAuthenticated() {
		writeJSON(w, http.StatusOK, toSessionResponse(session.Session{}))
		return
	}

	s, err := store.RefreshUser(r.Context())
	if err != nil {
		if apiclient.IsUnauthorized(err) {
			handleError(w, r, h.logger, model.NewUnauthorizedError(), "")
			return
		}
		h.logger.Warn("failed to refresh user, serving cached session",
			slog.String("session_id", store.ID()),
			slog.String("error", err.Error()),
		)
		s = store.Snapshot()
	}
	writeJSON(w, http.StatusOK, toSessionResponse(s))
}

// Refresh はトークンを更新する。
// POST /api/auth/refresh
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	store := storeFromRequest(w, r, h.logger)
	if store == nil {
		return
	}

	s, err := store.RefreshToken(r.Context())
	if err != nil {
		handleError(w, r, h.logger, err, "Session refresh failed")
		return
	}
	writeJSON(w, http.StatusOK, toSessionResponse(s))
}

// AdminLogin は管理画面にログインする。管理者以外はログイン後すぐにログアウトされ403になる。
// POST /api/admin/login
func (h *AuthHandler) AdminLogin(w http.ResponseWriter, r *http.Request) {
	store := storeFromRequest(w, r, h.logger)
	if store == nil {
		return
	}

	var form view.LoginForm
	if !decodeJSON(w, r, &form) {
		return
	}

	if _, err := form.Submit(r.Context(), store); err != nil {
		handleError(w, r, h.logger, err, "Invalid credentials")
		return
	}
	writeJSON(w, http.StatusOK, toSessionResponse(store.Snapshot()))
}

// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/hitoshi/showroom/internal/session"
)

// SessionCookieName はブラウザセッションIDを保持するCookieの名前。
const SessionCookieName = "sid"

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

// storeContextKey はリクエストコンテキストにセッションストアを格納するためのキー。
var storeContextKey = contextKey("session_store")

// ErrNoSession はコンテキストにセッションストアがない場合のエラー。
var ErrNoSession = errors.New("session store not found in context")

// StoreProvider はセッションIDに対応するストアを返す。*session.Manager がこれを満たす。
type StoreProvider interface {
	Get(ctx context.Context, sessionID string) *session.Store
}

// SessionCookieConfig はセッションCookieの属性。
type SessionCookieConfig struct {
	Secure bool
	Domain string
	MaxAge int // 秒
}

// NewSessionMiddleware はsid Cookieからブラウザセッションを特定し、
// 対応するセッションストアをリクエストコンテキストに注入するミドルウェアを返す。
// Cookieがない、またはUUIDとして不正な場合は新しいIDを発行してCookieを設定する。
// 未認証でも拒否はしない。アクセス制御はガードミドルウェアが行う。
func NewSessionMiddleware(provider StoreProvider, config SessionCookieConfig) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sid := ""
			if cookie, err := r.Cookie(SessionCookieName); err == nil {
				if _, err := uuid.Parse(cookie.Value); err == nil {
					sid = cookie.Value
				}
			}
			if sid == "" {
				sid = uuid.NewString()
				http.SetCookie(w, &http.Cookie{
					Name:     SessionCookieName,
					Value:    sid,
					Path:     "/",
					Domain:   config.Domain,
					MaxAge:   config.MaxAge,
					HttpOnly: true,
					Secure:   config.Secure,
					SameSite: http.SameSiteLaxMode,
				})
			}

			setLogSessionID(r.Context(), sid)

			store := provider.Get(r.Context(), sid)
			next.ServeHTTP(w, r.WithContext(ContextWithStore(r.Context(), store)))
		})
	}
}

// StoreFromContext はリクエストコンテキストからセッションストアを取得する。
// セッションミドルウェアを通過したリクエストでのみ有効。
func StoreFromContext(ctx context.Context) (*session.Store, error) {
	store, ok := ctx.Value(storeContextKey).(*session.Store)
	if !ok || store == nil {
		return nil, ErrNoSession
	}
	return store, nil
}

// ContextWithStore はコンテキストにセッションストアを注入する。
// テストやミドルウェア以外のコンテキスト生成で使用する。
func ContextWithStore(ctx context.Context, store *session.Store) context.Context {
	return context.WithValue(ctx, storeContextKey, store)
}

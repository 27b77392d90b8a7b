package middleware

import (
	"net/http"
	"strings"

	"github.com/hitoshi/showroom/internal/apiclient"
	"github.com/hitoshi/showroom/internal/model"
	"github.com/hitoshi/showroom/internal/session"
)

// Policy はルートに必要なアクセス条件。
type Policy int

const (
	// PolicyAuthenticated はトークンを持つセッションだけを通す。
	PolicyAuthenticated Policy = iota
	// PolicyAdmin は管理者ユーザーのセッションだけを通す。
	PolicyAdmin
)

// Decision はガードの判定結果。
// Allowedがfalseの場合、Statusと Err に拒否理由が入る。
type Decision struct {
	Allowed bool
	Status  int
	Err     *model.APIError
}

// Evaluate はセッションがポリシーを満たすかどうかを判定する。副作用はない。
func Evaluate(s session.Session, p Policy) Decision {
	if !s.IsAuthenticated() {
		return Decision{Status: http.StatusUnauthorized, Err: model.NewUnauthorizedError()}
	}
	if p == PolicyAdmin && !s.IsAdmin() {
		return Decision{Status: http.StatusForbidden, Err: model.NewAdminRequiredError()}
	}
	return Decision{Allowed: true, Status: http.StatusOK}
}

// GuardConfig はガードミドルウェアの設定。
type GuardConfig struct {
	FallbackPath string // 拒否時の遷移先
}

// NewGuardMiddleware はポリシーを満たさないリクエストを拒否するミドルウェアを返す。
// 拒否時、画面遷移（Accept: text/html）にはFallbackPathへの303を、
// それ以外には401/403と遷移先を含む統一エラーを返す。
// 通過したリクエストのコンテキストにはセッションのトークンを載せ、上流APIの呼び出しに使わせる。
// セッションミドルウェアの後に配置する。
func NewGuardMiddleware(policy Policy, config GuardConfig) func(next http.Handler) http.Handler {
	fallback := config.FallbackPath
	if fallback == "" {
		fallback = session.LandingPath
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var snapshot session.Session
			if store, err := StoreFromContext(r.Context()); err == nil {
				snapshot = store.Snapshot()
			}

			d := Evaluate(snapshot, policy)
			if d.Allowed {
				next.ServeHTTP(w, r.WithContext(apiclient.WithToken(r.Context(), snapshot.Token)))
				return
			}

			if wantsHTML(r) {
				http.Redirect(w, r, fallback, http.StatusSeeOther)
				return
			}
			WriteRedirectErrorResponse(w, d.Status, d.Err, fallback)
		})
	}
}

// wantsHTML はリクエストがブラウザの画面遷移かどうかを判定する。
func wantsHTML(r *http.Request) bool {
	accept := r.Header.Get("Accept")
	return strings.Contains(accept, "text/html") && !strings.Contains(accept, "application/json")
}

// Package session はブラウザセッションごとの認証状態を管理する。
// Storeが唯一の書き込み手となり、状態の変化はObservableで購読者に通知される。
package session

import "github.com/hitoshi/showroom/internal/model"

// LandingPath はログアウト後に遷移する既定の画面。
const LandingPath = "/home"

// Session は現在の認証状態。TokenとUserは両方あるか、両方ないかのどちらか。
type Session struct {
	Token string
	User  *model.User
}

// IsAuthenticated はトークンを持っているかどうかを返す。
func (s Session) IsAuthenticated() bool {
	return s.Token != ""
}

// IsAdmin はユーザーが管理者かどうかを返す。
func (s Session) IsAdmin() bool {
	return s.User.IsAdmin()
}

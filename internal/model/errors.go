// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, catalog, upstream, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeInvalidFilter    = "INVALID_FILTER"
	ErrCodeInvalidRequest   = "INVALID_REQUEST"
	ErrCodeValidation       = "VALIDATION_FAILED"
	ErrCodeUnauthorized     = "UNAUTHORIZED"
	ErrCodeForbidden        = "FORBIDDEN"
	ErrCodeCarNotFound      = "CAR_NOT_FOUND"
	ErrCodeUpstreamFailed   = "UPSTREAM_FAILED"
	ErrCodeAdminRequired    = "ADMIN_REQUIRED"
	ErrCodeInvalidSpecMove  = "INVALID_SPEC_MOVE"
	ErrCodeInvalidImageType = "INVALID_IMAGE_TYPE"
)

// NewInvalidFilterError は無効な一覧フィルタのエラーを生成する。
func NewInvalidFilterError(field, value string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidFilter,
		Message:  fmt.Sprintf("無効なフィルタです: %s=%s", field, value),
		Category: "validation",
		Action:   "フィルタの値を確認してください。",
	}
}

// NewInvalidRequestError はリクエストボディを解釈できない場合のエラーを生成する。
func NewInvalidRequestError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidRequest,
		Message:  "リクエストボディの解析に失敗しました。",
		Category: "validation",
		Action:   "正しい形式でリクエストしてください。",
	}
}

// NewValidationError は入力必須項目の不足など、API呼び出し前に検出したエラーを生成する。
// messageはそのまま画面に表示される。
func NewValidationError(message string) *APIError {
	return &APIError{
		Code:     ErrCodeValidation,
		Message:  message,
		Category: "validation",
		Action:   "入力内容を確認してください。",
	}
}

// NewUnauthorizedError は未ログイン時のエラーを生成する。
func NewUnauthorizedError() *APIError {
	return &APIError{
		Code:     ErrCodeUnauthorized,
		Message:  "認証が必要です。",
		Category: "auth",
		Action:   "ログインしてください。",
	}
}

// NewForbiddenError は権限不足のエラーを生成する。
func NewForbiddenError() *APIError {
	return &APIError{
		Code:     ErrCodeForbidden,
		Message:  "この操作を行う権限がありません。",
		Category: "auth",
		Action:   "管理者アカウントでログインしてください。",
	}
}

// NewAdminRequiredError は管理画面へのログインで一般ユーザーが認証された場合のエラーを生成する。
func NewAdminRequiredError() *APIError {
	return &APIError{
		Code:     ErrCodeAdminRequired,
		Message:  "Admin access required",
		Category: "auth",
		Action:   "管理者アカウントでログインしてください。",
	}
}

// NewCarNotFoundError は車両が見つからない場合のエラーを生成する。
func NewCarNotFoundError(id int64) *APIError {
	return &APIError{
		Code:     ErrCodeCarNotFound,
		Message:  fmt.Sprintf("指定された車両が見つかりません: %d", id),
		Category: "catalog",
		Action:   "車両一覧から選び直してください。",
	}
}

// NewUpstreamError はバックエンドAPIの呼び出し失敗を表すエラーを生成する。
// messageにはサーバーが返したメッセージ、なければ汎用メッセージを渡す。
func NewUpstreamError(message string) *APIError {
	return &APIError{
		Code:     ErrCodeUpstreamFailed,
		Message:  message,
		Category: "upstream",
		Action:   "しばらく待ってから再度お試しください。",
	}
}

// NewInvalidSpecMoveError は仕様項目の並べ替え指定が不正な場合のエラーを生成する。
func NewInvalidSpecMoveError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidSpecMove,
		Message:  fmt.Sprintf("並べ替えの指定が不正です: %s", reason),
		Category: "validation",
		Action:   "カテゴリと位置、方向（up/down）を確認してください。",
	}
}

// NewInvalidImageTypeError は画像種別が不正な場合のエラーを生成する。
func NewInvalidImageTypeError(t string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidImageType,
		Message:  fmt.Sprintf("無効な画像種別です: %s", t),
		Category: "validation",
		Action:   "画像種別には main、gallery、interior、exterior のいずれかを指定してください。",
	}
}

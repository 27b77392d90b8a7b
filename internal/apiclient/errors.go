package apiclient

import (
	"errors"
	"fmt"
	"net/http"
)

// Error はAPI呼び出しの失敗を表す。
// 通信エラーの場合はStatusCodeが0でErrに原因が入る。
// サーバーがエラーを返した場合はStatusCodeとMessage（サーバーのmessage）が入る。
type Error struct {
	StatusCode int
	Message    string
	Err        error
}

// Error はerrorインターフェースを実装する。
func (e *Error) Error() string {
	switch {
	case e.Err != nil:
		return fmt.Sprintf("api request failed: %v", e.Err)
	case e.Message != "":
		return fmt.Sprintf("api returned status %d: %s", e.StatusCode, e.Message)
	default:
		return fmt.Sprintf("api returned status %d", e.StatusCode)
	}
}

// Unwrap は原因のエラーを返す。
func (e *Error) Unwrap() error {
	return e.Err
}

// StatusCode はerrがAPIエラーの場合にHTTPステータスを返す。それ以外は0。
func StatusCode(err error) int {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}

// IsUnauthorized はerrが401応答によるものかどうかを返す。
func IsUnauthorized(err error) bool {
	return StatusCode(err) == http.StatusUnauthorized
}

// UserMessage は画面に表示するエラーメッセージを返す。
// サーバーがmessageを返していればそれを、なければfallbackを返す。
func UserMessage(err error, fallback string) string {
	var apiErr *Error
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return fallback
}

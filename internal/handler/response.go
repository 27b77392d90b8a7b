// Package handler はHTTPハンドラーを提供する。
package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/hitoshi/showroom/internal/apiclient"
	"github.com/hitoshi/showroom/internal/middleware"
	"github.com/hitoshi/showroom/internal/model"
	"github.com/hitoshi/showroom/internal/session"
	"github.com/hitoshi/showroom/internal/view"
)

// writeJSON はJSONレスポンスを書き込む。
func writeJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(v)
}

// decodeJSON はリクエストボディをJSONとして読み込む。失敗時は400を書き込みfalseを返す。
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError())
		return false
	}
	return true
}

// handleError はエラーを統一エラーフォーマットのレスポンスに変換する。
//   - *model.APIError: コードに応じたステータス（入力検証は400）
//   - 未ログイン: 401
//   - APIの失敗: 401/403/404/422はそのまま、それ以外は502。メッセージはサーバーのもの、なければfallback
//   - それ以外: 500
func handleError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error, fallback string) {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		middleware.WriteErrorResponse(w, mapAPIErrorToHTTPStatus(apiErr), apiErr)
		return
	}

	if errors.Is(err, session.ErrNotAuthenticated) {
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	var failure *view.Failure
	var clientErr *apiclient.Error
	switch {
	case errors.As(err, &failure):
		writeUpstreamError(w, r, logger, err, failure.Message)
	case errors.As(err, &clientErr):
		writeUpstreamError(w, r, logger, err, apiclient.UserMessage(err, fallback))
	default:
		logger.Error("internal server error",
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
		middleware.WriteInternalServerError(w)
	}
}

func writeUpstreamError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error, message string) {
	upstream := apiclient.StatusCode(err)
	status := upstreamHTTPStatus(upstream)

	apiErr := model.NewUpstreamError(message)
	switch status {
	case http.StatusUnauthorized:
		apiErr.Code, apiErr.Category = model.ErrCodeUnauthorized, "auth"
	case http.StatusForbidden:
		apiErr.Code, apiErr.Category = model.ErrCodeForbidden, "auth"
	case http.StatusNotFound:
		apiErr.Code, apiErr.Category = "NOT_FOUND", "catalog"
	case http.StatusUnprocessableEntity:
		apiErr.Code, apiErr.Category = model.ErrCodeValidation, "validation"
	}

	level := slog.LevelWarn
	if status == http.StatusBadGateway {
		level = slog.LevelError
	}
	logger.Log(r.Context(), level, "upstream request failed",
		slog.Int("upstream_status", upstream),
		slog.Int("status", status),
		slog.String("error", err.Error()),
	)
	middleware.WriteErrorResponse(w, status, apiErr)
}

// upstreamHTTPStatus はAPIのステータスをBFFのステータスに変換する。
// 通信エラー（0）を含め、クライアントに意味のないステータスは502にまとめる。
func upstreamHTTPStatus(status int) int {
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound, http.StatusUnprocessableEntity:
		return status
	default:
		return http.StatusBadGateway
	}
}

// mapAPIErrorToHTTPStatus はAPIErrorコードからHTTPステータスコードにマッピングする。
func mapAPIErrorToHTTPStatus(apiErr *model.APIError) int {
	switch apiErr.Code {
	case model.ErrCodeInvalidFilter, model.ErrCodeInvalidRequest, model.ErrCodeValidation,
		model.ErrCodeInvalidSpecMove, model.ErrCodeInvalidImageType:
		return http.StatusBadRequest
	case model.ErrCodeUnauthorized:
		return http.StatusUnauthorized
	case model.ErrCodeForbidden, model.ErrCodeAdminRequired:
		return http.StatusForbidden
	case model.ErrCodeCarNotFound:
		return http.StatusNotFound
	case model.ErrCodeUpstreamFailed:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// storeFromRequest はリクエストのセッションストアを取得する。
// セッションミドルウェアが構成されていない場合は500を書き込みnilを返す。
func storeFromRequest(w http.ResponseWriter, r *http.Request, logger *slog.Logger) *session.Store {
	store, err := middleware.StoreFromContext(r.Context())
	if err != nil {
		logger.Error("session store missing from request context", slog.String("path", r.URL.Path))
		middleware.WriteInternalServerError(w)
		return nil
	}
	return store
}

// writeValidationError は入力検証エラーを400で書き込む。
func writeValidationError(w http.ResponseWriter, message string) {
	middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewValidationError(message))
}

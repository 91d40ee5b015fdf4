package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/hitoshi/shareit/internal/middleware"
	"github.com/hitoshi/shareit/internal/model"
)

// writeAPIErrorResponse は統一エラーフォーマットでエラーレスポンスを書き込む。
func writeAPIErrorResponse(w http.ResponseWriter, statusCode int, apiErr *model.APIError) {
	middleware.WriteErrorResponse(w, statusCode, apiErr)
}

// handleServiceError はサービス層から返されたエラーを適切なHTTPステータスコードに変換する。
func handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		writeAPIErrorResponse(w, mapAPIErrorToHTTPStatus(apiErr), apiErr)
		return
	}

	// APIError以外のエラーは内部サーバーエラーとして扱う。詳細はログのみに残す
	slog.ErrorContext(r.Context(), "internal server error",
		slog.String("error", err.Error()),
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.String("request_id", middleware.RequestIDFromContext(r.Context())),
	)
	middleware.WriteInternalServerError(w)
}

// mapAPIErrorToHTTPStatus はAPIErrorコードからHTTPステータスコードにマッピングする。
func mapAPIErrorToHTTPStatus(apiErr *model.APIError) int {
	switch apiErr.Code {
	case model.ErrCodeUserNotFound, model.ErrCodeItemNotFound,
		model.ErrCodeBookingNotFound, model.ErrCodeRequestNotFound:
		return http.StatusNotFound
	case model.ErrCodeBookingAccessDenied:
		return http.StatusForbidden
	case model.ErrCodeDuplicateEmail:
		return http.StatusConflict
	case model.ErrCodeValidation, model.ErrCodeMissingID, model.ErrCodeInvalidDates,
		model.ErrCodeNotItemOwner, model.ErrCodeItemNotAvailable,
		model.ErrCodeNoCompletedBooking, model.ErrCodeInvalidState,
		middleware.ErrCodeMissingUserID:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// callerID はユーザーIDミドルウェアが注入した呼び出し元ユーザーIDを返す。
// 取得できない場合は400レスポンスを書き込み、falseを返す。
func callerID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, middleware.NewMissingUserIDError())
		return 0, false
	}
	return userID, true
}

// errCodeRouteNotFound は存在しないパスへのリクエストのエラーコード。
const errCodeRouteNotFound = "ROUTE_NOT_FOUND"

func notFoundRouteError() *model.APIError {
	return &model.APIError{
		Code:     errCodeRouteNotFound,
		Message:  "指定されたパスは存在しません。",
		Category: model.CategoryNotFound,
		Action:   "URLを確認してください。",
	}
}

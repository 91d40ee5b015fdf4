// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/hitoshi/shareit/internal/model"
)

// UserIDHeader は呼び出し元ユーザーIDを運ぶリクエストヘッダー。
// 認証は上流で行われる前提で、値はそのまま信頼する。
const UserIDHeader = "X-Sharer-User-Id"

// ErrCodeMissingUserID はユーザーIDヘッダーが欠落または不正な場合のエラーコード。
const ErrCodeMissingUserID = "MISSING_USER_ID"

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

// userIDContextKey はリクエストコンテキストにユーザーIDを格納するためのキー。
var userIDContextKey = contextKey("user_id")

// ParseUserIDHeader はヘッダーからユーザーIDを読み取る。
// 欠落、数値以外、0以下の値はエラーとする。
func ParseUserIDHeader(r *http.Request) (int64, error) {
	raw := strings.TrimSpace(r.Header.Get(UserIDHeader))
	if raw == "" {
		return 0, fmt.Errorf("%s header is missing", UserIDHeader)
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%s header is not a positive integer: %q", UserIDHeader, raw)
	}
	return id, nil
}

// NewUserIDMiddleware はX-Sharer-User-IdヘッダーからユーザーIDを読み取り、
// リクエストコンテキストに注入するミドルウェアを返す。
// ヘッダーが欠落または不正な場合は400 Bad Requestを返す。
func NewUserIDMiddleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, err := ParseUserIDHeader(r)
			if err != nil {
				WriteErrorResponse(w, http.StatusBadRequest, NewMissingUserIDError())
				return
			}

			ctx := ContextWithUserID(r.Context(), userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// NewMissingUserIDError はユーザーIDヘッダーが欠落または不正な場合のエラーを生成する。
func NewMissingUserIDError() *model.APIError {
	return &model.APIError{
		Code:     ErrCodeMissingUserID,
		Message:  fmt.Sprintf("%sヘッダーが指定されていないか不正です。", UserIDHeader),
		Category: model.CategoryValidation,
		Action:   "正のユーザーIDをヘッダーに指定してください。",
	}
}

// UserIDFromContext はリクエストコンテキストからユーザーIDを取得する。
// ユーザーIDミドルウェアを通過したリクエストでのみ有効。
func UserIDFromContext(ctx context.Context) (int64, error) {
	userID, ok := ctx.Value(userIDContextKey).(int64)
	if !ok || userID <= 0 {
		return 0, fmt.Errorf("user ID not found in context")
	}
	return userID, nil
}

// ContextWithUserID はコンテキストにユーザーIDを注入する。
// テストやミドルウェア以外のコンテキスト生成で使用する。
func ContextWithUserID(ctx context.Context, userID int64) context.Context {
	return context.WithValue(ctx, userIDContextKey, userID)
}

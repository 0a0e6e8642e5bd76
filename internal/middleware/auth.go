// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/kazuki/feedtalk/internal/model"
)

// AuthHeaderName はクレデンシャルを運ぶリクエストヘッダー名。
const AuthHeaderName = "x-auth-token"

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

// userIDContextKey はリクエストコンテキストにユーザーIDを格納するためのキー。
var userIDContextKey = contextKey("user_id")

// TokenVerifier はトークン検証に必要なインターフェース。
// token.Codecの部分集合として定義する。
type TokenVerifier interface {
	Verify(raw string) (string, error)
}

// NewAuthMiddleware はx-auth-tokenヘッダーからクレデンシャルを読み取り、
// 検証するミドルウェアを返す。検証済みユーザーIDをリクエストコンテキストに注入する。
//
// ヘッダーが無いリクエストには401を返す。検証失敗は原因（署名不正・期限切れ・
// 解析不能）を区別せず一律 "token is not valid" で401を返す。
// 詳細を返さないのは検証内部の情報漏えいを避けるための意図的な仕様である。
func NewAuthMiddleware(verifier TokenVerifier) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// 1. ヘッダーからトークンを取得
			raw := r.Header.Get(AuthHeaderName)
			if raw == "" {
				WriteErrorResponse(w, http.StatusUnauthorized, model.NewNoTokenError())
				return
			}

			// 2. トークンを検証
			userID, err := verifier.Verify(raw)
			if err != nil {
				slog.Warn("token verification failed",
					slog.String("error", err.Error()),
					slog.String("path", r.URL.Path),
				)
				WriteErrorResponse(w, http.StatusUnauthorized, model.NewInvalidTokenError())
				return
			}

			// 3. ロギングミドルウェアにユーザーIDを引き渡す
			if sink, ok := r.Context().Value(userIDSinkKey).(*userIDSink); ok {
				sink.id = userID
			}

			// 4. 検証済みユーザーIDをコンテキストに注入
			ctx := context.WithValue(r.Context(), userIDContextKey, userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// UserIDFromContext はリクエストコンテキストからユーザーIDを取得する。
// 認証ミドルウェアを通過したリクエストでのみ有効。
func UserIDFromContext(ctx context.Context) (string, error) {
	userID, ok := ctx.Value(userIDContextKey).(string)
	if !ok || userID == "" {
		return "", fmt.Errorf("user ID not found in context")
	}
	return userID, nil
}

// ContextWithUserID はコンテキストにユーザーIDを注入する。
// テストやミドルウェア以外のコンテキスト生成で使用する。
func ContextWithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDContextKey, userID)
}

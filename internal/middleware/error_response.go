package middleware

import (
	"encoding/json"
	"net/http"

	"github.com/kazuki/feedtalk/internal/model"
)

// ErrorResponseBody はAPIエラーレスポンスの統一フォーマット。
// 旧クライアントとの互換のため本文は {"msg": "..."} のみとする。
type ErrorResponseBody struct {
	Msg string `json:"msg"`
}

// WriteErrorResponse は統一エラーフォーマットでHTTPエラーレスポンスを書き込む。
// すべてのAPIエンドポイントで一貫したエラーレスポンスを提供する。
func WriteErrorResponse(w http.ResponseWriter, statusCode int, apiErr *model.APIError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(ErrorResponseBody{Msg: apiErr.Message})
}

// WriteInternalServerError は内部サーバーエラーの統一レスポンスを書き込む。
// 詳細はログのみに記録し、ユーザーには一般的なメッセージを返す。
func WriteInternalServerError(w http.ResponseWriter) {
	WriteErrorResponse(w, http.StatusInternalServerError, &model.APIError{
		Code:    "INTERNAL_ERROR",
		Message: "server error",
	})
}

package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

// userIDSink は認証ミドルウェアが検証済みユーザーIDをロギングミドルウェアに
// 引き渡すための書き込み先。認証はロギングより内側で実行され、派生リクエストの
// コンテキストは外側からは参照できないため、ポインタ経由で受け渡す。
type userIDSink struct {
	id string
}

// userIDSinkKey はリクエストコンテキストにuserIDSinkを格納するためのキー。
var userIDSinkKey = contextKey("user_id_sink")

// statusRecorder はhttp.ResponseWriterをラップし、ステータスコードを記録する。
type statusRecorder struct {
	http.ResponseWriter
	statusCode int
	written    bool
}

// WriteHeader はステータスコードを記録してから委譲する。
func (sr *statusRecorder) WriteHeader(code int) {
	if !sr.written {
		sr.statusCode = code
		sr.written = true
	}
	sr.ResponseWriter.WriteHeader(code)
}

// Write はデータを書き込む。WriteHeaderが未呼び出しの場合は200を記録する。
func (sr *statusRecorder) Write(b []byte) (int, error) {
	if !sr.written {
		sr.statusCode = http.StatusOK
		sr.written = true
	}
	return sr.ResponseWriter.Write(b)
}

// NewLoggingMiddleware はリクエストのJSON構造化ログを出力するミドルウェアを返す。
// ログにはmethod、path、status、duration_ms、user_id（認証済みの場合）を含む。
func NewLoggingMiddleware(logger *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			rec := &statusRecorder{
				ResponseWriter: w,
				statusCode:     http.StatusOK,
			}

			sink := &userIDSink{}
			r = r.WithContext(context.WithValue(r.Context(), userIDSinkKey, sink))

			next.ServeHTTP(rec, r)

			durationMs := float64(time.Since(start).Nanoseconds()) / float64(time.Millisecond)

			args := []any{
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", rec.statusCode),
				slog.Float64("duration_ms", durationMs),
			}

			// 認証ミドルウェアを通過したリクエストにはuser_idを追加
			userID := sink.id
			if userID == "" {
				if id, err := UserIDFromContext(r.Context()); err == nil {
					userID = id
				}
			}
			if userID != "" {
				args = append(args, slog.String("user_id", userID))
			}

			// ログレベルはステータスコードに応じて変更
			level := slog.LevelInfo
			if rec.statusCode >= 500 {
				level = slog.LevelError
			} else if rec.statusCode >= 400 {
				level = slog.LevelWarn
			}

			logger.Log(r.Context(), level, "http_request", args...)
		})
	}
}

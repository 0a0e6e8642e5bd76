package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/kazuki/feedtalk/internal/middleware"
)

// HealthChecker はヘルスチェックで利用するデータベース接続のインターフェース。
// *sql.DBがそのまま満たす。
type HealthChecker interface {
	PingContext(ctx context.Context) error
}

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	Logger            *slog.Logger
	TokenVerifier     middleware.TokenVerifier
	RateLimiter       *middleware.RateLimiter
	CORSAllowedOrigin string
	MetricsRecorder   middleware.HTTPMetricsRecorder // nilの場合はメトリクスを記録しない

	// サービス
	AuthService AuthServiceInterface
	PostService PostServiceInterface

	// ヘルスチェック
	DB HealthChecker
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	SecurityHeaders → CORS → Logging → Metrics
//
// 認証が必要なルートはさらに Auth → RateLimit(General) を通過し、
// 書き込み系のPOSTには書き込み専用レート制限が追加される。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewLoggingMiddleware(deps.Logger))
	if deps.MetricsRecorder != nil {
		r.Use(middleware.NewMetricsMiddleware(deps.MetricsRecorder))
	}

	authHandler := NewAuthHandler(deps.AuthService)
	postHandler := NewPostHandler(deps.PostService)

	// --- 認証不要のルート ---

	// POST /api/users - ユーザー登録
	r.Post("/api/users", authHandler.Register)

	// POST /api/auth - ログイン
	r.Post("/api/auth", authHandler.Login)

	// GET /health - ヘルスチェック（DB接続確認）
	r.Get("/health", newHealthHandler(deps.DB))

	// --- 認証が必要なルート ---
	// ミドルウェアスタック: Auth → RateLimit(General)
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewAuthMiddleware(deps.TokenVerifier))
		r.Use(deps.RateLimiter.GeneralMiddleware())

		// GET /api/auth - 認証済みユーザー自身の情報
		r.Get("/api/auth", authHandler.Me)

		// 投稿管理
		r.Route("/api/posts", func(r chi.Router) {
			// POST /api/posts - 投稿作成（書き込み専用レート制限を追加）
			r.With(deps.RateLimiter.WriteMiddleware()).Post("/", postHandler.CreatePost)
			r.Get("/", postHandler.ListPosts)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", postHandler.GetPost)
				r.Delete("/", postHandler.DeletePost)
			})

			// エンゲージメント
			r.Put("/like/{id}", postHandler.Like)
			r.Put("/unlike/{id}", postHandler.Unlike)
			r.With(deps.RateLimiter.WriteMiddleware()).Post("/comment/{id}", postHandler.AddComment)
			r.Delete("/comment/{id}/{commentID}", postHandler.DeleteComment)
		})
	})

	return r
}

// newHealthHandler はDB接続を確認するヘルスチェックハンドラーを返す。
func newHealthHandler(db HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()

		if db == nil || db.PingContext(ctx) != nil {
			writeJSONResponse(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}

		writeJSONResponse(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

// Package handler はHTTPハンドラーとルーティングを提供する。
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/kazuki/feedtalk/internal/middleware"
	"github.com/kazuki/feedtalk/internal/model"
)

// PostServiceInterface は投稿ハンドラーが必要とするサービスインターフェース。
type PostServiceInterface interface {
	// CreatePost は新しい投稿を作成する。
	CreatePost(ctx context.Context, userID, text string) (*model.Post, error)
	// ListPosts は全投稿を新しい順で返す。
	ListPosts(ctx context.Context) ([]*model.Post, error)
	// GetPost は指定IDの投稿を返す。
	GetPost(ctx context.Context, postID string) (*model.Post, error)
	// DeletePost は投稿を削除する（所有者のみ）。
	DeletePost(ctx context.Context, userID, postID string) error
	// Like は投稿にいいねを付け、更新後のいいね一覧を返す。
	Like(ctx context.Context, userID, postID string) ([]model.Like, error)
	// Unlike は投稿のいいねを取り消し、更新後のいいね一覧を返す。
	Unlike(ctx context.Context, userID, postID string) ([]model.Like, error)
	// AddComment は投稿にコメントを追加し、更新後のコメント一覧を返す。
	AddComment(ctx context.Context, userID, postID, text string) ([]model.Comment, error)
	// DeleteComment は投稿からコメントを削除し、更新後のコメント一覧を返す。
	DeleteComment(ctx context.Context, userID, postID, commentID string) ([]model.Comment, error)
}

// PostHandler は投稿管理のHTTPハンドラー。
type PostHandler struct {
	service PostServiceInterface
}

// NewPostHandler はPostHandlerを生成する。
func NewPostHandler(service PostServiceInterface) *PostHandler {
	return &PostHandler{service: service}
}

// postTextRequest は投稿・コメントの本文を運ぶリクエストボディ。
type postTextRequest struct {
	Text string `json:"text"`
}

// CreatePost は投稿作成を処理する。
// POST /api/posts
func (h *PostHandler) CreatePost(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewNoTokenError())
		return
	}

	var req postTextRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeValidationErrorResponse(w, model.NewValidationError("text is required"))
		return
	}

	post, err := h.service.CreatePost(r.Context(), userID, req.Text)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, post)
}

// ListPosts は投稿一覧を新しい順で返す。
// GET /api/posts
func (h *PostHandler) ListPosts(w http.ResponseWriter, r *http.Request) {
	posts, err := h.service.ListPosts(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, posts)
}

// GetPost は投稿詳細を取得する。
// GET /api/posts/{id}
func (h *PostHandler) GetPost(w http.ResponseWriter, r *http.Request) {
	postID, ok := parsePostID(w, r)
	if !ok {
		return
	}

	post, err := h.service.GetPost(r.Context(), postID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, post)
}

// DeletePost は投稿を削除する。所有者以外からの要求は拒否される。
// DELETE /api/posts/{id}
func (h *PostHandler) DeletePost(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewNoTokenError())
		return
	}

	postID, ok := parsePostID(w, r)
	if !ok {
		return
	}

	if err := h.service.DeletePost(r.Context(), userID, postID); err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, messageResponse{Msg: "post removed"})
}

// Like は投稿にいいねを付ける。
// PUT /api/posts/like/{id}
func (h *PostHandler) Like(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewNoTokenError())
		return
	}

	postID, ok := parsePostID(w, r)
	if !ok {
		return
	}

	likes, err := h.service.Like(r.Context(), userID, postID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, likes)
}

// Unlike は投稿のいいねを取り消す。
// PUT /api/posts/unlike/{id}
func (h *PostHandler) Unlike(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewNoTokenError())
		return
	}

	postID, ok := parsePostID(w, r)
	if !ok {
		return
	}

	likes, err := h.service.Unlike(r.Context(), userID, postID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, likes)
}

// AddComment は投稿にコメントを追加する。
// POST /api/posts/comment/{id}
func (h *PostHandler) AddComment(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewNoTokenError())
		return
	}

	postID, ok := parsePostID(w, r)
	if !ok {
		return
	}

	var req postTextRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeValidationErrorResponse(w, model.NewValidationError("text is required"))
		return
	}

	comments, err := h.service.AddComment(r.Context(), userID, postID, req.Text)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, comments)
}

// DeleteComment は投稿からコメントを削除する。
// DELETE /api/posts/comment/{id}/{commentID}
//
// コメントIDはUUID形式を検査しない。存在しないIDはサービス層の
// ID一致検索で未検出となり、COMMENT_NOT_FOUNDとして返る。
func (h *PostHandler) DeleteComment(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewNoTokenError())
		return
	}

	postID, ok := parsePostID(w, r)
	if !ok {
		return
	}
	commentID := chi.URLParam(r, "commentID")

	comments, err := h.service.DeleteComment(r.Context(), userID, postID, commentID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, comments)
}

// --- ヘルパー関数 ---

// messageResponse は {"msg": "..."} 形式のレスポンスボディ。
type messageResponse struct {
	Msg string `json:"msg"`
}

// validationErrorsResponse はバリデーション失敗のレスポンスボディ。
// 旧クライアント互換の {"errors": [{"msg": "..."}]} 形式。
type validationErrorsResponse struct {
	Errors []messageResponse `json:"errors"`
}

// parsePostID はURLパラメータの投稿IDを検証して返す。
// UUIDとして解析できないIDは存在しえないため、投稿未検出として400を返す。
func parsePostID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := chi.URLParam(r, "id")
	if _, err := uuid.Parse(id); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewPostNotFoundError())
		return "", false
	}
	return id, true
}

// writeJSONResponse はJSONレスポンスを書き込む。
func writeJSONResponse(w http.ResponseWriter, statusCode int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(body)
}

// writeAPIErrorResponse は {"msg": "..."} 形式でエラーレスポンスを書き込む。
func writeAPIErrorResponse(w http.ResponseWriter, statusCode int, apiErr *model.APIError) {
	writeJSONResponse(w, statusCode, messageResponse{Msg: apiErr.Message})
}

// writeValidationErrorResponse はバリデーションエラーを400で書き込む。
func writeValidationErrorResponse(w http.ResponseWriter, apiErr *model.APIError) {
	writeJSONResponse(w, http.StatusBadRequest, validationErrorsResponse{
		Errors: []messageResponse{{Msg: apiErr.Message}},
	})
}

// handleServiceError はサービス層から返されたエラーを適切なHTTPレスポンスに変換する。
// バリデーション系エラーはerrors配列形式、それ以外のAPIErrorは {"msg": ...} 形式で返す。
func handleServiceError(w http.ResponseWriter, err error) {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case model.ErrCodeValidation, model.ErrCodeEmailTaken, model.ErrCodeInvalidCredentials:
			writeValidationErrorResponse(w, apiErr)
		default:
			writeAPIErrorResponse(w, mapAPIErrorToHTTPStatus(apiErr), apiErr)
		}
		return
	}

	// APIError以外のエラーは内部サーバーエラーとして扱う
	slog.Error("internal server error", slog.String("error", err.Error()))
	middleware.WriteInternalServerError(w)
}

// mapAPIErrorToHTTPStatus はAPIErrorコードからHTTPステータスコードにマッピングする。
// 所有者以外の操作は旧クライアント契約に合わせて401を返す（403ではない）。
func mapAPIErrorToHTTPStatus(apiErr *model.APIError) int {
	switch apiErr.Code {
	case model.ErrCodeNoToken, model.ErrCodeInvalidToken, model.ErrCodeNotAuthorized:
		return http.StatusUnauthorized
	case model.ErrCodePostNotFound, model.ErrCodeCommentNotFound:
		return http.StatusNotFound
	case model.ErrCodeAlreadyLiked, model.ErrCodeNotLiked:
		return http.StatusBadRequest
	case model.ErrCodeValidation, model.ErrCodeEmailTaken, model.ErrCodeInvalidCredentials:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

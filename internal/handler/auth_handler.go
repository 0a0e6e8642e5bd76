package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/kazuki/feedtalk/internal/middleware"
	"github.com/kazuki/feedtalk/internal/model"
)

// AuthServiceInterface は認証ハンドラーが必要とするサービスインターフェース。
type AuthServiceInterface interface {
	// Register は新規ユーザーを登録し、クレデンシャルを発行する。
	Register(ctx context.Context, name, email, password string) (string, error)
	// Login は認証情報を検証し、クレデンシャルを発行する。
	Login(ctx context.Context, email, password string) (string, error)
	// GetCurrentUser は検証済みユーザーIDに対応するユーザーを返す。
	GetCurrentUser(ctx context.Context, userID string) (*model.User, error)
}

// AuthHandler は認証のHTTPハンドラー。
type AuthHandler struct {
	service AuthServiceInterface
}

// NewAuthHandler はAuthHandlerを生成する。
func NewAuthHandler(service AuthServiceInterface) *AuthHandler {
	return &AuthHandler{service: service}
}

// registerRequest はユーザー登録リクエストのボディ。
type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// loginRequest はログインリクエストのボディ。
type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// tokenResponse はクレデンシャル発行のレスポンスボディ。
type tokenResponse struct {
	Token string `json:"token"`
}

// currentUserResponse は認証済みユーザー情報のレスポンスボディ。
// パスワードハッシュは含めない。
type currentUserResponse struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	AvatarURL string `json:"avatar"`
}

// Register はユーザー登録を処理する。
// POST /api/users
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeValidationErrorResponse(w, model.NewValidationError("invalid request body"))
		return
	}

	token, err := h.service.Register(r.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, tokenResponse{Token: token})
}

// Login はログインを処理する。
// POST /api/auth
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeValidationErrorResponse(w, model.NewValidationError("invalid request body"))
		return
	}

	token, err := h.service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, tokenResponse{Token: token})
}

// Me は認証済みユーザー自身の情報を返す。
// GET /api/auth
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewNoTokenError())
		return
	}

	user, err := h.service.GetCurrentUser(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, currentUserResponse{
		ID:        user.ID,
		Name:      user.Name,
		Email:     user.Email,
		AvatarURL: user.AvatarURL,
	})
}

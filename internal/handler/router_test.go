package handler

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kazuki/feedtalk/internal/middleware"
	"github.com/kazuki/feedtalk/internal/model"
)

// mockVerifier はmiddleware.TokenVerifierのモック実装。
type mockVerifier struct {
	verifyFn func(raw string) (string, error)
}

func (m *mockVerifier) Verify(raw string) (string, error) {
	if m.verifyFn != nil {
		return m.verifyFn(raw)
	}
	return "", errors.New("no verify function")
}

// mockHealthChecker はHealthCheckerのモック実装。
type mockHealthChecker struct {
	pingFn func(ctx context.Context) error
}

func (m *mockHealthChecker) PingContext(ctx context.Context) error {
	if m.pingFn != nil {
		return m.pingFn(ctx)
	}
	return nil
}

// newTestRouter はテスト用のルーターを構築する。
// トークン検証は "valid-token" を user-123 として受理するモックで行う。
func newTestRouter(t *testing.T, authSvc AuthServiceInterface, postSvc PostServiceInterface) http.Handler {
	t.Helper()

	rl := middleware.NewRateLimiter(middleware.DefaultRateLimiterConfig())
	t.Cleanup(rl.Stop)

	return NewRouter(&RouterDeps{
		Logger: slog.New(slog.NewJSONHandler(io.Discard, nil)),
		TokenVerifier: &mockVerifier{
			verifyFn: func(raw string) (string, error) {
				if raw == "valid-token" {
					return "user-123", nil
				}
				return "", errors.New("bad signature")
			},
		},
		RateLimiter:       rl,
		CORSAllowedOrigin: "http://localhost:3000",
		AuthService:       authSvc,
		PostService:       postSvc,
		DB:                &mockHealthChecker{},
	})
}

// TestRouter_ProtectedRouteWithoutToken はトークン無しの保護ルートアクセスが
// 401で拒否されることを検証する。
func TestRouter_ProtectedRouteWithoutToken(t *testing.T) {
	router := newTestRouter(t, &mockAuthService{}, &mockPostService{})

	req := httptest.NewRequest(http.MethodGet, "/api/posts", nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
	if msg := parseMsgResponse(t, w)["msg"]; msg != "no token, authorization denied" {
		t.Errorf("msg = %q, want %q", msg, "no token, authorization denied")
	}
}

// TestRouter_ProtectedRouteWithInvalidToken は不正トークンが
// 一律 "token is not valid" で拒否されることを検証する。
func TestRouter_ProtectedRouteWithInvalidToken(t *testing.T) {
	router := newTestRouter(t, &mockAuthService{}, &mockPostService{})

	req := httptest.NewRequest(http.MethodGet, "/api/posts", nil)
	req.Header.Set(middleware.AuthHeaderName, "tampered-token")
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
	if msg := parseMsgResponse(t, w)["msg"]; msg != "token is not valid" {
		t.Errorf("msg = %q, want %q", msg, "token is not valid")
	}
}

// TestRouter_ProtectedRouteWithValidToken は有効トークンで保護ルートに
// 到達できることを検証する。
func TestRouter_ProtectedRouteWithValidToken(t *testing.T) {
	postSvc := &mockPostService{
		listPostsFn: func(ctx context.Context) ([]*model.Post, error) {
			return []*model.Post{{ID: testPostID, Text: "hello"}}, nil
		},
	}
	router := newTestRouter(t, &mockAuthService{}, postSvc)

	req := httptest.NewRequest(http.MethodGet, "/api/posts", nil)
	req.Header.Set(middleware.AuthHeaderName, "valid-token")
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}
}

// TestRouter_RegisterIsPublic はユーザー登録がトークン無しで利用できることを検証する。
func TestRouter_RegisterIsPublic(t *testing.T) {
	authSvc := &mockAuthService{
		registerFn: func(ctx context.Context, name, email, password string) (string, error) {
			return "issued-token", nil
		},
	}
	router := newTestRouter(t, authSvc, &mockPostService{})

	body := `{"name": "Taro", "email": "taro@example.com", "password": "secret123"}`
	req := httptest.NewRequest(http.MethodPost, "/api/users", bytes.NewBufferString(body))
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}
}

// TestRouter_EngagementRoutes はいいね・コメントのルーティングが
// 正しいハンドラーに到達することを検証する。
func TestRouter_EngagementRoutes(t *testing.T) {
	var likedPostID string
	postSvc := &mockPostService{
		likeFn: func(ctx context.Context, userID, postID string) ([]model.Like, error) {
			likedPostID = postID
			return []model.Like{{UserID: userID}}, nil
		},
	}
	router := newTestRouter(t, &mockAuthService{}, postSvc)

	req := httptest.NewRequest(http.MethodPut, "/api/posts/like/"+testPostID, nil)
	req.Header.Set(middleware.AuthHeaderName, "valid-token")
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if likedPostID != testPostID {
		t.Errorf("postID = %q, want %q", likedPostID, testPostID)
	}
}

// TestRouter_MalformedPostID はUUID形式でないIDが400で拒否されることを検証する。
func TestRouter_MalformedPostID(t *testing.T) {
	router := newTestRouter(t, &mockAuthService{}, &mockPostService{})

	req := httptest.NewRequest(http.MethodGet, "/api/posts/abc123", nil)
	req.Header.Set(middleware.AuthHeaderName, "valid-token")
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
	if msg := parseMsgResponse(t, w)["msg"]; msg != "post not found" {
		t.Errorf("msg = %q, want %q", msg, "post not found")
	}
}

// TestRouter_Health はヘルスチェックの正常系と異常系を検証する。
func TestRouter_Health(t *testing.T) {
	t.Run("db reachable", func(t *testing.T) {
		router := newTestRouter(t, &mockAuthService{}, &mockPostService{})

		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
		}
	})

	t.Run("db unreachable", func(t *testing.T) {
		rl := middleware.NewRateLimiter(middleware.DefaultRateLimiterConfig())
		t.Cleanup(rl.Stop)

		router := NewRouter(&RouterDeps{
			Logger:        slog.New(slog.NewJSONHandler(io.Discard, nil)),
			TokenVerifier: &mockVerifier{},
			RateLimiter:   rl,
			AuthService:   &mockAuthService{},
			PostService:   &mockPostService{},
			DB: &mockHealthChecker{
				pingFn: func(ctx context.Context) error {
					return errors.New("connection refused")
				},
			},
		})

		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		if w.Code != http.StatusServiceUnavailable {
			t.Errorf("status = %d, want %d", w.Code, http.StatusServiceUnavailable)
		}
	})
}

// TestRouter_CORSPreflight はOPTIONSプリフライトが204で応答することを検証する。
func TestRouter_CORSPreflight(t *testing.T) {
	router := newTestRouter(t, &mockAuthService{}, &mockPostService{})

	req := httptest.NewRequest(http.MethodOptions, "/api/posts", nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if w.Code != http.StatusNoContent {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNoContent)
	}
	if origin := w.Header().Get("Access-Control-Allow-Origin"); origin != "http://localhost:3000" {
		t.Errorf("Access-Control-Allow-Origin = %q, want %q", origin, "http://localhost:3000")
	}
}

// TestRouter_SecurityHeaders はセキュリティヘッダーが全レスポンスに付与されることを検証する。
func TestRouter_SecurityHeaders(t *testing.T) {
	router := newTestRouter(t, &mockAuthService{}, &mockPostService{})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if v := w.Header().Get("X-Content-Type-Options"); v != "nosniff" {
		t.Errorf("X-Content-Type-Options = %q, want %q", v, "nosniff")
	}
	if v := w.Header().Get("X-Frame-Options"); v != "DENY" {
		t.Errorf("X-Frame-Options = %q, want %q", v, "DENY")
	}
}

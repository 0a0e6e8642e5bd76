// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError はサービス層からハンドラー層に伝搬する構造化エラーを表す。
// Messageはそのままクライアントに返る（旧クライアントの {msg: ...} 契約）。
// 内部的な診断情報はMessageに含めず、ラップ済みエラーとしてログにのみ残す。
type APIError struct {
	Code    string // エラーコード
	Message string // クライアント向けメッセージ
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeNoToken            = "NO_TOKEN"
	ErrCodeInvalidToken       = "INVALID_TOKEN"
	ErrCodeValidation         = "VALIDATION_ERROR"
	ErrCodePostNotFound       = "POST_NOT_FOUND"
	ErrCodeCommentNotFound    = "COMMENT_NOT_FOUND"
	ErrCodeNotAuthorized      = "NOT_AUTHORIZED"
	ErrCodeAlreadyLiked       = "ALREADY_LIKED"
	ErrCodeNotLiked           = "NOT_LIKED"
	ErrCodeInvalidCredentials = "INVALID_CREDENTIALS"
	ErrCodeEmailTaken         = "EMAIL_TAKEN"
)

// NewNoTokenError はトークン未提示エラーを生成する。
func NewNoTokenError() *APIError {
	return &APIError{
		Code:    ErrCodeNoToken,
		Message: "no token, authorization denied",
	}
}

// NewInvalidTokenError はトークン検証失敗エラーを生成する。
// 署名不正・期限切れ・解析不能の区別は意図的にクライアントへ漏らさない。
func NewInvalidTokenError() *APIError {
	return &APIError{
		Code:    ErrCodeInvalidToken,
		Message: "token is not valid",
	}
}

// NewValidationError は入力バリデーションエラーを生成する。
func NewValidationError(msg string) *APIError {
	return &APIError{
		Code:    ErrCodeValidation,
		Message: msg,
	}
}

// NewPostNotFoundError は投稿未検出エラーを生成する。
func NewPostNotFoundError() *APIError {
	return &APIError{
		Code:    ErrCodePostNotFound,
		Message: "post not found",
	}
}

// NewCommentNotFoundError はコメント未検出エラーを生成する。
func NewCommentNotFoundError() *APIError {
	return &APIError{
		Code:    ErrCodeCommentNotFound,
		Message: "comment does not exist",
	}
}

// NewNotAuthorizedError は所有者以外による削除要求エラーを生成する。
func NewNotAuthorizedError() *APIError {
	return &APIError{
		Code:    ErrCodeNotAuthorized,
		Message: "user not authorized",
	}
}

// NewAlreadyLikedError はいいね済み投稿への再いいねエラーを生成する。
func NewAlreadyLikedError() *APIError {
	return &APIError{
		Code:    ErrCodeAlreadyLiked,
		Message: "post already liked",
	}
}

// NewNotLikedError は未いいね投稿へのいいね解除エラーを生成する。
func NewNotLikedError() *APIError {
	return &APIError{
		Code:    ErrCodeNotLiked,
		Message: "post has not yet been liked",
	}
}

// NewInvalidCredentialsError は認証情報不一致エラーを生成する。
// メールアドレス不明とパスワード不一致は区別しない。
func NewInvalidCredentialsError() *APIError {
	return &APIError{
		Code:    ErrCodeInvalidCredentials,
		Message: "invalid credentials",
	}
}

// NewEmailTakenError はメールアドレス重複エラーを生成する。
func NewEmailTakenError() *APIError {
	return &APIError{
		Code:    ErrCodeEmailTaken,
		Message: "user already exists",
	}
}

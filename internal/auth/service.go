// Package auth はユーザー登録、ログイン、クレデンシャル発行を提供する。
package auth

import (
	"context"
	"crypto/md5"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/kazuki/feedtalk/internal/model"
	"github.com/kazuki/feedtalk/internal/repository"
)

// TokenIssuer はクレデンシャル発行に必要なインターフェース。
// token.Codecの部分集合として定義する。
type TokenIssuer interface {
	Issue(userID string, ttl time.Duration) (string, error)
}

// ServiceConfig は認証サービスの設定。
type ServiceConfig struct {
	TokenTTL time.Duration // 発行するクレデンシャルの有効期間
}

// Service は認証に関するビジネスロジックを提供する。
type Service struct {
	userRepo repository.UserRepository
	issuer   TokenIssuer
	config   ServiceConfig
}

// NewService はServiceを生成する。
func NewService(userRepo repository.UserRepository, issuer TokenIssuer, config ServiceConfig) *Service {
	return &Service{
		userRepo: userRepo,
		issuer:   issuer,
		config:   config,
	}
}

// Register は新規ユーザーを登録し、クレデンシャルを発行して返す。
// アバターURLはメールアドレスから導出したGravatar URLを設定する。
// メールアドレスが既に登録済みの場合はEMAIL_TAKENで失敗する。
func (s *Service) Register(ctx context.Context, name, email, password string) (string, error) {
	name = strings.TrimSpace(name)
	email = strings.ToLower(strings.TrimSpace(email))

	if name == "" {
		return "", model.NewValidationError("name is required")
	}
	if email == "" || !strings.Contains(email, "@") {
		return "", model.NewValidationError("please include a valid email")
	}
	if len(password) < 6 {
		return "", model.NewValidationError("please enter a password with 6 or more characters")
	}

	existing, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		return "", fmt.Errorf("ユーザーの重複確認に失敗しました: %w", err)
	}
	if existing != nil {
		return "", model.NewEmailTakenError()
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("パスワードのハッシュ化に失敗しました: %w", err)
	}

	user := &model.User{
		ID:           uuid.New().String(),
		Name:         name,
		Email:        email,
		PasswordHash: string(hash),
		AvatarURL:    gravatarURL(email),
		CreatedAt:    time.Now().UTC(),
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		return "", fmt.Errorf("ユーザーの作成に失敗しました: %w", err)
	}

	slog.Info("user registered", slog.String("user_id", user.ID))

	raw, err := s.issuer.Issue(user.ID, s.config.TokenTTL)
	if err != nil {
		return "", fmt.Errorf("トークンの発行に失敗しました: %w", err)
	}
	return raw, nil
}

// Login はメールアドレスとパスワードを検証し、クレデンシャルを発行して返す。
// ユーザー不明とパスワード不一致はどちらもINVALID_CREDENTIALSで失敗し、
// 原因を区別しない。
func (s *Service) Login(ctx context.Context, email, password string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	if email == "" || password == "" {
		return "", model.NewValidationError("email and password are required")
	}

	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		return "", fmt.Errorf("ユーザーの検索に失敗しました: %w", err)
	}
	if user == nil {
		return "", model.NewInvalidCredentialsError()
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", model.NewInvalidCredentialsError()
	}

	raw, err := s.issuer.Issue(user.ID, s.config.TokenTTL)
	if err != nil {
		return "", fmt.Errorf("トークンの発行に失敗しました: %w", err)
	}
	return raw, nil
}

// GetCurrentUser は検証済みユーザーIDに対応するユーザーを返す。
// アカウントが存在しない場合はINVALID_TOKENで失敗する。
func (s *Service) GetCurrentUser(ctx context.Context, userID string) (*model.User, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	if user == nil {
		return nil, model.NewInvalidTokenError()
	}
	return user, nil
}

// gravatarURL はメールアドレスからGravatarのアバターURLを導出する。
func gravatarURL(email string) string {
	sum := md5.Sum([]byte(email))
	return fmt.Sprintf("https://www.gravatar.com/avatar/%x?s=200&r=pg&d=mm", sum)
}

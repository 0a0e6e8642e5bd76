// Package post は投稿とエンゲージメント（いいね・コメント）のドメインロジックを提供する。
//
// すべての操作は認証ミドルウェアを通過した検証済みユーザーIDを前提とする。
// エンゲージメントコレクションへの変更はPostRepository.AtomicUpdateの
// ミューテータ内で前提条件を検査するため、同一投稿への並行リクエスト下でも
// 「同一ユーザーのいいねは高々1つ」等の不変条件が保たれる。
package post

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/kazuki/feedtalk/internal/model"
	"github.com/kazuki/feedtalk/internal/repository"
	"github.com/kazuki/feedtalk/internal/security"
)

// MetricsRecorder は投稿サービスが記録するドメインメトリクスのインターフェース。
// metrics.Collectorの部分集合として定義する。nilの場合は記録しない。
type MetricsRecorder interface {
	RecordPostCreated()
	RecordLike()
	RecordComment()
}

// Service は投稿管理のサービス層。
// 作成、一覧、取得、所有者チェック付き削除、冪等ガード付きいいね/いいね解除、
// コメント追加/削除のビジネスロジックを提供する。
type Service struct {
	postRepo  repository.PostRepository
	userRepo  repository.UserRepository
	sanitizer security.TextSanitizerService
	metrics   MetricsRecorder
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(
	postRepo repository.PostRepository,
	userRepo repository.UserRepository,
	sanitizer security.TextSanitizerService,
	metrics MetricsRecorder,
) *Service {
	return &Service{
		postRepo:  postRepo,
		userRepo:  userRepo,
		sanitizer: sanitizer,
		metrics:   metrics,
	}
}

// CreatePost は新しい投稿を作成する。
// 本文はサニタイズ後に空ならバリデーションエラー。作成者の表示名とアバターは
// 作成時点のユーザー情報からスナップショットとして固定される。
func (s *Service) CreatePost(ctx context.Context, userID, text string) (*model.Post, error) {
	text = s.sanitizer.Sanitize(text)
	if text == "" {
		return nil, model.NewValidationError("text is required")
	}

	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("投稿者の取得に失敗しました: %w", err)
	}
	if user == nil {
		// 有効なトークンを持つが、アカウントが既に存在しない
		return nil, model.NewInvalidTokenError()
	}

	post := &model.Post{
		ID:           uuid.New().String(),
		OwnerID:      userID,
		Text:         text,
		AuthorName:   user.Name,
		AuthorAvatar: user.AvatarURL,
		Likes:        []model.Like{},
		Comments:     []model.Comment{},
		CreatedAt:    time.Now().UTC(),
	}

	if err := s.postRepo.Insert(ctx, post); err != nil {
		return nil, fmt.Errorf("投稿の保存に失敗しました: %w", err)
	}

	if s.metrics != nil {
		s.metrics.RecordPostCreated()
	}

	return post, nil
}

// ListPosts は全投稿を新しい順で返す。
func (s *Service) ListPosts(ctx context.Context) ([]*model.Post, error) {
	posts, err := s.postRepo.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("投稿一覧の取得に失敗しました: %w", err)
	}
	return posts, nil
}

// GetPost は指定IDの投稿を返す。存在しない場合は投稿未検出エラー。
func (s *Service) GetPost(ctx context.Context, postID string) (*model.Post, error) {
	post, err := s.postRepo.FindByID(ctx, postID)
	if err != nil {
		return nil, fmt.Errorf("投稿の取得に失敗しました: %w", err)
	}
	if post == nil {
		return nil, model.NewPostNotFoundError()
	}
	return post, nil
}

// DeletePost は投稿を削除する。
// 存在チェックを先に行い、その後に所有者チェックを行う。
// 所有者以外からの削除要求はNOT_AUTHORIZEDで拒否される。
func (s *Service) DeletePost(ctx context.Context, userID, postID string) error {
	post, err := s.postRepo.FindByID(ctx, postID)
	if err != nil {
		return fmt.Errorf("投稿の取得に失敗しました: %w", err)
	}
	if post == nil {
		return model.NewPostNotFoundError()
	}
	if post.OwnerID != userID {
		return model.NewNotAuthorizedError()
	}

	deleted, err := s.postRepo.Delete(ctx, postID)
	if err != nil {
		return fmt.Errorf("投稿の削除に失敗しました: %w", err)
	}
	if !deleted {
		// 所有者チェックと削除の間に他のリクエストが削除したケース
		return model.NewPostNotFoundError()
	}

	return nil
}

// Like は投稿にいいねを付け、更新後のいいね一覧を返す。
// 同一ユーザーが既にいいね済みの場合はALREADY_LIKEDで失敗する（静かな冪等成功にはしない）。
// 判定と追加はAtomicUpdateのミューテータ内で行うため、同一ユーザーからの
// 並行リクエストはちょうど1つだけ成功する。
func (s *Service) Like(ctx context.Context, userID, postID string) ([]model.Like, error) {
	post, err := s.postRepo.AtomicUpdate(ctx, postID, func(p *model.Post) error {
		if p.LikedBy(userID) {
			return model.NewAlreadyLikedError()
		}
		p.Likes = append([]model.Like{{UserID: userID, CreatedAt: time.Now().UTC()}}, p.Likes...)
		return nil
	})
	if err != nil {
		return nil, wrapStorageErr("いいねの追加に失敗しました", err)
	}
	if post == nil {
		return nil, model.NewPostNotFoundError()
	}

	if s.metrics != nil {
		s.metrics.RecordLike()
	}

	return post.Likes, nil
}

// Unlike は投稿のいいねを取り消し、更新後のいいね一覧を返す。
// 呼び出しユーザーがいいねしていない場合はNOT_LIKEDで失敗する。
func (s *Service) Unlike(ctx context.Context, userID, postID string) ([]model.Like, error) {
	post, err := s.postRepo.AtomicUpdate(ctx, postID, func(p *model.Post) error {
		if !p.LikedBy(userID) {
			return model.NewNotLikedError()
		}
		likes := make([]model.Like, 0, len(p.Likes)-1)
		for _, l := range p.Likes {
			if l.UserID != userID {
				likes = append(likes, l)
			}
		}
		p.Likes = likes
		return nil
	})
	if err != nil {
		return nil, wrapStorageErr("いいねの取り消しに失敗しました", err)
	}
	if post == nil {
		return nil, model.NewPostNotFoundError()
	}

	return post.Likes, nil
}

// AddComment は投稿にコメントを追加し、更新後のコメント一覧を返す。
// 新しいコメントは常に先頭に挿入される（新しい順）。
func (s *Service) AddComment(ctx context.Context, userID, postID, text string) ([]model.Comment, error) {
	text = s.sanitizer.Sanitize(text)
	if text == "" {
		return nil, model.NewValidationError("text is required")
	}

	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("コメント投稿者の取得に失敗しました: %w", err)
	}
	if user == nil {
		return nil, model.NewInvalidTokenError()
	}

	comment := model.Comment{
		ID:           uuid.New().String(),
		OwnerID:      userID,
		Text:         text,
		AuthorName:   user.Name,
		AuthorAvatar: user.AvatarURL,
		CreatedAt:    time.Now().UTC(),
	}

	post, err := s.postRepo.AtomicUpdate(ctx, postID, func(p *model.Post) error {
		p.Comments = append([]model.Comment{comment}, p.Comments...)
		return nil
	})
	if err != nil {
		return nil, wrapStorageErr("コメントの追加に失敗しました", err)
	}
	if post == nil {
		return nil, model.NewPostNotFoundError()
	}

	if s.metrics != nil {
		s.metrics.RecordComment()
	}

	return post.Comments, nil
}

// DeleteComment は投稿からコメントを削除し、更新後のコメント一覧を返す。
// コメントの特定はID一致で行う（位置インデックスではない）ため、並行する
// コメント追加があっても正しいコメントが削除される。同一コメントIDへの
// 削除が競合した場合、敗者はCOMMENT_NOT_FOUNDで失敗する。
func (s *Service) DeleteComment(ctx context.Context, userID, postID, commentID string) ([]model.Comment, error) {
	post, err := s.postRepo.AtomicUpdate(ctx, postID, func(p *model.Post) error {
		comment := p.FindComment(commentID)
		if comment == nil {
			return model.NewCommentNotFoundError()
		}
		if comment.OwnerID != userID {
			return model.NewNotAuthorizedError()
		}

		comments := make([]model.Comment, 0, len(p.Comments)-1)
		for _, c := range p.Comments {
			if c.ID != commentID {
				comments = append(comments, c)
			}
		}
		p.Comments = comments
		return nil
	})
	if err != nil {
		return nil, wrapStorageErr("コメントの削除に失敗しました", err)
	}
	if post == nil {
		return nil, model.NewPostNotFoundError()
	}

	return post.Comments, nil
}

// wrapStorageErr はストレージ由来のエラーのみをラップする。
// ミューテータから伝搬したドメインエラー（APIError）はそのまま返す。
func wrapStorageErr(msg string, err error) error {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		return err
	}
	return fmt.Errorf("%s: %w", msg, err)
}

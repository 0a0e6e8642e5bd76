// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"

	"github.com/kazuki/feedtalk/internal/model"
)

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// FindByEmail はメールアドレスでユーザーを検索する。見つからない場合はnilを返す。
	FindByEmail(ctx context.Context, email string) (*model.User, error)

	// Create はユーザーを作成する。
	Create(ctx context.Context, user *model.User) error
}

// PostRepository は投稿データの永続化インターフェース。
//
// いいね・コメントは親投稿の内部コレクションとして1ドキュメント単位で保存され、
// すべての変更はAtomicUpdateを通じた不可分なread-modify-writeで行われる。
// 同一投稿IDに対する操作は直列化され、部分的に更新された投稿が観測されることはない。
type PostRepository interface {
	// Insert は投稿を作成する。
	Insert(ctx context.Context, post *model.Post) error

	// FindByID は指定IDの投稿を取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Post, error)

	// ListAll は全投稿を作成日時の降順（新しい順）で返す。
	ListAll(ctx context.Context) ([]*model.Post, error)

	// AtomicUpdate は保存中の投稿にmutatorFnを適用し、結果を単一の不可分な操作として
	// 永続化する。投稿が存在しない場合はnilを返す。mutatorFnがエラーを返した場合は
	// 変更を破棄してそのエラーをそのまま伝搬する。
	AtomicUpdate(ctx context.Context, id string, mutatorFn func(*model.Post) error) (*model.Post, error)

	// Delete は指定IDの投稿を削除する。削除された場合はtrueを返す。
	Delete(ctx context.Context, id string) (bool, error)
}

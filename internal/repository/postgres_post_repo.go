package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/kazuki/feedtalk/internal/model"
)

// PostgresPostRepo はPostgreSQLを使用した投稿リポジトリ。
//
// いいね・コメントはpostsテーブルのJSONBカラムとして投稿行に内包される。
// AtomicUpdateはSELECT ... FOR UPDATEのトランザクションで実装され、
// 同一投稿IDへの変更は行ロックにより直列化される。異なる投稿への変更は
// 並行して進行できる。
type PostgresPostRepo struct {
	db *sql.DB
}

// NewPostgresPostRepo はPostgresPostRepoを生成する。
func NewPostgresPostRepo(db *sql.DB) *PostgresPostRepo {
	return &PostgresPostRepo{db: db}
}

// Insert は投稿を作成する。
func (r *PostgresPostRepo) Insert(ctx context.Context, post *model.Post) error {
	likes, comments, err := marshalCollections(post)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO posts (id, owner_id, text, author_name, author_avatar, likes, comments, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		post.ID, post.OwnerID, post.Text, post.AuthorName, post.AuthorAvatar, likes, comments, post.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("投稿の作成に失敗しました: %w", err)
	}
	return nil
}

// FindByID は指定IDの投稿を取得する。見つからない場合はnilを返す。
func (r *PostgresPostRepo) FindByID(ctx context.Context, id string) (*model.Post, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, owner_id, text, author_name, author_avatar, likes, comments, created_at
		 FROM posts WHERE id = $1`,
		id,
	)

	post, err := scanPost(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("投稿の取得に失敗しました: %w", err)
	}
	return post, nil
}

// ListAll は全投稿を作成日時の降順（新しい順）で返す。
func (r *PostgresPostRepo) ListAll(ctx context.Context) ([]*model.Post, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, owner_id, text, author_name, author_avatar, likes, comments, created_at
		 FROM posts ORDER BY created_at DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("投稿一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	posts := []*model.Post{}
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			return nil, fmt.Errorf("投稿一覧の読み取りに失敗しました: %w", err)
		}
		posts = append(posts, post)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("投稿一覧の読み取りに失敗しました: %w", err)
	}

	return posts, nil
}

// AtomicUpdate は投稿にmutatorFnを適用し、結果を単一の不可分な操作として永続化する。
//
// 実装はトランザクション内のSELECT ... FOR UPDATEで対象行をロックし、
// 現在値にmutatorFnを適用してからUPDATE・COMMITする。行ロックにより
// 同一投稿への並行変更は直列化され、中間状態が観測されることはない。
// mutatorFnがエラーを返した場合はロールバックし、そのエラーをそのまま返す。
// 投稿が存在しない場合は(nil, nil)を返す。
func (r *PostgresPostRepo) AtomicUpdate(ctx context.Context, id string, mutatorFn func(*model.Post) error) (*model.Post, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("トランザクションの開始に失敗しました: %w", err)
	}
	defer tx.Rollback()

	row := tx.QueryRowContext(ctx,
		`SELECT id, owner_id, text, author_name, author_avatar, likes, comments, created_at
		 FROM posts WHERE id = $1 FOR UPDATE`,
		id,
	)

	post, err := scanPost(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("投稿のロック取得に失敗しました: %w", err)
	}

	// ドメインエラー（いいね済み等）はラップせずそのまま伝搬する
	if err := mutatorFn(post); err != nil {
		return nil, err
	}

	likes, comments, err := marshalCollections(post)
	if err != nil {
		return nil, err
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE posts SET likes = $2, comments = $3 WHERE id = $1`,
		post.ID, likes, comments,
	); err != nil {
		return nil, fmt.Errorf("投稿の更新に失敗しました: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("投稿更新のコミットに失敗しました: %w", err)
	}

	return post, nil
}

// Delete は指定IDの投稿を削除する。削除された場合はtrueを返す。
func (r *PostgresPostRepo) Delete(ctx context.Context, id string) (bool, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM posts WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("投稿の削除に失敗しました: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("投稿削除の結果取得に失敗しました: %w", err)
	}

	return affected > 0, nil
}

// rowScanner はsql.Rowとsql.Rowsの共通部分。
type rowScanner interface {
	Scan(dest ...any) error
}

// scanPost は1行を読み取り、JSONBコレクションを復元したPostを返す。
func scanPost(row rowScanner) (*model.Post, error) {
	post := &model.Post{}
	var likesRaw, commentsRaw []byte

	if err := row.Scan(
		&post.ID, &post.OwnerID, &post.Text,
		&post.AuthorName, &post.AuthorAvatar,
		&likesRaw, &commentsRaw, &post.CreatedAt,
	); err != nil {
		return nil, err
	}

	if err := json.Unmarshal(likesRaw, &post.Likes); err != nil {
		return nil, fmt.Errorf("いいね一覧の復元に失敗しました: %w", err)
	}
	if err := json.Unmarshal(commentsRaw, &post.Comments); err != nil {
		return nil, fmt.Errorf("コメント一覧の復元に失敗しました: %w", err)
	}

	return post, nil
}

// marshalCollections はいいね・コメントをJSONBカラム用にエンコードする。
// nilスライスは空のJSON配列として保存する。
func marshalCollections(post *model.Post) ([]byte, []byte, error) {
	if post.Likes == nil {
		post.Likes = []model.Like{}
	}
	if post.Comments == nil {
		post.Comments = []model.Comment{}
	}

	likes, err := json.Marshal(post.Likes)
	if err != nil {
		return nil, nil, fmt.Errorf("いいね一覧のエンコードに失敗しました: %w", err)
	}
	comments, err := json.Marshal(post.Comments)
	if err != nil {
		return nil, nil, fmt.Errorf("コメント一覧のエンコードに失敗しました: %w", err)
	}

	return likes, comments, nil
}

// compile-time interface check
var _ PostRepository = (*PostgresPostRepo)(nil)

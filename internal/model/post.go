// Package model はドメインモデルを定義する。
package model

import "time"

// Post はユーザーが投稿したフィードアイテムを表す。
// OwnerIDは作成時に1度だけ設定され、以後変更されない。
// AuthorName・AuthorAvatarは作成時点のユーザー情報のスナップショットで、
// 投稿後にプロフィールが変わっても追従しない（オリジナルの仕様を踏襲）。
type Post struct {
	ID           string    `json:"id"`
	OwnerID      string    `json:"user"`
	Text         string    `json:"text"`
	AuthorName   string    `json:"name"`
	AuthorAvatar string    `json:"avatar"`
	Likes        []Like    `json:"likes"`
	Comments     []Comment `json:"comments"`
	CreatedAt    time.Time `json:"date"`
}

// Like は投稿へのいいねを表す。
// 同一投稿のLikesに同じUserIDが2回現れることはない（サービス層が保証する）。
type Like struct {
	UserID    string    `json:"user"`
	CreatedAt time.Time `json:"date"`
}

// Comment は投稿に紐づくコメントを表す。
// 親Postの内部にのみ存在し、独立したストアを持たない。
// 削除を除き作成後は不変。OwnerIDは作成時に1度だけ設定される。
type Comment struct {
	ID           string    `json:"id"`
	OwnerID      string    `json:"user"`
	Text         string    `json:"text"`
	AuthorName   string    `json:"name"`
	AuthorAvatar string    `json:"avatar"`
	CreatedAt    time.Time `json:"date"`
}

// LikedBy はuserIDがLikesに含まれるかを返す。
func (p *Post) LikedBy(userID string) bool {
	for _, l := range p.Likes {
		if l.UserID == userID {
			return true
		}
	}
	return false
}

// FindComment はコメントIDでコメントを検索する。見つからない場合はnilを返す。
func (p *Post) FindComment(commentID string) *Comment {
	for i := range p.Comments {
		if p.Comments[i].ID == commentID {
			return &p.Comments[i]
		}
	}
	return nil
}

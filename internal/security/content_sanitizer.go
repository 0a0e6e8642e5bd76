// Package security はアプリケーションのセキュリティ機能を提供する。
//
// TextSanitizerService は投稿・コメント本文をサニタイズし、
// XSS攻撃などのセキュリティリスクからユーザーを保護する。
// 本文はプレーンテキストとして扱うため、bluemondayのStrictPolicyで
// すべてのHTMLタグを除去する。
package security

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// TextSanitizerService は本文サニタイズ機能のインターフェースを定義する。
// 投稿・コメントの保存前に使用される。
type TextSanitizerService interface {
	// Sanitize は本文からすべてのHTMLタグを除去し、前後の空白を取り除いて返す。
	// 同一入力に対して常に同一出力を返す（冪等）。
	Sanitize(raw string) string
}

// textSanitizer はTextSanitizerServiceの実装。
// bluemondayのポリシーを保持し、スレッドセーフにサニタイズ処理を行う。
type textSanitizer struct {
	policy *bluemonday.Policy
}

// NewTextSanitizer はTextSanitizerServiceの新しいインスタンスを生成する。
// StrictPolicyはタグを一切許可しないため、scriptやイベント属性を含む
// あらゆるマークアップが除去される。
func NewTextSanitizer() *textSanitizer {
	return &textSanitizer{
		policy: bluemonday.StrictPolicy(),
	}
}

// Sanitize は本文からすべてのHTMLタグを除去し、前後の空白を取り除いて返す。
func (s *textSanitizer) Sanitize(raw string) string {
	return strings.TrimSpace(s.policy.Sanitize(raw))
}

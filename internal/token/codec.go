// Package token は署名付き・期限付きクレデンシャルの発行と検証を提供する。
//
// トークン形式は base64url(JSONペイロード) + "." + base64url(HMAC-SHA256署名) で、
// ペイロードにはユーザーID（sub）、発行時刻（iat）、有効期限（exp）を含む。
// 署名はプロセス全体で共有するシークレットに対するHMAC-SHA256。
// 外部I/Oを一切持たない純粋な変換レイヤーである。
package token

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"
	"time"
)

var (
	// ErrMalformed はトークンをクレデンシャル形式に解析できないことを表す。
	ErrMalformed = errors.New("token is malformed")
	// ErrInvalidSignature は署名がシークレットと一致しないことを表す。
	ErrInvalidSignature = errors.New("token signature is invalid")
	// ErrExpired はトークンの有効期限が切れていることを表す。
	ErrExpired = errors.New("token is expired")
)

// claims はトークンペイロードのワイヤー形式。
type claims struct {
	Subject   string `json:"sub"`
	IssuedAt  int64  `json:"iat"`
	ExpiresAt int64  `json:"exp"`
}

// Codec はトークンの発行・検証を行う。
// nowはテストから注入可能にするためのフック。
type Codec struct {
	secret []byte
	now    func() time.Time
}

// NewCodec は指定シークレットのCodecを生成する。
func NewCodec(secret string) *Codec {
	return &Codec{
		secret: []byte(secret),
		now:    time.Now,
	}
}

// Issue はuserIDを主体とする署名付きトークンを発行する。
// 有効期限は発行時刻 + ttl の絶対時刻。同一入力・同一シークレットに対して
// 署名は決定的である。
func (c *Codec) Issue(userID string, ttl time.Duration) (string, error) {
	now := c.now()
	payload, err := json.Marshal(claims{
		Subject:   userID,
		IssuedAt:  now.Unix(),
		ExpiresAt: now.Add(ttl).Unix(),
	})
	if err != nil {
		return "", err
	}

	encoded := base64.RawURLEncoding.EncodeToString(payload)
	return encoded + "." + c.sign(encoded), nil
}

// Verify はトークンを検証し、埋め込まれたユーザーIDを返す。
// 形式不正はErrMalformed、署名不一致はErrInvalidSignature、
// 現在時刻 >= exp はErrExpiredで失敗する。副作用はない。
func (c *Codec) Verify(raw string) (string, error) {
	encoded, sig, ok := strings.Cut(raw, ".")
	if !ok || encoded == "" || sig == "" {
		return "", ErrMalformed
	}

	// 署名検証はタイミング攻撃を防ぐため定数時間比較で行う
	if !hmac.Equal([]byte(c.sign(encoded)), []byte(sig)) {
		return "", ErrInvalidSignature
	}

	payload, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return "", ErrMalformed
	}

	var cl claims
	if err := json.Unmarshal(payload, &cl); err != nil {
		return "", ErrMalformed
	}
	if cl.Subject == "" || cl.ExpiresAt == 0 {
		return "", ErrMalformed
	}

	if !c.now().Before(time.Unix(cl.ExpiresAt, 0)) {
		return "", ErrExpired
	}

	return cl.Subject, nil
}

// sign はエンコード済みペイロードのHMAC-SHA256署名をbase64urlで返す。
func (c *Codec) sign(encoded string) string {
	mac := hmac.New(sha256.New, c.secret)
	mac.Write([]byte(encoded))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

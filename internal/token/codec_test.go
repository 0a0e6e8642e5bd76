package token

import (
	"strings"
	"testing"
	"time"
)

// TestCodec_IssueAndVerify は発行したトークンが検証を通り、同じユーザーIDが返ることを検証する。
func TestCodec_IssueAndVerify(t *testing.T) {
	c := NewCodec("test-secret")

	raw, err := c.Issue("user-123", time.Hour)
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}

	userID, err := c.Verify(raw)
	if err != nil {
		t.Fatalf("Verify returned error: %v", err)
	}
	if userID != "user-123" {
		t.Errorf("userID = %q, want %q", userID, "user-123")
	}
}

// TestCodec_Issue_Deterministic は同一入力・同一時刻に対して署名が決定的であることを検証する。
func TestCodec_Issue_Deterministic(t *testing.T) {
	fixed := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	c := NewCodec("test-secret")
	c.now = func() time.Time { return fixed }

	first, err := c.Issue("user-123", time.Hour)
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}
	second, err := c.Issue("user-123", time.Hour)
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}
	if first != second {
		t.Errorf("tokens differ for identical inputs:\n%s\n%s", first, second)
	}
}

// TestCodec_Verify_WrongSecret は異なるシークレットで発行されたトークンが
// 署名エラーで拒否されることを検証する。
func TestCodec_Verify_WrongSecret(t *testing.T) {
	issuer := NewCodec("secret-a")
	verifier := NewCodec("secret-b")

	raw, err := issuer.Issue("user-123", time.Hour)
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}

	if _, err := verifier.Verify(raw); err != ErrInvalidSignature {
		t.Errorf("err = %v, want ErrInvalidSignature", err)
	}
}

// TestCodec_Verify_Expired は期限切れトークンがErrExpiredで拒否されることを検証する。
func TestCodec_Verify_Expired(t *testing.T) {
	c := NewCodec("test-secret")

	raw, err := c.Issue("user-123", time.Hour)
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}

	// 検証時刻を発行から2時間後に進める
	c.now = func() time.Time { return time.Now().Add(2 * time.Hour) }

	if _, err := c.Verify(raw); err != ErrExpired {
		t.Errorf("err = %v, want ErrExpired", err)
	}
}

// TestCodec_Verify_ZeroTTL はttl=0のトークンが即座に期限切れ扱いになることを検証する。
func TestCodec_Verify_ZeroTTL(t *testing.T) {
	c := NewCodec("test-secret")

	raw, err := c.Issue("user-123", 0)
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}

	if _, err := c.Verify(raw); err != ErrExpired {
		t.Errorf("err = %v, want ErrExpired", err)
	}
}

// TestCodec_Verify_Malformed は解析不能な入力がErrMalformedで拒否されることを検証する。
func TestCodec_Verify_Malformed(t *testing.T) {
	c := NewCodec("test-secret")

	tests := []struct {
		name string
		raw  string
	}{
		{"empty", ""},
		{"no separator", "abcdef"},
		{"empty payload", ".sig"},
		{"empty signature", "payload."},
		{"garbage", "not-a-token-at-all!!"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := c.Verify(tt.raw); err != ErrMalformed {
				t.Errorf("Verify(%q) = %v, want ErrMalformed", tt.raw, err)
			}
		})
	}
}

// TestCodec_Verify_TamperedPayload はペイロード改ざんが署名エラーで検出されることを検証する。
func TestCodec_Verify_TamperedPayload(t *testing.T) {
	c := NewCodec("test-secret")

	raw, err := c.Issue("user-123", time.Hour)
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}

	encoded, sig, _ := strings.Cut(raw, ".")
	// ペイロードの先頭1文字を差し替える
	tampered := "X" + encoded[1:] + "." + sig

	if _, err := c.Verify(tampered); err != ErrInvalidSignature {
		t.Errorf("err = %v, want ErrInvalidSignature", err)
	}
}

package auth

import (
	"net/http"
	"testing"
	"time"
)

// TestSignerSign はHMAC署名の決定性と入力感度を検証する。
func TestSignerSign(t *testing.T) {
	t.Parallel()

	t.Run("同じ入力と鍵からは同じ署名が得られること", func(t *testing.T) {
		t.Parallel()

		s := NewSigner("secret-key")
		first := s.Sign("user@example.com", "2026-08-28T00:00:00")
		second := s.Sign("user@example.com", "2026-08-28T00:00:00")
		if first != second {
			t.Errorf("署名が一致しない: %q != %q", first, second)
		}
	})

	t.Run("ユーザー識別子が変わると署名も変わること", func(t *testing.T) {
		t.Parallel()

		s := NewSigner("secret-key")
		first := s.Sign("alice@example.com", "2026-08-28T00:00:00")
		second := s.Sign("bob@example.com", "2026-08-28T00:00:00")
		if first == second {
			t.Error("異なるユーザーで署名が一致した")
		}
	})

	t.Run("タイムスタンプが変わると署名も変わること", func(t *testing.T) {
		t.Parallel()

		s := NewSigner("secret-key")
		first := s.Sign("alice@example.com", "2026-08-28T00:00:00")
		second := s.Sign("alice@example.com", "2026-08-28T00:00:01")
		if first == second {
			t.Error("異なるタイムスタンプで署名が一致した")
		}
	})

	t.Run("鍵が変わると署名も変わること", func(t *testing.T) {
		t.Parallel()

		first := NewSigner("key-a").Sign("alice@example.com", "2026-08-28T00:00:00")
		second := NewSigner("key-b").Sign("alice@example.com", "2026-08-28T00:00:00")
		if first == second {
			t.Error("異なる鍵で署名が一致した")
		}
	})
}

// TestSignerAddAuthHeaders はIDアサーションヘッダーの付与を検証する。
func TestSignerAddAuthHeaders(t *testing.T) {
	t.Parallel()

	t.Run("3つのアサーションヘッダーが設定されること", func(t *testing.T) {
		t.Parallel()

		s := NewSigner("secret-key")
		h := http.Header{}
		s.AddAuthHeaders("user@example.com", h)

		if got := h.Get(HeaderUserID); got != "user@example.com" {
			t.Errorf("%s = %q, want %q", HeaderUserID, got, "user@example.com")
		}
		ts := h.Get(HeaderSignatureTimestamp)
		if ts == "" {
			t.Fatalf("%s が設定されていない", HeaderSignatureTimestamp)
		}
		if _, err := time.Parse(signatureTimeFormat, ts); err != nil {
			t.Errorf("タイムスタンプの書式が不正: %q (%v)", ts, err)
		}
		if got := h.Get(HeaderSignature); got != s.Sign("user@example.com", ts) {
			t.Errorf("署名がタイムスタンプと整合しない: %q", got)
		}
	})
}

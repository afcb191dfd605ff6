package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"time"
)

// バックエンドに検証済みIDを伝えるためのアサーションヘッダー。
const (
	// HeaderUserID は検証済みユーザー識別子（メールアドレス）。
	HeaderUserID = "X-LabDB-UserId"
	// HeaderSignature はユーザー識別子とタイムスタンプに対するHMAC署名。
	HeaderSignature = "X-LabDB-Signature"
	// HeaderSignatureTimestamp は署名時刻（UTC、秒精度）。
	HeaderSignatureTimestamp = "X-LabDB-Signature-Timestamp"
)

// signatureTimeFormat は署名タイムスタンプの書式。秒精度のISO形式。
const signatureTimeFormat = "2006-01-02T15:04:05"

// Signer はバックエンド向けのIDアサーションヘッダーを生成する。
// 署名はプロセス全体で共有する秘密鍵によるHMAC-SHA256で、
// 有効期限の検証はバックエンド側の責務とする。
type Signer struct {
	signingKey []byte
}

// NewSigner は指定した署名鍵を使うSignerを生成する。
func NewSigner(signingKey string) *Signer {
	return &Signer{signingKey: []byte(signingKey)}
}

// AddAuthHeaders はユーザー識別子・署名・タイムスタンプの3ヘッダーを付与する。
// 同一の入力と鍵に対して決定的であり、転送ごとに毎回計算される。
func (s *Signer) AddAuthHeaders(userID string, h http.Header) {
	ts := time.Now().UTC().Format(signatureTimeFormat)
	h.Set(HeaderUserID, userID)
	h.Set(HeaderSignature, s.Sign(userID, ts))
	h.Set(HeaderSignatureTimestamp, ts)
}

// Sign はユーザー識別子とタイムスタンプ文字列の連結に対する
// HMAC-SHA256署名を計算し、16進文字列で返す。
func (s *Signer) Sign(userID, ts string) string {
	mac := hmac.New(sha256.New, s.signingKey)
	mac.Write([]byte(userID + ts))
	return hex.EncodeToString(mac.Sum(nil))
}

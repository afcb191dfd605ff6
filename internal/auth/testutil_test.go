package auth

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"labdb.org/labgate/pkg/httpclient"
)

// testAppID はテスト用のアプリケーション識別子。
const testAppID = "test-app-id.example.apps"

// newTestRSAKey はテスト用のRSA鍵ペアを生成する。
func newTestRSAKey(t *testing.T) *rsa.PrivateKey {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("RSA鍵の生成に失敗: %v", err)
	}
	return key
}

// jwkFor は公開鍵を鍵配布エンドポイントのワイヤ形式に変換する。
func jwkFor(kid, alg string, pub *rsa.PublicKey) map[string]string {
	return map[string]string{
		"kid": kid,
		"alg": alg,
		"n":   base64.RawURLEncoding.EncodeToString(pub.N.Bytes()),
		"e":   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(pub.E)).Bytes()),
	}
}

// newCertsServer はモックの鍵配布エンドポイントを起動する。
// fetchCount には取得リクエストの回数が記録される。
func newCertsServer(t *testing.T, cacheControl string, keys []map[string]string, fetchCount *atomic.Int32) *httptest.Server {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if fetchCount != nil {
			fetchCount.Add(1)
		}
		if cacheControl != "" {
			w.Header().Set("Cache-Control", cacheControl)
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(map[string]any{"keys": keys}); err != nil {
			t.Errorf("鍵セットの書き込みに失敗: %v", err)
		}
	}))
	t.Cleanup(server.Close)
	return server
}

// signTestToken はテスト用のRS256署名付きIDトークンを生成する。
// kid が空でない場合のみヘッダーに鍵IDを設定する。
func signTestToken(t *testing.T, key *rsa.PrivateKey, kid, audience, email string, emailVerified bool) string {
	t.Helper()

	claims := idTokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Audience:  jwt.ClaimStrings{audience},
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
		Email:         email,
		EmailVerified: emailVerified,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	if kid != "" {
		token.Header["kid"] = kid
	}
	signed, err := token.SignedString(key)
	if err != nil {
		t.Fatalf("テスト用トークンの署名に失敗: %v", err)
	}
	return signed
}

// newTestVerifier は指定したエンドポイントを使うVerifierを生成する。
func newTestVerifier(t *testing.T, certsURL, tokeninfoURL string) *Verifier {
	t.Helper()

	client := httpclient.New()
	return NewVerifier(client, NewKeyCache(client, certsURL), testAppID, tokeninfoURL)
}

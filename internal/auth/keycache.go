package auth

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"math/big"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"labdb.org/labgate/pkg/httpclient"
)

// DefaultCertsURL はGoogleの公開鍵配布エンドポイント。
const DefaultCertsURL = "https://www.googleapis.com/oauth2/v3/certs"

// supportedAlgorithm はキャッシュに取り込む鍵のアルゴリズム。
// これ以外のアルゴリズムの鍵は取得時に除外する。
const supportedAlgorithm = "RS256"

// KeyCache は鍵配布エンドポイントから取得した検証鍵の時限キャッシュ。
// 有効期限はレスポンスの Cache-Control max-age から取り、キャッシュ全体で
// 単一の期限を共有する。期限切れを観測した読み取りは必ず再取得してから
// 鍵を参照する。再取得の単一化（single-flight）は行わないため、
// 期限切れ直後に並行する呼び出しがそれぞれ再取得することがあるが、
// 取得は冪等なので正しさには影響しない。
type KeyCache struct {
	// certsURL は鍵配布エンドポイントのURL。
	certsURL string
	// client は鍵取得に使うHTTPクライアント。
	client *httpclient.Client

	// mu は以下の (expiry, keys) ペアの入れ替えを保護する。
	mu     sync.RWMutex
	expiry time.Time
	keys   map[string]*rsa.PublicKey
}

// NewKeyCache は空の鍵キャッシュを生成する。
// 初期状態は期限切れとして扱われ、最初のGetで必ず鍵を取得する。
func NewKeyCache(client *httpclient.Client, certsURL string) *KeyCache {
	return &KeyCache{
		certsURL: certsURL,
		client:   client,
		keys:     map[string]*rsa.PublicKey{},
	}
}

// Get は鍵識別子に対応する検証鍵を返す。
// キャッシュが期限切れの場合は鍵配布エンドポイントから再取得する。
// 再取得後も該当する鍵が無い場合は ErrUnknownKey を返す。
func (kc *KeyCache) Get(ctx context.Context, keyID string) (*rsa.PublicKey, error) {
	kc.mu.RLock()
	expiry, keys := kc.expiry, kc.keys
	kc.mu.RUnlock()

	if !expiry.After(time.Now()) {
		refreshed, err := kc.refresh(ctx)
		if err != nil {
			return nil, err
		}
		keys = refreshed
	}

	key, ok := keys[keyID]
	if !ok {
		return nil, fmt.Errorf("鍵ID %q が見つかりません: %w", keyID, ErrUnknownKey)
	}
	return key, nil
}

// jwk は鍵配布エンドポイントが返す鍵1件分の表現。
// RSA鍵の再構成に必要なフィールドのみを持つ。
type jwk struct {
	// Kid は鍵識別子。
	Kid string `json:"kid"`
	// Alg は署名アルゴリズム。
	Alg string `json:"alg"`
	// N はbase64url符号化されたRSAモジュラス。
	N string `json:"n"`
	// E はbase64url符号化されたRSA公開指数。
	E string `json:"e"`
}

// jwkSet は鍵配布エンドポイントのレスポンス全体。
type jwkSet struct {
	Keys []jwk `json:"keys"`
}

// refresh は鍵配布エンドポイントから鍵セットを取得し、キャッシュ全体を
// 新しい (expiry, keys) ペアで置き換える。解読に失敗した鍵はログに残して
// 除外し、部分的な鍵セットでもそのまま採用する。結果が空でも置き換える。
func (kc *KeyCache) refresh(ctx context.Context) (map[string]*rsa.PublicKey, error) {
	resp, err := kc.client.Get(ctx, kc.certsURL)
	if err != nil {
		return nil, fmt.Errorf("鍵配布エンドポイントへの接続に失敗: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("鍵配布エンドポイントがステータス %d を返しました", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("鍵配布レスポンスの読み取りに失敗: %w", err)
	}

	var set jwkSet
	if err := json.Unmarshal(body, &set); err != nil {
		return nil, fmt.Errorf("鍵セットの解析に失敗: %w", err)
	}

	maxAge := parseMaxAge(resp.Header.Get("Cache-Control"))
	expiry := time.Now().Add(time.Duration(maxAge) * time.Second)

	keys := make(map[string]*rsa.PublicKey, len(set.Keys))
	for _, k := range set.Keys {
		if k.Alg != supportedAlgorithm {
			continue
		}
		key, err := parseRSAKey(k.N, k.E)
		if err != nil {
			log.Printf("検証鍵 %q の解読に失敗したため除外します: %v", k.Kid, err)
			continue
		}
		keys[k.Kid] = key
	}

	kc.mu.Lock()
	kc.expiry = expiry
	kc.keys = keys
	kc.mu.Unlock()

	return keys, nil
}

// parseMaxAge は Cache-Control ヘッダーから max-age 秒数を取り出す。
// ヘッダーが無い・解析できない場合は0（キャッシュしない）を返す。
func parseMaxAge(cacheControl string) int {
	for _, directive := range strings.Split(cacheControl, ",") {
		value, found := strings.CutPrefix(strings.TrimSpace(directive), "max-age=")
		if !found {
			continue
		}
		seconds, err := strconv.Atoi(value)
		if err != nil || seconds < 0 {
			return 0
		}
		return seconds
	}
	return 0
}

// parseRSAKey はbase64url符号化されたモジュラスと指数からRSA公開鍵を構成する。
func parseRSAKey(modulus, exponent string) (*rsa.PublicKey, error) {
	nBytes, err := base64.RawURLEncoding.DecodeString(modulus)
	if err != nil {
		return nil, fmt.Errorf("モジュラスの復号に失敗: %w", err)
	}
	eBytes, err := base64.RawURLEncoding.DecodeString(exponent)
	if err != nil {
		return nil, fmt.Errorf("指数の復号に失敗: %w", err)
	}
	return &rsa.PublicKey{
		N: new(big.Int).SetBytes(nBytes),
		E: int(new(big.Int).SetBytes(eBytes).Int64()),
	}, nil
}

package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/url"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"labdb.org/labgate/pkg/httpclient"
)

// AppID はトークンのaudクレームに要求するアプリケーション識別子。
const AppID = "146923434465-alq7iagpanjvoag20smuirj0ivdtfldk.apps.googleusercontent.com"

// DefaultTokeninfoURL はレガシー経路で使用するトークン検証エンドポイント。
const DefaultTokeninfoURL = "https://www.googleapis.com/oauth2/v3/tokeninfo"

// Verifier はIDトークンを検証し、確認済みメールアドレスを取り出す。
// 署名付きトークンの検証（公開鍵キャッシュ利用）と、外部トークン検証
// エンドポイントへの委譲（レガシー経路）の2経路を持つ。
type Verifier struct {
	// appID はaudクレームの検証に使うアプリケーション識別子。
	appID string
	// tokeninfoURL はレガシー経路のトークン検証エンドポイント。
	tokeninfoURL string
	// keys は署名検証鍵のキャッシュ。
	keys *KeyCache
	// client はレガシー経路の問い合わせに使うHTTPクライアント。
	client *httpclient.Client
}

// NewVerifier は新しいVerifierを生成する。
func NewVerifier(client *httpclient.Client, keys *KeyCache, appID, tokeninfoURL string) *Verifier {
	return &Verifier{
		appID:        appID,
		tokeninfoURL: tokeninfoURL,
		keys:         keys,
		client:       client,
	}
}

// VerifyIdentity は与えられたトークンを検証し、確認済みメールアドレスを返す。
// jwtToken が指定されていれば署名付きトークン経路を使い、そうでなければ
// legacyToken でレガシー経路に委譲する。レガシー経路での「未確認」は
// エラーではなく空文字列として返す。呼び出し側はこれを認可拒否として扱う。
func (v *Verifier) VerifyIdentity(ctx context.Context, jwtToken, legacyToken string) (string, error) {
	if jwtToken != "" {
		return v.verifySignedToken(ctx, jwtToken)
	}
	return v.introspectToken(ctx, legacyToken)
}

// idTokenClaims は署名付きトークンから取り出すクレーム。
type idTokenClaims struct {
	jwt.RegisteredClaims
	// Email はトークンが主張するメールアドレス。
	Email string `json:"email"`
	// EmailVerified はメールアドレスが確認済みかどうか。
	EmailVerified bool `json:"email_verified"`
}

// verifySignedToken は公開鍵キャッシュの鍵でトークンの署名とaudクレームを
// 検証する。鍵識別子の欠落は ErrMalformedToken、鍵の不在は ErrUnknownKey、
// 署名・aud不一致は ErrSignatureInvalid、メール未確認は ErrUnverifiedEmail。
func (v *Verifier) verifySignedToken(ctx context.Context, raw string) (string, error) {
	claims := &idTokenClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		keyID, ok := t.Header["kid"].(string)
		if !ok || keyID == "" {
			return nil, fmt.Errorf("トークンに鍵IDがありません: %w", ErrMalformedToken)
		}
		return v.keys.Get(ctx, keyID)
	}, jwt.WithValidMethods([]string{supportedAlgorithm}), jwt.WithAudience(v.appID))
	if err != nil {
		switch {
		case errors.Is(err, ErrMalformedToken) || errors.Is(err, ErrUnknownKey):
			return "", err
		case errors.Is(err, jwt.ErrTokenMalformed):
			return "", fmt.Errorf("トークンの解析に失敗: %w", ErrMalformedToken)
		default:
			return "", fmt.Errorf("トークンの検証に失敗 (%v): %w", err, ErrSignatureInvalid)
		}
	}
	if !claims.EmailVerified {
		return "", fmt.Errorf("メールアドレス %q は未確認: %w", claims.Email, ErrUnverifiedEmail)
	}
	return claims.Email, nil
}

// introspectionResponse はトークン検証エンドポイントのレスポンス。
// email_verified は歴史的経緯で文字列として返るため、そのまま文字列比較する。
type introspectionResponse struct {
	Aud           string `json:"aud"`
	EmailVerified string `json:"email_verified"`
	Email         string `json:"email"`
}

// introspectToken はトークンを外部のトークン検証エンドポイントに問い合わせる。
// エンドポイントの失敗応答は ErrIntrospectionFailed として返しログに残す。
// 成功応答でもaudまたはemail_verifiedが条件を満たさない場合は、
// エラーではなく空文字列（未確認）を返す。
func (v *Verifier) introspectToken(ctx context.Context, token string) (string, error) {
	params := url.Values{}
	params.Set("id_token", token)

	resp, err := v.client.Post(ctx, v.tokeninfoURL+"?"+params.Encode())
	if err != nil {
		return "", fmt.Errorf("トークン検証エンドポイントへの接続に失敗 (%v): %w", err, ErrIntrospectionFailed)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("トークン検証レスポンスの読み取りに失敗 (%v): %w", err, ErrIntrospectionFailed)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		log.Printf("トークン検証エンドポイントがエラー応答: status=%d, body=%s", resp.StatusCode, string(body))
		return "", fmt.Errorf("トークン検証エンドポイントがステータス %d を返しました: %w", resp.StatusCode, ErrIntrospectionFailed)
	}

	var ir introspectionResponse
	if err := json.Unmarshal(body, &ir); err != nil {
		return "", fmt.Errorf("トークン検証レスポンスの解析に失敗 (%v): %w", err, ErrIntrospectionFailed)
	}

	if strings.Contains(ir.Aud, v.appID) && ir.EmailVerified == "true" {
		return ir.Email, nil
	}
	return "", nil
}

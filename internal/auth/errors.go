package auth

import "errors"

// トークン検証の失敗理由。呼び出し側は errors.Is で判別し、
// HTTPステータスへの変換はハンドラ側で行う。
var (
	// ErrMalformedToken はトークンのメタデータが解読できない（kidが無い等）。
	ErrMalformedToken = errors.New("auth: malformed token")
	// ErrUnknownKey はキャッシュ更新後も該当する検証鍵が見つからない。
	ErrUnknownKey = errors.New("auth: unknown signing key")
	// ErrSignatureInvalid は署名またはaudクレームの検証に失敗した。
	ErrSignatureInvalid = errors.New("auth: invalid token signature")
	// ErrUnverifiedEmail はトークンは正当だがメールアドレスが未確認。
	ErrUnverifiedEmail = errors.New("auth: email not verified")
	// ErrIntrospectionFailed はトークン検証エンドポイントが失敗応答を返した。
	ErrIntrospectionFailed = errors.New("auth: token introspection failed")
)

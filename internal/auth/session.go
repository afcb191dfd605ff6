package auth

import (
	"fmt"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
)

// sessionName はセッションCookieの名前。
const sessionName = "labdb_session"

// sessionKeyUserID はセッション内で検証済みユーザー識別子を保持するキー。
// 値はトークン検証で確認されたメールアドレス。
const sessionKeyUserID = "user_id"

// sessionMaxAge はセッションの最大存続期間（14日）。
const sessionMaxAge = 14 * 24 * 60 * 60

// SessionStore は署名付きCookieによるセッションミドルウェアを返す。
// セッションの実体はクライアント保持・サーバー検証の不透明なCookieで、
// ゲートウェイから見るとキーバリューストアとしてのみ扱う。
func SessionStore(secret string, secure bool) gin.HandlerFunc {
	store := cookie.NewStore([]byte(secret))
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   sessionMaxAge,
		Secure:   secure,
		HttpOnly: true,
	})
	return sessions.Sessions(sessionName, store)
}

// CurrentUserID はリクエストに付随するセッションから検証済みユーザー識別子を
// 取り出す。セッションが無い・値が無い場合は空文字列を返す。
func CurrentUserID(c *gin.Context) string {
	session := sessions.Default(c)
	if id, ok := session.Get(sessionKeyUserID).(string); ok {
		return id
	}
	return ""
}

// SaveUserID は検証済みユーザー識別子をセッションに書き込む。
// トークン検証が成功したログイン交換時にのみ呼び出される。
func SaveUserID(c *gin.Context, userID string) error {
	session := sessions.Default(c)
	session.Set(sessionKeyUserID, userID)
	if err := session.Save(); err != nil {
		return fmt.Errorf("セッションの保存に失敗: %w", err)
	}
	return nil
}

package gateway

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"labdb.org/labgate/internal/auth"
	"labdb.org/labgate/internal/config"
	"labdb.org/labgate/internal/directory"
	"labdb.org/labgate/internal/search"
	"labdb.org/labgate/pkg/httpclient"
	"labdb.org/labgate/pkg/middleware"
)

// contextKeyVerifiedUser はGinコンテキストで検証済みユーザー識別子を
// 保持するキー。requireAuth が設定し、転送ハンドラが参照する。
const contextKeyVerifiedUser = "verified_user_id"

// Server は認証付きリバースプロキシゲートウェイのHTTPサーバー。
type Server struct {
	// router はGinのHTTPルーター。
	router *gin.Engine
	// cfg はプロセス全体の設定。
	cfg *config.Config
	// dir はユーザーディレクトリへの読み取りアクセス。
	dir *directory.Directory
	// verifier はIDトークンの検証器。
	verifier *auth.Verifier
	// forwarder はバックエンドへの転送器。
	forwarder *Forwarder
}

// NewServer は新しいゲートウェイサーバーを生成する。
// ディレクトリDBへの接続、トークン検証器、転送器を組み立てる。
func NewServer(cfg *config.Config) (*Server, error) {
	if cfg.Prod() {
		gin.SetMode(gin.ReleaseMode)
	}

	dir, err := directory.Open(cfg)
	if err != nil {
		return nil, err
	}

	client := httpclient.New()
	keys := auth.NewKeyCache(client, auth.DefaultCertsURL)

	s := &Server{
		router:    gin.New(),
		cfg:       cfg,
		dir:       dir,
		verifier:  auth.NewVerifier(client, keys, auth.AppID, auth.DefaultTokeninfoURL),
		forwarder: NewForwarder(cfg, client, auth.NewSigner(cfg.SigningKey)),
	}
	s.setupRoutes()

	return s, nil
}

// Run はHTTPサーバーを起動する。
func (s *Server) Run() error {
	return s.router.Run(":" + s.cfg.Port)
}

// Shutdown はサーバーを停止し、ディレクトリDB接続を閉じる。
func (s *Server) Shutdown() {
	if s.dir != nil {
		if err := s.dir.Close(); err != nil {
			log.Printf("ディレクトリDBのクローズに失敗: %v", err)
		}
	}
}

// setupRoutes はルーティングを設定する。
// 公開ルートは `/`・`/_s/*`・`/api/verify` のみで、それ以外は全て
// セッションによる本人確認と権限判定を経てバックエンドへ転送される。
func (s *Server) setupRoutes() {
	s.router.Use(middleware.Recovery())
	s.router.Use(middleware.RequestID())
	s.router.Use(middleware.RequestLog())
	s.router.Use(middleware.HTTPSRedirect(s.cfg.Prod()))
	s.router.Use(auth.SessionStore(s.cfg.SecretToken, s.cfg.Prod()))

	// ログイン交換と静的アセットの通過は認証不要
	s.router.POST("/api/verify", s.handleVerify)
	s.router.Any("/", s.handlePublicProxy)
	s.router.Any("/_s/*rest", s.handlePublicProxy)

	// 認証必須のルート
	s.router.GET("/search", s.requireAuth, s.handleSearch)
	s.router.GET("/api/v1/m/:model/:id", s.requireAuth, s.handleResource)

	// 上記以外は全て認証付きでバックエンドへ転送する
	s.router.NoRoute(s.requireAuth, s.handleAuthProxy)
}

// requireAuth は保護ルート用の認証・認可ミドルウェア。
// セッションの取り出しに失敗すれば即403（DBアクセスなし）。
// 取り出せた場合はHTTPメソッドから要求権限を導出し、ディレクトリの
// ユーザーレコードと突き合わせる。拒否は403、ディレクトリ障害は502。
func (s *Server) requireAuth(c *gin.Context) {
	userID := auth.CurrentUserID(c)
	if userID == "" {
		c.String(http.StatusForbidden, "Forbidden")
		c.Abort()
		return
	}

	user, err := s.dir.UserByEmail(c.Request.Context(), userID)
	if err != nil {
		log.Printf("ディレクトリの参照に失敗: user=%s, error=%v", userID, err)
		c.String(http.StatusBadGateway, "Directory unavailable: %v", err)
		c.Abort()
		return
	}

	permission := auth.PermissionForMethod(c.Request.Method)
	if !auth.Authorize(user, permission) {
		log.Printf("アクセス拒否: user=%s, method=%s, path=%s", userID, c.Request.Method, c.Request.URL.Path)
		c.String(http.StatusForbidden, "Forbidden")
		c.Abort()
		return
	}

	c.Set(contextKeyVerifiedUser, userID)
	c.Next()
}

// verifiedUserID はrequireAuthが設定した検証済みユーザー識別子を返す。
func verifiedUserID(c *gin.Context) string {
	if id, ok := c.Get(contextKeyVerifiedUser); ok {
		if s, ok := id.(string); ok {
			return s
		}
	}
	return ""
}

// handleVerify はログイン交換エンドポイント。
// jwt パラメータ（署名付きトークン経路）が token パラメータ（レガシー経路）
// より優先される。検証に成功したメールアドレスをセッションに保存し、
// `/` へリダイレクトする。
func (s *Server) handleVerify(c *gin.Context) {
	jwtParam := c.Query("jwt")
	tokenParam := c.Query("token")
	if jwtParam == "" && tokenParam == "" {
		c.String(http.StatusBadRequest, "No auth token provided")
		return
	}

	email, err := s.verifier.VerifyIdentity(c.Request.Context(), jwtParam, tokenParam)
	if err != nil {
		c.String(http.StatusForbidden, verifyFailureMessage(err))
		return
	}
	if email == "" {
		// レガシー経路の「未確認」。エラーではなく通常の認可拒否。
		c.String(http.StatusForbidden, "Forbidden")
		return
	}

	if err := auth.SaveUserID(c, email); err != nil {
		log.Printf("セッションの保存に失敗: %v", err)
		c.String(http.StatusInternalServerError, "Internal server error.")
		return
	}
	c.Redirect(http.StatusSeeOther, "/")
}

// verifyFailureMessage は検証失敗の理由を短い応答メッセージに変換する。
func verifyFailureMessage(err error) string {
	switch {
	case errors.Is(err, auth.ErrMalformedToken):
		return "Malformed auth token"
	case errors.Is(err, auth.ErrUnknownKey):
		return "Unknown signing key"
	case errors.Is(err, auth.ErrSignatureInvalid):
		return "Invalid token signature"
	case errors.Is(err, auth.ErrUnverifiedEmail):
		return "Email address not verified"
	case errors.Is(err, auth.ErrIntrospectionFailed):
		return "Token verification failed"
	default:
		return "Forbidden"
	}
}

// handlePublicProxy は公開ルートをIDアサーションなしでバックエンドへ転送する。
func (s *Server) handlePublicProxy(c *gin.Context) {
	s.forwarder.Forward(c, "")
}

// handleAuthProxy は認証済みリクエストをIDアサーション付きで転送する。
func (s *Server) handleAuthProxy(c *gin.Context) {
	s.forwarder.Forward(c, verifiedUserID(c))
}

// handleSearch は記録レコード横断検索を実行し、結果をバックエンドの
// /search_result にPOSTして描画させ、その応答を中継する。
func (s *Server) handleSearch(c *gin.Context) {
	term := c.Query("term")
	person := c.Query("person")
	includeSequence := c.Query("seq") == "1"

	var types []string
	if err := json.Unmarshal([]byte(c.Query("types")), &types); err != nil || term == "" {
		c.String(http.StatusBadRequest, "Invalid search query")
		return
	}

	results, err := search.Search(c.Request.Context(), s.dir, term, includeSequence, person, types)
	if err != nil {
		if errors.Is(err, search.ErrMalformedQuery) {
			c.String(http.StatusBadRequest, "Invalid search query")
			return
		}
		log.Printf("検索の実行に失敗: %v", err)
		c.String(http.StatusBadGateway, "Directory unavailable: %v", err)
		return
	}

	// 検索結果に加えて生の検索語も送る。検索語が単一レコードへの直接参照か
	// どうかの判定はバックエンド側で行われる。
	payload, err := json.Marshal(map[string]any{"items": results, "term": term})
	if err != nil {
		c.String(http.StatusInternalServerError, "Internal server error.")
		return
	}

	// 受信リクエストをバックエンドへのPOST /search_result に組み替えて転送する
	c.Request.Method = http.MethodPost
	c.Request.URL.Path = "/search_result"
	c.Request.URL.RawPath = ""
	c.Request.URL.RawQuery = ""
	c.Request.Body = io.NopCloser(bytes.NewReader(payload))
	c.Request.ContentLength = int64(len(payload))
	c.Request.Header.Set("Content-Type", "application/json")

	s.forwarder.Forward(c, verifiedUserID(c))
}

// handleResource は登録表に載っているレコード種別をディレクトリから直接
// 返し、未知の種別はバックエンドへ転送する。
func (s *Server) handleResource(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.String(http.StatusBadRequest, "Bad ID")
		return
	}

	desc, ok := directory.Lookup(c.Param("model"))
	if !ok {
		s.forwarder.Forward(c, verifiedUserID(c))
		return
	}

	resource, err := s.dir.ResourceByID(c.Request.Context(), desc, id)
	if err != nil {
		log.Printf("レコードの取得に失敗: %v", err)
		c.String(http.StatusBadGateway, "Directory unavailable: %v", err)
		return
	}
	if resource == nil {
		c.String(http.StatusNotFound, "Not found.")
		return
	}
	c.JSON(http.StatusOK, resource)
}

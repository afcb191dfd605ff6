package gateway

import (
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/gin-gonic/gin"

	"labdb.org/labgate/internal/auth"
	"labdb.org/labgate/internal/config"
	"labdb.org/labgate/pkg/httpclient"
)

const (
	// headerForwarded はプロキシループ検出用のマーカーヘッダー。
	headerForwarded = "X-Labdb-Forwarded"
	// devProxyTarget は開発モードでの転送先オーソリティ。
	devProxyTarget = "localhost:3001"
	// publicSuffix は本番で受け付けるHostの末尾。
	publicSuffix = ".labdb.io"
	// proxySuffix は内部バックエンドのホスト末尾。
	proxySuffix = "-backend.labdb.io"
	// edgeHeaderPrefix はエッジネットワークが付与するヘッダーの予約接頭辞。
	// クライアントが偽装可能なため、転送前に必ず取り除く。
	edgeHeaderPrefix = "cf-"
)

// ErrInvalidHost は本番モードで許可されていないHostへの転送要求。
var ErrInvalidHost = errors.New("gateway: invalid proxy host")

// Forwarder は受信リクエストをバックエンドへ転送する。
// 転送先ホストの解決、信頼できないヘッダーの除去、ループ検出、
// IDアサーションの注入、URIの書き換えを行い、レスポンスは無加工で返す。
type Forwarder struct {
	// cfg はモード判定と開発用転送先の上書きに使う設定。
	cfg *config.Config
	// client は全転送で共有するHTTPクライアント。
	client *httpclient.Client
	// signer は検証済みIDのアサーションヘッダーを生成する。
	signer *auth.Signer
}

// NewForwarder は新しいForwarderを生成する。
func NewForwarder(cfg *config.Config, client *httpclient.Client, signer *auth.Signer) *Forwarder {
	return &Forwarder{cfg: cfg, client: client, signer: signer}
}

// backendHost は受信リクエストのHostから転送先オーソリティを解決する。
// 開発モードでは固定のローカルアドレス（PROXY_TARGET で上書き可能）。
// 本番モードでは公開サフィックスで終わるHostのみを受け付け、
// 内部サフィックスへ書き換える。それ以外は ErrInvalidHost。
func (f *Forwarder) backendHost(inboundHost string) (string, error) {
	if f.cfg.Dev {
		if f.cfg.ProxyTarget != "" {
			return f.cfg.ProxyTarget, nil
		}
		return devProxyTarget, nil
	}
	if !strings.HasSuffix(inboundHost, publicSuffix) {
		return "", fmt.Errorf("host %q は %s サブドメインではありません: %w", inboundHost, publicSuffix, ErrInvalidHost)
	}
	return strings.ReplaceAll(inboundHost, publicSuffix, proxySuffix), nil
}

// Forward は受信リクエストをバックエンドへ転送し、レスポンスを呼び出し元に
// そのまま中継する。userID が空でなければIDアサーションヘッダーを付与する
// （認証付き転送）。空の場合は公開転送。転送は全か無かで、リトライしない。
func (f *Forwarder) Forward(c *gin.Context, userID string) {
	// ループ検出は他のヘッダー処理より先に行う。値が "true" のもの、
	// および解釈できない値はマーカーが立っているものとして安全側に倒す。
	if values := c.Request.Header.Values(headerForwarded); len(values) > 0 {
		if values[0] == "true" || !utf8.ValidString(values[0]) {
			c.String(http.StatusBadRequest, "Stuck in a recursive proxy loop.")
			c.Abort()
			return
		}
	}

	host, err := f.backendHost(c.Request.Host)
	if err != nil {
		c.String(http.StatusBadRequest, "Can only proxy requests on %s subdomains.", publicSuffix)
		c.Abort()
		return
	}

	req := c.Request.Clone(c.Request.Context())
	f.setupBackendRequest(host, req, userID)

	resp, err := f.client.Do(req)
	if err != nil {
		log.Printf("バックエンドへの転送に失敗: url=%s, error=%v", req.URL, err)
		c.String(http.StatusBadGateway, "Backend unavailable: %v", err)
		c.Abort()
		return
	}
	defer resp.Body.Close()

	for key, values := range resp.Header {
		for _, v := range values {
			c.Writer.Header().Add(key, v)
		}
	}
	c.Status(resp.StatusCode)
	if _, err := io.Copy(c.Writer, resp.Body); err != nil {
		log.Printf("レスポンスの中継に失敗: %v", err)
	}
	c.Abort()
}

// setupBackendRequest は転送用リクエストを整形する。
// エッジ接頭辞付きヘッダーと転送系ヘッダーはクライアントが偽装可能なので
// 全て取り除き、ループマーカーと（必要なら）IDアサーションを付与したうえで
// URIを転送先オーソリティに書き換える。
func (f *Forwarder) setupBackendRequest(host string, req *http.Request, userID string) {
	for key := range req.Header {
		if strings.HasPrefix(strings.ToLower(key), edgeHeaderPrefix) {
			req.Header.Del(key)
		}
	}
	req.Header.Del("X-Forwarded-For")
	req.Header.Del("Host")
	req.Header.Del("X-Forwarded-Host")
	req.Header.Del("Forwarded")
	req.Header.Set(headerForwarded, "true")

	if userID != "" {
		f.signer.AddAuthHeaders(userID, req.Header)
	}

	if req.URL.Scheme == "" {
		if f.cfg.Dev {
			req.URL.Scheme = "http"
		} else {
			req.URL.Scheme = "https"
		}
	}
	req.URL.Host = host
	// 新しいオーソリティをHostヘッダーとして送る
	req.Host = host
	// クライアント経由で送るため、サーバー受信時のフィールドを消す
	req.RequestURI = ""
}

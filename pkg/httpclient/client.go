package httpclient

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// defaultTimeout は外部エンドポイントへのリクエストに適用するタイムアウト。
const defaultTimeout = 30 * time.Second

// Client は外部サービスとの通信に使う共有HTTPクライアント。
// 鍵配布エンドポイント・トークン検証エンドポイント・バックエンド転送が
// 全て同じトランスポート（標準のコネクションプーリング）を共有する。
type Client struct {
	// httpClient は内部で使用するHTTPクライアント。
	httpClient *http.Client
}

// New は新しい共有HTTPクライアントを生成する。
func New() *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
	}
}

// Do は組み立て済みのHTTPリクエストをそのまま実行する。
// プロキシ転送のように呼び出し側がリクエストを完全に制御する場合に使う。
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	return c.httpClient.Do(req)
}

// Get は指定URLにGETリクエストを送信する。
// レスポンスボディのクローズは呼び出し側の責任。
func (c *Client) Get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("HTTPリクエストの作成に失敗: %w", err)
	}
	return c.httpClient.Do(req)
}

// Post は指定URLに空ボディのPOSTリクエストを送信する。
// トークン検証エンドポイントはパラメータをクエリ文字列で受け取るため、
// ボディは常に空でよい。
func (c *Client) Post(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, strings.NewReader(""))
	if err != nil {
		return nil, fmt.Errorf("HTTPリクエストの作成に失敗: %w", err)
	}
	req.Header.Set("Content-Length", "0")
	return c.httpClient.Do(req)
}

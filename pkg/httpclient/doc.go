// Package httpclient はゲートウェイから外部への HTTP 通信を行うクライアントを提供する。
//
// 鍵配布エンドポイントの取得、トークン検証エンドポイントへの問い合わせ、
// バックエンドへのリクエスト転送が同一のクライアントを共有することで、
// タイムアウトとコネクションプーリングの挙動を統一する。
package httpclient

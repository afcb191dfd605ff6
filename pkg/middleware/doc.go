// Package middleware はゲートウェイのHTTPパイプラインで使用する共通ミドルウェアを提供する。
//
// パニックリカバリ、リクエストID付与、リクエストログ、
// 本番モードでのHTTPSリダイレクトを含む。認証・認可の判定は
// internal/gateway 側にあり、ここには置かない。
package middleware

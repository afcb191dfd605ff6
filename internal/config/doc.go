// Package config は環境変数から読み込むゲートウェイの設定を提供する。
//
// 開発/本番モードの切り替え、署名鍵・セッション秘密鍵、
// ディレクトリDBの接続情報、リッスンポート等を一箇所に集約する。
// 本番モードで必須の秘密情報が欠けている場合は起動時にエラーとする。
package config

// Package gateway は認証付きリバースプロキシゲートウェイの内部実装を提供する。
//
// 全ての受信リクエストはここを通過する。公開ルート以外では
// セッションからの本人確認とディレクトリに基づく権限判定を行い、
// 許可されたリクエストだけを署名付きIDアサーションとともに
// バックエンドへ転送する。外部からアクセス可能な唯一の構成要素であり、
// システムの信頼境界として機能する。
package gateway

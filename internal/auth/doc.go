// Package auth はゲートウェイの認証・認可機能を提供する。
//
// IDトークンの検証（公開鍵キャッシュを用いた署名検証と、レガシーな
// トークン検証エンドポイントへの委譲の2経路）、セッションからの
// ユーザー識別子の取り出し、HTTPメソッドに基づく権限判定、および
// バックエンドに対するIDアサーション（HMAC署名ヘッダー）の生成を含む。
// ゲートウェイの信頼境界を構成するパッケージであり、ここでの判定は
// 常にデフォルト拒否とする。
package auth

// Package directory はユーザーディレクトリと記録レコードへの読み取りアクセスを提供する。
//
// ゲートウェイはディレクトリの所有者ではなく、認可判定のための
// ユーザーレコード参照と、検索・レコードAPIのための読み取りのみを行う。
// 本番ではPostgreSQL、開発・テストではSQLiteに接続する。
// レコード種別ごとの差異は1つのディスクリプタ登録表で表現し、
// 型ごとのボイラープレートを持たない。
package directory

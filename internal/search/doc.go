// Package search は記録レコード横断の自由文・正規表現検索を提供する。
//
// 検索語は `/re/` 形式の正規表現（`/re/i` で大文字小文字無視）、
// またはグロブ風のプレーン語（`*` がワイルドカード）として解釈される。
// 照合はディレクトリから取得したレコードの識別・説明・配列フィールドに
// 対してプロセス内で行い、結果は種別名とIDの組として返す。
package search

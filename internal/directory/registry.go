package directory

import "strings"

// Descriptor は記録レコード1種別分のメタデータ。
// 型ごとのインターフェース実装を置き換える登録表の1エントリで、
// 表名と検索対象の列名だけでレコード種別の差異を表現する。
type Descriptor struct {
	// Kind はレコード種別名。検索結果でクライアントに返る表記。
	Kind string
	// Table はディレクトリDB上の表名。
	Table string
	// Aliases は名前解決に使う別名（単数形・複数形・旧表記）。
	Aliases []string
	// ShortDescCol は短い識別用フィールドの列名。
	ShortDescCol string
	// DescCol は説明フィールドの列名。
	DescCol string
	// SeqCol は配列フィールドの列名。配列を持たない種別は空。
	SeqCol string
	// OwnerCol は所有者フィールドの列名。
	OwnerCol string
}

// HasSequence は種別が配列フィールドを持つかを返す。
func (d Descriptor) HasSequence() bool {
	return d.SeqCol != ""
}

// sequenceSelect は配列列のSELECT句の断片を返す。
// 配列を持たない種別では空文字列リテラルを選択する。
func (d Descriptor) sequenceSelect() string {
	if !d.HasSequence() {
		return "''"
	}
	return "COALESCE(" + d.SeqCol + ", '')"
}

// registry は全レコード種別のディスクリプタ。
// 列名はディレクトリDBの実スキーマに一致させること。
var registry = []Descriptor{
	{Kind: "Plasmid", Table: "plasmids", Aliases: []string{"plasmid", "plasmids"},
		ShortDescCol: "alias", DescCol: "description", SeqCol: "sequence", OwnerCol: "creator"},
	{Kind: "Oligo", Table: "oligos", Aliases: []string{"oligo", "oligos"},
		ShortDescCol: "oligoalias", DescCol: "purpose", SeqCol: "sequence", OwnerCol: "entered_by"},
	{Kind: "Line", Table: "lines", Aliases: []string{"line", "lines"},
		ShortDescCol: "line_alias", DescCol: "description", SeqCol: "sequence", OwnerCol: "entered_by"},
	{Kind: "Sample", Table: "samples", Aliases: []string{"sample", "samples"},
		ShortDescCol: "sample_alias", DescCol: "description", OwnerCol: "entered_by"},
	{Kind: "Bacterium", Table: "bacteria", Aliases: []string{"bacterium", "bacteria"},
		ShortDescCol: "strainalias", DescCol: "comments", SeqCol: "sequence", OwnerCol: "entered_by"},
	{Kind: "Yeaststrain", Table: "yeaststrains", Aliases: []string{"yeaststrain", "yeaststrains"},
		ShortDescCol: "strainalias", DescCol: "comments", SeqCol: "sequence", OwnerCol: "entered_by"},
	{Kind: "User", Table: "users", Aliases: []string{"user", "users"},
		ShortDescCol: "email", DescCol: "notes", OwnerCol: "name"},
	{Kind: "Antibody", Table: "antibodies", Aliases: []string{"antibody", "antibodies"},
		ShortDescCol: "alias", DescCol: "comments", OwnerCol: "entered_by"},
	{Kind: "RNAiClone", Table: "rnai_clones", Aliases: []string{"rnaiclone", "rnaiclones", "rnai_clone", "rnai_clones"},
		ShortDescCol: "alias", DescCol: "description", OwnerCol: "entered_by"},
	{Kind: "SeqLib", Table: "seq_libs", Aliases: []string{"seqlib", "seqlibs", "seq_lib", "seq_libs"},
		ShortDescCol: "alias", DescCol: "description", SeqCol: "index_seq", OwnerCol: "entered_by"},
}

// Lookup はレコード種別名からディスクリプタを解決する。
// 名前は大文字小文字を区別せず、別名（複数形等）も受け付ける。
func Lookup(name string) (Descriptor, bool) {
	normalized := strings.ToLower(name)
	for _, desc := range registry {
		for _, alias := range desc.Aliases {
			if alias == normalized {
				return desc, true
			}
		}
	}
	return Descriptor{}, false
}

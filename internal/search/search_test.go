package search

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	_ "modernc.org/sqlite"

	"labdb.org/labgate/internal/config"
	"labdb.org/labgate/internal/directory"
)

// newTestDirectory はテスト用のSQLiteディレクトリを生成し、
// レコードを直接登録するための接続も合わせて返す。
func newTestDirectory(t *testing.T) (*directory.Directory, *sql.DB) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "directory.db")
	dir, err := directory.Open(&config.Config{Dev: true, DBPath: path})
	if err != nil {
		t.Fatalf("テスト用ディレクトリのオープンに失敗: %v", err)
	}
	t.Cleanup(func() {
		if err := dir.Close(); err != nil {
			t.Errorf("テスト用ディレクトリのクローズに失敗: %v", err)
		}
	})

	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("シード用接続のオープンに失敗: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return dir, db
}

// seedPlasmid はテスト用のプラスミドレコードを登録する。
func seedPlasmid(t *testing.T, db *sql.DB, id int, alias, description, sequence, creator string) {
	t.Helper()

	_, err := db.Exec(
		"INSERT INTO plasmids (id, alias, description, sequence, creator) VALUES (?, ?, ?, ?, ?)",
		id, alias, description, sequence, creator,
	)
	if err != nil {
		t.Fatalf("プラスミドレコードの登録に失敗: %v", err)
	}
}

// seedAntibody はテスト用の抗体レコードを登録する。
func seedAntibody(t *testing.T, db *sql.DB, id int, alias, comments, enteredBy string) {
	t.Helper()

	_, err := db.Exec(
		"INSERT INTO antibodies (id, alias, comments, entered_by) VALUES (?, ?, ?, ?)",
		id, alias, comments, enteredBy,
	)
	if err != nil {
		t.Fatalf("抗体レコードの登録に失敗: %v", err)
	}
}

// ids は結果からID列だけを取り出す。
func ids(results []Result) []int {
	out := make([]int, 0, len(results))
	for _, r := range results {
		out = append(out, r.ID)
	}
	return out
}

// TestSearch は検索アグリゲータの照合動作を検証する。
func TestSearch(t *testing.T) {
	t.Parallel()

	t.Run("完全一致のグロブで該当レコードのみが返ること", func(t *testing.T) {
		t.Parallel()

		dir, db := newTestDirectory(t)
		seedPlasmid(t, db, 1, "pGFP-N1", "GFP fusion vector", "ATGC", "alice")
		seedPlasmid(t, db, 2, "pRFP-C1", "RFP fusion vector", "GGCC", "bob")

		got, err := Search(context.Background(), dir, "pGFP-N1", false, "", []string{"plasmid"})
		if err != nil {
			t.Fatalf("Search() error = %v", err)
		}
		if len(got) != 1 || got[0].Kind != "Plasmid" || got[0].ID != 1 {
			t.Errorf("results = %+v, want [{Plasmid 1}]", got)
		}
	})

	t.Run("ワイルドカードが任意の部分文字列に一致すること", func(t *testing.T) {
		t.Parallel()

		dir, db := newTestDirectory(t)
		seedPlasmid(t, db, 1, "pGFP-N1", "", "", "alice")
		seedPlasmid(t, db, 2, "pRFP-C1", "", "", "bob")
		seedPlasmid(t, db, 3, "other", "", "", "carol")

		got, err := Search(context.Background(), dir, "p*FP*", false, "", []string{"plasmid"})
		if err != nil {
			t.Fatalf("Search() error = %v", err)
		}
		want := []int{2, 1}
		if g := ids(got); len(g) != 2 || g[0] != want[0] || g[1] != want[1] {
			t.Errorf("ids = %v, want %v", g, want)
		}
	})

	t.Run("説明フィールドにも照合されること", func(t *testing.T) {
		t.Parallel()

		dir, db := newTestDirectory(t)
		seedPlasmid(t, db, 1, "pX", "GFP fusion vector", "", "alice")

		got, err := Search(context.Background(), dir, "*fusion*", false, "", []string{"plasmid"})
		if err != nil {
			t.Fatalf("Search() error = %v", err)
		}
		if len(got) != 1 || got[0].ID != 1 {
			t.Errorf("results = %+v, want [{Plasmid 1}]", got)
		}
	})

	t.Run("正規表現リテラルが部分一致で照合されること", func(t *testing.T) {
		t.Parallel()

		dir, db := newTestDirectory(t)
		seedPlasmid(t, db, 1, "pGFP-N1", "", "", "alice")
		seedPlasmid(t, db, 2, "other", "", "", "bob")

		got, err := Search(context.Background(), dir, "/GFP-N[0-9]/", false, "", []string{"plasmid"})
		if err != nil {
			t.Fatalf("Search() error = %v", err)
		}
		if len(got) != 1 || got[0].ID != 1 {
			t.Errorf("results = %+v, want [{Plasmid 1}]", got)
		}
	})

	t.Run("iフラグ付き正規表現が大文字小文字を無視すること", func(t *testing.T) {
		t.Parallel()

		dir, db := newTestDirectory(t)
		seedPlasmid(t, db, 1, "pGFP-N1", "", "", "alice")

		got, err := Search(context.Background(), dir, "/gfp/i", false, "", []string{"plasmid"})
		if err != nil {
			t.Fatalf("Search() error = %v", err)
		}
		if len(got) != 1 || got[0].ID != 1 {
			t.Errorf("results = %+v, want [{Plasmid 1}]", got)
		}
	})

	t.Run("配列フィールドは指定時のみ照合対象になること", func(t *testing.T) {
		t.Parallel()

		dir, db := newTestDirectory(t)
		seedPlasmid(t, db, 1, "pX", "vector", "ATGCATGC", "alice")

		got, err := Search(context.Background(), dir, "/ATGCAT/", false, "", []string{"plasmid"})
		if err != nil {
			t.Fatalf("Search() error = %v", err)
		}
		if len(got) != 0 {
			t.Errorf("配列照合なしで一致した: %+v", got)
		}

		got, err = Search(context.Background(), dir, "/ATGCAT/", true, "", []string{"plasmid"})
		if err != nil {
			t.Fatalf("Search() error = %v", err)
		}
		if len(got) != 1 || got[0].ID != 1 {
			t.Errorf("results = %+v, want [{Plasmid 1}]", got)
		}
	})

	t.Run("複数種別を横断して検索できること", func(t *testing.T) {
		t.Parallel()

		dir, db := newTestDirectory(t)
		seedPlasmid(t, db, 1, "anti-GFP insert", "", "", "alice")
		seedAntibody(t, db, 2, "anti-GFP", "mouse monoclonal", "bob")

		got, err := Search(context.Background(), dir, "*anti-GFP*", false, "", []string{"plasmid", "antibody"})
		if err != nil {
			t.Fatalf("Search() error = %v", err)
		}
		if len(got) != 2 {
			t.Fatalf("len = %d, want 2: %+v", len(got), got)
		}
		if got[0].Kind != "Plasmid" || got[1].Kind != "Antibody" {
			t.Errorf("kinds = %q, %q, want Plasmid, Antibody", got[0].Kind, got[1].Kind)
		}
	})

	t.Run("person指定時は所有者一致のみで検索語は照合しないこと", func(t *testing.T) {
		t.Parallel()

		dir, db := newTestDirectory(t)
		seedPlasmid(t, db, 1, "pA", "", "", "alice")
		seedPlasmid(t, db, 2, "pB", "", "", "bob")
		seedPlasmid(t, db, 3, "pC", "", "", "alice")

		got, err := Search(context.Background(), dir, "pB", false, "alice", []string{"plasmid"})
		if err != nil {
			t.Fatalf("Search() error = %v", err)
		}
		want := []int{3, 1}
		if g := ids(got); len(g) != 2 || g[0] != want[0] || g[1] != want[1] {
			t.Errorf("ids = %v, want %v", g, want)
		}
	})

	t.Run("未知の種別名はErrMalformedQueryになること", func(t *testing.T) {
		t.Parallel()

		dir, _ := newTestDirectory(t)

		if _, err := Search(context.Background(), dir, "term", false, "", []string{"starship"}); !errors.Is(err, ErrMalformedQuery) {
			t.Errorf("Search() error = %v, want ErrMalformedQuery", err)
		}
	})
}

// TestCompileTerm は検索語の解釈を検証する。
func TestCompileTerm(t *testing.T) {
	t.Parallel()

	t.Run("解釈できる検索語", func(t *testing.T) {
		t.Parallel()

		tests := []struct {
			name    string
			term    string
			match   string
			noMatch string
		}{
			{"素の語は完全一致", "pGFP", "pGFP", "xpGFPx"},
			{"アスタリスクは任意文字列", "p*FP", "pGFP", "qGFP"},
			{"正規表現リテラルは部分一致", "/GF./", "xGFPx", "xGQPx"},
			{"iフラグで大文字小文字を無視", "/gfp/i", "pGFP", "pRFP"},
		}

		for _, tt := range tests {
			tt := tt
			t.Run(tt.name, func(t *testing.T) {
				t.Parallel()
				re, err := compileTerm(tt.term)
				if err != nil {
					t.Fatalf("compileTerm(%q) error = %v", tt.term, err)
				}
				if !re.MatchString(tt.match) {
					t.Errorf("%q が %q に一致しない", tt.term, tt.match)
				}
				if re.MatchString(tt.noMatch) {
					t.Errorf("%q が %q に一致してしまう", tt.term, tt.noMatch)
				}
			})
		}
	})

	t.Run("解釈できない検索語", func(t *testing.T) {
		t.Parallel()

		tests := []struct {
			name string
			term string
		}{
			{"空の検索語", ""},
			{"閉じていない正規表現", "/unclosed"},
			{"スラッシュのみ", "/"},
			{"コンパイルできない正規表現", "/[unclosed/"},
		}

		for _, tt := range tests {
			tt := tt
			t.Run(tt.name, func(t *testing.T) {
				t.Parallel()
				if _, err := compileTerm(tt.term); !errors.Is(err, ErrMalformedQuery) {
					t.Errorf("compileTerm(%q) error = %v, want ErrMalformedQuery", tt.term, err)
				}
			})
		}
	})
}

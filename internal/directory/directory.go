package directory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	_ "github.com/lib/pq"   // 本番ディレクトリDB用のPostgreSQLドライバ
	_ "modernc.org/sqlite"  // 開発・テスト用のSQLiteドライバ

	"labdb.org/labgate/internal/config"
)

// maxOpenConns はディレクトリDBへの同時接続数の上限。
const maxOpenConns = 50

// cloudSQLHost は本番DBのCloud SQLソケットパス。
const cloudSQLHost = "/cloudsql/labdb-io:northamerica-northeast1:labdb"

// Directory はディレクトリDBへの読み取り専用アクセスを提供する。
type Directory struct {
	// db はデータベース接続プール。
	db *sql.DB
	// driver は接続中のドライバ名。プレースホルダの書き換えに使う。
	driver string
}

// Open は設定に応じたディレクトリDB接続を開く。
// 本番モードではPostgreSQLに接続し、スキーマはバックエンド側の所有とする。
// 開発モードではSQLiteファイルに接続し、マイグレーションを適用する。
func Open(cfg *config.Config) (*Directory, error) {
	if cfg.Prod() {
		dsn := fmt.Sprintf(
			"host=%s dbname=%s user=postgres password=%s sslmode=disable",
			cloudSQLHost, cfg.PGDatabase, cfg.DBPassword,
		)
		db, err := sql.Open("postgres", dsn)
		if err != nil {
			return nil, fmt.Errorf("ディレクトリDBへの接続に失敗: %w", err)
		}
		db.SetMaxOpenConns(maxOpenConns)
		return &Directory{db: db, driver: "postgres"}, nil
	}

	db, err := sql.Open("sqlite", "file:"+url.PathEscape(cfg.DBPath)+"?_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("ディレクトリDBへの接続に失敗: %w", err)
	}
	db.SetMaxOpenConns(maxOpenConns)
	if err := initSchema(db); err != nil {
		db.Close()
		return nil, err
	}
	return &Directory{db: db, driver: "sqlite"}, nil
}

// New は既存のデータベース接続からDirectoryを生成する。テスト用。
func New(db *sql.DB, driver string) *Directory {
	return &Directory{db: db, driver: driver}
}

// Close はデータベース接続を閉じる。
func (d *Directory) Close() error {
	return d.db.Close()
}

// rebind はプレースホルダ `?` をドライバに応じた形式に書き換える。
// PostgreSQLは `$n` 形式のみを受け付けるため。
func (d *Directory) rebind(query string) string {
	if d.driver != "postgres" {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// User はディレクトリ上のユーザーレコード。
// 権限フラグはNULL許容で、NULLは常に拒否として解釈される。
type User struct {
	ID        int
	Email     sql.NullString
	Name      sql.NullString
	AuthRead  sql.NullBool
	AuthWrite sql.NullBool
	AuthAdmin sql.NullBool
	Notes     sql.NullString
}

// UserByEmail はメールアドレスでユーザーレコードを検索する。
// レコードが存在しない場合はエラーではなく nil を返す。
func (d *Directory) UserByEmail(ctx context.Context, email string) (*User, error) {
	query := d.rebind(`
		SELECT id, email, name, auth_read, auth_write, auth_admin, notes
		FROM users WHERE email = ?
	`)
	u := &User{}
	err := d.db.QueryRowContext(ctx, query, email).Scan(
		&u.ID, &u.Email, &u.Name, &u.AuthRead, &u.AuthWrite, &u.AuthAdmin, &u.Notes,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("ユーザーレコードの取得に失敗: %w", err)
	}
	return u, nil
}

// Resource は記録レコードの簡易表現。
// 各レコード種別の列差異はディスクリプタで吸収済み。
type Resource struct {
	// Kind はレコード種別名（例: "Plasmid"）。
	Kind string `json:"type"`
	// ID はレコードの識別子。
	ID int `json:"id"`
	// Name は短い識別用フィールド（エイリアス等）。
	Name string `json:"name"`
	// Description は説明フィールド。
	Description string `json:"description"`
	// Sequence は配列フィールド。種別が配列を持たない場合は空。
	Sequence string `json:"sequence,omitempty"`
	// Owner は所有者フィールドの値。
	Owner string `json:"owner,omitempty"`
}

// ResourceByID はディスクリプタの指す表から1レコードを取得する。
// レコードが存在しない場合は nil を返す。
func (d *Directory) ResourceByID(ctx context.Context, desc Descriptor, id int) (*Resource, error) {
	query := d.rebind(fmt.Sprintf(
		"SELECT id, COALESCE(%s, ''), COALESCE(%s, ''), %s, COALESCE(%s, '') FROM %s WHERE id = ?",
		desc.ShortDescCol, desc.DescCol, desc.sequenceSelect(), desc.OwnerCol, desc.Table,
	))
	r := &Resource{Kind: desc.Kind}
	err := d.db.QueryRowContext(ctx, query, id).Scan(&r.ID, &r.Name, &r.Description, &r.Sequence, &r.Owner)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%s レコードの取得に失敗: %w", desc.Kind, err)
	}
	return r, nil
}

// ResourcesByOwner はディスクリプタの指す表から所有者フィールドが
// 一致するレコードをID降順で取得する。
func (d *Directory) ResourcesByOwner(ctx context.Context, desc Descriptor, owner string) ([]Resource, error) {
	query := d.rebind(fmt.Sprintf(
		"SELECT id, COALESCE(%s, ''), COALESCE(%s, ''), %s, COALESCE(%s, '') FROM %s WHERE %s = ? ORDER BY id DESC",
		desc.ShortDescCol, desc.DescCol, desc.sequenceSelect(), desc.OwnerCol, desc.Table, desc.OwnerCol,
	))
	rows, err := d.db.QueryContext(ctx, query, owner)
	if err != nil {
		return nil, fmt.Errorf("%s レコードの検索に失敗: %w", desc.Kind, err)
	}
	return collectResources(desc, rows)
}

// AllResources はディスクリプタの指す表の全レコードをID降順で取得する。
// 検索アグリゲータが正規表現照合のために全走査する際に使う。
func (d *Directory) AllResources(ctx context.Context, desc Descriptor) ([]Resource, error) {
	query := fmt.Sprintf(
		"SELECT id, COALESCE(%s, ''), COALESCE(%s, ''), %s, COALESCE(%s, '') FROM %s ORDER BY id DESC",
		desc.ShortDescCol, desc.DescCol, desc.sequenceSelect(), desc.OwnerCol, desc.Table,
	)
	rows, err := d.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%s レコードの走査に失敗: %w", desc.Kind, err)
	}
	return collectResources(desc, rows)
}

// collectResources は検索結果の行をResourceのスライスに読み込む。
func collectResources(desc Descriptor, rows *sql.Rows) ([]Resource, error) {
	defer rows.Close()
	var results []Resource
	for rows.Next() {
		r := Resource{Kind: desc.Kind}
		if err := rows.Scan(&r.ID, &r.Name, &r.Description, &r.Sequence, &r.Owner); err != nil {
			return nil, fmt.Errorf("%s レコードの読み取りに失敗: %w", desc.Kind, err)
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s レコードの走査に失敗: %w", desc.Kind, err)
	}
	return results, nil
}

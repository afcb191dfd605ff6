package directory

import (
	"database/sql"
	"embed"

	"labdb.org/labgate/pkg/migration"
)

//go:embed migrations
var migrationsFS embed.FS

// initSchema はマイグレーションを実行して開発用SQLiteのスキーマを適用する。
// 本番のPostgreSQLスキーマはバックエンド側の所有であり、ここでは触れない。
func initSchema(db *sql.DB) error {
	return migration.Run(db, migrationsFS, "migrations")
}

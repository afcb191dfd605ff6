package config

import (
	"fmt"
	"os"
)

// 開発モードでのみ使用するデフォルト値。本番では環境変数の指定を必須とする。
const (
	devSigningKey  = "development-key"
	devSecretToken = "development-token"
	defaultPort    = "3000"
	defaultDBPath  = "labgate.db"
)

// Config はゲートウェイプロセス全体の設定。
// Load で一度だけ生成し、以降は読み取り専用として扱う。
type Config struct {
	// Dev は開発モードかどうか。環境変数 DEV=1 で有効になる。
	Dev bool
	// Port はHTTPサーバーのリッスンポート。
	Port string
	// SigningKey はバックエンドへのIDアサーション署名に使うHMAC秘密鍵。
	SigningKey string
	// SecretToken はセッションCookieの署名用秘密鍵。
	SecretToken string
	// PGDatabase は本番ディレクトリDB（PostgreSQL）のデータベース名。
	PGDatabase string
	// DBPassword は本番ディレクトリDBのパスワード。
	DBPassword string
	// DBPath は開発モードで使用するSQLiteファイルのパス。
	DBPath string
	// ProxyTarget は開発モード専用のバックエンド転送先上書き。
	ProxyTarget string
}

// Load は環境変数から設定を読み込む。
// 本番モードで署名鍵・セッション秘密鍵・DB接続情報が欠けている場合はエラーを返す。
func Load() (*Config, error) {
	cfg := &Config{
		Dev:         os.Getenv("DEV") == "1",
		Port:        getEnvOr("PORT", defaultPort),
		SigningKey:  os.Getenv("SIGNING_KEY"),
		SecretToken: os.Getenv("SECRET_TOKEN"),
		PGDatabase:  os.Getenv("PG_DB"),
		DBPassword:  os.Getenv("DB_PASSWORD"),
		DBPath:      getEnvOr("DB_PATH", defaultDBPath),
	}

	if cfg.Dev {
		if cfg.SigningKey == "" {
			cfg.SigningKey = devSigningKey
		}
		if cfg.SecretToken == "" {
			cfg.SecretToken = devSecretToken
		}
		// バックエンド上書きは開発モードでのみ許可する
		cfg.ProxyTarget = os.Getenv("PROXY_TARGET")
		return cfg, nil
	}

	if cfg.SigningKey == "" {
		return nil, fmt.Errorf("本番モードでは SIGNING_KEY の指定が必須")
	}
	if cfg.SecretToken == "" {
		return nil, fmt.Errorf("本番モードでは SECRET_TOKEN の指定が必須")
	}
	if cfg.PGDatabase == "" {
		return nil, fmt.Errorf("本番モードでは PG_DB の指定が必須")
	}
	if cfg.DBPassword == "" {
		return nil, fmt.Errorf("本番モードでは DB_PASSWORD の指定が必須")
	}
	return cfg, nil
}

// Prod は本番モードかどうかを返す。
func (c *Config) Prod() bool {
	return !c.Dev
}

// getEnvOr は環境変数を取得し、設定されていない場合はデフォルト値を返す。
func getEnvOr(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

// 認証付きリバースプロキシゲートウェイのエントリポイント。
// セッションの終端、IDトークンの検証、ディレクトリに基づく権限判定を行い、
// 許可されたリクエストだけを署名付きIDアサーションとともに
// 内部バックエンドへ転送する。外部からアクセス可能な唯一のプロセスであり、
// システムの信頼境界となる。
package main

import (
	"log"

	"labdb.org/labgate/internal/config"
	"labdb.org/labgate/internal/gateway"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("設定の読み込みに失敗: %v", err)
	}

	server, err := gateway.NewServer(cfg)
	if err != nil {
		log.Fatalf("ゲートウェイの初期化に失敗: %v", err)
	}
	defer server.Shutdown()

	log.Printf("ゲートウェイを起動します: :%s", cfg.Port)
	if err := server.Run(); err != nil {
		log.Fatalf("ゲートウェイの起動に失敗: %v", err)
	}
}

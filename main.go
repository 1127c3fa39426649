package main

import (
	"context"
	"fmt"
	"os"

	"github.com/gin-gonic/gin"

	"corsserve/internal/config"
	"corsserve/internal/logging"
	"corsserve/internal/server"
)

func main() {
	// 設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "設定の読み込みに失敗しました: %v\n", err)
		os.Exit(1)
	}

	// ロガーを作成
	log, err := logging.New(cfg.Log, os.Stderr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ロガーの作成に失敗しました: %v\n", err)
		os.Exit(1)
	}

	// 標準出力には起動メッセージだけを出す
	gin.SetMode(gin.ReleaseMode)

	// サーバーを作成
	srv := server.New(cfg, log)

	if err := srv.Listen(); err != nil {
		log.WithError(err).Fatal("ポートのバインドに失敗しました")
	}
	if err := srv.Announce(os.Stdout); err != nil {
		log.WithError(err).Warn("起動メッセージの出力に失敗しました")
	}

	// サーバーを起動
	if err := srv.Serve(context.Background()); err != nil {
		log.WithError(err).Fatal("サーバーの実行に失敗しました")
	}
}

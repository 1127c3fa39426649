// Package main はcorsserveサーバーコマンドの実装です
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/gin-gonic/gin"

	"corsserve/internal/config"
	"corsserve/internal/logging"
	"corsserve/internal/server"
)

func main() {
	// コマンドラインオプション
	var (
		host       = flag.String("host", "", "サーバーのホスト (デフォルト: 全インターフェース)")
		port       = flag.Int("port", -1, "サーバーのポート (デフォルト: 8000)")
		root       = flag.String("root", "", "ドキュメントルート (デフォルト: カレントディレクトリ)")
		index      = flag.String("index", "", "/ に対して返すデフォルトドキュメント (デフォルト: /src/index.html)")
		configFile = flag.String("config", "", "設定ファイル (.yaml, .yml, .toml)")
		help       = flag.Bool("help", false, "ヘルプを表示")
	)

	flag.Parse()

	// ヘルプ表示
	if *help {
		fmt.Println("corsserve")
		fmt.Println()
		fmt.Println("使用方法:")
		fmt.Println("  server [オプション]")
		fmt.Println()
		fmt.Println("オプション:")
		flag.PrintDefaults()
		os.Exit(0)
	}

	if *configFile != "" {
		if err := os.Setenv("CONFIG_FILE", *configFile); err != nil {
			fmt.Fprintf(os.Stderr, "CONFIG_FILEの設定に失敗しました: %v\n", err)
			os.Exit(1)
		}
	}

	// 設定を読み込む（検証はオプション適用後に1回だけ行う）
	cfg, err := config.Read()
	if err != nil {
		fmt.Fprintf(os.Stderr, "設定の読み込みに失敗しました: %v\n", err)
		os.Exit(1)
	}

	// コマンドラインオプションで設定を上書き
	if *host != "" {
		cfg.Server.Host = *host
	}
	if *port >= 0 {
		cfg.Server.Port = *port
	}
	if *root != "" {
		cfg.Server.Root = *root
	}
	if *index != "" {
		cfg.Server.DefaultDocument = *index
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "設定が不正です: %v\n", err)
		os.Exit(1)
	}

	log, err := logging.New(cfg.Log, os.Stderr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ロガーの作成に失敗しました: %v\n", err)
		os.Exit(1)
	}

	gin.SetMode(gin.ReleaseMode)
	srv := server.New(cfg, log)

	// サーバーを起動
	if err := srv.Listen(); err != nil {
		log.WithError(err).Fatal("ポートのバインドに失敗しました")
	}
	if err := srv.Announce(os.Stdout); err != nil {
		log.WithError(err).Warn("起動メッセージの出力に失敗しました")
	}

	if err := srv.Serve(context.Background()); err != nil {
		log.WithError(err).Fatal("サーバーの実行に失敗しました")
	}
}

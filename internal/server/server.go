package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"corsserve/internal/config"
)

// BindError はリスナーのバインドに失敗したことを表す
// ポート使用中や権限不足で発生し、プロセスは終了すべき
type BindError struct {
	Addr string
	Err  error
}

func (e *BindError) Error() string {
	return fmt.Sprintf("%s のバインドに失敗: %v", e.Addr, e.Err)
}

func (e *BindError) Unwrap() error {
	return e.Err
}

// Server はHTTPサーバーを管理する構造体
type Server struct {
	config     *config.Config
	log        *logrus.Logger
	engine     *gin.Engine
	httpServer *http.Server
	listener   net.Listener
}

// New は新しいServerインスタンスを作成する
func New(cfg *config.Config, log *logrus.Logger) *Server {
	engine := gin.New()
	engine.RedirectTrailingSlash = false
	engine.RedirectFixedPath = false
	engine.SetHTMLTemplate(listingTemplate)

	s := &Server{
		config: cfg,
		log:    log,
		engine: engine,
		httpServer: &http.Server{
			Handler:      engine,
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
			IdleTimeout:  cfg.Server.IdleTimeout,
			// "OPTIONS *" もginに渡して501と固定ヘッダーを返す
			DisableGeneralOptionsHandler: true,
		},
	}
	s.setupRoutes()

	return s
}

// setupRoutes はミドルウェアとルートを設定する
func (s *Server) setupRoutes() {
	static := &staticHandler{
		root:            http.Dir(s.config.Server.Root),
		defaultDocument: s.config.Server.DefaultDocument,
		log:             s.log,
	}

	// ヘッダー付与を最初に置き、エラー応答にも必ず付くようにする
	s.engine.Use(injectHeaders(), accessLog(s.log), recovery(s.log))

	s.engine.GET("/*filepath", static.handleGET)
	s.engine.HEAD("/*filepath", static.handleHEAD)

	// 他のメソッドはどのルートにも一致しない
	s.engine.NoRoute(static.handleUnsupported)
}

// Handler はサーバーのHTTPハンドラを返す
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Listen はTCPリスナーをバインドする
func (s *Server) Listen() error {
	addr := s.config.ServerAddress()
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return &BindError{Addr: addr, Err: err}
	}
	s.listener = ln
	return nil
}

// Addr はバインド済みのアドレスを返す
func (s *Server) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// URL は起動メッセージに表示するURLを返す
func (s *Server) URL() string {
	if tcp, ok := s.Addr().(*net.TCPAddr); ok {
		return fmt.Sprintf("http://localhost:%d", tcp.Port)
	}
	return s.config.DisplayURL()
}

// Announce は起動メッセージを1行出力する
func (s *Server) Announce(w io.Writer) error {
	_, err := color.New(color.FgGreen).Fprintf(w, "Serving at %s\n", s.URL())
	return err
}

// Start はリスナーをバインドしてサーバーを起動する
func (s *Server) Start(ctx context.Context) error {
	if err := s.Listen(); err != nil {
		return err
	}
	return s.Serve(ctx)
}

// Serve はバインド済みのリスナーでリクエストを処理する
// コンテキストのキャンセルかシグナルでグレースフルシャットダウンする
func (s *Server) Serve(ctx context.Context) error {
	if s.listener == nil {
		return errors.New("リスナーがバインドされていません")
	}

	// シャットダウン用のチャンネル
	serveCh := make(chan error, 1)

	// サーバーを別ゴルーチンで起動
	go func() {
		defer close(serveCh)
		s.log.WithFields(logrus.Fields{
			"addr": s.listener.Addr().String(),
			"root": s.config.Server.Root,
		}).Info("HTTPサーバーを起動しています")
		if err := s.httpServer.Serve(s.listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveCh <- fmt.Errorf("サーバーの実行に失敗: %w", err)
		}
	}()

	// シグナルハンドリング
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	// コンテキストかシグナルを待つ
	select {
	case <-ctx.Done():
		s.log.Info("コンテキストがキャンセルされました")
	case sig := <-sigCh:
		s.log.WithField("signal", sig.String()).Info("シグナルを受信しました")
	case err := <-serveCh:
		return err
	}

	// グレースフルシャットダウン
	return s.Shutdown()
}

// Shutdown はサーバーをグレースフルにシャットダウンする
// 失敗してもリスナーは必ず解放する
func (s *Server) Shutdown() error {
	s.log.Info("サーバーをシャットダウンしています...")

	timeout := s.config.Server.ShutdownTimeout
	if timeout <= 0 {
		timeout = config.DefaultShutdownTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	err := s.httpServer.Shutdown(ctx)
	if s.listener != nil {
		_ = s.listener.Close()
	}
	if err != nil {
		_ = s.httpServer.Close()
		return fmt.Errorf("サーバーのシャットダウンに失敗: %w", err)
	}

	s.log.Info("サーバーが正常にシャットダウンされました")
	return nil
}

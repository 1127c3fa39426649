package server

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/gin-gonic/gin"

	"corsserve/internal/config"
)

// TestServerStartAndShutdown はサーバーの起動とシャットダウンをテストする
func TestServerStartAndShutdown(t *testing.T) {
	srv := newTestServer(t, t.TempDir())

	if err := srv.Listen(); err != nil {
		t.Fatalf("Listen failed: %v", err)
	}

	// テスト用のコンテキスト（タイムアウト付き）
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// サーバーを別ゴルーチンで起動
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ctx)
	}()

	baseURL := "http://" + srv.Addr().String()

	// 実際のTCP接続で配信を確認する
	resp, err := http.Get(baseURL + "/")
	if err != nil {
		t.Fatalf("HTTPリクエストでエラーが発生しました: %v", err)
	}
	body := readBody(t, resp)
	if resp.StatusCode != http.StatusOK || body != indexBody {
		t.Errorf("GET /: got %d %q", resp.StatusCode, body)
	}
	assertFixedHeaders(t, resp.Header)

	// コンテキストをキャンセルしてサーバーを停止
	cancel()

	select {
	case err := <-errCh:
		if err != nil {
			t.Fatalf("サーバーの起動/停止でエラーが発生しました: %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("サーバーの停止がタイムアウトしました")
	}

	// リスナーは解放されている
	if _, err := http.Get(baseURL + "/"); err == nil {
		t.Error("シャットダウン後も接続できました")
	}
}

// TestServerKeepsServingAfterClientDisconnect は切断が他の接続に影響しないことをテストする
func TestServerKeepsServingAfterClientDisconnect(t *testing.T) {
	srv := newTestServer(t, t.TempDir())
	if err := srv.Listen(); err != nil {
		t.Fatalf("Listen failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ctx) }()

	// リクエストを送ってすぐに切断する
	conn, err := net.Dial("tcp", srv.Addr().String())
	if err != nil {
		t.Fatal(err)
	}
	fmt.Fprintf(conn, "GET /src/index.html HTTP/1.1\r\nHost: localhost\r\n\r\n")
	conn.Close()

	resp, err := http.Get("http://" + srv.Addr().String() + "/data/notes.txt")
	if err != nil {
		t.Fatalf("切断後のリクエストに失敗しました: %v", err)
	}
	if body := readBody(t, resp); body != "hello" {
		t.Errorf("body: got %q", body)
	}

	cancel()
	if err := <-errCh; err != nil {
		t.Fatalf("Serve returned error: %v", err)
	}
}

// TestListenBindError はポート使用中のバインド失敗をテストする
func TestListenBindError(t *testing.T) {
	occupied, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer occupied.Close()

	srv := newTestServer(t, t.TempDir())
	srv.config.Server.Port = occupied.Addr().(*net.TCPAddr).Port

	err = srv.Start(context.Background())
	var bindErr *BindError
	if !errors.As(err, &bindErr) {
		t.Fatalf("BindError が期待されましたが %v でした", err)
	}
	if bindErr.Addr != srv.config.ServerAddress() {
		t.Errorf("Addr: got %s, want %s", bindErr.Addr, srv.config.ServerAddress())
	}
	if bindErr.Unwrap() == nil {
		t.Error("元のエラーが保持されていません")
	}
}

// TestServeWithoutListen はリスナー無しでの Serve をテストする
func TestServeWithoutListen(t *testing.T) {
	srv := newTestServer(t, t.TempDir())
	if err := srv.Serve(context.Background()); err == nil {
		t.Error("リスナー無しの Serve でエラーが期待されました")
	}
	if srv.Addr() != nil {
		t.Error("Addr should be nil before Listen")
	}
}

// TestAnnounce は起動メッセージをテストする
func TestAnnounce(t *testing.T) {
	gin.SetMode(gin.TestMode)
	noColor := color.NoColor
	color.NoColor = true
	defer func() { color.NoColor = noColor }()

	srv := New(config.Default(), quietLogger())

	var buf bytes.Buffer
	if err := srv.Announce(&buf); err != nil {
		t.Fatal(err)
	}
	if got, want := buf.String(), "Serving at http://localhost:8000\n"; got != want {
		t.Errorf("before Listen: got %q, want %q", got, want)
	}

	bound := newTestServer(t, t.TempDir())
	if err := bound.Listen(); err != nil {
		t.Fatal(err)
	}
	defer bound.Shutdown()

	buf.Reset()
	if err := bound.Announce(&buf); err != nil {
		t.Fatal(err)
	}
	port := bound.Addr().(*net.TCPAddr).Port
	if got, want := buf.String(), fmt.Sprintf("Serving at http://localhost:%d\n", port); got != want {
		t.Errorf("after Listen: got %q, want %q", got, want)
	}
}

// failingWriter は常に書き込みに失敗する
type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("stdout closed") }

// TestAnnounceWriteError は起動メッセージの書き込みエラーが呼び出し側に返ることをテストする
func TestAnnounceWriteError(t *testing.T) {
	srv := newTestServer(t, t.TempDir())
	if err := srv.Announce(failingWriter{}); err == nil {
		t.Error("書き込み失敗時にエラーが期待されました")
	}
}

// TestGeneralOptionsRequest は "OPTIONS *" にも501と固定ヘッダーが返ることをテストする
func TestGeneralOptionsRequest(t *testing.T) {
	srv := newTestServer(t, t.TempDir())
	if err := srv.Listen(); err != nil {
		t.Fatalf("Listen failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ctx) }()

	conn, err := net.Dial("tcp", srv.Addr().String())
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()
	_ = conn.SetDeadline(time.Now().Add(3 * time.Second))

	fmt.Fprintf(conn, "OPTIONS * HTTP/1.1\r\nHost: localhost\r\nConnection: close\r\n\r\n")
	resp, err := http.ReadResponse(bufio.NewReader(conn), nil)
	if err != nil {
		t.Fatalf("レスポンスの読み込みに失敗しました: %v", err)
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusNotImplemented {
		t.Errorf("status: got %d, want 501", resp.StatusCode)
	}
	assertFixedHeaders(t, resp.Header)

	cancel()
	if err := <-errCh; err != nil {
		t.Fatalf("Serve returned error: %v", err)
	}
}

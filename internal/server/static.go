package server

import (
	"errors"
	"io"
	"io/fs"
	"mime"
	"net/http"
	"path"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// directoryIndexes はディレクトリ要求時に探すインデックスファイル
var directoryIndexes = []string{"index.html", "index.htm"}

// staticHandler はドキュメントルート配下のファイルを配信する
type staticHandler struct {
	root            http.FileSystem
	defaultDocument string
	log             *logrus.Logger
}

// handleGET はGETリクエストを処理する
// リクエストターゲットがちょうど "/" の場合のみデフォルトドキュメントに置き換える
// "/?v=1" のようにクエリが付くものは置き換えない
func (h *staticHandler) handleGET(c *gin.Context) {
	name := c.Request.URL.Path
	if c.Request.RequestURI == "/" {
		name = h.defaultDocument
	}
	h.serve(c, name)
}

// handleHEAD はHEADリクエストを処理する（"/" の置き換えは行わない）
func (h *staticHandler) handleHEAD(c *gin.Context) {
	h.serve(c, c.Request.URL.Path)
}

// handleUnsupported はGET/HEAD以外のメソッドに501を返す
func (h *staticHandler) handleUnsupported(c *gin.Context) {
	c.String(http.StatusNotImplemented, "Unsupported method (%q)\n", c.Request.Method)
}

// serve は name をルートから解決してレスポンスを書き込む
func (h *staticHandler) serve(c *gin.Context, name string) {
	f, err := h.root.Open(name)
	if err != nil {
		h.fail(c, name, err)
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		h.fail(c, name, err)
		return
	}

	if !info.IsDir() {
		// 通常ファイルに末尾スラッシュは付かない
		if strings.HasSuffix(name, "/") {
			h.fail(c, name, fs.ErrNotExist)
			return
		}
		h.serveFile(c, f, info)
		return
	}

	// ディレクトリは末尾スラッシュ付きのURLにリダイレクト
	if !strings.HasSuffix(name, "/") {
		target := name + "/"
		if q := c.Request.URL.RawQuery; q != "" {
			target += "?" + q
		}
		c.Redirect(http.StatusMovedPermanently, target)
		return
	}

	for _, index := range directoryIndexes {
		indexFile, err := h.root.Open(path.Join(name, index))
		if err != nil {
			continue
		}
		indexInfo, err := indexFile.Stat()
		if err != nil || indexInfo.IsDir() {
			indexFile.Close()
			continue
		}
		h.serveFile(c, indexFile, indexInfo)
		indexFile.Close()
		return
	}

	h.serveListing(c, name, f)
}

// serveFile はファイルの内容をそのまま返す
// Content-Type は拡張子から決め、分からなければ内容から判定する
func (h *staticHandler) serveFile(c *gin.Context, f http.File, info fs.FileInfo) {
	ctype := mime.TypeByExtension(path.Ext(info.Name()))
	if ctype == "" {
		mt, err := mimetype.DetectReader(f)
		if err != nil {
			h.fail(c, info.Name(), err)
			return
		}
		if _, err := f.Seek(0, io.SeekStart); err != nil {
			h.fail(c, info.Name(), err)
			return
		}
		ctype = mt.String()
	}
	c.Header("Content-Type", ctype)

	http.ServeContent(c.Writer, c.Request, info.Name(), info.ModTime(), f)

	// 転送中の切断はこのリクエストだけを打ち切る
	if err := c.Request.Context().Err(); err != nil {
		h.log.WithFields(logrus.Fields{
			requestIDKey: c.GetString(requestIDKey),
			"file":       info.Name(),
		}).WithError(err).Debug("クライアントが切断されました")
	}
}

// fail はエラーをステータスコードに変換して返す
func (h *staticHandler) fail(c *gin.Context, name string, err error) {
	status := statusForError(err)
	h.log.WithFields(logrus.Fields{
		requestIDKey: c.GetString(requestIDKey),
		"path":       name,
		"status":     status,
	}).WithError(err).Debug("ファイルを配信できません")

	_ = c.Error(err)
	c.String(status, "%d %s\n", status, http.StatusText(status))
}

// statusForError はファイルシステムのエラーをHTTPステータスに変換する
func statusForError(err error) int {
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return http.StatusNotFound
	case errors.Is(err, fs.ErrPermission):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

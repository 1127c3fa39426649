package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// fixedHeaders はステータスコードに関係なく全レスポンスに付与するヘッダー
var fixedHeaders = [...]struct {
	key   string
	value string
}{
	{"Access-Control-Allow-Origin", "*"},
	{"Access-Control-Allow-Methods", "GET"},
	{"Cache-Control", "no-store, no-cache, must-revalidate"},
}

// applyFixedHeaders は固定ヘッダーを設定する
func applyFixedHeaders(h http.Header) {
	for _, fh := range fixedHeaders {
		h.Set(fh.key, fh.value)
	}
}

// headerWriter はヘッダー確定の直前に固定ヘッダーを再設定するResponseWriter
// http.Error などが途中で Cache-Control を削除しても最終的なレスポンスには残る
type headerWriter struct {
	gin.ResponseWriter
}

func (w *headerWriter) WriteHeader(code int) {
	applyFixedHeaders(w.Header())
	w.ResponseWriter.WriteHeader(code)
}

func (w *headerWriter) WriteHeaderNow() {
	if !w.Written() {
		applyFixedHeaders(w.Header())
	}
	w.ResponseWriter.WriteHeaderNow()
}

func (w *headerWriter) Write(data []byte) (int, error) {
	if !w.Written() {
		applyFixedHeaders(w.Header())
	}
	return w.ResponseWriter.Write(data)
}

func (w *headerWriter) WriteString(s string) (int, error) {
	if !w.Written() {
		applyFixedHeaders(w.Header())
	}
	return w.ResponseWriter.WriteString(s)
}

func (w *headerWriter) Flush() {
	if !w.Written() {
		applyFixedHeaders(w.Header())
	}
	w.ResponseWriter.Flush()
}

// injectHeaders は固定ヘッダーを付与するミドルウェア
func injectHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer = &headerWriter{ResponseWriter: c.Writer}
		// ハンドラが何も書かなかった場合もginは元のwriterでヘッダーを確定するので先に設定しておく
		applyFixedHeaders(c.Writer.Header())
		c.Next()
	}
}

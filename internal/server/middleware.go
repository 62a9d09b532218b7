package server

import (
	"bytes"
	"compress/gzip"
	"io"
	"net/http"
	"strings"

	"taskmanager/internal/domain/errors"
	"taskmanager/internal/domain/models"
	"taskmanager/internal/service"

	"github.com/gin-gonic/gin"
)

type gzipBody struct {
	io.Reader
	closers []io.Closer
}

func (b *gzipBody) Close() error {
	var first error
	for _, c := range b.closers {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// GzipRequestDecompress распаковывает тела с Content-Encoding: gzip.
// maxBytes ограничивает размер распакованного тела, 0 - без ограничения.
func GzipRequestDecompress(maxBytes int64) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if !strings.Contains(strings.ToLower(ctx.GetHeader("Content-Encoding")), "gzip") {
			ctx.Next()
			return
		}

		gr, err := gzip.NewReader(ctx.Request.Body)
		if err != nil {
			ctx.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": errors.ErrInvalidGzipRequest.Error()})
			return
		}

		var r io.ReadCloser = gr
		if maxBytes > 0 {
			r = http.MaxBytesReader(ctx.Writer, gr, maxBytes)
		}
		ctx.Request.Body = &gzipBody{Reader: r, closers: []io.Closer{r, ctx.Request.Body}}
		ctx.Request.ContentLength = -1
		ctx.Request.Header.Del("Content-Encoding")
		ctx.Request.Header.Del("Content-Length")
		ctx.Next()
	}
}

// gzipWriter копит начало ответа и включает сжатие, только когда ответ
// достаточно велик и его тип сжимаем.
type gzipWriter struct {
	gin.ResponseWriter
	gw          *gzip.Writer
	minSize     int
	status      int
	passthrough bool
	pending     bytes.Buffer
}

var skipCompressionStatuses = map[int]bool{
	http.StatusNoContent:         true,
	http.StatusNotModified:       true,
	http.StatusPartialContent:    true,
	http.StatusMultipleChoices:   true,
	http.StatusMovedPermanently:  true,
	http.StatusFound:             true,
	http.StatusSeeOther:          true,
	http.StatusTemporaryRedirect: true,
	http.StatusPermanentRedirect: true,
}

var compressibleTypes = []string{
	"application/json",
	"application/xml",
	"application/javascript",
	"text/html",
	"text/css",
	"text/plain",
	"text/xml",
	"text/javascript",
}

func (w *gzipWriter) Write(data []byte) (int, error) {
	if w.gw != nil {
		n, err := w.gw.Write(data)
		if err != nil {
			return n, errors.ErrGzipCompressionFailed
		}
		return n, nil
	}

	if w.passthrough {
		return w.ResponseWriter.Write(data)
	}

	w.pending.Write(data)
	if w.pending.Len() < w.minSize {
		return len(data), nil
	}
	if !w.compressible() {
		w.passthrough = true
		w.flushPending()
		return len(data), nil
	}
	w.startGzip()
	if _, err := w.gw.Write(w.pending.Bytes()); err != nil {
		return 0, errors.ErrGzipCompressionFailed
	}
	w.pending.Reset()
	return len(data), nil
}

func (w *gzipWriter) WriteString(s string) (int, error) { return w.Write([]byte(s)) }

func (w *gzipWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

func (w *gzipWriter) Flush() {
	if w.gw != nil {
		_ = w.gw.Flush()
	} else {
		w.flushPending()
	}
	w.ResponseWriter.Flush()
}

func (w *gzipWriter) compressible() bool {
	h := w.Header()
	if skipCompressionStatuses[w.status] || h.Get("Content-Encoding") != "" {
		return false
	}
	// вложения отдаются как есть
	if strings.HasPrefix(strings.ToLower(h.Get("Content-Disposition")), "attachment") {
		return false
	}
	return isCompressibleContentType(h.Get("Content-Type"))
}

func (w *gzipWriter) startGzip() {
	h := w.Header()
	h.Del("Content-Length")
	h.Set("Content-Encoding", "gzip")
	addVary(h)
	w.gw = gzip.NewWriter(w.ResponseWriter)
}

func (w *gzipWriter) flushPending() {
	if w.pending.Len() == 0 {
		return
	}
	_, _ = w.ResponseWriter.Write(w.pending.Bytes())
	w.pending.Reset()
}

func (w *gzipWriter) finish() error {
	if w.gw != nil {
		if err := w.gw.Close(); err != nil {
			return errors.ErrGzipCompressionFailed
		}
		return nil
	}
	w.flushPending()
	return nil
}

func addVary(h http.Header) {
	vary := h.Get("Vary")
	switch {
	case vary == "":
		h.Set("Vary", "Accept-Encoding")
	case !strings.Contains(vary, "Accept-Encoding"):
		h.Set("Vary", vary+", Accept-Encoding")
	}
}

// GzipResponseCompress сжимает ответы не короче minSize байт для клиентов,
// принимающих gzip.
func GzipResponseCompress(minSize int) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if ctx.Request.Method == http.MethodHead ||
			!strings.Contains(strings.ToLower(ctx.GetHeader("Accept-Encoding")), "gzip") {
			ctx.Next()
			return
		}

		addVary(ctx.Writer.Header())
		gw := &gzipWriter{ResponseWriter: ctx.Writer, minSize: minSize}
		ctx.Writer = gw

		ctx.Next()

		if err := gw.finish(); err != nil {
			_ = ctx.Error(err)
		}
	}
}

func isCompressibleContentType(ct string) bool {
	lower := strings.ToLower(ct)
	for _, prefix := range compressibleTypes {
		if strings.HasPrefix(lower, prefix) {
			return true
		}
	}
	return false
}

const (
	principalKey = "principal"
	tokenCookie  = "jwt_token"
)

// AuthRequired пропускает запрос только с действительным JWT из заголовка
// Authorization или cookie jwt_token.
func AuthRequired(auth *service.AuthService) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		token := bearerToken(ctx)
		if token == "" {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "требуется авторизация"})
			return
		}
		principal, err := auth.VerifyToken(token)
		if err != nil {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			return
		}
		ctx.Set(principalKey, principal)
		ctx.Next()
	}
}

func bearerToken(ctx *gin.Context) string {
	header := ctx.GetHeader("Authorization")
	if len(header) > 7 && strings.EqualFold(header[:7], "bearer ") {
		return strings.TrimSpace(header[7:])
	}
	if cookie, err := ctx.Cookie(tokenCookie); err == nil {
		return cookie
	}
	return ""
}

func principalFrom(ctx *gin.Context) (models.Principal, bool) {
	v, ok := ctx.Get(principalKey)
	if !ok {
		return models.Principal{}, false
	}
	p, ok := v.(models.Principal)
	return p, ok
}

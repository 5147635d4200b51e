package middleware

import (
	"net/http"
	"strings"

	"github.com/andybalholm/brotli"
	"github.com/gin-gonic/gin"
)

// BrotliConfig tunes response compression.
type BrotliConfig struct {
	Quality int
	// MinLength is the body size below which responses go out uncompressed.
	MinLength int
}

// DefaultBrotliConfig suits JSON list responses.
var DefaultBrotliConfig = BrotliConfig{
	Quality:   brotli.DefaultCompression,
	MinLength: 1024,
}

// brotliWriter buffers the body until MinLength bytes arrive, then switches
// to compressing everything that follows.
type brotliWriter struct {
	gin.ResponseWriter
	bw         *brotli.Writer
	quality    int
	buf        []byte
	minLength  int
	compressed bool
}

func (w *brotliWriter) Write(data []byte) (int, error) {
	if w.compressed {
		return w.bw.Write(data)
	}

	w.buf = append(w.buf, data...)
	if len(w.buf) < w.minLength {
		return len(data), nil
	}

	h := w.ResponseWriter.Header()
	h.Set("Content-Encoding", "br")
	h.Del("Content-Length")
	w.compressed = true
	w.bw = brotli.NewWriterLevel(w.ResponseWriter, w.quality)

	if _, err := w.bw.Write(w.buf); err != nil {
		return 0, err
	}
	w.buf = nil
	return len(data), nil
}

func (w *brotliWriter) WriteString(s string) (int, error) {
	return w.Write([]byte(s))
}

// finish writes whatever is left: the closing brotli frame, or the buffered
// plain body when it never reached MinLength.
func (w *brotliWriter) finish() error {
	if w.compressed {
		return w.bw.Close()
	}
	if len(w.buf) == 0 {
		return nil
	}
	_, err := w.ResponseWriter.Write(w.buf)
	w.buf = nil
	return err
}

// Brotli compresses responses with the default config.
func Brotli() gin.HandlerFunc {
	return BrotliWithConfig(DefaultBrotliConfig)
}

// BrotliWithConfig compresses responses for clients that accept "br".
// WebSocket upgrades pass through untouched.
func BrotliWithConfig(cfg BrotliConfig) gin.HandlerFunc {
	if cfg.Quality < brotli.BestSpeed || cfg.Quality > brotli.BestCompression {
		cfg.Quality = brotli.DefaultCompression
	}
	if cfg.MinLength <= 0 {
		cfg.MinLength = DefaultBrotliConfig.MinLength
	}

	return func(c *gin.Context) {
		if strings.EqualFold(c.GetHeader("Upgrade"), "websocket") || !acceptsBrotli(c.Request) {
			c.Next()
			return
		}

		c.Header("Vary", "Accept-Encoding")

		w := &brotliWriter{
			ResponseWriter: c.Writer,
			quality:        cfg.Quality,
			minLength:      cfg.MinLength,
		}
		c.Writer = w
		defer func() {
			if err := w.finish(); err != nil {
				_ = c.Error(err)
			}
			c.Writer = w.ResponseWriter
		}()

		c.Next()
	}
}

func acceptsBrotli(r *http.Request) bool {
	for _, enc := range strings.Split(r.Header.Get("Accept-Encoding"), ",") {
		name, _, _ := strings.Cut(strings.TrimSpace(enc), ";")
		if strings.EqualFold(name, "br") {
			return true
		}
	}
	return false
}

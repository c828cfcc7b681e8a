package httpx

import (
	"compress/gzip"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
)

// CompressionConfig holds configuration for the compression middleware.
type CompressionConfig struct {
	Level   int // Compression level (1-9, where 6 is default)
	MinSize int // Minimum response size to compress (bytes, 0 = always compress)
	Logger  *slog.Logger
}

// gzipPools hands out gzip writers per compression level.
type gzipPools struct {
	mu    sync.Mutex
	pools map[int]*sync.Pool
}

func (p *gzipPools) pool(level int) *sync.Pool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if pool, ok := p.pools[level]; ok {
		return pool
	}
	pool := &sync.Pool{New: func() any {
		w, err := gzip.NewWriterLevel(io.Discard, level)
		if err != nil {
			return gzip.NewWriter(io.Discard)
		}
		return w
	}}
	p.pools[level] = pool
	return pool
}

func (p *gzipPools) get(level int, dst io.Writer) *gzip.Writer {
	w, _ := p.pool(level).Get().(*gzip.Writer)
	if w == nil {
		w = gzip.NewWriter(io.Discard)
	}
	w.Reset(dst)
	return w
}

func (p *gzipPools) put(level int, w *gzip.Writer) {
	w.Reset(io.Discard)
	p.pool(level).Put(w)
}

var compressibleTypes = map[string]bool{ //nolint:gochecknoglobals // read-only lookup table
	"application/json":  true,
	"application/yaml":  true,
	"application/xml":   true,
	"text/markdown":     true,
	"text/plain":        true,
	"text/html":         true,
	"text/css":          true,
	"text/csv":          true,
	"text/yaml":         true,
	"text/event-stream": false,
}

// Compression returns a middleware that gzips responses when the client
// accepts it, the content type is textual, and the body reaches MinSize.
// Bodies are buffered until MinSize is reached so small responses go out
// uncompressed with their original headers.
func Compression(cfg CompressionConfig) func(http.Handler) http.Handler {
	if cfg.Level == 0 {
		cfg.Level = gzip.DefaultCompression
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	pools := &gzipPools{pools: make(map[int]*sync.Pool)}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodHead || !acceptsGzip(r.Header.Get("Accept-Encoding")) {
				next.ServeHTTP(w, r)
				return
			}
			w.Header().Add("Vary", "Accept-Encoding")

			gzw := &gzipResponseWriter{ResponseWriter: w, cfg: &cfg, pools: pools, status: http.StatusOK}
			next.ServeHTTP(gzw, r)
			if err := gzw.finish(); err != nil {
				cfg.Logger.DebugContext(r.Context(), "finishing compressed response failed", "error", err)
			}
		})
	}
}

// acceptsGzip checks if the client accepts gzip encoding, respecting q=0.
func acceptsGzip(acceptEncoding string) bool {
	for _, part := range strings.Split(acceptEncoding, ",") {
		name, params, _ := strings.Cut(strings.TrimSpace(part), ";")
		name = strings.ToLower(strings.TrimSpace(name))
		if name != "gzip" {
			continue
		}
		q := strings.ReplaceAll(strings.ToLower(params), " ", "")
		return q != "q=0" && q != "q=0.0" && q != "q=0.00" && q != "q=0.000"
	}
	return false
}

func isCompressibleContentType(contentType string) bool {
	mediaType, _, _ := strings.Cut(contentType, ";")
	return compressibleTypes[strings.ToLower(strings.TrimSpace(mediaType))]
}

// gzipResponseWriter defers the compression decision until the header and
// enough of the body are known.
type gzipResponseWriter struct {
	http.ResponseWriter
	cfg   *CompressionConfig
	pools *gzipPools

	status      int
	wroteHeader bool
	decided     bool
	gz          *gzip.Writer
	buf         []byte
}

func (w *gzipResponseWriter) WriteHeader(status int) {
	if w.wroteHeader {
		return
	}
	w.wroteHeader = true
	w.status = status
	if !w.bodyAllowed() {
		w.decide(false)
	}
}

func (w *gzipResponseWriter) Write(b []byte) (int, error) {
	if !w.wroteHeader {
		w.WriteHeader(http.StatusOK)
	}
	if w.decided {
		if w.gz != nil {
			return w.gz.Write(b)
		}
		return w.ResponseWriter.Write(b)
	}

	if w.Header().Get("Content-Type") == "" {
		w.Header().Set("Content-Type", http.DetectContentType(b))
	}
	w.buf = append(w.buf, b...)
	if len(w.buf) < w.cfg.MinSize {
		return len(b), nil
	}
	if err := w.flushBuffer(w.compressible()); err != nil {
		return 0, err
	}
	return len(b), nil
}

// Flush implements http.Flusher for streaming support.
func (w *gzipResponseWriter) Flush() {
	if !w.decided {
		if !w.wroteHeader {
			w.WriteHeader(http.StatusOK)
		}
		_ = w.flushBuffer(w.compressible())
	}
	if w.gz != nil {
		_ = w.gz.Flush()
	}
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (w *gzipResponseWriter) bodyAllowed() bool {
	return w.status >= http.StatusOK && w.status != http.StatusNoContent && w.status != http.StatusNotModified
}

func (w *gzipResponseWriter) compressible() bool {
	h := w.Header()
	return w.bodyAllowed() && h.Get("Content-Encoding") == "" && isCompressibleContentType(h.Get("Content-Type"))
}

func (w *gzipResponseWriter) decide(compress bool) {
	w.decided = true
	if compress {
		w.Header().Set("Content-Encoding", "gzip")
		w.Header().Del("Content-Length")
		w.gz = w.pools.get(w.cfg.Level, w.ResponseWriter)
	}
	w.ResponseWriter.WriteHeader(w.status)
}

func (w *gzipResponseWriter) flushBuffer(compress bool) error {
	w.decide(compress)
	buf := w.buf
	w.buf = nil
	if len(buf) == 0 {
		return nil
	}
	if w.gz != nil {
		_, err := w.gz.Write(buf)
		return err
	}
	_, err := w.ResponseWriter.Write(buf)
	return err
}

// finish writes whatever is still buffered and releases the gzip writer.
func (w *gzipResponseWriter) finish() error {
	var err error
	if !w.decided && w.wroteHeader {
		// Still undecided means the body stayed under MinSize.
		err = w.flushBuffer(false)
	}
	if w.gz != nil {
		if cerr := w.gz.Close(); cerr != nil && err == nil {
			err = cerr
		}
		w.pools.put(w.cfg.Level, w.gz)
		w.gz = nil
	}
	return err
}

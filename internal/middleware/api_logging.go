package middleware

import (
	"log"
	"net/http"
	"strings"
	"time"
)

type accessEntry struct {
	method     string
	path       string
	statusCode int
	size       int
	duration   time.Duration
	clientIP   string
}

// AccessLogMiddleware writes one line per API request. Entries go
// through a buffered channel so a slow stderr never stalls a request;
// when the buffer is full the entry is dropped.
type AccessLogMiddleware struct {
	logChan chan accessEntry
}

// accessWriter captures status code and response size.
type accessWriter struct {
	http.ResponseWriter
	statusCode   int
	bytesWritten int
}

func (w *accessWriter) WriteHeader(code int) {
	w.statusCode = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *accessWriter) Write(b []byte) (int, error) {
	n, err := w.ResponseWriter.Write(b)
	w.bytesWritten += n
	return n, err
}

func NewAccessLogMiddleware() *AccessLogMiddleware {
	m := &AccessLogMiddleware{
		logChan: make(chan accessEntry, 1000),
	}
	go m.writer()
	return m
}

func (m *AccessLogMiddleware) writer() {
	for e := range m.logChan {
		log.Printf("[Access] %s %s %d %dB %s %s",
			e.method, e.path, e.statusCode, e.size, e.duration.Round(time.Millisecond), e.clientIP)
	}
}

func (m *AccessLogMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if shouldSkipLogging(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		start := time.Now()
		wrapped := &accessWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(wrapped, r)

		entry := accessEntry{
			method:     r.Method,
			path:       sanitizePath(r.URL.Path),
			statusCode: wrapped.statusCode,
			size:       wrapped.bytesWritten,
			duration:   time.Since(start),
			clientIP:   getClientIP(r),
		}
		select {
		case m.logChan <- entry:
		default:
		}
	})
}

// shouldSkipLogging excludes high-frequency probe endpoints.
func shouldSkipLogging(path string) bool {
	skipPaths := []string{
		"/health",
		"/metrics",
		"/ws/",
		"/favicon.ico",
	}
	for _, skip := range skipPaths {
		if strings.HasPrefix(path, skip) {
			return true
		}
	}
	return false
}

func sanitizePath(path string) string {
	if idx := strings.Index(path, "?"); idx != -1 {
		path = path[:idx]
	}
	if len(path) > 500 {
		path = path[:500]
	}
	return path
}

// getClientIP respects proxy headers before falling back to RemoteAddr.
func getClientIP(r *http.Request) string {
	xff := r.Header.Get("X-Forwarded-For")
	if xff != "" {
		if idx := strings.Index(xff, ","); idx != -1 {
			return strings.TrimSpace(xff[:idx])
		}
		return strings.TrimSpace(xff)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}
	ip := r.RemoteAddr
	if idx := strings.LastIndex(ip, ":"); idx != -1 {
		ip = ip[:idx]
	}
	return ip
}

// Close stops the background writer.
func (m *AccessLogMiddleware) Close() {
	close(m.logChan)
}

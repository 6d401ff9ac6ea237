package middleware

import (
	"context"
	"net/http"
	"sync"
	"time"
)

// deadlineWriter discards handler writes once the request deadline fired, so
// a slow handler cannot corrupt the timeout response.
type deadlineWriter struct {
	http.ResponseWriter

	mu     sync.Mutex
	closed bool
	wrote  bool
}

func (dw *deadlineWriter) WriteHeader(code int) {
	dw.mu.Lock()
	defer dw.mu.Unlock()
	if dw.closed || dw.wrote {
		return
	}
	dw.wrote = true
	dw.ResponseWriter.WriteHeader(code)
}

func (dw *deadlineWriter) Write(b []byte) (int, error) {
	dw.mu.Lock()
	defer dw.mu.Unlock()
	if dw.closed {
		return 0, http.ErrHandlerTimeout
	}
	dw.wrote = true
	return dw.ResponseWriter.Write(b)
}

// close marks the writer dead and reports whether the handler had already
// written anything.
func (dw *deadlineWriter) close() (wrote bool) {
	dw.mu.Lock()
	defer dw.mu.Unlock()
	dw.closed = true
	return dw.wrote
}

// RequestTimeout bounds handler execution. When the deadline fires before the
// handler writes, the client gets a 503.
func RequestTimeout(timeout time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), timeout)
			defer cancel()

			dw := &deadlineWriter{ResponseWriter: w}
			done := make(chan struct{})

			go func() {
				defer close(done)
				next.ServeHTTP(dw, r.WithContext(ctx))
			}()

			select {
			case <-done:
			case <-ctx.Done():
				if wrote := dw.close(); !wrote {
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusServiceUnavailable)
					_, _ = w.Write([]byte(`{"error":"Request timeout"}`))
				}
			}
		})
	}
}

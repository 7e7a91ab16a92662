package api

import (
	"io"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/lthibault/log"
)

const HeaderRequestID = "X-Request-Id"

func withDrainBody() mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer r.Body.Close()
			defer io.Copy(io.Discard, r.Body)

			next.ServeHTTP(w, r)
		})
	}
}

func withContentType(ct string) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", ct)
			next.ServeHTTP(w, r)
		})
	}
}

// withLogger tags the request with an id and logs it with its duration.
func withLogger(l log.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get(HeaderRequestID)
			if id == "" {
				id = uuid.NewString()
			}
			w.Header().Set(HeaderRequestID, id)

			rl := l.With(log.F{
				"requestId": id,
				"method":    r.Method,
				"path":      r.URL.EscapedPath(),
				"remote":    r.RemoteAddr,
			})

			defer func() {
				if v := recover(); v != nil {
					w.WriteHeader(http.StatusInternalServerError)

					pl := rl.WithField("trace", string(debug.Stack()))
					if err, ok := v.(error); ok {
						pl = pl.WithError(err)
					}
					pl.Error("http request panic")
				}
			}()

			t0 := time.Now()
			rw := wrapResponseWriter(w)

			next.ServeHTTP(rw, r)

			rl.With(log.F{
				"status":   rw.Status,
				"duration": time.Since(t0).Seconds(),
			}).Debug("request handled")
		})
	}
}

type responseWriter struct {
	http.ResponseWriter
	Status int
}

func wrapResponseWriter(w http.ResponseWriter) *responseWriter {
	return &responseWriter{ResponseWriter: w}
}

func (rw *responseWriter) WriteHeader(code int) {
	if rw.Status == 0 {
		rw.Status = code
		rw.ResponseWriter.WriteHeader(code)
	}
}

// Flush keeps event streams working behind the logger.
func (rw *responseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

package middleware

import (
	"log"
	"net/http"
	"time"
)

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (rw *statusRecorder) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// LoggerMiddleware writes one line per request to logger. It must run inside
// AuthMiddleware for the client id to be known.
func LoggerMiddleware(logger *log.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			rw := &statusRecorder{
				ResponseWriter: w,
				statusCode:     http.StatusOK,
			}

			var clientID string
			next.ServeHTTP(rw, r.WithContext(withClientSlot(r.Context(), &clientID)))

			if clientID == "" {
				clientID = "anonymous"
			}

			logger.Printf("%s %s %s - Status: %d - Duration: %v - Client: %s",
				r.Method,
				r.URL.Path,
				r.RemoteAddr,
				rw.statusCode,
				time.Since(start),
				clientID,
			)
		})
	}
}

package utils

import (
	"fmt"
	"net/http"
	"time"

	"ms-boxoffice/internal/logger"

	"github.com/go-chi/chi/v5/middleware"
)

// RequestLogger logs one API line per request with status and duration.
func RequestLogger(log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			log.LogAPI(r.Method, r.URL.Path, fmt.Sprint(status), time.Since(start).Round(time.Millisecond).String())
		})
	}
}

package auth

import (
	"net/http"
	"sync"

	"ms-boxoffice/internal/apperr"
	"ms-boxoffice/internal/utils"

	"golang.org/x/time/rate"
)

// ScanLimiter throttles check-in scans per staff user so a stuck scanner
// cannot flood the guest table.
type ScanLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	limit    rate.Limit
	burst    int
}

func NewScanLimiter(perSecond float64, burst int) *ScanLimiter {
	return &ScanLimiter{
		limiters: make(map[string]*rate.Limiter),
		limit:    rate.Limit(perSecond),
		burst:    burst,
	}
}

func (s *ScanLimiter) limiter(key string) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.limiters[key]
	if !ok {
		l = rate.NewLimiter(s.limit, s.burst)
		s.limiters[key] = l
	}
	return l
}

// Allow reports whether key may scan now.
func (s *ScanLimiter) Allow(key string) bool {
	return s.limiter(key).Allow()
}

// Middleware must run after the staff auth middleware; anonymous requests
// share one bucket.
func (s *ScanLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.Allow(UserID(r.Context())) {
			w.Header().Set("Retry-After", "1")
			utils.WriteErrorStatus(w, http.StatusTooManyRequests, apperr.New(apperr.Invalid, "too many scans, slow down"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

package httpapi

import (
	"math"
	"net/http"
	"sync"
	"time"
)

type requestClass string

const (
	classRead  requestClass = "read"
	classWrite requestClass = "write"
)

// rateLimiter counts requests in fixed, non-overlapping windows per
// (identity, class) pair. It is per-process by design: no coordination
// across instances, and the table resets on restart.
type rateLimiter struct {
	mu      sync.Mutex
	buckets map[string]*rateBucket

	readLimit  int
	writeLimit int
	window     time.Duration
	nowFn      func() time.Time
}

type rateBucket struct {
	count   int
	resetAt time.Time
}

func newRateLimiter(readLimit, writeLimit int, window time.Duration) *rateLimiter {
	return &rateLimiter{
		buckets:    map[string]*rateBucket{},
		readLimit:  readLimit,
		writeLimit: writeLimit,
		window:     window,
		nowFn:      time.Now,
	}
}

// check counts one request. When the window has elapsed the bucket is
// replaced, not incremented, and the call counts as the first of the new
// window. On rejection retryAfterSeconds is the remaining time to reset.
func (l *rateLimiter) check(identityKey string, class requestClass) (allowed bool, retryAfterSeconds int) {
	limit := l.readLimit
	if class == classWrite {
		limit = l.writeLimit
	}
	now := l.nowFn()
	key := identityKey + "|" + string(class)

	l.mu.Lock()
	defer l.mu.Unlock()

	b := l.buckets[key]
	if b == nil || !now.Before(b.resetAt) {
		l.buckets[key] = &rateBucket{count: 1, resetAt: now.Add(l.window)}
		return true, 0
	}
	b.count++
	if b.count > limit {
		wait := int(math.Ceil(b.resetAt.Sub(now).Seconds()))
		if wait < 1 {
			wait = 1
		}
		return false, wait
	}
	return true, 0
}

func classify(method string) requestClass {
	switch method {
	case http.MethodGet, http.MethodHead:
		return classRead
	default:
		return classWrite
	}
}

func (s server) rateLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ident, ok := identityFromCtx(r.Context())
		if !ok {
			writeUnauthorized(w, r, "missing bearer credential")
			return
		}
		allowed, retryAfter := s.limiter.check(ident.UserID.String(), classify(r.Method))
		if !allowed {
			writeRateLimited(w, r, retryAfter)
			return
		}
		next.ServeHTTP(w, r)
	})
}

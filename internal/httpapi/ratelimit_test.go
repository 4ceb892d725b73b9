package httpapi

import (
	"testing"
	"time"
)

func TestRateLimiterAllowsUpToCeiling(t *testing.T) {
	t.Parallel()

	l := newRateLimiter(5, 3, time.Minute)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	l.nowFn = func() time.Time { return now }

	for i := 0; i < 5; i++ {
		allowed, _ := l.check("user-a", classRead)
		if !allowed {
			t.Fatalf("request %d rejected, want allowed", i+1)
		}
	}

	allowed, retryAfter := l.check("user-a", classRead)
	if allowed {
		t.Fatal("request over ceiling allowed, want rejected")
	}
	if retryAfter < 1 || retryAfter > 60 {
		t.Fatalf("retryAfter = %d, want within (0, 60]", retryAfter)
	}
}

func TestRateLimiterWindowReset(t *testing.T) {
	t.Parallel()

	l := newRateLimiter(2, 2, time.Minute)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	l.nowFn = func() time.Time { return now }

	l.check("user-a", classRead)
	l.check("user-a", classRead)
	if allowed, _ := l.check("user-a", classRead); allowed {
		t.Fatal("third request in window allowed, want rejected")
	}

	// A fresh window replaces the bucket; the first call counts as 1.
	now = now.Add(time.Minute)
	if allowed, _ := l.check("user-a", classRead); !allowed {
		t.Fatal("first request of new window rejected, want allowed")
	}

	l.mu.Lock()
	b := l.buckets["user-a|read"]
	l.mu.Unlock()
	if b.count != 1 {
		t.Fatalf("new window count = %d, want 1", b.count)
	}
}

func TestRateLimiterClassesAreIndependent(t *testing.T) {
	t.Parallel()

	l := newRateLimiter(10, 1, time.Minute)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	l.nowFn = func() time.Time { return now }

	if allowed, _ := l.check("user-a", classWrite); !allowed {
		t.Fatal("first write rejected")
	}
	if allowed, _ := l.check("user-a", classWrite); allowed {
		t.Fatal("second write allowed, want rejected at write ceiling 1")
	}
	// Reads share the identity but not the counter.
	if allowed, _ := l.check("user-a", classRead); !allowed {
		t.Fatal("read rejected after write ceiling hit")
	}
}

func TestRateLimiterIdentitiesAreIndependent(t *testing.T) {
	t.Parallel()

	l := newRateLimiter(1, 1, time.Minute)
	l.check("user-a", classRead)
	if allowed, _ := l.check("user-b", classRead); !allowed {
		t.Fatal("user-b rejected after user-a hit ceiling")
	}
}

func TestRateLimitRejectionOverHTTP(t *testing.T) {
	t.Parallel()

	ks := &stubKeyStore{key: testAPIKey(scopeReadEntries)}
	deps := testDeps(ks, &stubEntryStore{}, newStubAuditSink())
	deps.ReadRequestsPerMinute = 2
	h := NewRouter(deps)

	for i := 0; i < 2; i++ {
		if w := doRequest(h, "GET", "/v1/entries", "", true); w.Code != 200 {
			t.Fatalf("request %d status = %d, want 200", i+1, w.Code)
		}
	}

	w := doRequest(h, "GET", "/v1/entries", "", true)
	if w.Code != 429 {
		t.Fatalf("status = %d, want 429", w.Code)
	}
	if w.Header().Get("Retry-After") == "" {
		t.Fatal("429 response missing Retry-After header")
	}
	p := decodeProblem(t, w)
	if p.Type != "/problems/rate-limited" {
		t.Fatalf("problem type = %q", p.Type)
	}
}

func TestClassify(t *testing.T) {
	t.Parallel()

	cases := map[string]requestClass{
		"GET":    classRead,
		"HEAD":   classRead,
		"POST":   classWrite,
		"PUT":    classWrite,
		"DELETE": classWrite,
	}
	for method, want := range cases {
		if got := classify(method); got != want {
			t.Errorf("classify(%s) = %s, want %s", method, got, want)
		}
	}
}

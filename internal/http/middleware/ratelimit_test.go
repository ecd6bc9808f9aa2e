package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

func limitedRouter(rl *RateLimiter, pre ...gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	r.Use(pre...)
	r.Use(rl.Handler())
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })
	return r
}

func TestRateLimiterBlocksAfterBurst(t *testing.T) {
	// Zero refill: only the burst is available.
	rl := NewRateLimiter(0, 2, KeyByUserOrIP())
	r := limitedRouter(rl)

	for i := 0; i < 2; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest("GET", "/", nil))
		if w.Code != http.StatusOK {
			t.Fatalf("request %d status = %d", i+1, w.Code)
		}
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/", nil))
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", w.Code)
	}
	if w.Header().Get("Retry-After") != "1" {
		t.Fatalf("missing Retry-After")
	}
	if !strings.Contains(w.Body.String(), "rate_limited") {
		t.Fatalf("body = %s", w.Body.String())
	}
}

func TestRateLimiterKeysAreIndependent(t *testing.T) {
	rl := NewRateLimiter(0, 1, KeyByUserOrIP())
	setUser := func(uid string) gin.HandlerFunc {
		return func(c *gin.Context) { c.Set("userID", uid); c.Next() }
	}

	ra := limitedRouter(rl, setUser("a"))
	rb := limitedRouter(rl, setUser("b"))

	w := httptest.NewRecorder()
	ra.ServeHTTP(w, httptest.NewRequest("GET", "/", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("user a first request: %d", w.Code)
	}
	w = httptest.NewRecorder()
	ra.ServeHTTP(w, httptest.NewRequest("GET", "/", nil))
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("user a second request: %d", w.Code)
	}

	// A different identity gets its own bucket.
	w = httptest.NewRecorder()
	rb.ServeHTTP(w, httptest.NewRequest("GET", "/", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("user b first request: %d", w.Code)
	}
}

func TestRateLimiterReplayBypass(t *testing.T) {
	rl := NewRateLimiter(0, 1, KeyByUserOrIP())
	markReplay := func(c *gin.Context) { c.Set(ctxKeyRateBypass, true); c.Next() }
	r := limitedRouter(rl, markReplay)

	// Bucket never drains because replays skip it entirely.
	for i := 0; i < 5; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest("GET", "/", nil))
		if w.Code != http.StatusOK {
			t.Fatalf("replay %d status = %d", i+1, w.Code)
		}
	}
}

func TestKeyByUserOrIP(t *testing.T) {
	fn := KeyByUserOrIP()

	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest("GET", "/", nil)
	c.Request.RemoteAddr = "192.0.2.7:1234"
	if got := fn(c); got != "ip:192.0.2.7" {
		t.Fatalf("ip key = %q", got)
	}

	c.Set("userID", "u1")
	if got := fn(c); got != "user:u1" {
		t.Fatalf("user key = %q", got)
	}
}

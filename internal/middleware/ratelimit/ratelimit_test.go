package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time { return c.t }

func TestAllowWindow(t *testing.T) {
	clock := &fakeClock{t: time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)}
	rl := newLimiter(Config{RequestsPerMinute: 3}, clock.now)

	for i := 0; i < 3; i++ {
		if !rl.Allow("1.2.3.4") {
			t.Fatalf("request %d rejected", i+1)
		}
	}
	if rl.Allow("1.2.3.4") {
		t.Fatalf("fourth request allowed")
	}
	if !rl.Allow("5.6.7.8") {
		t.Fatalf("other client rejected")
	}

	// continuous traffic does not extend the window
	clock.t = clock.t.Add(59 * time.Second)
	if rl.Allow("1.2.3.4") {
		t.Fatalf("allowed inside window")
	}
	clock.t = clock.t.Add(time.Second)
	if !rl.Allow("1.2.3.4") {
		t.Fatalf("rejected after window reset")
	}
}

func TestCleanupStaleEntries(t *testing.T) {
	clock := &fakeClock{t: time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)}
	rl := newLimiter(Config{RequestsPerMinute: 10}, clock.now)
	rl.Allow("a")
	clock.t = clock.t.Add(9 * time.Minute)
	rl.Allow("b")
	clock.t = clock.t.Add(2 * time.Minute)

	if got := rl.cleanupStaleEntries(); got != 1 {
		t.Fatalf("removed=%d want 1", got)
	}
	if rl.ActiveClients() != 1 {
		t.Fatalf("active=%d want 1", rl.ActiveClients())
	}
}

func TestMiddlewareRejects(t *testing.T) {
	gin.SetMode(gin.TestMode)
	clock := &fakeClock{t: time.Now()}
	rl := newLimiter(Config{RequestsPerMinute: 1}, clock.now)

	r := gin.New()
	r.Use(rl.Middleware(func(c *gin.Context) {
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"success": false})
	}))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	codes := []int{}
	for i := 0; i < 2; i++ {
		rr := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "9.9.9.9:1234"
		r.ServeHTTP(rr, req)
		codes = append(codes, rr.Code)
		if i == 1 && rr.Header().Get("Retry-After") != "60" {
			t.Fatalf("missing Retry-After")
		}
	}
	if codes[0] != http.StatusNoContent || codes[1] != http.StatusTooManyRequests {
		t.Fatalf("codes=%v", codes)
	}
}

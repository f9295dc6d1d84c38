package rate

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestWrapHTTPEnforcesBucket(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		_, _ = io.WriteString(w, "ok")
	}))
	defer server.Close()

	decl := Provider("test").MaxRequestsPer(Minute, 2)
	client := WrapHTTP(decl, server.Client())

	for i := 0; i < 2; i++ {
		resp, err := client.Get(server.URL)
		if err != nil {
			t.Fatalf("request %d: %v", i, err)
		}
		resp.Body.Close()
	}

	_, err := client.Get(server.URL)
	if err == nil {
		t.Fatalf("expected third request to be blocked")
	}
	var limitErr LimitError
	if !errors.As(err, &limitErr) {
		t.Fatalf("err = %v, want LimitError", err)
	}
	if limitErr.Provider != "test" {
		t.Fatalf("provider = %q, want test", limitErr.Provider)
	}
	if calls != 2 {
		t.Fatalf("upstream calls = %d, want 2", calls)
	}
}

func TestWrapHTTPServesCacheWhenBlocked(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		_, _ = io.WriteString(w, "payload")
	}))
	defer server.Close()

	decl := Provider("test").MaxRequestsPer(Minute, 1).CacheFor(time.Minute)
	client := WrapHTTP(decl, server.Client())

	resp, err := client.Get(server.URL)
	if err != nil {
		t.Fatalf("first request: %v", err)
	}
	first, _ := io.ReadAll(resp.Body)
	resp.Body.Close()

	resp, err = client.Get(server.URL)
	if err != nil {
		t.Fatalf("blocked request should fall back to cache: %v", err)
	}
	second, _ := io.ReadAll(resp.Body)
	resp.Body.Close()

	if string(first) != "payload" || string(second) != "payload" {
		t.Fatalf("bodies = %q, %q", first, second)
	}
	if calls != 1 {
		t.Fatalf("upstream calls = %d, want 1", calls)
	}
}

func TestGuardCooldownFromRetryAfter(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Retry-After", "60")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	decl := Provider("test").MaxRequestsPer(Minute, 10)
	client := WrapHTTP(decl, server.Client())

	resp, err := client.Get(server.URL)
	if err != nil {
		t.Fatalf("first request: %v", err)
	}
	resp.Body.Close()

	_, err = client.Get(server.URL)
	var limitErr LimitError
	if !errors.As(err, &limitErr) {
		t.Fatalf("err = %v, want LimitError during cooldown", err)
	}
	if limitErr.RetryAt.IsZero() {
		t.Fatalf("expected retry-at from Retry-After header")
	}
}

func TestBucketRefills(t *testing.T) {
	b := &bucket{capacity: 60, tokens: 0, last: time.Now().Add(-time.Second)}
	if !b.consume(time.Minute) {
		t.Fatalf("expected a token after one second of refill at 1/s")
	}
}

func TestLimitErrorMessage(t *testing.T) {
	err := LimitError{Provider: "eufy"}
	if err.Error() != "eufy rate limited" {
		t.Fatalf("message = %q", err.Error())
	}
	at := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	withRetry := LimitError{Provider: "eufy", RetryAt: at}
	if withRetry.Error() != "eufy rate limited (retry at 2025-01-02T03:04:05Z)" {
		t.Fatalf("message = %q", withRetry.Error())
	}
}

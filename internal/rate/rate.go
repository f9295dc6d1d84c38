// Package rate wraps outbound HTTP clients with declarative
// rate-limit enforcement. Cloud endpoints used here have no published
// quotas, so limits are conservative token buckets plus honoring any
// Retry-After the server sends.
package rate

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync"
	"time"
)

// Window is a limit bucket duration.
type Window int

const (
	Minute Window = iota
	Day
)

func (w Window) String() string {
	switch w {
	case Minute:
		return "minute"
	case Day:
		return "day"
	default:
		return "unknown"
	}
}

func (w Window) duration() time.Duration {
	if w == Day {
		return 24 * time.Hour
	}
	return time.Minute
}

// Declaration defines a provider's limits.
type Declaration struct {
	provider string
	limits   map[Window]int
	cacheTTL time.Duration
}

// Provider starts a declaration for a provider.
func Provider(name string) Declaration {
	return Declaration{provider: name}
}

func (d Declaration) MaxRequestsPer(window Window, limit int) Declaration {
	if d.limits == nil {
		d.limits = make(map[Window]int)
	}
	d.limits[window] = limit
	return d
}

func (d Declaration) CacheFor(ttl time.Duration) Declaration {
	d.cacheTTL = ttl
	return d
}

// LimitError is returned when a call is blocked.
type LimitError struct {
	Provider string
	RetryAt  time.Time
}

func (e LimitError) Error() string {
	if e.RetryAt.IsZero() {
		return fmt.Sprintf("%s rate limited", e.Provider)
	}
	return fmt.Sprintf("%s rate limited (retry at %s)", e.Provider, e.RetryAt.UTC().Format(time.RFC3339))
}

type bucket struct {
	capacity int
	tokens   float64
	last     time.Time
}

func (b *bucket) consume(window time.Duration) bool {
	now := time.Now()
	if b.last.IsZero() {
		b.last = now
	}
	refill := float64(b.capacity) / window.Seconds()
	b.tokens += now.Sub(b.last).Seconds() * refill
	if b.tokens > float64(b.capacity) {
		b.tokens = float64(b.capacity)
	}
	b.last = now
	if b.tokens < 1 {
		return false
	}
	b.tokens--
	return true
}

type cacheEntry struct {
	status  int
	header  http.Header
	body    []byte
	expires time.Time
}

// Guard enforces one provider's declaration.
type Guard struct {
	decl     Declaration
	mu       sync.Mutex
	buckets  map[Window]*bucket
	cooldown time.Time
	cache    map[string]cacheEntry
}

// WrapHTTP returns a copy of base whose transport enforces decl.
func WrapHTTP(decl Declaration, base *http.Client) *http.Client {
	if base == nil {
		base = &http.Client{}
	}
	client := *base
	transport := client.Transport
	if transport == nil {
		transport = http.DefaultTransport
	}
	buckets := make(map[Window]*bucket, len(decl.limits))
	for window, limit := range decl.limits {
		buckets[window] = &bucket{capacity: limit, tokens: float64(limit), last: time.Now()}
	}
	client.Transport = &roundTripper{
		base:  transport,
		guard: &Guard{decl: decl, buckets: buckets, cache: make(map[string]cacheEntry)},
	}
	return &client
}

type roundTripper struct {
	base  http.RoundTripper
	guard *Guard
}

func (rt *roundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	body, err := drainBody(req)
	if err != nil {
		return nil, err
	}

	if retryAt, allowed := rt.guard.shouldCall(time.Now()); !allowed {
		if cached := rt.guard.cachedResponse(req, body); cached != nil {
			return cached, nil
		}
		blockedTotal.WithLabelValues(rt.guard.decl.provider).Inc()
		return nil, LimitError{Provider: rt.guard.decl.provider, RetryAt: retryAt}
	}

	resp, err := rt.base.RoundTrip(req)
	if err != nil {
		return resp, err
	}
	rt.guard.recordResponse(resp.StatusCode, resp.Header)
	return rt.guard.maybeCacheResponse(req, body, resp)
}

func (g *Guard) shouldCall(now time.Time) (time.Time, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.cooldown.IsZero() && now.Before(g.cooldown) {
		return g.cooldown, false
	}
	for window, b := range g.buckets {
		if !b.consume(window.duration()) {
			retryAt := b.last.Add(window.duration() / time.Duration(b.capacity))
			return retryAt, false
		}
	}
	return time.Time{}, true
}

func (g *Guard) recordResponse(status int, header http.Header) {
	g.mu.Lock()
	defer g.mu.Unlock()

	lastStatusGauge.WithLabelValues(g.decl.provider).Set(float64(status))
	if after, err := strconv.Atoi(header.Get("Retry-After")); err == nil && after > 0 {
		g.cooldown = time.Now().Add(time.Duration(after) * time.Second)
		retryAfterGauge.WithLabelValues(g.decl.provider).Set(float64(after))
	} else if status == http.StatusTooManyRequests {
		g.cooldown = time.Now().Add(time.Minute)
	}
}

func (g *Guard) cachedResponse(req *http.Request, body []byte) *http.Response {
	if g.decl.cacheTTL <= 0 {
		return nil
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	entry, ok := g.cache[cacheKey(req, body)]
	if !ok || time.Now().After(entry.expires) {
		return nil
	}
	return cloneResponse(req, entry.status, entry.header, entry.body)
}

func (g *Guard) maybeCacheResponse(req *http.Request, body []byte, resp *http.Response) (*http.Response, error) {
	if g.decl.cacheTTL <= 0 {
		return resp, nil
	}
	buf, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	resp.Body.Close()

	g.mu.Lock()
	g.cache[cacheKey(req, body)] = cacheEntry{
		status:  resp.StatusCode,
		header:  resp.Header.Clone(),
		body:    buf,
		expires: time.Now().Add(g.decl.cacheTTL),
	}
	g.mu.Unlock()

	return cloneResponse(req, resp.StatusCode, resp.Header, buf), nil
}

func drainBody(req *http.Request) ([]byte, error) {
	if req.Body == nil {
		return nil, nil
	}
	data, err := io.ReadAll(req.Body)
	if err != nil {
		return nil, err
	}
	req.Body.Close()
	req.Body = io.NopCloser(bytes.NewReader(data))
	return data, nil
}

func cacheKey(req *http.Request, body []byte) string {
	hash := sha256.Sum256(body)
	return req.Method + " " + req.URL.String() + " " + hex.EncodeToString(hash[:])
}

func cloneResponse(req *http.Request, status int, header http.Header, body []byte) *http.Response {
	return &http.Response{
		StatusCode: status,
		Status:     fmt.Sprintf("%d %s", status, http.StatusText(status)),
		Header:     header.Clone(),
		Body:       io.NopCloser(bytes.NewReader(body)),
		Request:    req,
	}
}

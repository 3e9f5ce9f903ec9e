package httpds

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

// noSleep records backoff waits without sleeping.
func noSleep(waits *[]time.Duration) func(context.Context, time.Duration) error {
	return func(ctx context.Context, d time.Duration) error {
		*waits = append(*waits, d)
		return ctx.Err()
	}
}

func TestNewClient_Defaults(t *testing.T) {
	t.Parallel()

	c := NewClient(Config{})
	if c.httpClient.Timeout != 30*time.Second {
		t.Fatalf("timeout = %v; want 30s", c.httpClient.Timeout)
	}
	if c.maxRetries != 0 {
		t.Fatalf("maxRetries = %d; want 0", c.maxRetries)
	}
	if c.initialBackoff != 200*time.Millisecond || c.maxBackoff != 5*time.Second {
		t.Fatalf("backoff = %v/%v", c.initialBackoff, c.maxBackoff)
	}
	if NewClient(Config{MaxRetries: -3}).maxRetries != 0 {
		t.Fatalf("negative retries not clamped")
	}
}

func TestGet_SuccessSendsUserAgent(t *testing.T) {
	t.Parallel()

	var ua atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ua.Store(r.Header.Get("User-Agent"))
		_, _ = io.WriteString(w, "city\n")
	}))
	defer srv.Close()

	c := NewClient(Config{UserAgent: "sheetsync-test", MaxRetries: 2})
	resp, err := c.Get(context.Background(), srv.URL, nil)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	defer resp.Body.Close()
	if got := ua.Load(); got != "sheetsync-test" {
		t.Fatalf("User-Agent = %v", got)
	}
}

func TestGet_RetryOn5xxThenSuccess(t *testing.T) {
	t.Parallel()

	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&hits, 1) <= 2 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewClient(Config{MaxRetries: 3, InitialBackoff: 10 * time.Millisecond, MaxBackoff: 15 * time.Millisecond})
	var waits []time.Duration
	c.sleep = noSleep(&waits)

	resp, err := c.Get(context.Background(), srv.URL, nil)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	resp.Body.Close()
	if got := atomic.LoadInt32(&hits); got != 3 {
		t.Fatalf("hits = %d; want 3", got)
	}
	want := []time.Duration{10 * time.Millisecond, 15 * time.Millisecond}
	if len(waits) != 2 || waits[0] != want[0] || waits[1] != want[1] {
		t.Fatalf("waits = %v; want %v", waits, want)
	}
}

func TestGet_NoRetriesByDefault(t *testing.T) {
	t.Parallel()

	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := NewClient(Config{}).Get(context.Background(), srv.URL, nil)
	var se *StatusError
	if !errors.As(err, &se) || se.Code != http.StatusServiceUnavailable {
		t.Fatalf("err = %v; want StatusError 503", err)
	}
	if got := atomic.LoadInt32(&hits); got != 1 {
		t.Fatalf("hits = %d; want 1", got)
	}
}

func TestGet_NonRetryableStatus(t *testing.T) {
	t.Parallel()

	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewClient(Config{MaxRetries: 3})
	var waits []time.Duration
	c.sleep = noSleep(&waits)

	_, err := c.Get(context.Background(), srv.URL, nil)
	var se *StatusError
	if !errors.As(err, &se) || se.Code != http.StatusNotFound {
		t.Fatalf("err = %v; want StatusError 404", err)
	}
	if n := atomic.LoadInt32(&hits); n != 1 || len(waits) != 0 {
		t.Fatalf("hits=%d waits=%v; want one attempt", n, waits)
	}
}

func TestSource_Open(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "a,b\n1,2\n")
	}))
	defer srv.Close()

	rc, err := NewClient(Config{}).Source(srv.URL).Open(context.Background())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer rc.Close()
	b, _ := io.ReadAll(rc)
	if string(b) != "a,b\n1,2\n" {
		t.Fatalf("body = %q", b)
	}
}

func TestBackoffDuration(t *testing.T) {
	t.Parallel()

	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{0, 100 * time.Millisecond},
		{1, 200 * time.Millisecond},
		{2, 400 * time.Millisecond},
		{3, 500 * time.Millisecond},
		{40, 500 * time.Millisecond},
	}
	for _, tc := range tests {
		if got := backoffDuration(100*time.Millisecond, tc.attempt, 500*time.Millisecond); got != tc.want {
			t.Fatalf("backoffDuration(%d) = %v; want %v", tc.attempt, got, tc.want)
		}
	}
}

func TestIsRetryableStatus(t *testing.T) {
	t.Parallel()

	for _, code := range []int{429, 500, 502, 503, 599} {
		if !isRetryableStatus(code) {
			t.Fatalf("%d should be retryable", code)
		}
	}
	for _, code := range []int{200, 206, 301, 400, 403, 404} {
		if isRetryableStatus(code) {
			t.Fatalf("%d should not be retryable", code)
		}
	}
}

func TestSleepWithContextCancellation(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := sleepWithContext(ctx, time.Hour); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v; want context.Canceled", err)
	}
}

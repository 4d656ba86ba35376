package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestGet_ClassifiesBlockedWithoutRetry(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := &Client{MaxAttempts: 3, PerRequestTimeout: 2 * time.Second}
	out := c.Get(context.Background(), srv.URL)
	if out.Class != ClassBlocked {
		t.Fatalf("class = %q, want blocked", out.Class)
	}
	if got := atomic.LoadInt32(&hits); got != 1 {
		t.Fatalf("429 retried: %d requests", got)
	}
}

func TestGet_RetriesServerErrorsThenSucceeds(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&hits, 1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte("<html><body>ok</body></html>"))
	}))
	defer srv.Close()

	c := &Client{MaxAttempts: 3, PerRequestTimeout: 2 * time.Second, BackoffBase: time.Millisecond}
	out := c.Get(context.Background(), srv.URL)
	if out.Class != ClassOK {
		t.Fatalf("class = %q (err %v), want ok", out.Class, out.Err)
	}
	if out.Retries != 2 {
		t.Fatalf("retries = %d, want 2", out.Retries)
	}
	if string(out.Body) == "" {
		t.Fatalf("empty body on success")
	}
}

func TestGet_DefaultClientRetriesTransient(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&hits, 1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte("<html><body>ok</body></html>"))
	}))
	defer srv.Close()

	// MaxAttempts left at zero: the client must still retry transients.
	c := &Client{PerRequestTimeout: 2 * time.Second, BackoffBase: time.Millisecond}
	out := c.Get(context.Background(), srv.URL)
	if out.Class != ClassOK {
		t.Fatalf("class = %q (err %v), want ok", out.Class, out.Err)
	}
	if out.Retries != 1 {
		t.Fatalf("retries = %d, want 1", out.Retries)
	}
	if got := atomic.LoadInt32(&hits); got != 2 {
		t.Fatalf("requests = %d, want 2", got)
	}
}

func TestGet_PermanentClientErrorNotRetried(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		http.NotFound(w, r)
	}))
	defer srv.Close()

	c := &Client{MaxAttempts: 3, PerRequestTimeout: 2 * time.Second, BackoffBase: time.Millisecond}
	out := c.Get(context.Background(), srv.URL)
	if out.Class != ClassHTTPError {
		t.Fatalf("class = %q, want http_error", out.Class)
	}
	if got := atomic.LoadInt32(&hits); got != 1 {
		t.Fatalf("404 retried: %d requests", got)
	}
}

func TestGet_TimeoutClass(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
	}))
	defer srv.Close()

	c := &Client{MaxAttempts: 1, PerRequestTimeout: 30 * time.Millisecond}
	out := c.Get(context.Background(), srv.URL)
	if out.Class != ClassTimeout {
		t.Fatalf("class = %q (err %v), want timeout", out.Class, out.Err)
	}
}

func TestGet_RejectsNonHTTPScheme(t *testing.T) {
	c := &Client{MaxAttempts: 1}
	out := c.Get(context.Background(), "ftp://example.com/file")
	if out.Class != ClassConnection || out.Err == nil {
		t.Fatalf("expected connection_error for ftp scheme, got %q", out.Class)
	}
}

func TestGet_CancellationAbandonsRetryLoop(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	c := &Client{MaxAttempts: 3, BackoffBase: time.Hour}
	start := time.Now()
	out := c.Get(ctx, srv.URL)
	if time.Since(start) > time.Second {
		t.Fatalf("cancelled Get blocked in backoff")
	}
	if out.Class == ClassOK {
		t.Fatalf("cancelled Get reported ok")
	}
}

func TestGet_FollowsRedirectAndReportsFinalURL(t *testing.T) {
	target := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html>final</html>"))
	}))
	defer target.Close()
	hop := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, target.URL+"/article", http.StatusFound)
	}))
	defer hop.Close()

	c := &Client{MaxAttempts: 1, PerRequestTimeout: 2 * time.Second}
	out := c.Get(context.Background(), hop.URL)
	if out.Class != ClassOK {
		t.Fatalf("class = %q (err %v)", out.Class, out.Err)
	}
	if out.FinalURL != target.URL+"/article" {
		t.Fatalf("final URL = %q, want %q", out.FinalURL, target.URL+"/article")
	}
}

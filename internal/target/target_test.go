package target

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
)

func testLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func TestStopHitsEndpointOnce(t *testing.T) {
	var stops int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/stop" {
			atomic.AddInt64(&stops, 1)
		}
		_, _ = w.Write([]byte("bye"))
	}))
	defer srv.Close()

	New(srv.Client(), srv.URL+"/", testLogger()).Stop(context.Background())
	if got := atomic.LoadInt64(&stops); got != 1 {
		t.Errorf("stop endpoint hit %d times, want 1", got)
	}
}

func TestStopSwallowsFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	client := srv.Client()
	url := srv.URL
	srv.Close()

	// Target already gone: Stop must neither panic nor report.
	New(client, url, testLogger()).Stop(context.Background())
}

func TestAwaitReadyImmediate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/health" {
			t.Errorf("readiness hit %s, want /health", r.URL.Path)
		}
		_, _ = w.Write([]byte(`{"status":"UP"}`))
	}))
	defer srv.Close()

	c := New(srv.Client(), srv.URL, testLogger())
	err := c.AwaitReady(context.Background(), ReadyCheck{
		Path:     "health",
		Expect:   "status=UP",
		Timeout:  time.Second,
		Interval: 10 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("AwaitReady returned error: %v", err)
	}
}

func TestAwaitReadyEventually(t *testing.T) {
	var hits int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt64(&hits, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"status":"UP"}`))
	}))
	defer srv.Close()

	c := New(srv.Client(), srv.URL, testLogger())
	err := c.AwaitReady(context.Background(), ReadyCheck{
		Path:     "/health",
		Expect:   "status=UP",
		Timeout:  2 * time.Second,
		Interval: 10 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("AwaitReady returned error: %v", err)
	}
	if got := atomic.LoadInt64(&hits); got < 3 {
		t.Errorf("readiness polled %d times, want at least 3", got)
	}
}

func TestAwaitReadyTimesOut(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := New(srv.Client(), srv.URL, testLogger())
	start := time.Now()
	err := c.AwaitReady(context.Background(), ReadyCheck{
		Path:     "health",
		Timeout:  80 * time.Millisecond,
		Interval: 10 * time.Millisecond,
	})
	if err == nil {
		t.Fatal("AwaitReady returned nil, want timeout error")
	}
	if !strings.Contains(err.Error(), "not ready") {
		t.Errorf("error %q does not describe readiness", err)
	}
	if elapsed := time.Since(start); elapsed < 80*time.Millisecond {
		t.Errorf("gave up after %s, before the budget", elapsed)
	}
}

func TestAwaitReadyValueMismatchKeepsPolling(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"STARTING"}`))
	}))
	defer srv.Close()

	c := New(srv.Client(), srv.URL, testLogger())
	err := c.AwaitReady(context.Background(), ReadyCheck{
		Path:     "health",
		Expect:   "status=UP",
		Timeout:  60 * time.Millisecond,
		Interval: 10 * time.Millisecond,
	})
	if err == nil {
		t.Fatal("AwaitReady returned nil for a mismatched value")
	}
	if !strings.Contains(err.Error(), `"STARTING"`) {
		t.Errorf("error %q does not carry the last observed value", err)
	}
}

func TestAwaitReadyBareSelector(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"uptime": 12}`))
	}))
	defer srv.Close()

	c := New(srv.Client(), srv.URL, testLogger())
	err := c.AwaitReady(context.Background(), ReadyCheck{
		Path:     "health",
		Expect:   "uptime",
		Timeout:  time.Second,
		Interval: 10 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("AwaitReady returned error: %v", err)
	}
}

func TestAwaitReadyDisabledWithoutPath(t *testing.T) {
	c := New(http.DefaultClient, "http://localhost:1", testLogger())
	if err := c.AwaitReady(context.Background(), ReadyCheck{}); err != nil {
		t.Fatalf("AwaitReady returned error with no path: %v", err)
	}
}

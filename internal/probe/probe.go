// Package probe issues the timed GET requests against the measured
// endpoint and reduces each response to a single Outcome carrying the
// server-reported elapsed time.
package probe

import (
	"context"
	"io"
	"net/http"
	"net/http/httptrace"
	"strings"
	"time"

	"github.com/leleuj/ratpack/internal/fixed"
	"github.com/leleuj/ratpack/internal/tracing"
)

// Header is the response header carrying the server-measured elapsed
// time: base-10 milliseconds with up to five fractional digits.
const Header = "X-Response-Time"

// maxBodySnippet bounds how much of an error response body is kept for
// the failure report.
const maxBodySnippet = 1024

// Outcome is the result of one dispatched probe. Success means Err is
// nil; Elapsed is only meaningful on success.
type Outcome struct {
	Elapsed fixed.Millis
	RTT     time.Duration
	Status  int
	Err     error
}

// Prober issues GETs against one fixed URL through a shared client.
type Prober struct {
	client    *http.Client
	url       string
	timeout   time.Duration
	conns     *ConnStats
	propagate bool
}

// New returns a Prober hitting url through client. timeout caps each
// individual request; zero means requests only end with the caller's
// context.
func New(client *http.Client, url string, timeout time.Duration) *Prober {
	return &Prober{client: client, url: url, timeout: timeout}
}

// WithConnStats attaches connection accounting to every probe.
func (p *Prober) WithConnStats(cs *ConnStats) *Prober {
	p.conns = cs
	return p
}

// WithPropagation makes every probe carry W3C trace context headers.
func (p *Prober) WithPropagation() *Prober {
	p.propagate = true
	return p
}

// URL reports the probed URL.
func (p *Prober) URL() string {
	return p.url
}

// Do executes one probe. The returned Outcome always carries the
// client-observed round trip; a request that fails in transport,
// returns a non-2xx status, or lacks a parseable timing header carries
// the failure in Err and contributes nothing to the elapsed total.
func (p *Prober) Do(ctx context.Context) Outcome {
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}
	if p.conns != nil {
		ctx = httptrace.WithClientTrace(ctx, p.conns.trace())
	}

	start := time.Now()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url, nil)
	if err != nil {
		return Outcome{RTT: time.Since(start), Err: err}
	}
	if p.propagate {
		tracing.InjectHTTPHeaders(ctx, req.Header)
	}

	resp, err := p.client.Do(req)
	rtt := time.Since(start)
	if err != nil {
		return Outcome{RTT: rtt, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxBodySnippet))
		_, _ = io.Copy(io.Discard, resp.Body)
		return Outcome{
			RTT:    rtt,
			Status: resp.StatusCode,
			Err:    &HTTPError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(snippet))},
		}
	}
	// Drain so the connection goes back to the idle pool.
	_, _ = io.Copy(io.Discard, resp.Body)

	raw := resp.Header.Get(Header)
	if raw == "" {
		return Outcome{RTT: rtt, Status: resp.StatusCode, Err: ErrMissingHeader}
	}
	elapsed, err := fixed.Parse(raw)
	if err != nil {
		return Outcome{RTT: rtt, Status: resp.StatusCode, Err: &HeaderError{Value: raw, Err: err}}
	}
	return Outcome{Elapsed: elapsed, RTT: rtt, Status: resp.StatusCode}
}

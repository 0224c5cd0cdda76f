package probe

import (
	"net"
	"net/http"
	"time"
)

// NewClient builds the HTTP client shared by every probe in a run. The
// transport keeps idle connections warm between rounds so a cooldown
// never costs a reconnect. Per-request deadlines are the Prober's
// concern; the client itself carries no timeout.
func NewClient() *http.Client {
	dialer := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}

	transport := &http.Transport{
		Proxy:             http.ProxyFromEnvironment,
		DialContext:       dialer.DialContext,
		ForceAttemptHTTP2: true,
		MaxIdleConns:      256,
		// Single-host workload: per-host idle capacity has to cover the
		// whole worker pool or rounds reconnect mid-burst.
		MaxIdleConnsPerHost:   256,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}

	return &http.Client{
		Transport: transport,
	}
}

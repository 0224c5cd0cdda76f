// Package target drives the lifecycle endpoints of the measured
// service: an optional readiness poll before a run and a fire-and-forget
// stop call after it. Neither ever affects the measured result.
package target

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"
)

// maxReadyBody bounds how much of a readiness response is inspected.
const maxReadyBody = 64 << 10

// ReadyCheck configures the optional readiness poll. An empty Path
// disables it.
type ReadyCheck struct {
	Path     string        // path under the base URL, e.g. health
	Expect   string        // optional "selector=value" match over the JSON body
	Timeout  time.Duration // overall budget, 0 = bounded only by ctx
	Interval time.Duration // poll cadence, defaults to 500ms
}

// Controller talks to the measured service's control surface.
type Controller struct {
	client *http.Client
	base   string
	log    logrus.FieldLogger
}

func New(client *http.Client, base string, log logrus.FieldLogger) *Controller {
	if log == nil {
		silent := logrus.New()
		silent.SetOutput(io.Discard)
		log = silent
	}
	return &Controller{client: client, base: strings.TrimRight(base, "/"), log: log}
}

// Stop fires one GET {base}/stop and walks away. The measured result is
// settled before this runs, so failures are logged at warn and
// swallowed; a connection cut mid-response just means the target obeyed.
func (c *Controller) Stop(ctx context.Context) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+"/stop", nil)
	if err != nil {
		c.log.WithError(err).Warn("stop request not built")
		return
	}
	resp, err := c.client.Do(req)
	if err != nil {
		c.log.WithError(err).Warn("stop request failed")
		return
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	c.log.WithField("status", resp.StatusCode).Debug("stop requested")
}

// AwaitReady polls the readiness path until it answers 2xx and the
// optional expect selector matches, or the budget runs out. The first
// probe happens immediately.
func (c *Controller) AwaitReady(ctx context.Context, check ReadyCheck) error {
	if check.Path == "" {
		return nil
	}
	interval := check.Interval
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}
	if check.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, check.Timeout)
		defer cancel()
	}

	url := c.base + "/" + strings.TrimLeft(check.Path, "/")
	selector, want, exact := splitExpect(check.Expect)

	var lastErr error
	for attempt := 1; ; attempt++ {
		ok, err := c.ready(ctx, url, selector, want, exact)
		if ok {
			c.log.WithField("attempts", attempt).Debug("target ready")
			return nil
		}
		if err != nil {
			lastErr = err
		}

		select {
		case <-time.After(interval):
		case <-ctx.Done():
			if lastErr != nil {
				return fmt.Errorf("target not ready after %d attempts (last: %v): %w", attempt, lastErr, ctx.Err())
			}
			return fmt.Errorf("target not ready after %d attempts: %w", attempt, ctx.Err())
		}
	}
}

func (c *Controller) ready(ctx context.Context, url, selector, want string, exact bool) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false, err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxReadyBody))
	_, _ = io.Copy(io.Discard, resp.Body)
	if err != nil {
		return false, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return false, fmt.Errorf("status %d", resp.StatusCode)
	}
	if selector == "" {
		return true, nil
	}

	result := gjson.GetBytes(body, selector)
	if !result.Exists() {
		return false, fmt.Errorf("selector %q not found", selector)
	}
	if exact && result.String() != want {
		return false, fmt.Errorf("%s = %q, want %q", selector, result.String(), want)
	}
	return true, nil
}

// splitExpect parses "status=UP" into a selector and the value it has
// to equal. A bare selector only has to exist.
func splitExpect(expect string) (selector, want string, exact bool) {
	if expect == "" {
		return "", "", false
	}
	if i := strings.Index(expect, "="); i >= 0 {
		return expect[:i], expect[i+1:], true
	}
	return expect, "", false
}

// Package fetch drives a headless browser session to load a job-posting URL
// and return the rendered document. It owns the retry, backoff, and timeout
// policy; the browser session is scoped to a single attempt and always
// released before the pipeline proceeds.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// RawPage is the ephemeral result of one successful fetch. It is discarded
// after normalization.
type RawPage struct {
	URL          string
	HTML         string
	FetchedAt    time.Time
	AttemptCount int
}

// Reason codes carried by a terminal *Error.
const (
	ReasonTimeout      = "timeout"
	ReasonTransport    = "transport"
	ReasonShortContent = "short_content"
)

// Error is the terminal failure returned after retries are exhausted.
// Callers must treat it as a pipeline failure; partial content is never
// silently promoted to success.
type Error struct {
	URL      string
	Reason   string
	Attempts int
	Err      error
}

func (e *Error) Error() string {
	return fmt.Sprintf("fetch %s failed after %d attempts (%s): %v", e.URL, e.Attempts, e.Reason, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Profile is the per-domain load policy. Sites known to lazily render get an
// extended timeout, a settle delay after load, and scroll passes to trigger
// content below the fold.
type Profile struct {
	LoadTimeout  time.Duration
	SettleDelay  time.Duration
	ScrollPasses int
}

// DefaultProfile is applied to generic sites.
var DefaultProfile = Profile{LoadTimeout: 20 * time.Second}

// SlowRenderProfile is applied to hosts listed in Fetcher.SlowHosts.
var SlowRenderProfile = Profile{
	LoadTimeout:  60 * time.Second,
	SettleDelay:  30 * time.Second,
	ScrollPasses: 2,
}

// Browser renders one URL to HTML. Implementations acquire whatever session
// they need on entry and release it on exit, including on error.
type Browser interface {
	Render(ctx context.Context, url string, profile Profile) (string, error)
}

// Fetcher retries a Browser until it yields usable content or the attempt
// budget is spent. Zero-value fields fall back to sane defaults.
type Fetcher struct {
	Browser Browser
	// MaxAttempts includes the initial attempt. Minimum 1; default 3.
	MaxAttempts int
	// MinContentChars rejects too-short renders as failures. Default 1000.
	MinContentChars int
	// SlowHosts lists hosts (suffix match) that get SlowRenderProfile.
	SlowHosts []string
	// Backoff is the base delay between attempts, scaled linearly by the
	// attempt number. Default 500ms.
	Backoff time.Duration

	// now and sleep are test seams.
	now   func() time.Time
	sleep func(context.Context, time.Duration) error
}

// Fetch loads the URL with the profile chosen for its host. Each retry
// re-acquires the browser session. The caller's deadline bounds the whole
// loop; a cancelled context aborts immediately with a timeout reason.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (RawPage, error) {
	attempts := f.MaxAttempts
	if attempts <= 0 {
		attempts = 3
	}
	minChars := f.MinContentChars
	if minChars <= 0 {
		minChars = 1000
	}
	profile := f.profileFor(rawURL)

	var lastErr error
	lastReason := ReasonTransport
	for i := 1; i <= attempts; i++ {
		if err := ctx.Err(); err != nil {
			return RawPage{}, &Error{URL: rawURL, Reason: ReasonTimeout, Attempts: i - 1, Err: err}
		}
		html, err := f.Browser.Render(ctx, rawURL, profile)
		if err == nil && len(html) < minChars {
			err = fmt.Errorf("rendered content too short: %d chars", len(html))
			lastReason = ReasonShortContent
		} else if err != nil {
			lastReason = classify(err)
		}
		if err == nil {
			return RawPage{URL: rawURL, HTML: html, FetchedAt: f.timeNow(), AttemptCount: i}, nil
		}
		lastErr = err
		log.Debug().Str("url", rawURL).Int("attempt", i).Str("reason", lastReason).Err(err).Msg("fetch attempt failed")
		if i < attempts {
			if err := f.wait(ctx, time.Duration(i)*f.backoffBase()); err != nil {
				return RawPage{}, &Error{URL: rawURL, Reason: ReasonTimeout, Attempts: i, Err: err}
			}
		}
	}
	return RawPage{}, &Error{URL: rawURL, Reason: lastReason, Attempts: attempts, Err: lastErr}
}

// profileFor picks the slow-render profile when the URL's host matches one of
// the configured slow hosts, including subdomains.
func (f *Fetcher) profileFor(rawURL string) Profile {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return DefaultProfile
	}
	host := strings.ToLower(u.Hostname())
	for _, slow := range f.SlowHosts {
		slow = strings.ToLower(strings.TrimSpace(slow))
		if slow == "" {
			continue
		}
		if host == slow || strings.HasSuffix(host, "."+slow) {
			return SlowRenderProfile
		}
	}
	return DefaultProfile
}

func classify(err error) string {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return ReasonTimeout
	}
	return ReasonTransport
}

func (f *Fetcher) backoffBase() time.Duration {
	if f.Backoff > 0 {
		return f.Backoff
	}
	return 500 * time.Millisecond
}

func (f *Fetcher) timeNow() time.Time {
	if f.now != nil {
		return f.now()
	}
	return time.Now()
}

func (f *Fetcher) wait(ctx context.Context, d time.Duration) error {
	if f.sleep != nil {
		return f.sleep(ctx, d)
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

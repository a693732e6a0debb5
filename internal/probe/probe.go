// Package probe performs the bounded-time reachability fetch for a URL,
// following redirects while vetting every hop with the host guard.
package probe

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/metahkg/metahkg-redirect/internal/hostguard"
	"github.com/metahkg/metahkg-redirect/internal/httpclient"
	"github.com/metahkg/metahkg-redirect/internal/metrics"
)

// DefaultTimeout bounds a single probe end to end.
const DefaultTimeout = 3 * time.Second

const maxRedirects = 10

var errForbiddenRedirect = errors.New("redirect to forbidden host")

// HostChecker vets a hostname before it is contacted.
type HostChecker interface {
	Check(ctx context.Context, host string) hostguard.Decision
}

// Result is the outcome of one probe. FinalURL is empty whenever
// Reachable is false.
type Result struct {
	Reachable bool
	FinalURL  string
}

// Prober issues redirect-following GET requests with a hard timeout.
type Prober struct {
	client  *http.Client
	guard   HostChecker
	timeout time.Duration
	log     *slog.Logger
}

// New creates a Prober. Every redirect hop is rejected when the guard
// forbids its host, so a crafted redirect cannot steer the probe onto an
// internal address.
func New(guard HostChecker, timeout time.Duration, logger *slog.Logger) *Prober {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	p := &Prober{guard: guard, timeout: timeout, log: logger}
	p.client = httpclient.New(httpclient.Config{
		Timeout: timeout,
		Headers: http.Header{"User-Agent": []string{"metahkg-redirect/1.0"}},
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirects {
				return errors.New("too many redirects")
			}
			if p.guard.Check(req.Context(), req.URL.Hostname()) == hostguard.Forbidden {
				return errForbiddenRedirect
			}
			return nil
		},
	})
	return p
}

// Probe fetches rawURL. The timeout cancels only this fetch; callers
// continue with an unreachable result. A final URL that fails syntax
// validation or whose host the guard forbids is reported as unreachable
// rather than surfacing a forbidden destination.
func (p *Prober) Probe(ctx context.Context, rawURL string) Result {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	start := time.Now()
	defer func() {
		metrics.ProbeDuration.Observe(time.Since(start).Seconds())
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return Result{}
	}
	resp, err := p.client.Do(req)
	if err != nil {
		p.log.Debug("probe failed", "url", rawURL, "error", err)
		return Result{}
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 512*1024))

	final := resp.Request.URL
	if (final.Scheme != "http" && final.Scheme != "https") || final.Hostname() == "" {
		return Result{}
	}
	if p.guard.Check(ctx, final.Hostname()) == hostguard.Forbidden {
		p.log.Warn("probe landed on forbidden host", "url", rawURL, "final", final.Hostname())
		return Result{}
	}
	return Result{Reachable: true, FinalURL: final.String()}
}

// Redirects reports whether final differs from requested by path or host.
func Redirects(requested, final string) bool {
	ru, err := url.Parse(requested)
	if err != nil {
		return false
	}
	fu, err := url.Parse(final)
	if err != nil {
		return false
	}
	return fu.Path != ru.Path || fu.Host != ru.Host
}

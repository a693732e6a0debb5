// Package httpclient builds the outbound HTTP clients used for probing,
// feed downloads, and the Safe Browsing API.
package httpclient

import (
	"net"
	"net/http"
	"time"
)

// Config holds settings for an outbound HTTP client.
type Config struct {
	Timeout time.Duration
	Headers http.Header
	Retries int
	// CheckRedirect is installed verbatim on the client. Nil keeps the
	// default follow-up-to-10-redirects behavior.
	CheckRedirect func(req *http.Request, via []*http.Request) error
}

// headerRoundTripper wraps a base RoundTripper to inject headers and retry
// transport errors and 5xx responses with exponential backoff.
type headerRoundTripper struct {
	base    http.RoundTripper
	headers http.Header
	retries int
}

func (h *headerRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	if h.base == nil {
		h.base = http.DefaultTransport
	}

	var resp *http.Response
	var err error

	for attempt := 0; ; attempt++ {
		// Clone the request to avoid mutations across retries.
		r := req.Clone(req.Context())
		if req.Body != nil {
			if req.GetBody != nil {
				if body, berr := req.GetBody(); berr == nil {
					r.Body = body
				}
			} else {
				r.Body = req.Body
			}
		}

		for k, vs := range h.headers {
			r.Header.Del(k)
			for _, v := range vs {
				r.Header.Add(k, v)
			}
		}

		resp, err = h.base.RoundTrip(r)
		if err == nil && resp.StatusCode < 500 {
			return resp, nil
		}

		if attempt >= h.retries || req.Context().Err() != nil {
			if err != nil {
				return nil, err
			}
			return resp, nil
		}

		if resp != nil {
			_ = resp.Body.Close()
		}
		time.Sleep(time.Duration(100*(1<<attempt)) * time.Millisecond)
	}
}

// New returns a configured HTTP client.
func New(cfg Config) *http.Client {
	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout:   cfg.Timeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		ForceAttemptHTTP2: true,
	}

	return &http.Client{
		Transport: &headerRoundTripper{
			base:    transport,
			headers: cfg.Headers,
			retries: cfg.Retries,
		},
		Timeout:       cfg.Timeout,
		CheckRedirect: cfg.CheckRedirect,
	}
}

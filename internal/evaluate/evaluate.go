// Package evaluate orchestrates a full URL evaluation: cache lookup, host
// vetting, reachability probe, tracking cleanup, and the remote plus local
// threat lookups, assembled into one Verdict.
package evaluate

import (
	"context"
	"log/slog"
	"net/url"

	"golang.org/x/sync/errgroup"

	"github.com/metahkg/metahkg-redirect/internal/hostguard"
	"github.com/metahkg/metahkg-redirect/internal/model"
	"github.com/metahkg/metahkg-redirect/internal/normalize"
	"github.com/metahkg/metahkg-redirect/internal/probe"
)

// HostChecker vets a hostname before any outbound work happens.
type HostChecker interface {
	Check(ctx context.Context, host string) hostguard.Decision
}

// Prober fetches a URL and reports reachability and the final location.
type Prober interface {
	Probe(ctx context.Context, rawURL string) probe.Result
}

// ThreatFinder queries the remote threat intelligence API.
type ThreatFinder interface {
	FindThreatMatches(ctx context.Context, urls []string) ([]model.ThreatMatch, error)
}

// FeedLookup serves local threat feed matches once the feeds are loaded.
type FeedLookup interface {
	WaitReady(ctx context.Context) error
	LookupURLs(variants []string) []model.URLThreat
	LookupHost(hosts []string) (string, bool)
}

// VerdictCache memoizes verdicts by raw URL string.
type VerdictCache interface {
	Get(ctx context.Context, rawURL string) (*model.Verdict, bool)
	Set(ctx context.Context, rawURL string, v *model.Verdict)
}

// Deps are the collaborators of an Evaluator.
type Deps struct {
	Guard   HostChecker
	Prober  Prober
	Threats ThreatFinder
	Feeds   FeedLookup
	Cache   VerdictCache
	Clean   func(string) string
	Logger  *slog.Logger
}

// Evaluator runs URL evaluations.
type Evaluator struct {
	deps Deps
	log  *slog.Logger
}

// New creates an Evaluator from its collaborators.
func New(deps Deps) *Evaluator {
	log := deps.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Evaluator{deps: deps, log: log}
}

// Evaluate inspects rawURL and returns its Verdict. Terminal failures are
// returned as *model.StatusError: 400 for malformed input, 403 when the host
// is forbidden, 500 when the remote threat lookup fails. Forbidden hosts are
// rejected before any outbound request, and neither error case is cached.
func (e *Evaluator) Evaluate(ctx context.Context, rawURL string) (*model.Verdict, error) {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Hostname() == "" {
		return nil, model.ErrInvalidURL
	}

	if v, ok := e.deps.Cache.Get(ctx, rawURL); ok {
		return v, nil
	}

	if e.deps.Guard.Check(ctx, u.Hostname()) == hostguard.Forbidden {
		return nil, model.ErrForbidden
	}

	res := e.deps.Prober.Probe(ctx, rawURL)

	var redirects *bool
	resolved := rawURL
	if res.Reachable {
		r := probe.Redirects(rawURL, res.FinalURL)
		redirects = &r
		resolved = res.FinalURL
	}

	tidied := e.deps.Clean(resolved)
	tracking := tidied != resolved

	if err := e.deps.Feeds.WaitReady(ctx); err != nil {
		e.log.Error("threat feeds never became ready", "error", err)
		return nil, model.ErrUpstream
	}

	variants := normalize.CheckVariants(rawURL)
	hosts := []string{u.Hostname()}
	if redirects != nil && *redirects {
		variants = normalize.Merge(variants, normalize.CheckVariants(res.FinalURL))
		if fu, err := url.Parse(res.FinalURL); err == nil && fu.Hostname() != "" {
			hosts = append([]string{fu.Hostname()}, hosts...)
		}
	}

	var (
		sbMatches  []model.ThreatMatch
		urlThreats []model.URLThreat
		badHost    string
		hostHit    bool
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		matches, err := e.deps.Threats.FindThreatMatches(gctx, variants)
		if err != nil {
			return err
		}
		sbMatches = matches
		return nil
	})
	g.Go(func() error {
		urlThreats = e.deps.Feeds.LookupURLs(variants)
		badHost, hostHit = e.deps.Feeds.LookupHost(hosts)
		return nil
	})
	if err := g.Wait(); err != nil {
		e.log.Error("remote threat lookup failed", "url", rawURL, "error", err)
		return nil, model.ErrUpstream
	}

	if sbMatches == nil {
		sbMatches = []model.ThreatMatch{}
	}
	if urlThreats == nil {
		urlThreats = []model.URLThreat{}
	}

	v := &model.Verdict{
		Unsafe:              len(sbMatches) > 0 || len(urlThreats) > 0 || hostHit,
		Malicious:           hostHit,
		Reachable:           res.Reachable,
		Redirects:           redirects,
		Tracking:            tracking,
		SafebrowsingThreats: sbMatches,
		URLHausThreats:      urlThreats,
	}
	if hostHit {
		v.MaliciousHost = badHost
	}
	if redirects != nil && *redirects {
		v.RedirectURL = res.FinalURL
	}
	if tracking {
		v.TidyURL = tidied
	}

	e.deps.Cache.Set(ctx, rawURL, v)
	return v, nil
}

// Package feed maintains a periodically refreshed local snapshot of the
// URLHaus threat feeds: the online malicious-URL CSV and the malware host
// list. Refreshes stage a complete new snapshot and publish it atomically,
// so lookups never observe a half-loaded feed and a failed download leaves
// the previous data intact.
package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/metahkg/metahkg-redirect/internal/httpclient"
	"github.com/metahkg/metahkg-redirect/internal/metrics"
	"github.com/metahkg/metahkg-redirect/internal/model"
)

const (
	// DefaultURLFeedURL serves online malicious URLs, see
	// https://urlhaus.abuse.ch/api/.
	DefaultURLFeedURL = "https://urlhaus.abuse.ch/downloads/csv_online/"
	// DefaultHostFeedURL serves malicious hosts, see
	// https://gitlab.com/malware-filter/urlhaus-filter.
	DefaultHostFeedURL = "https://malware-filter.gitlab.io/malware-filter/urlhaus-filter-domains.txt"

	DefaultInterval = 30 * time.Minute

	urlSnapshotFile  = "malware-urls.json"
	hostSnapshotFile = "malware-hosts.json"

	maxFeedBody = 256 * 1024 * 1024 // 256 MB
)

// snapshot is an immutable view of both feeds. A new snapshot replaces the
// previous one in a single pointer write under the store mutex.
type snapshot struct {
	urls       map[string][]model.URLThreat
	sortedURLs []string
	hosts      map[string]struct{}
	fetchedAt  time.Time
}

func buildSnapshot(threats []model.URLThreat, hosts []string) *snapshot {
	s := &snapshot{
		urls:      make(map[string][]model.URLThreat, len(threats)),
		hosts:     make(map[string]struct{}, len(hosts)),
		fetchedAt: time.Now(),
	}
	for _, t := range threats {
		s.urls[t.URL] = append(s.urls[t.URL], t)
	}
	s.sortedURLs = make([]string, 0, len(s.urls))
	for u := range s.urls {
		s.sortedURLs = append(s.sortedURLs, u)
	}
	sort.Strings(s.sortedURLs)
	for _, h := range hosts {
		s.hosts[h] = struct{}{}
	}
	return s
}

// threats flattens the URL index back into a list, for persistence.
func (sn *snapshot) threats() []model.URLThreat {
	out := make([]model.URLThreat, 0, len(sn.sortedURLs))
	for _, u := range sn.sortedURLs {
		out = append(out, sn.urls[u]...)
	}
	return out
}

func (sn *snapshot) hostList() []string {
	out := make([]string, 0, len(sn.hosts))
	for h := range sn.hosts {
		out = append(out, h)
	}
	sort.Strings(out)
	return out
}

// prefixMatch reports the stored URL, if any, that v extends. Exact matches
// are handled by the caller via the map; this walks the sorted URL list.
func (sn *snapshot) prefixMatch(v string) (string, bool) {
	for {
		i := sort.SearchStrings(sn.sortedURLs, v)
		if i < len(sn.sortedURLs) && sn.sortedURLs[i] == v {
			return v, true
		}
		if i == 0 {
			return "", false
		}
		cand := sn.sortedURLs[i-1]
		if strings.HasPrefix(v, cand) {
			return cand, true
		}
		// Shrink v to the common prefix and retry; terminates because v
		// strictly shortens each round.
		n := commonPrefixLen(v, cand)
		if n == 0 {
			return "", false
		}
		v = v[:n]
	}
}

func commonPrefixLen(a, b string) int {
	n := 0
	for n < len(a) && n < len(b) && a[n] == b[n] {
		n++
	}
	return n
}

// Config holds Store settings. Zero values select the defaults above.
type Config struct {
	URLFeedURL  string
	HostFeedURL string
	// DataDir is where snapshots are persisted across restarts. Empty
	// disables persistence.
	DataDir    string
	Interval   time.Duration
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// Store is the threat feed store. It is written only by Refresh and the
// startup restore; lookups are read-only and never block a refresh except
// for the pointer swap instant.
type Store struct {
	urlFeedURL  string
	hostFeedURL string
	dataDir     string
	interval    time.Duration
	client      *http.Client
	log         *slog.Logger

	mu   sync.RWMutex
	snap *snapshot

	readyOnce sync.Once
	ready     chan struct{}
}

// NewStore creates a Store with an empty snapshot. The ready gate stays
// closed until the first successful load or restore.
func NewStore(cfg Config) *Store {
	if cfg.URLFeedURL == "" {
		cfg.URLFeedURL = DefaultURLFeedURL
	}
	if cfg.HostFeedURL == "" {
		cfg.HostFeedURL = DefaultHostFeedURL
	}
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = httpclient.New(httpclient.Config{Timeout: 60 * time.Second, Retries: 1})
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Store{
		urlFeedURL:  cfg.URLFeedURL,
		hostFeedURL: cfg.HostFeedURL,
		dataDir:     cfg.DataDir,
		interval:    cfg.Interval,
		client:      cfg.HTTPClient,
		log:         cfg.Logger,
		snap:        buildSnapshot(nil, nil),
		ready:       make(chan struct{}),
	}
}

// Ready reports whether at least one feed load has completed.
func (s *Store) Ready() bool {
	select {
	case <-s.ready:
		return true
	default:
		return false
	}
}

// WaitReady blocks until the first feed load completes or ctx is done.
func (s *Store) WaitReady(ctx context.Context) error {
	select {
	case <-s.ready:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Store) markReady() {
	s.readyOnce.Do(func() { close(s.ready) })
}

func (s *Store) current() *snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap
}

func (s *Store) publish(sn *snapshot) {
	s.mu.Lock()
	s.snap = sn
	s.mu.Unlock()
	metrics.FeedEntries.WithLabelValues("urls").Set(float64(len(sn.sortedURLs)))
	metrics.FeedEntries.WithLabelValues("hosts").Set(float64(len(sn.hosts)))
	metrics.FeedRefreshTime.Set(float64(sn.fetchedAt.Unix()))
	s.markReady()
}

// Counts returns the number of distinct URLs and hosts in the live snapshot.
func (s *Store) Counts() (urls, hosts int) {
	sn := s.current()
	return len(sn.sortedURLs), len(sn.hosts)
}

// RestoreSnapshot loads a previously persisted snapshot from DataDir and
// opens the ready gate when either collection holds data. It returns whether
// a snapshot was restored.
func (s *Store) RestoreSnapshot() bool {
	if s.dataDir == "" {
		return false
	}
	var threats []model.URLThreat
	if err := readJSONFile(filepath.Join(s.dataDir, urlSnapshotFile), &threats); err != nil && !os.IsNotExist(err) {
		s.log.Warn("reading persisted url feed failed", "error", err)
	}
	var hosts []string
	if err := readJSONFile(filepath.Join(s.dataDir, hostSnapshotFile), &hosts); err != nil && !os.IsNotExist(err) {
		s.log.Warn("reading persisted host feed failed", "error", err)
	}
	if len(threats) == 0 && len(hosts) == 0 {
		return false
	}
	s.publish(buildSnapshot(threats, hosts))
	s.log.Info("restored persisted threat feeds", "urls", len(threats), "hosts", len(hosts))
	return true
}

// Refresh downloads both feeds and publishes a new snapshot. A failed or
// empty download keeps the previous data for that feed. Refresh returns an
// error only when neither feed produced usable data.
func (s *Store) Refresh(ctx context.Context) error {
	cur := s.current()

	threats := cur.threats()
	hosts := cur.hostList()
	updated := 0

	if body, err := s.fetch(ctx, s.urlFeedURL); err != nil {
		s.log.Warn("url feed download failed", "url", s.urlFeedURL, "error", err)
	} else if parsed := parseURLFeed(body); len(parsed) == 0 {
		s.log.Warn("url feed empty, keeping previous data", "url", s.urlFeedURL)
	} else {
		threats = parsed
		updated++
	}

	if body, err := s.fetch(ctx, s.hostFeedURL); err != nil {
		s.log.Warn("host feed download failed", "url", s.hostFeedURL, "error", err)
	} else if parsed := parseHostFeed(body); len(parsed) == 0 {
		s.log.Warn("host feed empty, keeping previous data", "url", s.hostFeedURL)
	} else {
		hosts = parsed
		updated++
	}

	if updated == 0 {
		return fmt.Errorf("refreshing feeds: no feed produced data")
	}

	next := buildSnapshot(threats, hosts)
	s.persist(next)
	s.publish(next)
	return nil
}

// Run refreshes immediately and then on every tick until ctx is done.
func (s *Store) Run(ctx context.Context) {
	if err := s.Refresh(ctx); err != nil {
		s.log.Error("initial feed refresh failed", "error", err)
	}
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.Refresh(ctx); err != nil {
				s.log.Error("feed refresh failed", "error", err)
				continue
			}
			urls, hostCount := s.Counts()
			s.log.Info("threat feeds refreshed", "urls", urls, "hosts", hostCount)
		}
	}
}

// LookupURLs returns all feed entries matching any variant, by exact match
// or by a stored URL being a prefix of the variant. Results are deduplicated
// by stored URL; a nil slice means no matches.
func (s *Store) LookupURLs(variants []string) []model.URLThreat {
	sn := s.current()
	var out []model.URLThreat
	seen := make(map[string]struct{})

	add := func(stored string) {
		if _, ok := seen[stored]; ok {
			return
		}
		seen[stored] = struct{}{}
		out = append(out, sn.urls[stored]...)
	}

	for _, v := range variants {
		if v == "" {
			continue
		}
		if _, ok := sn.urls[v]; ok {
			add(v)
			continue
		}
		if stored, ok := sn.prefixMatch(v); ok {
			add(stored)
		}
	}
	return out
}

// LookupHost returns the first of hosts present in the malicious host feed.
func (s *Store) LookupHost(hosts []string) (string, bool) {
	sn := s.current()
	for _, h := range hosts {
		h = strings.ToLower(h)
		if _, ok := sn.hosts[h]; ok {
			return h, true
		}
	}
	return "", false
}

func (s *Store) fetch(ctx context.Context, feedURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feedURL, nil)
	if err != nil {
		return "", err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFeedBody))
	if err != nil {
		return "", err
	}
	return string(body), nil
}

// persist writes the snapshot to DataDir. Each file is staged to a temp
// name and renamed into place so readers of the files never see a partial
// write. Failures are logged only; persistence is best effort.
func (s *Store) persist(sn *snapshot) {
	if s.dataDir == "" {
		return
	}
	if err := os.MkdirAll(s.dataDir, 0o755); err != nil {
		s.log.Warn("creating feed data dir failed", "dir", s.dataDir, "error", err)
		return
	}
	if err := writeJSONFile(filepath.Join(s.dataDir, urlSnapshotFile), sn.threats()); err != nil {
		s.log.Warn("persisting url feed failed", "error", err)
	}
	if err := writeJSONFile(filepath.Join(s.dataDir, hostSnapshotFile), sn.hostList()); err != nil {
		s.log.Warn("persisting host feed failed", "error", err)
	}
}

func readJSONFile(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

func writeJSONFile(path string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

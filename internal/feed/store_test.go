package feed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type feedServer struct {
	srv  *httptest.Server
	body atomic.Value // string
	code atomic.Int64
}

func newFeedServer(body string) *feedServer {
	fs := &feedServer{}
	fs.body.Store(body)
	fs.code.Store(http.StatusOK)
	fs.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		code := int(fs.code.Load())
		if code != http.StatusOK {
			w.WriteHeader(code)
			return
		}
		_, _ = w.Write([]byte(fs.body.Load().(string)))
	}))
	return fs
}

func newTestStore(t *testing.T, urls, hosts *feedServer) *Store {
	t.Helper()
	return NewStore(Config{
		URLFeedURL:  urls.srv.URL,
		HostFeedURL: hosts.srv.URL,
		DataDir:     t.TempDir(),
		HTTPClient:  &http.Client{Timeout: 2 * time.Second},
	})
}

func TestRefreshAndLookup(t *testing.T) {
	urls := newFeedServer(sampleCSV)
	defer urls.srv.Close()
	hosts := newFeedServer("# comment\nbad.example\nevil.example\n")
	defer hosts.srv.Close()

	s := newTestStore(t, urls, hosts)
	require.False(t, s.Ready())
	require.NoError(t, s.Refresh(context.Background()))
	require.True(t, s.Ready())

	// Exact match.
	got := s.LookupURLs([]string{"http://evil.example/bad.exe"})
	require.Len(t, got, 1)
	assert.Equal(t, "3395723", got[0].ID)

	// Prefix match: a stored URL that the variant extends.
	got = s.LookupURLs([]string{"http://evil.example/bad.exe?x=1"})
	require.Len(t, got, 1)
	assert.Equal(t, "3395723", got[0].ID)

	// Same entry matched via several variants is reported once.
	got = s.LookupURLs([]string{
		"http://evil.example/bad.exe",
		"http://evil.example/bad.exe?x=1",
	})
	assert.Len(t, got, 1)

	assert.Nil(t, s.LookupURLs([]string{"http://clean.example/"}))

	h, ok := s.LookupHost([]string{"clean.example", "BAD.example"})
	require.True(t, ok)
	assert.Equal(t, "bad.example", h)

	_, ok = s.LookupHost([]string{"clean.example"})
	assert.False(t, ok)
}

func TestRefreshIdempotent(t *testing.T) {
	urls := newFeedServer(sampleCSV)
	defer urls.srv.Close()
	hosts := newFeedServer("bad.example\n")
	defer hosts.srv.Close()

	s := newTestStore(t, urls, hosts)
	require.NoError(t, s.Refresh(context.Background()))
	first := s.LookupURLs([]string{"http://evil.example/bad.exe"})

	require.NoError(t, s.Refresh(context.Background()))
	second := s.LookupURLs([]string{"http://evil.example/bad.exe"})
	assert.Equal(t, first, second)

	u, h := s.Counts()
	assert.Equal(t, 2, u)
	assert.Equal(t, 1, h)
}

func TestRefreshKeepsPreviousOnFailure(t *testing.T) {
	urls := newFeedServer(sampleCSV)
	defer urls.srv.Close()
	hosts := newFeedServer("bad.example\n")
	defer hosts.srv.Close()

	s := newTestStore(t, urls, hosts)
	require.NoError(t, s.Refresh(context.Background()))

	// Empty URL feed body, host feed erroring: previous data stays intact.
	urls.body.Store("")
	hosts.code.Store(http.StatusInternalServerError)
	err := s.Refresh(context.Background())
	assert.Error(t, err)

	got := s.LookupURLs([]string{"http://evil.example/bad.exe"})
	assert.Len(t, got, 1)
	_, ok := s.LookupHost([]string{"bad.example"})
	assert.True(t, ok)

	// One feed recovering is enough for a successful refresh.
	hosts.code.Store(http.StatusOK)
	hosts.body.Store("other.example\n")
	require.NoError(t, s.Refresh(context.Background()))
	_, ok = s.LookupHost([]string{"other.example"})
	assert.True(t, ok)
	got = s.LookupURLs([]string{"http://evil.example/bad.exe"})
	assert.Len(t, got, 1, "url feed still empty, previous data kept")
}

func TestSnapshotPersistRestore(t *testing.T) {
	urls := newFeedServer(sampleCSV)
	defer urls.srv.Close()
	hosts := newFeedServer("bad.example\n")
	defer hosts.srv.Close()

	dir := t.TempDir()
	s1 := NewStore(Config{
		URLFeedURL:  urls.srv.URL,
		HostFeedURL: hosts.srv.URL,
		DataDir:     dir,
		HTTPClient:  &http.Client{Timeout: 2 * time.Second},
	})
	require.NoError(t, s1.Refresh(context.Background()))

	// A fresh store over the same data dir restores without any download
	// and opens the ready gate immediately.
	s2 := NewStore(Config{
		URLFeedURL:  "http://127.0.0.1:0/unreachable",
		HostFeedURL: "http://127.0.0.1:0/unreachable",
		DataDir:     dir,
		HTTPClient:  &http.Client{Timeout: 100 * time.Millisecond},
	})
	require.False(t, s2.Ready())
	require.True(t, s2.RestoreSnapshot())
	require.True(t, s2.Ready())

	got := s2.LookupURLs([]string{"http://evil.example/bad.exe"})
	require.Len(t, got, 1)
	assert.Equal(t, "3395723", got[0].ID)
	_, ok := s2.LookupHost([]string{"bad.example"})
	assert.True(t, ok)
}

func TestRestoreSnapshotMissing(t *testing.T) {
	s := NewStore(Config{DataDir: t.TempDir()})
	assert.False(t, s.RestoreSnapshot())
	assert.False(t, s.Ready())
}

func TestWaitReady(t *testing.T) {
	urls := newFeedServer(sampleCSV)
	defer urls.srv.Close()
	hosts := newFeedServer("bad.example\n")
	defer hosts.srv.Close()

	s := newTestStore(t, urls, hosts)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	assert.Error(t, s.WaitReady(ctx), "gate must stay closed before first load")

	done := make(chan error, 1)
	go func() { done <- s.WaitReady(context.Background()) }()
	require.NoError(t, s.Refresh(context.Background()))

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("WaitReady did not unblock after refresh")
	}
}

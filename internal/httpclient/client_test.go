package httpclient

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestHeaderInjection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("User-Agent") != "metahkg-redirect-test" {
			t.Fatalf("expected header injected, got %q", r.Header.Get("User-Agent"))
		}
		w.WriteHeader(200)
	}))
	defer srv.Close()

	client := New(Config{
		Timeout: 1 * time.Second,
		Headers: http.Header{"User-Agent": []string{"metahkg-redirect-test"}},
	})
	resp, err := client.Get(srv.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	resp.Body.Close()
}

func TestRetry(t *testing.T) {
	t.Run("5xx", func(t *testing.T) {
		attempts := 0
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			attempts++
			if attempts < 3 {
				w.WriteHeader(500)
				return
			}
			w.WriteHeader(200)
		}))
		defer srv.Close()

		client := New(Config{Timeout: 1 * time.Second, Retries: 2})
		resp, err := client.Get(srv.URL)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if resp.StatusCode != 200 {
			t.Fatalf("expected final 200, got %d", resp.StatusCode)
		}
		if attempts != 3 {
			t.Fatalf("expected 3 attempts, got %d", attempts)
		}
		resp.Body.Close()
	})

	t.Run("network error", func(t *testing.T) {
		attempts := 0
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			attempts++
			if attempts == 1 {
				hj, _ := w.(http.Hijacker)
				conn, _, _ := hj.Hijack()
				conn.Close()
				return
			}
			w.WriteHeader(200)
		}))
		defer srv.Close()

		client := New(Config{Timeout: 1 * time.Second, Retries: 1})
		resp, err := client.Get(srv.URL)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if attempts != 2 {
			t.Fatalf("expected 2 attempts, got %d", attempts)
		}
		resp.Body.Close()
	})
}

func TestCheckRedirect(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/hop", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/final", http.StatusFound)
	})
	mux.HandleFunc("/final", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(200)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	wantErr := errors.New("redirect refused")
	client := New(Config{
		Timeout: 1 * time.Second,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return wantErr
		},
	})
	_, err := client.Get(srv.URL + "/hop")
	if err == nil || !errors.Is(err, wantErr) {
		t.Fatalf("expected redirect refusal, got %v", err)
	}
}

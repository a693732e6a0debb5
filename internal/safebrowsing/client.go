// Package safebrowsing implements the Google Safe Browsing v4
// threatMatches:find lookup. This is the one upstream dependency treated as
// load-bearing: a failed lookup fails the whole evaluation.
package safebrowsing

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/metahkg/metahkg-redirect/internal/httpclient"
	"github.com/metahkg/metahkg-redirect/internal/model"
)

// DefaultEndpoint is the production API host. Tests point the client at an
// httptest server instead.
const DefaultEndpoint = "https://safebrowsing.googleapis.com"

var threatTypes = []string{
	"MALWARE",
	"SOCIAL_ENGINEERING",
	"UNWANTED_SOFTWARE",
	"POTENTIALLY_HARMFUL_APPLICATION",
}

type clientInfo struct {
	ClientID      string `json:"clientId"`
	ClientVersion string `json:"clientVersion"`
}

type threatInfo struct {
	ThreatTypes      []string            `json:"threatTypes"`
	PlatformTypes    []string            `json:"platformTypes"`
	ThreatEntryTypes []string            `json:"threatEntryTypes"`
	ThreatEntries    []model.ThreatEntry `json:"threatEntries"`
}

type findRequest struct {
	Client     clientInfo `json:"client"`
	ThreatInfo threatInfo `json:"threatInfo"`
}

type findResponse struct {
	Matches []model.ThreatMatch `json:"matches"`
}

// Client queries the threatMatches:find endpoint.
type Client struct {
	apiKey   string
	endpoint string
	http     *http.Client
}

// New creates a Client. An empty endpoint selects DefaultEndpoint.
func New(apiKey, endpoint string) *Client {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	return &Client{
		apiKey:   apiKey,
		endpoint: endpoint,
		http:     httpclient.New(httpclient.Config{Timeout: 10 * time.Second, Retries: 1}),
	}
}

// FindThreatMatches looks up every URL variant and returns the matches.
// The returned slice is empty, never nil, when nothing matched. Any
// transport, HTTP, or decoding failure is returned as an error.
func (c *Client) FindThreatMatches(ctx context.Context, urls []string) ([]model.ThreatMatch, error) {
	entries := make([]model.ThreatEntry, 0, len(urls))
	for _, u := range urls {
		entries = append(entries, model.ThreatEntry{URL: u})
	}

	body, err := json.Marshal(findRequest{
		Client: clientInfo{ClientID: "metahkg-redirect", ClientVersion: "1.0.0"},
		ThreatInfo: threatInfo{
			ThreatTypes:      threatTypes,
			PlatformTypes:    []string{"ANY_PLATFORM"},
			ThreatEntryTypes: []string{"URL"},
			ThreatEntries:    entries,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal safebrowsing request: %w", err)
	}

	endpoint := c.endpoint + "/v4/threatMatches:find?key=" + url.QueryEscape(c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build safebrowsing request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("safebrowsing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("safebrowsing API returned %d", resp.StatusCode)
	}

	var out findResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode safebrowsing response: %w", err)
	}
	if out.Matches == nil {
		out.Matches = []model.ThreatMatch{}
	}
	return out.Matches, nil
}

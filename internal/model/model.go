package model

import "fmt"

// URLThreat is one entry of the URLHaus online-URLs feed. Field names follow
// the CSV columns published by urlhaus.abuse.ch.
type URLThreat struct {
	ID          string `json:"id"`
	DateAdded   string `json:"dateadded"`
	URL         string `json:"url"`
	URLStatus   string `json:"url_status"`
	LastOnline  string `json:"last_online"`
	Threat      string `json:"threat"`
	Tags        string `json:"tags"`
	URLHausLink string `json:"urlhaus_link"`
	Reporter    string `json:"reporter"`
}

// ThreatEntry is a single URL entry in a Safe Browsing request or match.
type ThreatEntry struct {
	URL string `json:"url"`
}

// ThreatMatch mirrors a Safe Browsing v4 threatMatches entry.
type ThreatMatch struct {
	ThreatType      string      `json:"threatType"`
	PlatformType    string      `json:"platformType,omitempty"`
	ThreatEntryType string      `json:"threatEntryType,omitempty"`
	Threat          ThreatEntry `json:"threat"`
	CacheDuration   string      `json:"cacheDuration,omitempty"`
}

// Verdict is the result of one URL evaluation. Redirects is a pointer so the
// field is omitted entirely when the URL was unreachable and no redirect
// determination could be made. The threat slices are never nil.
type Verdict struct {
	Unsafe              bool          `json:"unsafe"`
	Malicious           bool          `json:"malicious"`
	MaliciousHost       string        `json:"maliciousHost,omitempty"`
	Reachable           bool          `json:"reachable"`
	Redirects           *bool         `json:"redirects,omitempty"`
	RedirectURL         string        `json:"redirectUrl,omitempty"`
	Tracking            bool          `json:"tracking"`
	TidyURL             string        `json:"tidyUrl,omitempty"`
	SafebrowsingThreats []ThreatMatch `json:"safebrowsingThreats"`
	URLHausThreats      []URLThreat   `json:"urlhausThreats"`
}

// StatusError is the structured error shape returned to callers in place of
// a Verdict. It serializes as {"statusCode": ..., "error": ...}.
type StatusError struct {
	Code    int    `json:"statusCode"`
	Message string `json:"error"`
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%d: %s", e.Code, e.Message)
}

// Terminal evaluation errors. The messages are part of the API contract.
var (
	ErrInvalidURL  = &StatusError{Code: 400, Message: "Invalid URL"}
	ErrForbidden   = &StatusError{Code: 403, Message: "Forbidden"}
	ErrRateLimited = &StatusError{Code: 429, Message: "Too many requests"}
	ErrUpstream    = &StatusError{Code: 500, Message: "Internal server error."}
)

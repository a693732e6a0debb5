// Package tidy strips known tracking parameters from URLs. A cleaned URL
// differing from its input is how the pipeline detects tracking.
package tidy

import (
	"net/url"
	"strings"
)

// trackingPrefixes match any parameter starting with the prefix.
var trackingPrefixes = []string{
	"utm_",
	"uta_",
	"pk_",
	"mtm_",
	"hsa_",
	"oly_",
	"vero_",
	"matomo_",
	"piwik_",
}

// trackingParams are removed on exact (case-insensitive) match.
var trackingParams = map[string]struct{}{
	"fbclid":          {},
	"gclid":           {},
	"gclsrc":          {},
	"dclid":           {},
	"msclkid":         {},
	"twclid":          {},
	"yclid":           {},
	"igshid":          {},
	"igsh":            {},
	"si":              {},
	"mc_cid":          {},
	"mc_eid":          {},
	"mkt_tok":         {},
	"_hsenc":          {},
	"_hsmi":           {},
	"_openstat":       {},
	"s_kwcid":         {},
	"sc_cid":          {},
	"spm":             {},
	"cmpid":           {},
	"ito":             {},
	"wickedid":        {},
	"fb_action_ids":   {},
	"fb_action_types": {},
	"fb_source":       {},
	"ref_src":         {},
	"ref_url":         {},
	"soc_src":         {},
	"soc_trk":         {},
}

// Clean returns raw with tracking query parameters removed. All other
// parameters keep their relative order and encoding. Input that does not
// parse, or carries no query, is returned unchanged.
func Clean(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.RawQuery == "" {
		return raw
	}

	pairs := strings.Split(u.RawQuery, "&")
	kept := pairs[:0]
	changed := false
	for _, pair := range pairs {
		key := pair
		if i := strings.IndexByte(pair, '='); i >= 0 {
			key = pair[:i]
		}
		if decoded, err := url.QueryUnescape(key); err == nil {
			key = decoded
		}
		if isTracking(strings.ToLower(key)) {
			changed = true
			continue
		}
		kept = append(kept, pair)
	}
	if !changed {
		return raw
	}

	u.RawQuery = strings.Join(kept, "&")
	u.ForceQuery = false
	return u.String()
}

func isTracking(key string) bool {
	if _, ok := trackingParams[key]; ok {
		return true
	}
	for _, p := range trackingPrefixes {
		if strings.HasPrefix(key, p) {
			return true
		}
	}
	return false
}

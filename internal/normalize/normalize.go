// Package normalize derives the comparison variants of a URL that threat
// lists are matched against.
package normalize

import (
	"net/url"
	"strings"
)

// CheckVariants returns the lookup variants for raw, in order: the
// scheme-stripped form, the scheme-flipped form (http<->https), origin+path
// with the query removed (only when that differs from raw), the origin alone,
// and raw itself. Empty and duplicate entries are dropped. If raw does not
// parse as a URL only the scheme-flip and raw variants are produced.
func CheckVariants(raw string) []string {
	u, err := url.Parse(raw)
	if err != nil {
		u = nil
	}

	var variants []string
	if u != nil && u.Scheme != "" {
		variants = append(variants, strings.TrimPrefix(raw, u.Scheme+"://"))
	}
	variants = append(variants, flipScheme(raw))
	if u != nil && u.Host != "" {
		origin := u.Scheme + "://" + u.Host
		if noQuery := origin + u.Path; noQuery != raw {
			variants = append(variants, noQuery)
		}
		variants = append(variants, origin)
	}
	variants = append(variants, raw)

	return Merge(variants)
}

// Merge unions variant lists, preserving first-seen order and dropping
// empty strings.
func Merge(lists ...[]string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, list := range lists {
		for _, v := range list {
			if v == "" {
				continue
			}
			if _, ok := seen[v]; ok {
				continue
			}
			seen[v] = struct{}{}
			out = append(out, v)
		}
	}
	return out
}

func flipScheme(raw string) string {
	switch {
	case strings.HasPrefix(raw, "https://"):
		return "http://" + strings.TrimPrefix(raw, "https://")
	case strings.HasPrefix(raw, "http://"):
		return "https://" + strings.TrimPrefix(raw, "http://")
	}
	return raw
}

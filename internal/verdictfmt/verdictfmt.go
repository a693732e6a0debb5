// Package verdictfmt renders verdicts for terminal output.
package verdictfmt

import (
	"fmt"
	"io"

	"github.com/fatih/color"

	"github.com/metahkg/metahkg-redirect/internal/model"
)

var (
	safeColor = color.New(color.FgGreen, color.Bold)
	warnColor = color.New(color.FgYellow)
	dangColor = color.New(color.FgRed, color.Bold)
	grayColor = color.New(color.FgHiBlack)
)

// Fprint writes a human-readable rendering of the verdict for rawURL.
func Fprint(w io.Writer, rawURL string, v *model.Verdict) {
	fmt.Fprintln(w, rawURL)

	if v.Unsafe {
		_, _ = dangColor.Fprintln(w, "  UNSAFE")
	} else {
		_, _ = safeColor.Fprintln(w, "  safe")
	}

	if v.Reachable {
		fmt.Fprintln(w, "  reachable: yes")
	} else {
		_, _ = warnColor.Fprintln(w, "  reachable: no")
	}

	if v.Redirects != nil && *v.Redirects {
		_, _ = warnColor.Fprintf(w, "  redirects to: %s\n", v.RedirectURL)
	}
	if v.Tracking {
		_, _ = warnColor.Fprintf(w, "  tracking params, clean: %s\n", v.TidyURL)
	}
	if v.Malicious {
		_, _ = dangColor.Fprintf(w, "  malicious host: %s\n", v.MaliciousHost)
	}
	for _, m := range v.SafebrowsingThreats {
		_, _ = dangColor.Fprintf(w, "  safebrowsing: %s %s\n", m.ThreatType, m.Threat.URL)
	}
	for _, u := range v.URLHausThreats {
		_, _ = dangColor.Fprintf(w, "  urlhaus: %s %s\n", u.Threat, u.URL)
		if u.URLHausLink != "" {
			_, _ = grayColor.Fprintf(w, "    %s\n", u.URLHausLink)
		}
	}
}

// FprintError writes a structured evaluation error.
func FprintError(w io.Writer, se *model.StatusError) {
	_, _ = dangColor.Fprintf(w, "error %d: %s\n", se.Code, se.Message)
}

// Command urlsafe queries a running metahkg-redirect service and prints the
// safety verdict for one URL.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/fatih/color"

	"github.com/metahkg/metahkg-redirect/internal/model"
	"github.com/metahkg/metahkg-redirect/internal/verdictfmt"
)

type options struct {
	server   string
	timeout  time.Duration
	noBanner bool
}

func main() {
	opts, target := parseFlags()
	if !opts.noBanner {
		printBanner()
	}
	code, err := run(opts, target)
	if err != nil {
		fmt.Fprintf(os.Stderr, "[-] Error: %v\n", err)
		os.Exit(1)
	}
	os.Exit(code)
}

func parseFlags() (options, string) {
	var opts options
	flag.StringVar(&opts.server, "server", "http://localhost:3000", "Service base URL")
	flag.DurationVar(&opts.timeout, "timeout", 15*time.Second, "Request timeout")
	flag.BoolVar(&opts.noBanner, "no-banner", false, "Suppress the banner")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: urlsafe [flags] <url>")
		flag.PrintDefaults()
		os.Exit(2)
	}
	return opts, flag.Arg(0)
}

func printBanner() {
	figure.NewColorFigure("URLSAFE", "doom", "cyan", true).Print()
	_, _ = color.New(color.FgCyan).Println("════════════════════════════════════════════════")
}

// run queries the service and renders the result. The exit code is 0 for a
// safe URL, 2 for an unsafe one.
func run(opts options, target string) (int, error) {
	endpoint := opts.server + "/api/info?url=" + url.QueryEscape(target)

	client := &http.Client{Timeout: opts.timeout}
	resp, err := client.Get(endpoint)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return 0, err
	}

	if resp.StatusCode != http.StatusOK {
		var se model.StatusError
		if err := json.Unmarshal(body, &se); err != nil || se.Code == 0 {
			return 0, fmt.Errorf("unexpected response %d: %s", resp.StatusCode, body)
		}
		verdictfmt.FprintError(os.Stderr, &se)
		return 1, nil
	}

	var v model.Verdict
	if err := json.Unmarshal(body, &v); err != nil {
		return 0, fmt.Errorf("decode response: %w", err)
	}
	verdictfmt.Fprint(os.Stdout, target, &v)
	if v.Unsafe {
		return 2, nil
	}
	return 0, nil
}

package feed

import (
	"encoding/csv"
	"errors"
	"io"
	"strings"

	"github.com/metahkg/metahkg-redirect/internal/model"
)

// defaultColumns is the documented column order of the URLHaus csv_online
// feed, used when the feed carries no parseable header comment.
var defaultColumns = []string{
	"id", "dateadded", "url", "url_status", "last_online",
	"threat", "tags", "urlhaus_link", "reporter",
}

// parseURLFeed parses the URLHaus CSV. Lines starting with '#' are comments;
// the last comment line before the first data row names the columns.
func parseURLFeed(body string) []model.URLThreat {
	trimmed := strings.TrimSpace(body)
	if trimmed == "" {
		return nil
	}

	columns := defaultColumns
	var lastComment string
	for _, line := range strings.Split(trimmed, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "#") {
			lastComment = line
			continue
		}
		if cols := parseHeaderComment(lastComment); cols != nil {
			columns = cols
		}
		break
	}

	r := csv.NewReader(strings.NewReader(trimmed))
	r.Comment = '#'
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	var threats []model.URLThreat
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			continue
		}
		t := recordToThreat(rec, columns)
		if t.URL == "" {
			continue
		}
		threats = append(threats, t)
	}
	return threats
}

func parseHeaderComment(comment string) []string {
	comment = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(comment), "#"))
	if !strings.Contains(comment, ",") {
		return nil
	}
	parts := strings.Split(comment, ",")
	cols := make([]string, 0, len(parts))
	hasURL := false
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "url" {
			hasURL = true
		}
		cols = append(cols, p)
	}
	if !hasURL {
		return nil
	}
	return cols
}

func recordToThreat(rec, columns []string) model.URLThreat {
	var t model.URLThreat
	for i, col := range columns {
		if i >= len(rec) {
			break
		}
		v := strings.TrimSpace(rec[i])
		switch col {
		case "id":
			t.ID = v
		case "dateadded":
			t.DateAdded = v
		case "url":
			t.URL = v
		case "url_status":
			t.URLStatus = v
		case "last_online":
			t.LastOnline = v
		case "threat":
			t.Threat = v
		case "tags":
			t.Tags = v
		case "urlhaus_link":
			t.URLHausLink = v
		case "reporter":
			t.Reporter = v
		}
	}
	return t
}

// parseHostFeed parses a newline-delimited host list with '#' comments.
func parseHostFeed(body string) []string {
	var hosts []string
	for _, line := range strings.Split(strings.TrimSpace(body), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		hosts = append(hosts, strings.ToLower(line))
	}
	return hosts
}

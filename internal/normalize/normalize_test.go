package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCheckVariants(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want []string
	}{
		{
			name: "full url with query",
			raw:  "https://example.com/path?q=1",
			want: []string{
				"example.com/path?q=1",
				"http://example.com/path?q=1",
				"https://example.com/path",
				"https://example.com",
				"https://example.com/path?q=1",
			},
		},
		{
			name: "origin only collapses",
			raw:  "https://example.com",
			want: []string{
				"example.com",
				"http://example.com",
				"https://example.com",
			},
		},
		{
			name: "http flips to https",
			raw:  "http://example.com/a",
			want: []string{
				"example.com/a",
				"https://example.com/a",
				"http://example.com",
				"http://example.com/a",
			},
		},
		{
			name: "port kept in origin",
			raw:  "http://example.com:8080/a?x=1",
			want: []string{
				"example.com:8080/a?x=1",
				"https://example.com:8080/a?x=1",
				"http://example.com:8080/a",
				"http://example.com:8080",
				"http://example.com:8080/a?x=1",
			},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, CheckVariants(tc.raw))
		})
	}
}

func TestCheckVariantsUnparseable(t *testing.T) {
	// Invalid percent-encoding makes url.Parse fail; only the literal
	// variants survive.
	raw := "http://example.com/%zz"
	got := CheckVariants(raw)
	assert.Equal(t, []string{"https://example.com/%zz", raw}, got)
}

func TestCheckVariantsNoDuplicatesNoEmpties(t *testing.T) {
	for _, raw := range []string{
		"https://example.com/?utm_source=x",
		"http://example.com",
		"https://example.com/a/b/c",
		"not a url at all",
	} {
		got := CheckVariants(raw)
		seen := make(map[string]bool)
		for _, v := range got {
			if v == "" {
				t.Fatalf("empty variant for %q", raw)
			}
			if seen[v] {
				t.Fatalf("duplicate variant %q for %q", v, raw)
			}
			seen[v] = true
		}
	}
}

func TestMerge(t *testing.T) {
	got := Merge([]string{"a", "b", ""}, []string{"b", "c"})
	assert.Equal(t, []string{"a", "b", "c"}, got)
}

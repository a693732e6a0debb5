package feed

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleCSV = `################################################################
# abuse.ch URLhaus Database Dump (CSV - online URLs only)      #
# Last updated: 2025-01-01 07:15:04 UTC                        #
################################################################
#
# id,dateadded,url,url_status,last_online,threat,tags,urlhaus_link,reporter
"3395723","2025-01-01 07:01:07","http://evil.example/bad.exe","online","2025-01-01 07:01:07","malware_download","exe","https://urlhaus.abuse.ch/url/3395723/","abuse_ch"
"3395724","2025-01-01 07:02:42","https://mal.example/drop","online","2025-01-01 07:02:42","malware_download","elf","https://urlhaus.abuse.ch/url/3395724/","abuse_ch"
`

func TestParseURLFeed(t *testing.T) {
	threats := parseURLFeed(sampleCSV)
	require.Len(t, threats, 2)

	assert.Equal(t, "3395723", threats[0].ID)
	assert.Equal(t, "http://evil.example/bad.exe", threats[0].URL)
	assert.Equal(t, "online", threats[0].URLStatus)
	assert.Equal(t, "malware_download", threats[0].Threat)
	assert.Equal(t, "exe", threats[0].Tags)
	assert.Equal(t, "https://urlhaus.abuse.ch/url/3395723/", threats[0].URLHausLink)
	assert.Equal(t, "abuse_ch", threats[0].Reporter)
	assert.Equal(t, "https://mal.example/drop", threats[1].URL)
}

func TestParseURLFeedHeaderOverride(t *testing.T) {
	// A feed with fewer columns, declared in the header comment.
	body := "# id,url,threat\n" +
		"\"1\",\"http://evil.example/a\",\"malware_download\"\n"
	threats := parseURLFeed(body)
	require.Len(t, threats, 1)
	assert.Equal(t, "1", threats[0].ID)
	assert.Equal(t, "http://evil.example/a", threats[0].URL)
	assert.Equal(t, "malware_download", threats[0].Threat)
	assert.Empty(t, threats[0].Reporter)
}

func TestParseURLFeedEdgeCases(t *testing.T) {
	assert.Nil(t, parseURLFeed(""))
	assert.Nil(t, parseURLFeed("# only comments\n# nothing else\n"))

	// Rows without a URL are dropped.
	body := "# id,url,threat\n\"1\",\"\",\"x\"\n"
	assert.Nil(t, parseURLFeed(body))
}

func TestParseHostFeed(t *testing.T) {
	body := `# Title: URLhaus filter - domains
# comment line
evil.example
MAL.example

bad.example
`
	hosts := parseHostFeed(body)
	assert.Equal(t, []string{"evil.example", "mal.example", "bad.example"}, hosts)
}

func TestParseHostFeedEmpty(t *testing.T) {
	assert.Nil(t, parseHostFeed(""))
	assert.Nil(t, parseHostFeed("# nothing\n"))
}

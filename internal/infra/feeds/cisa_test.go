package feeds

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleFeed = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
  <channel>
    <title>CISA Alerts</title>
    <item>
      <title>AA26-042A: Ransomware Targeting Energy Sector</title>
      <description>Joint advisory on ransomware activity against grid operators.</description>
      <link>https://www.cisa.gov/news-events/alerts/aa26-042a</link>
      <pubDate>Tue, 10 Feb 2026 12:00:00 GMT</pubDate>
    </item>
    <item>
      <title>AA26-043B: ICS Vulnerability Advisory</title>
      <description>Multiple vulnerabilities in SCADA firmware.</description>
      <link></link>
      <pubDate>Wed, 11 Feb 2026 09:00:00 GMT</pubDate>
    </item>
  </channel>
</rss>`

func TestCISAClientFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		w.Write([]byte(sampleFeed))
	}))
	defer srv.Close()

	client := NewCISAClient(srv.URL)
	items, err := client.Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 2)

	assert.Equal(t, "AA26-042A: Ransomware Targeting Energy Sector", items[0].Title)
	assert.Equal(t, "Joint advisory on ransomware activity against grid operators.", items[0].Description)
	assert.Equal(t, "https://www.cisa.gov/news-events/alerts/aa26-042a", items[0].Source)
	assert.NotEmpty(t, items[0].ID)

	// a missing link falls back to the feed name
	assert.Equal(t, "CISA Alerts", items[1].Source)

	assert.NotEqual(t, items[0].ID, items[1].ID)
}

func TestCISAClientFetch_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream down", http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := NewCISAClient(srv.URL).Fetch(context.Background())
	assert.Error(t, err)
}

func TestCISAClientFetch_MalformedXML(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<rss><channel><item></rss>"))
	}))
	defer srv.Close()

	_, err := NewCISAClient(srv.URL).Fetch(context.Background())
	assert.Error(t, err)
}

func TestNewCISAClient_DefaultURL(t *testing.T) {
	c := NewCISAClient("")
	assert.Equal(t, DefaultCISAFeedURL, c.feedURL)
}

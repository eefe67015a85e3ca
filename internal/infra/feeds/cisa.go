package feeds

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/gridwatch/capri/internal/domain/threats"
)

// DefaultCISAFeedURL is the public CISA alerts RSS feed.
const DefaultCISAFeedURL = "https://www.cisa.gov/sites/default/files/feeds/alerts.xml"

type CISAClient struct {
	feedURL    string
	httpClient *http.Client
}

func NewCISAClient(feedURL string) *CISAClient {
	if feedURL == "" {
		feedURL = DefaultCISAFeedURL
	}
	return &CISAClient{
		feedURL:    feedURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

type rssFeed struct {
	Items []rssItem `xml:"channel>item"`
}

type rssItem struct {
	Title       string `xml:"title"`
	Description string `xml:"description"`
	Link        string `xml:"link"`
	PubDate     string `xml:"pubDate"`
}

// Fetch pulls the alert feed and maps entries to threat items.
func (c *CISAClient) Fetch(ctx context.Context) ([]threats.Item, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.feedURL, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch CISA feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch CISA feed: unexpected status %d", resp.StatusCode)
	}

	var feed rssFeed
	if err := xml.NewDecoder(resp.Body).Decode(&feed); err != nil {
		return nil, fmt.Errorf("decode CISA feed: %w", err)
	}

	items := make([]threats.Item, 0, len(feed.Items))
	for _, e := range feed.Items {
		source := e.Link
		if source == "" {
			source = "CISA Alerts"
		}
		items = append(items, threats.Item{
			ID:          threats.ItemID(uuid.New().String()),
			Title:       e.Title,
			Description: e.Description,
			Source:      source,
		})
	}
	return items, nil
}

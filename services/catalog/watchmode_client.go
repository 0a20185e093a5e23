package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const watchmodeBaseURL = "https://api.watchmode.com/v1"

// watchmodeClient fetches per-provider pricing and deep links. Watchmode is
// the enrichment source for availability, never the presence source, so every
// failure here degrades to "no pricing data".
type watchmodeClient struct {
	apiKey string
	httpc  *http.Client
}

func newWatchmodeClient(apiKey string, httpc *http.Client) *watchmodeClient {
	if httpc == nil {
		httpc = &http.Client{Timeout: 10 * time.Second}
	}
	return &watchmodeClient{apiKey: strings.TrimSpace(apiKey), httpc: httpc}
}

func (c *watchmodeClient) isConfigured() bool {
	return c.apiKey != ""
}

// watchmodeSource is one provider listing for a title.
type watchmodeSource struct {
	Name   string   `json:"name"`
	Type   string   `json:"type"` // sub | rent | buy
	Region string   `json:"region"`
	Price  *float64 `json:"price"`
	WebURL string   `json:"web_url"`
	Format string   `json:"format"`
}

type watchmodeSearchResult struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	IMDBID string `json:"imdb_id"`
}

type watchmodeSearchResponse struct {
	TitleResults []watchmodeSearchResult `json:"title_results"`
}

func (c *watchmodeClient) getJSON(ctx context.Context, endpoint string, query url.Values, v any) error {
	if !c.isConfigured() {
		return errors.New("watchmode api key not configured")
	}
	if query == nil {
		query = url.Values{}
	}
	query.Set("apiKey", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, watchmodeBaseURL+endpoint+"?"+query.Encode(), nil)
	if err != nil {
		return fmt.Errorf("create watchmode request: %w", err)
	}
	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("watchmode request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("watchmode API error %d on %s", resp.StatusCode, endpoint)
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode watchmode response: %w", err)
	}
	return nil
}

// sourcesByIMDBID resolves a Watchmode title id via autocomplete search on the
// IMDb id, then fetches its source listings. When the search finds nothing it
// falls back to a direct /title/{imdbID}/sources/ lookup, which works for a
// subset of titles.
func (c *watchmodeClient) sourcesByIMDBID(ctx context.Context, imdbID string) ([]watchmodeSource, error) {
	q := url.Values{}
	q.Set("search_value", imdbID)
	q.Set("search_type", "2")

	var search watchmodeSearchResponse
	if err := c.getJSON(ctx, "/autocomplete-search/", q, &search); err != nil {
		return nil, err
	}

	if len(search.TitleResults) > 0 {
		sources, err := c.titleSources(ctx, fmt.Sprintf("%d", search.TitleResults[0].ID))
		if err == nil && len(sources) > 0 {
			return sources, nil
		}
	}

	// Direct IMDb-id lookup as a fallback; not all titles resolve this way.
	sources, err := c.titleSources(ctx, imdbID)
	if err != nil {
		return nil, err
	}
	return sources, nil
}

func (c *watchmodeClient) titleSources(ctx context.Context, titleID string) ([]watchmodeSource, error) {
	q := url.Values{}
	q.Set("source_types", "sub,rent,buy")

	var sources []watchmodeSource
	if err := c.getJSON(ctx, "/title/"+titleID+"/sources/", q, &sources); err != nil {
		return nil, err
	}
	return sources, nil
}

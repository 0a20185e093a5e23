package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/sourcegraph/conc"

	"screenscout/models"
)

const (
	tmdbBaseURL   = "https://api.themoviedb.org/3"
	tmdbImageBase = "https://image.tmdb.org/t/p"

	tmdbPosterSize       = "w500"
	tmdbSearchPosterSize = "w185"
	tmdbBackdropSize     = "w1280"
	tmdbProfileSize      = "w185"
	tmdbLogoSize         = "w45"

	searchResultLimit = 10
)

// ErrMissingTMDBKey is surfaced verbatim to callers: TMDB is the mandatory
// upstream, so a missing key is fatal to every request.
var ErrMissingTMDBKey = errors.New("TMDB API key is not configured (set SCREENSCOUT_TMDB_API_KEY or apis.tmdbApiKey)")

// tmdbClient wraps the TMDB v3 API: canonical title metadata, search, and the
// regional watch-provider catalog.
type tmdbClient struct {
	apiKey string
	httpc  *http.Client
}

func newTMDBClient(apiKey string, httpc *http.Client) *tmdbClient {
	if httpc == nil {
		httpc = &http.Client{Timeout: 10 * time.Second}
	}
	return &tmdbClient{apiKey: strings.TrimSpace(apiKey), httpc: httpc}
}

func (c *tmdbClient) isConfigured() bool {
	return c.apiKey != ""
}

type tmdbGenre struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type tmdbCastMember struct {
	Name        string  `json:"name"`
	Character   string  `json:"character"`
	ProfilePath *string `json:"profile_path"`
}

type tmdbCrewMember struct {
	Name string `json:"name"`
	Job  string `json:"job"`
}

type tmdbCredits struct {
	Cast []tmdbCastMember `json:"cast"`
	Crew []tmdbCrewMember `json:"crew"`
}

type tmdbVideo struct {
	Key  string `json:"key"`
	Type string `json:"type"`
	Site string `json:"site"`
}

type tmdbVideos struct {
	Results []tmdbVideo `json:"results"`
}

type tmdbExternalIDs struct {
	IMDBID *string `json:"imdb_id"`
}

type tmdbCreator struct {
	Name string `json:"name"`
}

// tmdbTitle is the shared shape of movie and TV detail responses fetched with
// append_to_response=credits,videos,external_ids.
type tmdbTitle struct {
	ID              int64       `json:"id"`
	Title           string      `json:"title"` // movies
	Name            string      `json:"name"`  // tv
	ReleaseDate     *string     `json:"release_date"`
	FirstAirDate    *string     `json:"first_air_date"`
	PosterPath      *string     `json:"poster_path"`
	BackdropPath    *string     `json:"backdrop_path"`
	Overview        string      `json:"overview"`
	VoteAverage     float64     `json:"vote_average"`
	Runtime         *int        `json:"runtime"`          // movies
	EpisodeRunTime  []int       `json:"episode_run_time"` // tv
	NumberOfSeasons int         `json:"number_of_seasons"`
	Genres          []tmdbGenre `json:"genres"`

	Credits     *tmdbCredits     `json:"credits"`
	Videos      *tmdbVideos      `json:"videos"`
	ExternalIDs *tmdbExternalIDs `json:"external_ids"`
	CreatedBy   []tmdbCreator    `json:"created_by"` // tv
}

// displayTitle returns the title field appropriate for the media type.
func (t *tmdbTitle) displayTitle() string {
	if t.Title != "" {
		return t.Title
	}
	return t.Name
}

// imdbID returns the external IMDb id, or "" when TMDB has none on record.
func (t *tmdbTitle) imdbID() string {
	if t.ExternalIDs == nil || t.ExternalIDs.IMDBID == nil {
		return ""
	}
	return strings.TrimSpace(*t.ExternalIDs.IMDBID)
}

func (c *tmdbClient) getJSON(ctx context.Context, endpoint string, query url.Values, v any) error {
	if !c.isConfigured() {
		return ErrMissingTMDBKey
	}
	if query == nil {
		query = url.Values{}
	}
	query.Set("api_key", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, tmdbBaseURL+endpoint+"?"+query.Encode(), nil)
	if err != nil {
		return fmt.Errorf("create tmdb request: %w", err)
	}
	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("tmdb request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("tmdb API error %d on %s: %s", resp.StatusCode, endpoint, strings.TrimSpace(string(body)))
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode tmdb response: %w", err)
	}
	return nil
}

// titleDetails fetches the canonical metadata record for one title, including
// credits, videos, and external ids in a single call.
func (c *tmdbClient) titleDetails(ctx context.Context, mediaType models.MediaType, id int64) (*tmdbTitle, error) {
	endpoint := fmt.Sprintf("/movie/%d", id)
	if mediaType == models.MediaTypeTV {
		endpoint = fmt.Sprintf("/tv/%d", id)
	}
	q := url.Values{}
	q.Set("append_to_response", "credits,videos,external_ids")

	var title tmdbTitle
	if err := c.getJSON(ctx, endpoint, q, &title); err != nil {
		return nil, err
	}
	return &title, nil
}

type tmdbSearchHit struct {
	ID           int64   `json:"id"`
	Title        string  `json:"title"`
	Name         string  `json:"name"`
	ReleaseDate  *string `json:"release_date"`
	FirstAirDate *string `json:"first_air_date"`
	PosterPath   *string `json:"poster_path"`

	mediaType models.MediaType
}

type tmdbSearchPage struct {
	Results []tmdbSearchHit `json:"results"`
}

// search runs the movie and TV search endpoints in parallel, merges the two
// result sets, and ranks them: exact-prefix matches first, then substring
// matches, otherwise TMDB's own order. Truncated to 10 hits.
func (c *tmdbClient) search(ctx context.Context, query string) ([]models.SearchResult, error) {
	normalized := strings.TrimSpace(query)

	var (
		moviePage, tvPage tmdbSearchPage
		movieErr, tvErr   error
		wg                conc.WaitGroup
	)
	wg.Go(func() {
		q := url.Values{}
		q.Set("query", normalized)
		q.Set("include_adult", "false")
		movieErr = c.getJSON(ctx, "/search/movie", q, &moviePage)
	})
	wg.Go(func() {
		q := url.Values{}
		q.Set("query", normalized)
		q.Set("include_adult", "false")
		tvErr = c.getJSON(ctx, "/search/tv", q, &tvPage)
	})
	wg.Wait()
	if movieErr != nil {
		return nil, movieErr
	}
	if tvErr != nil {
		return nil, tvErr
	}

	hits := make([]tmdbSearchHit, 0, len(moviePage.Results)+len(tvPage.Results))
	for _, hit := range moviePage.Results {
		hit.mediaType = models.MediaTypeMovie
		hits = append(hits, hit)
	}
	for _, hit := range tvPage.Results {
		hit.mediaType = models.MediaTypeTV
		hits = append(hits, hit)
	}

	rankSearchHits(hits, normalized)
	if len(hits) > searchResultLimit {
		hits = hits[:searchResultLimit]
	}

	results := make([]models.SearchResult, 0, len(hits))
	for _, hit := range hits {
		title := hit.Title
		releaseDate := hit.ReleaseDate
		if hit.mediaType == models.MediaTypeTV {
			title = hit.Name
			releaseDate = hit.FirstAirDate
		}
		if title == "" {
			title = "Unknown"
		}
		results = append(results, models.SearchResult{
			ID:          hit.ID,
			Type:        hit.mediaType,
			Title:       title,
			ReleaseDate: releaseDate,
			PosterURL:   tmdbImageURL(hit.PosterPath, tmdbSearchPosterSize),
		})
	}
	return results, nil
}

// rankSearchHits orders hits by relevance to the query: titles starting with
// the query first, then titles containing it, preserving catalog order within
// each band.
func rankSearchHits(hits []tmdbSearchHit, query string) {
	queryLower := strings.ToLower(strings.TrimSpace(query))
	score := func(h tmdbSearchHit) int {
		title := strings.ToLower(h.Title)
		if h.mediaType == models.MediaTypeTV {
			title = strings.ToLower(h.Name)
		}
		switch {
		case strings.HasPrefix(title, queryLower):
			return 0
		case strings.Contains(title, queryLower):
			return 1
		default:
			return 2
		}
	}
	sort.SliceStable(hits, func(i, j int) bool {
		return score(hits[i]) < score(hits[j])
	})
}

type tmdbProvider struct {
	ProviderID   int64   `json:"provider_id"`
	ProviderName string  `json:"provider_name"`
	LogoPath     *string `json:"logo_path"`
}

// tmdbProviderRegion is one region's entry in the watch-provider catalog.
type tmdbProviderRegion struct {
	Link     string         `json:"link"`
	Flatrate []tmdbProvider `json:"flatrate"`
	Rent     []tmdbProvider `json:"rent"`
	Buy      []tmdbProvider `json:"buy"`
}

type tmdbProviderResponse struct {
	Results map[string]tmdbProviderRegion `json:"results"`
}

// watchProviders fetches the full region→providers map for a title.
func (c *tmdbClient) watchProviders(ctx context.Context, mediaType models.MediaType, id int64) (map[string]tmdbProviderRegion, error) {
	endpoint := fmt.Sprintf("/movie/%d/watch/providers", id)
	if mediaType == models.MediaTypeTV {
		endpoint = fmt.Sprintf("/tv/%d/watch/providers", id)
	}
	var resp tmdbProviderResponse
	if err := c.getJSON(ctx, endpoint, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Results, nil
}

// tmdbImageURL builds a full image URL for a TMDB image path, or nil when the
// path is absent.
func tmdbImageURL(path *string, size string) *string {
	if path == nil || *path == "" {
		return nil
	}
	u := tmdbImageBase + "/" + size + *path
	return &u
}

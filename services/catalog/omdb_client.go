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

	"screenscout/models"
)

const omdbBaseURL = "https://www.omdbapi.com"

// omdbClient fetches IMDb / Metacritic / Rotten Tomatoes ratings. Ratings are
// supplementary, so every method fails soft: callers get all-nil fields
// rather than an error.
type omdbClient struct {
	apiKey string
	httpc  *http.Client
}

func newOMDbClient(apiKey string, httpc *http.Client) *omdbClient {
	if httpc == nil {
		httpc = &http.Client{Timeout: 10 * time.Second}
	}
	return &omdbClient{apiKey: strings.TrimSpace(apiKey), httpc: httpc}
}

func (c *omdbClient) isConfigured() bool {
	return c.apiKey != ""
}

type omdbRating struct {
	Source string `json:"Source"`
	Value  string `json:"Value"`
}

type omdbResponse struct {
	Response   string       `json:"Response"`
	Error      string       `json:"Error"`
	IMDBRating string       `json:"imdbRating"`
	Metascore  string       `json:"Metascore"`
	Ratings    []omdbRating `json:"Ratings"`
}

// ratings looks up a title by IMDb id. The error return exists only for
// logging; the Ratings value is always usable.
func (c *omdbClient) ratings(ctx context.Context, imdbID string) (models.Ratings, error) {
	if !c.isConfigured() {
		return models.Ratings{}, errors.New("omdb api key not configured")
	}

	q := url.Values{}
	q.Set("i", imdbID)
	q.Set("apikey", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, omdbBaseURL+"/?"+q.Encode(), nil)
	if err != nil {
		return models.Ratings{}, fmt.Errorf("create omdb request: %w", err)
	}
	resp, err := c.httpc.Do(req)
	if err != nil {
		return models.Ratings{}, fmt.Errorf("omdb request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return models.Ratings{}, fmt.Errorf("omdb API error %d", resp.StatusCode)
	}

	var body omdbResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return models.Ratings{}, fmt.Errorf("decode omdb response: %w", err)
	}
	if body.Response == "False" {
		return models.Ratings{}, fmt.Errorf("omdb: %s", body.Error)
	}

	var ratings models.Ratings
	if v := omdbValue(body.IMDBRating); v != nil {
		ratings.IMDB = v
	}
	if v := omdbValue(body.Metascore); v != nil {
		ratings.Metascore = v
	}
	for _, r := range body.Ratings {
		if r.Source != "Rotten Tomatoes" {
			continue
		}
		if v := omdbValue(strings.TrimSuffix(r.Value, "%")); v != nil {
			ratings.RottenTomatoes = v
		}
		break
	}
	return ratings, nil
}

// omdbValue filters OMDb's "N/A" placeholder down to a real nil.
func omdbValue(raw string) *string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" || trimmed == "N/A" {
		return nil
	}
	return &trimmed
}

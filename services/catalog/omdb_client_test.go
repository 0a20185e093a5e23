package catalog

import (
	"context"
	"net/http"
	"testing"
)

func TestRatingsFiltersPlaceholders(t *testing.T) {
	client := newOMDbClient("omdb-key", &http.Client{Transport: roundTripFunc(func(req *http.Request) (*http.Response, error) {
		if got := req.URL.Query().Get("i"); got != "tt0133093" {
			t.Errorf("expected imdb id lookup, got i=%q", got)
		}
		return jsonResponse(http.StatusOK, `{
			"Response": "True",
			"imdbRating": "8.7",
			"Metascore": "N/A",
			"Ratings": [
				{"Source": "Internet Movie Database", "Value": "8.7/10"},
				{"Source": "Rotten Tomatoes", "Value": "83%"}
			]
		}`), nil
	})})

	ratings, err := client.ratings(context.Background(), "tt0133093")
	if err != nil {
		t.Fatalf("ratings: %v", err)
	}
	if ratings.IMDB == nil || *ratings.IMDB != "8.7" {
		t.Errorf("expected imdb 8.7, got %v", ratings.IMDB)
	}
	if ratings.Metascore != nil {
		t.Errorf("N/A metascore must map to nil, got %v", ratings.Metascore)
	}
	if ratings.RottenTomatoes == nil || *ratings.RottenTomatoes != "83" {
		t.Errorf("expected RT 83 with %% stripped, got %v", ratings.RottenTomatoes)
	}
}

func TestRatingsErrorResponse(t *testing.T) {
	client := newOMDbClient("omdb-key", &http.Client{Transport: roundTripFunc(func(req *http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusOK, `{"Response":"False","Error":"Incorrect IMDb ID."}`), nil
	})})

	if _, err := client.ratings(context.Background(), "tt0000000"); err == nil {
		t.Fatal("expected error on Response=False")
	}
}

func TestRatingsWithoutKey(t *testing.T) {
	client := newOMDbClient("", nil)
	if _, err := client.ratings(context.Background(), "tt0133093"); err == nil {
		t.Fatal("expected error when OMDb key is missing")
	}
}

func TestOmdbValue(t *testing.T) {
	if omdbValue("N/A") != nil {
		t.Error("N/A must map to nil")
	}
	if omdbValue("  ") != nil {
		t.Error("blank must map to nil")
	}
	if v := omdbValue(" 73 "); v == nil || *v != "73" {
		t.Errorf("expected trimmed value, got %v", v)
	}
}

package catalog

import (
	"context"
	"net/http"
	"testing"

	"screenscout/models"
)

func TestSearchMergesAndRanks(t *testing.T) {
	client := newTMDBClient("tmdb-key", &http.Client{Transport: roundTripFunc(func(req *http.Request) (*http.Response, error) {
		if got := req.URL.Query().Get("include_adult"); got != "false" {
			t.Errorf("expected include_adult=false, got %q", got)
		}
		switch req.URL.Path {
		case "/3/search/movie":
			return jsonResponse(http.StatusOK, `{"results":[
				{"id": 1, "title": "The Matrix Resurrections", "release_date": "2021-12-22"},
				{"id": 2, "title": "Making of a Matrix", "release_date": "2001-01-01"}
			]}`), nil
		case "/3/search/tv":
			return jsonResponse(http.StatusOK, `{"results":[
				{"id": 3, "name": "Matrix", "first_air_date": "1993-03-01", "poster_path": "/m.jpg"}
			]}`), nil
		default:
			return jsonResponse(http.StatusNotFound, `{}`), nil
		}
	})})

	results, err := client.search(context.Background(), "matrix")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	// Prefix matches rank ahead of substring matches regardless of source list.
	if results[0].Title != "Matrix" || results[0].Type != models.MediaTypeTV {
		t.Errorf("expected TV prefix match first, got %+v", results[0])
	}
	if results[1].Title != "The Matrix Resurrections" {
		t.Errorf("expected substring matches after prefix matches, got %+v", results[1])
	}
	if results[0].PosterURL == nil || *results[0].PosterURL != "https://image.tmdb.org/t/p/w185/m.jpg" {
		t.Errorf("expected w185 search poster, got %v", results[0].PosterURL)
	}
}

func TestSearchTruncatesToLimit(t *testing.T) {
	page := `{"results":[
		{"id": 1, "title": "a"}, {"id": 2, "title": "b"}, {"id": 3, "title": "c"},
		{"id": 4, "title": "d"}, {"id": 5, "title": "e"}, {"id": 6, "title": "f"},
		{"id": 7, "title": "g"}, {"id": 8, "title": "h"}
	]}`
	client := newTMDBClient("tmdb-key", &http.Client{Transport: roundTripFunc(func(req *http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusOK, page), nil
	})})

	results, err := client.search(context.Background(), "letter")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(results) != searchResultLimit {
		t.Errorf("expected %d results, got %d", searchResultLimit, len(results))
	}
}

func TestSearchWithoutKeyFailsFast(t *testing.T) {
	client := newTMDBClient("", &http.Client{Transport: roundTripFunc(func(req *http.Request) (*http.Response, error) {
		t.Error("no request should be made without an API key")
		return jsonResponse(http.StatusOK, `{}`), nil
	})})

	_, err := client.search(context.Background(), "matrix")
	if err != ErrMissingTMDBKey {
		t.Errorf("expected ErrMissingTMDBKey, got %v", err)
	}
}

func TestRankSearchHitsPreservesCatalogOrderWithinBands(t *testing.T) {
	hits := []tmdbSearchHit{
		{ID: 1, Title: "Unrelated Film"},
		{ID: 2, Title: "A Dune Documentary"},
		{ID: 3, Title: "Dune: Part Two"},
		{ID: 4, Title: "Dune"},
	}
	for i := range hits {
		hits[i].mediaType = models.MediaTypeMovie
	}

	rankSearchHits(hits, "dune")

	wantOrder := []int64{3, 4, 2, 1}
	for i, want := range wantOrder {
		if hits[i].ID != want {
			t.Fatalf("rank order = %v, want ids %v", hits, wantOrder)
		}
	}
}

func TestTmdbImageURL(t *testing.T) {
	if got := tmdbImageURL(nil, tmdbPosterSize); got != nil {
		t.Errorf("nil path must yield nil URL, got %v", got)
	}
	if got := tmdbImageURL(ptr(""), tmdbPosterSize); got != nil {
		t.Errorf("empty path must yield nil URL, got %v", got)
	}
	got := tmdbImageURL(ptr("/poster.jpg"), tmdbPosterSize)
	if got == nil || *got != "https://image.tmdb.org/t/p/w500/poster.jpg" {
		t.Errorf("unexpected image URL %v", got)
	}
}

func TestTitleDetailsRequestShape(t *testing.T) {
	client := newTMDBClient("tmdb-key", &http.Client{Transport: roundTripFunc(func(req *http.Request) (*http.Response, error) {
		if req.URL.Path != "/3/tv/1396" {
			t.Errorf("unexpected path %s", req.URL.Path)
		}
		if got := req.URL.Query().Get("append_to_response"); got != "credits,videos,external_ids" {
			t.Errorf("unexpected append_to_response %q", got)
		}
		return jsonResponse(http.StatusOK, `{"id":1396,"name":"Breaking Bad"}`), nil
	})})

	title, err := client.titleDetails(context.Background(), models.MediaTypeTV, 1396)
	if err != nil {
		t.Fatalf("titleDetails: %v", err)
	}
	if title.displayTitle() != "Breaking Bad" {
		t.Errorf("expected name used as display title, got %q", title.displayTitle())
	}
}

package catalog

import (
	"context"
	"net/http"
	"testing"
)

func TestSourcesByIMDBIDResolvesViaSearch(t *testing.T) {
	var paths []string
	client := newWatchmodeClient("wm-key", &http.Client{Transport: roundTripFunc(func(req *http.Request) (*http.Response, error) {
		paths = append(paths, req.URL.Path)
		switch req.URL.Path {
		case "/v1/autocomplete-search/":
			if got := req.URL.Query().Get("search_type"); got != "2" {
				t.Errorf("expected search_type=2, got %q", got)
			}
			return jsonResponse(http.StatusOK, `{"title_results":[{"id":1234,"name":"The Matrix","imdb_id":"tt0133093"}]}`), nil
		case "/v1/title/1234/sources/":
			if got := req.URL.Query().Get("source_types"); got != "sub,rent,buy" {
				t.Errorf("expected source_types=sub,rent,buy, got %q", got)
			}
			return jsonResponse(http.StatusOK, `[{"name":"Netflix","type":"sub","region":"US","web_url":"https://www.netflix.com/title/1"}]`), nil
		default:
			return jsonResponse(http.StatusNotFound, `{}`), nil
		}
	})})

	sources, err := client.sourcesByIMDBID(context.Background(), "tt0133093")
	if err != nil {
		t.Fatalf("sourcesByIMDBID: %v", err)
	}
	if len(sources) != 1 || sources[0].Name != "Netflix" {
		t.Errorf("unexpected sources %+v", sources)
	}
	if len(paths) != 2 {
		t.Errorf("expected search then sources, got %v", paths)
	}
}

func TestSourcesByIMDBIDFallsBackToDirectLookup(t *testing.T) {
	client := newWatchmodeClient("wm-key", &http.Client{Transport: roundTripFunc(func(req *http.Request) (*http.Response, error) {
		switch req.URL.Path {
		case "/v1/autocomplete-search/":
			return jsonResponse(http.StatusOK, `{"title_results":[]}`), nil
		case "/v1/title/tt0133093/sources/":
			return jsonResponse(http.StatusOK, `[{"name":"Hulu","type":"sub","region":"US"}]`), nil
		default:
			return jsonResponse(http.StatusNotFound, `{}`), nil
		}
	})})

	sources, err := client.sourcesByIMDBID(context.Background(), "tt0133093")
	if err != nil {
		t.Fatalf("sourcesByIMDBID: %v", err)
	}
	if len(sources) != 1 || sources[0].Name != "Hulu" {
		t.Errorf("expected direct imdb-id fallback result, got %+v", sources)
	}
}

func TestSourcesByIMDBIDWithoutKey(t *testing.T) {
	client := newWatchmodeClient("", nil)
	if _, err := client.sourcesByIMDBID(context.Background(), "tt0133093"); err == nil {
		t.Fatal("expected error when Watchmode key is missing")
	}
}

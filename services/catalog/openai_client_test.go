package catalog

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"screenscout/models"
)

func TestParseOverviewResponse(t *testing.T) {
	content := "OVERVIEW: A gripping story about survival.\nSIMILAR: The Revenant, Cast Away, 127 Hours"

	got := parseOverviewResponse(content)
	if got.OverviewText != "A gripping story about survival." {
		t.Errorf("unexpected overview %q", got.OverviewText)
	}
	want := []string{"The Revenant", "Cast Away", "127 Hours"}
	if len(got.SimilarTitles) != len(want) {
		t.Fatalf("expected %d similar titles, got %v", len(want), got.SimilarTitles)
	}
	for i := range want {
		if got.SimilarTitles[i] != want[i] {
			t.Errorf("similar[%d] = %q, want %q", i, got.SimilarTitles[i], want[i])
		}
	}
}

func TestParseOverviewResponseMissingSimilar(t *testing.T) {
	got := parseOverviewResponse("Just a plain overview with no labels at all.")
	if got.OverviewText != "Just a plain overview with no labels at all." {
		t.Errorf("unlabeled response must be treated as overview text, got %q", got.OverviewText)
	}
	if len(got.SimilarTitles) != 0 {
		t.Errorf("expected no similar titles, got %v", got.SimilarTitles)
	}
	if got.SimilarTitles == nil {
		t.Error("similar titles must be an empty slice, not nil")
	}
}

func TestParseOverviewResponseCapsSimilarTitles(t *testing.T) {
	got := parseOverviewResponse("OVERVIEW: x\nSIMILAR: a, b, c, d, e")
	if len(got.SimilarTitles) != similarTitleLimit {
		t.Errorf("expected similar titles capped at %d, got %v", similarTitleLimit, got.SimilarTitles)
	}
}

func TestParseOverviewResponseSkipsEmptyEntries(t *testing.T) {
	got := parseOverviewResponse("OVERVIEW: x\nSIMILAR: a, , b,")
	want := []string{"a", "b"}
	if len(got.SimilarTitles) != len(want) || got.SimilarTitles[0] != "a" || got.SimilarTitles[1] != "b" {
		t.Errorf("expected %v, got %v", want, got.SimilarTitles)
	}
}

func TestBuildOverviewPromptIncludesContext(t *testing.T) {
	prompt := buildOverviewPrompt(overviewContext{
		Title:    "The Matrix",
		Type:     models.MediaTypeMovie,
		Year:     "1999",
		Runtime:  ptr(136),
		Genres:   []string{"Action", "Science Fiction"},
		Overview: "A hacker discovers the truth.",
	})

	for _, fragment := range []string{
		"Title: The Matrix",
		"Type: Movie",
		"Year: 1999",
		"Runtime: 136 minutes",
		"Genres: Action, Science Fiction",
		"A hacker discovers the truth.",
		"OVERVIEW:",
		"SIMILAR:",
	} {
		if !strings.Contains(prompt, fragment) {
			t.Errorf("prompt missing %q", fragment)
		}
	}
}

func TestGenerateOverviewRetriesTransientErrors(t *testing.T) {
	attempts := 0
	client := newOpenAIClient("openai-key", "gpt-4o-mini", &http.Client{Transport: roundTripFunc(func(req *http.Request) (*http.Response, error) {
		attempts++
		if attempts == 1 {
			return jsonResponse(http.StatusTooManyRequests, `{}`), nil
		}
		return jsonResponse(http.StatusOK, `{"choices":[{"message":{"content":"OVERVIEW: ok\nSIMILAR: a, b, c"}}]}`), nil
	})})
	client.minInterval = 0

	overview, err := client.generateOverview(context.Background(), overviewContext{Title: "Retry Test"})
	if err != nil {
		t.Fatalf("generateOverview: %v", err)
	}
	if attempts != 2 {
		t.Errorf("expected a retry after 429, got %d attempts", attempts)
	}
	if overview.OverviewText != "ok" {
		t.Errorf("unexpected overview %q", overview.OverviewText)
	}
}

func TestGenerateOverviewAbortsOnClientError(t *testing.T) {
	attempts := 0
	client := newOpenAIClient("openai-key", "gpt-4o-mini", &http.Client{Transport: roundTripFunc(func(req *http.Request) (*http.Response, error) {
		attempts++
		return jsonResponse(http.StatusUnauthorized, `{"error":{"message":"bad key"}}`), nil
	})})
	client.minInterval = 0

	if _, err := client.generateOverview(context.Background(), overviewContext{Title: "Abort Test"}); err == nil {
		t.Fatal("expected error on 401")
	}
	if attempts != 1 {
		t.Errorf("4xx responses must not be retried, got %d attempts", attempts)
	}
}

func TestGenerateOverviewWithoutKey(t *testing.T) {
	client := newOpenAIClient("", "", nil)
	if _, err := client.generateOverview(context.Background(), overviewContext{Title: "Unconfigured"}); err == nil {
		t.Fatal("expected error when OpenAI key is missing")
	}
}

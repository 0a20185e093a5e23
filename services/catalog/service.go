package catalog

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/sourcegraph/conc"

	"screenscout/config"
	"screenscout/models"
)

// castLimit caps the credited cast included in a title response.
const castLimit = 10

// Service aggregates the four upstream sources for one title. All state is
// immutable after construction; every method is safe for concurrent use.
type Service struct {
	tmdb      *tmdbClient
	omdb      *omdbClient
	watchmode *watchmodeClient
	openai    *openaiClient
	rules     providerRules

	// cache holds per-upstream responses; overviewCache holds generated AI
	// overviews with a much longer TTL since they are expensive to produce.
	cache         *fileCache
	overviewCache *fileCache
}

func NewService(apis config.APISettings, providers config.ProviderSettings, cacheCfg config.CacheSettings) *Service {
	cacheDir := filepath.Join(cacheCfg.Directory, "catalog")
	httpc := &http.Client{Timeout: 10 * time.Second}
	return &Service{
		tmdb:          newTMDBClient(apis.TMDBAPIKey, httpc),
		omdb:          newOMDbClient(apis.OMDbAPIKey, httpc),
		watchmode:     newWatchmodeClient(apis.WatchmodeAPIKey, httpc),
		openai:        newOpenAIClient(apis.OpenAIAPIKey, apis.OpenAIModel, nil),
		rules:         newProviderRules(providers),
		cache:         newFileCache(cacheDir, cacheCfg.MetadataTTLHours),
		overviewCache: newFileCache(filepath.Join(cacheDir, "overviews"), cacheCfg.OverviewTTLHours),
	}
}

// Search runs the dual movie/TV search and returns ranked results.
func (s *Service) Search(ctx context.Context, query string) ([]models.SearchResult, error) {
	return s.tmdb.search(ctx, query)
}

// fetchTitle returns the canonical TMDB record for a title, cached. Both the
// title endpoint and the AI overview endpoint key off this record.
func (s *Service) fetchTitle(ctx context.Context, ref models.TitleRef) (*tmdbTitle, error) {
	key := cacheKey("tmdb", "title", string(ref.Type), strconv.FormatInt(ref.ID, 10))
	var cached tmdbTitle
	if ok, _ := s.cache.get(key, &cached); ok {
		return &cached, nil
	}

	title, err := s.tmdb.titleDetails(ctx, ref.Type, ref.ID)
	if err != nil {
		return nil, err
	}
	if err := s.cache.set(key, title); err != nil {
		log.Printf("[catalog] failed to cache title %s/%d: %v", ref.Type, ref.ID, err)
	}
	return title, nil
}

// TitleDetails aggregates canonical metadata, ratings, and reconciled watch
// availability for one title. Canonical metadata is mandatory and propagates
// failure; ratings and availability degrade independently to their empty
// states so the page always renders.
func (s *Service) TitleDetails(ctx context.Context, ref models.TitleRef) (*models.TitleDetails, error) {
	title, err := s.fetchTitle(ctx, ref)
	if err != nil {
		return nil, err
	}

	imdbID := title.imdbID()

	var (
		ratings      models.Ratings
		availability models.WatchAvailability
		wg           conc.WaitGroup
	)
	wg.Go(func() {
		ratings = s.fetchRatings(ctx, imdbID)
	})
	wg.Go(func() {
		availability = s.watchAvailability(ctx, ref, imdbID, title.displayTitle())
	})
	wg.Wait()

	details := s.assembleDetails(ref, title)
	details.Ratings = ratings
	details.WatchAvailability = availability
	return details, nil
}

// fetchRatings is the soft-fail ratings path: any error, including a missing
// OMDb key or an absent IMDb id, yields all-nil fields.
func (s *Service) fetchRatings(ctx context.Context, imdbID string) models.Ratings {
	if imdbID == "" || !s.omdb.isConfigured() {
		return models.Ratings{}
	}

	key := cacheKey("omdb", "ratings", imdbID)
	var cached models.Ratings
	if ok, _ := s.cache.get(key, &cached); ok {
		return cached
	}

	ratings, err := s.omdb.ratings(ctx, imdbID)
	if err != nil {
		log.Printf("[catalog] omdb ratings failed for %s: %v", imdbID, err)
		return models.Ratings{}
	}
	if err := s.cache.set(key, ratings); err != nil {
		log.Printf("[catalog] failed to cache ratings for %s: %v", imdbID, err)
	}
	return ratings
}

// watchAvailability fetches the presence catalog and the pricing catalog
// concurrently and reconciles them. Each source degrades independently: no
// pricing still yields presence-only offers, no presence yields an empty set.
func (s *Service) watchAvailability(ctx context.Context, ref models.TitleRef, imdbID, title string) models.WatchAvailability {
	var (
		presence *tmdbProviderRegion
		sources  []watchmodeSource
		wg       conc.WaitGroup
	)
	wg.Go(func() {
		presence = s.fetchPresence(ctx, ref)
	})
	wg.Go(func() {
		sources = s.fetchSources(ctx, imdbID)
	})
	wg.Wait()

	return s.rules.reconcileProviders(presence, sources, title)
}

// fetchPresence returns the configured region's entry of the TMDB
// watch-provider catalog, or nil when the title has none there.
func (s *Service) fetchPresence(ctx context.Context, ref models.TitleRef) *tmdbProviderRegion {
	key := cacheKey("tmdb", "providers", string(ref.Type), strconv.FormatInt(ref.ID, 10))
	var cached map[string]tmdbProviderRegion
	if ok, _ := s.cache.get(key, &cached); !ok {
		regions, err := s.tmdb.watchProviders(ctx, ref.Type, ref.ID)
		if err != nil {
			log.Printf("[catalog] tmdb watch providers failed for %s/%d: %v", ref.Type, ref.ID, err)
			return nil
		}
		cached = regions
		if err := s.cache.set(key, cached); err != nil {
			log.Printf("[catalog] failed to cache watch providers for %s/%d: %v", ref.Type, ref.ID, err)
		}
	}

	region, ok := cached[s.rules.region]
	if !ok {
		return nil
	}
	return &region
}

// fetchSources returns the Watchmode listings for a title, or nil when the
// pricing source is unavailable, unconfigured, or the IMDb id is unknown.
func (s *Service) fetchSources(ctx context.Context, imdbID string) []watchmodeSource {
	if imdbID == "" || !s.watchmode.isConfigured() {
		return nil
	}

	key := cacheKey("watchmode", "sources", imdbID)
	var cached []watchmodeSource
	if ok, _ := s.cache.get(key, &cached); ok {
		return cached
	}

	sources, err := s.watchmode.sourcesByIMDBID(ctx, imdbID)
	if err != nil {
		log.Printf("[catalog] watchmode sources failed for %s: %v", imdbID, err)
		return nil
	}
	if err := s.cache.set(key, sources); err != nil {
		log.Printf("[catalog] failed to cache watchmode sources for %s: %v", imdbID, err)
	}
	return sources
}

// assembleDetails derives the display fields from the raw TMDB record.
func (s *Service) assembleDetails(ref models.TitleRef, title *tmdbTitle) *models.TitleDetails {
	details := &models.TitleDetails{
		ID:          title.ID,
		Type:        ref.Type,
		Title:       title.displayTitle(),
		Overview:    title.Overview,
		PosterURL:   tmdbImageURL(title.PosterPath, tmdbPosterSize),
		BackdropURL: tmdbImageURL(title.BackdropPath, tmdbBackdropSize),
		VoteAverage: title.VoteAverage,
		Genres:      []string{},
		Directors:   []string{},
		Creators:    []string{},
		Cast:        []models.CastMember{},
	}
	for _, genre := range title.Genres {
		details.Genres = append(details.Genres, genre.Name)
	}

	if ref.Type == models.MediaTypeMovie {
		details.ReleaseDate = title.ReleaseDate
		details.Runtime = title.Runtime
		if title.Runtime != nil && *title.Runtime > 0 {
			display := formatRuntime(*title.Runtime)
			details.RuntimeDisplay = &display
		}
		if title.Credits != nil {
			for _, member := range title.Credits.Crew {
				if member.Job == "Director" {
					details.Directors = append(details.Directors, member.Name)
				}
			}
		}
	} else {
		details.ReleaseDate = title.FirstAirDate
		if len(title.EpisodeRunTime) > 0 {
			runtime := title.EpisodeRunTime[0]
			details.Runtime = &runtime
		}
		if title.NumberOfSeasons > 0 {
			seasons := title.NumberOfSeasons
			details.Seasons = &seasons
		}
		for _, creator := range title.CreatedBy {
			details.Creators = append(details.Creators, creator.Name)
		}
	}

	if title.Credits != nil {
		for _, member := range title.Credits.Cast {
			if len(details.Cast) == castLimit {
				break
			}
			details.Cast = append(details.Cast, models.CastMember{
				Name:       member.Name,
				Character:  member.Character,
				ProfileURL: tmdbImageURL(member.ProfilePath, tmdbProfileSize),
			})
		}
	}

	if title.Videos != nil {
		for _, video := range title.Videos.Results {
			if video.Type == "Trailer" && video.Site == "YouTube" {
				key := video.Key
				details.TrailerKey = &key
				break
			}
		}
	}

	return details
}

// formatRuntime renders minutes as "2h 16m" (or "45m" under an hour).
func formatRuntime(minutes int) string {
	hours := minutes / 60
	mins := minutes % 60
	if hours == 0 {
		return fmt.Sprintf("%dm", mins)
	}
	return fmt.Sprintf("%dh %dm", hours, mins)
}

// AIOverview generates (or returns a cached) spoiler-free overview for a
// title. Generation requires the canonical metadata as prompt context, so a
// metadata failure propagates like the title endpoint's.
func (s *Service) AIOverview(ctx context.Context, ref models.TitleRef) (*models.AIOverview, error) {
	key := cacheKey("openai", "overview", string(ref.Type), strconv.FormatInt(ref.ID, 10))
	var cached models.AIOverview
	if ok, _ := s.overviewCache.get(key, &cached); ok {
		return &cached, nil
	}

	title, err := s.fetchTitle(ctx, ref)
	if err != nil {
		return nil, err
	}

	octx := overviewContext{
		Title:    title.displayTitle(),
		Type:     ref.Type,
		Year:     releaseYear(title),
		Overview: title.Overview,
	}
	for _, genre := range title.Genres {
		octx.Genres = append(octx.Genres, genre.Name)
	}
	if ref.Type == models.MediaTypeMovie {
		octx.Runtime = title.Runtime
	} else if len(title.EpisodeRunTime) > 0 {
		runtime := title.EpisodeRunTime[0]
		octx.Runtime = &runtime
	}

	overview, err := s.openai.generateOverview(ctx, octx)
	if err != nil {
		return nil, fmt.Errorf("generate overview: %w", err)
	}
	if err := s.overviewCache.set(key, overview); err != nil {
		log.Printf("[catalog] failed to cache overview for %s/%d: %v", ref.Type, ref.ID, err)
	}
	return overview, nil
}

func releaseYear(title *tmdbTitle) string {
	date := title.ReleaseDate
	if title.FirstAirDate != nil {
		date = title.FirstAirDate
	}
	if date == nil {
		return ""
	}
	if idx := strings.Index(*date, "-"); idx > 0 {
		return (*date)[:idx]
	}
	return *date
}

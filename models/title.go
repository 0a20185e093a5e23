package models

// MediaType identifies whether a title is a film or a series.
type MediaType string

const (
	MediaTypeMovie MediaType = "movie"
	MediaTypeTV    MediaType = "tv"
)

// ParseMediaType validates a raw type string from a request.
func ParseMediaType(raw string) (MediaType, bool) {
	switch MediaType(raw) {
	case MediaTypeMovie, MediaTypeTV:
		return MediaType(raw), true
	default:
		return "", false
	}
}

// TitleRef is the stable identity of one title: media type plus TMDB id.
// It is the aggregation key for title details and AI overviews.
type TitleRef struct {
	Type MediaType `json:"type"`
	ID   int64     `json:"id"`
}

// SearchResult is one entry in the /api/search response.
type SearchResult struct {
	ID          int64     `json:"id"`
	Type        MediaType `json:"type"`
	Title       string    `json:"title"`
	ReleaseDate *string   `json:"releaseDate"`
	PosterURL   *string   `json:"posterUrl"`
}

// CastMember is one credited actor, capped at 10 per title.
type CastMember struct {
	Name       string  `json:"name"`
	Character  string  `json:"character"`
	ProfileURL *string `json:"profileUrl"`
}

// Ratings holds the three external rating sources. Each field is independently
// nullable: one source missing never blocks the others.
type Ratings struct {
	IMDB           *string `json:"imdbRating"`
	Metascore      *string `json:"metascore"`
	RottenTomatoes *string `json:"rottenTomatoes"`
}

// OfferType is how a provider makes a title available.
type OfferType string

const (
	OfferStreaming OfferType = "streaming"
	OfferRent      OfferType = "rent"
	OfferBuy       OfferType = "buy"
)

// WatchOption is a single provider offer after reconciliation.
type WatchOption struct {
	Provider string    `json:"provider"`
	Type     OfferType `json:"type"`
	Price    *string   `json:"price"`
	DeepLink *string   `json:"deepLink"`
	LogoURL  *string   `json:"logoUrl"`
}

// WatchAvailability groups reconciled offers by type. Within one slice,
// normalized provider names are unique.
type WatchAvailability struct {
	Streaming []WatchOption `json:"streaming"`
	Rent      []WatchOption `json:"rent"`
	Buy       []WatchOption `json:"buy"`
}

// EmptyAvailability returns an availability set with non-nil empty slices so
// the JSON shape is stable even when nothing is available.
func EmptyAvailability() WatchAvailability {
	return WatchAvailability{
		Streaming: []WatchOption{},
		Rent:      []WatchOption{},
		Buy:       []WatchOption{},
	}
}

// AIOverview is the generated spoiler-free summary plus up to three
// similar-title suggestions.
type AIOverview struct {
	OverviewText  string   `json:"overviewText"`
	SimilarTitles []string `json:"similarTitles"`
}

// TitleDetails is the aggregated response for GET /api/title. It is a
// request-scoped value object: built, returned, discarded.
type TitleDetails struct {
	ID          int64     `json:"id"`
	Type        MediaType `json:"type"`
	Title       string    `json:"title"`
	Overview    string    `json:"overview"`
	ReleaseDate *string   `json:"releaseDate"`
	PosterURL   *string   `json:"posterUrl"`
	BackdropURL *string   `json:"backdropUrl"`
	Genres      []string  `json:"genres"`
	// Runtime is minutes for movies (or a typical episode length for TV).
	Runtime *int `json:"runtime"`
	// RuntimeDisplay is the preformatted "2h 16m" form for movies.
	RuntimeDisplay *string `json:"runtimeDisplay,omitempty"`
	Seasons        *int    `json:"seasons"`
	VoteAverage    float64 `json:"voteAverage"`

	Ratings

	Directors []string     `json:"directors"`
	Creators  []string     `json:"creators"`
	Cast      []CastMember `json:"cast"`

	// TrailerKey is the YouTube video key of the first official trailer.
	TrailerKey *string `json:"trailerKey"`

	WatchAvailability WatchAvailability `json:"watchAvailability"`

	// AIOverview is always nil here; it is generated on demand by
	// POST /api/ai-overview keyed on the same TitleRef.
	AIOverview *AIOverview `json:"aiOverview,omitempty"`
}

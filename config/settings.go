package config

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// Settings represents the application configuration persisted to disk.
// API keys may also be supplied through the environment; env values win so
// secrets can stay out of the settings file entirely.
type Settings struct {
	Server    ServerSettings   `json:"server"`
	APIs      APISettings      `json:"apis"`
	Cache     CacheSettings    `json:"cache"`
	Providers ProviderSettings `json:"providers"`
	Log       LogConfig        `json:"log"`
}

type ServerSettings struct {
	Host string `json:"host"`
	Port int    `json:"port"`
}

// APISettings holds the upstream credentials. TMDB is mandatory for every
// request; the other three degrade their feature softly when absent.
type APISettings struct {
	TMDBAPIKey      string `json:"tmdbApiKey"`
	OMDbAPIKey      string `json:"omdbApiKey"`
	WatchmodeAPIKey string `json:"watchmodeApiKey"`
	OpenAIAPIKey    string `json:"openaiApiKey"`
	OpenAIModel     string `json:"openaiModel"`
}

type CacheSettings struct {
	Directory        string `json:"directory"`
	MetadataTTLHours int    `json:"metadataTtlHours"`
	OverviewTTLHours int    `json:"overviewTtlHours"`
}

// ProviderSettings drives the watch-provider reconciliation. The allow and
// deny lists are data, not code, so they can be updated without a rebuild.
type ProviderSettings struct {
	// Region is the only watch-provider region served. No fallback to other
	// regions: a service the user cannot actually use is worse than none.
	Region string `json:"region"`
	// AllowedServices is the recognized-US-service allow list (normalized,
	// lowercase). Providers not matching any entry are dropped as catalog noise.
	AllowedServices []string `json:"allowedServices"`
	// ExcludedServices is the deny list of region-locked broadcasters. A deny
	// match drops the provider even when the regional catalog listed it.
	ExcludedServices []string `json:"excludedServices"`
	// ShowRentBuyWithStreaming keeps rent/buy offers visible even when a
	// subscription offer exists. Default false: a title already included in a
	// subscription should not be cluttered with purchase options.
	ShowRentBuyWithStreaming bool `json:"showRentBuyWithStreaming"`
}

// LogConfig represents file logging with rotation.
type LogConfig struct {
	File       string `json:"file"`
	MaxSize    int    `json:"maxSize"`
	MaxAge     int    `json:"maxAge"`
	MaxBackups int    `json:"maxBackups"`
	Compress   bool   `json:"compress"`
}

// DefaultAllowedServices is the compiled-in US streaming allow list.
var DefaultAllowedServices = []string{
	"netflix",
	"hulu",
	"disney plus",
	"disney+",
	"max",
	"hbo max",
	"hbo",
	"hbo go",
	"paramount+",
	"paramount plus",
	"peacock",
	"apple tv+",
	"apple tv plus",
	"apple tv",
	"prime video",
	"amazon prime video",
	"amazon video",
	"showtime",
	"starz",
	"crunchyroll",
	"funimation",
	"espn+",
	"youtube premium",
	"youtube tv",
	"youtube",
	"sling tv",
	"fubo",
	"philo",
	"directv stream",
	"amc+",
	"shudder",
	"tubi",
	"pluto tv",
	"crackle",
	"freevee",
	"the roku channel",
	"vudu",
	"fandango at home",
	"google play movies",
	"microsoft store",
	"plex",
	"redbox",
	"kanopy",
	"hoopla",
	"mubi",
	"criterion channel",
}

// DefaultExcludedServices is the compiled-in deny list of non-US or
// region-locked services that still show up in provider catalogs.
var DefaultExcludedServices = []string{
	"skyshowtime",
	"sky showtime",
	"sky go",
	"sky",
	"now tv",
	"nowtv",
	"stan",
	"binge",
	"foxtel",
	"hotstar",
	"movistar",
	"bbc iplayer",
	"bbc",
	"all 4",
	"itv",
	"channel 4",
	"rtl",
	"zdf",
	"ard",
	"arte",
	"canal+",
	"tf1",
	"m6",
	"rai",
	"mediaset",
	"crave",
	"hbo nordic",
	"hbo espana",
	"hbo max latino",
	"hbo max brazil",
}

// DefaultSettings returns sane defaults for a fresh install.
func DefaultSettings() Settings {
	return Settings{
		Server: ServerSettings{Host: "0.0.0.0", Port: 8484},
		APIs:   APISettings{OpenAIModel: "gpt-4o-mini"},
		Cache:  CacheSettings{Directory: "cache", MetadataTTLHours: 24, OverviewTTLHours: 24 * 7},
		Providers: ProviderSettings{
			Region:           "US",
			AllowedServices:  append([]string(nil), DefaultAllowedServices...),
			ExcludedServices: append([]string(nil), DefaultExcludedServices...),
		},
		Log: LogConfig{
			File:       "cache/logs/backend.log",
			MaxSize:    50,
			MaxBackups: 3,
			MaxAge:     7,
			Compress:   true,
		},
	}
}

// Manager loads and persists settings to a JSON file.
type Manager struct {
	path string
}

func NewManager(configPath string) *Manager {
	return &Manager{path: configPath}
}

// EnsureDir ensures the parent directory exists.
func (m *Manager) EnsureDir() error {
	dir := filepath.Dir(m.path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

// Load reads settings.json from disk or creates defaults if missing, then
// backfills newly introduced fields and applies environment overrides.
func (m *Manager) Load() (Settings, error) {
	if m.path == "" {
		return Settings{}, errors.New("config path not set")
	}
	if _, err := os.Stat(m.path); errors.Is(err, fs.ErrNotExist) {
		defaults := DefaultSettings()
		if err := m.Save(defaults); err != nil {
			return Settings{}, err
		}
		applyEnvOverrides(&defaults)
		return defaults, nil
	}
	f, err := os.Open(m.path)
	if err != nil {
		return Settings{}, err
	}
	defer f.Close()

	var s Settings
	if err := json.NewDecoder(f).Decode(&s); err != nil {
		return Settings{}, err
	}

	// Backfill defaults for configs that predate a field.
	if strings.TrimSpace(s.Server.Host) == "" {
		s.Server.Host = "0.0.0.0"
	}
	if s.Server.Port == 0 {
		s.Server.Port = 8484
	}
	if strings.TrimSpace(s.APIs.OpenAIModel) == "" {
		s.APIs.OpenAIModel = "gpt-4o-mini"
	}
	if strings.TrimSpace(s.Cache.Directory) == "" {
		s.Cache.Directory = "cache"
	}
	if s.Cache.MetadataTTLHours == 0 {
		s.Cache.MetadataTTLHours = 24
	}
	if s.Cache.OverviewTTLHours == 0 {
		s.Cache.OverviewTTLHours = 24 * 7
	}
	if strings.TrimSpace(s.Providers.Region) == "" {
		s.Providers.Region = "US"
	}
	if len(s.Providers.AllowedServices) == 0 {
		s.Providers.AllowedServices = append([]string(nil), DefaultAllowedServices...)
	}
	if len(s.Providers.ExcludedServices) == 0 {
		s.Providers.ExcludedServices = append([]string(nil), DefaultExcludedServices...)
	}
	if strings.TrimSpace(s.Log.File) == "" {
		s.Log.File = "cache/logs/backend.log"
	}
	if s.Log.MaxSize == 0 {
		s.Log.MaxSize = 50
	}
	if s.Log.MaxBackups == 0 {
		s.Log.MaxBackups = 3
	}
	if s.Log.MaxAge == 0 {
		s.Log.MaxAge = 7
	}

	applyEnvOverrides(&s)
	return s, nil
}

// Save writes the provided settings to disk atomically. API keys sourced from
// the environment are written as-is; callers who want them out of the file
// should leave the fields empty and rely on env vars.
func (m *Manager) Save(s Settings) error {
	if m.path == "" {
		return errors.New("config path not set")
	}
	if err := m.EnsureDir(); err != nil {
		return err
	}
	tmp := m.path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(s); err != nil {
		f.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, m.path)
}

func applyEnvOverrides(s *Settings) {
	if v := strings.TrimSpace(os.Getenv("SCREENSCOUT_TMDB_API_KEY")); v != "" {
		s.APIs.TMDBAPIKey = v
	}
	if v := strings.TrimSpace(os.Getenv("SCREENSCOUT_OMDB_API_KEY")); v != "" {
		s.APIs.OMDbAPIKey = v
	}
	if v := strings.TrimSpace(os.Getenv("SCREENSCOUT_WATCHMODE_API_KEY")); v != "" {
		s.APIs.WatchmodeAPIKey = v
	}
	if v := strings.TrimSpace(os.Getenv("SCREENSCOUT_OPENAI_API_KEY")); v != "" {
		s.APIs.OpenAIAPIKey = v
	}
}

package config

import (
	"log"
	"runtime"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type AuthMode string

const (
	AuthModeNone   AuthMode = "none"    // No API key required (no keys configured)
	AuthModeAPIKey AuthMode = "api_key" // X-API-Key header checked against API_KEYS
)

type (
	Config struct {
		HTTP
		Global
		Auth
		RateLimit
		Upstreams
		Downloads
		Cache
		Conversion
	}

	HTTP struct {
		Port       int32
		Host       string
		EnableHSTS bool // Only behind TLS
	}
	Global struct {
		ShutdownTimeoutInSeconds int
	}
	Auth struct {
		Mode    AuthMode
		APIKeys []string
	}
	RateLimit struct {
		RequestsPerSecond float64 // Per client; 0 disables limiting
		Burst             int
		IdleTimeout       time.Duration // Forget clients idle for this long
	}
	Upstreams struct {
		EnabledSources    []string // Merge order of the fan-out
		UserAgent         string
		Timeout           time.Duration // Per adapter call (capped at 20s)
		RequestsPerSecond float64       // Client-side throttle per upstream; 0 disables
		GutendexURL       string
		OpenLibraryURL    string
		ArchiveURL        string
		GoogleBooksURL    string
		GoogleBooksAPIKey string
	}
	Downloads struct {
		UserAgent           string
		ProbeTimeout        time.Duration // Per candidate until accepted
		StreamTimeout       time.Duration // Whole transfer after acceptance
		GutenbergMirrorURL  string
		ArchiveDownloadURL  string
		CrossSourceFallback bool
	}
	Cache struct {
		TTL           time.Duration
		MaxEntries    int
		PurgeSchedule string // Cron format or descriptor, e.g. "@every 5m"
	}
	Conversion struct {
		ChunkSize     int
		MaxChunks     int
		ChunksPerPage int
		MaxEPUBBytes  int64
		Concurrency   int64
	}
)

// NewConfig reads configuration from the environment. A .env file in the working directory
// is loaded first when present; real environment variables win over it.
func NewConfig() *Config {
	if err := godotenv.Load(); err == nil {
		log.Printf("Loaded environment from .env")
	}

	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("port", DefaultPort)
	v.SetDefault("host", "0.0.0.0")
	v.SetDefault("enable_hsts", false)
	v.SetDefault("shutdown_timeout_in_seconds", 5)

	// Auth and rate limit defaults
	v.SetDefault("api_keys", "")
	v.SetDefault("rate_limit_rps", 5)
	v.SetDefault("rate_limit_burst", 20)
	v.SetDefault("rate_limit_idle_timeout", "10m")

	// Upstream catalog defaults
	v.SetDefault("enabled_sources", strings.Join(DefaultEnabledSources, ","))
	v.SetDefault("user_agent", DefaultUserAgent)
	v.SetDefault("upstream_timeout", "15s")
	v.SetDefault("upstream_rps", 0)
	v.SetDefault("gutendex_url", "https://gutendex.com")
	v.SetDefault("openlibrary_url", "https://openlibrary.org")
	v.SetDefault("archive_url", "https://archive.org")
	v.SetDefault("google_books_url", "https://www.googleapis.com")
	v.SetDefault("google_books_api_key", "")

	// Download defaults
	v.SetDefault("download_user_agent", DefaultDownloadUserAgent)
	v.SetDefault("download_timeout", "30s")
	v.SetDefault("download_stream_timeout", "10m")
	v.SetDefault("gutenberg_mirror_url", "https://www.gutenberg.org")
	v.SetDefault("archive_download_url", "https://archive.org/download")
	v.SetDefault("download_cross_source_fallback", true)

	// Cache defaults
	v.SetDefault("cache_ttl", "10m")
	v.SetDefault("cache_max_entries", 1000)
	v.SetDefault("cache_purge_schedule", "@every 5m")

	// PDF conversion defaults
	v.SetDefault("pdf_chunk_size", 2000)
	v.SetDefault("pdf_max_chunks", 100)
	v.SetDefault("pdf_chunks_per_page", 5)
	v.SetDefault("max_epub_bytes", 64<<20)
	v.SetDefault("conversion_concurrency", runtime.GOMAXPROCS(0))

	apiKeys := splitList(v.GetString("API_KEYS"))
	authMode := AuthModeNone
	if len(apiKeys) > 0 {
		authMode = AuthModeAPIKey
	}

	return &Config{
		HTTP: HTTP{
			Port:       v.GetInt32("PORT"),
			Host:       v.GetString("HOST"),
			EnableHSTS: v.GetBool("ENABLE_HSTS"),
		},
		Global: Global{
			ShutdownTimeoutInSeconds: v.GetInt("SHUTDOWN_TIMEOUT_IN_SECONDS"),
		},
		Auth: Auth{
			Mode:    authMode,
			APIKeys: apiKeys,
		},
		RateLimit: RateLimit{
			RequestsPerSecond: v.GetFloat64("RATE_LIMIT_RPS"),
			Burst:             v.GetInt("RATE_LIMIT_BURST"),
			IdleTimeout:       v.GetDuration("RATE_LIMIT_IDLE_TIMEOUT"),
		},
		Upstreams: Upstreams{
			EnabledSources:    splitList(v.GetString("ENABLED_SOURCES")),
			UserAgent:         v.GetString("USER_AGENT"),
			Timeout:           v.GetDuration("UPSTREAM_TIMEOUT"),
			RequestsPerSecond: v.GetFloat64("UPSTREAM_RPS"),
			GutendexURL:       v.GetString("GUTENDEX_URL"),
			OpenLibraryURL:    v.GetString("OPENLIBRARY_URL"),
			ArchiveURL:        v.GetString("ARCHIVE_URL"),
			GoogleBooksURL:    v.GetString("GOOGLE_BOOKS_URL"),
			GoogleBooksAPIKey: v.GetString("GOOGLE_BOOKS_API_KEY"),
		},
		Downloads: Downloads{
			UserAgent:           v.GetString("DOWNLOAD_USER_AGENT"),
			ProbeTimeout:        v.GetDuration("DOWNLOAD_TIMEOUT"),
			StreamTimeout:       v.GetDuration("DOWNLOAD_STREAM_TIMEOUT"),
			GutenbergMirrorURL:  v.GetString("GUTENBERG_MIRROR_URL"),
			ArchiveDownloadURL:  v.GetString("ARCHIVE_DOWNLOAD_URL"),
			CrossSourceFallback: v.GetBool("DOWNLOAD_CROSS_SOURCE_FALLBACK"),
		},
		Cache: Cache{
			TTL:           v.GetDuration("CACHE_TTL"),
			MaxEntries:    v.GetInt("CACHE_MAX_ENTRIES"),
			PurgeSchedule: v.GetString("CACHE_PURGE_SCHEDULE"),
		},
		Conversion: Conversion{
			ChunkSize:     v.GetInt("PDF_CHUNK_SIZE"),
			MaxChunks:     v.GetInt("PDF_MAX_CHUNKS"),
			ChunksPerPage: v.GetInt("PDF_CHUNKS_PER_PAGE"),
			MaxEPUBBytes:  v.GetInt64("MAX_EPUB_BYTES"),
			Concurrency:   v.GetInt64("CONVERSION_CONCURRENCY"),
		},
	}
}

// splitList parses a comma-separated env value, dropping blanks.
func splitList(raw string) []string {
	out := []string{}
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds all configuration for the portal API service
type Config struct {
	// Server
	Port           string
	AllowedOrigins []string

	// Route cache store. DatabaseURL (Postgres) wins when set,
	// otherwise SQLitePath is used.
	DatabaseURL string
	SQLitePath  string

	// Upstream base URLs. Overridable so tests can point clients at a
	// local fake server.
	//
	// Two ODPT bases exist on purpose: the station-search endpoint has
	// historically used the .jp host and the station-lookup endpoint the
	// .org host. Neither is known to be authoritative, so both are kept
	// configurable instead of collapsing them into one.
	ODPTSearchBaseURL string
	ODPTLookupBaseURL string
	EkispertBaseURL   string
	GoogleMapsBaseURL string
	NavitimeBaseURL   string
	NavitimeRapidHost string

	// Provider behaviour
	ProviderTimeout time.Duration
	RouteCacheTTL   time.Duration

	// Timetable response cache
	TimetableCacheSize int
	TimetableCacheTTL  time.Duration

	// Assistant
	GeminiModel string
}

// Load reads configuration from environment variables with sensible defaults
func Load() *Config {
	return &Config{
		// Server
		Port:           getEnv("PORT", "8081"),
		AllowedOrigins: []string{getEnv("CORS_ORIGIN", "http://localhost:3000")},

		// Route cache store
		DatabaseURL: getEnv("DATABASE_URL", ""),
		SQLitePath:  getEnv("SQLITE_DATABASE", "data/portal.db"),

		// Upstreams
		ODPTSearchBaseURL: getEnv("ODPT_SEARCH_BASE_URL", "https://api.odpt.jp/api/v4"),
		ODPTLookupBaseURL: getEnv("ODPT_LOOKUP_BASE_URL", "https://api.odpt.org/api/v4"),
		EkispertBaseURL:   getEnv("EKISPERT_BASE_URL", "https://api.ekispert.jp/v1"),
		GoogleMapsBaseURL: getEnv("GOOGLE_MAPS_BASE_URL", "https://maps.googleapis.com/maps/api"),
		NavitimeBaseURL:   getEnv("NAVITIME_BASE_URL", "https://navitime-route-totalnavi.p.rapidapi.com"),
		NavitimeRapidHost: getEnv("NAVITIME_RAPIDAPI_HOST", "navitime-route-totalnavi.p.rapidapi.com"),

		// Provider behaviour
		ProviderTimeout: time.Duration(getEnvInt("PROVIDER_TIMEOUT_SECONDS", 4)) * time.Second,
		RouteCacheTTL:   time.Duration(getEnvInt("ROUTE_CACHE_TTL_MINUTES", 30)) * time.Minute,

		// Timetable response cache
		TimetableCacheSize: getEnvInt("TIMETABLE_CACHE_SIZE", 256),
		TimetableCacheTTL:  time.Duration(getEnvInt("TIMETABLE_CACHE_TTL_MINUTES", 10)) * time.Minute,

		// Assistant
		GeminiModel: getEnv("GEMINI_MODEL", "gemini-2.0-flash"),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Defaults live in New; Load layers file and env on top.
// - External errors must be wrapped via this package's error helpers.
package config

// Store backend names accepted by store_backend.
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
)

// Config contains process configuration. Extend as needed.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// StoreBackend selects the document store: "memory" or "sqlite".
	StoreBackend string `koanf:"store_backend"`

	// SQLitePath locates the database file when store_backend is "sqlite".
	SQLitePath string `koanf:"sqlite_path"`

	// AdminEmails is the allow-list of identities eligible for the one-time
	// admin grant. Injected, never compiled in.
	AdminEmails []string `koanf:"admin_emails"`

	// RequiredProvider is the identity provider a grant caller must have
	// signed in with.
	RequiredProvider string `koanf:"required_provider"`

	// TokenSecret is the HMAC secret used to verify bearer tokens.
	TokenSecret string `koanf:"token_secret"`

	// MaxStandingsLimit caps GET /standings?limit.
	MaxStandingsLimit int `koanf:"max_standings_limit"`

	// WatchBufferSize bounds each change-feed subscriber's channel.
	WatchBufferSize int `koanf:"watch_buffer_size"`

	// BracketSize is the seeded field size of the playoff projection.
	BracketSize int `koanf:"bracket_size"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:          "info",
		Addr:              ":9090",
		StoreBackend:      "memory",
		SQLitePath:        "tally.db",
		AdminEmails:       nil,
		RequiredProvider:  "google.com",
		TokenSecret:       "",
		MaxStandingsLimit: 100,
		WatchBufferSize:   16,
		BracketSize:       32,
	}
}

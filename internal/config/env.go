package config

import (
	"os"
	"strconv"
	"strings"
	"unicode"
)

// Environment variable names.
const (
	EnvHome         = "LINKBRIDGE_HOME"
	EnvClientID     = "LINKBRIDGE_CLIENT_ID"
	EnvLanguage     = "LINKBRIDGE_LANGUAGE"
	EnvTheme        = "LINKBRIDGE_THEME"
	EnvOrigin       = "LINKBRIDGE_ORIGIN"
	EnvSolanaRPC    = "LINKBRIDGE_SOLANA_RPC"
	EnvOutputFormat = "LINKBRIDGE_OUTPUT_FORMAT"
	EnvVerbose      = "LINKBRIDGE_VERBOSE"
	EnvLogLevel     = "LINKBRIDGE_LOG_LEVEL"
	EnvMetricsAddr  = "LINKBRIDGE_METRICS_ADDR"
	EnvNoColor      = "NO_COLOR"
)

// ApplyEnvironment applies environment variable overrides to the configuration.
//
//nolint:gocognit,gocyclo // Environment variable overrides require sequential checks
func ApplyEnvironment(cfg *Config) {
	if v := os.Getenv(EnvHome); v != "" {
		cfg.Home = v
	}

	if v := os.Getenv(EnvClientID); v != "" {
		cfg.Link.ClientID = strings.TrimSpace(v)
	}

	if v := os.Getenv(EnvLanguage); v != "" {
		cfg.Link.Language = strings.TrimSpace(v)
	}

	if v := os.Getenv(EnvTheme); v != "" {
		cfg.Link.Theme = strings.ToLower(strings.TrimSpace(v))
	}

	if v := os.Getenv(EnvOrigin); v != "" {
		cfg.Link.Origin = SanitizeURL(v)
	}

	if v := os.Getenv(EnvSolanaRPC); v != "" {
		cfg.Networks.Solana.RPC = SanitizeURL(v)
	}

	if v := os.Getenv(EnvOutputFormat); v != "" {
		cfg.Output.DefaultFormat = strings.ToLower(v)
	}

	if v := os.Getenv(EnvVerbose); v != "" {
		cfg.Output.Verbose = parseBool(v)
	}

	if v := os.Getenv(EnvLogLevel); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}

	if v := os.Getenv(EnvMetricsAddr); v != "" {
		cfg.Metrics.Addr = strings.TrimSpace(v)
	}

	// NO_COLOR disables colored output
	if _, ok := os.LookupEnv(EnvNoColor); ok {
		cfg.Output.Color = "never"
	}
}

// parseBool parses a boolean string value.
func parseBool(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "1" || s == "true" || s == "yes" || s == "on" {
		return true
	}
	b, _ := strconv.ParseBool(s)
	return b
}

// SanitizeURL trims a user-provided URL and drops whitespace and control
// characters left behind by copy and paste.
func SanitizeURL(url string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) || unicode.IsControl(r) {
			return -1
		}
		return r
	}, url)
}

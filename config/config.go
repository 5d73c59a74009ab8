package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/jessevdk/go-flags"
)

// Config holds all application configuration. Values come from command-line
// flags, then the environment (a .env file is loaded into it by main), then the
// defaults below.
type Config struct {
	// HTTP
	Port string `long:"port" env:"PORT" description:"Listen port for the detection API" default:"4000"`

	// Threat feeds
	GoogleSafeBrowsingKey string        `long:"gsb-key" env:"GOOGLE_SAFE_BROWSING_KEY" description:"Google Safe Browsing API key (feed disabled when empty)"`
	URLhausURL            string        `long:"urlhaus-url" env:"URLHAUS_URL" description:"URLhaus URL lookup endpoint" default:"https://urlhaus-api.abuse.ch/v1/url/"`
	URLhausAuthKey        string        `long:"urlhaus-key" env:"URLHAUS_AUTH_KEY" description:"Optional abuse.ch Auth-Key"`
	LookupTimeout         time.Duration `long:"lookup-timeout" env:"LOOKUP_TIMEOUT" description:"Timeout for each external lookup" default:"5s"`

	// Enrichment
	DNSServers []string `long:"dns-server" env:"DNS_SERVERS" env-delim:"," description:"DNS resolver host:port (repeatable)"`

	// Scan history
	DatabaseURL string `long:"database-url" env:"DATABASE_URL" description:"Postgres URL for scan history (disabled when empty)"`

	// Explanations
	GeminiAPIKey string `long:"gemini-key" env:"GEMINI_API_KEY" description:"Gemini API key (template explanations when empty)"`
	GeminiModel  string `long:"gemini-model" env:"GEMINI_MODEL" description:"Gemini model name" default:"gemini-2.0-flash"`

	// Logging
	LogFormat string `long:"log-format" env:"LOG_FORMAT" description:"Log format: json or text" default:"json"`
	LogLevel  string `long:"log-level" env:"LOG_LEVEL" description:"Log level: debug, info, warn or error" default:"info"`

	// One-shot mode
	Check string `long:"check" description:"Classify a single URL, print the result and exit"`
}

// Load parses args (without the program name) into a validated Config.
func Load(args []string) (*Config, error) {
	cfg := &Config{}

	parser := flags.NewParser(cfg, flags.HelpFlag|flags.PassDoubleDash)
	parser.Usage = "[OPTIONS]"

	if _, err := parser.ParseArgs(args); err != nil {
		return nil, err
	}

	cfg.LogFormat = strings.ToLower(strings.TrimSpace(cfg.LogFormat))
	cfg.LogLevel = strings.ToLower(strings.TrimSpace(cfg.LogLevel))
	cfg.DNSServers = cleanServers(cfg.DNSServers)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// IsHelp reports whether err is the help text produced by --help.
func IsHelp(err error) bool {
	return flags.WroteHelp(err)
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Port) == "" {
		return fmt.Errorf("port must not be empty")
	}

	if c.LookupTimeout <= 0 {
		return fmt.Errorf("lookup timeout must be > 0, got %s", c.LookupTimeout)
	}

	if strings.TrimSpace(c.URLhausURL) == "" {
		return fmt.Errorf("urlhaus url must not be empty")
	}

	switch c.LogFormat {
	case "json", "text":
	default:
		return fmt.Errorf("log format must be json or text, got %q", c.LogFormat)
	}

	switch c.LogLevel {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("log level must be debug, info, warn or error, got %q", c.LogLevel)
	}

	return nil
}

// ListenAddr is the address passed to the HTTP server.
func (c *Config) ListenAddr() string {
	return ":" + strings.TrimPrefix(c.Port, ":")
}

func cleanServers(in []string) []string {
	var out []string
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if !strings.Contains(s, ":") {
			s += ":53"
		}
		out = append(out, s)
	}
	return out
}

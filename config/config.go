package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/wricardo/sockgate/game/envelope"
	"github.com/wricardo/sockgate/game/ticket"
)

var (
	ErrInvalidConfig = errors.New("invalid configuration")
)

// Config holds every server setting
type Config struct {
	Host  string `env:"SOCKGATE_HOST" envDefault:"localhost"`
	Port  int    `env:"SOCKGATE_PORT" envDefault:"8080"`
	Debug bool   `env:"SOCKGATE_DEBUG"`

	CookieName     string        `env:"SOCKGATE_COOKIE_NAME"      envDefault:"anon_session_ticket"`
	CookiePath     string        `env:"SOCKGATE_COOKIE_PATH"      envDefault:"/"`
	CookieMaxAge   time.Duration `env:"SOCKGATE_COOKIE_MAX_AGE"   envDefault:"8760h"`
	CookieSecure   bool          `env:"SOCKGATE_COOKIE_SECURE"`
	CookieHTTPOnly bool          `env:"SOCKGATE_COOKIE_HTTP_ONLY"`

	WireFormat string `env:"SOCKGATE_WIRE_FORMAT" envDefault:"json"`

	// AllowedOrigins limits browser origins on /ws. Empty or "*" allows any.
	AllowedOrigins []string `env:"SOCKGATE_ALLOWED_ORIGINS" envSeparator:","`

	PruneInterval time.Duration `env:"SOCKGATE_PRUNE_INTERVAL" envDefault:"0s"`
	PruneAfter    time.Duration `env:"SOCKGATE_PRUNE_AFTER"    envDefault:"0s"`

	Ngrok NgrokConfig
}

// NgrokConfig controls the optional public tunnel
type NgrokConfig struct {
	Enabled   bool   `env:"NGROK_ENABLED"`
	AuthToken string `env:"NGROK_AUTHTOKEN"`
	Domain    string `env:"NGROK_DOMAIN"`
}

// LoadDotEnv loads .env files into the environment, ignoring missing files.
func LoadDotEnv(filenames ...string) error {
	if err := godotenv.Load(filenames...); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load .env: %w", err)
	}
	return nil
}

// Load parses the environment into a Config with defaults applied.
func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks settings that env parsing cannot
func (c *Config) Validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("%w: port %d out of range", ErrInvalidConfig, c.Port)
	}
	if c.CookieName == "" {
		return fmt.Errorf("%w: cookie name is empty", ErrInvalidConfig)
	}
	if c.CookieMaxAge < 0 {
		return fmt.Errorf("%w: cookie max age is negative", ErrInvalidConfig)
	}
	if _, err := envelope.DecoderByName(c.WireFormat); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if c.PruneInterval < 0 || c.PruneAfter < 0 {
		return fmt.Errorf("%w: prune durations must not be negative", ErrInvalidConfig)
	}
	return nil
}

// Addr returns host:port for the HTTP listener
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// Codec builds the ticket codec from the cookie settings
func (c *Config) Codec() ticket.Codec {
	return ticket.Codec{
		Name:     c.CookieName,
		Path:     c.CookiePath,
		MaxAge:   c.CookieMaxAge,
		Secure:   c.CookieSecure,
		HTTPOnly: c.CookieHTTPOnly,
	}
}

// Decoder returns the envelope decoder for the configured wire format
func (c *Config) Decoder() envelope.Decoder {
	d, err := envelope.DecoderByName(c.WireFormat)
	if err != nil {
		return envelope.JSONDecoder{}
	}
	return d
}

// PruneEnabled reports whether stale ticket pruning should run
func (c *Config) PruneEnabled() bool {
	return c.PruneInterval > 0 && c.PruneAfter > 0
}

// OriginChecker returns the websocket origin policy. Requests without an
// Origin header are not from browsers and always pass.
func (c *Config) OriginChecker() func(r *http.Request) bool {
	allowed := make(map[string]bool, len(c.AllowedOrigins))
	for _, o := range c.AllowedOrigins {
		o = strings.ToLower(strings.TrimRight(strings.TrimSpace(o), "/"))
		if o == "*" {
			return func(*http.Request) bool { return true }
		}
		if o != "" {
			allowed[o] = true
		}
	}
	if len(allowed) == 0 {
		return func(*http.Request) bool { return true }
	}

	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		u, err := url.Parse(origin)
		if err != nil || u.Host == "" {
			return false
		}
		return allowed[strings.ToLower(u.Scheme+"://"+u.Host)] || allowed[strings.ToLower(u.Host)]
	}
}

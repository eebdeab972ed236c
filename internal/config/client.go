package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// ClientConfig configures the scribe CLI and its background tracker.
type ClientConfig struct {
	APIURL      string `mapstructure:"API_URL"`
	SessionFile string `mapstructure:"SESSION_FILE"`
	DebounceSec int    `mapstructure:"DEBOUNCE_SEC"`
	RadiusM     int    `mapstructure:"RADIUS_M"`
	MinMoveM    int    `mapstructure:"MIN_MOVE_M"`
}

// Client validation errors.
var (
	ErrAPIURLEmpty      = errors.New("SCRIBE_API_URL cannot be empty")
	ErrSessionFileEmpty = errors.New("SCRIBE_SESSION_FILE cannot be empty")
	ErrDebounceSec      = errors.New("SCRIBE_DEBOUNCE_SEC must be greater than or equal to 0")
	ErrRadiusM          = errors.New("SCRIBE_RADIUS_M must be greater than 0")
	ErrMinMoveM         = errors.New("SCRIBE_MIN_MOVE_M must be greater than or equal to 0")
)

// ClientEnvPrefix is prepended to every client environment variable.
const ClientEnvPrefix = "SCRIBE"

// NewClientViper returns a viper instance preloaded with client defaults and
// SCRIBE_* environment lookup. Callers may bind cobra flags onto it before
// calling LoadClient.
func NewClientViper() *viper.Viper {
	v := viper.New()
	v.SetDefault("API_URL", "http://localhost:4000")
	v.SetDefault("SESSION_FILE", defaultSessionFile())
	v.SetDefault("DEBOUNCE_SEC", 60)
	v.SetDefault("RADIUS_M", 500)
	v.SetDefault("MIN_MOVE_M", 100)

	v.SetEnvPrefix(ClientEnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	return v
}

// LoadClient unmarshals and validates the client configuration held by v.
func LoadClient(v *viper.Viper) (ClientConfig, error) {
	var cfg ClientConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return ClientConfig{}, err
	}
	cfg.APIURL = strings.TrimRight(cfg.APIURL, "/")
	if err := cfg.Validate(); err != nil {
		return ClientConfig{}, err
	}
	return cfg, nil
}

// Validate checks the client configuration.
func (c ClientConfig) Validate() error {
	switch {
	case c.APIURL == "":
		return ErrAPIURLEmpty
	case c.SessionFile == "":
		return ErrSessionFileEmpty
	case c.DebounceSec < 0:
		return ErrDebounceSec
	case c.RadiusM <= 0:
		return ErrRadiusM
	case c.MinMoveM < 0:
		return ErrMinMoveM
	}
	return nil
}

func defaultSessionFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".mindscribe-session.yaml"
	}
	return filepath.Join(dir, "mindscribe", "session.yaml")
}

package config

import (
	"errors"
	"sync"

	"github.com/spf13/viper"
)

// Config holds all server configuration
type Config struct {
	AppPort               int    `mapstructure:"APP_PORT"`
	BcryptCost            int    `mapstructure:"BCRYPT_COST"`
	AuthRatePerMin        int    `mapstructure:"AUTH_RATE_PER_MIN"`
	LogLevel              string `mapstructure:"LOG_LEVEL"`
	LogFormat             string `mapstructure:"LOG_FORMAT"`
	MongoURI              string `mapstructure:"MONGO_URI"`
	MongoDBName           string `mapstructure:"MONGO_DB_NAME"`
	JWTSecret             string `mapstructure:"JWT_SECRET"`
	JWTAlgorithm          string `mapstructure:"JWT_ALGORITHM"`
	TokenTTLHours         int    `mapstructure:"TOKEN_TTL_HOURS"`
	NearbyDefaultRadiusM  int    `mapstructure:"NEARBY_DEFAULT_RADIUS_M"`
	NearbyMaxRadiusM      int    `mapstructure:"NEARBY_MAX_RADIUS_M"`
	DefaultAvatar         string `mapstructure:"DEFAULT_AVATAR"`
	WSMaxSessionSec       int    `mapstructure:"WS_MAX_SESSION_SEC"`
	WSOutboxBuffer        int    `mapstructure:"WS_OUTBOX_BUFFER"`
	RouteMetricsEnabled   bool   `mapstructure:"ROUTE_METRICS_ENABLED"`
	RequestLoggingEnabled bool   `mapstructure:"REQUEST_LOGGING_ENABLED"`
	PyroscopeAddress      string `mapstructure:"PYROSCOPE_SERVER_ADDRESS"`
}

// Validation errors returned by Config.Validate.
var (
	ErrAppPortRange            = errors.New("APP_PORT must be between 1 and 65535")
	ErrBcryptCostRange         = errors.New("BCRYPT_COST must be between 10 and 16")
	ErrAuthRatePerMin          = errors.New("AUTH_RATE_PER_MIN must be greater than or equal to 1")
	ErrLogLevelEmpty           = errors.New("LOG_LEVEL cannot be empty")
	ErrLogFormatEmpty          = errors.New("LOG_FORMAT cannot be empty")
	ErrMongoURIEmpty           = errors.New("MONGO_URI cannot be empty")
	ErrMongoDBNameEmpty        = errors.New("MONGO_DB_NAME cannot be empty")
	ErrJWTSecretRequired       = errors.New("JWT_SECRET cannot be empty")
	ErrJWTSecretTooShort       = errors.New("JWT_SECRET must be at least 32 characters for HS256")
	ErrJWTAlgorithmUnsupported = errors.New("JWT_ALGORITHM must be HS256")
	ErrTokenTTL                = errors.New("TOKEN_TTL_HOURS must be greater than 0")
	ErrNearbyRadius            = errors.New("NEARBY_DEFAULT_RADIUS_M must be greater than 0")
	ErrNearbyMaxRadius         = errors.New("NEARBY_MAX_RADIUS_M must be greater than or equal to NEARBY_DEFAULT_RADIUS_M")
	ErrWSMaxSession            = errors.New("WS_MAX_SESSION_SEC must be greater than 0")
	ErrWSOutboxBuffer          = errors.New("WS_OUTBOX_BUFFER must be greater than 0")
)

var (
	cachedConfig *Config
	configMutex  sync.RWMutex
)

// Load loads configuration from environment variables and .env file
// It caches the result for subsequent calls
func Load() (Config, error) {
	configMutex.RLock()
	if cachedConfig != nil {
		defer configMutex.RUnlock()
		return *cachedConfig, nil
	}
	configMutex.RUnlock()

	configMutex.Lock()
	defer configMutex.Unlock()

	// Double-check in case another goroutine loaded it while we waited for the lock
	if cachedConfig != nil {
		return *cachedConfig, nil
	}

	v := viper.New()

	v.SetDefault("APP_PORT", 4000)
	v.SetDefault("BCRYPT_COST", 10)
	v.SetDefault("AUTH_RATE_PER_MIN", 20)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
	v.SetDefault("MONGO_URI", "mongodb://mongo:27017")
	v.SetDefault("MONGO_DB_NAME", "mindscribe")
	v.SetDefault("JWT_SECRET", "this-is-a-default-jwt-secret-key-with-32-plus-characters")
	v.SetDefault("JWT_ALGORITHM", "HS256")
	v.SetDefault("TOKEN_TTL_HOURS", 24*7)
	v.SetDefault("NEARBY_DEFAULT_RADIUS_M", 500)
	v.SetDefault("NEARBY_MAX_RADIUS_M", 50000)
	v.SetDefault("DEFAULT_AVATAR", "default.png")
	v.SetDefault("WS_MAX_SESSION_SEC", 900)
	v.SetDefault("WS_OUTBOX_BUFFER", 256)
	v.SetDefault("ROUTE_METRICS_ENABLED", true)
	v.SetDefault("REQUEST_LOGGING_ENABLED", true)
	v.SetDefault("PYROSCOPE_SERVER_ADDRESS", "")

	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")

	// Try to read .env file (it's okay if it doesn't exist)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return Config{}, err
		}
	}

	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	cachedConfig = &cfg

	return cfg, nil
}

// ResetCache clears the cached configuration (for testing purposes)
func ResetCache() {
	configMutex.Lock()
	defer configMutex.Unlock()
	cachedConfig = nil
}

// Validate checks if required configuration fields are properly set
func (c Config) Validate() error {
	switch {
	case c.AppPort <= 0 || c.AppPort > 65535:
		return ErrAppPortRange
	case c.BcryptCost < 10 || c.BcryptCost > 16:
		return ErrBcryptCostRange
	case c.AuthRatePerMin < 1:
		return ErrAuthRatePerMin
	case c.LogLevel == "":
		return ErrLogLevelEmpty
	case c.LogFormat == "":
		return ErrLogFormatEmpty
	case c.MongoURI == "":
		return ErrMongoURIEmpty
	case c.MongoDBName == "":
		return ErrMongoDBNameEmpty
	case c.JWTSecret == "":
		return ErrJWTSecretRequired
	case c.JWTAlgorithm != "HS256":
		return ErrJWTAlgorithmUnsupported
	case len(c.JWTSecret) < 32:
		return ErrJWTSecretTooShort
	case c.TokenTTLHours <= 0:
		return ErrTokenTTL
	case c.NearbyDefaultRadiusM <= 0:
		return ErrNearbyRadius
	case c.NearbyMaxRadiusM < c.NearbyDefaultRadiusM:
		return ErrNearbyMaxRadius
	case c.WSMaxSessionSec <= 0:
		return ErrWSMaxSession
	case c.WSOutboxBuffer <= 0:
		return ErrWSOutboxBuffer
	}
	return nil
}

package config

import (
	"errors"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the relay service.
type Config struct {
	LogLevel string `mapstructure:"LOG_LEVEL"`

	RelayServicePort int `mapstructure:"RELAY_SERVICE_PORT"`

	// Provider (call API) settings. The API key travels in every request body.
	ProviderBaseURL        string `mapstructure:"PROVIDER_BASE_URL"`
	ProviderAPIKey         string `mapstructure:"PROVIDER_API_KEY"`
	ProviderTimeoutSeconds int    `mapstructure:"PROVIDER_TIMEOUT_SECONDS"`

	RequestTimeoutSeconds  int `mapstructure:"REQUEST_TIMEOUT_SECONDS"`
	ShutdownTimeoutSeconds int `mapstructure:"SHUTDOWN_TIMEOUT_SECONDS"`

	NATSUrl string `mapstructure:"NATS_URL"` // empty disables dispatch events

	CORSAllowedOrigins string `mapstructure:"CORS_ALLOWED_ORIGINS"`
}

var (
	ErrMissingAPIKey  = errors.New("PROVIDER_API_KEY is required")
	ErrMissingBaseURL = errors.New("PROVIDER_BASE_URL is required")
)

// Load reads config.defaults.yaml (if found), a local .env file (if found) and
// APP_ prefixed environment variables, in increasing order of precedence.
func Load(serviceName string) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf("%s: no .env file found; continuing with environment variables", serviceName)
	}

	v := viper.New()
	v.SetConfigName("config.defaults")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath("../configs")
	v.AddConfigPath("../../configs")
	v.AddConfigPath("../../../configs") // For running tests from internal/platform/config
	v.AddConfigPath(".")

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.SetEnvPrefix("APP") // APP_PROVIDER_API_KEY etc.

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			log.Printf("%s: base configuration file ('config.defaults.yaml') not found; using defaults and environment variables.", serviceName)
		} else {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Every key needs a default, otherwise AutomaticEnv won't pick it up on Unmarshal.
func setDefaults(v *viper.Viper) {
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("RELAY_SERVICE_PORT", 8081)

	v.SetDefault("PROVIDER_BASE_URL", "https://lk.zvonobot.ru")
	v.SetDefault("PROVIDER_API_KEY", "")
	v.SetDefault("PROVIDER_TIMEOUT_SECONDS", 30)

	v.SetDefault("REQUEST_TIMEOUT_SECONDS", 60)
	v.SetDefault("SHUTDOWN_TIMEOUT_SECONDS", 30)

	v.SetDefault("NATS_URL", "")
	v.SetDefault("CORS_ALLOWED_ORIGINS", "*")
}

// Validate reports missing settings the service cannot start without.
func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.ProviderAPIKey) == "" {
		errs = append(errs, ErrMissingAPIKey)
	}
	if strings.TrimSpace(c.ProviderBaseURL) == "" {
		errs = append(errs, ErrMissingBaseURL)
	}
	return errors.Join(errs...)
}

func (c *Config) ProviderTimeout() time.Duration {
	return seconds(c.ProviderTimeoutSeconds, 30)
}

func (c *Config) RequestTimeout() time.Duration {
	return seconds(c.RequestTimeoutSeconds, 60)
}

func (c *Config) ShutdownTimeout() time.Duration {
	return seconds(c.ShutdownTimeoutSeconds, 30)
}

// AllowedOrigins splits CORS_ALLOWED_ORIGINS; an empty value means "*".
func (c *Config) AllowedOrigins() []string {
	var origins []string
	for _, o := range strings.Split(c.CORSAllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	if len(origins) == 0 {
		return []string{"*"}
	}
	return origins
}

func seconds(n, fallback int) time.Duration {
	if n <= 0 {
		n = fallback
	}
	return time.Duration(n) * time.Second
}

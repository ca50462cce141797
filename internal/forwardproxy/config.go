package forwardproxy

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"httpProxy/internal/access"
	"httpProxy/internal/cache"
	"httpProxy/internal/forward"
	"httpProxy/internal/logging"
)

type ServerConfig struct {
	Address   string `yaml:"address"`
	Port      int    `yaml:"port"`
	AdminPort int    `yaml:"admin_port"`
}

type CachingConfig struct {
	Enabled       bool `yaml:"enabled"`
	MaxObjectSize int  `yaml:"max_object_size"`
	MaxCacheSize  int  `yaml:"max_cache_size"`
}

type TimeoutConfig struct {
	Client time.Duration `yaml:"client"`
	Origin time.Duration `yaml:"origin"`
}

type LoggerConfig struct {
	Level  string `yaml:"level"`
	File   string `yaml:"file"`
	Pretty bool   `yaml:"pretty"`
}

type Config struct {
	Server       ServerConfig  `yaml:"server"`
	Caching      CachingConfig `yaml:"caching"`
	Timeouts     TimeoutConfig `yaml:"timeouts"`
	Logger       LoggerConfig  `yaml:"logger"`
	UserAgent    string        `yaml:"user_agent"`
	Blacklist    []string      `yaml:"blacklist"`
	BlockedHosts []string      `yaml:"blocked_hosts"`
}

// DefaultConfig returns everything except the listening port.
func DefaultConfig() *Config {
	return &Config{
		Caching: CachingConfig{
			Enabled:       true,
			MaxObjectSize: cache.MaxObjectSize,
			MaxCacheSize:  cache.MaxCacheSize,
		},
		Timeouts: TimeoutConfig{
			Client: 30 * time.Second,
			Origin: 30 * time.Second,
		},
		Logger: LoggerConfig{
			Level: string(logging.LogLevelInfo),
		},
		UserAgent: forward.DefaultUserAgent,
	}
}

func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server port is not set or out of range: %d", c.Server.Port)
	}
	if c.Server.AdminPort < 0 || c.Server.AdminPort > 65535 {
		return fmt.Errorf("admin port out of range: %d", c.Server.AdminPort)
	}
	if c.Server.AdminPort == c.Server.Port {
		return errors.New("admin port must differ from server port")
	}
	if c.Caching.MaxObjectSize <= 0 {
		return errors.New("caching max_object_size must be positive")
	}
	if c.Caching.MaxCacheSize < c.Caching.MaxObjectSize {
		return errors.New("caching max_cache_size must be at least max_object_size")
	}
	if c.Timeouts.Client < 0 || c.Timeouts.Origin < 0 {
		return errors.New("timeouts must not be negative")
	}
	if !logging.ValidLevel(logging.LogLevel(c.Logger.Level)) {
		return fmt.Errorf("logger level is not valid: %q", c.Logger.Level)
	}
	if c.UserAgent == "" {
		return errors.New("user agent is not set")
	}
	if _, invalid := access.ParseBlacklist(c.Blacklist); len(invalid) > 0 {
		return fmt.Errorf("blacklist contains invalid IP addresses: %q", invalid)
	}
	return nil
}

// LoadConfig reads a YAML file over the defaults. Validation is left to the
// caller so command-line flags can still fill in missing values.
func LoadConfig(configFileName string) (*Config, error) {
	config := DefaultConfig()
	if configFileName == "" {
		return config, nil
	}

	data, err := os.ReadFile(configFileName)
	if err != nil {
		return nil, err
	}

	err = yaml.Unmarshal(data, config)
	if err != nil {
		return nil, fmt.Errorf("can't parse config %s: %w", configFileName, err)
	}

	return config, nil
}

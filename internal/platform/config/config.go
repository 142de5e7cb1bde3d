package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Console captures everything the console process needs at startup.
type Console struct {
	API     API     `yaml:"api"`
	Storage Storage `yaml:"storage"`
	Auth    Auth    `yaml:"auth"`
	Layout  Layout  `yaml:"layout"`
	Diag    Diag    `yaml:"diagnostics"`
	Log     Log     `yaml:"log"`
}

// API configures the backend REST client.
type API struct {
	BaseURL           string        `yaml:"base_url"`
	Timeout           time.Duration `yaml:"timeout"`
	RequestsPerSecond float64       `yaml:"requests_per_second"`
	Burst             int           `yaml:"burst"`
	BreakerThreshold  int           `yaml:"breaker_threshold"`
}

// Storage configures where the credential is persisted between runs.
type Storage struct {
	Path string `yaml:"path"`
	// Key is a hex-encoded 32-byte key. When set, the credential file is sealed.
	Key       string `yaml:"key"`
	Ephemeral bool   `yaml:"ephemeral"`
}

// Auth configures local token checks on session restoration.
type Auth struct {
	// JWTVerifyKey enables HS256 signature verification of the stored token.
	// Empty means claims are decoded without verification; the backend stays
	// the authority on every request.
	JWTVerifyKey string `yaml:"jwt_verify_key"`
}

// Layout configures the chrome breakpoint, in terminal columns.
type Layout struct {
	Breakpoint int `yaml:"breakpoint"`
}

// Diag configures the optional diagnostics HTTP listener.
type Diag struct {
	Addr string `yaml:"addr"`
}

// Log configures the structured logger.
type Log struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

var (
	DefaultAPITimeout       = 15 * time.Second
	DefaultRequestsPerSec   = 10.0
	DefaultBurst            = 5
	DefaultBreakerThreshold = 5
	DefaultBreakpoint       = 100
)

// Default returns the configuration used when neither a file nor the
// environment says otherwise.
func Default() Console {
	return Console{
		API: API{
			BaseURL:           "http://localhost:8080/api",
			Timeout:           DefaultAPITimeout,
			RequestsPerSecond: DefaultRequestsPerSec,
			Burst:             DefaultBurst,
			BreakerThreshold:  DefaultBreakerThreshold,
		},
		Storage: Storage{Path: DefaultStoragePath()},
		Layout:  Layout{Breakpoint: DefaultBreakpoint},
		Log:     Log{Level: "info"},
	}
}

// Load builds a Console config from defaults, an optional YAML file and the
// environment, in that order of precedence (later wins).
func Load(path string) (Console, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Console{}, fmt.Errorf("reading config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Console{}, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}
	applyEnv(&cfg)
	if err := cfg.Validate(); err != nil {
		return Console{}, err
	}
	return cfg, nil
}

// FromEnv builds a Console config from defaults and environment variables only.
func FromEnv() Console {
	cfg := Default()
	applyEnv(&cfg)
	return cfg
}

func applyEnv(cfg *Console) {
	if v := os.Getenv("COOPCONSOLE_API_URL"); v != "" {
		cfg.API.BaseURL = v
	}
	if v := os.Getenv("COOPCONSOLE_API_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.API.Timeout = d
		}
	}
	if v := os.Getenv("COOPCONSOLE_API_RPS"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.API.RequestsPerSecond = f
		}
	}
	if v := os.Getenv("COOPCONSOLE_STORAGE_PATH"); v != "" {
		cfg.Storage.Path = v
	}
	if v := os.Getenv("COOPCONSOLE_STORAGE_KEY"); v != "" {
		cfg.Storage.Key = v
	}
	if v := os.Getenv("COOPCONSOLE_JWT_VERIFY_KEY"); v != "" {
		cfg.Auth.JWTVerifyKey = v
	}
	if v := os.Getenv("COOPCONSOLE_BREAKPOINT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Layout.Breakpoint = n
		}
	}
	if v := os.Getenv("COOPCONSOLE_DIAG_ADDR"); v != "" {
		cfg.Diag.Addr = v
	}
	if v := os.Getenv("COOPCONSOLE_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("COOPCONSOLE_LOG_FILE"); v != "" {
		cfg.Log.File = v
	}
}

// Validate rejects configurations the console cannot start with.
func (c Console) Validate() error {
	if c.API.BaseURL == "" {
		return fmt.Errorf("api base url is required")
	}
	if c.API.Timeout <= 0 {
		return fmt.Errorf("api timeout must be positive, got %s", c.API.Timeout)
	}
	if c.Layout.Breakpoint <= 0 {
		return fmt.Errorf("layout breakpoint must be positive, got %d", c.Layout.Breakpoint)
	}
	if !c.Storage.Ephemeral && c.Storage.Path == "" {
		return fmt.Errorf("storage path is required unless storage is ephemeral")
	}
	return nil
}

// DefaultStoragePath returns the credential file location. Checks
// XDG_CONFIG_HOME first, then falls back to ~/.config/coopconsole.
func DefaultStoragePath() string {
	configDirectory := os.Getenv("XDG_CONFIG_HOME")
	if configDirectory == "" {
		homeDirectory, err := os.UserHomeDir()
		if err != nil {
			return filepath.Join(os.TempDir(), "coopconsole-credential.json")
		}
		configDirectory = filepath.Join(homeDirectory, ".config")
	}
	return filepath.Join(configDirectory, "coopconsole", "credential.json")
}

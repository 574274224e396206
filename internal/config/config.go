package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// Config represents the main configuration for fscope.
type Config struct {
	BaseDir  string         `toml:"base_dir"`
	LogDir   string         `toml:"log_dir"`
	Browser  BrowserConfig  `toml:"browser"`
	Monitor  MonitorConfig  `toml:"monitor"`
	Access   AccessConfig   `toml:"access"`
	Keys     KeysConfig     `toml:"keys"`
	Database DatabaseConfig `toml:"database"`
}

// BrowserConfig holds directory listing preferences.
type BrowserConfig struct {
	ShowHidden bool `toml:"show_hidden"`
}

// MonitorConfig holds change monitoring settings.
type MonitorConfig struct {
	LatencyMillis int      `toml:"latency_ms"` // coalescing window; defaults to 500
	Ignore        []string `toml:"ignore"`     // directory patterns never watched
}

// Latency returns the coalescing window, applying the default.
func (c MonitorConfig) Latency() time.Duration {
	if c.LatencyMillis <= 0 {
		return DefaultLatency
	}
	return time.Duration(c.LatencyMillis) * time.Millisecond
}

// AccessConfig holds scoped access settings.
type AccessConfig struct {
	MaxActive int      `toml:"max_active"` // concurrent scoped accesses; defaults to 512
	Sandbox   []string `toml:"sandbox"`    // roots that need no scoped access
}

// KeysConfig holds the identity used to seal access tokens.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type KeysConfig struct {
	Type         string `toml:"type"`                    // "age" (default) or "test"
	IdentityPath string `toml:"identity_path,omitempty"` // only used for type=age
}

// DatabaseConfig represents configuration for the bookmark database.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type DatabaseConfig struct {
	Type    string `toml:"type"`               // "sqlite" or "memory"
	DataDir string `toml:"data_dir,omitempty"` // only used for type=sqlite
}

// DefaultLatency is the monitor coalescing window used when none is set.
const DefaultLatency = 500 * time.Millisecond

// NewConfig creates a new Config rooted at baseDir with default settings.
func NewConfig(baseDir string, ignore []string) *Config {
	return &Config{
		BaseDir: baseDir,
		LogDir:  filepath.Join(baseDir, "log"),
		Monitor: MonitorConfig{
			LatencyMillis: int(DefaultLatency / time.Millisecond),
			Ignore:        ignore,
		},
		Access: AccessConfig{
			MaxActive: 512,
		},
		Keys: KeysConfig{
			Type:         "age",
			IdentityPath: filepath.Join(baseDir, "keys", "tokens.key"),
		},
		Database: DatabaseConfig{
			Type:    "sqlite",
			DataDir: filepath.Join(baseDir, "db"),
		},
	}
}

// Validate reports the first setting that cannot be used.
func (c *Config) Validate() error {
	if c.Monitor.LatencyMillis < 0 {
		return fmt.Errorf("monitor.latency_ms must not be negative: %d", c.Monitor.LatencyMillis)
	}
	if c.Access.MaxActive < 0 {
		return fmt.Errorf("access.max_active must not be negative: %d", c.Access.MaxActive)
	}
	for _, root := range c.Access.Sandbox {
		if !filepath.IsAbs(root) {
			return fmt.Errorf("access.sandbox entry must be absolute: %q", root)
		}
	}
	switch c.Keys.Type {
	case "", "age":
		if c.Keys.IdentityPath == "" {
			return fmt.Errorf("keys.identity_path required for age keys")
		}
	case "test":
	default:
		return fmt.Errorf("unknown keys type %q", c.Keys.Type)
	}
	switch c.Database.Type {
	case "", "sqlite", "memory":
	default:
		return fmt.Errorf("unknown database type %q", c.Database.Type)
	}
	return nil
}

// Manager handles reading and writing configuration.
type Manager struct{}

// Read decodes a Config from r. Keys that match no setting are an error so
// typos do not pass silently.
func (m *Manager) Read(r io.Reader) (*Config, error) {
	var cfg Config
	md, err := toml.NewDecoder(r).Decode(&cfg)
	if err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("unknown config key %q", undecoded[0].String())
	}
	return &cfg, nil
}

// Write encodes cfg to w.
func (m *Manager) Write(w io.Writer, cfg *Config) error {
	if err := toml.NewEncoder(w).Encode(cfg); err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	return nil
}

// ReadFromFile reads and validates the config at path.
func ReadFromFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening config file: %w", err)
	}
	defer f.Close()

	cfg, err := (&Manager{}).Read(f)
	if err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Init writes cfg to a new file at path. It fails if the file exists.
func Init(path string, cfg *Config) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("initializing config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if errors.Is(err, os.ErrExist) {
		return fmt.Errorf("config file already exists at %s", path)
	}
	if err != nil {
		return fmt.Errorf("creating config file: %w", err)
	}

	if err := (&Manager{}).Write(f, cfg); err != nil {
		f.Close()
		os.Remove(path)
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return f.Close()
}

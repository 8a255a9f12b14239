package config

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Approval selects who decides whether a batch of link rewrites is applied.
type Approval string

const (
	ApprovalAuto   Approval = "auto"   // apply without asking
	ApprovalPrompt Approval = "prompt" // ask the user
	ApprovalNever  Approval = "never"  // report only
)

var ErrInvalidConfig = errors.New("invalid config")

type Config struct {
	Root            string   `json:"root" mapstructure:"root"`
	Extensions      []string `json:"extensions" mapstructure:"extensions"`
	Approval        Approval `json:"approval" mapstructure:"approval"`
	Ignore          []string `json:"ignore" mapstructure:"ignore"` // glob patterns of destinations that are never rewritten
	TitleKey        string   `json:"title_key" mapstructure:"title_key"`
	HeadingFallback bool     `json:"heading_fallback" mapstructure:"heading_fallback"`
	Enabled         bool     `json:"enabled" mapstructure:"enabled"`
	StateDir        string   `json:"state_dir" mapstructure:"state_dir"`
	RescanMinutes   int      `json:"rescan_minutes" mapstructure:"rescan_minutes"`
}

var defaultConfig = Config{
	Root:            ".",
	Extensions:      []string{".md"},
	Approval:        ApprovalPrompt,
	TitleKey:        "title",
	HeadingFallback: true,
	Enabled:         true,
	RescanMinutes:   10,
}

func Default() Config {
	cfg := defaultConfig
	cfg.Extensions = append([]string(nil), defaultConfig.Extensions...)
	return cfg
}

// Load merges the initialization options of an editor over the defaults.
func Load(v any) (Config, error) {
	cfg := Default()

	data, err := json.Marshal(v)
	if err != nil {
		return Config{}, fmt.Errorf("failed to marshal source: %w", err)
	}

	// only fields present in src will overwrite.
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal into Config: %w", err)
	}

	return cfg, cfg.Validate()
}

// NewViper prepares a viper instance that reads NOTELINKS_* variables and
// an optional .notelinks.yaml in dir.
func NewViper(dir string) *viper.Viper {
	v := viper.New()
	v.SetDefault("root", defaultConfig.Root)
	v.SetDefault("extensions", defaultConfig.Extensions)
	v.SetDefault("approval", string(defaultConfig.Approval))
	v.SetDefault("ignore", []string{})
	v.SetDefault("title_key", defaultConfig.TitleKey)
	v.SetDefault("heading_fallback", defaultConfig.HeadingFallback)
	v.SetDefault("enabled", defaultConfig.Enabled)
	v.SetDefault("state_dir", "")
	v.SetDefault("rescan_minutes", defaultConfig.RescanMinutes)

	v.SetConfigName(".notelinks")
	v.SetConfigType("yaml")
	if dir != "" {
		v.AddConfigPath(dir)
	}
	v.SetEnvPrefix("notelinks")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	return v
}

// LoadViper reads the config file of v, if any, and decodes the result.
func LoadViper(v *viper.Viper) (Config, error) {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal into Config: %w", err)
	}
	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	switch c.Approval {
	case ApprovalAuto, ApprovalPrompt, ApprovalNever:
	default:
		return fmt.Errorf("%w: approval must be auto, prompt or never, got %q", ErrInvalidConfig, c.Approval)
	}
	if len(c.Extensions) == 0 {
		return fmt.Errorf("%w: no note extensions", ErrInvalidConfig)
	}
	for _, e := range c.Extensions {
		if !strings.HasPrefix(e, ".") {
			return fmt.Errorf("%w: extension %q must start with a dot", ErrInvalidConfig, e)
		}
	}
	for _, pattern := range c.Ignore {
		if _, err := path.Match(pattern, ""); err != nil {
			return fmt.Errorf("%w: ignore pattern %q: %v", ErrInvalidConfig, pattern, err)
		}
	}
	return nil
}

// RescanInterval is the period of full vault scans catching changes the
// watcher missed.
func (c Config) RescanInterval() time.Duration {
	if c.RescanMinutes <= 0 {
		return time.Duration(defaultConfig.RescanMinutes) * time.Minute
	}
	return time.Duration(c.RescanMinutes) * time.Minute
}

// DatabasePath returns the location of the title index of the vault.
// Every vault root gets its own database in the state directory.
func (c Config) DatabasePath() (string, error) {
	root, err := filepath.Abs(c.Root)
	if err != nil {
		return "", err
	}
	dir := c.StateDir
	if dir == "" {
		if dir, err = stateHome(); err != nil {
			return "", err
		}
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create state directory: %w", err)
	}
	sum := sha256.Sum256([]byte(root))
	name := filepath.Base(root) + "-" + hex.EncodeToString(sum[:6]) + ".db"
	return filepath.Join(dir, name), nil
}

func stateHome() (string, error) {
	if dir := os.Getenv("XDG_STATE_HOME"); dir != "" {
		return filepath.Join(dir, "notelinks"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".local", "state", "notelinks"), nil
}

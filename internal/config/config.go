// Package config persists the gallery configuration file. The file keeps the
// two-section layout the web frontend reads: server settings under
// python_config and opaque UI preferences under javascript_config.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

// DefaultFile is used when no config path is supplied.
const DefaultFile = "gallery.config.json"

// Settings is the server-side section of the configuration.
type Settings struct {
	SessionPassword   string `json:"SESSION_PASSWORD"`
	ShuffleMedia      bool   `json:"SHUFFLE_MEDIA"`
	SaveCurrentIndex  bool   `json:"SAVE_CURRENT_INDEX"`
	MediaPageSize     int    `json:"MEDIA_PAGE_SIZE" validate:"min=1,max=1000"`
	TunnelProvider    string `json:"TUNNEL_PROVIDER" validate:"omitempty,oneof=none cloudflare pinggy upnp"`
	TunnelLocalPort   int    `json:"TUNNEL_LOCAL_PORT" validate:"min=1,max=65535"`
	PinggyAccessToken string `json:"PINGGY_ACCESS_TOKEN"`
	Port              int    `json:"PORT" validate:"min=1,max=65535"`
	DataDir           string `json:"DATA_DIR" validate:"required"`
	BrowseRoot        string `json:"BROWSE_ROOT"`
	IndexSyncWindowMS int    `json:"INDEX_SYNC_WINDOW_MS" validate:"min=0,max=30000"`
	DiscordWebhookURL string `json:"DISCORD_WEBHOOK_URL" validate:"omitempty,url"`
}

// Config is the full configuration document.
type Config struct {
	Settings Settings               `json:"python_config"`
	UI       map[string]interface{} `json:"javascript_config"`
}

// Defaults returns the configuration written for a fresh install.
func Defaults() Config {
	home, err := os.UserHomeDir()
	if err != nil {
		home = ""
	}
	return Config{
		Settings: Settings{
			ShuffleMedia:      true,
			MediaPageSize:     10,
			TunnelProvider:    "none",
			TunnelLocalPort:   5000,
			Port:              5000,
			DataDir:           "data",
			BrowseRoot:        home,
			IndexSyncWindowMS: 1500,
		},
		UI: map[string]interface{}{},
	}
}

var validate = validator.New()

// Validate checks field ranges and enumerations.
func (c Config) Validate() error {
	if err := validate.Struct(c.Settings); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("invalid value for %s: failed '%s' check", fe.Field(), fe.Tag())
		}
		return err
	}
	return nil
}

// Store loads and saves the configuration file and keeps the live copy.
type Store struct {
	path string
	mu   sync.RWMutex
	cfg  Config
}

// NewStore creates a store for path, bootstrapping the file with defaults
// when it does not exist. The returned error reports a load problem; the
// store is still usable and serves defaults in that case.
func NewStore(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		path = DefaultFile
	}
	s := &Store{path: path, cfg: Defaults()}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		if err := s.writeLocked(s.cfg); err != nil {
			return s, fmt.Errorf("unable to create default configuration at %s: %w", path, err)
		}
		return s, nil
	}
	_, err := s.Load()
	return s, err
}

// Path returns the config file path.
func (s *Store) Path() string {
	return s.path
}

// Load re-reads the file. On failure the last good configuration is kept
// and returned together with the error.
func (s *Store) Load() (Config, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return s.Current(), fmt.Errorf("configuration file not readable: %w", err)
	}
	cfg := Defaults()
	if len(data) > 0 {
		if err := json.Unmarshal(data, &cfg); err != nil {
			return s.Current(), fmt.Errorf("error parsing configuration: %w", err)
		}
	}
	if cfg.UI == nil {
		cfg.UI = map[string]interface{}{}
	}
	cfg.Settings.TunnelProvider = strings.TrimSpace(cfg.Settings.TunnelProvider)
	if cfg.Settings.TunnelProvider == "" {
		cfg.Settings.TunnelProvider = "none"
	}
	if err := cfg.Validate(); err != nil {
		return s.Current(), fmt.Errorf("configuration rejected: %w", err)
	}
	s.mu.Lock()
	s.cfg = cfg
	s.mu.Unlock()
	return cfg, nil
}

// Current returns a copy of the live configuration.
func (s *Store) Current() Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneConfig(s.cfg)
}

// Settings returns the live server settings.
func (s *Store) Settings() Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg.Settings
}

// Save merges a raw JSON document over the current configuration,
// validates the result and persists it. Sections or keys missing from raw
// keep their current values.
func (s *Store) Save(raw []byte) (Config, error) {
	if len(strings.TrimSpace(string(raw))) == 0 {
		return Config{}, errors.New("no configuration data provided")
	}
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(raw, &probe); err != nil {
		return Config{}, fmt.Errorf("invalid configuration format: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	merged := cloneConfig(s.cfg)
	if section, ok := probe["python_config"]; ok {
		if err := json.Unmarshal(section, &merged.Settings); err != nil {
			return Config{}, fmt.Errorf("invalid python_config: %w", err)
		}
	}
	if section, ok := probe["javascript_config"]; ok {
		ui := map[string]interface{}{}
		if err := json.Unmarshal(section, &ui); err != nil {
			return Config{}, fmt.Errorf("invalid javascript_config: %w", err)
		}
		merged.UI = ui
	}
	if err := merged.Validate(); err != nil {
		return Config{}, err
	}
	if err := s.writeLocked(merged); err != nil {
		return Config{}, fmt.Errorf("failed to save configuration: %w", err)
	}
	s.cfg = merged
	return cloneConfig(merged), nil
}

// writeLocked writes cfg atomically. Caller must hold s.mu or own s exclusively.
func (s *Store) writeLocked(cfg Config) error {
	if dir := filepath.Dir(s.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}

func cloneConfig(c Config) Config {
	out := Config{Settings: c.Settings, UI: make(map[string]interface{}, len(c.UI))}
	for k, v := range c.UI {
		out.UI[k] = v
	}
	return out
}

// ToMap renders the configuration as a generic JSON object so handlers can
// decorate it with derived flags.
func (c Config) ToMap() (map[string]interface{}, error) {
	data, err := json.Marshal(c)
	if err != nil {
		return nil, err
	}
	out := map[string]interface{}{}
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}

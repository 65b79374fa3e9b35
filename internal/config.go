package internal

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/lorekeep/internal/drilldown"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Config represents the application configuration.
type Config struct {
	App       ApplicationConfig `yaml:"app"`
	Data      DataConfig        `yaml:"data"`
	SQLite    SQLiteConfig      `yaml:"sqlite"`
	Auth      AuthConfig        `yaml:"auth"`
	Drilldown DrilldownConfig   `yaml:"drilldown"`
	Events    EventsConfig      `yaml:"events"`
	History   HistoryConfig     `yaml:"history"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	for _, v := range []validation.Validatable{&c.App, &c.Data, &c.SQLite, &c.Auth, &c.Drilldown, &c.Events, &c.History} {
		if err := v.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	HTTP     HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// DataConfig locates the data directory and the files inside it.
type DataConfig struct {
	Dir          string `yaml:"dir"`
	RegistryFile string `yaml:"registry_file"`
	SnapshotDir  string `yaml:"snapshot_dir"`
}

// RegistryPath returns the absolute-or-relative path of the registry file.
func (c *DataConfig) RegistryPath() string {
	return filepath.Join(c.Dir, c.RegistryFile)
}

// relativeName rejects names that would escape the data directory.
var relativeName = validation.By(func(value any) error {
	s, _ := value.(string)
	if s == "" {
		return nil
	}
	if !filepath.IsLocal(s) {
		return fmt.Errorf("must be a path inside the data directory")
	}
	return nil
})

// Validate validates the data configuration.
func (c *DataConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Dir, validation.Required),
		validation.Field(&c.RegistryFile, validation.Required, relativeName),
		validation.Field(&c.SnapshotDir, validation.Required, relativeName),
	)
}

// SQLiteConfig holds SQLite database configuration.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the SQLite configuration.
func (c *SQLiteConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// AuthConfig holds authentication configuration.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication required, suitable for local dev.
//   - "token": Bearer token authentication; Token must be non-empty.
type AuthConfig struct {
	Mode  string `yaml:"mode"`
	Token string `yaml:"token"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	if c.Mode == "" {
		c.Mode = AuthModeDisabled
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(AuthModeDisabled, AuthModeToken)),
	); err != nil {
		return err
	}
	if c.Mode == AuthModeToken && c.Token == "" {
		return fmt.Errorf("auth: mode is %q but token is empty", AuthModeToken)
	}
	return nil
}

// AuthEnabled returns true when authentication is active.
func (c *AuthConfig) AuthEnabled() bool {
	return c.Mode == AuthModeToken
}

// DrilldownConfig holds the view materializer defaults.
type DrilldownConfig struct {
	NodeBudget      int  `yaml:"node_budget"`
	MaxDepth        int  `yaml:"max_depth"`
	ShowAuthorNotes bool `yaml:"show_author_notes"`
}

// Validate validates the drilldown configuration.
func (c *DrilldownConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.NodeBudget, validation.Required, validation.Min(1), validation.Max(10000)),
		validation.Field(&c.MaxDepth, validation.Required, validation.Min(1), validation.Max(32)),
	)
}

// Options converts the configuration to materializer defaults.
func (c *DrilldownConfig) Options() drilldown.Options {
	return drilldown.Options{
		NodeBudget:      c.NodeBudget,
		MaxDepth:        c.MaxDepth,
		ShowAuthorNotes: c.ShowAuthorNotes,
	}
}

// EventsConfig holds SSE broker configuration.
type EventsConfig struct {
	GraphThrottle time.Duration `yaml:"graph_throttle"`
}

// Validate validates the events configuration.
func (c *EventsConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.GraphThrottle, validation.Min(time.Duration(0))),
	)
}

// HistoryConfig bounds the undo stack.
type HistoryConfig struct {
	Depth int `yaml:"depth"`
}

// Validate validates the history configuration.
func (c *HistoryConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Depth, validation.Required, validation.Min(1), validation.Max(1000)),
	)
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		Data: DataConfig{
			Dir:          "./data",
			RegistryFile: "registry.json",
			SnapshotDir:  "snapshots",
		},
		SQLite: SQLiteConfig{
			Path: "./lorekeep.db",
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
		Drilldown: DrilldownConfig{
			NodeBudget: drilldown.DefaultNodeBudget,
			MaxDepth:   drilldown.DefaultMaxDepth,
		},
		Events: EventsConfig{
			GraphThrottle: 2 * time.Second,
		},
		History: HistoryConfig{
			Depth: 50,
		},
	}
}

package internal

import (
	"log/slog"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/notecore/internal/notestore"
)

// Config represents the application configuration.
type Config struct {
	App    ApplicationConfig `yaml:"app"`
	Notes  NotesConfig       `yaml:"notes"`
	Editor EditorConfig      `yaml:"editor"`
	SQLite SQLiteConfig      `yaml:"sqlite"`
	MCP    MCPConfig         `yaml:"mcp"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.Notes.Validate(); err != nil {
		return err
	}
	return c.SQLite.Validate()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
}

// NotesConfig says where notes live and how new ones are made.
type NotesConfig struct {
	Path string `yaml:"path"`
	// BackupPath receives deleted notes. Empty deletes them outright.
	BackupPath    string `yaml:"backup_path"`
	TemplateTitle string `yaml:"template_title"`
	Watch         bool   `yaml:"watch"`
}

// Validate validates the notes configuration.
func (c *NotesConfig) Validate() error {
	if c.TemplateTitle == "" {
		c.TemplateTitle = notestore.DefaultTemplateTitle
	}
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
		validation.Field(&c.BackupPath, validation.NotIn(c.Path).Error("must differ from the notes path")),
	)
}

// EditorConfig holds document editing behavior.
type EditorConfig struct {
	AutoBulletedLists bool `yaml:"auto_bulleted_lists"`
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

// MCPConfig controls the stdio MCP server.
type MCPConfig struct {
	Enabled bool `yaml:"enabled"`
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
		},
		Notes: NotesConfig{
			Path:          "./notes",
			TemplateTitle: notestore.DefaultTemplateTitle,
			Watch:         true,
		},
		Editor: EditorConfig{
			AutoBulletedLists: true,
		},
		SQLite: SQLiteConfig{
			Path: "./notecore.db",
		},
		MCP: MCPConfig{
			Enabled: true,
		},
	}
}

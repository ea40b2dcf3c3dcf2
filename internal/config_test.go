package internal

import (
	"os"
	"path/filepath"
	"testing"

	pkgconfig "github.com/starford/notecore/pkg/config"
)

func TestDefaultConfig_Valid(t *testing.T) {
	cfg := NewDefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should pass: %v", err)
	}
	if !cfg.Notes.Watch || !cfg.Editor.AutoBulletedLists || !cfg.MCP.Enabled {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
}

func TestNotesConfig_PathRequired(t *testing.T) {
	cfg := NotesConfig{}
	if err := cfg.Validate(); err == nil {
		t.Fatal("empty notes path should fail")
	}
}

func TestNotesConfig_BackupMustDiffer(t *testing.T) {
	cfg := NotesConfig{Path: "/data/notes", BackupPath: "/data/notes"}
	if err := cfg.Validate(); err == nil {
		t.Fatal("backup path equal to notes path should fail")
	}
	cfg.BackupPath = "/data/backup"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("distinct backup path should pass: %v", err)
	}
}

func TestNotesConfig_TemplateTitleDefault(t *testing.T) {
	cfg := NotesConfig{Path: "notes"}
	if err := cfg.Validate(); err != nil {
		t.Fatal(err)
	}
	if cfg.TemplateTitle != "New Note Template" {
		t.Errorf("template title = %q", cfg.TemplateTitle)
	}
}

func TestSQLiteConfig_PathRequired(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.SQLite.Path = ""
	if err := cfg.Validate(); err == nil {
		t.Fatal("full config validate should catch missing sqlite path")
	}
}

func TestLoad_OverridesDefaultsAndExpandsEnv(t *testing.T) {
	t.Setenv("NOTECORE_TEST_DIR", "/srv/notes")
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `
app:
  log_level: debug
notes:
  path: ${NOTECORE_TEST_DIR}
  watch: false
sqlite:
  path: /srv/notecore.db
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := NewDefaultConfig()
	if err := pkgconfig.Load(path, cfg); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Notes.Path != "/srv/notes" {
		t.Errorf("notes path = %q", cfg.Notes.Path)
	}
	if cfg.Notes.Watch {
		t.Error("watch should be overridden to false")
	}
	if !cfg.MCP.Enabled {
		t.Error("unset mcp.enabled should keep its default")
	}
	if cfg.App.LogLevel.String() != "DEBUG" {
		t.Errorf("log level = %v", cfg.App.LogLevel)
	}
}

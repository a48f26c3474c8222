package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestLoadEmptyPathReturnsDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.PlaylistSpecDir != "playlist-data" {
		t.Errorf("playlist spec dir = %q", cfg.PlaylistSpecDir)
	}
	if cfg.ProgressInterval != 10 {
		t.Errorf("progress interval = %d", cfg.ProgressInterval)
	}
	if len(cfg.AudioExtensions) == 0 {
		t.Error("no default audio extensions")
	}
}

func TestLoadOverlaysFileOnDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	content := `{
		"collection_path": "/music",
		"database_path": "/data/master.db",
		"root_playlist_folder": "Generated",
		"progress_interval": 50,
		"unknown_future_key": true
	}`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.CollectionPath != "/music" || cfg.DatabasePath != "/data/master.db" {
		t.Errorf("paths not loaded: %+v", cfg)
	}
	if cfg.ProgressInterval != 50 {
		t.Errorf("progress interval = %d, want 50", cfg.ProgressInterval)
	}
	// Keys absent from the file keep their defaults.
	if cfg.PlaylistSpecDir != "playlist-data" {
		t.Errorf("playlist spec dir = %q", cfg.PlaylistSpecDir)
	}
}

func TestLoadRejectsMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := Load(path)
	if !errors.Is(err, ErrInvalid) {
		t.Fatalf("err = %v, want ErrInvalid", err)
	}
}

func TestLoadMissingFileFails(t *testing.T) {
	if _, err := Load("/no/such/config.json"); !errors.Is(err, ErrInvalid) {
		t.Fatalf("err = %v, want ErrInvalid", err)
	}
}

func TestLoadRedefaultsDegenerateValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	content := `{"progress_interval": 0, "audio_extensions": []}`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ProgressInterval != 10 {
		t.Errorf("progress interval = %d, want default 10", cfg.ProgressInterval)
	}
	if len(cfg.AudioExtensions) == 0 {
		t.Error("empty extension list should fall back to defaults")
	}
}

func TestValidateRequiresDatabasePath(t *testing.T) {
	cfg := Config{}
	if err := cfg.Validate(); !errors.Is(err, ErrInvalid) {
		t.Fatalf("err = %v, want ErrInvalid", err)
	}

	cfg.DatabasePath = "/data/master.db"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
}

func TestBackupDirOrDefault(t *testing.T) {
	cfg := Config{DatabasePath: "/data/rekordbox/master.db"}
	if got := cfg.BackupDirOrDefault(); got != filepath.Join("/data/rekordbox", "Backup") {
		t.Errorf("default backup dir = %q", got)
	}

	cfg.BackupDir = "/backups"
	if got := cfg.BackupDirOrDefault(); got != "/backups" {
		t.Errorf("explicit backup dir = %q", got)
	}
}

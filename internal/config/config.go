// internal/config/config.go

// Package config loads the tool's JSON configuration file and applies the
// built-in defaults. Unknown keys in the file are ignored; CLI flags
// override whatever the file provides.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
)

// ErrInvalid marks configuration problems that should abort a run before
// any I/O happens.
var ErrInvalid = errors.New("invalid configuration")

// Config is the flat settings object every batch job receives.
type Config struct {
	CollectionPath     string   `json:"collection_path"`
	DatabasePath       string   `json:"database_path"`
	BackupDir          string   `json:"backup_dir"`
	PlaylistSpecDir    string   `json:"playlist_spec_dir"`
	RootPlaylistFolder string   `json:"root_playlist_folder"`
	DryRun             bool     `json:"dry_run"`
	SkipBackup         bool     `json:"skip_backup"`
	AudioExtensions    []string `json:"audio_extensions"`
	ProgressInterval   int      `json:"progress_interval"`
}

// Default returns the built-in settings used when a key is absent from the
// config file.
func Default() Config {
	return Config{
		DatabasePath:     DetectDatabasePath(),
		PlaylistSpecDir:  "playlist-data",
		AudioExtensions:  []string{".mp3", ".wav", ".flac", ".aiff", ".m4a"},
		ProgressInterval: 10,
	}
}

// Load reads the JSON config file at path on top of the defaults. An empty
// path returns the defaults unchanged.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("%w: read config file %s: %v", ErrInvalid, path, err)
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("%w: parse config file %s: %v", ErrInvalid, path, err)
	}
	if cfg.ProgressInterval <= 0 {
		cfg.ProgressInterval = Default().ProgressInterval
	}
	if len(cfg.AudioExtensions) == 0 {
		cfg.AudioExtensions = Default().AudioExtensions
	}
	return cfg, nil
}

// Validate checks the settings a mutating run depends on.
func (c Config) Validate() error {
	if c.DatabasePath == "" {
		return fmt.Errorf("%w: no database path configured and none auto-detected", ErrInvalid)
	}
	return nil
}

// BackupDirOrDefault returns the configured backup directory, falling back
// to a Backup directory next to the database file.
func (c Config) BackupDirOrDefault() string {
	if c.BackupDir != "" {
		return c.BackupDir
	}
	return filepath.Join(filepath.Dir(c.DatabasePath), "Backup")
}

// DetectDatabasePath looks for the Rekordbox 6 master.db in the standard
// per-OS locations. Returns empty when nothing is found.
func DetectDatabasePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}

	var candidates []string
	switch runtime.GOOS {
	case "darwin":
		candidates = []string{
			filepath.Join(home, "Library", "Pioneer", "rekordbox", "master.db"),
		}
	case "windows":
		if appData := os.Getenv("APPDATA"); appData != "" {
			candidates = []string{
				filepath.Join(appData, "Pioneer", "rekordbox", "master.db"),
			}
		}
	default:
		candidates = []string{
			filepath.Join(home, ".Pioneer", "rekordbox", "master.db"),
		}
	}

	for _, candidate := range candidates {
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate
		}
	}
	return ""
}

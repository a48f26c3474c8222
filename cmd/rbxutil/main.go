package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/tseitz/rekordbox-smart-playlist/internal/config"
	"github.com/tseitz/rekordbox-smart-playlist/internal/logging"
	"github.com/tseitz/rekordbox-smart-playlist/internal/rekordbox"
)

var (
	logger zerolog.Logger
	cfg    config.Config
)

var (
	flagConfigPath string
	flagVerbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "rbxutil",
	Short: "Rekordbox collection maintenance tools",
	Long:  "rbxutil writes smart playlists from JSON templates, reconciles track metadata with the filename convention, and manages database backups.",
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfigPath, "config", "", "Path to JSON config file")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "Enable debug logging")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig loads configuration (called by commands that need it).
func loadConfig() error {
	var err error
	cfg, err = config.Load(flagConfigPath)
	if err != nil {
		return err
	}

	logger = logging.Setup(flagVerbose)
	return nil
}

// openStore validates the database path and returns a connected store.
// Callers must Close it; Close flushes the WAL back into the main file.
func openStore() (*rekordbox.Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	store := rekordbox.NewStore(cfg.DatabasePath, logger)
	if err := store.Connect(); err != nil {
		return nil, fmt.Errorf("connect to database %s: %w", cfg.DatabasePath, err)
	}
	return store, nil
}

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tseitz/rekordbox-smart-playlist/internal/backup"
	"github.com/tseitz/rekordbox-smart-playlist/internal/playlist"
	"github.com/tseitz/rekordbox-smart-playlist/internal/smartlist"
)

var playlistsCmd = &cobra.Command{
	Use:   "playlists",
	Short: "Write smart playlists from JSON templates",
	Long:  "Read every playlist template in the template directory, build the smart playlist condition trees, and create or overwrite the playlists in the database. Each template file is applied in its own transaction.",
	RunE:  runPlaylists,
}

var (
	playlistsSpecDir    string
	playlistsDryRun     bool
	playlistsSkipBackup bool
)

func init() {
	rootCmd.AddCommand(playlistsCmd)

	playlistsCmd.Flags().StringVar(&playlistsSpecDir, "specs", "", "Directory of playlist template JSON files (default from config)")
	playlistsCmd.Flags().BoolVar(&playlistsDryRun, "dry-run", false, "Report what would change without writing")
	playlistsCmd.Flags().BoolVar(&playlistsSkipBackup, "skip-backup", false, "Skip the automatic database backup")
}

func runPlaylists(cmd *cobra.Command, args []string) error {
	if err := loadConfig(); err != nil {
		return err
	}

	specDir := cfg.PlaylistSpecDir
	if playlistsSpecDir != "" {
		specDir = playlistsSpecDir
	}
	dryRun := playlistsDryRun || cfg.DryRun
	skipBackup := playlistsSkipBackup || cfg.SkipBackup

	paths, err := smartlist.LoadSpecDir(specDir)
	if err != nil {
		return fmt.Errorf("read template directory: %w", err)
	}
	if len(paths) == 0 {
		return fmt.Errorf("no playlist templates found in %s", specDir)
	}
	logger.Info().Int("templates", len(paths)).Str("dir", specDir).Msg("loading playlist templates")

	if !dryRun && !skipBackup {
		mgr := backup.NewManager(cfg.DatabasePath, cfg.BackupDirOrDefault(), logger)
		archive, err := mgr.Create()
		if err != nil {
			return fmt.Errorf("backup before playlist write: %w", err)
		}
		logger.Info().Str("archive", archive.Name).Msg("database backed up")
	}

	store, err := openStore()
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error().Err(err).Msg("close database")
		}
	}()

	writer := playlist.NewWriter(store, cfg.RootPlaylistFolder, dryRun, logger)

	var created, updated, failed int
	for _, path := range paths {
		specs, err := smartlist.LoadSpecFile(path)
		if err != nil {
			logger.Error().Err(err).Str("file", path).Msg("template rejected")
			failed++
			continue
		}
		for _, spec := range specs {
			trees, err := smartlist.Build(spec, store)
			if err != nil {
				logger.Error().Err(err).Str("category", spec.Parent).Msg("condition build failed, category skipped")
				failed++
				continue
			}
			result, err := writer.WriteCategory(spec, trees)
			if err != nil {
				logger.Error().Err(err).Str("category", spec.Parent).Msg("category write rolled back")
				failed++
				continue
			}
			created += len(result.Created)
			updated += len(result.Updated)
		}
	}

	fmt.Printf("\nPlaylists written:\n")
	fmt.Printf("  Created: %d\n", created)
	fmt.Printf("  Updated: %d\n", updated)
	if failed > 0 {
		fmt.Printf("  Failed categories: %d\n", failed)
	}
	if dryRun {
		fmt.Printf("\nDry run: no changes were written.\n")
	}
	return nil
}

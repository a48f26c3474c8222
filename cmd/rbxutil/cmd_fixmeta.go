package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tseitz/rekordbox-smart-playlist/internal/backup"
	"github.com/tseitz/rekordbox-smart-playlist/internal/reconcile"
)

var fixmetaCmd = &cobra.Command{
	Use:   "fixmeta",
	Short: "Reconcile track metadata with the filename convention",
	Long:  "Compare each collection file named \"artist - title.ext\" (or \"artist - album - title.ext\") against its database record. Conflicts are resolved interactively unless a batch policy is given.",
	RunE:  runFixmeta,
}

var (
	fixmetaCollectionPath  string
	fixmetaBatchDatabase   bool
	fixmetaBatchFilename   bool
	fixmetaUpdateFilenames bool
	fixmetaPreview         bool
	fixmetaPreviewCount    int
	fixmetaDryRun          bool
	fixmetaSkipBackup      bool
	fixmetaListBackups     bool
)

func init() {
	rootCmd.AddCommand(fixmetaCmd)

	fixmetaCmd.Flags().StringVar(&fixmetaCollectionPath, "collection-path", "", "Collection directory to scan (default from config)")
	fixmetaCmd.Flags().BoolVar(&fixmetaBatchDatabase, "batch-database", false, "Resolve every conflict in favor of the database, no prompts")
	fixmetaCmd.Flags().BoolVar(&fixmetaBatchFilename, "batch-filename", false, "Resolve every conflict in favor of the filename, no prompts")
	fixmetaCmd.Flags().BoolVar(&fixmetaUpdateFilenames, "update-filenames", false, "Rename files to match the database instead of editing records")
	fixmetaCmd.Flags().BoolVar(&fixmetaPreview, "preview", false, "Show filename, embedded tag, and database metadata side by side, then exit")
	fixmetaCmd.Flags().IntVar(&fixmetaPreviewCount, "preview-count", 20, "Number of files to include in the preview")
	fixmetaCmd.Flags().BoolVar(&fixmetaDryRun, "dry-run", false, "Report what would change without writing")
	fixmetaCmd.Flags().BoolVar(&fixmetaSkipBackup, "skip-backup", false, "Skip the automatic database backup")
	fixmetaCmd.Flags().BoolVar(&fixmetaListBackups, "list-backups", false, "List available database backups and exit")
}

func runFixmeta(cmd *cobra.Command, args []string) error {
	if err := loadConfig(); err != nil {
		return err
	}
	if fixmetaBatchDatabase && fixmetaBatchFilename {
		return fmt.Errorf("--batch-database and --batch-filename are mutually exclusive")
	}
	if fixmetaListBackups {
		return runBackupList(cmd, nil)
	}

	collectionPath := cfg.CollectionPath
	if fixmetaCollectionPath != "" {
		collectionPath = fixmetaCollectionPath
	}
	if collectionPath == "" {
		return fmt.Errorf("no collection path configured; set collection_path or pass --collection-path")
	}
	dryRun := fixmetaDryRun || cfg.DryRun
	skipBackup := fixmetaSkipBackup || cfg.SkipBackup

	mutating := !dryRun && !fixmetaPreview
	if mutating && !skipBackup {
		mgr := backup.NewManager(cfg.DatabasePath, cfg.BackupDirOrDefault(), logger)
		archive, err := mgr.Create()
		if err != nil {
			return fmt.Errorf("backup before metadata reconciliation: %w", err)
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

	var decider reconcile.Decider
	switch {
	case fixmetaBatchDatabase:
		decider = reconcile.Policy(reconcile.UseDatabase)
	case fixmetaBatchFilename:
		decider = reconcile.Policy(reconcile.UseFilename)
	default:
		decider = &reconcile.ConsoleDecider{In: os.Stdin, Out: os.Stdout}
	}

	rec := reconcile.New(store, decider, reconcile.Options{
		CollectionPath:   collectionPath,
		AudioExtensions:  cfg.AudioExtensions,
		DryRun:           dryRun,
		ProgressInterval: cfg.ProgressInterval,
		UpdateFilenames:  fixmetaUpdateFilenames,
	}, logger)

	if fixmetaPreview {
		return printPreview(rec, fixmetaPreviewCount)
	}

	summary, _, err := rec.Run()
	if err != nil {
		return err
	}

	fmt.Printf("\nReconciliation summary:\n")
	fmt.Printf("  Files scanned: %d\n", summary.TotalFiles)
	fmt.Printf("  Applied:       %d\n", summary.Applied)
	fmt.Printf("  Skipped:       %d\n", summary.Skipped)
	fmt.Printf("  Not in DB:     %d\n", summary.NotFound)
	fmt.Printf("  Unparseable:   %d\n", summary.ParseErrors)
	if summary.Failed > 0 {
		fmt.Printf("  Failed:        %d\n", summary.Failed)
	}
	if summary.DryRun {
		fmt.Printf("\nDry run: no changes were written.\n")
	}
	return nil
}

func printPreview(rec *reconcile.Reconciler, limit int) error {
	rows, err := rec.Preview(limit)
	if err != nil {
		return err
	}

	for _, row := range rows {
		fmt.Printf("%s\n", row.File)
		if row.ParseOK {
			fmt.Printf("  filename: %s / %s", row.FromName.Artist, row.FromName.Title)
			if row.FromName.Album != "" {
				fmt.Printf(" [%s]", row.FromName.Album)
			}
			fmt.Println()
		} else {
			fmt.Printf("  filename: (does not match naming pattern)\n")
		}
		if row.TagArtist != "" || row.TagTitle != "" {
			fmt.Printf("  tags:     %s / %s", row.TagArtist, row.TagTitle)
			if row.TagAlbum != "" {
				fmt.Printf(" [%s]", row.TagAlbum)
			}
			fmt.Println()
		}
		if row.InDatabase {
			fmt.Printf("  database: %s / %s", row.DBArtist, row.DBTitle)
			if row.DBAlbum != "" {
				fmt.Printf(" [%s]", row.DBAlbum)
			}
			fmt.Println()
		} else {
			fmt.Printf("  database: (no record)\n")
		}
	}
	fmt.Printf("\n%d file(s) previewed.\n", len(rows))
	return nil
}

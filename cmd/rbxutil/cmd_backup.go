package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tseitz/rekordbox-smart-playlist/internal/backup"
)

var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Manage database backups",
	Long:  "Create, list, and restore timestamped copies of the Rekordbox database. Restores validate the archive and take a safety backup of the live database first.",
}

var backupCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Back up the database now",
	RunE:  runBackupCreate,
}

var backupListCmd = &cobra.Command{
	Use:   "list",
	Short: "List available backups, newest first",
	RunE:  runBackupList,
}

var backupRestoreCmd = &cobra.Command{
	Use:   "restore REF",
	Short: "Restore a backup over the live database",
	Long:  "REF is either a list index (1 = newest) or an archive name. The archive is validated and the live database backed up before anything is overwritten.",
	Args:  cobra.ExactArgs(1),
	RunE:  runBackupRestore,
}

func init() {
	rootCmd.AddCommand(backupCmd)
	backupCmd.AddCommand(backupCreateCmd)
	backupCmd.AddCommand(backupListCmd)
	backupCmd.AddCommand(backupRestoreCmd)
}

func backupManager() (*backup.Manager, error) {
	if err := loadConfig(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return backup.NewManager(cfg.DatabasePath, cfg.BackupDirOrDefault(), logger), nil
}

func runBackupCreate(cmd *cobra.Command, args []string) error {
	mgr, err := backupManager()
	if err != nil {
		return err
	}

	archive, err := mgr.Create()
	if err != nil {
		return err
	}
	fmt.Printf("Backup written: %s (%d bytes)\n", archive.Path, archive.SizeBytes)
	return nil
}

func runBackupList(cmd *cobra.Command, args []string) error {
	mgr, err := backupManager()
	if err != nil {
		return err
	}

	archives, err := mgr.List()
	if err != nil {
		return err
	}
	if len(archives) == 0 {
		fmt.Printf("No backups in %s\n", mgr.Dir())
		return nil
	}

	for i, a := range archives {
		fmt.Printf("%3d  %s  %s  %d bytes\n", i+1, a.CreatedAt.Format("2006-01-02 15:04:05"), a.Name, a.SizeBytes)
	}
	return nil
}

func runBackupRestore(cmd *cobra.Command, args []string) error {
	mgr, err := backupManager()
	if err != nil {
		return err
	}

	if err := mgr.Restore(args[0]); err != nil {
		return err
	}
	fmt.Printf("Database restored from %s\n", args[0])
	return nil
}

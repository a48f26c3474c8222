// internal/backup/backup.go

// Package backup copies the live Rekordbox database to timestamped archives
// and restores them. Every archive gets a JSON sidecar with its size and
// checksum so a restore can reject truncated or corrupt copies before
// touching the live file. Archives are never deleted automatically.
package backup

import (
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/tseitz/rekordbox-smart-playlist/internal/fsutil"
)

var (
	// ErrArchiveNotFound reports a restore reference that resolves to no
	// existing archive.
	ErrArchiveNotFound = errors.New("backup: archive not found")
	// ErrArchiveCorrupt reports an archive that failed validation and must
	// not be installed over the live database.
	ErrArchiveCorrupt = errors.New("backup: archive failed validation")
)

const (
	archivePrefix = "master_backup_"
	archiveSuffix = ".db"
	// Encrypted Rekordbox databases are a whole number of 4096-byte pages;
	// anything smaller than one page is a truncated copy.
	minArchiveSize = 4096
)

// Archive describes one backup copy of the database file.
type Archive struct {
	Path      string
	Name      string
	CreatedAt time.Time
	SizeBytes int64
	Checksum  string
}

// sidecar is the metadata record written next to each archive.
type sidecar struct {
	CreatedAt time.Time `json:"created_at"`
	SizeBytes int64     `json:"size_bytes"`
	SHA256    string    `json:"sha256"`
	Source    string    `json:"source"`
}

// Manager creates, lists and restores archives of one database file.
type Manager struct {
	dbPath string
	dir    string
	log    zerolog.Logger
}

// NewManager returns a manager archiving dbPath into dir.
func NewManager(dbPath, dir string, log zerolog.Logger) *Manager {
	return &Manager{dbPath: dbPath, dir: dir, log: log}
}

// Dir returns the archive directory.
func (m *Manager) Dir() string {
	return m.dir
}

func checksumFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return fmt.Sprintf("%x", h.Sum(nil)), nil
}

// Create copies the live database into a new timestamped archive and writes
// its sidecar. Fails when the source is unreadable or the archive directory
// is not writable.
func (m *Manager) Create() (*Archive, error) {
	info, err := os.Stat(m.dbPath)
	if err != nil {
		return nil, fmt.Errorf("backup: source database %s: %w", m.dbPath, err)
	}
	if info.Size() == 0 {
		return nil, fmt.Errorf("backup: source database %s is zero length", m.dbPath)
	}

	if err := fsutil.EnsureDirectoryExists(m.dir); err != nil {
		return nil, fmt.Errorf("backup: %w", err)
	}
	if err := fsutil.IsDirWritable(m.dir); err != nil {
		return nil, fmt.Errorf("backup: %w", err)
	}

	created := time.Now()
	stamp := created.Format("2006-01-02@15_04_05")
	name := archivePrefix + stamp + archiveSuffix
	path := filepath.Join(m.dir, name)
	// Second-resolution timestamps collide when a safety backup lands in
	// the same second as the archive being restored.
	for i := 2; ; i++ {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			break
		}
		name = fmt.Sprintf("%s%s_%d%s", archivePrefix, stamp, i, archiveSuffix)
		path = filepath.Join(m.dir, name)
	}

	if err := fsutil.CopyFile(m.dbPath, path); err != nil {
		return nil, fmt.Errorf("backup: copy database: %w", err)
	}

	sum, err := checksumFile(path)
	if err != nil {
		return nil, fmt.Errorf("backup: checksum archive %s: %w", path, err)
	}
	copied, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("backup: stat archive %s: %w", path, err)
	}

	meta := sidecar{
		CreatedAt: created,
		SizeBytes: copied.Size(),
		SHA256:    sum,
		Source:    m.dbPath,
	}
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("backup: marshal sidecar: %w", err)
	}
	if err := os.WriteFile(path+".json", data, 0644); err != nil {
		return nil, fmt.Errorf("backup: write sidecar for %s: %w", path, err)
	}

	m.log.Info().Str("archive", path).Int64("size", copied.Size()).Msg("database backup created")
	return &Archive{
		Path:      path,
		Name:      name,
		CreatedAt: created,
		SizeBytes: copied.Size(),
		Checksum:  sum,
	}, nil
}

// List returns all archives in the backup directory, newest first. A
// missing directory lists as empty rather than failing.
func (m *Manager) List() ([]Archive, error) {
	entries, err := os.ReadDir(m.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("backup: read archive directory %s: %w", m.dir, err)
	}

	var archives []Archive
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, archivePrefix) || !strings.HasSuffix(name, archiveSuffix) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		a := Archive{
			Path:      filepath.Join(m.dir, name),
			Name:      name,
			CreatedAt: info.ModTime(),
			SizeBytes: info.Size(),
		}
		if meta, err := readSidecar(a.Path); err == nil {
			a.CreatedAt = meta.CreatedAt
			a.Checksum = meta.SHA256
		}
		archives = append(archives, a)
	}

	sort.Slice(archives, func(i, j int) bool {
		return archives[i].CreatedAt.After(archives[j].CreatedAt)
	})
	return archives, nil
}

func readSidecar(archivePath string) (*sidecar, error) {
	data, err := os.ReadFile(archivePath + ".json")
	if err != nil {
		return nil, err
	}
	var meta sidecar
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

// Resolve maps a reference to an archive. A reference is either an archive
// file name (with or without the .db suffix) or a 1-based index into List.
func (m *Manager) Resolve(ref string) (*Archive, error) {
	archives, err := m.List()
	if err != nil {
		return nil, err
	}

	if idx, err := strconv.Atoi(ref); err == nil {
		if idx < 1 || idx > len(archives) {
			return nil, fmt.Errorf("%w: index %d of %d archives", ErrArchiveNotFound, idx, len(archives))
		}
		return &archives[idx-1], nil
	}

	name := ref
	if !strings.HasSuffix(name, archiveSuffix) {
		name += archiveSuffix
	}
	for i := range archives {
		if archives[i].Name == name {
			return &archives[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrArchiveNotFound, ref)
}

// validate rejects archives that must not be installed: empty files,
// copies shorter than one database page, and archives whose content no
// longer matches their sidecar record.
func (m *Manager) validate(a *Archive) error {
	info, err := os.Stat(a.Path)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrArchiveNotFound, a.Path, err)
	}
	if info.Size() == 0 {
		return fmt.Errorf("%w: %s is zero length", ErrArchiveCorrupt, a.Name)
	}

	meta, err := readSidecar(a.Path)
	if err != nil {
		// No sidecar (e.g. a manually copied archive): fall back to the
		// page-size plausibility check.
		if info.Size() < minArchiveSize {
			return fmt.Errorf("%w: %s is smaller than one database page", ErrArchiveCorrupt, a.Name)
		}
		return nil
	}

	if info.Size() != meta.SizeBytes {
		return fmt.Errorf("%w: %s size %d does not match recorded %d", ErrArchiveCorrupt, a.Name, info.Size(), meta.SizeBytes)
	}
	sum, err := checksumFile(a.Path)
	if err != nil {
		return fmt.Errorf("backup: checksum archive %s: %w", a.Path, err)
	}
	if sum != meta.SHA256 {
		return fmt.Errorf("%w: %s checksum mismatch", ErrArchiveCorrupt, a.Name)
	}
	return nil
}

// Restore installs an archive over the live database. The archive is
// validated first, and a safety backup of the current database is taken so
// the restore itself is reversible.
func (m *Manager) Restore(ref string) error {
	archive, err := m.Resolve(ref)
	if err != nil {
		return err
	}
	if err := m.validate(archive); err != nil {
		return err
	}

	if _, err := os.Stat(m.dbPath); err == nil {
		safety, err := m.Create()
		if err != nil {
			return fmt.Errorf("backup: safety backup before restore: %w", err)
		}
		m.log.Info().Str("archive", safety.Path).Msg("safety backup of current database created")
	}

	if err := fsutil.CopyFile(archive.Path, m.dbPath); err != nil {
		return fmt.Errorf("backup: install archive %s: %w", archive.Name, err)
	}

	m.log.Info().Str("archive", archive.Name).Str("database", m.dbPath).Msg("database restored from archive")
	return nil
}

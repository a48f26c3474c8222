// internal/reconcile/reconcile.go

// Package reconcile synchronizes track metadata between the Rekordbox
// database and the filename convention used in the collection directory.
// Each file moves through a small state machine (scanned, compared,
// resolved, applied or skipped); failures on one file never abort the rest
// of the batch.
package reconcile

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/tseitz/rekordbox-smart-playlist/internal/fsutil"
	"github.com/tseitz/rekordbox-smart-playlist/internal/rekordbox"
)

// ErrUnparseable reports a filename that matches neither naming convention.
var ErrUnparseable = errors.New("reconcile: filename does not match expected pattern")

// State is a file's position in the reconciliation state machine.
type State int

const (
	StateScanned State = iota
	StateCompared
	StateResolved
	StateApplied
	StateSkipped
)

// String returns the lowercase state name for logs and summaries.
func (s State) String() string {
	switch s {
	case StateScanned:
		return "scanned"
	case StateCompared:
		return "compared"
	case StateResolved:
		return "resolved"
	case StateApplied:
		return "applied"
	case StateSkipped:
		return "skipped"
	default:
		return "unknown"
	}
}

// SkipReason classifies why a file was skipped.
type SkipReason int

const (
	SkipNone SkipReason = iota
	// SkipParseError: the filename matched neither naming pattern.
	SkipParseError
	// SkipNoOp: filename and database already agree.
	SkipNoOp
	// SkipNotFound: no database record matches the file.
	SkipNotFound
	// SkipByChoice: the decider chose to leave the file alone.
	SkipByChoice
)

// Outcome records what happened to one file.
type Outcome struct {
	File   string
	State  State
	Reason SkipReason
	Err    error
}

// Summary aggregates a full reconciliation pass. A dry run reports the
// same counts the live run would.
type Summary struct {
	TotalFiles  int
	Applied     int
	Skipped     int
	NotFound    int
	ParseErrors int
	Failed      int
	DryRun      bool
}

// Store is the slice of database capability the reconciler consumes.
type Store interface {
	FindTrackByFileName(fileName string) (*rekordbox.Track, error)
	FindTrackByArtistTitle(artist, title string) (*rekordbox.Track, error)
	UpdateTrackMetadata(trackID, artist, title, album string) error
	UpdateTrackLocation(trackID, folderPath, fileName string) error
}

// Options configures one reconciliation pass.
type Options struct {
	CollectionPath   string
	AudioExtensions  []string
	DryRun           bool
	ProgressInterval int
	// UpdateFilenames forces database-wins resolution and renames files
	// to match the database instead of prompting.
	UpdateFilenames bool
}

// Reconciler drives the per-file state machine over a collection.
type Reconciler struct {
	store   Store
	decider Decider
	opts    Options
	log     zerolog.Logger
}

// New returns a reconciler. The decider supplies the source-of-truth
// policy; UpdateFilenames overrides it with a fixed database-wins rule.
func New(store Store, decider Decider, opts Options, log zerolog.Logger) *Reconciler {
	if opts.ProgressInterval <= 0 {
		opts.ProgressInterval = 10
	}
	if opts.UpdateFilenames {
		decider = Policy(UseDatabase)
	}
	return &Reconciler{store: store, decider: decider, opts: opts, log: log}
}

// Run processes every audio file in the collection and returns the
// summary. Only setup failures (unreadable collection directory) return an
// error; per-file failures are counted and logged.
func (r *Reconciler) Run() (*Summary, []Outcome, error) {
	files, err := fsutil.ListFilesWithExtensions(r.opts.CollectionPath, r.opts.AudioExtensions, true)
	if err != nil {
		return nil, nil, fmt.Errorf("reconcile: scan collection: %w", err)
	}

	summary := &Summary{TotalFiles: len(files), DryRun: r.opts.DryRun}
	outcomes := make([]Outcome, 0, len(files))
	r.log.Info().Int("files", len(files)).Str("path", r.opts.CollectionPath).Msg("reconciling collection")

	for i, path := range files {
		if (i+1)%r.opts.ProgressInterval == 0 || i+1 == len(files) {
			r.log.Info().Int("done", i+1).Int("total", len(files)).Msg("progress")
		}

		outcome, stop := r.processFile(path)
		outcomes = append(outcomes, outcome)
		summary.count(outcome)
		if stop {
			r.log.Info().Msg("run ended early by operator choice")
			break
		}
	}

	r.log.Info().
		Int("applied", summary.Applied).
		Int("skipped", summary.Skipped).
		Int("not_found", summary.NotFound).
		Int("parse_errors", summary.ParseErrors).
		Int("failed", summary.Failed).
		Bool("dry_run", summary.DryRun).
		Msg("reconciliation complete")
	return summary, outcomes, nil
}

func (s *Summary) count(o Outcome) {
	switch {
	case o.State == StateApplied:
		s.Applied++
	case o.State == StateSkipped && o.Reason == SkipNotFound:
		s.NotFound++
	case o.State == StateSkipped && o.Reason == SkipParseError:
		s.ParseErrors++
	case o.State == StateSkipped:
		s.Skipped++
	default:
		s.Failed++
	}
}

// processFile walks one file through the state machine. The second return
// value is true when the decider asked to end the run.
func (r *Reconciler) processFile(path string) (Outcome, bool) {
	fileName := filepath.Base(path)
	outcome := Outcome{File: fileName, State: StateScanned}

	parsed, ok := ParseFileName(fileName)
	if !ok {
		r.log.Debug().Str("file", fileName).Msg("filename does not match naming pattern")
		outcome.State = StateSkipped
		outcome.Reason = SkipParseError
		outcome.Err = ErrUnparseable
		return outcome, false
	}

	track, err := r.findTrack(fileName, parsed)
	if err != nil {
		if errors.Is(err, rekordbox.ErrNotFound) {
			r.log.Debug().Str("file", fileName).Msg("no database record for file")
			outcome.State = StateSkipped
			outcome.Reason = SkipNotFound
			outcome.Err = err
			return outcome, false
		}
		r.log.Error().Err(err).Str("file", fileName).Msg("database lookup failed")
		outcome.State = StateCompared
		outcome.Err = err
		return outcome, false
	}

	outcome.State = StateCompared
	if r.metaMatches(track, parsed) {
		outcome.State = StateSkipped
		outcome.Reason = SkipNoOp
		return outcome, false
	}

	conflict := Conflict{
		FileName: fileName,
		DBArtist: track.ArtistName.String,
		DBTitle:  track.Title.String,
		DBAlbum:  track.AlbumName.String,
		FileMeta: parsed,
	}
	resolution, err := r.decider.Decide(conflict)
	if err != nil {
		outcome.Err = err
		return outcome, false
	}
	outcome.State = StateResolved

	switch resolution {
	case SkipFile:
		outcome.State = StateSkipped
		outcome.Reason = SkipByChoice
		return outcome, false
	case StopRun:
		outcome.State = StateSkipped
		outcome.Reason = SkipByChoice
		return outcome, true
	case UseFilename:
		err = r.applyFilenameMeta(track, parsed, fileName)
	case UseDatabase:
		if !r.opts.UpdateFilenames {
			// Database wins without touching anything: the record already
			// holds the truth and files are only renamed on request.
			r.log.Debug().Str("file", fileName).Msg("database values kept")
			outcome.State = StateSkipped
			outcome.Reason = SkipByChoice
			return outcome, false
		}
		err = r.applyDatabaseMeta(track, path)
	}

	if err != nil {
		r.log.Error().Err(err).Str("file", fileName).Msg("apply failed")
		outcome.Err = err
		return outcome, false
	}
	outcome.State = StateApplied
	return outcome, false
}

// findTrack looks the file up by exact stored filename, then falls back to
// the parsed artist and title for records whose filename has drifted.
func (r *Reconciler) findTrack(fileName string, parsed ParsedName) (*rekordbox.Track, error) {
	track, err := r.store.FindTrackByFileName(fileName)
	if err == nil {
		return track, nil
	}
	if !errors.Is(err, rekordbox.ErrNotFound) {
		return nil, err
	}
	return r.store.FindTrackByArtistTitle(parsed.Artist, parsed.Title)
}

func (r *Reconciler) metaMatches(track *rekordbox.Track, parsed ParsedName) bool {
	if !sameMeta(track.ArtistName.String, parsed.Artist) {
		return false
	}
	if !sameMeta(track.Title.String, parsed.Title) {
		return false
	}
	if parsed.Album != "" && !sameMeta(track.AlbumName.String, parsed.Album) {
		return false
	}
	return true
}

// applyFilenameMeta writes the filename-derived values into the database.
func (r *Reconciler) applyFilenameMeta(track *rekordbox.Track, parsed ParsedName, fileName string) error {
	if r.opts.DryRun {
		r.log.Info().
			Str("file", fileName).
			Str("artist", parsed.Artist).
			Str("title", parsed.Title).
			Msg("dry run: would update database from filename")
		return nil
	}
	if err := r.store.UpdateTrackMetadata(track.ID, parsed.Artist, parsed.Title, parsed.Album); err != nil {
		return err
	}
	r.log.Info().Str("file", fileName).Msg("database updated from filename")
	return nil
}

// applyDatabaseMeta renames the file to match the database record and
// re-points the record at the new name. The rename and the database update
// are not transactionally linked; a failure between them is reported and
// left to the operator.
func (r *Reconciler) applyDatabaseMeta(track *rekordbox.Track, path string) error {
	newName := FileNameFor(track.ArtistName.String, track.AlbumName.String, track.Title.String, filepath.Ext(path))
	newPath := filepath.Join(filepath.Dir(path), newName)

	if r.opts.DryRun {
		r.log.Info().
			Str("from", filepath.Base(path)).
			Str("to", newName).
			Msg("dry run: would rename file to match database")
		return nil
	}

	if err := os.Rename(path, newPath); err != nil {
		return fmt.Errorf("rename %s: %w", filepath.Base(path), err)
	}
	if err := r.store.UpdateTrackLocation(track.ID, fsutil.ToDbPath(newPath, false), newName); err != nil {
		return fmt.Errorf("file renamed but database update failed for %s: %w", newName, err)
	}
	r.log.Info().Str("from", filepath.Base(path)).Str("to", newName).Msg("file renamed to match database")
	return nil
}

// internal/playlist/writer.go

// Package playlist publishes built condition trees into the Rekordbox
// playlist table. All writes for one category happen inside a single
// transaction: a failure on any playlist rolls the whole category back.
package playlist

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/tseitz/rekordbox-smart-playlist/internal/rekordbox"
	"github.com/tseitz/rekordbox-smart-playlist/internal/smartlist"
)

// Store is the slice of database capability the writer consumes. The
// rekordbox store satisfies it; tests use an in-memory fake.
type Store interface {
	Begin() error
	Commit() error
	Rollback() error
	FindPlaylist(name, parentID string) (*rekordbox.Playlist, error)
	CreatePlaylistFolder(name, parentID string) (string, error)
	CreateSmartPlaylist(name, parentID, smartListXML string) (string, error)
	UpdateSmartPlaylistConditions(id, smartListXML string) error
}

// Writer upserts smart playlists under a configured root folder.
type Writer struct {
	store      Store
	rootFolder string
	dryRun     bool
	log        zerolog.Logger
}

// NewWriter returns a writer publishing under rootFolder. With dryRun set
// it resolves and logs every decision but performs no mutation.
func NewWriter(store Store, rootFolder string, dryRun bool, log zerolog.Logger) *Writer {
	return &Writer{store: store, rootFolder: rootFolder, dryRun: dryRun, log: log}
}

// CategoryResult summarizes one category's write.
type CategoryResult struct {
	Parent  string
	Created []string
	Updated []string
}

// WriteCategory publishes the trees of one category spec: it resolves the
// root folder, gets or creates the category's parent folder beneath it, and
// upserts each playlist. Everything runs in one transaction; any error
// rolls back the category and nothing is published.
func (w *Writer) WriteCategory(spec smartlist.PlaylistSpec, trees []smartlist.NamedTree) (*CategoryResult, error) {
	result := &CategoryResult{Parent: spec.Parent}

	if err := w.store.Begin(); err != nil {
		return nil, err
	}
	if err := w.writeCategory(spec, trees, result); err != nil {
		if rbErr := w.store.Rollback(); rbErr != nil {
			w.log.Error().Err(rbErr).Msg("rollback after failed category write")
		}
		return nil, err
	}
	if err := w.store.Commit(); err != nil {
		return nil, err
	}
	return result, nil
}

func (w *Writer) writeCategory(spec smartlist.PlaylistSpec, trees []smartlist.NamedTree, result *CategoryResult) error {
	root, err := w.store.FindPlaylist(w.rootFolder, rekordbox.RootPlaylistID)
	if err != nil {
		if errors.Is(err, rekordbox.ErrNotFound) {
			return fmt.Errorf("root playlist folder %q does not exist", w.rootFolder)
		}
		return err
	}

	parentID := root.ID
	if spec.Parent != "" {
		parentID, err = w.ensureFolder(spec.Parent, root.ID)
		if err != nil {
			return err
		}
	}

	for _, entry := range trees {
		if err := w.write(entry.Name, entry.Tree, parentID, result); err != nil {
			return fmt.Errorf("write playlist %q: %w", entry.Name, err)
		}
	}
	return nil
}

// ensureFolder returns the ID of the named folder under parentID, creating
// it when missing.
func (w *Writer) ensureFolder(name, parentID string) (string, error) {
	existing, err := w.store.FindPlaylist(name, parentID)
	if err == nil {
		return existing.ID, nil
	}
	if !errors.Is(err, rekordbox.ErrNotFound) {
		return "", err
	}
	if w.dryRun {
		w.log.Info().Str("folder", name).Msg("dry run: would create playlist folder")
		// A placeholder parent keeps the rest of the dry run going.
		return parentID, nil
	}
	id, err := w.store.CreatePlaylistFolder(name, parentID)
	if err != nil {
		return "", err
	}
	w.log.Info().Str("folder", name).Str("id", id).Msg("created playlist folder")
	return id, nil
}

// write upserts a single smart playlist: an existing playlist with the same
// name under the parent is overwritten rather than duplicated.
func (w *Writer) write(name string, tree *smartlist.Node, parentID string, result *CategoryResult) error {
	xmlDoc, err := smartlist.Marshal(tree)
	if err != nil {
		return err
	}

	existing, err := w.store.FindPlaylist(name, parentID)
	switch {
	case err == nil:
		if w.dryRun {
			w.log.Info().Str("playlist", name).Msg("dry run: would update smart playlist")
		} else {
			if err := w.store.UpdateSmartPlaylistConditions(existing.ID, xmlDoc); err != nil {
				return err
			}
			w.log.Info().Str("playlist", name).Str("id", existing.ID).Msg("updated smart playlist")
		}
		result.Updated = append(result.Updated, name)
	case errors.Is(err, rekordbox.ErrNotFound):
		if w.dryRun {
			w.log.Info().Str("playlist", name).Msg("dry run: would create smart playlist")
		} else {
			id, err := w.store.CreateSmartPlaylist(name, parentID, xmlDoc)
			if err != nil {
				return err
			}
			w.log.Info().Str("playlist", name).Str("id", id).Msg("created smart playlist")
		}
		result.Created = append(result.Created, name)
	default:
		return err
	}
	return nil
}

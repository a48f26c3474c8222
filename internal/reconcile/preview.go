// internal/reconcile/preview.go

package reconcile

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/dhowden/tag"

	"github.com/tseitz/rekordbox-smart-playlist/internal/fsutil"
)

// PreviewRow shows, for one file, the three metadata opinions available:
// the filename convention, the embedded audio tags, and (when a record
// exists) the database.
type PreviewRow struct {
	File       string
	FromName   ParsedName
	ParseOK    bool
	TagArtist  string
	TagTitle   string
	TagAlbum   string
	DBArtist   string
	DBTitle    string
	DBAlbum    string
	InDatabase bool
}

// Preview inspects up to limit files without touching the database or the
// filesystem, so an operator can sanity-check the collection before a run.
func (r *Reconciler) Preview(limit int) ([]PreviewRow, error) {
	files, err := fsutil.ListFilesWithExtensions(r.opts.CollectionPath, r.opts.AudioExtensions, true)
	if err != nil {
		return nil, fmt.Errorf("reconcile: scan collection: %w", err)
	}
	if limit > 0 && len(files) > limit {
		files = files[:limit]
	}

	rows := make([]PreviewRow, 0, len(files))
	for _, path := range files {
		row := PreviewRow{File: filepath.Base(path)}
		row.FromName, row.ParseOK = ParseFileName(row.File)

		if artist, title, album, err := readEmbeddedTags(path); err == nil {
			row.TagArtist, row.TagTitle, row.TagAlbum = artist, title, album
		} else {
			r.log.Debug().Err(err).Str("file", row.File).Msg("no readable embedded tags")
		}

		if row.ParseOK {
			if track, err := r.findTrack(row.File, row.FromName); err == nil {
				row.InDatabase = true
				row.DBArtist = track.ArtistName.String
				row.DBTitle = track.Title.String
				row.DBAlbum = track.AlbumName.String
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func readEmbeddedTags(path string) (artist, title, album string, err error) {
	f, err := os.Open(path)
	if err != nil {
		return "", "", "", err
	}
	defer f.Close()

	meta, err := tag.ReadFrom(f)
	if err != nil {
		return "", "", "", err
	}
	return meta.Artist(), meta.Title(), meta.Album(), nil
}

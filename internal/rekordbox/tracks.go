// internal/rekordbox/tracks.go

package rekordbox

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Track is a row from djmdContent joined with its artist and album names.
type Track struct {
	ID         string
	FolderPath string
	FileName   string
	Title      NullString
	ArtistID   NullString
	ArtistName NullString
	AlbumID    NullString
	AlbumName  NullString
}

const trackSelect = `
	SELECT
		c.ID,
		c.FolderPath,
		c.FileNameL,
		c.Title,
		c.ArtistID,
		a.Name,
		c.AlbumID,
		b.Name
	FROM djmdContent c
	LEFT JOIN djmdArtist a ON c.ArtistID = a.ID
	LEFT JOIN djmdAlbum b ON c.AlbumID = b.ID
`

func (s *Store) scanTrack(row *sql.Row) (*Track, error) {
	var t Track
	err := row.Scan(
		&t.ID,
		&t.FolderPath,
		&t.FileName,
		&t.Title,
		&t.ArtistID,
		&t.ArtistName,
		&t.AlbumID,
		&t.AlbumName,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("rekordbox: scan track row: %w", err)
	}
	return &t, nil
}

// FindTrackByFileName returns the track whose FileNameL matches exactly.
func (s *Store) FindTrackByFileName(fileName string) (*Track, error) {
	if !s.connected {
		return nil, ErrNotConnected
	}
	row := s.queryRow(trackSelect+" WHERE c.FileNameL = ?", fileName)
	return s.scanTrack(row)
}

// FindTrackByArtistTitle is the fallback lookup for files whose stored
// filename has drifted from the database: case-insensitive match on artist
// name and title.
func (s *Store) FindTrackByArtistTitle(artist, title string) (*Track, error) {
	if !s.connected {
		return nil, ErrNotConnected
	}
	row := s.queryRow(
		trackSelect+" WHERE a.Name = ? COLLATE NOCASE AND c.Title = ? COLLATE NOCASE",
		artist, title,
	)
	return s.scanTrack(row)
}

// AddOrGetArtist returns the ID of the artist with the given name, creating
// the djmdArtist row when it does not exist yet.
func (s *Store) AddOrGetArtist(name string) (string, error) {
	if name == "" {
		return "", nil
	}
	var id string
	row := s.queryRow("SELECT ID FROM djmdArtist WHERE Name = ? COLLATE NOCASE", name)
	err := row.Scan(&id)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("rekordbox: look up artist %q: %w", name, err)
	}

	id, err = s.NextID("djmdArtist")
	if err != nil {
		return "", err
	}
	usn, err := s.NextUSN()
	if err != nil {
		return "", err
	}
	ts := now()
	err = s.execute(`
		INSERT INTO djmdArtist (
			ID, Name, UUID, rb_local_usn, created_at, updated_at
		) VALUES (
			?, ?, ?, ?, ?, ?
		)
	`, id, name, uuid.NewString(), usn, ts, ts)
	if err != nil {
		return "", fmt.Errorf("rekordbox: insert artist %q: %w", name, err)
	}
	s.log.Info().Str("artist", name).Str("id", id).Msg("created artist")
	return id, nil
}

// AddOrGetAlbum returns the ID of the album with the given name, creating
// the djmdAlbum row when it does not exist yet.
func (s *Store) AddOrGetAlbum(name string) (string, error) {
	if name == "" {
		return "", nil
	}
	var id string
	row := s.queryRow("SELECT ID FROM djmdAlbum WHERE Name = ? COLLATE NOCASE", name)
	err := row.Scan(&id)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("rekordbox: look up album %q: %w", name, err)
	}

	id, err = s.NextID("djmdAlbum")
	if err != nil {
		return "", err
	}
	usn, err := s.NextUSN()
	if err != nil {
		return "", err
	}
	ts := now()
	err = s.execute(`
		INSERT INTO djmdAlbum (
			ID, Name, UUID, rb_local_usn, created_at, updated_at
		) VALUES (
			?, ?, ?, ?, ?, ?
		)
	`, id, name, uuid.NewString(), usn, ts, ts)
	if err != nil {
		return "", fmt.Errorf("rekordbox: insert album %q: %w", name, err)
	}
	s.log.Info().Str("album", name).Str("id", id).Msg("created album")
	return id, nil
}

// UpdateTrackMetadata points a track at the given artist, title and album.
// Artist and album rows are created on demand; an empty album leaves the
// album reference untouched.
func (s *Store) UpdateTrackMetadata(trackID, artist, title, album string) error {
	artistID, err := s.AddOrGetArtist(artist)
	if err != nil {
		return err
	}
	usn, err := s.NextUSN()
	if err != nil {
		return err
	}

	if album != "" {
		albumID, err := s.AddOrGetAlbum(album)
		if err != nil {
			return err
		}
		err = s.execute(`
			UPDATE djmdContent
			SET Title = ?, ArtistID = ?, AlbumID = ?, rb_local_usn = ?, updated_at = ?
			WHERE ID = ?
		`, title, artistID, albumID, usn, now(), trackID)
		if err != nil {
			return fmt.Errorf("rekordbox: update track %s metadata: %w", trackID, err)
		}
		return nil
	}

	err = s.execute(`
		UPDATE djmdContent
		SET Title = ?, ArtistID = ?, rb_local_usn = ?, updated_at = ?
		WHERE ID = ?
	`, title, artistID, usn, now(), trackID)
	if err != nil {
		return fmt.Errorf("rekordbox: update track %s metadata: %w", trackID, err)
	}
	return nil
}

// UpdateTrackLocation re-points a track at a renamed file.
func (s *Store) UpdateTrackLocation(trackID, folderPath, fileName string) error {
	usn, err := s.NextUSN()
	if err != nil {
		return err
	}
	err = s.execute(`
		UPDATE djmdContent
		SET FolderPath = ?, FileNameL = ?, rb_local_usn = ?, updated_at = ?
		WHERE ID = ?
	`, folderPath, fileName, usn, now(), trackID)
	if err != nil {
		return fmt.Errorf("rekordbox: update track %s location: %w", trackID, err)
	}
	return nil
}

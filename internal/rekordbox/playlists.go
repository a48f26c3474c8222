// internal/rekordbox/playlists.go

package rekordbox

import (
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	"github.com/google/uuid"
)

// djmdPlaylist.Attribute values.
const (
	AttributePlaylist  = 0
	AttributeFolder    = 1
	AttributeSmartList = 4
)

// RootPlaylistID is the ParentID of top-level playlists and folders.
const RootPlaylistID = "0"

// Playlist is a row from djmdPlaylist. SmartList holds the condition XML
// for smart playlists and is empty otherwise.
type Playlist struct {
	ID        string
	Seq       int
	Name      string
	Attribute int
	ParentID  string
	SmartList NullString
}

// FindPlaylist returns the playlist or folder with the given name under the
// given parent, or ErrNotFound.
func (s *Store) FindPlaylist(name, parentID string) (*Playlist, error) {
	if !s.connected {
		return nil, ErrNotConnected
	}
	var p Playlist
	row := s.queryRow(`
		SELECT ID, Seq, Name, Attribute, ParentID, SmartList
		FROM djmdPlaylist
		WHERE Name = ? AND ParentID = ?
	`, name, parentID)
	err := row.Scan(&p.ID, &p.Seq, &p.Name, &p.Attribute, &p.ParentID, &p.SmartList)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("rekordbox: scan playlist row: %w", err)
	}
	return &p, nil
}

// nextPlaylistSeq returns the sequence number that appends a playlist at the
// end of its parent folder.
func (s *Store) nextPlaylistSeq(parentID string) (int, error) {
	var maxSeq int64
	row := s.queryRow("SELECT COALESCE(MAX(Seq), 0) FROM djmdPlaylist WHERE ParentID = ?", parentID)
	if err := row.Scan(&maxSeq); err != nil {
		return 0, fmt.Errorf("rekordbox: next playlist sequence: %w", err)
	}
	return int(maxSeq) + 1, nil
}

func (s *Store) insertPlaylist(name, parentID string, attribute int, smartList string) (string, error) {
	id, err := s.NextID("djmdPlaylist")
	if err != nil {
		return "", err
	}
	seq, err := s.nextPlaylistSeq(parentID)
	if err != nil {
		return "", err
	}
	usn, err := s.NextUSN()
	if err != nil {
		return "", err
	}
	ts := now()
	err = s.execute(`
		INSERT INTO djmdPlaylist (
			ID, Seq, Name, Attribute, ParentID, SmartList, UUID,
			rb_local_usn, created_at, updated_at
		) VALUES (
			?, ?, ?, ?, ?, ?, ?, ?, ?, ?
		)
	`, id, seq, name, attribute, parentID, smartList, uuid.NewString(), usn, ts, ts)
	if err != nil {
		return "", fmt.Errorf("rekordbox: insert playlist %q: %w", name, err)
	}
	return id, nil
}

// CreatePlaylistFolder creates a folder row under the given parent and
// returns its ID.
func (s *Store) CreatePlaylistFolder(name, parentID string) (string, error) {
	if !s.connected {
		return "", ErrNotConnected
	}
	return s.insertPlaylist(name, parentID, AttributeFolder, "")
}

// CreateSmartPlaylist creates a smart playlist with the given condition XML
// under the given parent and returns its ID.
func (s *Store) CreateSmartPlaylist(name, parentID, smartListXML string) (string, error) {
	if !s.connected {
		return "", ErrNotConnected
	}
	return s.insertPlaylist(name, parentID, AttributeSmartList, smartListXML)
}

// UpdateSmartPlaylistConditions replaces the condition XML of an existing
// smart playlist, converting a plain playlist row into a smart one if the
// same name was created manually before.
func (s *Store) UpdateSmartPlaylistConditions(id, smartListXML string) error {
	usn, err := s.NextUSN()
	if err != nil {
		return err
	}
	err = s.execute(`
		UPDATE djmdPlaylist
		SET SmartList = ?, Attribute = ?, rb_local_usn = ?, updated_at = ?
		WHERE ID = ?
	`, smartListXML, AttributeSmartList, usn, now(), id)
	if err != nil {
		return fmt.Errorf("rekordbox: update smart playlist %s: %w", id, err)
	}
	return nil
}

// MyTagID resolves a My Tag name to its numeric row ID.
func (s *Store) MyTagID(name string) (int64, error) {
	if !s.connected {
		return 0, ErrNotConnected
	}
	var id string
	row := s.queryRow("SELECT ID FROM djmdMyTag WHERE Name = ?", name)
	err := row.Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("my tag %q: %w", name, ErrNotFound)
	}
	if err != nil {
		return 0, fmt.Errorf("rekordbox: look up my tag %q: %w", name, err)
	}
	n, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("rekordbox: my tag %q has non-numeric ID %q: %w", name, id, err)
	}
	return n, nil
}

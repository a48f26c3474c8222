package reconcile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"

	"github.com/tseitz/rekordbox-smart-playlist/internal/rekordbox"
)

// fakeStore is an in-memory Store keyed by stored filename.
type fakeStore struct {
	tracks  map[string]*rekordbox.Track
	updates []string // track IDs passed to UpdateTrackMetadata
	renames []string // track IDs passed to UpdateTrackLocation
	failID  string   // UpdateTrackMetadata fails for this track ID
}

func ns(s string) rekordbox.NullString {
	return rekordbox.NullString{String: s, Valid: s != ""}
}

func (f *fakeStore) FindTrackByFileName(fileName string) (*rekordbox.Track, error) {
	if t, ok := f.tracks[fileName]; ok {
		return t, nil
	}
	return nil, rekordbox.ErrNotFound
}

func (f *fakeStore) FindTrackByArtistTitle(artist, title string) (*rekordbox.Track, error) {
	for _, t := range f.tracks {
		if t.ArtistName.String == artist && t.Title.String == title {
			return t, nil
		}
	}
	return nil, rekordbox.ErrNotFound
}

func (f *fakeStore) UpdateTrackMetadata(trackID, artist, title, album string) error {
	if trackID == f.failID {
		return os.ErrPermission
	}
	f.updates = append(f.updates, trackID)
	for _, t := range f.tracks {
		if t.ID == trackID {
			t.ArtistName = ns(artist)
			t.Title = ns(title)
			t.AlbumName = ns(album)
		}
	}
	return nil
}

func (f *fakeStore) UpdateTrackLocation(trackID, folderPath, fileName string) error {
	f.renames = append(f.renames, trackID)
	return nil
}

// writeCollection creates empty audio files and returns the directory.
func writeCollection(t *testing.T, names ...string) string {
	t.Helper()
	dir := t.TempDir()
	for _, name := range names {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func newTestReconciler(store Store, decider Decider, dir string, dryRun bool) *Reconciler {
	return New(store, decider, Options{
		CollectionPath:  dir,
		AudioExtensions: []string{".mp3"},
		DryRun:          dryRun,
	}, zerolog.Nop())
}

func TestRunBatchFilenameUpdatesDatabase(t *testing.T) {
	dir := writeCollection(t, "Artist - Title.mp3")
	store := &fakeStore{tracks: map[string]*rekordbox.Track{
		"Artist - Title.mp3": {ID: "100", FileName: "Artist - Title.mp3", ArtistName: ns("Other"), Title: ns("Title")},
	}}

	summary, _, err := newTestReconciler(store, Policy(UseFilename), dir, false).Run()
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if summary.Applied != 1 {
		t.Errorf("applied = %d, want 1", summary.Applied)
	}
	if len(store.updates) != 1 || store.updates[0] != "100" {
		t.Errorf("metadata updates = %v, want [100]", store.updates)
	}
	if got := store.tracks["Artist - Title.mp3"].ArtistName.String; got != "Artist" {
		t.Errorf("artist after run = %q, want %q", got, "Artist")
	}
}

func TestRunBatchDatabaseLeavesEverythingAlone(t *testing.T) {
	dir := writeCollection(t, "Artist - Title.mp3")
	store := &fakeStore{tracks: map[string]*rekordbox.Track{
		"Artist - Title.mp3": {ID: "100", FileName: "Artist - Title.mp3", ArtistName: ns("Other"), Title: ns("Title")},
	}}

	summary, _, err := newTestReconciler(store, Policy(UseDatabase), dir, false).Run()
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if summary.Skipped != 1 || summary.Applied != 0 {
		t.Errorf("summary = %+v, want one skip and no writes", summary)
	}
	if len(store.updates) != 0 || len(store.renames) != 0 {
		t.Errorf("batch-database mutated the store: updates=%v renames=%v", store.updates, store.renames)
	}
	if got := store.tracks["Artist - Title.mp3"].ArtistName.String; got != "Other" {
		t.Errorf("record changed: artist = %q", got)
	}
}

func TestRunUpdateFilenamesRenamesToDatabase(t *testing.T) {
	dir := writeCollection(t, "Wrong Name - Title.mp3")
	store := &fakeStore{tracks: map[string]*rekordbox.Track{
		"Wrong Name - Title.mp3": {ID: "100", FileName: "Wrong Name - Title.mp3", ArtistName: ns("Artist"), Title: ns("Title")},
	}}

	rec := New(store, nil, Options{
		CollectionPath:  dir,
		AudioExtensions: []string{".mp3"},
		UpdateFilenames: true,
	}, zerolog.Nop())

	summary, _, err := rec.Run()
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if summary.Applied != 1 {
		t.Errorf("applied = %d, want 1", summary.Applied)
	}
	if len(store.renames) != 1 {
		t.Fatalf("location updates = %v, want one", store.renames)
	}
	if _, err := os.Stat(filepath.Join(dir, "Artist - Title.mp3")); err != nil {
		t.Errorf("renamed file missing: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "Wrong Name - Title.mp3")); !os.IsNotExist(err) {
		t.Errorf("original file still present")
	}
}

func TestRunMatchingFileIsNoOp(t *testing.T) {
	dir := writeCollection(t, "Artist - Title.mp3")
	store := &fakeStore{tracks: map[string]*rekordbox.Track{
		"Artist - Title.mp3": {ID: "100", FileName: "Artist - Title.mp3", ArtistName: ns("Artist"), Title: ns("Title")},
	}}

	summary, outcomes, err := newTestReconciler(store, Policy(UseFilename), dir, false).Run()
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if summary.Skipped != 1 || summary.Applied != 0 {
		t.Errorf("summary = %+v, want one no-op skip", summary)
	}
	if outcomes[0].Reason != SkipNoOp {
		t.Errorf("reason = %v, want SkipNoOp", outcomes[0].Reason)
	}
	if len(store.updates) != 0 {
		t.Errorf("unexpected metadata updates: %v", store.updates)
	}
}

func TestRunDryRunSameCountsNoMutation(t *testing.T) {
	dir := writeCollection(t, "Artist - Title.mp3", "Artist - Other.mp3")
	store := &fakeStore{tracks: map[string]*rekordbox.Track{
		"Artist - Title.mp3": {ID: "100", FileName: "Artist - Title.mp3", ArtistName: ns("Wrong"), Title: ns("Title")},
		"Artist - Other.mp3": {ID: "101", FileName: "Artist - Other.mp3", ArtistName: ns("Wrong"), Title: ns("Other")},
	}}

	summary, _, err := newTestReconciler(store, Policy(UseFilename), dir, true).Run()
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !summary.DryRun {
		t.Error("summary not flagged as dry run")
	}
	if summary.Applied != 2 {
		t.Errorf("applied = %d, want 2 (dry run reports the same counts)", summary.Applied)
	}
	if len(store.updates) != 0 || len(store.renames) != 0 {
		t.Errorf("dry run mutated the store: updates=%v renames=%v", store.updates, store.renames)
	}
}

func TestRunFileNotInDatabaseDoesNotAbort(t *testing.T) {
	dir := writeCollection(t, "Known - Track.mp3", "Unknown - Track.mp3")
	store := &fakeStore{tracks: map[string]*rekordbox.Track{
		"Known - Track.mp3": {ID: "100", FileName: "Known - Track.mp3", ArtistName: ns("Wrong"), Title: ns("Track")},
	}}

	summary, _, err := newTestReconciler(store, Policy(UseFilename), dir, false).Run()
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if summary.NotFound != 1 {
		t.Errorf("not found = %d, want 1", summary.NotFound)
	}
	if summary.Applied != 1 {
		t.Errorf("applied = %d, want 1", summary.Applied)
	}
}

func TestRunUnparseableFileCounted(t *testing.T) {
	dir := writeCollection(t, "track01.mp3", "Artist - Title.mp3")
	store := &fakeStore{tracks: map[string]*rekordbox.Track{
		"Artist - Title.mp3": {ID: "100", FileName: "Artist - Title.mp3", ArtistName: ns("Wrong"), Title: ns("Title")},
	}}

	summary, _, err := newTestReconciler(store, Policy(UseFilename), dir, false).Run()
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if summary.ParseErrors != 1 {
		t.Errorf("parse errors = %d, want 1", summary.ParseErrors)
	}
	if summary.Applied != 1 {
		t.Errorf("applied = %d, want 1", summary.Applied)
	}
}

func TestRunPerFileFailureIsolated(t *testing.T) {
	dir := writeCollection(t, "Bad - Track.mp3", "Good - Track.mp3")
	store := &fakeStore{
		tracks: map[string]*rekordbox.Track{
			"Bad - Track.mp3":  {ID: "666", FileName: "Bad - Track.mp3", ArtistName: ns("Wrong"), Title: ns("Track")},
			"Good - Track.mp3": {ID: "100", FileName: "Good - Track.mp3", ArtistName: ns("Wrong"), Title: ns("Track")},
		},
		failID: "666",
	}

	summary, _, err := newTestReconciler(store, Policy(UseFilename), dir, false).Run()
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if summary.Failed != 1 {
		t.Errorf("failed = %d, want 1", summary.Failed)
	}
	if summary.Applied != 1 {
		t.Errorf("applied = %d, want 1", summary.Applied)
	}
}

// stopAfterFirst skips the first conflict and ends the run.
type stopAfterFirst struct{ calls int }

func (s *stopAfterFirst) Decide(Conflict) (Resolution, error) {
	s.calls++
	return StopRun, nil
}

func TestRunStopEndsEarly(t *testing.T) {
	dir := writeCollection(t, "A - One.mp3", "B - Two.mp3", "C - Three.mp3")
	store := &fakeStore{tracks: map[string]*rekordbox.Track{
		"A - One.mp3":   {ID: "1", FileName: "A - One.mp3", ArtistName: ns("X"), Title: ns("One")},
		"B - Two.mp3":   {ID: "2", FileName: "B - Two.mp3", ArtistName: ns("X"), Title: ns("Two")},
		"C - Three.mp3": {ID: "3", FileName: "C - Three.mp3", ArtistName: ns("X"), Title: ns("Three")},
	}}

	decider := &stopAfterFirst{}
	_, outcomes, err := newTestReconciler(store, decider, dir, false).Run()
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if decider.calls != 1 {
		t.Errorf("decider calls = %d, want 1", decider.calls)
	}
	if len(outcomes) != 1 {
		t.Errorf("outcomes = %d, want 1 (run ended after first conflict)", len(outcomes))
	}
}

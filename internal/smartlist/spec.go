// internal/smartlist/spec.go

package smartlist

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// CombineOperator selects how the contains entries of a sub-playlist are
// joined: 0 requires all of them, 1 requires any of them.
type CombineOperator int

const (
	CombineAnd CombineOperator = 0
	CombineOr  CombineOperator = 1
)

// DateCreatedSpec narrows a playlist to tracks imported within a rolling
// window, e.g. {"timePeriod": 2, "timeUnit": "months"}.
type DateCreatedSpec struct {
	TimePeriod int    `json:"timePeriod"`
	TimeUnit   string `json:"timeUnit"`
}

// SubPlaylistSpec declares a single smart playlist inside a category.
type SubPlaylistSpec struct {
	Name           string           `json:"name"`
	Operator       CombineOperator  `json:"operator"`
	Contains       []string         `json:"contains"`
	DoesNotContain []string         `json:"doesNotContain,omitempty"`
	Rating         []string         `json:"rating,omitempty"`
	DateCreated    *DateCreatedSpec `json:"dateCreated,omitempty"`
}

// PlaylistSpec declares one category folder of generated playlists.
// MainConditions are required for every playlist in the category,
// NegativeConditions are excluded from every playlist.
type PlaylistSpec struct {
	Parent             string            `json:"parent"`
	MainConditions     []string          `json:"mainConditions"`
	NegativeConditions []string          `json:"negativeConditions"`
	Playlists          []SubPlaylistSpec `json:"playlists"`
}

// specFile is the on-disk envelope: {"data": [PlaylistSpec, ...]}.
type specFile struct {
	Data []PlaylistSpec `json:"data"`
}

// Validate checks the structural invariants of a category spec.
func (s PlaylistSpec) Validate() error {
	if len(s.Playlists) == 0 {
		return fmt.Errorf("category %q declares no playlists", s.Parent)
	}
	for _, p := range s.Playlists {
		if strings.TrimSpace(p.Name) == "" {
			return fmt.Errorf("category %q contains a playlist without a name", s.Parent)
		}
		if len(p.Contains) == 0 {
			return fmt.Errorf("playlist %q has an empty contains list", p.Name)
		}
		if p.Operator != CombineAnd && p.Operator != CombineOr {
			return fmt.Errorf("playlist %q has unknown operator %d", p.Name, p.Operator)
		}
	}
	return nil
}

// LoadSpecFile reads one category file and validates every spec in it.
func LoadSpecFile(path string) ([]PlaylistSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read playlist spec %s: %w", path, err)
	}
	var file specFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse playlist spec %s: %w", path, err)
	}
	for _, spec := range file.Data {
		if err := spec.Validate(); err != nil {
			return nil, fmt.Errorf("invalid playlist spec %s: %w", path, err)
		}
	}
	return file.Data, nil
}

// LoadSpecDir returns the JSON spec files in dir in name order. Directories
// and non-JSON files are skipped; the category order is the file order.
func LoadSpecDir(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read playlist spec directory %s: %w", dir, err)
	}
	var paths []string
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".json") {
			continue
		}
		paths = append(paths, filepath.Join(dir, e.Name()))
	}
	sort.Strings(paths)
	return paths, nil
}

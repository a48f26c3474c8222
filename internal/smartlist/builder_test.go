package smartlist

import (
	"fmt"
	"testing"
)

// mapTags is a map-backed TagResolver for builder tests.
type mapTags map[string]int64

func (m mapTags) MyTagID(name string) (int64, error) {
	id, ok := m[name]
	if !ok {
		return 0, fmt.Errorf("tag %q not found", name)
	}
	return id, nil
}

var testTags = mapTags{
	"House":    10,
	"Techno":   11,
	"Vinyl":    12,
	"Unsorted": 13,
	"Festival": 14,
}

func baseSpec() PlaylistSpec {
	return PlaylistSpec{
		Parent:             "Genres",
		MainConditions:     []string{"Vinyl"},
		NegativeConditions: []string{"Unsorted"},
		Playlists: []SubPlaylistSpec{
			{Name: "House AND Festival", Operator: CombineAnd, Contains: []string{"House", "Festival"}},
			{Name: "House OR Techno", Operator: CombineOr, Contains: []string{"House", "Techno"}},
		},
	}
}

func TestBuildProducesTreePerPlaylist(t *testing.T) {
	trees, err := Build(baseSpec(), testTags)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if len(trees) != 2 {
		t.Fatalf("tree count = %d, want 2", len(trees))
	}
	if trees[0].Name != "House AND Festival" || trees[1].Name != "House OR Techno" {
		t.Errorf("tree names out of declaration order: %q, %q", trees[0].Name, trees[1].Name)
	}
}

func TestBuildContainsGroupOperator(t *testing.T) {
	trees, err := Build(baseSpec(), testTags)
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	findContainsGroup := func(root *Node) *Node {
		for _, c := range root.Children {
			if !c.IsLeaf() {
				return c
			}
		}
		return nil
	}

	andGroup := findContainsGroup(trees[0].Tree)
	if andGroup == nil || andGroup.Logical != All {
		t.Errorf("AND playlist contains group logical = %+v, want All", andGroup)
	}
	orGroup := findContainsGroup(trees[1].Tree)
	if orGroup == nil || orGroup.Logical != Any {
		t.Errorf("OR playlist contains group logical = %+v, want Any", orGroup)
	}
}

func TestBuildNegativeConditionsAlwaysExclude(t *testing.T) {
	// The exclusion must be a NOT_CONTAINS leaf on the top-level All group
	// even when the playlist combines its contains entries with OR.
	trees, err := Build(baseSpec(), testTags)
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	for _, tree := range trees {
		found := false
		for _, c := range tree.Tree.Children {
			if c.IsLeaf() && c.Operator == OpNotContains && c.ValueLeft == EncodeTagID(testTags["Unsorted"]) {
				found = true
			}
		}
		if !found {
			t.Errorf("playlist %q: no top-level NOT_CONTAINS leaf for negative condition", tree.Name)
		}
		if tree.Tree.Logical != All {
			t.Errorf("playlist %q: root logical = %d, want All", tree.Name, tree.Tree.Logical)
		}
	}
}

func TestBuildRatingAndDateCreated(t *testing.T) {
	spec := baseSpec()
	spec.Playlists = []SubPlaylistSpec{{
		Name:        "Recent favorites",
		Operator:    CombineOr,
		Contains:    []string{"House"},
		Rating:      []string{"4", "5"},
		DateCreated: &DateCreatedSpec{TimePeriod: 2, TimeUnit: "months"},
	}}

	trees, err := Build(spec, testTags)
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	var ratingGroup *Node
	var dateLeaf *Node
	for _, c := range trees[0].Tree.Children {
		if !c.IsLeaf() && len(c.Children) == 2 && c.Children[0].Property == PropRating {
			ratingGroup = c
		}
		if c.IsLeaf() && c.Property == PropDateCreated {
			dateLeaf = c
		}
	}

	if ratingGroup == nil {
		t.Fatal("no rating group in tree")
	}
	if ratingGroup.Logical != Any {
		t.Errorf("rating group logical = %d, want Any", ratingGroup.Logical)
	}
	for _, leaf := range ratingGroup.Children {
		if leaf.Operator != OpEqual {
			t.Errorf("rating leaf operator = %d, want EQUAL", leaf.Operator)
		}
	}

	if dateLeaf == nil {
		t.Fatal("no dateCreated leaf in tree")
	}
	if dateLeaf.Operator != OpInLast || dateLeaf.ValueLeft != "2" || dateLeaf.Unit != "months" {
		t.Errorf("dateCreated leaf = %+v, want IN_LAST 2 months", dateLeaf)
	}
}

func TestBuildUnknownTagFailsWholeCategory(t *testing.T) {
	spec := baseSpec()
	spec.Playlists = append(spec.Playlists, SubPlaylistSpec{
		Name:     "Broken",
		Operator: CombineAnd,
		Contains: []string{"No Such Tag"},
	})

	if _, err := Build(spec, testTags); err == nil {
		t.Fatal("expected build to fail when a tag cannot be resolved")
	}
}

func TestBuildEncodesLargeTagIDs(t *testing.T) {
	tags := mapTags{"Big": 2147483648, "House": 10, "Vinyl": 12, "Unsorted": 13}
	spec := baseSpec()
	spec.Playlists = []SubPlaylistSpec{{Name: "Big", Operator: CombineAnd, Contains: []string{"Big"}}}

	trees, err := Build(spec, tags)
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	found := false
	for _, leaf := range trees[0].Tree.Leaves() {
		if leaf.ValueLeft == "-2147483648" {
			found = true
		}
	}
	if !found {
		t.Error("tag ID above 2^31 should serialize as a negative signed 32-bit value")
	}
}

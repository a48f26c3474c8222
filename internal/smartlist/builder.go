// internal/smartlist/builder.go

package smartlist

import (
	"fmt"
	"strconv"
)

// TagResolver resolves a My Tag name to its djmdMyTag row ID. The database
// store satisfies this; tests supply a map-backed fake.
type TagResolver interface {
	MyTagID(name string) (int64, error)
}

// NamedTree pairs a playlist name with its built condition tree.
type NamedTree struct {
	Name string
	Tree *Node
}

// Build converts a category spec into one condition tree per declared
// playlist, in declaration order. Every tree is a top-level All group
// combining, in order: a myTag CONTAINS leaf per main condition, a
// NOT_CONTAINS leaf per negative condition, the contains group joined per
// the playlist operator, NOT_CONTAINS leaves for doesNotContain, an Any
// group of rating EQUAL leaves when rating is present, and an IN_LAST
// dateCreated leaf when dateCreated is present.
//
// A tag name that does not resolve fails the whole category: a playlist
// silently missing one of its conditions would match the wrong tracks.
func Build(spec PlaylistSpec, tags TagResolver) ([]NamedTree, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}

	trees := make([]NamedTree, 0, len(spec.Playlists))
	for _, p := range spec.Playlists {
		tree, err := buildOne(spec, p, tags)
		if err != nil {
			return nil, fmt.Errorf("build playlist %q: %w", p.Name, err)
		}
		trees = append(trees, NamedTree{Name: p.Name, Tree: tree})
	}
	return trees, nil
}

func buildOne(spec PlaylistSpec, p SubPlaylistSpec, tags TagResolver) (*Node, error) {
	root := Group(All)

	for _, name := range spec.MainConditions {
		leaf, err := tagCondition(tags, name, OpContains)
		if err != nil {
			return nil, err
		}
		root.Add(leaf)
	}

	// Negative conditions always exclude, independent of the operator the
	// contains entries combine with.
	for _, name := range spec.NegativeConditions {
		leaf, err := tagCondition(tags, name, OpNotContains)
		if err != nil {
			return nil, err
		}
		root.Add(leaf)
	}

	combine := All
	if p.Operator == CombineOr {
		combine = Any
	}
	contains := Group(combine)
	for _, name := range p.Contains {
		leaf, err := tagCondition(tags, name, OpContains)
		if err != nil {
			return nil, err
		}
		contains.Add(leaf)
	}
	root.Add(contains)

	for _, name := range p.DoesNotContain {
		leaf, err := tagCondition(tags, name, OpNotContains)
		if err != nil {
			return nil, err
		}
		root.Add(leaf)
	}

	if len(p.Rating) > 0 {
		rating := Group(Any)
		for _, value := range p.Rating {
			rating.Add(Condition(PropRating, OpEqual, value))
		}
		root.Add(rating)
	}

	if p.DateCreated != nil {
		leaf := Condition(PropDateCreated, OpInLast, strconv.Itoa(p.DateCreated.TimePeriod))
		leaf.Unit = p.DateCreated.TimeUnit
		root.Add(leaf)
	}

	return root, nil
}

func tagCondition(tags TagResolver, name string, op Operator) (*Node, error) {
	id, err := tags.MyTagID(name)
	if err != nil {
		return nil, fmt.Errorf("resolve tag %q: %w", name, err)
	}
	return Condition(PropMyTag, op, EncodeTagID(id)), nil
}

// internal/smartlist/smartlist.go

// Package smartlist models the condition trees behind Rekordbox smart
// playlists and converts them to and from the XML stored in the
// djmdPlaylist.SmartList column.
package smartlist

import (
	"encoding/xml"
	"fmt"
	"math/rand"
	"strconv"
)

// LogicalOperator selects how sibling conditions combine inside a node.
type LogicalOperator int

const (
	// All requires every child condition to match (AND).
	All LogicalOperator = 1
	// Any requires at least one child condition to match (OR).
	Any LogicalOperator = 2
)

// Operator is a condition comparator as encoded by Rekordbox.
type Operator int

const (
	OpEqual Operator = iota + 1
	OpNotEqual
	OpGreater
	OpLess
	OpInRange
	OpInLast
	OpNotInLast
	OpContains
	OpNotContains
	OpStartsWith
	OpEndsWith
)

// Property names a track field a condition tests against.
type Property string

const (
	PropArtist      Property = "artist"
	PropAlbum       Property = "album"
	PropGenre       Property = "genre"
	PropMyTag       Property = "myTag"
	PropRating      Property = "rating"
	PropDateCreated Property = "dateCreated"
)

// Node is one element of a condition tree: either a leaf test over a track
// property or a group combining child nodes with a logical operator. Group
// nodes leave Property empty; leaf nodes have no children.
type Node struct {
	Logical  LogicalOperator
	Children []*Node

	Property   Property
	Operator   Operator
	ValueLeft  string
	ValueRight string
	Unit       string
}

// Group creates a combinator node over the given children.
func Group(logical LogicalOperator, children ...*Node) *Node {
	return &Node{Logical: logical, Children: children}
}

// Condition creates a leaf node testing a single property.
func Condition(prop Property, op Operator, valueLeft string) *Node {
	return &Node{Property: prop, Operator: op, ValueLeft: valueLeft}
}

// IsLeaf reports whether the node is a single property test.
func (n *Node) IsLeaf() bool {
	return n.Property != ""
}

// Add appends a child to a group node and returns the node for chaining.
func (n *Node) Add(child *Node) *Node {
	n.Children = append(n.Children, child)
	return n
}

// Leaves returns the leaf conditions of the tree in serialization order.
func (n *Node) Leaves() []*Node {
	if n.IsLeaf() {
		return []*Node{n}
	}
	var leaves []*Node
	for _, c := range n.Children {
		if c.IsLeaf() {
			leaves = append(leaves, c)
		}
	}
	for _, c := range n.Children {
		if !c.IsLeaf() {
			leaves = append(leaves, c.Leaves()...)
		}
	}
	return leaves
}

// EncodeTagID converts a djmdMyTag row ID into the value Rekordbox stores in
// a myTag condition. Tag IDs at or above 2^31 appear as negative signed
// 32-bit decimals in the XML.
func EncodeTagID(id int64) string {
	return strconv.FormatInt(int64(int32(uint32(id))), 10)
}

// DecodeTagValue recovers a djmdMyTag row ID from a myTag condition value.
func DecodeTagValue(value int64) int64 {
	if value < 0 {
		return value + (1 << 32)
	}
	return value
}

// xmlCondition mirrors a CONDITION element in the SmartList column.
type xmlCondition struct {
	XMLName      xml.Name `xml:"CONDITION"`
	PropertyName string   `xml:"PropertyName,attr"`
	Operator     int      `xml:"Operator,attr"`
	ValueUnit    string   `xml:"ValueUnit,attr"`
	ValueLeft    string   `xml:"ValueLeft,attr"`
	ValueRight   string   `xml:"ValueRight,attr"`
}

// xmlNode mirrors a NODE element. Rekordbox lists conditions before nested
// groups, so serialization keeps that order.
type xmlNode struct {
	XMLName         xml.Name       `xml:"NODE"`
	ID              string         `xml:"Id,attr"`
	LogicalOperator int            `xml:"LogicalOperator,attr"`
	AutomaticUpdate string         `xml:"AutomaticUpdate,attr,omitempty"`
	Conditions      []xmlCondition `xml:"CONDITION"`
	Nodes           []xmlNode      `xml:"NODE"`
}

func toXMLNode(n *Node) xmlNode {
	out := xmlNode{ID: "0", LogicalOperator: int(n.Logical)}
	for _, c := range n.Children {
		if c.IsLeaf() {
			out.Conditions = append(out.Conditions, xmlCondition{
				PropertyName: string(c.Property),
				Operator:     int(c.Operator),
				ValueUnit:    c.Unit,
				ValueLeft:    c.ValueLeft,
				ValueRight:   c.ValueRight,
			})
		} else {
			out.Nodes = append(out.Nodes, toXMLNode(c))
		}
	}
	return out
}

func fromXMLNode(x xmlNode) *Node {
	n := Group(LogicalOperator(x.LogicalOperator))
	for _, c := range x.Conditions {
		n.Add(&Node{
			Property:   Property(c.PropertyName),
			Operator:   Operator(c.Operator),
			ValueLeft:  c.ValueLeft,
			ValueRight: c.ValueRight,
			Unit:       c.ValueUnit,
		})
	}
	for _, child := range x.Nodes {
		n.Add(fromXMLNode(child))
	}
	return n
}

// Marshal renders a condition tree as the SmartList XML document Rekordbox
// expects. The root node carries a random numeric Id and the automatic
// update flag; leaves inside a single CONDITION test are rejected.
func Marshal(root *Node) (string, error) {
	if root == nil {
		return "", fmt.Errorf("smartlist: nil condition tree")
	}
	if root.IsLeaf() {
		// Rekordbox always wraps conditions in a NODE even for one test.
		root = Group(All, root)
	}
	doc := toXMLNode(root)
	doc.ID = strconv.FormatInt(rand.Int63n(1<<31), 10)
	doc.AutomaticUpdate = "1"
	data, err := xml.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("smartlist: marshal condition tree: %w", err)
	}
	return string(data), nil
}

// Parse reads a SmartList XML document back into a condition tree. The
// returned tree drops the document Id; it carries no identity of its own.
func Parse(doc string) (*Node, error) {
	var x xmlNode
	if err := xml.Unmarshal([]byte(doc), &x); err != nil {
		return nil, fmt.Errorf("smartlist: parse smart list XML: %w", err)
	}
	return fromXMLNode(x), nil
}

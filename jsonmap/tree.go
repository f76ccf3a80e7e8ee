// Copyright (C) 2024 Michael J. Fromberger. All Rights Reserved.

// Package jsonmap maps JSON documents into spreadsheets.
//
// A map is a tree keyed by object member names whose leaves link
// scalar positions in the input either to single cells or to columns
// of a tabular range. Arrays are transparent in map paths: a step
// after an array-valued key addresses the members of each element, and
// every element of the array walks the same subtree, which is how a
// range accumulates rows. The map is built ahead of parsing; content
// parsing streams the input once through the event tokenizer.
package jsonmap

import (
	"fmt"
	"strings"

	"github.com/creachadair/sheetmap"
)

type linkKind int

const (
	linkNone linkKind = iota
	linkCell
	linkRangeField
)

// A BadPathError reports a syntactically invalid map path.
type BadPathError struct {
	Path   string
	Reason string
}

func (e *BadPathError) Error() string {
	return fmt.Sprintf("bad path %q: %s", e.Path, e.Reason)
}

// A DuplicateLinkError reports two links installed for the same path.
type DuplicateLinkError struct {
	Path string
}

func (e *DuplicateLinkError) Error() string {
	return fmt.Sprintf("duplicate link for path %q", e.Path)
}

// A BadRangeShapeError reports a misuse of the range-building calls.
type BadRangeShapeError struct {
	Path   string
	Reason string
}

func (e *BadRangeShapeError) Error() string {
	return fmt.Sprintf("bad range shape at %q: %s", e.Path, e.Reason)
}

// A fieldRef addresses one column of a range.
type fieldRef struct {
	ref    *rangeRef
	column int
}

// A rangeRef is the shared mutable cursor of one tabular range.
// Unlike the XML variant, JSON ranges write no header row: row data
// starts at the range origin.
type rangeRef struct {
	pos      sheetmap.CellPos
	rowPos   int // current row offset
	imported []bool
}

func (r *rangeRef) reset() {
	for i := range r.imported {
		r.imported[i] = false
	}
}

// A node is one step of the map tree, keyed by object member name.
type node struct {
	children map[string]*node
	kind     linkKind
	cell     sheetmap.CellPos
	field    *fieldRef

	// rowGroup, when set, marks this node as a row boundary of the
	// given range: leaving it arms the row advance.
	rowGroup *rangeRef
}

func (n *node) child(key string) *node {
	if n.children == nil {
		return nil
	}
	return n.children[key]
}

// A Tree is the path-indexed map for one JSON mapping session.
type Tree struct {
	root   *node
	ranges map[sheetmap.CellPos]*rangeRef
	order  []*rangeRef

	cur *rangeRef // range being built, between StartRange and CommitRange
}

// NewTree constructs an empty map tree.
func NewTree() *Tree {
	return &Tree{root: new(node), ranges: make(map[sheetmap.CellPos]*rangeRef)}
}

// SetCellLink resolves path and installs a single-cell link to pos.
func (t *Tree) SetCellLink(path string, pos sheetmap.CellPos) error {
	n, err := t.build(path)
	if err != nil {
		return err
	}
	if n.kind != linkNone {
		return &DuplicateLinkError{Path: path}
	}
	n.kind = linkCell
	n.cell = pos
	return nil
}

// StartRange begins the definition of a range anchored at pos.
// Reusing the origin of an earlier range extends that range.
func (t *Tree) StartRange(pos sheetmap.CellPos) {
	ref := t.ranges[pos]
	if ref == nil {
		ref = &rangeRef{pos: pos}
		t.ranges[pos] = ref
		t.order = append(t.order, ref)
	}
	t.cur = ref
}

// AppendFieldLink resolves path and appends it as the next column of
// the range being built.
func (t *Tree) AppendFieldLink(path string) error {
	if t.cur == nil {
		return &BadRangeShapeError{Path: path, Reason: "no range is being built"}
	}
	n, err := t.build(path)
	if err != nil {
		return err
	}
	if n.kind != linkNone {
		return &DuplicateLinkError{Path: path}
	}
	n.kind = linkRangeField
	n.field = &fieldRef{ref: t.cur, column: len(t.cur.imported)}
	t.cur.imported = append(t.cur.imported, false)
	return nil
}

// SetRangeRowGroup marks the node at path as a row boundary of the
// range being built.
func (t *Tree) SetRangeRowGroup(path string) error {
	if t.cur == nil {
		return &BadRangeShapeError{Path: path, Reason: "no range is being built"}
	}
	n, err := t.build(path)
	if err != nil {
		return err
	}
	n.rowGroup = t.cur
	return nil
}

// CommitRange completes the range being built, fixing its field count.
func (t *Tree) CommitRange() error {
	t.cur = nil
	return nil
}

// build walks path from the root, creating nodes as needed.
func (t *Tree) build(path string) (*node, error) {
	steps, err := parsePath(path)
	if err != nil {
		return nil, err
	}
	cur := t.root
	for _, key := range steps {
		next := cur.child(key)
		if next == nil {
			next = new(node)
			if cur.children == nil {
				cur.children = make(map[string]*node)
			}
			cur.children[key] = next
		}
		cur = next
	}
	return cur, nil
}

// parsePath splits a slash-delimited path of object keys. A leading
// '/' is required. Array descents are implicit: a step addresses the
// named member of an object, or of each element when the value is an
// array.
func parsePath(path string) ([]string, error) {
	rest, ok := strings.CutPrefix(path, "/")
	if !ok {
		return nil, &BadPathError{Path: path, Reason: "path must begin with '/'"}
	}
	if rest == "" {
		return nil, &BadPathError{Path: path, Reason: "empty path"}
	}
	steps := strings.Split(rest, "/")
	for _, s := range steps {
		if s == "" {
			return nil, &BadPathError{Path: path, Reason: "empty path step"}
		}
	}
	return steps, nil
}

// Copyright (C) 2024 Michael J. Fromberger. All Rights Reserved.

// Package xmlmap maps XML documents into spreadsheets.
//
// A map is a tree of qualified element names whose leaves link element
// content or attribute values either to single cells or to columns of
// a tabular range. The map is built ahead of parsing, from the
// programmatic API or from a JSON map definition; content parsing then
// streams the input once, committing linked values to the sink as they
// are seen. A second pass can rewrite the source document with updated
// cell values, preserving all bytes outside linked regions.
package xmlmap

import (
	"go4.org/mem"

	"github.com/creachadair/sheetmap"
	"github.com/creachadair/sheetmap/sax"
	"github.com/creachadair/sheetmap/stringpool"
	"github.com/creachadair/sheetmap/xmlns"
)

type linkKind int

const (
	linkNone linkKind = iota
	linkCell       // single-cell link
	linkRangeField // column of a tabular range
)

// A cellRef addresses the target of a single-cell link.
type cellRef struct {
	pos sheetmap.CellPos
}

// A fieldRef addresses one column of a range.
type fieldRef struct {
	ref    *rangeRef
	column int // column offset within the range
}

// A rangeRef is the shared mutable cursor of one tabular range: the
// current row offset and the per-column imported bitset, reset as each
// row completes. Fields hold the linked nodes in column order.
type rangeRef struct {
	pos      sheetmap.CellPos
	rowSize  int // current row offset; row 0 holds the field headers
	fields   []*linkable
	imported []bool

	// rowRoot is the element whose subtree forms one row, and parent
	// its enclosing element, established at commit time.
	rowRoot *element
	parent  *element
}

func (r *rangeRef) reset() {
	for i := range r.imported {
		r.imported[i] = false
	}
}

// A linkable carries the link state shared by elements and attributes.
type linkable struct {
	ns    xmlns.ID
	name  string // interned local name
	kind  linkKind
	cell  *cellRef
	field *fieldRef

	// alias observed for this node in the content stream, replayed by
	// the writer.
	nsAlias string

	// header label override for range fields.
	label string
}

func (l *linkable) qnameEqual(q sax.QName) bool {
	return l.ns == q.NS && q.Name.EqualString(l.name)
}

// displayName renders the node's name for range headers.
func (l *linkable) displayName(repo *xmlns.Repository) string {
	if l.label != "" {
		return l.label
	}
	if l.ns != xmlns.Unknown {
		return repo.ShortName(l.ns) + ":" + l.name
	}
	return l.name
}

type attribute struct {
	linkable
}

// An element is one interior or leaf node of the map tree. An element
// may carry both a content link and linked attributes; an element with
// linked attributes but no content link is an attribute anchor, still
// recorded for the writer.
type element struct {
	linkable
	parent   *element
	children []*element
	attrs    []*attribute

	// rowGroup, when set, marks this element as the row boundary of the
	// given range: its closing tag arms the row advance.
	rowGroup *rangeRef

	// rangeParent, when set, marks this element as the region containing
	// all rows of the given range.
	rangeParent *rangeRef

	// streamPos records the byte offsets of this element's open and
	// close tags in the content stream, for the writer.
	streamPos StreamPos
	recorded  bool
}

// A StreamPos brackets an element's open and close tags in the input.
// Self-closing tags have OpenBegin == CloseBegin.
type StreamPos struct {
	OpenBegin, OpenEnd   int
	CloseBegin, CloseEnd int
}

// unlinkedAttributeAnchor reports whether the element itself is not
// linked but carries one or more linked attributes.
func (e *element) unlinkedAttributeAnchor() bool {
	return e.kind == linkNone && len(e.attrs) != 0
}

func (e *element) findChild(q sax.QName) *element {
	for _, c := range e.children {
		if c.qnameEqual(q) {
			return c
		}
	}
	return nil
}

// A Tree is the path-indexed map for one XML mapping session. It owns
// its nodes and range descriptors; it is built before content parsing
// and must not be modified while a walker is running.
type Tree struct {
	repo *xmlns.Repository
	cxt  *xmlns.Context // map-side prefix registrations
	pool *stringpool.Pool

	root   *element
	ranges map[sheetmap.CellPos]*rangeRef
	order  []*rangeRef

	// state of the range being built, between StartRange and
	// CommitRange.
	cur *rangeBuild
}

type rangeBuild struct {
	ref      *rangeRef
	anchors  [][]*element // path from root to each field's element
	rowGroup []*element   // path to the row-group element, if set
}

// NewTree constructs an empty map tree resolving namespaces in repo.
func NewTree(repo *xmlns.Repository) *Tree {
	return &Tree{
		repo:   repo,
		cxt:    repo.NewContext(),
		pool:   stringpool.New(),
		ranges: make(map[sheetmap.CellPos]*rangeRef),
	}
}

// SetNamespaceAlias registers a prefix the map paths use for the given
// URI. If isDefault is true the URI also becomes the default namespace
// for unprefixed element steps.
func (t *Tree) SetNamespaceAlias(alias, uri string, isDefault bool) {
	t.cxt.Push(alias, mem.S(uri))
	if isDefault {
		t.cxt.Push("", mem.S(uri))
	}
}

// SetCellLink resolves path and installs a single-cell link to pos.
func (t *Tree) SetCellLink(path string, pos sheetmap.CellPos) error {
	steps, err := parsePath(t.cxt, path)
	if err != nil {
		return err
	}
	node, attr, err := t.build(path, steps)
	if err != nil {
		return err
	}
	target := &node.linkable
	if attr != nil {
		target = &attr.linkable
	}
	if target.kind != linkNone {
		return &DuplicateLinkError{Path: path}
	}
	target.kind = linkCell
	target.cell = &cellRef{pos: pos}
	return nil
}

// StartRange begins the definition of a range anchored at pos.
// Starting a range at a position already used by an earlier range
// extends that range with more fields.
func (t *Tree) StartRange(pos sheetmap.CellPos) {
	ref := t.ranges[pos]
	if ref == nil {
		ref = &rangeRef{pos: pos}
		t.ranges[pos] = ref
		t.order = append(t.order, ref)
	}
	t.cur = &rangeBuild{ref: ref}
}

// AppendFieldLink resolves path and appends it as the next column of
// the range being built. label, if not empty, overrides the header
// text for the column.
func (t *Tree) AppendFieldLink(path, label string) error {
	if t.cur == nil {
		return &BadRangeShapeError{Path: path, Reason: "no range is being built"}
	}
	steps, err := parsePath(t.cxt, path)
	if err != nil {
		return err
	}
	node, attr, err := t.build(path, steps)
	if err != nil {
		return err
	}
	target := &node.linkable
	if attr != nil {
		target = &attr.linkable
	}
	if target.kind != linkNone {
		return &DuplicateLinkError{Path: path}
	}
	ref := t.cur.ref
	target.kind = linkRangeField
	target.field = &fieldRef{ref: ref, column: len(ref.fields)}
	target.label = label
	ref.fields = append(ref.fields, target)
	ref.imported = append(ref.imported, false)
	t.cur.anchors = append(t.cur.anchors, pathTo(node))
	return nil
}

// SetRangeRowGroup resolves path, which must name an element, and
// marks it as the row boundary of the range being built.
func (t *Tree) SetRangeRowGroup(path string) error {
	if t.cur == nil {
		return &BadRangeShapeError{Path: path, Reason: "no range is being built"}
	}
	steps, err := parsePath(t.cxt, path)
	if err != nil {
		return err
	}
	if steps[len(steps)-1].attr {
		return &BadPathError{Path: path, Reason: "a row group must be an element"}
	}
	node, _, err := t.build(path, steps)
	if err != nil {
		return err
	}
	node.rowGroup = t.cur.ref
	t.cur.rowGroup = pathTo(node)
	return nil
}

// CommitRange completes the range being built, fixing its field count
// and locating the element that anchors its rows.
func (t *Tree) CommitRange() error {
	build := t.cur
	t.cur = nil
	if build == nil || len(build.anchors) == 0 {
		return nil
	}

	common := commonPrefix(build.anchors)
	rowRoot := common[len(common)-1]
	if build.rowGroup != nil {
		// The row group must be an ancestor of, or equal to, every field
		// node of the range.
		rg := build.rowGroup[len(build.rowGroup)-1]
		if !contains(common, rg) {
			return &BadRangeShapeError{
				Path:   t.pathString(rg),
				Reason: "row group does not enclose the range fields",
			}
		}
		rowRoot = rg
	}
	if rowRoot.parent == nil {
		return &BadRangeShapeError{
			Path:   t.pathString(rowRoot),
			Reason: "range rows cannot repeat at the document root",
		}
	}
	ref := build.ref
	ref.rowRoot = rowRoot
	ref.parent = rowRoot.parent
	rowRoot.parent.rangeParent = ref
	return nil
}

// build walks steps from the root, creating nodes as needed, and
// returns the final element and, for an attribute path, the attribute.
func (t *Tree) build(path string, steps []pathStep) (*element, *attribute, error) {
	if len(steps) == 0 {
		return nil, nil, &BadPathError{Path: path, Reason: "empty path"}
	}
	if t.root == nil {
		first := steps[0]
		if first.attr {
			return nil, nil, &BadPathError{Path: path, Reason: "attribute step at document root"}
		}
		t.root = &element{linkable: linkable{ns: first.ns, name: t.pool.InternString(first.name)}}
	}
	if steps[0].attr || steps[0].ns != t.root.ns || steps[0].name != t.root.name {
		return nil, nil, &BadPathError{Path: path, Reason: "path does not start at the document root element"}
	}

	cur := t.root
	for _, step := range steps[1:] {
		if step.attr {
			// Attribute steps are only valid as the final step; the path
			// parser enforces this.
			for _, a := range cur.attrs {
				if a.ns == step.ns && a.name == step.name {
					return cur, a, nil
				}
			}
			a := &attribute{linkable: linkable{ns: step.ns, name: t.pool.InternString(step.name)}}
			cur.attrs = append(cur.attrs, a)
			return cur, a, nil
		}
		next := (*element)(nil)
		for _, c := range cur.children {
			if c.ns == step.ns && c.name == step.name {
				next = c
				break
			}
		}
		if next == nil {
			next = &element{
				linkable: linkable{ns: step.ns, name: t.pool.InternString(step.name)},
				parent:   cur,
			}
			cur.children = append(cur.children, next)
		}
		cur = next
	}
	return cur, nil, nil
}

// pathTo returns the chain of elements from the root to e, inclusive.
func pathTo(e *element) []*element {
	var rev []*element
	for n := e; n != nil; n = n.parent {
		rev = append(rev, n)
	}
	out := make([]*element, len(rev))
	for i, n := range rev {
		out[len(rev)-1-i] = n
	}
	return out
}

// commonPrefix returns the longest common prefix of the given root
// paths. The paths share at least the root element.
func commonPrefix(paths [][]*element) []*element {
	common := paths[0]
	for _, p := range paths[1:] {
		n := len(common)
		if len(p) < n {
			n = len(p)
		}
		i := 0
		for i < n && common[i] == p[i] {
			i++
		}
		common = common[:i]
	}
	return common
}

func contains(chain []*element, e *element) bool {
	for _, n := range chain {
		if n == e {
			return true
		}
	}
	return false
}

// pathString renders the path to e for error messages, using the
// repository's short namespace names.
func (t *Tree) pathString(e *element) string {
	var s string
	for _, n := range pathTo(e) {
		s += "/" + n.displayName(t.repo)
	}
	return s
}

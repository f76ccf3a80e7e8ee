// Copyright (C) 2024 Michael J. Fromberger. All Rights Reserved.

package xmlmap

import (
	"go4.org/mem"

	"github.com/creachadair/sheetmap"
	"github.com/creachadair/sheetmap/sax"
	"github.com/creachadair/sheetmap/stringpool"
	"github.com/creachadair/sheetmap/xmlns"
)

// dataHandler walks the map tree in step with the content stream. It
// tracks the current map position with a stack mirroring the open
// element depth, commits values at linked leaves, advances row cursors
// on row-group boundaries, and records the byte ranges of linked
// elements for the writer.
type dataHandler struct {
	tree        *Tree
	im          sheetmap.ImportFactory
	pool        *stringpool.Pool
	links       *[]*element
	placeholder string

	// The map cursor: one entry per open element, nil when the input
	// descended where the map has no node.
	stack  []*element
	scopes []streamScope

	attrs   []sax.NSAttr
	chars   mem.RO
	inRange bool

	// pending, when set, is the range whose last closing element was a
	// row-group boundary; the next matching open advances the row.
	pending *rangeRef
}

// streamScope records the open-tag span of one open element.
type streamScope struct {
	openBegin, openEnd int
}

func (h *dataHandler) Attribute(attr sax.NSAttr) {
	if attr.Transient {
		attr.Value = h.pool.Intern(attr.Value)
	}
	h.attrs = append(h.attrs, attr)
}

func (h *dataHandler) StartElement(elem sax.NSElement) {
	h.scopes = append(h.scopes, streamScope{openBegin: elem.Begin, openEnd: elem.End})
	h.chars = mem.RO{}

	cur := h.push(elem.Name)
	if cur != nil {
		if cur.rowGroup != nil && h.pending == cur.rowGroup {
			// The last closing element was a row-group boundary; advance
			// the row position.
			ref := cur.rowGroup
			h.fillUnprocessed(ref)
			ref.reset()
			ref.rowSize++
			h.pending = nil
		}

		// Import any linked attributes present on this element, and
		// record the aliases the content stream used for them.
		for _, la := range cur.attrs {
			at := h.findAttr(la.ns, la.name)
			if at == nil {
				continue
			}
			h.commit(&la.linkable, trimView(at.Value))
			la.nsAlias = at.Alias.StringCopy()
		}

		if cur.rangeParent != nil {
			h.inRange = true
		}
	}
	h.attrs = h.attrs[:0]
}

func (h *dataHandler) EndElement(elem sax.NSElement) {
	cur := h.stack[len(h.stack)-1]
	scope := h.scopes[len(h.scopes)-1]
	h.stack = h.stack[:len(h.stack)-1]
	h.scopes = h.scopes[:len(h.scopes)-1]

	if cur == nil {
		return
	}

	h.commit(&cur.linkable, h.chars)

	if cur.rowGroup != nil {
		h.pending = cur.rowGroup
	}

	// Record the stream position of single-link elements, range region
	// parents, and attribute anchors outside linked ranges.
	if cur.kind == linkCell || cur.rangeParent != nil ||
		(!h.inRange && cur.unlinkedAttributeAnchor()) {
		cur.streamPos = StreamPos{
			OpenBegin:  scope.openBegin,
			OpenEnd:    scope.openEnd,
			CloseBegin: elem.Begin,
			CloseEnd:   elem.End,
		}
		if !cur.recorded {
			cur.recorded = true
			*h.links = append(*h.links, cur)
		}
	}

	if cur.rangeParent != nil {
		h.inRange = false
	}
	cur.nsAlias = elem.Alias.StringCopy()
}

func (h *dataHandler) Characters(value mem.RO, transient bool) {
	if len(h.stack) == 0 || h.stack[len(h.stack)-1] == nil {
		return
	}
	v := trimView(value)
	if transient {
		v = h.pool.Intern(v)
	}
	h.chars = v
}

// postprocess completes the final row of a range whose last row group
// closed at the end of the stream.
func (h *dataHandler) postprocess() {
	if h.pending != nil {
		h.fillUnprocessed(h.pending)
		h.pending = nil
	}
}

// push descends the map cursor for an element with the given name,
// returning the matched node or nil if the input diverges from the
// map here.
func (h *dataHandler) push(q sax.QName) *element {
	var next *element
	if len(h.stack) == 0 {
		if h.tree.root != nil && h.tree.root.qnameEqual(q) {
			next = h.tree.root
		}
	} else if top := h.stack[len(h.stack)-1]; top != nil {
		next = top.findChild(q)
	}
	h.stack = append(h.stack, next)
	return next
}

func (h *dataHandler) findAttr(ns xmlns.ID, name string) *sax.NSAttr {
	for i := range h.attrs {
		at := &h.attrs[i]
		if at.Name.NS == ns && at.Name.Name.EqualString(name) {
			return at
		}
	}
	return nil
}

// commit writes a linked value through the sink. Links into sheets the
// sink does not provide are silently skipped.
func (h *dataHandler) commit(l *linkable, val mem.RO) {
	switch l.kind {
	case linkCell:
		sheet, ok := h.im.GetSheet(l.cell.pos.Sheet)
		if !ok {
			return
		}
		sheet.SetAuto(l.cell.pos.Row, l.cell.pos.Col, val)
	case linkRangeField:
		ref := l.field.ref
		ref.imported[l.field.column] = true
		sheet, ok := h.im.GetSheet(ref.pos.Sheet)
		if !ok {
			return
		}
		sheet.SetAuto(ref.pos.Row+ref.rowSize, ref.pos.Col+l.field.column, val)
	}
}

// fillUnprocessed writes the placeholder into the columns of the
// current row that received no value.
func (h *dataHandler) fillUnprocessed(ref *rangeRef) {
	sheet, ok := h.im.GetSheet(ref.pos.Sheet)
	if !ok {
		return
	}
	for col, done := range ref.imported {
		if !done {
			sheet.SetAuto(ref.pos.Row+ref.rowSize, ref.pos.Col+col, mem.S(h.placeholder))
		}
	}
}

// trimView returns v with leading and trailing whitespace removed.
func trimView(v mem.RO) mem.RO {
	i, j := 0, v.Len()
	for i < j && isSpace(v.At(i)) {
		i++
	}
	for j > i && isSpace(v.At(j-1)) {
		j--
	}
	return v.SliceFrom(i).SliceTo(j - i)
}

func isSpace(c byte) bool { return c == ' ' || c == '\t' || c == '\n' || c == '\r' }

// Copyright (C) 2024 Michael J. Fromberger. All Rights Reserved.

package jsonmap

import (
	"github.com/sirupsen/logrus"
	"go4.org/mem"

	"github.com/creachadair/sheetmap"
)

// Input node kinds tracked by the walker.
const (
	inArray  = 'a'
	inObject = 'o'
	inValue  = 'v'
)

// frame is one entry of the walker stack: the map node matched at this
// input depth (nil when the input diverged from the map) and the kind
// of input node that opened it.
type frame struct {
	node *node
	kind byte
}

// walker drives the map tree from tokenizer events. Each input node
// pushes a frame; object members descend by the pending key, array
// elements re-enter the array's own node.
type walker struct {
	tree        *Tree
	im          sheetmap.ImportFactory
	placeholder string

	stack []frame
	key   string // pending object key

	// pending, when set, is the range whose last closed node was a
	// row-group boundary; the next matching push advances the row.
	pending *rangeRef
}

func (h *walker) BeginParse() error { return nil }

func (h *walker) EndParse() error {
	if h.pending != nil {
		h.fillUnprocessed(h.pending)
		h.pending = nil
	}
	return nil
}

func (h *walker) BeginArray() error  { h.push(inArray); return nil }
func (h *walker) EndArray() error    { h.pop(); return nil }
func (h *walker) BeginObject() error { h.push(inObject); return nil }
func (h *walker) EndObject() error   { h.pop(); return nil }

func (h *walker) ObjectKey(key mem.RO, transient bool) error {
	h.key = key.StringCopy()
	return nil
}

func (h *walker) Boolean(value bool) error {
	n := h.push(inValue)
	if n != nil && n.kind != linkNone {
		h.commit(n, func(sheet sheetmap.ImportSheet, row, col int) {
			sheet.SetBool(row, col, value)
		})
	}
	h.pop()
	return nil
}

func (h *walker) Null() error {
	// Nulls are positional only; nothing is written.
	h.push(inValue)
	h.pop()
	return nil
}

func (h *walker) String(value mem.RO, transient bool) error {
	n := h.push(inValue)
	if n != nil && n.kind != linkNone {
		h.commit(n, func(sheet sheetmap.ImportSheet, row, col int) {
			if ss, ok := h.im.SharedStrings(); ok {
				sheet.SetString(row, col, ss.Add(value))
			} else {
				sheet.SetAuto(row, col, value)
			}
		})
	}
	h.pop()
	return nil
}

func (h *walker) Number(value float64) error {
	n := h.push(inValue)
	if n != nil && n.kind != linkNone {
		h.commit(n, func(sheet sheetmap.ImportSheet, row, col int) {
			sheet.SetValue(row, col, value)
		})
	}
	h.pop()
	return nil
}

// push descends the map cursor for an input node of the given kind and
// returns the matched map node, or nil where the input diverges from
// the map.
func (h *walker) push(kind byte) *node {
	var n *node
	if len(h.stack) == 0 {
		n = h.tree.root
	} else if parent := h.stack[len(h.stack)-1]; parent.node != nil {
		if parent.kind == inArray {
			// Array elements walk the array's own subtree.
			n = parent.node
		} else {
			n = parent.node.child(h.key)
		}
	}
	h.stack = append(h.stack, frame{node: n, kind: kind})

	if n != nil {
		if n.rowGroup != nil && h.pending == n.rowGroup {
			// The last closed node was a row-group boundary; advance the
			// row position.
			ref := n.rowGroup
			h.fillUnprocessed(ref)
			ref.reset()
			ref.rowPos++
			h.pending = nil
		}
		if kind != inValue && n.kind != linkNone {
			// A container arrived where a scalar was mapped; the value is
			// discarded.
			logrus.Debugf("jsonmap: discarding non-scalar input at a linked node")
		}
	}
	return n
}

func (h *walker) pop() {
	f := h.stack[len(h.stack)-1]
	h.stack = h.stack[:len(h.stack)-1]
	if f.node != nil && f.node.rowGroup != nil {
		h.pending = f.node.rowGroup
	}
}

// commit resolves the target cell of a linked node and invokes set on
// it. Links into sheets the sink does not provide are silently
// skipped.
func (h *walker) commit(n *node, set func(sheet sheetmap.ImportSheet, row, col int)) {
	pos := n.cell
	if n.kind == linkRangeField {
		ref := n.field.ref
		ref.imported[n.field.column] = true
		pos = ref.pos
		pos.Row += ref.rowPos
		pos.Col += n.field.column
	}
	sheet, ok := h.im.GetSheet(pos.Sheet)
	if !ok {
		return
	}
	set(sheet, pos.Row, pos.Col)
}

// fillUnprocessed writes the placeholder into the columns of a
// partially-filled row that received no value. A row that received no
// values at all is left empty.
func (h *walker) fillUnprocessed(ref *rangeRef) {
	any := false
	for _, done := range ref.imported {
		any = any || done
	}
	if !any {
		return
	}
	sheet, ok := h.im.GetSheet(ref.pos.Sheet)
	if !ok {
		return
	}
	for col, done := range ref.imported {
		if !done {
			sheet.SetAuto(ref.pos.Row+ref.rowPos, ref.pos.Col+col, mem.S(h.placeholder))
		}
	}
}

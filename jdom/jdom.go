// Copyright (C) 2024 Michael J. Fromberger. All Rights Reserved.

// Package jdom defines an in-memory tree for JSON values and a parser
// that constructs trees from JSON source. It is a convenience layer
// over the event parser in package jsax, intended for small documents
// such as map definitions; large inputs should be processed with jsax
// directly.
package jdom

import (
	"errors"

	"go4.org/mem"

	"github.com/creachadair/sheetmap/jsax"
)

// A Value is an arbitrary JSON value. The concrete type is one of
// *Object, *Array, String, Number, Bool, or Null.
type Value interface{ isValue() }

// An Object is a collection of key-value members in document order.
type Object struct {
	Members []*Member
}

func (*Object) isValue() {}

// Find returns the first member of o with the given key, or nil.
func (o *Object) Find(key string) *Member {
	for _, m := range o.Members {
		if m.Key == key {
			return m
		}
	}
	return nil
}

// Key returns the value of the first member of o with the given key,
// or nil if no such member exists.
func (o *Object) Key(key string) Value {
	if m := o.Find(key); m != nil {
		return m.Value
	}
	return nil
}

// A Member is a single key-value pair belonging to an Object.
type Member struct {
	Key   string
	Value Value
}

// An Array is a sequence of values.
type Array struct {
	Values []Value
}

func (*Array) isValue() {}

// A String is a string value, fully unescaped.
type String string

func (String) isValue() {}

// A Number is a numeric value.
type Number float64

func (Number) isValue() {}

// A Bool is a Boolean constant.
type Bool bool

func (Bool) isValue() {}

// Null represents the null constant.
type Null struct{}

func (Null) isValue() {}

// Str reports the text of v if v is a String.
func Str(v Value) (string, bool) {
	s, ok := v.(String)
	return string(s), ok
}

// Num reports the value of v if v is a Number.
func Num(v Value) (float64, bool) {
	n, ok := v.(Number)
	return float64(n), ok
}

// Parse parses a single JSON value from src.
func Parse(src []byte) (Value, error) {
	h := new(parseHandler)
	if err := jsax.NewParser(src, h).Parse(); err != nil {
		return nil, err
	}
	if h.root == nil {
		return nil, errors.New("incomplete value")
	}
	return h.root, nil
}

// A parseHandler implements the jsax.Handler interface to construct
// value trees.
type parseHandler struct {
	stk  []Value
	keys []string // pending object keys, parallel to open objects
	root Value
}

func (h *parseHandler) BeginParse() error { return nil }
func (h *parseHandler) EndParse() error   { return nil }

func (h *parseHandler) BeginObject() error {
	h.stk = append(h.stk, &Object{})
	return nil
}

func (h *parseHandler) ObjectKey(key mem.RO, transient bool) error {
	h.keys = append(h.keys, key.StringCopy())
	return nil
}

func (h *parseHandler) EndObject() error { return h.reduce() }

func (h *parseHandler) BeginArray() error {
	h.stk = append(h.stk, &Array{})
	return nil
}

func (h *parseHandler) EndArray() error { return h.reduce() }

func (h *parseHandler) Boolean(v bool) error { return h.value(Bool(v)) }
func (h *parseHandler) Null() error          { return h.value(Null{}) }

func (h *parseHandler) String(v mem.RO, transient bool) error {
	return h.value(String(v.StringCopy()))
}

func (h *parseHandler) Number(v float64) error { return h.value(Number(v)) }

// reduce pops the completed container atop the stack and attaches it
// to its parent, or records it as the root.
func (h *parseHandler) reduce() error {
	v := h.stk[len(h.stk)-1]
	h.stk = h.stk[:len(h.stk)-1]
	return h.attach(v)
}

func (h *parseHandler) value(v Value) error { return h.attach(v) }

// attach adds a completed value to the container atop the stack, or
// records it as the root when the stack is empty.
func (h *parseHandler) attach(v Value) error {
	if len(h.stk) == 0 {
		h.root = v
		return nil
	}
	switch parent := h.stk[len(h.stk)-1].(type) {
	case *Object:
		key := h.keys[len(h.keys)-1]
		h.keys = h.keys[:len(h.keys)-1]
		parent.Members = append(parent.Members, &Member{Key: key, Value: v})
	case *Array:
		parent.Values = append(parent.Values, v)
	}
	return nil
}

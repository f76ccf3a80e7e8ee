// Copyright (C) 2024 Michael J. Fromberger. All Rights Reserved.

// Package xmlns manages XML namespace identity.
//
// A Repository interns namespace URIs to dense integer identifiers that
// are stable for the life of the repository, so an ID can be used as an
// array index and compared in O(1). A Context tracks the prefix
// bindings in effect at a point in a single XML stream; use a fresh
// Context per stream.
package xmlns

import (
	"strconv"

	"go4.org/mem"
)

// An ID identifies a namespace URI interned in a Repository. Two IDs
// from the same repository are equal exactly when their URIs are equal.
// The zero value is Unknown.
type ID int

// Unknown is the identity of an unresolvable namespace, reported for
// prefixes with no binding in scope.
const Unknown ID = 0

// A Repository interns namespace URIs for a session. The zero value is
// not ready for use; call NewRepository. A Repository is not safe for
// concurrent mutation.
type Repository struct {
	ids  map[string]ID
	uris []string // indexed by ID; uris[Unknown] is ""
}

// NewRepository constructs an empty namespace repository.
func NewRepository() *Repository {
	return &Repository{
		ids:  make(map[string]ID),
		uris: []string{""},
	}
}

// Intern returns the identifier for uri, assigning the next dense ID if
// uri has not been seen before. Interning the empty URI returns Unknown.
func (r *Repository) Intern(uri mem.RO) ID {
	if uri.Len() == 0 {
		return Unknown
	}
	s := uri.StringCopy()
	if id, ok := r.ids[s]; ok {
		return id
	}
	id := ID(len(r.uris))
	r.ids[s] = id
	r.uris = append(r.uris, s)
	return id
}

// InternString is shorthand for Intern(mem.S(uri)).
func (r *Repository) InternString(uri string) ID { return r.Intern(mem.S(uri)) }

// AddPredefined interns the URIs of d in order, so that their
// identifiers are the same in every repository that loads the same
// dialects in the same order.
func (r *Repository) AddPredefined(d Dialect) {
	for _, uri := range d.URIs {
		r.InternString(uri)
	}
}

// URI returns the URI interned for id, or "" if id is Unknown or out of
// range.
func (r *Repository) URI(id ID) string {
	if id <= Unknown || int(id) >= len(r.uris) {
		return ""
	}
	return r.uris[id]
}

// Len reports the number of identifiers issued, including Unknown.
func (r *Repository) Len() int { return len(r.uris) }

// ShortName returns a display name for id, short enough for diagnostic
// output but still unique to the identifier ("ns1", "ns2", ...).
// Unknown has the short name "???".
func (r *Repository) ShortName(id ID) string {
	if id <= Unknown || int(id) >= len(r.uris) {
		return "???"
	}
	return "ns" + strconv.Itoa(int(id))
}

// NewContext returns an empty prefix-binding context backed by r.
func (r *Repository) NewContext() *Context {
	return &Context{repo: r}
}

// A Dialect is an immutable predefined set of namespace URIs for a
// known document format.
type Dialect struct {
	Name string
	URIs []string
}

type binding struct {
	prefix string
	id     ID
}

// A Context resolves namespace prefixes to identifiers using a stack of
// scoped bindings. Bindings are pushed when an element opens and popped
// when it closes; resolution finds the innermost binding for a prefix.
// The empty prefix is the default namespace.
//
// A Context also records every alias observed in its stream, keyed by
// the identifier it was bound to, so a writer can replay the aliases
// the source document actually used.
type Context struct {
	repo     *Repository
	bindings []binding
	observed map[ID]string
}

// Repo returns the repository backing c.
func (c *Context) Repo() *Repository { return c.repo }

// Push binds prefix to uri in the innermost scope and returns the
// identifier assigned to uri.
func (c *Context) Push(prefix string, uri mem.RO) ID {
	id := c.repo.Intern(uri)
	c.bindings = append(c.bindings, binding{prefix: prefix, id: id})
	if c.observed == nil {
		c.observed = make(map[ID]string)
	}
	if _, ok := c.observed[id]; !ok {
		c.observed[id] = prefix
	}
	return id
}

// Pop removes the innermost binding for prefix. Popping a prefix with
// no binding in scope is a no-op.
func (c *Context) Pop(prefix string) {
	for i := len(c.bindings) - 1; i >= 0; i-- {
		if c.bindings[i].prefix == prefix {
			c.bindings = append(c.bindings[:i], c.bindings[i+1:]...)
			return
		}
	}
}

// Resolve returns the identifier of the innermost binding for prefix,
// or Unknown if prefix is not bound. The empty prefix resolves through
// the default namespace.
func (c *Context) Resolve(prefix mem.RO) ID {
	for i := len(c.bindings) - 1; i >= 0; i-- {
		if prefix.EqualString(c.bindings[i].prefix) {
			return c.bindings[i].id
		}
	}
	return Unknown
}

// ResolveString is shorthand for Resolve(mem.S(prefix)).
func (c *Context) ResolveString(prefix string) ID { return c.Resolve(mem.S(prefix)) }

// Alias returns the first alias observed for id in this stream, and
// whether any alias was observed.
func (c *Context) Alias(id ID) (string, bool) {
	s, ok := c.observed[id]
	return s, ok
}

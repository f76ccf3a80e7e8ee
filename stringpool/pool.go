// Copyright (C) 2024 Michael J. Fromberger. All Rights Reserved.

// Package stringpool implements an append-only intern pool for byte
// sequences. Interning a sequence returns a stable read-only view whose
// backing bytes never move for the life of the pool, so views returned
// by the pool may be retained and compared freely after the buffers
// they were copied from are gone.
package stringpool

import "go4.org/mem"

// A Pool interns byte sequences. The zero value is not ready for use;
// call New to construct a Pool. A Pool is not safe for concurrent
// mutation; concurrent readers are safe once interning is complete.
type Pool struct {
	table map[uint32][]string
	size  int
}

// New constructs a new empty Pool.
func New() *Pool { return &Pool{table: make(map[uint32][]string)} }

// Intern returns a stable view with the same contents as v, copying the
// contents into the pool if no equal sequence has been interned yet.
// Interning is idempotent: two calls with equal contents return views
// over the same backing bytes.
func (p *Pool) Intern(v mem.RO) mem.RO { return mem.S(p.intern(v)) }

// InternString is shorthand for Intern(mem.S(s)), returning the pooled
// string rather than a view of it.
func (p *Pool) InternString(s string) string { return p.intern(mem.S(s)) }

// InternBytes is shorthand for Intern(mem.B(b)), returning the pooled
// string rather than a view of it.
func (p *Pool) InternBytes(b []byte) string { return p.intern(mem.B(b)) }

// Len reports the number of distinct sequences interned in p.
func (p *Pool) Len() int { return p.size }

func (p *Pool) intern(v mem.RO) string {
	h := Hash(v)
	for _, s := range p.table[h] {
		if v.EqualString(s) {
			return s
		}
	}
	s := v.StringCopy()
	p.table[h] = append(p.table[h], s)
	p.size++
	return s
}

// Hash returns the 32-bit FNV-1a hash of the contents of v.
// Views with equal contents hash equal; the empty view hashes to the
// FNV offset basis.
func Hash(v mem.RO) uint32 {
	const (
		offset = 2166136261
		prime  = 16777619
	)
	h := uint32(offset)
	for i := 0; i < v.Len(); i++ {
		h ^= uint32(v.At(i))
		h *= prime
	}
	return h
}

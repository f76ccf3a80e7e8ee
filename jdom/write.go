// Copyright (C) 2024 Michael J. Fromberger. All Rights Reserved.

package jdom

import (
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
	"strings"
)

// WriteJSON writes v to w as JSON, indented two spaces per level.
func WriteJSON(w io.Writer, v Value) error {
	var sb strings.Builder
	writeJSON(&sb, v, 0)
	_, err := io.WriteString(w, sb.String())
	return err
}

func writeJSON(sb *strings.Builder, v Value, depth int) {
	indent := func(n int) {
		sb.WriteByte('\n')
		for i := 0; i < n; i++ {
			sb.WriteString("  ")
		}
	}
	switch t := v.(type) {
	case *Object:
		if len(t.Members) == 0 {
			sb.WriteString("{}")
			return
		}
		sb.WriteByte('{')
		for i, m := range t.Members {
			if i > 0 {
				sb.WriteByte(',')
			}
			indent(depth + 1)
			sb.WriteString(Quote(m.Key))
			sb.WriteString(": ")
			writeJSON(sb, m.Value, depth+1)
		}
		indent(depth)
		sb.WriteByte('}')
	case *Array:
		if len(t.Values) == 0 {
			sb.WriteString("[]")
			return
		}
		sb.WriteByte('[')
		for i, e := range t.Values {
			if i > 0 {
				sb.WriteByte(',')
			}
			indent(depth + 1)
			writeJSON(sb, e, depth+1)
		}
		indent(depth)
		sb.WriteByte(']')
	case String:
		sb.WriteString(Quote(string(t)))
	case Number:
		sb.WriteString(formatNumber(float64(t)))
	case Bool:
		sb.WriteString(strconv.FormatBool(bool(t)))
	case Null:
		sb.WriteString("null")
	}
}

// WriteFlat writes the flat dump of v to w, one line per scalar leaf
// in the form "path = value (type)". Array steps render as "[i]".
func WriteFlat(w io.Writer, v Value) error {
	return flatten(w, v, "")
}

func flatten(w io.Writer, v Value, path string) error {
	switch t := v.(type) {
	case *Object:
		if len(t.Members) == 0 {
			_, err := fmt.Fprintf(w, "%s = (empty object)\n", orRoot(path))
			return err
		}
		for _, m := range t.Members {
			if err := flatten(w, m.Value, path+"/"+m.Key); err != nil {
				return err
			}
		}
	case *Array:
		if len(t.Values) == 0 {
			_, err := fmt.Fprintf(w, "%s = (empty array)\n", orRoot(path))
			return err
		}
		for i, e := range t.Values {
			if err := flatten(w, e, fmt.Sprintf("%s[%d]", path, i)); err != nil {
				return err
			}
		}
	case String:
		_, err := fmt.Fprintf(w, "%s = %s (string)\n", orRoot(path), string(t))
		return err
	case Number:
		_, err := fmt.Fprintf(w, "%s = %s (number)\n", orRoot(path), formatNumber(float64(t)))
		return err
	case Bool:
		_, err := fmt.Fprintf(w, "%s = %v (boolean)\n", orRoot(path), bool(t))
		return err
	case Null:
		_, err := fmt.Fprintf(w, "%s = (null)\n", orRoot(path))
		return err
	}
	return nil
}

func orRoot(path string) string {
	if path == "" {
		return "/"
	}
	return path
}

// WriteXML writes a simple XML rendering of v to w. Object members
// become elements named by their keys, array entries repeat their
// parent's element name, and scalars become element text. The root is
// wrapped in a <root> element.
func WriteXML(w io.Writer, v Value) error {
	if _, err := io.WriteString(w, `<?xml version="1.0" encoding="UTF-8"?>`+"\n"); err != nil {
		return err
	}
	return writeXML(w, v, "root")
}

func writeXML(w io.Writer, v Value, name string) error {
	switch t := v.(type) {
	case *Object:
		if _, err := fmt.Fprintf(w, "<%s>", name); err != nil {
			return err
		}
		for _, m := range t.Members {
			if err := writeXML(w, m.Value, m.Key); err != nil {
				return err
			}
		}
		_, err := fmt.Fprintf(w, "</%s>", name)
		return err
	case *Array:
		for _, e := range t.Values {
			if err := writeXML(w, e, name); err != nil {
				return err
			}
		}
		return nil
	default:
		_, err := fmt.Fprintf(w, "<%s>%s</%s>", name, escapeXML(scalarText(v)), name)
		return err
	}
}

func scalarText(v Value) string {
	switch t := v.(type) {
	case String:
		return string(t)
	case Number:
		return formatNumber(float64(t))
	case Bool:
		return strconv.FormatBool(bool(t))
	}
	return ""
}

func escapeXML(s string) string {
	var sb strings.Builder
	for _, r := range s {
		switch r {
		case '<':
			sb.WriteString("&lt;")
		case '>':
			sb.WriteString("&gt;")
		case '&':
			sb.WriteString("&amp;")
		default:
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

// WriteStructure writes the shape of v to w: one line per distinct
// leaf path, with array steps rendered as "[]" and repeated paths
// collapsed. Each line carries the set of scalar kinds observed at
// that path.
func WriteStructure(w io.Writer, v Value) error {
	paths := make(map[string]map[string]bool)
	var order []string
	collect(v, "", paths, &order)
	for _, p := range order {
		kinds := make([]string, 0, len(paths[p]))
		for k := range paths[p] {
			kinds = append(kinds, k)
		}
		sort.Strings(kinds)
		if _, err := fmt.Fprintf(w, "%s: %s\n", orRoot(p), strings.Join(kinds, ", ")); err != nil {
			return err
		}
	}
	return nil
}

func collect(v Value, path string, paths map[string]map[string]bool, order *[]string) {
	record := func(kind string) {
		if paths[path] == nil {
			paths[path] = make(map[string]bool)
			*order = append(*order, path)
		}
		paths[path][kind] = true
	}
	switch t := v.(type) {
	case *Object:
		for _, m := range t.Members {
			collect(m.Value, path+"/"+m.Key, paths, order)
		}
	case *Array:
		for _, e := range t.Values {
			collect(e, path+"[]", paths, order)
		}
	case String:
		record("string")
	case Number:
		record("number")
	case Bool:
		record("boolean")
	case Null:
		record("null")
	}
}

// Quote encodes s as a JSON string literal, escaping control and
// reserved characters.
func Quote(s string) string {
	var sb strings.Builder
	sb.WriteByte('"')
	for _, r := range s {
		switch {
		case r == '"' || r == '\\':
			sb.WriteByte('\\')
			sb.WriteRune(r)
		case r == '\b':
			sb.WriteString(`\b`)
		case r == '\f':
			sb.WriteString(`\f`)
		case r == '\n':
			sb.WriteString(`\n`)
		case r == '\r':
			sb.WriteString(`\r`)
		case r == '\t':
			sb.WriteString(`\t`)
		case r < ' ':
			fmt.Fprintf(&sb, `\u%04x`, r)
		default:
			sb.WriteRune(r)
		}
	}
	sb.WriteByte('"')
	return sb.String()
}

// formatNumber renders a number the way JSON output expects: integral
// values without an exponent or trailing zeroes.
func formatNumber(v float64) string {
	if v == math.Trunc(v) && math.Abs(v) < 1e15 {
		return strconv.FormatInt(int64(v), 10)
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}

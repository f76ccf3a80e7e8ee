// Copyright (C) 2024 Michael J. Fromberger. All Rights Reserved.

// Package mapdef parses the JSON map-definition format shared by the
// XML and JSON mapping front ends. A definition names the sheets to
// create, the single-cell links, and the tabular ranges of the map.
// Definitions may be written in JWCC (JSON with commas and comments);
// they are normalized before parsing. Unknown top-level keys are
// ignored.
package mapdef

import (
	"errors"
	"fmt"

	"github.com/tailscale/hujson"

	"github.com/creachadair/sheetmap/jdom"
)

// A Def is a parsed map definition.
type Def struct {
	Sheets []string
	Cells  []Cell
	Ranges []Range

	// Namespace registrations, used only by the XML front end.
	Namespaces map[string]string
	DefaultNS  string
}

// A Cell links one document path to a single cell.
type Cell struct {
	Path  string
	Sheet string
	Row   int
	Col   int
}

// A Range describes one tabular range: its origin, its field links in
// column order, and the row-group paths whose close advances the row
// cursor.
type Range struct {
	Sheet     string
	Row       int
	Col       int
	Fields    []Field
	RowGroups []string
}

// A Field is one column of a range. Label, if set, overrides the
// field's header text.
type Field struct {
	Path  string
	Label string
}

// Parse parses a map definition from data.
func Parse(data []byte) (*Def, error) {
	std, err := hujson.Standardize(data)
	if err != nil {
		return nil, fmt.Errorf("map definition: %w", err)
	}
	v, err := jdom.Parse(std)
	if err != nil {
		return nil, fmt.Errorf("map definition: %w", err)
	}
	root, ok := v.(*jdom.Object)
	if !ok {
		return nil, errors.New("map definition: root must be an object")
	}

	def := new(Def)
	if err := def.parseSheets(root); err != nil {
		return nil, err
	}
	if err := def.parseCells(root); err != nil {
		return nil, err
	}
	if err := def.parseRanges(root); err != nil {
		return nil, err
	}
	def.parseNamespaces(root)
	return def, nil
}

func (d *Def) parseSheets(root *jdom.Object) error {
	arr, ok := root.Key("sheets").(*jdom.Array)
	if !ok {
		return errors.New(`map definition: required "sheets" section is missing`)
	}
	for _, v := range arr.Values {
		name, ok := jdom.Str(v)
		if !ok {
			return errors.New("map definition: sheet names must be strings")
		}
		d.Sheets = append(d.Sheets, name)
	}
	return nil
}

func (d *Def) parseCells(root *jdom.Object) error {
	arr, ok := root.Key("cells").(*jdom.Array)
	if !ok {
		return nil // optional
	}
	for i, v := range arr.Values {
		obj, ok := v.(*jdom.Object)
		if !ok {
			return fmt.Errorf("map definition: cell %d must be an object", i)
		}
		var c Cell
		var err error
		if c.Path, err = strKey(obj, "path"); err != nil {
			return fmt.Errorf("map definition: cell %d: %w", i, err)
		}
		if c.Sheet, err = strKey(obj, "sheet"); err != nil {
			return fmt.Errorf("map definition: cell %d: %w", i, err)
		}
		if c.Row, err = intKey(obj, "row"); err != nil {
			return fmt.Errorf("map definition: cell %d: %w", i, err)
		}
		if c.Col, err = intKey(obj, "column"); err != nil {
			return fmt.Errorf("map definition: cell %d: %w", i, err)
		}
		d.Cells = append(d.Cells, c)
	}
	return nil
}

func (d *Def) parseRanges(root *jdom.Object) error {
	arr, ok := root.Key("ranges").(*jdom.Array)
	if !ok {
		return nil // optional
	}
	for i, v := range arr.Values {
		obj, ok := v.(*jdom.Object)
		if !ok {
			return fmt.Errorf("map definition: range %d must be an object", i)
		}
		var r Range
		var err error
		if r.Sheet, err = strKey(obj, "sheet"); err != nil {
			return fmt.Errorf("map definition: range %d: %w", i, err)
		}
		if r.Row, err = intKey(obj, "row"); err != nil {
			return fmt.Errorf("map definition: range %d: %w", i, err)
		}
		if r.Col, err = intKey(obj, "column"); err != nil {
			return fmt.Errorf("map definition: range %d: %w", i, err)
		}

		fields, ok := obj.Key("fields").(*jdom.Array)
		if !ok {
			return fmt.Errorf(`map definition: range %d: required "fields" section is missing`, i)
		}
		for j, fv := range fields.Values {
			fobj, ok := fv.(*jdom.Object)
			if !ok {
				return fmt.Errorf("map definition: range %d field %d must be an object", i, j)
			}
			var f Field
			if f.Path, err = strKey(fobj, "path"); err != nil {
				return fmt.Errorf("map definition: range %d field %d: %w", i, j, err)
			}
			if label, ok := jdom.Str(fobj.Key("label")); ok {
				f.Label = label
			}
			r.Fields = append(r.Fields, f)
		}

		if groups, ok := obj.Key("row-groups").(*jdom.Array); ok {
			for j, gv := range groups.Values {
				gobj, ok := gv.(*jdom.Object)
				if !ok {
					return fmt.Errorf("map definition: range %d row-group %d must be an object", i, j)
				}
				path, err := strKey(gobj, "path")
				if err != nil {
					return fmt.Errorf("map definition: range %d row-group %d: %w", i, j, err)
				}
				r.RowGroups = append(r.RowGroups, path)
			}
		}
		d.Ranges = append(d.Ranges, r)
	}
	return nil
}

// parseNamespaces reads the optional "namespaces" and
// "default-namespace" sections used by the XML front end.
func (d *Def) parseNamespaces(root *jdom.Object) {
	if obj, ok := root.Key("namespaces").(*jdom.Object); ok {
		d.Namespaces = make(map[string]string)
		for _, m := range obj.Members {
			if uri, ok := jdom.Str(m.Value); ok {
				d.Namespaces[m.Key] = uri
			}
		}
	}
	if alias, ok := jdom.Str(root.Key("default-namespace")); ok {
		d.DefaultNS = alias
	}
}

func strKey(obj *jdom.Object, key string) (string, error) {
	s, ok := jdom.Str(obj.Key(key))
	if !ok {
		return "", fmt.Errorf("missing or non-string %q", key)
	}
	return s, nil
}

func intKey(obj *jdom.Object, key string) (int, error) {
	n, ok := jdom.Num(obj.Key(key))
	if !ok {
		return 0, fmt.Errorf("missing or non-numeric %q", key)
	}
	return int(n), nil
}

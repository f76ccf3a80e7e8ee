// Copyright (C) 2024 Michael J. Fromberger. All Rights Reserved.

// Program sheetmap-json parses a JSON document and converts it, dumps
// its structure, or maps it into a spreadsheet using a map definition.
//
// Usage:
//
//	sheetmap-json [--mode convert|map|structure] [-o OUTPUT] [-f FORMAT] [--map MAPFILE] INPUT
//
// The output format is one of xml, json, check, or none. In map mode a
// map definition file is required, and the imported sheets are written
// as a flat dump.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"gopkg.in/alecthomas/kingpin.v2"

	"github.com/creachadair/sheetmap"
	"github.com/creachadair/sheetmap/jdom"
	"github.com/creachadair/sheetmap/jsonmap"
	"github.com/creachadair/sheetmap/memsheet"
)

var (
	app = kingpin.New("sheetmap-json", "Convert, inspect, or map a JSON document.")

	mode = app.Flag("mode", "Processing mode.").
		Default("convert").Enum("convert", "map", "structure")
	output = app.Flag("output", "Output file path (default stdout).").
		Short('o').String()
	format = app.Flag("format", "Output format: xml, json, check, or none.").
		Short('f').Default("json").Enum("xml", "json", "check", "none")
	mapFile = app.Flag("map", "Map definition file (required in map mode).").
		ExistingFile()
	resolveRefs = app.Flag("resolve-refs", "Accepted for compatibility; JSON references are not resolved.").
			Bool()
	verbose = app.Flag("verbose", "Enable debug logging.").Short('v').Bool()

	input = app.Arg("input", "Input file path.").Required().ExistingFile()
)

func main() {
	kingpin.MustParse(app.Parse(os.Args[1:]))
	if *verbose {
		logrus.SetLevel(logrus.DebugLevel)
	}
	if *resolveRefs {
		// Reference resolution happens outside the mapping engine; the
		// flag is accepted for compatibility.
		logrus.Debug("--resolve-refs has no effect")
	}

	data, err := sheetmap.ReadFile(*input)
	if err != nil {
		app.Fatalf("reading input: %v", err)
	}

	out, closeOut, err := openOutput(*output)
	if err != nil {
		app.Fatalf("%v", err)
	}
	defer closeOut()

	switch *mode {
	case "convert":
		if err := runConvert(out, data, *format); err != nil {
			app.Fatalf("%v", err)
		}
	case "structure":
		if err := runStructure(out, data); err != nil {
			app.Fatalf("%v", err)
		}
	case "map":
		if *mapFile == "" {
			app.Fatalf("map mode requires --map")
		}
		if err := runMap(out, data, *mapFile, *format); err != nil {
			app.Fatalf("%v", err)
		}
	}
}

func openOutput(path string) (io.Writer, func(), error) {
	if path == "" {
		return os.Stdout, func() {}, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("creating output: %w", err)
	}
	return f, func() { f.Close() }, nil
}

func runConvert(w io.Writer, data []byte, format string) error {
	if format == "none" {
		_, err := jdom.Parse(data)
		return err
	}
	v, err := jdom.Parse(data)
	if err != nil {
		return err
	}
	switch format {
	case "json":
		if err := jdom.WriteJSON(w, v); err != nil {
			return err
		}
		_, err := io.WriteString(w, "\n")
		return err
	case "xml":
		if err := jdom.WriteXML(w, v); err != nil {
			return err
		}
		_, err := io.WriteString(w, "\n")
		return err
	case "check":
		return jdom.WriteFlat(w, v)
	}
	return nil
}

func runStructure(w io.Writer, data []byte) error {
	v, err := jdom.Parse(data)
	if err != nil {
		return err
	}
	return jdom.WriteStructure(w, v)
}

func runMap(w io.Writer, data []byte, mapPath, format string) error {
	mapData, err := sheetmap.ReadFile(mapPath)
	if err != nil {
		return fmt.Errorf("reading map definition: %w", err)
	}
	doc := memsheet.New()
	m := jsonmap.New(doc)
	if err := m.ReadMapDefinition(mapData); err != nil {
		return err
	}
	if err := m.ReadStream(data); err != nil {
		return err
	}
	if format == "none" {
		return nil
	}
	return doc.Dump(w)
}

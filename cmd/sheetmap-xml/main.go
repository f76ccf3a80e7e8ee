// Copyright (C) 2024 Michael J. Fromberger. All Rights Reserved.

// Program sheetmap-xml maps an XML document into a spreadsheet using a
// map definition, and can rewrite the source document with updated
// cell values.
//
// Usage:
//
//	sheetmap-xml --map MAPFILE [--mode map|transform] [-o OUTPUT] INPUT
//
// In map mode the imported sheets are written as a flat dump. In
// transform mode the source document is written back out through the
// round-trip writer, with linked regions re-rendered from the imported
// values and all other bytes preserved.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"gopkg.in/alecthomas/kingpin.v2"

	"github.com/creachadair/sheetmap"
	"github.com/creachadair/sheetmap/memsheet"
	"github.com/creachadair/sheetmap/xmlmap"
	"github.com/creachadair/sheetmap/xmlns"
)

var (
	app = kingpin.New("sheetmap-xml", "Map an XML document into a spreadsheet.")

	mode = app.Flag("mode", "Processing mode.").
		Default("map").Enum("map", "transform")
	output = app.Flag("output", "Output file path (default stdout).").
		Short('o').String()
	mapFile = app.Flag("map", "Map definition file.").
		Required().ExistingFile()
	verbose = app.Flag("verbose", "Enable debug logging.").Short('v').Bool()

	input = app.Arg("input", "Input file path.").Required().ExistingFile()
)

func main() {
	kingpin.MustParse(app.Parse(os.Args[1:]))
	if *verbose {
		logrus.SetLevel(logrus.DebugLevel)
	}

	data, err := sheetmap.ReadFile(*input)
	if err != nil {
		app.Fatalf("reading input: %v", err)
	}
	mapData, err := sheetmap.ReadFile(*mapFile)
	if err != nil {
		app.Fatalf("reading map definition: %v", err)
	}

	out, closeOut, err := openOutput(*output)
	if err != nil {
		app.Fatalf("%v", err)
	}
	defer closeOut()

	doc := memsheet.New()
	repo := xmlns.NewRepository()
	m := xmlmap.New(repo, doc, doc.Export())
	if err := m.ReadMapDefinition(mapData); err != nil {
		app.Fatalf("%v", err)
	}
	if err := m.ReadStream(data); err != nil {
		app.Fatalf("%v", err)
	}

	switch *mode {
	case "map":
		if err := doc.Dump(out); err != nil {
			app.Fatalf("writing dump: %v", err)
		}
	case "transform":
		if err := m.Write(data, out); err != nil {
			app.Fatalf("writing document: %v", err)
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

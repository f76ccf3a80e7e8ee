// Copyright (C) 2024 Michael J. Fromberger. All Rights Reserved.

// Package sheetmap maps structured documents into spreadsheets.
//
// The mapping engine parses XML or JSON input incrementally and loads
// linked values into a tabular document model through a narrow sink
// interface defined here. A map, built ahead of parsing, describes how
// paths in the input correspond to single cells or to columns of a
// tabular range; the engine resolves each linked value as the parse
// advances, without materializing the input as a tree.
//
// The root package defines the sink interfaces (ImportFactory,
// ExportFactory and friends) and input loading helpers. The mapping
// machinery lives in the subpackages:
//
//	xmlmap   maps XML documents, including round-trip rewriting
//	jsonmap  maps JSON documents
//	sax      streaming namespace-aware XML tokenizer
//	jsax     streaming JSON tokenizer
//	jdom     in-memory JSON trees for small documents
//	xmlns    namespace identity and prefix scoping
//
// An in-memory implementation of the sink interfaces is provided by
// package memsheet, used by the command-line tools and suitable for
// tests.
package sheetmap

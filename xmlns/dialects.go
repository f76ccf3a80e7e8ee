// Copyright (C) 2024 Michael J. Fromberger. All Rights Reserved.

package xmlns

// Predefined namespace sets for known spreadsheet dialects. Loading a
// dialect into a repository ahead of parsing gives its URIs stable
// identifiers across sessions.

// XLSX is the namespace set of Office Open XML spreadsheet documents.
var XLSX = Dialect{
	Name: "xlsx",
	URIs: []string{
		"http://schemas.openxmlformats.org/spreadsheetml/2006/main",
		"http://schemas.openxmlformats.org/officeDocument/2006/relationships",
		"http://schemas.openxmlformats.org/package/2006/relationships",
		"http://schemas.openxmlformats.org/package/2006/content-types",
	},
}

// ODS is the namespace set of OpenDocument spreadsheet documents.
var ODS = Dialect{
	Name: "ods",
	URIs: []string{
		"urn:oasis:names:tc:opendocument:xmlns:office:1.0",
		"urn:oasis:names:tc:opendocument:xmlns:table:1.0",
		"urn:oasis:names:tc:opendocument:xmlns:text:1.0",
		"urn:oasis:names:tc:opendocument:xmlns:style:1.0",
		"urn:oasis:names:tc:opendocument:xmlns:datastyle:1.0",
	},
}

// XLSXML is the namespace set of Excel 2003 SpreadsheetML documents.
var XLSXML = Dialect{
	Name: "xls-xml",
	URIs: []string{
		"urn:schemas-microsoft-com:office:spreadsheet",
		"urn:schemas-microsoft-com:office:office",
		"urn:schemas-microsoft-com:office:excel",
		"http://www.w3.org/TR/REC-html40",
	},
}

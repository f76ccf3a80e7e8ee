// Copyright (C) 2024 Michael J. Fromberger. All Rights Reserved.

package sheetmap

import (
	"fmt"
	"os"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Normalize converts data to plain UTF-8: UTF-16 input is detected by
// its byte order mark and transcoded, and a UTF-8 byte order mark is
// removed. Data with no byte order mark is returned unmodified.
func Normalize(data []byte) ([]byte, error) {
	dec := unicode.BOMOverride(unicode.UTF8.NewDecoder())
	out, _, err := transform.Bytes(dec, data)
	if err != nil {
		return nil, fmt.Errorf("normalizing input: %w", err)
	}
	return out, nil
}

// ReadFile reads the file at path and normalizes its encoding to
// UTF-8. The returned buffer backs the views produced by the
// tokenizers and must outlive them.
func ReadFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Normalize(data)
}

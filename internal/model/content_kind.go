package model

import (
	"fmt"
	"path/filepath"
	"strings"
)

// ContentKind identifies the kind of payload a lane fetches.
// The kind determines how the response body is decoded, whether it is
// written in text or binary mode, and which derivation rule applies.
type ContentKind int

const (
	// KindText is plain text. The body is decoded to UTF-8 and kept as is.
	KindText ContentKind = iota + 1

	// KindCSV is comma-separated text with a header row.
	// The body is kept as raw UTF-8 text at fetch time and parsed later.
	KindCSV

	// KindExcel is an .xlsx workbook. The body is kept as raw bytes.
	KindExcel

	// KindJSON is a JSON document, parsed at fetch time.
	KindJSON
)

// AllKinds returns every content kind in pipeline order.
func AllKinds() []ContentKind {
	return []ContentKind{KindText, KindCSV, KindExcel, KindJSON}
}

// String returns the canonical lower-case name of the kind.
func (k ContentKind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindCSV:
		return "csv"
	case KindExcel:
		return "excel"
	case KindJSON:
		return "json"
	default:
		return "unknown"
	}
}

// Valid reports whether k is one of the known kinds.
func (k ContentKind) Valid() bool {
	return k >= KindText && k <= KindJSON
}

// IsBinary reports whether payloads of this kind are written in binary mode.
func (k ContentKind) IsBinary() bool {
	return k == KindExcel
}

// ReportPath returns the path the derived report of this kind is written
// to when path is configured. Excel reports are workbooks, so their path
// keeps its base name and always ends in .xlsx. Other kinds use path as is.
func (k ContentKind) ReportPath(path string) string {
	if k != KindExcel {
		return path
	}
	ext := filepath.Ext(path)
	if strings.EqualFold(ext, ".xlsx") {
		return path
	}
	return strings.TrimSuffix(path, ext) + ".xlsx"
}

// ParseContentKind converts a kind name into a ContentKind.
// Matching is case-insensitive and accepts the file extension aliases
// "txt" and "xlsx".
func ParseContentKind(s string) (ContentKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "text", "txt":
		return KindText, nil
	case "csv":
		return KindCSV, nil
	case "excel", "xlsx":
		return KindExcel, nil
	case "json":
		return KindJSON, nil
	default:
		return 0, fmt.Errorf("unknown content kind %q (expected text, csv, excel or json)", s)
	}
}

// MarshalText implements encoding.TextMarshaler so kinds appear by name
// in JSON and YAML.
func (k ContentKind) MarshalText() ([]byte, error) {
	if !k.Valid() {
		return nil, fmt.Errorf("invalid content kind %d", int(k))
	}
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *ContentKind) UnmarshalText(text []byte) error {
	parsed, err := ParseContentKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

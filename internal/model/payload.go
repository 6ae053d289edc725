package model

import "encoding/json"

// Payload is a decoded response body.
// Only the field matching Kind is populated:
//   - KindText, KindCSV: Text
//   - KindExcel: Bytes
//   - KindJSON: Value (maps, slices, strings, bools, nil and json.Number)
//
// A payload is created by the fetcher and consumed by the payload writer.
// The report processor never sees it; it re-reads the written file.
type Payload struct {
	Kind  ContentKind
	Text  string
	Bytes []byte
	Value any

	// ContentType is the Content-Type header of the response, if any.
	ContentType string
}

// NewTextPayload creates a text-backed payload for KindText or KindCSV.
func NewTextPayload(kind ContentKind, text string) *Payload {
	return &Payload{Kind: kind, Text: text}
}

// NewBinaryPayload creates a KindExcel payload.
func NewBinaryPayload(data []byte) *Payload {
	return &Payload{Kind: KindExcel, Bytes: data}
}

// NewJSONPayload creates a KindJSON payload holding a parsed value.
func NewJSONPayload(value any) *Payload {
	return &Payload{Kind: KindJSON, Value: value}
}

// Size returns the number of bytes the payload occupies before writing.
// JSON values are measured in their compact encoding; a value that cannot be
// encoded has size 0.
func (p *Payload) Size() int64 {
	switch p.Kind {
	case KindJSON:
		data, err := json.Marshal(p.Value)
		if err != nil {
			return 0
		}
		return int64(len(data))
	case KindExcel:
		return int64(len(p.Bytes))
	default:
		return int64(len(p.Text))
	}
}

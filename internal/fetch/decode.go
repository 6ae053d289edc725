package fetch

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"unicode/utf8"

	"github.com/tmontague/datafetch/internal/model"
	"golang.org/x/net/html/charset"
	"golang.org/x/text/encoding/unicode"
)

// decode converts a response body into the payload for kind.
func decode(kind model.ContentKind, body []byte, contentType string) (*model.Payload, error) {
	switch kind {
	case model.KindText:
		text, err := DecodeText(body, contentType)
		if err != nil {
			return nil, err
		}
		return model.NewTextPayload(model.KindText, text), nil
	case model.KindCSV:
		text, err := DecodeUTF8(body)
		if err != nil {
			return nil, err
		}
		return model.NewTextPayload(model.KindCSV, text), nil
	case model.KindExcel:
		return model.NewBinaryPayload(body), nil
	case model.KindJSON:
		value, err := DecodeJSON(body)
		if err != nil {
			return nil, err
		}
		return model.NewJSONPayload(value), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedKind, kind)
	}
}

// DecodeText converts body to a UTF-8 string.
// The encoding comes from a byte order mark or the charset parameter of
// contentType. Without either, a body that is valid UTF-8 is returned
// unmodified and anything else is sniffed. UTF-8 bodies are never
// transcoded.
func DecodeText(body []byte, contentType string) (string, error) {
	enc, name, certain := charset.DetermineEncoding(body, contentType)
	// Sniffing only sees the first 1024 bytes.
	if name == "utf-8" || (!certain && utf8.Valid(body)) {
		return string(body), nil
	}

	decoded, err := enc.NewDecoder().Bytes(body)
	if err != nil {
		return "", fmt.Errorf("failed to decode %s text: %w", name, err)
	}
	return string(decoded), nil
}

// DecodeUTF8 validates body as UTF-8 and strips a leading byte order mark.
func DecodeUTF8(body []byte) (string, error) {
	if !utf8.Valid(body) {
		return "", ErrInvalidUTF8
	}

	decoded, err := unicode.UTF8BOM.NewDecoder().Bytes(body)
	if err != nil {
		return "", fmt.Errorf("failed to decode UTF-8: %w", err)
	}
	return string(decoded), nil
}

// DecodeJSON parses body as exactly one JSON value.
// Numbers are kept as json.Number so re-encoding preserves them.
func DecodeJSON(body []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var value any
	if err := dec.Decode(&value); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("empty JSON body: %w", io.ErrUnexpectedEOF)
		}
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}

	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return nil, ErrTrailingData
	}

	return value, nil
}

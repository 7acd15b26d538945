// Package analysis encodes and decodes protocol analysis documents. JSON is
// the native form; CBOR documents carry the same tree in Core Deterministic
// Encoding so identical analyses produce identical artifacts.
package analysis

import (
	"bytes"
	"encoding/json"
	"fmt"
	"path"
	"reflect"
	"strings"

	"deckhistory/pkg/domain"

	"github.com/fxamacker/cbor/v2"
)

// Format names an analysis document encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatCBOR Format = "cbor"
)

// ContentType returns the MIME type artifacts of f are stored under.
func (f Format) ContentType() string {
	if f == FormatCBOR {
		return "application/cbor"
	}
	return "application/json"
}

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error
	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("analysis: CBOR encoder initialization failed: " + err.Error())
	}
	decMode, err = cbor.DecOptions{DefaultMapType: reflect.TypeOf(map[string]any(nil))}.DecMode()
	if err != nil {
		panic("analysis: CBOR decoder initialization failed: " + err.Error())
	}
}

// FormatFromKey picks a format from an artifact key or file name extension.
func FormatFromKey(key string) Format {
	if strings.EqualFold(path.Ext(key), ".cbor") {
		return FormatCBOR
	}
	return FormatJSON
}

// Sniff guesses the format of data: JSON documents open with '{', CBOR
// documents with a map header.
func Sniff(data []byte) Format {
	trimmed := bytes.TrimLeft(data, " \t\r\n")
	if len(trimmed) > 0 && trimmed[0] == '{' {
		return FormatJSON
	}
	if len(data) > 0 && data[0]>>5 == 5 {
		return FormatCBOR
	}
	return FormatJSON
}

// Decode parses an analysis document.
func Decode(data []byte, format Format) (domain.Analysis, error) {
	var a domain.Analysis
	switch format {
	case FormatJSON, "":
		if err := json.Unmarshal(data, &a); err != nil {
			return domain.Analysis{}, fmt.Errorf("decode json analysis: %w", err)
		}
	case FormatCBOR:
		var tree any
		if err := decMode.Unmarshal(data, &tree); err != nil {
			return domain.Analysis{}, fmt.Errorf("decode cbor analysis: %w", err)
		}
		raw, err := json.Marshal(tree)
		if err != nil {
			return domain.Analysis{}, fmt.Errorf("transcode cbor analysis: %w", err)
		}
		if err := json.Unmarshal(raw, &a); err != nil {
			return domain.Analysis{}, fmt.Errorf("decode cbor analysis: %w", err)
		}
	default:
		return domain.Analysis{}, fmt.Errorf("unknown analysis format %q", format)
	}
	return a, nil
}

// Encode renders an analysis document.
func Encode(a domain.Analysis, format Format) ([]byte, error) {
	raw, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("encode analysis: %w", err)
	}
	switch format {
	case FormatJSON, "":
		return raw, nil
	case FormatCBOR:
		var tree any
		if err := json.Unmarshal(raw, &tree); err != nil {
			return nil, fmt.Errorf("transcode analysis: %w", err)
		}
		return encMode.Marshal(tree)
	default:
		return nil, fmt.Errorf("unknown analysis format %q", format)
	}
}

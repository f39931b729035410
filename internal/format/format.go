package format

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/MrWong99/redline/pkg/transcript"
)

// Format names a document wire format.
type Format string

const (
	Native Format = "native"
	ASR    Format = "asr"
)

// ParseFormat validates a format name. The empty name selects [Native].
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case "", Native:
		return Native, nil
	case ASR:
		return ASR, nil
	}
	return "", fmt.Errorf("format: unknown document format %q (want %q or %q)", s, Native, ASR)
}

// Decode reads a whole document in format f from r.
func Decode(r io.Reader, f Format) (transcript.Document, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return transcript.Document{}, fmt.Errorf("format: read: %w", err)
	}
	switch f {
	case ASR:
		return ImportASR(data)
	case Native, "":
		var d Document
		if err := json.Unmarshal(data, &d); err != nil {
			return transcript.Document{}, fmt.Errorf("format: native document: %w", err)
		}
		return d.ToDocument()
	}
	return transcript.Document{}, fmt.Errorf("format: cannot decode %q", f)
}

// Encode writes doc to w in the native format.
func Encode(w io.Writer, doc transcript.Document) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(FromDocument(doc)); err != nil {
		return fmt.Errorf("format: encode: %w", err)
	}
	return nil
}

// Package document turns raw metadata bytes into a queryable Context.
//
// The format is sniffed once by Detect; every later query goes through the
// Context interface, never back through the detector.
package document

import (
	"errors"
	"fmt"

	"mdqengine/internal/model"
)

type Format string

const (
	FormatXML  Format = "xml"
	FormatJSON Format = "json"
)

var (
	// ErrUnknownFormat means the input is neither well-formed XML nor JSON.
	ErrUnknownFormat = errors.New("document is neither well-formed XML nor JSON")
	// ErrUnsupportedSyntax means a path syntax cannot be evaluated against
	// this document format.
	ErrUnsupportedSyntax = errors.New("unsupported path syntax")
	// ErrInvalidPath wraps compile and evaluation failures of a path.
	ErrInvalidPath = errors.New("invalid path expression")
)

// Context is a parsed document, or a node inside one.
type Context interface {
	Format() Format

	// Evaluate returns nil, a scalar (string, float64, int64, bool) or an
	// ordered []any.
	Evaluate(expr model.Expression, namespaces map[string]string) (any, error)

	// Truth evaluates expr as a boolean predicate.
	Truth(expr model.Expression, namespaces map[string]string) (bool, error)

	// Nodes returns one Context rooted at each match of expr.
	Nodes(expr model.Expression, namespaces map[string]string) ([]Context, error)

	// Text is the whole document (or node) serialized as text.
	Text() string

	// SystemMetadata is nil unless the caller attached one.
	SystemMetadata() *SystemMetadata
}

// Parse detects the format of raw and builds the matching Context. The
// system metadata record, if any, is attached as-is.
func Parse(raw []byte, sm *SystemMetadata) (Context, error) {
	format, parsed, err := detect(raw)
	if err != nil {
		return nil, err
	}
	switch format {
	case FormatXML:
		return newXMLContext(raw, parsed.xml, sm), nil
	case FormatJSON:
		return newJSONContext(raw, parsed.json, sm), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownFormat, format)
	}
}

func checkSyntax(f Format, expr model.Expression) error {
	syntax := expr.SyntaxOrDefault()
	switch f {
	case FormatXML:
		if syntax == model.SyntaxXPath {
			return nil
		}
	case FormatJSON:
		if syntax == model.SyntaxJSONPath {
			return nil
		}
	}
	return fmt.Errorf("%w: %s against a %s document", ErrUnsupportedSyntax, syntax, f)
}

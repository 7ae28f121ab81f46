package document

import (
	"bytes"

	"github.com/antchfx/xmlquery"
	json "github.com/goccy/go-json"
)

type parsedDocument struct {
	xml  *xmlquery.Node
	json any
}

// Detect classifies raw as XML or JSON. It does not validate the document
// against any dialect.
func Detect(raw []byte) (Format, error) {
	f, _, err := detect(raw)
	return f, err
}

func detect(raw []byte) (Format, parsedDocument, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return "", parsedDocument{}, ErrUnknownFormat
	}

	if doc, err := xmlquery.Parse(bytes.NewReader(raw)); err == nil && hasRootElement(doc) {
		return FormatXML, parsedDocument{xml: doc}, nil
	}

	var v any
	if err := json.Unmarshal(trimmed, &v); err == nil {
		return FormatJSON, parsedDocument{json: v}, nil
	}

	return "", parsedDocument{}, ErrUnknownFormat
}

// hasRootElement rejects inputs the XML decoder accepts as bare character
// data (a JSON object, for one).
func hasRootElement(doc *xmlquery.Node) bool {
	if doc == nil {
		return false
	}
	for n := doc.FirstChild; n != nil; n = n.NextSibling {
		if n.Type == xmlquery.ElementNode {
			return true
		}
	}
	return false
}

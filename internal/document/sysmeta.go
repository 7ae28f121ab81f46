package document

import (
	"fmt"
	"io"
	"strings"

	"github.com/antchfx/xmlquery"
)

// SystemMetadata is the subset of a repository's system metadata record
// that checks may read.
type SystemMetadata struct {
	Identifier              string `json:"identifier"`
	FormatID                string `json:"formatId,omitempty"`
	DateUploaded            string `json:"dateUploaded,omitempty"`
	Datasource              string `json:"datasource,omitempty"`
	AuthoritativeMemberNode string `json:"authoritativeMemberNode,omitempty"`
	RightsHolder            string `json:"rightsHolder,omitempty"`
}

// Map exposes the record as a plain map for script bindings.
func (s *SystemMetadata) Map() map[string]any {
	if s == nil {
		return nil
	}
	return map[string]any{
		"identifier":              s.Identifier,
		"formatId":                s.FormatID,
		"dateUploaded":            s.DateUploaded,
		"datasource":              s.Datasource,
		"authoritativeMemberNode": s.AuthoritativeMemberNode,
		"rightsHolder":            s.RightsHolder,
	}
}

// ParseSystemMetadata reads a DataONE-style systemMetadata document. Field
// lookup ignores namespaces, since producers disagree on prefixing.
func ParseSystemMetadata(r io.Reader) (*SystemMetadata, error) {
	doc, err := xmlquery.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse system metadata: %w", err)
	}
	root, err := xmlquery.Query(doc, "/*[local-name()='systemMetadata']")
	if err != nil {
		return nil, fmt.Errorf("parse system metadata: %w", err)
	}
	if root == nil {
		return nil, fmt.Errorf("parse system metadata: no systemMetadata root element")
	}

	field := func(name string) string {
		n, err := xmlquery.Query(root, "*[local-name()='"+name+"']")
		if err != nil || n == nil {
			return ""
		}
		return strings.TrimSpace(n.InnerText())
	}

	sm := &SystemMetadata{
		Identifier:              field("identifier"),
		FormatID:                field("formatId"),
		DateUploaded:            field("dateUploaded"),
		Datasource:              field("originMemberNode"),
		AuthoritativeMemberNode: field("authoritativeMemberNode"),
		RightsHolder:            field("rightsHolder"),
	}
	if sm.Identifier == "" {
		return nil, fmt.Errorf("parse system metadata: identifier is required")
	}
	return sm, nil
}

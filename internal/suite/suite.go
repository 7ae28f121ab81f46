// Package suite reads check suites from XML, JSON or YAML files.
package suite

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	json "github.com/goccy/go-json"
	"gopkg.in/yaml.v3"

	"mdqengine/internal/model"
)

type Format string

const (
	FormatXML  Format = "xml"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// Load reads a suite file. The format comes from the extension, falling
// back to the first non-blank byte.
func Load(path string) (*model.Suite, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read suite: %w", err)
	}
	s, err := Decode(bytes.NewReader(raw), FormatOf(path, raw))
	if err != nil {
		return nil, fmt.Errorf("suite %s: %w", path, err)
	}
	return s, nil
}

func FormatOf(path string, raw []byte) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xml":
		return FormatXML
	case ".json":
		return FormatJSON
	case ".yaml", ".yml":
		return FormatYAML
	}
	trimmed := bytes.TrimSpace(raw)
	switch {
	case bytes.HasPrefix(trimmed, []byte("<")):
		return FormatXML
	case bytes.HasPrefix(trimmed, []byte("{")):
		return FormatJSON
	default:
		return FormatYAML
	}
}

func Decode(r io.Reader, format Format) (*model.Suite, error) {
	var s model.Suite
	switch format {
	case FormatXML:
		if err := xml.NewDecoder(r).Decode(&s); err != nil {
			return nil, fmt.Errorf("decode xml: %w", err)
		}
	case FormatJSON:
		dec := json.NewDecoder(r)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&s); err != nil {
			return nil, fmt.Errorf("decode json: %w", err)
		}
	case FormatYAML:
		dec := yaml.NewDecoder(r)
		dec.KnownFields(true)
		if err := dec.Decode(&s); err != nil {
			if errors.Is(err, io.EOF) {
				return nil, errors.New("decode yaml: empty document")
			}
			return nil, fmt.Errorf("decode yaml: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported suite format %q", format)
	}
	trim(&s)
	return &s, nil
}

// Validate reports every structural problem in s. A suite with problems
// can still run; the affected checks produce ERROR results.
func Validate(s *model.Suite) error {
	var errs []error
	if strings.TrimSpace(s.ID) == "" {
		errs = append(errs, errors.New("suite id is required"))
	}
	if len(s.Checks) == 0 {
		errs = append(errs, errors.New("suite has no checks"))
	}
	seen := make(map[string]int, len(s.Checks))
	for i, c := range s.Checks {
		if c.ID == "" {
			errs = append(errs, fmt.Errorf("check %d has no id", i+1))
		} else if prev, dup := seen[c.ID]; dup {
			errs = append(errs, fmt.Errorf("check id %q used by checks %d and %d", c.ID, prev+1, i+1))
		} else {
			seen[c.ID] = i
		}
		if err := c.Validate(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// trim strips the whitespace XML indentation leaves around text fields.
func trim(s *model.Suite) {
	s.ID = strings.TrimSpace(s.ID)
	s.Name = strings.TrimSpace(s.Name)
	s.Description = strings.TrimSpace(s.Description)
	for i := range s.Checks {
		c := &s.Checks[i]
		c.ID = strings.TrimSpace(c.ID)
		c.Name = strings.TrimSpace(c.Name)
		c.Description = strings.TrimSpace(c.Description)
		c.Type = strings.TrimSpace(c.Type)
		c.Environment = strings.TrimSpace(c.Environment)
		for j := range c.Library {
			c.Library[j] = strings.TrimSpace(c.Library[j])
		}
		for j := range c.Selectors {
			trimSelector(&c.Selectors[j])
		}
		for j := range c.Dialects {
			c.Dialects[j].Name = strings.TrimSpace(c.Dialects[j].Name)
		}
	}
}

func trimSelector(sel *model.Selector) {
	sel.Name = strings.TrimSpace(sel.Name)
	if sel.SubSelector != nil {
		trimSelector(sel.SubSelector)
	}
}

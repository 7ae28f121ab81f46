package model

import (
	"encoding/xml"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

const (
	SyntaxXPath    = "xpath"
	SyntaxJSONPath = "jsonpath"
)

type Suite struct {
	XMLName     xml.Name `xml:"suite" json:"-" yaml:"-"`
	ID          string   `xml:"id" json:"id" yaml:"id"`
	Name        string   `xml:"name" json:"name" yaml:"name"`
	Description string   `xml:"description" json:"description,omitempty" yaml:"description,omitempty"`
	Checks      []Check  `xml:"check" json:"checks" yaml:"checks"`
}

type Check struct {
	ID          string `xml:"id" json:"id" yaml:"id"`
	Name        string `xml:"name" json:"name" yaml:"name"`
	Description string `xml:"description" json:"description,omitempty" yaml:"description,omitempty"`
	Type        string `xml:"type" json:"type,omitempty" yaml:"type,omitempty"`
	Level       Level  `xml:"level" json:"level,omitempty" yaml:"level,omitempty"`
	// Environment names the executor backend; matched case-insensitively.
	Environment string `xml:"environment" json:"environment" yaml:"environment"`
	// Code is opaque to the engine. For the native backend it is the name of a
	// registered Go check rather than source text.
	Code string `xml:"code" json:"code" yaml:"code"`
	// Library holds URLs whose contents are prepended to Code, in order.
	Library      []string   `xml:"library" json:"library,omitempty" yaml:"library,omitempty"`
	InheritState bool       `xml:"inheritState" json:"inheritState,omitempty" yaml:"inheritState,omitempty"`
	Selectors    []Selector `xml:"selector" json:"selector,omitempty" yaml:"selector,omitempty"`
	Dialects     []Dialect  `xml:"dialect" json:"dialect,omitempty" yaml:"dialect,omitempty"`
}

// Expression is a path in a given syntax. Match is only meaningful for
// dialects whose syntax cannot yield a boolean on its own.
type Expression struct {
	Syntax string `xml:"syntax,attr,omitempty" json:"syntax,omitempty" yaml:"syntax,omitempty"`
	Value  string `xml:",chardata" json:"value" yaml:"value"`
	Match  string `xml:"match,attr,omitempty" json:"match,omitempty" yaml:"match,omitempty"`
}

// SyntaxOrDefault returns the lower-cased syntax, defaulting to xpath.
func (e Expression) SyntaxOrDefault() string {
	s := strings.ToLower(strings.TrimSpace(e.Syntax))
	if s == "" {
		return SyntaxXPath
	}
	return s
}

type Namespace struct {
	Prefix string `xml:"prefix,attr" json:"prefix" yaml:"prefix"`
	URI    string `xml:",chardata" json:"uri" yaml:"uri"`
}

type Selector struct {
	Name        string      `xml:"name" json:"name" yaml:"name"`
	XPath       string      `xml:"xpath,omitempty" json:"xpath,omitempty" yaml:"xpath,omitempty"`
	Expression  *Expression `xml:"expression,omitempty" json:"expression,omitempty" yaml:"expression,omitempty"`
	Namespaces  []Namespace `xml:"namespace" json:"namespace,omitempty" yaml:"namespace,omitempty"`
	SubSelector *Selector   `xml:"subSelector,omitempty" json:"subSelector,omitempty" yaml:"subSelector,omitempty"`
}

// Path returns the selector's expression; a bare xpath takes precedence.
func (s Selector) Path() Expression {
	return pathOf(s.XPath, s.Expression)
}

// NamespaceMap returns prefix -> URI, or nil when none are declared.
func (s Selector) NamespaceMap() map[string]string {
	if len(s.Namespaces) == 0 {
		return nil
	}
	m := make(map[string]string, len(s.Namespaces))
	for _, ns := range s.Namespaces {
		m[strings.TrimSpace(ns.Prefix)] = strings.TrimSpace(ns.URI)
	}
	return m
}

type Dialect struct {
	Name       string      `xml:"name" json:"name" yaml:"name"`
	XPath      string      `xml:"xpath,omitempty" json:"xpath,omitempty" yaml:"xpath,omitempty"`
	Expression *Expression `xml:"expression,omitempty" json:"expression,omitempty" yaml:"expression,omitempty"`
}

func (d Dialect) Path() Expression {
	return pathOf(d.XPath, d.Expression)
}

func pathOf(xpath string, expr *Expression) Expression {
	if strings.TrimSpace(xpath) != "" {
		return Expression{Syntax: SyntaxXPath, Value: strings.TrimSpace(xpath)}
	}
	if expr == nil {
		return Expression{Syntax: SyntaxXPath}
	}
	e := *expr
	e.Value = strings.TrimSpace(e.Value)
	e.Syntax = e.SyntaxOrDefault()
	return e
}

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Validate checks the structural invariants a check must satisfy before it
// can be dispatched.
func (c Check) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Environment) == "" {
		errs = append(errs, errors.New("environment is required"))
	}
	seen := make(map[string]struct{}, len(c.Selectors))
	for _, s := range c.Selectors {
		if !identifierPattern.MatchString(s.Name) {
			errs = append(errs, fmt.Errorf("selector name %q is not a valid identifier", s.Name))
		}
		if _, dup := seen[s.Name]; dup {
			errs = append(errs, fmt.Errorf("duplicate selector name %q", s.Name))
		}
		seen[s.Name] = struct{}{}
		if s.Path().Value == "" {
			errs = append(errs, fmt.Errorf("selector %q has no path", s.Name))
		}
	}
	for _, d := range c.Dialects {
		if d.Path().Value == "" {
			errs = append(errs, fmt.Errorf("dialect %q has no path", d.Name))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("check %s: %w", c.ID, errors.Join(errs...))
	}
	return nil
}

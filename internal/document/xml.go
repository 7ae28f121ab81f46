package document

import (
	"fmt"
	"math"

	"github.com/antchfx/xmlquery"
	"github.com/antchfx/xpath"

	"mdqengine/internal/model"
)

type xmlContext struct {
	raw     []byte
	node    *xmlquery.Node
	sysmeta *SystemMetadata
}

func newXMLContext(raw []byte, doc *xmlquery.Node, sm *SystemMetadata) *xmlContext {
	return &xmlContext{raw: raw, node: doc, sysmeta: sm}
}

func (c *xmlContext) Format() Format { return FormatXML }

func (c *xmlContext) SystemMetadata() *SystemMetadata { return c.sysmeta }

func (c *xmlContext) Text() string {
	if c.raw != nil {
		return string(c.raw)
	}
	return c.node.OutputXML(true)
}

func (c *xmlContext) Evaluate(expr model.Expression, namespaces map[string]string) (any, error) {
	res, err := c.eval(expr, namespaces)
	if err != nil {
		return nil, err
	}
	switch v := res.(type) {
	case *xpath.NodeIterator:
		var values []any
		for v.MoveNext() {
			values = append(values, v.Current().Value())
		}
		switch len(values) {
		case 0:
			return nil, nil
		case 1:
			return values[0], nil
		default:
			return values, nil
		}
	case float64:
		if math.IsNaN(v) {
			return nil, nil
		}
		return v, nil
	case string, bool:
		return v, nil
	default:
		return nil, fmt.Errorf("%w: unexpected xpath result %T", ErrInvalidPath, res)
	}
}

// Truth follows XPath boolean() conversion rules.
func (c *xmlContext) Truth(expr model.Expression, namespaces map[string]string) (bool, error) {
	res, err := c.eval(expr, namespaces)
	if err != nil {
		return false, err
	}
	switch v := res.(type) {
	case bool:
		return v, nil
	case float64:
		return v != 0 && !math.IsNaN(v), nil
	case string:
		return v != "", nil
	case *xpath.NodeIterator:
		return v.MoveNext(), nil
	default:
		return false, nil
	}
}

func (c *xmlContext) Nodes(expr model.Expression, namespaces map[string]string) ([]Context, error) {
	res, err := c.eval(expr, namespaces)
	if err != nil {
		return nil, err
	}
	it, ok := res.(*xpath.NodeIterator)
	if !ok {
		return nil, nil
	}
	var out []Context
	for it.MoveNext() {
		nav, ok := it.Current().(*xmlquery.NodeNavigator)
		if !ok {
			continue
		}
		out = append(out, &xmlContext{node: nav.Current(), sysmeta: c.sysmeta})
	}
	return out, nil
}

func (c *xmlContext) eval(expr model.Expression, namespaces map[string]string) (res any, err error) {
	if err := checkSyntax(FormatXML, expr); err != nil {
		return nil, err
	}
	compiled, err := compileXPath(expr.Value, namespaces)
	if err != nil {
		return nil, err
	}
	// The xpath package panics on some runtime type errors (bad function
	// arguments); surface those as path errors instead.
	defer func() {
		if r := recover(); r != nil {
			res = nil
			err = fmt.Errorf("%w: %q: %v", ErrInvalidPath, expr.Value, r)
		}
	}()
	return compiled.Evaluate(xmlquery.CreateXPathNavigator(c.node)), nil
}

func compileXPath(path string, namespaces map[string]string) (*xpath.Expr, error) {
	var (
		compiled *xpath.Expr
		err      error
	)
	if len(namespaces) > 0 {
		compiled, err = xpath.CompileWithNS(path, namespaces)
	} else {
		compiled, err = xpath.Compile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrInvalidPath, path, err)
	}
	return compiled, nil
}

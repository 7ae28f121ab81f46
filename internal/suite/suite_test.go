package suite

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"mdqengine/internal/model"
)

const xmlSuite = `<?xml version="1.0" encoding="UTF-8"?>
<suite>
  <id>knb.suite.1</id>
  <name>KNB Suite</name>
  <check>
    <id>title.present</id>
    <name>Title present</name>
    <type>discovery</type>
    <level>REQUIRED</level>
    <environment>JavaScript</environment>
    <code><![CDATA[title != null ? "ok" : "missing & more"]]></code>
    <library>https://example.org/lib.js</library>
    <selector>
      <name>title</name>
      <xpath>/eml/dataset/title</xpath>
    </selector>
    <selector>
      <name>creators</name>
      <xpath>//creator</xpath>
      <subSelector>
        <name>surName</name>
        <xpath>./individualName/surName</xpath>
      </subSelector>
    </selector>
    <dialect>
      <name>Ecological Metadata Language</name>
      <xpath>boolean(/*[local-name() = 'eml'])</xpath>
    </dialect>
  </check>
  <check>
    <id>inherits</id>
    <environment>lua</environment>
    <inheritState>true</inheritState>
    <code>return 1</code>
    <selector>
      <name>id</name>
      <expression syntax="jsonpath">$.id</expression>
    </selector>
    <dialect>
      <name>JSON-LD</name>
      <expression syntax="jsonpath" match="https?://schema.org/?">$['@context']</expression>
    </dialect>
  </check>
</suite>`

const jsonSuite = `{
  "id": "json.suite",
  "name": "JSON suite",
  "checks": [
    {"id": "a", "environment": "javascript", "code": "1", "level": "OPTIONAL",
     "selector": [{"name": "x", "expression": {"syntax": "jsonpath", "value": "$.x"}}]}
  ]
}`

const yamlSuite = `id: yaml.suite
name: YAML suite
checks:
  - id: a
    environment: lua
    level: INFO
    inheritState: true
    code: |
      return 1
    selector:
      - name: x
        xpath: /root/x
`

func write(t *testing.T, name, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(p, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestLoad_XML(t *testing.T) {
	s, err := Load(write(t, "suite.xml", xmlSuite))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if s.ID != "knb.suite.1" || len(s.Checks) != 2 {
		t.Fatalf("unexpected suite %+v", s)
	}
	c := s.Checks[0]
	if c.Environment != "JavaScript" || c.Level != model.LevelRequired || c.Code != `title != null ? "ok" : "missing & more"` {
		t.Fatalf("unexpected check %+v", c)
	}
	if len(c.Library) != 1 || c.Library[0] != "https://example.org/lib.js" {
		t.Fatalf("library %v", c.Library)
	}
	if len(c.Selectors) != 2 || c.Selectors[1].SubSelector == nil || c.Selectors[1].SubSelector.Name != "surName" {
		t.Fatalf("selectors %+v", c.Selectors)
	}
	if c.Dialects[0].Path().Value != "boolean(/*[local-name() = 'eml'])" {
		t.Fatalf("dialect path %q", c.Dialects[0].Path().Value)
	}

	c2 := s.Checks[1]
	if !c2.InheritState {
		t.Fatal("inheritState not decoded")
	}
	if p := c2.Selectors[0].Path(); p.Syntax != model.SyntaxJSONPath || p.Value != "$.id" {
		t.Fatalf("jsonpath selector %+v", p)
	}
	if d := c2.Dialects[0].Path(); d.Match != "https?://schema.org/?" {
		t.Fatalf("dialect match %+v", d)
	}
	if err := Validate(s); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestLoad_JSONAndYAML(t *testing.T) {
	js, err := Load(write(t, "suite.json", jsonSuite))
	if err != nil {
		t.Fatalf("json: %v", err)
	}
	if js.Checks[0].Level != model.LevelOptional || js.Checks[0].Selectors[0].Path().Value != "$.x" {
		t.Fatalf("json suite %+v", js.Checks[0])
	}

	ys, err := Load(write(t, "suite.yaml", yamlSuite))
	if err != nil {
		t.Fatalf("yaml: %v", err)
	}
	c := ys.Checks[0]
	if !c.InheritState || c.Level != model.LevelInfo || c.Code != "return 1\n" || c.Selectors[0].XPath != "/root/x" {
		t.Fatalf("yaml suite %+v", c)
	}
}

func TestLoad_SniffsWithoutExtension(t *testing.T) {
	for name, body := range map[string]string{"x": xmlSuite, "j": jsonSuite, "y": yamlSuite} {
		if _, err := Load(write(t, name+".suite", body)); err != nil {
			t.Fatalf("%s: %v", name, err)
		}
	}
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name, file, body string
	}{
		{"bad xml", "s.xml", "<suite><id>x</id>"},
		{"unknown json field", "s.json", `{"id": "x", "checkz": []}`},
		{"bad level", "s.yaml", "id: x\nchecks:\n  - id: a\n    level: CRITICAL\n"},
		{"empty yaml", "s.yaml", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Load(write(t, tt.file, tt.body)); err == nil {
				t.Fatal("want error")
			}
		})
	}
	if _, err := Load(filepath.Join(t.TempDir(), "missing.xml")); err == nil {
		t.Fatal("want error for missing file")
	}
}

func TestValidate(t *testing.T) {
	s := &model.Suite{Checks: []model.Check{
		{ID: "a", Environment: "lua"},
		{ID: "a", Environment: "lua"},
		{ID: "", Environment: ""},
	}}
	err := Validate(s)
	if err == nil {
		t.Fatal("want problems")
	}
	for _, want := range []string{"suite id is required", `check id "a" used by checks 1 and 2`, "check 3 has no id", "environment is required"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("missing %q in %v", want, err)
		}
	}
}

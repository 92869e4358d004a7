// Package suite loads and runs YAML test suites for boolean expressions.
//
// A suite file looks like:
//
//	name: access
//	env: {admin: true, banned: false}
//	expressions:
//	  can-edit: admin AND NOT banned
//	cases:
//	  - name: editor
//	    expression: can-edit
//	    expect: true
//	  - name: typo
//	    source: admn
//	    error: UnknownVariableError
//	  - name: folding
//	    source: TRUE AND admin
//	    optimized: admin
//
// Mapping order is significant for env (it decides suggestion order), so the
// file is walked as a yaml.Node tree rather than decoded into Go maps.
package suite

import (
	"fmt"
	"io"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/lemonberrylabs/boolexpr/pkg/expr"
)

// MaxSourceSize is the maximum size of a suite file in bytes.
const MaxSourceSize = 1 << 20

// Suite is a parsed suite file.
type Suite struct {
	Name        string
	Env         *expr.Env
	Expressions []Expression
	Cases       []Case
}

// Expression is a named expression declared by a suite.
type Expression struct {
	Name   string
	Source string
}

// Case is a single check. Exactly one of Source and Expression is set. At
// least one of Expect, Error and Optimized is set; Expect and Error exclude
// each other.
type Case struct {
	Name       string
	Source     string
	Expression string
	Env        *expr.Env // merged over the suite env
	Expect     *bool
	Error      string // expected error kind, e.g. "MissingOperandError"
	Optimized  string // expected optimizer output, compared structurally
}

// ParseError represents an error in a suite file.
type ParseError struct {
	Message  string
	Location string
}

func (e *ParseError) Error() string {
	if e.Location != "" {
		return fmt.Sprintf("suite error at %s: %s", e.Location, e.Message)
	}
	return fmt.Sprintf("suite error: %s", e.Message)
}

// LoadFile reads and parses a suite file. A suite without a name is named
// after the file.
func LoadFile(path string) (*Suite, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening suite: %w", err)
	}
	defer f.Close()

	s, err := Load(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if s.Name == "" {
		s.Name = path
	}
	return s, nil
}

// Load parses a suite from r.
func Load(r io.Reader) (*Suite, error) {
	source, err := io.ReadAll(io.LimitReader(r, MaxSourceSize+1))
	if err != nil {
		return nil, fmt.Errorf("reading suite: %w", err)
	}
	if len(source) > MaxSourceSize {
		return nil, &ParseError{Message: fmt.Sprintf("suite exceeds maximum %d bytes", MaxSourceSize)}
	}

	var raw yaml.Node
	if err := yaml.Unmarshal(source, &raw); err != nil {
		return nil, &ParseError{Message: fmt.Sprintf("invalid YAML: %v", err)}
	}
	if raw.Kind != yaml.DocumentNode || len(raw.Content) == 0 {
		return nil, &ParseError{Message: "empty suite"}
	}
	root := raw.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, &ParseError{Message: "suite must be a mapping"}
	}

	s := &Suite{Env: expr.NewEnv()}
	for i := 0; i+1 < len(root.Content); i += 2 {
		key := root.Content[i].Value
		val := root.Content[i+1]

		switch key {
		case "name":
			s.Name = val.Value
		case "env":
			env, err := parseEnv(val, "env")
			if err != nil {
				return nil, err
			}
			s.Env = env
		case "expressions":
			exprs, err := parseExpressions(val)
			if err != nil {
				return nil, err
			}
			s.Expressions = exprs
		case "cases":
			cases, err := parseCases(val)
			if err != nil {
				return nil, err
			}
			s.Cases = cases
		default:
			return nil, &ParseError{Message: fmt.Sprintf("unknown key '%s'", key), Location: fmt.Sprintf("line %d", root.Content[i].Line)}
		}
	}

	if err := s.validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Lookup returns the source of a declared expression.
func (s *Suite) Lookup(name string) (string, bool) {
	for _, e := range s.Expressions {
		if e.Name == name {
			return e.Source, true
		}
	}
	return "", false
}

func (s *Suite) validate() error {
	seen := make(map[string]bool)
	for _, c := range s.Cases {
		loc := fmt.Sprintf("case '%s'", c.Name)
		if seen[c.Name] {
			return &ParseError{Message: "duplicate case name", Location: loc}
		}
		seen[c.Name] = true

		if c.Expression != "" {
			if _, ok := s.Lookup(c.Expression); !ok {
				return &ParseError{Message: fmt.Sprintf("unknown expression '%s'", c.Expression), Location: loc}
			}
		}
	}
	return nil
}

func parseEnv(node *yaml.Node, loc string) (*expr.Env, error) {
	if node.Kind != yaml.MappingNode {
		return nil, &ParseError{Message: "env must be a mapping of names to booleans", Location: loc}
	}
	env := expr.NewEnv()
	for i := 0; i+1 < len(node.Content); i += 2 {
		name := node.Content[i].Value
		var v bool
		if err := node.Content[i+1].Decode(&v); err != nil {
			return nil, &ParseError{
				Message:  fmt.Sprintf("value of '%s' must be a boolean", name),
				Location: fmt.Sprintf("%s, line %d", loc, node.Content[i+1].Line),
			}
		}
		env.Set(name, v)
	}
	return env, nil
}

func parseExpressions(node *yaml.Node) ([]Expression, error) {
	if node.Kind != yaml.MappingNode {
		return nil, &ParseError{Message: "expressions must be a mapping of names to sources", Location: "expressions"}
	}
	var out []Expression
	for i := 0; i+1 < len(node.Content); i += 2 {
		name := node.Content[i].Value
		val := node.Content[i+1]
		if val.Kind != yaml.ScalarNode {
			return nil, &ParseError{Message: "expression source must be a string", Location: fmt.Sprintf("expression '%s'", name)}
		}
		out = append(out, Expression{Name: name, Source: val.Value})
	}
	return out, nil
}

func parseCases(node *yaml.Node) ([]Case, error) {
	if node.Kind != yaml.SequenceNode {
		return nil, &ParseError{Message: "cases must be a list", Location: "cases"}
	}
	cases := make([]Case, 0, len(node.Content))
	for i, item := range node.Content {
		c, err := parseCase(item, i)
		if err != nil {
			return nil, err
		}
		cases = append(cases, c)
	}
	return cases, nil
}

func parseCase(node *yaml.Node, index int) (Case, error) {
	var c Case
	loc := fmt.Sprintf("cases[%d] (line %d)", index, node.Line)
	if node.Kind != yaml.MappingNode {
		return c, &ParseError{Message: "case must be a mapping", Location: loc}
	}

	for i := 0; i+1 < len(node.Content); i += 2 {
		key := node.Content[i].Value
		val := node.Content[i+1]

		switch key {
		case "name":
			c.Name = val.Value
		case "source":
			c.Source = val.Value
		case "expression":
			c.Expression = val.Value
		case "env":
			env, err := parseEnv(val, loc)
			if err != nil {
				return c, err
			}
			c.Env = env
		case "expect":
			var v bool
			if err := val.Decode(&v); err != nil {
				return c, &ParseError{Message: "expect must be a boolean", Location: loc}
			}
			c.Expect = &v
		case "error":
			c.Error = val.Value
		case "optimized":
			c.Optimized = val.Value
		default:
			return c, &ParseError{Message: fmt.Sprintf("unknown key '%s'", key), Location: loc}
		}
	}

	if c.Name == "" {
		c.Name = strconv.Itoa(index + 1)
	}
	switch {
	case c.Source == "" && c.Expression == "":
		return c, &ParseError{Message: "one of source or expression is required", Location: loc}
	case c.Source != "" && c.Expression != "":
		return c, &ParseError{Message: "source and expression are mutually exclusive", Location: loc}
	case c.Expect != nil && c.Error != "":
		return c, &ParseError{Message: "expect and error are mutually exclusive", Location: loc}
	case c.Expect == nil && c.Error == "" && c.Optimized == "":
		return c, &ParseError{Message: "one of expect, error or optimized is required", Location: loc}
	}
	return c, nil
}

package expr

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Scope provides variable lookup for evaluation. Names returns every known
// variable in a stable order; it is used for "did you mean" suggestions.
type Scope interface {
	Lookup(name string) (value bool, ok bool)
	Names() []string
}

// Env is an insertion-ordered variable environment. The zero value is empty
// and ready to use.
type Env struct {
	keys   []string
	values map[string]bool
}

// NewEnv creates an empty environment.
func NewEnv() *Env {
	return &Env{values: make(map[string]bool)}
}

// Set assigns a variable. Re-assigning keeps the original position.
func (e *Env) Set(name string, v bool) {
	if e.values == nil {
		e.values = make(map[string]bool)
	}
	if _, ok := e.values[name]; !ok {
		e.keys = append(e.keys, name)
	}
	e.values[name] = v
}

// Lookup implements Scope.
func (e *Env) Lookup(name string) (bool, bool) {
	if e == nil {
		return false, false
	}
	v, ok := e.values[name]
	return v, ok
}

// Names implements Scope, in insertion order.
func (e *Env) Names() []string {
	if e == nil {
		return nil
	}
	out := make([]string, len(e.keys))
	copy(out, e.keys)
	return out
}

// Len returns the number of variables.
func (e *Env) Len() int {
	if e == nil {
		return 0
	}
	return len(e.keys)
}

// Merge returns a new environment holding e's variables overridden and
// extended by other's.
func (e *Env) Merge(other *Env) *Env {
	out := NewEnv()
	for _, k := range e.Names() {
		v, _ := e.Lookup(k)
		out.Set(k, v)
	}
	for _, k := range other.Names() {
		v, _ := other.Lookup(k)
		out.Set(k, v)
	}
	return out
}

// String renders the environment as {A: true, B: false}.
func (e *Env) String() string {
	parts := make([]string, 0, e.Len())
	for _, k := range e.Names() {
		v, _ := e.Lookup(k)
		parts = append(parts, fmt.Sprintf("%s: %t", k, v))
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// MarshalJSON encodes the environment as a JSON object in insertion order.
func (e *Env) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range e.Names() {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		v, _ := e.Lookup(k)
		fmt.Fprintf(&buf, "%s:%t", key, v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a JSON object of booleans, keeping key order.
func (e *Env) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		*e = Env{}
		return nil
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("environment must be a JSON object")
	}

	out := NewEnv()
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		name := tok.(string)
		var v *bool
		if err := dec.Decode(&v); err != nil || v == nil {
			return fmt.Errorf("variable %q: value must be a boolean", name)
		}
		out.Set(name, *v)
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*e = *out
	return nil
}

// MapScope adapts a plain map. Names are reported in sorted order, since map
// iteration order carries no meaning.
type MapScope map[string]bool

// Lookup implements Scope.
func (m MapScope) Lookup(name string) (bool, bool) {
	v, ok := m[name]
	return v, ok
}

// Names implements Scope.
func (m MapScope) Names() []string {
	names := make([]string, 0, len(m))
	for k := range m {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// ParseAssignments builds an environment from NAME=VALUE arguments. Each
// argument may hold several comma-separated pairs ("A=true,B=false").
// Accepted values, case-insensitively: true/1/yes/on and false/0/no/off.
func ParseAssignments(args []string) (*Env, error) {
	env := NewEnv()
	for _, arg := range args {
		for _, pair := range strings.Split(arg, ",") {
			pair = strings.TrimSpace(pair)
			if pair == "" {
				continue
			}
			name, raw, ok := strings.Cut(pair, "=")
			name = strings.TrimSpace(name)
			if !ok || name == "" {
				return nil, fmt.Errorf("invalid assignment %q: expected NAME=VALUE", pair)
			}
			v, err := parseBool(raw)
			if err != nil {
				return nil, fmt.Errorf("invalid assignment %q: %w", pair, err)
			}
			env.Set(name, v)
		}
	}
	return env, nil
}

func parseBool(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "1", "yes", "on":
		return true, nil
	case "false", "0", "no", "off":
		return false, nil
	default:
		return false, fmt.Errorf("value %q is not a boolean (use true/false)", s)
	}
}

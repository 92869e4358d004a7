package expr

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrettyPrint(t *testing.T) {
	tests := []struct {
		name  string
		input string
		opts  PrintOptions
		want  string
	}{
		{"and binds tighter", "A OR B AND C", PrintOptions{}, "A OR B AND C"},
		{"or inside and", "(A OR B) AND C", PrintOptions{}, "(A OR B) AND C"},
		{"left fold", "A AND B AND C", PrintOptions{}, "A AND B AND C"},
		{"right nested", "A AND (B AND C)", PrintOptions{}, "A AND (B AND C)"},
		{"redundant parens dropped", "((A)) OR (B AND C)", PrintOptions{}, "A OR B AND C"},
		{"not leaf", "NOT A AND B", PrintOptions{}, "NOT A AND B"},
		{"not binary", "NOT (A OR B)", PrintOptions{}, "NOT (A OR B)"},
		{"not stack", "NOT NOT A", PrintOptions{}, "NOT NOT A"},
		{"literals", "true and false", PrintOptions{}, "TRUE AND FALSE"},
		{"lower", "A OR NOT TRUE", PrintOptions{Case: CaseLower}, "A or not true"},
		{"mixed", "NOT FALSE AND x", PrintOptions{Case: CaseMixed}, "Not False And x"},
		{"always", "A OR B AND C", PrintOptions{Parens: ParensAlways}, "(A OR (B AND C))"},
		{"always not", "NOT NOT A", PrintOptions{Parens: ParensAlways}, "NOT (NOT A)"},
		{"always not binary", "NOT (A AND B)", PrintOptions{Parens: ParensAlways}, "NOT (A AND B)"},
		{"always leaf", "A", PrintOptions{Parens: ParensAlways}, "A"},
		{"never", "(A OR B) AND NOT (C OR D)", PrintOptions{Parens: ParensNever}, "A OR B AND NOT C OR D"},
		{"indent", "(A OR B) AND C", PrintOptions{Indent: 2}, "(\n  A\n  OR B\n)\nAND C"},
		{"indent right group", "A AND NOT (B OR C)", PrintOptions{Indent: 4}, "A\nAND NOT (\n    B\n    OR C\n)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, PrettyPrint(mustParse(t, tt.input), tt.opts))
		})
	}
}

func TestPrettyPrintRoundTrip(t *testing.T) {
	var options []PrintOptions
	for _, c := range []CaseStyle{CaseUpper, CaseLower, CaseMixed} {
		for _, p := range []ParenMode{ParensMinimal, ParensAlways} {
			for _, indent := range []int{0, 2} {
				options = append(options, PrintOptions{Case: c, Parens: p, Indent: indent})
			}
		}
	}

	trees := randomTrees(4, 200, 6, true)
	for _, opts := range options {
		t.Run(fmt.Sprintf("%s/%s/%d", opts.Case, opts.Parens, opts.Indent), func(t *testing.T) {
			for i, tree := range trees {
				text := PrettyPrint(tree, opts)
				got, err := Parse(text)
				require.NoError(t, err, "tree %d: parse %q", i, text)
				require.True(t, Equal(got, tree), "tree %d: %q re-parsed to\n%s\nwant\n%s", i, text, Dump(got), Dump(tree))
			}
		})
	}
}

func TestParseOptionNames(t *testing.T) {
	c, err := ParseCaseStyle("Lower")
	require.NoError(t, err)
	assert.Equal(t, CaseLower, c)

	_, err = ParseCaseStyle("shouting")
	assert.Error(t, err)

	p, err := ParseParenMode("always")
	require.NoError(t, err)
	assert.Equal(t, ParensAlways, p)

	_, err = ParseParenMode("some")
	assert.Error(t, err)
}

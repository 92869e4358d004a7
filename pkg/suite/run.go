package suite

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/lemonberrylabs/boolexpr/pkg/expr"
)

// Result is the outcome of one case.
type Result struct {
	Case    string `json:"case"`
	Passed  bool   `json:"passed"`
	Message string `json:"message,omitempty"`
}

// Report summarizes a suite run.
type Report struct {
	Suite   string   `json:"suite"`
	Results []Result `json:"results"`
	Passed  int      `json:"passed"`
	Failed  int      `json:"failed"`
}

// OK reports whether every case passed.
func (r *Report) OK() bool { return r.Failed == 0 }

// String renders one line per case followed by a summary.
func (r *Report) String() string {
	var sb strings.Builder
	for _, res := range r.Results {
		status := "PASS"
		if !res.Passed {
			status = "FAIL"
		}
		fmt.Fprintf(&sb, "%s  %s/%s", status, r.Suite, res.Case)
		if res.Message != "" {
			fmt.Fprintf(&sb, ": %s", res.Message)
		}
		sb.WriteByte('\n')
	}
	fmt.Fprintf(&sb, "%s: %d passed, %d failed", r.Suite, r.Passed, r.Failed)
	return sb.String()
}

// Run executes every case of s.
func Run(s *Suite) *Report {
	report := &Report{Suite: s.Name}
	for _, c := range s.Cases {
		res := runCase(s, c)
		if res.Passed {
			report.Passed++
		} else {
			report.Failed++
		}
		slog.Debug("suite case", "suite", s.Name, "case", c.Name, "passed", res.Passed)
		report.Results = append(report.Results, res)
	}
	return report
}

func runCase(s *Suite, c Case) Result {
	res := Result{Case: c.Name}

	source := c.Source
	if c.Expression != "" {
		source, _ = s.Lookup(c.Expression)
	}

	node, err := expr.Parse(source)
	if err != nil {
		return checkError(res, c, err)
	}

	if c.Optimized != "" {
		want, err := expr.Parse(c.Optimized)
		if err != nil {
			res.Message = fmt.Sprintf("invalid optimized text: %v", err)
			return res
		}
		got := expr.Optimize(node)
		if !expr.Equal(got, want) {
			res.Message = fmt.Sprintf("optimized to %q, want %q", expr.PrettyPrint(got, expr.PrintOptions{}), c.Optimized)
			return res
		}
	}

	if c.Expect == nil && c.Error == "" {
		res.Passed = true
		return res
	}

	env := s.Env
	if c.Env != nil {
		env = s.Env.Merge(c.Env)
	}
	got, err := expr.Evaluate(node, env)
	if err != nil {
		return checkError(res, c, err)
	}
	if c.Error != "" {
		res.Message = fmt.Sprintf("got %t, want %s", got, c.Error)
		return res
	}
	if got != *c.Expect {
		res.Message = fmt.Sprintf("got %t, want %t", got, *c.Expect)
		return res
	}
	res.Passed = true
	return res
}

func checkError(res Result, c Case, err error) Result {
	kind := expr.KindOf(err)
	switch {
	case c.Error == "":
		res.Message = fmt.Sprintf("unexpected %s: %v", kind, err)
	case kind != c.Error:
		res.Message = fmt.Sprintf("got %s (%v), want %s", kind, err, c.Error)
	default:
		res.Passed = true
	}
	return res
}

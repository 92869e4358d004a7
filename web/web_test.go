package web

import (
	"io"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lemonberrylabs/boolexpr/pkg/expr"
	"github.com/lemonberrylabs/boolexpr/pkg/store"
)

func setupTestApp(t *testing.T) (*fiber.App, *store.Store) {
	t.Helper()
	s := store.New()
	h := New(s, expr.PrintOptions{})
	app := fiber.New()
	h.Register(app)
	return app, s
}

func get(t *testing.T, app *fiber.App, path string) (int, string) {
	t.Helper()
	req := httptest.NewRequest("GET", path, nil)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, string(body)
}

func TestDashboardEmpty(t *testing.T) {
	app, _ := setupTestApp(t)

	status, html := get(t, app, "/ui")
	require.Equal(t, 200, status, html)
	assert.Contains(t, html, "Dashboard")
	assert.Contains(t, html, "boolexpr")
	assert.Contains(t, html, "No expressions stored")
}

func TestDashboardWithData(t *testing.T) {
	app, s := setupTestApp(t)

	e, err := s.Create("can-edit", "is_admin or (is_owner and not locked)", "Edit permission")
	require.NoError(t, err)
	s.RecordEvaluation(e, expr.NewEnv(), false, &expr.UnknownVariableError{Name: "is_admin"})

	status, html := get(t, app, "/ui")
	require.Equal(t, 200, status)
	assert.Contains(t, html, "can-edit")
	assert.Contains(t, html, "is_admin OR is_owner AND NOT locked")
	assert.Contains(t, html, `class="result-error"`, "failed last evaluation is marked")
}

func TestExpressionDetail(t *testing.T) {
	app, s := setupTestApp(t)

	e, err := s.Create("guard", "A AND NOT FALSE", "")
	require.NoError(t, err)
	env := expr.NewEnv()
	env.Set("A", true)
	s.RecordEvaluation(e, env, true, nil)

	status, html := get(t, app, "/ui/expressions/guard")
	require.Equal(t, 200, status, html)

	for _, want := range []string{
		"guard",
		"BinOp AND",
		"digraph guard",
		"{A: true}",
		`class="result-true"`,
		"<pre>A</pre>",
	} {
		assert.Contains(t, html, want)
	}
}

func TestExpressionDetailNotFound(t *testing.T) {
	app, _ := setupTestApp(t)

	status, html := get(t, app, "/ui/expressions/missing")
	require.Equal(t, 404, status)
	assert.Contains(t, html, "Expression &#39;missing&#39; not found")
}

func TestPlayground(t *testing.T) {
	app, _ := setupTestApp(t)

	tests := []struct {
		name   string
		query  url.Values
		want   []string
		reject []string
	}{
		{
			name:   "empty form",
			query:  url.Values{},
			want:   []string{"Playground", `name="source"`},
			reject: []string{"<h2>Result</h2>"},
		},
		{
			name:  "evaluates",
			query: url.Values{"source": {"A and (B or c)"}, "env": {"A=true,B=false,c=1"}},
			want:  []string{"<h2>Result</h2>", `class="result-true"`, "A AND (B OR c)", "IDENT"},
		},
		{
			name:  "lower case",
			query: url.Values{"source": {"NOT TRUE OR A"}, "env": {"A=no"}, "case": {"lower"}},
			want:  []string{"not true or A", `class="result-false"`},
		},
		{
			name:   "syntax error",
			query:  url.Values{"source": {"A AND"}},
			want:   []string{expr.KindMissingOperand, "^"},
			reject: []string{"<h2>Result</h2>", "<h2>Tree</h2>"},
		},
		{
			name:   "unknown variable keeps tree",
			query:  url.Values{"source": {"ALPHA OR B"}, "env": {"ALPHB=true,B=false"}},
			want:   []string{expr.KindUnknownVariable, "ALPHB", "<h2>Tree</h2>"},
			reject: []string{"<h2>Result</h2>"},
		},
		{
			name:  "bad environment",
			query: url.Values{"source": {"A"}, "env": {"A=maybe"}},
			want:  []string{"InvalidEnvironment", "invalid assignment"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, html := get(t, app, "/ui/playground?"+tt.query.Encode())
			require.Equal(t, 200, status, html)
			for _, want := range tt.want {
				assert.Contains(t, html, want)
			}
			for _, reject := range tt.reject {
				assert.NotContains(t, html, reject)
			}
		})
	}
}

func TestRootRedirect(t *testing.T) {
	app, _ := setupTestApp(t)

	req := httptest.NewRequest("GET", "/", nil)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, 302, resp.StatusCode)
	assert.Equal(t, "/ui", resp.Header.Get("Location"))
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in   string
		max  int
		want string
	}{
		{"abcdef", 3, "abc..."},
		{"abc", 3, "abc"},
		{"", 3, ""},
		{"héllo wörld", 4, "héll..."},
		{"日本語のテキスト", 3, "日本語..."},
		{"ééé", 3, "ééé"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got := truncate(tt.in, tt.max)
			assert.Equal(t, tt.want, got)
			assert.True(t, utf8.ValidString(got), "truncate split a character: %q", got)
		})
	}
}

func TestTemplateHelpers(t *testing.T) {
	assert.Equal(t, "-", timeAgo(time.Time{}))
	assert.Equal(t, 2, countLines("a\nb"))
	assert.Equal(t, 0, countLines(""))
}

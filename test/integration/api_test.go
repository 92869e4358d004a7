package integration

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLanguageEndpoints(t *testing.T) {
	status, body := postJSON(t, "evaluate", map[string]interface{}{
		"source": "A AND (B OR NOT C)",
		"env":    map[string]bool{"A": true, "B": false, "C": false},
	})
	require.Equal(t, http.StatusOK, status, "evaluate: %v", body)
	assert.Equal(t, true, body["result"])

	status, body = postJSON(t, "optimize", map[string]interface{}{"source": "NOT NOT x OR FALSE"})
	require.Equal(t, http.StatusOK, status, "optimize: %v", body)
	assert.Equal(t, "x", body["formatted"])

	status, body = postJSON(t, "format", map[string]interface{}{"source": "a or b and c", "case": "mixed", "parens": "always"})
	require.Equal(t, http.StatusOK, status, "format: %v", body)
	assert.Equal(t, "(a Or (b And c))", body["formatted"])
}

func TestLanguageErrors(t *testing.T) {
	tests := []struct {
		name   string
		path   string
		body   map[string]interface{}
		kind   string
		column float64
	}{
		{"lexical", "tokenize", map[string]interface{}{"source": "A $ B"}, "LexicalError", 3},
		{"missing operand", "parse", map[string]interface{}{"source": "A OR"}, "MissingOperandError", 3},
		{"missing paren", "parse", map[string]interface{}{"source": "(A OR B"}, "MissingParenthesisError", 1},
		{"unknown variable", "evaluate", map[string]interface{}{"source": "A AND MISSING", "env": map[string]bool{"A": true}}, "UnknownVariableError", 7},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := postJSON(t, tt.path, tt.body)
			require.Equal(t, http.StatusBadRequest, status, "%v", body)
			assert.Equal(t, tt.kind, errorField(body, "kind"))
			assert.Equal(t, tt.column, errorField(body, "column"))
		})
	}
}

func TestNullEnvValueRejected(t *testing.T) {
	status, body := postJSON(t, "evaluate", map[string]interface{}{
		"source": "A",
		"env":    map[string]interface{}{"A": nil},
	})
	require.Equal(t, http.StatusBadRequest, status, "%v", body)
	assert.Equal(t, "INVALID_ARGUMENT", errorField(body, "status"))
}

func TestDirectoryExpressionsLoaded(t *testing.T) {
	status, body := getJSON(t, "expressions/can-edit")
	require.Equal(t, http.StatusOK, status, "expected dir-loaded expression: %v", body)
	assert.Equal(t, "access", body["description"], "description should be the suite name")

	status, body = getJSON(t, "expressions/beta-banner")
	require.Equal(t, http.StatusOK, status, "expected expression from .yml file: %v", body)

	status, _ = getJSON(t, "expressions/dangling")
	assert.Equal(t, http.StatusNotFound, status, "invalid expression should not be deployed")
}

func TestExpressionLifecycle(t *testing.T) {
	name := createExpression(t, "lifecycle", "admin OR owner")

	status, body := postJSON(t, "expressions/"+name+"/evaluate", map[string]interface{}{
		"env": map[string]bool{"admin": false, "owner": true},
	})
	require.Equal(t, http.StatusOK, status, "evaluate: %v", body)
	require.Equal(t, true, body["result"])

	status, body = doJSON(t, http.MethodPatch, apiURL("expressions/"+name), map[string]interface{}{
		"source": "admin AND owner",
	})
	require.Equal(t, http.StatusOK, status, "update: %v", body)
	assert.Equal(t, float64(2), body["revision"])

	status, body = postJSON(t, "expressions/"+name+"/evaluate", map[string]interface{}{
		"env": map[string]bool{"admin": false, "owner": true},
	})
	require.Equal(t, http.StatusOK, status, "evaluate after update: %v", body)
	require.Equal(t, false, body["result"])

	status, body = getJSON(t, "expressions/"+name+"/evaluations")
	require.Equal(t, http.StatusOK, status, "evaluations: %v", body)
	evals, _ := body["evaluations"].([]interface{})
	require.Len(t, evals, 2)
	newest, _ := evals[0].(map[string]interface{})
	assert.Equal(t, float64(2), newest["revision"])

	status, _ = doJSON(t, http.MethodDelete, apiURL("expressions/"+name), nil)
	require.Equal(t, http.StatusOK, status, "delete")
	status, _ = getJSON(t, "expressions/"+name)
	assert.Equal(t, http.StatusNotFound, status, "expected 404 after delete")
}

func TestDuplicateExpression(t *testing.T) {
	name := createExpression(t, "dup", "A")

	status, body := postJSON(t, "expressions?name="+name, map[string]interface{}{"source": "B"})
	require.Equal(t, http.StatusConflict, status, "%v", body)
	assert.Equal(t, "ALREADY_EXISTS", errorField(body, "status"))
}

// Package store provides in-memory storage for named expressions and their
// evaluation history.
package store

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/lemonberrylabs/boolexpr/pkg/expr"
)

// MaxHistory is the number of evaluations kept per expression.
const MaxHistory = 50

const maxNameLength = 128

var namePattern = regexp.MustCompile(`^[a-z][a-z0-9_-]*$`)

var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
	ErrInvalidName   = errors.New("invalid name")
)

// Expression is a stored, parsed expression.
type Expression struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Source      string    `json:"source"`
	Revision    int       `json:"revision"`
	CreateTime  time.Time `json:"createTime"`
	UpdateTime  time.Time `json:"updateTime"`

	node expr.Node
}

// Node returns the parsed tree of the current revision.
func (e *Expression) Node() expr.Node { return e.node }

// Evaluation records one evaluation of a stored expression.
type Evaluation struct {
	ID         string    `json:"id"`
	Expression string    `json:"expression"`
	Revision   int       `json:"revision"`
	Env        *expr.Env `json:"env"`
	Result     bool      `json:"result"`
	Error      string    `json:"error,omitempty"`
	Kind       string    `json:"kind,omitempty"`
	Time       time.Time `json:"time"`
}

// Store is a thread-safe in-memory storage for expressions.
type Store struct {
	mu          sync.RWMutex
	expressions map[string]*Expression
	history     map[string][]*Evaluation
}

// New creates a new empty store.
func New() *Store {
	return &Store{
		expressions: make(map[string]*Expression),
		history:     make(map[string][]*Evaluation),
	}
}

// ValidateName checks an expression name.
func ValidateName(name string) error {
	if len(name) > maxNameLength {
		return fmt.Errorf("%w: '%s' is longer than %d characters", ErrInvalidName, name, maxNameLength)
	}
	if !namePattern.MatchString(name) {
		return fmt.Errorf("%w: '%s' must match %s", ErrInvalidName, name, namePattern)
	}
	return nil
}

// Create parses source and stores it under name.
func (s *Store) Create(name, source, description string) (*Expression, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}
	node, err := expr.Parse(source)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.expressions[name]; exists {
		return nil, fmt.Errorf("expression '%s' %w", name, ErrAlreadyExists)
	}

	now := time.Now()
	e := &Expression{
		ID:          uuid.NewString(),
		Name:        name,
		Description: description,
		Source:      source,
		Revision:    1,
		CreateTime:  now,
		UpdateTime:  now,
		node:        node,
	}
	s.expressions[name] = e
	return e.clone(), nil
}

// Get retrieves an expression by name.
func (s *Store) Get(name string) (*Expression, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.expressions[name]
	if !ok {
		return nil, fmt.Errorf("expression '%s' %w", name, ErrNotFound)
	}
	return e.clone(), nil
}

// List returns all expressions sorted by name.
func (s *Store) List() []*Expression {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*Expression, 0, len(s.expressions))
	for _, e := range s.expressions {
		result = append(result, e.clone())
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result
}

// Update replaces an expression's source and bumps its revision. An empty
// description keeps the current one.
func (s *Store) Update(name, source, description string) (*Expression, error) {
	node, err := expr.Parse(source)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.expressions[name]
	if !ok {
		return nil, fmt.Errorf("expression '%s' %w", name, ErrNotFound)
	}

	e.Source = source
	e.node = node
	if description != "" {
		e.Description = description
	}
	e.Revision++
	e.UpdateTime = time.Now()

	return e.clone(), nil
}

// Delete removes an expression and its history.
func (s *Store) Delete(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.expressions[name]; !ok {
		return fmt.Errorf("expression '%s' %w", name, ErrNotFound)
	}
	delete(s.expressions, name)
	delete(s.history, name)
	return nil
}

// RecordEvaluation appends an evaluation outcome to the expression's history.
// Only the most recent MaxHistory entries are kept.
func (s *Store) RecordEvaluation(e *Expression, env *expr.Env, result bool, evalErr error) *Evaluation {
	ev := &Evaluation{
		ID:         uuid.NewString(),
		Expression: e.Name,
		Revision:   e.Revision,
		Env:        env,
		Result:     result,
		Time:       time.Now(),
	}
	if evalErr != nil {
		ev.Result = false
		ev.Error = evalErr.Error()
		ev.Kind = expr.KindOf(evalErr)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.expressions[e.Name]; !ok {
		return ev
	}
	h := append(s.history[e.Name], ev)
	if len(h) > MaxHistory {
		h = h[len(h)-MaxHistory:]
	}
	s.history[e.Name] = h
	return ev
}

// ListEvaluations returns an expression's evaluations, newest first.
func (s *Store) ListEvaluations(name string) []*Evaluation {
	s.mu.RLock()
	defer s.mu.RUnlock()

	h := s.history[name]
	result := make([]*Evaluation, len(h))
	for i, ev := range h {
		result[len(h)-1-i] = ev
	}
	return result
}

func (e *Expression) clone() *Expression {
	c := *e
	return &c
}

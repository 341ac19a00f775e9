package domain

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResultMergeAndBlocking(t *testing.T) {
	var result Result
	result.Merge(Result{Violations: []Violation{{Rule: "warn", Severity: SeverityWarn}}})
	assert.False(t, result.HasBlocking())
	result.Merge(Result{})
	require.Len(t, result.Violations, 1)

	result.Merge(Result{Violations: []Violation{{Rule: "block", Severity: SeverityBlock}, {Rule: "log", Severity: SeverityLog}}})
	assert.True(t, result.HasBlocking())
	warnings := result.Warnings()
	require.Len(t, warnings, 1)
	assert.Equal(t, "warn", warnings[0].Rule)
	assert.NotEmpty(t, RuleViolationError{Result: result}.Error())
}

type staticRule struct{ name string }

func (r staticRule) Name() string { return r.name }

func (r staticRule) Evaluate(context.Context, RuleView, []Change) (Result, error) {
	return Result{Violations: []Violation{{Rule: r.name, Severity: SeverityWarn}}}, nil
}

type errorRule struct{}

func (errorRule) Name() string { return "error" }

func (errorRule) Evaluate(context.Context, RuleView, []Change) (Result, error) {
	return Result{}, errors.New("boom")
}

type emptyView struct{}

func (emptyView) ListUsers() []User                            { return nil }
func (emptyView) ListOrganizations() []Organization            { return nil }
func (emptyView) ListEvents() []Event                          { return nil }
func (emptyView) FindUser(string) (User, bool)                 { return User{}, false }
func (emptyView) FindOrganization(string) (Organization, bool) { return Organization{}, false }
func (emptyView) FindEvent(string) (Event, bool)               { return Event{}, false }

func TestRulesEngineEvaluate(t *testing.T) {
	engine := NewRulesEngine()
	engine.Register(staticRule{"first"})
	engine.Register(staticRule{"second"})
	require.Len(t, engine.Rules(), 2)

	res, err := engine.Evaluate(context.Background(), emptyView{}, nil)
	require.NoError(t, err)
	require.Len(t, res.Violations, 2)
	assert.Equal(t, "first", res.Violations[0].Rule)

	engine.Register(errorRule{})
	_, err = engine.Evaluate(context.Background(), emptyView{}, nil)
	assert.Error(t, err)
}

func TestErrorsCompare(t *testing.T) {
	err := Invalid("title %q", "")
	assert.ErrorIs(t, err, ErrValidation)
	assert.Contains(t, err.Error(), `title ""`)

	wrapped := errors.Join(errors.New("outer"), ErrNotFound{Entity: EntityEvent, ID: "e9"})
	assert.True(t, IsNotFound(wrapped))
	assert.False(t, IsNotFound(ErrNoSession))
	assert.Equal(t, "event e9 not found", ErrNotFound{Entity: EntityEvent, ID: "e9"}.Error())
}

package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/resinker/resinker/internal/record"
	"github.com/resinker/resinker/internal/spec"
)

func newUser(pk, status string, logins int64) *Instance {
	payload := record.NewObject()
	payload.Set("user_id", pk)
	payload.Set("email", pk+"@example.com")
	state := record.NewObject()
	state.Set("status", status)
	state.Set("login_count", logins)
	return &Instance{
		Kind:    "user",
		PK:      pk,
		Payload: payload,
		State:   state,
	}
}

func TestInsertAndGet(t *testing.T) {
	s := New()
	require.NoError(t, s.Insert(newUser("u1", "active", 0)))

	in, ok := s.Get("user", "u1")
	require.True(t, ok)
	assert.Equal(t, "u1", in.PK)

	_, ok = s.Get("user", "u2")
	assert.False(t, ok)
	_, ok = s.Get("order", "u1")
	assert.False(t, ok)
}

func TestInsert_DuplicatePK(t *testing.T) {
	s := New()
	require.NoError(t, s.Insert(newUser("u1", "active", 0)))
	err := s.Insert(newUser("u1", "active", 0))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "u1")
}

func TestUpdate_StampsLastUpdated(t *testing.T) {
	s := New()
	require.NoError(t, s.Insert(newUser("u1", "active", 0)))

	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	err := s.Update("user", "u1", now, func(in *Instance) {
		in.State.Set("status", "suspended")
	})
	require.NoError(t, err)

	in, _ := s.Get("user", "u1")
	v, _ := in.StateValue("status")
	assert.Equal(t, "suspended", v)
	assert.Equal(t, now, in.LastUpdatedAt)

	assert.Error(t, s.Update("user", "missing", now, func(*Instance) {}))
}

func TestSelect_FilterAndOrder(t *testing.T) {
	s := New()
	require.NoError(t, s.Insert(newUser("u1", "active", 3)))
	require.NoError(t, s.Insert(newUser("u2", "suspended", 9)))
	require.NoError(t, s.Insert(newUser("u3", "active", 7)))

	got := s.Select("user", []spec.FilterClause{
		{Field: "state.status", Operator: "equals", Value: "active"},
	})
	require.Len(t, got, 2)
	assert.Equal(t, "u1", got[0].PK)
	assert.Equal(t, "u3", got[1].PK)

	got = s.Select("user", []spec.FilterClause{
		{Field: "state.status", Operator: "equals", Value: "active"},
		{Field: "state.login_count", Operator: "greater_than", Value: 5},
	})
	require.Len(t, got, 1)
	assert.Equal(t, "u3", got[0].PK)

	assert.Empty(t, s.Select("order", nil))
}

func TestSelect_PayloadPathAndInOperator(t *testing.T) {
	s := New()
	in := newUser("u1", "active", 0)
	addr := record.NewObject()
	addr.Set("country", "DE")
	in.Payload.Set("address", addr)
	require.NoError(t, s.Insert(in))

	got := s.Select("user", []spec.FilterClause{
		{Field: "address.country", Operator: "in", Value: []any{"DE", "FR"}},
	})
	assert.Len(t, got, 1)

	got = s.Select("user", []spec.FilterClause{
		{Field: "address.country", Operator: "not_in", Value: []any{"US"}},
	})
	assert.Len(t, got, 1)

	// Absent field fails the clause.
	got = s.Select("user", []spec.FilterClause{
		{Field: "address.zip", Operator: "equals", Value: "10115"},
	})
	assert.Empty(t, got)
}

func TestMatches_PayloadPrefixedFieldForm(t *testing.T) {
	in := newUser("u1", "active", 0)
	addr := record.NewObject()
	addr.Set("country", "DE")
	in.Payload.Set("address", addr)

	// "payload.<path>" and the bare path resolve the same field.
	assert.True(t, Matches(in, []spec.FilterClause{
		{Field: "payload.user_id", Operator: "equals", Value: "u1"},
	}))
	assert.True(t, Matches(in, []spec.FilterClause{
		{Field: "user_id", Operator: "equals", Value: "u1"},
	}))
	assert.True(t, Matches(in, []spec.FilterClause{
		{Field: "payload.address.country", Operator: "equals", Value: "DE"},
	}))

	// The prefix only names the payload root; it never matches state.
	assert.False(t, Matches(in, []spec.FilterClause{
		{Field: "payload.status", Operator: "equals", Value: "active"},
	}))
}

func TestMatches_TypeMismatchFailsClause(t *testing.T) {
	in := newUser("u1", "active", 0)
	ok := Matches(in, []spec.FilterClause{
		{Field: "state.status", Operator: "greater_than", Value: 5},
	})
	assert.False(t, ok)
}

func TestCountWhere(t *testing.T) {
	s := New()
	require.NoError(t, s.Insert(newUser("u1", "active", 0)))
	require.NoError(t, s.Insert(newUser("u2", "active", 0)))
	require.NoError(t, s.Insert(newUser("u3", "churned", 0)))

	assert.Equal(t, 2, s.CountWhere("user", "status", "active"))
	assert.Equal(t, 1, s.CountWhere("user", "status", "churned"))
	assert.Equal(t, 0, s.CountWhere("user", "plan", "pro"))
	assert.Equal(t, 0, s.CountWhere("order", "status", "open"))
	assert.Equal(t, 3, s.Count("user"))
}

package expr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/resinker/resinker/internal/record"
)

func fieldsOf(o *record.Object) Lookup {
	return func(name string) (any, bool) {
		return o.Get(name)
	}
}

func TestParse_SumComprehension(t *testing.T) {
	e, err := Parse("sum(item['quantity'] * item['unit_price'] for item in items)")
	require.NoError(t, err)

	items := []any{}
	a := record.NewObject()
	a.Set("quantity", int64(2))
	a.Set("unit_price", 10.0)
	b := record.NewObject()
	b.Set("quantity", int64(1))
	b.Set("unit_price", 5.5)
	items = append(items, a, b)

	payload := record.NewObject()
	payload.Set("items", items)

	got, err := e.Eval(fieldsOf(payload))
	require.NoError(t, err)
	assert.InDelta(t, 25.5, got, 1e-9)
}

func TestParse_SumSingleFactor(t *testing.T) {
	e, err := Parse("sum(item['amount'] for item in charges)")
	require.NoError(t, err)

	item := record.NewObject()
	item.Set("amount", 3.25)
	payload := record.NewObject()
	payload.Set("charges", []any{item, item})

	got, err := e.Eval(fieldsOf(payload))
	require.NoError(t, err)
	assert.InDelta(t, 6.5, got, 1e-9)
}

func TestParse_ScalarArithmetic(t *testing.T) {
	payload := record.NewObject()
	payload.Set("subtotal", 100.0)
	payload.Set("tax_rate", 0.2)
	payload.Set("discount", int64(5))

	cases := []struct {
		src  string
		want float64
	}{
		{"subtotal * tax_rate", 20},
		{"subtotal + subtotal * tax_rate - discount", 115},
		{"(subtotal - discount) * tax_rate", 19},
		{"subtotal / 4", 25},
		{"2 * 3 + 1", 7},
	}
	for _, tc := range cases {
		e, err := Parse(tc.src)
		require.NoError(t, err, tc.src)
		got, err := e.Eval(fieldsOf(payload))
		require.NoError(t, err, tc.src)
		assert.InDelta(t, tc.want, got, 1e-9, tc.src)
	}
}

func TestEval_UnknownFieldRejected(t *testing.T) {
	payload := record.NewObject()
	payload.Set("a", 1.0)

	e, err := Parse("a + missing")
	require.NoError(t, err)
	_, err = e.Eval(fieldsOf(payload))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing")

	e, err = Parse("sum(item['x'] for item in rows)")
	require.NoError(t, err)
	_, err = e.Eval(fieldsOf(payload))
	assert.Error(t, err)
}

func TestParse_RejectsOutsideGrammar(t *testing.T) {
	bad := []string{
		"",
		"__import__('os')",
		"max(a, b)",
		"sum(item['a'] for x in items)",
		"sum(item['a'] * item['b'] * item['c'] for item in items)",
		"a ** b",
		"a +",
		"(a + b",
		"item['a']",
	}
	for _, src := range bad {
		_, err := Parse(src)
		assert.Error(t, err, src)
	}
}

func TestEval_DivisionByZero(t *testing.T) {
	payload := record.NewObject()
	payload.Set("a", 1.0)
	payload.Set("b", int64(0))

	e, err := Parse("a / b")
	require.NoError(t, err)
	_, err = e.Eval(fieldsOf(payload))
	assert.Error(t, err)
}

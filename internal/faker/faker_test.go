package faker

import (
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerate_KnownMethods(t *testing.T) {
	p := New(rand.New(rand.NewSource(7)))

	for _, method := range []string{
		"name", "first_name", "last_name", "email", "user_name",
		"phone_number", "company", "job", "city", "country",
		"street_address", "url", "word", "sentence", "color",
	} {
		v, err := p.Generate(method, nil)
		require.NoError(t, err, method)
		s, ok := v.(string)
		require.True(t, ok, method)
		assert.NotEmpty(t, s, method)
	}
}

func TestGenerate_UnknownMethod(t *testing.T) {
	p := New(rand.New(rand.NewSource(7)))
	_, err := p.Generate("quantum_flux", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "quantum_flux")
}

func TestGenerate_PriceRange(t *testing.T) {
	p := New(rand.New(rand.NewSource(7)))
	for i := 0; i < 50; i++ {
		v, err := p.Generate("price", map[string]any{"min": 10, "max": 20})
		require.NoError(t, err)
		f, ok := v.(float64)
		require.True(t, ok)
		assert.GreaterOrEqual(t, f, 10.0)
		assert.LessOrEqual(t, f, 20.0)
	}
}

func TestGenerate_Deterministic(t *testing.T) {
	a := New(rand.New(rand.NewSource(99)))
	b := New(rand.New(rand.NewSource(99)))
	for i := 0; i < 10; i++ {
		va, err := a.Generate("email", nil)
		require.NoError(t, err)
		vb, err := b.Generate("email", nil)
		require.NoError(t, err)
		assert.Equal(t, va, vb)
	}
}

func TestProductName(t *testing.T) {
	p := New(rand.New(rand.NewSource(7)))
	sawThreeWords := false
	for i := 0; i < 200; i++ {
		v, err := p.Generate("product_name", nil)
		require.NoError(t, err)
		name := v.(string)
		parts := strings.Split(name, " ")
		assert.GreaterOrEqual(t, len(parts), 2)
		if strings.Contains(name, "Electronics") || strings.Contains(name, "Books") {
			sawThreeWords = true
		}
	}
	assert.True(t, sawThreeWords, "category-including form should appear")
}

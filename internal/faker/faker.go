// Package faker produces realistic-looking values for faker.* generators.
// It wraps gofakeit behind a small method dispatch so schema authors name
// providers by string, plus an ecommerce vocabulary for product names.
package faker

import (
	"fmt"
	"math/rand"

	"github.com/brianvoe/gofakeit/v7"
)

// Provider resolves faker.<method> generator names. All randomness comes
// from the seeded source handed in at construction, so runs with the same
// seed produce the same values.
type Provider struct {
	f *gofakeit.Faker
	r *rand.Rand
}

// New builds a provider seeded from r.
func New(r *rand.Rand) *Provider {
	return &Provider{
		f: gofakeit.New(uint64(r.Int63())),
		r: r,
	}
}

// Generate invokes the named provider method. The name is the generator
// string with its "faker." prefix already stripped.
func (p *Provider) Generate(method string, params map[string]any) (any, error) {
	switch method {
	case "name":
		return p.f.Name(), nil
	case "first_name":
		return p.f.FirstName(), nil
	case "last_name":
		return p.f.LastName(), nil
	case "email":
		return p.f.Email(), nil
	case "user_name":
		return p.f.Username(), nil
	case "phone_number", "phone":
		return p.f.Phone(), nil
	case "company":
		return p.f.Company(), nil
	case "job":
		return p.f.JobTitle(), nil
	case "city":
		return p.f.City(), nil
	case "country":
		return p.f.Country(), nil
	case "street_address":
		return p.f.Street(), nil
	case "url":
		return p.f.URL(), nil
	case "word":
		return p.f.Word(), nil
	case "sentence":
		words := intParam(params, "nb_words", 6)
		return p.f.Sentence(words), nil
	case "color":
		return p.f.Color(), nil
	case "price":
		min := floatParam(params, "min", 1)
		max := floatParam(params, "max", 100)
		return p.f.Price(min, max), nil
	case "product_name":
		return p.productName(), nil
	default:
		return nil, fmt.Errorf("unknown faker method %q", method)
	}
}

func intParam(params map[string]any, key string, def int) int {
	switch v := params[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return def
	}
}

func floatParam(params map[string]any, key string, def float64) float64 {
	switch v := params[key].(type) {
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case float64:
		return v
	default:
		return def
	}
}

package generate

import (
	"crypto/md5"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/resinker/resinker/internal/record"
	"github.com/resinker/resinker/internal/spec"
)

// runGenerator executes the named generator for a leaf node.
func (it *Interpreter) runGenerator(node *spec.SchemaNode, ctx *Context, sc *scope, path string) (any, error) {
	params := node.Params
	switch {
	case node.Generator == "uuid_v4":
		return it.uuidV4()

	case node.Generator == "random_int":
		min := intParam(params, "min", 0)
		max := intParam(params, "max", 100)
		if max < min {
			return nil, faultf(path, "random_int min %d exceeds max %d", min, max)
		}
		return int64(min + it.r.Intn(max-min+1)), nil

	case node.Generator == "random_float":
		min := floatParam(params, "min", 0)
		max := floatParam(params, "max", 1)
		if max < min {
			return nil, faultf(path, "random_float min %v exceeds max %v", min, max)
		}
		precision := intParam(params, "precision", 2)
		return roundTo(min+it.r.Float64()*(max-min), precision), nil

	case node.Generator == "random_alphanumeric":
		return it.alphanumeric(intParam(params, "length", 10)), nil

	case node.Generator == "choice":
		choices, _ := params["choices"].([]any)
		weights, _ := params["weights"].([]any)
		return it.weightedChoice(choices, weights, path)

	case node.Generator == "conditional_choice":
		return it.conditionalChoice(params, sc, path)

	case node.Generator == "current_timestamp":
		return it.timestamp(node.Format, ctx), nil

	case node.Generator == "static":
		if v, ok := params["value"]; ok {
			return normalize(v), nil
		}
		return normalize(node.Value), nil

	case node.Generator == "static_hashed":
		return it.staticHashed(params, ctx, path)

	case node.Generator == "derived":
		return it.derived(params, sc, path)

	case strings.HasPrefix(node.Generator, "faker."):
		if it.provider == nil {
			return nil, faultf(path, "no faker provider configured")
		}
		method := node.Generator[strings.LastIndex(node.Generator, ".")+1:]
		v, err := it.provider.Generate(method, params)
		if err != nil {
			return nil, &Fault{Field: path, Err: err}
		}
		return normalize(v), nil

	default:
		return nil, faultf(path, "unknown generator %q", node.Generator)
	}
}

// timestamp renders the simulation time in the requested format. iso8601
// is the default; unix and unix_ms emit integers.
func (it *Interpreter) timestamp(format string, ctx *Context) any {
	now := it.now(ctx)
	switch format {
	case "unix":
		return now.Unix()
	case "unix_ms":
		return now.UnixMilli()
	default:
		return now.Format(time.RFC3339)
	}
}

// staticHashed hashes a generated raw value. bcrypt salts from the system
// entropy source, so bcrypt fields vary across identically seeded runs;
// sha256 and md5 are fully reproducible.
func (it *Interpreter) staticHashed(params map[string]any, ctx *Context, path string) (any, error) {
	var raw string
	if src, ok := params["raw_value_source"].(map[string]any); ok {
		node := nodeFromParams(src)
		v, err := it.generate(node, ctx, &scope{}, path+".raw_value_source")
		if err != nil {
			return nil, err
		}
		raw = stringify(v)
	} else {
		raw = it.alphanumeric(12)
	}

	algorithm, _ := params["algorithm"].(string)
	switch algorithm {
	case "", "bcrypt":
		hash, err := bcrypt.GenerateFromPassword([]byte(raw), bcrypt.DefaultCost)
		if err != nil {
			return nil, &Fault{Field: path, Err: err}
		}
		return string(hash), nil
	case "sha256":
		sum := sha256.Sum256([]byte(raw))
		return hex.EncodeToString(sum[:]), nil
	case "md5":
		sum := md5.Sum([]byte(raw))
		return hex.EncodeToString(sum[:]), nil
	default:
		return nil, faultf(path, "unknown hash algorithm %q", algorithm)
	}
}

// derived evaluates the restricted expression against earlier fields.
func (it *Interpreter) derived(params map[string]any, sc *scope, path string) (any, error) {
	src, _ := params["expression"].(string)
	compiled, err := parseExpression(src)
	if err != nil {
		return nil, &Fault{Field: path, Err: err}
	}
	v, err := compiled.Eval(sc.lookup)
	if err != nil {
		return nil, &Fault{Field: path, Err: err}
	}
	if p, ok := params["precision"]; ok {
		if digits, ok := toInt(p); ok {
			v = roundTo(v, digits)
		}
	}
	return v, nil
}

// conditionalChoice picks from the case matching a previously generated
// field. Case operators follow declaration order; the default case catches
// unmatched and absent condition values.
func (it *Interpreter) conditionalChoice(params map[string]any, sc *scope, path string) (any, error) {
	field, _ := params["condition_field"].(string)
	cases, _ := params["cases"].([]any)
	if len(cases) == 0 {
		return nil, faultf(path, "conditional_choice requires cases")
	}

	condition, present := sc.lookup(field)
	if present && condition != nil {
		for _, rawCase := range cases {
			c, ok := rawCase.(map[string]any)
			if !ok {
				continue
			}
			if matchCase(c, condition) {
				return it.caseChoice(c, path)
			}
		}
	}
	for _, rawCase := range cases {
		if c, ok := rawCase.(map[string]any); ok {
			if _, hasDefault := c["default"]; hasDefault {
				return it.caseChoice(c, path)
			}
		}
	}
	if c, ok := cases[0].(map[string]any); ok {
		return it.caseChoice(c, path)
	}
	return nil, faultf(path, "no matching case for %q", field)
}

func matchCase(c map[string]any, condition any) bool {
	if want, ok := c["condition_value"]; ok && record.Equal(condition, want) {
		return true
	}
	if want, ok := c["condition_value_greater_than"]; ok {
		if cmp, ok := record.Compare(condition, want); ok && cmp > 0 {
			return true
		}
	}
	if want, ok := c["condition_value_less_than"]; ok {
		if cmp, ok := record.Compare(condition, want); ok && cmp < 0 {
			return true
		}
	}
	if want, ok := c["condition_value_in"].([]any); ok {
		for _, candidate := range want {
			if record.Equal(condition, candidate) {
				return true
			}
		}
	}
	return false
}

func (it *Interpreter) caseChoice(c map[string]any, path string) (any, error) {
	choices, _ := c["choices"].([]any)
	weights, _ := c["weights"].([]any)
	return it.weightedChoice(choices, weights, path)
}

// nodeFromParams lifts an inline schema map (raw_value_source) into a
// schema node. Only leaf keys are honored.
func nodeFromParams(src map[string]any) *spec.SchemaNode {
	node := &spec.SchemaNode{}
	if t, ok := src["type"].(string); ok {
		node.Type = t
	}
	if f, ok := src["format"].(string); ok {
		node.Format = f
	}
	if g, ok := src["generator"].(string); ok {
		node.Generator = g
	}
	if p, ok := src["params"].(map[string]any); ok {
		node.Params = p
	}
	if v, ok := src["value"]; ok {
		node.Value = v
		node.HasValue = true
	}
	return node
}

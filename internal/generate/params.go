package generate

import (
	"fmt"

	"github.com/resinker/resinker/internal/expr"
)

func parseExpression(src string) (*expr.Expr, error) {
	if src == "" {
		return nil, fmt.Errorf("derived generator requires an expression")
	}
	return expr.Parse(src)
}

func intParam(params map[string]any, key string, def int) int {
	if v, ok := params[key]; ok {
		if n, ok := toInt(v); ok {
			return n
		}
	}
	return def
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

func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	default:
		return 0, false
	}
}

func stringify(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

package alerting

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

// Eval implements Node for comparison leaves. Missing paths resolve to nil,
// which fails every comparison except ne-against-nil. Coercion failures are
// benign non-matches, never errors.
func (n *Leaf) Eval(ctx map[string]any) bool {
	ctxVal := lookupPath(ctx, n.Field)

	switch n.Operator {
	case OperatorEq:
		return looseEqual(ctxVal, n.Value)
	case OperatorNe:
		return !looseEqual(ctxVal, n.Value)
	case OperatorGt, OperatorGte, OperatorLt, OperatorLte:
		return evaluateNumeric(n.Operator, ctxVal, n.Value)
	case OperatorContains:
		if ctxVal == nil {
			return false
		}
		haystack := strings.ToLower(fmt.Sprintf("%v", ctxVal))
		needle := strings.ToLower(fmt.Sprintf("%v", n.Value))
		return strings.Contains(haystack, needle)
	case OperatorIn:
		list, ok := n.Value.([]any)
		if !ok {
			return false
		}
		for _, item := range list {
			if looseEqual(ctxVal, item) {
				return true
			}
		}
		return false
	default:
		return false
	}
}

// lookupPath resolves a dot-path against a nested context map. Any missing
// segment resolves to nil.
func lookupPath(ctx map[string]any, path string) any {
	segments := strings.Split(path, ".")
	var current any = ctx
	for _, segment := range segments {
		m, ok := current.(map[string]any)
		if !ok {
			return nil
		}
		current, ok = m[segment]
		if !ok {
			return nil
		}
	}
	return current
}

// looseEqual compares two values the way the context stores them: numbers of
// different Go types compare numerically, everything else by deep equality.
func looseEqual(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	af, aerr := toFloat64(a)
	bf, berr := toFloat64(b)
	if aerr == nil && berr == nil {
		return af == bf
	}
	if reflect.DeepEqual(a, b) {
		return true
	}
	// String forms as a last resort so "high" matches a typed enum value.
	_, aIsStr := a.(string)
	_, bIsStr := b.(string)
	if aIsStr || bIsStr {
		return fmt.Sprintf("%v", a) == fmt.Sprintf("%v", b)
	}
	return false
}

func evaluateNumeric(operator string, ctxVal, condVal any) bool {
	ctxFloat, err := toFloat64(ctxVal)
	if err != nil {
		return false
	}
	condFloat, err := toFloat64(condVal)
	if err != nil {
		return false
	}

	switch operator {
	case OperatorGt:
		return ctxFloat > condFloat
	case OperatorGte:
		return ctxFloat >= condFloat
	case OperatorLt:
		return ctxFloat < condFloat
	case OperatorLte:
		return ctxFloat <= condFloat
	default:
		return false
	}
}

func toFloat64(val any) (float64, error) {
	switch v := val.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int8:
		return float64(v), nil
	case int16:
		return float64(v), nil
	case int32:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case uint:
		return float64(v), nil
	case uint8:
		return float64(v), nil
	case uint16:
		return float64(v), nil
	case uint32:
		return float64(v), nil
	case uint64:
		return float64(v), nil
	case string:
		return strconv.ParseFloat(v, 64)
	default:
		return 0, fmt.Errorf("cannot convert %T to float64", val)
	}
}

package domain

import (
	"fmt"
	"strings"
)

// EvaluateConditionTree evaluates a declarative, data-driven condition
// document against a fact map. This is the safe replacement for the
// original's "would safely evaluate the function at runtime" placeholder
// for CUSTOM pricing rules and the custom priority scoring hook: no code
// is ever executed, only field/operator/value triples combined with
// AND/OR.
//
// Shape (every key optional, AND-combined at each level):
//
//	{
//	  "all": [ <condition>, ... ],  // AND
//	  "any": [ <condition>, ... ],  // OR
//	  "field": "order.subtotal", "op": ">=", "value": 50
//	}
func EvaluateConditionTree(tree map[string]interface{}, facts map[string]interface{}) bool {
	if len(tree) == 0 {
		return true
	}
	if all, ok := tree["all"].([]interface{}); ok {
		for _, raw := range all {
			cond, ok := raw.(map[string]interface{})
			if !ok || !EvaluateConditionTree(cond, facts) {
				return false
			}
		}
	}
	if any, ok := tree["any"].([]interface{}); ok {
		matched := false
		for _, raw := range any {
			cond, ok := raw.(map[string]interface{})
			if ok && EvaluateConditionTree(cond, facts) {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}
	if field, ok := tree["field"].(string); ok {
		op, _ := tree["op"].(string)
		return evaluateComparison(field, op, tree["value"], facts)
	}
	return true
}

func evaluateComparison(field, op string, expected interface{}, facts map[string]interface{}) bool {
	actual, ok := lookupField(field, facts)
	if !ok {
		return false
	}
	switch op {
	case "eq", "==", "":
		return fmt.Sprintf("%v", actual) == fmt.Sprintf("%v", expected)
	case "neq", "!=":
		return fmt.Sprintf("%v", actual) != fmt.Sprintf("%v", expected)
	case "gt", ">":
		return compareNumeric(actual, expected) > 0
	case "gte", ">=":
		return compareNumeric(actual, expected) >= 0
	case "lt", "<":
		return compareNumeric(actual, expected) < 0
	case "lte", "<=":
		return compareNumeric(actual, expected) <= 0
	case "contains":
		s, _ := actual.(string)
		sub, _ := expected.(string)
		return strings.Contains(s, sub)
	default:
		return false
	}
}

// lookupField resolves a dotted path ("order.subtotal") against a nested
// fact map.
func lookupField(path string, facts map[string]interface{}) (interface{}, bool) {
	parts := strings.Split(path, ".")
	var cur interface{} = facts
	for _, part := range parts {
		m, ok := cur.(map[string]interface{})
		if !ok {
			return nil, false
		}
		cur, ok = m[part]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

func compareNumeric(a, b interface{}) int {
	af, aok := toFloat(a)
	bf, bok := toFloat(b)
	if !aok || !bok {
		return strings.Compare(fmt.Sprintf("%v", a), fmt.Sprintf("%v", b))
	}
	switch {
	case af < bf:
		return -1
	case af > bf:
		return 1
	default:
		return 0
	}
}

// EvaluateCustomScore evaluates a ScoreConfig's CustomExpression against a
// fact map, returning the configured base_value when it is absent or the
// expression doesn't resolve to a number (mirrors the original
// `rule.parameters.base_value` fallback).
func EvaluateCustomScore(cfg ScoreConfig, facts map[string]interface{}) float64 {
	if cfg.CustomExpression == nil {
		return cfg.Base
	}
	if !EvaluateConditionTree(cfg.CustomExpression, facts) {
		return cfg.DefaultScore
	}
	if v, ok := cfg.CustomExpression["base_value"]; ok {
		if f, ok := toFloat(v); ok {
			return f
		}
	}
	return cfg.Base
}

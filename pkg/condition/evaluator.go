package condition

import (
	"fmt"
	"reflect"
	"strings"
	"time"

	"go-approvals/internal/common/models"
)

// Evaluate checks every condition against the context map (logical AND).
// An empty condition list matches. A condition whose field is missing from
// the context fails the whole evaluation; that is a hard miss, not an error.
// Incomparable operands for the ordered operators are a caller error.
// Pure function, safe for concurrent use.
func Evaluate(conds []models.Condition, ctx map[string]interface{}) (bool, error) {
	for _, cond := range conds {
		val, exists := ctx[cond.Field]
		if !exists {
			return false, nil
		}

		ok, err := matches(cond, val)
		if err != nil {
			return false, fmt.Errorf("condition on %q: %w", cond.Field, err)
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

func matches(cond models.Condition, val interface{}) (bool, error) {
	switch cond.Operator {
	case models.OperatorEquals:
		return stringify(val) == stringify(cond.Value), nil
	case models.OperatorNotEquals:
		return stringify(val) != stringify(cond.Value), nil
	case models.OperatorGreaterThan:
		cmp, err := compare(val, cond.Value)
		return cmp > 0, err
	case models.OperatorLessThan:
		cmp, err := compare(val, cond.Value)
		return cmp < 0, err
	case models.OperatorGreaterOrEqual:
		cmp, err := compare(val, cond.Value)
		return cmp >= 0, err
	case models.OperatorLessOrEqual:
		cmp, err := compare(val, cond.Value)
		return cmp <= 0, err
	case models.OperatorContains:
		return strings.Contains(stringify(val), stringify(cond.Value)), nil
	case models.OperatorIn:
		return contains(cond.Value, val)
	case models.OperatorBetween:
		low, err := compare(val, cond.Value)
		if err != nil {
			return false, err
		}
		high, err := compare(val, cond.ValueTo)
		if err != nil {
			return false, err
		}
		return low >= 0 && high <= 0, nil
	default:
		return false, fmt.Errorf("unknown operator: %s", cond.Operator)
	}
}

// compare orders two values: -1, 0 or 1. Numbers compare numerically, times
// chronologically, everything else falls back to lexicographic comparison of
// matching string values only.
func compare(a, b interface{}) (int, error) {
	if af, aok := toFloat(a); aok {
		bf, bok := toFloat(b)
		if !bok {
			return 0, fmt.Errorf("cannot compare %T with %T", a, b)
		}
		switch {
		case af < bf:
			return -1, nil
		case af > bf:
			return 1, nil
		}
		return 0, nil
	}

	if at, aok := toTime(a); aok {
		bt, bok := toTime(b)
		if !bok {
			return 0, fmt.Errorf("cannot compare %T with %T", a, b)
		}
		switch {
		case at.Before(bt):
			return -1, nil
		case at.After(bt):
			return 1, nil
		}
		return 0, nil
	}

	as, aok := a.(string)
	bs, bok := b.(string)
	if !aok || !bok {
		return 0, fmt.Errorf("cannot compare %T with %T", a, b)
	}
	return strings.Compare(as, bs), nil
}

func contains(collection, val interface{}) (bool, error) {
	rv := reflect.ValueOf(collection)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return false, fmt.Errorf("in operator requires a collection value, got %T", collection)
	}
	want := stringify(val)
	for i := 0; i < rv.Len(); i++ {
		if stringify(rv.Index(i).Interface()) == want {
			return true, nil
		}
	}
	return false, nil
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

func toTime(v interface{}) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case string:
		if parsed, err := time.Parse(time.RFC3339, t); err == nil {
			return parsed, true
		}
	}
	return time.Time{}, false
}

// stringify normalizes values the way record criteria were matched before:
// via their fmt representation. Keeps 1 == int64(1) and friends equal.
func stringify(v interface{}) string {
	return fmt.Sprintf("%v", v)
}

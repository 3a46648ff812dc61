package engine

import (
	"reflect"
	"strings"

	"github.com/shaiso/Rowpipe/internal/domain"
)

// EvaluateCondition вычисляет условие выполнения шага.
//
// nil-условие означает "выполнять всегда". Операнды-токены $name
// ищутся в scope так же, как плейсхолдеры тела; ненайденный операнд
// становится nil. Неизвестный оператор считается выполненным
// условием (fail-open) и даёт предупреждение.
func EvaluateCondition(cond *domain.Condition, scope *Scope) (bool, []Warning) {
	if cond == nil {
		return true, nil
	}

	var warnings []Warning
	left, leftFound := resolveOperand(cond.Left, scope, &warnings)

	switch cond.Operator {
	case domain.OpExists:
		return leftFound && left != nil, warnings
	case domain.OpNotExists:
		return !leftFound || left == nil, warnings
	}

	right, _ := resolveOperand(cond.Right, scope, &warnings)

	switch cond.Operator {
	case domain.OpLooseEqual:
		return looseEqual(left, right), warnings
	case domain.OpLooseNotEq:
		return !looseEqual(left, right), warnings
	case domain.OpStrictEqual:
		return strictEqual(left, right), warnings
	case domain.OpStrictNotEq:
		return !strictEqual(left, right), warnings
	case domain.OpGreater, domain.OpGreaterEqual, domain.OpLess, domain.OpLessEqual:
		return compareOrdered(left, right, cond.Operator), warnings
	default:
		warnings = append(warnings, Warning{
			Kind:    WarnCondition,
			Name:    string(cond.Operator),
			Message: "unknown operator, condition treated as satisfied",
		})
		return true, warnings
	}
}

// resolveOperand возвращает значение операнда и признак того, что оно найдено.
func resolveOperand(operand any, scope *Scope, warnings *[]Warning) (any, bool) {
	switch v := operand.(type) {
	case domain.RawLiteral:
		typed, _ := Coerce(string(v), false)
		return typed, true
	case string:
		name, ok := PlaceholderName(v)
		if !ok {
			return v, true
		}
		value, found, err := scope.Lookup(name)
		if err != nil {
			*warnings = append(*warnings, Warning{Kind: WarnCoercion, Name: name, Message: err.Error()})
		}
		if !found {
			*warnings = append(*warnings, Warning{
				Kind:    WarnCondition,
				Name:    v,
				Message: "condition operand not found, treated as null",
			})
			return nil, false
		}
		return value, true
	default:
		typed, _ := Coerce(v, false)
		return typed, true
	}
}

// compareOrdered сравнивает числа или строки. Несравнимые значения
// (в том числе nil) дают false.
func compareOrdered(left, right any, op domain.Operator) bool {
	if l, ok := asNumber(left); ok {
		if r, ok := asNumber(right); ok {
			switch op {
			case domain.OpGreater:
				return l > r
			case domain.OpGreaterEqual:
				return l >= r
			case domain.OpLess:
				return l < r
			case domain.OpLessEqual:
				return l <= r
			}
		}
	}

	ls, lok := left.(string)
	rs, rok := right.(string)
	if lok && rok {
		c := strings.Compare(ls, rs)
		switch op {
		case domain.OpGreater:
			return c > 0
		case domain.OpGreaterEqual:
			return c >= 0
		case domain.OpLess:
			return c < 0
		case domain.OpLessEqual:
			return c <= 0
		}
	}
	return false
}

// asNumber возвращает число для значений, похожих на число.
func asNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case string:
		return parseNumber(n)
	default:
		return 0, false
	}
}

// looseEqual — нестрогое сравнение с приведением типов:
// null равен только null; bool сравнивается как 1/0; число и строка
// сравниваются как числа.
func looseEqual(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}

	if ab, ok := a.(bool); ok {
		a = boolNumber(ab)
	}
	if bb, ok := b.(bool); ok {
		b = boolNumber(bb)
	}

	as, aIsString := a.(string)
	bs, bIsString := b.(string)
	if aIsString && bIsString {
		return as == bs
	}

	an, aIsNum := looseNumber(a)
	bn, bIsNum := looseNumber(b)
	if aIsNum && bIsNum {
		return an == bn
	}

	return reflect.DeepEqual(a, b)
}

// looseNumber приводит число или строку к числу; пустая строка → 0.
func looseNumber(v any) (float64, bool) {
	if s, ok := v.(string); ok {
		if strings.TrimSpace(s) == "" {
			return 0, true
		}
		return parseNumber(s)
	}
	return asNumber(v)
}

func boolNumber(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// strictEqual — строгое сравнение: совпадают и тип, и значение.
func strictEqual(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}

	switch av := a.(type) {
	case string:
		bv, ok := b.(string)
		return ok && av == bv
	case bool:
		bv, ok := b.(bool)
		return ok && av == bv
	case float64, int, int64:
		if _, isString := b.(string); isString {
			return false
		}
		an, _ := asNumber(a)
		bn, ok := asNumber(b)
		return ok && an == bn
	default:
		return reflect.DeepEqual(a, b)
	}
}

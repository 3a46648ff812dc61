package domain

import (
	"fmt"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// Operator — оператор сравнения в условии.
type Operator string

// Поддерживаемые операторы.
const (
	OpGreater      Operator = ">"
	OpGreaterEqual Operator = ">="
	OpLess         Operator = "<"
	OpLessEqual    Operator = "<="
	OpLooseEqual   Operator = "=="
	OpStrictEqual  Operator = "==="
	OpLooseNotEq   Operator = "!="
	OpStrictNotEq  Operator = "!=="
	OpExists       Operator = "exists"
	OpNotExists    Operator = "!exists"
)

// IsKnown проверяет, известен ли оператор.
func (o Operator) IsKnown() bool {
	switch o {
	case OpGreater, OpGreaterEqual, OpLess, OpLessEqual,
		OpLooseEqual, OpStrictEqual, OpLooseNotEq, OpStrictNotEq,
		OpExists, OpNotExists:
		return true
	default:
		return false
	}
}

// IsUnary проверяет, что оператору не нужен правый операнд.
func (o Operator) IsUnary() bool {
	return o == OpExists || o == OpNotExists
}

// Condition — условие выполнения шага.
//
// В конфиге задаётся объектом:
//
//	condition: {field: "$price", operator: ">", value: 20}
//
// или строкой:
//
//	condition: "$price > 20"
type Condition struct {
	// Left — левый операнд (обычно токен $name).
	Left any `yaml:"field" json:"field"`

	// Operator — оператор сравнения.
	Operator Operator `yaml:"operator" json:"operator"`

	// Right — правый операнд (литерал или токен $name).
	Right any `yaml:"value,omitempty" json:"value,omitempty"`

	// Expr — исходная строка, если условие задано строкой.
	Expr string `yaml:"-" json:"-"`
}

// String возвращает человекочитаемое представление условия.
func (c *Condition) String() string {
	if c.Expr != "" {
		return c.Expr
	}
	if c.Operator.IsUnary() {
		return fmt.Sprintf("%v %s", c.Left, c.Operator)
	}
	return fmt.Sprintf("%v %s %v", c.Left, c.Operator, c.Right)
}

var (
	unaryExprPattern  = regexp.MustCompile(`^\s*(\S+)\s+(exists|!exists)\s*$`)
	symbolExprPattern = regexp.MustCompile(`^\s*([^\s=!<>~]+)\s*([=!<>~]+)\s*(.*?)\s*$`)
	spacedExprPattern = regexp.MustCompile(`^\s*(\S+)\s+(\S+)(?:\s+(.*?))?\s*$`)
)

// ParseCondition разбирает строковую форму условия.
//
// Оператор — непрерывная последовательность символов =!<>~ (пробелы
// вокруг необязательны) или отдельное слово между пробелами
// ("$tags contains vip"). Неизвестный оператор сохраняется как есть и
// обрабатывается при вычислении. Левый операнд не может содержать
// пробелов и символов операторов.
//
// Операнд в кавычках остаётся строкой; операнд без кавычек сохраняется
// как RawLiteral и приводится к типу при вычислении ("20" → 20).
// Токены $name сохраняются как обычные строки.
func ParseCondition(expr string) (*Condition, error) {
	if m := unaryExprPattern.FindStringSubmatch(expr); m != nil {
		return &Condition{Left: exprOperand(m[1]), Operator: Operator(m[2]), Expr: expr}, nil
	}

	m := symbolExprPattern.FindStringSubmatch(expr)
	if m == nil {
		m = spacedExprPattern.FindStringSubmatch(expr)
	}
	if m == nil {
		return nil, fmt.Errorf("cannot parse condition %q", expr)
	}

	return &Condition{
		Left:     exprOperand(m[1]),
		Operator: Operator(m[2]),
		Right:    exprOperand(m[3]),
		Expr:     expr,
	}, nil
}

// RawLiteral — операнд строковой формы условия, записанный без кавычек.
type RawLiteral string

func exprOperand(s string) any {
	if len(s) >= 2 {
		first, last := s[0], s[len(s)-1]
		if (first == '"' || first == '\'') && first == last {
			return s[1 : len(s)-1]
		}
	}
	if strings.HasPrefix(s, "$") {
		return s
	}
	return RawLiteral(s)
}

// UnmarshalYAML принимает строковую и объектную форму условия.
func (c *Condition) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		parsed, err := ParseCondition(node.Value)
		if err != nil {
			return err
		}
		*c = *parsed
		return nil
	}

	// Алиас, чтобы не уйти в рекурсию
	type plain Condition
	var raw plain
	if err := node.Decode(&raw); err != nil {
		return err
	}
	raw.Operator = Operator(strings.TrimSpace(string(raw.Operator)))

	// В объектной форме field — это имя поля, "$" можно не писать
	if name, ok := raw.Left.(string); ok && name != "" && !strings.HasPrefix(name, "$") {
		raw.Left = "$" + name
	}
	*c = Condition(raw)
	return nil
}

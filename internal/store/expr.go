package store

import (
	"fmt"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// exprBuilder accumulates attribute name/value placeholders for hand-built
// condition and update expressions.
type exprBuilder struct {
	names  map[string]string
	values map[string]types.AttributeValue
}

func newExprBuilder() *exprBuilder {
	return &exprBuilder{
		names:  map[string]string{},
		values: map[string]types.AttributeValue{},
	}
}

func (b *exprBuilder) name(path string) string {
	parts := strings.Split(path, ".")
	out := make([]string, len(parts))
	for i, p := range parts {
		ph := fmt.Sprintf("#n%d", len(b.names))
		b.names[ph] = p
		out[i] = ph
	}
	return strings.Join(out, ".")
}

func (b *exprBuilder) value(v any) (string, error) {
	av, err := marshalValue(v)
	if err != nil {
		return "", err
	}
	ph := fmt.Sprintf(":v%d", len(b.values))
	b.values[ph] = av
	return ph, nil
}

func (b *exprBuilder) condition(c Condition) (string, error) {
	name := b.name(c.Attr)
	switch c.Kind {
	case ConditionExists:
		return fmt.Sprintf("attribute_exists(%s)", name), nil
	case ConditionNotExists:
		return fmt.Sprintf("attribute_not_exists(%s)", name), nil
	}
	val, err := b.value(c.Value)
	if err != nil {
		return "", err
	}
	switch c.Kind {
	case ConditionEquals:
		return fmt.Sprintf("%s = %s", name, val), nil
	case ConditionNotEquals:
		return fmt.Sprintf("%s <> %s", name, val), nil
	case ConditionLessEq:
		return fmt.Sprintf("%s <= %s", name, val), nil
	case ConditionGreaterEq:
		return fmt.Sprintf("%s >= %s", name, val), nil
	case ConditionContains:
		return fmt.Sprintf("contains(%s, %s)", name, val), nil
	case ConditionBeginsWith:
		return fmt.Sprintf("begins_with(%s, %s)", name, val), nil
	}
	return "", fmt.Errorf("unknown condition kind %d", c.Kind)
}

func (b *exprBuilder) conditionSet(cs *ConditionSet) (string, error) {
	var all []string
	for _, c := range cs.All {
		frag, err := b.condition(c)
		if err != nil {
			return "", err
		}
		all = append(all, frag)
	}
	var any []string
	for _, c := range cs.Any {
		frag, err := b.condition(c)
		if err != nil {
			return "", err
		}
		any = append(any, frag)
	}

	allExpr := strings.Join(all, " AND ")
	anyExpr := strings.Join(any, " OR ")
	switch {
	case allExpr != "" && anyExpr != "":
		return fmt.Sprintf("%s AND (%s)", allExpr, anyExpr), nil
	case anyExpr != "":
		return fmt.Sprintf("(%s)", anyExpr), nil
	case allExpr != "":
		return allExpr, nil
	}
	return "", fmt.Errorf("empty condition set")
}

func (b *exprBuilder) update(u Update) (string, error) {
	var clauses []string

	if len(u.Set) > 0 {
		parts := make([]string, 0, len(u.Set))
		for _, attr := range sortedKeys(u.Set) {
			val, err := b.value(u.Set[attr])
			if err != nil {
				return "", err
			}
			parts = append(parts, fmt.Sprintf("%s = %s", b.name(attr), val))
		}
		clauses = append(clauses, "SET "+strings.Join(parts, ", "))
	}
	if len(u.Add) > 0 {
		parts := make([]string, 0, len(u.Add))
		for _, attr := range sortedKeys(u.Add) {
			val, err := b.value(u.Add[attr])
			if err != nil {
				return "", err
			}
			parts = append(parts, fmt.Sprintf("%s %s", b.name(attr), val))
		}
		clauses = append(clauses, "ADD "+strings.Join(parts, ", "))
	}
	if len(u.DeleteFromSet) > 0 {
		parts := make([]string, 0, len(u.DeleteFromSet))
		for _, attr := range sortedKeys(u.DeleteFromSet) {
			val, err := b.value(u.DeleteFromSet[attr])
			if err != nil {
				return "", err
			}
			parts = append(parts, fmt.Sprintf("%s %s", b.name(attr), val))
		}
		clauses = append(clauses, "DELETE "+strings.Join(parts, ", "))
	}
	if len(u.Remove) > 0 {
		parts := make([]string, 0, len(u.Remove))
		for _, attr := range u.Remove {
			parts = append(parts, b.name(attr))
		}
		clauses = append(clauses, "REMOVE "+strings.Join(parts, ", "))
	}

	if len(clauses) == 0 {
		return "", fmt.Errorf("empty update")
	}
	return strings.Join(clauses, " "), nil
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func buildKeyCondition(conds []Condition) (expression.KeyConditionBuilder, error) {
	if len(conds) == 0 {
		return expression.KeyConditionBuilder{}, fmt.Errorf("no key conditions")
	}
	built := make([]expression.KeyConditionBuilder, 0, len(conds))
	for _, c := range conds {
		kb := expression.Key(c.Attr)
		switch c.Kind {
		case ConditionEquals:
			built = append(built, kb.Equal(expression.Value(c.Value)))
		case ConditionLessEq:
			built = append(built, kb.LessThanEqual(expression.Value(c.Value)))
		case ConditionGreaterEq:
			built = append(built, kb.GreaterThanEqual(expression.Value(c.Value)))
		case ConditionBeginsWith:
			s, ok := c.Value.(string)
			if !ok {
				return expression.KeyConditionBuilder{}, fmt.Errorf("begins_with requires a string value")
			}
			built = append(built, kb.BeginsWith(s))
		default:
			return expression.KeyConditionBuilder{}, fmt.Errorf("unsupported key condition kind %d", c.Kind)
		}
	}
	cond := built[0]
	for _, next := range built[1:] {
		cond = expression.KeyAnd(cond, next)
	}
	return cond, nil
}

func buildFilter(conds []Condition) (expression.ConditionBuilder, error) {
	built := make([]expression.ConditionBuilder, 0, len(conds))
	for _, c := range conds {
		nb := expression.Name(c.Attr)
		switch c.Kind {
		case ConditionExists:
			built = append(built, nb.AttributeExists())
		case ConditionNotExists:
			built = append(built, nb.AttributeNotExists())
		case ConditionEquals:
			built = append(built, nb.Equal(expression.Value(c.Value)))
		case ConditionNotEquals:
			built = append(built, nb.NotEqual(expression.Value(c.Value)))
		case ConditionLessEq:
			built = append(built, nb.LessThanEqual(expression.Value(c.Value)))
		case ConditionGreaterEq:
			built = append(built, nb.GreaterThanEqual(expression.Value(c.Value)))
		case ConditionContains:
			s, ok := c.Value.(string)
			if !ok {
				return expression.ConditionBuilder{}, fmt.Errorf("contains requires a string value")
			}
			built = append(built, nb.Contains(s))
		case ConditionBeginsWith:
			s, ok := c.Value.(string)
			if !ok {
				return expression.ConditionBuilder{}, fmt.Errorf("begins_with requires a string value")
			}
			built = append(built, nb.BeginsWith(s))
		default:
			return expression.ConditionBuilder{}, fmt.Errorf("unsupported filter kind %d", c.Kind)
		}
	}
	cond := built[0]
	for _, next := range built[1:] {
		cond = expression.And(cond, next)
	}
	return cond, nil
}

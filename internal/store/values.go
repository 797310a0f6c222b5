package store

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

func formatInt(v int64) string {
	return strconv.FormatInt(v, 10)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// marshalValue converts a condition/update value to an attribute value.
// StringSet becomes a DynamoDB string set; anything already an attribute
// value passes through.
func marshalValue(v any) (types.AttributeValue, error) {
	switch t := v.(type) {
	case nil:
		return nil, fmt.Errorf("nil value")
	case types.AttributeValue:
		return t, nil
	case StringSet:
		return &types.AttributeValueMemberSS{Value: append([]string(nil), t...)}, nil
	default:
		return attributevalue.Marshal(v)
	}
}

// resolvePath walks a dotted attribute path through nested maps. ok is false
// when any segment is missing.
func resolvePath(item Item, path string) (types.AttributeValue, bool) {
	parts := strings.Split(path, ".")
	var cur types.AttributeValue
	scope := item
	for i, p := range parts {
		av, found := scope[p]
		if !found {
			return nil, false
		}
		cur = av
		if i < len(parts)-1 {
			m, isMap := av.(*types.AttributeValueMemberM)
			if !isMap {
				return nil, false
			}
			scope = m.Value
		}
	}
	return cur, true
}

func numericValue(av types.AttributeValue) (float64, bool) {
	n, ok := av.(*types.AttributeValueMemberN)
	if !ok {
		return 0, false
	}
	f, err := strconv.ParseFloat(n.Value, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// attrEqual compares two attribute values. Numbers compare numerically,
// string sets compare as sets.
func attrEqual(a, b types.AttributeValue) bool {
	switch av := a.(type) {
	case *types.AttributeValueMemberS:
		bv, ok := b.(*types.AttributeValueMemberS)
		return ok && av.Value == bv.Value
	case *types.AttributeValueMemberN:
		af, aok := numericValue(a)
		bf, bok := numericValue(b)
		return aok && bok && af == bf
	case *types.AttributeValueMemberBOOL:
		bv, ok := b.(*types.AttributeValueMemberBOOL)
		return ok && av.Value == bv.Value
	case *types.AttributeValueMemberSS:
		bv, ok := b.(*types.AttributeValueMemberSS)
		if !ok || len(av.Value) != len(bv.Value) {
			return false
		}
		set := make(map[string]struct{}, len(av.Value))
		for _, s := range av.Value {
			set[s] = struct{}{}
		}
		for _, s := range bv.Value {
			if _, found := set[s]; !found {
				return false
			}
		}
		return true
	}
	return false
}

// attrCompare returns -1/0/1 for ordered attribute values (numbers
// numerically, strings lexicographically). ok is false for unordered types.
func attrCompare(a, b types.AttributeValue) (int, bool) {
	if af, aok := numericValue(a); aok {
		bf, bok := numericValue(b)
		if !bok {
			return 0, false
		}
		switch {
		case af < bf:
			return -1, true
		case af > bf:
			return 1, true
		}
		return 0, true
	}
	as, aok := a.(*types.AttributeValueMemberS)
	bs, bok := b.(*types.AttributeValueMemberS)
	if !aok || !bok {
		return 0, false
	}
	return strings.Compare(as.Value, bs.Value), true
}

// copyItem deep-copies an item so callers cannot alias stored state.
func copyItem(item Item) Item {
	if item == nil {
		return nil
	}
	out := make(Item, len(item))
	for k, v := range item {
		out[k] = copyAttr(v)
	}
	return out
}

func copyAttr(av types.AttributeValue) types.AttributeValue {
	switch t := av.(type) {
	case *types.AttributeValueMemberS:
		return &types.AttributeValueMemberS{Value: t.Value}
	case *types.AttributeValueMemberN:
		return &types.AttributeValueMemberN{Value: t.Value}
	case *types.AttributeValueMemberBOOL:
		return &types.AttributeValueMemberBOOL{Value: t.Value}
	case *types.AttributeValueMemberNULL:
		return &types.AttributeValueMemberNULL{Value: t.Value}
	case *types.AttributeValueMemberSS:
		return &types.AttributeValueMemberSS{Value: append([]string(nil), t.Value...)}
	case *types.AttributeValueMemberNS:
		return &types.AttributeValueMemberNS{Value: append([]string(nil), t.Value...)}
	case *types.AttributeValueMemberM:
		inner := make(map[string]types.AttributeValue, len(t.Value))
		for k, v := range t.Value {
			inner[k] = copyAttr(v)
		}
		return &types.AttributeValueMemberM{Value: inner}
	case *types.AttributeValueMemberL:
		inner := make([]types.AttributeValue, len(t.Value))
		for i, v := range t.Value {
			inner[i] = copyAttr(v)
		}
		return &types.AttributeValueMemberL{Value: inner}
	}
	return av
}

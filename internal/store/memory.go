package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	appErrors "github.com/a3888968/wiseguide-backend/pkg/errors"
)

// Memory implements Store entirely in process. It honours table schemas for
// key extraction, index ordering and paging, and evaluates the same condition
// semantics as the DynamoDB implementation. Used as the test double.
type Memory struct {
	mu     sync.RWMutex
	tables map[string]*memTable
}

type memTable struct {
	schema TableSchema
	items  map[string]Item
}

var _ Store = (*Memory)(nil)

// NewMemory creates an in-memory store with the given tables pre-provisioned.
func NewMemory(schemas ...TableSchema) *Memory {
	m := &Memory{tables: map[string]*memTable{}}
	for _, s := range schemas {
		m.tables[s.Name] = &memTable{schema: s, items: map[string]Item{}}
	}
	return m
}

func (m *Memory) table(name string) (*memTable, error) {
	t, ok := m.tables[name]
	if !ok {
		return nil, appErrors.NewInternal(fmt.Sprintf("table %s does not exist", name), nil)
	}
	return t, nil
}

func keyString(ks KeySchema, item Item) (string, error) {
	hash, ok := item[ks.HashKey]
	if !ok {
		return "", fmt.Errorf("missing key attribute %s", ks.HashKey)
	}
	parts := []string{rawScalar(hash)}
	if ks.RangeKey != "" {
		rng, ok := item[ks.RangeKey]
		if !ok {
			return "", fmt.Errorf("missing key attribute %s", ks.RangeKey)
		}
		parts = append(parts, rawScalar(rng))
	}
	return strings.Join(parts, "\x00"), nil
}

func rawScalar(av types.AttributeValue) string {
	switch t := av.(type) {
	case *types.AttributeValueMemberS:
		return "S" + t.Value
	case *types.AttributeValueMemberN:
		return "N" + t.Value
	}
	return fmt.Sprintf("%v", av)
}

func (m *Memory) Get(ctx context.Context, table string, key Key) (Item, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, err := m.table(table)
	if err != nil {
		return nil, err
	}
	ks, err := keyString(t.schema.Key, key)
	if err != nil {
		return nil, appErrors.NewInternal("bad key", err)
	}
	return copyItem(t.items[ks]), nil
}

func (m *Memory) Put(ctx context.Context, table string, item Item, cond *ConditionSet) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, err := m.table(table)
	if err != nil {
		return err
	}
	ks, err := keyString(t.schema.Key, item)
	if err != nil {
		return appErrors.NewInternal("bad item key", err)
	}
	if cond != nil {
		ok, err := evalConditionSet(t.items[ks], cond)
		if err != nil {
			return appErrors.NewInternal("bad condition", err)
		}
		if !ok {
			return appErrors.NewConflict(appErrors.CodeConditionViolated, "conditional check failed")
		}
	}
	t.items[ks] = copyItem(item)
	return nil
}

func (m *Memory) Update(ctx context.Context, table string, key Key, upd Update, cond *ConditionSet) (Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, err := m.table(table)
	if err != nil {
		return nil, err
	}
	ks, err := keyString(t.schema.Key, key)
	if err != nil {
		return nil, appErrors.NewInternal("bad key", err)
	}
	existing := t.items[ks]
	if cond != nil {
		ok, err := evalConditionSet(existing, cond)
		if err != nil {
			return nil, appErrors.NewInternal("bad condition", err)
		}
		if !ok {
			return nil, appErrors.NewConflict(appErrors.CodeConditionViolated, "conditional check failed")
		}
	}

	item := copyItem(existing)
	if item == nil {
		item = copyItem(key)
	}
	if err := applyUpdate(item, upd); err != nil {
		return nil, appErrors.NewInternal("bad update", err)
	}
	t.items[ks] = item
	return copyItem(item), nil
}

func (m *Memory) Delete(ctx context.Context, table string, key Key, cond *ConditionSet) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, err := m.table(table)
	if err != nil {
		return err
	}
	ks, err := keyString(t.schema.Key, key)
	if err != nil {
		return appErrors.NewInternal("bad key", err)
	}
	if cond != nil {
		ok, err := evalConditionSet(t.items[ks], cond)
		if err != nil {
			return appErrors.NewInternal("bad condition", err)
		}
		if !ok {
			return appErrors.NewConflict(appErrors.CodeConditionViolated, "conditional check failed")
		}
	}
	delete(t.items, ks)
	return nil
}

func (m *Memory) Query(ctx context.Context, table string, q Query) (Page, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, err := m.table(table)
	if err != nil {
		return Page{}, err
	}

	indexKey := t.schema.Key
	if q.IndexName != "" {
		found := false
		for _, idx := range t.schema.Indexes {
			if idx.Name == q.IndexName {
				indexKey = idx.Key
				found = true
				break
			}
		}
		if !found {
			return Page{}, appErrors.NewInternal(fmt.Sprintf("index %s does not exist on %s", q.IndexName, table), nil)
		}
	}

	matched, err := m.matchKeyConditions(t, indexKey, q)
	if err != nil {
		return Page{}, err
	}

	sortItems(matched, t.schema.Key, indexKey)
	if q.ScanDescending {
		for i, j := 0, len(matched)-1; i < j; i, j = i+1, j-1 {
			matched[i], matched[j] = matched[j], matched[i]
		}
	}

	start := 0
	if len(q.ExclusiveStartKey) > 0 {
		startKS, err := keyString(t.schema.Key, q.ExclusiveStartKey)
		if err != nil {
			return Page{}, appErrors.NewInternal("bad start key", err)
		}
		for i, item := range matched {
			itemKS, _ := keyString(t.schema.Key, item)
			if itemKS == startKS {
				start = i + 1
				break
			}
		}
	}
	matched = matched[start:]

	var lastKey Key
	if q.Limit > 0 && int(q.Limit) < len(matched) {
		window := matched[:q.Limit]
		lastKey = pageKey(window[len(window)-1], t.schema.Key, indexKey)
		matched = window
	}

	var items []Item
	for _, item := range matched {
		ok, err := evalConditions(item, q.Filter)
		if err != nil {
			return Page{}, appErrors.NewInternal("bad filter", err)
		}
		if !ok {
			continue
		}
		out := copyItem(item)
		if len(q.Projection) > 0 {
			out = projectItem(out, q.Projection)
		}
		items = append(items, out)
	}
	return Page{Items: items, LastEvaluatedKey: lastKey}, nil
}

func (m *Memory) matchKeyConditions(t *memTable, indexKey KeySchema, q Query) ([]Item, error) {
	var matched []Item
	for _, item := range t.items {
		// sparse index: items missing the index key attrs are invisible
		if q.IndexName != "" {
			if _, ok := item[indexKey.HashKey]; !ok {
				continue
			}
			if indexKey.RangeKey != "" {
				if _, ok := item[indexKey.RangeKey]; !ok {
					continue
				}
			}
		}
		ok := true
		for _, c := range q.KeyConditions {
			if c.Attr != indexKey.HashKey && c.Attr != indexKey.RangeKey {
				return nil, appErrors.NewInternal(fmt.Sprintf("key condition on non-key attribute %s", c.Attr), nil)
			}
			holds, err := evalCondition(item, c)
			if err != nil {
				return nil, appErrors.NewInternal("bad key condition", err)
			}
			if !holds {
				ok = false
				break
			}
		}
		if ok {
			matched = append(matched, item)
		}
	}
	return matched, nil
}

func sortItems(items []Item, tableKey, indexKey KeySchema) {
	sort.SliceStable(items, func(i, j int) bool {
		if indexKey.RangeKey != "" {
			a, aok := items[i][indexKey.RangeKey]
			b, bok := items[j][indexKey.RangeKey]
			if aok && bok {
				if cmp, ok := attrCompare(a, b); ok && cmp != 0 {
					return cmp < 0
				}
			}
		}
		ai, _ := keyString(tableKey, items[i])
		bi, _ := keyString(tableKey, items[j])
		return ai < bi
	})
}

func pageKey(item Item, tableKey, indexKey KeySchema) Key {
	key := Key{}
	add := func(attr string) {
		if attr == "" {
			return
		}
		if v, ok := item[attr]; ok {
			key[attr] = copyAttr(v)
		}
	}
	add(tableKey.HashKey)
	add(tableKey.RangeKey)
	add(indexKey.HashKey)
	add(indexKey.RangeKey)
	return key
}

func projectItem(item Item, projection []string) Item {
	out := Item{}
	for _, attr := range projection {
		if v, ok := item[attr]; ok {
			out[attr] = v
		}
	}
	return out
}

func (m *Memory) Scan(ctx context.Context, table string) ([]Item, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, err := m.table(table)
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(t.items))
	for k := range t.items {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	items := make([]Item, 0, len(keys))
	for _, k := range keys {
		items = append(items, copyItem(t.items[k]))
	}
	return items, nil
}

func (m *Memory) BatchWrite(ctx context.Context, table string, writes []Write) error {
	for _, w := range writes {
		var err error
		if w.Put != nil {
			err = m.Put(ctx, table, w.Put, nil)
		} else {
			err = m.Delete(ctx, table, w.Delete, nil)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (m *Memory) BatchGet(ctx context.Context, table string, keys []Key) ([]Item, error) {
	var items []Item
	for _, key := range keys {
		item, err := m.Get(ctx, table, key)
		if err != nil {
			return nil, err
		}
		if item != nil {
			items = append(items, item)
		}
	}
	return items, nil
}

func (m *Memory) CreateTable(ctx context.Context, schema TableSchema) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tables[schema.Name]; ok {
		return nil
	}
	m.tables[schema.Name] = &memTable{schema: schema, items: map[string]Item{}}
	return nil
}

func (m *Memory) DeleteTable(ctx context.Context, table string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.tables, table)
	return nil
}

func evalConditionSet(item Item, cs *ConditionSet) (bool, error) {
	ok, err := evalConditions(item, cs.All)
	if err != nil || !ok {
		return ok, err
	}
	if len(cs.Any) == 0 {
		return true, nil
	}
	for _, c := range cs.Any {
		holds, err := evalCondition(item, c)
		if err != nil {
			return false, err
		}
		if holds {
			return true, nil
		}
	}
	return false, nil
}

func evalConditions(item Item, conds []Condition) (bool, error) {
	for _, c := range conds {
		holds, err := evalCondition(item, c)
		if err != nil {
			return false, err
		}
		if !holds {
			return false, nil
		}
	}
	return true, nil
}

func evalCondition(item Item, c Condition) (bool, error) {
	if item == nil {
		return c.Kind == ConditionNotExists, nil
	}
	attr, found := resolvePath(item, c.Attr)
	switch c.Kind {
	case ConditionExists:
		return found, nil
	case ConditionNotExists:
		return !found, nil
	}
	if !found {
		return false, nil
	}
	val, err := marshalValue(c.Value)
	if err != nil {
		return false, err
	}
	switch c.Kind {
	case ConditionEquals:
		return attrEqual(attr, val), nil
	case ConditionNotEquals:
		return !attrEqual(attr, val), nil
	case ConditionLessEq:
		cmp, ok := attrCompare(attr, val)
		return ok && cmp <= 0, nil
	case ConditionGreaterEq:
		cmp, ok := attrCompare(attr, val)
		return ok && cmp >= 0, nil
	case ConditionContains:
		return evalContains(attr, val), nil
	case ConditionBeginsWith:
		as, aok := attr.(*types.AttributeValueMemberS)
		vs, vok := val.(*types.AttributeValueMemberS)
		return aok && vok && strings.HasPrefix(as.Value, vs.Value), nil
	}
	return false, fmt.Errorf("unknown condition kind %d", c.Kind)
}

func evalContains(attr, val types.AttributeValue) bool {
	switch t := attr.(type) {
	case *types.AttributeValueMemberS:
		vs, ok := val.(*types.AttributeValueMemberS)
		return ok && strings.Contains(t.Value, vs.Value)
	case *types.AttributeValueMemberSS:
		vs, ok := val.(*types.AttributeValueMemberS)
		if !ok {
			return false
		}
		for _, member := range t.Value {
			if member == vs.Value {
				return true
			}
		}
	case *types.AttributeValueMemberL:
		for _, member := range t.Value {
			if attrEqual(member, val) {
				return true
			}
		}
	}
	return false
}

func applyUpdate(item Item, upd Update) error {
	for attr, v := range upd.Set {
		if strings.Contains(attr, ".") {
			return fmt.Errorf("nested set paths are not supported")
		}
		av, err := marshalValue(v)
		if err != nil {
			return err
		}
		item[attr] = av
	}
	for attr, v := range upd.Add {
		av, err := marshalValue(v)
		if err != nil {
			return err
		}
		switch t := av.(type) {
		case *types.AttributeValueMemberN:
			delta, _ := numericValue(t)
			current := 0.0
			if existing, ok := item[attr]; ok {
				cur, curOK := numericValue(existing)
				if !curOK {
					return fmt.Errorf("ADD on non-numeric attribute %s", attr)
				}
				current = cur
			}
			item[attr] = &types.AttributeValueMemberN{Value: formatFloat(current + delta)}
		case *types.AttributeValueMemberSS:
			members := map[string]struct{}{}
			if existing, ok := item[attr].(*types.AttributeValueMemberSS); ok {
				for _, s := range existing.Value {
					members[s] = struct{}{}
				}
			}
			for _, s := range t.Value {
				members[s] = struct{}{}
			}
			merged := make([]string, 0, len(members))
			for s := range members {
				merged = append(merged, s)
			}
			sort.Strings(merged)
			item[attr] = &types.AttributeValueMemberSS{Value: merged}
		default:
			return fmt.Errorf("unsupported ADD value for %s", attr)
		}
	}
	for attr, v := range upd.DeleteFromSet {
		av, err := marshalValue(v)
		if err != nil {
			return err
		}
		remove, ok := av.(*types.AttributeValueMemberSS)
		if !ok {
			return fmt.Errorf("DELETE requires a string set for %s", attr)
		}
		existing, ok := item[attr].(*types.AttributeValueMemberSS)
		if !ok {
			continue
		}
		var kept []string
		for _, s := range existing.Value {
			drop := false
			for _, r := range remove.Value {
				if s == r {
					drop = true
					break
				}
			}
			if !drop {
				kept = append(kept, s)
			}
		}
		if len(kept) == 0 {
			delete(item, attr)
		} else {
			item[attr] = &types.AttributeValueMemberSS{Value: kept}
		}
	}
	for _, attr := range upd.Remove {
		delete(item, attr)
	}
	return nil
}

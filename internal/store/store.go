// Package store provides a typed adapter over a DynamoDB-style key-value
// store. Repositories talk to the Store interface only; the Dynamo
// implementation backs production and the Memory implementation backs tests.
package store

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// Item is a stored record as attribute values.
type Item = map[string]types.AttributeValue

// Key identifies a record by its primary key attributes.
type Key = map[string]types.AttributeValue

// StringSet marks a value that must be stored as a DynamoDB string set
// rather than a list.
type StringSet []string

// ConditionKind enumerates the supported condition operators.
type ConditionKind int

const (
	ConditionExists ConditionKind = iota
	ConditionNotExists
	ConditionEquals
	ConditionNotEquals
	ConditionLessEq
	ConditionGreaterEq
	ConditionContains
	ConditionBeginsWith
)

// Condition is a single predicate on an attribute. Attr may be a dotted path
// into nested maps (e.g. "Venue.Rooms").
type Condition struct {
	Attr  string
	Kind  ConditionKind
	Value any
}

// ConditionSet combines predicates: every condition in All must hold, and at
// least one condition in Any must hold when Any is non-empty.
type ConditionSet struct {
	All []Condition
	Any []Condition
}

// AttrExists requires the attribute to be present.
func AttrExists(attr string) Condition {
	return Condition{Attr: attr, Kind: ConditionExists}
}

// AttrNotExists requires the attribute to be absent.
func AttrNotExists(attr string) Condition {
	return Condition{Attr: attr, Kind: ConditionNotExists}
}

// Eq requires attribute equality.
func Eq(attr string, value any) Condition {
	return Condition{Attr: attr, Kind: ConditionEquals, Value: value}
}

// Ne requires attribute inequality.
func Ne(attr string, value any) Condition {
	return Condition{Attr: attr, Kind: ConditionNotEquals, Value: value}
}

// Le requires attribute <= value.
func Le(attr string, value any) Condition {
	return Condition{Attr: attr, Kind: ConditionLessEq, Value: value}
}

// Ge requires attribute >= value.
func Ge(attr string, value any) Condition {
	return Condition{Attr: attr, Kind: ConditionGreaterEq, Value: value}
}

// ContainsValue requires a set/list attribute to contain the value, or a
// string attribute to contain the substring.
func ContainsValue(attr string, value any) Condition {
	return Condition{Attr: attr, Kind: ConditionContains, Value: value}
}

// HasPrefix requires a string attribute to begin with the value.
func HasPrefix(attr string, value string) Condition {
	return Condition{Attr: attr, Kind: ConditionBeginsWith, Value: value}
}

// Update describes mutations applied to a single record. Add on a numeric
// attribute creates-or-increments; Add on a StringSet appends members.
// DeleteFromSet removes members from a string set.
type Update struct {
	Set           map[string]any
	Add           map[string]any
	DeleteFromSet map[string]any
	Remove        []string
}

// Query describes a single-page index query.
type Query struct {
	IndexName         string
	KeyConditions     []Condition
	Filter            []Condition
	Limit             int32
	ExclusiveStartKey Key
	ScanDescending    bool
	Projection        []string
}

// Page is one page of query results.
type Page struct {
	Items            []Item
	LastEvaluatedKey Key
}

// Write is one element of a batch write: exactly one of Put or Delete is set.
type Write struct {
	Put    Item
	Delete Key
}

// AttributeType is a DynamoDB scalar attribute type.
type AttributeType string

const (
	AttributeString AttributeType = "S"
	AttributeNumber AttributeType = "N"
)

// KeySchema describes a table or index primary key. RangeKey may be empty.
type KeySchema struct {
	HashKey   string
	HashType  AttributeType
	RangeKey  string
	RangeType AttributeType
}

// Index describes a secondary index.
type Index struct {
	Name   string
	Key    KeySchema
	Global bool
}

// TableSchema describes one table and its secondary indexes.
type TableSchema struct {
	Name    string
	Key     KeySchema
	Indexes []Index
}

// Store is the adapter contract implemented by Dynamo and Memory.
type Store interface {
	// Get returns the record at key, or nil when absent.
	Get(ctx context.Context, table string, key Key) (Item, error)
	// Put writes a record, subject to an optional condition.
	Put(ctx context.Context, table string, item Item, cond *ConditionSet) error
	// Update mutates a record and returns its new image.
	Update(ctx context.Context, table string, key Key, upd Update, cond *ConditionSet) (Item, error)
	// Delete removes a record, subject to an optional condition.
	Delete(ctx context.Context, table string, key Key, cond *ConditionSet) error
	// Query runs a single-page query.
	Query(ctx context.Context, table string, q Query) (Page, error)
	// Scan returns every record in a table.
	Scan(ctx context.Context, table string) ([]Item, error)
	// BatchWrite applies puts and deletes in chunks, retrying unprocessed items.
	BatchWrite(ctx context.Context, table string, writes []Write) error
	// BatchGet fetches many records by key; absent keys are skipped.
	BatchGet(ctx context.Context, table string, keys []Key) ([]Item, error)
	// CreateTable provisions a table and waits until it is usable.
	CreateTable(ctx context.Context, schema TableSchema) error
	// DeleteTable drops a table.
	DeleteTable(ctx context.Context, table string) error
}

// S builds a string attribute value.
func S(v string) types.AttributeValue {
	return &types.AttributeValueMemberS{Value: v}
}

// N builds a numeric attribute value from an integer.
func N(v int64) types.AttributeValue {
	return &types.AttributeValueMemberN{Value: formatInt(v)}
}

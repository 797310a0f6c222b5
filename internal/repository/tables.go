// Package repository implements the data access layer. Each entity gets its
// own table; cross-cutting reads go through local and global secondary
// indexes. Records embedded in other records (venue in occurrence, system in
// user, occurrence in agenda item) are snapshots kept fresh by fan-out.
package repository

import "github.com/a3888968/wiseguide-backend/internal/store"

// Index names referenced by queries.
const (
	NameIndex       = "NameIndex"
	StartIndex      = "StartIndex"
	VenueIDIndex    = "VenueIdIndex"
	EventIDIndex    = "EventIdIndex"
	EmailIndex      = "EmailIndex"
	SystemIndex     = "SystemIndex"
	OwnerIndex      = "OwnerIndex"
	OccurrenceIndex = "OccurrenceIndex"
)

// Tables resolves per-entity table names under a deployment prefix.
type Tables struct {
	Prefix string
}

func (t Tables) name(entity string) string { return t.Prefix + "-" + entity }

func (t Tables) Systems() string         { return t.name("systems") }
func (t Tables) Users() string           { return t.name("users") }
func (t Tables) Venues() string          { return t.name("venues") }
func (t Tables) Events() string          { return t.name("events") }
func (t Tables) Categories() string      { return t.name("categories") }
func (t Tables) Agendas() string         { return t.name("agendas") }
func (t Tables) AgendaItems() string     { return t.name("agendaItems") }
func (t Tables) GeoEvents() string       { return t.name("geoEvents") }
func (t Tables) VenueCounters() string   { return t.name("venueCounters") }
func (t Tables) EventCounters() string   { return t.name("eventCounters") }
func (t Tables) SuggestedEvents() string { return t.name("suggestedEvents") }

// Schemas returns the full set of table definitions for provisioning and for
// the in-memory store.
func (t Tables) Schemas() []store.TableSchema {
	s := store.AttributeString
	n := store.AttributeNumber
	return []store.TableSchema{
		{
			Name: t.Systems(),
			Key:  store.KeySchema{HashKey: "SystemId", HashType: s},
		},
		{
			Name: t.Users(),
			Key:  store.KeySchema{HashKey: "SystemId", HashType: s, RangeKey: "Username", RangeType: s},
			Indexes: []store.Index{
				{Name: EmailIndex, Key: store.KeySchema{HashKey: "SystemId", HashType: s, RangeKey: "Email", RangeType: s}},
			},
		},
		{
			Name: t.Venues(),
			Key:  store.KeySchema{HashKey: "SystemId", HashType: s, RangeKey: "VenueId", RangeType: s},
			Indexes: []store.Index{
				{Name: NameIndex, Key: store.KeySchema{HashKey: "SystemId", HashType: s, RangeKey: "Name", RangeType: s}},
			},
		},
		{
			Name: t.Events(),
			Key:  store.KeySchema{HashKey: "SystemId", HashType: s, RangeKey: "OccurrenceId", RangeType: s},
			Indexes: []store.Index{
				{Name: StartIndex, Key: store.KeySchema{HashKey: "SystemId", HashType: s, RangeKey: "Start", RangeType: n}},
				{Name: VenueIDIndex, Key: store.KeySchema{HashKey: "SystemId", HashType: s, RangeKey: "VenueId", RangeType: s}},
				{Name: EventIDIndex, Key: store.KeySchema{HashKey: "SystemId", HashType: s, RangeKey: "EventId", RangeType: s}},
			},
		},
		{
			Name: t.Categories(),
			Key:  store.KeySchema{HashKey: "SystemId", HashType: s, RangeKey: "Name", RangeType: s},
		},
		{
			Name: t.Agendas(),
			Key:  store.KeySchema{HashKey: "SystemId", HashType: s, RangeKey: "AgendaId", RangeType: s},
			Indexes: []store.Index{
				{Name: OwnerIndex, Global: true, Key: store.KeySchema{HashKey: "Owner", HashType: s, RangeKey: "AgendaId", RangeType: s}},
			},
		},
		{
			Name: t.AgendaItems(),
			Key:  store.KeySchema{HashKey: "SystemId", HashType: s, RangeKey: "AgendaItemId", RangeType: s},
			Indexes: []store.Index{
				{Name: OccurrenceIndex, Global: true, Key: store.KeySchema{HashKey: "OccurrenceId", HashType: s, RangeKey: "AgendaItemId", RangeType: s}},
			},
		},
		{
			Name: t.GeoEvents(),
			Key:  store.KeySchema{HashKey: "SysVenueId", HashType: s, RangeKey: "DeviceId", RangeType: s},
		},
		{
			Name: t.VenueCounters(),
			Key:  store.KeySchema{HashKey: "SysVenueId", HashType: s, RangeKey: "Time", RangeType: n},
			Indexes: []store.Index{
				{Name: SystemIndex, Global: true, Key: store.KeySchema{HashKey: "SystemId", HashType: s, RangeKey: "Time", RangeType: n}},
			},
		},
		{
			Name: t.EventCounters(),
			Key:  store.KeySchema{HashKey: "SysEventId", HashType: s, RangeKey: "OccIdTime", RangeType: s},
			Indexes: []store.Index{
				{Name: SystemIndex, Global: true, Key: store.KeySchema{HashKey: "SystemId", HashType: s, RangeKey: "OccIdTime", RangeType: s}},
			},
		},
		{
			Name: t.SuggestedEvents(),
			Key:  store.KeySchema{HashKey: "TargetId", HashType: s},
		},
	}
}

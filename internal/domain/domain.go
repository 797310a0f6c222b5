// Package domain holds the core records of the application. Storage rows and
// HTTP views are separate representations with explicit converters.
package domain

// System is one deployment area: a city, campus or festival site.
type System struct {
	SystemID              string
	Name                  string
	Lat                   float64
	Lon                   float64
	AppendToLocationQuery string
	Locked                bool
	InAnalysisQueue       bool
}

// Role names a user may hold. A user can hold several.
const (
	RoleContributor = "contributor"
	RoleAdmin       = "admin"
)

// User is an account within a system. Accounts are scoped to their system:
// the same username may exist in two systems. The System snapshot is
// denormalized onto the user record and refreshed when the system changes.
type User struct {
	Username       string
	Email          string
	Name           string
	Biography      string
	Summary        string
	HashedPassword string
	Roles          []string
	System         System
}

// IsAdmin reports whether the user holds the admin role.
func (u User) IsAdmin() bool {
	for _, role := range u.Roles {
		if role == RoleAdmin {
			return true
		}
	}
	return false
}

// Venue is a place that hosts event occurrences.
type Venue struct {
	VenueID     string
	SystemID    string
	Name        string
	Description string
	Address     string
	Lat         float64
	Lon         float64
	Rooms       []string
	Contributor string
}

// Event is the shared identity of a set of occurrences.
type Event struct {
	EventID     string
	Name        string
	Description string
	Categories  []string
	Contributor string
}

// Occurrence is one scheduled happening of an event in one room of a venue.
// Event fields and the venue record are denormalized onto every occurrence.
type Occurrence struct {
	OccurrenceID string
	SystemID     string
	Event        Event
	Start        int64
	End          int64
	Room         string
	Venue        Venue
	IsCancelled  bool
}

// Category is a per-system label attached to events.
type Category struct {
	SystemID string
	Name     string
}

// Agenda is a user-curated list of occurrences.
type Agenda struct {
	AgendaID string
	SystemID string
	Owner    string
	Name     string
}

// AgendaItem mirrors a snapshot of an occurrence inside an agenda. The
// snapshot is refreshed best-effort when the occurrence changes.
type AgendaItem struct {
	AgendaID     string
	AgendaItemID string
	OccurrenceID string
	EventID      string
	Name         string
	Description  string
	Categories   []string
	Start        int64
	End          int64
	Room         string
	VenueName    string
	VenueAddress string
	VenueLat     float64
	VenueLon     float64
	IsCancelled  bool
}

// GeoEntry records the most recent accepted presence of a device at a venue.
// Username is kept for attribution; deduplication keys on the device.
type GeoEntry struct {
	SystemID string
	VenueID  string
	DeviceID string
	Username string
	Time     int64
}

// CounterBucket is a 30-minute attendance bucket.
type CounterBucket struct {
	Time  int64
	Count int64
}

// PopularVenue is an aggregated attendance ranking entry for a venue.
type PopularVenue struct {
	VenueID    string
	Name       string
	Total      int64
	TimeCounts []CounterBucket
}

// PopularEvent is an aggregated attendance ranking entry for an occurrence.
type PopularEvent struct {
	OccurrenceID string
	EventID      string
	Name         string
	Lat          float64
	Lon          float64
	Total        int64
	TimeCounts   []CounterBucket
}

// SuggestedEvent is a scored recommendation for a user or agenda.
type SuggestedEvent struct {
	EventID string
	Score   float64
}

// Package validation holds the field rules applied before any write reaches
// the repositories. Rules are declarative: each operation lists its checks
// as a table and the first failing check names the rejected field.
package validation

import (
	"regexp"
	"strings"

	"github.com/a3888968/wiseguide-backend/internal/domain"
	appErrors "github.com/a3888968/wiseguide-backend/pkg/errors"
)

// Field length bounds.
const (
	NameMin        = 3
	NameMax        = 30
	DescriptionMin = 1
	DescriptionMax = 3000
	AddressMin     = 1
	AddressMax     = 100
	RoomMin        = 1
	RoomMax        = 40
	PasswordMin    = 8
	BiographyMax   = 3000
	SummaryMax     = 200
)

var (
	usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_-]{3,30}$`)
	emailPattern    = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
)

type rule struct {
	code string
	ok   func() bool
}

func apply(rules []rule) error {
	for _, r := range rules {
		if !r.ok() {
			return appErrors.NewValidation(r.code, "invalid "+strings.TrimPrefix(r.code, "bad_"))
		}
	}
	return nil
}

func lengthBetween(s string, min, max int) bool {
	n := len([]rune(s))
	return n >= min && n <= max
}

func latOK(lat float64) bool { return lat >= -90 && lat <= 90 }
func lonOK(lon float64) bool { return lon >= -180 && lon <= 180 }

func roomsOK(rooms []string) bool {
	if len(rooms) == 0 {
		return false
	}
	seen := make(map[string]struct{}, len(rooms))
	for _, room := range rooms {
		room = strings.TrimSpace(room)
		if !lengthBetween(room, RoomMin, RoomMax) {
			return false
		}
		if _, dup := seen[room]; dup {
			return false
		}
		seen[room] = struct{}{}
	}
	return true
}

// Venue validates and trims a new venue.
func Venue(v *domain.Venue) error {
	v.Name = strings.TrimSpace(v.Name)
	v.Description = strings.TrimSpace(v.Description)
	v.Address = strings.TrimSpace(v.Address)
	for i, room := range v.Rooms {
		v.Rooms[i] = strings.TrimSpace(room)
	}
	return apply([]rule{
		{"bad_name", func() bool { return lengthBetween(v.Name, NameMin, NameMax) }},
		{"bad_description", func() bool { return lengthBetween(v.Description, DescriptionMin, DescriptionMax) }},
		{"bad_address", func() bool { return lengthBetween(v.Address, AddressMin, AddressMax) }},
		{"bad_lat", func() bool { return latOK(v.Lat) }},
		{"bad_lon", func() bool { return lonOK(v.Lon) }},
		{"bad_rooms", func() bool { return roomsOK(v.Rooms) }},
	})
}

// VenueChanges validates and trims a partial venue update. Nil fields are
// skipped.
func VenueChanges(name, description, address *string, lat, lon *float64) error {
	if name != nil {
		*name = strings.TrimSpace(*name)
	}
	if description != nil {
		*description = strings.TrimSpace(*description)
	}
	if address != nil {
		*address = strings.TrimSpace(*address)
	}
	return apply([]rule{
		{"bad_name", func() bool { return name == nil || lengthBetween(*name, NameMin, NameMax) }},
		{"bad_description", func() bool { return description == nil || lengthBetween(*description, DescriptionMin, DescriptionMax) }},
		{"bad_address", func() bool { return address == nil || lengthBetween(*address, AddressMin, AddressMax) }},
		{"bad_lat", func() bool { return lat == nil || latOK(*lat) }},
		{"bad_lon", func() bool { return lon == nil || lonOK(*lon) }},
	})
}

// Room validates and trims a single room name.
func Room(room *string) error {
	*room = strings.TrimSpace(*room)
	return apply([]rule{
		{"bad_room", func() bool { return lengthBetween(*room, RoomMin, RoomMax) }},
	})
}

// Event validates and trims event-level fields.
func Event(e *domain.Event) error {
	e.Name = strings.TrimSpace(e.Name)
	e.Description = strings.TrimSpace(e.Description)
	return apply([]rule{
		{"bad_name", func() bool { return lengthBetween(e.Name, NameMin, NameMax) }},
		{"bad_description", func() bool { return lengthBetween(e.Description, DescriptionMin, DescriptionMax) }},
	})
}

// EventChanges validates a partial event edit.
func EventChanges(name, description *string, categories []string) error {
	if name != nil {
		*name = strings.TrimSpace(*name)
	}
	if description != nil {
		*description = strings.TrimSpace(*description)
	}
	return apply([]rule{
		{"bad_name", func() bool { return name == nil || lengthBetween(*name, NameMin, NameMax) }},
		{"bad_description", func() bool { return description == nil || lengthBetween(*description, DescriptionMin, DescriptionMax) }},
		{"bad_categories", func() bool { return categories == nil || len(categories) > 0 }},
	})
}

// Occurrence validates one occurrence interval and room reference.
type Occurrence struct {
	VenueID string
	Room    string
	Start   int64
	End     int64
}

// Occurrences validates the occurrence list of an event write.
func Occurrences(occs []Occurrence) error {
	return apply([]rule{
		{"bad_occurrences", func() bool { return len(occs) > 0 }},
		{"bad_occurrences", func() bool {
			for _, o := range occs {
				if o.VenueID == "" || o.End <= o.Start {
					return false
				}
				if !lengthBetween(strings.TrimSpace(o.Room), RoomMin, RoomMax) {
					return false
				}
			}
			return true
		}},
	})
}

// OccurrenceChanges validates a partial occurrence update.
func OccurrenceChanges(start, end *int64, room *string) error {
	if room != nil {
		*room = strings.TrimSpace(*room)
	}
	return apply([]rule{
		{"bad_start", func() bool { return start == nil || end == nil || *end > *start }},
		{"bad_room", func() bool { return room == nil || lengthBetween(*room, RoomMin, RoomMax) }},
	})
}

// User validates and trims a new user account.
func User(u *domain.User, password string) error {
	u.Username = strings.TrimSpace(u.Username)
	u.Email = strings.TrimSpace(u.Email)
	return apply([]rule{
		{"bad_username", func() bool { return usernamePattern.MatchString(u.Username) }},
		{"bad_email", func() bool { return emailPattern.MatchString(u.Email) }},
		{"bad_password", func() bool { return len(password) >= PasswordMin }},
	})
}

// UserChanges validates a partial account update. Nil fields are skipped;
// a non-nil role set must only hold known roles.
func UserChanges(email, name, biography, summary, password *string, roles []string) error {
	if email != nil {
		*email = strings.TrimSpace(*email)
	}
	if name != nil {
		*name = strings.TrimSpace(*name)
	}
	if biography != nil {
		*biography = strings.TrimSpace(*biography)
	}
	if summary != nil {
		*summary = strings.TrimSpace(*summary)
	}
	return apply([]rule{
		{"bad_email", func() bool { return email == nil || emailPattern.MatchString(*email) }},
		{"bad_name", func() bool { return name == nil || lengthBetween(*name, NameMin, NameMax) }},
		{"bad_biography", func() bool { return biography == nil || lengthBetween(*biography, 0, BiographyMax) }},
		{"bad_summary", func() bool { return summary == nil || lengthBetween(*summary, 0, SummaryMax) }},
		{"bad_password", func() bool { return password == nil || len(*password) >= PasswordMin }},
		{"bad_role", func() bool {
			if roles == nil {
				return true
			}
			if len(roles) == 0 {
				return false
			}
			for _, role := range roles {
				if role != domain.RoleContributor && role != domain.RoleAdmin {
					return false
				}
			}
			return true
		}},
	})
}

// Category validates and trims a category name.
func Category(name *string) error {
	*name = strings.TrimSpace(*name)
	return apply([]rule{
		{"bad_name", func() bool { return lengthBetween(*name, NameMin, NameMax) }},
	})
}

// Agenda validates and trims an agenda name.
func Agenda(name *string) error {
	*name = strings.TrimSpace(*name)
	return apply([]rule{
		{"bad_name", func() bool { return lengthBetween(*name, NameMin, NameMax) }},
	})
}

// System validates and trims a system record.
func System(s *domain.System) error {
	s.Name = strings.TrimSpace(s.Name)
	return apply([]rule{
		{"bad_systemid", func() bool { return usernamePattern.MatchString(s.SystemID) }},
		{"bad_name", func() bool { return lengthBetween(s.Name, NameMin, NameMax) }},
		{"bad_lat", func() bool { return latOK(s.Lat) }},
		{"bad_lon", func() bool { return lonOK(s.Lon) }},
	})
}

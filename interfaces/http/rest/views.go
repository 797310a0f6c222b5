package rest

import (
	"github.com/a3888968/wiseguide-backend/internal/domain"
	"github.com/a3888968/wiseguide-backend/internal/geocode"
)

// Response views. Different endpoints expose different slices of the same
// records: a listing under a venue does not repeat the venue, a full
// occurrence carries everything.

type SystemView struct {
	SystemID string  `json:"systemId"`
	Name     string  `json:"name"`
	Lat      float64 `json:"lat"`
	Lon      float64 `json:"lon"`
	Locked   bool    `json:"locked"`
}

type UserView struct {
	Username  string     `json:"username"`
	Email     string     `json:"email"`
	Name      string     `json:"name,omitempty"`
	Biography string     `json:"biography,omitempty"`
	Summary   string     `json:"summary,omitempty"`
	Roles     []string   `json:"roles"`
	IsAdmin   bool       `json:"isAdmin"`
	System    SystemView `json:"system"`
}

type VenueBasicView struct {
	VenueID string  `json:"venueId"`
	Name    string  `json:"name"`
	Address string  `json:"address"`
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
}

type VenueFullView struct {
	VenueBasicView
	Description string   `json:"description"`
	Rooms       []string `json:"rooms"`
	Contributor string   `json:"contributor"`
}

type EventBasicView struct {
	EventID    string   `json:"eventId"`
	Name       string   `json:"name"`
	Categories []string `json:"categories"`
}

type EventFullView struct {
	EventBasicView
	Description string `json:"description"`
	Contributor string `json:"contributor"`
}

type OccurrenceFullView struct {
	OccurrenceID string         `json:"occurrenceId"`
	Event        EventFullView  `json:"event"`
	Start        int64          `json:"start"`
	End          int64          `json:"end"`
	Room         string         `json:"room"`
	IsCancelled  bool           `json:"isCancelled"`
	Venue        VenueBasicView `json:"venue"`
}

type OccurrenceInVenueView struct {
	OccurrenceID string         `json:"occurrenceId"`
	Event        EventBasicView `json:"event"`
	Start        int64          `json:"start"`
	End          int64          `json:"end"`
	Room         string         `json:"room"`
	IsCancelled  bool           `json:"isCancelled"`
}

type OccurrenceInEventView struct {
	OccurrenceID string         `json:"occurrenceId"`
	Start        int64          `json:"start"`
	End          int64          `json:"end"`
	Room         string         `json:"room"`
	IsCancelled  bool           `json:"isCancelled"`
	Venue        VenueBasicView `json:"venue"`
}

type AgendaView struct {
	AgendaID string `json:"agendaId"`
	Name     string `json:"name"`
	Owner    string `json:"owner"`
}

type AgendaItemView struct {
	OccurrenceID string   `json:"occurrenceId"`
	EventID      string   `json:"eventId"`
	Name         string   `json:"name"`
	Description  string   `json:"description"`
	Categories   []string `json:"categories"`
	Start        int64    `json:"start"`
	End          int64    `json:"end"`
	Room         string   `json:"room"`
	VenueName    string   `json:"venueName"`
	VenueAddress string   `json:"venueAddress"`
	VenueLat     float64  `json:"venueLat"`
	VenueLon     float64  `json:"venueLon"`
	IsCancelled  bool     `json:"isCancelled"`
}

type CounterBucketView struct {
	Time  int64 `json:"time"`
	Count int64 `json:"count"`
}

type PopularVenueView struct {
	VenueID    string              `json:"venueId"`
	Name       string              `json:"name"`
	Total      int64               `json:"total"`
	TimeCounts []CounterBucketView `json:"timeCounts"`
}

type PopularEventView struct {
	OccurrenceID string              `json:"occurrenceId"`
	EventID      string              `json:"eventId"`
	Name         string              `json:"name"`
	Lat          float64             `json:"lat"`
	Lon          float64             `json:"lon"`
	Total        int64               `json:"total"`
	TimeCounts   []CounterBucketView `json:"timeCounts"`
}

type SuggestedEventView struct {
	EventID string  `json:"eventId"`
	Score   float64 `json:"score"`
}

type LocationView struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

func toSystemView(s domain.System) SystemView {
	return SystemView{SystemID: s.SystemID, Name: s.Name, Lat: s.Lat, Lon: s.Lon, Locked: s.Locked}
}

func toUserView(u domain.User) UserView {
	return UserView{
		Username:  u.Username,
		Email:     u.Email,
		Name:      u.Name,
		Biography: u.Biography,
		Summary:   u.Summary,
		Roles:     u.Roles,
		IsAdmin:   u.IsAdmin(),
		System:    toSystemView(u.System),
	}
}

func toVenueBasicView(v domain.Venue) VenueBasicView {
	return VenueBasicView{VenueID: v.VenueID, Name: v.Name, Address: v.Address, Lat: v.Lat, Lon: v.Lon}
}

func toVenueFullView(v domain.Venue) VenueFullView {
	return VenueFullView{
		VenueBasicView: toVenueBasicView(v),
		Description:    v.Description,
		Rooms:          v.Rooms,
		Contributor:    v.Contributor,
	}
}

func toEventBasicView(e domain.Event) EventBasicView {
	return EventBasicView{EventID: e.EventID, Name: e.Name, Categories: e.Categories}
}

func toEventFullView(e domain.Event) EventFullView {
	return EventFullView{EventBasicView: toEventBasicView(e), Description: e.Description, Contributor: e.Contributor}
}

func toOccurrenceFullView(o domain.Occurrence) OccurrenceFullView {
	return OccurrenceFullView{
		OccurrenceID: o.OccurrenceID,
		Event:        toEventFullView(o.Event),
		Start:        o.Start,
		End:          o.End,
		Room:         o.Room,
		IsCancelled:  o.IsCancelled,
		Venue:        toVenueBasicView(o.Venue),
	}
}

func toOccurrenceInVenueView(o domain.Occurrence) OccurrenceInVenueView {
	return OccurrenceInVenueView{
		OccurrenceID: o.OccurrenceID,
		Event:        toEventBasicView(o.Event),
		Start:        o.Start,
		End:          o.End,
		Room:         o.Room,
		IsCancelled:  o.IsCancelled,
	}
}

func toOccurrenceInEventView(o domain.Occurrence) OccurrenceInEventView {
	return OccurrenceInEventView{
		OccurrenceID: o.OccurrenceID,
		Start:        o.Start,
		End:          o.End,
		Room:         o.Room,
		IsCancelled:  o.IsCancelled,
		Venue:        toVenueBasicView(o.Venue),
	}
}

func toAgendaView(a domain.Agenda) AgendaView {
	return AgendaView{AgendaID: a.AgendaID, Name: a.Name, Owner: a.Owner}
}

func toAgendaItemView(i domain.AgendaItem) AgendaItemView {
	return AgendaItemView{
		OccurrenceID: i.OccurrenceID,
		EventID:      i.EventID,
		Name:         i.Name,
		Description:  i.Description,
		Categories:   i.Categories,
		Start:        i.Start,
		End:          i.End,
		Room:         i.Room,
		VenueName:    i.VenueName,
		VenueAddress: i.VenueAddress,
		VenueLat:     i.VenueLat,
		VenueLon:     i.VenueLon,
		IsCancelled:  i.IsCancelled,
	}
}

func toCounterBucketViews(buckets []domain.CounterBucket) []CounterBucketView {
	views := make([]CounterBucketView, len(buckets))
	for i, b := range buckets {
		views[i] = CounterBucketView{Time: b.Time, Count: b.Count}
	}
	return views
}

func toPopularVenueView(p domain.PopularVenue) PopularVenueView {
	return PopularVenueView{
		VenueID:    p.VenueID,
		Name:       p.Name,
		Total:      p.Total,
		TimeCounts: toCounterBucketViews(p.TimeCounts),
	}
}

func toPopularEventView(p domain.PopularEvent) PopularEventView {
	return PopularEventView{
		OccurrenceID: p.OccurrenceID,
		EventID:      p.EventID,
		Name:         p.Name,
		Lat:          p.Lat,
		Lon:          p.Lon,
		Total:        p.Total,
		TimeCounts:   toCounterBucketViews(p.TimeCounts),
	}
}

func toLocationView(l *geocode.Location) *LocationView {
	if l == nil {
		return nil
	}
	return &LocationView{Lat: l.Lat, Lon: l.Lon}
}

// Package domain contains the core data types for the itinerary planner.
// This package has no dependencies on other internal packages and is imported
// by every other internal package (itinerary, syncer, repo, service, handler).
//
// JSON field names follow the browser client so payloads can be exchanged
// with it unchanged.
package domain

// Trip is the top-level planning unit: a named date range made of ordered Days.
//
// Days is never empty while the trip exists and CurrentDayIndex always points
// into it. When IsLocked is set only the lock itself may be toggled.
type Trip struct {
	ID              string     `json:"id" validate:"required"`
	Name            string     `json:"name"`
	Destination     string     `json:"destination"`
	StartDate       string     `json:"startDate"` // "2006-01-02"
	Outbound        FlightInfo `json:"outbound"`
	Inbound         FlightInfo `json:"inbound"`
	Days            []Day      `json:"days" validate:"required,min=1,dive"`
	CurrentDayIndex int        `json:"currentDayIndex" validate:"gte=0"`
	IsLocked        bool       `json:"isLocked,omitempty"`
}

// FlightInfo is the outbound or inbound flight of a trip.
// It has no identity and is replaced field by field.
type FlightInfo struct {
	FlightNo   string `json:"flightNo"`
	DepTime    string `json:"depTime"`
	ArrTime    string `json:"arrTime"`
	DepAirport string `json:"depAirport"`
	ArrAirport string `json:"arrAirport"`
}

// FlightDirection selects which of a trip's two flights an update targets.
type FlightDirection string

const (
	Outbound FlightDirection = "outbound"
	Inbound  FlightDirection = "inbound"
)

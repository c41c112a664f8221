package model

import (
	"errors"
	"fmt"
	"strings"
)

// DutyStatus is one of the four hours-of-service duty categories.
type DutyStatus string

const (
	OffDuty          DutyStatus = "off_duty"
	SleeperBerth     DutyStatus = "sleeper_berth"
	Driving          DutyStatus = "driving"
	OnDutyNotDriving DutyStatus = "on_duty_not_driving"
)

// Statuses lists the duty statuses in chart order (top to bottom).
var Statuses = []DutyStatus{OffDuty, SleeperBerth, Driving, OnDutyNotDriving}

// Label returns the human-readable name of the status.
func (s DutyStatus) Label() string {
	switch s {
	case OffDuty:
		return "Off Duty"
	case SleeperBerth:
		return "Sleeper Berth"
	case Driving:
		return "Driving"
	case OnDutyNotDriving:
		return "On Duty (Not Driving)"
	}
	return string(s)
}

// Short returns the abbreviation used as a chart row label.
func (s DutyStatus) Short() string {
	switch s {
	case OffDuty:
		return "OFF"
	case SleeperBerth:
		return "SB"
	case Driving:
		return "DRIV"
	case OnDutyNotDriving:
		return "ON"
	}
	return "??"
}

// Valid reports whether s is one of the four known statuses.
func (s DutyStatus) Valid() bool {
	for _, known := range Statuses {
		if s == known {
			return true
		}
	}
	return false
}

// ParseEventType maps an API event_type to a DutyStatus. Matching is
// case-insensitive. Unknown values map to OffDuty and ok is false so callers
// can report them.
func ParseEventType(eventType string) (status DutyStatus, ok bool) {
	switch strings.ToLower(strings.TrimSpace(eventType)) {
	case "off_duty":
		return OffDuty, true
	case "sleeper", "sleeper_berth":
		return SleeperBerth, true
	case "driving":
		return Driving, true
	case "on_duty", "on_duty_not_driving":
		return OnDutyNotDriving, true
	}
	return OffDuty, false
}

// EnRoute is the location sentinel the API uses for intervals without a stop.
const EnRoute = "En Route"

// DutyInterval is a raw duty-status record as returned by the daily log endpoint.
// Timestamps are kept as strings; they are parsed during reconstruction so a
// single malformed record does not fail the whole response.
type DutyInterval struct {
	StartTime string  `json:"start_time"`
	EndTime   string  `json:"end_time"`
	EventType string  `json:"event_type"`
	Location  *string `json:"location"`
	Trip      int64   `json:"trip"`
}

// StatusChange is the payload of the duty status change form.
type StatusChange struct {
	NewStatus   DutyStatus `json:"new_status"`
	Location    string     `json:"location"`
	Coordinates *string    `json:"coordinates"`
	Remarks     string     `json:"remarks"`
}

// ErrStatusChangeIncomplete is returned when a required form field is missing.
var ErrStatusChangeIncomplete = errors.New("new status and location are required")

// NewStatusChange builds a StatusChange. Coordinates are only attached when
// both lat and lng are given.
func NewStatusChange(status DutyStatus, location string, lat, lng *float64, remarks string) StatusChange {
	sc := StatusChange{
		NewStatus: status,
		Location:  strings.TrimSpace(location),
		Remarks:   remarks,
	}
	if lat != nil && lng != nil {
		coords := fmt.Sprintf("%g,%g", *lat, *lng)
		sc.Coordinates = &coords
	}
	return sc
}

// Validate checks the required fields.
func (sc StatusChange) Validate() error {
	if sc.NewStatus == "" || sc.Location == "" {
		return ErrStatusChangeIncomplete
	}
	if !sc.NewStatus.Valid() {
		return fmt.Errorf("unknown duty status %q (want one of off_duty, sleeper_berth, driving, on_duty_not_driving)", sc.NewStatus)
	}
	return nil
}

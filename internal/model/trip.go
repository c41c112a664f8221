package model

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Trip statuses as reported by the tracking API.
const (
	TripPlanned    = "planned"
	TripInProgress = "in_progress"
	TripCompleted  = "completed"
	TripCancelled  = "cancelled"
)

// Trip is a single trip as returned by /api/tracking/list/.
type Trip struct {
	ID                 int64           `json:"id"`
	Title              string          `json:"title"`
	Status             string          `json:"status"`
	Description        string          `json:"description"`
	PickupLocation     string          `json:"pickup_location"`
	DropoffLocation    string          `json:"dropoff_location"`
	CurrentLocation    string          `json:"current_location"`
	PickupCoordinates  Coordinates     `json:"pickup_coordinates"`
	DropoffCoordinates Coordinates     `json:"dropoff_coordinates"`
	Route              json.RawMessage `json:"route,omitempty"`
}

// DisplayTitle returns the title, falling back to "Trip <id>".
func (t Trip) DisplayTitle() string {
	if strings.TrimSpace(t.Title) != "" {
		return t.Title
	}
	return "Trip " + strconv.FormatInt(t.ID, 10)
}

// Distance returns the great-circle distance between pickup and dropoff in
// miles. ok is false when either coordinate is missing.
func (t Trip) Distance() (miles float64, ok bool) {
	if !t.PickupCoordinates.Valid || !t.DropoffCoordinates.Valid {
		return 0, false
	}
	return Haversine(t.PickupCoordinates, t.DropoffCoordinates), true
}

// ActiveTrip returns the first in-progress trip, or nil.
func ActiveTrip(trips []Trip) *Trip {
	for i := range trips {
		if trips[i].Status == TripInProgress {
			return &trips[i]
		}
	}
	return nil
}

const earthRadiusMiles = 3958.8

// Haversine returns the great-circle distance between a and b in miles.
func Haversine(a, b Coordinates) float64 {
	toRad := func(deg float64) float64 { return deg * math.Pi / 180 }
	dLat := toRad(b.Lat - a.Lat)
	dLng := toRad(b.Lng - a.Lng)
	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(a.Lat))*math.Cos(toRad(b.Lat))*math.Sin(dLng/2)*math.Sin(dLng/2)
	return earthRadiusMiles * 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

// Coordinates is a lat/lng pair. The API sends either "lat,lng" strings or
// [lat, lng] arrays; anything else decodes to an invalid (zero) value instead
// of failing the surrounding document.
type Coordinates struct {
	Lat   float64
	Lng   float64
	Valid bool
}

// UnmarshalJSON implements json.Unmarshaler.
func (c *Coordinates) UnmarshalJSON(data []byte) error {
	*c = Coordinates{}

	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		parts := strings.Split(s, ",")
		if len(parts) != 2 {
			return nil
		}
		c.set(parts[0], parts[1])
		return nil
	}

	var arr []json.RawMessage
	if err := json.Unmarshal(data, &arr); err != nil || len(arr) != 2 {
		return nil
	}
	c.set(unquote(arr[0]), unquote(arr[1]))
	return nil
}

// MarshalJSON implements json.Marshaler using the "lat,lng" form.
func (c Coordinates) MarshalJSON() ([]byte, error) {
	if !c.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(c.String())
}

// String returns "lat,lng".
func (c Coordinates) String() string {
	if !c.Valid {
		return ""
	}
	return strconv.FormatFloat(c.Lat, 'f', -1, 64) + "," + strconv.FormatFloat(c.Lng, 'f', -1, 64)
}

func (c *Coordinates) set(lat, lng string) {
	la, err1 := strconv.ParseFloat(strings.TrimSpace(lat), 64)
	ln, err2 := strconv.ParseFloat(strings.TrimSpace(lng), 64)
	if err1 != nil || err2 != nil || math.IsNaN(la) || math.IsNaN(ln) {
		return
	}
	c.Lat, c.Lng, c.Valid = la, ln, true
}

func unquote(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}

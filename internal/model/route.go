package model

// Point is a single lat/lng position on a route.
type Point struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Stop is a named waypoint on a computed route.
type Stop struct {
	ID       string `json:"id"`
	Location string `json:"location"`
	Point    *Point `json:"point,omitempty"`
	Reason   string `json:"reason"`
}

// Route is the normalized result of /api/routing/{id}.
type Route struct {
	TripTitle       string  `json:"trip_title"`
	DurationMinutes float64 `json:"duration"`
	Polyline        []Point `json:"polyline"`
	Stops           []Stop  `json:"stops"`
}

// Endpoints returns the start and end points of the route. Stops win over
// the polyline when there are at least two with positions.
func (r *Route) Endpoints() (start, end *Point) {
	var located []Point
	for _, s := range r.Stops {
		if s.Point != nil {
			located = append(located, *s.Point)
		}
	}
	if len(r.Stops) >= 2 && len(located) >= 2 {
		return &located[0], &located[len(located)-1]
	}
	if len(r.Polyline) >= 2 {
		return &r.Polyline[0], &r.Polyline[len(r.Polyline)-1]
	}
	return nil, nil
}

// Waypoints returns the stops between the first and last one.
func (r *Route) Waypoints() []Stop {
	if len(r.Stops) <= 2 {
		return nil
	}
	return r.Stops[1 : len(r.Stops)-1]
}

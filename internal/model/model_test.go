package model_test

import (
	"encoding/json"
	"errors"
	"math"
	"testing"

	"github.com/Tiliavir/hos-tracker/internal/model"
)

func TestParseEventType(t *testing.T) {
	tests := []struct {
		in     string
		want   model.DutyStatus
		wantOK bool
	}{
		{"off_duty", model.OffDuty, true},
		{"OFF_DUTY", model.OffDuty, true},
		{"sleeper", model.SleeperBerth, true},
		{"sleeper_berth", model.SleeperBerth, true},
		{"driving", model.Driving, true},
		{"on_duty", model.OnDutyNotDriving, true},
		{"on_duty_not_driving", model.OnDutyNotDriving, true},
		{"fueling", model.OffDuty, false},
		{"", model.OffDuty, false},
	}
	for _, tt := range tests {
		got, ok := model.ParseEventType(tt.in)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("ParseEventType(%q) = %q, %v; want %q, %v", tt.in, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestCoordinatesUnmarshal(t *testing.T) {
	tests := []struct {
		in        string
		wantValid bool
		lat, lng  float64
	}{
		{`"32.7767, -96.7970"`, true, 32.7767, -96.7970},
		{`[32.7767, -96.7970]`, true, 32.7767, -96.7970},
		{`["32.7767", "-96.7970"]`, true, 32.7767, -96.7970},
		{`null`, false, 0, 0},
		{`"nowhere"`, false, 0, 0},
		{`[1]`, false, 0, 0},
		{`{"lat": 1}`, false, 0, 0},
	}
	for _, tt := range tests {
		var c model.Coordinates
		if err := json.Unmarshal([]byte(tt.in), &c); err != nil {
			t.Fatalf("Unmarshal(%s): %v", tt.in, err)
		}
		if c.Valid != tt.wantValid {
			t.Errorf("Unmarshal(%s).Valid = %v, want %v", tt.in, c.Valid, tt.wantValid)
			continue
		}
		if c.Valid && (c.Lat != tt.lat || c.Lng != tt.lng) {
			t.Errorf("Unmarshal(%s) = %v,%v; want %v,%v", tt.in, c.Lat, c.Lng, tt.lat, tt.lng)
		}
	}
}

func TestTripDistance(t *testing.T) {
	var trip model.Trip
	body := `{"id": 7, "pickup_coordinates": "32.7767,-96.7970", "dropoff_coordinates": [29.7604, -95.3698]}`
	if err := json.Unmarshal([]byte(body), &trip); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	miles, ok := trip.Distance()
	if !ok {
		t.Fatal("expected a distance")
	}
	// Dallas to Houston is roughly 225 miles as the crow flies.
	if math.Abs(miles-225) > 5 {
		t.Errorf("Distance = %.1f, want ~225", miles)
	}

	trip.DropoffCoordinates = model.Coordinates{}
	if _, ok := trip.Distance(); ok {
		t.Error("expected no distance without dropoff coordinates")
	}
}

func TestActiveTrip(t *testing.T) {
	trips := []model.Trip{
		{ID: 1, Status: model.TripPlanned},
		{ID: 2, Status: model.TripInProgress},
		{ID: 3, Status: model.TripInProgress},
	}
	active := model.ActiveTrip(trips)
	if active == nil || active.ID != 2 {
		t.Fatalf("ActiveTrip = %v, want trip 2", active)
	}
	if model.ActiveTrip(trips[:1]) != nil {
		t.Error("expected no active trip")
	}
}

func TestStatusChangeValidate(t *testing.T) {
	lat, lng := 32.5, -96.25
	sc := model.NewStatusChange(model.Driving, "  Dallas, TX ", &lat, &lng, "")
	if err := sc.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if sc.Location != "Dallas, TX" {
		t.Errorf("Location = %q", sc.Location)
	}
	if sc.Coordinates == nil || *sc.Coordinates != "32.5,-96.25" {
		t.Errorf("Coordinates = %v, want 32.5,-96.25", sc.Coordinates)
	}

	noCoords := model.NewStatusChange(model.Driving, "Dallas", &lat, nil, "")
	if noCoords.Coordinates != nil {
		t.Error("expected nil coordinates when lng is missing")
	}

	if err := model.NewStatusChange("", "Dallas", nil, nil, "").Validate(); !errors.Is(err, model.ErrStatusChangeIncomplete) {
		t.Errorf("missing status: err = %v", err)
	}
	if err := model.NewStatusChange(model.Driving, " ", nil, nil, "").Validate(); !errors.Is(err, model.ErrStatusChangeIncomplete) {
		t.Errorf("missing location: err = %v", err)
	}
	if err := model.NewStatusChange("napping", "Dallas", nil, nil, "").Validate(); err == nil {
		t.Error("expected error for unknown status")
	}
}

func TestRouteEndpoints(t *testing.T) {
	r := model.Route{Polyline: []model.Point{{Lat: 1, Lng: 2}, {Lat: 3, Lng: 4}, {Lat: 5, Lng: 6}}}
	start, end := r.Endpoints()
	if start == nil || end == nil || start.Lat != 1 || end.Lat != 5 {
		t.Fatalf("polyline endpoints = %v, %v", start, end)
	}

	r.Stops = []model.Stop{
		{Location: "A", Point: &model.Point{Lat: 10, Lng: 10}},
		{Location: "Fuel", Point: &model.Point{Lat: 11, Lng: 11}},
		{Location: "B", Point: &model.Point{Lat: 12, Lng: 12}},
	}
	start, end = r.Endpoints()
	if start.Lat != 10 || end.Lat != 12 {
		t.Errorf("stop endpoints = %v, %v", start, end)
	}
	if wp := r.Waypoints(); len(wp) != 1 || wp[0].Location != "Fuel" {
		t.Errorf("Waypoints = %v", wp)
	}
}

func TestUserDisplayName(t *testing.T) {
	var nilUser *model.User
	if got := nilUser.DisplayName(); got != "Driver" {
		t.Errorf("nil DisplayName = %q", got)
	}
	u := &model.User{Username: "jdoe", FirstName: "Jane", LastName: "Doe"}
	if got := u.DisplayName(); got != "Jane Doe" {
		t.Errorf("DisplayName = %q, want Jane Doe", got)
	}
}

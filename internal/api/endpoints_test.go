package api_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/Tiliavir/hos-tracker/internal/api"
	"github.com/Tiliavir/hos-tracker/internal/model"
)

func jsonHandler(t *testing.T, wantMethod, wantPath, body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != wantMethod || r.URL.Path != wantPath {
			t.Errorf("request = %s %s, want %s %s", r.Method, r.URL.Path, wantMethod, wantPath)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, body)
	}
}

func TestListTrips(t *testing.T) {
	body := `[{"id":1,"title":"Dallas run","status":"in_progress","pickup_coordinates":"32.7767,-96.7970"},
	          {"id":"bad"},
	          {"id":2,"status":"planned"}]`
	c := newClient(t, jsonHandler(t, http.MethodGet, "/api/tracking/list/", body), api.AuthFuncs{})

	trips, err := c.ListTrips(context.Background())
	if err != nil {
		t.Fatalf("ListTrips: %v", err)
	}
	if len(trips) != 2 {
		t.Fatalf("got %d trips, want 2 (malformed one skipped)", len(trips))
	}
	if !trips[0].PickupCoordinates.Valid {
		t.Error("pickup coordinates not parsed")
	}
	if a := model.ActiveTrip(trips); a == nil || a.ID != 1 {
		t.Errorf("ActiveTrip = %+v", a)
	}
}

func TestListTripsNonArray(t *testing.T) {
	c := newClient(t, jsonHandler(t, http.MethodGet, "/api/tracking/list/", `{"detail":"weird"}`), api.AuthFuncs{})

	trips, err := c.ListTrips(context.Background())
	if err != nil {
		t.Fatalf("ListTrips: %v", err)
	}
	if trips == nil || len(trips) != 0 {
		t.Errorf("trips = %v, want empty non-nil slice", trips)
	}
}

func TestDailyLogs(t *testing.T) {
	body := `[{"start_time":"2026-02-27T22:00:00Z","end_time":"2026-02-28T02:00:00Z","event_type":"driving","location":null,"trip":7}]`
	c := newClient(t, jsonHandler(t, http.MethodGet, "/api/tracking/trip/7/logs/2026-02-28/", body), api.AuthFuncs{})

	day := time.Date(2026, 2, 28, 0, 0, 0, 0, time.UTC)
	intervals, err := c.DailyLogs(context.Background(), 7, day)
	if err != nil {
		t.Fatalf("DailyLogs: %v", err)
	}
	if len(intervals) != 1 || intervals[0].EventType != "driving" || intervals[0].Location != nil {
		t.Errorf("intervals = %+v", intervals)
	}
}

func TestTripMutations(t *testing.T) {
	tests := []struct {
		name       string
		call       func(c *api.Client) error
		wantMethod string
		wantPath   string
		wantBody   map[string]any
	}{
		{
			name:       "start",
			call:       func(c *api.Client) error { _, err := c.StartTrip(context.Background(), 3); return err },
			wantMethod: http.MethodPost,
			wantPath:   "/api/tracking/3/start/",
		},
		{
			name:       "update",
			call:       func(c *api.Client) error { _, err := c.UpdateTrip(context.Background(), 3, model.TripCompleted); return err },
			wantMethod: http.MethodPut,
			wantPath:   "/api/tracking/3/update/",
			wantBody:   map[string]any{"status": "completed"},
		},
		{
			name: "change status",
			call: func(c *api.Client) error {
				lat, lng := 32.5, -96.25
				sc := model.NewStatusChange(model.Driving, " Dallas, TX ", &lat, &lng, "leaving yard")
				_, err := c.ChangeStatus(context.Background(), 3, sc)
				return err
			},
			wantMethod: http.MethodPost,
			wantPath:   "/api/tracking/trip/3/change-status/",
			wantBody: map[string]any{
				"new_status":  "driving",
				"location":    "Dallas, TX",
				"coordinates": "32.5,-96.25",
				"remarks":     "leaving yard",
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Method != tt.wantMethod || r.URL.Path != tt.wantPath {
					t.Errorf("request = %s %s", r.Method, r.URL.Path)
				}
				if tt.wantBody != nil {
					var got map[string]any
					if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
						t.Fatalf("decoding body: %v", err)
					}
					for k, v := range tt.wantBody {
						if got[k] != v {
							t.Errorf("body[%s] = %v, want %v", k, got[k], v)
						}
					}
				}
				w.WriteHeader(http.StatusOK)
			})
			c := newClient(t, h, api.AuthFuncs{})
			if err := tt.call(c); err != nil {
				t.Fatalf("call: %v", err)
			}
		})
	}
}

func TestChangeStatusValidates(t *testing.T) {
	c := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("invalid form must not reach the API")
	}), api.AuthFuncs{})

	_, err := c.ChangeStatus(context.Background(), 1, model.NewStatusChange(model.Driving, "  ", nil, nil, ""))
	if err == nil {
		t.Fatal("expected validation error")
	}
}

func TestRoute(t *testing.T) {
	tests := []struct {
		name          string
		body          string
		wantPolyline  int
		wantStops     int
		wantFirstStop *model.Point
	}{
		{
			name:          "array polyline and stops",
			body:          `{"trip_title":"T","duration":135,"route_polyline":[[-96.8,32.8],[-95.4,29.8]],"stops":[{"id":1,"location":"Dallas","coordinates":[-96.8,32.8],"reason":"Pickup"},{"location":"Houston","coordinates":[-95.4,29.8]}]}`,
			wantPolyline:  2,
			wantStops:     2,
			wantFirstStop: &model.Point{Lat: 32.8, Lng: -96.8},
		},
		{
			name:         "string polyline",
			body:         `{"route_polyline":"[[-96.8,32.8],[-96.0,31.0],[-95.4,29.8]]","stops":null}`,
			wantPolyline: 3,
		},
		{
			name: "encoded polyline falls back to empty",
			body: `{"route_polyline":"_p~iF~ps|U_ulLnnqC","stops":"nope"}`,
		},
		{
			name: "object polyline falls back to empty",
			body: `{"route_polyline":{"type":"LineString"}}`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newClient(t, jsonHandler(t, http.MethodGet, "/api/routing/9", tt.body), api.AuthFuncs{})
			r, err := c.Route(context.Background(), 9)
			if err != nil {
				t.Fatalf("Route: %v", err)
			}
			if len(r.Polyline) != tt.wantPolyline {
				t.Errorf("polyline = %d points, want %d", len(r.Polyline), tt.wantPolyline)
			}
			if len(r.Stops) != tt.wantStops {
				t.Errorf("stops = %d, want %d", len(r.Stops), tt.wantStops)
			}
			if tt.wantFirstStop != nil {
				if r.Stops[0].Point == nil || *r.Stops[0].Point != *tt.wantFirstStop {
					t.Errorf("first stop point = %+v", r.Stops[0].Point)
				}
				if r.Stops[0].ID != "1" || r.Stops[0].Reason != "pickup" || r.Stops[1].ID != "wp-1" {
					t.Errorf("stops = %+v", r.Stops)
				}
			}
		})
	}
}

func TestMe(t *testing.T) {
	c := newClient(t, jsonHandler(t, http.MethodGet, "/api/auth/me/", `{"id":5,"username":"jdoe@example.com","first_name":"Jane","last_name":"Doe"}`), api.AuthFuncs{})
	u, err := c.Me(context.Background())
	if err != nil {
		t.Fatalf("Me: %v", err)
	}
	if u.DisplayName() != "Jane Doe" {
		t.Errorf("DisplayName = %q", u.DisplayName())
	}
}

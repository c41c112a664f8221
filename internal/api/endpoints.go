package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Tiliavir/hos-tracker/internal/model"
	"github.com/Tiliavir/hos-tracker/internal/timecalc"
)

// Me returns the profile of the logged-in user.
func (c *Client) Me(ctx context.Context) (*model.User, error) {
	resp, err := c.Get(ctx, "/api/auth/me/")
	if err != nil {
		return nil, err
	}
	var u model.User
	if err := resp.Decode(&u); err != nil {
		return nil, err
	}
	return &u, nil
}

// ListTrips returns all trips of the user. A non-array body yields an empty list.
func (c *Client) ListTrips(ctx context.Context) ([]model.Trip, error) {
	resp, err := c.Get(ctx, "/api/tracking/list/")
	if err != nil {
		return nil, err
	}
	return decodeArray[model.Trip](resp, c.logger, "/api/tracking/list/"), nil
}

// GetTrip returns a single trip.
func (c *Client) GetTrip(ctx context.Context, id int64) (*model.Trip, error) {
	resp, err := c.Get(ctx, fmt.Sprintf("/api/tracking/%d", id))
	if err != nil {
		return nil, err
	}
	var t model.Trip
	if err := resp.Decode(&t); err != nil {
		return nil, err
	}
	return &t, nil
}

// StartTrip marks a planned trip as in progress.
func (c *Client) StartTrip(ctx context.Context, id int64) (*Response, error) {
	return c.Post(ctx, fmt.Sprintf("/api/tracking/%d/start/", id), nil)
}

// UpdateTrip sets the trip status (completed, cancelled, ...).
func (c *Client) UpdateTrip(ctx context.Context, id int64, status string) (*Response, error) {
	return c.Put(ctx, fmt.Sprintf("/api/tracking/%d/update/", id), map[string]string{"status": status})
}

// ChangeStatus records a duty status change on a trip.
func (c *Client) ChangeStatus(ctx context.Context, tripID int64, sc model.StatusChange) (*Response, error) {
	if err := sc.Validate(); err != nil {
		return nil, err
	}
	return c.Post(ctx, fmt.Sprintf("/api/tracking/trip/%d/change-status/", tripID), sc)
}

// DailyLogs returns the raw duty intervals of a trip for day.
func (c *Client) DailyLogs(ctx context.Context, tripID int64, day time.Time) ([]model.DutyInterval, error) {
	path := fmt.Sprintf("/api/tracking/trip/%d/logs/%s/", tripID, day.Format(timecalc.DateLayout))
	resp, err := c.Get(ctx, path)
	if err != nil {
		return nil, err
	}
	return decodeArray[model.DutyInterval](resp, c.logger, path), nil
}

// routeResponse is the raw shape of /api/routing/{id}.
type routeResponse struct {
	TripTitle string          `json:"trip_title"`
	Duration  float64         `json:"duration"`
	Polyline  json.RawMessage `json:"route_polyline"`
	Stops     json.RawMessage `json:"stops"`
}

type rawStop struct {
	ID          json.RawMessage `json:"id"`
	Location    json.RawMessage `json:"location"`
	Coordinates []float64       `json:"coordinates"`
	Reason      string          `json:"reason"`
}

// Route returns the computed route of a trip. Malformed polylines and stops
// are replaced by empty values.
func (c *Client) Route(ctx context.Context, tripID int64) (*model.Route, error) {
	resp, err := c.Get(ctx, fmt.Sprintf("/api/routing/%d", tripID))
	if err != nil {
		return nil, err
	}
	var raw routeResponse
	if err := resp.Decode(&raw); err != nil {
		return nil, err
	}
	return &model.Route{
		TripTitle:       raw.TripTitle,
		DurationMinutes: raw.Duration,
		Polyline:        parsePolyline(raw.Polyline, c.logger),
		Stops:           parseStops(raw.Stops, c.logger),
	}, nil
}

// parsePolyline accepts an array of [lng, lat] pairs or a string holding one.
func parsePolyline(raw json.RawMessage, logger *zap.Logger) []model.Point {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil
		}
		s = strings.TrimSpace(s)
		if !strings.HasPrefix(s, "[") || !strings.HasSuffix(s, "]") {
			logger.Warn("Polyline format not recognized")
			return nil
		}
		raw = json.RawMessage(s)
	}

	var pairs [][]float64
	if err := json.Unmarshal(raw, &pairs); err != nil {
		logger.Warn("Failed to parse polyline", zap.Error(err))
		return nil
	}
	points := make([]model.Point, 0, len(pairs))
	for _, p := range pairs {
		if len(p) < 2 {
			continue
		}
		points = append(points, model.Point{Lat: p[1], Lng: p[0]})
	}
	return points
}

func parseStops(raw json.RawMessage, logger *zap.Logger) []model.Stop {
	var items []json.RawMessage
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, &items); err != nil {
		logger.Warn("Route stops are not an array", zap.Error(err))
		return nil
	}

	stops := make([]model.Stop, 0, len(items))
	for i, item := range items {
		var rs rawStop
		if err := json.Unmarshal(item, &rs); err != nil {
			logger.Warn("Skipping malformed stop", zap.Int("index", i), zap.Error(err))
			continue
		}
		s := model.Stop{
			ID:       scalarString(rs.ID),
			Location: scalarString(rs.Location),
			Reason:   strings.ToLower(rs.Reason),
		}
		if s.ID == "" {
			s.ID = "wp-" + strconv.Itoa(i)
		}
		if len(rs.Coordinates) >= 2 {
			s.Point = &model.Point{Lat: rs.Coordinates[1], Lng: rs.Coordinates[0]}
		}
		stops = append(stops, s)
	}
	return stops
}

// scalarString renders a JSON string or number as text; anything else is "".
func scalarString(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	return ""
}

// decodeArray decodes a JSON array element by element. A non-array body or
// an undecodable element is logged and skipped.
func decodeArray[T any](resp *Response, logger *zap.Logger, endpoint string) []T {
	out := []T{}
	if resp == nil || resp.Kind != KindJSON {
		if resp != nil && resp.Status != http.StatusNoContent {
			logger.Warn("Expected a JSON array", zap.String("endpoint", endpoint))
		}
		return out
	}

	var items []json.RawMessage
	if err := json.Unmarshal(resp.Body, &items); err != nil {
		logger.Warn("Expected a JSON array", zap.String("endpoint", endpoint), zap.Error(err))
		return out
	}
	for i, item := range items {
		var v T
		if err := json.Unmarshal(item, &v); err != nil {
			logger.Warn("Skipping malformed element",
				zap.String("endpoint", endpoint),
				zap.Int("index", i),
				zap.Error(err),
			)
			continue
		}
		out = append(out, v)
	}
	return out
}

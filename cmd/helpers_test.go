package cmd

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"testing"

	"github.com/Tiliavir/hos-tracker/internal/api"
	"github.com/Tiliavir/hos-tracker/internal/guard"
	"github.com/Tiliavir/hos-tracker/internal/model"
	"github.com/Tiliavir/hos-tracker/internal/session"
)

func TestParseTripID(t *testing.T) {
	tests := []struct {
		in      string
		want    int64
		wantErr bool
	}{
		{"12", 12, false},
		{"#12", 12, false},
		{" 7 ", 7, false},
		{"0", 0, true},
		{"-3", 0, true},
		{"abc", 0, true},
		{"", 0, true},
	}
	for _, tt := range tests {
		got, err := parseTripID(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("parseTripID(%q) err = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("parseTripID(%q) = %d, want %d", tt.in, got, tt.want)
		}
		if err != nil && exitCode(err) != 1 {
			t.Errorf("parseTripID(%q) exit code = %d, want 1", tt.in, exitCode(err))
		}
	}
}

func TestParseDutyStatus(t *testing.T) {
	tests := []struct {
		in   string
		want model.DutyStatus
	}{
		{"driving", model.Driving},
		{"DRIV", model.Driving},
		{"off", model.OffDuty},
		{"off_duty", model.OffDuty},
		{"sb", model.SleeperBerth},
		{"sleeper", model.SleeperBerth},
		{"on", model.OnDutyNotDriving},
		{"on_duty", model.OnDutyNotDriving},
	}
	for _, tt := range tests {
		got, err := parseDutyStatus(tt.in)
		if err != nil || got != tt.want {
			t.Errorf("parseDutyStatus(%q) = %q, %v; want %q", tt.in, got, err, tt.want)
		}
	}
	if _, err := parseDutyStatus("napping"); err == nil {
		t.Error("expected error for unknown status")
	}
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"explicit", &exitError{code: 2, err: errors.New("disk")}, 2},
		{"expired", fmt.Errorf("loading: %w", api.ErrSessionExpired), 1},
		{"login required", guard.ErrLoginRequired, 1},
		{"refresh failed", session.ErrRefreshFailed, 1},
		{"not ready", session.ErrNotReady, 1},
		{"api error", fmt.Errorf("could not load trips: %w", &api.APIError{Status: 500}), 2},
		{"network", &url.Error{Op: "Get", URL: "http://x", Err: errors.New("refused")}, 2},
		{"other", errors.New("boom"), 1},
	}
	for _, tt := range tests {
		if got := exitCode(tt.err); got != tt.want {
			t.Errorf("%s: exitCode = %d, want %d", tt.name, got, tt.want)
		}
	}
}

func TestDescribeError(t *testing.T) {
	if got := describeError(api.ErrSessionExpired); !strings.Contains(got, "hos login") {
		t.Errorf("expired message = %q", got)
	}

	err := fmt.Errorf("registration failed: %w", &api.APIError{
		Status: 400,
		Body: map[string]any{
			"username": []any{"already taken"},
			"password": []any{"too short", "too common"},
		},
	})
	want := "Error: registration failed: api: status 400\n" +
		"  password: too short too common\n" +
		"  username: already taken"
	if got := describeError(err); got != want {
		t.Errorf("describeError =\n%s\nwant\n%s", got, want)
	}
}

func TestValidateRegistration(t *testing.T) {
	tests := []struct {
		name    string
		reg     model.Registration
		wantErr string
	}{
		{"ok", model.NewRegistration("Ann", "ann@example.com", "pw", "pw"), ""},
		{"missing name", model.NewRegistration("", "ann@example.com", "pw", "pw"), "required"},
		{"not an email", model.NewRegistration("Ann", "ann", "pw", "pw"), "e-mail"},
		{"mismatch", model.NewRegistration("Ann", "ann@example.com", "pw", "px"), "do not match"},
	}
	for _, tt := range tests {
		err := validateRegistration(tt.reg)
		switch {
		case tt.wantErr == "" && err != nil:
			t.Errorf("%s: unexpected error %v", tt.name, err)
		case tt.wantErr != "" && (err == nil || !strings.Contains(err.Error(), tt.wantErr)):
			t.Errorf("%s: err = %v, want %q", tt.name, err, tt.wantErr)
		}
	}
}

func TestPrompt(t *testing.T) {
	var out bytes.Buffer
	r := bufio.NewReader(strings.NewReader("driver@example.com\r\nsecret"))

	got, err := prompt(r, &out, "E-mail: ")
	if err != nil || got != "driver@example.com" {
		t.Errorf("first prompt = %q, %v", got, err)
	}
	got, err = prompt(r, &out, "Password: ")
	if err != nil || got != "secret" {
		t.Errorf("prompt at EOF = %q, %v", got, err)
	}
	if out.String() != "E-mail: Password: " {
		t.Errorf("labels = %q", out.String())
	}
}

func TestFormatTripLine(t *testing.T) {
	var trip model.Trip
	raw := `{"id":3,"title":"Dallas run","status":"in_progress","pickup_location":"Dallas, TX",
		"dropoff_location":"Houston, TX","pickup_coordinates":"32.7767,-96.7970",
		"dropoff_coordinates":[29.7604,-95.3698]}`
	if err := json.Unmarshal([]byte(raw), &trip); err != nil {
		t.Fatal(err)
	}
	got := formatTripLine(trip)
	for _, want := range []string{"#3", "Dallas run", "in progress", "Dallas, TX → Houston, TX", "miles)"} {
		if !strings.Contains(got, want) {
			t.Errorf("formatTripLine = %q, missing %q", got, want)
		}
	}

	bare := formatTripLine(model.Trip{ID: 9})
	if !strings.Contains(bare, "Trip 9") || strings.Contains(bare, "→") || strings.Contains(bare, "miles") {
		t.Errorf("bare trip line = %q", bare)
	}
}

func TestFormatRouteDuration(t *testing.T) {
	tests := []struct {
		minutes float64
		want    string
	}{
		{0, "0 min"},
		{45.4, "45 min"},
		{59.6, "1h 0m"},
		{135, "2h 15m"},
	}
	for _, tt := range tests {
		if got := formatRouteDuration(tt.minutes); got != tt.want {
			t.Errorf("formatRouteDuration(%v) = %q, want %q", tt.minutes, got, tt.want)
		}
	}
}

func TestPrintDashboard(t *testing.T) {
	trips := []model.Trip{
		{ID: 1, Status: model.TripCompleted},
		{ID: 2, Title: "Reefer load", Status: model.TripInProgress, PickupLocation: "Tulsa"},
		{ID: 3, Status: model.TripPlanned},
	}
	var buf bytes.Buffer
	printDashboard(&buf, &model.User{Name: "Ann Driver"}, trips)
	out := buf.String()
	for _, want := range []string{
		"Welcome back, Ann Driver!",
		"Active trip #2: Reefer load",
		"Tulsa → -",
		"Trips: 3 total, 1 planned, 1 in progress, 1 completed, 0 cancelled",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("dashboard missing %q:\n%s", want, out)
		}
	}

	buf.Reset()
	printDashboard(&buf, nil, nil)
	if !strings.Contains(buf.String(), "No Active Trip") || !strings.Contains(buf.String(), "Welcome back, Driver!") {
		t.Errorf("empty dashboard:\n%s", buf.String())
	}
}

package cmd

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Tiliavir/hos-tracker/internal/config"
	"github.com/Tiliavir/hos-tracker/internal/guard"
	"github.com/Tiliavir/hos-tracker/internal/tokenstore"
)

// fakeBackend serves just enough of the tracking API for the commands.
func fakeBackend(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.Header.Get("Authorization") != "Bearer good" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"detail":"token not valid"}`))
			return
		}
		switch r.URL.Path {
		case "/api/auth/me/":
			_, _ = w.Write([]byte(`{"id":1,"username":"ann@example.com","name":"Ann Driver"}`))
		case "/api/tracking/list/":
			_, _ = w.Write([]byte(`[{"id":7,"title":"Dallas run","status":"in_progress"},{"id":8,"status":"planned"}]`))
		case "/api/tracking/7":
			_, _ = w.Write([]byte(`{"id":7,"title":"Dallas run","status":"in_progress"}`))
		case "/api/tracking/trip/7/logs/2026-02-27/":
			_, _ = w.Write([]byte(`[
				{"start_time":"2026-02-27T08:00:00Z","end_time":"2026-02-27T10:00:00Z","event_type":"driving","location":"En Route","trip":7}
			]`))
		default:
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"detail":"not found"}`))
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

// runHos executes the root command against a temporary home directory.
func runHos(t *testing.T, srv *httptest.Server, access string, args ...string) (string, string, error) {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("HOS_API_URL", srv.URL)
	t.Setenv("HOS_TIMEZONE", "UTC")
	t.Setenv("HOS_STORAGE_DRIVER", config.DriverFile)
	t.Setenv("HOS_STORAGE_PATH", "")

	if access != "" {
		st, err := tokenstore.Open(config.DriverFile, filepath.Join(home, ".hos", "tokens.json"))
		if err != nil {
			t.Fatal(err)
		}
		if err := st.SetTokens(context.Background(), access, "r1"); err != nil {
			t.Fatal(err)
		}
		_ = st.Close()
	}

	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetIn(strings.NewReader(""))
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		teardown()
		store, sess, client = nil, nil, nil
		redirectToDashboard = false
	})

	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), errOut.String(), err
}

func TestLogCommandCSV(t *testing.T) {
	srv := fakeBackend(t)
	out, errOut, err := runHos(t, srv, "good", "log", "7", "--date", "2026-02-27", "--format", "csv")
	if err != nil {
		t.Fatalf("log: %v\nstderr: %s", err, errOut)
	}
	want := "date,status,start,end,duration_minutes\n" +
		"2026-02-27,off_duty,2026-02-27T00:00:00Z,2026-02-27T08:00:00Z,480\n" +
		"2026-02-27,driving,2026-02-27T08:00:00Z,2026-02-27T10:00:00Z,120\n" +
		"2026-02-27,off_duty,2026-02-27T10:00:00Z,2026-02-28T00:00:00Z,840\n"
	if out != want {
		t.Errorf("output:\n%s\nwant:\n%s", out, want)
	}
	if !strings.Contains(errOut, "Loading daily log...") {
		t.Errorf("stderr = %q, want loading line", errOut)
	}
}

func TestTripsListCommand(t *testing.T) {
	srv := fakeBackend(t)
	out, _, err := runHos(t, srv, "good", "trips", "list")
	if err != nil {
		t.Fatalf("trips list: %v", err)
	}
	if !strings.Contains(out, "#7") || !strings.Contains(out, "Dallas run") || !strings.Contains(out, "Trip 8") {
		t.Errorf("output:\n%s", out)
	}
}

func TestProtectedCommandWithoutLogin(t *testing.T) {
	srv := fakeBackend(t)
	_, _, err := runHos(t, srv, "", "dashboard")
	if !errors.Is(err, guard.ErrLoginRequired) {
		t.Fatalf("err = %v, want ErrLoginRequired", err)
	}
	if exitCode(err) != 1 {
		t.Errorf("exit code = %d, want 1", exitCode(err))
	}
}

func TestLoginRedirectsWhenLoggedIn(t *testing.T) {
	srv := fakeBackend(t)
	out, errOut, err := runHos(t, srv, "good", "login")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if !strings.Contains(errOut, "Already logged in.") {
		t.Errorf("stderr = %q", errOut)
	}
	if !strings.Contains(out, "Welcome back, Ann Driver!") {
		t.Errorf("dashboard not shown:\n%s", out)
	}
}

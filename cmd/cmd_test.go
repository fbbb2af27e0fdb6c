package cmd

import (
	"bytes"
	"encoding/csv"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/kozaktomas/geo-attendance/internal/auth"
	"github.com/kozaktomas/geo-attendance/internal/database"
	"github.com/kozaktomas/geo-attendance/internal/geofence"
)

func TestResolveExportRange(t *testing.T) {
	now := time.Date(2026, 3, 17, 23, 30, 0, 0, time.UTC)

	tests := []struct {
		name     string
		from, to string
		wantFrom string
		wantTo   string
		wantErr  bool
	}{
		{"defaults", "", "", "2026-03-01", "2026-03-17", false},
		{"explicit", "2026-01-01", "2026-01-31", "2026-01-01", "2026-01-31", false},
		{"single day", "2026-02-10", "2026-02-10", "2026-02-10", "2026-02-10", false},
		{"reversed", "2026-02-10", "2026-02-01", "", "", true},
		{"bad from", "10.2.2026", "", "", "", true},
		{"bad to", "", "2026-02-30", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			from, to, err := resolveExportRange(tt.from, tt.to, now)
			if tt.wantErr {
				if err == nil {
					t.Errorf("expected error, got %s..%s", from, to)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if from != tt.wantFrom || to != tt.wantTo {
				t.Errorf("got %s..%s, want %s..%s", from, to, tt.wantFrom, tt.wantTo)
			}
		})
	}
}

func TestWriteAttendanceCSV(t *testing.T) {
	checkIn := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	records := []database.StoredAttendance{
		{
			ID: uuid.New(), UserName: "Jan Novák", UserEmail: "jan@example.com", Date: "2026-03-02",
			CheckIn:        database.Stamp{At: checkIn, Location: geofence.Point{Latitude: 50.0755, Longitude: 14.4378}},
			CheckOut:       &database.Stamp{At: checkIn.Add(8 * time.Hour), Location: geofence.Point{Latitude: 50.0756, Longitude: 14.4379}},
			FaceMatchScore: 93.27,
			Status:         database.StatusCheckedOut,
		},
		{
			ID: uuid.New(), UserName: "Eva, Jr.", UserEmail: "eva@example.com", Date: "2026-03-02",
			CheckIn:        database.Stamp{At: checkIn, Location: geofence.Point{Latitude: 50, Longitude: 14}},
			FaceMatchScore: 71,
			Status:         database.StatusCheckedIn,
		},
	}

	var buf bytes.Buffer
	calls := 0
	if err := writeAttendanceCSV(&buf, records, func() { calls++ }); err != nil {
		t.Fatalf("writeAttendanceCSV() error = %v", err)
	}
	if calls != len(records) {
		t.Errorf("expected %d progress calls, got %d", len(records), calls)
	}

	rows, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("output is not valid CSV: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected header + 2 rows, got %d", len(rows))
	}
	if len(rows[0]) != len(exportHeader) {
		t.Errorf("expected %d columns, got %d", len(exportHeader), len(rows[0]))
	}

	first := rows[1]
	if first[1] != "Jan Novák" || first[4] != "2026-03-02T08:00:00Z" || first[7] != "2026-03-02T16:00:00Z" {
		t.Errorf("unexpected first row %v", first)
	}
	if first[5] != "50.075500" || first[10] != "93.3" {
		t.Errorf("unexpected number formatting in %v", first)
	}

	second := rows[2]
	if second[1] != "Eva, Jr." {
		t.Errorf("expected quoted name to survive, got %q", second[1])
	}
	if second[7] != "" || second[8] != "" || second[9] != "" {
		t.Errorf("open record must have empty check-out columns, got %v", second[7:10])
	}
}

func TestNewUserFromFlags(t *testing.T) {
	user, err := newUserFromFlags("  Admin@Example.COM ", " Boss ", "secret123", true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if user.Email != "admin@example.com" || user.Name != "Boss" || user.Role != database.RoleAdmin {
		t.Errorf("unexpected user %+v", user)
	}
	if !auth.CheckPassword(user.PasswordHash, "secret123") {
		t.Error("password hash does not verify")
	}

	employee, err := newUserFromFlags("e@example.com", "E", "secret123", false)
	if err != nil || employee.Role != database.RoleEmployee {
		t.Errorf("expected employee, got %+v (err %v)", employee, err)
	}

	invalid := []struct{ email, name, password string }{
		{"not-an-email", "A", "secret123"},
		{"a@example.com", "  ", "secret123"},
		{"a@example.com", "A", "12345"},
		{"a@example.com", "A", strings.Repeat("ž", 40)},
	}
	for _, in := range invalid {
		if _, err := newUserFromFlags(in.email, in.name, in.password, false); err == nil {
			t.Errorf("expected error for %+v", in)
		}
	}
}

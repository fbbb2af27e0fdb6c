package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/kozaktomas/geo-attendance/internal/config"
	"github.com/kozaktomas/geo-attendance/internal/database"
	"github.com/kozaktomas/geo-attendance/internal/database/mock"
	"github.com/kozaktomas/geo-attendance/internal/facematch"
	"github.com/kozaktomas/geo-attendance/internal/web/middleware"
)

// testConfig creates a minimal config for testing
func testConfig() *config.Config {
	return &config.Config{
		Auth: config.AuthConfig{
			SecretKey:            "test-secret",
			AccessTokenExpireMin: 60,
			LoginRatePerMinute:   100,
		},
		Policy: config.LoadPolicy(),
	}
}

// testStores holds the mock backends registered for a test
type testStores struct {
	users   *mock.MockUserWriter
	offices *mock.MockOfficeStore
	records *mock.MockAttendanceWriter
}

// setupStores registers mock stores via the database provider system.
// Cleanup deregisters them.
func setupStores(t *testing.T) *testStores {
	t.Helper()

	s := &testStores{
		users:   mock.NewMockUserWriter(),
		offices: mock.NewMockOfficeStore(),
		records: mock.NewMockAttendanceWriter(),
	}
	database.RegisterPostgresBackend(
		func() database.UserWriter { return s.users },
		func() database.OfficeStore { return s.offices },
		func() database.AttendanceWriter { return s.records },
	)
	t.Cleanup(database.ResetForTesting)
	return s
}

// addUser stores a user with an enrolled face and returns it
func (s *testStores) addUser(name, email string, role database.Role) database.StoredUser {
	u := database.StoredUser{
		ID:        uuid.New(),
		Email:     email,
		Name:      name,
		Role:      role,
		CreatedAt: time.Date(2026, 1, 5, 9, 0, 0, 0, time.UTC),
	}
	s.users.AddUser(u)
	s.users.SetDescriptors(u.ID, []facematch.Descriptor{{1, 1, 1}})
	return u
}

// jsonRequest creates a request with a JSON body
func jsonRequest(t *testing.T, method, path string, body any) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("failed to encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

// asUser attaches an authenticated identity to the request
func asUser(r *http.Request, u database.StoredUser) *http.Request {
	ctx := middleware.SetIdentityInContext(r.Context(), &middleware.Identity{UserID: u.ID, Role: u.Role})
	return r.WithContext(ctx)
}

// fixedClock returns a clock stuck at t
func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

// parseJSONResponse parses a JSON response body into the target type
func parseJSONResponse(t *testing.T, recorder *httptest.ResponseRecorder, target any) {
	t.Helper()
	if err := json.Unmarshal(recorder.Body.Bytes(), target); err != nil {
		t.Fatalf("failed to parse JSON response: %v\nBody: %s", err, recorder.Body.String())
	}
}

// assertStatusCode checks if the response has the expected status code
func assertStatusCode(t *testing.T, recorder *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if recorder.Code != expected {
		t.Errorf("expected status %d, got %d\nBody: %s", expected, recorder.Code, recorder.Body.String())
	}
}

// assertContentType checks if the response has the expected content type
func assertContentType(t *testing.T, recorder *httptest.ResponseRecorder, expected string) {
	t.Helper()
	ct := recorder.Header().Get("Content-Type")
	if ct != expected {
		t.Errorf("expected Content-Type '%s', got '%s'", expected, ct)
	}
}

// assertJSONError checks if the response is a JSON error with the expected message
func assertJSONError(t *testing.T, recorder *httptest.ResponseRecorder, expectedMessage string) {
	t.Helper()
	var result map[string]any
	if err := json.Unmarshal(recorder.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse error response: %v\nBody: %s", err, recorder.Body.String())
	}
	if result["error"] != expectedMessage {
		t.Errorf("expected error '%s', got '%v'", expectedMessage, result["error"])
	}
}

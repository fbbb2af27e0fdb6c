package handlers

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/kozaktomas/geo-attendance/internal/database"
	"go.uber.org/zap"
)

func TestOfficeHandler_SetLocation(t *testing.T) {
	stores := setupStores(t)
	handler := NewOfficeHandler(testConfig(), zap.NewNop())
	handler.now = fixedClock(time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC))

	radius := 250.0
	tests := []struct {
		name       string
		radius     *float64
		wantRadius float64
	}{
		{"explicit radius", &radius, 250},
		{"default radius", nil, 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := map[string]any{"name": " HQ ", "latitude": 50.0875, "longitude": 14.4213}
			if tt.radius != nil {
				body["radius"] = *tt.radius
			}
			recorder := httptest.NewRecorder()
			handler.SetLocation(recorder, jsonRequest(t, "POST", "/api/office/location", body))

			assertStatusCode(t, recorder, http.StatusOK)
			var resp officeResponse
			parseJSONResponse(t, recorder, &resp)
			if resp.Name != "HQ" || resp.Radius != tt.wantRadius {
				t.Errorf("unexpected office %+v", resp)
			}
			if resp.CreatedAt != "2026-03-02T08:00:00Z" {
				t.Errorf("expected created_at 2026-03-02T08:00:00Z, got %s", resp.CreatedAt)
			}

			stored, _ := stores.offices.GetOffice(t.Context())
			if stored == nil || stored.RadiusMeters != tt.wantRadius || stored.Latitude != 50.0875 {
				t.Errorf("office not replaced, got %+v", stored)
			}
		})
	}
}

func TestOfficeHandler_SetLocation_Validation(t *testing.T) {
	setupStores(t)
	handler := NewOfficeHandler(testConfig(), zap.NewNop())

	tests := []struct {
		name    string
		body    any
		wantErr string
	}{
		{"bad json", "[", errInvalidRequestBody},
		{"missing name", map[string]any{"latitude": 50, "longitude": 14}, "name is required"},
		{"missing latitude", map[string]any{"name": "HQ", "longitude": 14}, "latitude is required"},
		{"latitude out of range", map[string]any{"name": "HQ", "latitude": 95, "longitude": 14}, "latitude is out of range"},
		{"longitude out of range", map[string]any{"name": "HQ", "latitude": 50, "longitude": -181}, "longitude is out of range"},
		{"negative radius", map[string]any{"name": "HQ", "latitude": 50, "longitude": 14, "radius": -5}, "radius is out of range"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recorder := httptest.NewRecorder()
			handler.SetLocation(recorder, jsonRequest(t, "POST", "/api/office/location", tt.body))
			assertStatusCode(t, recorder, http.StatusBadRequest)
			assertJSONError(t, recorder, tt.wantErr)
		})
	}
}

func TestOfficeHandler_SetLocation_StoreFailure(t *testing.T) {
	stores := setupStores(t)
	stores.offices.ReplaceError = errors.New("disk full")
	handler := NewOfficeHandler(testConfig(), zap.NewNop())

	recorder := httptest.NewRecorder()
	handler.SetLocation(recorder, jsonRequest(t, "POST", "/api/office/location",
		map[string]any{"name": "HQ", "latitude": 50, "longitude": 14}))

	assertStatusCode(t, recorder, http.StatusInternalServerError)
	assertJSONError(t, recorder, "internal server error")
}

func TestOfficeHandler_GetLocation(t *testing.T) {
	stores := setupStores(t)
	handler := NewOfficeHandler(testConfig(), zap.NewNop())

	recorder := httptest.NewRecorder()
	handler.GetLocation(recorder, httptest.NewRequest("GET", "/api/office/location", nil))
	assertStatusCode(t, recorder, http.StatusNotFound)
	assertJSONError(t, recorder, "Office location not set")

	office := &database.StoredOffice{
		ID: uuid.New(), Name: "Brno", Latitude: 49.1951, Longitude: 16.6068, RadiusMeters: 80,
		CreatedAt: time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
	}
	if err := stores.offices.ReplaceOffice(t.Context(), office); err != nil {
		t.Fatalf("ReplaceOffice() error = %v", err)
	}

	recorder = httptest.NewRecorder()
	handler.GetLocation(recorder, httptest.NewRequest("GET", "/api/office/location", nil))
	assertStatusCode(t, recorder, http.StatusOK)

	var resp officeResponse
	parseJSONResponse(t, recorder, &resp)
	want := officeResponse{
		ID: office.ID.String(), Name: "Brno", Latitude: 49.1951, Longitude: 16.6068, Radius: 80,
		CreatedAt: "2026-02-01T00:00:00Z",
	}
	if resp != want {
		t.Errorf("GetLocation() = %+v, want %+v", resp, want)
	}
}

package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/kozaktomas/geo-attendance/internal/database"
	"github.com/kozaktomas/geo-attendance/internal/geofence"
)

// errInvalidRequestBody is a shared error message for invalid JSON request bodies.
const errInvalidRequestBody = "invalid request body"

// maxBodyBytes bounds request bodies; descriptor arrays are the largest payloads.
const maxBodyBytes = 1 << 20

// sanitizeForLog removes newlines and carriage returns to prevent log injection.
func sanitizeForLog(s string) string {
	return strings.NewReplacer("\n", "", "\r", "").Replace(s)
}

// respondJSON sends a JSON response.
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// respondError sends an error response.
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// HealthCheck handles the health check endpoint.
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	if !database.IsInitialized() {
		respondJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "storage not initialized",
		})
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
	})
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

type userResponse struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	Name      string `json:"name"`
	Role      string `json:"role"`
	CreatedAt string `json:"created_at"`
}

func newUserResponse(u *database.StoredUser) userResponse {
	return userResponse{
		ID:        u.ID.String(),
		Email:     u.Email,
		Name:      u.Name,
		Role:      string(u.Role),
		CreatedAt: formatTime(u.CreatedAt),
	}
}

type officeResponse struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Radius    float64 `json:"radius"`
	CreatedAt string  `json:"created_at"`
}

func newOfficeResponse(o *database.StoredOffice) officeResponse {
	return officeResponse{
		ID:        o.ID.String(),
		Name:      o.Name,
		Latitude:  o.Latitude,
		Longitude: o.Longitude,
		Radius:    o.RadiusMeters,
		CreatedAt: formatTime(o.CreatedAt),
	}
}

type attendanceResponse struct {
	ID               string          `json:"id"`
	UserID           string          `json:"user_id"`
	UserName         string          `json:"user_name"`
	UserEmail        string          `json:"user_email"`
	Date             string          `json:"date"`
	CheckInTime      string          `json:"check_in_time"`
	CheckInLocation  geofence.Point  `json:"check_in_location"`
	CheckOutTime     *string         `json:"check_out_time"`
	CheckOutLocation *geofence.Point `json:"check_out_location"`
	FaceMatchScore   float64         `json:"face_match_score"`
	Status           string          `json:"status"`
	CreatedAt        string          `json:"created_at"`
}

func newAttendanceResponse(rec *database.StoredAttendance) attendanceResponse {
	resp := attendanceResponse{
		ID:              rec.ID.String(),
		UserID:          rec.UserID.String(),
		UserName:        rec.UserName,
		UserEmail:       rec.UserEmail,
		Date:            rec.Date,
		CheckInTime:     formatTime(rec.CheckIn.At),
		CheckInLocation: rec.CheckIn.Location,
		FaceMatchScore:  rec.FaceMatchScore,
		Status:          string(rec.Status),
		CreatedAt:       formatTime(rec.CreatedAt),
	}
	if rec.CheckOut != nil {
		at := formatTime(rec.CheckOut.At)
		loc := rec.CheckOut.Location
		resp.CheckOutTime = &at
		resp.CheckOutLocation = &loc
	}
	return resp
}

func newAttendanceList(records []database.StoredAttendance) []attendanceResponse {
	out := make([]attendanceResponse, 0, len(records))
	for i := range records {
		out = append(out, newAttendanceResponse(&records[i]))
	}
	return out
}

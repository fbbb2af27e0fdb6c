package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/kozaktomas/geo-attendance/internal/attendance"
	"github.com/kozaktomas/geo-attendance/internal/config"
	"github.com/kozaktomas/geo-attendance/internal/database"
	"github.com/kozaktomas/geo-attendance/internal/facematch"
	"github.com/kozaktomas/geo-attendance/internal/geofence"
	"github.com/kozaktomas/geo-attendance/internal/logging"
	"go.uber.org/zap"
)

// AttendanceHandler handles check-in, check-out and attendance history
type AttendanceHandler struct {
	config *config.Config
	logger *zap.Logger
	now    func() time.Time
}

// NewAttendanceHandler creates a new attendance handler
func NewAttendanceHandler(cfg *config.Config, logger *zap.Logger) *AttendanceHandler {
	return &AttendanceHandler{config: cfg, logger: logger, now: time.Now}
}

// attendanceDeps resolves the stores a request needs. It writes the error response itself.
func (h *AttendanceHandler) attendanceDeps(w http.ResponseWriter, r *http.Request) (database.UserWriter, database.AttendanceWriter, database.OfficeStore, bool) {
	users := getUserWriter(r, w)
	if users == nil {
		return nil, nil, nil, false
	}
	records, err := database.GetAttendanceWriter(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "attendance storage not available")
		return nil, nil, nil, false
	}
	offices := getOfficeStore(r, w)
	if offices == nil {
		return nil, nil, nil, false
	}
	return users, records, offices, true
}

func (h *AttendanceHandler) verifier(r *http.Request, users database.UserWriter, records database.AttendanceWriter, offices database.OfficeStore) *attendance.Verifier {
	return attendance.NewVerifier(records, offices, users,
		attendance.WithThreshold(h.config.Policy.Face.MatchThreshold),
		attendance.WithClock(h.now),
		attendance.WithLogger(logging.FromContext(r.Context(), h.logger)),
	)
}

// domainErrorResponse is the body of a rejected check-in or check-out.
type domainErrorResponse struct {
	Error         string   `json:"error"`
	Code          string   `json:"code"`
	Score         *float64 `json:"score,omitempty"`
	Threshold     *float64 `json:"threshold,omitempty"`
	Distance      *float64 `json:"distance,omitempty"`
	AllowedRadius *float64 `json:"allowed_radius,omitempty"`
}

// respondVerificationError maps verifier errors to HTTP responses.
func (h *AttendanceHandler) respondVerificationError(w http.ResponseWriter, r *http.Request, err error) {
	var faceErr *attendance.FaceVerificationError
	var zoneErr *attendance.OutOfZoneError

	switch {
	case errors.Is(err, attendance.ErrAlreadyCheckedIn):
		respondJSON(w, http.StatusBadRequest, domainErrorResponse{Error: "Already checked in today", Code: "already_checked_in"})
	case errors.Is(err, attendance.ErrNotEnrolled):
		respondJSON(w, http.StatusBadRequest, domainErrorResponse{Error: "Please register your face first", Code: "face_not_registered"})
	case errors.Is(err, attendance.ErrNoActiveCheckIn):
		respondJSON(w, http.StatusBadRequest, domainErrorResponse{Error: "No check-in found for today", Code: "no_check_in"})
	case errors.As(err, &faceErr):
		respondJSON(w, http.StatusBadRequest, domainErrorResponse{
			Error:     fmt.Sprintf("Face verification failed. Match: %.1f%%", faceErr.Score),
			Code:      "face_verification_failed",
			Score:     &faceErr.Score,
			Threshold: &faceErr.Threshold,
		})
	case errors.As(err, &zoneErr):
		respondJSON(w, http.StatusBadRequest, domainErrorResponse{
			Error:         fmt.Sprintf("You are %.0fm away. Must be within %.0fm of office", zoneErr.Distance, zoneErr.AllowedRadius),
			Code:          "out_of_zone",
			Distance:      &zoneErr.Distance,
			AllowedRadius: &zoneErr.AllowedRadius,
		})
	default:
		respondInternal(w, r, h.logger, "attendance verification", err)
	}
}

type checkInRequest struct {
	Latitude       *float64  `json:"latitude" validate:"required,gte=-90,lte=90"`
	Longitude      *float64  `json:"longitude" validate:"required,gte=-180,lte=180"`
	FaceDescriptor []float32 `json:"face_descriptor" validate:"required,min=1"`
}

type checkOutRequest struct {
	Latitude  *float64 `json:"latitude" validate:"required,gte=-90,lte=90"`
	Longitude *float64 `json:"longitude" validate:"required,gte=-180,lte=180"`
}

// CheckIn verifies face and location and records today's check-in
func (h *AttendanceHandler) CheckIn(w http.ResponseWriter, r *http.Request) {
	var req checkInRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	users, records, offices, ok := h.attendanceDeps(w, r)
	if !ok {
		return
	}
	user := currentUser(w, r, users, h.logger)
	if user == nil {
		return
	}

	person := attendance.Person{ID: user.ID, Name: user.Name, Email: user.Email}
	location := geofence.Point{Latitude: *req.Latitude, Longitude: *req.Longitude}
	rec, err := h.verifier(r, users, records, offices).
		CheckIn(r.Context(), person, facematch.Descriptor(req.FaceDescriptor), location)
	if err != nil {
		h.respondVerificationError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, newAttendanceResponse(rec))
}

// CheckOut records today's check-out
func (h *AttendanceHandler) CheckOut(w http.ResponseWriter, r *http.Request) {
	var req checkOutRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	users, records, offices, ok := h.attendanceDeps(w, r)
	if !ok {
		return
	}
	user := currentUser(w, r, users, h.logger)
	if user == nil {
		return
	}

	person := attendance.Person{ID: user.ID, Name: user.Name, Email: user.Email}
	location := geofence.Point{Latitude: *req.Latitude, Longitude: *req.Longitude}
	rec, err := h.verifier(r, users, records, offices).CheckOut(r.Context(), person, location)
	if err != nil {
		h.respondVerificationError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, newAttendanceResponse(rec))
}

// TodayStatus reports whether the caller has checked in or out today
func (h *AttendanceHandler) TodayStatus(w http.ResponseWriter, r *http.Request) {
	users, records, offices, ok := h.attendanceDeps(w, r)
	if !ok {
		return
	}
	user := currentUser(w, r, users, h.logger)
	if user == nil {
		return
	}

	person := attendance.Person{ID: user.ID, Name: user.Name, Email: user.Email}
	rec, err := h.verifier(r, users, records, offices).TodayStatus(r.Context(), person)
	if err != nil {
		h.respondVerificationError(w, r, err)
		return
	}

	if rec == nil {
		respondJSON(w, http.StatusOK, map[string]any{"status": "not_checked_in", "attendance": nil})
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"status": string(rec.Status), "attendance": newAttendanceResponse(rec)})
}

// MyHistory lists the caller's records, newest first
func (h *AttendanceHandler) MyHistory(w http.ResponseWriter, r *http.Request) {
	users, records, _, ok := h.attendanceDeps(w, r)
	if !ok {
		return
	}
	user := currentUser(w, r, users, h.logger)
	if user == nil {
		return
	}

	list, err := records.ListAttendance(r.Context(), database.AttendanceFilter{
		UserID: user.ID,
		Limit:  h.config.Policy.History.PersonalLimit,
	})
	if err != nil {
		respondInternal(w, r, h.logger, "list own attendance", err)
		return
	}
	respondJSON(w, http.StatusOK, newAttendanceList(list))
}

// All lists every user's records, newest first (admin only).
// Optional query parameters: date (YYYY-MM-DD) and name.
func (h *AttendanceHandler) All(w http.ResponseWriter, r *http.Request) {
	filter := database.AttendanceFilter{
		Name:  strings.TrimSpace(r.URL.Query().Get("name")),
		Limit: h.config.Policy.History.AdminLimit,
	}
	if date := r.URL.Query().Get("date"); date != "" {
		if _, err := time.Parse(database.DateLayout, date); err != nil {
			respondError(w, http.StatusBadRequest, "invalid date, expected YYYY-MM-DD")
			return
		}
		filter.Date = date
	}

	records, err := database.GetAttendanceReader(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "attendance storage not available")
		return
	}

	list, err := records.ListAttendance(r.Context(), filter)
	if err != nil {
		respondInternal(w, r, h.logger, "list attendance", err)
		return
	}
	respondJSON(w, http.StatusOK, newAttendanceList(list))
}

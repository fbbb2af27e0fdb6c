package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/kozaktomas/geo-attendance/internal/config"
	"github.com/kozaktomas/geo-attendance/internal/database"
	"github.com/kozaktomas/geo-attendance/internal/geofence"
	"github.com/kozaktomas/geo-attendance/internal/logging"
	"go.uber.org/zap"
)

// OfficeHandler manages the office location used for geofencing
type OfficeHandler struct {
	config *config.Config
	logger *zap.Logger
	now    func() time.Time
}

// NewOfficeHandler creates a new office handler
func NewOfficeHandler(cfg *config.Config, logger *zap.Logger) *OfficeHandler {
	return &OfficeHandler{config: cfg, logger: logger, now: time.Now}
}

func getOfficeStore(r *http.Request, w http.ResponseWriter) database.OfficeStore {
	store, err := database.GetOfficeStore(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "office storage not available")
		return nil
	}
	return store
}

type officeRequest struct {
	Name      string   `json:"name" validate:"required,max=255"`
	Latitude  *float64 `json:"latitude" validate:"required,gte=-90,lte=90"`
	Longitude *float64 `json:"longitude" validate:"required,gte=-180,lte=180"`
	Radius    *float64 `json:"radius" validate:"omitempty,gt=0"`
}

// SetLocation replaces the office location (admin only)
func (h *OfficeHandler) SetLocation(w http.ResponseWriter, r *http.Request) {
	var req officeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	radius := h.config.Policy.Office.DefaultRadiusMeters
	if req.Radius != nil {
		radius = *req.Radius
	}
	zone := geofence.Zone{
		Center:       geofence.Point{Latitude: *req.Latitude, Longitude: *req.Longitude},
		RadiusMeters: radius,
	}
	if err := zone.Validate(); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	store := getOfficeStore(r, w)
	if store == nil {
		return
	}

	office := &database.StoredOffice{
		ID:           uuid.New(),
		Name:         strings.TrimSpace(req.Name),
		Latitude:     zone.Center.Latitude,
		Longitude:    zone.Center.Longitude,
		RadiusMeters: zone.RadiusMeters,
		CreatedAt:    h.now().UTC(),
	}
	if err := store.ReplaceOffice(r.Context(), office); err != nil {
		respondInternal(w, r, h.logger, "replace office", err)
		return
	}

	logging.FromContext(r.Context(), h.logger).Info("office location set",
		zap.String("name", sanitizeForLog(office.Name)),
		zap.Float64("latitude", office.Latitude),
		zap.Float64("longitude", office.Longitude),
		zap.Float64("radius_m", office.RadiusMeters))
	respondJSON(w, http.StatusOK, newOfficeResponse(office))
}

// GetLocation returns the current office location
func (h *OfficeHandler) GetLocation(w http.ResponseWriter, r *http.Request) {
	store := getOfficeStore(r, w)
	if store == nil {
		return
	}

	office, err := store.GetOffice(r.Context())
	if err != nil {
		respondInternal(w, r, h.logger, "get office", err)
		return
	}
	if office == nil {
		respondError(w, http.StatusNotFound, "Office location not set")
		return
	}
	respondJSON(w, http.StatusOK, newOfficeResponse(office))
}

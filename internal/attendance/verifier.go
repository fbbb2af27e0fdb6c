// Package attendance decides whether a check-in or check-out is permitted
// and which record mutation results from it.
package attendance

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/kozaktomas/geo-attendance/internal/database"
	"github.com/kozaktomas/geo-attendance/internal/facematch"
	"github.com/kozaktomas/geo-attendance/internal/geofence"
	"go.uber.org/zap"
)

// RecordStore is the attendance record collaborator.
type RecordStore interface {
	FindAttendance(ctx context.Context, userID uuid.UUID, date string) (*database.StoredAttendance, error)
	InsertAttendance(ctx context.Context, record *database.StoredAttendance) error
	CompleteAttendance(ctx context.Context, id uuid.UUID, checkOut database.Stamp) (*database.StoredAttendance, error)
}

// ZoneStore yields the active office zone, if any.
type ZoneStore interface {
	GetOffice(ctx context.Context) (*database.StoredOffice, error)
}

// ProfileStore yields a person's enrolled face descriptors.
type ProfileStore interface {
	GetFaceDescriptors(ctx context.Context, userID uuid.UUID) ([]facematch.Descriptor, error)
}

// Person identifies who is checking in or out.
type Person struct {
	ID    uuid.UUID
	Name  string
	Email string
}

// Verifier runs the check-in and check-out rules against injected stores.
type Verifier struct {
	records   RecordStore
	zones     ZoneStore
	profiles  ProfileStore
	threshold float64
	now       func() time.Time
	logger    *zap.Logger
}

// Option configures a Verifier.
type Option func(*Verifier)

// WithThreshold overrides the face match threshold. Non-positive values are ignored.
func WithThreshold(threshold float64) Option {
	return func(v *Verifier) {
		if threshold > 0 {
			v.threshold = threshold
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(v *Verifier) {
		v.now = now
	}
}

// WithLogger sets the logger used for verification outcomes.
func WithLogger(logger *zap.Logger) Option {
	return func(v *Verifier) {
		if logger != nil {
			v.logger = logger
		}
	}
}

// NewVerifier creates a Verifier.
func NewVerifier(records RecordStore, zones ZoneStore, profiles ProfileStore, opts ...Option) *Verifier {
	v := &Verifier{
		records:   records,
		zones:     zones,
		profiles:  profiles,
		threshold: facematch.DefaultThreshold,
		now:       time.Now,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Today returns the UTC civil date used as the day key.
func (v *Verifier) Today() string {
	return v.now().UTC().Format(database.DateLayout)
}

// CheckIn verifies the live descriptor and location and creates today's record.
func (v *Verifier) CheckIn(ctx context.Context, person Person, live facematch.Descriptor, location geofence.Point) (*database.StoredAttendance, error) {
	now := v.now().UTC()
	today := now.Format(database.DateLayout)
	log := v.logger.With(zap.String("user_id", person.ID.String()), zap.String("date", today))

	existing, err := v.records.FindAttendance(ctx, person.ID, today)
	if err != nil {
		return nil, &StoreError{Op: "find attendance", Err: err}
	}
	if existing != nil {
		return nil, ErrAlreadyCheckedIn
	}

	enrolled, err := v.profiles.GetFaceDescriptors(ctx, person.ID)
	if err != nil {
		return nil, &StoreError{Op: "get face descriptors", Err: err}
	}
	if len(enrolled) == 0 {
		return nil, ErrNotEnrolled
	}

	score := facematch.BestMatch(live, enrolled)
	if !facematch.Passes(score, v.threshold) {
		log.Info("face verification failed", zap.Float64("score", score), zap.Float64("threshold", v.threshold))
		return nil, &FaceVerificationError{Score: score, Threshold: v.threshold}
	}

	office, err := v.zones.GetOffice(ctx)
	if err != nil {
		return nil, &StoreError{Op: "get office", Err: err}
	}
	if office != nil {
		zone := office.Zone()
		distance := geofence.DistanceMeters(location, zone.Center)
		if distance > zone.RadiusMeters {
			log.Info("check-in outside office zone", zap.Float64("distance_m", distance), zap.Float64("radius_m", zone.RadiusMeters))
			return nil, &OutOfZoneError{Distance: distance, AllowedRadius: zone.RadiusMeters}
		}
	}

	record := &database.StoredAttendance{
		ID:             uuid.New(),
		UserID:         person.ID,
		UserName:       person.Name,
		UserEmail:      person.Email,
		Date:           today,
		CheckIn:        database.Stamp{At: now, Location: location},
		FaceMatchScore: score,
		Status:         database.StatusCheckedIn,
		CreatedAt:      now,
	}
	if err := v.records.InsertAttendance(ctx, record); err != nil {
		if errors.Is(err, database.ErrConflict) {
			return nil, ErrAlreadyCheckedIn
		}
		return nil, &StoreError{Op: "insert attendance", Err: err}
	}

	log.Info("checked in", zap.Float64("score", score))
	return record, nil
}

// CheckOut closes today's checked-in record.
func (v *Verifier) CheckOut(ctx context.Context, person Person, location geofence.Point) (*database.StoredAttendance, error) {
	now := v.now().UTC()
	today := now.Format(database.DateLayout)

	record, err := v.records.FindAttendance(ctx, person.ID, today)
	if err != nil {
		return nil, &StoreError{Op: "find attendance", Err: err}
	}
	if record == nil || record.Status != database.StatusCheckedIn {
		return nil, ErrNoActiveCheckIn
	}

	updated, err := v.records.CompleteAttendance(ctx, record.ID, database.Stamp{At: now, Location: location})
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, ErrNoActiveCheckIn
		}
		return nil, &StoreError{Op: "complete attendance", Err: err}
	}

	v.logger.Info("checked out", zap.String("user_id", person.ID.String()), zap.String("date", today))
	return updated, nil
}

// TodayStatus returns today's record for person, or nil if there is none.
func (v *Verifier) TodayStatus(ctx context.Context, person Person) (*database.StoredAttendance, error) {
	record, err := v.records.FindAttendance(ctx, person.ID, v.Today())
	if err != nil {
		return nil, &StoreError{Op: "find attendance", Err: err}
	}
	return record, nil
}

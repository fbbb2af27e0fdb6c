package attendance

import (
	"errors"
	"fmt"
)

var (
	// ErrAlreadyCheckedIn is returned when a record already exists for today.
	ErrAlreadyCheckedIn = errors.New("already checked in today")
	// ErrNotEnrolled is returned when the person has no enrolled face descriptors.
	ErrNotEnrolled = errors.New("face not registered")
	// ErrNoActiveCheckIn is returned by CheckOut when there is no checked-in record for today.
	ErrNoActiveCheckIn = errors.New("no check-in found for today")
)

// FaceVerificationError reports a best match below the threshold.
type FaceVerificationError struct {
	Score     float64
	Threshold float64
}

func (e *FaceVerificationError) Error() string {
	return fmt.Sprintf("face verification failed: match %.1f%%", e.Score)
}

// OutOfZoneError reports a location outside the configured office zone.
type OutOfZoneError struct {
	Distance      float64
	AllowedRadius float64
}

func (e *OutOfZoneError) Error() string {
	return fmt.Sprintf("location is %.0fm from the office, must be within %.0fm", e.Distance, e.AllowedRadius)
}

// StoreError wraps a failure of a storage collaborator.
// It is an infrastructure fault, never one of the domain outcomes above.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// IsDomainError reports whether err is an expected verification outcome
// rather than an infrastructure fault.
func IsDomainError(err error) bool {
	var faceErr *FaceVerificationError
	var zoneErr *OutOfZoneError
	return errors.Is(err, ErrAlreadyCheckedIn) ||
		errors.Is(err, ErrNotEnrolled) ||
		errors.Is(err, ErrNoActiveCheckIn) ||
		errors.As(err, &faceErr) ||
		errors.As(err, &zoneErr)
}

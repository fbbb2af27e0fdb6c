package database

import (
	"time"

	"github.com/google/uuid"
	"github.com/kozaktomas/geo-attendance/internal/geofence"
)

// DateLayout is the civil date format used for attendance day keys.
const DateLayout = "2006-01-02"

// Role is the authorization role of a user
type Role string

const (
	RoleEmployee Role = "employee"
	RoleAdmin    Role = "admin"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleEmployee || r == RoleAdmin
}

// StoredUser represents an account stored in the database
type StoredUser struct {
	ID           uuid.UUID
	Email        string
	Name         string
	Role         Role
	PasswordHash string
	CreatedAt    time.Time
}

// StoredOffice is the single active office location
type StoredOffice struct {
	ID           uuid.UUID
	Name         string
	Latitude     float64
	Longitude    float64
	RadiusMeters float64
	CreatedAt    time.Time
}

// Zone returns the geofence described by the office.
func (o *StoredOffice) Zone() geofence.Zone {
	return geofence.Zone{
		Center:       geofence.Point{Latitude: o.Latitude, Longitude: o.Longitude},
		RadiusMeters: o.RadiusMeters,
	}
}

// AttendanceStatus is the state of a day's attendance record
type AttendanceStatus string

const (
	StatusCheckedIn  AttendanceStatus = "checked_in"
	StatusCheckedOut AttendanceStatus = "checked_out"
)

// Stamp is a point in time together with where it was recorded.
type Stamp struct {
	At       time.Time
	Location geofence.Point
}

// StoredAttendance is one attendance record keyed by (UserID, Date).
// CheckIn is always set. CheckOut is set only when Status is StatusCheckedOut.
type StoredAttendance struct {
	ID             uuid.UUID
	UserID         uuid.UUID
	UserName       string
	UserEmail      string
	Date           string // UTC civil date, DateLayout
	CheckIn        Stamp
	CheckOut       *Stamp
	FaceMatchScore float64
	Status         AttendanceStatus
	CreatedAt      time.Time
}

// AttendanceFilter narrows attendance listings. Zero values mean "no restriction".
type AttendanceFilter struct {
	UserID uuid.UUID
	Date   string // exact day
	From   string // inclusive
	To     string // inclusive
	Name   string // normalized substring of the user name
	Limit  int
}

package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/kozaktomas/geo-attendance/internal/facematch"
)

// UserReader provides read-only access to accounts and their enrolled face profile
type UserReader interface {
	// GetUser retrieves a user by ID, returns nil if not found
	GetUser(ctx context.Context, id uuid.UUID) (*StoredUser, error)
	// GetUserByEmail retrieves a user by (case-insensitive) email, returns nil if not found
	GetUserByEmail(ctx context.Context, email string) (*StoredUser, error)
	// GetFaceDescriptors returns the enrolled descriptors in enrollment order.
	// An empty result means the user is not enrolled.
	GetFaceDescriptors(ctx context.Context, userID uuid.UUID) ([]facematch.Descriptor, error)
	// CountUsers returns the number of registered users
	CountUsers(ctx context.Context) (int, error)
}

// UserWriter provides write access to accounts
type UserWriter interface {
	UserReader

	// CreateUser stores a new user. Returns ErrConflict if the email is taken.
	CreateUser(ctx context.Context, user *StoredUser) error
	// SetRole changes the role of a user. Returns ErrNotFound for unknown users.
	SetRole(ctx context.Context, id uuid.UUID, role Role) error
	// ReplaceFaceDescriptors atomically replaces the user's enrolled profile
	ReplaceFaceDescriptors(ctx context.Context, userID uuid.UUID, descriptors []facematch.Descriptor) error
}

// OfficeStore holds the single active office location
type OfficeStore interface {
	// GetOffice returns the active office, or nil if none is configured
	GetOffice(ctx context.Context) (*StoredOffice, error)
	// ReplaceOffice atomically replaces the active office
	ReplaceOffice(ctx context.Context, office *StoredOffice) error
}

// AttendanceReader provides read-only access to attendance records
type AttendanceReader interface {
	// FindAttendance returns the record for (userID, date) in any status, or nil
	FindAttendance(ctx context.Context, userID uuid.UUID, date string) (*StoredAttendance, error)
	// ListAttendance returns records newest date first
	ListAttendance(ctx context.Context, filter AttendanceFilter) ([]StoredAttendance, error)
}

// AttendanceWriter provides write access to attendance records
type AttendanceWriter interface {
	AttendanceReader

	// InsertAttendance stores a new checked-in record.
	// Returns ErrConflict if a record already exists for (UserID, Date).
	InsertAttendance(ctx context.Context, record *StoredAttendance) error
	// CompleteAttendance moves a checked-in record to checked-out and returns it.
	// Returns ErrNotFound if no checked-in record with that ID exists.
	CompleteAttendance(ctx context.Context, id uuid.UUID, checkOut Stamp) (*StoredAttendance, error)
}

package database

import (
	"context"
	"fmt"
)

var (
	postgresUserWriter       func() UserWriter
	postgresOfficeStore      func() OfficeStore
	postgresAttendanceWriter func() AttendanceWriter
	postgresInitialized      bool
)

// RegisterPostgresBackend registers PostgreSQL repository constructors.
// This is called by the serve command to avoid import cycles.
func RegisterPostgresBackend(
	users func() UserWriter,
	offices func() OfficeStore,
	attendance func() AttendanceWriter,
) {
	postgresUserWriter = users
	postgresOfficeStore = offices
	postgresAttendanceWriter = attendance
	postgresInitialized = true
}

// IsInitialized returns whether the PostgreSQL backend has been initialized.
func IsInitialized() bool {
	return postgresInitialized
}

// GetUserReader returns a UserReader from the PostgreSQL backend
func GetUserReader(ctx context.Context) (UserReader, error) {
	return GetUserWriter(ctx)
}

// GetUserWriter returns a UserWriter from the PostgreSQL backend
func GetUserWriter(ctx context.Context) (UserWriter, error) {
	if !postgresInitialized {
		return nil, fmt.Errorf("PostgreSQL backend not initialized: DATABASE_URL is required")
	}
	if postgresUserWriter == nil {
		return nil, fmt.Errorf("PostgreSQL user writer not registered")
	}
	return postgresUserWriter(), nil
}

// GetOfficeStore returns an OfficeStore from the PostgreSQL backend
func GetOfficeStore(ctx context.Context) (OfficeStore, error) {
	if !postgresInitialized {
		return nil, fmt.Errorf("PostgreSQL backend not initialized: DATABASE_URL is required")
	}
	if postgresOfficeStore == nil {
		return nil, fmt.Errorf("PostgreSQL office store not registered")
	}
	return postgresOfficeStore(), nil
}

// GetAttendanceReader returns an AttendanceReader from the PostgreSQL backend
func GetAttendanceReader(ctx context.Context) (AttendanceReader, error) {
	return GetAttendanceWriter(ctx)
}

// GetAttendanceWriter returns an AttendanceWriter from the PostgreSQL backend
func GetAttendanceWriter(ctx context.Context) (AttendanceWriter, error) {
	if !postgresInitialized {
		return nil, fmt.Errorf("PostgreSQL backend not initialized: DATABASE_URL is required")
	}
	if postgresAttendanceWriter == nil {
		return nil, fmt.Errorf("PostgreSQL attendance writer not registered")
	}
	return postgresAttendanceWriter(), nil
}

// ResetForTesting clears all registered backends.
func ResetForTesting() {
	postgresUserWriter = nil
	postgresOfficeStore = nil
	postgresAttendanceWriter = nil
	postgresInitialized = false
}

// Package mock provides mock implementations of database interfaces for testing.
package mock

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/kozaktomas/geo-attendance/internal/database"
	"github.com/kozaktomas/geo-attendance/internal/facematch"
)

// MockUserWriter is a mock implementation of database.UserWriter
type MockUserWriter struct {
	mu          sync.RWMutex
	users       map[uuid.UUID]*database.StoredUser
	descriptors map[uuid.UUID][]facematch.Descriptor

	// Error injection
	GetError            error
	GetDescriptorsError error
	CreateError         error
	SetRoleError        error
	ReplaceError        error
}

// NewMockUserWriter creates a new mock user writer
func NewMockUserWriter() *MockUserWriter {
	return &MockUserWriter{
		users:       make(map[uuid.UUID]*database.StoredUser),
		descriptors: make(map[uuid.UUID][]facematch.Descriptor),
	}
}

// AddUser adds a user to the mock store
func (m *MockUserWriter) AddUser(user database.StoredUser) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[user.ID] = &user
}

// SetDescriptors sets the enrolled profile of a user
func (m *MockUserWriter) SetDescriptors(userID uuid.UUID, descriptors []facematch.Descriptor) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.descriptors[userID] = descriptors
}

// GetUser retrieves a user by ID
func (m *MockUserWriter) GetUser(ctx context.Context, id uuid.UUID) (*database.StoredUser, error) {
	if m.GetError != nil {
		return nil, m.GetError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	if !ok {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

// GetUserByEmail retrieves a user by email
func (m *MockUserWriter) GetUserByEmail(ctx context.Context, email string) (*database.StoredUser, error) {
	if m.GetError != nil {
		return nil, m.GetError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, u := range m.users {
		if strings.EqualFold(u.Email, email) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

// GetFaceDescriptors returns the enrolled descriptors of a user
func (m *MockUserWriter) GetFaceDescriptors(ctx context.Context, userID uuid.UUID) ([]facematch.Descriptor, error) {
	if m.GetDescriptorsError != nil {
		return nil, m.GetDescriptorsError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.descriptors[userID], nil
}

// CountUsers returns the number of users
func (m *MockUserWriter) CountUsers(ctx context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.users), nil
}

// CreateUser stores a new user
func (m *MockUserWriter) CreateUser(ctx context.Context, user *database.StoredUser) error {
	if m.CreateError != nil {
		return m.CreateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if strings.EqualFold(u.Email, user.Email) {
			return database.ErrConflict
		}
	}
	cp := *user
	m.users[user.ID] = &cp
	return nil
}

// SetRole changes the role of a user
func (m *MockUserWriter) SetRole(ctx context.Context, id uuid.UUID, role database.Role) error {
	if m.SetRoleError != nil {
		return m.SetRoleError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return database.ErrNotFound
	}
	u.Role = role
	return nil
}

// ReplaceFaceDescriptors replaces the enrolled profile of a user
func (m *MockUserWriter) ReplaceFaceDescriptors(ctx context.Context, userID uuid.UUID, descriptors []facematch.Descriptor) error {
	if m.ReplaceError != nil {
		return m.ReplaceError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]facematch.Descriptor, len(descriptors))
	copy(cp, descriptors)
	m.descriptors[userID] = cp
	return nil
}

// MockOfficeStore is a mock implementation of database.OfficeStore
type MockOfficeStore struct {
	mu     sync.RWMutex
	office *database.StoredOffice

	// Error injection
	GetError     error
	ReplaceError error
}

// NewMockOfficeStore creates a new mock office store with no office configured
func NewMockOfficeStore() *MockOfficeStore {
	return &MockOfficeStore{}
}

// GetOffice returns the active office or nil
func (m *MockOfficeStore) GetOffice(ctx context.Context) (*database.StoredOffice, error) {
	if m.GetError != nil {
		return nil, m.GetError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.office == nil {
		return nil, nil
	}
	cp := *m.office
	return &cp, nil
}

// ReplaceOffice replaces the active office
func (m *MockOfficeStore) ReplaceOffice(ctx context.Context, office *database.StoredOffice) error {
	if m.ReplaceError != nil {
		return m.ReplaceError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *office
	m.office = &cp
	return nil
}

// MockAttendanceWriter is a mock implementation of database.AttendanceWriter.
// It enforces the (UserID, Date) uniqueness the real store enforces with a constraint.
type MockAttendanceWriter struct {
	mu      sync.RWMutex
	records map[uuid.UUID]*database.StoredAttendance

	// Error injection
	FindError     error
	ListError     error
	InsertError   error
	CompleteError error
}

// NewMockAttendanceWriter creates a new mock attendance writer
func NewMockAttendanceWriter() *MockAttendanceWriter {
	return &MockAttendanceWriter{
		records: make(map[uuid.UUID]*database.StoredAttendance),
	}
}

// AddRecord adds a record without the uniqueness check
func (m *MockAttendanceWriter) AddRecord(record database.StoredAttendance) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[record.ID] = &record
}

// Records returns a copy of all stored records
func (m *MockAttendanceWriter) Records() []database.StoredAttendance {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]database.StoredAttendance, 0, len(m.records))
	for _, r := range m.records {
		out = append(out, *r)
	}
	return out
}

// FindAttendance returns the record for (userID, date)
func (m *MockAttendanceWriter) FindAttendance(ctx context.Context, userID uuid.UUID, date string) (*database.StoredAttendance, error) {
	if m.FindError != nil {
		return nil, m.FindError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, r := range m.records {
		if r.UserID == userID && r.Date == date {
			cp := *r
			return &cp, nil
		}
	}
	return nil, nil
}

// ListAttendance returns records matching the filter, newest date first
func (m *MockAttendanceWriter) ListAttendance(ctx context.Context, filter database.AttendanceFilter) ([]database.StoredAttendance, error) {
	if m.ListError != nil {
		return nil, m.ListError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	name := facematch.NormalizePersonName(filter.Name)
	var results []database.StoredAttendance
	for _, r := range m.records {
		if filter.UserID != uuid.Nil && r.UserID != filter.UserID {
			continue
		}
		if filter.Date != "" && r.Date != filter.Date {
			continue
		}
		if filter.From != "" && r.Date < filter.From {
			continue
		}
		if filter.To != "" && r.Date > filter.To {
			continue
		}
		if name != "" && !strings.Contains(facematch.NormalizePersonName(r.UserName), name) {
			continue
		}
		results = append(results, *r)
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Date != results[j].Date {
			return results[i].Date > results[j].Date
		}
		return results[i].CheckIn.At.After(results[j].CheckIn.At)
	})
	if filter.Limit > 0 && len(results) > filter.Limit {
		results = results[:filter.Limit]
	}
	return results, nil
}

// InsertAttendance stores a new record
func (m *MockAttendanceWriter) InsertAttendance(ctx context.Context, record *database.StoredAttendance) error {
	if m.InsertError != nil {
		return m.InsertError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.records {
		if r.UserID == record.UserID && r.Date == record.Date {
			return database.ErrConflict
		}
	}
	cp := *record
	m.records[record.ID] = &cp
	return nil
}

// CompleteAttendance checks out a checked-in record
func (m *MockAttendanceWriter) CompleteAttendance(ctx context.Context, id uuid.UUID, checkOut database.Stamp) (*database.StoredAttendance, error) {
	if m.CompleteError != nil {
		return nil, m.CompleteError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.records[id]
	if !ok || r.Status != database.StatusCheckedIn {
		return nil, database.ErrNotFound
	}
	stamp := checkOut
	r.CheckOut = &stamp
	r.Status = database.StatusCheckedOut
	cp := *r
	return &cp, nil
}

package attendance

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/kozaktomas/geo-attendance/internal/database"
	"github.com/kozaktomas/geo-attendance/internal/database/mock"
	"github.com/kozaktomas/geo-attendance/internal/facematch"
	"github.com/kozaktomas/geo-attendance/internal/geofence"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var office = geofence.Point{Latitude: 50.0755, Longitude: 14.4378}

type fixture struct {
	users    *mock.MockUserWriter
	offices  *mock.MockOfficeStore
	records  *mock.MockAttendanceWriter
	person   Person
	clock    time.Time
	verifier *Verifier
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		users:   mock.NewMockUserWriter(),
		offices: mock.NewMockOfficeStore(),
		records: mock.NewMockAttendanceWriter(),
		person:  Person{ID: uuid.New(), Name: "Jan Novák", Email: "jan@example.com"},
		clock:   time.Date(2026, 3, 10, 8, 30, 0, 0, time.UTC),
	}
	f.users.AddUser(database.StoredUser{ID: f.person.ID, Name: f.person.Name, Email: f.person.Email, Role: database.RoleEmployee})
	f.users.SetDescriptors(f.person.ID, []facematch.Descriptor{{1, 1, 1}})
	f.verifier = NewVerifier(f.records, f.offices, f.users, WithClock(func() time.Time { return f.clock }))
	return f
}

func (f *fixture) setOffice(t *testing.T, center geofence.Point, radius float64) {
	t.Helper()
	require.NoError(t, f.offices.ReplaceOffice(context.Background(), &database.StoredOffice{
		ID:           uuid.New(),
		Name:         "HQ",
		Latitude:     center.Latitude,
		Longitude:    center.Longitude,
		RadiusMeters: radius,
	}))
}

func TestCheckIn_Success(t *testing.T) {
	f := newFixture(t)
	f.setOffice(t, office, 100)

	rec, err := f.verifier.CheckIn(context.Background(), f.person, facematch.Descriptor{1, 1, 1}, office)
	require.NoError(t, err)

	assert.Equal(t, database.StatusCheckedIn, rec.Status)
	assert.Equal(t, "2026-03-10", rec.Date)
	assert.Equal(t, f.person.ID, rec.UserID)
	assert.Equal(t, f.person.Name, rec.UserName)
	assert.Equal(t, f.person.Email, rec.UserEmail)
	assert.InDelta(t, 100.0, rec.FaceMatchScore, 1e-9)
	assert.Equal(t, f.clock, rec.CheckIn.At)
	assert.Equal(t, office, rec.CheckIn.Location)
	assert.Nil(t, rec.CheckOut)
	assert.Len(t, f.records.Records(), 1)
}

func TestCheckIn_FaceVerificationFailed(t *testing.T) {
	f := newFixture(t)
	f.setOffice(t, office, 100)

	// Euclidean distance 5 from the enrolled descriptor.
	_, err := f.verifier.CheckIn(context.Background(), f.person, facematch.Descriptor{4, 5, 1}, office)

	var faceErr *FaceVerificationError
	require.ErrorAs(t, err, &faceErr)
	assert.InDelta(t, 50.0, faceErr.Score, 1e-9)
	assert.Equal(t, facematch.DefaultThreshold, faceErr.Threshold)
	assert.Empty(t, f.records.Records())
}

func TestCheckIn_OutOfZone(t *testing.T) {
	f := newFixture(t)
	f.setOffice(t, office, 100)

	// Roughly 500 m north of the office.
	away := geofence.Point{Latitude: office.Latitude + 0.0044966, Longitude: office.Longitude}
	_, err := f.verifier.CheckIn(context.Background(), f.person, facematch.Descriptor{1, 1, 1}, away)

	var zoneErr *OutOfZoneError
	require.ErrorAs(t, err, &zoneErr)
	assert.InDelta(t, 500.0, zoneErr.Distance, 1.0)
	assert.Equal(t, 100.0, zoneErr.AllowedRadius)
	assert.Empty(t, f.records.Records())
}

func TestCheckIn_NoOfficeMeansNoRestriction(t *testing.T) {
	f := newFixture(t)

	farAway := geofence.Point{Latitude: -33.8688, Longitude: 151.2093}
	rec, err := f.verifier.CheckIn(context.Background(), f.person, facematch.Descriptor{1, 1, 1}, farAway)
	require.NoError(t, err)
	assert.Equal(t, database.StatusCheckedIn, rec.Status)
}

func TestCheckIn_AlreadyCheckedIn(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.verifier.CheckIn(ctx, f.person, facematch.Descriptor{1, 1, 1}, office)
	require.NoError(t, err)

	_, err = f.verifier.CheckIn(ctx, f.person, facematch.Descriptor{1, 1, 1}, office)
	assert.ErrorIs(t, err, ErrAlreadyCheckedIn)

	// Still rejected after checking out.
	_, err = f.verifier.CheckOut(ctx, f.person, office)
	require.NoError(t, err)
	_, err = f.verifier.CheckIn(ctx, f.person, facematch.Descriptor{1, 1, 1}, office)
	assert.ErrorIs(t, err, ErrAlreadyCheckedIn)
	assert.Len(t, f.records.Records(), 1)
}

func TestCheckIn_AlreadyCheckedInShortCircuits(t *testing.T) {
	f := newFixture(t)
	f.users.SetDescriptors(f.person.ID, nil)
	f.records.AddRecord(database.StoredAttendance{
		ID: uuid.New(), UserID: f.person.ID, Date: "2026-03-10", Status: database.StatusCheckedIn,
	})

	// The existing record wins over the missing enrollment.
	_, err := f.verifier.CheckIn(context.Background(), f.person, facematch.Descriptor{1, 1, 1}, office)
	assert.ErrorIs(t, err, ErrAlreadyCheckedIn)
}

func TestCheckIn_NotEnrolled(t *testing.T) {
	f := newFixture(t)
	f.users.SetDescriptors(f.person.ID, nil)

	_, err := f.verifier.CheckIn(context.Background(), f.person, facematch.Descriptor{1, 1, 1}, office)
	assert.ErrorIs(t, err, ErrNotEnrolled)
}

func TestCheckIn_MismatchedDescriptorLength(t *testing.T) {
	f := newFixture(t)

	_, err := f.verifier.CheckIn(context.Background(), f.person, facematch.Descriptor{1, 1}, office)

	var faceErr *FaceVerificationError
	require.ErrorAs(t, err, &faceErr)
	assert.Equal(t, 0.0, faceErr.Score)
}

func TestCheckIn_BestOfSeveralDescriptors(t *testing.T) {
	f := newFixture(t)
	f.users.SetDescriptors(f.person.ID, []facematch.Descriptor{{9, 9, 9}, {1, 1, 1.2}})

	rec, err := f.verifier.CheckIn(context.Background(), f.person, facematch.Descriptor{1, 1, 1}, office)
	require.NoError(t, err)
	assert.InDelta(t, 98.0, rec.FaceMatchScore, 1e-4)
}

func TestCheckIn_CustomThreshold(t *testing.T) {
	f := newFixture(t)
	v := NewVerifier(f.records, f.offices, f.users,
		WithClock(func() time.Time { return f.clock }),
		WithThreshold(95),
	)

	// Distance 1 scores 90.
	_, err := v.CheckIn(context.Background(), f.person, facematch.Descriptor{1, 1, 2}, office)
	var faceErr *FaceVerificationError
	require.ErrorAs(t, err, &faceErr)
	assert.Equal(t, 95.0, faceErr.Threshold)
}

func TestCheckIn_InsertConflictMapsToAlreadyCheckedIn(t *testing.T) {
	f := newFixture(t)
	f.records.InsertError = database.ErrConflict

	_, err := f.verifier.CheckIn(context.Background(), f.person, facematch.Descriptor{1, 1, 1}, office)
	assert.ErrorIs(t, err, ErrAlreadyCheckedIn)
}

func TestCheckIn_StoreFailures(t *testing.T) {
	boom := errors.New("connection refused")

	tests := []struct {
		name  string
		setup func(f *fixture)
		op    string
	}{
		{"find", func(f *fixture) { f.records.FindError = boom }, "find attendance"},
		{"descriptors", func(f *fixture) { f.users.GetDescriptorsError = boom }, "get face descriptors"},
		{"office", func(f *fixture) { f.offices.GetError = boom }, "get office"},
		{"insert", func(f *fixture) { f.records.InsertError = boom }, "insert attendance"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			tt.setup(f)

			_, err := f.verifier.CheckIn(context.Background(), f.person, facematch.Descriptor{1, 1, 1}, office)

			var storeErr *StoreError
			require.ErrorAs(t, err, &storeErr)
			assert.Equal(t, tt.op, storeErr.Op)
			assert.ErrorIs(t, err, boom)
			assert.False(t, IsDomainError(err))
		})
	}
}

func TestCheckOut_Lifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.verifier.CheckOut(ctx, f.person, office)
	assert.ErrorIs(t, err, ErrNoActiveCheckIn)

	_, err = f.verifier.CheckIn(ctx, f.person, facematch.Descriptor{1, 1, 1}, office)
	require.NoError(t, err)

	f.clock = f.clock.Add(8 * time.Hour)
	exit := geofence.Point{Latitude: 50.0756, Longitude: 14.4379}
	rec, err := f.verifier.CheckOut(ctx, f.person, exit)
	require.NoError(t, err)
	assert.Equal(t, database.StatusCheckedOut, rec.Status)
	require.NotNil(t, rec.CheckOut)
	assert.Equal(t, f.clock, rec.CheckOut.At)
	assert.Equal(t, exit, rec.CheckOut.Location)

	_, err = f.verifier.CheckOut(ctx, f.person, exit)
	assert.ErrorIs(t, err, ErrNoActiveCheckIn)
}

func TestCheckOut_AcrossMidnightMissesRecord(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.clock = time.Date(2026, 3, 10, 23, 59, 0, 0, time.UTC)

	_, err := f.verifier.CheckIn(ctx, f.person, facematch.Descriptor{1, 1, 1}, office)
	require.NoError(t, err)

	f.clock = f.clock.Add(2 * time.Minute)
	_, err = f.verifier.CheckOut(ctx, f.person, office)
	assert.ErrorIs(t, err, ErrNoActiveCheckIn)
}

func TestCheckOut_DayKeyUsesUTC(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	prague := time.FixedZone("CET", 3600)
	// 00:30 local is still the previous UTC day.
	f.clock = time.Date(2026, 3, 11, 0, 30, 0, 0, prague)

	rec, err := f.verifier.CheckIn(ctx, f.person, facematch.Descriptor{1, 1, 1}, office)
	require.NoError(t, err)
	assert.Equal(t, "2026-03-10", rec.Date)
	assert.Equal(t, time.UTC, rec.CheckIn.At.Location())
}

func TestCheckOut_LostRaceMapsToNoActiveCheckIn(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.verifier.CheckIn(ctx, f.person, facematch.Descriptor{1, 1, 1}, office)
	require.NoError(t, err)

	f.records.CompleteError = database.ErrNotFound
	_, err = f.verifier.CheckOut(ctx, f.person, office)
	assert.ErrorIs(t, err, ErrNoActiveCheckIn)

	f.records.CompleteError = errors.New("disk full")
	_, err = f.verifier.CheckOut(ctx, f.person, office)
	var storeErr *StoreError
	assert.ErrorAs(t, err, &storeErr)
}

func TestTodayStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	rec, err := f.verifier.TodayStatus(ctx, f.person)
	require.NoError(t, err)
	assert.Nil(t, rec)

	_, err = f.verifier.CheckIn(ctx, f.person, facematch.Descriptor{1, 1, 1}, office)
	require.NoError(t, err)

	rec, err = f.verifier.TodayStatus(ctx, f.person)
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, database.StatusCheckedIn, rec.Status)
}

func TestIsDomainError(t *testing.T) {
	assert.True(t, IsDomainError(ErrAlreadyCheckedIn))
	assert.True(t, IsDomainError(ErrNotEnrolled))
	assert.True(t, IsDomainError(ErrNoActiveCheckIn))
	assert.True(t, IsDomainError(&FaceVerificationError{Score: 10}))
	assert.True(t, IsDomainError(&OutOfZoneError{Distance: 500, AllowedRadius: 100}))
	assert.False(t, IsDomainError(&StoreError{Op: "x", Err: errors.New("y")}))
	assert.False(t, IsDomainError(errors.New("other")))
}

func TestErrorMessages(t *testing.T) {
	assert.Equal(t, "face verification failed: match 50.0%", (&FaceVerificationError{Score: 50}).Error())
	assert.Equal(t, "location is 500m from the office, must be within 100m", (&OutOfZoneError{Distance: 500.4, AllowedRadius: 100}).Error())
}

package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/kozaktomas/geo-attendance/internal/database"
	"github.com/kozaktomas/geo-attendance/internal/facematch"
)

// AttendanceRepository provides PostgreSQL-backed attendance records.
// Uniqueness of (user_id, work_date) is enforced by the table constraint.
type AttendanceRepository struct {
	pool *Pool
}

// NewAttendanceRepository creates a new PostgreSQL attendance repository
func NewAttendanceRepository(pool *Pool) *AttendanceRepository {
	return &AttendanceRepository{pool: pool}
}

const attendanceSelect = `
	SELECT a.id, a.user_id, u.name, u.email, a.work_date,
	       a.check_in_time, a.check_in_latitude, a.check_in_longitude,
	       a.check_out_time, a.check_out_latitude, a.check_out_longitude,
	       a.face_match_score, a.status, a.created_at
	FROM attendance a
	JOIN users u ON u.id = a.user_id
`

func scanAttendanceRow(row interface{ Scan(...any) error }) (*database.StoredAttendance, error) {
	var rec database.StoredAttendance
	var workDate time.Time
	var outTime sql.NullTime
	var outLat, outLon sql.NullFloat64
	var status string

	err := row.Scan(
		&rec.ID,
		&rec.UserID,
		&rec.UserName,
		&rec.UserEmail,
		&workDate,
		&rec.CheckIn.At,
		&rec.CheckIn.Location.Latitude,
		&rec.CheckIn.Location.Longitude,
		&outTime,
		&outLat,
		&outLon,
		&rec.FaceMatchScore,
		&status,
		&rec.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	rec.Date = workDate.Format(database.DateLayout)
	rec.Status = database.AttendanceStatus(status)
	rec.CheckIn.At = rec.CheckIn.At.UTC()
	if outTime.Valid {
		rec.CheckOut = &database.Stamp{At: outTime.Time.UTC()}
		rec.CheckOut.Location.Latitude = outLat.Float64
		rec.CheckOut.Location.Longitude = outLon.Float64
	}
	return &rec, nil
}

// FindAttendance returns the record for (userID, date) in any status, or nil
func (r *AttendanceRepository) FindAttendance(ctx context.Context, userID uuid.UUID, date string) (*database.StoredAttendance, error) {
	rec, err := scanAttendanceRow(r.pool.QueryRow(ctx,
		attendanceSelect+" WHERE a.user_id = $1 AND a.work_date = $2", userID, date))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find attendance: %w", err)
	}
	return rec, nil
}

func (r *AttendanceRepository) getByID(ctx context.Context, id uuid.UUID) (*database.StoredAttendance, error) {
	rec, err := scanAttendanceRow(r.pool.QueryRow(ctx, attendanceSelect+" WHERE a.id = $1", id))
	if err != nil {
		return nil, fmt.Errorf("get attendance: %w", err)
	}
	return rec, nil
}

// buildListQuery renders the WHERE clause and arguments for a filter.
func buildListQuery(filter database.AttendanceFilter) (string, []any) {
	var conds []string
	var args []any
	add := func(cond string, arg any) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if filter.UserID != uuid.Nil {
		add("a.user_id = $%d", filter.UserID)
	}
	if filter.Date != "" {
		add("a.work_date = $%d", filter.Date)
	}
	if filter.From != "" {
		add("a.work_date >= $%d", filter.From)
	}
	if filter.To != "" {
		add("a.work_date <= $%d", filter.To)
	}
	if name := facematch.NormalizePersonName(filter.Name); name != "" {
		// Matches facematch.NormalizePersonName: lowercase, no diacritics, dashes to spaces,
		// whitespace runs collapsed.
		add(`strpos(regexp_replace(LOWER(REPLACE(unaccent(u.name), '-', ' ')), '\s+', ' ', 'g'), $%d) > 0`, name)
	}

	query := attendanceSelect
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY a.work_date DESC, a.check_in_time DESC"
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	return query, args
}

// ListAttendance returns records matching the filter, newest date first
func (r *AttendanceRepository) ListAttendance(ctx context.Context, filter database.AttendanceFilter) ([]database.StoredAttendance, error) {
	query, args := buildListQuery(filter)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query attendance: %w", err)
	}
	defer rows.Close()

	var records []database.StoredAttendance
	for rows.Next() {
		rec, err := scanAttendanceRow(rows)
		if err != nil {
			return nil, fmt.Errorf("scan attendance: %w", err)
		}
		records = append(records, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate attendance: %w", err)
	}
	return records, nil
}

// InsertAttendance stores a new checked-in record.
// Returns database.ErrConflict if the user already has a record for that date.
func (r *AttendanceRepository) InsertAttendance(ctx context.Context, record *database.StoredAttendance) error {
	query := `
		INSERT INTO attendance (id, user_id, work_date, check_in_time, check_in_latitude, check_in_longitude,
		                        face_match_score, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (user_id, work_date) DO NOTHING
	`

	result, err := r.pool.Exec(ctx, query,
		record.ID,
		record.UserID,
		record.Date,
		record.CheckIn.At,
		record.CheckIn.Location.Latitude,
		record.CheckIn.Location.Longitude,
		record.FaceMatchScore,
		string(record.Status),
		record.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert attendance: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("insert attendance rows affected: %w", err)
	}
	if n == 0 {
		return database.ErrConflict
	}
	return nil
}

// CompleteAttendance checks out a checked-in record.
// Returns database.ErrNotFound if the record is missing or already checked out.
func (r *AttendanceRepository) CompleteAttendance(ctx context.Context, id uuid.UUID, checkOut database.Stamp) (*database.StoredAttendance, error) {
	query := `
		UPDATE attendance
		SET check_out_time = $2, check_out_latitude = $3, check_out_longitude = $4, status = 'checked_out'
		WHERE id = $1 AND status = 'checked_in'
	`

	result, err := r.pool.Exec(ctx, query, id, checkOut.At, checkOut.Location.Latitude, checkOut.Location.Longitude)
	if err != nil {
		return nil, fmt.Errorf("complete attendance: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("complete attendance rows affected: %w", err)
	}
	if n == 0 {
		return nil, database.ErrNotFound
	}
	return r.getByID(ctx, id)
}

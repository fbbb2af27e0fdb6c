package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/kozaktomas/geo-attendance/internal/database"
	"github.com/kozaktomas/geo-attendance/internal/facematch"
	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"
)

const uniqueViolation = "23505"

// isUniqueViolation reports whether err is a PostgreSQL unique constraint violation.
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}

// UserRepository provides PostgreSQL-backed account and face profile storage
type UserRepository struct {
	pool *Pool
}

// NewUserRepository creates a new PostgreSQL user repository
func NewUserRepository(pool *Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

const userColumns = "id, email, name, role, password_hash, created_at"

func scanUser(row interface{ Scan(...any) error }) (*database.StoredUser, error) {
	var u database.StoredUser
	var role string
	if err := row.Scan(&u.ID, &u.Email, &u.Name, &role, &u.PasswordHash, &u.CreatedAt); err != nil {
		return nil, err
	}
	u.Role = database.Role(role)
	return &u, nil
}

// GetUser retrieves a user by ID, returns nil if not found
func (r *UserRepository) GetUser(ctx context.Context, id uuid.UUID) (*database.StoredUser, error) {
	u, err := scanUser(r.pool.QueryRow(ctx, "SELECT "+userColumns+" FROM users WHERE id = $1", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

// GetUserByEmail retrieves a user by email, case-insensitively, returns nil if not found
func (r *UserRepository) GetUserByEmail(ctx context.Context, email string) (*database.StoredUser, error) {
	u, err := scanUser(r.pool.QueryRow(ctx,
		"SELECT "+userColumns+" FROM users WHERE LOWER(email) = $1", strings.ToLower(strings.TrimSpace(email))))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user by email: %w", err)
	}
	return u, nil
}

// CountUsers returns the number of registered users
func (r *UserRepository) CountUsers(ctx context.Context) (int, error) {
	var count int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM users").Scan(&count); err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return count, nil
}

// CreateUser stores a new user, returns database.ErrConflict if the email is taken
func (r *UserRepository) CreateUser(ctx context.Context, user *database.StoredUser) error {
	query := `
		INSERT INTO users (id, email, name, role, password_hash, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := r.pool.Exec(ctx, query,
		user.ID, user.Email, user.Name, string(user.Role), user.PasswordHash, user.CreatedAt)
	if isUniqueViolation(err) {
		return database.ErrConflict
	}
	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

// SetRole changes the role of a user
func (r *UserRepository) SetRole(ctx context.Context, id uuid.UUID, role database.Role) error {
	result, err := r.pool.Exec(ctx, "UPDATE users SET role = $2 WHERE id = $1", id, string(role))
	if err != nil {
		return fmt.Errorf("set role: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("set role rows affected: %w", err)
	}
	if n == 0 {
		return database.ErrNotFound
	}
	return nil
}

// GetFaceDescriptors returns the enrolled descriptors in enrollment order
func (r *UserRepository) GetFaceDescriptors(ctx context.Context, userID uuid.UUID) ([]facematch.Descriptor, error) {
	rows, err := r.pool.Query(ctx,
		"SELECT descriptor FROM user_face_descriptors WHERE user_id = $1 ORDER BY position", userID)
	if err != nil {
		return nil, fmt.Errorf("query face descriptors: %w", err)
	}
	defer rows.Close()

	var descriptors []facematch.Descriptor
	for rows.Next() {
		var vec pgvector.Vector
		if err := rows.Scan(&vec); err != nil {
			return nil, fmt.Errorf("scan face descriptor: %w", err)
		}
		descriptors = append(descriptors, facematch.Descriptor(vec.Slice()))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate face descriptors: %w", err)
	}
	return descriptors, nil
}

// ReplaceFaceDescriptors replaces the enrolled profile of a user in a single transaction
func (r *UserRepository) ReplaceFaceDescriptors(ctx context.Context, userID uuid.UUID, descriptors []facematch.Descriptor) error {
	tx, err := r.pool.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM user_face_descriptors WHERE user_id = $1", userID); err != nil {
		return fmt.Errorf("delete existing descriptors: %w", err)
	}

	for i, d := range descriptors {
		_, err := tx.ExecContext(ctx,
			"INSERT INTO user_face_descriptors (user_id, position, descriptor) VALUES ($1, $2, $3::vector)",
			userID, i, pgvector.NewVector(d))
		if err != nil {
			return fmt.Errorf("insert descriptor %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

package identity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository persists users. The OTP operations carry the per-record
// serialization contract: ReplacePendingOTP and ConsumePendingOTP are
// conditional writes, so two concurrent requests for the same phone cannot
// both pass their check.
type Repository interface {
	Create(ctx context.Context, user User) (User, error)
	FindByPhone(ctx context.Context, phone string) (User, error)
	UpdatePassword(ctx context.Context, id int64, passwordHash string) error
	// ReplacePendingOTP installs otp as the user's pending code, but only if
	// no previous code was issued after cutoff. Returns ErrRateLimited
	// otherwise, leaving the existing group untouched.
	ReplacePendingOTP(ctx context.Context, id int64, otp PendingOTP, cutoff time.Time) error
	// ClearPendingOTP nulls the OTP group, guarded on the stored otp_hash
	// still matching otpHash. A group replaced by a concurrent request-reset
	// is left alone; zero rows affected is not an error.
	ClearPendingOTP(ctx context.Context, id int64, otpHash string) error
	// ConsumePendingOTP sets the new password hash and clears the OTP group in
	// one write, guarded on the stored otp_hash still matching otpHash. A
	// concurrent consume that won the race surfaces as ErrInvalidOTPContext.
	ConsumePendingOTP(ctx context.Context, id int64, otpHash, newPasswordHash string) error
}

const uniqueViolation = "23505"

// PostgresRepository implements Repository using PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a Postgres-backed user repository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts a new user and returns it with its assigned identifier.
func (r *PostgresRepository) Create(ctx context.Context, user User) (User, error) {
	row := r.db.QueryRow(ctx, `INSERT INTO users (phone, password_hash, created_at)
        VALUES ($1, $2, $3) RETURNING id`, user.Phone, user.PasswordHash, user.CreatedAt.UTC())
	if err := row.Scan(&user.ID); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return User{}, ErrDuplicatePhone
		}
		return User{}, fmt.Errorf("insert user: %w", err)
	}
	return user, nil
}

// FindByPhone fetches a user by phone number.
func (r *PostgresRepository) FindByPhone(ctx context.Context, phone string) (User, error) {
	row := r.db.QueryRow(ctx, `SELECT id, phone, password_hash, otp_hash, otp_expires_at,
        otp_purpose, otp_last_sent_at, created_at FROM users WHERE phone = $1`, phone)

	var (
		user       User
		otpHash    *string
		otpExpires *time.Time
		otpPurpose *string
		otpSentAt  *time.Time
	)
	err := row.Scan(&user.ID, &user.Phone, &user.PasswordHash,
		&otpHash, &otpExpires, &otpPurpose, &otpSentAt, &user.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, ErrNotFound
	}
	if err != nil {
		return User{}, fmt.Errorf("select user: %w", err)
	}
	if otpHash != nil && otpExpires != nil && otpPurpose != nil && otpSentAt != nil {
		user.OTP = &PendingOTP{
			Hash:       *otpHash,
			Purpose:    *otpPurpose,
			ExpiresAt:  otpExpires.UTC(),
			LastSentAt: otpSentAt.UTC(),
		}
	}
	user.CreatedAt = user.CreatedAt.UTC()
	return user, nil
}

// UpdatePassword overwrites the stored password hash.
func (r *PostgresRepository) UpdatePassword(ctx context.Context, id int64, passwordHash string) error {
	cmd, err := r.db.Exec(ctx, `UPDATE users SET password_hash = $2 WHERE id = $1`, id, passwordHash)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ReplacePendingOTP writes the OTP group, conditioned on the cooldown cutoff.
func (r *PostgresRepository) ReplacePendingOTP(ctx context.Context, id int64, otp PendingOTP, cutoff time.Time) error {
	cmd, err := r.db.Exec(ctx, `UPDATE users
        SET otp_hash = $2, otp_expires_at = $3, otp_purpose = $4, otp_last_sent_at = $5
        WHERE id = $1 AND (otp_last_sent_at IS NULL OR otp_last_sent_at <= $6)`,
		id, otp.Hash, otp.ExpiresAt.UTC(), otp.Purpose, otp.LastSentAt.UTC(), cutoff.UTC())
	if err != nil {
		return fmt.Errorf("replace pending otp: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrRateLimited
	}
	return nil
}

// ClearPendingOTP nulls the OTP group iff it still holds the observed hash.
func (r *PostgresRepository) ClearPendingOTP(ctx context.Context, id int64, otpHash string) error {
	_, err := r.db.Exec(ctx, `UPDATE users
        SET otp_hash = NULL, otp_expires_at = NULL, otp_purpose = NULL, otp_last_sent_at = NULL
        WHERE id = $1 AND otp_hash = $2`, id, otpHash)
	if err != nil {
		return fmt.Errorf("clear pending otp: %w", err)
	}
	return nil
}

// ConsumePendingOTP applies the new password and clears the group atomically.
func (r *PostgresRepository) ConsumePendingOTP(ctx context.Context, id int64, otpHash, newPasswordHash string) error {
	cmd, err := r.db.Exec(ctx, `UPDATE users
        SET password_hash = $3, otp_hash = NULL, otp_expires_at = NULL,
            otp_purpose = NULL, otp_last_sent_at = NULL
        WHERE id = $1 AND otp_hash = $2`, id, otpHash, newPasswordHash)
	if err != nil {
		return fmt.Errorf("consume pending otp: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrInvalidOTPContext
	}
	return nil
}

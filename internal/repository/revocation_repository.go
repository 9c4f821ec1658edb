package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// RevocationRepo persists revoked token identifiers in the revoked_tokens
// table.  It is the fallback revocation set when Redis is not available and
// is shared by every process pointed at the same database.
type RevocationRepo struct {
	DB  *sql.DB
	now func() time.Time
}

func NewRevocationRepo(db *sql.DB) *RevocationRepo {
	return &RevocationRepo{DB: db, now: func() time.Time { return time.Now().UTC() }}
}

// Revoke records jti until expiresAt.  Revoking an already revoked
// identifier is a no-op.
func (r *RevocationRepo) Revoke(ctx context.Context, jti string, expiresAt time.Time) error {
	_, err := r.DB.ExecContext(ctx,
		"INSERT IGNORE INTO revoked_tokens (jti, expires_at) VALUES (?, ?)",
		jti, expiresAt.UTC())
	if err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	return nil
}

// IsRevoked reports whether jti has an unexpired revocation row.
func (r *RevocationRepo) IsRevoked(ctx context.Context, jti string) (bool, error) {
	var one int
	err := r.DB.QueryRowContext(ctx,
		"SELECT 1 FROM revoked_tokens WHERE jti = ? AND expires_at > ? LIMIT 1",
		jti, r.now()).Scan(&one)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("lookup revoked token: %w", err)
	}
	return true, nil
}

// PurgeExpired deletes rows whose token has expired naturally and returns
// how many were removed.
func (r *RevocationRepo) PurgeExpired(ctx context.Context) (int64, error) {
	res, err := r.DB.ExecContext(ctx,
		"DELETE FROM revoked_tokens WHERE expires_at <= ?", r.now())
	if err != nil {
		return 0, fmt.Errorf("purge revoked tokens: %w", err)
	}
	return res.RowsAffected()
}

package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/artem13815/blog/pkg/auth"
)

// ResetTokenRepository implements auth.ResetTokenRepository backed by
// PostgreSQL (pgx). user_id deliberately carries no foreign key: a
// token row may outlive the user it points at.
type ResetTokenRepository struct {
	pool *pgxpool.Pool
}

func NewResetTokenRepository(pool *pgxpool.Pool) (*ResetTokenRepository, error) {
	repo := &ResetTokenRepository{pool: pool}
	if err := repo.ensureSchema(context.Background()); err != nil {
		return nil, err
	}
	return repo, nil
}

func (r *ResetTokenRepository) ensureSchema(ctx context.Context) error {
	_, err := r.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS password_reset_tokens (
			id UUID PRIMARY KEY,
			user_id UUID NOT NULL,
			token_hash TEXT NOT NULL,
			expires_at TIMESTAMPTZ NOT NULL,
			created_at TIMESTAMPTZ NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_password_reset_tokens_expires ON password_reset_tokens(expires_at);
	`)
	return err
}

func (r *ResetTokenRepository) Create(ctx context.Context, token auth.ResetToken) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO password_reset_tokens (id, user_id, token_hash, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, token.ID, token.UserID, token.TokenHash, token.ExpiresAt, token.CreatedAt)
	return err
}

// ListActive returns all rows that have not yet expired. Expired rows
// are left in place; nothing sweeps them.
func (r *ResetTokenRepository) ListActive(ctx context.Context, now time.Time) ([]auth.ResetToken, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, user_id, token_hash, expires_at, created_at
		FROM password_reset_tokens
		WHERE expires_at > $1
	`, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []auth.ResetToken
	for rows.Next() {
		var t auth.ResetToken
		var expiresAt, createdAt time.Time
		if err := rows.Scan(&t.ID, &t.UserID, &t.TokenHash, &expiresAt, &createdAt); err != nil {
			return nil, err
		}
		t.ExpiresAt = expiresAt.UTC()
		t.CreatedAt = createdAt.UTC()
		res = append(res, t)
	}
	return res, rows.Err()
}

func (r *ResetTokenRepository) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM password_reset_tokens WHERE id = $1`, id)
	return err
}

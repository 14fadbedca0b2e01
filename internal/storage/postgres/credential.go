package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/harvestcart/harvestcart/internal/domain/apperr"
	"github.com/harvestcart/harvestcart/internal/domain/auth"
)

const (
	findCredentialSQL = `SELECT user_id, pin_hash FROM credentials WHERE user_id = $1`

	upsertCredentialSQL = `INSERT INTO credentials (user_id, pin_hash) VALUES ($1, $2)
		ON CONFLICT (user_id) DO UPDATE SET pin_hash = EXCLUDED.pin_hash`
)

var _ auth.CredentialRepository = (*CredentialRepository)(nil)

// CredentialRepository stores PIN hashes in PostgreSQL.
type CredentialRepository struct {
	pool *pgxpool.Pool
}

// NewCredentialRepository returns a CredentialRepository that uses the given
// pool.
func NewCredentialRepository(pool *pgxpool.Pool) *CredentialRepository {
	return &CredentialRepository{pool: pool}
}

// FindByUser returns the credential of userID.
func (r *CredentialRepository) FindByUser(ctx context.Context, userID string) (*auth.Credential, error) {
	var c auth.Credential
	err := r.pool.QueryRow(ctx, findCredentialSQL, userID).Scan(&c.UserID, &c.PINHash)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("find credential", "no credential for user")
		}
		return nil, errors.Wrapf(err, "find credential for %q", userID)
	}
	return &c, nil
}

// Upsert stores or replaces a credential.
func (r *CredentialRepository) Upsert(ctx context.Context, c auth.Credential) error {
	if _, err := r.pool.Exec(ctx, upsertCredentialSQL, c.UserID, c.PINHash); err != nil {
		return errors.Wrapf(err, "upsert credential for %q", c.UserID)
	}
	return nil
}

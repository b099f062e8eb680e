package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/pharmatrack/pharmatrack-backend/pkg/database"
	"github.com/pharmatrack/pharmatrack-backend/pkg/errors"
)

// CachedUser is a local projection of a user maintained from user events, so
// history rows can show who performed a movement without a cross-service call.
type CachedUser struct {
	ID        string    `db:"id" json:"id"`
	FullName  string    `db:"full_name" json:"full_name"`
	Role      string    `db:"role" json:"role"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// UserCacheRepository maintains the local user projection
type UserCacheRepository struct {
	db *database.DB
}

// NewUserCacheRepository creates a new user cache repository
func NewUserCacheRepository(db *database.DB) *UserCacheRepository {
	return &UserCacheRepository{db: db}
}

// Upsert inserts or refreshes a cached user
func (r *UserCacheRepository) Upsert(ctx context.Context, user *CachedUser) error {
	query := `
		INSERT INTO user_cache (id, full_name, role, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (id) DO UPDATE
		SET full_name = EXCLUDED.full_name, role = EXCLUDED.role, updated_at = NOW()
	`
	_, err := r.db.ExecContext(ctx, query, user.ID, user.FullName, user.Role)
	return err
}

// Delete removes a cached user. Missing rows are not an error: the delete
// event may arrive before the create was ever consumed.
func (r *UserCacheRepository) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM user_cache WHERE id = $1`, id)
	return err
}

// GetByID gets a cached user by ID
func (r *UserCacheRepository) GetByID(ctx context.Context, id string) (*CachedUser, error) {
	var user CachedUser
	if err := r.db.GetContext(ctx, &user, `SELECT * FROM user_cache WHERE id = $1`, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NotFound("user")
		}
		return nil, err
	}
	return &user, nil
}

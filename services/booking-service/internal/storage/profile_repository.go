package storage

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/farmaciavalero/farmaline/libs/db"
)

type ProfileRow struct {
	ID       string
	FullName string
	Phone    string
}

type ProfileRepository struct {
	pool *db.Pool
}

func NewProfileRepository(pool *db.Pool) *ProfileRepository {
	return &ProfileRepository{pool: pool}
}

// ErrProfileNotFound reports a token subject with no profile row.
var ErrProfileNotFound = pgx.ErrNoRows

func (r *ProfileRepository) GetByID(ctx context.Context, id string) (ProfileRow, error) {
	var row ProfileRow
	err := r.pool.QueryRow(ctx, `
		SELECT id, COALESCE(full_name, ''), COALESCE(phone, '')
		FROM profiles
		WHERE id = $1
	`, id).Scan(&row.ID, &row.FullName, &row.Phone)
	if err != nil {
		return ProfileRow{}, err
	}
	return row, nil
}

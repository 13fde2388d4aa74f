package storage

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/farmaciavalero/farmaline/libs/db"
)

type User struct {
	ID           string
	Email        string
	PasswordHash string
	Role         string
}

type UserRepository struct {
	pool *db.Pool
}

func NewUserRepository(pool *db.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

// CreateTx inserts the user together with their profile row. The profile
// shares the user id so tokens resolve straight to a profile.
func (r *UserRepository) CreateTx(ctx context.Context, tx pgx.Tx, user User, fullName, phone string) error {
	if _, err := tx.Exec(ctx, `
		INSERT INTO users (id, email, password_hash, role)
		VALUES ($1, $2, $3, $4)
	`, user.ID, user.Email, user.PasswordHash, user.Role); err != nil {
		return err
	}
	_, err := tx.Exec(ctx, `
		INSERT INTO profiles (id, full_name, phone)
		VALUES ($1, $2, $3)
	`, user.ID, fullName, phone)
	return err
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (User, error) {
	var user User
	err := r.pool.QueryRow(ctx, `
		SELECT id, email, password_hash, role
		FROM users
		WHERE email = $1
	`, email).Scan(&user.ID, &user.Email, &user.PasswordHash, &user.Role)
	if err != nil {
		return User{}, err
	}
	return user, nil
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (User, error) {
	var user User
	err := r.pool.QueryRow(ctx, `
		SELECT id, email, password_hash, role
		FROM users
		WHERE id = $1
	`, id).Scan(&user.ID, &user.Email, &user.PasswordHash, &user.Role)
	if err != nil {
		return User{}, err
	}
	return user, nil
}

type Profile struct {
	ID         string
	Email      string
	FullName   string
	Phone      string
	DNI        string
	Address    string
	City       string
	PostalCode string
}

func (r *UserRepository) GetProfile(ctx context.Context, id string) (Profile, error) {
	var p Profile
	err := r.pool.QueryRow(ctx, `
		SELECT p.id, u.email,
		       COALESCE(p.full_name, ''), COALESCE(p.phone, ''),
		       COALESCE(p.dni, ''), COALESCE(p.address, ''),
		       COALESCE(p.city, ''), COALESCE(p.postal_code, '')
		FROM profiles p
		JOIN users u ON u.id = p.id
		WHERE p.id = $1
	`, id).Scan(&p.ID, &p.Email, &p.FullName, &p.Phone, &p.DNI, &p.Address, &p.City, &p.PostalCode)
	if err != nil {
		return Profile{}, err
	}
	return p, nil
}

func (r *UserRepository) UpdateProfile(ctx context.Context, p Profile) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE profiles
		SET full_name = $2, phone = $3, dni = $4, address = $5,
		    city = $6, postal_code = $7, updated_at = now()
		WHERE id = $1
	`, p.ID, p.FullName, p.Phone, p.DNI, p.Address, p.City, p.PostalCode)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func IsNotFound(err error) bool {
	return err == pgx.ErrNoRows
}

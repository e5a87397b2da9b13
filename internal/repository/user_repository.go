package repository

import (
	"database/sql"
	"fmt"

	"github.com/liveshop/backend/internal/database"
	"github.com/liveshop/backend/internal/models"
)

// UserRepository handles user data access
type UserRepository struct {
	db *database.DB
}

func NewUserRepository(db *database.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create inserts a new user
func (r *UserRepository) Create(user *models.User) error {
	query := `
		INSERT INTO users (email, name, phone_num, role, profile_slug, address, bank_name, account_num, password_hash)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, balance, created_at, updated_at
	`
	err := r.db.QueryRow(query,
		user.Email, user.Name, user.PhoneNum, user.Role, user.ProfileSlug,
		user.Address, user.BankName, user.AccountNum, user.PasswordHash,
	).Scan(&user.ID, &user.Balance, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

const userColumns = `id, email, name, phone_num, role, profile_slug, address, balance, bank_name, account_num, password_hash, created_at, updated_at`

func scanUser(row *sql.Row) (*models.User, error) {
	var u models.User
	err := row.Scan(
		&u.ID, &u.Email, &u.Name, &u.PhoneNum, &u.Role, &u.ProfileSlug,
		&u.Address, &u.Balance, &u.BankName, &u.AccountNum, &u.PasswordHash,
		&u.CreatedAt, &u.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan user: %w", err)
	}
	return &u, nil
}

// GetByEmail fetches a user by email
func (r *UserRepository) GetByEmail(email string) (*models.User, error) {
	row := r.db.QueryRow(`SELECT `+userColumns+` FROM users WHERE email = $1`, email)
	return scanUser(row)
}

// GetByID fetches a user by id
func (r *UserRepository) GetByID(id int64) (*models.User, error) {
	row := r.db.QueryRow(`SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	return scanUser(row)
}

// UpdateProfile updates the mutable profile fields
func (r *UserRepository) UpdateProfile(user *models.User) error {
	query := `
		UPDATE users
		SET name = $1, phone_num = $2, address = $3, bank_name = $4, account_num = $5, updated_at = NOW()
		WHERE id = $6
	`
	result, err := r.db.Exec(query,
		user.Name, user.PhoneNum, user.Address, user.BankName, user.AccountNum, user.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

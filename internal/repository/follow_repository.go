package repository

import (
	"fmt"

	"github.com/liveshop/backend/internal/database"
	"github.com/liveshop/backend/internal/models"
)

// FollowRepository handles seller follow relationships
type FollowRepository struct {
	db *database.DB
}

func NewFollowRepository(db *database.DB) *FollowRepository {
	return &FollowRepository{db: db}
}

// Add records a follow. Following the same seller twice is a no-op.
func (r *FollowRepository) Add(sellerID, followerID int64) error {
	_, err := r.db.Exec(`
		INSERT INTO follows (seller_id, follower_id)
		VALUES ($1, $2)
		ON CONFLICT (seller_id, follower_id) DO NOTHING
	`, sellerID, followerID)
	if err != nil {
		return fmt.Errorf("failed to add follow: %w", err)
	}
	return nil
}

// Remove deletes a follow
func (r *FollowRepository) Remove(sellerID, followerID int64) error {
	result, err := r.db.Exec(
		`DELETE FROM follows WHERE seller_id = $1 AND follower_id = $2`,
		sellerID, followerID,
	)
	if err != nil {
		return fmt.Errorf("failed to remove follow: %w", err)
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

// ListFollowers fetches everyone following the seller. Used to fan out
// broadcast-start notifications.
func (r *FollowRepository) ListFollowers(sellerID int64) ([]models.User, error) {
	rows, err := r.db.Query(`
		SELECT u.id, u.email, u.name, u.phone_num
		FROM follows f
		JOIN users u ON u.id = f.follower_id
		WHERE f.seller_id = $1
		ORDER BY f.created_at
	`, sellerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list followers: %w", err)
	}
	defer rows.Close()

	followers := []models.User{}
	for rows.Next() {
		var u models.User
		if err := rows.Scan(&u.ID, &u.Email, &u.Name, &u.PhoneNum); err != nil {
			return nil, fmt.Errorf("failed to scan follower: %w", err)
		}
		followers = append(followers, u)
	}
	return followers, rows.Err()
}

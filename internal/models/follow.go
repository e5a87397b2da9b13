package models

import "time"

// Follow links a viewer to a seller so broadcast-start notifications know
// who to reach.
type Follow struct {
	ID         int64     `json:"id" db:"id"`
	SellerID   int64     `json:"seller_id" db:"seller_id"`
	FollowerID int64     `json:"follower_id" db:"follower_id"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}

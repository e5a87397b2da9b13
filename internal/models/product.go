package models

import "time"

// Option is a named stock bucket for a product ("S", "M", "red"...).
// Quantity is the authoritative remaining stock for that bucket.
type Option struct {
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
}

type Product struct {
	ID          int64     `json:"id" db:"id"`
	SellerID    int64     `json:"seller_id" db:"seller_id"`
	Name        string    `json:"name" db:"name"`
	Price       int       `json:"price" db:"price"`
	Description string    `json:"description,omitempty" db:"description"`
	Image       string    `json:"image,omitempty" db:"image"`
	IsPublic    bool      `json:"is_public" db:"is_public"`
	Options     []Option  `json:"options"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

// OptionQuantity is one line of a reservation request: take Quantity units
// out of the option named Name.
type OptionQuantity struct {
	Name     string `json:"name" binding:"required"`
	Quantity int    `json:"quantity" binding:"required,min=1"`
}

// TotalQuantity sums the requested units across all option lines.
func TotalQuantity(reqs []OptionQuantity) int {
	total := 0
	for _, r := range reqs {
		total += r.Quantity
	}
	return total
}

package models

import "time"

// Plan is a purchasable bundle of broadcast minutes plus a viewer cap.
type Plan struct {
	ID           int64   `json:"id" db:"id"`
	Name         string  `json:"name" db:"name"`
	Minutes      int     `json:"minutes" db:"minutes"`
	MaxViewer    int     `json:"max_viewer" db:"max_viewer"`
	Price        float64 `json:"price" db:"price"`
	IsActive     bool    `json:"is_active" db:"is_active"`
	DisplayOrder int     `json:"display_order" db:"display_order"`
}

// SellerPlan is the per-seller plan meter: one row per seller, minutes
// accumulate across purchases, the viewer cap is replaced by the latest
// purchase. RemainMinutes never goes negative; a session that outruns the
// meter drains it to zero and the start precondition (>= 1) stops the next
// session.
type SellerPlan struct {
	ID            int64 `json:"id" db:"id"`
	SellerID      int64 `json:"seller_id" db:"seller_id"`
	PlanID        int64 `json:"plan_id" db:"plan_id"`
	RemainMinutes int   `json:"remain_minutes" db:"remain_minutes"`
	MaxViewer     int   `json:"max_viewer" db:"max_viewer"`
}

// PointTransaction records every balance movement on a seller account.
type PointTransaction struct {
	ID        int64     `json:"id" db:"id"`
	UserID    int64     `json:"user_id" db:"user_id"`
	Amount    float64   `json:"amount" db:"amount"`
	Memo      string    `json:"memo" db:"memo"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// PurchaseResult summarizes a plan purchase, including how many open
// broadcasts had their viewer cap raised retroactively.
type PurchaseResult struct {
	SellerPlan        SellerPlan `json:"seller_plan"`
	UpdatedBroadcasts int        `json:"updated_broadcasts"`
	NewMaxViewer      int        `json:"new_max_viewer"`
}

type PurchasePlanRequest struct {
	PlanID int64 `json:"plan_id" binding:"required"`
}

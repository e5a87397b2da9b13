package repository

import (
	"database/sql"
	"fmt"

	"github.com/liveshop/backend/internal/database"
	"github.com/liveshop/backend/internal/models"
)

// PlanRepository handles broadcast plan purchases and the per-seller
// minute meter
type PlanRepository struct {
	db *database.DB
}

func NewPlanRepository(db *database.DB) *PlanRepository {
	return &PlanRepository{db: db}
}

// ListActive fetches the purchasable plans in display order
func (r *PlanRepository) ListActive() ([]models.Plan, error) {
	rows, err := r.db.Query(`
		SELECT id, name, minutes, max_viewer, price, is_active, display_order
		FROM plans WHERE is_active = true
		ORDER BY display_order, id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list plans: %w", err)
	}
	defer rows.Close()

	plans := []models.Plan{}
	for rows.Next() {
		var p models.Plan
		if err := rows.Scan(&p.ID, &p.Name, &p.Minutes, &p.MaxViewer, &p.Price, &p.IsActive, &p.DisplayOrder); err != nil {
			return nil, fmt.Errorf("failed to scan plan: %w", err)
		}
		plans = append(plans, p)
	}
	return plans, rows.Err()
}

// GetBySeller fetches the seller's plan meter. Returns ErrNotFound when the
// seller never purchased a plan.
func (r *PlanRepository) GetBySeller(sellerID int64) (*models.SellerPlan, error) {
	var sp models.SellerPlan
	err := r.db.QueryRow(`
		SELECT id, seller_id, plan_id, remain_minutes, max_viewer
		FROM seller_plans WHERE seller_id = $1
	`, sellerID).Scan(&sp.ID, &sp.SellerID, &sp.PlanID, &sp.RemainMinutes, &sp.MaxViewer)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get seller plan: %w", err)
	}
	return &sp, nil
}

// Purchase buys a plan for the seller in one transaction: deduct the price
// from the seller balance, record the point transaction, fold the plan into
// the seller's meter (minutes accumulate, the viewer cap is replaced), and
// retroactively raise the cap on every broadcast that has not ended yet.
func (r *PlanRepository) Purchase(sellerID, planID int64) (*models.PurchaseResult, error) {
	tx, err := r.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var plan models.Plan
	err = tx.QueryRow(`
		SELECT id, name, minutes, max_viewer, price, is_active, display_order
		FROM plans WHERE id = $1 AND is_active = true
	`, planID).Scan(&plan.ID, &plan.Name, &plan.Minutes, &plan.MaxViewer, &plan.Price, &plan.IsActive, &plan.DisplayOrder)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get plan: %w", err)
	}

	var balance float64
	err = tx.QueryRow(`SELECT balance FROM users WHERE id = $1 FOR UPDATE`, sellerID).Scan(&balance)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock balance: %w", err)
	}
	if balance < plan.Price {
		return nil, ErrInsufficientBalance
	}

	if _, err := tx.Exec(
		`UPDATE users SET balance = balance - $1, updated_at = NOW() WHERE id = $2`,
		plan.Price, sellerID,
	); err != nil {
		return nil, fmt.Errorf("failed to deduct balance: %w", err)
	}

	if _, err := tx.Exec(
		`INSERT INTO point_transactions (user_id, amount, memo) VALUES ($1, $2, $3)`,
		sellerID, -plan.Price, fmt.Sprintf("plan purchase: %s", plan.Name),
	); err != nil {
		return nil, fmt.Errorf("failed to record point transaction: %w", err)
	}

	var sp models.SellerPlan
	err = tx.QueryRow(`
		INSERT INTO seller_plans (seller_id, plan_id, remain_minutes, max_viewer)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (seller_id) DO UPDATE
		SET plan_id = $2, remain_minutes = seller_plans.remain_minutes + $3, max_viewer = $4
		RETURNING id, seller_id, plan_id, remain_minutes, max_viewer
	`, sellerID, plan.ID, plan.Minutes, plan.MaxViewer).Scan(
		&sp.ID, &sp.SellerID, &sp.PlanID, &sp.RemainMinutes, &sp.MaxViewer,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert seller plan: %w", err)
	}

	// open broadcasts pick up the new cap immediately, never shrinking one
	result, err := tx.Exec(`
		UPDATE broadcasts SET max_viewer = $1, updated_at = NOW()
		WHERE seller_id = $2 AND ended_at IS NULL AND max_viewer < $1
	`, plan.MaxViewer, sellerID)
	if err != nil {
		return nil, fmt.Errorf("failed to raise viewer caps: %w", err)
	}
	updated, err := result.RowsAffected()
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit purchase: %w", err)
	}

	return &models.PurchaseResult{
		SellerPlan:        sp,
		UpdatedBroadcasts: int(updated),
		NewMaxViewer:      plan.MaxViewer,
	}, nil
}

// DebitMinutes subtracts consumed session minutes from the meter, clamped at
// zero. A session that outran the meter drains it completely; the start
// precondition (>= 1) blocks the next session.
func (r *PlanRepository) DebitMinutes(sellerID int64, minutes int) (*models.SellerPlan, error) {
	var sp models.SellerPlan
	err := r.db.QueryRow(`
		UPDATE seller_plans SET remain_minutes = GREATEST(remain_minutes - $1, 0)
		WHERE seller_id = $2
		RETURNING id, seller_id, plan_id, remain_minutes, max_viewer
	`, minutes, sellerID).Scan(&sp.ID, &sp.SellerID, &sp.PlanID, &sp.RemainMinutes, &sp.MaxViewer)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to debit minutes: %w", err)
	}
	return &sp, nil
}

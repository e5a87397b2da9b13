package repository

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/liveshop/backend/internal/database"
	"github.com/liveshop/backend/internal/models"
)

// BroadcastRepository handles broadcast data access
type BroadcastRepository struct {
	db *database.DB
}

func NewBroadcastRepository(db *database.DB) *BroadcastRepository {
	return &BroadcastRepository{db: db}
}

// rosterJSON encodes the product roster, always as an array and never null.
func rosterJSON(ids []int64) ([]byte, error) {
	if ids == nil {
		ids = []int64{}
	}
	return json.Marshal(ids)
}

const broadcastColumns = `id, seller_id, title, thumbnail_url, scheduled_at, description, max_viewer, product_ids, started_at, ended_at, shipping_fee, meeting_room_id, hls_url, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBroadcast(row rowScanner) (*models.Broadcast, error) {
	var b models.Broadcast
	var roster []byte
	err := row.Scan(
		&b.ID, &b.SellerID, &b.Title, &b.ThumbnailURL, &b.ScheduledAt,
		&b.Description, &b.MaxViewer, &roster, &b.StartedAt, &b.EndedAt,
		&b.ShippingFee, &b.MeetingRoomID, &b.HLSURL, &b.CreatedAt, &b.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan broadcast: %w", err)
	}
	b.ProductIDs = []int64{}
	if len(roster) > 0 {
		if err := json.Unmarshal(roster, &b.ProductIDs); err != nil {
			return nil, fmt.Errorf("failed to decode roster: %w", err)
		}
	}
	return &b, nil
}

// Create inserts a scheduled broadcast. MaxViewer comes from the seller's
// current plan at creation time.
func (r *BroadcastRepository) Create(b *models.Broadcast) error {
	roster, err := rosterJSON(b.ProductIDs)
	if err != nil {
		return fmt.Errorf("failed to encode roster: %w", err)
	}
	query := `
		INSERT INTO broadcasts (seller_id, title, thumbnail_url, scheduled_at, description, max_viewer, product_ids, shipping_fee)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at, updated_at
	`
	err = r.db.QueryRow(query,
		b.SellerID, b.Title, b.ThumbnailURL, b.ScheduledAt,
		b.Description, b.MaxViewer, roster, b.ShippingFee,
	).Scan(&b.ID, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create broadcast: %w", err)
	}
	return nil
}

// Update rewrites the schedulable fields of a broadcast the seller owns.
// Lifecycle columns are never touched here.
func (r *BroadcastRepository) Update(b *models.Broadcast) error {
	roster, err := rosterJSON(b.ProductIDs)
	if err != nil {
		return fmt.Errorf("failed to encode roster: %w", err)
	}
	result, err := r.db.Exec(`
		UPDATE broadcasts
		SET title = $1, thumbnail_url = $2, scheduled_at = $3, description = $4,
		    product_ids = $5, shipping_fee = $6, updated_at = NOW()
		WHERE id = $7 AND seller_id = $8
	`, b.Title, b.ThumbnailURL, b.ScheduledAt, b.Description, roster, b.ShippingFee, b.ID, b.SellerID)
	if err != nil {
		return fmt.Errorf("failed to update broadcast: %w", err)
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

// GetByID fetches a broadcast by id
func (r *BroadcastRepository) GetByID(id int64) (*models.Broadcast, error) {
	row := r.db.QueryRow(`SELECT `+broadcastColumns+` FROM broadcasts WHERE id = $1`, id)
	return scanBroadcast(row)
}

// GetBySellerAndID fetches a broadcast the seller owns
func (r *BroadcastRepository) GetBySellerAndID(sellerID, id int64) (*models.Broadcast, error) {
	row := r.db.QueryRow(
		`SELECT `+broadcastColumns+` FROM broadcasts WHERE id = $1 AND seller_id = $2`,
		id, sellerID,
	)
	return scanBroadcast(row)
}

// ListBySeller fetches a page of the seller's broadcasts, newest schedule first
func (r *BroadcastRepository) ListBySeller(sellerID int64, limit, offset int) ([]models.Broadcast, error) {
	rows, err := r.db.Query(`
		SELECT `+broadcastColumns+` FROM broadcasts
		WHERE seller_id = $1
		ORDER BY scheduled_at DESC
		LIMIT $2 OFFSET $3
	`, sellerID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list broadcasts: %w", err)
	}
	defer rows.Close()

	broadcasts := []models.Broadcast{}
	for rows.Next() {
		b, err := scanBroadcast(rows)
		if err != nil {
			return nil, err
		}
		broadcasts = append(broadcasts, *b)
	}
	return broadcasts, rows.Err()
}

// DeleteBySellerAndID removes one scheduled or ended broadcast. A live
// broadcast cannot be deleted.
func (r *BroadcastRepository) DeleteBySellerAndID(sellerID, id int64) error {
	result, err := r.db.Exec(`
		DELETE FROM broadcasts
		WHERE id = $1 AND seller_id = $2 AND NOT (started_at IS NOT NULL AND ended_at IS NULL)
	`, id, sellerID)
	if err != nil {
		return fmt.Errorf("failed to delete broadcast: %w", err)
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

// Start stamps started_at, guarded so a broadcast can only start once.
// Returns ErrConflict when the broadcast is already started or missing.
func (r *BroadcastRepository) Start(sellerID, id int64, startedAt time.Time) error {
	result, err := r.db.Exec(`
		UPDATE broadcasts
		SET started_at = $1, updated_at = NOW()
		WHERE id = $2 AND seller_id = $3 AND started_at IS NULL
	`, startedAt, id, sellerID)
	if err != nil {
		return fmt.Errorf("failed to start broadcast: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrConflict
	}
	return nil
}

// End stamps ended_at, guarded so a session ends exactly once. The guard is
// what makes the minute debit idempotent.
func (r *BroadcastRepository) End(sellerID, id int64, endedAt time.Time) error {
	result, err := r.db.Exec(`
		UPDATE broadcasts
		SET ended_at = $1, updated_at = NOW()
		WHERE id = $2 AND seller_id = $3 AND started_at IS NOT NULL AND ended_at IS NULL
	`, endedAt, id, sellerID)
	if err != nil {
		return fmt.Errorf("failed to end broadcast: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrConflict
	}
	return nil
}

// SetRoster persists the product roster
func (r *BroadcastRepository) SetRoster(id int64, productIDs []int64) error {
	roster, err := rosterJSON(productIDs)
	if err != nil {
		return fmt.Errorf("failed to encode roster: %w", err)
	}
	result, err := r.db.Exec(
		`UPDATE broadcasts SET product_ids = $1, updated_at = NOW() WHERE id = $2`,
		roster, id,
	)
	if err != nil {
		return fmt.Errorf("failed to set roster: %w", err)
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

// SetMeetingRoom persists the streaming room id acquired at start
func (r *BroadcastRepository) SetMeetingRoom(id int64, roomID string) error {
	_, err := r.db.Exec(
		`UPDATE broadcasts SET meeting_room_id = $1, updated_at = NOW() WHERE id = $2`,
		roomID, id,
	)
	if err != nil {
		return fmt.Errorf("failed to set meeting room: %w", err)
	}
	return nil
}

// SetHLS persists the playback URL reported by the media pipeline
func (r *BroadcastRepository) SetHLS(sellerID, id int64, hlsURL string) error {
	result, err := r.db.Exec(
		`UPDATE broadcasts SET hls_url = $1, updated_at = NOW() WHERE id = $2 AND seller_id = $3`,
		hlsURL, id, sellerID,
	)
	if err != nil {
		return fmt.Errorf("failed to set hls url: %w", err)
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

package models

import "time"

// Broadcast is the durable row for one scheduled/live/ended live-commerce
// session. startedAt/endedAt encode the lifecycle: null/null = scheduled,
// set/null = live, set/set = ended.
type Broadcast struct {
	ID            int64      `json:"id" db:"id"`
	SellerID      int64      `json:"seller_id" db:"seller_id"`
	Title         string     `json:"title" db:"title"`
	ThumbnailURL  string     `json:"thumbnail_url,omitempty" db:"thumbnail_url"`
	ScheduledAt   time.Time  `json:"scheduled_at" db:"scheduled_at"`
	Description   string     `json:"description,omitempty" db:"description"`
	MaxViewer     int        `json:"max_viewer" db:"max_viewer"`
	ProductIDs    []int64    `json:"product_ids"`
	StartedAt     *time.Time `json:"started_at,omitempty" db:"started_at"`
	EndedAt       *time.Time `json:"ended_at,omitempty" db:"ended_at"`
	ShippingFee   int        `json:"shipping_fee" db:"shipping_fee"`
	MeetingRoomID *string    `json:"meeting_room_id,omitempty" db:"meeting_room_id"`
	HLSURL        *string    `json:"hls_url,omitempty" db:"hls_url"`
	CreatedAt     time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at" db:"updated_at"`
}

// IsLive reports whether the durable row says the session is open.
// The session snapshot, not this flag, is authoritative for catalog edits.
func (b *Broadcast) IsLive() bool {
	return b.StartedAt != nil && b.EndedAt == nil
}

// HasProduct reports whether id is in the roster.
func (b *Broadcast) HasProduct(id int64) bool {
	for _, pid := range b.ProductIDs {
		if pid == id {
			return true
		}
	}
	return false
}

type CreateBroadcastRequest struct {
	Title        string    `json:"title" binding:"required"`
	ThumbnailURL string    `json:"thumbnail_url,omitempty"`
	ScheduledAt  time.Time `json:"scheduled_at" binding:"required"`
	Description  string    `json:"description,omitempty"`
	ShippingFee  int       `json:"shipping_fee" binding:"min=0"`
	ProductIDs   []int64   `json:"product_ids"`
}

type UpdateBroadcastRequest struct {
	ID           int64     `json:"id" binding:"required"`
	Title        string    `json:"title" binding:"required"`
	ThumbnailURL string    `json:"thumbnail_url,omitempty"`
	ScheduledAt  time.Time `json:"scheduled_at" binding:"required"`
	Description  string    `json:"description,omitempty"`
	ShippingFee  int       `json:"shipping_fee" binding:"min=0"`
	ProductIDs   []int64   `json:"product_ids"`
}

type DeleteBroadcastsRequest struct {
	BroadcastIDs []int64 `json:"broadcast_ids" binding:"required,min=1"`
}

type RosterProductRequest struct {
	BroadcastID int64 `json:"broadcast_id" binding:"required"`
	ProductID   int64 `json:"product_id" binding:"required"`
}

type AnnouncementRequest struct {
	BroadcastID  int64  `json:"broadcast_id" binding:"required"`
	Announcement string `json:"announcement"`
}

type DiscountRequest struct {
	BroadcastID   int64 `json:"broadcast_id" binding:"required"`
	ProductID     int64 `json:"product_id" binding:"required"`
	DiscountPrice int   `json:"discount_price" binding:"min=0"`
}

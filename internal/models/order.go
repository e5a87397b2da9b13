package models

import "time"

// Order status machine. WAITING is the only creation state. WAITING -> DONE
// when the seller marks fulfilment (creates a Delivery), WAITING ->
// CANCEL_REQUEST when the buyer asks to cancel (creates a Return). The
// return flow then moves the order to CANCEL or CANCEL_CANCEL; see
// return.go for the mapping.
type OrderStatus string

const (
	OrderWaiting       OrderStatus = "WAITING"
	OrderDone          OrderStatus = "DONE"
	OrderCancelRequest OrderStatus = "CANCEL_REQUEST"
	OrderCancel        OrderStatus = "CANCEL"
	OrderCancelCancel  OrderStatus = "CANCEL_CANCEL"
)

// InCancelFlow reports whether the order already entered the cancel/return
// path; a second buyer cancellation is a conflict.
func (s OrderStatus) InCancelFlow() bool {
	return s == OrderCancel || s == OrderCancelRequest || s == OrderCancelCancel
}

type Order struct {
	ID          int64            `json:"id" db:"id"`
	SellerID    int64            `json:"seller_id" db:"seller_id"`
	BuyerID     int64            `json:"buyer_id" db:"buyer_id"`
	ProductID   int64            `json:"product_id" db:"product_id"`
	BuyerName   string           `json:"buyer_name" db:"buyer_name"`
	PhoneNum    string           `json:"phone_num,omitempty" db:"phone_num"`
	ProductName string           `json:"product_name" db:"product_name"`
	Options     []OptionQuantity `json:"options"`
	Price       int              `json:"price" db:"price"`
	Address     string           `json:"address" db:"address"`
	Status      OrderStatus      `json:"status" db:"status"`
	BroadcastID *int64           `json:"broadcast_id,omitempty" db:"broadcast_id"`
	OrderedAt   time.Time        `json:"ordered_at" db:"ordered_at"`
}

type PlaceOrderRequest struct {
	ProductID   int64            `json:"product_id" binding:"required"`
	Options     []OptionQuantity `json:"options" binding:"required,min=1,dive"`
	Address     string           `json:"address"`
	BroadcastID *int64           `json:"broadcast_id,omitempty"`
}

type OrderStatusRequest struct {
	Status OrderStatus `json:"status" binding:"required"`
}

type CancelOrderRequest struct {
	Reason string `json:"reason" binding:"required"`
}

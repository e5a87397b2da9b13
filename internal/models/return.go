package models

import "time"

// ReturnStatus drives the tail of the order status machine. The mapping to
// order statuses is kept exactly as the product behaves in production:
//
//	return CANCEL (request withdrawn)  -> order CANCEL_CANCEL
//	return DONE   (return completed)   -> order CANCEL
//
// The naming reads inverted; do not "fix" it without product-owner sign-off,
// downstream consumers depend on the observed values.
type ReturnStatus string

const (
	ReturnRequest ReturnStatus = "REQUEST"
	ReturnCancel  ReturnStatus = "CANCEL"
	ReturnDone    ReturnStatus = "DONE"
)

// OrderStatusFor returns the order status a return transition maps to.
func (s ReturnStatus) OrderStatusFor() (OrderStatus, bool) {
	switch s {
	case ReturnCancel:
		return OrderCancelCancel, true
	case ReturnDone:
		return OrderCancel, true
	default:
		return "", false
	}
}

type Return struct {
	ID          int64            `json:"id" db:"id"`
	OrderID     int64            `json:"order_id" db:"order_id"`
	SellerID    int64            `json:"seller_id" db:"seller_id"`
	BuyerName   string           `json:"buyer_name" db:"buyer_name"`
	ProductName string           `json:"product_name" db:"product_name"`
	Options     []OptionQuantity `json:"options"`
	Price       int              `json:"price" db:"price"`
	BankName    string           `json:"bank_name,omitempty" db:"bank_name"`
	AccountNum  string           `json:"account_num,omitempty" db:"account_num"`
	Reason      string           `json:"reason" db:"reason"`
	Status      ReturnStatus     `json:"status" db:"status"`
	RequestedAt time.Time        `json:"requested_at" db:"requested_at"`
}

type ReturnStatusRequest struct {
	Status ReturnStatus `json:"status" binding:"required,oneof=CANCEL DONE"`
}

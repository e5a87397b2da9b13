package models

import "time"

type DeliveryStatus string

const (
	DeliveryReady    DeliveryStatus = "READY"
	DeliveryShipping DeliveryStatus = "SHIPPING"
	DeliveryDone     DeliveryStatus = "DONE"
)

// Delivery is created when a seller marks an order DONE. Courier fields stay
// empty until the seller registers a tracking number.
type Delivery struct {
	ID             int64            `json:"id" db:"id"`
	OrderID        int64            `json:"order_id" db:"order_id"`
	SellerID       int64            `json:"seller_id" db:"seller_id"`
	ProductName    string           `json:"product_name" db:"product_name"`
	Options        []OptionQuantity `json:"options"`
	OrderedAt      time.Time        `json:"ordered_at" db:"ordered_at"`
	RecipientName  string           `json:"recipient_name" db:"recipient_name"`
	PhoneNum       string           `json:"phone_num,omitempty" db:"phone_num"`
	Address        string           `json:"address" db:"address"`
	CourierCompany string           `json:"courier_company,omitempty" db:"courier_company"`
	CourierCode    string           `json:"courier_code,omitempty" db:"courier_code"`
	Status         DeliveryStatus   `json:"status" db:"status"`
}

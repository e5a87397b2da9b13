package repository

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/liveshop/backend/internal/database"
	"github.com/liveshop/backend/internal/models"
)

// OrderRepository handles orders, deliveries and returns
type OrderRepository struct {
	db *database.DB
}

func NewOrderRepository(db *database.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

func optionsJSON(opts []models.OptionQuantity) ([]byte, error) {
	if opts == nil {
		opts = []models.OptionQuantity{}
	}
	return json.Marshal(opts)
}

const orderColumns = `id, seller_id, buyer_id, product_id, buyer_name, phone_num, product_name, options, price, address, status, broadcast_id, ordered_at`

func scanOrder(row rowScanner) (*models.Order, error) {
	var o models.Order
	var opts []byte
	err := row.Scan(
		&o.ID, &o.SellerID, &o.BuyerID, &o.ProductID, &o.BuyerName, &o.PhoneNum,
		&o.ProductName, &opts, &o.Price, &o.Address, &o.Status, &o.BroadcastID, &o.OrderedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan order: %w", err)
	}
	o.Options = []models.OptionQuantity{}
	if len(opts) > 0 {
		if err := json.Unmarshal(opts, &o.Options); err != nil {
			return nil, fmt.Errorf("failed to decode order options: %w", err)
		}
	}
	return &o, nil
}

// Create inserts an order in WAITING state
func (r *OrderRepository) Create(o *models.Order) error {
	opts, err := optionsJSON(o.Options)
	if err != nil {
		return fmt.Errorf("failed to encode options: %w", err)
	}
	query := `
		INSERT INTO orders (seller_id, buyer_id, product_id, buyer_name, phone_num, product_name, options, price, address, status, broadcast_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id, ordered_at
	`
	err = r.db.QueryRow(query,
		o.SellerID, o.BuyerID, o.ProductID, o.BuyerName, o.PhoneNum,
		o.ProductName, opts, o.Price, o.Address, o.Status, o.BroadcastID,
	).Scan(&o.ID, &o.OrderedAt)
	if err != nil {
		return fmt.Errorf("failed to create order: %w", err)
	}
	return nil
}

// GetByID fetches an order by id
func (r *OrderRepository) GetByID(id int64) (*models.Order, error) {
	row := r.db.QueryRow(`SELECT `+orderColumns+` FROM orders WHERE id = $1`, id)
	return scanOrder(row)
}

// ListByBuyer fetches the buyer's orders, newest first
func (r *OrderRepository) ListByBuyer(buyerID int64) ([]models.Order, error) {
	rows, err := r.db.Query(
		`SELECT `+orderColumns+` FROM orders WHERE buyer_id = $1 ORDER BY ordered_at DESC`,
		buyerID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	defer rows.Close()

	orders := []models.Order{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, *o)
	}
	return orders, rows.Err()
}

// ListBySeller fetches the seller's orders, optionally scoped to one
// broadcast, newest first
func (r *OrderRepository) ListBySeller(sellerID int64, broadcastID *int64) ([]models.Order, error) {
	var rows *sql.Rows
	var err error
	if broadcastID != nil {
		rows, err = r.db.Query(
			`SELECT `+orderColumns+` FROM orders WHERE seller_id = $1 AND broadcast_id = $2 ORDER BY ordered_at DESC`,
			sellerID, *broadcastID,
		)
	} else {
		rows, err = r.db.Query(
			`SELECT `+orderColumns+` FROM orders WHERE seller_id = $1 ORDER BY ordered_at DESC`,
			sellerID,
		)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	defer rows.Close()

	orders := []models.Order{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, *o)
	}
	return orders, rows.Err()
}

// UpdateStatus moves an order from one status to another. The current-status
// guard makes each transition fire at most once.
func (r *OrderRepository) UpdateStatus(orderID int64, from, to models.OrderStatus) error {
	result, err := r.db.Exec(
		`UPDATE orders SET status = $1 WHERE id = $2 AND status = $3`,
		to, orderID, from,
	)
	if err != nil {
		return fmt.Errorf("failed to update order status: %w", err)
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

// SetStatus overwrites the order status without a transition guard. Used by
// the return flow, where the guard lives on the return row instead.
func (r *OrderRepository) SetStatus(orderID int64, status models.OrderStatus) error {
	result, err := r.db.Exec(`UPDATE orders SET status = $1 WHERE id = $2`, status, orderID)
	if err != nil {
		return fmt.Errorf("failed to set order status: %w", err)
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

// CreateDelivery inserts the delivery row for a fulfilled order
func (r *OrderRepository) CreateDelivery(d *models.Delivery) error {
	opts, err := optionsJSON(d.Options)
	if err != nil {
		return fmt.Errorf("failed to encode options: %w", err)
	}
	query := `
		INSERT INTO deliveries (order_id, seller_id, product_name, options, ordered_at, recipient_name, phone_num, address, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id
	`
	err = r.db.QueryRow(query,
		d.OrderID, d.SellerID, d.ProductName, opts, d.OrderedAt,
		d.RecipientName, d.PhoneNum, d.Address, d.Status,
	).Scan(&d.ID)
	if err != nil {
		return fmt.Errorf("failed to create delivery: %w", err)
	}
	return nil
}

// GetDeliveryByOrder fetches the delivery for an order, if any
func (r *OrderRepository) GetDeliveryByOrder(orderID int64) (*models.Delivery, error) {
	var d models.Delivery
	var opts []byte
	err := r.db.QueryRow(`
		SELECT id, order_id, seller_id, product_name, options, ordered_at, recipient_name, phone_num, address, courier_company, courier_code, status
		FROM deliveries WHERE order_id = $1
	`, orderID).Scan(
		&d.ID, &d.OrderID, &d.SellerID, &d.ProductName, &opts, &d.OrderedAt,
		&d.RecipientName, &d.PhoneNum, &d.Address, &d.CourierCompany, &d.CourierCode, &d.Status,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get delivery: %w", err)
	}
	d.Options = []models.OptionQuantity{}
	if len(opts) > 0 {
		if err := json.Unmarshal(opts, &d.Options); err != nil {
			return nil, fmt.Errorf("failed to decode delivery options: %w", err)
		}
	}
	return &d, nil
}

// CreateReturn inserts a return request
func (r *OrderRepository) CreateReturn(ret *models.Return) error {
	opts, err := optionsJSON(ret.Options)
	if err != nil {
		return fmt.Errorf("failed to encode options: %w", err)
	}
	query := `
		INSERT INTO returns (order_id, seller_id, buyer_name, product_name, options, price, bank_name, account_num, reason, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, requested_at
	`
	err = r.db.QueryRow(query,
		ret.OrderID, ret.SellerID, ret.BuyerName, ret.ProductName, opts,
		ret.Price, ret.BankName, ret.AccountNum, ret.Reason, ret.Status,
	).Scan(&ret.ID, &ret.RequestedAt)
	if err != nil {
		return fmt.Errorf("failed to create return: %w", err)
	}
	return nil
}

// GetReturn fetches a return by id
func (r *OrderRepository) GetReturn(id int64) (*models.Return, error) {
	var ret models.Return
	var opts []byte
	err := r.db.QueryRow(`
		SELECT id, order_id, seller_id, buyer_name, product_name, options, price, bank_name, account_num, reason, status, requested_at
		FROM returns WHERE id = $1
	`, id).Scan(
		&ret.ID, &ret.OrderID, &ret.SellerID, &ret.BuyerName, &ret.ProductName, &opts,
		&ret.Price, &ret.BankName, &ret.AccountNum, &ret.Reason, &ret.Status, &ret.RequestedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get return: %w", err)
	}
	ret.Options = []models.OptionQuantity{}
	if len(opts) > 0 {
		if err := json.Unmarshal(opts, &ret.Options); err != nil {
			return nil, fmt.Errorf("failed to decode return options: %w", err)
		}
	}
	return &ret, nil
}

// ListReturnsBySeller fetches the seller's return requests, newest first
func (r *OrderRepository) ListReturnsBySeller(sellerID int64) ([]models.Return, error) {
	rows, err := r.db.Query(`
		SELECT id, order_id, seller_id, buyer_name, product_name, options, price, bank_name, account_num, reason, status, requested_at
		FROM returns WHERE seller_id = $1 ORDER BY requested_at DESC
	`, sellerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list returns: %w", err)
	}
	defer rows.Close()

	returns := []models.Return{}
	for rows.Next() {
		var ret models.Return
		var opts []byte
		err := rows.Scan(
			&ret.ID, &ret.OrderID, &ret.SellerID, &ret.BuyerName, &ret.ProductName, &opts,
			&ret.Price, &ret.BankName, &ret.AccountNum, &ret.Reason, &ret.Status, &ret.RequestedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan return: %w", err)
		}
		ret.Options = []models.OptionQuantity{}
		if len(opts) > 0 {
			if err := json.Unmarshal(opts, &ret.Options); err != nil {
				return nil, fmt.Errorf("failed to decode return options: %w", err)
			}
		}
		returns = append(returns, ret)
	}
	return returns, rows.Err()
}

// UpdateReturnStatus resolves a return request. Only REQUEST rows can be
// resolved, so settling the same return twice reports a conflict.
func (r *OrderRepository) UpdateReturnStatus(returnID int64, to models.ReturnStatus) error {
	result, err := r.db.Exec(
		`UPDATE returns SET status = $1 WHERE id = $2 AND status = $3`,
		to, returnID, models.ReturnRequest,
	)
	if err != nil {
		return fmt.Errorf("failed to update return status: %w", err)
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

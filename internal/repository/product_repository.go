package repository

import (
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"github.com/liveshop/backend/internal/database"
	"github.com/liveshop/backend/internal/models"
)

// ProductRepository handles product and stock data access
type ProductRepository struct {
	db *database.DB
}

func NewProductRepository(db *database.DB) *ProductRepository {
	return &ProductRepository{db: db}
}

// Create inserts a product with its options in one transaction
func (r *ProductRepository) Create(product *models.Product) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO products (seller_id, name, price, description, image, is_public)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at
	`
	err = tx.QueryRow(query,
		product.SellerID, product.Name, product.Price,
		product.Description, product.Image, product.IsPublic,
	).Scan(&product.ID, &product.CreatedAt, &product.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create product: %w", err)
	}

	for _, opt := range product.Options {
		_, err := tx.Exec(
			`INSERT INTO product_options (product_id, name, quantity) VALUES ($1, $2, $3)`,
			product.ID, opt.Name, opt.Quantity,
		)
		if err != nil {
			return fmt.Errorf("failed to create product option: %w", err)
		}
	}

	return tx.Commit()
}

// GetByID fetches a product with its options
func (r *ProductRepository) GetByID(id int64) (*models.Product, error) {
	var p models.Product
	err := r.db.QueryRow(`
		SELECT id, seller_id, name, price, description, image, is_public, created_at, updated_at
		FROM products WHERE id = $1
	`, id).Scan(&p.ID, &p.SellerID, &p.Name, &p.Price, &p.Description, &p.Image, &p.IsPublic, &p.CreatedAt, &p.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get product: %w", err)
	}

	if err := r.loadOptions(&p); err != nil {
		return nil, err
	}
	return &p, nil
}

// ListBySeller fetches all products of a seller, newest first
func (r *ProductRepository) ListBySeller(sellerID int64) ([]models.Product, error) {
	rows, err := r.db.Query(`
		SELECT id, seller_id, name, price, description, image, is_public, created_at, updated_at
		FROM products WHERE seller_id = $1
		ORDER BY created_at DESC
	`, sellerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	defer rows.Close()

	products := []models.Product{}
	for rows.Next() {
		var p models.Product
		if err := rows.Scan(&p.ID, &p.SellerID, &p.Name, &p.Price, &p.Description, &p.Image, &p.IsPublic, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range products {
		if err := r.loadOptions(&products[i]); err != nil {
			return nil, err
		}
	}
	return products, nil
}

// GetOwned fetches the given products and verifies every one belongs to the
// seller. The result preserves the order of ids, so a broadcast roster keeps
// its product ordering. Returns ErrNotFound when any id is missing or owned
// by someone else.
func (r *ProductRepository) GetOwned(sellerID int64, ids []int64) ([]models.Product, error) {
	if len(ids) == 0 {
		return []models.Product{}, nil
	}

	rows, err := r.db.Query(`
		SELECT id, seller_id, name, price, description, image, is_public, created_at, updated_at
		FROM products WHERE seller_id = $1 AND id = ANY($2)
	`, sellerID, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("failed to get products: %w", err)
	}
	defer rows.Close()

	byID := make(map[int64]models.Product, len(ids))
	for rows.Next() {
		var p models.Product
		if err := rows.Scan(&p.ID, &p.SellerID, &p.Name, &p.Price, &p.Description, &p.Image, &p.IsPublic, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		byID[p.ID] = p
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	products := make([]models.Product, 0, len(ids))
	for _, id := range ids {
		p, ok := byID[id]
		if !ok {
			return nil, ErrNotFound
		}
		products = append(products, p)
	}

	for i := range products {
		if err := r.loadOptions(&products[i]); err != nil {
			return nil, err
		}
	}
	return products, nil
}

func (r *ProductRepository) loadOptions(p *models.Product) error {
	rows, err := r.db.Query(
		`SELECT name, quantity FROM product_options WHERE product_id = $1 ORDER BY id`,
		p.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to load options: %w", err)
	}
	defer rows.Close()

	p.Options = []models.Option{}
	for rows.Next() {
		var opt models.Option
		if err := rows.Scan(&opt.Name, &opt.Quantity); err != nil {
			return fmt.Errorf("failed to scan option: %w", err)
		}
		p.Options = append(p.Options, opt)
	}
	return rows.Err()
}

// ReserveStock decrements option quantities for one order in a single
// transaction. Each line uses a conditional update guarded by the remaining
// quantity, so two concurrent orders can never both take the last unit.
// Any failing line rolls back the whole reservation.
func (r *ProductRepository) ReserveStock(productID int64, reqs []models.OptionQuantity) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, req := range reqs {
		result, err := tx.Exec(`
			UPDATE product_options
			SET quantity = quantity - $1
			WHERE product_id = $2 AND name = $3 AND quantity >= $1
		`, req.Quantity, productID, req.Name)
		if err != nil {
			return fmt.Errorf("failed to reserve stock: %w", err)
		}
		rows, err := result.RowsAffected()
		if err != nil {
			return err
		}
		if rows == 0 {
			// distinguish a missing option from one that is out of stock
			var exists bool
			err := tx.QueryRow(
				`SELECT EXISTS(SELECT 1 FROM product_options WHERE product_id = $1 AND name = $2)`,
				productID, req.Name,
			).Scan(&exists)
			if err != nil {
				return fmt.Errorf("failed to check option: %w", err)
			}
			if !exists {
				return ErrOptionNotFound
			}
			return ErrInsufficientStock
		}
	}

	return tx.Commit()
}

// Delete removes a product owned by the seller
func (r *ProductRepository) Delete(sellerID, productID int64) error {
	result, err := r.db.Exec(
		`DELETE FROM products WHERE id = $1 AND seller_id = $2`,
		productID, sellerID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
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

package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/xinodeprinz/edstock-server/internal/domain"
)

var (
	ErrProductNotFound      = errors.New("product not found")
	ErrProductReferenced    = errors.New("product is referenced by sales or purchases records")
	ErrProductAlreadyExists = errors.New("product with this ID already exists")
)

// ProductRepository defines the interface for product data access
type ProductRepository interface {
	Create(ctx context.Context, product *domain.Product) error
	Update(ctx context.Context, product *domain.Product) error
	Delete(ctx context.Context, id string) error
	FindByID(ctx context.Context, id string) (*domain.Product, error)
	List(ctx context.Context, filter domain.ProductFilter) ([]*domain.Product, error)
	ListBelowStock(ctx context.Context, threshold int) ([]*domain.Product, error)
}

type productRepository struct {
	db *sql.DB
}

// NewProductRepository creates a new instance of ProductRepository
func NewProductRepository(db *sql.DB) ProductRepository {
	return &productRepository{db: db}
}

const productColumns = `
	p.product_id, p.name, p.price, p.rating, p.stock_quantity, p.category_id,
	p.photo, p.location, p.sku, p.supplier, p.updated_at,
	c.category_id, c.name`

const productFrom = `
	FROM products p
	JOIN categories c ON c.category_id = p.category_id`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (*domain.Product, error) {
	product := &domain.Product{Category: &domain.Category{}}
	err := row.Scan(
		&product.ProductID,
		&product.Name,
		&product.Price,
		&product.Rating,
		&product.StockQuantity,
		&product.CategoryID,
		&product.Photo,
		&product.Location,
		&product.SKU,
		&product.Supplier,
		&product.UpdatedAt,
		&product.Category.CategoryID,
		&product.Category.Name,
	)
	if err != nil {
		return nil, err
	}
	return product, nil
}

// Create inserts a new product; the server-maintained updated_at is written back
func (r *productRepository) Create(ctx context.Context, product *domain.Product) error {
	query := `
		INSERT INTO products (product_id, name, price, rating, stock_quantity, category_id,
		                      photo, location, sku, supplier, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW())
		RETURNING updated_at
	`

	err := r.db.QueryRowContext(
		ctx,
		query,
		product.ProductID,
		product.Name,
		product.Price,
		product.Rating,
		product.StockQuantity,
		product.CategoryID,
		product.Photo,
		product.Location,
		product.SKU,
		product.Supplier,
	).Scan(&product.UpdatedAt)

	if err != nil {
		if isForeignKeyViolation(err) {
			return ErrCategoryNotFound
		}
		if isUniqueViolation(err) {
			return ErrProductAlreadyExists
		}
		return fmt.Errorf("failed to create product: %w", err)
	}

	return nil
}

// Update overwrites every mutable column of an existing product
func (r *productRepository) Update(ctx context.Context, product *domain.Product) error {
	query := `
		UPDATE products
		SET name = $2, price = $3, rating = $4, stock_quantity = $5, category_id = $6,
		    photo = $7, location = $8, sku = $9, supplier = $10, updated_at = NOW()
		WHERE product_id = $1
		RETURNING updated_at
	`

	err := r.db.QueryRowContext(
		ctx,
		query,
		product.ProductID,
		product.Name,
		product.Price,
		product.Rating,
		product.StockQuantity,
		product.CategoryID,
		product.Photo,
		product.Location,
		product.SKU,
		product.Supplier,
	).Scan(&product.UpdatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrProductNotFound
		}
		if isForeignKeyViolation(err) {
			return ErrCategoryNotFound
		}
		return fmt.Errorf("failed to update product: %w", err)
	}

	return nil
}

// Delete removes a product. Rows still referenced by sales or purchases are
// rejected with ErrProductReferenced.
func (r *productRepository) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM products WHERE product_id = $1`

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		if isForeignKeyViolation(err) {
			return ErrProductReferenced
		}
		return fmt.Errorf("failed to delete product: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrProductNotFound
	}

	return nil
}

// FindByID retrieves a product with its category
func (r *productRepository) FindByID(ctx context.Context, id string) (*domain.Product, error) {
	query := `SELECT` + productColumns + productFrom + `
		WHERE p.product_id = $1`

	product, err := scanProduct(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to find product by ID: %w", err)
	}

	return product, nil
}

// List retrieves products filtered by a case-insensitive name substring and
// an optional category, most recently updated first
func (r *productRepository) List(ctx context.Context, filter domain.ProductFilter) ([]*domain.Product, error) {
	var conditions []string
	args := []interface{}{}

	if search := strings.TrimSpace(filter.Search); search != "" {
		args = append(args, "%"+escapeLike(search)+"%")
		conditions = append(conditions, fmt.Sprintf("p.name ILIKE $%d", len(args)))
	}

	if filter.CategoryID != "" {
		args = append(args, filter.CategoryID)
		conditions = append(conditions, fmt.Sprintf("p.category_id = $%d", len(args)))
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	query := fmt.Sprintf(`SELECT %s %s
		%s
		ORDER BY p.updated_at DESC`, productColumns, productFrom, whereClause)

	return r.query(ctx, "list products", query, args...)
}

// ListBelowStock retrieves products whose stock is strictly below threshold
func (r *productRepository) ListBelowStock(ctx context.Context, threshold int) ([]*domain.Product, error) {
	query := `SELECT` + productColumns + productFrom + `
		WHERE p.stock_quantity < $1
		ORDER BY p.stock_quantity ASC, p.name ASC`

	return r.query(ctx, "list low-stock products", query, threshold)
}

func (r *productRepository) query(ctx context.Context, op, query string, args ...interface{}) ([]*domain.Product, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to %s: %w", op, err)
	}
	defer rows.Close()

	products := []*domain.Product{}
	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, product)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating products: %w", err)
	}

	return products, nil
}

// escapeLike neutralises LIKE wildcards in user input
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

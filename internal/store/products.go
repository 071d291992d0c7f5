package store

import (
	"context"

	"storefront-service/internal/models"
)

const productColumns = `id, name, description, mrp, discount_percentage, category, product_type,
	colors, sizes, image_url, alt_image_url, review_video_url, delivery_link, visible, created_at, updated_at`

// CreateProduct inserts a catalog product
func (s *Store) CreateProduct(ctx context.Context, p *models.Product) error {
	query := `
		INSERT INTO products (` + productColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`

	_, err := s.exec(ctx, query,
		p.ID, p.Name, p.Description, p.MRP, p.DiscountPercentage, p.Category, p.ProductType,
		p.Colors, p.Sizes, p.ImageURL, p.AltImageURL, p.ReviewVideoURL, p.DeliveryLink, p.Visible,
		p.CreatedAt, p.UpdatedAt)
	return err
}

// UpdateProduct overwrites every editable field of a product
func (s *Store) UpdateProduct(ctx context.Context, p *models.Product) error {
	query := `
		UPDATE products SET name = $2, description = $3, mrp = $4, discount_percentage = $5,
			category = $6, product_type = $7, colors = $8, sizes = $9, image_url = $10,
			alt_image_url = $11, review_video_url = $12, delivery_link = $13, visible = $14,
			updated_at = $15
		WHERE id = $1`

	n, err := s.exec(ctx, query,
		p.ID, p.Name, p.Description, p.MRP, p.DiscountPercentage, p.Category, p.ProductType,
		p.Colors, p.Sizes, p.ImageURL, p.AltImageURL, p.ReviewVideoURL, p.DeliveryLink, p.Visible,
		p.UpdatedAt)
	return execOne(n, err, "product", p.ID)
}

// DeleteProduct removes a product. Orders keep their own snapshot.
func (s *Store) DeleteProduct(ctx context.Context, id string) error {
	n, err := s.exec(ctx, "DELETE FROM products WHERE id = $1", id)
	return execOne(n, err, "product", id)
}

// GetProductByID retrieves a product by ID
func (s *Store) GetProductByID(ctx context.Context, id string) (*models.Product, error) {
	var product models.Product
	err := s.get(ctx, &product, "SELECT "+productColumns+" FROM products WHERE id = $1", id)
	if err != nil {
		return nil, notFound(err, "product", id)
	}
	return &product, nil
}

// ListProducts retrieves products, newest first
func (s *Store) ListProducts(ctx context.Context, filter models.ProductFilter) ([]models.Product, error) {
	query := "SELECT " + productColumns + " FROM products WHERE ($1 = '' OR category = $1) AND ($2 OR visible)" +
		" ORDER BY created_at DESC"

	products := []models.Product{}
	err := s.selectAll(ctx, &products, query, string(filter.Category), filter.IncludeHidden)
	return products, err
}

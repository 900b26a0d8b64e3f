package cart

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
)

// ItemRepository defines the persistence surface required by the cart service.
type ItemRepository interface {
	WithTx(tx *gorm.DB) ItemRepository
	ListByCart(ctx context.Context, cartID uuid.UUID) ([]models.CartItem, error)
	FindByProduct(ctx context.Context, cartID uuid.UUID, productID string) (*models.CartItem, error)
	AddQuantity(ctx context.Context, item models.CartItem) error
	SetQuantity(ctx context.Context, cartID uuid.UUID, productID string, quantity int) (bool, error)
	Delete(ctx context.Context, cartID uuid.UUID, productID string) (bool, error)
	DeleteCart(ctx context.Context, cartID uuid.UUID) (int64, error)
}

// Repository manages persistent cart items.
type Repository struct {
	db *gorm.DB
}

// NewRepository binds the repository to the provided DB handle.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx scopes the repository to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) ItemRepository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

// ListByCart returns the cart lines in insertion order.
func (r *Repository) ListByCart(ctx context.Context, cartID uuid.UUID) ([]models.CartItem, error) {
	var rows []models.CartItem
	err := r.db.WithContext(ctx).
		Where("cart_id = ?", cartID).
		Order("created_at ASC").
		Order("id ASC").
		Find(&rows).Error
	return rows, err
}

// FindByProduct returns nil when the product is not in the cart.
func (r *Repository) FindByProduct(ctx context.Context, cartID uuid.UUID, productID string) (*models.CartItem, error) {
	var row models.CartItem
	err := r.db.WithContext(ctx).
		Where("cart_id = ? AND product_id = ?", cartID, productID).
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

// AddQuantity inserts the line or, when the product is already present, adds to its
// quantity and refreshes the snapshot fields.
func (r *Repository) AddQuantity(ctx context.Context, item models.CartItem) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "cart_id"}, {Name: "product_id"}},
			DoUpdates: clause.Assignments(map[string]any{
				"quantity":   gorm.Expr("cart_items.quantity + excluded.quantity"),
				"name":       gorm.Expr("excluded.name"),
				"unit_price": gorm.Expr("excluded.unit_price"),
				"image_ref":  gorm.Expr("excluded.image_ref"),
				"updated_at": gorm.Expr("excluded.updated_at"),
			}),
		}).
		Create(&item).Error
}

// SetQuantity overwrites the quantity; it reports false when no row matched.
func (r *Repository) SetQuantity(ctx context.Context, cartID uuid.UUID, productID string, quantity int) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.CartItem{}).
		Where("cart_id = ? AND product_id = ?", cartID, productID).
		Update("quantity", quantity)
	return res.RowsAffected > 0, res.Error
}

// Delete removes one line; it reports false when no row matched.
func (r *Repository) Delete(ctx context.Context, cartID uuid.UUID, productID string) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("cart_id = ? AND product_id = ?", cartID, productID).
		Delete(&models.CartItem{})
	return res.RowsAffected > 0, res.Error
}

// DeleteCart removes every line of the cart.
func (r *Repository) DeleteCart(ctx context.Context, cartID uuid.UUID) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("cart_id = ?", cartID).
		Delete(&models.CartItem{})
	return res.RowsAffected, res.Error
}

package orders

import (
	"context"
	"time"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type repository struct {
	db *gorm.DB
}

// NewRepository binds the orders repository to db.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, order *models.Order) (*models.Order, error) {
	if err := r.db.WithContext(ctx).Create(order).Error; err != nil {
		return nil, err
	}
	return order, nil
}

func (r *repository) FindByPreferenceID(ctx context.Context, preferenceID string) (*models.Order, error) {
	var order models.Order
	if err := r.db.WithContext(ctx).Where("preference_id = ?", preferenceID).First(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

// UpdateStatus only matches rows still in the status the caller read, so two
// concurrent outcomes cannot both win.
func (r *repository) UpdateStatus(ctx context.Context, order *models.Order, status enums.OrderStatus, message *string, paidAt *time.Time) error {
	updates := map[string]any{
		"status":                 status,
		"payment_status_message": message,
		"updated_at":             time.Now().UTC(),
	}
	if paidAt != nil {
		updates["paid_at"] = *paidAt
	}
	res := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND status = ?", order.ID, order.Status).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// ListPendingBefore returns the oldest pending orders created before cutoff.
func (r *repository) ListPendingBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.Order, error) {
	var rows []models.Order
	err := r.db.WithContext(ctx).
		Where("status = ? AND created_at < ?", enums.OrderStatusPending, cutoff).
		Order("created_at ASC").
		Order("id ASC").
		Limit(pagination.Clamp(limit)).
		Find(&rows).Error
	return rows, err
}

// List returns newest orders first using (created_at, id) cursors.
func (r *repository) List(ctx context.Context, params pagination.Params, filters ListFilters) (*OrderList, error) {
	query := r.db.WithContext(ctx).Model(&models.Order{})
	if filters.Status != nil {
		query = query.Where("status = ?", *filters.Status)
	}
	if filters.UserID != nil && *filters.UserID != uuid.Nil {
		query = query.Where("user_id = ?", *filters.UserID)
	}
	after, err := pagination.Decode(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	if after != nil {
		query = query.Where("(created_at < ?) OR (created_at = ? AND id < ?)", after.CreatedAt, after.CreatedAt, after.ID)
	}

	var rows []models.Order
	if err := query.
		Order("created_at DESC").
		Order("id DESC").
		Limit(pagination.Clamp(params.Limit) + 1).
		Find(&rows).Error; err != nil {
		return nil, err
	}

	page, next := pagination.Page(rows, params.Limit, func(o models.Order) pagination.Keyset {
		return pagination.Keyset{CreatedAt: o.CreatedAt, ID: o.ID}
	})
	list := &OrderList{Orders: make([]OrderDTO, 0, len(page)), NextCursor: next}
	for _, row := range page {
		list.Orders = append(list.Orders, FromModel(row))
	}
	return list, nil
}

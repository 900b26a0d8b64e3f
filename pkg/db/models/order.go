package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

// OrderLine is the item snapshot stored with an order.
type OrderLine struct {
	ProductID string          `json:"product_id"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int             `json:"quantity"`
}

// Order is recorded when a payment preference is created and follows its outcome.
type Order struct {
	ID                   uuid.UUID         `gorm:"column:id;type:uuid;primaryKey"`
	UserID               uuid.UUID         `gorm:"column:user_id;type:uuid;not null;index"`
	CartID               uuid.UUID         `gorm:"column:cart_id;type:uuid;not null;index"`
	PreferenceID         string            `gorm:"column:preference_id;type:text;not null;uniqueIndex"`
	Gateway              string            `gorm:"column:gateway;type:text;not null"`
	Status               enums.OrderStatus `gorm:"column:status;type:text;not null;default:'pending'"`
	Currency             string            `gorm:"column:currency;type:text;not null"`
	Subtotal             decimal.Decimal   `gorm:"column:subtotal;type:numeric(14,4);not null"`
	Shipping             decimal.Decimal   `gorm:"column:shipping;type:numeric(14,4);not null"`
	Tax                  decimal.Decimal   `gorm:"column:tax;type:numeric(14,4);not null"`
	Total                decimal.Decimal   `gorm:"column:total;type:numeric(14,4);not null"`
	Lines                []OrderLine       `gorm:"column:lines;type:jsonb;serializer:json;not null"`
	ShippingMethodID     string            `gorm:"column:shipping_method_id;type:text;not null"`
	ShipStreet           string            `gorm:"column:ship_street;not null"`
	ShipNumber           string            `gorm:"column:ship_number;not null"`
	ShipComplement       *string           `gorm:"column:ship_complement"`
	ShipNeighborhood     string            `gorm:"column:ship_neighborhood;not null"`
	ShipCity             string            `gorm:"column:ship_city;not null"`
	ShipState            string            `gorm:"column:ship_state;not null"`
	ShipZip              string            `gorm:"column:ship_zip;not null"`
	PaymentStatusMessage *string           `gorm:"column:payment_status_message"`
	PaidAt               *time.Time        `gorm:"column:paid_at"`
	CreatedAt            time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt            time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}

func (o *Order) BeforeCreate(*gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	if o.Status == "" {
		o.Status = enums.OrderStatusPending
	}
	return nil
}

package orders

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-backend/internal/address"
	"github.com/angelmondragon/storefront-backend/internal/cart"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

// PendingOrder is recorded when the gateway hands out a preference.
type PendingOrder struct {
	UserID           uuid.UUID
	CartID           uuid.UUID
	PreferenceID     string
	Gateway          string
	Currency         string
	Items            []cart.Item
	Totals           cart.Totals
	ShippingMethodID enums.ShippingMethodID
	Address          address.Address
	ActorRole        enums.Role
}

// OutcomeInput reports what the gateway (redirect or webhook) said about a preference.
type OutcomeInput struct {
	PreferenceID string
	Outcome      enums.PaymentOutcome
	Message      string
	Source       string
}

// ListFilters narrows the admin order listing.
type ListFilters struct {
	Status *enums.OrderStatus
	UserID *uuid.UUID
}

// OrderList is one page of orders.
type OrderList struct {
	Orders     []OrderDTO `json:"orders"`
	NextCursor string     `json:"next_cursor,omitempty"`
}

// OrderDTO is the admin view of an order.
type OrderDTO struct {
	ID               uuid.UUID          `json:"id"`
	UserID           uuid.UUID          `json:"user_id"`
	CartID           uuid.UUID          `json:"cart_id"`
	PreferenceID     string             `json:"preference_id"`
	Gateway          string             `json:"gateway"`
	Status           enums.OrderStatus  `json:"status"`
	Currency         string             `json:"currency"`
	Subtotal         decimal.Decimal    `json:"subtotal"`
	Shipping         decimal.Decimal    `json:"shipping"`
	Tax              decimal.Decimal    `json:"tax"`
	Total            decimal.Decimal    `json:"total"`
	Lines            []models.OrderLine `json:"lines"`
	ShippingMethodID string             `json:"shipping_method_id"`
	ShippingAddress  address.Address    `json:"shipping_address"`
	PaymentMessage   *string            `json:"payment_message,omitempty"`
	PaidAt           *time.Time         `json:"paid_at,omitempty"`
	CreatedAt        time.Time          `json:"created_at"`
	UpdatedAt        time.Time          `json:"updated_at"`
}

func FromModel(o models.Order) OrderDTO {
	complement := ""
	if o.ShipComplement != nil {
		complement = *o.ShipComplement
	}
	return OrderDTO{
		ID:               o.ID,
		UserID:           o.UserID,
		CartID:           o.CartID,
		PreferenceID:     o.PreferenceID,
		Gateway:          o.Gateway,
		Status:           o.Status,
		Currency:         o.Currency,
		Subtotal:         o.Subtotal,
		Shipping:         o.Shipping,
		Tax:              o.Tax,
		Total:            o.Total,
		Lines:            o.Lines,
		ShippingMethodID: o.ShippingMethodID,
		ShippingAddress: address.Address{
			Street:       o.ShipStreet,
			Number:       o.ShipNumber,
			Complement:   complement,
			Neighborhood: o.ShipNeighborhood,
			City:         o.ShipCity,
			State:        o.ShipState,
			ZipCode:      o.ShipZip,
		},
		PaymentMessage: o.PaymentStatusMessage,
		PaidAt:         o.PaidAt,
		CreatedAt:      o.CreatedAt,
		UpdatedAt:      o.UpdatedAt,
	}
}

func (p PendingOrder) toModel() *models.Order {
	lines := make([]models.OrderLine, 0, len(p.Items))
	for _, item := range p.Items {
		lines = append(lines, models.OrderLine{
			ProductID: item.ProductID,
			Name:      item.Name,
			UnitPrice: item.UnitPrice,
			Quantity:  item.Quantity,
		})
	}
	var complement *string
	if p.Address.Complement != "" {
		c := p.Address.Complement
		complement = &c
	}
	return &models.Order{
		UserID:           p.UserID,
		CartID:           p.CartID,
		PreferenceID:     p.PreferenceID,
		Gateway:          p.Gateway,
		Status:           enums.OrderStatusPending,
		Currency:         p.Currency,
		Subtotal:         p.Totals.Subtotal,
		Shipping:         p.Totals.Shipping,
		Tax:              p.Totals.Tax,
		Total:            p.Totals.Total,
		Lines:            lines,
		ShippingMethodID: string(p.ShippingMethodID),
		ShipStreet:       p.Address.Street,
		ShipNumber:       p.Address.Number,
		ShipComplement:   complement,
		ShipNeighborhood: p.Address.Neighborhood,
		ShipCity:         p.Address.City,
		ShipState:        p.Address.State,
		ShipZip:          p.Address.ZipCode,
	}
}

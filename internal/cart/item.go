package cart

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
)

// Item is a line of the cart. ProductID is the catalog id shown to the client.
type Item struct {
	ID        uuid.UUID       `json:"-"`
	ProductID string          `json:"id"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	ImageRef  *string         `json:"image_ref,omitempty"`
	Quantity  int             `json:"quantity"`
}

// LineTotal is unitPrice × quantity at full precision.
func (i Item) LineTotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// ItemFromModel maps the persisted row to the domain item.
func ItemFromModel(m models.CartItem) Item {
	return Item{
		ID:        m.ID,
		ProductID: m.ProductID,
		Name:      m.Name,
		UnitPrice: m.UnitPrice,
		ImageRef:  m.ImageRef,
		Quantity:  m.Quantity,
	}
}

// ItemsFromModels maps every row, preserving order.
func ItemsFromModels(rows []models.CartItem) []Item {
	items := make([]Item, 0, len(rows))
	for _, row := range rows {
		items = append(items, ItemFromModel(row))
	}
	return items
}

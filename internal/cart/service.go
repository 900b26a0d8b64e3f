package cart

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-backend/internal/shipping"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

// AddItemInput is the product snapshot the client adds to the cart.
// The catalog lives outside this service, so the price is taken as sent;
// verifying it against the product source belongs to that collaborator.
type AddItemInput struct {
	ProductID string           `json:"id" validate:"required,notblank,max=128"`
	Name      string           `json:"name" validate:"required,notblank,max=256"`
	UnitPrice *decimal.Decimal `json:"unit_price" validate:"required"`
	ImageRef  *string          `json:"image_ref,omitempty" validate:"omitempty,max=2048"`
	Quantity  int              `json:"quantity" validate:"required,min=1"`
}

// View is the cart with its derived totals (no shipping method chosen).
type View struct {
	CartID  uuid.UUID     `json:"cart_id"`
	Items   []Item        `json:"items"`
	Count   int           `json:"count"`
	Totals  Totals        `json:"totals"`
	Display DisplayTotals `json:"display"`
}

// Service exposes cart operations keyed by cart id.
type Service interface {
	Items(ctx context.Context, cartID uuid.UUID) ([]Item, error)
	Get(ctx context.Context, cartID uuid.UUID) (*View, error)
	Totals(ctx context.Context, cartID uuid.UUID, method *shipping.Method) (Totals, error)
	AddItem(ctx context.Context, cartID uuid.UUID, input AddItemInput) (*View, error)
	SetQuantity(ctx context.Context, cartID uuid.UUID, productID string, quantity int) (*View, error)
	RemoveItem(ctx context.Context, cartID uuid.UUID, productID string) (*View, error)
	Clear(ctx context.Context, cartID uuid.UUID) error
}

type service struct {
	repo   ItemRepository
	policy Policy
	logg   *logger.Logger
}

// NewService builds a cart service backed by the provided repository.
func NewService(repo ItemRepository, policy Policy, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if policy.TaxRate.IsNegative() || policy.FallbackShippingFee.IsNegative() {
		return nil, fmt.Errorf("cart pricing policy must not be negative")
	}
	return &service{repo: repo, policy: policy, logg: logg}, nil
}

func (s *service) Items(ctx context.Context, cartID uuid.UUID) ([]Item, error) {
	if cartID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart id is required")
	}
	rows, err := s.repo.ListByCart(ctx, cartID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load cart items")
	}
	return ItemsFromModels(rows), nil
}

func (s *service) Get(ctx context.Context, cartID uuid.UUID) (*View, error) {
	items, err := s.Items(ctx, cartID)
	if err != nil {
		return nil, err
	}
	return s.view(cartID, items), nil
}

func (s *service) Totals(ctx context.Context, cartID uuid.UUID, method *shipping.Method) (Totals, error) {
	items, err := s.Items(ctx, cartID)
	if err != nil {
		return Totals{}, err
	}
	return s.policy.ComputeTotals(items, method), nil
}

func (s *service) AddItem(ctx context.Context, cartID uuid.UUID, input AddItemInput) (*View, error) {
	if cartID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart id is required")
	}
	input.ProductID = strings.TrimSpace(input.ProductID)
	input.Name = strings.TrimSpace(input.Name)
	if input.ProductID == "" || input.Name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id and name are required")
	}
	if input.Quantity < 1 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1").
			WithDetails(map[string]any{"quantity": input.Quantity})
	}
	if input.UnitPrice == nil || !input.UnitPrice.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unit price must be greater than zero")
	}

	row := models.CartItem{
		CartID:    cartID,
		ProductID: input.ProductID,
		Name:      input.Name,
		UnitPrice: *input.UnitPrice,
		ImageRef:  input.ImageRef,
		Quantity:  input.Quantity,
	}
	if err := s.repo.AddQuantity(ctx, row); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "add cart item")
	}
	s.log(ctx, cartID, "cart.item_added", map[string]any{"product_id": input.ProductID, "quantity": input.Quantity})
	return s.Get(ctx, cartID)
}

// SetQuantity overwrites the line quantity; a quantity below 1 removes the line.
func (s *service) SetQuantity(ctx context.Context, cartID uuid.UUID, productID string, quantity int) (*View, error) {
	if quantity < 1 {
		return s.RemoveItem(ctx, cartID, productID)
	}
	productID = strings.TrimSpace(productID)
	if cartID == uuid.Nil || productID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart id and product id are required")
	}
	found, err := s.repo.SetQuantity(ctx, cartID, productID, quantity)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update cart item")
	}
	if !found {
		return nil, notInCart(productID)
	}
	s.log(ctx, cartID, "cart.item_quantity_set", map[string]any{"product_id": productID, "quantity": quantity})
	return s.Get(ctx, cartID)
}

func (s *service) RemoveItem(ctx context.Context, cartID uuid.UUID, productID string) (*View, error) {
	productID = strings.TrimSpace(productID)
	if cartID == uuid.Nil || productID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart id and product id are required")
	}
	found, err := s.repo.Delete(ctx, cartID, productID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "remove cart item")
	}
	if !found {
		return nil, notInCart(productID)
	}
	s.log(ctx, cartID, "cart.item_removed", map[string]any{"product_id": productID})
	return s.Get(ctx, cartID)
}

func (s *service) Clear(ctx context.Context, cartID uuid.UUID) error {
	if cartID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "cart id is required")
	}
	removed, err := s.repo.DeleteCart(ctx, cartID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "clear cart")
	}
	s.log(ctx, cartID, "cart.cleared", map[string]any{"removed": removed})
	return nil
}

func (s *service) view(cartID uuid.UUID, items []Item) *View {
	totals := s.policy.ComputeTotals(items, nil)
	count := 0
	for _, item := range items {
		count += item.Quantity
	}
	return &View{
		CartID:  cartID,
		Items:   items,
		Count:   count,
		Totals:  totals,
		Display: totals.Display(),
	}
}

func (s *service) log(ctx context.Context, cartID uuid.UUID, msg string, fields map[string]any) {
	if s.logg == nil {
		return
	}
	logCtx := s.logg.WithCartID(ctx, cartID.String())
	s.logg.Info(s.logg.WithFields(logCtx, fields), msg)
}

func notInCart(productID string) error {
	return pkgerrors.New(pkgerrors.CodeNotFound, "item not in cart").
		WithDetails(map[string]any{"product_id": productID})
}

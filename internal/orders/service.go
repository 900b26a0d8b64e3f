package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/outbox"
	"github.com/angelmondragon/storefront-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
)

// Service records orders from payment preferences and follows their outcome.
type Service interface {
	CreatePending(ctx context.Context, input PendingOrder) (*models.Order, error)
	ApplyOutcome(ctx context.Context, input OutcomeInput) (*models.Order, error)
	List(ctx context.Context, params pagination.Params, filters ListFilters) (*OrderList, error)
}

type service struct {
	repo   Repository
	tx     txRunner
	outbox outboxPublisher
	logg   *logger.Logger
	now    func() time.Time
}

// NewService builds an order service with the required dependencies.
func NewService(repo Repository, tx txRunner, outbox outboxPublisher, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	return &service{
		repo:   repo,
		tx:     tx,
		outbox: outbox,
		logg:   logg,
		now:    time.Now,
	}, nil
}

func (s *service) CreatePending(ctx context.Context, input PendingOrder) (*models.Order, error) {
	if strings.TrimSpace(input.PreferenceID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "preference id required")
	}
	if input.UserID == uuid.Nil || input.CartID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user and cart required")
	}
	if len(input.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order has no items")
	}

	var created *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		order, err := s.repo.WithTx(tx).Create(ctx, input.toModel())
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
		}
		created = order

		itemCount := 0
		for _, item := range input.Items {
			itemCount += item.Quantity
		}
		event := outbox.OrderEvent(enums.EventOrderCreated, order.ID, actor(order.UserID, input.ActorRole), payloads.OrderCreatedEvent{
			OrderID:      order.ID,
			UserID:       order.UserID,
			CartID:       order.CartID,
			PreferenceID: order.PreferenceID,
			Gateway:      order.Gateway,
			Total:        order.Total,
			Currency:     order.Currency,
			ItemCount:    itemCount,
		})
		return s.outbox.Emit(ctx, tx, event)
	})
	if err != nil {
		return nil, err
	}
	s.log(ctx, created, "order.created")
	return created, nil
}

// ApplyOutcome is idempotent: reporting the current status again is a no-op,
// and a pending outcome never moves the order.
func (s *service) ApplyOutcome(ctx context.Context, input OutcomeInput) (*models.Order, error) {
	if strings.TrimSpace(input.PreferenceID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "preference id required")
	}
	if !input.Outcome.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown payment outcome")
	}
	target := input.Outcome.OrderStatus()

	var result *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.FindByPreferenceID(ctx, input.PreferenceID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}
		result = order
		if order.Status == target || target == enums.OrderStatusPending {
			return nil
		}
		if order.Status.IsTerminal() {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order already settled").
				WithDetails(map[string]any{"status": string(order.Status)})
		}

		var message *string
		if msg := strings.TrimSpace(input.Message); msg != "" {
			message = &msg
		}
		var paidAt *time.Time
		if target == enums.OrderStatusPaid {
			now := s.now().UTC()
			paidAt = &now
		}
		if err := repo.UpdateStatus(ctx, order, target, message, paidAt); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeConflict, "order changed concurrently")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
		}
		order.Status = target
		order.PaymentStatusMessage = message
		order.PaidAt = paidAt

		eventType, _ := enums.OrderEventForStatus(target)
		return s.outbox.EmitIfNotExists(ctx, tx, outbox.OrderEvent(eventType, order.ID, actor(order.UserID, ""), outcomePayload(order, input)))
	})
	if err != nil {
		return nil, err
	}
	if s.logg != nil {
		s.log(s.logg.WithField(ctx, "source", input.Source), result, "order.outcome_applied")
	}
	return result, nil
}

func (s *service) List(ctx context.Context, params pagination.Params, filters ListFilters) (*OrderList, error) {
	list, err := s.repo.List(ctx, params, filters)
	if err != nil {
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	return list, nil
}

func outcomePayload(order *models.Order, input OutcomeInput) any {
	if order.Status == enums.OrderStatusPaid {
		paidAt := time.Time{}
		if order.PaidAt != nil {
			paidAt = *order.PaidAt
		}
		return payloads.OrderPaidEvent{
			OrderID:      order.ID,
			UserID:       order.UserID,
			CartID:       order.CartID,
			PreferenceID: order.PreferenceID,
			Total:        order.Total,
			Currency:     order.Currency,
			PaidAt:       paidAt,
		}
	}
	return payloads.OrderFailedEvent{
		OrderID:      order.ID,
		UserID:       order.UserID,
		CartID:       order.CartID,
		PreferenceID: order.PreferenceID,
		Status:       order.Status,
		Reason:       strings.TrimSpace(input.Message),
	}
}

func actor(userID uuid.UUID, role enums.Role) *outbox.ActorRef {
	if userID == uuid.Nil {
		return nil
	}
	return &outbox.ActorRef{UserID: userID, Role: string(role)}
}

func (s *service) log(ctx context.Context, order *models.Order, msg string) {
	if s.logg == nil || order == nil {
		return
	}
	logCtx := s.logg.WithCartID(ctx, order.CartID.String())
	logCtx = s.logg.WithFields(logCtx, map[string]any{
		"order_id":      order.ID.String(),
		"preference_id": order.PreferenceID,
		"status":        string(order.Status),
	})
	s.logg.Info(logCtx, msg)
}

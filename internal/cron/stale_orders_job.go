package cron

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/multierr"

	"github.com/angelmondragon/storefront-backend/internal/orders"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

const (
	defaultPendingOrderTTL = 48 * time.Hour
	staleOrdersBatch       = 100
	staleOrderSource       = "maintenance"
	staleOrderMessage      = "payment not confirmed in time"
)

type pendingOrderReader interface {
	ListPendingBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.Order, error)
}

type outcomeApplier interface {
	ApplyOutcome(ctx context.Context, input orders.OutcomeInput) (*models.Order, error)
}

// StaleOrdersParams configure the pending order expiry job.
type StaleOrdersParams struct {
	Logger  *logger.Logger
	Pending pendingOrderReader
	Orders  outcomeApplier
	TTL     time.Duration
}

type staleOrdersJob struct {
	logg    *logger.Logger
	pending pendingOrderReader
	orders  outcomeApplier
	ttl     time.Duration
	now     func() time.Time
}

// NewStaleOrdersJob fails orders whose gateway never reported an outcome.
// The failure goes through the regular outcome path so an order_failed event
// is emitted exactly like a declined payment.
func NewStaleOrdersJob(params StaleOrdersParams) (Job, error) {
	if params.Logger == nil {
		return nil, errors.New("logger required")
	}
	if params.Pending == nil {
		return nil, errors.New("pending order reader required")
	}
	if params.Orders == nil {
		return nil, errors.New("orders service required")
	}
	ttl := params.TTL
	if ttl <= 0 {
		ttl = defaultPendingOrderTTL
	}
	return &staleOrdersJob{
		logg:    params.Logger,
		pending: params.Pending,
		orders:  params.Orders,
		ttl:     ttl,
		now:     time.Now,
	}, nil
}

func (j *staleOrdersJob) Name() string { return "stale-orders" }

func (j *staleOrdersJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.ttl)
	rows, err := j.pending.ListPendingBefore(ctx, cutoff, staleOrdersBatch)
	if err != nil {
		return fmt.Errorf("list pending orders: %w", err)
	}

	var errs error
	expired := 0
	for _, order := range rows {
		_, err := j.orders.ApplyOutcome(ctx, orders.OutcomeInput{
			PreferenceID: order.PreferenceID,
			Outcome:      enums.PaymentOutcomeFailure,
			Message:      staleOrderMessage,
			Source:       staleOrderSource,
		})
		switch {
		case err == nil:
			expired++
		case pkgerrors.IsCode(err, pkgerrors.CodeStateConflict), pkgerrors.IsCode(err, pkgerrors.CodeConflict):
			// settled by a webhook since the listing
		default:
			errs = multierr.Append(errs, fmt.Errorf("expire order %s: %w", order.ID, err))
		}
	}

	j.logg.Info(j.logg.WithFields(ctx, map[string]any{
		"cutoff":  cutoff,
		"scanned": len(rows),
		"expired": expired,
	}), "stale orders expired")
	return errs
}

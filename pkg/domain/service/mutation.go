package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"storefront/pkg/domain/model"
)

const maxUpdateAttempts = 5

type Event interface {
	Type() string
}

type EventDispatcher interface {
	Dispatch(event Event) error
}

type nopDispatcher struct{}

func (nopDispatcher) Dispatch(Event) error { return nil }

// orderMutation applies a guarded change to a freshly loaded order.
// It returns the event to publish once the change is stored, or nil.
type orderMutation func(order *model.Order, now time.Time) (Event, error)

type orderWriter struct {
	repo       model.OrderRepository
	dispatcher EventDispatcher
	clock      Clock
	logger     log.FieldLogger
}

// mutate is a read-modify-write against one order. Concurrent writers are serialized by the
// repository's version check; a writer that loses the race reloads and re-runs its guards.
func (w *orderWriter) mutate(ctx context.Context, orderID string, owner uuid.UUID, apply orderMutation) (*model.Order, error) {
	for attempt := 0; attempt < maxUpdateAttempts; attempt++ {
		order, err := w.repo.Find(ctx, orderID)
		if err != nil {
			return nil, err
		}
		if owner != uuid.Nil && order.CustomerID != owner {
			return nil, model.ErrOrderNotFound
		}

		now := w.clock()
		event, err := apply(order, now)
		if err != nil {
			return nil, err
		}

		order.Version++
		order.UpdatedAt = now
		err = w.repo.Update(ctx, order)
		if errors.Is(err, model.ErrOptimisticLock) {
			w.logger.WithFields(log.Fields{"orderId": orderID, "attempt": attempt + 1}).Debug("order update conflict, retrying")
			continue
		}
		if err != nil {
			return nil, errors.Wrapf(err, "update order %s", orderID)
		}

		if event != nil {
			w.dispatch(event)
		}
		return order, nil
	}
	return nil, errors.Wrapf(model.ErrOptimisticLock, "order %s", orderID)
}

func (w *orderWriter) dispatch(event Event) {
	if err := w.dispatcher.Dispatch(event); err != nil {
		w.logger.WithError(err).WithField("event", event.Type()).Error("failed to dispatch event")
	}
}

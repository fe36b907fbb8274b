package services

import (
	"context"
	"errors"
	"log"
	"math"
	"strconv"
	"time"

	"storefront-service/internal/domain"
	"storefront-service/internal/infra/rabbitmq"
	"storefront-service/internal/repository"
)

var (
	ErrOrderNotFound  = errors.New("order not found")
	ErrAmountMismatch = errors.New("settled amount does not match order total")
)

// amountTolerance absorbs float/minor-unit rounding; anything beyond it is
// treated as a suspicious mismatch, never auto-approved.
const amountTolerance = 0.01

// ReconcileResult reports what a payment event did to an order. Duplicate
// deliveries are success with Applied=false, not errors.
type ReconcileResult struct {
	OrderID       uint64               `json:"orderId"`
	OrderNumber   string               `json:"orderNumber"`
	Reference     string               `json:"reference"`
	PaymentStatus domain.PaymentStatus `json:"paymentStatus"`
	Applied       bool                 `json:"applied"`
	Duplicate     bool                 `json:"duplicate"`
}

// Reconciler is the single entry point for applying verified payment events
// to orders. Webhooks, the client verification poll, and the synchronous
// saved-card charge all go through ApplyPaymentEvent, so the transition
// rules exist exactly once.
type Reconciler struct {
	repo      repository.OrderRepository
	publisher rabbitmq.PublisherInterface
}

func NewReconciler(repo repository.OrderRepository, publisher rabbitmq.PublisherInterface) *Reconciler {
	return &Reconciler{repo: repo, publisher: publisher}
}

// ApplyPaymentEvent looks the order up by reference (order-number fallback)
// and applies the outcome under the repository's conditional-write guard.
// It never creates an order from an event.
func (r *Reconciler) ApplyPaymentEvent(ctx context.Context, evt domain.PaymentEvent) (*ReconcileResult, error) {
	order, err := r.lookup(ctx, evt)
	if err != nil {
		return nil, err
	}

	result := &ReconcileResult{
		OrderID:       order.ID,
		OrderNumber:   order.OrderNumber,
		Reference:     evt.Reference,
		PaymentStatus: order.PaymentStatus,
	}

	switch evt.Outcome {
	case domain.OutcomeSucceeded:
		return r.applySuccess(ctx, order, evt, result)

	case domain.OutcomeFailed:
		applied, err := r.repo.MarkFailed(ctx, order.ID)
		if err != nil {
			return nil, err
		}
		if applied {
			result.Applied = true
			result.PaymentStatus = domain.PaymentFailed
			return result, nil
		}
		// Not applied: the order already left pending. A failure arriving
		// after a success is out-of-order delivery; paid stays paid.
		if order.PaymentStatus == domain.PaymentPaid {
			log.Printf("ignoring late failure event for paid order %d (ref %s)", order.ID, evt.Reference)
		}
		result.Duplicate = order.PaymentStatus == domain.PaymentFailed
		return result, nil

	case domain.OutcomePending:
		return result, nil

	default:
		log.Printf("unmapped payment outcome %q for order %d (ref %s, provider %s); no state change",
			evt.Outcome, order.ID, evt.Reference, evt.Provider)
		return result, nil
	}
}

func (r *Reconciler) applySuccess(ctx context.Context, order *domain.Order, evt domain.PaymentEvent, result *ReconcileResult) (*ReconcileResult, error) {
	if math.Abs(evt.Amount-order.TotalAmount) > amountTolerance {
		log.Printf("amount mismatch for order %d: event %.2f vs order total %.2f (ref %s)",
			order.ID, evt.Amount, order.TotalAmount, evt.Reference)
		return nil, ErrAmountMismatch
	}

	paidAt := evt.PaidAt
	if paidAt.IsZero() {
		paidAt = time.Now()
	}
	settlement := domain.Settlement{
		Reference:     evt.Reference,
		Amount:        evt.Amount,
		PaidAt:        &paidAt,
		Channel:       evt.Channel,
		TransactionID: evt.TransactionID,
	}

	applied, err := r.repo.MarkPaid(ctx, order.ID, settlement)
	if err != nil {
		return nil, err
	}
	if !applied {
		// Second arrival of a race or a provider retry. Re-read to report
		// the terminal status; the original settlement details stay intact.
		current, err := r.repo.FindByID(ctx, order.ID)
		if err != nil {
			return nil, err
		}
		if current != nil {
			result.PaymentStatus = current.PaymentStatus
		}
		result.Duplicate = result.PaymentStatus == domain.PaymentPaid
		return result, nil
	}

	result.Applied = true
	result.PaymentStatus = domain.PaymentPaid

	go r.publishOrderPaid(context.Background(), order, settlement)

	return result, nil
}

func (r *Reconciler) lookup(ctx context.Context, evt domain.PaymentEvent) (*domain.Order, error) {
	if evt.Reference != "" {
		order, err := r.repo.FindByReference(ctx, evt.Reference)
		if err != nil {
			return nil, err
		}
		if order != nil {
			return order, nil
		}
	}

	// Defensive compatibility path: correlate on the order id the adapter
	// extracted from the event.
	if evt.OrderID != "" {
		order, err := r.repo.FindByOrderNumber(ctx, evt.OrderID)
		if err != nil {
			return nil, err
		}
		if order != nil {
			return order, nil
		}
		if id, err := strconv.ParseUint(evt.OrderID, 10, 64); err == nil {
			order, err := r.repo.FindByID(ctx, id)
			if err != nil {
				return nil, err
			}
			if order != nil {
				return order, nil
			}
		}
	}

	log.Printf("payment event could not be correlated to an order (ref %q, orderId %q, provider %s); manual reconciliation required",
		evt.Reference, evt.OrderID, evt.Provider)
	return nil, ErrOrderNotFound
}

func (r *Reconciler) publishOrderPaid(ctx context.Context, order *domain.Order, s domain.Settlement) {
	evt := domain.OrderPaidEvent{
		OrderID:       order.ID,
		OrderNumber:   order.OrderNumber,
		Reference:     s.Reference,
		Amount:        s.Amount,
		Channel:       s.Channel,
		TransactionID: s.TransactionID,
		PaidAt:        *s.PaidAt,
	}

	if err := r.publisher.Publish(ctx, "order.paid", evt); err != nil {
		log.Printf("Failed to publish order.paid for order %d: %v", order.ID, err)
	}
}

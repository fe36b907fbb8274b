package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"storefront-service/internal/domain"
	"storefront-service/internal/mocks"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"golang.org/x/sync/errgroup"
)

func pendingOrder(id uint64, ref string, total float64) *domain.Order {
	return &domain.Order{
		ID:               id,
		OrderNumber:      "ORD-MB2K-0001",
		TotalAmount:      total,
		PaymentMethod:    domain.MethodCard,
		PaymentStatus:    domain.PaymentPending,
		OrderStatus:      domain.StatusPending,
		PaymentReference: ref,
	}
}

func successEvent(ref string, amount float64) domain.PaymentEvent {
	return domain.PaymentEvent{
		Provider:      "card",
		Reference:     ref,
		Outcome:       domain.OutcomeSucceeded,
		Amount:        amount,
		Channel:       "card",
		TransactionID: "4099260516",
		PaidAt:        time.Date(2024, 6, 1, 10, 30, 0, 0, time.UTC),
	}
}

func TestReconciler_FirstSuccessMarksPaid(t *testing.T) {
	mockRepo := new(mocks.MockOrderRepository)
	mockPub := new(mocks.MockPublisher)

	order := pendingOrder(1, "PAY-REF-1", 189.99)
	mockRepo.On("FindByReference", mock.Anything, "PAY-REF-1").Return(order, nil)
	mockRepo.On("MarkPaid", mock.Anything, uint64(1), mock.AnythingOfType("domain.Settlement")).Return(true, nil).Run(func(args mock.Arguments) {
		s := args.Get(2).(domain.Settlement)
		assert.Equal(t, "PAY-REF-1", s.Reference)
		assert.Equal(t, 189.99, s.Amount)
		assert.Equal(t, "4099260516", s.TransactionID)
	})
	mockPub.On("Publish", mock.Anything, "order.paid", mock.Anything).Return(nil).Maybe()

	r := NewReconciler(mockRepo, mockPub)
	result, err := r.ApplyPaymentEvent(context.Background(), successEvent("PAY-REF-1", 189.99))

	assert.NoError(t, err)
	assert.True(t, result.Applied)
	assert.False(t, result.Duplicate)
	assert.Equal(t, domain.PaymentPaid, result.PaymentStatus)

	time.Sleep(100 * time.Millisecond)
	mockRepo.AssertExpectations(t)
}

func TestReconciler_ReplayedSuccessIsIdempotent(t *testing.T) {
	mockRepo := new(mocks.MockOrderRepository)
	mockPub := new(mocks.MockPublisher)

	paidAt := time.Date(2024, 6, 1, 10, 30, 0, 0, time.UTC)
	paid := pendingOrder(1, "PAY-REF-1", 189.99)
	paid.PaymentStatus = domain.PaymentPaid
	paid.OrderStatus = domain.StatusConfirmed
	paid.Settlement = domain.Settlement{Reference: "PAY-REF-1", Amount: 189.99, PaidAt: &paidAt}

	mockRepo.On("FindByReference", mock.Anything, "PAY-REF-1").Return(paid, nil)
	mockRepo.On("MarkPaid", mock.Anything, uint64(1), mock.Anything).Return(false, nil)
	mockRepo.On("FindByID", mock.Anything, uint64(1)).Return(paid, nil)

	r := NewReconciler(mockRepo, mockPub)

	// Provider retries deliver the same event repeatedly; every replay must
	// succeed without side effects and without touching the settlement.
	for i := 0; i < 5; i++ {
		result, err := r.ApplyPaymentEvent(context.Background(), successEvent("PAY-REF-1", 189.99))
		assert.NoError(t, err)
		assert.False(t, result.Applied)
		assert.True(t, result.Duplicate)
		assert.Equal(t, domain.PaymentPaid, result.PaymentStatus)
	}

	time.Sleep(50 * time.Millisecond)
	mockPub.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything)
}

func TestReconciler_FailureAfterSuccessIsIgnored(t *testing.T) {
	mockRepo := new(mocks.MockOrderRepository)
	mockPub := new(mocks.MockPublisher)

	paid := pendingOrder(1, "PAY-REF-1", 189.99)
	paid.PaymentStatus = domain.PaymentPaid

	mockRepo.On("FindByReference", mock.Anything, "PAY-REF-1").Return(paid, nil)
	mockRepo.On("MarkFailed", mock.Anything, uint64(1)).Return(false, nil)

	r := NewReconciler(mockRepo, mockPub)
	evt := domain.PaymentEvent{Provider: "card", Reference: "PAY-REF-1", Outcome: domain.OutcomeFailed}
	result, err := r.ApplyPaymentEvent(context.Background(), evt)

	// Paid is sticky: a late failure is out-of-order delivery, not a
	// reversal.
	assert.NoError(t, err)
	assert.False(t, result.Applied)
	assert.Equal(t, domain.PaymentPaid, result.PaymentStatus)
	mockRepo.AssertExpectations(t)
}

func TestReconciler_FailureMarksPendingOrderFailed(t *testing.T) {
	mockRepo := new(mocks.MockOrderRepository)
	mockPub := new(mocks.MockPublisher)

	mockRepo.On("FindByReference", mock.Anything, "PAY-REF-2").Return(pendingOrder(2, "PAY-REF-2", 149.99), nil)
	mockRepo.On("MarkFailed", mock.Anything, uint64(2)).Return(true, nil)

	r := NewReconciler(mockRepo, mockPub)
	evt := domain.PaymentEvent{Provider: "card", Reference: "PAY-REF-2", Outcome: domain.OutcomeFailed}
	result, err := r.ApplyPaymentEvent(context.Background(), evt)

	assert.NoError(t, err)
	assert.True(t, result.Applied)
	assert.Equal(t, domain.PaymentFailed, result.PaymentStatus)
	mockPub.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything)
}

func TestReconciler_AmountMismatchIsFlagged(t *testing.T) {
	mockRepo := new(mocks.MockOrderRepository)
	mockPub := new(mocks.MockPublisher)

	mockRepo.On("FindByReference", mock.Anything, "PAY-REF-3").Return(pendingOrder(3, "PAY-REF-3", 189.99), nil)

	r := NewReconciler(mockRepo, mockPub)
	_, err := r.ApplyPaymentEvent(context.Background(), successEvent("PAY-REF-3", 180.00))

	assert.ErrorIs(t, err, ErrAmountMismatch)
	mockRepo.AssertNotCalled(t, "MarkPaid", mock.Anything, mock.Anything, mock.Anything)
}

func TestReconciler_AmountWithinToleranceApplies(t *testing.T) {
	mockRepo := new(mocks.MockOrderRepository)
	mockPub := new(mocks.MockPublisher)

	mockRepo.On("FindByReference", mock.Anything, "PAY-REF-4").Return(pendingOrder(4, "PAY-REF-4", 189.99), nil)
	mockRepo.On("MarkPaid", mock.Anything, uint64(4), mock.Anything).Return(true, nil)
	mockPub.On("Publish", mock.Anything, "order.paid", mock.Anything).Return(nil).Maybe()

	r := NewReconciler(mockRepo, mockPub)
	result, err := r.ApplyPaymentEvent(context.Background(), successEvent("PAY-REF-4", 189.99))

	assert.NoError(t, err)
	assert.True(t, result.Applied)
	time.Sleep(50 * time.Millisecond)
}

func TestReconciler_UnknownOutcomeNeverMutates(t *testing.T) {
	mockRepo := new(mocks.MockOrderRepository)
	mockPub := new(mocks.MockPublisher)

	mockRepo.On("FindByReference", mock.Anything, "PAY-REF-5").Return(pendingOrder(5, "PAY-REF-5", 99.50), nil)

	r := NewReconciler(mockRepo, mockPub)

	for _, outcome := range []domain.PaymentOutcome{domain.OutcomeUnknown, domain.OutcomePending} {
		evt := domain.PaymentEvent{Provider: "card", Reference: "PAY-REF-5", Outcome: outcome, Amount: 99.50}
		result, err := r.ApplyPaymentEvent(context.Background(), evt)
		assert.NoError(t, err)
		assert.False(t, result.Applied)
		assert.Equal(t, domain.PaymentPending, result.PaymentStatus)
	}

	mockRepo.AssertNotCalled(t, "MarkPaid", mock.Anything, mock.Anything, mock.Anything)
	mockRepo.AssertNotCalled(t, "MarkFailed", mock.Anything, mock.Anything)
}

func TestReconciler_OrderNumberFallbackLookup(t *testing.T) {
	mockRepo := new(mocks.MockOrderRepository)
	mockPub := new(mocks.MockPublisher)

	order := pendingOrder(6, "", 250.00)
	mockRepo.On("FindByReference", mock.Anything, "ORDER-6-174523-AB12").Return(nil, nil)
	mockRepo.On("FindByOrderNumber", mock.Anything, "6").Return(nil, nil)
	mockRepo.On("FindByID", mock.Anything, uint64(6)).Return(order, nil)
	mockRepo.On("MarkPaid", mock.Anything, uint64(6), mock.Anything).Return(true, nil)
	mockPub.On("Publish", mock.Anything, "order.paid", mock.Anything).Return(nil).Maybe()

	r := NewReconciler(mockRepo, mockPub)
	evt := successEvent("ORDER-6-174523-AB12", 250.00)
	evt.OrderID = "6"
	result, err := r.ApplyPaymentEvent(context.Background(), evt)

	assert.NoError(t, err)
	assert.True(t, result.Applied)
	time.Sleep(50 * time.Millisecond)
}

func TestReconciler_UncorrelatedEventIsRejected(t *testing.T) {
	mockRepo := new(mocks.MockOrderRepository)
	mockPub := new(mocks.MockPublisher)

	mockRepo.On("FindByReference", mock.Anything, "PAY-GHOST").Return(nil, nil)

	r := NewReconciler(mockRepo, mockPub)
	_, err := r.ApplyPaymentEvent(context.Background(), successEvent("PAY-GHOST", 10))

	// Orders are never created from payment events.
	assert.ErrorIs(t, err, ErrOrderNotFound)
	mockRepo.AssertNotCalled(t, "MarkPaid", mock.Anything, mock.Anything, mock.Anything)
}

func TestReconciler_ConcurrentWebhookAndPoll(t *testing.T) {
	mockRepo := new(mocks.MockOrderRepository)
	mockPub := new(mocks.MockPublisher)

	order := pendingOrder(7, "PAY-RACE-1", 189.99)
	paid := pendingOrder(7, "PAY-RACE-1", 189.99)
	paid.PaymentStatus = domain.PaymentPaid

	mockRepo.On("FindByReference", mock.Anything, "PAY-RACE-1").Return(order, nil)
	// The conditional write lets exactly one writer through; the second
	// observes "already paid" when it re-reads.
	mockRepo.On("MarkPaid", mock.Anything, uint64(7), mock.Anything).Return(true, nil).Once()
	mockRepo.On("MarkPaid", mock.Anything, uint64(7), mock.Anything).Return(false, nil)
	mockRepo.On("FindByID", mock.Anything, uint64(7)).Return(paid, nil)
	mockPub.On("Publish", mock.Anything, "order.paid", mock.Anything).Return(nil).Maybe()

	r := NewReconciler(mockRepo, mockPub)

	results := make([]*ReconcileResult, 2)
	var g errgroup.Group
	for i := 0; i < 2; i++ {
		i := i
		g.Go(func() error {
			result, err := r.ApplyPaymentEvent(context.Background(), successEvent("PAY-RACE-1", 189.99))
			results[i] = result
			return err
		})
	}
	assert.NoError(t, g.Wait())

	applied := 0
	for _, result := range results {
		assert.Equal(t, domain.PaymentPaid, result.PaymentStatus)
		if result.Applied {
			applied++
		} else {
			assert.True(t, result.Duplicate)
		}
	}
	assert.Equal(t, 1, applied, "exactly one arrival advances the order")

	time.Sleep(100 * time.Millisecond)
}

func TestReconciler_RepositoryErrorPropagates(t *testing.T) {
	mockRepo := new(mocks.MockOrderRepository)
	mockPub := new(mocks.MockPublisher)

	mockRepo.On("FindByReference", mock.Anything, "PAY-REF-9").Return(nil, errors.New("connection refused"))

	r := NewReconciler(mockRepo, mockPub)
	_, err := r.ApplyPaymentEvent(context.Background(), successEvent("PAY-REF-9", 10))

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
}

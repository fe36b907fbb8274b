package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"storefront-service/internal/domain"
	"storefront-service/internal/gateway"
	"storefront-service/internal/reference"
	"storefront-service/internal/repository"
)

var ErrOrderAlreadyPaid = errors.New("order already paid")

// InitiatePayment is the checkout caller's request to start (or settle) a
// payment for an existing order.
type InitiatePayment struct {
	OrderID           uint64
	Email             string
	Method            domain.PaymentMethod
	AuthorizationCode string
	CallbackURL       string
}

// InitiationResult is what the caller gets back: either a synchronous
// settlement (Charged) or the redirect/form material to continue at the
// provider.
type InitiationResult struct {
	Charged          bool                       `json:"charged"`
	Reference        string                     `json:"reference"`
	AuthorizationURL string                     `json:"authorization_url,omitempty"`
	AccessCode       string                     `json:"access_code,omitempty"`
	EFTRequest       *gateway.EFTPaymentRequest `json:"eft_request,omitempty"`
}

// PaymentService orchestrates payment initiation across the two gateways
// and the cash short-circuit. In every non-cash branch the generated
// reference is persisted on the order before the method returns, because
// the provider's webhook can arrive before our HTTP response does.
type PaymentService struct {
	repo       repository.OrderRepository
	card       gateway.CardGateway
	eft        gateway.EFTGateway
	reconciler *Reconciler
}

func NewPaymentService(repo repository.OrderRepository, card gateway.CardGateway, eft gateway.EFTGateway, reconciler *Reconciler) *PaymentService {
	return &PaymentService{
		repo:       repo,
		card:       card,
		eft:        eft,
		reconciler: reconciler,
	}
}

func (s *PaymentService) InitializePayment(ctx context.Context, req InitiatePayment) (*InitiationResult, error) {
	order, err := s.repo.FindByID(ctx, req.OrderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	if order.PaymentStatus == domain.PaymentPaid {
		return nil, ErrOrderAlreadyPaid
	}

	switch req.Method {
	case domain.MethodCashOnDelivery:
		// No gateway involved; payment stays pending until delivery.
		if err := s.repo.SetPaymentReference(ctx, order.ID, "", domain.MethodCashOnDelivery); err != nil {
			return nil, err
		}
		return &InitiationResult{}, nil

	case domain.MethodCard:
		if req.AuthorizationCode != "" {
			return s.chargeSavedCard(ctx, order, req)
		}
		return s.initializeCardRedirect(ctx, order, req)

	case domain.MethodInstantEFT:
		return s.initializeEFT(ctx, order, req)

	default:
		return nil, fmt.Errorf("unsupported payment method %q", req.Method)
	}
}

// chargeSavedCard settles synchronously against a stored authorization. The
// provider's answer is fed through the Reconciler so the transition rules
// are the same ones the webhook path uses.
func (s *PaymentService) chargeSavedCard(ctx context.Context, order *domain.Order, req InitiatePayment) (*InitiationResult, error) {
	ref := reference.New("PAY")
	if err := s.repo.SetPaymentReference(ctx, order.ID, ref, domain.MethodCard); err != nil {
		return nil, err
	}

	settlement, err := s.card.ChargeAuthorization(ctx, req.Email, order.TotalAmount, req.AuthorizationCode, ref)
	if err != nil {
		return nil, err
	}

	evt := domain.PaymentEvent{
		Provider:      "card",
		Reference:     ref,
		OrderID:       strconv.FormatUint(order.ID, 10),
		Outcome:       settlement.Outcome,
		Amount:        settlement.Amount,
		Channel:       settlement.Channel,
		TransactionID: settlement.TransactionID,
		PaidAt:        settlement.PaidAt,
	}
	if _, err := s.reconciler.ApplyPaymentEvent(ctx, evt); err != nil {
		return nil, err
	}

	return &InitiationResult{Charged: true, Reference: ref}, nil
}

func (s *PaymentService) initializeCardRedirect(ctx context.Context, order *domain.Order, req InitiatePayment) (*InitiationResult, error) {
	ref := reference.New("PAY")
	if err := s.repo.SetPaymentReference(ctx, order.ID, ref, domain.MethodCard); err != nil {
		return nil, err
	}

	initialized, err := s.card.InitializePayment(ctx, req.Email, order.TotalAmount, ref, req.CallbackURL)
	if err != nil {
		return nil, err
	}

	return &InitiationResult{
		Reference:        ref,
		AuthorizationURL: initialized.AuthorizationURL,
		AccessCode:       initialized.AccessCode,
	}, nil
}

func (s *PaymentService) initializeEFT(ctx context.Context, order *domain.Order, req InitiatePayment) (*InitiationResult, error) {
	ref := reference.ForOrder(strconv.FormatUint(order.ID, 10))
	if err := s.repo.SetPaymentReference(ctx, order.ID, ref, domain.MethodInstantEFT); err != nil {
		return nil, err
	}

	customer := req.Email
	if customer == "" {
		customer = order.CustomerEmail
	}
	request := s.eft.GeneratePaymentRequest(order.TotalAmount, ref, order.OrderNumber, customer)

	return &InitiationResult{
		Reference:  ref,
		EFTRequest: request,
	}, nil
}

// VerifyPayment is the client-facing poll: ask the card gateway for the
// settlement state of a reference and apply it through the Reconciler.
// Safe to call any number of times.
func (s *PaymentService) VerifyPayment(ctx context.Context, ref string) (*ReconcileResult, error) {
	settlement, err := s.card.VerifyPayment(ctx, ref)
	if err != nil {
		return nil, err
	}

	evt := domain.PaymentEvent{
		Provider:      "card",
		Reference:     ref,
		Outcome:       settlement.Outcome,
		Amount:        settlement.Amount,
		Channel:       settlement.Channel,
		TransactionID: settlement.TransactionID,
		PaidAt:        settlement.PaidAt,
	}
	return s.reconciler.ApplyPaymentEvent(ctx, evt)
}

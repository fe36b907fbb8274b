package gateway

import (
	"context"
	"errors"
	"time"

	"storefront-service/internal/domain"
)

var (
	ErrInvalidSignature    = errors.New("invalid webhook signature")
	ErrGatewayRejected     = errors.New("gateway rejected charge")
	ErrGatewayUnreachable  = errors.New("gateway unreachable")
	ErrTransactionNotFound = errors.New("transaction not found")
)

// Settlement is a gateway's answer about one payment attempt. Verify is
// idempotent on the provider side: once settled, repeated calls return the
// same terminal result.
type Settlement struct {
	Outcome       domain.PaymentOutcome
	Reference     string
	Amount        float64
	Channel       string
	TransactionID string
	PaidAt        time.Time
	Reason        string
}

// InitializedPayment is the redirect instruction for a new-card payment.
type InitializedPayment struct {
	AuthorizationURL string
	AccessCode       string
	Reference        string
}

type CardGateway interface {
	InitializePayment(ctx context.Context, email string, amount float64, reference, callbackURL string) (*InitializedPayment, error)
	ChargeAuthorization(ctx context.Context, email string, amount float64, authorizationCode, reference string) (*Settlement, error)
	VerifyPayment(ctx context.Context, reference string) (*Settlement, error)
	ValidateWebhook(body []byte, signature string) error
	ParseWebhook(body []byte) (*domain.PaymentEvent, error)
}

type EFTGateway interface {
	GeneratePaymentRequest(amount float64, transactionReference, bankReference, customer string) *EFTPaymentRequest
	VerifyNotification(n EFTNotification) bool
	ParseNotification(n EFTNotification) *domain.PaymentEvent
}

var _ CardGateway = (*CardClient)(nil)
var _ EFTGateway = (*EFTClient)(nil)

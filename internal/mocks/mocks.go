package mocks

import (
	"context"

	"storefront-service/internal/domain"
	"storefront-service/internal/gateway"
	"storefront-service/internal/infra"

	"github.com/stretchr/testify/mock"
)

type MockOrderRepository struct {
	mock.Mock
}

func (m *MockOrderRepository) Save(ctx context.Context, order *domain.Order) error {
	args := m.Called(ctx, order)
	return args.Error(0)
}

func (m *MockOrderRepository) FindByID(ctx context.Context, id uint64) (*domain.Order, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Order), args.Error(1)
}

func (m *MockOrderRepository) FindByOrderNumber(ctx context.Context, orderNumber string) (*domain.Order, error) {
	args := m.Called(ctx, orderNumber)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Order), args.Error(1)
}

func (m *MockOrderRepository) FindByReference(ctx context.Context, ref string) (*domain.Order, error) {
	args := m.Called(ctx, ref)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Order), args.Error(1)
}

func (m *MockOrderRepository) SetPaymentReference(ctx context.Context, orderID uint64, ref string, method domain.PaymentMethod) error {
	args := m.Called(ctx, orderID, ref, method)
	return args.Error(0)
}

func (m *MockOrderRepository) MarkPaid(ctx context.Context, orderID uint64, settlement domain.Settlement) (bool, error) {
	args := m.Called(ctx, orderID, settlement)
	return args.Bool(0), args.Error(1)
}

func (m *MockOrderRepository) MarkFailed(ctx context.Context, orderID uint64) (bool, error) {
	args := m.Called(ctx, orderID)
	return args.Bool(0), args.Error(1)
}

type MockCatalogClient struct {
	mock.Mock
}

func (m *MockCatalogClient) GetProductByID(ctx context.Context, id uint64) (*infra.ProductSnapshot, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*infra.ProductSnapshot), args.Error(1)
}

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, routingKey string, data any) error {
	args := m.Called(ctx, routingKey, data)
	return args.Error(0)
}

type MockCardGateway struct {
	mock.Mock
}

func (m *MockCardGateway) InitializePayment(ctx context.Context, email string, amount float64, ref, callbackURL string) (*gateway.InitializedPayment, error) {
	args := m.Called(ctx, email, amount, ref, callbackURL)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gateway.InitializedPayment), args.Error(1)
}

func (m *MockCardGateway) ChargeAuthorization(ctx context.Context, email string, amount float64, authorizationCode, ref string) (*gateway.Settlement, error) {
	args := m.Called(ctx, email, amount, authorizationCode, ref)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gateway.Settlement), args.Error(1)
}

func (m *MockCardGateway) VerifyPayment(ctx context.Context, ref string) (*gateway.Settlement, error) {
	args := m.Called(ctx, ref)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gateway.Settlement), args.Error(1)
}

func (m *MockCardGateway) ValidateWebhook(body []byte, signature string) error {
	args := m.Called(body, signature)
	return args.Error(0)
}

func (m *MockCardGateway) ParseWebhook(body []byte) (*domain.PaymentEvent, error) {
	args := m.Called(body)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PaymentEvent), args.Error(1)
}

type MockEFTGateway struct {
	mock.Mock
}

func (m *MockEFTGateway) GeneratePaymentRequest(amount float64, transactionReference, bankReference, customer string) *gateway.EFTPaymentRequest {
	args := m.Called(amount, transactionReference, bankReference, customer)
	return args.Get(0).(*gateway.EFTPaymentRequest)
}

func (m *MockEFTGateway) VerifyNotification(n gateway.EFTNotification) bool {
	args := m.Called(n)
	return args.Bool(0)
}

func (m *MockEFTGateway) ParseNotification(n gateway.EFTNotification) *domain.PaymentEvent {
	args := m.Called(n)
	return args.Get(0).(*domain.PaymentEvent)
}

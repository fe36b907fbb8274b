package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"storefront-service/internal/domain"
	"storefront-service/internal/infra"
	"storefront-service/internal/mocks"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func TestOrderService_CreateOrder(t *testing.T) {
	tests := []struct {
		name          string
		items         []CheckoutItem
		setupMocks    func(*mocks.MockOrderRepository, *mocks.MockCatalogClient, *mocks.MockPublisher)
		expectedError string
		expectedTotal float64
	}{
		{
			name:  "snapshots catalog products and totals them",
			items: []CheckoutItem{{ProductID: 1, Quantity: 2}, {ProductID: 2, Quantity: 1}},
			setupMocks: func(mockRepo *mocks.MockOrderRepository, mockCatalog *mocks.MockCatalogClient, mockPub *mocks.MockPublisher) {
				mockCatalog.On("GetProductByID", mock.Anything, uint64(1)).Return(&infra.ProductSnapshot{
					ID: 1, Name: "Bulk Flour 10kg", Price: 149.99, Qty: 50, Barcode: "6001001",
				}, nil)
				mockCatalog.On("GetProductByID", mock.Anything, uint64(2)).Return(&infra.ProductSnapshot{
					ID: 2, Name: "Sunflower Oil 5L", Price: 189.99, Qty: 20,
				}, nil)
				mockRepo.On("Save", mock.Anything, mock.AnythingOfType("*domain.Order")).Return(nil).Run(func(args mock.Arguments) {
					order := args.Get(1).(*domain.Order)
					order.ID = 1
				})
				mockPub.On("Publish", mock.Anything, "order.created", mock.Anything).Return(nil).Maybe()
			},
			expectedTotal: 2*149.99 + 189.99,
		},
		{
			name:  "product not found",
			items: []CheckoutItem{{ProductID: 999, Quantity: 1}},
			setupMocks: func(mockRepo *mocks.MockOrderRepository, mockCatalog *mocks.MockCatalogClient, mockPub *mocks.MockPublisher) {
				mockCatalog.On("GetProductByID", mock.Anything, uint64(999)).Return(nil, nil)
			},
			expectedError: "product not found",
		},
		{
			name:  "catalog unavailable",
			items: []CheckoutItem{{ProductID: 1, Quantity: 1}},
			setupMocks: func(mockRepo *mocks.MockOrderRepository, mockCatalog *mocks.MockCatalogClient, mockPub *mocks.MockPublisher) {
				mockCatalog.On("GetProductByID", mock.Anything, uint64(1)).Return(nil, errors.New("catalog service returned status 503"))
			},
			expectedError: "503",
		},
		{
			name:  "save failure",
			items: []CheckoutItem{{ProductID: 1, Quantity: 1}},
			setupMocks: func(mockRepo *mocks.MockOrderRepository, mockCatalog *mocks.MockCatalogClient, mockPub *mocks.MockPublisher) {
				mockCatalog.On("GetProductByID", mock.Anything, uint64(1)).Return(&infra.ProductSnapshot{
					ID: 1, Name: "Bulk Flour 10kg", Price: 149.99, Qty: 50,
				}, nil)
				mockRepo.On("Save", mock.Anything, mock.AnythingOfType("*domain.Order")).Return(errors.New("database error"))
			},
			expectedError: "database error",
		},
		{
			name:          "empty order",
			items:         nil,
			setupMocks:    func(*mocks.MockOrderRepository, *mocks.MockCatalogClient, *mocks.MockPublisher) {},
			expectedError: "at least one item",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockRepo := new(mocks.MockOrderRepository)
			mockCatalog := new(mocks.MockCatalogClient)
			mockPub := new(mocks.MockPublisher)

			tt.setupMocks(mockRepo, mockCatalog, mockPub)

			service := NewOrderService(mockRepo, mockCatalog, mockPub)
			order, err := service.CreateOrder(context.Background(), "buyer@example.com", domain.MethodCard, tt.items)

			if tt.expectedError != "" {
				assert.Error(t, err)
				assert.Contains(t, err.Error(), tt.expectedError)
				assert.Nil(t, order)
			} else {
				assert.NoError(t, err)
				assert.NotNil(t, order)
				assert.Equal(t, tt.expectedTotal, order.TotalAmount)
				assert.Equal(t, domain.PaymentPending, order.PaymentStatus)
				assert.Equal(t, domain.StatusPending, order.OrderStatus)
				assert.True(t, strings.HasPrefix(order.OrderNumber, "ORD-"))
				assert.Len(t, order.Items, len(tt.items))

				// Line items are frozen snapshots of the catalog at
				// creation time.
				assert.Equal(t, "Bulk Flour 10kg", order.Items[0].Name)
				assert.Equal(t, 149.99, order.Items[0].UnitPrice)
				assert.Equal(t, int64(2), order.Items[0].Quantity)
				assert.Equal(t, "6001001", order.Items[0].Barcode)
			}

			time.Sleep(100 * time.Millisecond)

			mockCatalog.AssertExpectations(t)
			mockRepo.AssertExpectations(t)
			mockPub.AssertExpectations(t)
		})
	}
}

func TestOrderService_GetOrderByID(t *testing.T) {
	tests := []struct {
		name          string
		orderID       uint64
		setupMocks    func(*mocks.MockOrderRepository)
		expectedError error
	}{
		{
			name:    "found",
			orderID: 1,
			setupMocks: func(mockRepo *mocks.MockOrderRepository) {
				mockRepo.On("FindByID", mock.Anything, uint64(1)).Return(&domain.Order{
					ID:          1,
					OrderNumber: "ORD-MB2K-0001",
					TotalAmount: 489.97,
				}, nil)
			},
		},
		{
			name:    "not found",
			orderID: 999,
			setupMocks: func(mockRepo *mocks.MockOrderRepository) {
				mockRepo.On("FindByID", mock.Anything, uint64(999)).Return(nil, nil)
			},
			expectedError: ErrOrderNotFound,
		},
		{
			name:    "repository error",
			orderID: 1,
			setupMocks: func(mockRepo *mocks.MockOrderRepository) {
				mockRepo.On("FindByID", mock.Anything, uint64(1)).Return(nil, errors.New("database connection error"))
			},
			expectedError: errors.New("database connection error"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockRepo := new(mocks.MockOrderRepository)
			tt.setupMocks(mockRepo)

			service := NewOrderService(mockRepo, new(mocks.MockCatalogClient), new(mocks.MockPublisher))
			order, err := service.GetOrderByID(context.Background(), tt.orderID)

			if tt.expectedError != nil {
				assert.Error(t, err)
				if errors.Is(tt.expectedError, ErrOrderNotFound) {
					assert.Equal(t, ErrOrderNotFound, err)
				} else {
					assert.Contains(t, err.Error(), tt.expectedError.Error())
				}
				assert.Nil(t, order)
			} else {
				assert.NoError(t, err)
				assert.NotNil(t, order)
				assert.Equal(t, tt.orderID, order.ID)
			}

			mockRepo.AssertExpectations(t)
		})
	}
}

func TestOrderService_GetOrderByNumber(t *testing.T) {
	mockRepo := new(mocks.MockOrderRepository)
	mockRepo.On("FindByOrderNumber", mock.Anything, "ORD-MB2K-0001").Return(&domain.Order{
		ID:          1,
		OrderNumber: "ORD-MB2K-0001",
	}, nil)
	mockRepo.On("FindByOrderNumber", mock.Anything, "ORD-NOPE").Return(nil, nil)

	service := NewOrderService(mockRepo, new(mocks.MockCatalogClient), new(mocks.MockPublisher))

	order, err := service.GetOrderByNumber(context.Background(), "ORD-MB2K-0001")
	assert.NoError(t, err)
	assert.Equal(t, uint64(1), order.ID)

	_, err = service.GetOrderByNumber(context.Background(), "ORD-NOPE")
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

package repository

import (
	"context"

	"storefront-service/internal/domain"
)

// OrderRepository is the persistence contract the reconciliation core
// depends on. MarkPaid and MarkFailed are conditional writes: they apply
// only while the order's payment status is still pending and report whether
// they did. That database-level condition is the system's only mutual
// exclusion and must hold across process instances.
type OrderRepository interface {
	Save(ctx context.Context, order *domain.Order) error
	FindByID(ctx context.Context, id uint64) (*domain.Order, error)
	FindByOrderNumber(ctx context.Context, orderNumber string) (*domain.Order, error)
	FindByReference(ctx context.Context, ref string) (*domain.Order, error)
	SetPaymentReference(ctx context.Context, orderID uint64, ref string, method domain.PaymentMethod) error
	MarkPaid(ctx context.Context, orderID uint64, settlement domain.Settlement) (bool, error)
	MarkFailed(ctx context.Context, orderID uint64) (bool, error)
}

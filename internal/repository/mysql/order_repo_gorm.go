package mysql

import (
	"context"
	"errors"
	"log"

	"storefront-service/internal/domain"
	"storefront-service/internal/repository"

	"gorm.io/gorm"
)

type orderRepo struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) repository.OrderRepository {
	return &orderRepo{db: db}
}

func (r *orderRepo) Save(ctx context.Context, order *domain.Order) error {
	result := r.db.WithContext(ctx).Create(order)
	if result.Error != nil {
		log.Printf("order save error: %v", result.Error)
		return result.Error
	}
	if order.ID == 0 {
		return errors.New("failed to assign order ID")
	}
	return nil
}

func (r *orderRepo) FindByID(ctx context.Context, id uint64) (*domain.Order, error) {
	var o domain.Order
	err := r.db.WithContext(ctx).Preload("Items").First(&o, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &o, nil
}

func (r *orderRepo) FindByOrderNumber(ctx context.Context, orderNumber string) (*domain.Order, error) {
	return r.findOne(ctx, "order_number = ?", orderNumber)
}

func (r *orderRepo) FindByReference(ctx context.Context, ref string) (*domain.Order, error) {
	return r.findOne(ctx, "payment_reference = ?", ref)
}

func (r *orderRepo) findOne(ctx context.Context, query string, arg any) (*domain.Order, error) {
	var o domain.Order
	err := r.db.WithContext(ctx).Preload("Items").Where(query, arg).First(&o).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &o, nil
}

func (r *orderRepo) SetPaymentReference(ctx context.Context, orderID uint64, ref string, method domain.PaymentMethod) error {
	result := r.db.WithContext(ctx).Model(&domain.Order{}).
		Where("id = ?", orderID).
		Updates(map[string]any{
			"payment_reference": ref,
			"payment_method":    method,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return errors.New("order not found for payment reference update")
	}
	return nil
}

// MarkPaid transitions pending -> paid in a single conditional UPDATE. The
// WHERE clause on payment_status is what makes a racing second writer a
// no-op instead of an overwrite; RowsAffected tells the caller which writer
// it was. The fulfillment status advances only from pending.
func (r *orderRepo) MarkPaid(ctx context.Context, orderID uint64, s domain.Settlement) (bool, error) {
	result := r.db.WithContext(ctx).Model(&domain.Order{}).
		Where("id = ? AND payment_status = ?", orderID, domain.PaymentPending).
		Updates(map[string]any{
			"payment_status":            domain.PaymentPaid,
			"order_status":              gorm.Expr("CASE WHEN order_status = ? THEN ? ELSE order_status END", domain.StatusPending, domain.StatusConfirmed),
			"settlement_reference":      s.Reference,
			"settlement_amount":         s.Amount,
			"settlement_paid_at":        s.PaidAt,
			"settlement_channel":        s.Channel,
			"settlement_transaction_id": s.TransactionID,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *orderRepo) MarkFailed(ctx context.Context, orderID uint64) (bool, error) {
	result := r.db.WithContext(ctx).Model(&domain.Order{}).
		Where("id = ? AND payment_status = ?", orderID, domain.PaymentPending).
		Update("payment_status", domain.PaymentFailed)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"storefront-service/internal/domain"
	"storefront-service/internal/infra"
	rabbit "storefront-service/internal/infra/rabbitmq"
	"storefront-service/internal/reference"
	"storefront-service/internal/repository"

	"github.com/go-redis/redis/v8"
	"golang.org/x/sync/errgroup"
)

var ErrProductNotFound = errors.New("product not found")

// CheckoutItem is a requested line before snapshotting.
type CheckoutItem struct {
	ProductID uint64
	Quantity  int64
}

// OrderService creates orders at checkout. Line items are frozen snapshots
// of the catalog at creation time; later catalog changes never touch a
// placed order.
type OrderService struct {
	repo          repository.OrderRepository
	catalogClient infra.CatalogClientInterface
	publisher     rabbit.PublisherInterface
	redisClient   *redis.Client
}

func NewOrderService(r repository.OrderRepository, c infra.CatalogClientInterface, pub rabbit.PublisherInterface) *OrderService {
	return &OrderService{
		repo:          r,
		catalogClient: c,
		publisher:     pub,
	}
}

func (u *OrderService) SetRedisClient(client *redis.Client) {
	u.redisClient = client
}

func (u *OrderService) CreateOrder(ctx context.Context, email string, method domain.PaymentMethod, items []CheckoutItem) (*domain.Order, error) {
	if len(items) == 0 {
		return nil, errors.New("order must have at least one item")
	}

	var (
		snapshots []domain.OrderItem
		total     float64
	)
	for _, item := range items {
		prod, err := u.getProductWithCache(ctx, item.ProductID)
		if err != nil {
			return nil, err
		}
		if prod == nil {
			return nil, ErrProductNotFound
		}
		if item.Quantity <= 0 {
			return nil, fmt.Errorf("invalid quantity %d for product %d", item.Quantity, item.ProductID)
		}

		snapshots = append(snapshots, domain.OrderItem{
			ProductID:   prod.ID,
			Name:        prod.Name,
			UnitPrice:   prod.Price,
			Quantity:    item.Quantity,
			Image:       prod.Image,
			Barcode:     prod.Barcode,
			Description: prod.Description,
		})
		total += prod.Price * float64(item.Quantity)
	}

	order := &domain.Order{
		OrderNumber:   reference.New("ORD"),
		CustomerEmail: email,
		Items:         snapshots,
		TotalAmount:   total,
		PaymentMethod: method,
		PaymentStatus: domain.PaymentPending,
		OrderStatus:   domain.StatusPending,
		CreatedAt:     time.Now(),
	}

	if err := u.repo.Save(ctx, order); err != nil {
		return nil, err
	}

	go u.publishOrderCreatedEvent(context.Background(), order)

	return order, nil
}

func (u *OrderService) getProductWithCache(ctx context.Context, productID uint64) (*infra.ProductSnapshot, error) {
	cacheKey := fmt.Sprintf("product:%d", productID)

	if u.redisClient != nil {
		cached, err := u.redisClient.Get(ctx, cacheKey).Result()
		if err == nil {
			var prod infra.ProductSnapshot
			if err := json.Unmarshal([]byte(cached), &prod); err == nil {
				return &prod, nil
			}
		}
	}

	prod, err := u.catalogClient.GetProductByID(ctx, productID)
	if err != nil {
		return nil, err
	}

	if u.redisClient != nil && prod != nil {
		if data, err := json.Marshal(prod); err == nil {
			u.redisClient.Set(ctx, cacheKey, data, time.Minute)
		}
	}

	return prod, nil
}

func (u *OrderService) publishOrderCreatedEvent(ctx context.Context, order *domain.Order) {
	evt := domain.OrderCreatedEvent{
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		TotalAmount: order.TotalAmount,
		CreatedAt:   order.CreatedAt,
	}

	if err := u.publisher.Publish(ctx, "order.created", evt); err != nil {
		log.Printf("Failed to publish order.created for order %d: %v", order.ID, err)
	}
}

func (u *OrderService) GetOrderByID(ctx context.Context, id uint64) (*domain.Order, error) {
	o, err := u.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if o == nil {
		return nil, ErrOrderNotFound
	}
	return o, nil
}

func (u *OrderService) GetOrderByNumber(ctx context.Context, orderNumber string) (*domain.Order, error) {
	o, err := u.repo.FindByOrderNumber(ctx, orderNumber)
	if err != nil {
		return nil, err
	}
	if o == nil {
		return nil, ErrOrderNotFound
	}
	return o, nil
}

// WarmupCatalogCache primes the product cache so the first checkouts after
// startup do not all fan out to the catalog service.
func (u *OrderService) WarmupCatalogCache(ctx context.Context, productIDs []uint64) error {
	if u.redisClient == nil {
		return nil
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(4)

	for _, id := range productIDs {
		id := id
		g.Go(func() error {
			prod, err := u.catalogClient.GetProductByID(ctx, id)
			if err != nil {
				log.Printf("Failed to warm up cache for product %d: %v", id, err)
				return nil
			}
			if prod != nil {
				cacheKey := fmt.Sprintf("product:%d", id)
				if data, err := json.Marshal(prod); err == nil {
					u.redisClient.Set(ctx, cacheKey, data, 5*time.Minute)
				}
			}
			return nil
		})
	}

	return g.Wait()
}

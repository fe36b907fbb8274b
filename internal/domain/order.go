package domain

import "time"

type PaymentMethod string

const (
	MethodCard           PaymentMethod = "card"
	MethodInstantEFT     PaymentMethod = "instant-eft"
	MethodCashOnDelivery PaymentMethod = "cash-on-delivery"
)

type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "pending"
	PaymentPaid     PaymentStatus = "paid"
	PaymentFailed   PaymentStatus = "failed"
	PaymentRefunded PaymentStatus = "refunded"
)

type OrderStatus string

const (
	StatusPending        OrderStatus = "pending"
	StatusConfirmed      OrderStatus = "confirmed"
	StatusPicking        OrderStatus = "picking"
	StatusReady          OrderStatus = "ready"
	StatusOutForDelivery OrderStatus = "out-for-delivery"
	StatusDelivered      OrderStatus = "delivered"
	StatusCancelled      OrderStatus = "cancelled"
)

// Settlement is the receipt written exactly once when a payment reaches a
// terminal successful outcome. A retried notification must not overwrite it.
type Settlement struct {
	Reference     string     `json:"reference" gorm:"size:64"`
	Amount        float64    `json:"amount"`
	PaidAt        *time.Time `json:"paidAt"`
	Channel       string     `json:"channel" gorm:"size:32"`
	TransactionID string     `json:"transactionId" gorm:"size:64"`
}

// OrderItem is a frozen snapshot of the catalog product at order-creation
// time. Catalog changes never alter a placed order.
type OrderItem struct {
	ID          uint64  `json:"id" gorm:"primaryKey;autoIncrement"`
	OrderID     uint64  `json:"orderId" gorm:"not null;index"`
	ProductID   uint64  `json:"productId" gorm:"not null"`
	Name        string  `json:"name" gorm:"size:255;not null"`
	UnitPrice   float64 `json:"unitPrice" gorm:"not null"`
	Quantity    int64   `json:"quantity" gorm:"not null"`
	Image       string  `json:"image" gorm:"size:512"`
	Barcode     string  `json:"barcode" gorm:"size:64"`
	Description string  `json:"description" gorm:"size:1024"`
}

type Order struct {
	ID               uint64        `json:"id" gorm:"primaryKey;autoIncrement"`
	OrderNumber      string        `json:"orderNumber" gorm:"size:64;uniqueIndex;not null"`
	CustomerEmail    string        `json:"customerEmail" gorm:"size:255;index"`
	Items            []OrderItem   `json:"items" gorm:"foreignKey:OrderID"`
	TotalAmount      float64       `json:"totalAmount" gorm:"not null"`
	PaymentMethod    PaymentMethod `json:"paymentMethod" gorm:"type:enum('card','instant-eft','cash-on-delivery');default:'card'"`
	PaymentStatus    PaymentStatus `json:"paymentStatus" gorm:"type:enum('pending','paid','failed','refunded');default:'pending';index"`
	OrderStatus      OrderStatus   `json:"orderStatus" gorm:"type:enum('pending','confirmed','picking','ready','out-for-delivery','delivered','cancelled');default:'pending'"`
	PaymentReference string        `json:"paymentReference" gorm:"size:64;index"`
	Settlement       Settlement    `json:"settlement" gorm:"embedded;embeddedPrefix:settlement_"`
	CreatedAt        time.Time     `json:"createdAt" gorm:"autoCreateTime"`
	UpdatedAt        time.Time     `json:"updatedAt" gorm:"autoUpdateTime"`
}

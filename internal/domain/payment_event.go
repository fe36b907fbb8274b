package domain

import "time"

// PaymentOutcome is the internal status vocabulary. Both gateway adapters
// normalize their provider-specific statuses into it; business logic never
// sees a provider field name.
type PaymentOutcome string

const (
	OutcomeSucceeded PaymentOutcome = "succeeded"
	OutcomeFailed    PaymentOutcome = "failed"
	OutcomePending   PaymentOutcome = "pending"
	OutcomeUnknown   PaymentOutcome = "unknown"
)

// PaymentEvent is a verified, normalized gateway notification. Events are
// ephemeral: only their effect on the order is persisted.
type PaymentEvent struct {
	Provider      string         `json:"provider"`
	Reference     string         `json:"reference"`
	OrderID       string         `json:"orderId,omitempty"`
	Outcome       PaymentOutcome `json:"outcome"`
	Amount        float64        `json:"amount"`
	Channel       string         `json:"channel,omitempty"`
	TransactionID string         `json:"transactionId,omitempty"`
	PaidAt        time.Time      `json:"paidAt,omitempty"`
}

type OrderCreatedEvent struct {
	OrderID     uint64    `json:"orderId"`
	OrderNumber string    `json:"orderNumber"`
	TotalAmount float64   `json:"totalAmount"`
	CreatedAt   time.Time `json:"createdAt"`
}

type OrderPaidEvent struct {
	OrderID       uint64    `json:"orderId"`
	OrderNumber   string    `json:"orderNumber"`
	Reference     string    `json:"reference"`
	Amount        float64   `json:"amount"`
	Channel       string    `json:"channel"`
	TransactionID string    `json:"transactionId"`
	PaidAt        time.Time `json:"paidAt"`
}

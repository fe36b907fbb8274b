package http

type CheckoutItemRequest struct {
	ProductID uint64 `json:"productId" binding:"required"`
	Quantity  int64  `json:"quantity" binding:"required,min=1"`
}

type CreateOrderRequest struct {
	Email         string                `json:"email" binding:"required,email"`
	PaymentMethod string                `json:"paymentMethod" binding:"required,oneof=card instant-eft cash-on-delivery"`
	Items         []CheckoutItemRequest `json:"items" binding:"required,min=1,dive"`
}

type CreateOrderResponse struct {
	ID          uint64  `json:"id"`
	OrderNumber string  `json:"orderNumber"`
	TotalAmount float64 `json:"totalAmount"`
}

type InitializePaymentRequest struct {
	OrderID           uint64 `json:"orderId" binding:"required"`
	Email             string `json:"email" binding:"required,email"`
	Method            string `json:"method" binding:"required,oneof=card instant-eft cash-on-delivery"`
	AuthorizationCode string `json:"authorizationCode"`
	CallbackURL       string `json:"callbackUrl"`
}

type VerifyPaymentResponse struct {
	Verified  bool    `json:"verified"`
	OrderID   uint64  `json:"orderId,omitempty"`
	Amount    float64 `json:"amount,omitempty"`
	Reference string  `json:"reference"`
}

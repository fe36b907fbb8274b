package http

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"storefront-service/internal/domain"
	"storefront-service/internal/gateway"
	"storefront-service/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
)

const cardSignatureHeader = "X-Paystack-Signature"

type Handler struct {
	orders     *services.OrderService
	payments   *services.PaymentService
	reconciler *services.Reconciler
	card       gateway.CardGateway
	eft        gateway.EFTGateway
	rdb        *redis.Client
}

func NewHandler(orders *services.OrderService, payments *services.PaymentService, reconciler *services.Reconciler, card gateway.CardGateway, eft gateway.EFTGateway, rdb *redis.Client) *Handler {
	return &Handler{
		orders:     orders,
		payments:   payments,
		reconciler: reconciler,
		card:       card,
		eft:        eft,
		rdb:        rdb,
	}
}

func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.POST("/orders", h.CreateOrder)
	r.GET("/orders/:id", h.GetOrder)
	r.POST("/payments/initialize", h.InitializePayment)
	r.GET("/payments/verify/:reference", h.VerifyPayment)
	r.POST("/webhooks/card", h.CardWebhook)
	r.POST("/webhooks/eft", h.EFTWebhook)
}

func (h *Handler) CreateOrder(c *gin.Context) {
	var req CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	items := make([]services.CheckoutItem, 0, len(req.Items))
	for _, item := range req.Items {
		items = append(items, services.CheckoutItem{ProductID: item.ProductID, Quantity: item.Quantity})
	}

	order, err := h.orders.CreateOrder(c.Request.Context(), req.Email, domain.PaymentMethod(req.PaymentMethod), items)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, CreateOrderResponse{
		ID:          order.ID,
		OrderNumber: order.OrderNumber,
		TotalAmount: order.TotalAmount,
	})
}

func (h *Handler) GetOrder(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid order id"})
		return
	}

	order, err := h.orders.GetOrderByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, services.ErrOrderNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "order not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, order)
}

func (h *Handler) InitializePayment(c *gin.Context) {
	var req InitializePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.payments.InitializePayment(c.Request.Context(), services.InitiatePayment{
		OrderID:           req.OrderID,
		Email:             req.Email,
		Method:            domain.PaymentMethod(req.Method),
		AuthorizationCode: req.AuthorizationCode,
		CallbackURL:       req.CallbackURL,
	})
	if err != nil {
		switch {
		case errors.Is(err, services.ErrOrderNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "order not found"})
		case errors.Is(err, services.ErrOrderAlreadyPaid):
			c.JSON(http.StatusConflict, gin.H{"error": "order already paid"})
		case errors.Is(err, gateway.ErrGatewayRejected):
			c.JSON(http.StatusPaymentRequired, gin.H{"error": err.Error()})
		case errors.Is(err, gateway.ErrGatewayUnreachable):
			c.JSON(http.StatusBadGateway, gin.H{"error": "payment gateway unavailable, try again"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *Handler) VerifyPayment(c *gin.Context) {
	ref := c.Param("reference")
	if ref == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "reference required"})
		return
	}

	cacheKey := "verify:" + ref
	if h.rdb != nil {
		if cached, err := h.rdb.Get(c.Request.Context(), cacheKey).Result(); err == nil {
			var resp VerifyPaymentResponse
			if json.Unmarshal([]byte(cached), &resp) == nil {
				c.JSON(http.StatusOK, resp)
				return
			}
		}
	}

	result, err := h.payments.VerifyPayment(c.Request.Context(), ref)
	if err != nil {
		switch {
		case errors.Is(err, gateway.ErrTransactionNotFound), errors.Is(err, services.ErrOrderNotFound):
			c.JSON(http.StatusNotFound, gin.H{"verified": false, "reference": ref, "error": "payment not found"})
		case errors.Is(err, services.ErrAmountMismatch):
			c.JSON(http.StatusConflict, gin.H{"verified": false, "reference": ref, "error": "settled amount does not match order total"})
		case errors.Is(err, gateway.ErrGatewayUnreachable):
			c.JSON(http.StatusBadGateway, gin.H{"verified": false, "reference": ref, "error": "gateway unavailable, try again"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"verified": false, "reference": ref, "error": err.Error()})
		}
		return
	}

	resp := VerifyPaymentResponse{
		Verified:  result.PaymentStatus == domain.PaymentPaid,
		OrderID:   result.OrderID,
		Reference: ref,
	}
	if resp.Verified {
		order, err := h.orders.GetOrderByID(c.Request.Context(), result.OrderID)
		if err == nil {
			resp.Amount = order.TotalAmount
		}
		// Polling clients re-request aggressively after redirect; a short
		// cache keeps the repeats off the gateway.
		if h.rdb != nil {
			if data, err := json.Marshal(resp); err == nil {
				h.rdb.Set(context.Background(), cacheKey, data, 10*time.Second)
			}
		}
	}

	c.JSON(http.StatusOK, resp)
}

// CardWebhook authenticates the provider's HMAC over the raw body before
// anything parses it, then feeds the normalized event to the reconciler.
func (h *Handler) CardWebhook(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable body"})
		return
	}

	if err := h.card.ValidateWebhook(body, c.GetHeader(cardSignatureHeader)); err != nil {
		log.Printf("card webhook rejected: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid signature"})
		return
	}

	evt, err := h.card.ParseWebhook(body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed event"})
		return
	}

	h.applyWebhookEvent(c, *evt)
}

// EFTWebhook verifies the provider's field hash, then reconciles. Order
// correlation rides on the ORDER-<id>-... reference the adapter parsed.
func (h *Handler) EFTWebhook(c *gin.Context) {
	var n gateway.EFTNotification
	if err := c.ShouldBindJSON(&n); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed notification"})
		return
	}

	if !h.eft.VerifyNotification(n) {
		log.Printf("eft notification rejected: hash mismatch (ref %s)", n.TransactionReference)
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid hash"})
		return
	}

	h.applyWebhookEvent(c, *h.eft.ParseNotification(n))
}

func (h *Handler) applyWebhookEvent(c *gin.Context, evt domain.PaymentEvent) {
	if evt.Reference == "" && evt.OrderID == "" {
		log.Printf("webhook event without reference from provider %s; cannot correlate, manual reconciliation required", evt.Provider)
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing reference"})
		return
	}

	result, err := h.reconciler.ApplyPaymentEvent(c.Request.Context(), evt)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrOrderNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "order not found"})
		case errors.Is(err, services.ErrAmountMismatch):
			// Flagged for manual review. A provider retry would carry the
			// same amount, so answer 2xx to stop the redelivery loop.
			c.JSON(http.StatusOK, gin.H{"status": "flagged"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"applied":   result.Applied,
		"duplicate": result.Duplicate,
	})
}

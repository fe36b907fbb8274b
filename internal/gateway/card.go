package gateway

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"storefront-service/internal/domain"
)

const defaultCardBaseURL = "https://api.paystack.co"

type CardConfig struct {
	SecretKey string
	BaseURL   string
	Timeout   time.Duration
}

// CardClient talks to the card-processing gateway's REST API.
type CardClient struct {
	cfg        CardConfig
	httpClient *http.Client
}

func NewCardClient(cfg CardConfig) *CardClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultCardBaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &CardClient{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
}

type cardTransaction struct {
	Status          string `json:"status"`
	Reference       string `json:"reference"`
	Amount          int64  `json:"amount"`
	Channel         string `json:"channel"`
	PaidAt          string `json:"paid_at"`
	ID              int64  `json:"id"`
	GatewayResponse string `json:"gateway_response"`
}

type cardEnvelope struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func (c *CardClient) InitializePayment(ctx context.Context, email string, amount float64, reference, callbackURL string) (*InitializedPayment, error) {
	payload := map[string]any{
		"email":        email,
		"amount":       ToMinorUnits(amount),
		"reference":    reference,
		"callback_url": callbackURL,
	}

	env, err := c.post(ctx, "/transaction/initialize", payload)
	if err != nil {
		return nil, err
	}
	if !env.Status {
		return nil, fmt.Errorf("%w: %s", ErrGatewayRejected, env.Message)
	}

	var data struct {
		AuthorizationURL string `json:"authorization_url"`
		AccessCode       string `json:"access_code"`
		Reference        string `json:"reference"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return nil, fmt.Errorf("decode initialize response: %w", err)
	}

	return &InitializedPayment{
		AuthorizationURL: data.AuthorizationURL,
		AccessCode:       data.AccessCode,
		Reference:        data.Reference,
	}, nil
}

// ChargeAuthorization charges a saved card authorization. The provider
// answers HTTP 200 even for declined charges, so the nested transaction
// status is the source of truth, never the HTTP status.
func (c *CardClient) ChargeAuthorization(ctx context.Context, email string, amount float64, authorizationCode, reference string) (*Settlement, error) {
	payload := map[string]any{
		"email":              email,
		"amount":             ToMinorUnits(amount),
		"authorization_code": authorizationCode,
		"reference":          reference,
	}

	env, err := c.post(ctx, "/transaction/charge_authorization", payload)
	if err != nil {
		return nil, err
	}
	if !env.Status {
		return nil, fmt.Errorf("%w: %s", ErrGatewayRejected, env.Message)
	}

	var tx cardTransaction
	if err := json.Unmarshal(env.Data, &tx); err != nil {
		return nil, fmt.Errorf("decode charge response: %w", err)
	}

	settlement := settlementFromTransaction(tx)
	if settlement.Outcome != domain.OutcomeSucceeded {
		reason := tx.GatewayResponse
		if reason == "" {
			reason = tx.Status
		}
		return settlement, fmt.Errorf("%w: %s", ErrGatewayRejected, reason)
	}
	return settlement, nil
}

func (c *CardClient) VerifyPayment(ctx context.Context, reference string) (*Settlement, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+"/transaction/verify/"+reference, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.SecretKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGatewayUnreachable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrTransactionNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: verify returned status %d", ErrGatewayUnreachable, resp.StatusCode)
	}

	var env cardEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, fmt.Errorf("decode verify response: %w", err)
	}
	if !env.Status {
		return nil, ErrTransactionNotFound
	}

	var tx cardTransaction
	if err := json.Unmarshal(env.Data, &tx); err != nil {
		return nil, fmt.Errorf("decode verify response: %w", err)
	}
	return settlementFromTransaction(tx), nil
}

// ValidateWebhook checks the hex-encoded HMAC-SHA512 of the raw request body
// against the signature header. The body must be the unparsed bytes as
// received; re-serialized JSON would break the MAC.
func (c *CardClient) ValidateWebhook(body []byte, signature string) error {
	mac := hmac.New(sha512.New, []byte(c.cfg.SecretKey))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return ErrInvalidSignature
	}
	return nil
}

func (c *CardClient) ParseWebhook(body []byte) (*domain.PaymentEvent, error) {
	var payload struct {
		Event string `json:"event"`
		Data  struct {
			cardTransaction
			Metadata struct {
				OrderID    string `json:"orderId"`
				AltOrderID string `json:"order_id"`
			} `json:"metadata"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("decode webhook body: %w", err)
	}

	var outcome domain.PaymentOutcome
	switch payload.Event {
	case "charge.success":
		outcome = domain.OutcomeSucceeded
	case "charge.failed":
		outcome = domain.OutcomeFailed
	default:
		outcome = domain.OutcomeUnknown
	}

	orderID := payload.Data.Metadata.OrderID
	if orderID == "" {
		orderID = payload.Data.Metadata.AltOrderID
	}

	return &domain.PaymentEvent{
		Provider:      "card",
		Reference:     payload.Data.Reference,
		OrderID:       orderID,
		Outcome:       outcome,
		Amount:        FromMinorUnits(payload.Data.Amount),
		Channel:       payload.Data.Channel,
		TransactionID: strconv.FormatInt(payload.Data.ID, 10),
		PaidAt:        parseCardTime(payload.Data.PaidAt),
	}, nil
}

func (c *CardClient) post(ctx context.Context, path string, payload any) (*cardEnvelope, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.SecretKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGatewayUnreachable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError {
		return nil, fmt.Errorf("%w: gateway returned status %d", ErrGatewayUnreachable, resp.StatusCode)
	}

	var env cardEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, fmt.Errorf("decode gateway response: %w", err)
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, fmt.Errorf("%w: %s", ErrGatewayRejected, env.Message)
	}
	return &env, nil
}

func settlementFromTransaction(tx cardTransaction) *Settlement {
	var outcome domain.PaymentOutcome
	switch tx.Status {
	case "success":
		outcome = domain.OutcomeSucceeded
	case "failed":
		outcome = domain.OutcomeFailed
	case "pending", "ongoing", "processing", "queued", "abandoned":
		outcome = domain.OutcomePending
	default:
		outcome = domain.OutcomeUnknown
	}

	return &Settlement{
		Outcome:       outcome,
		Reference:     tx.Reference,
		Amount:        FromMinorUnits(tx.Amount),
		Channel:       tx.Channel,
		TransactionID: strconv.FormatInt(tx.ID, 10),
		PaidAt:        parseCardTime(tx.PaidAt),
		Reason:        tx.GatewayResponse,
	}
}

func parseCardTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05.000Z"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

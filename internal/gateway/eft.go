package gateway

import (
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"
	"strconv"
	"strings"
	"time"

	"storefront-service/internal/domain"
	"storefront-service/internal/reference"
)

type EFTConfig struct {
	SiteCode   string
	PrivateKey string
	PaymentURL string
	NotifyURL  string
	SuccessURL string
	CancelURL  string
	ErrorURL   string
	TestMode   bool
}

// EFTClient builds signed instant-EFT payment requests and verifies inbound
// notifications. The provider is form-post based; there is no REST client.
type EFTClient struct {
	cfg EFTConfig
}

func NewEFTClient(cfg EFTConfig) *EFTClient {
	return &EFTClient{cfg: cfg}
}

// EFTPaymentRequest is the signed form the client browser submits to the
// provider's payment URL.
type EFTPaymentRequest struct {
	URL                  string `json:"url"`
	SiteCode             string `json:"SiteCode"`
	TransactionReference string `json:"TransactionReference"`
	BankReference        string `json:"BankReference"`
	Amount               string `json:"Amount"`
	Customer             string `json:"Customer"`
	NotifyURL            string `json:"NotifyUrl"`
	SuccessURL           string `json:"SuccessUrl"`
	CancelURL            string `json:"CancelUrl"`
	ErrorURL             string `json:"ErrorUrl"`
	IsTest               string `json:"IsTest"`
	Hash                 string `json:"Hash"`
}

// EFTNotification is the provider's webhook body, field names as sent on the
// wire.
type EFTNotification struct {
	SiteCode             string `json:"SiteCode"`
	TransactionID        string `json:"TransactionId"`
	TransactionReference string `json:"TransactionReference"`
	Amount               string `json:"Amount"`
	Status               string `json:"Status"`
	Hash                 string `json:"Hash"`
}

// GeneratePaymentRequest signs the request fields. The field order and the
// two-decimal amount format are the provider's contract; any deviation and
// the provider rejects the request.
func (c *EFTClient) GeneratePaymentRequest(amount float64, transactionReference, bankReference, customer string) *EFTPaymentRequest {
	formatted := FormatAmount(amount)
	hash := eftHash(c.cfg.SiteCode, transactionReference, formatted, customer, c.cfg.PrivateKey)

	return &EFTPaymentRequest{
		URL:                  c.cfg.PaymentURL,
		SiteCode:             c.cfg.SiteCode,
		TransactionReference: transactionReference,
		BankReference:        bankReference,
		Amount:               formatted,
		Customer:             customer,
		NotifyURL:            c.cfg.NotifyURL,
		SuccessURL:           c.cfg.SuccessURL,
		CancelURL:            c.cfg.CancelURL,
		ErrorURL:             c.cfg.ErrorURL,
		IsTest:               strconv.FormatBool(c.cfg.TestMode),
		Hash:                 hash,
	}
}

// VerifyNotification recomputes the notification hash from the inbound
// fields and the private key. Events failing this check must not be
// processed.
func (c *EFTClient) VerifyNotification(n EFTNotification) bool {
	expected := eftHash(n.SiteCode, n.TransactionID, n.TransactionReference, n.Amount, n.Status, c.cfg.PrivateKey)
	supplied := strings.ToLower(n.Hash)
	return subtle.ConstantTimeCompare([]byte(expected), []byte(supplied)) == 1
}

func (c *EFTClient) ParseNotification(n EFTNotification) *domain.PaymentEvent {
	var outcome domain.PaymentOutcome
	switch n.Status {
	case "Complete":
		outcome = domain.OutcomeSucceeded
	case "Cancelled", "Error":
		outcome = domain.OutcomeFailed
	case "Pending":
		outcome = domain.OutcomePending
	default:
		outcome = domain.OutcomeUnknown
	}

	amount, _ := strconv.ParseFloat(n.Amount, 64)
	orderID, _ := reference.OrderIDFrom(n.TransactionReference)

	return &domain.PaymentEvent{
		Provider:      "instant-eft",
		Reference:     n.TransactionReference,
		OrderID:       orderID,
		Outcome:       outcome,
		Amount:        amount,
		Channel:       "eft",
		TransactionID: n.TransactionID,
		PaidAt:        time.Now(),
	}
}

// eftHash concatenates the fields in order, lower-cases the concatenation
// and hashes with SHA-512, hex encoded.
func eftHash(fields ...string) string {
	concat := strings.ToLower(strings.Join(fields, ""))
	sum := sha512.Sum512([]byte(concat))
	return hex.EncodeToString(sum[:])
}

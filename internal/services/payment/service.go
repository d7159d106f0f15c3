package payment

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// paiseFactor converts whole INR to the gateway's integer subunit.
var paiseFactor = decimal.NewFromInt(100)

// Config holds the gateway credentials.
type Config struct {
	BaseURL       string
	KeyID         string
	KeySecret     string
	WebhookSecret string
	Timeout       time.Duration
}

type service struct {
	cfg    Config
	client *http.Client
	log    *logrus.Entry
}

// NewService creates the HTTP-backed payment gateway adapter.
func NewService(cfg Config, log *logrus.Entry) Gateway {
	if cfg.KeyID == "" || cfg.KeySecret == "" {
		panic("payment gateway credentials are required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.razorpay.com/v1"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &service{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		log:    log,
	}
}

type orderResponse struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Status   string `json:"status"`
	Receipt  string `json:"receipt"`
}

func (s *service) CreateOrder(ctx context.Context, amount decimal.Decimal, currency string, notes map[string]string) (*Order, error) {
	payload := map[string]interface{}{
		// Gateway amounts are integer paise.
		"amount":   amount.Mul(paiseFactor).IntPart(),
		"currency": currency,
		"notes":    notes,
	}
	if receipt, ok := notes["transactionId"]; ok {
		payload["receipt"] = receipt
	}

	var out orderResponse
	if err := s.post(ctx, "/orders", payload, "", &out); err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"order_id": out.ID,
		"amount":   amount.String(),
	}).Info("payment order created")

	return &Order{
		OrderID:  out.ID,
		Amount:   decimal.NewFromInt(out.Amount).Div(paiseFactor),
		Currency: out.Currency,
		Status:   out.Status,
		Receipt:  out.Receipt,
	}, nil
}

// VerifySignature checks the HMAC-SHA256 over "orderID|paymentID" the
// gateway attaches to a successful checkout.
func (s *service) VerifySignature(orderID, paymentID, signature string) bool {
	mac := hmac.New(sha256.New, []byte(s.cfg.KeySecret))
	mac.Write([]byte(orderID + "|" + paymentID))
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

type paymentResponse struct {
	ID       string `json:"id"`
	OrderID  string `json:"order_id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Status   string `json:"status"`
	Method   string `json:"method"`
	Captured bool   `json:"captured"`
}

func (s *service) GetPayment(ctx context.Context, paymentID string) (*Payment, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		s.cfg.BaseURL+"/payments/"+paymentID, nil)
	if err != nil {
		return nil, err
	}
	req.SetBasicAuth(s.cfg.KeyID, s.cfg.KeySecret)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGatewayFailure, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrPaymentNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: payment fetch returned %d", ErrGatewayFailure, resp.StatusCode)
	}

	var out paymentResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGatewayFailure, err)
	}
	return &Payment{
		PaymentID: out.ID,
		OrderID:   out.OrderID,
		Amount:    decimal.NewFromInt(out.Amount).Div(paiseFactor),
		Currency:  out.Currency,
		Status:    out.Status,
		Method:    out.Method,
		Captured:  out.Captured,
	}, nil
}

type payoutResponse struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Status   string `json:"status"`
}

func (s *service) CreatePayout(ctx context.Context, amount decimal.Decimal, bank BankDetails, idempotencyKey string) (*Payout, error) {
	payload := map[string]interface{}{
		"amount":   amount.Mul(paiseFactor).IntPart(),
		"currency": "INR",
		"mode":     "IMPS",
		"fund_account": map[string]interface{}{
			"account_type": "bank_account",
			"bank_account": map[string]string{
				"name":           bank.AccountHolder,
				"account_number": bank.AccountNumber,
				"ifsc":           bank.IFSCCode,
			},
		},
		"reference_id": idempotencyKey,
	}

	var out payoutResponse
	if err := s.post(ctx, "/payouts", payload, idempotencyKey, &out); err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"payout_id": out.ID,
		"amount":    amount.String(),
	}).Info("payout created")

	return &Payout{
		PayoutID: out.ID,
		Amount:   decimal.NewFromInt(out.Amount).Div(paiseFactor),
		Currency: out.Currency,
		Status:   out.Status,
	}, nil
}

// webhookEnvelope is the raw gateway webhook payload.
type webhookEnvelope struct {
	Event   string `json:"event"`
	EventID string `json:"event_id"`
	Payload struct {
		Payment struct {
			Entity paymentResponse `json:"entity"`
		} `json:"payment"`
		Order struct {
			Entity orderResponse `json:"entity"`
		} `json:"order"`
	} `json:"payload"`
	ErrorReason string `json:"error_reason"`
}

// DecodeWebhook verifies the body signature and decodes the event. The
// signature is checked before anything else; an invalid one yields
// ErrInvalidSignature and no event.
func (s *service) DecodeWebhook(body []byte, signature string) (*WebhookEvent, error) {
	if s.cfg.WebhookSecret == "" {
		return nil, fmt.Errorf("%w: webhook secret not configured", ErrGatewayFailure)
	}

	mac := hmac.New(sha256.New, []byte(s.cfg.WebhookSecret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return nil, ErrInvalidSignature
	}

	var env webhookEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("%w: undecodable webhook body: %v", ErrGatewayFailure, err)
	}

	event := &WebhookEvent{
		EventID:   env.EventID,
		Type:      env.Event,
		OrderID:   env.Payload.Payment.Entity.OrderID,
		PaymentID: env.Payload.Payment.Entity.ID,
		Amount:    decimal.NewFromInt(env.Payload.Payment.Entity.Amount).Div(paiseFactor),
		Reason:    env.ErrorReason,
	}
	if event.OrderID == "" {
		event.OrderID = env.Payload.Order.Entity.ID
	}
	// Redelivered events may omit the id; fall back to a stable digest so
	// deduplication still holds.
	if event.EventID == "" {
		sum := sha256.Sum256(body)
		event.EventID = hex.EncodeToString(sum[:16])
	}
	return event, nil
}

func (s *service) post(ctx context.Context, path string, payload interface{}, idempotencyKey string, out interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.SetBasicAuth(s.cfg.KeyID, s.cfg.KeySecret)
	req.Header.Set("Content-Type", "application/json")
	if idempotencyKey != "" {
		req.Header.Set("X-Payout-Idempotency", idempotencyKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrGatewayFailure, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrGatewayFailure, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: %s returned %d: %s", ErrGatewayFailure, path, resp.StatusCode,
			strings.TrimSpace(string(raw)))
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%w: %v", ErrGatewayFailure, err)
	}
	return nil
}

package chain

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// Config points the adapter at the custodial token bridge.
type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

type service struct {
	baseURL string
	apiKey  string
	client  *http.Client
	log     *logrus.Entry
}

// NewService creates the HTTP-backed chain gateway.
func NewService(cfg Config, log *logrus.Entry) Gateway {
	if cfg.BaseURL == "" {
		panic("chain bridge base url is required")
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &service{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		client:  &http.Client{Timeout: cfg.Timeout},
		log:     log,
	}
}

type mutationRequest struct {
	From   string `json:"from,omitempty"`
	To     string `json:"to,omitempty"`
	Amount string `json:"amount"`
}

type receiptResponse struct {
	TxHash      string `json:"txHash"`
	BlockNumber uint64 `json:"blockNumber"`
	GasUsed     uint64 `json:"gasUsed"`
	Error       string `json:"error"`
}

func (s *service) Mint(ctx context.Context, toAddress string, amount decimal.Decimal, idempotencyKey string) (*Receipt, error) {
	if !s.IsValidAddress(toAddress) {
		return nil, ErrInvalidAddress
	}
	return s.mutate(ctx, "/token/mint", mutationRequest{To: toAddress, Amount: amount.String()}, idempotencyKey)
}

func (s *service) Burn(ctx context.Context, fromAddress string, amount decimal.Decimal, idempotencyKey string) (*Receipt, error) {
	if !s.IsValidAddress(fromAddress) {
		return nil, ErrInvalidAddress
	}
	return s.mutate(ctx, "/token/burn", mutationRequest{From: fromAddress, Amount: amount.String()}, idempotencyKey)
}

func (s *service) Transfer(ctx context.Context, fromAddress, toAddress string, amount decimal.Decimal, idempotencyKey string) (*Receipt, error) {
	if !s.IsValidAddress(fromAddress) || !s.IsValidAddress(toAddress) {
		return nil, ErrInvalidAddress
	}
	return s.mutate(ctx, "/token/transfer", mutationRequest{From: fromAddress, To: toAddress, Amount: amount.String()}, idempotencyKey)
}

func (s *service) BalanceOf(ctx context.Context, address string) (decimal.Decimal, error) {
	if !s.IsValidAddress(address) {
		return decimal.Zero, ErrInvalidAddress
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		fmt.Sprintf("%s/token/balance/%s", s.baseURL, strings.ToLower(address)), nil)
	if err != nil {
		return decimal.Zero, err
	}
	s.authorize(req)

	resp, err := s.client.Do(req)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %v", ErrBridgeFailure, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return decimal.Zero, fmt.Errorf("%w: balance query returned %d", ErrBridgeFailure, resp.StatusCode)
	}

	var body struct {
		Balance string `json:"balance"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return decimal.Zero, fmt.Errorf("%w: %v", ErrBridgeFailure, err)
	}
	balance, err := decimal.NewFromString(body.Balance)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: bad balance %q", ErrBridgeFailure, body.Balance)
	}
	return balance, nil
}

func (s *service) IsValidAddress(address string) bool {
	return IsValidAddress(address)
}

func (s *service) mutate(ctx context.Context, path string, payload mutationRequest, idempotencyKey string) (*Receipt, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	s.authorize(req)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Idempotency-Key", idempotencyKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBridgeFailure, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBridgeFailure, err)
	}

	var rec receiptResponse
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBridgeFailure, err)
	}
	if resp.StatusCode != http.StatusOK {
		msg := rec.Error
		if msg == "" {
			msg = string(raw)
		}
		return nil, fmt.Errorf("%w: %s returned %d: %s", ErrBridgeFailure, path, resp.StatusCode, msg)
	}
	if rec.TxHash == "" {
		return nil, fmt.Errorf("%w: %s returned no tx hash", ErrBridgeFailure, path)
	}

	s.log.WithFields(logrus.Fields{
		"path":    path,
		"tx_hash": rec.TxHash,
		"block":   rec.BlockNumber,
	}).Info("chain mutation confirmed")

	return &Receipt{TxHash: rec.TxHash, BlockNumber: rec.BlockNumber, GasUsed: rec.GasUsed}, nil
}

func (s *service) authorize(req *http.Request) {
	if s.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.apiKey)
	}
}

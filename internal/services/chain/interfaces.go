// Package chain adapts the arbINR token contract behind a remote custodial
// signer. The orchestrator only sees mint/burn/transfer calls that return a
// receipt, and balance reads; RPC and signing concerns stay here.
package chain

import (
	"context"

	"github.com/shopspring/decimal"
)

// Receipt is the confirmed result of an on-chain state change.
type Receipt struct {
	TxHash      string `json:"txHash"`
	BlockNumber uint64 `json:"blockNumber"`
	GasUsed     uint64 `json:"gasUsed"`
}

// Gateway is the contract the orchestrator depends on.
//
// Every mutating call takes an idempotency key (the transaction id) so a
// retried call against the same key cannot double-spend on the chain side.
// The orchestrator never retries mutating calls on its own.
type Gateway interface {
	Mint(ctx context.Context, toAddress string, amount decimal.Decimal, idempotencyKey string) (*Receipt, error)
	Burn(ctx context.Context, fromAddress string, amount decimal.Decimal, idempotencyKey string) (*Receipt, error)
	Transfer(ctx context.Context, fromAddress, toAddress string, amount decimal.Decimal, idempotencyKey string) (*Receipt, error)
	BalanceOf(ctx context.Context, address string) (decimal.Decimal, error)
	IsValidAddress(address string) bool
}

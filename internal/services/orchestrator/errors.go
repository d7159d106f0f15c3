package orchestrator

import "errors"

// Service errors surfaced to the API layer.
var (
	ErrLimitViolation      = errors.New("amount outside configured limits")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrInvalidAddress      = errors.New("invalid recipient address")
	ErrSelfTransfer        = errors.New("cannot transfer to own wallet")
	ErrWalletBusy          = errors.New("another operation is in progress for this wallet")
	ErrPaymentMismatch     = errors.New("payment amount mismatch")
	ErrPaymentNotCaptured  = errors.New("payment not captured")
	ErrNotResolvable       = errors.New("transaction is not awaiting reconciliation")
	ErrChainPending        = errors.New("chain transaction outcome unknown")
)

// Error codes recorded on failed transactions and returned to clients.
const (
	CodeLimitViolation      = "LIMIT_VIOLATION"
	CodeInsufficientBalance = "INSUFFICIENT_BALANCE"
	CodeInvalidAddress      = "INVALID_ADDRESS"
	CodeSelfTransfer        = "SELF_TRANSFER"
	CodePaymentOrderFailed  = "PAYMENT_ORDER_FAILED"
	CodePaymentMismatch     = "PAYMENT_MISMATCH"
	CodePaymentNotCaptured  = "PAYMENT_NOT_CAPTURED"
	CodePaymentFailed       = "PAYMENT_FAILED"
	CodeMintFailed          = "MINT_FAILED"
	CodeBurnFailed          = "BURN_FAILED"
	CodeTransferFailed      = "TRANSFER_FAILED"
	CodePayoutFailed        = "PAYOUT_FAILED"
	CodeInvalidSignature    = "INVALID_SIGNATURE"
)

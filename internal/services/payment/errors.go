package payment

import "errors"

var (
	ErrInvalidSignature = errors.New("invalid signature")
	ErrGatewayFailure   = errors.New("payment gateway call failed")
	ErrPaymentNotFound  = errors.New("payment not found")
)

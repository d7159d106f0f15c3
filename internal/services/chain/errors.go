package chain

import "errors"

var (
	ErrInvalidAddress = errors.New("invalid wallet address")
	ErrBridgeFailure  = errors.New("token bridge call failed")
)

package config

import "github.com/shopspring/decimal"

// Limits holds the per-type transaction amount bounds and the peer transfer
// fee. Amounts are in whole INR / arbINR units.
type Limits struct {
	MinDeposit  decimal.Decimal
	MaxDeposit  decimal.Decimal
	MinWithdraw decimal.Decimal
	MaxWithdraw decimal.Decimal
	MinTransfer decimal.Decimal
	MaxTransfer decimal.Decimal
	TransferFee decimal.Decimal
}

// LoadLimits reads transaction limits from the environment.
func LoadLimits() Limits {
	return Limits{
		MinDeposit:  GetDecimalEnv("MIN_DEPOSIT_AMOUNT", "100"),
		MaxDeposit:  GetDecimalEnv("MAX_DEPOSIT_AMOUNT", "100000"),
		MinWithdraw: GetDecimalEnv("MIN_WITHDRAWAL_AMOUNT", "100"),
		MaxWithdraw: GetDecimalEnv("MAX_WITHDRAWAL_AMOUNT", "50000"),
		MinTransfer: GetDecimalEnv("MIN_TRANSFER_AMOUNT", "0.1"),
		MaxTransfer: GetDecimalEnv("MAX_TRANSFER_AMOUNT", "50000"),
		TransferFee: GetDecimalEnv("TRANSFER_FEE", "0.1"),
	}
}

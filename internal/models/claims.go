package models

import "github.com/golang-jwt/jwt/v5"

// UserClaims are carried in the wallet session token. The middleware places
// them on the request context; handlers treat the caller as the authenticated
// owner of WalletAddress.
type UserClaims struct {
	jwt.RegisteredClaims
	UserID        uint   `json:"user_id"`
	WalletAddress string `json:"wallet_address"`
}

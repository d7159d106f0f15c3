package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Statistics aggregates a user's completed transaction volumes. These are
// reporting counters; token balance itself is chain-authoritative and never
// read from here.
type Statistics struct {
	TotalDeposited   decimal.Decimal `gorm:"type:numeric(20,2);default:0" json:"totalDeposited"`
	TotalWithdrawn   decimal.Decimal `gorm:"type:numeric(20,2);default:0" json:"totalWithdrawn"`
	TotalTransferred decimal.Decimal `gorm:"type:numeric(20,2);default:0" json:"totalTransferred"`
	TotalReceived    decimal.Decimal `gorm:"type:numeric(20,2);default:0" json:"totalReceived"`
	TransactionCount int64           `gorm:"default:0" json:"transactionCount"`
}

type User struct {
	gorm.Model
	WalletAddress  string     `gorm:"uniqueIndex;not null"`
	Name           string
	Email          string     `gorm:"index"`
	Status         string     `gorm:"default:'active'"`
	Statistics     Statistics `gorm:"embedded;embeddedPrefix:statistics_"`
	LastActivityAt *time.Time
}

// BeforeCreate normalizes the wallet address for the unique index lookup.
func (u *User) BeforeCreate(tx *gorm.DB) error {
	u.WalletAddress = strings.ToLower(u.WalletAddress)
	return nil
}

package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Wallet is the native lamport balance of an identity, used to pay rent
// when records are allocated.
type Wallet struct {
	bun.BaseModel `bun:"table:wallets"`

	Address   string    `bun:"address,pk" json:"address"`
	Lamports  uint64    `bun:"lamports,notnull" json:"lamports"`
	UpdatedAt time.Time `bun:"updated_at,nullzero" json:"updated_at"`
}

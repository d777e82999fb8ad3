package models

import (
	"time"

	"github.com/uptrace/bun"
)

// TokenAccountSpace is the serialized size of a token custody account.
const TokenAccountSpace = 165

// TokenAccount holds a balance of one mint on behalf of Owner. Only Owner may
// move funds out of it.
type TokenAccount struct {
	bun.BaseModel `bun:"table:token_accounts"`

	Address   string    `bun:"address,pk" json:"address"`
	Mint      string    `bun:"mint,notnull" json:"mint"`
	Owner     string    `bun:"owner,notnull" json:"owner"`
	Amount    uint64    `bun:"amount,notnull" json:"amount"`
	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp" json:"created_at"`
	UpdatedAt time.Time `bun:"updated_at,nullzero" json:"updated_at"`
}

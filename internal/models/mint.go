package models

import (
	"time"

	"github.com/uptrace/bun"
)

// MintAccountSpace is the serialized size of a token mint.
const MintAccountSpace = 82

// Mint is a fungible token type. Only MintAuthority may create new supply.
type Mint struct {
	bun.BaseModel `bun:"table:mints"`

	Address       string    `bun:"address,pk" json:"address"`
	Decimals      uint8     `bun:"decimals,notnull" json:"decimals"`
	MintAuthority string    `bun:"mint_authority,notnull" json:"mint_authority"`
	Supply        uint64    `bun:"supply,notnull" json:"supply"`
	CreatedAt     time.Time `bun:"created_at,notnull,default:current_timestamp" json:"created_at"`
}

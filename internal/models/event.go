package models

import (
	"time"

	"github.com/uptrace/bun"
)

// EventNameMaxLen is the byte limit on Event.Name.
const EventNameMaxLen = 40

// Event is the single record an authority owns. Its mint and vaults are
// derived from Address and stored here so reads do not need to re-derive them.
type Event struct {
	bun.BaseModel `bun:"table:events"`

	Address      string `bun:"address,pk" json:"address"`
	Name         string `bun:"name,notnull" json:"name"`
	TicketPrice  uint64 `bun:"ticket_price,notnull" json:"ticket_price"`
	IsActive     bool   `bun:"is_active,notnull" json:"is_active"`
	Sponsors     uint64 `bun:"sponsors,notnull" json:"sponsors"`
	Authority    string `bun:"authority,notnull,unique" json:"authority"`
	AcceptedMint string `bun:"accepted_mint,notnull" json:"accepted_mint"`

	EventMint     string `bun:"event_mint,notnull" json:"event_mint"`
	TreasuryVault string `bun:"treasury_vault,notnull" json:"treasury_vault"`
	ProfitsVault  string `bun:"profits_vault,notnull" json:"profits_vault"`

	EventBump         uint8 `bun:"event_bump,notnull" json:"event_bump"`
	EventMintBump     uint8 `bun:"event_mint_bump,notnull" json:"event_mint_bump"`
	TreasuryVaultBump uint8 `bun:"treasury_vault_bump,notnull" json:"treasury_vault_bump"`
	ProfitsVaultBump  uint8 `bun:"profits_vault_bump,notnull" json:"profits_vault_bump"`

	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp" json:"created_at"`
	UpdatedAt time.Time `bun:"updated_at,nullzero" json:"updated_at"`
}

// EventAccountSpace is the serialized size of an event record: discriminator,
// length-prefixed name, price, active flag, sponsors, two keys and four bumps.
const EventAccountSpace = 8 + (4 + EventNameMaxLen) + 8 + 1 + 8 + 32 + 32 + 4

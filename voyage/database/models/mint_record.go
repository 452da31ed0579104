package models

import (
	"time"

	"github.com/uptrace/bun"
)

const (
	MintStatusPending   = "PENDING"
	MintStatusConfirmed = "CONFIRMED"
)

// ShipMintRecord is the server's source of truth for "this wallet has
// minted"; one row per wallet, filled in as the workflow progresses.
type ShipMintRecord struct {
	bun.BaseModel `bun:"table:ship_mint_records,alias:smr"`

	ID     int64  `bun:"id,pk,autoincrement"`
	Wallet string `bun:"wallet,notnull,unique"`
	Status string `bun:"status,notnull,default:'PENDING'"`

	Signature    string `bun:"signature"`
	AssetAddress string `bun:"asset_address"`
	MetadataURI  string `bun:"metadata_uri"`

	MintedAt  time.Time `bun:"minted_at"`
	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp"`
}

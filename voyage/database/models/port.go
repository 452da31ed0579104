package models

import "github.com/uptrace/bun"

type Port struct {
	bun.BaseModel `bun:"table:ports,alias:pt"`

	ID          int64  `bun:"id,pk,autoincrement"`
	Name        string `bun:"name,notnull"`
	Q           int    `bun:"q,notnull"`
	R           int    `bun:"r,notnull"`
	UnlockLevel int    `bun:"unlock_level,notnull,default:1"`
}

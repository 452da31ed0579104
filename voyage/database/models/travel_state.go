package models

import (
	"time"

	"github.com/uptrace/bun"
)

const (
	TravelStatusActive    = "ACTIVE"
	TravelStatusArrived   = "ARRIVED"
	TravelStatusCancelled = "CANCELLED"
)

type TravelState struct {
	bun.BaseModel `bun:"table:travel_states,alias:ts"`

	ID       int64 `bun:"id,pk,autoincrement"`
	PlayerID int64 `bun:"player_id,notnull"`
	FromPort int64 `bun:"from_port,notnull"`
	ToPort   int64 `bun:"to_port,notnull"`

	DepartAt time.Time `bun:"depart_at,notnull"`
	ArriveAt time.Time `bun:"arrive_at,notnull"`
	Cost     int64     `bun:"cost,notnull"`

	// Encounter is rolled once at departure and applied at claim time.
	EventText  string `bun:"event_text"`
	EventDelta int64  `bun:"event_delta,notnull,default:0"`

	Status    string    `bun:"status,notnull,default:'ACTIVE'"`
	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp"`
}

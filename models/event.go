package models

import "time"

// PriceEvent records a listing price change observed between two
// sync runs.
type PriceEvent struct {
	ID         int64     `json:"id" db:"id"`
	Account    string    `json:"account" db:"account"`
	ItemID     string    `json:"item_id" db:"item_id"`
	Amount     string    `json:"amount" db:"amount"`
	Currency   string    `json:"currency" db:"currency"`
	PrevAmount string    `json:"prev_amount" db:"prev_amount"`
	EventDate  time.Time `json:"event_date" db:"event_date"`
	RunID      int64     `json:"run_id" db:"run_id"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}

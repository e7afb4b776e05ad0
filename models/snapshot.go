package models

import (
	"encoding/json"
	"time"
)

// ItemSnapshot is a point-in-time record of a closet listing as seen
// during a sync run. The full raw payload is kept alongside the fields
// we index on.
type ItemSnapshot struct {
	ID        int64           `json:"id" db:"id"`
	ItemID    string          `json:"item_id" db:"item_id"`
	Account   string          `json:"account" db:"account"`
	Title     string          `json:"title" db:"title"`
	PriceCode string          `json:"price_code" db:"price_code"`
	Price     string          `json:"price" db:"price"`
	Data      json.RawMessage `json:"data" db:"data"`
	SyncedAt  time.Time       `json:"synced_at" db:"synced_at"`
	RunID     int64           `json:"run_id" db:"run_id"`
}

// OrderSnapshot mirrors ItemSnapshot for sales. Detailed is false for
// rows built from the summary page only; the order-detail worker flips
// it once the full order has been fetched.
type OrderSnapshot struct {
	ID       int64           `json:"id" db:"id"`
	OrderID  string          `json:"order_id" db:"order_id"`
	Account  string          `json:"account" db:"account"`
	Title    string          `json:"title" db:"title"`
	Status   string          `json:"status" db:"status"`
	Total    string          `json:"total" db:"total"`
	Detailed bool            `json:"detailed" db:"detailed"`
	Data     json.RawMessage `json:"data" db:"data"`
	SyncedAt time.Time       `json:"synced_at" db:"synced_at"`
	RunID    int64           `json:"run_id" db:"run_id"`
}

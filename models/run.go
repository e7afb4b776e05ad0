package models

import "time"

type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

type SyncRun struct {
	ID           int64      `json:"id" db:"id"`
	Account      string     `json:"account" db:"account"`
	StartedAt    time.Time  `json:"started_at" db:"started_at"`
	FinishedAt   *time.Time `json:"finished_at" db:"finished_at"`
	Status       RunStatus  `json:"status" db:"status"`
	ItemsFound   int        `json:"items_found" db:"items_found"`
	ItemsNew     int        `json:"items_new" db:"items_new"`
	OrdersFound  int        `json:"orders_found" db:"orders_found"`
	PriceChanges int        `json:"price_changes" db:"price_changes"`
	ErrorsCount  int        `json:"errors_count" db:"errors_count"`
}

type AccountStats struct {
	Account           string     `json:"account" db:"account"`
	LastRunAt         *time.Time `json:"last_run_at" db:"last_run_at"`
	LastRunStatus     string     `json:"last_run_status" db:"last_run_status"`
	TotalItems        int        `json:"total_items" db:"total_items"`
	TotalOrders       int        `json:"total_orders" db:"total_orders"`
	SuccessRate       float64    `json:"success_rate" db:"success_rate"`
	AvgRunDurationSec int        `json:"avg_run_duration_sec" db:"avg_run_duration_sec"`
}

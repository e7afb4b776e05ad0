package models

import (
	"encoding/json"
	"time"
)

type CommandType string

const (
	CmdSyncNow         CommandType = "sync_now"
	CmdRunExport       CommandType = "run_export"
	CmdRunOrderDetails CommandType = "run_order_details"
	CmdPause           CommandType = "pause"
	CmdResume          CommandType = "resume"
	CmdResetData       CommandType = "reset_data"
)

type Command struct {
	ID          int64           `json:"id" db:"id"`
	Command     CommandType     `json:"command" db:"command"`
	Params      json.RawMessage `json:"params" db:"params"`
	CreatedAt   time.Time       `json:"created_at" db:"created_at"`
	ProcessedAt *time.Time      `json:"processed_at" db:"processed_at"`
}

type CommandParams struct {
	Account string `json:"account,omitempty"`
	Limit   int    `json:"limit,omitempty"`
}

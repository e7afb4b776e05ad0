package models

import "time"

// Item condition values as reported by the marketplace.
const (
	ConditionNewWithTags    = "nwt"
	ConditionNotNewWithTags = "not_nwt"
)

// Item is a single closet listing. Items are built by the listing
// parser from a raw JSON payload and are read-only afterwards; RawData
// keeps the unmodified payload around for later update requests.
type Item struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Brand       string    `json:"brand"`
	Size        string    `json:"size"`
	Condition   string    `json:"condition"`
	Category    string    `json:"category"`
	Department  string    `json:"department"`
	Price       Price     `json:"-"`
	OrigPrice   Price     `json:"-"`
	CreatedAt   time.Time `json:"created_at"`
	ImageURL    string    `json:"image_url"`
	ExternalURL string    `json:"external_url"`

	RawData map[string]interface{} `json:"-"`
}

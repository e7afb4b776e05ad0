package models

import "time"

// Order status strings as shown on the sales pages.
const (
	OrderStatusSold        = "Sold"
	OrderStatusPendingScan = "Pending Shipment Scan"
	OrderStatusShipped     = "Shipped"
	OrderStatusDelivered   = "Delivered"
)

// Order is a completed sale. Summary orders (from the sales listing
// page) carry only id, title, total, buyer, status, size, image and
// count; detail orders add prices, date and the item list.
type Order struct {
	ID               string    `json:"id"`
	Title            string    `json:"title"`
	OrderTotal       Price     `json:"-"`
	Earnings         Price     `json:"-"`
	Fee              Price     `json:"-"`
	Tax              Price     `json:"-"`
	OrderDate        time.Time `json:"order_date"`
	Size             string    `json:"size"`
	URL              string    `json:"url"`
	ImageURL         string    `json:"image_url"`
	BuyerUsername    string    `json:"buyer_username"`
	BuyerAddress     string    `json:"buyer_address"`
	Status           string    `json:"status"`
	Items            []Item    `json:"items,omitempty"`
	ItemCount        int       `json:"item_count"`
	ShippingLabelURL string    `json:"shipping_label_url"`
}

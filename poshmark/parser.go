package poshmark

import (
	"time"

	"goposh/models"
)

var createdAtLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05Z0700",
	"2006-01-02 15:04:05",
}

// ParseItem normalizes a raw listing payload into an Item. The
// payload may be the listing object itself or an envelope with the
// object under "data"; both forms produce the same Item. The
// unwrapped payload stays attached for later update calls.
func ParseItem(raw map[string]interface{}, baseURL string) (*models.Item, error) {
	if _, ok := raw["title"]; !ok {
		if inner, ok := raw["data"].(map[string]interface{}); ok {
			raw = inner
		}
	}

	desc, ok := raw["description"].(string)
	if !ok {
		return nil, DataError{StatusCode: StatusUnknown, Message: "listing payload has no description"}
	}

	item := &models.Item{
		ID:          stringField(raw, "id"),
		Title:       stringField(raw, "title"),
		Description: desc,
		Brand:       stringField(raw, "brand"),
		Size:        stringField(raw, "size"),
		Condition:   stringField(raw, "condition"),
		Category:    stringField(raw, "category"),
		Department:  stringField(raw, "department"),
		Price:       priceField(raw, "price_amount"),
		OrigPrice:   priceField(raw, "original_price_amount"),
		ImageURL:    stringField(raw, "picture_url"),
		RawData:     raw,
	}
	if item.Title == "" {
		item.Title = "Unknown"
	}
	if item.ImageURL == "" {
		if pics, ok := raw["pictures"].([]interface{}); ok && len(pics) > 0 {
			if pic, ok := pics[0].(map[string]interface{}); ok {
				item.ImageURL = stringField(pic, "url")
			}
		}
	}
	if item.ID != "" {
		item.ExternalURL = baseURL + "/listing/item-" + item.ID
	}

	item.CreatedAt = parseCreatedAt(stringField(raw, "created_at"))
	return item, nil
}

func parseCreatedAt(s string) time.Time {
	for _, layout := range createdAtLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Now()
}

func stringField(raw map[string]interface{}, key string) string {
	v, _ := raw[key].(string)
	return v
}

// priceField reads a nested {"val": ..., "currency_code": ...} money
// object. Missing pieces fall back to 0.00 USD.
func priceField(raw map[string]interface{}, key string) models.Price {
	amount, code := "0.00", "USD"
	if m, ok := raw[key].(map[string]interface{}); ok {
		if v, ok := m["val"].(string); ok && v != "" {
			amount = v
		}
		if c, ok := m["currency_code"].(string); ok && c != "" {
			code = c
		}
	}
	return models.NewPrice(amount, code)
}

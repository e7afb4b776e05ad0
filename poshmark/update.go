package poshmark

import "goposh/models"

// ItemUpdate names the listing fields a caller may change. Zero-value
// fields keep whatever the listing currently has.
type ItemUpdate struct {
	Title       string
	Description string
	Brand       string
	Price       *models.Price
}

// buildUpdatePayload merges an update into the listing's raw payload,
// producing the "post" object the write endpoint expects. The server
// rejects payloads that echo back fields it never accepts, so only
// the known-good set is carried over.
func buildUpdatePayload(item *models.Item, upd ItemUpdate) map[string]interface{} {
	raw := item.RawData

	post := map[string]interface{}{
		"catalog":               raw["catalog"],
		"colors":                flattenColors(raw["colors"]),
		"inventory":             raw["inventory"],
		"original_price_amount": raw["original_price_amount"],
		"condition":             raw["condition"],
		"title":                 override(upd.Title, raw["title"]),
		"description":           override(upd.Description, raw["description"]),
		"brand":                 override(upd.Brand, raw["brand"]),
	}

	if upd.Price != nil {
		post["price_amount"] = map[string]interface{}{
			"val":             upd.Price.Amount(),
			"currency_code":   upd.Price.CurrencyCode(),
			"currency_symbol": upd.Price.Symbol(),
		}
	} else {
		post["price_amount"] = raw["price_amount"]
	}

	if cover, ok := raw["cover_shot"].(map[string]interface{}); ok {
		post["cover_shot"] = map[string]interface{}{"id": cover["id"]}
	}

	if pics, ok := raw["pictures"]; ok && pics != nil {
		post["pictures"] = pics
	} else {
		post["pictures"] = []interface{}{}
	}

	if priv, ok := raw["seller_private_info"]; ok && priv != nil {
		post["seller_private_info"] = priv
	} else {
		post["seller_private_info"] = map[string]interface{}{}
	}

	return post
}

// flattenColors reduces color objects to their bare names.
func flattenColors(v interface{}) []interface{} {
	colors, ok := v.([]interface{})
	if !ok {
		return []interface{}{}
	}
	names := make([]interface{}, 0, len(colors))
	for _, c := range colors {
		if m, ok := c.(map[string]interface{}); ok {
			names = append(names, m["name"])
		}
	}
	return names
}

func override(v string, fallback interface{}) interface{} {
	if v != "" {
		return v
	}
	return fallback
}

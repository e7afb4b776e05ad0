package poshmark

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

const testBaseURL = "https://poshmark.example"

func loadFixture(t *testing.T, name string) []byte {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("testdata", name))
	if err != nil {
		t.Fatalf("loading fixture %s: %v", name, err)
	}
	return data
}

func fixtureItemPayload(t *testing.T) map[string]interface{} {
	t.Helper()
	var raw map[string]interface{}
	if err := json.Unmarshal(loadFixture(t, "item.json"), &raw); err != nil {
		t.Fatalf("decoding item fixture: %v", err)
	}
	return raw
}

func TestParseItem(t *testing.T) {
	item, err := ParseItem(fixtureItemPayload(t), testBaseURL)
	if err != nil {
		t.Fatalf("ParseItem failed: %v", err)
	}

	if item.ID != "abc123" {
		t.Fatalf("id = %q, want abc123", item.ID)
	}
	if item.Title != "Vintage Denim Jacket" {
		t.Fatalf("title = %q", item.Title)
	}
	if item.Brand != "Levi's" || item.Size != "M" || item.Condition != "not_nwt" {
		t.Fatalf("brand/size/condition = %q/%q/%q", item.Brand, item.Size, item.Condition)
	}
	if got := item.Price.String(); got != "$39.00" {
		t.Fatalf("price = %q, want $39.00", got)
	}
	if got := item.OrigPrice.String(); got != "$99.00" {
		t.Fatalf("original price = %q, want $99.00", got)
	}
	if item.ExternalURL != testBaseURL+"/listing/item-abc123" {
		t.Fatalf("external url = %q", item.ExternalURL)
	}
	want := time.Date(2020, 4, 21, 17, 32, 28, 0, time.FixedZone("", -7*3600))
	if !item.CreatedAt.Equal(want) {
		t.Fatalf("created at = %v, want %v", item.CreatedAt, want)
	}
	if item.RawData == nil {
		t.Fatalf("raw payload not retained")
	}
}

func TestParseItemEnvelope(t *testing.T) {
	flat, err := ParseItem(fixtureItemPayload(t), testBaseURL)
	if err != nil {
		t.Fatalf("ParseItem(flat) failed: %v", err)
	}

	enveloped, err := ParseItem(map[string]interface{}{"data": fixtureItemPayload(t)}, testBaseURL)
	if err != nil {
		t.Fatalf("ParseItem(envelope) failed: %v", err)
	}

	if enveloped.ID != flat.ID || enveloped.Title != flat.Title ||
		enveloped.Price.String() != flat.Price.String() ||
		enveloped.ExternalURL != flat.ExternalURL {
		t.Fatalf("enveloped item differs from flat item: %+v vs %+v", enveloped, flat)
	}
}

func TestParseItemMissingDescription(t *testing.T) {
	raw := fixtureItemPayload(t)
	delete(raw, "description")

	_, err := ParseItem(raw, testBaseURL)
	var derr DataError
	if !errors.As(err, &derr) {
		t.Fatalf("got %v, want DataError", err)
	}
}

func TestParseItemDefaults(t *testing.T) {
	raw := map[string]interface{}{
		"description": "just a description",
		"created_at":  "not a date",
	}
	item, err := ParseItem(raw, testBaseURL)
	if err != nil {
		t.Fatalf("ParseItem failed: %v", err)
	}
	if item.Title != "Unknown" {
		t.Fatalf("title = %q, want Unknown", item.Title)
	}
	if item.ID != "" || item.Size != "" {
		t.Fatalf("id/size = %q/%q, want empty", item.ID, item.Size)
	}
	if item.ExternalURL != "" {
		t.Fatalf("external url = %q, want empty without an id", item.ExternalURL)
	}
	if got := item.Price.String(); got != "$0.00" {
		t.Fatalf("price = %q, want $0.00", got)
	}
	if time.Since(item.CreatedAt) > time.Minute {
		t.Fatalf("unparseable created_at should fall back to now, got %v", item.CreatedAt)
	}
}

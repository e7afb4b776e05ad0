package models

import "testing"

func TestParsePrice(t *testing.T) {
	cases := []struct {
		in     string
		amount string
		code   string
		str    string
	}{
		{"$45.12", "45.12", "USD", "$45.12"},
		{"$45", "45.00", "USD", "$45.00"},
		{"£12.50", "12.50", "GBP", "£12.50"},
		{"€9.99", "9.99", "EUR", "€9.99"},
		{"45.12", "45.12", "USD", "$45.12"},
		{" 14.00 EUR ", "14.00", "EUR", "€14.00"},
		{"14.00EUR", "14.00", "EUR", "€14.00"},
		{"22 gbp", "22.00", "GBP", "£22.00"},
		{"", "0.00", "USD", "$0.00"},
		{"   ", "0.00", "USD", "$0.00"},
		{"€ nothing ABC ", "0.00", "USD", "$0.00"},
		{"free", "0.00", "USD", "$0.00"},
	}

	for _, c := range cases {
		p := ParsePrice(c.in)
		if p.Amount() != c.amount {
			t.Fatalf("ParsePrice(%q).Amount() = %q, want %q", c.in, p.Amount(), c.amount)
		}
		if p.CurrencyCode() != c.code {
			t.Fatalf("ParsePrice(%q).CurrencyCode() = %q, want %q", c.in, p.CurrencyCode(), c.code)
		}
		if p.String() != c.str {
			t.Fatalf("ParsePrice(%q).String() = %q, want %q", c.in, p.String(), c.str)
		}
	}
}

func TestNewPrice(t *testing.T) {
	p := NewPrice("39.0", "")
	if p.Amount() != "39.00" {
		t.Fatalf("Amount() = %q, want 39.00", p.Amount())
	}
	if p.CurrencyCode() != "USD" {
		t.Fatalf("CurrencyCode() = %q, want USD", p.CurrencyCode())
	}

	zero := Price{}
	if zero.String() != "$0.00" {
		t.Fatalf("zero value = %q, want $0.00", zero.String())
	}
}

func TestPriceUnknownCode(t *testing.T) {
	p := NewPrice("5", "JPY")
	if p.Symbol() != "$" {
		t.Fatalf("Symbol() = %q, want $ fallback", p.Symbol())
	}
	if p.CurrencyCode() != "JPY" {
		t.Fatalf("CurrencyCode() = %q, want JPY", p.CurrencyCode())
	}
}

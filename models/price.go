package models

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Currency symbol to 3-letter code table. Anything outside this table
// falls back to USD / "$".
var symbolToCode = map[string]string{
	"$": "USD",
	"£": "GBP",
	"€": "EUR",
}

var codeToSymbol = map[string]string{
	"USD": "$",
	"GBP": "£",
	"EUR": "€",
}

var (
	// "$45.12", "£45", "45.12" -- symbol (optional) then amount, nothing after
	symbolAmountRegex = regexp.MustCompile(`^([$£€])? *([0-9]+\.[0-9]+|[0-9]+)$`)
	// "45.12 USD", "45EUR" -- amount then 3-letter code
	amountCodeRegex = regexp.MustCompile(`^([0-9]+\.[0-9]+|[0-9]+) ?([A-Za-z]{3})$`)
)

// Price is a currency amount normalized to a decimal string plus a
// 3-letter currency code. The zero value reads as "0.00" USD.
type Price struct {
	amount string
	code   string
}

func NewPrice(amount, code string) Price {
	return Price{amount: amount, code: code}
}

// ParsePrice extracts a Price from free-form text such as "$45.12" or
// "14.00 EUR". Parsing is best effort: anything unrecognizable comes
// back as the 0.00 USD default, never an error.
func ParsePrice(text string) Price {
	text = strings.TrimSpace(text)
	if text == "" {
		text = "$0.00"
	}

	if m := symbolAmountRegex.FindStringSubmatch(text); m != nil {
		code, ok := symbolToCode[m[1]]
		if !ok {
			code = "USD"
		}
		return Price{amount: m[2], code: code}
	}

	if m := amountCodeRegex.FindStringSubmatch(text); m != nil {
		return Price{amount: m[1], code: strings.ToUpper(m[2])}
	}

	return Price{}
}

// Amount returns the decimal amount formatted to exactly two fraction
// digits, no thousands separator.
func (p Price) Amount() string {
	f, err := strconv.ParseFloat(p.amount, 64)
	if err != nil {
		f = 0
	}
	return fmt.Sprintf("%.2f", f)
}

func (p Price) CurrencyCode() string {
	if p.code == "" {
		return "USD"
	}
	return p.code
}

func (p Price) Symbol() string {
	if sym, ok := codeToSymbol[p.CurrencyCode()]; ok {
		return sym
	}
	return "$"
}

func (p Price) String() string {
	return p.Symbol() + p.Amount()
}

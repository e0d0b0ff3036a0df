// Package core holds the domain types shared by every layer and the currency
// formatting rules used for display.
package core

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// DefaultCurrencyCode is used for unknown or missing settings.
const DefaultCurrencyCode = "PHP"

var symbols = map[string]string{
	"USD": "$",
	"EUR": "€",
	"GBP": "£",
	"JPY": "¥",
	"PHP": "₱",
}

// grouping uses English conventions: comma every three digits.
var grouping = message.NewPrinter(language.English)

// SymbolFor returns the display symbol for a currency code. Unknown codes map
// to the peso sign.
func SymbolFor(code string) string {
	if s, ok := symbols[code]; ok {
		return s
	}
	return symbols[DefaultCurrencyCode]
}

// SupportedCurrencies lists the codes with a dedicated symbol.
func SupportedCurrencies() []string {
	return []string{"PHP", "USD", "EUR", "GBP", "JPY"}
}

// Format renders a whole-unit amount, e.g. Format(-1234567, "$") is
// "-$ 1,234,567.00". Amounts carry no fractional units so the decimals are
// always ".00".
func Format(amount int64, symbol string) string {
	sign := ""
	var magnitude uint64
	if amount < 0 {
		sign = "-"
		magnitude = uint64(-(amount + 1)) + 1
	} else {
		magnitude = uint64(amount)
	}
	return sign + symbol + " " + grouping.Sprintf("%d", magnitude) + ".00"
}

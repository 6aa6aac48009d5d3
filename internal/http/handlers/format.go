package handlers

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	"fundledger/internal/domain"
)

// formatAmount renders an amount with the locale's digit grouping. Values
// beyond 64 bits fall back to plain decimal.
func formatAmount(locale string, amount domain.Amount) string {
	v, ok := amount.Uint64()
	if !ok {
		return amount.String()
	}
	tag, err := language.Parse(locale)
	if err != nil {
		tag = language.English
	}
	return message.NewPrinter(tag).Sprint(number.Decimal(v))
}

// formatCount renders a count with the locale's digit grouping.
func formatCount(locale string, n int) string {
	tag, err := language.Parse(locale)
	if err != nil {
		tag = language.English
	}
	return message.NewPrinter(tag).Sprint(number.Decimal(n))
}

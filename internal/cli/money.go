package cli

import (
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var moneyPrinter = message.NewPrinter(language.AmericanEnglish)

// FormatMoney renders an amount as dollars with thousands separators,
// for example -$1,234.50.
func FormatMoney(amount decimal.Decimal) string {
	rounded := amount.Round(2)
	abs := rounded.Abs()
	whole := abs.Truncate(0)
	cents := abs.Sub(whole).StringFixed(2) // "0.NN"

	s := moneyPrinter.Sprintf("$%d", whole.IntPart()) + cents[1:]
	if rounded.IsNegative() {
		return "-" + s
	}
	return s
}

// FormatSignedMoney is FormatMoney with an explicit plus sign on inflows.
func FormatSignedMoney(amount decimal.Decimal) string {
	if amount.IsPositive() {
		return "+" + FormatMoney(amount)
	}
	return FormatMoney(amount)
}

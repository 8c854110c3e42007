// Package format renders currency symbols and amounts for display.
//
// Nothing here converts between currencies; callers pass figures that are
// already in the currency they name.
package format

import (
	"math"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// DefaultLocale is used when no locale is given or it cannot be parsed
var DefaultLocale = language.English

// Symbol returns the narrow symbol for a currency code, e.g. "R" for ZAR.
// Codes the formatter does not know are returned unchanged.
func Symbol(code string) (symbol string) {
	defer func() {
		if recover() != nil {
			symbol = code
		}
	}()

	unit, err := currency.ParseISO(strings.TrimSpace(code))
	if err != nil {
		return code
	}

	symbol = message.NewPrinter(DefaultLocale).Sprint(currency.NarrowSymbol(unit))
	if symbol == "" {
		return code
	}
	return symbol
}

// Amount formats amount as a localized price in the given currency.
// The number uses the currency's standard minor digits and the locale's grouping.
func Amount(amount float64, code, locale string) (out string) {
	tag := ParseLocale(locale)
	printer := message.NewPrinter(tag)

	unit, err := currency.ParseISO(strings.TrimSpace(code))
	if err != nil {
		return code + " " + printer.Sprint(number.Decimal(amount, number.Scale(2)))
	}

	defer func() {
		if recover() != nil {
			out = unit.String() + " " + printer.Sprint(number.Decimal(amount, number.Scale(2)))
		}
	}()

	scale, _ := currency.Standard.Rounding(unit)
	sign := ""
	if amount < 0 {
		sign = "-"
		amount = math.Abs(amount)
	}

	symbol := printer.Sprint(currency.Symbol(unit))
	figure := printer.Sprint(number.Decimal(amount, number.Scale(scale)))

	if symbolAfterNumber(tag) {
		return sign + figure + nbsp + symbol
	}
	if endsWithLetter(symbol) {
		return sign + symbol + nbsp + figure
	}
	return sign + symbol + figure
}

const nbsp = "\u00a0"

// suffixLanguages write the currency symbol after the number, as in "1.249,50 €"
var suffixLanguages = map[string]bool{
	"bg": true, "cs": true, "da": true, "de": true, "el": true, "es": true,
	"et": true, "fi": true, "fr": true, "hu": true, "it": true, "lt": true,
	"lv": true, "nb": true, "pl": true, "ro": true, "ru": true, "sk": true,
	"sl": true, "sv": true,
}

func symbolAfterNumber(tag language.Tag) bool {
	base, _ := tag.Base()
	if suffixLanguages[base.String()] {
		return true
	}

	// Portuguese follows the suffix style in Portugal only
	region, _ := tag.Region()
	return base.String() == "pt" && region.String() == "PT"
}

func endsWithLetter(s string) bool {
	r, _ := utf8.DecodeLastRuneInString(s)
	return r != utf8.RuneError && unicode.IsLetter(r)
}

// MinorDigits returns how many fraction digits prices in code are shown with
func MinorDigits(code string) int {
	unit, err := currency.ParseISO(strings.TrimSpace(code))
	if err != nil {
		return 2
	}
	scale, _ := currency.Standard.Rounding(unit)
	return scale
}

// ParseLocale reads a BCP 47 tag, accepting "en_ZA" style separators
func ParseLocale(locale string) language.Tag {
	locale = strings.ReplaceAll(strings.TrimSpace(locale), "_", "-")
	if locale == "" {
		return DefaultLocale
	}

	tag, err := language.Parse(locale)
	if err != nil {
		return DefaultLocale
	}
	return tag
}

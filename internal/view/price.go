package view

import (
	"math"

	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// PriceOnRequest は価格が設定されていない車両に表示する文言。
const PriceOnRequest = "Price on request"

var currencySymbols = map[string]string{
	"EUR": "€",
	"USD": "$",
	"GBP": "£",
	"JPY": "¥",
}

// FormatPrice は価格を通貨記号付き・桁区切り・小数なしで表示用に整形する。
// 価格がない、または0の場合はPriceOnRequestを返す。
// 通貨が空か不正な場合はEURとして扱う。
func FormatPrice(price *float64, code string) string {
	if price == nil || *price == 0 {
		return PriceOnRequest
	}

	unit, err := currency.ParseISO(code)
	if err != nil {
		unit = currency.EUR
	}
	iso := unit.String()

	amount := message.NewPrinter(language.English).Sprintf("%d", int64(math.Round(*price)))
	if symbol, ok := currencySymbols[iso]; ok {
		return symbol + amount
	}
	return iso + " " + amount
}

package common

import (
	"encoding/json"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// 價格字串中可忽略的貨幣符號
var currencyReplacer = strings.NewReplacer(
	"₱", "",
	"PHP", "",
	"Php", "",
	"php", "",
	"P", "",
	"$", "",
	",", "",
	" ", "",
)

// ParsePrice 將任意價格值轉為四捨五入到分的非負數，無法轉換時回傳 false
func ParsePrice(v interface{}) (float64, bool) {
	var d decimal.Decimal
	var err error

	switch val := v.(type) {
	case nil:
		return 0, false
	case json.Number:
		d, err = decimal.NewFromString(val.String())
	case float64:
		if math.IsNaN(val) || math.IsInf(val, 0) {
			return 0, false
		}
		d = decimal.NewFromFloat(val)
	case int:
		d = decimal.NewFromInt(int64(val))
	case int64:
		d = decimal.NewFromInt(val)
	case string:
		s := currencyReplacer.Replace(strings.TrimSpace(val))
		if s == "" {
			return 0, false
		}
		d, err = decimal.NewFromString(s)
	default:
		return 0, false
	}
	if err != nil || d.IsNegative() {
		return 0, false
	}

	f, _ := d.Round(2).Float64()
	return f, true
}

// SumPrices 以十進位加總價格，避免浮點誤差
func SumPrices(values ...float64) float64 {
	total := decimal.Zero
	for _, v := range values {
		total = total.Add(decimal.NewFromFloat(v))
	}
	f, _ := total.Round(2).Float64()
	return f
}

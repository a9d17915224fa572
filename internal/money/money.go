package money

import (
	"encoding/json"
	"math"
	"math/big"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

var numericPrefix = regexp.MustCompile(`^[+-]?(?:\d+(?:\.\d*)?|\.\d+)(?:[eE][+-]?\d+)?`)

// ParseCurrency reads a currency entry such as "R$ 1.000,00", a plain
// number, or nothing at all. Empty and unparseable values are 0; numbers are
// returned as they are.
func ParseCurrency(value any) float64 {
	switch t := value.(type) {
	case float64:
		if !finite(t) {
			return 0
		}
		return t
	case float32:
		if !finite(float64(t)) {
			return 0
		}
		return float64(t)
	}
	return ParseCurrencyDecimal(value).InexactFloat64()
}

func ParseCurrencyDecimal(value any) decimal.Decimal {
	switch t := value.(type) {
	case nil:
		return decimal.Zero
	case decimal.Decimal:
		return t
	case *decimal.Decimal:
		if t == nil {
			return decimal.Zero
		}
		return *t
	case string:
		return parseCurrencyString(t)
	case *string:
		if t == nil {
			return decimal.Zero
		}
		return parseCurrencyString(*t)
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return parseCurrencyString(t.String())
		}
		return fromFloat(f)
	case float64:
		return fromFloat(t)
	case float32:
		return fromFloat(float64(t))
	case int:
		return decimal.NewFromInt(int64(t))
	case int8:
		return decimal.NewFromInt(int64(t))
	case int16:
		return decimal.NewFromInt(int64(t))
	case int32:
		return decimal.NewFromInt(int64(t))
	case int64:
		return decimal.NewFromInt(t)
	case uint:
		return fromUint(uint64(t))
	case uint8:
		return fromUint(uint64(t))
	case uint16:
		return fromUint(uint64(t))
	case uint32:
		return fromUint(uint64(t))
	case uint64:
		return fromUint(t)
	default:
		return decimal.Zero
	}
}

func parseCurrencyString(value string) decimal.Decimal {
	if value == "" {
		return decimal.Zero
	}
	var b strings.Builder
	for _, r := range value {
		if r == 'R' || r == '$' || r == '.' || unicode.IsSpace(r) {
			continue
		}
		b.WriteRune(r)
	}
	clean := strings.Replace(b.String(), ",", ".", 1)
	prefix := numericPrefix.FindString(clean)
	if prefix == "" {
		return decimal.Zero
	}
	f, err := strconv.ParseFloat(prefix, 64)
	if err != nil {
		return decimal.Zero
	}
	return fromFloat(f)
}

func fromFloat(f float64) decimal.Decimal {
	if !finite(f) {
		return decimal.Zero
	}
	return decimal.NewFromFloat(f)
}

func fromUint(u uint64) decimal.Decimal {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(u), 0)
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

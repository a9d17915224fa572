package money

import (
	"encoding/json"
	"fmt"
	"io"
	"reflect"
	"strings"

	"github.com/shopspring/decimal"
)

// Extras is a fee-extras field as it arrived from storage: either a genuine
// sequence of currency entries or a malformed value that must not be
// iterated.
type Extras struct {
	entries   []any
	malformed bool
	raw       any
}

// ClassifyExtras decides which side of the union a raw field value falls on.
// Slices and arrays are sequences. Strings, maps, scalars and nil are
// malformed.
func ClassifyExtras(value any) Extras {
	switch t := value.(type) {
	case nil:
		return Extras{malformed: true}
	case []any:
		return Extras{entries: t, raw: value}
	case []string:
		out := make([]any, len(t))
		for i, v := range t {
			out[i] = v
		}
		return Extras{entries: out, raw: value}
	case []byte, json.RawMessage:
		return Extras{malformed: true, raw: value}
	}

	rv := reflect.ValueOf(value)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return Extras{malformed: true, raw: value}
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return Extras{entries: out, raw: value}
}

func (e Extras) IsSequence() bool { return !e.malformed }

// Absent reports a missing value (nil). It is malformed but carries no
// evidence of drift.
func (e Extras) Absent() bool { return e.malformed && e.raw == nil }

func (e Extras) Entries() []any {
	if e.malformed {
		return nil
	}
	return e.entries
}

func (e Extras) Len() int { return len(e.Entries()) }

func (e Extras) Raw() any { return e.raw }

func (e Extras) Kind() string {
	if !e.malformed {
		return "sequence"
	}
	switch e.raw.(type) {
	case nil:
		return "null"
	case string:
		return "string"
	case map[string]any:
		return "object"
	case bool:
		return "bool"
	case json.Number, float64, float32, int, int64, int32:
		return "number"
	}
	return fmt.Sprintf("%T", e.raw)
}

func (e Extras) Sum() decimal.Decimal {
	total := decimal.Zero
	for _, entry := range e.Entries() {
		total = total.Add(ParseCurrencyDecimal(entry))
	}
	return total
}

// SumExtras adds up a list of currency entries. Anything that is not a list
// counts as an empty list.
func SumExtras(value any) float64 {
	return SumExtrasDecimal(value).InexactFloat64()
}

func SumExtrasDecimal(value any) decimal.Decimal {
	return ClassifyExtras(value).Sum()
}

type MapOutcome int

const (
	Mapped MapOutcome = iota
	SkippedNotSequence
)

func (o MapOutcome) String() string {
	switch o {
	case Mapped:
		return "mapped"
	case SkippedNotSequence:
		return "skipped: not a list"
	default:
		return fmt.Sprintf("MapOutcome(%d)", int(o))
	}
}

// MapExtras applies fn to each entry of a genuine sequence. For any other
// value fn is never called, the result is nil and the outcome is
// SkippedNotSequence.
func MapExtras[T any](value any, fn func(i int, entry any) T) ([]T, MapOutcome) {
	extras := ClassifyExtras(value)
	if !extras.IsSequence() {
		return nil, SkippedNotSequence
	}
	out := make([]T, 0, extras.Len())
	for i, entry := range extras.Entries() {
		out = append(out, fn(i, entry))
	}
	return out, Mapped
}

// EnsureArray is the lenient reader for companion lists (clauses,
// installment counts) that are sometimes stored as JSON text. Sequences pass
// through, a string holding a JSON array is decoded, anything else is empty.
func EnsureArray(value any) []any {
	if extras := ClassifyExtras(value); extras.IsSequence() {
		return extras.Entries()
	}
	s, ok := value.(string)
	if !ok {
		return nil
	}
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "[") {
		return nil
	}
	dec := json.NewDecoder(strings.NewReader(s))
	dec.UseNumber()
	var out []any
	if err := dec.Decode(&out); err != nil {
		return nil
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil
	}
	return out
}

func EnsureStrings(value any) []string {
	items := EnsureArray(value)
	out := make([]string, len(items))
	for i, item := range items {
		out[i] = Text(item)
	}
	return out
}

func Text(value any) string {
	switch t := value.(type) {
	case nil:
		return ""
	case string:
		return t
	case json.Number:
		return t.String()
	case float64:
		return decimalText(t)
	case fmt.Stringer:
		return t.String()
	default:
		return fmt.Sprint(t)
	}
}

func decimalText(f float64) string {
	if !finite(f) {
		return ""
	}
	return decimal.NewFromFloat(f).String()
}

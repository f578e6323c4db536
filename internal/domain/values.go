package domain

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// The nullable types below decode leniently: a value of the wrong JSON kind
// or an unparseable string becomes null instead of failing the whole batch.
// They are comparable, so records built from them can be used as map keys.

// Text is a nullable string. JSON numbers are kept in their literal form,
// which keeps card numbers and zip codes intact.
type Text struct {
	String string
	Valid  bool
}

func NewText(s string) Text {
	return Text{String: s, Valid: true}
}

// SQLValue returns the string, or nil when the value is null.
func (t Text) SQLValue() any {
	if !t.Valid {
		return nil
	}
	return t.String
}

func (t Text) MarshalJSON() ([]byte, error) {
	if !t.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(t.String)
}

func (t *Text) UnmarshalJSON(data []byte) error {
	*t = Text{}
	v, err := decodeScalar(data)
	if err != nil {
		return err
	}
	switch val := v.(type) {
	case string:
		*t = NewText(val)
	case json.Number:
		*t = NewText(val.String())
	case bool:
		*t = NewText(strconv.FormatBool(val))
	}
	return nil
}

// Float is a nullable float64.
type Float struct {
	Float64 float64
	Valid   bool
}

func NewFloat(f float64) Float {
	return Float{Float64: f, Valid: true}
}

// ParseFloat coerces s to a number; anything unparseable is null.
func ParseFloat(s string) Float {
	s = strings.TrimSpace(s)
	if s == "" {
		return Float{}
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return Float{}
	}
	return NewFloat(f)
}

func (f Float) SQLValue() any {
	if !f.Valid {
		return nil
	}
	return f.Float64
}

func (f Float) MarshalJSON() ([]byte, error) {
	if !f.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(f.Float64)
}

func (f *Float) UnmarshalJSON(data []byte) error {
	*f = Float{}
	v, err := decodeScalar(data)
	if err != nil {
		return err
	}
	switch val := v.(type) {
	case json.Number:
		*f = ParseFloat(val.String())
	case string:
		*f = ParseFloat(val)
	}
	return nil
}

// Int is a nullable int64. Integral floats such as 3.0 are accepted.
type Int struct {
	Int64 int64
	Valid bool
}

func NewInt(i int64) Int {
	return Int{Int64: i, Valid: true}
}

// ParseInt coerces s to an integer; anything unparseable or fractional is null.
func ParseInt(s string) Int {
	s = strings.TrimSpace(s)
	if s == "" {
		return Int{}
	}
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return NewInt(i)
	}
	f := ParseFloat(s)
	if !f.Valid || f.Float64 != math.Trunc(f.Float64) || math.Abs(f.Float64) > math.MaxInt64 {
		return Int{}
	}
	return NewInt(int64(f.Float64))
}

func (i Int) SQLValue() any {
	if !i.Valid {
		return nil
	}
	return i.Int64
}

func (i Int) MarshalJSON() ([]byte, error) {
	if !i.Valid {
		return []byte("null"), nil
	}
	return []byte(strconv.FormatInt(i.Int64, 10)), nil
}

func (i *Int) UnmarshalJSON(data []byte) error {
	*i = Int{}
	v, err := decodeScalar(data)
	if err != nil {
		return err
	}
	switch val := v.(type) {
	case json.Number:
		*i = ParseInt(val.String())
	case string:
		*i = ParseInt(val)
	}
	return nil
}

// Bool is a nullable boolean. It accepts true/false, 0/1 and their string
// spellings, which covers the fraud label as it appears in the dataset.
type Bool struct {
	Bool  bool
	Valid bool
}

func NewBool(b bool) Bool {
	return Bool{Bool: b, Valid: true}
}

// ParseBool coerces common spellings of a flag; anything else is null.
func ParseBool(s string) Bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "t", "yes", "y":
		return NewBool(true)
	case "0", "false", "f", "no", "n":
		return NewBool(false)
	}
	if f := ParseFloat(s); f.Valid {
		return NewBool(f.Float64 != 0)
	}
	return Bool{}
}

func (b Bool) SQLValue() any {
	if !b.Valid {
		return nil
	}
	return b.Bool
}

func (b Bool) MarshalJSON() ([]byte, error) {
	if !b.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(b.Bool)
}

func (b *Bool) UnmarshalJSON(data []byte) error {
	*b = Bool{}
	v, err := decodeScalar(data)
	if err != nil {
		return err
	}
	switch val := v.(type) {
	case bool:
		*b = NewBool(val)
	case json.Number:
		*b = ParseBool(val.String())
	case string:
		*b = ParseBool(val)
	}
	return nil
}

// decodeScalar decodes one JSON value keeping numbers as json.Number.
// Objects and arrays come back as maps and slices, which callers ignore.
func decodeScalar(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	return v, nil
}

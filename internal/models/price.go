package models

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strconv"
)

type priceKind int

const (
	priceAbsent priceKind = iota
	priceNumber
	priceText
)

// Price is a catalog price as it is stored: a JSON number, a string such as
// "49.90" or "Free", or nothing at all.
type Price struct {
	kind   priceKind
	amount float64
	text   string
}

func NumericPrice(amount float64) Price {
	return Price{kind: priceNumber, amount: amount}
}

func TextPrice(text string) Price {
	return Price{kind: priceText, text: text}
}

// IsFree is true for 0, "0", "Free", null and a missing price.
func (p Price) IsFree() bool {
	switch p.kind {
	case priceAbsent:
		return true
	case priceNumber:
		return p.amount == 0
	default:
		return p.text == "0" || p.text == "Free"
	}
}

func (p Price) String() string {
	switch p.kind {
	case priceNumber:
		return strconv.FormatFloat(p.amount, 'f', -1, 64)
	case priceText:
		return p.text
	default:
		return ""
	}
}

func (p Price) MarshalJSON() ([]byte, error) {
	switch p.kind {
	case priceNumber:
		return json.Marshal(p.amount)
	case priceText:
		return json.Marshal(p.text)
	default:
		return []byte("null"), nil
	}
}

func (p *Price) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*p = Price{}
		return nil
	}

	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("price: %w", err)
		}
		*p = TextPrice(s)
		return nil
	}

	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("price: %w", err)
	}
	*p = NumericPrice(f)
	return nil
}

// Scan reads a JSONB price column.
func (p *Price) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*p = Price{}
		return nil
	case []byte:
		return p.UnmarshalJSON(v)
	case string:
		return p.UnmarshalJSON([]byte(v))
	default:
		return fmt.Errorf("price: unsupported scan type %T", src)
	}
}

// Value encodes the price for a JSONB column; an absent price is NULL.
func (p Price) Value() (driver.Value, error) {
	if p.kind == priceAbsent {
		return nil, nil
	}
	b, err := p.MarshalJSON()
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

package enum

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
)

// DiscountType selects how a discount value is interpreted, for both
// line items and whole invoices.
type DiscountType string

const (
	DiscountTypeNone       DiscountType = "none"
	DiscountTypePercentage DiscountType = "percentage"
	DiscountTypeAmount     DiscountType = "amount"
)

func (t DiscountType) String() string {
	if t == "" {
		return string(DiscountTypeNone)
	}
	return string(t)
}

// IsValid reports whether t is a known discount type. The empty value counts as none.
func (t DiscountType) IsValid() bool {
	switch t {
	case "", DiscountTypeNone, DiscountTypePercentage, DiscountTypeAmount:
		return true
	}
	return false
}

// IsNone is true for the empty value and for DiscountTypeNone.
func (t DiscountType) IsNone() bool {
	return t == "" || t == DiscountTypeNone
}

func (t DiscountType) MarshalJSON() ([]byte, error) {
	if t.IsNone() {
		return []byte("null"), nil
	}
	return json.Marshal(string(t))
}

func (t *DiscountType) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*t = DiscountTypeNone
		return nil
	}
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}
	*t = DiscountType(strings.ToLower(strings.TrimSpace(str)))
	return nil
}

func (t DiscountType) Value() (driver.Value, error) {
	if t.IsNone() {
		return nil, nil
	}
	return string(t), nil
}

func (t *DiscountType) Scan(value interface{}) error {
	switch v := value.(type) {
	case nil:
		*t = DiscountTypeNone
	case string:
		*t = DiscountType(v)
	case []byte:
		*t = DiscountType(v)
	default:
		return fmt.Errorf("cannot scan %T into DiscountType", value)
	}
	return nil
}

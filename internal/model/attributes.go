package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// Attributes holds descriptive variation attributes such as size or colour.
// It is stored as a JSON text column.
type Attributes map[string]string

func (a Attributes) Value() (driver.Value, error) {
	if a == nil {
		return "{}", nil
	}
	b, err := json.Marshal(a)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (a *Attributes) Scan(src any) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*a = Attributes{}
		return nil
	case string:
		raw = []byte(v)
	case []byte:
		raw = v
	default:
		return fmt.Errorf("attributes: unsupported source type %T", src)
	}
	out := Attributes{}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &out); err != nil {
			return err
		}
	}
	*a = out
	return nil
}

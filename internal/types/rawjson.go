package types

import (
	"database/sql/driver"
	"encoding/json"

	ierr "github.com/flexprice/ispbilling/internal/errors"
)

// RawJSON is an opaque JSON document stored in a jsonb column.
// It is written as text so the driver does not encode it as bytea.
type RawJSON json.RawMessage

func (r RawJSON) MarshalJSON() ([]byte, error) {
	if len(r) == 0 {
		return []byte("null"), nil
	}
	return r, nil
}

func (r *RawJSON) UnmarshalJSON(b []byte) error {
	*r = append((*r)[0:0], b...)
	return nil
}

func (r RawJSON) Value() (driver.Value, error) {
	if len(r) == 0 {
		return nil, nil
	}
	return string(r), nil
}

func (r *RawJSON) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*r = nil
	case []byte:
		*r = append(RawJSON(nil), v...)
	case string:
		*r = RawJSON(v)
	default:
		return ierr.NewErrorf("cannot scan %T into RawJSON", src).
			WithHint("Unexpected payload column type").
			Mark(ierr.ErrDatabase)
	}
	return nil
}

// internal/rekordbox/nulltypes.go

package rekordbox

import (
	"fmt"
	"strconv"
)

// NullString is a string column that may be NULL. Rekordbox stores several
// text columns as NULL rather than the empty string.
type NullString struct {
	String string
	Valid  bool
}

// Scan implements sql.Scanner for NullString.
func (ns *NullString) Scan(value interface{}) error {
	if value == nil {
		ns.String, ns.Valid = "", false
		return nil
	}
	ns.Valid = true
	switch v := value.(type) {
	case string:
		ns.String = v
	case []byte:
		ns.String = string(v)
	default:
		ns.String = fmt.Sprintf("%v", v)
	}
	return nil
}

// NullInt64 is an integer column that may be NULL. Rekordbox mixes integer
// and text storage for numeric columns, so Scan accepts both.
type NullInt64 struct {
	Int64 int64
	Valid bool
}

// Scan implements sql.Scanner for NullInt64.
func (ni *NullInt64) Scan(value interface{}) error {
	if value == nil {
		ni.Int64, ni.Valid = 0, false
		return nil
	}
	ni.Valid = true
	switch v := value.(type) {
	case int64:
		ni.Int64 = v
	case int:
		ni.Int64 = int64(v)
	case float64:
		ni.Int64 = int64(v)
	case []byte:
		i, err := strconv.ParseInt(string(v), 10, 64)
		if err != nil {
			return fmt.Errorf("NullInt64.Scan: parse %q as int: %w", string(v), err)
		}
		ni.Int64 = i
	case string:
		i, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("NullInt64.Scan: parse %q as int: %w", v, err)
		}
		ni.Int64 = i
	default:
		return fmt.Errorf("NullInt64.Scan: cannot convert %T to int64", value)
	}
	return nil
}

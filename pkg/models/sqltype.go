package models

import (
	"encoding/hex"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// SQLType is a standard SQL type code, numbered the way JDBC drivers report them
type SQLType int

const (
	Bit           SQLType = -7
	TinyInt       SQLType = -6
	BigInt        SQLType = -5
	LongVarBinary SQLType = -4
	VarBinary     SQLType = -3
	Binary        SQLType = -2
	LongVarChar   SQLType = -1
	Null          SQLType = 0
	Char          SQLType = 1
	Numeric       SQLType = 2
	Decimal       SQLType = 3
	Integer       SQLType = 4
	SmallInt      SQLType = 5
	Float         SQLType = 6
	Real          SQLType = 7
	Double        SQLType = 8
	VarChar       SQLType = 12
	Boolean       SQLType = 16
	Date          SQLType = 91
	Time          SQLType = 92
	Timestamp     SQLType = 93
	Other         SQLType = 1111
	Blob          SQLType = 2004
	Clob          SQLType = 2005
)

var sqlTypeNames = map[SQLType]string{
	Bit:           "BIT",
	TinyInt:       "TINYINT",
	BigInt:        "BIGINT",
	LongVarBinary: "LONGVARBINARY",
	VarBinary:     "VARBINARY",
	Binary:        "BINARY",
	LongVarChar:   "LONGVARCHAR",
	Null:          "NULL",
	Char:          "CHAR",
	Numeric:       "NUMERIC",
	Decimal:       "DECIMAL",
	Integer:       "INTEGER",
	SmallInt:      "SMALLINT",
	Float:         "FLOAT",
	Real:          "REAL",
	Double:        "DOUBLE",
	VarChar:       "VARCHAR",
	Boolean:       "BOOLEAN",
	Date:          "DATE",
	Time:          "TIME",
	Timestamp:     "TIMESTAMP",
	Other:         "OTHER",
	Blob:          "BLOB",
	Clob:          "CLOB",
}

func (t SQLType) String() string {
	if name, ok := sqlTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("SQLType(%d)", int(t))
}

// ParseSQLType resolves a type name such as "integer" or "varchar" (case-insensitive)
// or a numeric type code.
func ParseSQLType(name string) (SQLType, error) {
	upper := strings.ToUpper(strings.TrimSpace(name))
	switch upper {
	case "INT":
		return Integer, nil
	case "STRING", "TEXT":
		return VarChar, nil
	case "BOOL":
		return Boolean, nil
	case "DATETIME":
		return Timestamp, nil
	}
	for t, n := range sqlTypeNames {
		if n == upper {
			return t, nil
		}
	}
	if code, err := strconv.Atoi(upper); err == nil {
		return SQLType(code), nil
	}
	return Other, fmt.Errorf("unknown SQL type %q", name)
}

// IsInteger reports whether values of this type are whole numbers
func (t SQLType) IsInteger() bool {
	switch t {
	case TinyInt, SmallInt, Integer, BigInt:
		return true
	}
	return false
}

// IsNumeric reports whether values of this type render as bare numbers
func (t SQLType) IsNumeric() bool {
	switch t {
	case Numeric, Decimal, Float, Real, Double:
		return true
	}
	return t.IsInteger()
}

// IsCharacter reports whether values of this type are character strings
func (t SQLType) IsCharacter() bool {
	switch t {
	case Char, VarChar, LongVarChar, Clob:
		return true
	}
	return false
}

// IsBinary reports whether values of this type are byte strings
func (t SQLType) IsBinary() bool {
	switch t {
	case Binary, VarBinary, LongVarBinary, Blob:
		return true
	}
	return false
}

// IsTemporal reports whether values of this type are dates or times
func (t SQLType) IsTemporal() bool {
	switch t {
	case Date, Time, Timestamp:
		return true
	}
	return false
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"15:04:05",
}

// Coerce converts value into the Go representation used to bind a parameter of this type
func (t SQLType) Coerce(value interface{}) (interface{}, error) {
	if value == nil {
		return nil, nil
	}
	switch {
	case t.IsInteger():
		return coerceInt(value)
	case t == Bit || t == Boolean:
		return coerceBool(value)
	case t == Float || t == Real || t == Double:
		return coerceFloat(value)
	case t == Numeric || t == Decimal:
		// keep the textual form so precision survives the round trip
		s := strings.TrimSpace(fmt.Sprintf("%v", value))
		if _, err := strconv.ParseFloat(s, 64); err != nil {
			return nil, fmt.Errorf("cannot use %q as %s: %w", s, t, err)
		}
		return s, nil
	case t.IsCharacter():
		if b, ok := value.([]byte); ok {
			return string(b), nil
		}
		return fmt.Sprintf("%v", value), nil
	case t.IsTemporal():
		return coerceTime(value)
	case t.IsBinary():
		switch v := value.(type) {
		case []byte:
			return v, nil
		case string:
			if strings.HasPrefix(v, "0x") || strings.HasPrefix(v, "0X") {
				return hex.DecodeString(v[2:])
			}
			return []byte(v), nil
		}
		return nil, fmt.Errorf("cannot use %T as %s", value, t)
	}
	return value, nil
}

func coerceInt(value interface{}) (interface{}, error) {
	switch v := value.(type) {
	case int:
		return int64(v), nil
	case int8:
		return int64(v), nil
	case int16:
		return int64(v), nil
	case int32:
		return int64(v), nil
	case int64:
		return v, nil
	case uint8:
		return int64(v), nil
	case uint16:
		return int64(v), nil
	case uint32:
		return int64(v), nil
	case uint:
		return coerceInt(uint64(v))
	case uint64:
		if v > math.MaxInt64 {
			return nil, fmt.Errorf("%d overflows a signed 64-bit integer", v)
		}
		return int64(v), nil
	case []byte:
		return coerceInt(string(v))
	case string:
		i, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("cannot use %q as integer: %w", v, err)
		}
		return i, nil
	}
	return nil, fmt.Errorf("cannot use %T as integer", value)
}

func coerceFloat(value interface{}) (interface{}, error) {
	switch v := value.(type) {
	case float32:
		return float64(v), nil
	case float64:
		return v, nil
	case []byte:
		return coerceFloat(string(v))
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return nil, fmt.Errorf("cannot use %q as float: %w", v, err)
		}
		return f, nil
	}
	i, err := coerceInt(value)
	if err != nil {
		return nil, fmt.Errorf("cannot use %T as float", value)
	}
	return float64(i.(int64)), nil
}

func coerceBool(value interface{}) (interface{}, error) {
	switch v := value.(type) {
	case bool:
		return v, nil
	case []byte:
		return coerceBool(string(v))
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return nil, fmt.Errorf("cannot use %q as boolean: %w", v, err)
		}
		return b, nil
	}
	i, err := coerceInt(value)
	if err != nil {
		return nil, fmt.Errorf("cannot use %T as boolean", value)
	}
	return i.(int64) != 0, nil
}

func coerceTime(value interface{}) (interface{}, error) {
	switch v := value.(type) {
	case time.Time:
		return v, nil
	case []byte:
		return coerceTime(string(v))
	case string:
		s := strings.TrimSpace(v)
		for _, layout := range timeLayouts {
			if ts, err := time.Parse(layout, s); err == nil {
				return ts, nil
			}
		}
		return nil, fmt.Errorf("cannot parse %q as a date or time", v)
	}
	return nil, fmt.Errorf("cannot use %T as a date or time", value)
}

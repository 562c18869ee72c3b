package rtnl

import (
	"fmt"
	"strconv"
)

// An EnumTable maps numeric enum values to their symbolic names.  An
// EnumTable is immutable after creation and safe for concurrent use.
type EnumTable struct {
	names  map[uint32]string
	values map[string]uint32
}

// NewEnumTable creates an EnumTable from a map of values to names.  It
// panics if two values share a name.
func NewEnumTable(names map[uint32]string) *EnumTable {
	t := &EnumTable{
		names:  make(map[uint32]string, len(names)),
		values: make(map[string]uint32, len(names)),
	}

	for v, n := range names {
		if _, ok := t.values[n]; ok {
			panicf("rtnl: duplicate enum name %q", n)
		}

		t.names[v] = n
		t.values[n] = v
	}

	return t
}

// Name returns the name for v, and whether v is known.
func (t *EnumTable) Name(v uint32) (string, bool) {
	n, ok := t.names[v]
	return n, ok
}

// Value returns the value for name, and whether name is known.
func (t *EnumTable) Value(name string) (uint32, bool) {
	v, ok := t.values[name]
	return v, ok
}

// An Enum is a decoded enum value.  Name is empty when the wire value had
// no mapping; Value always holds the wire value after decoding.
type Enum struct {
	Name  string
	Value uint32
}

// String returns the name of e, or its numeric value when it has none.
func (e Enum) String() string {
	if e.Name != "" {
		return e.Name
	}

	return strconv.FormatUint(uint64(e.Value), 10)
}

// DecodeEnum resolves v against t.  Unknown values are returned as-is and
// never cause an error.
func DecodeEnum(v uint32, t *EnumTable) Enum {
	n, _ := t.Name(v)
	return Enum{Name: n, Value: v}
}

// EncodeEnum resolves e to its wire value.  A non-empty Name takes
// precedence over Value and must be known to t.
func EncodeEnum(e Enum, t *EnumTable) (uint32, error) {
	if e.Name == "" {
		return e.Value, nil
	}

	v, ok := t.Value(e.Name)
	if !ok {
		return 0, fmt.Errorf("enum %q: %w", e.Name, errUnknownName)
	}

	return v, nil
}

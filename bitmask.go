package rtnl

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
)

// errUnknownName is returned when encoding a flag or enum name which is not
// present in its table.
var errUnknownName = errors.New("unknown name")

// A FlagTable maps flag names to the bits they occupy in a bitmask word.
// A FlagTable is immutable after creation and safe for concurrent use.
type FlagTable struct {
	bits  map[string]uint32
	names []string
}

// NewFlagTable creates a FlagTable from a map of flag names to bits.  It
// panics if a bit value is zero, since a zero bit could never be decoded.
func NewFlagTable(bits map[string]uint32) *FlagTable {
	t := &FlagTable{
		bits:  make(map[string]uint32, len(bits)),
		names: slices.Sorted(maps.Keys(bits)),
	}

	for n, b := range bits {
		if b == 0 {
			panicf("rtnl: flag %q has no bits set", n)
		}
		t.bits[n] = b
	}

	return t
}

// Bit returns the bits for name, and whether name is known.
func (t *FlagTable) Bit(name string) (uint32, bool) {
	b, ok := t.bits[name]
	return b, ok
}

// A Bitmask is a decoded bitmask word: the set of known flag names which
// were set, plus any bits the FlagTable did not recognize.
type Bitmask struct {
	// Names holds each known flag which is set.  A false entry is the
	// same as an absent one.
	Names map[string]bool

	// Unknown holds bits with no name in the FlagTable.  They are written
	// back unchanged on encode.
	Unknown uint32
}

// Has reports whether flag name is set.
func (b Bitmask) Has(name string) bool { return b.Names[name] }

// String returns a "|" separated list of set flags.
func (b Bitmask) String() string {
	s := slices.Sorted(func(yield func(string) bool) {
		for n, set := range b.Names {
			if set && !yield(n) {
				return
			}
		}
	})
	if b.Unknown != 0 {
		s = append(s, fmt.Sprintf("0x%x", b.Unknown))
	}
	if len(s) == 0 {
		return "0"
	}

	return strings.Join(s, "|")
}

// DecodeFlags splits word into the named flags of t.  Each known flag found
// in word is cleared from it; whatever remains is kept as Unknown.
func DecodeFlags(word uint32, t *FlagTable) Bitmask {
	var bm Bitmask
	rest := word
	for _, n := range t.names {
		bit := t.bits[n]
		if word&bit != bit {
			continue
		}

		if bm.Names == nil {
			bm.Names = make(map[string]bool)
		}
		bm.Names[n] = true
		rest &^= bit
	}

	bm.Unknown = rest
	return bm
}

// EncodeFlags packs bm back into a bitmask word using t.  Naming a flag
// which t does not know is an error.
func EncodeFlags(bm Bitmask, t *FlagTable) (uint32, error) {
	word := bm.Unknown
	for n, set := range bm.Names {
		if !set {
			continue
		}

		bit, ok := t.bits[n]
		if !ok {
			return 0, fmt.Errorf("flag %q: %w", n, errUnknownName)
		}
		word |= bit
	}

	return word, nil
}

package rtnl_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/mdlayher/rtnl"
)

func TestDecodeFlags(t *testing.T) {
	tests := []struct {
		name string
		word uint32
		bm   rtnl.Bitmask
		s    string
	}{
		{
			name: "zero",
			s:    "0",
		},
		{
			name: "known",
			word: 0x83,
			bm: rtnl.Bitmask{Names: map[string]bool{
				"secondary": true,
				"nodad":     true,
				"permanent": true,
			}},
			s: "nodad|permanent|secondary",
		},
		{
			name: "unknown only",
			word: 0x300,
			bm:   rtnl.Bitmask{Unknown: 0x300},
			s:    "0x300",
		},
		{
			name: "mixed",
			word: 0x102,
			bm: rtnl.Bitmask{
				Names:   map[string]bool{"nodad": true},
				Unknown: 0x100,
			},
			s: "nodad|0x100",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bm := rtnl.DecodeFlags(tt.word, testFlags)
			if diff := cmp.Diff(tt.bm, bm); diff != "" {
				t.Fatalf("unexpected bitmask (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff(tt.s, bm.String()); diff != "" {
				t.Fatalf("unexpected string (-want +got):\n%s", diff)
			}

			word, err := rtnl.EncodeFlags(bm, testFlags)
			if err != nil {
				t.Fatalf("failed to encode: %v", err)
			}
			if diff := cmp.Diff(tt.word, word); diff != "" {
				t.Fatalf("unexpected word (-want +got):\n%s", diff)
			}
		})
	}
}

func TestFlagsRoundTripAllWords(t *testing.T) {
	// Walk low words exhaustively and a spread of high words.
	words := make([]uint32, 0, 1<<12+32)
	for w := uint32(0); w < 1<<12; w++ {
		words = append(words, w)
	}
	for i := 0; i < 32; i++ {
		words = append(words, 1<<i|0x81, ^uint32(0)>>i)
	}

	for _, w := range words {
		got, err := rtnl.EncodeFlags(rtnl.DecodeFlags(w, testFlags), testFlags)
		if err != nil {
			t.Fatalf("failed to encode %#x: %v", w, err)
		}
		if got != w {
			t.Fatalf("word %#x did not round trip: got %#x", w, got)
		}
	}
}

func TestEncodeFlags(t *testing.T) {
	tests := []struct {
		name string
		bm   rtnl.Bitmask
		word uint32
		ok   bool
	}{
		{
			name: "empty",
			ok:   true,
		},
		{
			name: "false entries ignored",
			bm: rtnl.Bitmask{Names: map[string]bool{
				"secondary": false,
				"permanent": true,
			}},
			word: 0x80,
			ok:   true,
		},
		{
			name: "unknown bits kept",
			bm: rtnl.Bitmask{
				Names:   map[string]bool{"secondary": true},
				Unknown: 0x10000,
			},
			word: 0x10001,
			ok:   true,
		},
		{
			name: "unknown name",
			bm:   rtnl.Bitmask{Names: map[string]bool{"bogus": true}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			word, err := rtnl.EncodeFlags(tt.bm, testFlags)
			if tt.ok && err != nil {
				t.Fatalf("failed to encode: %v", err)
			}
			if !tt.ok {
				if err == nil {
					t.Fatal("expected an error, but none occurred")
				}
				return
			}

			if diff := cmp.Diff(tt.word, word); diff != "" {
				t.Fatalf("unexpected word (-want +got):\n%s", diff)
			}
		})
	}
}

func TestFlagTable(t *testing.T) {
	if b, ok := testFlags.Bit("permanent"); !ok || b != 0x80 {
		t.Fatalf("unexpected bit for permanent: %#x, %v", b, ok)
	}
	if _, ok := testFlags.Bit("bogus"); ok {
		t.Fatal("unknown flag must not resolve")
	}

	bm := rtnl.DecodeFlags(0x01, testFlags)
	if !bm.Has("secondary") || bm.Has("nodad") {
		t.Fatalf("unexpected flags: %v", bm)
	}

	defer func() {
		if r := recover(); r == nil {
			t.Fatal("expected a panic for a zero bit")
		}
	}()

	_ = rtnl.NewFlagTable(map[string]uint32{"none": 0})
}

package rtnl_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/mdlayher/rtnl"
)

func TestDecodeEnum(t *testing.T) {
	tests := []struct {
		name string
		v    uint32
		e    rtnl.Enum
		s    string
	}{
		{
			name: "known",
			v:    4,
			e:    rtnl.Enum{Name: "static", Value: 4},
			s:    "static",
		},
		{
			name: "zero known",
			e:    rtnl.Enum{Name: "unspec"},
			s:    "unspec",
		},
		{
			name: "unknown",
			v:    186,
			e:    rtnl.Enum{Value: 186},
			s:    "186",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := rtnl.DecodeEnum(tt.v, testProtocols)
			if diff := cmp.Diff(tt.e, e); diff != "" {
				t.Fatalf("unexpected enum (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff(tt.s, e.String()); diff != "" {
				t.Fatalf("unexpected string (-want +got):\n%s", diff)
			}

			v, err := rtnl.EncodeEnum(e, testProtocols)
			if err != nil {
				t.Fatalf("failed to encode: %v", err)
			}
			if diff := cmp.Diff(tt.v, v); diff != "" {
				t.Fatalf("unexpected value (-want +got):\n%s", diff)
			}
		})
	}
}

func TestEncodeEnum(t *testing.T) {
	tests := []struct {
		name string
		e    rtnl.Enum
		v    uint32
		ok   bool
	}{
		{
			name: "name wins over value",
			e:    rtnl.Enum{Name: "kernel", Value: 99},
			v:    2,
			ok:   true,
		},
		{
			name: "value only",
			e:    rtnl.Enum{Value: 42},
			v:    42,
			ok:   true,
		},
		{
			name: "unknown name",
			e:    rtnl.Enum{Name: "bogus"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := rtnl.EncodeEnum(tt.e, testProtocols)
			if !tt.ok {
				if err == nil {
					t.Fatal("expected an error, but none occurred")
				}
				return
			}
			if err != nil {
				t.Fatalf("failed to encode: %v", err)
			}

			if diff := cmp.Diff(tt.v, v); diff != "" {
				t.Fatalf("unexpected value (-want +got):\n%s", diff)
			}
		})
	}
}

func TestEnumTable(t *testing.T) {
	if n, ok := testProtocols.Name(2); !ok || n != "kernel" {
		t.Fatalf("unexpected name for 2: %q, %v", n, ok)
	}
	if v, ok := testProtocols.Value("static"); !ok || v != 4 {
		t.Fatalf("unexpected value for static: %d, %v", v, ok)
	}

	defer func() {
		if r := recover(); r == nil {
			t.Fatal("expected a panic for a duplicate name")
		}
	}()

	_ = rtnl.NewEnumTable(map[uint32]string{1: "boot", 3: "boot"})
}

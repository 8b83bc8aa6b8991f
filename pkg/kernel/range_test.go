package kernel

import "testing"

func TestNormalizeRange(t *testing.T) {
	cases := []struct {
		name  string
		a, b  uint32
		start uint64
		end   uint64
	}{
		{"aligned pair", 0x1000, 0x3000, 0x1000, 0x3000},
		{"reversed pair", 0x3000, 0x1000, 0x1000, 0x3000},
		{"unaligned bounds", 0x1234, 0x2345, 0x1000, 0x3000},
		{"zero width", 0x1000, 0x1000, 0x1000, 0x2000},
		{"zero width unaligned", 0x1800, 0x1900, 0x1000, 0x2000},
		{"zero address", 0, 0, 0, 0x1000},
		{"top of address space", 0xfffff123, 0xffffffff, 0xfffff000, 1 << 32},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := NormalizeRange(tc.a, tc.b)
			if r.Start != tc.start || r.End != tc.end {
				t.Errorf("NormalizeRange(%#x, %#x) = [%#x, %#x), want [%#x, %#x)",
					tc.a, tc.b, r.Start, r.End, tc.start, tc.end)
			}
			if r.Start%PageSize != 0 || r.End%PageSize != 0 {
				t.Errorf("bounds not page aligned: [%#x, %#x)", r.Start, r.End)
			}
			if r.End <= r.Start {
				t.Errorf("end not strictly greater than start: [%#x, %#x)", r.Start, r.End)
			}
		})
	}
}

func TestNormalizeRangeSingleAddress(t *testing.T) {
	// A single address collapses to exactly one page.
	r := NormalizeRange(0x4321, 0x4321)
	if r.End-r.Start != PageSize {
		t.Errorf("degenerate range should span one page, got %#x", r.End-r.Start)
	}
	if r.Start != 0x4000 {
		t.Errorf("degenerate range should cover the containing page, got %#x", r.Start)
	}
}

func TestPagesOrder(t *testing.T) {
	r := NormalizeRange(0x3000, 0x1000)
	var got []uint32
	r.Pages(func(va uint32) { got = append(got, va) })
	want := []uint32{0x1000, 0x2000}
	if len(got) != len(want) {
		t.Fatalf("got %d pages, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("page %d: got %#x, want %#x", i, got[i], want[i])
		}
	}
}

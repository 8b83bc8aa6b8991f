package kernel

// AddressRange is a normalized, page-aligned [Start, End) interval.
// Bounds are kept in 64 bits so that a range reaching the top of the
// 32-bit address space has a representable exclusive end.
type AddressRange struct {
	Start uint64
	End   uint64
}

// NormalizeRange orders the pair low to high, rounds the low bound down
// and the high bound up to page boundaries and widens a zero-width
// result by one page. End is always strictly greater than Start.
func NormalizeRange(a, b uint32) AddressRange {
	lo, hi := uint64(a), uint64(b)
	if hi < lo {
		lo, hi = hi, lo
	}
	lo -= lo % PageSize
	hi += (PageSize - hi%PageSize) % PageSize
	if lo == hi {
		hi += PageSize
	}
	return AddressRange{Start: lo, End: hi}
}

// Pages calls fn for every page base in the range, in ascending order.
func (r AddressRange) Pages(fn func(va uint32)) {
	for va := r.Start; va < r.End; va += PageSize {
		fn(uint32(va))
	}
}

package kernel

// PTE is one page-table entry: the physical frame address in the high
// bits and permission flags in the low twelve.
type PTE uint32

// Permission bits of a page-table entry.
const (
	PtePresent  PTE = 0x001
	PteWritable PTE = 0x002
	PteUser     PTE = 0x004
)

// Addr returns the physical frame address stored in the entry.
func (p PTE) Addr() uint32 {
	return uint32(p) &^ (PageSize - 1)
}

// Present reports whether the entry maps a page.
func (p PTE) Present() bool { return p&PtePresent != 0 }

// Writable reports whether the mapped page may be written.
func (p PTE) Writable() bool { return p&PteWritable != 0 }

// User reports whether the mapped page is accessible from user mode.
func (p PTE) User() bool { return p&PteUser != 0 }

// MappingStatus describes one page's backing and permissions at the
// moment of a page-table walk. It is built per query and never cached.
type MappingStatus struct {
	Present  bool
	Frame    uint32
	Writable bool
	User     bool
}

// Status reports the entry's mapping state.
func (p PTE) Status() MappingStatus {
	return MappingStatus{
		Present:  p.Present(),
		Frame:    p.Addr(),
		Writable: p.Writable(),
		User:     p.User(),
	}
}

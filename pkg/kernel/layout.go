// Package kernel defines the model of the machine under inspection: the
// kernel memory layout, page-table entries, trap frames and the narrow
// interfaces the monitor uses to reach the target.
package kernel

// PageSize is the size of one page of virtual memory.
const PageSize = 1 << 12

// RoundDown returns addr rounded down to a multiple of size.
func RoundDown(addr, size uint32) uint32 {
	return addr - addr%size
}

// RoundUp returns addr rounded up to a multiple of size.
func RoundUp(addr, size uint32) uint32 {
	return RoundDown(addr+size-1, size)
}

// Layout holds the fixed memory-layout symbols of the inspected kernel.
// All fields except Start are virtual addresses inside the remapped
// region above KernBase; Start is the physical load address.
type Layout struct {
	KernBase uint32
	Start    uint32
	Entry    uint32
	Etext    uint32
	Edata    uint32
	End      uint32
}

// Phys converts a virtual address in the remapped kernel region to its
// physical counterpart.
func (l Layout) Phys(va uint32) uint32 {
	return va - l.KernBase
}

// Virt converts a physical address to its direct-mapped virtual
// equivalent.
func (l Layout) Virt(pa uint32) uint32 {
	return pa + l.KernBase
}

// Footprint returns the kernel executable memory footprint in kilobytes.
func (l Layout) Footprint() uint32 {
	return RoundUp(l.End-l.Entry, 1024) / 1024
}

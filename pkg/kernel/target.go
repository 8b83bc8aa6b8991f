package kernel

// Memory reads machine words from the inspected address space.
type Memory interface {
	// ReadWord returns the 4-byte word at virtual address va.
	ReadWord(va uint32) (uint32, error)
}

// PageTableWalker resolves a virtual address to its page-table entry.
type PageTableWalker interface {
	// Walk returns a pointer to the entry mapping va, or nil if no
	// entry exists. The lookup never allocates intermediate tables.
	// The pointer aliases the live entry: writes through it edit the
	// mapping.
	Walk(va uint32) *PTE
}

// PCInfo describes the source location of an instruction address.
type PCInfo struct {
	File      string
	Line      int
	Func      string
	FuncStart uint32
}

// DebugInfo resolves instruction addresses to source locations.
type DebugInfo interface {
	PCInfo(pc uint32) (PCInfo, error)
}

// Scheduler receives requests to resume a suspended context. When
// Resume returns nil, control has left the monitor for good and the
// session is over.
type Scheduler interface {
	Resume(tf *TrapFrame) error
}

// Target is the machine under inspection.
type Target interface {
	Memory
	PageTableWalker
	DebugInfo
	Scheduler

	// Layout returns the kernel memory-layout constants.
	Layout() Layout
	// TrapFrame returns the saved registers of the context that
	// trapped into the monitor, or nil if the monitor was entered
	// outside a trap.
	TrapFrame() *TrapFrame
	// FramePointer returns the frame pointer unwinding starts from
	// when no trap frame is available.
	FramePointer() uint32
}

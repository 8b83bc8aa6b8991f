// Package core implements the snapshot backend: a serialized machine
// image loaded into memory and presented to the monitor through the
// kernel.Target interfaces, the same way a live kernel would be.
package core

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru"

	"github.com/penguinnnnn/kmon/pkg/kernel"
	"github.com/penguinnnnn/kmon/pkg/logflags"
)

const pcCacheSize = 256

type pageEntry struct {
	va  uint32
	pte kernel.PTE
}

// Symbol is one record of the snapshot's symbol table. Start and End
// delimit the function's instruction range; File and Line locate its
// definition.
type Symbol struct {
	Name  string `yaml:"name"`
	Start uint32 `yaml:"start"`
	End   uint32 `yaml:"end"`
	File  string `yaml:"file"`
	Line  int    `yaml:"line"`
}

// ResumeRecord is one entry of the scheduler journal: the register
// image that was placed in the resumable-context slot.
type ResumeRecord struct {
	Frame      kernel.TrapFrame
	SingleStep bool
}

// Machine is a suspended machine image. It satisfies kernel.Target.
type Machine struct {
	layout  kernel.Layout
	entries []pageEntry
	index   map[uint32]int
	mem     map[uint32]uint32 // physical word address -> value
	symbols []Symbol
	pcCache *lru.Cache
	tf      *kernel.TrapFrame
	fp      uint32

	resumed []ResumeRecord
}

// Layout returns the kernel memory-layout constants of the image.
func (m *Machine) Layout() kernel.Layout {
	return m.layout
}

// TrapFrame returns the saved registers of the trapped context, or nil
// if the image was taken outside a trap.
func (m *Machine) TrapFrame() *kernel.TrapFrame {
	return m.tf
}

// FramePointer returns the frame pointer recorded for the image.
func (m *Machine) FramePointer() uint32 {
	return m.fp
}

// Walk returns a pointer to the page-table entry mapping va, or nil if
// the page has no entry. The lookup never allocates.
func (m *Machine) Walk(va uint32) *kernel.PTE {
	i, ok := m.index[kernel.RoundDown(va, kernel.PageSize)]
	if !ok {
		return nil
	}
	return &m.entries[i].pte
}

func (m *Machine) translate(va uint32) (uint32, error) {
	if pte := m.Walk(va); pte != nil && pte.Present() {
		return pte.Addr() + va%kernel.PageSize, nil
	}
	// Addresses above KernBase fall back to the direct-mapped region.
	if va >= m.layout.KernBase {
		return m.layout.Phys(va), nil
	}
	return 0, fmt.Errorf("no mapping for address %08x", va)
}

// ReadWord returns the 4-byte word at virtual address va. Physical
// words absent from the image read as zero.
func (m *Machine) ReadWord(va uint32) (uint32, error) {
	pa, err := m.translate(va)
	if err != nil {
		return 0, err
	}
	return m.mem[pa&^3], nil
}

// PCInfo resolves an instruction address against the snapshot's symbol
// table. Results are immutable for the life of the image and are
// memoized.
func (m *Machine) PCInfo(pc uint32) (kernel.PCInfo, error) {
	if v, ok := m.pcCache.Get(pc); ok {
		return v.(kernel.PCInfo), nil
	}
	for i := range m.symbols {
		s := &m.symbols[i]
		if pc >= s.Start && pc < s.End {
			info := kernel.PCInfo{
				File:      s.File,
				Line:      s.Line,
				Func:      s.Name,
				FuncStart: s.Start,
			}
			m.pcCache.Add(pc, info)
			return info, nil
		}
	}
	return kernel.PCInfo{}, fmt.Errorf("no debug info for address %08x", pc)
}

// Resume places the register image in the resumable-context slot and
// journals the request. On a live machine this call would not return;
// for a snapshot the journal is the observable effect.
func (m *Machine) Resume(tf *kernel.TrapFrame) error {
	if tf == nil {
		return fmt.Errorf("no context to resume")
	}
	rec := ResumeRecord{Frame: *tf, SingleStep: tf.SingleStep()}
	m.resumed = append(m.resumed, rec)
	logflags.CoreLogger().Debugf("resume requested: eip %08x single-step %v", tf.Eip, rec.SingleStep)
	return nil
}

// ResumeJournal returns the resume requests received so far, oldest
// first.
func (m *Machine) ResumeJournal() []ResumeRecord {
	return m.resumed
}

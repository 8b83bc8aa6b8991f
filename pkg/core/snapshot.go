package core

import (
	"fmt"
	"io/ioutil"
	"sort"

	lru "github.com/hashicorp/golang-lru"
	"gopkg.in/yaml.v2"

	"github.com/penguinnnnn/kmon/pkg/kernel"
)

// Snapshot mirrors the on-disk yaml image of a suspended machine.
type Snapshot struct {
	Layout       LayoutSpec        `yaml:"layout"`
	PageTable    []EntrySpec       `yaml:"pagetable"`
	Memory       []RunSpec         `yaml:"memory"`
	Symbols      []Symbol          `yaml:"symbols"`
	TrapFrame    *kernel.TrapFrame `yaml:"trapframe,omitempty"`
	FramePointer uint32            `yaml:"framepointer,omitempty"`
}

// LayoutSpec is the serialized form of kernel.Layout.
type LayoutSpec struct {
	KernBase uint32 `yaml:"kernbase"`
	Start    uint32 `yaml:"start"`
	Entry    uint32 `yaml:"entry"`
	Etext    uint32 `yaml:"etext"`
	Edata    uint32 `yaml:"edata"`
	End      uint32 `yaml:"end"`
}

// EntrySpec is one page-table entry of the image: the page's virtual
// address, the backing physical frame and the permission bits.
type EntrySpec struct {
	VA    uint32 `yaml:"va"`
	Frame uint32 `yaml:"frame"`
	Perm  uint32 `yaml:"perm"`
}

// RunSpec is a run of physical memory words starting at Addr.
type RunSpec struct {
	Addr  uint32   `yaml:"addr"`
	Words []uint32 `yaml:"words"`
}

// OpenSnapshot reads a snapshot file and builds a Machine from it.
func OpenSnapshot(path string) (*Machine, error) {
	data, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var snap Snapshot
	if err := yaml.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("malformed snapshot %s: %v", path, err)
	}
	return FromSnapshot(&snap)
}

// FromSnapshot builds a Machine from an in-memory snapshot.
func FromSnapshot(snap *Snapshot) (*Machine, error) {
	cache, err := lru.New(pcCacheSize)
	if err != nil {
		return nil, err
	}

	m := &Machine{
		layout: kernel.Layout{
			KernBase: snap.Layout.KernBase,
			Start:    snap.Layout.Start,
			Entry:    snap.Layout.Entry,
			Etext:    snap.Layout.Etext,
			Edata:    snap.Layout.Edata,
			End:      snap.Layout.End,
		},
		index:   make(map[uint32]int),
		mem:     make(map[uint32]uint32),
		symbols: append([]Symbol(nil), snap.Symbols...),
		pcCache: cache,
		fp:      snap.FramePointer,
	}

	for _, e := range snap.PageTable {
		if e.Frame%kernel.PageSize != 0 {
			return nil, fmt.Errorf("frame %08x for page %08x is not page aligned", e.Frame, e.VA)
		}
		va := kernel.RoundDown(e.VA, kernel.PageSize)
		if _, dup := m.index[va]; dup {
			return nil, fmt.Errorf("duplicate page-table entry for %08x", va)
		}
		m.index[va] = len(m.entries)
		m.entries = append(m.entries, pageEntry{
			va:  va,
			pte: kernel.PTE(e.Frame) | kernel.PTE(e.Perm)&(kernel.PTE(kernel.PageSize)-1),
		})
	}

	for _, run := range snap.Memory {
		addr := run.Addr &^ 3
		for i, w := range run.Words {
			m.mem[addr+uint32(i)*4] = w
		}
	}

	if snap.TrapFrame != nil {
		tf := *snap.TrapFrame
		m.tf = &tf
	}
	if m.fp == 0 && m.tf != nil {
		m.fp = m.tf.Ebp
	}

	return m, nil
}

// Snapshot serializes the machine's current state, including any
// permission edits made through the walker.
func (m *Machine) Snapshot() *Snapshot {
	snap := &Snapshot{
		Layout: LayoutSpec{
			KernBase: m.layout.KernBase,
			Start:    m.layout.Start,
			Entry:    m.layout.Entry,
			Etext:    m.layout.Etext,
			Edata:    m.layout.Edata,
			End:      m.layout.End,
		},
		Symbols:      append([]Symbol(nil), m.symbols...),
		FramePointer: m.fp,
	}
	for _, e := range m.entries {
		snap.PageTable = append(snap.PageTable, EntrySpec{
			VA:    e.va,
			Frame: e.pte.Addr(),
			Perm:  uint32(e.pte) % kernel.PageSize,
		})
	}
	addrs := make([]uint32, 0, len(m.mem))
	for a := range m.mem {
		addrs = append(addrs, a)
	}
	sort.Slice(addrs, func(i, j int) bool { return addrs[i] < addrs[j] })
	for _, a := range addrs {
		if n := len(snap.Memory); n > 0 {
			run := &snap.Memory[n-1]
			if a == run.Addr+uint32(len(run.Words))*4 {
				run.Words = append(run.Words, m.mem[a])
				continue
			}
		}
		snap.Memory = append(snap.Memory, RunSpec{Addr: a, Words: []uint32{m.mem[a]}})
	}
	if m.tf != nil {
		tf := *m.tf
		snap.TrapFrame = &tf
	}
	return snap
}

// Save writes the machine's current state back to a snapshot file.
func (m *Machine) Save(path string) error {
	out, err := yaml.Marshal(m.Snapshot())
	if err != nil {
		return err
	}
	return ioutil.WriteFile(path, out, 0644)
}

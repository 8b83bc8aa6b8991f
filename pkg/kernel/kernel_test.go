package kernel

import "testing"

func TestPTEBits(t *testing.T) {
	p := PTE(0x00234000) | PtePresent | PteWritable
	if !p.Present() || !p.Writable() || p.User() {
		t.Errorf("unexpected permission bits in %#x", uint32(p))
	}
	if p.Addr() != 0x00234000 {
		t.Errorf("Addr() = %#x, want 0x00234000", p.Addr())
	}

	st := p.Status()
	if !st.Present || !st.Writable || st.User || st.Frame != 0x00234000 {
		t.Errorf("unexpected status %+v", st)
	}
}

func TestSetClearRestoresBit(t *testing.T) {
	orig := PTE(0x00234000) | PtePresent
	p := orig
	p |= PteWritable
	p &^= PteWritable
	if p != orig {
		t.Errorf("set+clear did not restore the entry: %#x != %#x", uint32(p), uint32(orig))
	}
}

func TestLayout(t *testing.T) {
	l := Layout{
		KernBase: 0xf0000000,
		Start:    0x00100000,
		Entry:    0xf010000c,
		Etext:    0xf0101871,
		Edata:    0xf0112300,
		End:      0xf0112960,
	}
	if got := l.Phys(l.Entry); got != 0x0010000c {
		t.Errorf("Phys(entry) = %#x", got)
	}
	if got := l.Virt(0x00100000); got != 0xf0100000 {
		t.Errorf("Virt(0x00100000) = %#x", got)
	}
	// ROUNDUP(end-entry, 1024)/1024
	if got := l.Footprint(); got != 75 {
		t.Errorf("Footprint() = %d, want 75", got)
	}
}

func TestTrapFlag(t *testing.T) {
	tf := &TrapFrame{Eflags: 0x202}
	tf.SetTrapFlag(true)
	if !tf.SingleStep() || tf.Eflags != 0x302 {
		t.Errorf("set: eflags = %#x", tf.Eflags)
	}
	tf.SetTrapFlag(false)
	if tf.SingleStep() || tf.Eflags != 0x202 {
		t.Errorf("clear: eflags = %#x", tf.Eflags)
	}
}

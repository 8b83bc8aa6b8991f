package kernel

import "fmt"

// FlagTrap is the trap flag in EFLAGS. While it is set the processor
// raises a debug exception after every instruction, which is how stepi
// regains control after exactly one instruction.
const FlagTrap uint32 = 0x100

// TrapFrame is the saved register image of a context that trapped into
// the monitor. The trap-handling path owns the original for the whole
// session; the monitor only reads it and resumes from a copy.
type TrapFrame struct {
	Edi uint32 `yaml:"edi"`
	Esi uint32 `yaml:"esi"`
	Ebp uint32 `yaml:"ebp"`
	Ebx uint32 `yaml:"ebx"`
	Edx uint32 `yaml:"edx"`
	Ecx uint32 `yaml:"ecx"`
	Eax uint32 `yaml:"eax"`

	Trapno uint32 `yaml:"trapno"`
	Err    uint32 `yaml:"err"`

	Eip    uint32 `yaml:"eip"`
	Eflags uint32 `yaml:"eflags"`
	Esp    uint32 `yaml:"esp"`
}

// SetTrapFlag sets or clears the single-step flag in the saved EFLAGS.
func (tf *TrapFrame) SetTrapFlag(on bool) {
	if on {
		tf.Eflags |= FlagTrap
	} else {
		tf.Eflags &^= FlagTrap
	}
}

// SingleStep reports whether the single-step flag is set.
func (tf *TrapFrame) SingleStep() bool {
	return tf.Eflags&FlagTrap != 0
}

func (tf *TrapFrame) String() string {
	return fmt.Sprintf(
		"TRAP frame:\n"+
			"  edi  0x%08x\n"+
			"  esi  0x%08x\n"+
			"  ebp  0x%08x\n"+
			"  ebx  0x%08x\n"+
			"  edx  0x%08x\n"+
			"  ecx  0x%08x\n"+
			"  eax  0x%08x\n"+
			"  trap 0x%08x\n"+
			"  err  0x%08x\n"+
			"  eip  0x%08x\n"+
			"  flag 0x%08x\n"+
			"  esp  0x%08x",
		tf.Edi, tf.Esi, tf.Ebp, tf.Ebx, tf.Edx, tf.Ecx, tf.Eax,
		tf.Trapno, tf.Err, tf.Eip, tf.Eflags, tf.Esp)
}

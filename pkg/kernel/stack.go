package kernel

import (
	"errors"

	"github.com/penguinnnnn/kmon/pkg/logflags"
)

// StackFrame is one frame of the saved frame-pointer chain. Args holds
// the four words above the return address, conventionally the callee's
// first argument words; optimized code may repurpose them.
type StackFrame struct {
	FrameBase  uint32
	ReturnAddr uint32
	Args       [4]uint32
}

// ErrFrameLimit is returned by Unwind when the chain did not reach the
// zero sentinel within the frame budget.
var ErrFrameLimit = errors.New("frame-pointer chain exceeds depth limit")

// Unwind walks the saved frame-pointer chain starting at ebp and calls
// visit once per frame, innermost first. The walk ends at the zero
// sentinel stored by the outermost frame. maxDepth bounds the walk so
// a corrupted chain cannot loop forever.
func Unwind(mem Memory, ebp uint32, maxDepth int, visit func(StackFrame) error) error {
	for depth := 0; ebp != 0; depth++ {
		if depth >= maxDepth {
			logflags.KernelLogger().Debugf("unwind stopped at depth %d, ebp %#x", depth, ebp)
			return ErrFrameLimit
		}

		f := StackFrame{FrameBase: ebp}
		ret, err := mem.ReadWord(ebp + 4)
		if err != nil {
			return err
		}
		f.ReturnAddr = ret
		for i := range f.Args {
			w, err := mem.ReadWord(ebp + 8 + uint32(i)*4)
			if err != nil {
				return err
			}
			f.Args[i] = w
		}

		if err := visit(f); err != nil {
			return err
		}

		next, err := mem.ReadWord(ebp)
		if err != nil {
			return err
		}
		ebp = next
	}
	return nil
}

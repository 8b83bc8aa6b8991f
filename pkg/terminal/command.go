// Package terminal implements the interactive monitor: the command
// table, the dispatcher and the line-oriented prompt loop.
package terminal

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/penguinnnnn/kmon/pkg/config"
	"github.com/penguinnnnn/kmon/pkg/kernel"
)

type cmdfunc func(t *Term, ctx callContext, args []string) error

// callContext carries the per-dispatch state handed to every handler.
type callContext struct {
	// TrapFrame is the saved register image of the trapped context, nil
	// when the monitor runs outside a trap.
	TrapFrame *kernel.TrapFrame
}

type command struct {
	aliases        []string
	builtinAliases []string
	helpMsg        string
	cmdFn          cmdfunc
}

// Returns true if the command string matches one of the aliases for this command
func (c command) match(cmdstr string) bool {
	for _, v := range c.aliases {
		if v == cmdstr {
			return true
		}
	}
	return false
}

// Commands represents the command table of the monitor.
type Commands struct {
	cmds []command
}

// MonitorCommands returns a Commands struct with all the monitor commands.
func MonitorCommands(conf *config.Config) *Commands {
	c := &Commands{}

	c.cmds = []command{
		{aliases: []string{"help", "h"}, cmdFn: helpCmd, helpMsg: `Prints the help message.

	help [command]

Type "help" followed by the name of a command for full documentation.`},
		{aliases: []string{"kerninfo"}, cmdFn: kernInfo, helpMsg: "Display information about the kernel."},
		{aliases: []string{"setcolor"}, cmdFn: setColor, helpMsg: `Set the display color of addresses in monitor output.

	setcolor <value>

The two low attribute bits are reserved and always masked off.`},
		{aliases: []string{"backtrace", "bt"}, cmdFn: backtraceCmd, helpMsg: `Print a backtrace of the current stack.

Each frame shows the frame base, the return address, the first four
argument words, and the source location of the return address.`},
		{aliases: []string{"showmappings"}, cmdFn: showMappings, helpMsg: `Display the page mappings covering a range of virtual addresses.

	showmappings ADDR1 ADDR2
	showmappings ADDR

Addresses are rounded outward to page boundaries; a single address shows
the page containing it.`},
		{aliases: []string{"setperm"}, cmdFn: setPerm, helpMsg: `Edit the permission bits of a page mapping.

	setperm ADDR [clear|set] [P|W|U]
	setperm ADDR [change] perm

"set" and "clear" operate on a single named bit; "change" ors the given
value into the entry.`},
		{aliases: []string{"showmem"}, cmdFn: showMem, helpMsg: `Dump memory word by word.

	showmem [Virtual|Physical] ADDR num

Physical addresses are read through the kernel's direct mapping. num is
a byte count; each step reads a full 4-byte word.`},
		{aliases: []string{"config"}, cmdFn: configCmd, helpMsg: `Changes configuration parameters.

	config -list
	config -save
	config <parameter> <value>

"config -list" shows the value of all configuration parameters, "config
-save" saves the current configuration to disk. Settable parameters are
display-color and max-backtrace-depth.`},
		{aliases: []string{"continue", "c"}, cmdFn: continueCmd, helpMsg: `Resume the trapped context.

The single-step flag is cleared before the context is handed back to the
scheduler. On success the monitor session ends.`},
		{aliases: []string{"stepi", "si"}, cmdFn: stepiCmd, helpMsg: `Single step the trapped context.

The single-step flag is set before the context is handed back to the
scheduler, so the next instruction traps back into the monitor. On
success the monitor session ends.`},
	}

	sort.Sort(byFirstAlias(c.cmds))
	return c
}

// Find will look up the command function for the given command input.
// Returns nil if no command is found.
func (c *Commands) Find(cmdstr string) *command {
	for i := range c.cmds {
		if c.cmds[i].match(cmdstr) {
			return &c.cmds[i]
		}
	}
	return nil
}

// CallWithContext takes a command and a context that command should be
// executed in.
func (c *Commands) CallWithContext(cmdstr string, t *Term, ctx callContext) error {
	args, err := tokenize(cmdstr)
	if err != nil {
		return err
	}
	if len(args) == 0 {
		return nil
	}
	cmd := c.Find(args[0])
	if cmd == nil {
		fmt.Fprintf(t.stdout, "Unknown command '%s'\n", args[0])
		return nil
	}
	return cmd.cmdFn(t, ctx, args)
}

// Call takes a command to execute.
func (c *Commands) Call(cmdstr string, t *Term) error {
	ctx := callContext{TrapFrame: t.trapFrame}
	return c.CallWithContext(cmdstr, t, ctx)
}

// Merge takes aliases defined in the config struct and merges them with the default
// command definitions.
func (c *Commands) Merge(allAliases map[string][]string) {
	for i := range c.cmds {
		if c.cmds[i].builtinAliases != nil {
			c.cmds[i].aliases = append(c.cmds[i].aliases[:0], c.cmds[i].builtinAliases...)
		}
	}
	for i := range c.cmds {
		if aliases, ok := allAliases[c.cmds[i].aliases[0]]; ok {
			if c.cmds[i].builtinAliases == nil {
				c.cmds[i].builtinAliases = make([]string, len(c.cmds[i].aliases))
				copy(c.cmds[i].builtinAliases, c.cmds[i].aliases)
			}
			c.cmds[i].aliases = append(c.cmds[i].aliases, aliases...)
		}
	}
}

type byFirstAlias []command

func (a byFirstAlias) Len() int           { return len(a) }
func (a byFirstAlias) Swap(i, j int)      { a[i], a[j] = a[j], a[i] }
func (a byFirstAlias) Less(i, j int) bool { return a[i].aliases[0] < a[j].aliases[0] }

// ExitRequestError is returned when the user exits the monitor.
type ExitRequestError struct{}

func (ere ExitRequestError) Error() string {
	return ""
}

// ResumeRequestError is returned after the scheduler has accepted a
// resumed context: the monitor session is over.
type ResumeRequestError struct{}

func (rre ResumeRequestError) Error() string {
	return ""
}

// parseAddr parses a numeric literal in any base accepted by strconv
// (0x.., 0.., decimal) and clamps it to the 32-bit address space.
func parseAddr(s string) (uint32, error) {
	v, err := strconv.ParseUint(s, 0, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid address %q", s)
	}
	if v > 0xffffffff {
		v = 0xffffffff
	}
	return uint32(v), nil
}

func permString(s kernel.MappingStatus) string {
	return fmt.Sprintf("PTE_P: %x, PTE_W: %x, PTE_U: %x", btoi(s.Present), btoi(s.Writable), btoi(s.User))
}

func btoi(b bool) int {
	if b {
		return 1
	}
	return 0
}

func helpCmd(t *Term, ctx callContext, args []string) error {
	if len(args) > 1 {
		for _, cmd := range t.cmds.cmds {
			for _, alias := range cmd.aliases {
				if alias == args[1] {
					fmt.Fprintln(t.stdout, cmd.helpMsg)
					return nil
				}
			}
		}
		return fmt.Errorf("no help entry for %s", args[1])
	}

	w := new(tabwriter.Writer)
	w.Init(t.stdout, 0, 8, 0, '-', 0)
	for _, cmd := range t.cmds.cmds {
		h := cmd.helpMsg
		if idx := strings.Index(h, "\n"); idx >= 0 {
			h = h[:idx]
		}
		if len(cmd.aliases) > 1 {
			fmt.Fprintf(w, "%s (alias: %s) \t %s\n", cmd.aliases[0], strings.Join(cmd.aliases[1:], " | "), h)
		} else {
			fmt.Fprintf(w, "%s \t %s\n", cmd.aliases[0], h)
		}
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Fprintln(t.stdout)
	fmt.Fprintln(t.stdout, "Type help followed by a command for full documentation.")
	return nil
}

func kernInfo(t *Term, ctx callContext, args []string) error {
	l := t.target.Layout()
	fmt.Fprintln(t.stdout, "Special kernel symbols:")
	fmt.Fprintf(t.stdout, "  _start                  %08x (phys)\n", l.Start)
	fmt.Fprintf(t.stdout, "  entry  %08x (virt)  %08x (phys)\n", l.Entry, l.Phys(l.Entry))
	fmt.Fprintf(t.stdout, "  etext  %08x (virt)  %08x (phys)\n", l.Etext, l.Phys(l.Etext))
	fmt.Fprintf(t.stdout, "  edata  %08x (virt)  %08x (phys)\n", l.Edata, l.Phys(l.Edata))
	fmt.Fprintf(t.stdout, "  end    %08x (virt)  %08x (phys)\n", l.End, l.Phys(l.End))
	fmt.Fprintf(t.stdout, "Kernel executable memory footprint: %dKB\n", l.Footprint())
	return nil
}

func configCmd(t *Term, ctx callContext, args []string) error {
	if len(args) != 2 && len(args) != 3 {
		fmt.Fprint(t.stdout, "Usage: config -list|-save\n       config <parameter> <value>\n")
		return nil
	}
	if t.conf == nil {
		t.conf = &config.Config{}
	}
	if len(args) == 2 {
		switch args[1] {
		case "-list":
			w := new(tabwriter.Writer)
			w.Init(t.stdout, 0, 8, 1, ' ', 0)
			fmt.Fprintf(w, "aliases\t%v\n", t.conf.Aliases)
			fmt.Fprintf(w, "display-color\t%d\n", t.conf.DisplayColor)
			fmt.Fprintf(w, "max-backtrace-depth\t%d\n", t.conf.GetMaxBacktraceDepth())
			return w.Flush()
		case "-save":
			return config.SaveConfig(t.conf)
		}
		fmt.Fprint(t.stdout, "Usage: config -list|-save\n       config <parameter> <value>\n")
		return nil
	}

	switch args[1] {
	case "display-color":
		v, err := parseAddr(args[2])
		if err != nil {
			return err
		}
		t.conf.DisplayColor = int(v) &^ 0x11
		t.displayColor = t.conf.DisplayColor
	case "max-backtrace-depth":
		v, err := strconv.ParseInt(args[2], 0, 32)
		if err != nil || v <= 0 {
			return fmt.Errorf("invalid depth %q", args[2])
		}
		t.conf.MaxBacktraceDepth = int(v)
		t.maxDepth = int(v)
	default:
		return fmt.Errorf("unknown configuration parameter %q", args[1])
	}
	return nil
}

func setColor(t *Term, ctx callContext, args []string) error {
	if len(args) != 2 {
		fmt.Fprintln(t.stdout, "Usage: setcolor [int]")
		return nil
	}
	v, err := parseAddr(args[1])
	if err != nil {
		return err
	}
	// The two low attribute bits select blink and underline on the
	// console and are not usable as colors.
	t.displayColor = int(v) &^ 0x11
	fmt.Fprintf(t.stdout, "Color set to %x\n", t.displayColor)
	return nil
}

func backtraceCmd(t *Term, ctx callContext, args []string) error {
	if len(args) != 1 {
		fmt.Fprintln(t.stdout, "Usage: backtrace")
		return nil
	}
	ebp := t.target.FramePointer()
	if ctx.TrapFrame != nil {
		ebp = ctx.TrapFrame.Ebp
	}
	fmt.Fprintln(t.stdout, "Stack backtrace:")
	err := kernel.Unwind(t.target, ebp, t.maxDepth, func(f kernel.StackFrame) error {
		fmt.Fprintf(t.stdout, "  ebp %s  eip %s  args %08x %08x %08x %08x\n",
			t.addr(f.FrameBase), t.addr(f.ReturnAddr),
			f.Args[0], f.Args[1], f.Args[2], f.Args[3])
		info, err := t.target.PCInfo(f.ReturnAddr)
		if err != nil {
			return nil
		}
		fmt.Fprintf(t.stdout, "         %s:%d: %s+%d\n",
			info.File, info.Line, info.Func, f.ReturnAddr-info.FuncStart)
		return nil
	})
	if errors.Is(err, kernel.ErrFrameLimit) {
		fmt.Fprintf(t.stdout, "(backtrace truncated after %d frames)\n", t.maxDepth)
		return nil
	}
	return err
}

func showMappings(t *Term, ctx callContext, args []string) error {
	if len(args) != 2 && len(args) != 3 {
		fmt.Fprint(t.stdout, "Usage: showmappings ADDR1 ADDR2\n       showmappings ADDR\n")
		return nil
	}
	begin, err := parseAddr(args[1])
	if err != nil {
		return err
	}
	end := begin
	if len(args) == 3 {
		if end, err = parseAddr(args[2]); err != nil {
			return err
		}
	}

	kernel.NormalizeRange(begin, end).Pages(func(va uint32) {
		fmt.Fprintf(t.stdout, "%s---%s: ", t.addr(va), t.addr64(uint64(va)+kernel.PageSize))
		pte := t.target.Walk(va)
		if pte == nil {
			fmt.Fprintln(t.stdout, "No mapping")
			return
		}
		s := pte.Status()
		fmt.Fprintf(t.stdout, "page %08x %s\n", s.Frame, permString(s))
	})
	return nil
}

func setPerm(t *Term, ctx callContext, args []string) error {
	if len(args) != 4 {
		fmt.Fprint(t.stdout, "Usage: setperm ADDR [clear|set] [P|W|U]\n       setperm ADDR [change] perm\n")
		return nil
	}
	addr, err := parseAddr(args[1])
	if err != nil {
		return err
	}
	pte := t.target.Walk(addr)
	if pte == nil {
		return fmt.Errorf("no mapping for address %08x", addr)
	}

	fmt.Fprintf(t.stdout, "Before: %s\n", permString(pte.Status()))
	switch args[2] {
	case "change":
		v, err := parseAddr(args[3])
		if err != nil {
			return err
		}
		fmt.Fprintln(t.stdout, "...Change permission bits...")
		*pte |= kernel.PTE(v)
	case "set", "clear":
		var bit kernel.PTE
		switch args[3][0] {
		case 'P':
			bit = kernel.PtePresent
		case 'W':
			bit = kernel.PteWritable
		case 'U':
			bit = kernel.PteUser
		default:
			return fmt.Errorf("unknown permission bit %q", args[3])
		}
		if args[2] == "set" {
			fmt.Fprintln(t.stdout, "...Set permission bits...")
			*pte |= bit
		} else {
			fmt.Fprintln(t.stdout, "...Clear permission bits...")
			*pte &^= bit
		}
	default:
		fmt.Fprint(t.stdout, "Usage: setperm ADDR [clear|set] [P|W|U]\n       setperm ADDR [change] perm\n")
		return nil
	}
	fmt.Fprintf(t.stdout, "After: %s\n", permString(pte.Status()))
	return nil
}

func showMem(t *Term, ctx callContext, args []string) error {
	if len(args) != 4 {
		fmt.Fprintln(t.stdout, "Usage: showmem [Virtual|Physical] ADDR num")
		return nil
	}
	tag := args[1]
	addr, err := parseAddr(args[2])
	if err != nil {
		return err
	}
	n, err := strconv.ParseInt(args[3], 0, 32)
	if err != nil {
		return fmt.Errorf("invalid count %q", args[3])
	}

	va := addr
	if tag[0] != 'V' {
		va = t.target.Layout().Virt(addr)
	}
	// Counts round up to the next word: the final partial word is read
	// in full.
	for i := int64(0); i < n; i += 4 {
		w, err := t.target.ReadWord(va + uint32(i))
		if err != nil {
			return err
		}
		fmt.Fprintf(t.stdout, "%s Memory at %s is %08x\n", tag, t.addr(addr+uint32(i)), w)
	}
	return nil
}

func continueCmd(t *Term, ctx callContext, args []string) error {
	if len(args) != 1 {
		fmt.Fprint(t.stdout, "Usage: c\n       continue\n")
		return nil
	}
	return t.resume(ctx, false)
}

func stepiCmd(t *Term, ctx callContext, args []string) error {
	if len(args) != 1 {
		fmt.Fprint(t.stdout, "Usage: si\n       stepi\n")
		return nil
	}
	return t.resume(ctx, true)
}

func (t *Term) resume(ctx callContext, singleStep bool) error {
	if ctx.TrapFrame == nil {
		fmt.Fprintln(t.stdout, "Not in a trapped context")
		return nil
	}
	tf := *ctx.TrapFrame
	tf.SetTrapFlag(singleStep)
	if err := t.target.Resume(&tf); err != nil {
		return err
	}
	return ResumeRequestError{}
}

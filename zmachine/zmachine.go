// Package zmachine implements the Version 3 Z-machine execution engine: the
// instruction decoder, the data/call stack model, the opcode dispatcher, and
// the save/restore codec, all driven against a zcore.Core memory image, a
// zobject.Tree, a dictionary.Dictionary, and a zstring.Decoder.
package zmachine

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/nkessler/zmach3/dictionary"
	"github.com/nkessler/zmach3/zcore"
	"github.com/nkessler/zmach3/zobject"
	"github.com/nkessler/zmach3/zstring"
)

// EngineVersion identifies an engine build, independent of any loaded story.
type EngineVersion struct {
	Major, Minor, Subminor int
	Timestamp              string
}

// Version is this engine's build identity, exposed to hosts that surface it
// (an "about" line, a transcript header).
var Version = EngineVersion{Major: 1, Minor: 0, Subminor: 0, Timestamp: "2026-08-02"}

// ErrInvalidOpcode is returned by Step when the instruction stream contains
// an opcode number this V3-only engine does not recognize.
var ErrInvalidOpcode = errors.New("zmachine: invalid opcode")

// ErrRestoreFailed names a failed restore: a candidate save blob that is
// malformed or whose ZORKID does not match the running story. No function in
// this package returns it; Deserialize reports failure as false and the
// RESTORE opcode reports it to the game by not branching.
var ErrRestoreFailed = errors.New("zmachine: restore failed")

// ZMachine holds the full live state of one running story: the memory
// image, the object tree, the dictionary, the text decoder, the data and
// call stacks, and the host callouts driving I/O.
type ZMachine struct {
	Core       *zcore.Core
	Objects    *zobject.Tree
	Dictionary *dictionary.Dictionary
	Decoder    *zstring.Decoder
	Host       Host

	pc     uint32
	stack  []uint16
	frames []Frame

	rngState  uint32
	lastFixed bool
	currentPC uint32 // start of the instruction currently executing, for diagnostics
	warned    map[string]bool
}

// Load parses a V3 story file and returns a ZMachine ready to Run. host may
// be nil for tests that never reach a suspending opcode.
func Load(storyBytes []uint8, host Host) (*ZMachine, error) {
	core, err := zcore.Load(storyBytes)
	if err != nil {
		return nil, err
	}

	z := &ZMachine{
		Core:    core,
		Objects: zobject.NewTree(core, core.ObjectTableBase),
		Host:    host,
		warned:  make(map[string]bool),
	}
	z.Decoder = zstring.NewDecoder(core, core.AbbreviationsBase)
	z.Dictionary = dictionary.Parse(core, z.Decoder, core.DictionaryBase)

	z.resetContinuation()
	z.notifyBoot()

	return z, nil
}

// resetContinuation installs the single root frame and starts execution at
// the story's initial PC. Unlike a CALL target, the initial PC points
// straight at the first instruction - there is no routine header to parse,
// since the main thread has no caller and thus no local-variable space of
// its own.
func (z *ZMachine) resetContinuation() {
	z.pc = uint32(z.Core.InitialPC)
	z.stack = nil
	z.frames = []Frame{{}}
}

// notifyBoot fires the Restarted callout (if the host implements it) and an
// initial Highlight callout reflecting the fresh image's fixed-pitch bit,
// matching the engine's contract that a host always receives one highlight
// notification at boot even before any text has been printed.
func (z *ZMachine) notifyBoot() {
	if r, ok := z.Host.(Restarter); ok {
		r.Restarted()
	}
	z.lastFixed = z.Core.FlagsWord()&zcore.Flags2FixedPitch != 0
	if z.Host != nil {
		z.Host.Highlight(z.lastFixed)
	}
}

func (z *ZMachine) currentFrame() *Frame {
	return &z.frames[len(z.frames)-1]
}

func (z *ZMachine) warnOnce(key, format string, args ...any) {
	if z.warned[key] {
		return
	}
	z.warned[key] = true
	fmt.Fprintf(os.Stderr, format+"\n", args...)
}

// readByteIncPC reads the byte at the current PC and advances it.
func (z *ZMachine) readByteIncPC() uint8 {
	v := z.Core.ReadByte(z.pc)
	z.pc++
	return v
}

// readWordIncPC reads the 16-bit value at the current PC and advances it by
// two. Like every other word access it honors the story's byte-swap flag.
func (z *ZMachine) readWordIncPC() uint16 {
	v := z.Core.ReadWord(z.pc)
	z.pc += 2
	return v
}

func (z *ZMachine) pushStack(v uint16) {
	z.stack = append(z.stack, v)
}

func (z *ZMachine) popStack() uint16 {
	if len(z.stack) == 0 {
		z.warnOnce("stack_underflow_pop", "zmachine: pop from empty stack at PC 0x%x", z.currentPC)
		return 0
	}
	v := z.stack[len(z.stack)-1]
	z.stack = z.stack[:len(z.stack)-1]
	return v
}

func (z *ZMachine) peekStack() uint16 {
	if len(z.stack) == 0 {
		z.warnOnce("stack_underflow_peek", "zmachine: peek at empty stack at PC 0x%x", z.currentPC)
		return 0
	}
	return z.stack[len(z.stack)-1]
}

// readVariable fetches variable 0-255. indirect selects, for variable 0
// only, whether the stack top is popped (false) or merely peeked (true) -
// the "seven opcodes that take indirect variable references" (inc, dec,
// inc_chk, dec_chk, load, store, pull) read and write the stack top in
// place rather than treating it as a push/pop target.
func (z *ZMachine) readVariable(variable uint8, indirect bool) uint16 {
	switch {
	case variable == 0:
		if indirect {
			return z.peekStack()
		}
		return z.popStack()
	case variable < 16:
		frame := z.currentFrame()
		if int(variable-1) >= len(frame.Locals) {
			panic(fmt.Sprintf("zmachine: access to non-existent local variable %d at PC 0x%x", variable, z.currentPC))
		}
		return frame.Locals[variable-1]
	default:
		return z.Core.ReadWord(uint32(z.Core.GlobalsBase) - 32 + 2*uint32(variable))
	}
}

func (z *ZMachine) writeVariable(variable uint8, value uint16, indirect bool) {
	switch {
	case variable == 0:
		if indirect {
			if len(z.stack) == 0 {
				z.pushStack(value)
				return
			}
			z.stack[len(z.stack)-1] = value
			return
		}
		z.pushStack(value)
	case variable < 16:
		frame := z.currentFrame()
		if int(variable-1) >= len(frame.Locals) {
			panic(fmt.Sprintf("zmachine: access to non-existent local variable %d at PC 0x%x", variable, z.currentPC))
		}
		frame.Locals[variable-1] = value
	default:
		z.Core.WriteWord(uint32(z.Core.GlobalsBase)-32+2*uint32(variable), value)
	}
}

// packedAddress converts a V3 packed routine/string address to a byte
// address. In V3 packed addresses are always doubled.
func packedAddress(value uint32) uint32 {
	return 2 * value
}

// CallRoutine starts a new routine at the given byte address (already
// unpacked), supplying args as the first locals (the CALL opcode passes at
// most 3; arguments beyond the routine's local count are dropped). The
// caller's data stack is parked on the new frame and the callee starts with
// an empty one.
// Calling address 0 is the special no-op: it stores 0 to the call site's
// result destination without pushing a frame.
func (z *ZMachine) CallRoutine(byteAddress uint32, args []uint16) {
	if byteAddress == 0 {
		z.writeVariable(z.readByteIncPC(), 0, false)
		return
	}

	localCount := z.Core.ReadByte(byteAddress)
	addr := byteAddress + 1

	locals := make([]uint16, localCount)
	for i := 0; i < int(localCount); i++ {
		locals[i] = z.Core.ReadWord(addr)
		addr += 2
	}
	for i := 0; i < len(args) && i < int(localCount); i++ {
		locals[i] = args[i]
	}

	z.frames = append(z.frames, Frame{
		ReturnPC:   z.pc,
		Locals:     locals,
		SavedStack: z.stack,
	})
	z.stack = nil
	z.pc = addr
}

// Return pops the current frame, restores the caller's stack and PC, and -
// since every V3 call stores a result - reads the store-variable byte
// immediately following the caller's CALL instruction and writes value
// there.
func (z *ZMachine) Return(value uint16) {
	if len(z.frames) <= 1 {
		panic("zmachine: return from outermost frame")
	}

	frames := z.frames
	z.frames = frames[:len(frames)-1]
	z.stack = frames[len(frames)-1].SavedStack
	z.pc = frames[len(frames)-1].ReturnPC

	destination := z.readByteIncPC()
	z.writeVariable(destination, value, false)
}

// branch reads a branch specifier byte (and, for the 14-bit form, a second
// byte) following the current instruction and, if result matches the
// specifier's sense, either returns 0/1 from the current routine (the two
// reserved short-circuit offsets) or jumps the PC by the decoded offset.
func (z *ZMachine) branch(result bool) {
	b := z.readByteIncPC()
	branchOnTrue := b&0x80 != 0

	var offset int32
	if b&0x40 != 0 {
		offset = int32(b & 0x3f)
	} else {
		raw := uint16(b&0x3f)<<8 | uint16(z.readByteIncPC())
		offset = int32(raw)
		if raw&0x2000 != 0 {
			offset -= 0x4000
		}
	}

	if result != branchOnTrue {
		return
	}

	switch offset {
	case 0:
		z.Return(0)
	case 1:
		z.Return(1)
	default:
		z.pc = uint32(int64(z.pc) + int64(offset) - 2)
	}
}

// nextRandom advances the LCG and returns its raw 32-bit state.
func (z *ZMachine) nextRandom() uint32 {
	z.rngState = z.rngState*1664525 + 1013904223
	return z.rngState
}

// random implements the RANDOM opcode's seeding/sampling contract.
func (z *ZMachine) random(n int16) uint16 {
	switch {
	case n == 0:
		z.rngState = uint32(time.Now().UnixNano())
		return 0
	case n < 0:
		z.rngState = uint32(uint16(n))
		return 0
	default:
		s := z.nextRandom()
		return uint16(uint64(s)*uint64(n)/(1<<32)) + 1
	}
}

// Restart reinitializes the story image and continuation, preserving the
// live mode-flags word across the reset, and fires the host's Restarted
// callout if it implements one.
func (z *ZMachine) Restart() {
	saved := z.Core.FlagsWord()
	z.Core.Init()
	z.Core.SetFlagsWord(saved)
	z.resetContinuation()
	z.notifyBoot()
}

// Run executes Step in a loop until it returns false (QUIT) or an error (an
// invalid opcode in the instruction stream).
func (z *ZMachine) Run() error {
	for {
		running, err := z.Step()
		if err != nil {
			return err
		}
		if !running {
			return nil
		}
	}
}

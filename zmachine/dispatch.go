package zmachine

import (
	"strconv"

	"github.com/nkessler/zmach3/zcore"
)

// Step decodes and executes one instruction, returning false once QUIT has
// run (the driver loop's cue to stop) or an error if the instruction
// stream names an opcode this V3-only engine does not implement.
func (z *ZMachine) Step() (bool, error) {
	z.currentPC = z.pc
	opcode := ParseOpcode(z)

	switch opcode.operandCount {
	case OP2:
		return true, z.exec2OP(&opcode)
	case OP1:
		return true, z.exec1OP(&opcode)
	case OP0:
		return z.exec0OP(&opcode)
	default:
		return true, z.execVAR(&opcode)
	}
}

// store reads the store-variable byte following operands and writes value
// into it.
func (z *ZMachine) store(value uint16) {
	z.writeVariable(z.readByteIncPC(), value, false)
}

// print routes text to the host, firing Highlight first if the fixed-pitch
// mode-flags bit has changed since the previous print.
func (z *ZMachine) print(text string) {
	fixed := z.Core.FlagsWord()&zcore.Flags2FixedPitch != 0
	if fixed != z.lastFixed {
		z.lastFixed = fixed
		if z.Host != nil {
			z.Host.Highlight(fixed)
		}
	}
	if z.Host == nil {
		return
	}
	scripting := z.Core.FlagsWord()&zcore.Flags2Scripting != 0
	z.Host.Print(text, scripting)
}

// updateStatus derives the status-line text from the current location
// object's short name (global variable 16) and the score/moves or
// hours/minutes pair (globals 17 and 18), and hands it to the host's
// optional StatusReporter.
func (z *ZMachine) updateStatus() {
	if z.Host == nil || !z.Core.HasStatusLine {
		return
	}
	reporter, ok := z.Host.(StatusReporter)
	if !ok {
		return
	}

	var text string
	if location := z.readVariable(16, false); location != 0 {
		text = z.Decoder.Decode(z.Objects.ShortNameAddress(location))
	}
	v17 := int16(z.readVariable(17, false))
	v18 := int16(z.readVariable(18, false))
	reporter.Status(text, v18, v17)
}

func (z *ZMachine) exec2OP(opcode *Opcode) error {
	ops := opcode.operands
	a := func() uint16 { return ops[0].Value(z) }
	b := func() uint16 { return ops[1].Value(z) }

	switch opcode.opcodeNumber {
	case 0x01: // EQUAL?
		target := a()
		match := false
		for _, op := range ops[1:] {
			if op.Value(z) == target {
				match = true
				break
			}
		}
		z.branch(match)
	case 0x02: // LESS?
		z.branch(int16(a()) < int16(b()))
	case 0x03: // GRTR?
		z.branch(int16(a()) > int16(b()))
	case 0x04: // DLESS?
		variable := uint8(a())
		newValue := int16(z.readVariable(variable, true)) - 1
		z.writeVariable(variable, uint16(newValue), true)
		z.branch(newValue < int16(b()))
	case 0x05: // IGRTR?
		variable := uint8(a())
		newValue := int16(z.readVariable(variable, true)) + 1
		z.writeVariable(variable, uint16(newValue), true)
		z.branch(newValue > int16(b()))
	case 0x06: // IN?
		z.branch(z.Objects.Parent(a()) == b())
	case 0x07: // BTST
		bitmap, flags := a(), b()
		z.branch(bitmap&flags == flags)
	case 0x08: // BOR
		z.store(a() | b())
	case 0x09: // BAND
		z.store(a() & b())
	case 0x0A: // FSET?
		z.branch(z.Objects.TestAttribute(a(), b()))
	case 0x0B: // FSET
		z.Objects.SetAttribute(a(), b())
	case 0x0C: // FCLEAR
		z.Objects.ClearAttribute(a(), b())
	case 0x0D: // SET
		z.writeVariable(uint8(a()), b(), true)
	case 0x0E: // MOVE
		z.Objects.Move(a(), b())
	case 0x0F: // GET
		z.store(z.Core.ReadWord(uint32(a()+2*b()) & 0xFFFF))
	case 0x10: // GETB
		z.store(uint16(z.Core.ReadByte(uint32(a()+b()) & 0xFFFF)))
	case 0x11: // GETP
		z.store(z.Objects.GetProperty(a(), uint8(b())))
	case 0x12: // GETPT
		z.store(uint16(z.Objects.PropertyAddress(a(), uint8(b()))))
	case 0x13: // NEXTP
		z.store(uint16(z.Objects.NextProperty(a(), uint8(b()))))
	case 0x14: // ADD
		z.store(uint16(int16(a()) + int16(b())))
	case 0x15: // SUB
		z.store(uint16(int16(a()) - int16(b())))
	case 0x16: // MUL
		z.store(uint16(int16(a()) * int16(b())))
	case 0x17: // DIV
		z.store(uint16(int16(a()) / int16(b())))
	case 0x18: // MOD
		z.store(uint16(int16(a()) % int16(b())))
	default:
		return ErrInvalidOpcode
	}
	return nil
}

func (z *ZMachine) exec1OP(opcode *Opcode) error {
	op := opcode.operands[0]

	switch opcode.opcodeNumber {
	case 0x00: // ZERO?
		z.branch(op.Value(z) == 0)
	case 0x01: // NEXT?
		sibling := z.Objects.Sibling(op.Value(z))
		z.store(sibling)
		z.branch(sibling != 0)
	case 0x02: // FIRST?
		child := z.Objects.Child(op.Value(z))
		z.store(child)
		z.branch(child != 0)
	case 0x03: // LOC
		z.store(z.Objects.Parent(op.Value(z)))
	case 0x04: // PTSIZE
		z.store(z.Objects.PropertyLength(uint32(op.Value(z))))
	case 0x05: // INC
		variable := uint8(op.Value(z))
		z.writeVariable(variable, z.readVariable(variable, true)+1, true)
	case 0x06: // DEC
		variable := uint8(op.Value(z))
		z.writeVariable(variable, z.readVariable(variable, true)-1, true)
	case 0x07: // PRINTB
		z.print(z.Decoder.Decode(uint32(op.Value(z))))
	case 0x09: // REMOVE
		z.Objects.Move(op.Value(z), 0)
	case 0x0A: // PRINTD
		obj := op.Value(z)
		z.print(z.Decoder.Decode(z.Objects.ShortNameAddress(obj)))
	case 0x0B: // RETURN
		z.Return(op.Value(z))
	case 0x0C: // JUMP
		offset := int16(op.Value(z))
		z.pc = uint32(int64(z.pc) + int64(offset) - 2)
	case 0x0D: // PRINT (packed address)
		z.print(z.Decoder.Decode(packedAddress(uint32(op.Value(z)))))
	case 0x0E: // VALUE
		variable := uint8(op.Value(z))
		z.store(z.readVariable(variable, true))
	case 0x0F: // BCOM
		z.store(^op.Value(z))
	default:
		return ErrInvalidOpcode
	}
	return nil
}

// exec0OP executes a 0OP opcode. The bool result is the driver's running
// flag (false only for QUIT); the error is non-nil only for an unknown
// opcode number.
func (z *ZMachine) exec0OP(opcode *Opcode) (bool, error) {
	switch opcode.opcodeNumber {
	case 0x00: // RTRUE
		z.Return(1)
	case 0x01: // RFALSE
		z.Return(0)
	case 0x02: // PRINTI
		text := z.Decoder.Decode(z.pc)
		z.pc = z.Decoder.LastEnd()
		z.print(text)
	case 0x03: // PRINTR
		text := z.Decoder.Decode(z.pc)
		z.pc = z.Decoder.LastEnd()
		z.print(text + "\n")
		z.Return(1)
	case 0x04: // NOOP
	case 0x05: // SAVE
		var ok bool
		if z.Host != nil {
			ok = z.Host.Save(z.Serialize())
		}
		z.branch(ok)
	case 0x06: // RESTORE
		z.branch(z.restore())
	case 0x07: // RESTART
		z.Restart()
	case 0x08: // RSTACK
		z.Return(z.popStack())
	case 0x09: // FSTACK
		z.popStack()
	case 0x0A: // QUIT
		return false, nil
	case 0x0B: // CRLF
		z.print("\n")
	case 0x0C: // USL
		z.updateStatus()
	case 0x0D: // VERIFY
		z.branch(z.verify())
	default:
		return true, ErrInvalidOpcode
	}
	return true, nil
}

// restore asks the host for a candidate save blob and installs it,
// preserving the live mode-flags word across the overwrite so host
// capabilities reflect the running session, not the saved one. It reports
// whether the restore fully succeeded; on failure state is left untouched
// and the RESTORE opcode simply does not branch.
func (z *ZMachine) restore() bool {
	if z.Host == nil {
		return false
	}
	blob, ok := z.Host.Restore()
	if !ok {
		return false
	}
	saved := z.Core.FlagsWord()
	if !z.Deserialize(blob) {
		return false
	}
	z.Core.SetFlagsWord(saved)
	return true
}

// verify defers to the host's Verifier override if present, otherwise
// checksums bytes 64..packed_length*2 of the initial image against the
// header checksum word.
func (z *ZMachine) verify() bool {
	if verifier, ok := z.Host.(Verifier); ok {
		return verifier.Verify()
	}

	data := z.Core.InitialBytes()
	end := int(z.Core.PackedLength) * 2
	if end > len(data) {
		end = len(data)
	}

	var sum uint16
	for i := 64; i < end; i++ {
		sum += uint16(data[i])
	}
	return sum == z.Core.Checksum
}

func (z *ZMachine) execVAR(opcode *Opcode) error {
	ops := opcode.operands
	arg := func(i int) uint16 { return ops[i].Value(z) }

	switch opcode.opcodeNumber {
	case 0x00: // CALL
		addr := packedAddress(uint32(arg(0)))
		args := make([]uint16, 0, len(ops)-1)
		for _, op := range ops[1:] {
			args = append(args, op.Value(z))
		}
		z.CallRoutine(addr, args)
	case 0x01: // PUT
		z.Core.WriteWord(uint32(arg(0)+2*arg(1))&0xFFFF, arg(2))
	case 0x02: // PUTB
		z.Core.WriteByte(uint32(arg(0)+arg(1))&0xFFFF, uint8(arg(2)))
	case 0x03: // PUTP
		z.Objects.PutProperty(arg(0), uint8(arg(1)), arg(2))
	case 0x04: // READ
		z.print("")
		z.updateStatus()
		textBuffer := arg(0)
		parseBuffer := arg(1)
		maxLen := int(z.Core.ReadByte(uint32(textBuffer)))
		var line string
		if z.Host != nil {
			line = z.Host.Read(maxLen)
		}
		z.Dictionary.HandleInput(z.Core, line, textBuffer, parseBuffer)
	case 0x05: // PRINTC
		switch c := uint8(arg(0)); c {
		case 13:
			z.print("\n")
		case 0:
		default:
			z.print(string(rune(c)))
		}
	case 0x06: // PRINTN
		z.print(strconv.Itoa(int(int16(arg(0)))))
	case 0x07: // RANDOM
		z.store(z.random(int16(arg(0))))
	case 0x08: // PUSH
		z.pushStack(arg(0))
	case 0x09: // POP
		variable := uint8(arg(0))
		z.writeVariable(variable, z.popStack(), true)
	case 0x0A: // SPLIT
		if splitter, ok := z.Host.(Splitter); ok {
			splitter.Split(arg(0))
		}
	case 0x0B: // SCREEN
		if screener, ok := z.Host.(Screener); ok {
			screener.Screen(arg(0))
		}
	default:
		return ErrInvalidOpcode
	}
	return nil
}

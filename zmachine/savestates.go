package zmachine

import "encoding/binary"

// Serialize captures the full continuation on top of the dynamic memory
// image: the PURBOT-bounded prefix of working memory (so ZORKID and header
// flags round-trip), the PC, and both stacks, most-recent frame first. The
// frame header packs the saved PC into the upper three bytes of a 32-bit
// slot with the locals count in the low byte; the blob format is private
// to this engine and only guaranteed to round-trip through Deserialize.
func (z *ZMachine) Serialize() []byte {
	prefix := z.Core.DynamicMemory()

	buf := make([]byte, 0, len(prefix)+8+2*len(z.stack)+64)
	buf = append(buf, prefix...)

	var pcBytes [4]byte
	binary.BigEndian.PutUint32(pcBytes[:], z.pc)
	buf = append(buf, pcBytes[:]...)

	buf = appendU16(buf, uint16(len(z.frames)))
	buf = appendU16(buf, uint16(len(z.stack)))
	buf = appendStack(buf, z.stack)

	for i := len(z.frames) - 1; i >= 0; i-- {
		buf = appendFrame(buf, z.frames[i])
	}

	return buf
}

// Deserialize mirrors Serialize, first requiring the candidate blob's
// ZORKID bytes to match the running story. On success it overwrites the
// dynamic memory prefix and replaces the data/call stacks in place; the
// live mode-flags word survives the overwrite, since
// Core.RestoreDynamicMemory writes it back.
func (z *ZMachine) Deserialize(blob []byte) bool {
	if !z.Core.ZorkIDMatches(blob) {
		return false
	}

	purbot := int(z.Core.EndOfDynamicMemory)
	if len(blob) < purbot+8 {
		return false
	}

	prefix := blob[:purbot]
	rest := blob[purbot:]

	pc := binary.BigEndian.Uint32(rest[0:4])
	frameCount := int(binary.BigEndian.Uint16(rest[4:6]))
	stackLen := int(binary.BigEndian.Uint16(rest[6:8]))
	rest = rest[8:]

	stack, rest, ok := readStack(rest, stackLen)
	if !ok {
		return false
	}

	frames := make([]Frame, frameCount)
	for i := frameCount - 1; i >= 0; i-- {
		var frame Frame
		frame, rest, ok = readFrame(rest)
		if !ok {
			return false
		}
		frames[i] = frame
	}

	if !z.Core.RestoreDynamicMemory(prefix) {
		return false
	}
	z.pc = pc
	z.stack = stack
	z.frames = frames
	return true
}

func appendU16(buf []byte, v uint16) []byte {
	return append(buf, byte(v>>8), byte(v))
}

func appendStack(buf []byte, stack []uint16) []byte {
	for _, v := range stack {
		buf = appendU16(buf, v)
	}
	return buf
}

func readStack(data []byte, count int) ([]uint16, []byte, bool) {
	if len(data) < 2*count {
		return nil, nil, false
	}
	stack := make([]uint16, count)
	for i := 0; i < count; i++ {
		stack[i] = binary.BigEndian.Uint16(data[2*i : 2*i+2])
	}
	return stack, data[2*count:], true
}

// appendFrame writes one call-frame header (PC in the upper 24 bits, locals
// count in the low byte of the same 32-bit slot), the frame's saved data
// stack, then its locals.
func appendFrame(buf []byte, f Frame) []byte {
	header := (f.ReturnPC&0xFFFFFF)<<8 | uint32(len(f.Locals)&0xFF)
	var headerBytes [4]byte
	binary.BigEndian.PutUint32(headerBytes[:], header)
	buf = append(buf, headerBytes[:]...)

	buf = appendU16(buf, uint16(len(f.SavedStack)))
	buf = appendStack(buf, f.SavedStack)

	for _, local := range f.Locals {
		buf = appendU16(buf, local)
	}
	return buf
}

func readFrame(data []byte) (Frame, []byte, bool) {
	if len(data) < 6 {
		return Frame{}, nil, false
	}
	header := binary.BigEndian.Uint32(data[0:4])
	returnPC := (header >> 8) & 0xFFFFFF
	localsCount := int(header & 0xFF)
	data = data[4:]

	stackLen := int(binary.BigEndian.Uint16(data[0:2]))
	data = data[2:]

	savedStack, data, ok := readStack(data, stackLen)
	if !ok {
		return Frame{}, nil, false
	}

	locals, data, ok := readStack(data, localsCount)
	if !ok {
		return Frame{}, nil, false
	}

	return Frame{ReturnPC: returnPC, SavedStack: savedStack, Locals: locals}, data, true
}

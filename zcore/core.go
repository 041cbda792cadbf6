// Package zcore owns the Z-machine story image: the immutable load-time
// bytes, the mutable working copy, header field access, and the
// byte-swap/endianness handling the memory model depends on.
package zcore

import (
	"encoding/binary"
	"errors"
)

// ErrUnsupportedVersion is returned by Load when the story file is not a
// Version 3 Z-machine image.
var ErrUnsupportedVersion = errors.New("zcore: only version 3 story files are supported")

// Header byte offsets.
const (
	offVersion       = 0x00
	offFlags1        = 0x01
	offZorkID        = 0x02
	offInitialPC     = 0x06
	offDictionary    = 0x08
	offObjectTable   = 0x0a
	offGlobals       = 0x0c
	offEndOfDynamic  = 0x0e // PURBOT
	offFlags2        = 0x10 // mode-flags shadow word (scripting/fixed-pitch)
	offSerial        = 0x12
	offAbbreviations = 0x18
	offPackedLength  = 0x1a
	offChecksum      = 0x1c
)

// Flags1 bits the core sets at init to advertise capabilities.
const (
	flag1ByteSwap       = 0b0000_0001
	flag1StatusTimeType = 0b0000_0010
	flag1Tandy          = 0b0000_1000
	flag1NoStatusLine   = 0b0001_0000
	flag1SplitAvailable = 0b0010_0000
)

// Flags2 (the mode-flags shadow word at offset 16) bits.
const (
	Flags2Scripting  = 1 << 0
	Flags2FixedPitch = 1 << 1
)

// Core is the Z-machine's memory image: an immutable initial snapshot and a
// mutable working copy of the same length, plus the header fields decoded
// from it. 16-bit header reads honor the byte-swap flag; raw byte ordering
// within the slice never changes.
type Core struct {
	initial []uint8
	bytes   []uint8

	byteSwap bool

	Version  uint8
	ZorkID   uint16
	Serial   [6]byte
	Checksum uint16

	InitialPC          uint16
	DictionaryBase     uint16
	ObjectTableBase    uint16
	GlobalsBase        uint16
	EndOfDynamicMemory uint16
	AbbreviationsBase  uint16
	PackedLength       uint16

	StatusTimeBased bool

	// IsTandy controls the Tandy capability bit advertised in flags1. Init
	// reads it, and Load runs Init before returning the Core, so the boot
	// image never advertises Tandy; a value the host sets afterwards takes
	// effect at the next Init (RESTART).
	IsTandy bool

	// HasStatusLine lets the host declare whether it implements the
	// status-line callout; if false the "no status line" bit is set.
	HasStatusLine bool
}

// Load parses a story file and performs the initial capability setup. The
// returned Core owns a private copy of storyBytes; callers are free to
// reuse or discard their slice afterward.
func Load(storyBytes []uint8) (*Core, error) {
	if len(storyBytes) < 64 {
		return nil, ErrUnsupportedVersion
	}
	if storyBytes[offVersion] != 3 {
		return nil, ErrUnsupportedVersion
	}

	initial := make([]uint8, len(storyBytes))
	copy(initial, storyBytes)

	core := &Core{
		initial:       initial,
		bytes:         make([]uint8, len(initial)),
		Version:       3,
		HasStatusLine: true,
	}
	core.Init()

	return core, nil
}

// Init (re)initializes working memory from the immutable initial image,
// rewrites the capability-advertising flags, and re-derives the header
// fields. It backs both Load and the RESTART opcode. The mode-flags shadow
// word (offset 16) is a live runtime value, not part of the story file's
// original contract, so callers needing to preserve it across a reset must
// snapshot it first and write it back after calling Init.
func (core *Core) Init() {
	copy(core.bytes, core.initial)

	core.byteSwap = core.bytes[offFlags1]&flag1ByteSwap != 0
	core.StatusTimeBased = core.bytes[offFlags1]&flag1StatusTimeType != 0

	flags1 := core.bytes[offFlags1]
	flags1 |= flag1SplitAvailable
	if core.IsTandy {
		flags1 |= flag1Tandy
	}
	if core.HasStatusLine {
		flags1 &^= flag1NoStatusLine
	} else {
		flags1 |= flag1NoStatusLine
	}
	core.bytes[offFlags1] = flags1

	core.ZorkID = core.readWordRaw(offZorkID)
	copy(core.Serial[:], core.bytes[offSerial:offSerial+6])
	core.Checksum = core.readWordRaw(offChecksum)
	core.InitialPC = core.readWordRaw(offInitialPC)
	core.DictionaryBase = core.readWordRaw(offDictionary)
	core.ObjectTableBase = core.readWordRaw(offObjectTable)
	core.GlobalsBase = core.readWordRaw(offGlobals)
	core.EndOfDynamicMemory = core.readWordRaw(offEndOfDynamic)
	core.AbbreviationsBase = core.readWordRaw(offAbbreviations)
	core.PackedLength = core.readWordRaw(offPackedLength)
}

func (core *Core) readWordRaw(addr uint16) uint16 {
	if core.byteSwap {
		return binary.LittleEndian.Uint16(core.bytes[addr : addr+2])
	}
	return binary.BigEndian.Uint16(core.bytes[addr : addr+2])
}

// ReadByte returns the byte at address.
func (core *Core) ReadByte(address uint32) uint8 {
	return core.bytes[address]
}

// WriteByte writes a byte at address. The core does not police writes
// beyond dynamic memory; the game is trusted not to write into story text.
func (core *Core) WriteByte(address uint32, value uint8) {
	core.bytes[address] = value
}

// ReadWord returns the 16-bit value at address, honoring the byte-swap flag.
func (core *Core) ReadWord(address uint32) uint16 {
	if core.byteSwap {
		return binary.LittleEndian.Uint16(core.bytes[address : address+2])
	}
	return binary.BigEndian.Uint16(core.bytes[address : address+2])
}

// WriteWord writes a 16-bit value at address, honoring the byte-swap flag.
func (core *Core) WriteWord(address uint32, value uint16) {
	if core.byteSwap {
		binary.LittleEndian.PutUint16(core.bytes[address:address+2], value)
	} else {
		binary.BigEndian.PutUint16(core.bytes[address:address+2], value)
	}
}

// ReadSlice returns a view of working memory between two byte addresses.
func (core *Core) ReadSlice(startAddress, endAddress uint32) []uint8 {
	return core.bytes[startAddress:endAddress]
}

// MemoryLength is the length of the story image in bytes.
func (core *Core) MemoryLength() uint32 {
	return uint32(len(core.bytes))
}

// FlagsWord reads the mode-flags shadow word at header offset 16. The game
// mutates it at runtime through ordinary memory writes to the header (the
// scripting bit, and the fixed-pitch bit observed by the host's Highlight
// callout) and it must survive
// RESTART/RESTORE, which otherwise overwrite the whole dynamic memory
// region including the header.
func (core *Core) FlagsWord() uint16 {
	return core.ReadWord(offFlags2)
}

// SetFlagsWord writes the mode-flags shadow word at header offset 16.
func (core *Core) SetFlagsWord(value uint16) {
	core.WriteWord(offFlags2, value)
}

// DynamicMemory returns the portion of working memory that save/restore
// operate over: everything up to EndOfDynamicMemory (PURBOT).
func (core *Core) DynamicMemory() []uint8 {
	return core.bytes[:core.EndOfDynamicMemory]
}

// RestoreDynamicMemory overwrites the dynamic memory region from data,
// preserving the live mode-flags word across the overwrite. It reports
// false if data is larger than the dynamic memory region.
func (core *Core) RestoreDynamicMemory(data []uint8) bool {
	if uint16(len(data)) > core.EndOfDynamicMemory {
		return false
	}
	saved := core.FlagsWord()
	copy(core.bytes, data)
	core.SetFlagsWord(saved)
	return true
}

// InitialBytes returns the immutable load-time image, used by VERIFY's
// checksum (computed over the original file, not the live working copy).
func (core *Core) InitialBytes() []uint8 {
	return core.initial
}

// ZorkIDMatches reports whether the ZORKID bytes (header offset 2-3) of a
// candidate save blob match this story's running image.
func (core *Core) ZorkIDMatches(blob []uint8) bool {
	if len(blob) < 4 {
		return false
	}
	return blob[2] == core.initial[2] && blob[3] == core.initial[3]
}

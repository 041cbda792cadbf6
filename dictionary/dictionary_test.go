package dictionary

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nkessler/zmach3/zstring"
)

type fakeMemory []byte

func (m fakeMemory) ReadByte(address uint32) uint8 { return m[address] }
func (m fakeMemory) WriteByte(address uint32, value uint8) {
	m[address] = value
}
func (m fakeMemory) ReadWord(address uint32) uint16 {
	return uint16(m[address])<<8 | uint16(m[address+1])
}
func (m fakeMemory) WriteWord(address uint32, value uint16) {
	m[address] = byte(value >> 8)
	m[address+1] = byte(value)
}

// packWord packs three 5-bit Z-characters into a big-endian 16-bit word,
// optionally setting the end-of-text bit.
func packWord(a, b, c byte, last bool) [2]byte {
	word := uint16(a)<<10 | uint16(b)<<5 | uint16(c)
	if last {
		word |= 0x8000
	}
	return [2]byte{byte(word >> 8), byte(word)}
}

func zchar(letter byte) byte { return 6 + (letter - 'a') }

// writeEntry writes a 4-byte Z-encoded lowercase word (up to 5 letters,
// padded with a shift code) at addr.
func writeEntry(mem fakeMemory, addr uint32, word string) {
	var letters [5]byte
	copy(letters[:], word)
	w1 := packWord(zchar(letters[0]), zchar(letters[1]), zchar(letters[2]), false)
	w2 := packWord(zchar(letters[3]), zchar(letters[4]), 5, true)
	copy(mem[addr:], w1[:])
	copy(mem[addr+2:], w2[:])
}

func buildDictionary(t *testing.T) (*Dictionary, fakeMemory) {
	t.Helper()
	mem := make(fakeMemory, 512)
	const base = 0x50

	mem[base] = 2    // 2 break characters
	mem[base+1] = '.'
	mem[base+2] = ','
	mem[base+3] = 7 // entry length
	mem.WriteWord(base+4, 2) // 2 entries

	entryPtr := uint32(base + 6)
	writeEntry(mem, entryPtr, "north")
	entryPtr += 7
	writeEntry(mem, entryPtr, "south")

	decoder := zstring.NewDecoder(mem, 0)
	dict := Parse(mem, decoder, base)
	return dict, mem
}

func TestParseAndFind(t *testing.T) {
	dict, _ := buildDictionary(t)

	require.NotZero(t, dict.Find("north"))
	require.NotZero(t, dict.Find("south"))
	require.Zero(t, dict.Find("west"))
}

func TestTokenizeBreakAndWordRuns(t *testing.T) {
	dict, _ := buildDictionary(t)

	tokens := dict.Tokenize("go north. take all,then look")
	require.Len(t, tokens, 8)

	want := []Token{
		{"go", 1},
		{"north", 4},
		{".", 9},
		{"take", 11},
		{"all", 16},
		{",", 19},
		{"then", 20},
		{"look", 25},
	}
	require.Equal(t, want, tokens)
}

func TestHandleInputWritesTextAndParseBuffers(t *testing.T) {
	dict, mem := buildDictionary(t)

	const textBuffer = 0x100
	const parseBuffer = 0x120
	mem[textBuffer] = 20 // max text length
	mem[parseBuffer] = 4 // max tokens

	dict.HandleInput(mem, "NORTH", textBuffer, parseBuffer)

	require.Equal(t, byte('n'), mem[textBuffer+1])
	require.Equal(t, byte(0), mem[textBuffer+1+5])

	require.Equal(t, uint8(1), mem[parseBuffer+1])
	wordAddr := mem.ReadWord(parseBuffer + 2)
	require.NotZero(t, wordAddr)
	require.Equal(t, uint8(5), mem[parseBuffer+2+2])
	require.Equal(t, uint8(1), mem[parseBuffer+2+3])
}

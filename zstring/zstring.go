// Package zstring implements the Z-character text codec: decompression of
// packed Z-strings into text, with alphabet shifts, abbreviation escapes,
// and the raw-ASCII escape, plus the reverse direction used to build
// dictionary lookup keys.
package zstring

// Memory is the subset of zcore.Core the codec needs to read packed text
// and follow abbreviation pointers.
type Memory interface {
	ReadByte(address uint32) uint8
	ReadWord(address uint32) uint16
}

var a0Default = [...]byte{'a', 'b', 'c', 'd', 'e', 'f', 'g', 'h', 'i', 'j', 'k', 'l', 'm', 'n', 'o', 'p', 'q', 'r', 's', 't', 'u', 'v', 'w', 'x', 'y', 'z'}
var a1Default = [...]byte{'A', 'B', 'C', 'D', 'E', 'F', 'G', 'H', 'I', 'J', 'K', 'L', 'M', 'N', 'O', 'P', 'Q', 'R', 'S', 'T', 'U', 'V', 'W', 'X', 'Y', 'Z'}
var a2Default = [...]byte{'*', '\n', '0', '1', '2', '3', '4', '5', '6', '7', '8', '9', '.', ',', '!', '?', '_', '#', '\'', '"', '/', '\\', '-', ':', '(', ')'}

var alphabets = [3][26]byte{a0Default, a1Default, a2Default}

// maxAbbreviationDepth bounds abbreviation recursion. The format only ever
// embeds one level, but a malformed file shouldn't be able to blow the
// stack chasing a cycle.
const maxAbbreviationDepth = 2

// Decoder decodes packed Z-strings against a particular story's memory and
// abbreviations table.
type Decoder struct {
	mem              Memory
	abbreviationsBase uint16

	// lastEnd is the byte address just past the most recently decoded
	// top-level string's terminating word. PRINTI needs this to advance
	// the program counter past the inline text it just printed.
	lastEnd uint32
}

// NewDecoder builds a Decoder bound to mem and the story's abbreviations
// table base address.
func NewDecoder(mem Memory, abbreviationsBase uint16) *Decoder {
	return &Decoder{mem: mem, abbreviationsBase: abbreviationsBase}
}

// Decode reads Z-characters starting at address until the terminating word
// (MSB set), returning the decoded text. The end-of-text pointer (the
// address just past the terminating word) is recorded and can be read back
// with LastEnd.
func (d *Decoder) Decode(address uint32) string {
	text, end := d.decode(address, 0)
	d.lastEnd = end
	return text
}

// LastEnd returns the end-of-text pointer recorded by the most recent
// top-level Decode call.
func (d *Decoder) LastEnd() uint32 {
	return d.lastEnd
}

func (d *Decoder) decode(address uint32, depth int) (string, uint32) {
	zchars, end := d.readZCharacters(address)

	var out []byte
	permanentShift := 0
	temporaryShift := 0
	aux := 0

	for i := 0; i < len(zchars); i++ {
		c := int(zchars[i])

		switch temporaryShift {
		case 3: // first half of an ASCII escape
			aux = c << 5
			temporaryShift = 4
			continue
		case 4: // second half of an ASCII escape
			b := aux | c
			switch b {
			case 13:
				out = append(out, '\n')
			case 0:
			default:
				out = append(out, byte(b))
			}
			temporaryShift = permanentShift
			continue
		case 5: // abbreviation escape
			index := aux + c
			if depth < maxAbbreviationDepth {
				wordAddr := uint32(d.abbreviationsBase) + 2*uint32(index)
				strAddr := uint32(d.mem.ReadWord(wordAddr)) * 2
				sub, _ := d.decode(strAddr, depth+1)
				out = append(out, sub...)
			}
			temporaryShift = permanentShift
			continue
		}

		switch c {
		case 0:
			out = append(out, ' ')
		case 1, 2, 3:
			aux = (c - 1) * 32
			temporaryShift = 5
		case 4, 5:
			shiftTo := c - 3
			switch {
			case temporaryShift == 0:
				temporaryShift = shiftTo
			case temporaryShift == shiftTo:
				permanentShift = shiftTo
				temporaryShift = permanentShift
			default:
				permanentShift = 0
				temporaryShift = 0
			}
		case 6:
			if temporaryShift == 2 {
				temporaryShift = 3
			} else {
				out = append(out, alphabets[temporaryShift][c-6])
				temporaryShift = permanentShift
			}
		default:
			out = append(out, alphabets[temporaryShift][c-6])
			temporaryShift = permanentShift
		}
	}

	return string(out), end
}

// readZCharacters unpacks the 5-bit Z-characters from the 16-bit words
// starting at address, stopping after the word with the end bit (MSB) set.
// It returns the Z-characters and the address just past that word.
func (d *Decoder) readZCharacters(address uint32) ([]byte, uint32) {
	var zchars []byte
	for {
		word := d.mem.ReadWord(address)
		address += 2

		zchars = append(zchars,
			byte((word>>10)&0b11111),
			byte((word>>5)&0b11111),
			byte(word&0b11111),
		)

		if word&0x8000 != 0 {
			break
		}
	}
	return zchars, address
}

// Encode folds s into a dictionary lookup key: alphabet-0 characters cost
// 1 unit, other printable Z-alphabet characters cost 2, anything else
// costs 4, against a 6-unit budget (the 3-Z-characters-per-word x 2 words
// a V3 dictionary entry devotes to its key). Characters beyond the budget
// are truncated. Used both to encode a token for lookup and to build the
// vocabulary map, so the two sides compare equal keys.
func Encode(s string) string {
	const budget = 6
	spent := 0
	var out []byte
	for _, r := range s {
		var cost int
		switch {
		case isAlphabet0(byte(r)):
			cost = 1
		case isPrintableZAlphabet(byte(r)):
			cost = 2
		default:
			cost = 4
		}
		if spent+cost > budget {
			break
		}
		spent += cost
		out = append(out, byte(r))
	}
	return string(out)
}

func isAlphabet0(b byte) bool {
	for _, c := range a0Default {
		if c == b {
			return true
		}
	}
	return false
}

func isPrintableZAlphabet(b byte) bool {
	for _, c := range a1Default {
		if c == b {
			return true
		}
	}
	for _, c := range a2Default {
		if c == b {
			return true
		}
	}
	return false
}

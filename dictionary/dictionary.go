// Package dictionary parses the Z-machine's vocabulary table and tokenizes
// player input against it.
package dictionary

import (
	"strings"

	"github.com/nkessler/zmach3/zstring"
)

// Memory is the subset of zcore.Core the dictionary and tokenizer need.
type Memory interface {
	ReadByte(address uint32) uint8
	WriteByte(address uint32, value uint8)
	ReadWord(address uint32) uint16
	WriteWord(address uint32, value uint16)
}

// Dictionary holds the self-inserting break characters and the vocabulary
// map built from the story's dictionary table.
type Dictionary struct {
	breakChars  []byte
	entryLength uint8
	vocabulary  map[string]uint16
}

// Parse reads the dictionary header at dictionaryBase and builds the
// vocabulary map, decoding each entry's key text with decoder.
func Parse(mem Memory, decoder *zstring.Decoder, dictionaryBase uint16) *Dictionary {
	if dictionaryBase == 0 {
		// No dictionary: the tokenizer still splits on whitespace, it just
		// never produces a break-character token or a vocabulary match.
		return &Dictionary{vocabulary: map[string]uint16{}}
	}

	base := uint32(dictionaryBase)

	n := mem.ReadByte(base)
	breakChars := make([]byte, n)
	for i := 0; i < int(n); i++ {
		breakChars[i] = mem.ReadByte(base + 1 + uint32(i))
	}

	entryLength := mem.ReadByte(base + 1 + uint32(n))
	count := int16(mem.ReadWord(base + 2 + uint32(n)))
	entryCount := int(count)
	if entryCount < 0 {
		// A negative count means the entries are unsorted; the absolute
		// value is still the number of entries present.
		entryCount = -entryCount
	}

	entryPtr := base + 4 + uint32(n)
	vocabulary := make(map[string]uint16, entryCount)
	for i := 0; i < entryCount; i++ {
		text := decoder.Decode(entryPtr)
		vocabulary[zstring.Encode(text)] = uint16(entryPtr)
		entryPtr += uint32(entryLength)
	}

	return &Dictionary{
		breakChars:  breakChars,
		entryLength: entryLength,
		vocabulary:  vocabulary,
	}
}

// Find returns the dictionary entry address for word, or 0 if it is not in
// the vocabulary.
func (d *Dictionary) Find(word string) uint16 {
	return d.vocabulary[zstring.Encode(word)]
}

// Token is one piece of tokenized input: its text and its 1-based starting
// byte offset within the line it came from.
type Token struct {
	Text   string
	Offset int
}

func (d *Dictionary) isBreak(b byte) bool {
	for _, c := range d.breakChars {
		if c == b {
			return true
		}
	}
	return false
}

func isWhitespace(b byte) bool {
	return b == ' ' || b == '\n' || b == '\t'
}

// Tokenize yields, in one pass, each break character as a single-character
// token and each maximal run of non-whitespace, non-break characters as a
// word token, skipping whitespace entirely.
func (d *Dictionary) Tokenize(s string) []Token {
	var tokens []Token
	i := 0
	for i < len(s) {
		b := s[i]
		switch {
		case isWhitespace(b):
			i++
		case d.isBreak(b):
			tokens = append(tokens, Token{Text: string(b), Offset: i + 1})
			i++
		default:
			start := i
			for i < len(s) && !isWhitespace(s[i]) && !d.isBreak(s[i]) {
				i++
			}
			tokens = append(tokens, Token{Text: s[start:i], Offset: start + 1})
		}
	}
	return tokens
}

// HandleInput implements SREAD's input handling: lowercase and truncate the
// raw line into the text buffer, tokenize it, and write the parse buffer's
// token count and per-token records.
func (d *Dictionary) HandleInput(mem Memory, rawLine string, textBufferAddr, parseBufferAddr uint16) {
	maxTextLen := int(mem.ReadByte(uint32(textBufferAddr)))
	lowered := strings.ToLower(rawLine)
	if maxTextLen > 0 && len(lowered) > maxTextLen-1 {
		lowered = lowered[:maxTextLen-1]
	}

	textAddr := uint32(textBufferAddr) + 1
	for i := 0; i < len(lowered); i++ {
		mem.WriteByte(textAddr+uint32(i), lowered[i])
	}
	mem.WriteByte(textAddr+uint32(len(lowered)), 0)

	tokens := d.Tokenize(lowered)
	maxTokens := int(mem.ReadByte(uint32(parseBufferAddr)))
	if len(tokens) > maxTokens {
		tokens = tokens[:maxTokens]
	}
	mem.WriteByte(uint32(parseBufferAddr)+1, uint8(len(tokens)))

	for k, tok := range tokens {
		recAddr := uint32(parseBufferAddr) + 2 + 4*uint32(k)
		mem.WriteWord(recAddr, d.Find(tok.Text))
		mem.WriteByte(recAddr+2, uint8(len(tok.Text)))
		mem.WriteByte(recAddr+3, uint8(tok.Offset))
	}
}

package zmachine

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// TestSaveRestoreRoundTrip exercises the Serialize/Deserialize codec
// directly: a snapshot taken mid-execution restores identical memory, PC
// and stacks, and a ZORKID mismatch is rejected without touching state.
func TestSaveRestoreRoundTrip(t *testing.T) {
	s := newStory(0x300)
	s.header(0x40, 0, 0x40, 0x200, 0x300, 0)
	z, err := Load(s.bytes, nil)
	require.NoError(t, err)

	z.pc = 0x123
	z.stack = []uint16{1, 2, 3}
	z.frames = []Frame{
		{},
		{ReturnPC: 0x50, Locals: []uint16{7, 8}, SavedStack: []uint16{42}},
	}
	z.Core.WriteByte(0x30, 0xAB)

	blob := z.Serialize()

	z2, err := Load(s.bytes, nil)
	require.NoError(t, err)
	require.True(t, z2.Deserialize(blob), "Deserialize of a freshly-serialized blob")

	require.Equal(t, z.pc, z2.pc)
	require.Equal(t, []uint16{1, 2, 3}, z2.stack)
	require.Len(t, z2.frames, 2)
	require.Equal(t, uint32(0x50), z2.frames[1].ReturnPC)
	require.Equal(t, []uint16{7, 8}, z2.frames[1].Locals)
	require.Equal(t, []uint16{42}, z2.frames[1].SavedStack)
	require.Equal(t, uint8(0xAB), z2.Core.ReadByte(0x30))

	// Corrupt the ZORKID bytes; restore must fail without mutating state.
	badBlob := append([]byte(nil), blob...)
	badBlob[2] ^= 0xFF
	z3, err := Load(s.bytes, nil)
	require.NoError(t, err)
	z3.pc = 0x999
	require.False(t, z3.Deserialize(badBlob), "Deserialize of a ZORKID-mismatched blob")
	require.Equal(t, uint32(0x999), z3.pc, "failed Deserialize must not mutate state")
}

// TestSaveRestoreTruncatedBlobRejected checks that Deserialize rejects a blob
// missing the last byte of its final frame record.
func TestSaveRestoreTruncatedBlobRejected(t *testing.T) {
	s := newStory(0x300)
	s.header(0x40, 0, 0x40, 0x200, 0x300, 0)
	z, err := Load(s.bytes, nil)
	require.NoError(t, err)

	blob := z.Serialize()
	require.False(t, z.Deserialize(blob[:len(blob)-1]), "a truncated blob must be rejected")
}

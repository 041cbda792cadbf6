package zobject

import "testing"

// fakeMemory is a flat byte slice standing in for zcore.Core in these unit
// tests; big-endian throughout, matching the story file format.
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

// newTestTree builds a 3-object table (ids 1,2,3) at objectTableBase with
// object 1 as parent of 2 and 3 (2 first, then 3 as 2's sibling), a small
// property-defaults table, and a minimal property list for object 2.
func newTestTree(objectTableBase uint16) (*Tree, fakeMemory) {
	mem := make(fakeMemory, 4096)
	tree := NewTree(mem, objectTableBase)

	// Object 1's record: 9 bytes past the virtual base (slot 0 is the
	// null object's unused space).
	recordsBase := uint32(objectTableBase) - 2 + 55 + 9

	// Object 1: parent 0, child 2, sibling 0.
	mem.WriteByte(recordsBase+4, 0)
	mem.WriteByte(recordsBase+5, 0)
	mem.WriteByte(recordsBase+6, 2)

	// Object 2: parent 1, sibling 3, child 0. Property table at 0x200,
	// short name length 0 words, one property (number 5, length 1) then
	// terminator.
	rec2 := recordsBase + 9
	mem.WriteByte(rec2+4, 1)
	mem.WriteByte(rec2+5, 3)
	mem.WriteByte(rec2+6, 0)
	mem.WriteWord(rec2+7, 0x200)
	mem.WriteByte(0x200, 0) // short name length 0
	mem.WriteByte(0x201, (0<<5)|5)
	mem.WriteByte(0x202, 0x42)
	mem.WriteByte(0x203, 0) // terminator

	// Object 3: parent 1, sibling 0, child 0.
	rec3 := recordsBase + 18
	mem.WriteByte(rec3+4, 1)
	mem.WriteByte(rec3+5, 0)
	mem.WriteByte(rec3+6, 0)

	// Property default for property 9: 0x0005.
	mem.WriteWord(uint32(objectTableBase)+2*8, 0x0005)

	return tree, mem
}

func TestAttributeSetTestClear(t *testing.T) {
	tree, _ := newTestTree(0x100)

	if tree.TestAttribute(2, 10) {
		t.Fatal("attribute 10 should start clear")
	}
	tree.SetAttribute(2, 10)
	if !tree.TestAttribute(2, 10) {
		t.Fatal("attribute 10 should be set")
	}
	tree.ClearAttribute(2, 10)
	if tree.TestAttribute(2, 10) {
		t.Fatal("attribute 10 should be clear again")
	}
}

func TestAttributeHighWord(t *testing.T) {
	tree, _ := newTestTree(0x100)

	tree.SetAttribute(2, 20)
	if !tree.TestAttribute(2, 20) {
		t.Fatal("attribute 20 (second word) should be set")
	}
	if tree.TestAttribute(2, 4) {
		t.Fatal("attribute 4 (first word) should remain clear")
	}
}

func TestParentSiblingChild(t *testing.T) {
	tree, _ := newTestTree(0x100)

	if tree.Child(1) != 2 {
		t.Fatalf("object 1 child = %d, want 2", tree.Child(1))
	}
	if tree.Parent(2) != 1 || tree.Sibling(2) != 3 {
		t.Fatalf("object 2 parent/sibling = %d/%d, want 1/3", tree.Parent(2), tree.Sibling(2))
	}
}

func TestMoveDetachFromMiddleOfSiblingChain(t *testing.T) {
	tree, _ := newTestTree(0x100)

	// Detach 3 (not the first child) to nowhere.
	tree.Move(3, 0)

	if tree.Parent(3) != 0 {
		t.Fatalf("object 3 parent = %d, want 0", tree.Parent(3))
	}
	if tree.Sibling(2) != 0 {
		t.Fatalf("object 2 sibling after detaching 3 = %d, want 0", tree.Sibling(2))
	}
}

func TestMoveDetachFirstChildAndReinsert(t *testing.T) {
	tree, _ := newTestTree(0x100)

	// Move 2 (the first child of 1) under 3.
	tree.Move(2, 3)

	if tree.Child(1) != 3 {
		t.Fatalf("object 1 child after detaching 2 = %d, want 3 (2's old sibling)", tree.Child(1))
	}
	if tree.Parent(2) != 3 {
		t.Fatalf("object 2 parent = %d, want 3", tree.Parent(2))
	}
	if tree.Child(3) != 2 {
		t.Fatalf("object 3 child = %d, want 2", tree.Child(3))
	}
}

func TestGetPropertyPresentAndDefault(t *testing.T) {
	tree, _ := newTestTree(0x100)

	if v := tree.GetProperty(2, 5); v != 0x42 {
		t.Fatalf("property 5 = %#x, want 0x42", v)
	}
	if v := tree.GetProperty(2, 9); v != 0x0005 {
		t.Fatalf("default property 9 = %#x, want 0x0005", v)
	}
}

func TestPutProperty(t *testing.T) {
	tree, _ := newTestTree(0x100)

	tree.PutProperty(2, 5, 0x99)
	if v := tree.GetProperty(2, 5); v != 0x99 {
		t.Fatalf("property 5 after PutProperty = %#x, want 0x99", v)
	}
}

func TestNextProperty(t *testing.T) {
	tree, _ := newTestTree(0x100)

	if n := tree.NextProperty(2, 0); n != 5 {
		t.Fatalf("NextProperty(2, 0) = %d, want 5", n)
	}
	if n := tree.NextProperty(2, 5); n != 0 {
		t.Fatalf("NextProperty(2, 5) = %d, want 0 (end of chain)", n)
	}
}

// Package zobject implements the Z-machine object tree: attributes, the
// parent/sibling/child linkage, and the move (insert/detach) algorithm.
package zobject

// Memory is the subset of zcore.Core the object tree needs.
type Memory interface {
	ReadByte(address uint32) uint8
	WriteByte(address uint32, value uint8)
	ReadWord(address uint32) uint16
	WriteWord(address uint32, value uint16)
}

// recordSize is the byte size of one V3 object record: 4 attribute bytes,
// parent/sibling/child (1 byte each), and a 2-byte property table pointer.
const recordSize = 9

// Tree is a view over the object table rooted at objectTableBase. It holds
// no per-object cache; every accessor reads or writes memory directly so
// there is no stale state to track across moves.
type Tree struct {
	mem             Memory
	objectTableBase uint16
}

// NewTree builds a Tree over mem's object table at objectTableBase.
func NewTree(mem Memory, objectTableBase uint16) *Tree {
	return &Tree{mem: mem, objectTableBase: objectTableBase}
}

// objectBase is the virtual base the record addressing hangs off:
// object id's record lives at objectBase + 9*id, so the null object's
// unused slot 0 sits at the base itself and object 1 lands just past the
// 31-word property-defaults table at objectTableBase-2.
func (t *Tree) objectBase() uint32 {
	return uint32(t.objectTableBase) - 2 + 55
}

// recordBase is the byte address of object id's record.
func (t *Tree) recordBase(id uint16) uint32 {
	return t.objectBase() + uint32(id)*recordSize
}

// TestAttribute reports whether object id has attribute a (0-31) set.
func (t *Tree) TestAttribute(id uint16, a uint16) bool {
	word := t.mem.ReadWord(t.attributeWordAddress(id, a))
	mask := uint16(1) << (15 - (a & 15))
	return word&mask != 0
}

// SetAttribute sets attribute a (0-31) on object id.
func (t *Tree) SetAttribute(id uint16, a uint16) {
	addr := t.attributeWordAddress(id, a)
	mask := uint16(1) << (15 - (a & 15))
	t.mem.WriteWord(addr, t.mem.ReadWord(addr)|mask)
}

// ClearAttribute clears attribute a (0-31) on object id.
func (t *Tree) ClearAttribute(id uint16, a uint16) {
	addr := t.attributeWordAddress(id, a)
	mask := uint16(1) << (15 - (a & 15))
	t.mem.WriteWord(addr, t.mem.ReadWord(addr)&^mask)
}

func (t *Tree) attributeWordAddress(id uint16, a uint16) uint32 {
	base := t.recordBase(id)
	if a&16 != 0 {
		return base + 2
	}
	return base
}

// Parent, Sibling and Child read the corresponding single-byte link fields.
func (t *Tree) Parent(id uint16) uint16  { return uint16(t.mem.ReadByte(t.recordBase(id) + 4)) }
func (t *Tree) Sibling(id uint16) uint16 { return uint16(t.mem.ReadByte(t.recordBase(id) + 5)) }
func (t *Tree) Child(id uint16) uint16   { return uint16(t.mem.ReadByte(t.recordBase(id) + 6)) }

// SetParent, SetSibling and SetChild write the corresponding link fields.
func (t *Tree) SetParent(id, parent uint16)   { t.mem.WriteByte(t.recordBase(id)+4, uint8(parent)) }
func (t *Tree) SetSibling(id, sibling uint16) { t.mem.WriteByte(t.recordBase(id)+5, uint8(sibling)) }
func (t *Tree) SetChild(id, child uint16)     { t.mem.WriteByte(t.recordBase(id)+6, uint8(child)) }

// PropertyTableAddress is the word at offset 7 of object id's record.
func (t *Tree) PropertyTableAddress(id uint16) uint16 {
	return t.mem.ReadWord(t.recordBase(id) + 7)
}

// Move detaches x from its current parent's child list, then, unless y is
// 0 ("nowhere"), inserts x at the head of y's child list. Finally x's
// parent is set to y.
func (t *Tree) Move(x, y uint16) {
	oldParent := t.Parent(x)
	if oldParent != 0 {
		if t.Child(oldParent) == x {
			t.SetChild(oldParent, t.Sibling(x))
		} else {
			prev := t.Child(oldParent)
			for prev != 0 && t.Sibling(prev) != x {
				prev = t.Sibling(prev)
			}
			if prev != 0 {
				t.SetSibling(prev, t.Sibling(x))
			}
		}
	}

	if y != 0 {
		t.SetSibling(x, t.Child(y))
		t.SetChild(y, x)
	} else {
		t.SetSibling(x, 0)
	}
	t.SetParent(x, y)
}

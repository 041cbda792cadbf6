package zobject

// Property describes one decoded property-table entry: its number, its
// data length, and the address of its data (the byte following the
// size/number byte).
type Property struct {
	Number      uint8
	Length      uint8
	DataAddress uint32
}

// ShortNameLength is the word-count of the short name at the head of
// object id's property table.
func (t *Tree) ShortNameLength(id uint16) uint8 {
	return t.mem.ReadByte(uint32(t.PropertyTableAddress(id)))
}

// ShortNameAddress is the byte address of the encoded short-name text
// (immediately following its length byte).
func (t *Tree) ShortNameAddress(id uint16) uint32 {
	return uint32(t.PropertyTableAddress(id)) + 1
}

// firstPropertyAddress is where the property list proper begins, per the
// corrected reading of the scan-start rule: the length byte is always
// skipped, even when the short name itself is zero words long.
func (t *Tree) firstPropertyAddress(id uint16) uint32 {
	nameLength := t.ShortNameLength(id)
	return uint32(t.PropertyTableAddress(id)) + 1 + 2*uint32(nameLength)
}

// decodePropertyEntry reads the size/number byte at addr and returns the
// decoded Property plus the address of the entry immediately following it.
func (t *Tree) decodePropertyEntry(addr uint32) (Property, uint32) {
	sizeByte := t.mem.ReadByte(addr)
	number := sizeByte & 0b0001_1111
	length := (sizeByte >> 5) + 1
	dataAddress := addr + 1
	next := dataAddress + uint32(length)
	return Property{Number: number, Length: length, DataAddress: dataAddress}, next
}

// findProperty scans object id's property list for propertyNumber. It
// returns the property, whether it was found, and the address of the next
// entry following it (used by NEXTP).
func (t *Tree) findProperty(id uint16, propertyNumber uint8) (Property, bool, uint32) {
	addr := t.firstPropertyAddress(id)
	for {
		sizeByte := t.mem.ReadByte(addr)
		if sizeByte == 0 {
			return Property{}, false, 0
		}
		prop, next := t.decodePropertyEntry(addr)
		if prop.Number == propertyNumber {
			return prop, true, next
		}
		addr = next
	}
}

// GetProperty returns the value of object id's property p: a 2-byte
// property is read as a word, a 1-byte property as a zero-extended byte.
// If the property is absent, the default word from the property-defaults
// table (objectTableBase + 2*(p-1)) is returned instead.
func (t *Tree) GetProperty(id uint16, p uint8) uint16 {
	prop, found, _ := t.findProperty(id, p)
	if !found {
		defaultAddr := uint32(t.objectTableBase) + 2*uint32(p-1)
		return t.mem.ReadWord(defaultAddr)
	}
	switch prop.Length {
	case 1:
		return uint16(t.mem.ReadByte(prop.DataAddress))
	default:
		return t.mem.ReadWord(prop.DataAddress)
	}
}

// PutProperty writes value into object id's property p, symmetrically with
// GetProperty. If the property is absent nothing is written; the PUTP
// opcode does not check presence first.
func (t *Tree) PutProperty(id uint16, p uint8, value uint16) {
	prop, found, _ := t.findProperty(id, p)
	if !found {
		return
	}
	switch prop.Length {
	case 1:
		t.mem.WriteByte(prop.DataAddress, uint8(value))
	default:
		t.mem.WriteWord(prop.DataAddress, value)
	}
}

// PropertyAddress returns the data address of object id's property p, or 0
// if it is not present (GETPT's contract).
func (t *Tree) PropertyAddress(id uint16, p uint8) uint32 {
	prop, found, _ := t.findProperty(id, p)
	if !found {
		return 0
	}
	return prop.DataAddress
}

// PropertyLength returns the length of the property whose data starts at
// dataAddress, by reading the size/number byte immediately before it. It
// returns 0 for the special case dataAddress == 0.
func (t *Tree) PropertyLength(dataAddress uint32) uint16 {
	if dataAddress == 0 {
		return 0
	}
	sizeByte := t.mem.ReadByte(dataAddress - 1)
	return uint16(sizeByte>>5) + 1
}

// NextProperty implements NEXTP: given p == 0 it returns the number of the
// first property (0 if the object has none); given a present property
// number it returns the number of the following entry (0 if it was last).
func (t *Tree) NextProperty(id uint16, p uint8) uint8 {
	if p == 0 {
		addr := t.firstPropertyAddress(id)
		if t.mem.ReadByte(addr) == 0 {
			return 0
		}
		prop, _ := t.decodePropertyEntry(addr)
		return prop.Number
	}

	_, found, next := t.findProperty(id, p)
	if !found {
		return 0
	}
	if t.mem.ReadByte(next) == 0 {
		return 0
	}
	nextProp, _ := t.decodePropertyEntry(next)
	return nextProp.Number
}

package zmachine

type OperandType int
type OpcodeForm int
type OperandCount int

const (
	largeConstant OperandType = 0b00
	smallConstant OperandType = 0b01
	variableType  OperandType = 0b10
	omitted       OperandType = 0b11
)

const (
	longForm  OpcodeForm = 0b00
	shortForm OpcodeForm = 0b10
	varForm   OpcodeForm = 0b11
)

const (
	OP0 OperandCount = iota
	OP1
	OP2
	VAR
)

// Operand is one decoded instruction operand: either an immediate value or
// a variable reference yet to be dereferenced.
type Operand struct {
	operandType OperandType
	value       uint16
}

// Value dereferences the operand, popping the data stack if it names the
// stack-top pseudo-variable. Operand fetches are never indirect; only the
// handful of opcodes that treat their operand as a variable NUMBER (INC,
// DEC, DLESS?, IGRTR?, SET, VALUE, POP) need the indirect peek/poke-in-place
// behavior, and they ask for it explicitly via readVariable/writeVariable
// after obtaining the variable number through this same Value call.
func (operand *Operand) Value(z *ZMachine) uint16 {
	switch operand.operandType {
	case largeConstant, smallConstant:
		return operand.value
	case variableType:
		return z.readVariable(uint8(operand.value), false)
	default:
		return 0
	}
}

// Opcode is one decoded instruction: its form, operand count, numeric
// opcode, and already-decoded operands (but not yet executed).
type Opcode struct {
	opcodeByte   uint8
	operandCount OperandCount
	opcodeForm   OpcodeForm
	opcodeNumber uint8
	operands     []Operand
}

func parseVariableOperands(z *ZMachine, opcode *Opcode) {
	operandTypeByte := z.readByteIncPC()

	for varIx := 0; varIx < 4; varIx++ {
		operandType := OperandType((operandTypeByte >> (2 * (3 - varIx))) & 0b11)
		if operandType == omitted {
			break
		}

		switch operandType {
		case smallConstant, variableType:
			opcode.operands = append(opcode.operands, Operand{operandType: operandType, value: uint16(z.readByteIncPC())})
		case largeConstant:
			opcode.operands = append(opcode.operands, Operand{operandType: operandType, value: z.readWordIncPC()})
		}
	}
}

// ParseOpcode decodes one instruction at the current PC, advancing it past
// the opcode byte, any operand-type bytes, and the operands themselves. V3
// has no extended form (that's V5+ only), so only long, short, and
// variable forms are handled.
func ParseOpcode(z *ZMachine) Opcode {
	opcodeByte := z.readByteIncPC()
	opcode := Opcode{
		opcodeForm: OpcodeForm(opcodeByte >> 6),
		opcodeByte: opcodeByte,
	}

	switch {
	case opcode.opcodeForm == varForm:
		opcode.opcodeNumber = opcodeByte & 0b1_1111
		opcode.operandCount = VAR
		if (opcodeByte>>5)&1 == 0 {
			opcode.operandCount = OP2
		}
		parseVariableOperands(z, &opcode)

	case opcode.opcodeForm == shortForm:
		opcode.opcodeNumber = opcodeByte & 0b1111
		operandType := OperandType((opcodeByte >> 4) & 0b11)

		switch operandType {
		case largeConstant:
			opcode.operands = append(opcode.operands, Operand{operandType: operandType, value: z.readWordIncPC()})
			opcode.operandCount = OP1
		case smallConstant, variableType:
			opcode.operands = append(opcode.operands, Operand{operandType: operandType, value: uint16(z.readByteIncPC())})
			opcode.operandCount = OP1
		case omitted:
			opcode.operandCount = OP0
		}

	default: // longForm
		opcode.opcodeNumber = opcodeByte & 0b1_1111
		opcode.opcodeForm = longForm
		opcode.operandCount = OP2

		operand1Type := smallConstant
		operand2Type := smallConstant
		if (opcodeByte>>6)&1 == 1 {
			operand1Type = variableType
		}
		if (opcodeByte>>5)&1 == 1 {
			operand2Type = variableType
		}

		for _, t := range []OperandType{operand1Type, operand2Type} {
			opcode.operands = append(opcode.operands, Operand{operandType: t, value: uint16(z.readByteIncPC())})
		}
	}

	return opcode
}

package zmachine

// Frame is one activation record on the machine's call stack. The live
// program counter lives directly on ZMachine; a Frame only holds what
// CallRoutine must save and Return must restore: where to resume the
// caller (the call site's store byte), the caller's own data stack, and
// the callee's locals. The result destination is not captured here -
// Return reads the store byte at the resumed PC.
type Frame struct {
	ReturnPC uint32
	Locals   []uint16

	// SavedStack is the caller's data stack, parked here for the duration
	// of the call; CALL always hands the callee a fresh empty stack.
	SavedStack []uint16
}

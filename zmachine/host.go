package zmachine

// Host is the set of capabilities every front end must provide. Every
// method may block (reading a line, waiting on a save dialog); since the
// engine calls these synchronously from inside Step, blocking here is
// exactly the cooperative suspension the step loop promises: control
// returns to Step only once the callout completes, one callout at a time,
// strictly ordered.
type Host interface {
	// Print delivers text output. scripting mirrors the mode-flags
	// transcript bit at the time of the call.
	Print(text string, scripting bool)

	// Read requests one line of input, at most maxLen bytes.
	Read(maxLen int) string

	// Highlight is invoked when the mode-flags fixed-pitch bit changes
	// between one print and the next.
	Highlight(fixedPitch bool)

	// Save offers a serialized continuation to the host for durable
	// storage. It reports whether the save succeeded.
	Save(blob []byte) bool

	// Restore asks the host for a previously saved blob. ok is false if
	// there is nothing to restore or the host declined.
	Restore() (blob []byte, ok bool)
}

// Restarter is an optional capability invoked after every (re)init,
// including the initial boot.
type Restarter interface {
	Restarted()
}

// StatusReporter is an optional capability driving a score/moves or
// time-of-day status line.
type StatusReporter interface {
	Status(text string, v18, v17 int16)
}

// Splitter is an optional capability implementing the split-screen opcode.
type Splitter interface {
	Split(height uint16)
}

// Screener is an optional capability implementing the SCREEN opcode
// (selecting the active output window).
type Screener interface {
	Screen(window uint16)
}

// Verifier lets a host override the default checksum-based VERIFY opcode
// behavior.
type Verifier interface {
	Verify() bool
}

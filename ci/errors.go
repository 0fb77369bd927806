package ci

import (
	"errors"
)

// Codec errors.
var (
	// ErrParam parameter is invalid
	ErrParam = errors.New("ci: invalid parameters")
	// ErrEnvelope payload does not carry the MIDI-CI magic bytes
	ErrEnvelope = errors.New("ci: not a MIDI-CI payload")
	// ErrMessageTooShort payload is shorter than its message type requires
	ErrMessageTooShort = errors.New("ci: message too short")
	// ErrSubID2Unknown sub-ID 2 is not a known MIDI-CI message type
	ErrSubID2Unknown = errors.New("ci: unknown sub-ID 2")
	// ErrLengthExceedsBuffer a declared sub-length runs past the received buffer
	ErrLengthExceedsBuffer = errors.New("ci: declared length exceeds buffer")
	// ErrBodyTooLarge body would require more chunks than the int14 ceiling
	ErrBodyTooLarge = errors.New("ci: body exceeds maximum chunk count")
	// ErrNotSysEx byte stream is not a complete 0xF0..0xF7 SysEx frame
	ErrNotSysEx = errors.New("ci: not a SysEx frame")
)

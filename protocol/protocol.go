// Package protocol implements the motorhead line protocol: comma separated
// ASCII command frames in, info/echo/status/startup lines out.
package protocol

// Version is the protocol revision reported by the host tools
const Version = "0.1.0"

const (
	// LineMax is the default command line buffer size, terminator included
	LineMax = 64

	// OutputMax bounds the pending output of one firmware loop iteration
	OutputMax = 512

	// Separator between frame and report fields
	Separator = ','

	// LineEnd terminates every line the firmware sends
	LineEnd = "\r\n"
)

// Line prefixes
const (
	PrefixInfo     = "I:"
	PrefixPosition = "P:"
	PrefixStartup  = "S:"
)

// Fixed info messages
const (
	Banner            = "motorhead ready"
	ReplyWrongFields  = "Invalid frame: wrong number of fields"
	ReplyLineTooLong  = "Invalid frame: line too long"
	ReplyUnknownShape = "Invalid frame: unsupported shape"
)

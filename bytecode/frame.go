package bytecode

import "fmt"

// FrameHeaderSize is the number of cells between a frame's arguments and
// its registers.
const FrameHeaderSize = 4

// Frame header cells, relative to the frame pointer.
const (
	HeaderCallee     = -1
	HeaderReturnPC   = -2
	HeaderCallerCode = -3
	HeaderCallerFP   = -4
)

// MaxRegisters is the number of locals plus temporaries a signed register
// byte can address.
const MaxRegisters = 128 - FrameHeaderSize

// MaxArguments is the largest number of parameters a function can take.
const MaxArguments = 127

// RegisterOperand returns the frame-relative encoding of register rN.
func RegisterOperand(n int) int {
	return -(FrameHeaderSize + 1 + n)
}

// RegisterNumber returns N for the encoding of register rN.
func RegisterNumber(enc int) int {
	return -enc - FrameHeaderSize - 1
}

// RegisterName formats a frame-relative register encoding.
func RegisterName(enc int) string {
	switch {
	case enc >= 0:
		return fmt.Sprintf("a%d", enc)
	case enc >= -FrameHeaderSize:
		return fmt.Sprintf("h%d", -enc-1)
	default:
		return fmt.Sprintf("r%d", RegisterNumber(enc))
	}
}

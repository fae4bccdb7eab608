// Package bytecode defines compiled code objects and the instruction
// encoding shared by the compiler, the interpreter and the disassembler.
//
// # Instruction encoding
//
// An instruction is a one-byte opcode followed by the operands listed in
// its [op.Info]: a signed register byte, an unsigned constant index, a
// signed 8-bit immediate, a signed 16-bit little-endian jump displacement
// relative to the end of the instruction, an unsigned 32-bit little-endian
// global slot index, or an argument count.
//
// # Frame layout
//
// Registers are addressed relative to a frame pointer fp. Non-negative
// encodings address the arguments passed by the caller (a0 at fp+0, a1 at
// fp+1, ...). Below fp sits a header of FrameHeaderSize cells:
//
//	fp-1  callee (borrowed from the caller's call block)
//	fp-2  return program counter
//	fp-3  caller code object
//	fp-4  caller frame pointer
//
// Locals and temporaries follow downward: register rN lives at
// fp-FrameHeaderSize-1-N. A call moves fp to just above the first argument
// of the caller's call block, so no separate frame stack exists.
//
// # Images
//
// [Image] is a plain-data snapshot of a code object tree that can be
// serialized with msgpack and loaded back into a machine.
package bytecode

package bytecode

import (
	"fmt"

	"github.com/clovervm/clover/object"
	"github.com/clovervm/clover/op"
	"github.com/vmihailenco/msgpack/v5"
)

// ImageVersion is bumped whenever the instruction set or Image layout
// changes incompatibly.
const ImageVersion = 1

// ConstantKind tags an image constant.
type ConstantKind uint8

const (
	ConstInt ConstantKind = iota + 1
	ConstString
	ConstCode
)

// Constant is one constant-pool entry of an image.
type Constant struct {
	Kind ConstantKind `msgpack:"k"`
	Int  int64        `msgpack:"i,omitempty"`
	Str  string       `msgpack:"s,omitempty"`
	Code *Image       `msgpack:"c,omitempty"`
}

// Image is a plain-data snapshot of a code object and its nested
// functions.
type Image struct {
	Version      int        `msgpack:"version"`
	Name         string     `msgpack:"name"`
	Filename     string     `msgpack:"filename,omitempty"`
	Source       string     `msgpack:"source,omitempty"`
	Instructions []byte     `msgpack:"instructions"`
	Offsets      []uint32   `msgpack:"offsets"`
	Constants    []Constant `msgpack:"constants"`
	NParameters  int        `msgpack:"nparams"`
	NLocals      int        `msgpack:"nlocals"`
	NTemporaries int        `msgpack:"ntemps"`
	// Slots lists the names of the code's own scope in slot order. Reserved
	// slots are empty strings.
	Slots []string `msgpack:"slots"`
}

// Image snapshots the code object.
func (c *Code) Image() (*Image, error) {
	img := &Image{
		Version:      ImageVersion,
		Name:         c.Name,
		Filename:     c.Filename,
		Source:       c.Source,
		Instructions: append([]byte(nil), c.Instructions...),
		Offsets:      append([]uint32(nil), c.Offsets...),
		NParameters:  c.NParameters,
		NLocals:      c.NLocals,
		NTemporaries: c.NTemporaries,
	}
	for _, k := range c.Constants {
		switch {
		case k.IsSmi():
			img.Constants = append(img.Constants, Constant{Kind: ConstInt, Int: k.Int()})
		case object.IsString(k):
			img.Constants = append(img.Constants, Constant{Kind: ConstString, Str: object.StringOf(k)})
		case IsCode(k):
			child, err := FromValue(k).Image()
			if err != nil {
				return nil, err
			}
			img.Constants = append(img.Constants, Constant{Kind: ConstCode, Code: child})
		default:
			return nil, fmt.Errorf("code %s: constant %s cannot be serialized", c.Name, object.Str(k))
		}
	}
	if c.Scope != nil {
		for i := 0; i < c.Scope.Len(); i++ {
			name := c.Scope.Name(int32(i))
			if name.IsNotPresent() {
				img.Slots = append(img.Slots, "")
			} else {
				img.Slots = append(img.Slots, object.StringOf(name))
			}
		}
	}
	return img, nil
}

// Marshal serializes the code object tree.
func Marshal(c *Code) ([]byte, error) {
	img, err := c.Image()
	if err != nil {
		return nil, err
	}
	return msgpack.Marshal(img)
}

// Unmarshal decodes an image produced by Marshal.
func Unmarshal(data []byte) (*Image, error) {
	var img Image
	if err := msgpack.Unmarshal(data, &img); err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	if img.Version != ImageVersion {
		return nil, fmt.Errorf("image version %d, want %d", img.Version, ImageVersion)
	}
	return &img, nil
}

// Validate checks that every instruction decodes and every operand is in
// range for the image.
func (img *Image) Validate() error {
	instrs, err := DecodeAll(img.Instructions)
	if err != nil {
		return fmt.Errorf("%s: %w", img.Name, err)
	}
	if len(img.Offsets) != len(img.Instructions) {
		return fmt.Errorf("%s: offset table has %d entries for %d bytes", img.Name, len(img.Offsets), len(img.Instructions))
	}
	for _, ins := range instrs {
		for n, o := range ins.Info.Operands {
			if o == op.Const && ins.Args[n] >= len(img.Constants) {
				return fmt.Errorf("%s: constant %d out of range at %d", img.Name, ins.Args[n], ins.Offset)
			}
		}
		if target, ok := ins.JumpTarget(); ok && (target < 0 || target >= len(img.Instructions)) {
			return fmt.Errorf("%s: jump target %d out of range at %d", img.Name, target, ins.Offset)
		}
	}
	for _, k := range img.Constants {
		if k.Kind == ConstCode {
			if k.Code == nil {
				return fmt.Errorf("%s: empty code constant", img.Name)
			}
			if err := k.Code.Validate(); err != nil {
				return err
			}
		}
	}
	return nil
}

package vm

import "fmt"

// InterpreterType selects the backend that interprets a transaction's code.
// The numeric values are part of the transaction hash and must stay stable.
type InterpreterType uint8

const (
	// EVM runs the input (create) or the stored code (call) as EVM bytecode.
	EVM InterpreterType = iota
	// Native runs a registered Go program named by a pvm artifact.
	Native
)

// String implements fmt.Stringer.
func (t InterpreterType) String() string {
	switch t {
	case EVM:
		return "evm"
	case Native:
		return "native"
	}
	return fmt.Sprintf("unknown(%d)", uint8(t))
}

// ParseInterpreterType maps the textual form back to the tag. "riscv" is
// accepted as an alias of native, matching artifacts built for the RISC-V
// toolchain.
func ParseInterpreterType(s string) (InterpreterType, error) {
	switch s {
	case "evm":
		return EVM, nil
	case "native", "riscv":
		return Native, nil
	}
	return 0, fmt.Errorf("unknown interpreter type %q", s)
}

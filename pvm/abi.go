package pvm

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// ErrMalformedInput is returned when call data does not follow the
// length-prefixed argument layout.
var ErrMalformedInput = errors.New("pvm: malformed call data")

// maxArgs bounds the argument count read from untrusted call data.
const maxArgs = 1 << 16

// CombineParameters encodes a program's argv into call data: the argument
// count as a little-endian uint64, followed by every argument as a
// little-endian uint64 length and the raw bytes.
func CombineParameters(args [][]byte) []byte {
	size := 8
	for _, a := range args {
		size += 8 + len(a)
	}
	out := make([]byte, 0, size)
	out = binary.LittleEndian.AppendUint64(out, uint64(len(args)))
	for _, a := range args {
		out = binary.LittleEndian.AppendUint64(out, uint64(len(a)))
		out = append(out, a...)
	}
	return out
}

// CombineStrings is CombineParameters for textual arguments.
func CombineStrings(args ...string) []byte {
	raw := make([][]byte, len(args))
	for i, a := range args {
		raw[i] = []byte(a)
	}
	return CombineParameters(raw)
}

// CutParameters is the inverse of CombineParameters. Empty call data decodes
// to no arguments. Trailing bytes after the last argument are rejected.
func CutParameters(data []byte) ([][]byte, error) {
	if len(data) == 0 {
		return nil, nil
	}
	if len(data) < 8 {
		return nil, fmt.Errorf("%w: short argument count", ErrMalformedInput)
	}
	n := binary.LittleEndian.Uint64(data)
	if n > maxArgs {
		return nil, fmt.Errorf("%w: %d arguments", ErrMalformedInput, n)
	}
	data = data[8:]

	args := make([][]byte, 0, n)
	for i := uint64(0); i < n; i++ {
		if len(data) < 8 {
			return nil, fmt.Errorf("%w: argument %d: short length", ErrMalformedInput, i)
		}
		size := binary.LittleEndian.Uint64(data)
		data = data[8:]
		if size > uint64(len(data)) {
			return nil, fmt.Errorf("%w: argument %d: want %d bytes, have %d", ErrMalformedInput, i, size, len(data))
		}
		args = append(args, data[:size:size])
		data = data[size:]
	}
	if len(data) != 0 {
		return nil, fmt.Errorf("%w: %d trailing bytes", ErrMalformedInput, len(data))
	}
	return args, nil
}

// Package host defines the boundary to the external disassembly and
// program-model service. The analysis core only ever talks to a
// Provider; concrete backends (an ELF image, a remote RE tool) live
// behind it.
package host

import (
	"context"
	"errors"
)

// Instruction is one decoded line of disassembly as reported by the
// provider.
type Instruction struct {
	Address uint64
	Bytes   []byte
	Text    string // formatted disassembly, mnemonic first
}

// Function is resolved symbol metadata for a function entry point.
type Function struct {
	Name       string
	EntryPoint uint64
}

// Provider is the read/write surface of the external service. All
// calls are blocking round-trips; implementations must honor ctx
// cancellation where they can.
type Provider interface {
	// ReadWord reads the 32-bit little-endian word at address.
	ReadWord(ctx context.Context, address uint64) (uint32, error)

	// LookupFunction reports the function beginning exactly at
	// address, or (nil, nil) when no function starts there.
	LookupFunction(ctx context.Context, address uint64) (*Function, error)

	// Disassemble returns up to count decoded instructions starting
	// at address, in ascending address order.
	Disassemble(ctx context.Context, address uint64, count int) ([]Instruction, error)

	// RenameSymbol renames the symbol at address. (write)
	RenameSymbol(ctx context.Context, address uint64, newName string) error

	// SetComment attaches a comment at address. (write)
	SetComment(ctx context.Context, address uint64, text string) error
}

// CommentReader is an optional Provider upgrade for backends that can
// read annotations back. Post-write verification uses it when present.
type CommentReader interface {
	GetComment(ctx context.Context, address uint64) (string, error)
}

// ErrUnmapped is returned when an address is not covered by the
// provider's memory map.
var ErrUnmapped = errors.New("address not mapped")

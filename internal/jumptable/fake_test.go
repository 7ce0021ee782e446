package jumptable

import (
	"context"
	"errors"
	"fmt"

	"armlens/internal/host"
)

// fakeHost is an in-memory program model for tests. Words maps slot
// addresses to raw table entries; Funcs maps entry points to names.
// Code marks addresses whose disassembly should look plausible.
type fakeHost struct {
	words    map[uint64]uint32
	funcs    map[uint64]string
	code     map[uint64]bool
	comments map[uint64]string

	failReads   bool
	failLookups bool
	dropRenames bool // accept RenameSymbol calls but do not apply them

	lookupCalls int
}

func newFakeHost() *fakeHost {
	return &fakeHost{
		words:    map[uint64]uint32{},
		funcs:    map[uint64]string{},
		code:     map[uint64]bool{},
		comments: map[uint64]string{},
	}
}

func (f *fakeHost) ReadWord(ctx context.Context, addr uint64) (uint32, error) {
	if f.failReads {
		return 0, errors.New("backing service unavailable")
	}
	w, ok := f.words[addr]
	if !ok {
		return 0, host.ErrUnmapped
	}
	return w, nil
}

func (f *fakeHost) LookupFunction(ctx context.Context, addr uint64) (*host.Function, error) {
	f.lookupCalls++
	if f.failLookups {
		return nil, errors.New("symbol service unavailable")
	}
	name, ok := f.funcs[addr]
	if !ok {
		return nil, nil
	}
	return &host.Function{Name: name, EntryPoint: addr}, nil
}

func (f *fakeHost) Disassemble(ctx context.Context, addr uint64, count int) ([]host.Instruction, error) {
	out := make([]host.Instruction, 0, count)
	for i := 0; i < count; i++ {
		va := addr + uint64(i*4)
		text := fmt.Sprintf(".word 0x%08X", i)
		if f.code[addr] {
			text = "push {r4, lr}"
		}
		out = append(out, host.Instruction{Address: va, Text: text})
	}
	return out, nil
}

func (f *fakeHost) RenameSymbol(ctx context.Context, addr uint64, name string) error {
	if f.dropRenames {
		return nil
	}
	f.funcs[addr] = name
	return nil
}

func (f *fakeHost) SetComment(ctx context.Context, addr uint64, text string) error {
	f.comments[addr] = text
	return nil
}

func (f *fakeHost) GetComment(ctx context.Context, addr uint64) (string, error) {
	return f.comments[addr], nil
}

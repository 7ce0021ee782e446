package host

import (
	"context"
	"encoding/binary"
	"testing"

	lru "github.com/hashicorp/golang-lru/v2"

	"armlens/internal/elfx"
)

// memELFHost builds an ELFHost over an in-memory image filled with
// ARM nops, mapped at 0x00100000.
func memELFHost(t *testing.T, words int) *ELFHost {
	t.Helper()
	buf := make([]byte, words*4)
	for i := 0; i < words; i++ {
		binary.LittleEndian.PutUint32(buf[i*4:], 0xE1A00000) // MOV R0, R0
	}
	img := &elfx.Image{
		All:   buf,
		Loads: []elfx.Seg{{Vaddr: 0x00100000, Off: 0, Filesz: uint64(len(buf))}},
	}
	cache, err := lru.New[disasmKey, []Instruction](disasmCacheSize)
	if err != nil {
		t.Fatal(err)
	}
	return &ELFHost{
		img:      img,
		renames:  make(map[uint64]string),
		comments: make(map[uint64]string),
		disasm:   cache,
	}
}

func TestDisassembleDistinctWindowLengths(t *testing.T) {
	// Two windows at the same address with different counts must stay
	// distinct cache entries, including counts that agree mod 256.
	h := memELFHost(t, 300)
	ctx := context.Background()

	long, err := h.Disassemble(ctx, 0x00100000, 260)
	if err != nil {
		t.Fatal(err)
	}
	if len(long) != 260 {
		t.Fatalf("long window = %d instructions, want 260", len(long))
	}

	short, err := h.Disassemble(ctx, 0x00100000, 4)
	if err != nil {
		t.Fatal(err)
	}
	if len(short) != 4 {
		t.Fatalf("short window after long = %d instructions, want 4", len(short))
	}

	long2, err := h.Disassemble(ctx, 0x00100000, 260)
	if err != nil {
		t.Fatal(err)
	}
	if len(long2) != 260 {
		t.Fatalf("long window after short = %d instructions, want 260", len(long2))
	}
}

func TestDisassembleCachedWindowStable(t *testing.T) {
	h := memELFHost(t, 16)
	ctx := context.Background()

	first, err := h.Disassemble(ctx, 0x00100000, 8)
	if err != nil {
		t.Fatal(err)
	}
	second, err := h.Disassemble(ctx, 0x00100000, 8)
	if err != nil {
		t.Fatal(err)
	}
	if len(first) != len(second) {
		t.Fatalf("cached window length changed: %d then %d", len(first), len(second))
	}
	for i := range first {
		if first[i].Address != second[i].Address || first[i].Text != second[i].Text {
			t.Fatalf("cached window differs at %d: %+v vs %+v", i, first[i], second[i])
		}
	}
}

func TestReadWordUnmapped(t *testing.T) {
	h := memELFHost(t, 4)
	if _, err := h.ReadWord(context.Background(), 0xDEAD0000); err == nil {
		t.Fatal("expected an unmapped-address error")
	}
}

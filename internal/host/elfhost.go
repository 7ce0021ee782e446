package host

import (
	"context"
	"encoding/binary"
	"fmt"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/ianlancetaylor/demangle"
	"golang.org/x/arch/arm/armasm"

	"armlens/internal/elfx"
	"armlens/internal/logging"
)

// disasmCacheSize bounds the number of cached disassembly windows.
const disasmCacheSize = 128

// disasmKey identifies one cached window. Address and count both key
// the entry so windows of different lengths at the same address never
// alias.
type disasmKey struct {
	addr  uint64
	count int
}

// ELFHost serves a firmware ELF image as a Provider. The image itself
// is read-only; renames and comments are kept as a session-local
// overlay so that post-write verification can observe them.
type ELFHost struct {
	img *elfx.Image

	mu       sync.Mutex
	renames  map[uint64]string
	comments map[uint64]string
	disasm   *lru.Cache[disasmKey, []Instruction]
}

// OpenELF opens the image at path and wraps it as a Provider.
func OpenELF(path string) (*ELFHost, error) {
	img, err := elfx.Open(path)
	if err != nil {
		return nil, err
	}
	cache, err := lru.New[disasmKey, []Instruction](disasmCacheSize)
	if err != nil {
		img.Close()
		return nil, err
	}

	if logging.IsDebug() {
		lg := logging.NewLogger()
		lg.Debug("opened image",
			"path", path,
			"functions", len(img.Funcs),
			"text", fmt.Sprintf("0x%x+0x%x", img.Text.VA, img.Text.Size))
	}

	return &ELFHost{
		img:      img,
		renames:  make(map[uint64]string),
		comments: make(map[uint64]string),
		disasm:   cache,
	}, nil
}

// Close releases the underlying image.
func (h *ELFHost) Close() error {
	return h.img.Close()
}

// Image exposes the underlying ELF image for section queries.
func (h *ELFHost) Image() *elfx.Image {
	return h.img
}

func (h *ELFHost) ReadWord(ctx context.Context, address uint64) (uint32, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	b, ok := h.img.ReadBytesVA(address, 4)
	if !ok {
		return 0, fmt.Errorf("read word at 0x%08X: %w", address, ErrUnmapped)
	}
	return binary.LittleEndian.Uint32(b), nil
}

func (h *ELFHost) LookupFunction(ctx context.Context, address uint64) (*Function, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	h.mu.Lock()
	rename, renamed := h.renames[address&^1]
	h.mu.Unlock()

	sym, ok := h.img.FuncAt(address)
	if !ok {
		if renamed {
			// A rename overlay counts as a function even on a
			// stripped image.
			return &Function{Name: rename, EntryPoint: address &^ 1}, nil
		}
		return nil, nil
	}

	name := sym.Name
	if renamed {
		name = rename
	} else if d, err := demangle.ToString(name); err == nil {
		name = d
	}
	return &Function{Name: name, EntryPoint: sym.Addr}, nil
}

func (h *ELFHost) Disassemble(ctx context.Context, address uint64, count int) ([]Instruction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if count <= 0 {
		return nil, nil
	}

	key := disasmKey{addr: address, count: count}
	h.mu.Lock()
	cached, ok := h.disasm.Get(key)
	h.mu.Unlock()
	if ok {
		return cached, nil
	}

	data, mapped := h.img.ReadBytesVA(address, count*4)
	if !mapped {
		return nil, fmt.Errorf("disassemble at 0x%08X: %w", address, ErrUnmapped)
	}

	out := make([]Instruction, 0, count)
	for i := 0; i+4 <= len(data); i += 4 {
		va := address + uint64(i)
		raw := data[i : i+4]
		text := decodeARM(raw)
		out = append(out, Instruction{
			Address: va,
			Bytes:   append([]byte(nil), raw...),
			Text:    text,
		})
	}

	h.mu.Lock()
	h.disasm.Add(key, out)
	h.mu.Unlock()
	return out, nil
}

func (h *ELFHost) RenameSymbol(ctx context.Context, address uint64, newName string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, ok := h.img.VA2Off(address &^ 1); !ok {
		return fmt.Errorf("rename at 0x%08X: %w", address, ErrUnmapped)
	}
	h.mu.Lock()
	h.renames[address&^1] = newName
	h.mu.Unlock()
	return nil
}

func (h *ELFHost) SetComment(ctx context.Context, address uint64, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, ok := h.img.VA2Off(address &^ 1); !ok {
		return fmt.Errorf("comment at 0x%08X: %w", address, ErrUnmapped)
	}
	h.mu.Lock()
	h.comments[address&^1] = text
	h.mu.Unlock()
	return nil
}

// GetComment implements CommentReader over the session overlay.
func (h *ELFHost) GetComment(ctx context.Context, address uint64) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.comments[address&^1], nil
}

// decodeARM renders one ARM-mode instruction word, falling back to a
// .word directive for encodings armasm cannot decode.
func decodeARM(raw []byte) string {
	inst, err := armasm.Decode(raw, armasm.ModeARM)
	if err != nil {
		return fmt.Sprintf(".word 0x%08X", binary.LittleEndian.Uint32(raw))
	}
	return armasm.GNUSyntax(inst)
}

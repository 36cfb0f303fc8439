// Package constpool implements the literal pool shared by the functions of one
// compilation unit.
//
// Design: entries are deduplicated by exact (bits, type) identity. Insertion
// is guarded by a mutex so functions may be selected concurrently against one
// pool and still share entries.
package constpool

import (
	"errors"
	"fmt"
	"io"
	"math"
	"math/bits"
	"sort"
	"sync"

	"github.com/GriffinCanCode/a64isel/pkg/dag"
	"github.com/GriffinCanCode/a64isel/pkg/logger"
	"github.com/GriffinCanCode/a64isel/pkg/target"
)

var (
	// ErrUnsupportedCodeModel is returned by AddressOf outside the small code model
	ErrUnsupportedCodeModel = errors.New("constpool: only the small code model is supported")
	// ErrUnknownEntry is returned for handles the pool never issued
	ErrUnknownEntry = errors.New("constpool: unknown entry")
)

// Handle identifies a pool entry
type Handle int

// Entry is one deduplicated constant
type Entry struct {
	Handle Handle
	Bits   uint64 // raw bit pattern, truncated to Type
	Type   dag.VT
	Align  int
}

// Label returns the assembler label of the entry
func (e Entry) Label() string {
	return Label(e.Handle)
}

// Label returns the assembler label for handle h
func Label(h Handle) string {
	return fmt.Sprintf(".LCPI%d", int(h))
}

// Address is the two-part small-code-model address of an entry: ADRP loads
// the 4KiB page holding Page, and the low 12 bits are added via Lo12.
type Address struct {
	Handle Handle
	Page   string
	Lo12   string
}

type key struct {
	bits uint64
	vt   dag.VT
}

// Pool holds the literal pool of one compilation unit
type Pool struct {
	mu      sync.Mutex
	model   target.CodeModel
	entries []Entry
	index   map[key]Handle
}

// New creates an empty pool for the given code model
func New(model target.CodeModel) *Pool {
	return &Pool{
		model: model,
		index: make(map[key]Handle),
	}
}

// Intern returns the entry holding bits at type vt, creating it on first use.
// Interning the same (bits, vt) twice yields the same handle; the entry keeps
// the largest alignment requested.
func (p *Pool) Intern(bits uint64, vt dag.VT, align int) Handle {
	if w := vt.Bits(); w > 0 && w < 64 {
		bits &= 1<<uint(w) - 1
	}
	if align <= 0 {
		align = vt.Bytes()
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	k := key{bits: bits, vt: vt}
	if h, ok := p.index[k]; ok {
		if align > p.entries[h].Align {
			p.entries[h].Align = align
		}
		return h
	}

	h := Handle(len(p.entries))
	p.entries = append(p.entries, Entry{Handle: h, Bits: bits, Type: vt, Align: align})
	p.index[k] = h
	logger.LogPoolEntry(Label(h), vt.String(), bits)
	return h
}

// Entry returns the entry for h
func (p *Pool) Entry(h Handle) (Entry, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if h < 0 || int(h) >= len(p.entries) {
		return Entry{}, fmt.Errorf("%w: %d", ErrUnknownEntry, int(h))
	}
	return p.entries[h], nil
}

// Len returns the number of distinct entries
func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.entries)
}

// Entries returns a snapshot of all entries in handle order
func (p *Pool) Entries() []Entry {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]Entry, len(p.entries))
	copy(out, p.entries)
	return out
}

// AddressOf returns the page/low-12 address pair of h
func (p *Pool) AddressOf(h Handle) (Address, error) {
	if p.model != target.CodeModelSmall {
		return Address{}, fmt.Errorf("%w (configured %q)", ErrUnsupportedCodeModel, p.model)
	}
	e, err := p.Entry(h)
	if err != nil {
		return Address{}, err
	}
	return Address{
		Handle: h,
		Page:   e.Label(),
		Lo12:   ":lo12:" + e.Label(),
	}, nil
}

// Emit writes the pool as mergeable read-only data sections, grouped by
// entry size.
func (p *Pool) Emit(w io.Writer) error {
	entries := p.Entries()
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Type.Bytes() > entries[j].Type.Bytes()
	})

	section := 0
	for _, e := range entries {
		size := e.Type.Bytes()
		if size != section {
			section = size
			if _, err := fmt.Fprintf(w, "\t.section\t.rodata.cst%d,\"aM\",@progbits,%d\n", size, size); err != nil {
				return err
			}
		}
		if _, err := fmt.Fprintf(w, "\t.p2align\t%d\n%s:\n", bits.TrailingZeros(uint(e.Align)), e.Label()); err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, "\t%s\t%#x%s\n", directive(size), e.Bits, comment(e)); err != nil {
			return err
		}
	}
	return nil
}

func directive(size int) string {
	switch size {
	case 1:
		return ".byte"
	case 2:
		return ".hword"
	case 4:
		return ".word"
	default:
		return ".xword"
	}
}

func comment(e Entry) string {
	switch e.Type {
	case dag.F32:
		return fmt.Sprintf("\t// float %g", math.Float32frombits(uint32(e.Bits)))
	case dag.F64:
		return fmt.Sprintf("\t// double %g", math.Float64frombits(e.Bits))
	}
	return ""
}

// Package heap implements a tracing garbage collector: a stop-the-world
// mark-sweep collector over a doubly-linked list of cells, with a
// bounded mark stack and a stack-full handshake so kind-specific Scan
// hooks can be written as if the stack were infinite. The collector is a
// plain struct passed explicitly rather than relying on package-level
// state.
package heap

import "esrt/pkg/errors"

// Kind identifies the concrete shape of a cell for diagnostics and for
// dispatch tables that want to avoid a full interface call.
type Kind uint8

const (
	KindObject Kind = iota
	KindScript
	KindScriptFunction
	KindEnvDeclarative
	KindEnvObject
	KindEnvFunction
	KindEnvGlobal
	KindEnvModule
	KindRegExpModel
	KindSymbol
	KindBigInt
	KindPrivateName
	KindPrivateEnvironment
	KindPropertyKeyList
	KindPromiseReactionList
	KindModule
	KindAsyncFromSyncIterator
	KindResolveBindingList
)

func (k Kind) String() string {
	names := [...]string{
		"Object", "Script", "ScriptFunction", "EnvDeclarative", "EnvObject",
		"EnvFunction", "EnvGlobal", "EnvModule", "RegExpModel", "Symbol",
		"BigInt", "PrivateName", "PrivateEnvironment", "PropertyKeyList",
		"PromiseReactionList", "Module", "AsyncFromSyncIterator",
		"ResolveBindingList",
	}
	if int(k) < len(names) {
		return names[k]
	}
	return "Unknown"
}

type markState uint8

const (
	unmarked markState = iota
	markedUnscanned
	scanned
)

// Header is embedded by every concrete cell type. It carries the mark
// state and the intrusive link used by the cell list; a cell is invisible
// to the collector until Publish links it in.
type Header struct {
	kind Kind
	mark markState
	next Cell
	prev Cell
}

func (h *Header) Kind() Kind { return h.kind }

// Header satisfies the embedding half of the Cell interface: any type
// that embeds Header gets Header() promoted for free.
func (h *Header) Header() *Header { return h }

// Cell is the interface every GC-owned value implements. Scan must be
// empty-bodied (not omitted) for leaf cells that hold no outgoing
// references; Free must be empty-bodied for cells with no untracked
// resource to release.
type Cell interface {
	Header() *Header
	Scan(v *Visitor)
	Free()
}

// CellHolder is implemented by the tagged Value type (package value) so
// that root sets expressed as plain values — register files, the operand
// stack — can be marked without this package importing the value
// package (which itself must import heap.Cell). See DESIGN.md for the
// dependency-direction rationale.
type CellHolder interface {
	HeapCell() (Cell, bool)
}

// RootProvider is implemented by anything that owns GC roots: the
// interpreter's runtime stacks, suspended generator/async frames, the
// realm table, the module registry, the global symbol registry, and any
// host-registered root.
type RootProvider interface {
	GCRoots(v *Visitor)
}

// Visitor is passed to Scan hooks and to RootProviders; it is the only
// way to mark a cell reachable.
type Visitor struct {
	h        *Heap
	stack    []Cell
	stackCap int
	full     bool
}

// Mark marks c reachable. If the mark stack has room the cell is pushed
// for later scanning; otherwise the stack-full flag is set and the
// collector falls back to re-walking the cell list.
func (v *Visitor) Mark(c Cell) {
	if c == nil {
		return
	}
	h := c.Header()
	if h.mark != unmarked {
		return
	}
	h.mark = markedUnscanned
	if len(v.stack) < v.stackCap {
		v.stack = append(v.stack, c)
	} else {
		v.full = true
	}
}

// MarkValue marks the cell (if any) behind a CellHolder — the root-set
// entry point for tagged Values held in register files, the value stack,
// and suspended frames.
func (v *Visitor) MarkValue(val CellHolder) {
	if c, ok := val.HeapCell(); ok {
		v.Mark(c)
	}
}

// Heap owns the doubly-linked cell list and the allocation-pressure
// bookkeeping that decides when a collection is due.
type Heap struct {
	head Cell
	tail Cell

	count         int64 // live cells currently linked
	allocatedSinceGC int64
	liveAfterSweep   int64

	// PressureMultiple is how many times larger the live set may grow
	// (relative to liveAfterSweep) before ShouldCollect reports true.
	PressureMultiple float64
	// MaxCells is an optional hard ceiling; exceeding it is an
	// out-of-memory condition, which aborts the runtime rather than
	// returning a catchable error.
	MaxCells int64

	roots []RootProvider

	markStackCap int
}

// New creates a heap with the given bounded mark-stack capacity and a
// default growth pressure of 2x.
func New(markStackCap int) *Heap {
	return &Heap{
		PressureMultiple: 2.0,
		markStackCap:     markStackCap,
	}
}

// RegisterRoot adds a host-registered root. UnregisterRoot removes it.
func (h *Heap) RegisterRoot(r RootProvider) { h.roots = append(h.roots, r) }

func (h *Heap) UnregisterRoot(r RootProvider) {
	for i, existing := range h.roots {
		if existing == r {
			h.roots = append(h.roots[:i], h.roots[i+1:]...)
			return
		}
	}
}

// NewCell initializes hdr for kind k. The caller must finish constructing
// the concrete cell and call Publish before the cell is reachable from
// Scan hooks — allocation happens in two steps: raw allocate, then
// publish.
func (h *Heap) NewCell(hdr *Header, k Kind) {
	*hdr = Header{kind: k, mark: unmarked}
}

// Publish links a freshly-constructed cell into the cell list, making it
// visible to future collections. Panics with errors.Fatal if MaxCells is
// configured and exceeded — allocation exhaustion aborts the process;
// there is no partial-heap recovery path.
func (h *Heap) Publish(c Cell) {
	if h.MaxCells > 0 && h.count >= h.MaxCells {
		panic(&errors.Fatal{Reason: "heap: out of memory (cell ceiling reached)"})
	}
	hdr := c.Header()
	hdr.prev = nil
	hdr.next = h.head
	if h.head != nil {
		h.head.Header().prev = c
	}
	h.head = c
	if h.tail == nil {
		h.tail = c
	}
	h.count++
	h.allocatedSinceGC++
}

// Count returns the number of cells currently linked into the heap.
func (h *Heap) Count() int64 { return h.count }

// ShouldCollect reports whether allocation pressure since the previous
// cycle warrants a collection: a tunable multiple of the live size after
// the previous cycle.
func (h *Heap) ShouldCollect() bool {
	threshold := int64(float64(h.liveAfterSweep) * h.PressureMultiple)
	if threshold < 64 {
		threshold = 64
	}
	return h.allocatedSinceGC >= threshold
}

func (h *Heap) unlink(c Cell) {
	hdr := c.Header()
	if hdr.prev != nil {
		hdr.prev.Header().next = hdr.next
	} else {
		h.head = hdr.next
	}
	if hdr.next != nil {
		hdr.next.Header().prev = hdr.prev
	} else {
		h.tail = hdr.prev
	}
	hdr.next, hdr.prev = nil, nil
}

// Collect runs one full mark-sweep cycle. It can be triggered explicitly
// (host request) or by checking ShouldCollect; the collector itself
// never decides to run on its own.
func (h *Heap) Collect() {
	v := &Visitor{h: h, stackCap: h.markStackCap}

	for _, r := range h.roots {
		r.GCRoots(v)
	}

	for {
		for len(v.stack) > 0 {
			c := v.stack[len(v.stack)-1]
			v.stack = v.stack[:len(v.stack)-1]
			hdr := c.Header()
			if hdr.mark == scanned {
				continue
			}
			c.Scan(v)
			hdr.mark = scanned
		}
		if !v.full {
			break
		}
		// Stack-full handshake: re-walk the full cell list draining any
		// cell left marked-but-unscanned, repeating until a full pass
		// makes no further progress.
		v.full = false
		progressed := false
		for c := h.head; c != nil; c = c.Header().next {
			if c.Header().mark == markedUnscanned {
				v.stack = append(v.stack, c)
				progressed = true
			}
		}
		if !progressed {
			break
		}
	}

	var live int64
	for c := h.head; c != nil; {
		next := c.Header().next
		hdr := c.Header()
		if hdr.mark == unmarked {
			h.unlink(c)
			c.Free()
			h.count--
		} else {
			hdr.mark = unmarked
			live++
		}
		c = next
	}

	h.liveAfterSweep = live
	h.allocatedSinceGC = 0
}

// Walk calls fn for every currently-linked cell, in linked order, for
// diagnostics; Collect's stack-full re-walk iterates the list directly.
func (h *Heap) Walk(fn func(Cell)) {
	for c := h.head; c != nil; c = c.Header().next {
		fn(c)
	}
}

package object

import (
	"math/big"

	"esrt/pkg/heap"
)

// Symbol is a heap cell with an optional description. Symbols are
// compared by cell identity, never by description text, so two
// Symbol("x") calls produce distinct cells.
type Symbol struct {
	heap.Header
	Description string
	HasDesc     bool
}

func NewSymbol(h *heap.Heap, desc string, hasDesc bool) *Symbol {
	s := &Symbol{Description: desc, HasDesc: hasDesc}
	h.NewCell(&s.Header, heap.KindSymbol)
	return s
}

func (s *Symbol) Scan(v *heap.Visitor) {}
func (s *Symbol) Free()                {}

// BigInt is a heap cell holding an arbitrary-precision signed integer.
// Big integers are immutable once constructed.
type BigInt struct {
	heap.Header
	V *big.Int
}

func NewBigInt(h *heap.Heap, v *big.Int) *BigInt {
	b := &BigInt{V: new(big.Int).Set(v)}
	h.NewCell(&b.Header, heap.KindBigInt)
	return b
}

func (b *BigInt) Scan(v *heap.Visitor) {}
func (b *BigInt) Free()                {}

// PrivateName is a globally unique heap cell identifying a syntactic
// `#x` occurrence. Two distinct class bodies each declaring `#x` get
// distinct PrivateName cells even though Description collides — identity
// is by cell pointer, never by description text.
type PrivateName struct {
	heap.Header
	Description string
}

func NewPrivateName(h *heap.Heap, desc string) *PrivateName {
	p := &PrivateName{Description: desc}
	h.NewCell(&p.Header, heap.KindPrivateName)
	return p
}

func (p *PrivateName) Scan(v *heap.Visitor) {}
func (p *PrivateName) Free()                {}

package object

import "esrt/pkg/heap"

// ForInIterator implements the for-in enumeration protocol: it remembers
// the current object, the own string-key enumeration taken at the moment
// it entered that object, a visited-key set, and an index. Each Next
// call re-reads the current property descriptor so concurrent mutation
// during enumeration is tolerated rather than causing a stale read.
type ForInIterator struct {
	heap.Header
	current Obj
	keys    []string
	idx     int
	visited map[string]bool
}

func NewForInIterator(h *heap.Heap, start Obj) *ForInIterator {
	it := &ForInIterator{current: start, visited: map[string]bool{}}
	it.enterObject(start)
	h.NewCell(&it.Header, heap.KindObject)
	return it
}

func (it *ForInIterator) enterObject(o Obj) {
	it.current = o
	it.idx = 0
	it.keys = nil
	for _, k := range o.OwnPropertyKeys() {
		if k.IsString() {
			it.keys = append(it.keys, k.str.Canonical())
		}
	}
}

func (it *ForInIterator) Scan(v *heap.Visitor) {
	if it.current != nil {
		v.Mark(it.current)
	}
}
func (it *ForInIterator) Free() {}

// Next advances the iterator. Returns (key, true) on a yielded key, or
// ("", false) once the whole prototype chain has been exhausted.
func (it *ForInIterator) Next() (string, bool) {
	for {
		for it.idx < len(it.keys) {
			key := it.keys[it.idx]
			it.idx++
			if it.visited[key] {
				continue
			}
			desc, exists := it.current.GetOwnProperty(StringKey(key))
			if !exists {
				continue
			}
			it.visited[key] = true
			if desc.Enumerable {
				return key, true
			}
		}
		proto := it.current.GetPrototypeOf()
		if !proto.IsObject() {
			return "", false
		}
		next, ok := asObj(proto)
		if !ok {
			return "", false
		}
		it.enterObject(next)
	}
}

package value

import (
	"strconv"
	"sync"
	"weak"
)

// InternedString is the immutable, hash-cached string cell used both as
// a TypeString Value payload and as an ordinary (non-private) property
// key. Canonicalization to an "index form" — whether the string is the
// exact decimal rendering of an integer in [0, 2^53-1] with no leading
// zero — is computed once and memoized.
type InternedString struct {
	s    string
	hash uint64

	indexOnce  sync.Once
	indexForm  int64
	isIndex    bool
}

func (is *InternedString) String() string { return is.s }
func (is *InternedString) Len() int       { return len(is.s) }
func (is *InternedString) Hash() uint64   { return is.hash }

// Canonical returns the string used for property-table hashing. For a
// pre-interned string this is simply its own text; the method exists so
// callers can treat InternedString and raw-string comparisons uniformly.
func (is *InternedString) Canonical() string { return is.s }

// IndexForm reports whether the string is a canonical non-negative
// integer index (no leading zeros, no sign, value <= 2^53-1) and, if so,
// its numeric value. The result is computed once per distinct interned
// string and memoized on the cell.
func (is *InternedString) IndexForm() (int64, bool) {
	is.indexOnce.Do(func() {
		is.indexForm, is.isIndex = computeIndexForm(is.s)
	})
	return is.indexForm, is.isIndex
}

const maxSafeInteger = 1<<53 - 1

func computeIndexForm(s string) (int64, bool) {
	if s == "" {
		return 0, false
	}
	if s == "0" {
		return 0, true
	}
	if s[0] == '0' || s[0] < '0' || s[0] > '9' {
		return 0, false
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n < 0 || n > maxSafeInteger {
		return 0, false
	}
	if strconv.FormatInt(n, 10) != s {
		return 0, false
	}
	return n, true
}

func fnv1a(s string) uint64 {
	const offset64 = 14695981039346656037
	const prime64 = 1099511628211
	h := uint64(offset64)
	for i := 0; i < len(s); i++ {
		h ^= uint64(s[i])
		h *= prime64
	}
	return h
}

// internTable maps string text to a weak pointer at its InternedString
// cell. Using weak.Pointer (Go 1.24) lets strings that are no longer
// referenced by any live Value be collected by Go's own allocator
// without this engine having to track them as GC heap cells — strings
// are not cells.
var (
	internMu    sync.Mutex
	internTable = map[string]weak.Pointer[InternedString]{}
)

// Intern returns the canonical InternedString for s, creating it on
// first sight and reusing it (via a weak reference) on every subsequent
// call with equal text.
func Intern(s string) *InternedString {
	internMu.Lock()
	defer internMu.Unlock()

	if wp, ok := internTable[s]; ok {
		if is := wp.Value(); is != nil {
			return is
		}
	}
	is := &InternedString{s: s, hash: fnv1a(s)}
	internTable[s] = weak.Make(is)
	return is
}

// IntFromIndex renders an array/TypedArray integer index back into its
// canonical string form — the inverse of IndexForm — for OwnPropertyKeys
// enumeration and error messages.
func IntFromIndex(i int64) *InternedString {
	return Intern(strconv.FormatInt(i, 10))
}

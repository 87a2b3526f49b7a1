package host

import (
	"os"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// Comparator orders two strings per a locale's collation rules — the
// host-level primitive a String.prototype.localeCompare builtin (out of
// scope for this engine, see the Non-goals) would call into once one
// exists. Exposed now so pkg/host's runtime construction is the thing
// that resolves ESRT_LOCALE, rather than leaving it for a builtins
// library that this module never builds.
type Comparator struct {
	tag language.Tag
	col *collate.Collator
}

// NewComparator resolves locale (BCP 47, e.g. "en", "de", "tr") into a
// collate.Collator. An unparseable tag falls back to language.Und,
// matching x/text/collate's own documented behavior for an unknown tag.
func NewComparator(locale string) *Comparator {
	tag, err := language.Parse(locale)
	if err != nil {
		tag = language.Und
	}
	return &Comparator{tag: tag, col: collate.New(tag)}
}

// NewComparatorFromEnv resolves ESRT_LOCALE if set, else falls back to
// fallback (typically Config.Locale).
func NewComparatorFromEnv(fallback string) *Comparator {
	if locale := os.Getenv("ESRT_LOCALE"); locale != "" {
		return NewComparator(locale)
	}
	return NewComparator(fallback)
}

// Compare returns <0, 0, or >0 per collate.Collator.CompareString,
// exactly the contract String.prototype.localeCompare's return value
// needs.
func (c *Comparator) Compare(a, b string) int {
	return c.col.CompareString(a, b)
}

func (c *Comparator) Locale() string { return c.tag.String() }

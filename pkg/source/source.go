// Package source holds the source-file handle shared by the out-of-scope
// lexer/parser and the diagnostics produced by the core components.
package source

// File is a named chunk of program text. Tokenization of Text is owned
// by an external lexer/parser; the core keeps only a stable reference so
// errors and line-info tables can point back into it.
type File struct {
	Name string
	Text string
}

// New wraps source text under a display name (a file path, "<eval>",
// "<module>", …).
func New(name, text string) *File {
	return &File{Name: name, Text: text}
}

func (f *File) String() string {
	if f == nil {
		return "<unknown>"
	}
	return f.Name
}

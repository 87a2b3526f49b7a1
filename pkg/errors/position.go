package errors

import "esrt/pkg/source"

// Position locates a span of source text. Line and Column are 1-based;
// StartOffset/EndOffset are 0-based byte offsets into Source.Text.
type Position struct {
	Line        int
	Column      int
	StartOffset int
	EndOffset   int
	Source      *source.File
}

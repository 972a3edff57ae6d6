//go:build !cgo

package signals

import "context"

// TreeSitterAvailable reports whether comment masking and JSX detection use a
// real parser.
const TreeSitterAvailable = false

// MaskComments blanks every comment in src using the textual masker.
// Builds without cgo have no tree-sitter grammar to consult.
func MaskComments(_ context.Context, _ string, src []byte) []byte {
	return maskCommentsText(src)
}

func analyze(_ context.Context, _ string, src []byte) syntax {
	return syntax{masked: maskCommentsText(src)}
}

//go:build cgo

package signals

import (
	"context"
	"path/filepath"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	"github.com/smacker/go-tree-sitter/typescript/typescript"
)

// TreeSitterAvailable reports whether comment masking and JSX detection use a
// real parser.
const TreeSitterAvailable = true

var jsxNodeTypes = map[string]bool{
	"jsx_element":              true,
	"jsx_self_closing_element": true,
	"jsx_fragment":             true,
}

// MaskComments blanks every comment in src. The file name selects the grammar;
// when parsing fails the textual masker is used instead.
func MaskComments(ctx context.Context, fileName string, src []byte) []byte {
	return analyze(ctx, fileName, src).masked
}

// analyze parses src once, masking comments and looking for JSX nodes.
// parsed is false when no grammar applies or parsing fails.
func analyze(ctx context.Context, fileName string, src []byte) syntax {
	lang := languageFor(fileName)
	if lang == nil {
		return syntax{masked: maskCommentsText(src)}
	}

	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(lang)

	tree, err := parser.ParseCtx(ctx, nil, src)
	if err != nil || tree == nil {
		return syntax{masked: maskCommentsText(src)}
	}
	defer tree.Close()

	out := make([]byte, len(src))
	copy(out, src)
	root := tree.RootNode()
	for _, n := range findNodes(root, "comment") {
		blank(out, int(n.StartByte()), int(n.EndByte()))
	}
	return syntax{masked: out, jsx: hasNode(root, jsxNodeTypes), parsed: true}
}

func languageFor(fileName string) *sitter.Language {
	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".tsx":
		return tsx.GetLanguage()
	case ".ts", ".mts", ".cts":
		return typescript.GetLanguage()
	case ".js", ".jsx", ".mjs", ".cjs":
		return javascript.GetLanguage()
	default:
		return nil
	}
}

// findNodes collects every node of the given type.
func findNodes(root *sitter.Node, nodeType string) []*sitter.Node {
	var result []*sitter.Node
	var walk func(*sitter.Node)
	walk = func(node *sitter.Node) {
		if node == nil {
			return
		}
		if node.Type() == nodeType {
			result = append(result, node)
			return
		}
		for i := 0; i < int(node.ChildCount()); i++ {
			walk(node.Child(i))
		}
	}
	walk(root)
	return result
}

// hasNode reports whether any node below root has one of the given types.
func hasNode(root *sitter.Node, types map[string]bool) bool {
	if root == nil {
		return false
	}
	if types[root.Type()] {
		return true
	}
	for i := 0; i < int(root.ChildCount()); i++ {
		if hasNode(root.Child(i), types) {
			return true
		}
	}
	return false
}

// SPDX-License-Identifier: MPL-2.0

package trace

import (
	"regexp"
	"strings"
	"sync"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/text"
)

// markdownParserInstance is initialized once and reused. The parser
// configuration never changes and the goldmark Parser is safe to share;
// per-call state lives in the reader passed to Parse.
var (
	markdownParserInstance goldmark.Markdown
	markdownParserOnce     sync.Once
)

func getMarkdownParser() goldmark.Markdown {
	markdownParserOnce.Do(func() {
		markdownParserInstance = goldmark.New(
			goldmark.WithExtensions(extension.GFM),
		)
	})
	return markdownParserInstance
}

// externalSchemePattern matches targets with a URL scheme prefix
// (https://..., mailto:..., ftp://...). Such targets are never local
// references.
var externalSchemePattern = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9+.-]*:`)

// IsExternalTarget reports whether a link target points outside the local
// filesystem (it carries a URL scheme).
func IsExternalTarget(target string) bool {
	return externalSchemePattern.MatchString(target)
}

// IsFragmentOnly reports whether a link target is a pure same-document
// fragment like "#section".
func IsFragmentOnly(target string) bool {
	return strings.HasPrefix(target, "#")
}

// SplitFragment splits a trailing "#fragment" off a target. The fragment
// keeps its leading "#" so callers can reattach it verbatim.
func SplitFragment(target string) (path, fragment string) {
	if idx := strings.Index(target, "#"); idx >= 0 {
		return target[:idx], target[idx:]
	}
	return target, ""
}

// ExtractReferences returns every candidate local reference in markdown
// content: inline link and image destinations (external URLs and pure
// fragments excluded, trailing fragments kept) and fenced-code blocks whose
// info string carries a file= parameter. Both kinds resolve identically; the
// caller does not need to distinguish them.
func ExtractReferences(content []byte) []string {
	var refs []string

	document := getMarkdownParser().Parser().Parse(text.NewReader(content))
	_ = ast.Walk(document, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		var destination string
		switch node := n.(type) {
		case *ast.Link:
			destination = string(node.Destination)
		case *ast.Image:
			destination = string(node.Destination)
		case *ast.FencedCodeBlock:
			if node.Info != nil {
				if file := fenceFileParam(string(node.Info.Segment.Value(content))); file != "" {
					refs = append(refs, file)
				}
			}
			return ast.WalkContinue, nil
		default:
			return ast.WalkContinue, nil
		}
		if destination == "" || IsExternalTarget(destination) || IsFragmentOnly(destination) {
			return ast.WalkContinue, nil
		}
		refs = append(refs, destination)
		return ast.WalkContinue, nil
	})

	return refs
}

// fenceFileParam extracts the value of a file= parameter from a fenced code
// block info string, e.g. `bash file=scripts/install.sh`. Returns "" when
// the info string has no such parameter.
func fenceFileParam(info string) string {
	for _, field := range strings.Fields(info) {
		if value, ok := strings.CutPrefix(field, "file="); ok {
			return strings.Trim(value, `"'`)
		}
	}
	return ""
}

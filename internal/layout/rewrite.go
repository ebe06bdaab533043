// SPDX-License-Identifier: MPL-2.0

package layout

import (
	"regexp"
	"strings"

	"github.com/bikeshaving/skillpack/internal/trace"
)

// The rewrite works on the raw document text, not a parsed AST: goldmark
// decodes link destinations without keeping their source offsets, and the
// contract here is that every byte outside a rewritten target stays exactly
// as authored.
var (
	// inlineLinkPattern matches the target of [text](target) and
	// ![alt](target). The leading bracket pair is group 1, the target
	// group 2, the closing parenthesis group 3.
	inlineLinkPattern = regexp.MustCompile(`(\[[^\]]*\]\()([^()\s]+)(\))`)

	// angleLinkPattern matches the angle-bracketed destination form
	// [text](<target>), which markdown allows for targets containing
	// spaces.
	angleLinkPattern = regexp.MustCompile(`(\[[^\]]*\]\(<)([^<>\n]+)(>\))`)

	// fenceFilePattern matches the file= parameter on a fence info line.
	// Fence openings may be indented by up to three spaces and use three
	// or more backticks or tildes, mirroring what the markdown parser
	// accepts during extraction.
	fenceFilePattern = regexp.MustCompile("(?m)^( {0,3}(?:`{3,}[^\\n`]*?|~{3,}[^\\n]*?)\\bfile=)([^\\s`]+)")
)

// Rewrite replaces every reference in content that resolves in pathMap with
// its mapped destination. The map keys are original root-relative paths, so
// running Rewrite again on its own output is a no-op. Targets with a URL
// scheme or pure same-document fragments are left exactly as authored, as is
// every unmapped target.
//
// Independent passes cover the reference syntaxes: plain and
// angle-bracketed inline link targets, and fenced-code file annotations.
// Pass order does not matter: map keys never contain angle brackets, so a
// target caught by the wrong inline pass simply fails its lookup.
func Rewrite(content string, pathMap map[string]string) string {
	content = angleLinkPattern.ReplaceAllStringFunc(content, func(match string) string {
		sub := angleLinkPattern.FindStringSubmatch(match)
		return sub[1] + rewriteTarget(sub[2], pathMap) + sub[3]
	})
	content = inlineLinkPattern.ReplaceAllStringFunc(content, func(match string) string {
		sub := inlineLinkPattern.FindStringSubmatch(match)
		return sub[1] + rewriteTarget(sub[2], pathMap) + sub[3]
	})
	content = fenceFilePattern.ReplaceAllStringFunc(content, func(match string) string {
		sub := fenceFilePattern.FindStringSubmatch(match)
		target, quote := sub[2], ""
		if len(target) >= 2 && (target[0] == '"' || target[0] == '\'') && target[len(target)-1] == target[0] {
			quote = string(target[0])
			target = target[1 : len(target)-1]
		}
		return sub[1] + quote + rewriteTarget(target, pathMap) + quote
	})
	return content
}

// rewriteTarget applies the normalize → lookup → reattach-fragment sequence
// to a single raw target string.
func rewriteTarget(target string, pathMap map[string]string) string {
	if trace.IsExternalTarget(target) || trace.IsFragmentOnly(target) {
		return target
	}
	base, fragment := trace.SplitFragment(target)
	lookup := strings.TrimPrefix(base, "./")
	if dest, ok := pathMap[lookup]; ok {
		return dest + fragment
	}
	return target
}

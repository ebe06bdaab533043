// SPDX-License-Identifier: MPL-2.0

// Package content binds the external content classifier used to tell binary
// assets from text files.
package content

import (
	"fmt"

	"github.com/gabriel-vasile/mimetype"
)

// Detector classifies file content by sniffing MIME types. The zero value is
// ready to use.
type Detector struct{}

// DetectBinary reports, for each path in the batch, whether its content is
// binary (not text). Detection is read-only and looks at the first bytes of
// each file only.
func (Detector) DetectBinary(paths []string) (map[string]bool, error) {
	verdicts := make(map[string]bool, len(paths))
	for _, path := range paths {
		mtype, err := mimetype.DetectFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to sniff content of %s: %w", path, err)
		}
		verdicts[path] = !isTextual(mtype)
	}
	return verdicts, nil
}

// isTextual walks the MIME hierarchy: every text-like type (text/plain,
// text/html, application/json, ...) has text/plain as an ancestor.
func isTextual(m *mimetype.MIME) bool {
	for ; m != nil; m = m.Parent() {
		if m.Is("text/plain") {
			return true
		}
	}
	return false
}

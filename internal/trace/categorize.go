// SPDX-License-Identifier: MPL-2.0

package trace

import (
	"fmt"
	"io/fs"
	"os"
)

// Category is the classification bucket of a traced file. Every file except
// the root document gets exactly one category.
type Category int

const (
	// CategoryScript marks files carrying an executable permission bit.
	CategoryScript Category = iota
	// CategoryReference marks text files: prose, documentation, and
	// source read as text. The default bucket.
	CategoryReference
	// CategoryAsset marks binary files (images, archives, media).
	CategoryAsset
)

// String returns the human-readable category name.
func (c Category) String() string {
	switch c {
	case CategoryScript:
		return "script"
	case CategoryReference:
		return "reference-doc"
	case CategoryAsset:
		return "asset"
	default:
		return fmt.Sprintf("unknown(%d)", int(c))
	}
}

// Dir returns the flat-layout subdirectory for the category.
func (c Category) Dir() string {
	switch c {
	case CategoryScript:
		return "scripts"
	case CategoryAsset:
		return "assets"
	default:
		return "references"
	}
}

// Classifier is the external content classifier: given a batch of file
// paths, it reports which of them hold binary (non-text) content.
type Classifier interface {
	DetectBinary(paths []string) (map[string]bool, error)
}

// classificationRule is one entry of the ordered classification policy.
// Rules are evaluated top to bottom per file; the first applicable rule
// wins, which makes the dominance order (executable over content type) an
// explicit data structure.
type classificationRule struct {
	name     string
	applies  func(path string, mode fs.FileMode, binary map[string]bool) bool
	category Category
}

var classificationPolicy = []classificationRule{
	{
		name: "executable bit",
		applies: func(_ string, mode fs.FileMode, _ map[string]bool) bool {
			return mode.Perm()&0o111 != 0
		},
		category: CategoryScript,
	},
	{
		name: "binary content",
		applies: func(path string, _ fs.FileMode, binary map[string]bool) bool {
			return binary[path]
		},
		category: CategoryAsset,
	},
	{
		name: "default",
		applies: func(string, fs.FileMode, map[string]bool) bool {
			return true
		},
		category: CategoryReference,
	},
}

// Categorize assigns a category to every traced file and stores the mapping
// on the result. The root document is never part of the mapping regardless
// of its own permissions or content.
func Categorize(result *Result, classifier Classifier) error {
	binary, err := classifier.DetectBinary(result.Files)
	if err != nil {
		return fmt.Errorf("content classification failed: %w", err)
	}

	categories := make(map[string]Category, len(result.Files))
	for _, path := range result.Files {
		info, err := os.Stat(path)
		if err != nil {
			return fmt.Errorf("failed to stat traced file %s: %w", path, err)
		}
		for _, rule := range classificationPolicy {
			if rule.applies(path, info.Mode(), binary) {
				categories[path] = rule.category
				break
			}
		}
	}

	result.Categories = categories
	return nil
}

// SPDX-License-Identifier: MPL-2.0

// Package trace discovers the file dependency graph of a skill document and
// classifies the discovered files.
//
// The walk starts at the root document, follows inline markdown links and
// fenced-code file annotations, and descends into referenced directories
// indiscriminately. A visited set keyed by canonical absolute path makes the
// walk terminate on cyclic or repeated references. Unresolved references are
// collected as warnings; they never abort the trace.
package trace

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/bikeshaving/skillpack/pkg/skilldoc"
)

// MissingReference is a reference whose target does not exist. Non-fatal:
// collected and reported while traversal continues.
type MissingReference struct {
	// Raw is the reference as authored in the source document.
	Raw string
	// Resolved is the absolute path that failed to resolve.
	Resolved string
	// Source is the document containing the reference.
	Source string
}

// String renders the missing reference for warning output.
func (m MissingReference) String() string {
	return fmt.Sprintf("%s: reference %q does not exist (resolved to %s)", m.Source, m.Raw, m.Resolved)
}

// Result is the outcome of a trace. Files holds canonical absolute paths of
// every discovered file except the root document, sorted for stable output.
// Categories is populated by Categorize after the walk.
type Result struct {
	// Root is the canonical absolute path of the root document.
	Root string
	// RootDir anchors root-relative path computation.
	RootDir string
	// Files is the sorted set of discovered files, root excluded.
	Files []string
	// Missing lists unresolved references in discovery order, deduplicated
	// by resolved path.
	Missing []MissingReference
	// Categories maps each entry of Files to its category. Nil until
	// Categorize runs.
	Categories map[string]Category
}

// Trace walks the reference graph starting at doc and returns every
// reachable file. The logger receives debug-level progress; pass nil to
// disable logging.
func Trace(doc *skilldoc.Document, logger *log.Logger) (*Result, error) {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	t := &tracer{
		root:    doc.Path,
		visited: make(map[string]struct{}),
		missing: make(map[string]struct{}),
		logger:  logger,
	}

	// The root is visited up front so self-references and back-references
	// to the root are no-ops, and so it never lands in the file set. Only
	// the body is traced: link-shaped header values are metadata, not
	// references.
	t.visited[doc.Path] = struct{}{}
	t.followReferences(doc.Body, doc.Path)

	sort.Strings(t.files)
	return &Result{
		Root:    doc.Path,
		RootDir: doc.Dir,
		Files:   t.files,
		Missing: t.missingList,
	}, nil
}

// RelFiles returns the discovered files as slash-form paths relative to the
// root directory, in the same order as Files.
func (r *Result) RelFiles() ([]string, error) {
	rels := make([]string, 0, len(r.Files))
	for _, f := range r.Files {
		rel, err := filepath.Rel(r.RootDir, f)
		if err != nil {
			return nil, fmt.Errorf("failed to relativize %s against %s: %w", f, r.RootDir, err)
		}
		rels = append(rels, filepath.ToSlash(rel))
	}
	return rels, nil
}

type tracer struct {
	root        string
	visited     map[string]struct{}
	files       []string
	missing     map[string]struct{}
	missingList []MissingReference
	logger      *log.Logger
}

// follow resolves one raw reference against the directory of the document
// that contains it, records it as missing if the target does not exist, and
// otherwise feeds the target into the walk.
func (t *tracer) follow(raw, sourceDoc string) {
	target := raw
	if idx := strings.Index(target, "#"); idx >= 0 {
		target = target[:idx]
	}
	resolved := target
	if !filepath.IsAbs(resolved) {
		resolved = filepath.Join(filepath.Dir(sourceDoc), resolved)
	}
	resolved = filepath.Clean(resolved)

	info, err := os.Stat(resolved)
	if err != nil {
		if _, seen := t.missing[resolved]; !seen {
			t.missing[resolved] = struct{}{}
			t.missingList = append(t.missingList, MissingReference{
				Raw:      raw,
				Resolved: resolved,
				Source:   sourceDoc,
			})
		}
		t.logger.Debug("unresolved reference", "raw", raw, "source", sourceDoc)
		return
	}
	t.visit(resolved, info.IsDir())
}

// visit adds a path to the walk. Revisiting an already-visited path is a
// no-op, which keeps the walk well-defined on cyclic graphs.
func (t *tracer) visit(path string, isDir bool) {
	if _, seen := t.visited[path]; seen {
		return
	}
	t.visited[path] = struct{}{}

	if isDir {
		t.visitDir(path)
		return
	}

	t.files = append(t.files, path)
	t.logger.Debug("discovered file", "path", path)

	if !isMarkdown(path) {
		return
	}
	content, err := os.ReadFile(path)
	if err != nil {
		// Stat succeeded but the read failed; surface it as a missing
		// reference rather than aborting the whole trace.
		t.missingList = append(t.missingList, MissingReference{
			Raw:      path,
			Resolved: path,
			Source:   path,
		})
		return
	}
	t.followReferences(content, path)
}

// visitDir pulls in everything inside a referenced directory: files
// unconditionally, subdirectories recursively. Entry iteration order is
// irrelevant because the result set is sorted afterwards.
func (t *tracer) visitDir(dir string) {
	t.logger.Debug("descending into directory", "path", dir)
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.missingList = append(t.missingList, MissingReference{Raw: dir, Resolved: dir, Source: dir})
		return
	}
	for _, entry := range entries {
		t.visit(filepath.Join(dir, entry.Name()), entry.IsDir())
	}
}

// followReferences extracts all references from markdown content and feeds
// each one back into the walk.
func (t *tracer) followReferences(content []byte, sourceDoc string) {
	for _, ref := range ExtractReferences(content) {
		t.follow(ref, sourceDoc)
	}
}

func isMarkdown(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".md", ".markdown":
		return true
	}
	return false
}

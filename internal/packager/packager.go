// SPDX-License-Identifier: MPL-2.0

// Package packager orchestrates the packaging pipeline: trace the skill
// document's reference graph, categorize the discovered files, derive the
// flat path map where the layout needs one, validate the header, and write
// one of the output shapes.
//
// Pipeline failures before the writing phase never touch the output
// location; a failed container write removes the partial container.
package packager

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/charmbracelet/log"

	"github.com/bikeshaving/skillpack/internal/archive"
	"github.com/bikeshaving/skillpack/internal/content"
	"github.com/bikeshaving/skillpack/internal/issue"
	"github.com/bikeshaving/skillpack/internal/layout"
	"github.com/bikeshaving/skillpack/internal/trace"
	"github.com/bikeshaving/skillpack/pkg/skilldoc"
)

// DistSuffix is appended to the header name for combined-output containers.
const DistSuffix = ".skillpack.zip"

// ErrMissingNameField is returned when an output shape needs a distribution
// name but the document header has no name field.
var ErrMissingNameField = errors.New(`the document header has no "name" field`)

// Format selects the output shape.
type Format int

const (
	// FormatPreserve mirrors original root-relative paths into a directory.
	FormatPreserve Format = iota
	// FormatFlat writes category subdirectories plus the rewritten document.
	FormatFlat
	// FormatArchive writes a single compressed container.
	FormatArchive
	// FormatDist writes both the flat directory and the container, named
	// from the document header.
	FormatDist
)

// ParseFormat parses a format selector from its CLI spelling.
func ParseFormat(name string) (Format, error) {
	switch name {
	case "preserve":
		return FormatPreserve, nil
	case "flat":
		return FormatFlat, nil
	case "archive":
		return FormatArchive, nil
	case "dist":
		return FormatDist, nil
	default:
		return 0, fmt.Errorf("unknown output format %q (expected preserve, flat, archive, or dist)", name)
	}
}

// String returns the CLI spelling of the format.
func (f Format) String() string {
	switch f {
	case FormatPreserve:
		return "preserve"
	case FormatFlat:
		return "flat"
	case FormatArchive:
		return "archive"
	case FormatDist:
		return "dist"
	default:
		return fmt.Sprintf("unknown(%d)", int(f))
	}
}

// flattens reports whether the format needs a path map.
func (f Format) flattens(archiveFlat bool) bool {
	switch f {
	case FormatFlat, FormatDist:
		return true
	case FormatArchive:
		return archiveFlat
	}
	return false
}

// Options configures a packaging run.
type Options struct {
	// Output is the destination: a directory for preserve/flat/dist, the
	// container file path for archive.
	Output string
	// Format selects the output shape.
	Format Format
	// ArchiveFlat switches the archive format from original to flattened
	// entry names. Ignored by the other formats.
	ArchiveFlat bool
	// Classifier overrides the content classifier. Defaults to the
	// MIME-sniffing detector.
	Classifier trace.Classifier
	// Logger receives debug progress. Nil disables logging.
	Logger *log.Logger
}

func (o *Options) classifier() trace.Classifier {
	if o.Classifier != nil {
		return o.Classifier
	}
	return content.Detector{}
}

func (o *Options) logger() *log.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return log.New(io.Discard)
}

// Result carries everything a caller needs after a run: the loaded
// document, the trace (files, categories, missing-reference warnings), the
// path map when one was built, and the paths written.
type Result struct {
	Document *skilldoc.Document
	Trace    *trace.Result
	PathMap  map[string]string
	Outputs  []string
}

// Inspect runs the pipeline up to and including validation, without
// writing anything. This backs both the dry-run listing and Pack itself.
func Inspect(docPath string, opts Options) (*Result, error) {
	logger := opts.logger()

	doc, err := skilldoc.Load(docPath)
	if err != nil {
		return nil, issue.NewErrorContext().
			WithOperation("load skill document").
			WithResource(docPath).
			WithSuggestion("Check that the path points at the root markdown document").
			Wrap(err).
			BuildError()
	}

	logger.Debug("tracing references", "root", doc.Path)
	traced, err := trace.Trace(doc, opts.Logger)
	if err != nil {
		return nil, err
	}
	logger.Debug("trace complete", "files", len(traced.Files), "missing", len(traced.Missing))

	if err := trace.Categorize(traced, opts.classifier()); err != nil {
		return nil, err
	}

	result := &Result{Document: doc, Trace: traced}

	if opts.Format.flattens(opts.ArchiveFlat) {
		logger.Debug("building flat path map")
		pathMap, err := layout.BuildPathMap(traced)
		if err != nil {
			return nil, issue.NewErrorContext().
				WithOperation("flatten file layout").
				WithResource(doc.Path).
				WithSuggestion("Rename the listed source files so their basenames are unique per category").
				Wrap(err).
				BuildError()
		}
		result.PathMap = pathMap
	}

	if err := validate(doc, opts); err != nil {
		return nil, err
	}

	return result, nil
}

// validate is the pre-write gate: the header allow-list check runs for
// every output shape, the name requirement only for shapes that derive a
// distribution name.
func validate(doc *skilldoc.Document, opts Options) error {
	if herr := doc.Header.Validate(); herr != nil {
		return issue.NewErrorContext().
			WithOperation("validate document header").
			WithResource(doc.Path).
			WithSuggestion("Remove or rename the listed fields in the frontmatter block").
			Wrap(herr).
			BuildError()
	}
	if opts.Format == FormatDist && doc.Header.Name == "" {
		return issue.NewErrorContext().
			WithOperation("derive distribution name").
			WithResource(doc.Path).
			WithSuggestion(`Add a "name" field to the frontmatter block`).
			Wrap(ErrMissingNameField).
			BuildError()
	}
	return nil
}

// Pack runs the full pipeline and writes the requested output shape.
func Pack(docPath string, opts Options) (*Result, error) {
	result, err := Inspect(docPath, opts)
	if err != nil {
		return nil, err
	}
	logger := opts.logger()
	logger.Debug("writing output", "format", opts.Format.String(), "output", opts.Output)

	switch opts.Format {
	case FormatPreserve:
		err = writePreserve(result, opts.Output)
	case FormatFlat:
		err = writeFlat(result, opts.Output)
	case FormatArchive:
		err = writeArchive(result, opts.Output, opts.ArchiveFlat)
	case FormatDist:
		err = writeDist(result, opts.Output)
	default:
		err = fmt.Errorf("unknown output format %d", opts.Format)
	}
	if err != nil {
		return nil, err
	}
	return result, nil
}

// writePreserve mirrors each file's original root-relative path into the
// output directory. The root document keeps its validated, unmodified
// content.
func writePreserve(r *Result, outDir string) error {
	rels, err := r.Trace.RelFiles()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	rootDest := filepath.Join(outDir, filepath.Base(r.Document.Path))
	if err := os.WriteFile(rootDest, r.Document.Raw, 0o644); err != nil {
		return fmt.Errorf("failed to write root document: %w", err)
	}
	r.Outputs = append(r.Outputs, outDir)

	for i, abs := range r.Trace.Files {
		dest := filepath.Join(outDir, filepath.FromSlash(rels[i]))
		if err := copyFile(abs, dest); err != nil {
			return err
		}
	}
	return nil
}

// writeFlat writes the three category subdirectories, every non-root file
// under its mapped path, and the root document with rewritten references.
func writeFlat(r *Result, outDir string) error {
	rels, err := r.Trace.RelFiles()
	if err != nil {
		return err
	}
	for _, bucket := range []string{"scripts", "references", "assets"} {
		if err := os.MkdirAll(filepath.Join(outDir, bucket), 0o755); err != nil {
			return fmt.Errorf("failed to create category directory: %w", err)
		}
	}

	rewritten := layout.Rewrite(string(r.Document.Raw), r.PathMap)
	rootDest := filepath.Join(outDir, filepath.Base(r.Document.Path))
	if err := os.WriteFile(rootDest, []byte(rewritten), 0o644); err != nil {
		return fmt.Errorf("failed to write root document: %w", err)
	}
	r.Outputs = append(r.Outputs, outDir)

	for i, abs := range r.Trace.Files {
		dest := filepath.Join(outDir, filepath.FromSlash(r.PathMap[rels[i]]))
		if err := copyFile(abs, dest); err != nil {
			return err
		}
	}
	return nil
}

// writeArchive streams every file into a single compressed container. The
// root document's entry is always the validated (and, in flat mode,
// rewritten) content, never the raw source bytes; every other entry is
// byte-identical to its source.
func writeArchive(r *Result, zipPath string, flat bool) error {
	rels, err := r.Trace.RelFiles()
	if err != nil {
		return err
	}
	if dir := filepath.Dir(zipPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	w, err := archive.NewWriter(zipPath)
	if err != nil {
		return err
	}

	rootContent := r.Document.Raw
	if flat {
		rootContent = []byte(layout.Rewrite(string(r.Document.Raw), r.PathMap))
	}
	w.Add(archive.BytesEntry(filepath.Base(r.Document.Path), 0o644, rootContent))

	names := make([]string, len(r.Trace.Files))
	for i, rel := range rels {
		if flat {
			names[i] = r.PathMap[rel]
		} else {
			names[i] = rel
		}
	}
	order := make([]int, len(names))
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool { return names[order[a]] < names[order[b]] })

	for _, i := range order {
		abs := r.Trace.Files[i]
		info, err := os.Stat(abs)
		if err != nil {
			w.Close()
			return fmt.Errorf("failed to stat %s: %w", abs, err)
		}
		w.Add(archive.FileEntry(names[i], abs, info.Mode()))
	}

	if err := w.Close(); err != nil {
		return err
	}
	r.Outputs = append(r.Outputs, zipPath)
	return nil
}

// writeDist runs the flat and container strategies in one invocation,
// deriving a shared output name from the header's name field. A stale flat
// directory from a previous run is cleared first so no orphaned files from
// an earlier reference set survive.
func writeDist(r *Result, outDir string) error {
	name := r.Document.Header.Name
	flatDir := filepath.Join(outDir, name)
	if err := os.RemoveAll(flatDir); err != nil {
		return fmt.Errorf("failed to clear stale output directory: %w", err)
	}
	if err := writeFlat(r, flatDir); err != nil {
		return err
	}
	return writeArchive(r, filepath.Join(outDir, name+DistSuffix), true)
}

// copyFile copies src to dest byte-for-byte, preserving the source's
// permission bits (the executable bit in particular must survive).
func copyFile(src, dest string) error {
	info, err := os.Stat(src)
	if err != nil {
		return fmt.Errorf("failed to stat %s: %w", src, err)
	}
	data, err := os.ReadFile(src)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", src, err)
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", dest, err)
	}
	if err := os.WriteFile(dest, data, info.Mode().Perm()); err != nil {
		return fmt.Errorf("failed to write %s: %w", dest, err)
	}
	return nil
}

// SPDX-License-Identifier: MPL-2.0

package packager

import (
	"errors"

	"github.com/bikeshaving/skillpack/internal/layout"
	"github.com/bikeshaving/skillpack/internal/trace"
	"github.com/bikeshaving/skillpack/pkg/skilldoc"
)

// Report is the outcome of a validation-only run. Unlike Pack, which stops
// at the first fatal problem, validation collects every finding so one run
// is enough to fix the document.
type Report struct {
	// Document is the loaded skill document.
	Document *skilldoc.Document
	// Trace holds the discovered files, categories, and missing
	// references.
	Trace *trace.Result
	// HeaderErr is set when the header contains disallowed fields.
	HeaderErr *skilldoc.HeaderError
	// Collision is set when flattening would collide.
	Collision *layout.CollisionError
	// MissingName is set when the header has no name field. Packaging
	// only fails on it when dist output is requested, so validation
	// treats it as a warning.
	MissingName bool
}

// Clean reports whether the document would package without fatal errors.
// Missing references and a missing name field are warnings and do not
// count.
func (r *Report) Clean() bool {
	return r.HeaderErr == nil && r.Collision == nil
}

// Validate runs the pipeline in check-only mode, exercising every gate that
// any output shape would hit: header allow-list, flattening collisions, and
// the distribution-name requirement. The returned error covers only
// environmental failures (unreadable document, classifier failure); document
// problems land in the report.
func Validate(docPath string, opts Options) (*Report, error) {
	doc, err := skilldoc.Load(docPath)
	if err != nil {
		return nil, err
	}

	traced, err := trace.Trace(doc, opts.Logger)
	if err != nil {
		return nil, err
	}
	if err := trace.Categorize(traced, opts.classifier()); err != nil {
		return nil, err
	}

	report := &Report{
		Document:    doc,
		Trace:       traced,
		HeaderErr:   doc.Header.Validate(),
		MissingName: doc.Header.Name == "",
	}

	if _, err := layout.BuildPathMap(traced); err != nil {
		var collision *layout.CollisionError
		if !errors.As(err, &collision) {
			return nil, err
		}
		report.Collision = collision
	}

	return report, nil
}

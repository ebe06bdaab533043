// SPDX-License-Identifier: MPL-2.0

package packager

import (
	"archive/zip"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/bikeshaving/skillpack/internal/layout"
	"github.com/bikeshaving/skillpack/pkg/skilldoc"
)

var pngHeader = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0}

func writeFile(t *testing.T, root, rel string, content []byte, mode os.FileMode) string {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("failed to create directory for %s: %v", rel, err)
	}
	if err := os.WriteFile(path, content, mode); err != nil {
		t.Fatalf("failed to write %s: %v", rel, err)
	}
	return path
}

// writeDemoSkill lays out a skill with one file of every category plus a
// transitive reference and a dangling one.
func writeDemoSkill(t *testing.T, root string) string {
	t.Helper()
	doc := "---\n" +
		"name: demo-skill\n" +
		"description: packaging fixture\n" +
		"---\n" +
		"\n# Demo\n\n" +
		"See [the api](docs/api.md) and [the guide](docs/guide.md).\n\n" +
		"![logo](images/logo.png)\n\n" +
		"Run [the tool](tools/run.sh).\n\n" +
		"```bash file=tools/setup.sh\n" +
		"echo setup\n" +
		"```\n\n" +
		"A [dangling link](missing.md) stays a warning.\n"
	path := writeFile(t, root, "SKILL.md", []byte(doc), 0o644)
	writeFile(t, root, "docs/api.md", []byte("# API\n\nData lives in [samples](sample.csv).\n"), 0o644)
	writeFile(t, root, "docs/guide.md", []byte("# Guide\n"), 0o644)
	writeFile(t, root, "docs/sample.csv", []byte("a,b\n1,2\n"), 0o644)
	writeFile(t, root, "images/logo.png", pngHeader, 0o644)
	writeFile(t, root, "tools/run.sh", []byte("#!/bin/sh\necho run\n"), 0o755)
	writeFile(t, root, "tools/setup.sh", []byte("#!/bin/sh\necho setup\n"), 0o755)
	return path
}

func TestPackFlat(t *testing.T) {
	root := t.TempDir()
	docPath := writeDemoSkill(t, root)
	outDir := filepath.Join(t.TempDir(), "out")

	result, err := Pack(docPath, Options{Output: outDir, Format: FormatFlat})
	if err != nil {
		t.Fatalf("Pack failed: %v", err)
	}

	if len(result.Trace.Files) != 6 {
		t.Errorf("trace found %d files, want 6", len(result.Trace.Files))
	}
	if len(result.Trace.Missing) != 1 {
		t.Errorf("trace recorded %d missing references, want 1", len(result.Trace.Missing))
	}

	for _, rel := range []string{
		"SKILL.md",
		"references/api.md",
		"references/guide.md",
		"references/sample.csv",
		"assets/logo.png",
		"scripts/run.sh",
		"scripts/setup.sh",
	} {
		if _, err := os.Stat(filepath.Join(outDir, filepath.FromSlash(rel))); err != nil {
			t.Errorf("expected %s in flat output: %v", rel, err)
		}
	}

	info, err := os.Stat(filepath.Join(outDir, "scripts", "run.sh"))
	if err != nil {
		t.Fatalf("failed to stat repackaged script: %v", err)
	}
	if info.Mode().Perm()&0o111 == 0 {
		t.Errorf("script lost its executable bit: mode %v", info.Mode())
	}

	rewritten, err := os.ReadFile(filepath.Join(outDir, "SKILL.md"))
	if err != nil {
		t.Fatalf("failed to read repackaged document: %v", err)
	}
	content := string(rewritten)
	for _, want := range []string{
		"(references/api.md)",
		"(references/guide.md)",
		"(assets/logo.png)",
		"(scripts/run.sh)",
		"file=scripts/setup.sh",
		"(missing.md)",
	} {
		if !strings.Contains(content, want) {
			t.Errorf("rewritten document is missing %q", want)
		}
	}
}

func TestPackFlatDirectoryReference(t *testing.T) {
	root := t.TempDir()
	doc := "---\nname: kit\n---\n\nEverything lives in [the kit](kit/).\n"
	docPath := writeFile(t, root, "SKILL.md", []byte(doc), 0o644)
	writeFile(t, root, "kit/run.sh", []byte("#!/bin/sh\necho run\n"), 0o755)
	writeFile(t, root, "kit/logo.png", pngHeader, 0o644)
	writeFile(t, root, "kit/guide.md", []byte("See [notes](notes.md) and [helper](helper.py).\n"), 0o644)
	writeFile(t, root, "kit/notes.md", []byte("# Notes\n"), 0o644)
	writeFile(t, root, "kit/helper.py", []byte("print('hi')\n"), 0o644)
	outDir := filepath.Join(t.TempDir(), "out")

	result, err := Pack(docPath, Options{Output: outDir, Format: FormatFlat})
	if err != nil {
		t.Fatalf("Pack failed: %v", err)
	}
	if len(result.Trace.Files) != 5 {
		t.Fatalf("trace found %d files, want 5", len(result.Trace.Files))
	}
	if len(result.Trace.Missing) != 0 {
		t.Errorf("trace recorded unexpected missing references: %v", result.Trace.Missing)
	}

	for _, rel := range []string{
		"scripts/run.sh",
		"assets/logo.png",
		"references/guide.md",
		"references/notes.md",
		"references/helper.py",
	} {
		if _, err := os.Stat(filepath.Join(outDir, filepath.FromSlash(rel))); err != nil {
			t.Errorf("expected %s in flat output: %v", rel, err)
		}
	}
}

func TestPackFlatCollisionReportsEverySource(t *testing.T) {
	root := t.TempDir()
	doc := "---\nname: twins\n---\n\nSee [one](docs/README.md) and [two](guides/README.md).\n"
	docPath := writeFile(t, root, "SKILL.md", []byte(doc), 0o644)
	writeFile(t, root, "docs/README.md", []byte("# one\n"), 0o644)
	writeFile(t, root, "guides/README.md", []byte("# two\n"), 0o644)
	outDir := filepath.Join(t.TempDir(), "out")

	_, err := Pack(docPath, Options{Output: outDir, Format: FormatFlat})
	if err == nil {
		t.Fatal("expected the flattening collision to fail the run")
	}
	var collision *layout.CollisionError
	if !errors.As(err, &collision) {
		t.Fatalf("error chain is missing the collision: %v", err)
	}
	for _, source := range []string{"docs/README.md", "guides/README.md"} {
		if !strings.Contains(err.Error(), source) {
			t.Errorf("collision error should name %s: %v", source, err)
		}
	}
	if _, err := os.Stat(outDir); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("failed run should not create the output directory, stat err = %v", err)
	}
}

func TestPackRejectsDisallowedHeaderField(t *testing.T) {
	root := t.TempDir()
	doc := "---\nname: tagged\ntags: [a, b]\n---\n\n# Body\n"
	docPath := writeFile(t, root, "SKILL.md", []byte(doc), 0o644)
	outDir := filepath.Join(t.TempDir(), "out")

	for _, format := range []Format{FormatPreserve, FormatFlat, FormatArchive, FormatDist} {
		_, err := Pack(docPath, Options{Output: outDir, Format: format})
		if err == nil {
			t.Fatalf("format %s: expected the disallowed header field to fail the run", format)
		}
		var herr *skilldoc.HeaderError
		if !errors.As(err, &herr) {
			t.Fatalf("format %s: error chain is missing the header error: %v", format, err)
		}
		if !strings.Contains(err.Error(), "tags") {
			t.Errorf("format %s: error should name the offending field: %v", format, err)
		}
	}
	if _, err := os.Stat(outDir); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("failed runs should not create the output directory, stat err = %v", err)
	}
}

func TestPackDistRequiresName(t *testing.T) {
	root := t.TempDir()
	doc := "---\ndescription: anonymous\n---\n\n# Body\n"
	docPath := writeFile(t, root, "SKILL.md", []byte(doc), 0o644)

	_, err := Pack(docPath, Options{Output: t.TempDir(), Format: FormatDist})
	if !errors.Is(err, ErrMissingNameField) {
		t.Fatalf("expected ErrMissingNameField, got %v", err)
	}
}

func TestPackDistClearsStaleDirectory(t *testing.T) {
	root := t.TempDir()
	docPath := writeDemoSkill(t, root)
	outDir := t.TempDir()
	writeFile(t, outDir, "demo-skill/orphan.txt", []byte("left over\n"), 0o644)

	result, err := Pack(docPath, Options{Output: outDir, Format: FormatDist})
	if err != nil {
		t.Fatalf("Pack failed: %v", err)
	}
	if len(result.Outputs) != 2 {
		t.Errorf("dist wrote %d outputs, want the directory and the container", len(result.Outputs))
	}

	if _, err := os.Stat(filepath.Join(outDir, "demo-skill", "orphan.txt")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("stale file should have been cleared, stat err = %v", err)
	}
	if _, err := os.Stat(filepath.Join(outDir, "demo-skill", "SKILL.md")); err != nil {
		t.Errorf("expected the flat directory to be written: %v", err)
	}
	if _, err := os.Stat(filepath.Join(outDir, "demo-skill"+DistSuffix)); err != nil {
		t.Errorf("expected the container to be written: %v", err)
	}
}

func TestPackArchiveRootContent(t *testing.T) {
	root := t.TempDir()
	docPath := writeDemoSkill(t, root)
	raw, err := os.ReadFile(docPath)
	if err != nil {
		t.Fatalf("failed to read fixture: %v", err)
	}

	t.Run("preserved layout keeps original targets", func(t *testing.T) {
		zipPath := filepath.Join(t.TempDir(), "skill.zip")
		if _, err := Pack(docPath, Options{Output: zipPath, Format: FormatArchive}); err != nil {
			t.Fatalf("Pack failed: %v", err)
		}
		entries := readContainer(t, zipPath)
		if string(entries["SKILL.md"]) != string(raw) {
			t.Error("preserved container root should match the source document")
		}
		if _, ok := entries["docs/api.md"]; !ok {
			t.Error("preserved container should keep original relative paths")
		}
	})

	t.Run("flat layout rewrites targets", func(t *testing.T) {
		zipPath := filepath.Join(t.TempDir(), "skill.zip")
		if _, err := Pack(docPath, Options{Output: zipPath, Format: FormatArchive, ArchiveFlat: true}); err != nil {
			t.Fatalf("Pack failed: %v", err)
		}
		entries := readContainer(t, zipPath)
		if !strings.Contains(string(entries["SKILL.md"]), "(references/api.md)") {
			t.Error("flat container root should carry rewritten targets")
		}
		if _, ok := entries["references/api.md"]; !ok {
			t.Error("flat container should use flattened entry names")
		}
	})
}

func readContainer(t *testing.T, zipPath string) map[string][]byte {
	t.Helper()
	r, err := zip.OpenReader(zipPath)
	if err != nil {
		t.Fatalf("failed to open container: %v", err)
	}
	defer r.Close()
	entries := map[string][]byte{}
	for _, f := range r.File {
		rc, err := f.Open()
		if err != nil {
			t.Fatalf("failed to open entry %s: %v", f.Name, err)
		}
		content, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			t.Fatalf("failed to read entry %s: %v", f.Name, err)
		}
		entries[f.Name] = content
	}
	return entries
}

func TestValidateCollectsEveryFinding(t *testing.T) {
	root := t.TempDir()
	doc := "---\ntags: [a]\n---\n\nSee [one](docs/README.md) and [two](guides/README.md).\n"
	docPath := writeFile(t, root, "SKILL.md", []byte(doc), 0o644)
	writeFile(t, root, "docs/README.md", []byte("# one\n"), 0o644)
	writeFile(t, root, "guides/README.md", []byte("# two\n"), 0o644)

	report, err := Validate(docPath, Options{})
	if err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if report.HeaderErr == nil {
		t.Error("report should carry the header problem")
	}
	if report.Collision == nil {
		t.Error("report should carry the flattening collision")
	} else if len(report.Collision.Groups) != 1 {
		t.Errorf("collision has %d groups, want 1", len(report.Collision.Groups))
	}
	if !report.MissingName {
		t.Error("report should flag the missing name field")
	}
	if report.Clean() {
		t.Error("a report with fatal findings must not be clean")
	}
}

func TestInspectDoesNotWrite(t *testing.T) {
	root := t.TempDir()
	docPath := writeDemoSkill(t, root)
	outDir := filepath.Join(t.TempDir(), "out")

	result, err := Inspect(docPath, Options{Output: outDir, Format: FormatFlat})
	if err != nil {
		t.Fatalf("Inspect failed: %v", err)
	}
	if len(result.PathMap) != 6 {
		t.Errorf("path map has %d entries, want 6", len(result.PathMap))
	}
	if len(result.Outputs) != 0 {
		t.Errorf("Inspect recorded outputs: %v", result.Outputs)
	}
	if _, err := os.Stat(outDir); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Inspect should not touch the output location, stat err = %v", err)
	}
}

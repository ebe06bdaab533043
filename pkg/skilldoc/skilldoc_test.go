// SPDX-License-Identifier: MPL-2.0

package skilldoc

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

const sampleDoc = `---
name: demo-skill
description: A demo skill
license: MIT
allowed-tools:
  - bash
  - python
compatibility: ">=1.0"
metadata:
  author: someone
---
# Demo

Body text with a [link](docs/api.md).
`

func TestParseHeader(t *testing.T) {
	header, body, err := ParseHeader([]byte(sampleDoc))
	if err != nil {
		t.Fatalf("ParseHeader failed: %v", err)
	}

	if header.Name != "demo-skill" {
		t.Errorf("Name = %q, want %q", header.Name, "demo-skill")
	}
	if header.Description != "A demo skill" {
		t.Errorf("Description = %q, want %q", header.Description, "A demo skill")
	}
	if header.License != "MIT" {
		t.Errorf("License = %q, want %q", header.License, "MIT")
	}
	if want := []string{"bash", "python"}; !reflect.DeepEqual(header.AllowedTools, want) {
		t.Errorf("AllowedTools = %v, want %v", header.AllowedTools, want)
	}
	if header.Compatibility != ">=1.0" {
		t.Errorf("Compatibility = %q, want %q", header.Compatibility, ">=1.0")
	}
	if header.Metadata["author"] != "someone" {
		t.Errorf("Metadata[author] = %q, want %q", header.Metadata["author"], "someone")
	}
	if !strings.HasPrefix(string(body), "# Demo") {
		t.Errorf("body starts with %q, want it to start with %q", string(body[:20]), "# Demo")
	}
}

func TestParseHeaderNoFrontmatter(t *testing.T) {
	content := []byte("# Just a document\n\nNo header here.\n")
	header, body, err := ParseHeader(content)
	if err != nil {
		t.Fatalf("ParseHeader failed: %v", err)
	}
	if len(header.Fields) != 0 {
		t.Errorf("Fields = %v, want empty", header.Fields)
	}
	if string(body) != string(content) {
		t.Errorf("body = %q, want the full content", string(body))
	}
}

func TestParseHeaderUnclosedFrontmatter(t *testing.T) {
	content := []byte("---\nname: demo\n\n# No closing delimiter\n")
	header, body, err := ParseHeader(content)
	if err != nil {
		t.Fatalf("ParseHeader failed: %v", err)
	}
	if len(header.Fields) != 0 {
		t.Errorf("Fields = %v, want empty for unclosed frontmatter", header.Fields)
	}
	if string(body) != string(content) {
		t.Error("body should be the full content when the header is unclosed")
	}
}

func TestParseHeaderAllowedToolsScalar(t *testing.T) {
	content := []byte("---\nallowed-tools: bash, python , \n---\nbody\n")
	header, _, err := ParseHeader(content)
	if err != nil {
		t.Fatalf("ParseHeader failed: %v", err)
	}
	if want := []string{"bash", "python"}; !reflect.DeepEqual(header.AllowedTools, want) {
		t.Errorf("AllowedTools = %v, want %v", header.AllowedTools, want)
	}
}

func TestParseHeaderDuplicateField(t *testing.T) {
	content := []byte("---\nname: one\nname: two\n---\nbody\n")
	_, _, err := ParseHeader(content)
	if err == nil {
		t.Fatal("expected an error for a duplicate header field")
	}
	if !strings.Contains(err.Error(), "duplicate") {
		t.Errorf("error = %v, want it to mention the duplicate field", err)
	}
}

func TestValidateReportsEveryUnknownField(t *testing.T) {
	content := []byte("---\nname: demo\ntags: [a, b]\nauthor: someone\n---\nbody\n")
	header, _, err := ParseHeader(content)
	if err != nil {
		t.Fatalf("ParseHeader failed: %v", err)
	}

	herr := header.Validate()
	if herr == nil {
		t.Fatal("expected a HeaderError")
	}
	if want := []string{"author", "tags"}; !reflect.DeepEqual(herr.Unknown, want) {
		t.Errorf("Unknown = %v, want %v (sorted, complete)", herr.Unknown, want)
	}
	for _, field := range AllowedFields {
		if !strings.Contains(herr.Error(), field) {
			t.Errorf("error message should list allowed field %q: %s", field, herr.Error())
		}
	}
}

func TestValidateCleanHeader(t *testing.T) {
	header, _, err := ParseHeader([]byte(sampleDoc))
	if err != nil {
		t.Fatalf("ParseHeader failed: %v", err)
	}
	if herr := header.Validate(); herr != nil {
		t.Errorf("Validate = %v, want nil for an all-allowed header", herr)
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "SKILL.md")
	if err := os.WriteFile(path, []byte(sampleDoc), 0o644); err != nil {
		t.Fatalf("failed to write document: %v", err)
	}

	doc, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if doc.Path != path {
		t.Errorf("Path = %q, want %q", doc.Path, path)
	}
	if doc.Dir != dir {
		t.Errorf("Dir = %q, want %q", doc.Dir, dir)
	}
	if doc.Header.Name != "demo-skill" {
		t.Errorf("Header.Name = %q, want %q", doc.Header.Name, "demo-skill")
	}
	if string(doc.Raw) != sampleDoc {
		t.Error("Raw should hold the full file content")
	}
}

func TestLoadMissingDocument(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.md")); err == nil {
		t.Fatal("expected an error for a missing document")
	}
}

func TestLoadDirectory(t *testing.T) {
	if _, err := Load(t.TempDir()); err == nil {
		t.Fatal("expected an error when the document path is a directory")
	}
}

// SPDX-License-Identifier: MPL-2.0

// Package skilldoc loads and validates skill documents.
//
// A skill document is a markdown file that starts with a YAML frontmatter
// header delimited by "---" lines. The header carries the document's
// distribution metadata (name, description, license, ...) and is restricted
// to a fixed set of recognized fields. Everything after the header is plain
// markdown body text.
package skilldoc

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// HeaderDelimiter marks the start and end of the frontmatter block.
const HeaderDelimiter = "---"

// AllowedFields is the complete set of recognized top-level header fields.
// Any other field is a validation error.
var AllowedFields = []string{
	"allowed-tools",
	"compatibility",
	"description",
	"license",
	"metadata",
	"name",
}

// Header is the parsed frontmatter of a skill document. Fields holds every
// top-level field name as authored, including unrecognized ones, so
// validation can report the full offending set.
type Header struct {
	// Name identifies the skill. Required for outputs that derive a
	// distribution name from the document.
	Name string
	// Description is a short human-readable summary.
	Description string
	// License is the SPDX identifier or license name.
	License string
	// AllowedTools lists tool names the skill is permitted to invoke.
	AllowedTools []string
	// Compatibility describes runtime compatibility constraints.
	Compatibility string
	// Metadata carries free-form key/value annotations.
	Metadata map[string]string

	// Fields holds every top-level header field name as authored.
	Fields []string
}

// HeaderError reports header fields outside the allow-list. It carries the
// complete offending set so one diagnostic run is enough to fix the document.
type HeaderError struct {
	// Unknown lists every disallowed field name, sorted.
	Unknown []string
	// Allowed is the allow-list in effect, for the error message.
	Allowed []string
}

// Error implements the error interface.
func (e *HeaderError) Error() string {
	return fmt.Sprintf("header contains unrecognized fields: %s (allowed: %s)",
		strings.Join(e.Unknown, ", "), strings.Join(e.Allowed, ", "))
}

// Document is a loaded skill document. Path is the canonical absolute path;
// Dir is the directory that anchors relative reference resolution.
type Document struct {
	// Path is the canonical absolute path of the document.
	Path string
	// Dir is the document's directory (the root directory of the trace).
	Dir string
	// Raw is the full file content, header included.
	Raw []byte
	// Body is the markdown content after the header block.
	Body []byte
	// Header is the parsed frontmatter.
	Header Header
}

// Load reads and parses a skill document. It fails if the path does not
// exist or is not a regular file; a missing or empty header block is not an
// error (validation of field names is a separate step, see Header.Validate).
func Load(path string) (*Document, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve document path: %w", err)
	}
	abs = filepath.Clean(abs)

	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("skill document not found: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("skill document %s is a directory, not a file", abs)
	}

	raw, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("failed to read skill document: %w", err)
	}

	header, body, err := ParseHeader(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to parse header of %s: %w", abs, err)
	}

	return &Document{
		Path:   abs,
		Dir:    filepath.Dir(abs),
		Raw:    raw,
		Body:   body,
		Header: header,
	}, nil
}

// ParseHeader splits content into its frontmatter header and body, and
// decodes the header's YAML mapping. Content without an opening delimiter on
// the first line has an empty header and the whole content as body.
func ParseHeader(content []byte) (Header, []byte, error) {
	headerText, body, found := splitFrontmatter(content)
	if !found {
		return Header{}, content, nil
	}

	var node yaml.Node
	if err := yaml.Unmarshal(headerText, &node); err != nil {
		return Header{}, nil, fmt.Errorf("invalid YAML in header: %w", err)
	}
	if node.Kind == 0 || len(node.Content) == 0 {
		// Empty block between the delimiters.
		return Header{}, body, nil
	}

	mapping := node.Content[0]
	if mapping.Kind != yaml.MappingNode {
		return Header{}, nil, fmt.Errorf("header must be a YAML mapping, got %s", nodeKind(mapping))
	}

	header := Header{}
	for i := 0; i+1 < len(mapping.Content); i += 2 {
		key := mapping.Content[i]
		value := mapping.Content[i+1]
		if slices.Contains(header.Fields, key.Value) {
			return Header{}, nil, fmt.Errorf("duplicate header field %q (line %d)", key.Value, key.Line)
		}
		header.Fields = append(header.Fields, key.Value)

		if err := decodeField(&header, key.Value, value); err != nil {
			return Header{}, nil, err
		}
	}

	return header, body, nil
}

// Validate checks every header field against the allow-list. It returns nil
// when all fields are recognized, otherwise a HeaderError naming every
// offending field.
func (h Header) Validate() *HeaderError {
	var unknown []string
	for _, field := range h.Fields {
		if !slices.Contains(AllowedFields, field) {
			unknown = append(unknown, field)
		}
	}
	if len(unknown) == 0 {
		return nil
	}
	sort.Strings(unknown)
	return &HeaderError{Unknown: unknown, Allowed: AllowedFields}
}

// decodeField decodes one recognized header field into its typed slot.
// Unrecognized fields are recorded in Fields only; their values are
// irrelevant because validation rejects the document before the values
// could be used.
func decodeField(h *Header, name string, value *yaml.Node) error {
	var err error
	switch name {
	case "name":
		err = value.Decode(&h.Name)
	case "description":
		err = value.Decode(&h.Description)
	case "license":
		err = value.Decode(&h.License)
	case "allowed-tools":
		// Accept both a YAML sequence and a comma-separated scalar.
		if value.Kind == yaml.ScalarNode {
			var raw string
			if err = value.Decode(&raw); err == nil {
				for _, tool := range strings.Split(raw, ",") {
					if tool = strings.TrimSpace(tool); tool != "" {
						h.AllowedTools = append(h.AllowedTools, tool)
					}
				}
			}
		} else {
			err = value.Decode(&h.AllowedTools)
		}
	case "compatibility":
		err = value.Decode(&h.Compatibility)
	case "metadata":
		err = value.Decode(&h.Metadata)
	}
	if err != nil {
		return fmt.Errorf("invalid value for header field %q (line %d): %w", name, value.Line, err)
	}
	return nil
}

// splitFrontmatter returns the header text between the delimiters and the
// remaining body. The opening delimiter must be the very first line.
func splitFrontmatter(content []byte) (header, body []byte, found bool) {
	delim := []byte(HeaderDelimiter)
	rest, ok := bytes.CutPrefix(content, delim)
	if !ok {
		return nil, content, false
	}
	// The opening delimiter must be a full line on its own.
	rest, ok = bytes.CutPrefix(rest, []byte("\n"))
	if !ok {
		if rest, ok = bytes.CutPrefix(rest, []byte("\r\n")); !ok {
			return nil, content, false
		}
	}

	for offset := 0; offset <= len(rest); {
		lineEnd := bytes.IndexByte(rest[offset:], '\n')
		var line []byte
		next := len(rest)
		if lineEnd >= 0 {
			line = rest[offset : offset+lineEnd]
			next = offset + lineEnd + 1
		} else {
			line = rest[offset:]
		}
		if string(bytes.TrimRight(line, "\r")) == HeaderDelimiter {
			return rest[:offset], rest[next:], true
		}
		if lineEnd < 0 {
			break
		}
		offset = next
	}

	// No closing delimiter: treat the whole document as body.
	return nil, content, false
}

func nodeKind(n *yaml.Node) string {
	switch n.Kind {
	case yaml.ScalarNode:
		return "a scalar"
	case yaml.SequenceNode:
		return "a sequence"
	case yaml.MappingNode:
		return "a mapping"
	default:
		return "an unsupported node"
	}
}

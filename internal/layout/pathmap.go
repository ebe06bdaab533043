// SPDX-License-Identifier: MPL-2.0

// Package layout derives flat destination paths for traced files and
// rewrites references inside the root document to match.
package layout

import (
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/bikeshaving/skillpack/internal/trace"
)

// CollisionGroup is one flattened destination claimed by more than one
// source file.
type CollisionGroup struct {
	// Destination is the contested flat path, e.g. "references/README.md".
	Destination string
	// Sources lists every root-relative source path mapping there, sorted.
	Sources []string
}

// CollisionError reports destination collisions in a flattened layout. It
// carries every colliding group, not just the first one found, so a single
// run is enough to fix them all.
type CollisionError struct {
	Groups []CollisionGroup
}

// Error implements the error interface.
func (e *CollisionError) Error() string {
	var msg strings.Builder
	msg.WriteString("flattening would overwrite files, rename the sources to disambiguate:")
	for _, group := range e.Groups {
		fmt.Fprintf(&msg, "\n  %s claimed by:", group.Destination)
		for _, source := range group.Sources {
			fmt.Fprintf(&msg, "\n    - %s", source)
		}
	}
	return msg.String()
}

// BuildPathMap maps each traced file's root-relative path to its flat
// destination "<bucket>/<basename>". It builds the full destination multimap
// first and succeeds only if every destination has exactly one contributing
// source; otherwise it fails with a CollisionError enumerating every
// colliding group. The root document is never part of the map.
func BuildPathMap(result *trace.Result) (map[string]string, error) {
	rels, err := result.RelFiles()
	if err != nil {
		return nil, err
	}

	destinations := make(map[string][]string, len(rels))
	for i, rel := range rels {
		category, ok := result.Categories[result.Files[i]]
		if !ok {
			return nil, fmt.Errorf("traced file %s has no category", result.Files[i])
		}
		dest := category.Dir() + "/" + path.Base(rel)
		destinations[dest] = append(destinations[dest], rel)
	}

	var groups []CollisionGroup
	pathMap := make(map[string]string, len(rels))
	for dest, sources := range destinations {
		if len(sources) > 1 {
			sort.Strings(sources)
			groups = append(groups, CollisionGroup{Destination: dest, Sources: sources})
			continue
		}
		pathMap[sources[0]] = dest
	}
	if len(groups) > 0 {
		sort.Slice(groups, func(i, j int) bool { return groups[i].Destination < groups[j].Destination })
		return nil, &CollisionError{Groups: groups}
	}

	return pathMap, nil
}

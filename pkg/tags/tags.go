// Package tags canonicalizes the tag lists sent to the geo-directory.
//
// The first tag of a synchronized entry is its type tag, the qualified name of
// the local type that owns it ("places.Place"). Reverse lookups read that
// position, so every push goes through Normalize first.
package tags

import (
	"slices"
	"strings"
)

// Separator splits the namespace from the type name in a type tag.
const Separator = "."

// Normalize returns a copy of tags with typeTag at index 0.
//
// A nil list is treated as empty. When typeTag is missing it is prepended;
// when it appears later in the list its first occurrence is moved to the
// front. Every other tag keeps its relative order and duplicates are left
// alone. The input slice is never modified.
func Normalize(tags []string, typeTag string) []string {
	idx := slices.Index(tags, typeTag)
	if idx == 0 {
		return slices.Clone(tags)
	}

	out := make([]string, 0, len(tags)+1)
	out = append(out, typeTag)
	if idx < 0 {
		return append(out, tags...)
	}

	out = append(out, tags[:idx]...)
	return append(out, tags[idx+1:]...)
}

// IsQualified reports whether name looks like a type tag, i.e. carries a
// namespace before the type name.
func IsQualified(name string) bool {
	ns, typ, ok := strings.Cut(name, Separator)
	return ok && ns != "" && typ != ""
}

// TypeTag returns the leading tag of an entry, or "" when there is none.
func TypeTag(tags []string) string {
	if len(tags) == 0 {
		return ""
	}
	return tags[0]
}

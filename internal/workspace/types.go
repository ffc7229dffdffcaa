package workspace

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// StripTypeVersion drops the "-Major.Minor" suffix: "Mod.Type-1.0" -> "Mod.Type".
func StripTypeVersion(typeString string) string {
	if i := strings.IndexByte(typeString, '-'); i >= 0 {
		return typeString[:i]
	}
	return typeString
}

// SimpleType reduces a type string to its bare name: "Mod.Type-1.0" -> "Type".
// Applying it to its own output is a no-op.
func SimpleType(typeString string) string {
	t := StripTypeVersion(typeString)
	if i := strings.LastIndexByte(t, '.'); i >= 0 {
		return t[i+1:]
	}
	return t
}

// TypeModule returns the module part: "Mod.Type-1.0" -> "Mod".
func TypeModule(typeString string) string {
	t := StripTypeVersion(typeString)
	if i := strings.IndexByte(t, '.'); i >= 0 {
		return t[:i]
	}
	return t
}

// TypeFilter is an allow-list of version-stripped type strings.
// A nil filter admits everything.
type TypeFilter map[string]struct{}

// NewTypeFilter builds a filter from type strings. Versions on entries are ignored.
// Returns nil when types is nil so that "no filter" and "empty filter" stay distinct.
func NewTypeFilter(types []string) TypeFilter {
	if types == nil {
		return nil
	}
	f := make(TypeFilter, len(types))
	for _, t := range types {
		f[StripTypeVersion(strings.TrimSpace(t))] = struct{}{}
	}
	return f
}

// Allows reports whether typeString passes the filter.
func (f TypeFilter) Allows(typeString string) bool {
	if f == nil {
		return true
	}
	_, ok := f[StripTypeVersion(typeString)]
	return ok
}

// ObjectRef is a parsed numeric object reference (UPA).
type ObjectRef struct {
	WorkspaceID int64
	ObjectID    int64
	Version     int64 // 0 when the ref did not name a version
}

var refPattern = regexp.MustCompile(`^(\d+)/(\d+)(?:/(\d+))?$`)

// ParseRef parses "ws/obj" or "ws/obj/ver".
func ParseRef(ref string) (ObjectRef, error) {
	m := refPattern.FindStringSubmatch(strings.TrimSpace(ref))
	if m == nil {
		return ObjectRef{}, fmt.Errorf("invalid object reference %q", ref)
	}
	var out ObjectRef
	out.WorkspaceID, _ = strconv.ParseInt(m[1], 10, 64)
	out.ObjectID, _ = strconv.ParseInt(m[2], 10, 64)
	if m[3] != "" {
		out.Version, _ = strconv.ParseInt(m[3], 10, 64)
	}
	return out, nil
}

// String renders the reference, omitting an unset version.
func (r ObjectRef) String() string {
	if r.Version == 0 {
		return fmt.Sprintf("%d/%d", r.WorkspaceID, r.ObjectID)
	}
	return fmt.Sprintf("%d/%d/%d", r.WorkspaceID, r.ObjectID, r.Version)
}

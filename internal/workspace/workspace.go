package workspace

import (
	"fmt"
	"strings"
	"time"
)

// Permission levels as reported by the object store.
const (
	PermNone  = "n"
	PermRead  = "r"
	PermWrite = "w"
	PermAdmin = "a"
)

// Workspace metadata keys read by the aggregators.
const (
	MetaIsTemporary     = "is_temporary"
	MetaNarrativeName   = "narrative_nice_name"
	MetaShowInDataPanel = "show_in_narrative_data_panel"
	MetaNarrative       = "narrative" // object id of the workspace's narrative
	MetaNarratorial     = "narratorial"
)

// ObjectInfo is one version of one stored object.
// On the wire it is an 11-element tuple; see tuple.go.
type ObjectInfo struct {
	ObjectID      int64
	Name          string
	TypeString    string // Module.Type-Major.Minor
	SaveDate      string
	Version       int64
	SavedBy       string
	WorkspaceID   int64
	WorkspaceName string
	Checksum      string
	Size          int64
	Metadata      map[string]string // nil unless requested
}

// Ref returns the "ws/obj/ver" reference for this object version.
func (o ObjectInfo) Ref() string {
	return fmt.Sprintf("%d/%d/%d", o.WorkspaceID, o.ObjectID, o.Version)
}

// SavedAt parses SaveDate. ok is false when the timestamp is not in a known layout.
func (o ObjectInfo) SavedAt() (time.Time, bool) {
	return ParseTimestamp(o.SaveDate)
}

// WorkspaceInfo describes a workspace container.
// On the wire it is a 9-element tuple; see tuple.go.
type WorkspaceInfo struct {
	ID             int64
	Name           string
	Owner          string
	ModDate        string
	MaxObjectID    int64
	UserPermission string
	GlobalRead     string
	LockStatus     string
	Metadata       map[string]string
}

// IsTemporary reports whether the workspace is flagged as an untitled draft.
func (w WorkspaceInfo) IsTemporary() bool {
	return w.Metadata[MetaIsTemporary] == "true"
}

// DisplayName returns the name shown in data panels:
// the narrative title, else a data-only label, else a legacy label.
func (w WorkspaceInfo) DisplayName() string {
	if name := w.Metadata[MetaNarrativeName]; name != "" {
		return name
	}
	if w.Metadata[MetaShowInDataPanel] != "" {
		return "(data only) " + w.Name
	}
	return "Legacy (" + w.Name + ")"
}

// timestampLayouts covers the formats the object store has emitted over time.
var timestampLayouts = []string{
	"2006-01-02T15:04:05-0700",
	"2006-01-02T15:04:05Z0700",
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02-T15:04:05-0700",
	"2006-01-02T15:04:05.000-0700",
}

// ParseTimestamp parses an object-store timestamp.
func ParseTimestamp(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// FormatTimestamp renders t in the object store's canonical layout.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05-0700")
}

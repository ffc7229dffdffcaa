package ops

import "github.com/hpungsan/narrsvc/internal/workspace"

// ListItem is one entry of a merged object listing.
// SetItems is set only for set objects; DPInfo only for palette-visible objects.
type ListItem struct {
	ObjectInfo workspace.ObjectInfo `json:"object_info"`
	SetItems   *SetItems            `json:"set_items,omitempty"`
	DPInfo     *DPInfo              `json:"dp_info,omitempty"`
}

// SetItems holds a set's members in set order.
type SetItems struct {
	SetItemsInfo []workspace.ObjectInfo `json:"set_items_info"`
}

// DPInfo records the palette pointers an object is reachable through.
type DPInfo struct {
	Ref  string   `json:"ref,omitempty"`
	Refs []string `json:"refs,omitempty"`
}

// refIndex is an insertion-ordered map from object ref to ListItem.
// Each ref has exactly one entry; later sources augment it in place.
type refIndex struct {
	order []string
	byRef map[string]*ListItem
}

func newRefIndex() *refIndex {
	return &refIndex{byRef: make(map[string]*ListItem)}
}

func (x *refIndex) has(ref string) bool {
	_, ok := x.byRef[ref]
	return ok
}

// getOrCreate returns the entry for ref, creating it from info if absent.
func (x *refIndex) getOrCreate(ref string, info workspace.ObjectInfo) (*ListItem, bool) {
	if item, ok := x.byRef[ref]; ok {
		return item, false
	}
	item := &ListItem{ObjectInfo: info}
	x.byRef[ref] = item
	x.order = append(x.order, ref)
	return item, true
}

func (x *refIndex) len() int {
	return len(x.order)
}

// items copies the entries out in insertion order.
func (x *refIndex) items() []ListItem {
	out := make([]ListItem, 0, len(x.order))
	for _, ref := range x.order {
		out = append(out, *x.byRef[ref])
	}
	return out
}

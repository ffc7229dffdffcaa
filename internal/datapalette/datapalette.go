// Package datapalette defines the Data-Palette collaborator, which makes an
// object stored in one workspace visible in another without copying it.
package datapalette

import (
	"context"

	"github.com/hpungsan/narrsvc/internal/workspace"
)

// Client lists palette-visible objects for a group of workspaces.
type Client interface {
	ListData(ctx context.Context, params ListDataParams) (*ListDataResult, error)
}

// ListDataParams selects palettes by workspace id or name.
type ListDataParams struct {
	Workspaces      []string `json:"workspaces"`
	IncludeMetadata int      `json:"include_metadata"`
}

// ListDataResult is the list_data response.
// DataPaletteRefs maps workspace id to the ref of that workspace's palette object.
type ListDataResult struct {
	Data            []Entry           `json:"data"`
	DataPaletteRefs map[string]string `json:"data_palette_refs"`
}

// Entry is one palette-visible object. The same real object may be reached
// through several palette pointers; DPRef and DPRefs carry all of them.
type Entry struct {
	Ref    string               `json:"ref"`
	Info   workspace.ObjectInfo `json:"info"`
	DPRef  *string              `json:"dp_ref,omitempty"`
	DPRefs []string             `json:"dp_refs,omitempty"`
}

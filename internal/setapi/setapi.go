// Package setapi defines the Set-Service collaborator: virtual container
// objects whose payload references other objects.
package setapi

import (
	"context"

	"github.com/hpungsan/narrsvc/internal/workspace"
)

// Client lists the sets visible in a group of workspaces.
type Client interface {
	ListSets(ctx context.Context, params ListSetsParams) (*ListSetsResult, error)
}

// ListSetsParams selects sets by workspace id or name.
type ListSetsParams struct {
	Workspaces         []string `json:"workspaces"`
	IncludeSetItemInfo int      `json:"include_set_item_info"`
	IncludeMetadata    int      `json:"include_metadata"`
}

// ListSetsResult is the list_sets response.
type ListSetsResult struct {
	Sets []SetRecord `json:"sets"`
}

// SetRecord is one set object and its ordered members.
type SetRecord struct {
	Ref   string               `json:"ref"`
	Info  workspace.ObjectInfo `json:"info"`
	Items []SetItem            `json:"items"`
}

// SetItem is one member of a set.
type SetItem struct {
	Ref  string               `json:"ref"`
	Info workspace.ObjectInfo `json:"info"`
}

// ItemInfos returns the member infos in set order.
func (s SetRecord) ItemInfos() []workspace.ObjectInfo {
	out := make([]workspace.ObjectInfo, 0, len(s.Items))
	for _, item := range s.Items {
		out = append(out, item.Info)
	}
	return out
}

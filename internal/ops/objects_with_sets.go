package ops

import (
	"context"
	"slices"
	"strconv"
	"strings"

	"github.com/golang/glog"

	"github.com/hpungsan/narrsvc/internal/datapalette"
	"github.com/hpungsan/narrsvc/internal/errors"
	"github.com/hpungsan/narrsvc/internal/setapi"
	"github.com/hpungsan/narrsvc/internal/workspace"
)

// ListObjectsWithSetsInput contains parameters for the ListObjectsWithSets operation.
// Workspaces takes precedence over WorkspaceName, which takes precedence over WorkspaceID.
type ListObjectsWithSetsInput struct {
	WorkspaceID         int64
	WorkspaceName       string
	Workspaces          []string // ids or names
	Types               []string // allow-list of Module.Type; nil = all types
	IncludeMetadata     bool
	IncludeDataPalettes bool
}

// ListObjectsWithSetsOutput contains the merged listing.
// Data holds sets first, then plain objects, then palette-only objects.
type ListObjectsWithSetsOutput struct {
	Data            []ListItem        `json:"data"`
	DataPaletteRefs map[string]string `json:"data_palette_refs,omitempty"`
}

// ListObjectsWithSets merges set objects, plain workspace objects and,
// optionally, data-palette objects into one listing with one entry per ref.
func ListObjectsWithSets(ctx context.Context, svc Services, input ListObjectsWithSetsInput) (*ListObjectsWithSetsOutput, error) {
	workspaces, err := workspaceIdents(input)
	if err != nil {
		return nil, err
	}

	filter := workspace.NewTypeFilter(input.Types)
	index := newRefIndex()

	// 1. Sets
	sets, err := svc.Sets.ListSets(ctx, setapi.ListSetsParams{
		Workspaces:         workspaces,
		IncludeSetItemInfo: 1,
		IncludeMetadata:    boolToInt(input.IncludeMetadata),
	})
	if err != nil {
		return nil, upstream(serviceSetAPI, err)
	}
	for _, set := range sets.Sets {
		if !filter.Allows(set.Info.TypeString) {
			continue
		}
		ref := set.Ref
		if ref == "" {
			ref = set.Info.Ref()
		}
		item, _ := index.getOrCreate(ref, set.Info)
		item.SetItems = &SetItems{SetItemsInfo: set.ItemInfos()}
	}
	numSets := index.len()

	// 2. Workspace records
	infos, err := resolveWorkspaces(ctx, svc.Workspace, workspaces)
	if err != nil {
		return nil, err
	}

	// 3. Plain objects; refs already captured as sets are skipped
	it := workspace.NewObjectIterator(svc.Workspace, infos, workspace.IteratorOptions{
		PartSize:        svc.partSize(),
		IncludeMetadata: input.IncludeMetadata,
	})
	for it.Next(ctx) {
		info := it.Info()
		ref := info.Ref()
		if index.has(ref) || !filter.Allows(info.TypeString) {
			continue
		}
		index.getOrCreate(ref, info)
	}
	if err := it.Err(); err != nil {
		return nil, upstream(serviceWorkspace, err)
	}

	output := &ListObjectsWithSetsOutput{}

	// 4. Data palettes
	if input.IncludeDataPalettes {
		dp, err := svc.Palette.ListData(ctx, datapalette.ListDataParams{
			Workspaces:      workspaces,
			IncludeMetadata: boolToInt(input.IncludeMetadata),
		})
		if err != nil {
			return nil, upstream(serviceDataPalette, err)
		}
		for _, entry := range dp.Data {
			if !filter.Allows(entry.Info.TypeString) {
				continue
			}
			ref := entry.Ref
			if ref == "" {
				ref = entry.Info.Ref()
			}
			item, _ := index.getOrCreate(ref, entry.Info)
			item.DPInfo = mergeDPInfo(item.DPInfo, entry)
		}
		output.DataPaletteRefs = dp.DataPaletteRefs
		if output.DataPaletteRefs == nil {
			output.DataPaletteRefs = map[string]string{}
		}
	}

	output.Data = index.items()
	glog.V(1).Infof("[objects_with_sets] workspaces=%v sets=%d items=%d list_calls=%d",
		workspaces, numSets, len(output.Data), it.Calls())
	return output, nil
}

// mergeDPInfo records the entry's palette pointers on the item.
// Ref carries dp_ref and Refs carries dp_refs; when several entries hit the
// same object, Ref keeps the first pointer and Refs is their union.
func mergeDPInfo(existing *DPInfo, entry datapalette.Entry) *DPInfo {
	info := &DPInfo{}
	if existing != nil {
		info.Ref = existing.Ref
		info.Refs = append(info.Refs, existing.Refs...)
	}
	if info.Ref == "" && entry.DPRef != nil {
		info.Ref = *entry.DPRef
	}
	for _, p := range entry.DPRefs {
		if p != "" && !slices.Contains(info.Refs, p) {
			info.Refs = append(info.Refs, p)
		}
	}
	return info
}

// workspaceIdents normalizes the three addressing modes to one identifier list.
func workspaceIdents(input ListObjectsWithSetsInput) ([]string, error) {
	var idents []string
	for _, ws := range input.Workspaces {
		if ws = strings.TrimSpace(ws); ws != "" {
			idents = append(idents, ws)
		}
	}
	if len(idents) > 0 {
		return idents, nil
	}

	if name := strings.TrimSpace(input.WorkspaceName); name != "" {
		return []string{name}, nil
	}
	if input.WorkspaceID > 0 {
		return []string{strconv.FormatInt(input.WorkspaceID, 10)}, nil
	}
	return nil, errors.NewInvalidArgument("One and only one of 'ws_id', 'ws_name', 'workspaces' parameters should be set")
}

// resolveWorkspaces fetches workspace records. A single identifier is looked
// up directly; several are matched by name or id against every workspace the
// caller can read, which costs one call instead of one per workspace.
func resolveWorkspaces(ctx context.Context, client workspace.Client, idents []string) ([]workspace.WorkspaceInfo, error) {
	if len(idents) == 1 {
		info, err := client.GetWorkspaceInfo(ctx, parseWorkspaceIdent(idents[0]))
		if err != nil {
			return nil, upstream(serviceWorkspace, err)
		}
		return []workspace.WorkspaceInfo{info}, nil
	}

	wanted := make(map[string]bool, len(idents))
	for _, ident := range idents {
		wanted[ident] = true
	}

	all, err := client.ListWorkspaceInfo(ctx, workspace.ListWorkspaceInfoParams{Perm: workspace.PermRead})
	if err != nil {
		return nil, upstream(serviceWorkspace, err)
	}

	var out []workspace.WorkspaceInfo
	for _, info := range all {
		if wanted[info.Name] || wanted[strconv.FormatInt(info.ID, 10)] {
			out = append(out, info)
		}
	}
	return out, nil
}

// parseWorkspaceIdent treats an all-digit identifier as an id, anything else as a name.
func parseWorkspaceIdent(ident string) workspace.WorkspaceIdentity {
	if id, err := strconv.ParseInt(ident, 10, 64); err == nil && id > 0 && !strings.HasPrefix(ident, "+") {
		return workspace.WorkspaceIdentity{ID: id}
	}
	return workspace.WorkspaceIdentity{Workspace: ident}
}

package ops

import (
	"context"
	"sort"

	"github.com/golang/glog"

	"github.com/hpungsan/narrsvc/internal/errors"
	"github.com/hpungsan/narrsvc/internal/workspace"
)

// Data sets accepted by FetchAccessibleData.
const (
	DataSetMine   = "mine"
	DataSetShared = "shared"
)

// DataObjectView is one object in a fetch result.
type DataObjectView struct {
	WorkspaceID int64  `json:"workspace_id"`
	ObjectID    int64  `json:"object_id"`
	Version     int64  `json:"version"`
	SavedBy     string `json:"saved_by"`
	Name        string `json:"name"`
	Type        string `json:"type"`
	SavedAt     string `json:"saved_at"`
}

// WorkspaceDisplay is the per-workspace label and object count.
type WorkspaceDisplay struct {
	DisplayName string `json:"display_name"`
	Count       int    `json:"count"`
}

// FetchDataOutput contains the result of a fetch.
// TypeCounts is only set when include_type_counts was requested.
type FetchDataOutput struct {
	Objects          []DataObjectView                  `json:"objects"`
	WorkspaceDisplay map[int64]*WorkspaceDisplay       `json:"workspace_display"`
	WSInfo           map[int64]workspace.WorkspaceInfo `json:"ws_info"`
	TypeCounts       map[string]int                    `json:"type_counts,omitempty"`
	LimitReached     int                               `json:"limit_reached"`
}

// fetchOptions is the validated form of the shared filter/shape options.
type fetchOptions struct {
	ignoreWorkspaces  map[int64]bool
	includeTypeCounts bool
	simpleTypes       bool
	ignoreNarratives  bool
	includeMetadata   bool
	types             workspace.TypeFilter
	limit             int
}

// parseFetchOptions validates every shared option, recording all failures.
func parseFetchOptions(params Params, defaultLimit int, fe *fieldErrors) fetchOptions {
	opts := fetchOptions{
		includeTypeCounts: params.flag("include_type_counts", false, fe),
		simpleTypes:       params.flag("simple_types", false, fe),
		ignoreNarratives:  params.flag("ignore_narratives", true, fe),
		includeMetadata:   params.flag("include_metadata", false, fe),
		limit:             params.positiveInt("limit", defaultLimit, fe),
	}

	if raw, ok := params["ignore_workspaces"]; ok && raw != nil {
		ids, _ := params.intList("ignore_workspaces", fe)
		opts.ignoreWorkspaces = make(map[int64]bool, len(ids))
		for _, id := range ids {
			opts.ignoreWorkspaces[id] = true
		}
	}

	if types, ok := params.stringList("types", fe); ok {
		opts.types = workspace.NewTypeFilter(types)
	}
	return opts
}

// FetchAccessibleData aggregates the objects in the caller's own ("mine") or
// shared-with-caller ("shared") workspaces.
//
// params keys: data_set (required), ignore_workspaces, include_type_counts,
// simple_types, ignore_narratives, include_metadata, types, limit.
func FetchAccessibleData(ctx context.Context, svc Services, params Params) (*FetchDataOutput, error) {
	var fe fieldErrors

	dataSet, isString := params.str("data_set")
	if !isString || (dataSet != DataSetMine && dataSet != DataSetShared) {
		fe.add("data_set", "Parameter 'data_set' must be either 'mine' or 'shared', not '%v'", params["data_set"])
	}
	opts := parseFetchOptions(params, svc.defaultLimit(), &fe)
	if err := fe.err(); err != nil {
		return nil, err
	}
	if svc.User == "" {
		return nil, errors.NewInvalidArgument("no user configured; cannot resolve 'mine' or 'shared' workspaces")
	}

	var listParams workspace.ListWorkspaceInfoParams
	if dataSet == DataSetMine {
		listParams.Owners = []string{svc.User}
	} else {
		listParams.ExcludeGlobal = 1
	}
	infos, err := svc.Workspace.ListWorkspaceInfo(ctx, listParams)
	if err != nil {
		return nil, upstream(serviceWorkspace, err)
	}

	candidates := make([]workspace.WorkspaceInfo, 0, len(infos))
	for _, info := range infos {
		// excludeGlobal still returns the caller's own workspaces
		if dataSet == DataSetShared && info.Owner == svc.User {
			continue
		}
		if opts.ignoreWorkspaces[info.ID] {
			continue
		}
		candidates = append(candidates, info)
	}

	return fetchData(ctx, svc, candidates, opts)
}

// FetchSpecificWorkspaceData aggregates the objects in the listed workspaces.
// If any workspace is inaccessible the whole call fails.
//
// params keys: workspace_ids (required), plus the options of FetchAccessibleData
// except data_set and ignore_workspaces.
func FetchSpecificWorkspaceData(ctx context.Context, svc Services, params Params) (*FetchDataOutput, error) {
	var fe fieldErrors

	ids, present := params.intList("workspace_ids", &fe)
	if !present {
		fe.add("workspace_ids", "Parameter 'workspace_ids' must be a non-empty list of integers")
	} else if len(ids) == 0 && len(fe) == 0 {
		fe.add("workspace_ids", "Parameter 'workspace_ids' must be a non-empty list of integers")
	}
	opts := parseFetchOptions(params, svc.defaultLimit(), &fe)
	opts.ignoreWorkspaces = nil
	if err := fe.err(); err != nil {
		return nil, err
	}

	candidates := make([]workspace.WorkspaceInfo, 0, len(ids))
	seen := make(map[int64]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		info, err := svc.Workspace.GetWorkspaceInfo(ctx, workspace.WorkspaceIdentity{ID: id})
		if err != nil {
			return nil, upstream(serviceWorkspace, err)
		}
		candidates = append(candidates, info)
	}

	return fetchData(ctx, svc, candidates, opts)
}

// fetchData runs the shared pipeline: drop temporary workspaces, list every
// object, filter, sort newest first, truncate, and count types.
func fetchData(ctx context.Context, svc Services, candidates []workspace.WorkspaceInfo, opts fetchOptions) (*FetchDataOutput, error) {
	out := &FetchDataOutput{
		Objects:          []DataObjectView{},
		WorkspaceDisplay: make(map[int64]*WorkspaceDisplay),
		WSInfo:           make(map[int64]workspace.WorkspaceInfo),
	}

	infos := make([]workspace.WorkspaceInfo, 0, len(candidates))
	for _, info := range candidates {
		if info.IsTemporary() {
			continue
		}
		infos = append(infos, info)
		out.WSInfo[info.ID] = info
		out.WorkspaceDisplay[info.ID] = &WorkspaceDisplay{DisplayName: info.DisplayName()}
	}

	type keyed struct {
		view  DataObjectView
		at    int64 // unix nanos; valid only when hasAt
		hasAt bool
	}
	var collected []keyed

	narrativePrefix := svc.narrativePrefix()
	it := workspace.NewObjectIterator(svc.Workspace, infos, workspace.IteratorOptions{
		PartSize:        svc.partSize(),
		IncludeMetadata: opts.includeMetadata,
	})
	for it.Next(ctx) {
		info := it.Info()
		if opts.ignoreNarratives && workspace.TypeModule(info.TypeString) == narrativePrefix {
			continue
		}
		if !opts.types.Allows(info.TypeString) {
			continue
		}

		objType := info.TypeString
		if opts.simpleTypes {
			objType = workspace.SimpleType(objType)
		}
		k := keyed{view: DataObjectView{
			WorkspaceID: info.WorkspaceID,
			ObjectID:    info.ObjectID,
			Version:     info.Version,
			SavedBy:     info.SavedBy,
			Name:        info.Name,
			Type:        objType,
			SavedAt:     info.SaveDate,
		}}
		if at, ok := info.SavedAt(); ok {
			k.at, k.hasAt = at.UnixNano(), true
		}
		collected = append(collected, k)

		if disp, ok := out.WorkspaceDisplay[info.WorkspaceID]; ok {
			disp.Count++
		}
	}
	if err := it.Err(); err != nil {
		return nil, upstream(serviceWorkspace, err)
	}

	// Newest first. Unparseable timestamps go last; ties keep listing order.
	sort.SliceStable(collected, func(i, j int) bool {
		a, b := collected[i], collected[j]
		if a.hasAt != b.hasAt {
			return a.hasAt
		}
		if a.hasAt {
			return a.at > b.at
		}
		return a.view.SavedAt > b.view.SavedAt
	})

	if len(collected) > opts.limit {
		collected = collected[:opts.limit]
		out.LimitReached = 1
	}

	for _, k := range collected {
		out.Objects = append(out.Objects, k.view)
	}

	if opts.includeTypeCounts {
		out.TypeCounts = make(map[string]int)
		for _, obj := range out.Objects {
			out.TypeCounts[obj.Type]++
		}
	}

	glog.V(1).Infof("[fetch_data] workspaces=%d objects=%d limit_reached=%d list_calls=%d",
		len(infos), len(out.Objects), out.LimitReached, it.Calls())
	return out, nil
}

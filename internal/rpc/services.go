package rpc

import (
	"context"

	"github.com/hpungsan/narrsvc/internal/datapalette"
	"github.com/hpungsan/narrsvc/internal/errors"
	"github.com/hpungsan/narrsvc/internal/setapi"
	"github.com/hpungsan/narrsvc/internal/workspace"
)

// Module names, as registered with the service wizard.
const (
	ModuleWorkspace   = "Workspace"
	ModuleSetAPI      = "SetAPI"
	ModuleDataPalette = "DataPaletteService"
)

// caller is the shared shape of Client and DynamicClient.
type caller interface {
	Call(ctx context.Context, method string, params []any, result any) error
}

// call runs one remote method and tags failures as upstream errors for service.
func call(ctx context.Context, c caller, service, method string, params []any, result any) error {
	if err := c.Call(ctx, method, params, result); err != nil {
		return errors.NewUpstream(service, err)
	}
	return nil
}

// WorkspaceClient is the object-store collaborator over JSON-RPC.
type WorkspaceClient struct {
	rpc *Client
}

var _ workspace.Client = (*WorkspaceClient)(nil)

// NewWorkspaceClient creates a client for the object store at url.
func NewWorkspaceClient(url string, opts Options) *WorkspaceClient {
	return &WorkspaceClient{rpc: NewClient(url, opts)}
}

func (w *WorkspaceClient) call(ctx context.Context, method string, params []any, result any) error {
	return call(ctx, w.rpc, ModuleWorkspace, ModuleWorkspace+"."+method, params, result)
}

func (w *WorkspaceClient) ListWorkspaceInfo(ctx context.Context, params workspace.ListWorkspaceInfoParams) ([]workspace.WorkspaceInfo, error) {
	var out []workspace.WorkspaceInfo
	if err := w.call(ctx, "list_workspace_info", []any{params}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (w *WorkspaceClient) GetWorkspaceInfo(ctx context.Context, ident workspace.WorkspaceIdentity) (workspace.WorkspaceInfo, error) {
	var out workspace.WorkspaceInfo
	if err := w.call(ctx, "get_workspace_info", []any{ident}, &out); err != nil {
		return workspace.WorkspaceInfo{}, err
	}
	return out, nil
}

func (w *WorkspaceClient) ListObjects(ctx context.Context, params workspace.ListObjectsParams) ([]workspace.ObjectInfo, error) {
	var out []workspace.ObjectInfo
	if err := w.call(ctx, "list_objects", []any{params}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (w *WorkspaceClient) GetPermissionsMass(ctx context.Context, workspaces []workspace.WorkspaceIdentity) ([]map[string]string, error) {
	var out struct {
		Perms []map[string]string `json:"perms"`
	}
	params := map[string]any{"workspaces": workspaces}
	if err := w.call(ctx, "get_permissions_mass", []any{params}, &out); err != nil {
		return nil, err
	}
	return out.Perms, nil
}

func (w *WorkspaceClient) ListReferencingObjects(ctx context.Context, refs []workspace.ObjectIdentity) ([][]workspace.ObjectInfo, error) {
	var out [][]workspace.ObjectInfo
	if err := w.call(ctx, "list_referencing_objects", []any{refs}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetObjectInfoWithProvenance uses get_objects2 without object data.
func (w *WorkspaceClient) GetObjectInfoWithProvenance(ctx context.Context, refs []workspace.ObjectIdentity) ([]workspace.ObjectData, error) {
	var out struct {
		Data []workspace.ObjectData `json:"data"`
	}
	params := map[string]any{"objects": refs, "no_data": 1}
	if err := w.call(ctx, "get_objects2", []any{params}, &out); err != nil {
		return nil, err
	}
	return out.Data, nil
}

// GetObjectInfo uses get_object_info3 with ignoreErrors, so failed refs come back null.
func (w *WorkspaceClient) GetObjectInfo(ctx context.Context, refs []workspace.ObjectIdentity, includeMetadata bool) ([]*workspace.ObjectInfo, error) {
	var out struct {
		Infos []*workspace.ObjectInfo `json:"infos"`
	}
	params := map[string]any{"objects": refs, "ignoreErrors": 1}
	if includeMetadata {
		params["includeMetadata"] = 1
	}
	if err := w.call(ctx, "get_object_info3", []any{params}, &out); err != nil {
		return nil, err
	}
	return out.Infos, nil
}

// SetAPIClient is the set-service collaborator over a dynamic service.
type SetAPIClient struct {
	rpc *DynamicClient
}

var _ setapi.Client = (*SetAPIClient)(nil)

// NewSetAPIClient wraps a dynamic client for the SetAPI module.
func NewSetAPIClient(dc *DynamicClient) *SetAPIClient {
	return &SetAPIClient{rpc: dc}
}

func (s *SetAPIClient) ListSets(ctx context.Context, params setapi.ListSetsParams) (*setapi.ListSetsResult, error) {
	var out setapi.ListSetsResult
	if err := call(ctx, s.rpc, ModuleSetAPI, "list_sets", []any{params}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DataPaletteClient is the data-palette collaborator over a dynamic service.
type DataPaletteClient struct {
	rpc *DynamicClient
}

var _ datapalette.Client = (*DataPaletteClient)(nil)

// NewDataPaletteClient wraps a dynamic client for the DataPaletteService module.
func NewDataPaletteClient(dc *DynamicClient) *DataPaletteClient {
	return &DataPaletteClient{rpc: dc}
}

func (d *DataPaletteClient) ListData(ctx context.Context, params datapalette.ListDataParams) (*datapalette.ListDataResult, error) {
	var out datapalette.ListDataResult
	if err := call(ctx, d.rpc, ModuleDataPalette, "list_data", []any{params}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

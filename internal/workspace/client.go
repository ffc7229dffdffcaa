package workspace

import "context"

// Client is the subset of the object-store API the service consumes.
// Implementations report failures as UPSTREAM_UNAVAILABLE or NOT_FOUND errors.
type Client interface {
	ListWorkspaceInfo(ctx context.Context, params ListWorkspaceInfoParams) ([]WorkspaceInfo, error)
	GetWorkspaceInfo(ctx context.Context, ident WorkspaceIdentity) (WorkspaceInfo, error)
	ListObjects(ctx context.Context, params ListObjectsParams) ([]ObjectInfo, error)
	GetPermissionsMass(ctx context.Context, workspaces []WorkspaceIdentity) ([]map[string]string, error)
	ListReferencingObjects(ctx context.Context, refs []ObjectIdentity) ([][]ObjectInfo, error)
	GetObjectInfoWithProvenance(ctx context.Context, refs []ObjectIdentity) ([]ObjectData, error)
	// GetObjectInfo returns one entry per ref; missing or unreadable objects are nil.
	GetObjectInfo(ctx context.Context, refs []ObjectIdentity, includeMetadata bool) ([]*ObjectInfo, error)
}

// ListWorkspaceInfoParams filters list_workspace_info.
type ListWorkspaceInfoParams struct {
	Perm          string   `json:"perm,omitempty"`
	Owners        []string `json:"owners,omitempty"`
	ExcludeGlobal int      `json:"excludeGlobal,omitempty"`

	// Meta keeps only workspaces whose metadata holds every pair.
	Meta map[string]string `json:"meta,omitempty"`
}

// WorkspaceIdentity addresses a workspace by id or name.
type WorkspaceIdentity struct {
	ID        int64  `json:"id,omitempty"`
	Workspace string `json:"workspace,omitempty"`
}

// ObjectIdentity addresses an object by reference.
type ObjectIdentity struct {
	Ref string `json:"ref"`
}

// ListObjectsParams selects objects in an inclusive object id range.
type ListObjectsParams struct {
	IDs             []int64 `json:"ids"`
	MinObjectID     int64   `json:"minObjectID,omitempty"`
	MaxObjectID     int64   `json:"maxObjectID,omitempty"`
	IncludeMetadata int     `json:"includeMetadata,omitempty"`
}

// ObjectData is an object's info plus copy provenance, without the object payload.
type ObjectData struct {
	Info                   ObjectInfo `json:"info"`
	Copied                 string     `json:"copied,omitempty"`
	CopySourceInaccessible int        `json:"copy_source_inaccessible,omitempty"`
}

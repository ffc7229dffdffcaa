package mcp

import "github.com/mark3labs/mcp-go/mcp"

var intItems = map[string]any{"type": "integer"}
var stringItems = map[string]any{"type": "string"}

var listObjectsWithSetsToolDef = mcp.NewTool("list_objects_with_sets",
	mcp.WithDescription("List the objects in one or more workspaces, merging set objects (with their members) "+
		"and, optionally, objects visible through data palettes. Each object ref appears once. "+
		"Give exactly one of ws_id, ws_name or workspaces; workspaces wins if several are set."),
	mcp.WithNumber("ws_id", mcp.Description("Workspace id")),
	mcp.WithString("ws_name", mcp.Description("Workspace name")),
	mcp.WithArray("workspaces", mcp.Description("Workspace ids or names"), mcp.Items(stringItems)),
	mcp.WithArray("types", mcp.Description("Allow-list of Module.Type strings; version suffixes are ignored"), mcp.Items(stringItems)),
	mcp.WithBoolean("include_metadata", mcp.Description("Include per-object metadata")),
	mcp.WithBoolean("include_data_palettes", mcp.Description("Merge in data-palette objects")),
)

var listAvailableTypesToolDef = mcp.NewTool("list_available_types",
	mcp.WithDescription("Count objects per type (version stripped) across the merged listing of the given workspaces."),
	mcp.WithArray("workspaces", mcp.Required(), mcp.Description("Workspace ids or names"), mcp.Items(stringItems)),
)

// fetchOptionProps are shared by both fetch tools.
func fetchOptionProps() []mcp.ToolOption {
	return []mcp.ToolOption{
		mcp.WithNumber("include_type_counts", mcp.Description("1 to include a type histogram of returned objects (default 0)")),
		mcp.WithNumber("simple_types", mcp.Description("1 to reduce types to the bare type name (default 0)")),
		mcp.WithNumber("ignore_narratives", mcp.Description("1 to skip narrative objects (default 1)")),
		mcp.WithNumber("include_metadata", mcp.Description("1 to request object metadata (default 0)")),
		mcp.WithArray("types", mcp.Description("Allow-list of Module.Type strings"), mcp.Items(stringItems)),
		mcp.WithNumber("limit", mcp.Description("Maximum objects returned, newest first (default 30000)")),
	}
}

var fetchAccessibleDataToolDef = mcp.NewTool("fetch_accessible_data",
	append([]mcp.ToolOption{
		mcp.WithDescription("Fetch the objects in the caller's own workspaces (data_set=mine) or in workspaces " +
			"shared with the caller (data_set=shared), newest first, with per-workspace display names and counts."),
		mcp.WithString("data_set", mcp.Required(), mcp.Description("mine or shared"), mcp.Enum("mine", "shared")),
		mcp.WithArray("ignore_workspaces", mcp.Description("Workspace ids to skip"), mcp.Items(intItems)),
	}, fetchOptionProps()...)...,
)

var fetchSpecificWorkspaceDataToolDef = mcp.NewTool("fetch_specific_workspace_data",
	append([]mcp.ToolOption{
		mcp.WithDescription("Fetch the objects in the listed workspaces, newest first. Fails if any workspace is inaccessible."),
		mcp.WithArray("workspace_ids", mcp.Required(), mcp.Description("Workspace ids"), mcp.Items(intItems)),
	}, fetchOptionProps()...)...,
)

var findObjectReportToolDef = mcp.NewTool("find_object_report",
	mcp.WithDescription("Find the reports that reference an object, following copies back to their source."),
	mcp.WithString("upa", mcp.Required(), mcp.Description("Object address as workspace_id/object_id/version")),
)

var userPermissionToolDef = mcp.NewTool("get_user_workspace_permission",
	mcp.WithDescription("Return a user's permission (n, r, w or a) on a workspace."),
	mcp.WithNumber("ws_id", mcp.Required(), mcp.Description("Workspace id")),
	mcp.WithString("user", mcp.Description("Username (default: the configured user)")),
)

var listNarrativesToolDef = mcp.NewTool("list_narratives",
	mcp.WithDescription("List narratives with their workspace info: the caller's own (mine), those shared with "+
		"the caller (shared), or globally readable ones (public). Temporary narratives are left out."),
	mcp.WithString("type", mcp.Description("mine (default), shared or public"), mcp.Enum("mine", "shared", "public")),
)

var listNarratorialsToolDef = mcp.NewTool("list_narratorials",
	mcp.WithDescription("List the readable narratives flagged as narratorials (tutorial narratives)."),
)

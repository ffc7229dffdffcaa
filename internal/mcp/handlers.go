package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/golang/glog"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/hpungsan/narrsvc/internal/errors"
	"github.com/hpungsan/narrsvc/internal/ops"
)

// Handlers holds dependencies for MCP tool handlers.
type Handlers struct {
	svc ops.Services
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(svc ops.Services) *Handlers {
	return &Handlers{svc: svc}
}

// Request types for each tool

// ListObjectsWithSetsRequest represents the arguments for list_objects_with_sets.
type ListObjectsWithSetsRequest struct {
	WSID                int64    `json:"ws_id,omitempty"`
	WSName              string   `json:"ws_name,omitempty"`
	Workspaces          []string `json:"workspaces,omitempty"`
	Types               []string `json:"types,omitempty"`
	IncludeMetadata     flag     `json:"include_metadata,omitempty"`
	IncludeDataPalettes flag     `json:"include_data_palettes,omitempty"`
}

// ListAvailableTypesRequest represents the arguments for list_available_types.
type ListAvailableTypesRequest struct {
	Workspaces []string `json:"workspaces"`
}

// FindObjectReportRequest represents the arguments for find_object_report.
type FindObjectReportRequest struct {
	UPA string `json:"upa"`
}

// ListNarrativesRequest represents the arguments for list_narratives.
type ListNarrativesRequest struct {
	Type string `json:"type,omitempty"`
}

// UserPermissionRequest represents the arguments for get_user_workspace_permission.
type UserPermissionRequest struct {
	WSID int64  `json:"ws_id"`
	User string `json:"user,omitempty"`
}

// flag accepts either a JSON boolean or 0/1.
type flag bool

func (f *flag) UnmarshalJSON(b []byte) error {
	switch strings.TrimSpace(string(b)) {
	case "true", "1":
		*f = true
	case "false", "0", "null":
		*f = false
	default:
		return errors.NewInvalidArgument("expected a boolean or 0/1, got " + string(b))
	}
	return nil
}

// decode converts the request arguments into a typed request.
// Absent arguments decode to the zero value.
func decode[T any](req mcp.CallToolRequest) (T, error) {
	var out T
	args := req.GetArguments()
	if len(args) == 0 {
		return out, nil
	}
	b, err := json.Marshal(args)
	if err != nil {
		return out, fmt.Errorf("marshal args: %w", err)
	}
	if err := json.Unmarshal(b, &out); err != nil {
		return out, fmt.Errorf("invalid arguments: %w", err)
	}
	return out, nil
}

// HandleListObjectsWithSets handles the list_objects_with_sets tool call.
func (h *Handlers) HandleListObjectsWithSets(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ListObjectsWithSetsRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidArgument(err.Error())), nil
	}

	result, err := ops.ListObjectsWithSets(ctx, h.svc, ops.ListObjectsWithSetsInput{
		WorkspaceID:         input.WSID,
		WorkspaceName:       input.WSName,
		Workspaces:          input.Workspaces,
		Types:               input.Types,
		IncludeMetadata:     bool(input.IncludeMetadata),
		IncludeDataPalettes: bool(input.IncludeDataPalettes),
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleListAvailableTypes handles the list_available_types tool call.
func (h *Handlers) HandleListAvailableTypes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ListAvailableTypesRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidArgument(err.Error())), nil
	}

	result, err := ops.ListAvailableTypes(ctx, h.svc, ops.ListAvailableTypesInput{Workspaces: input.Workspaces})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleFetchAccessibleData handles the fetch_accessible_data tool call.
// Arguments pass through untyped so every malformed option is reported.
func (h *Handlers) HandleFetchAccessibleData(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	result, err := ops.FetchAccessibleData(ctx, h.svc, ops.Params(req.GetArguments()))
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleFetchSpecificWorkspaceData handles the fetch_specific_workspace_data tool call.
func (h *Handlers) HandleFetchSpecificWorkspaceData(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	result, err := ops.FetchSpecificWorkspaceData(ctx, h.svc, ops.Params(req.GetArguments()))
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleFindObjectReport handles the find_object_report tool call.
func (h *Handlers) HandleFindObjectReport(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[FindObjectReportRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidArgument(err.Error())), nil
	}

	result, err := ops.FindObjectReport(ctx, h.svc, ops.FindObjectReportInput{UPA: input.UPA})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleUserPermission handles the get_user_workspace_permission tool call.
func (h *Handlers) HandleUserPermission(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[UserPermissionRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidArgument(err.Error())), nil
	}

	result, err := ops.UserPermission(ctx, h.svc, ops.UserPermissionInput{User: input.User, WorkspaceID: input.WSID})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleListNarratives handles the list_narratives tool call.
func (h *Handlers) HandleListNarratives(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ListNarrativesRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidArgument(err.Error())), nil
	}

	result, err := ops.ListNarratives(ctx, h.svc, ops.ListNarrativesInput{Type: input.Type})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleListNarratorials handles the list_narratorials tool call.
func (h *Handlers) HandleListNarratorials(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	result, err := ops.ListNarratorials(ctx, h.svc)
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// Result helpers

// errorResult creates an MCP error result from any error.
// Uses IsError: true so MCP clients recognize failures properly.
// Internal error details are never exposed.
func errorResult(err error) *mcp.CallToolResult {
	var payload map[string]any

	if nErr, ok := errors.As(err); ok {
		message := nErr.Message
		// keep wrapper context such as "workspace 3: "
		if prefix := strings.TrimSuffix(err.Error(), nErr.Error()); prefix != err.Error() {
			message = prefix + message
		}
		errorObj := map[string]any{
			"code":    nErr.Code,
			"message": message,
			"status":  nErr.Status,
		}
		if nErr.Code != errors.ErrInternal && len(nErr.Details) > 0 {
			errorObj["details"] = nErr.Details
		}
		if nErr.Code == errors.ErrInternal {
			glog.Errorf("[mcp] internal error: %v", err)
		}
		payload = map[string]any{"error": errorObj}
	} else {
		glog.Errorf("[mcp] unclassified error: %v", err)
		payload = map[string]any{
			"error": map[string]any{
				"code":    errors.ErrInternal,
				"message": "an internal error occurred",
				"status":  500,
			},
		}
	}

	content, _ := json.Marshal(payload)
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: string(content)}},
		IsError: true,
	}
}

// successResult creates an MCP success result from any data.
func successResult(data any) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultJSON(data)
}

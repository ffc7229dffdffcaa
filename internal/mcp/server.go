package mcp

import (
	"sort"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/hpungsan/narrsvc/internal/config"
	"github.com/hpungsan/narrsvc/internal/ops"
)

// Tool groups, usable in config's disabled_types.
const (
	TypeData      = "data"
	TypeReport    = "report"
	TypeNarrative = "narrative"
)

// KnownTypes lists all valid type names.
var KnownTypes = []string{TypeData, TypeReport, TypeNarrative}

// toolEntry pairs a tool definition with its group and handler factory.
type toolEntry struct {
	def     mcp.Tool
	typ     string
	handler func(*Handlers) server.ToolHandlerFunc
}

// toolRegistry maps tool names to their definitions and handler factories.
var toolRegistry = map[string]toolEntry{
	"list_objects_with_sets": {
		def:     listObjectsWithSetsToolDef,
		typ:     TypeData,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleListObjectsWithSets },
	},
	"list_available_types": {
		def:     listAvailableTypesToolDef,
		typ:     TypeData,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleListAvailableTypes },
	},
	"fetch_accessible_data": {
		def:     fetchAccessibleDataToolDef,
		typ:     TypeData,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleFetchAccessibleData },
	},
	"fetch_specific_workspace_data": {
		def:     fetchSpecificWorkspaceDataToolDef,
		typ:     TypeData,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleFetchSpecificWorkspaceData },
	},
	"get_user_workspace_permission": {
		def:     userPermissionToolDef,
		typ:     TypeData,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleUserPermission },
	},
	"find_object_report": {
		def:     findObjectReportToolDef,
		typ:     TypeReport,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleFindObjectReport },
	},
	"list_narratives": {
		def:     listNarrativesToolDef,
		typ:     TypeNarrative,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleListNarratives },
	},
	"list_narratorials": {
		def:     listNarratorialsToolDef,
		typ:     TypeNarrative,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleListNarratorials },
	},
}

// AllToolNames returns all valid tool names, sorted.
func AllToolNames() []string {
	names := make([]string, 0, len(toolRegistry))
	for name := range toolRegistry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ValidateDisabledTools returns a list of unknown tool names from the given list.
func ValidateDisabledTools(names []string) []string {
	unknown := make([]string, 0)
	for _, name := range names {
		if _, ok := toolRegistry[name]; !ok {
			unknown = append(unknown, name)
		}
	}
	return unknown
}

// ValidateDisabledTypes returns a list of unknown type names from the given list.
func ValidateDisabledTypes(names []string) []string {
	known := make(map[string]bool, len(KnownTypes))
	for _, t := range KnownTypes {
		known[t] = true
	}

	unknown := make([]string, 0)
	for _, name := range names {
		if !known[name] {
			unknown = append(unknown, name)
		}
	}
	return unknown
}

// GetTypeForTool returns the group a tool belongs to, or "" for unknown tools.
func GetTypeForTool(toolName string) string {
	return toolRegistry[toolName].typ
}

// ExpandTypesToTools returns all tool names belonging to the given types.
func ExpandTypesToTools(types []string) []string {
	if len(types) == 0 {
		return nil
	}

	typeSet := make(map[string]bool, len(types))
	for _, t := range types {
		typeSet[t] = true
	}

	tools := make([]string, 0)
	for name, entry := range toolRegistry {
		if typeSet[entry.typ] {
			tools = append(tools, name)
		}
	}
	sort.Strings(tools)
	return tools
}

// NewServer creates a new MCP server with the narrative tools registered.
// Tools listed in cfg.DisabledTools or belonging to cfg.DisabledTypes
// are excluded from registration.
func NewServer(svc ops.Services, cfg *config.Config, version string) *server.MCPServer {
	s := server.NewMCPServer(
		"narrsvc",
		version,
		server.WithToolCapabilities(true),
	)

	h := NewHandlers(svc)

	// Build set of disabled tools: first expand types, then add individual tools
	disabled := make(map[string]bool)
	if cfg != nil {
		for _, tool := range ExpandTypesToTools(cfg.DisabledTypes) {
			disabled[tool] = true
		}
		for _, name := range cfg.DisabledTools {
			disabled[name] = true
		}
	}

	for name, entry := range toolRegistry {
		if disabled[name] {
			continue
		}
		s.AddTool(entry.def, entry.handler(h))
	}

	return s
}

// Run starts the MCP server using stdio transport.
func Run(svc ops.Services, cfg *config.Config, version string) error {
	s := NewServer(svc, cfg, version)
	return server.ServeStdio(s)
}

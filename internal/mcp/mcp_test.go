package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/hpungsan/narrsvc/internal/config"
	"github.com/hpungsan/narrsvc/internal/errors"
	"github.com/hpungsan/narrsvc/internal/localstore"
	"github.com/hpungsan/narrsvc/internal/ops"
	"github.com/hpungsan/narrsvc/internal/workspace"
)

// fixture is a local store with one narrative workspace owned by alice:
// two reads, a set holding the first one, and a report on the second.
// The workspace names object 5 as its narrative, which tests save as needed.
type fixture struct {
	store  *localstore.Store
	svc    ops.Services
	cfg    *config.Config
	ws     workspace.WorkspaceInfo
	reads1 workspace.ObjectInfo
	reads2 workspace.ObjectInfo
	set    workspace.ObjectInfo
	report workspace.ObjectInfo
}

// testSetup creates a temporary store, seeds it and wires services and config.
func testSetup(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	database, err := localstore.Init(t.TempDir())
	if err != nil {
		t.Fatalf("failed to init db: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	cfg := config.DefaultConfig()
	cfg.UserID = "alice"
	store := localstore.New(database, cfg.UserID)
	f := &fixture{store: store, cfg: cfg, svc: ops.NewServices(store, store, store, cfg)}

	f.ws, err = store.CreateWorkspace(ctx, localstore.NewWorkspace{
		Name:     "alice:narrative_1",
		Metadata: map[string]string{workspace.MetaNarrative: "5", workspace.MetaNarrativeName: "Reads Analysis"},
	})
	if err != nil {
		t.Fatalf("create workspace: %v", err)
	}

	save := func(name, typ string) workspace.ObjectInfo {
		info, err := store.SaveObject(ctx, localstore.NewObject{WorkspaceID: f.ws.ID, Name: name, Type: typ,
			Metadata: map[string]string{"source": "test"}})
		if err != nil {
			t.Fatalf("save %s: %v", name, err)
		}
		return info
	}
	f.reads1 = save("reads1", "KBaseFile.PairedEndLibrary-2.0")
	f.reads2 = save("reads2", "KBaseFile.SingleEndLibrary-2.1")
	f.set = save("reads_set", "KBaseSets.ReadsSet-1.0")
	f.report = save("report", "KBaseReport.Report-3.0")

	if err := store.AddSetItems(ctx, f.set.Ref(), f.reads1.Ref()); err != nil {
		t.Fatalf("add set items: %v", err)
	}
	if err := store.AddReference(ctx, f.report.Ref(), f.reads2.Ref()); err != nil {
		t.Fatalf("add reference: %v", err)
	}
	if err := store.SetPermission(ctx, f.ws.ID, "bob", workspace.PermWrite); err != nil {
		t.Fatalf("set permission: %v", err)
	}
	return f
}

// makeRequest creates a CallToolRequest with the given arguments.
func makeRequest(args map[string]any) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Arguments: args,
		},
	}
}

func TestHandleListObjectsWithSets(t *testing.T) {
	f := testSetup(t)
	h := NewHandlers(f.svc)
	ctx := context.Background()

	tests := []struct {
		name      string
		args      map[string]any
		wantError bool
		errorCode string
		wantCount int
	}{
		{
			name:      "by ws_id",
			args:      map[string]any{"ws_id": float64(f.ws.ID)},
			wantCount: 4,
		},
		{
			name:      "by ws_name",
			args:      map[string]any{"ws_name": f.ws.Name},
			wantCount: 4,
		},
		{
			name:      "by workspaces list with numeric flags",
			args:      map[string]any{"workspaces": []any{fmt.Sprint(f.ws.ID)}, "include_metadata": float64(1)},
			wantCount: 4,
		},
		{
			name:      "type filter",
			args:      map[string]any{"ws_id": float64(f.ws.ID), "types": []any{"KBaseSets.ReadsSet"}},
			wantCount: 1,
		},
		{
			name:      "no workspace given",
			args:      map[string]any{},
			wantError: true,
			errorCode: "INVALID_ARGUMENT",
		},
		{
			name:      "bad flag",
			args:      map[string]any{"ws_id": float64(f.ws.ID), "include_metadata": "yes"},
			wantError: true,
			errorCode: "INVALID_ARGUMENT",
		},
		{
			name:      "missing workspace",
			args:      map[string]any{"ws_name": "nobody:nothing"},
			wantError: true,
			errorCode: "NOT_FOUND",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := h.HandleListObjectsWithSets(ctx, makeRequest(tt.args))
			if err != nil {
				t.Fatalf("handler returned error: %v", err)
			}

			if tt.wantError {
				if !result.IsError {
					t.Errorf("expected error result, got success")
				}
				if tt.errorCode != "" {
					assertErrorCode(t, result, tt.errorCode)
				}
				return
			}

			output := parseOutput(t, result)
			data, ok := output["data"].([]any)
			if !ok {
				t.Fatalf("data is %T, want list", output["data"])
			}
			if len(data) != tt.wantCount {
				t.Errorf("got %d items, want %d", len(data), tt.wantCount)
			}
		})
	}
}

func TestHandleListObjectsWithSets_SetItems(t *testing.T) {
	f := testSetup(t)
	h := NewHandlers(f.svc)

	result, err := h.HandleListObjectsWithSets(context.Background(), makeRequest(map[string]any{
		"ws_id":            float64(f.ws.ID),
		"include_metadata": true,
	}))
	if err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	output := parseOutput(t, result)
	data := output["data"].([]any)

	first := data[0].(map[string]any)
	info := first["object_info"].([]any)
	if info[1] != "reads_set" {
		t.Errorf("first item = %v, want the set", info[1])
	}
	if info[10] == nil {
		t.Error("expected metadata in object_info when include_metadata is set")
	}
	setItems, ok := first["set_items"].(map[string]any)
	if !ok {
		t.Fatalf("set item has no set_items")
	}
	members := setItems["set_items_info"].([]any)
	if len(members) != 1 || members[0].([]any)[1] != "reads1" {
		t.Errorf("set_items_info = %v, want [reads1]", members)
	}
}

func TestHandleListAvailableTypes(t *testing.T) {
	f := testSetup(t)
	h := NewHandlers(f.svc)
	ctx := context.Background()

	result, err := h.HandleListAvailableTypes(ctx, makeRequest(map[string]any{
		"workspaces": []any{f.ws.Name},
	}))
	if err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	output := parseOutput(t, result)
	stat := output["type_stat"].(map[string]any)

	want := map[string]float64{
		"KBaseFile.PairedEndLibrary": 1,
		"KBaseFile.SingleEndLibrary": 1,
		"KBaseSets.ReadsSet":         1,
		"KBaseReport.Report":         1,
	}
	if len(stat) != len(want) {
		t.Errorf("type_stat = %v, want %v", stat, want)
	}
	for typ, n := range want {
		if stat[typ] != n {
			t.Errorf("type_stat[%s] = %v, want %v", typ, stat[typ], n)
		}
	}

	result, err = h.HandleListAvailableTypes(ctx, makeRequest(map[string]any{"workspaces": "not a list"}))
	if err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	assertErrorCode(t, result, "INVALID_ARGUMENT")
}

func TestHandleFetchAccessibleData(t *testing.T) {
	f := testSetup(t)
	h := NewHandlers(f.svc)
	ctx := context.Background()

	tests := []struct {
		name        string
		args        map[string]any
		wantError   bool
		wantObjects int
		wantFields  []string
	}{
		{
			name:        "mine",
			args:        map[string]any{"data_set": "mine"},
			wantObjects: 4,
		},
		{
			name:        "mine with limit",
			args:        map[string]any{"data_set": "mine", "limit": float64(2)},
			wantObjects: 2,
		},
		{
			name:        "shared is empty for the owner",
			args:        map[string]any{"data_set": "shared"},
			wantObjects: 0,
		},
		{
			name:       "every bad option is reported",
			args:       map[string]any{"data_set": "theirs", "limit": float64(-1), "simple_types": float64(2)},
			wantError:  true,
			wantFields: []string{"data_set", "limit", "simple_types"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := h.HandleFetchAccessibleData(ctx, makeRequest(tt.args))
			if err != nil {
				t.Fatalf("handler returned error: %v", err)
			}

			if tt.wantError {
				assertErrorCode(t, result, "INVALID_ARGUMENT")
				fields := errorFields(t, result)
				for _, want := range tt.wantFields {
					if !strings.Contains(fields, want) {
						t.Errorf("details.fields missing %q: %s", want, fields)
					}
				}
				return
			}

			output := parseOutput(t, result)
			objects, _ := output["objects"].([]any)
			if len(objects) != tt.wantObjects {
				t.Errorf("got %d objects, want %d", len(objects), tt.wantObjects)
			}
		})
	}
}

func TestHandleFetchAccessibleData_Display(t *testing.T) {
	f := testSetup(t)
	h := NewHandlers(f.svc)

	result, err := h.HandleFetchAccessibleData(context.Background(), makeRequest(map[string]any{
		"data_set":            "mine",
		"include_type_counts": float64(1),
		"simple_types":        float64(1),
	}))
	if err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	output := parseOutput(t, result)

	display := output["workspace_display"].(map[string]any)
	entry, ok := display[fmt.Sprint(f.ws.ID)].(map[string]any)
	if !ok {
		t.Fatalf("no display entry for workspace %d: %v", f.ws.ID, display)
	}
	if entry["display_name"] != "Reads Analysis" {
		t.Errorf("display_name = %v, want Reads Analysis", entry["display_name"])
	}
	if entry["count"] != float64(4) {
		t.Errorf("count = %v, want 4", entry["count"])
	}

	counts := output["type_counts"].(map[string]any)
	if counts["PairedEndLibrary"] != float64(1) || counts["ReadsSet"] != float64(1) {
		t.Errorf("type_counts = %v", counts)
	}
	if output["limit_reached"] != float64(0) {
		t.Errorf("limit_reached = %v, want 0", output["limit_reached"])
	}
}

func TestHandleFetchSpecificWorkspaceData(t *testing.T) {
	f := testSetup(t)
	h := NewHandlers(f.svc)
	ctx := context.Background()

	result, err := h.HandleFetchSpecificWorkspaceData(ctx, makeRequest(map[string]any{
		"workspace_ids": []any{float64(f.ws.ID), float64(f.ws.ID)},
	}))
	if err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	output := parseOutput(t, result)
	if objects := output["objects"].([]any); len(objects) != 4 {
		t.Errorf("got %d objects, want 4 (duplicate ids collapse)", len(objects))
	}

	result, err = h.HandleFetchSpecificWorkspaceData(ctx, makeRequest(map[string]any{"workspace_ids": []any{}}))
	if err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	assertErrorCode(t, result, "INVALID_ARGUMENT")

	result, err = h.HandleFetchSpecificWorkspaceData(ctx, makeRequest(map[string]any{"workspace_ids": []any{float64(999)}}))
	if err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	if !result.IsError {
		t.Error("expected error for missing workspace")
	}
}

func TestHandleFindObjectReport(t *testing.T) {
	f := testSetup(t)
	h := NewHandlers(f.svc)
	ctx := context.Background()

	tests := []struct {
		name        string
		upa         string
		wantReports []any
		errorCode   string
	}{
		{name: "object with report", upa: f.reads2.Ref(), wantReports: []any{f.report.Ref()}},
		{name: "object without report", upa: f.reads1.Ref(), wantReports: []any{}},
		{name: "unversioned ref", upa: fmt.Sprintf("%d/%d", f.ws.ID, f.reads1.ObjectID), errorCode: "INVALID_ARGUMENT"},
		{name: "garbage", upa: "not-an-upa", errorCode: "INVALID_ARGUMENT"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := h.HandleFindObjectReport(ctx, makeRequest(map[string]any{"upa": tt.upa}))
			if err != nil {
				t.Fatalf("handler returned error: %v", err)
			}
			if tt.errorCode != "" {
				assertErrorCode(t, result, tt.errorCode)
				return
			}

			output := parseOutput(t, result)
			reports := output["report_upas"].([]any)
			if fmt.Sprint(reports) != fmt.Sprint(tt.wantReports) {
				t.Errorf("report_upas = %v, want %v", reports, tt.wantReports)
			}
			if output["object_upa"] != tt.upa {
				t.Errorf("object_upa = %v, want %s", output["object_upa"], tt.upa)
			}
		})
	}
}

func TestHandleUserPermission(t *testing.T) {
	f := testSetup(t)
	h := NewHandlers(f.svc)
	ctx := context.Background()

	tests := []struct {
		name      string
		args      map[string]any
		wantPerm  string
		errorCode string
	}{
		{name: "owner by default", args: map[string]any{"ws_id": float64(f.ws.ID)}, wantPerm: "a"},
		{name: "granted user", args: map[string]any{"ws_id": float64(f.ws.ID), "user": "bob"}, wantPerm: "w"},
		{name: "stranger", args: map[string]any{"ws_id": float64(f.ws.ID), "user": "carol"}, wantPerm: "n"},
		{name: "missing ws_id", args: map[string]any{}, errorCode: "INVALID_ARGUMENT"},
		{name: "ws_id not a number", args: map[string]any{"ws_id": "one"}, errorCode: "INVALID_ARGUMENT"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := h.HandleUserPermission(ctx, makeRequest(tt.args))
			if err != nil {
				t.Fatalf("handler returned error: %v", err)
			}
			if tt.errorCode != "" {
				assertErrorCode(t, result, tt.errorCode)
				return
			}
			output := parseOutput(t, result)
			if output["permission"] != tt.wantPerm {
				t.Errorf("permission = %v, want %s", output["permission"], tt.wantPerm)
			}
		})
	}
}

func TestHandleListNarratives(t *testing.T) {
	f := testSetup(t)
	ctx := context.Background()
	narrative, err := f.store.SaveObject(ctx, localstore.NewObject{WorkspaceID: f.ws.ID, Name: "Narrative.1", Type: "KBaseNarrative.Narrative-4.0"})
	if err != nil {
		t.Fatalf("save narrative: %v", err)
	}
	h := NewHandlers(f.svc)

	tests := []struct {
		name      string
		args      map[string]any
		wantCount int
		errorCode string
	}{
		{name: "mine by default", args: map[string]any{}, wantCount: 1},
		{name: "shared", args: map[string]any{"type": "shared"}, wantCount: 0},
		{name: "public", args: map[string]any{"type": "public"}, wantCount: 0},
		{name: "unknown type", args: map[string]any{"type": "everyone"}, errorCode: "INVALID_ARGUMENT"},
		{name: "type not a string", args: map[string]any{"type": float64(1)}, errorCode: "INVALID_ARGUMENT"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := h.HandleListNarratives(ctx, makeRequest(tt.args))
			if err != nil {
				t.Fatalf("handler returned error: %v", err)
			}
			if tt.errorCode != "" {
				assertErrorCode(t, result, tt.errorCode)
				return
			}
			output := parseOutput(t, result)
			narratives, ok := output["narratives"].([]any)
			if !ok {
				t.Fatalf("narratives is not a list: %v", output["narratives"])
			}
			if len(narratives) != tt.wantCount {
				t.Fatalf("narratives count = %d, want %d", len(narratives), tt.wantCount)
			}
			if tt.wantCount == 0 {
				return
			}
			entry := narratives[0].(map[string]any)
			ws := entry["ws"].([]any)
			nar := entry["nar"].([]any)
			if len(ws) != 9 || len(nar) != 11 {
				t.Errorf("tuple sizes = %d/%d, want 9/11", len(ws), len(nar))
			}
			if nar[1] != narrative.Name {
				t.Errorf("narrative name = %v, want %s", nar[1], narrative.Name)
			}
		})
	}
}

func TestHandleListNarratorials(t *testing.T) {
	f := testSetup(t)
	ctx := context.Background()

	tutorial, err := f.store.CreateWorkspace(ctx, localstore.NewWorkspace{
		Name: "carol:tutorial", Owner: "carol", GlobalRead: true,
		Metadata: map[string]string{workspace.MetaNarrative: "1", workspace.MetaNarratorial: "1"},
	})
	if err != nil {
		t.Fatalf("create workspace: %v", err)
	}
	if _, err := f.store.SaveObject(ctx, localstore.NewObject{WorkspaceID: tutorial.ID, Name: "Narrative.1", Type: "KBaseNarrative.Narrative-4.0"}); err != nil {
		t.Fatalf("save narrative: %v", err)
	}

	result, err := NewHandlers(f.svc).HandleListNarratorials(ctx, makeRequest(nil))
	if err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	output := parseOutput(t, result)
	narratorials, _ := output["narratorials"].([]any)
	if len(narratorials) != 1 {
		t.Fatalf("narratorials count = %d, want 1", len(narratorials))
	}
	ws := narratorials[0].(map[string]any)["ws"].([]any)
	if ws[1] != "carol:tutorial" {
		t.Errorf("workspace name = %v, want carol:tutorial", ws[1])
	}
}

func TestServerRegistration(t *testing.T) {
	f := testSetup(t)

	s := NewServer(f.svc, f.cfg, "test")
	tools := s.ListTools()
	if tools == nil {
		t.Fatal("expected tools to be registered, got nil")
	}

	expectedTools := []string{
		"list_objects_with_sets",
		"list_available_types",
		"fetch_accessible_data",
		"fetch_specific_workspace_data",
		"get_user_workspace_permission",
		"find_object_report",
		"list_narratives",
		"list_narratorials",
	}

	if len(tools) != len(expectedTools) {
		t.Errorf("registered tool count = %d, want %d", len(tools), len(expectedTools))
	}

	for _, name := range expectedTools {
		if _, ok := tools[name]; !ok {
			t.Errorf("missing registered tool: %s", name)
		}
	}
}

func TestServerRegistration_WithDisabledTools(t *testing.T) {
	f := testSetup(t)

	f.cfg.DisabledTools = []string{"fetch_accessible_data", "fetch_specific_workspace_data", "fetch_accessible_data"}
	s := NewServer(f.svc, f.cfg, "test")
	tools := s.ListTools()

	if len(tools) != 6 {
		t.Errorf("registered tool count = %d, want 6", len(tools))
	}
	for _, name := range f.cfg.DisabledTools {
		if _, ok := tools[name]; ok {
			t.Errorf("disabled tool %q should not be registered", name)
		}
	}
	if _, ok := tools["list_objects_with_sets"]; !ok {
		t.Error("list_objects_with_sets should be registered")
	}
}

func TestServerRegistration_WithDisabledTypes(t *testing.T) {
	f := testSetup(t)

	f.cfg.DisabledTypes = []string{TypeReport}
	s := NewServer(f.svc, f.cfg, "test")
	tools := s.ListTools()

	if _, ok := tools["find_object_report"]; ok {
		t.Error("find_object_report should be disabled with the report type")
	}
	if len(tools) != len(AllToolNames())-1 {
		t.Errorf("registered tool count = %d, want %d", len(tools), len(AllToolNames())-1)
	}
}

func TestServerRegistration_AllToolsDisabled(t *testing.T) {
	f := testSetup(t)

	f.cfg.DisabledTypes = KnownTypes
	s := NewServer(f.svc, f.cfg, "test")
	if tools := s.ListTools(); len(tools) != 0 {
		t.Errorf("registered tool count = %d, want 0 (all disabled)", len(tools))
	}
}

func TestValidateDisabledTools(t *testing.T) {
	tests := []struct {
		name    string
		input   []string
		wantLen int
	}{
		{name: "all valid", input: []string{"find_object_report", "list_available_types"}, wantLen: 0},
		{name: "one unknown", input: []string{"find_object_report", "fake_tool"}, wantLen: 1},
		{name: "all unknown", input: []string{"foo", "bar", "baz"}, wantLen: 3},
		{name: "empty list", input: []string{}, wantLen: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			unknown := ValidateDisabledTools(tt.input)
			if len(unknown) != tt.wantLen {
				t.Errorf("ValidateDisabledTools() returned %d unknown, want %d", len(unknown), tt.wantLen)
			}
		})
	}
}

func TestValidateDisabledTypes(t *testing.T) {
	unknown := ValidateDisabledTypes([]string{TypeData, "metrics", TypeReport})
	if len(unknown) != 1 || unknown[0] != "metrics" {
		t.Errorf("ValidateDisabledTypes() = %v, want [metrics]", unknown)
	}
}

func TestAllToolNames(t *testing.T) {
	names := AllToolNames()
	if len(names) != 8 {
		t.Errorf("AllToolNames() returned %d names, want 8", len(names))
	}
	if unknown := ValidateDisabledTools(names); len(unknown) != 0 {
		t.Errorf("AllToolNames() returned invalid names: %v", unknown)
	}
	for _, name := range names {
		if GetTypeForTool(name) == "" {
			t.Errorf("tool %s has no type", name)
		}
	}
}

func TestExpandTypesToTools(t *testing.T) {
	if got := ExpandTypesToTools(nil); got != nil {
		t.Errorf("ExpandTypesToTools(nil) = %v, want nil", got)
	}
	got := ExpandTypesToTools([]string{TypeReport})
	if len(got) != 1 || got[0] != "find_object_report" {
		t.Errorf("ExpandTypesToTools(report) = %v", got)
	}
	if got := ExpandTypesToTools([]string{TypeData}); len(got) != 5 {
		t.Errorf("ExpandTypesToTools(data) returned %d tools, want 5", len(got))
	}
	got = ExpandTypesToTools([]string{TypeNarrative})
	if len(got) != 2 || got[0] != "list_narratives" || got[1] != "list_narratorials" {
		t.Errorf("ExpandTypesToTools(narrative) = %v", got)
	}
}

func TestErrorResult_InternalDoesNotExposeDetails(t *testing.T) {
	r := errorResult(errors.NewInternal(fmt.Errorf("sql error: open /tmp/secret.db: permission denied")))
	if !r.IsError {
		t.Fatal("expected IsError=true")
	}

	errObj := errorObject(t, r)
	if errObj["code"] != string(errors.ErrInternal) {
		t.Fatalf("code=%v, want %v", errObj["code"], errors.ErrInternal)
	}
	if _, ok := errObj["details"]; ok {
		t.Fatal("expected INTERNAL errors to omit details")
	}
	if strings.Contains(errObj["message"].(string), "secret.db") {
		t.Fatal("INTERNAL message leaks the cause")
	}
}

func TestErrorResult_WrappedErrorPreservesContext(t *testing.T) {
	wrappedErr := fmt.Errorf("workspace 3: %w", errors.NewNotFound("3/1/1"))

	r := errorResult(wrappedErr)
	errObj := errorObject(t, r)

	if errObj["code"] != string(errors.ErrNotFound) {
		t.Errorf("code=%v, want %v", errObj["code"], errors.ErrNotFound)
	}
	msg := errObj["message"].(string)
	if !strings.HasPrefix(msg, "workspace 3: ") {
		t.Errorf("message should keep wrapper context 'workspace 3: ', got: %s", msg)
	}
}

func TestErrorResult_UpstreamMessageVerbatim(t *testing.T) {
	upstreamMsg := "User bob may not read workspace 7"
	r := errorResult(errors.NewUpstream("Workspace", fmt.Errorf("%s", upstreamMsg)))
	errObj := errorObject(t, r)

	if errObj["code"] != string(errors.ErrUpstreamUnavailable) {
		t.Errorf("code=%v, want %v", errObj["code"], errors.ErrUpstreamUnavailable)
	}
	if errObj["message"] != upstreamMsg {
		t.Errorf("message = %v, want %q", errObj["message"], upstreamMsg)
	}
	details := errObj["details"].(map[string]any)
	if details["service"] != "Workspace" {
		t.Errorf("details.service = %v, want Workspace", details["service"])
	}
}

func TestErrorResult_PlainErrorIsInternal(t *testing.T) {
	r := errorResult(fmt.Errorf("boom"))
	errObj := errorObject(t, r)
	if errObj["code"] != string(errors.ErrInternal) {
		t.Errorf("code=%v, want %v", errObj["code"], errors.ErrInternal)
	}
	if errObj["message"] == "boom" {
		t.Error("unclassified error message should not be exposed")
	}
}

// Helper functions

// parseOutput extracts and unmarshals the JSON output from an MCP result.
func parseOutput(t *testing.T, result *mcp.CallToolResult) map[string]any {
	t.Helper()
	if result.IsError {
		t.Fatalf("expected success, got error: %v", extractErrorMessage(result))
	}
	var output map[string]any
	if err := json.Unmarshal([]byte(result.Content[0].(mcp.TextContent).Text), &output); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	return output
}

// errorObject returns the "error" object of an error result.
func errorObject(t *testing.T, result *mcp.CallToolResult) map[string]any {
	t.Helper()
	if !result.IsError {
		t.Fatalf("expected error result, got success: %v", extractErrorMessage(result))
	}
	var payload map[string]any
	if err := json.Unmarshal([]byte(result.Content[0].(mcp.TextContent).Text), &payload); err != nil {
		t.Fatalf("failed to unmarshal error payload: %v", err)
	}
	errObj, ok := payload["error"].(map[string]any)
	if !ok {
		t.Fatalf("no error object in payload: %v", payload)
	}
	return errObj
}

// errorFields renders details.fields for substring checks.
func errorFields(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	details, _ := errorObject(t, result)["details"].(map[string]any)
	b, _ := json.Marshal(details["fields"])
	return string(b)
}

func assertErrorCode(t *testing.T, result *mcp.CallToolResult, expectedCode string) {
	t.Helper()

	if !result.IsError {
		t.Errorf("expected error result with code %s, got success", expectedCode)
		return
	}
	if len(result.Content) == 0 {
		t.Errorf("no content in error result")
		return
	}

	text, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		t.Errorf("content is not TextContent")
		return
	}

	var payload map[string]any
	if err := json.Unmarshal([]byte(text.Text), &payload); err != nil {
		t.Errorf("failed to unmarshal error payload: %v", err)
		return
	}

	errorObj, ok := payload["error"].(map[string]any)
	if !ok {
		t.Errorf("no error object in payload")
		return
	}

	code, ok := errorObj["code"].(string)
	if !ok {
		t.Errorf("no code in error object")
		return
	}

	if code != expectedCode {
		t.Errorf("got error code %q, want %q", code, expectedCode)
	}
}

func extractErrorMessage(result *mcp.CallToolResult) string {
	if len(result.Content) == 0 {
		return "<no content>"
	}

	text, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		return "<not text content>"
	}

	return text.Text
}

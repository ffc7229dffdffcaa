package ops

import (
	"context"
	stderrors "errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/hpungsan/narrsvc/internal/datapalette"
	"github.com/hpungsan/narrsvc/internal/errors"
	"github.com/hpungsan/narrsvc/internal/localstore"
	"github.com/hpungsan/narrsvc/internal/setapi"
	"github.com/hpungsan/narrsvc/internal/workspace"
)

const testUser = "alice"

// newTestStore opens a fresh local store acting as testUser.
func newTestStore(t *testing.T) *localstore.Store {
	t.Helper()
	db, err := localstore.Init(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return localstore.New(db, testUser)
}

// servicesFor wires every collaborator to the store.
func servicesFor(store *localstore.Store) Services {
	return Services{
		Workspace: store,
		Sets:      store,
		Palette:   store,
		User:      store.User(),
		PartSize:  4,
	}
}

func createWorkspace(t *testing.T, store *localstore.Store, in localstore.NewWorkspace) workspace.WorkspaceInfo {
	t.Helper()
	info, err := store.CreateWorkspace(context.Background(), in)
	require.NoError(t, err)
	return info
}

func saveObject(t *testing.T, store *localstore.Store, in localstore.NewObject) workspace.ObjectInfo {
	t.Helper()
	info, err := store.SaveObject(context.Background(), in)
	require.NoError(t, err)
	return info
}

var baseTime = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// seedNarrativeWorkspaces builds five workspaces owned by testUser:
//
//	1: no narrative name (legacy)
//	2: "Some Narrative"
//	3: "Some Other Narrative"
//	4: temporary
//	5: data only
//
// Each holds one narrative object and nine KBaseModule.SomeType-N.0 objects.
func seedNarrativeWorkspaces(t *testing.T, store *localstore.Store) []workspace.WorkspaceInfo {
	t.Helper()
	metas := []map[string]string{
		nil,
		{workspace.MetaNarrativeName: "Some Narrative", workspace.MetaNarrative: "1"},
		{workspace.MetaNarrativeName: "Some Other Narrative", workspace.MetaNarrative: "1"},
		{workspace.MetaIsTemporary: "true", workspace.MetaNarrative: "1"},
		{workspace.MetaShowInDataPanel: "1"},
	}

	var out []workspace.WorkspaceInfo
	for i, meta := range metas {
		ws := createWorkspace(t, store, localstore.NewWorkspace{
			Name:     fmt.Sprintf("%s:narrative_%d", testUser, i+1),
			Metadata: meta,
		})
		saveObject(t, store, localstore.NewObject{
			WorkspaceID: ws.ID,
			Name:        "narrative",
			Type:        "KBaseNarrative.Narrative-4.0",
			SavedAt:     baseTime.Add(time.Duration(i) * time.Hour),
		})
		for n := 1; n <= 9; n++ {
			saveObject(t, store, localstore.NewObject{
				WorkspaceID: ws.ID,
				Name:        fmt.Sprintf("obj_%d", n),
				Type:        fmt.Sprintf("KBaseModule.SomeType-%d.0", n),
				SavedAt:     baseTime.Add(time.Duration(i)*time.Hour + time.Duration(n)*time.Minute),
			})
		}
		info, err := store.GetWorkspaceInfo(context.Background(), workspace.WorkspaceIdentity{ID: ws.ID})
		require.NoError(t, err)
		out = append(out, info)
	}
	return out
}

var errUpstreamDown = stderrors.New("Service Unavailable: connection refused")

// failingStore wraps a store and fails chosen collaborator calls.
// failListObjectsAt fails the n-th ListObjects call (1-based); 0 never fails.
type failingStore struct {
	*localstore.Store
	failSets          bool
	failPalette       bool
	failListObjectsAt int

	listObjectsCalls int
}

func (f *failingStore) ListSets(ctx context.Context, params setapi.ListSetsParams) (*setapi.ListSetsResult, error) {
	if f.failSets {
		return nil, errUpstreamDown
	}
	return f.Store.ListSets(ctx, params)
}

func (f *failingStore) ListData(ctx context.Context, params datapalette.ListDataParams) (*datapalette.ListDataResult, error) {
	if f.failPalette {
		return nil, errUpstreamDown
	}
	return f.Store.ListData(ctx, params)
}

func (f *failingStore) ListObjects(ctx context.Context, params workspace.ListObjectsParams) ([]workspace.ObjectInfo, error) {
	f.listObjectsCalls++
	if f.failListObjectsAt > 0 && f.listObjectsCalls == f.failListObjectsAt {
		return nil, errUpstreamDown
	}
	return f.Store.ListObjects(ctx, params)
}

// servicesForFailing wires every collaborator to the failing wrapper.
func servicesForFailing(f *failingStore) Services {
	svc := servicesFor(f.Store)
	svc.Workspace = f
	svc.Sets = f
	svc.Palette = f
	return svc
}

// requireUpstreamFailure checks that err is the collaborator failure, unchanged.
func requireUpstreamFailure(t *testing.T, err error) {
	t.Helper()
	require.Error(t, err)
	require.True(t, errors.Is(err, errors.ErrUpstreamUnavailable), "got %v", err)
	require.True(t, stderrors.Is(err, errUpstreamDown), "cause is kept: %v", err)

	nErr, ok := errors.As(err)
	require.True(t, ok)
	require.Equal(t, errUpstreamDown.Error(), nErr.Message)
}

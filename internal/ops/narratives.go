package ops

import (
	"context"
	"strconv"
	"strings"

	"github.com/golang/glog"

	"github.com/hpungsan/narrsvc/internal/errors"
	"github.com/hpungsan/narrsvc/internal/workspace"
)

// Narrative listings accepted by ListNarratives.
const (
	NarrativesMine   = "mine"
	NarrativesShared = "shared"
	NarrativesPublic = "public"
)

// Narrative pairs a workspace with its narrative object.
type Narrative struct {
	WS  workspace.WorkspaceInfo `json:"ws"`
	Nar workspace.ObjectInfo    `json:"nar"`
}

// ListNarrativesInput contains parameters for the ListNarratives operation.
type ListNarrativesInput struct {
	Type string // mine (default), shared or public
}

// ListNarrativesOutput contains the listed narratives.
type ListNarrativesOutput struct {
	Narratives []Narrative `json:"narratives"`
}

// ListNarratorialsOutput contains the listed narratorials.
type ListNarratorialsOutput struct {
	Narratorials []Narrative `json:"narratorials"`
}

// ListNarratives lists the narratives the caller owns, has been shared, or
// can read publicly.
func ListNarratives(ctx context.Context, svc Services, input ListNarrativesInput) (*ListNarrativesOutput, error) {
	narType := strings.ToLower(strings.TrimSpace(input.Type))
	if narType == "" {
		narType = NarrativesMine
	}

	var params workspace.ListWorkspaceInfoParams
	switch narType {
	case NarrativesMine:
		params.Owners = []string{svc.User}
	case NarrativesShared:
		params.ExcludeGlobal = 1
	case NarrativesPublic:
	default:
		return nil, errors.NewInvalidArgument(`"type" parameter must be set to one of: mine, shared, public`)
	}
	if narType != NarrativesPublic && svc.User == "" {
		return nil, errors.NewInvalidArgument("no user configured; cannot resolve '" + narType + "' narratives")
	}

	infos, err := svc.Workspace.ListWorkspaceInfo(ctx, params)
	if err != nil {
		return nil, upstream(serviceWorkspace, err)
	}

	kept := make([]workspace.WorkspaceInfo, 0, len(infos))
	for _, info := range infos {
		switch {
		case narType == NarrativesShared && info.Owner == svc.User:
			continue
		case narType == NarrativesPublic && info.GlobalRead != workspace.PermRead:
			continue
		}
		kept = append(kept, info)
	}

	narratives, err := narrativesIn(ctx, svc.Workspace, kept)
	if err != nil {
		return nil, err
	}
	glog.V(1).Infof("[narratives] type=%s workspaces=%d narratives=%d", narType, len(infos), len(narratives))
	return &ListNarrativesOutput{Narratives: narratives}, nil
}

// ListNarratorials lists the readable narratives flagged as narratorials.
func ListNarratorials(ctx context.Context, svc Services) (*ListNarratorialsOutput, error) {
	infos, err := svc.Workspace.ListWorkspaceInfo(ctx, workspace.ListWorkspaceInfoParams{
		Meta: map[string]string{workspace.MetaNarratorial: "1"},
	})
	if err != nil {
		return nil, upstream(serviceWorkspace, err)
	}

	narratives, err := narrativesIn(ctx, svc.Workspace, infos)
	if err != nil {
		return nil, err
	}
	return &ListNarratorialsOutput{Narratorials: narratives}, nil
}

// narrativesIn looks up the narrative object of each workspace, in workspace
// order. Temporary workspaces, workspaces without a narrative, and narratives
// that cannot be read are left out.
func narrativesIn(ctx context.Context, client workspace.Client, infos []workspace.WorkspaceInfo) ([]Narrative, error) {
	var (
		withNarrative []workspace.WorkspaceInfo
		refs          []workspace.ObjectIdentity
	)
	for _, info := range infos {
		if info.IsTemporary() {
			continue
		}
		objID, err := strconv.ParseInt(info.Metadata[workspace.MetaNarrative], 10, 64)
		if err != nil || objID <= 0 {
			continue
		}
		withNarrative = append(withNarrative, info)
		refs = append(refs, workspace.ObjectIdentity{Ref: strconv.FormatInt(info.ID, 10) + "/" + strconv.FormatInt(objID, 10)})
	}

	out := []Narrative{}
	if len(refs) == 0 {
		return out, nil
	}

	objs, err := client.GetObjectInfo(ctx, refs, true)
	if err != nil {
		return nil, upstream(serviceWorkspace, err)
	}
	for i, obj := range objs {
		if obj == nil || i >= len(withNarrative) {
			continue
		}
		out = append(out, Narrative{WS: withNarrative[i], Nar: *obj})
	}
	return out, nil
}

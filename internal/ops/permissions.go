package ops

import (
	"context"
	"strings"

	"github.com/hpungsan/narrsvc/internal/errors"
	"github.com/hpungsan/narrsvc/internal/workspace"
)

// UserPermissionInput contains parameters for the UserPermission operation.
type UserPermissionInput struct {
	User        string // defaults to the configured user
	WorkspaceID int64
}

// UserPermissionOutput reports one user's permission on one workspace.
type UserPermissionOutput struct {
	User        string `json:"user"`
	WorkspaceID int64  `json:"workspace_id"`
	Permission  string `json:"permission"`
}

// UserPermission returns the user's permission on a workspace, "n" if none.
func UserPermission(ctx context.Context, svc Services, input UserPermissionInput) (*UserPermissionOutput, error) {
	user := strings.TrimSpace(input.User)
	if user == "" {
		user = svc.User
	}
	if user == "" {
		return nil, errors.NewInvalidArgument("user is required")
	}
	if input.WorkspaceID <= 0 {
		return nil, errors.NewInvalidArgument("workspace_id must be a positive integer")
	}

	perms, err := svc.Workspace.GetPermissionsMass(ctx, []workspace.WorkspaceIdentity{{ID: input.WorkspaceID}})
	if err != nil {
		return nil, upstream(serviceWorkspace, err)
	}

	perm := workspace.PermNone
	if len(perms) > 0 {
		if p, ok := perms[0][user]; ok {
			perm = p
		}
	}
	return &UserPermissionOutput{User: user, WorkspaceID: input.WorkspaceID, Permission: perm}, nil
}

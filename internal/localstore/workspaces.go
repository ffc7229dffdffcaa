package localstore

import (
	"context"

	"github.com/hpungsan/narrsvc/internal/errors"
	"github.com/hpungsan/narrsvc/internal/workspace"
)

// ListWorkspaceInfo lists the workspaces the user can read, ordered by id.
// Perm sets a minimum permission. ExcludeGlobal drops workspaces the user
// reaches only through global read. Meta keeps workspaces carrying every pair.
func (s *Store) ListWorkspaceInfo(ctx context.Context, params workspace.ListWorkspaceInfoParams) ([]workspace.WorkspaceInfo, error) {
	minRank := permRank[workspace.PermRead]
	if params.Perm != "" {
		r, ok := permRank[params.Perm]
		if !ok {
			return nil, errors.NewInvalidArgument("unknown permission: " + params.Perm)
		}
		if r > minRank {
			minRank = r
		}
	}
	owners := make(map[string]bool, len(params.Owners))
	for _, o := range params.Owners {
		owners[o] = true
	}

	rows, err := s.db.QueryContext(ctx, `SELECT `+wsColumns+wsFrom+` ORDER BY w.id`, s.user)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()

	var out []workspace.WorkspaceInfo
	for rows.Next() {
		row, err := s.scanWorkspace(rows.Scan)
		if err != nil {
			return nil, errors.NewInternal(err)
		}
		if len(owners) > 0 && !owners[row.info.Owner] {
			continue
		}
		perm := effectivePerm(row)
		if permRank[perm] < minRank {
			continue
		}
		if params.ExcludeGlobal == 1 && (row.explicit == "" || row.explicit == workspace.PermNone) {
			continue
		}
		if !metaMatches(row.info.Metadata, params.Meta) {
			continue
		}
		out = append(out, row.info)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}
	return out, nil
}

// GetWorkspaceInfo returns one workspace by id or name.
func (s *Store) GetWorkspaceInfo(ctx context.Context, ident workspace.WorkspaceIdentity) (workspace.WorkspaceInfo, error) {
	row, err := s.lookupWorkspace(ctx, ident)
	if err != nil {
		return workspace.WorkspaceInfo{}, err
	}
	return row.info, nil
}

// GetPermissionsMass returns, per workspace, every user's permission.
// The owner is reported as admin and global read appears under "*".
func (s *Store) GetPermissionsMass(ctx context.Context, workspaces []workspace.WorkspaceIdentity) ([]map[string]string, error) {
	out := make([]map[string]string, 0, len(workspaces))
	for _, ident := range workspaces {
		row, err := s.lookupWorkspace(ctx, ident)
		if err != nil {
			return nil, err
		}

		perms := map[string]string{row.info.Owner: workspace.PermAdmin}
		if row.info.GlobalRead == workspace.PermRead {
			perms["*"] = workspace.PermRead
		}

		rows, err := s.db.QueryContext(ctx, `SELECT username, perm FROM permissions WHERE ws_id = ?`, row.info.ID)
		if err != nil {
			return nil, errors.NewInternal(err)
		}
		for rows.Next() {
			var user, perm string
			if err := rows.Scan(&user, &perm); err != nil {
				rows.Close()
				return nil, errors.NewInternal(err)
			}
			if user != row.info.Owner {
				perms[user] = perm
			}
		}
		err = rows.Err()
		rows.Close()
		if err != nil {
			return nil, errors.NewInternal(err)
		}
		out = append(out, perms)
	}
	return out, nil
}

func metaMatches(meta, want map[string]string) bool {
	for k, v := range want {
		if got, ok := meta[k]; !ok || got != v {
			return false
		}
	}
	return true
}

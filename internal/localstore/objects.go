package localstore

import (
	"context"

	"github.com/hpungsan/narrsvc/internal/errors"
	"github.com/hpungsan/narrsvc/internal/workspace"
)

// ListObjects returns the latest version of every object whose id falls in
// [MinObjectID, MaxObjectID] in each listed workspace. A zero bound is open.
func (s *Store) ListObjects(ctx context.Context, params workspace.ListObjectsParams) ([]workspace.ObjectInfo, error) {
	var out []workspace.ObjectInfo
	for _, wsID := range params.IDs {
		if _, err := s.lookupWorkspace(ctx, workspace.WorkspaceIdentity{ID: wsID}); err != nil {
			return nil, err
		}

		query := `SELECT ` + objColumns + ` FROM objects o JOIN workspaces w ON w.id = o.ws_id
			WHERE o.ws_id = ?
			  AND o.version = (SELECT MAX(version) FROM objects v WHERE v.ws_id = o.ws_id AND v.obj_id = o.obj_id)`
		args := []any{wsID}
		if params.MinObjectID > 0 {
			query += ` AND o.obj_id >= ?`
			args = append(args, params.MinObjectID)
		}
		if params.MaxObjectID > 0 {
			query += ` AND o.obj_id <= ?`
			args = append(args, params.MaxObjectID)
		}
		query += ` ORDER BY o.obj_id`

		rows, err := s.db.QueryContext(ctx, query, args...)
		if err != nil {
			return nil, errors.NewInternal(err)
		}
		for rows.Next() {
			data, err := scanObject(rows.Scan, params.IncludeMetadata == 1)
			if err != nil {
				rows.Close()
				return nil, errors.NewInternal(err)
			}
			out = append(out, data.Info)
		}
		err = rows.Err()
		rows.Close()
		if err != nil {
			return nil, errors.NewInternal(err)
		}
	}
	return out, nil
}

// ListReferencingObjects returns, for each ref, the readable objects that
// reference it. Referrers in unreadable workspaces are omitted.
func (s *Store) ListReferencingObjects(ctx context.Context, refs []workspace.ObjectIdentity) ([][]workspace.ObjectInfo, error) {
	out := make([][]workspace.ObjectInfo, 0, len(refs))
	for _, ident := range refs {
		target, err := s.lookupObject(ctx, ident.Ref, false)
		if err != nil {
			return nil, err
		}

		rows, err := s.db.QueryContext(ctx,
			`SELECT from_ref FROM object_refs WHERE to_ref = ? ORDER BY from_ref`, target.Info.Ref())
		if err != nil {
			return nil, errors.NewInternal(err)
		}
		var from []string
		for rows.Next() {
			var ref string
			if err := rows.Scan(&ref); err != nil {
				rows.Close()
				return nil, errors.NewInternal(err)
			}
			from = append(from, ref)
		}
		err = rows.Err()
		rows.Close()
		if err != nil {
			return nil, errors.NewInternal(err)
		}

		referrers := []workspace.ObjectInfo{}
		for _, ref := range from {
			data, err := s.lookupObject(ctx, ref, false)
			if err != nil {
				if errors.Is(err, errors.ErrInternal) {
					return nil, err
				}
				continue
			}
			referrers = append(referrers, data.Info)
		}
		out = append(out, referrers)
	}
	return out, nil
}

// GetObjectInfo returns each object's info. Refs that are malformed, missing
// or unreadable yield nil entries; only store failures abort the call.
func (s *Store) GetObjectInfo(ctx context.Context, refs []workspace.ObjectIdentity, includeMetadata bool) ([]*workspace.ObjectInfo, error) {
	out := make([]*workspace.ObjectInfo, 0, len(refs))
	for _, ident := range refs {
		data, err := s.lookupObject(ctx, ident.Ref, includeMetadata)
		if err != nil {
			if errors.Is(err, errors.ErrInternal) {
				return nil, err
			}
			out = append(out, nil)
			continue
		}
		info := data.Info
		out = append(out, &info)
	}
	return out, nil
}

// GetObjectInfoWithProvenance returns each object's info and copy source.
func (s *Store) GetObjectInfoWithProvenance(ctx context.Context, refs []workspace.ObjectIdentity) ([]workspace.ObjectData, error) {
	out := make([]workspace.ObjectData, 0, len(refs))
	for _, ident := range refs {
		data, err := s.lookupObject(ctx, ident.Ref, false)
		if err != nil {
			return nil, err
		}
		out = append(out, data)
	}
	return out, nil
}

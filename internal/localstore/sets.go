package localstore

import (
	"context"
	"strconv"
	"strings"

	"github.com/hpungsan/narrsvc/internal/errors"
	"github.com/hpungsan/narrsvc/internal/setapi"
	"github.com/hpungsan/narrsvc/internal/workspace"
)

// workspaceIdent reads a workspace given as an id or a name.
func workspaceIdent(s string) workspace.WorkspaceIdentity {
	s = strings.TrimSpace(s)
	if id, err := strconv.ParseInt(s, 10, 64); err == nil && id > 0 {
		return workspace.WorkspaceIdentity{ID: id}
	}
	return workspace.WorkspaceIdentity{Workspace: s}
}

// ListSets returns the sets stored in each workspace with their members in
// set order. Members the user cannot read are omitted.
func (s *Store) ListSets(ctx context.Context, params setapi.ListSetsParams) (*setapi.ListSetsResult, error) {
	result := &setapi.ListSetsResult{Sets: []setapi.SetRecord{}}
	for _, ws := range params.Workspaces {
		row, err := s.lookupWorkspace(ctx, workspaceIdent(ws))
		if err != nil {
			return nil, err
		}

		setRefs, err := s.stringColumn(ctx,
			`SELECT DISTINCT set_ref FROM set_items WHERE set_ref LIKE ? ORDER BY set_ref`,
			strconv.FormatInt(row.info.ID, 10)+"/%")
		if err != nil {
			return nil, err
		}

		for _, setRef := range setRefs {
			set, err := s.lookupObject(ctx, setRef, params.IncludeMetadata == 1)
			if errors.Is(err, errors.ErrNotFound) {
				continue
			}
			if err != nil {
				return nil, err
			}

			record := setapi.SetRecord{Ref: setRef, Info: set.Info, Items: []setapi.SetItem{}}
			itemRefs, err := s.stringColumn(ctx,
				`SELECT item_ref FROM set_items WHERE set_ref = ? ORDER BY position`, setRef)
			if err != nil {
				return nil, err
			}
			for _, itemRef := range itemRefs {
				item := setapi.SetItem{Ref: itemRef}
				if params.IncludeSetItemInfo == 1 {
					data, err := s.lookupObject(ctx, itemRef, params.IncludeMetadata == 1)
					if err != nil {
						if errors.Is(err, errors.ErrInternal) {
							return nil, err
						}
						continue
					}
					item.Info = data.Info
				}
				record.Items = append(record.Items, item)
			}
			result.Sets = append(result.Sets, record)
		}
	}
	return result, nil
}

func (s *Store) stringColumn(ctx context.Context, query string, args ...any) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, errors.NewInternal(err)
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}
	return out, nil
}

package localstore

import (
	"context"
	"database/sql"
	"strconv"

	"github.com/hpungsan/narrsvc/internal/datapalette"
	"github.com/hpungsan/narrsvc/internal/errors"
)

// ListData returns the objects made visible by the palettes of the listed
// workspaces. An object reached through several palettes appears once, with
// every pointer listed.
func (s *Store) ListData(ctx context.Context, params datapalette.ListDataParams) (*datapalette.ListDataResult, error) {
	result := &datapalette.ListDataResult{
		Data:            []datapalette.Entry{},
		DataPaletteRefs: map[string]string{},
	}
	pointers := map[string][]string{}
	var order []string
	entries := map[string]datapalette.Entry{}

	for _, ws := range params.Workspaces {
		row, err := s.lookupWorkspace(ctx, workspaceIdent(ws))
		if err != nil {
			return nil, err
		}

		var paletteRef string
		err = s.db.QueryRowContext(ctx, `SELECT palette_ref FROM palettes WHERE ws_id = ?`, row.info.ID).Scan(&paletteRef)
		if err == sql.ErrNoRows {
			continue
		}
		if err != nil {
			return nil, errors.NewInternal(err)
		}
		result.DataPaletteRefs[strconv.FormatInt(row.info.ID, 10)] = paletteRef

		refs, err := s.stringColumn(ctx, `SELECT ref FROM palette_entries WHERE ws_id = ? ORDER BY rowid`, row.info.ID)
		if err != nil {
			return nil, err
		}
		for _, ref := range refs {
			data, err := s.lookupObject(ctx, ref, params.IncludeMetadata == 1)
			if err != nil {
				if errors.Is(err, errors.ErrInternal) {
					return nil, err
				}
				continue
			}
			key := data.Info.Ref()
			if _, ok := entries[key]; !ok {
				entries[key] = datapalette.Entry{Ref: key, Info: data.Info}
				order = append(order, key)
			}
			pointers[key] = append(pointers[key], paletteRef+";"+key)
		}
	}

	for _, key := range order {
		entry := entries[key]
		ptrs := pointers[key]
		first := ptrs[0]
		entry.DPRef = &first
		if len(ptrs) > 1 {
			entry.DPRefs = ptrs
		}
		result.Data = append(result.Data, entry)
	}
	return result, nil
}

package localstore

import (
	"context"
	"crypto/md5"
	"database/sql"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/hpungsan/narrsvc/internal/errors"
	"github.com/hpungsan/narrsvc/internal/workspace"
)

// NewWorkspace describes a workspace to create.
type NewWorkspace struct {
	Name       string
	Owner      string // default: the store's user
	GlobalRead bool
	Metadata   map[string]string
}

// CreateWorkspace adds an empty workspace.
func (s *Store) CreateWorkspace(ctx context.Context, in NewWorkspace) (workspace.WorkspaceInfo, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return workspace.WorkspaceInfo{}, errors.NewInvalidArgument("workspace name is required")
	}
	owner := in.Owner
	if owner == "" {
		owner = s.user
	}
	globalRead := workspace.PermNone
	if in.GlobalRead {
		globalRead = workspace.PermRead
	}
	meta, err := marshalMeta(in.Metadata)
	if err != nil {
		return workspace.WorkspaceInfo{}, errors.NewInternal(err)
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO workspaces (name, owner, moddate, globalread, meta_json) VALUES (?, ?, ?, ?, ?)`,
		name, owner, workspace.FormatTimestamp(s.now()), globalRead, meta)
	if err != nil {
		if isUniqueConstraintError(err) {
			return workspace.WorkspaceInfo{}, errors.NewInvalidArgument("workspace name already in use: " + name)
		}
		return workspace.WorkspaceInfo{}, errors.NewInternal(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return workspace.WorkspaceInfo{}, errors.NewInternal(err)
	}
	return s.AsUser(owner).GetWorkspaceInfo(ctx, workspace.WorkspaceIdentity{ID: id})
}

// SetPermission grants user perm on a workspace. PermNone revokes.
func (s *Store) SetPermission(ctx context.Context, wsID int64, user, perm string) error {
	if _, ok := permRank[perm]; !ok {
		return errors.NewInvalidArgument("unknown permission: " + perm)
	}
	if perm == workspace.PermNone {
		_, err := s.db.ExecContext(ctx, `DELETE FROM permissions WHERE ws_id = ? AND username = ?`, wsID, user)
		if err != nil {
			return errors.NewInternal(err)
		}
		return nil
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO permissions (ws_id, username, perm) VALUES (?, ?, ?)
		 ON CONFLICT (ws_id, username) DO UPDATE SET perm = excluded.perm`, wsID, user, perm)
	if err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

// NewObject describes an object version to save.
type NewObject struct {
	WorkspaceID int64
	Name        string
	Type        string
	SavedBy     string    // default: the store's user
	SavedAt     time.Time // default: now
	Metadata    map[string]string

	CopiedFrom             string // ref of the copy source
	CopySourceInaccessible bool
}

// SaveObject saves an object. Saving under an existing name adds a version
// to that object; otherwise the workspace's next object id is allocated.
func (s *Store) SaveObject(ctx context.Context, in NewObject) (workspace.ObjectInfo, error) {
	if strings.TrimSpace(in.Name) == "" || strings.TrimSpace(in.Type) == "" {
		return workspace.ObjectInfo{}, errors.NewInvalidArgument("object name and type are required")
	}
	savedBy := in.SavedBy
	if savedBy == "" {
		savedBy = s.user
	}
	savedAt := in.SavedAt
	if savedAt.IsZero() {
		savedAt = s.now()
	}
	meta, err := marshalMeta(in.Metadata)
	if err != nil {
		return workspace.ObjectInfo{}, errors.NewInternal(err)
	}
	var copied sql.NullString
	if in.CopiedFrom != "" {
		copied = sql.NullString{String: in.CopiedFrom, Valid: true}
	}
	inaccessible := 0
	if in.CopySourceInaccessible {
		inaccessible = 1
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return workspace.ObjectInfo{}, errors.NewInternal(err)
	}
	defer tx.Rollback()

	var wsName string
	err = tx.QueryRowContext(ctx, `SELECT name FROM workspaces WHERE id = ?`, in.WorkspaceID).Scan(&wsName)
	if err == sql.ErrNoRows {
		return workspace.ObjectInfo{}, errors.NewNotFound(fmt.Sprintf("workspace %d", in.WorkspaceID))
	}
	if err != nil {
		return workspace.ObjectInfo{}, errors.NewInternal(err)
	}

	var objID, version int64
	err = tx.QueryRowContext(ctx,
		`SELECT obj_id, MAX(version) FROM objects WHERE ws_id = ? AND name = ? GROUP BY obj_id`,
		in.WorkspaceID, in.Name).Scan(&objID, &version)
	switch {
	case err == sql.ErrNoRows:
		if err := tx.QueryRowContext(ctx,
			`UPDATE workspaces SET max_objid = max_objid + 1 WHERE id = ? RETURNING max_objid`,
			in.WorkspaceID).Scan(&objID); err != nil {
			return workspace.ObjectInfo{}, errors.NewInternal(err)
		}
		version = 1
	case err != nil:
		return workspace.ObjectInfo{}, errors.NewInternal(err)
	default:
		version++
	}

	saveDate := workspace.FormatTimestamp(savedAt)
	sum := md5.Sum([]byte(fmt.Sprintf("%d/%d/%d %s %s", in.WorkspaceID, objID, version, in.Type, saveDate)))
	size := int64(len(in.Name) + len(in.Type))

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO objects (
			ws_id, obj_id, version, name, type, save_date, saved_by,
			chsum, size, meta_json, copied_from, copy_source_inaccessible
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		in.WorkspaceID, objID, version, in.Name, in.Type, saveDate, savedBy,
		hex.EncodeToString(sum[:]), size, meta, copied, inaccessible,
	); err != nil {
		return workspace.ObjectInfo{}, errors.NewInternal(err)
	}
	if _, err := tx.ExecContext(ctx, `UPDATE workspaces SET moddate = ? WHERE id = ?`,
		workspace.FormatTimestamp(s.now()), in.WorkspaceID); err != nil {
		return workspace.ObjectInfo{}, errors.NewInternal(err)
	}
	if err := tx.Commit(); err != nil {
		return workspace.ObjectInfo{}, errors.NewInternal(err)
	}

	return workspace.ObjectInfo{
		ObjectID:      objID,
		Name:          in.Name,
		TypeString:    in.Type,
		SaveDate:      saveDate,
		Version:       version,
		SavedBy:       savedBy,
		WorkspaceID:   in.WorkspaceID,
		WorkspaceName: wsName,
		Checksum:      hex.EncodeToString(sum[:]),
		Size:          size,
		Metadata:      in.Metadata,
	}, nil
}

// AddReference records that the object at from references the object at to.
// Both refs must carry a version.
func (s *Store) AddReference(ctx context.Context, from, to string) error {
	if _, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO object_refs (from_ref, to_ref) VALUES (?, ?)`, from, to); err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

// AddSetItems appends members to a set, after any it already has.
func (s *Store) AddSetItems(ctx context.Context, setRef string, itemRefs ...string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.NewInternal(err)
	}
	defer tx.Rollback()

	var next int
	if err := tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(position) + 1, 0) FROM set_items WHERE set_ref = ?`, setRef).Scan(&next); err != nil {
		return errors.NewInternal(err)
	}
	for i, ref := range itemRefs {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO set_items (set_ref, position, item_ref) VALUES (?, ?, ?)`, setRef, next+i, ref); err != nil {
			return errors.NewInternal(err)
		}
	}
	if err := tx.Commit(); err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

// SetPalette names the palette object of a workspace.
func (s *Store) SetPalette(ctx context.Context, wsID int64, paletteRef string) error {
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO palettes (ws_id, palette_ref) VALUES (?, ?)
		 ON CONFLICT (ws_id) DO UPDATE SET palette_ref = excluded.palette_ref`, wsID, paletteRef); err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

// AddPaletteEntry makes ref visible through the palette of a workspace.
func (s *Store) AddPaletteEntry(ctx context.Context, wsID int64, ref string) error {
	if _, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO palette_entries (ws_id, ref) VALUES (?, ?)`, wsID, ref); err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

// isUniqueConstraintError reports a SQLite UNIQUE violation.
func isUniqueConstraintError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// Package localstore serves the object store, set and data-palette
// collaborators from a local SQLite database. It backs offline mode and the
// fixtures used in tests.
package localstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/hpungsan/narrsvc/internal/errors"
	"github.com/hpungsan/narrsvc/internal/workspace"
)

const serviceName = "Workspace"

// Store answers collaborator calls on behalf of a single user.
type Store struct {
	db   *sql.DB
	user string
	now  func() time.Time
}

// New creates a Store acting as user.
func New(db *sql.DB, user string) *Store {
	return &Store{db: db, user: user, now: time.Now}
}

// AsUser returns a Store over the same database acting as another user.
func (s *Store) AsUser(user string) *Store {
	return &Store{db: s.db, user: user, now: s.now}
}

// User returns the acting user.
func (s *Store) User() string {
	return s.user
}

var permRank = map[string]int{
	workspace.PermNone:  0,
	workspace.PermRead:  1,
	workspace.PermWrite: 2,
	workspace.PermAdmin: 3,
}

// wsRow is a workspace row plus the caller's explicit grant, if any.
type wsRow struct {
	info     workspace.WorkspaceInfo
	explicit string // owner or permissions-table grant; "" if none
}

const wsColumns = `w.id, w.name, w.owner, w.moddate, w.max_objid, w.globalread, w.lockstat, w.meta_json,
	COALESCE(p.perm, '')`

// wsFrom joins the caller's grant onto each workspace. The caller is bound as the first argument.
const wsFrom = ` FROM workspaces w LEFT JOIN permissions p ON p.ws_id = w.id AND p.username = ?`

func (s *Store) scanWorkspace(scan func(dest ...any) error) (wsRow, error) {
	var (
		row      wsRow
		metaJSON sql.NullString
		grant    string
	)
	info := &row.info
	if err := scan(&info.ID, &info.Name, &info.Owner, &info.ModDate, &info.MaxObjectID,
		&info.GlobalRead, &info.LockStatus, &metaJSON, &grant); err != nil {
		return wsRow{}, err
	}
	info.Metadata = map[string]string{}
	if metaJSON.Valid && metaJSON.String != "" {
		if err := json.Unmarshal([]byte(metaJSON.String), &info.Metadata); err != nil {
			return wsRow{}, fmt.Errorf("workspace %d metadata: %w", info.ID, err)
		}
	}

	row.explicit = grant
	if info.Owner == s.user {
		row.explicit = workspace.PermAdmin
	}
	info.UserPermission = row.explicit
	if info.UserPermission == "" {
		info.UserPermission = workspace.PermNone
	}
	return row, nil
}

// effectivePerm is the caller's access including global read.
func effectivePerm(row wsRow) string {
	if row.explicit != "" && row.explicit != workspace.PermNone {
		return row.explicit
	}
	if row.info.GlobalRead == workspace.PermRead {
		return workspace.PermRead
	}
	return workspace.PermNone
}

// lookupWorkspace fetches one workspace by id or name, enforcing read access.
func (s *Store) lookupWorkspace(ctx context.Context, ident workspace.WorkspaceIdentity) (wsRow, error) {
	query := `SELECT ` + wsColumns + wsFrom
	args := []any{s.user}
	var label string
	switch {
	case ident.ID > 0:
		query += ` WHERE w.id = ?`
		args = append(args, ident.ID)
		label = strconv.FormatInt(ident.ID, 10)
	case strings.TrimSpace(ident.Workspace) != "":
		query += ` WHERE w.name = ?`
		args = append(args, strings.TrimSpace(ident.Workspace))
		label = ident.Workspace
	default:
		return wsRow{}, errors.NewInvalidArgument("workspace identity requires an id or a name")
	}

	row, err := s.scanWorkspace(s.db.QueryRowContext(ctx, query, args...).Scan)
	if err == sql.ErrNoRows {
		return wsRow{}, errors.NewNotFound("workspace " + label)
	}
	if err != nil {
		return wsRow{}, errors.NewInternal(err)
	}
	if effectivePerm(row) == workspace.PermNone {
		return wsRow{}, errors.NewUpstream(serviceName,
			fmt.Errorf("User %s may not read workspace %s", s.user, label))
	}
	return row, nil
}

const objColumns = `o.obj_id, o.name, o.type, o.save_date, o.version, o.saved_by, o.ws_id, w.name,
	o.chsum, o.size, o.meta_json, COALESCE(o.copied_from, ''), o.copy_source_inaccessible`

// scanObject reads one objects row joined with its workspace name.
func scanObject(scan func(dest ...any) error, includeMeta bool) (workspace.ObjectData, error) {
	var (
		data         workspace.ObjectData
		metaJSON     sql.NullString
		inaccessible int
	)
	info := &data.Info
	if err := scan(&info.ObjectID, &info.Name, &info.TypeString, &info.SaveDate, &info.Version,
		&info.SavedBy, &info.WorkspaceID, &info.WorkspaceName, &info.Checksum, &info.Size,
		&metaJSON, &data.Copied, &inaccessible); err != nil {
		return workspace.ObjectData{}, err
	}
	data.CopySourceInaccessible = inaccessible
	if includeMeta {
		info.Metadata = map[string]string{}
		if metaJSON.Valid && metaJSON.String != "" {
			if err := json.Unmarshal([]byte(metaJSON.String), &info.Metadata); err != nil {
				return workspace.ObjectData{}, fmt.Errorf("object %s metadata: %w", info.Ref(), err)
			}
		}
	}
	return data, nil
}

// lookupObject resolves a ref (latest version when unversioned), enforcing read access.
func (s *Store) lookupObject(ctx context.Context, ref string, includeMeta bool) (workspace.ObjectData, error) {
	parsed, err := workspace.ParseRef(ref)
	if err != nil {
		return workspace.ObjectData{}, errors.NewInvalidArgument(err.Error())
	}
	if _, err := s.lookupWorkspace(ctx, workspace.WorkspaceIdentity{ID: parsed.WorkspaceID}); err != nil {
		return workspace.ObjectData{}, err
	}

	query := `SELECT ` + objColumns + ` FROM objects o JOIN workspaces w ON w.id = o.ws_id
		WHERE o.ws_id = ? AND o.obj_id = ?`
	args := []any{parsed.WorkspaceID, parsed.ObjectID}
	if parsed.Version > 0 {
		query += ` AND o.version = ?`
		args = append(args, parsed.Version)
	} else {
		query += ` ORDER BY o.version DESC LIMIT 1`
	}

	data, err := scanObject(s.db.QueryRowContext(ctx, query, args...).Scan, includeMeta)
	if err == sql.ErrNoRows {
		return workspace.ObjectData{}, errors.NewNotFound("object " + ref)
	}
	if err != nil {
		return workspace.ObjectData{}, errors.NewInternal(err)
	}
	return data, nil
}

func marshalMeta(meta map[string]string) (sql.NullString, error) {
	if len(meta) == 0 {
		return sql.NullString{}, nil
	}
	b, err := json.Marshal(meta)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(b), Valid: true}, nil
}

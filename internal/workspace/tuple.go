package workspace

import (
	"encoding/json"
	"fmt"
)

// Tuple sizes fixed by the object store's wire convention.
const (
	objectInfoLen    = 11
	workspaceInfoLen = 9
)

// MarshalJSON encodes the object as
// [obj_id, name, type, save_date, version, saved_by, ws_id, ws_name, chsum, size, meta].
func (o ObjectInfo) MarshalJSON() ([]byte, error) {
	var meta any
	if o.Metadata != nil {
		meta = o.Metadata
	}
	return json.Marshal([]any{
		o.ObjectID,
		o.Name,
		o.TypeString,
		o.SaveDate,
		o.Version,
		o.SavedBy,
		o.WorkspaceID,
		o.WorkspaceName,
		o.Checksum,
		o.Size,
		meta,
	})
}

// UnmarshalJSON decodes the 11-element object tuple. null leaves o unchanged.
func (o *ObjectInfo) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("object info: %w", err)
	}
	if len(raw) != objectInfoLen {
		return fmt.Errorf("object info: expected %d fields, got %d", objectInfoLen, len(raw))
	}

	var out ObjectInfo
	fields := []any{
		&out.ObjectID,
		&out.Name,
		&out.TypeString,
		&out.SaveDate,
		&out.Version,
		&out.SavedBy,
		&out.WorkspaceID,
		&out.WorkspaceName,
		&out.Checksum,
		&out.Size,
		&out.Metadata,
	}
	if err := decodeTuple(raw, fields); err != nil {
		return fmt.Errorf("object info: %w", err)
	}
	*o = out
	return nil
}

// MarshalJSON encodes the workspace as
// [id, name, owner, moddate, max_objid, user_permission, globalread, lockstat, metadata].
func (w WorkspaceInfo) MarshalJSON() ([]byte, error) {
	meta := w.Metadata
	if meta == nil {
		meta = map[string]string{}
	}
	return json.Marshal([]any{
		w.ID,
		w.Name,
		w.Owner,
		w.ModDate,
		w.MaxObjectID,
		w.UserPermission,
		w.GlobalRead,
		w.LockStatus,
		meta,
	})
}

// UnmarshalJSON decodes the 9-element workspace tuple.
func (w *WorkspaceInfo) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("workspace info: %w", err)
	}
	if len(raw) != workspaceInfoLen {
		return fmt.Errorf("workspace info: expected %d fields, got %d", workspaceInfoLen, len(raw))
	}

	var out WorkspaceInfo
	fields := []any{
		&out.ID,
		&out.Name,
		&out.Owner,
		&out.ModDate,
		&out.MaxObjectID,
		&out.UserPermission,
		&out.GlobalRead,
		&out.LockStatus,
		&out.Metadata,
	}
	if err := decodeTuple(raw, fields); err != nil {
		return fmt.Errorf("workspace info: %w", err)
	}
	*w = out
	return nil
}

// decodeTuple unmarshals each positional element into its target.
// JSON null leaves the target at its zero value.
func decodeTuple(raw []json.RawMessage, targets []any) error {
	for i, target := range targets {
		if string(raw[i]) == "null" {
			continue
		}
		if err := json.Unmarshal(raw[i], target); err != nil {
			return fmt.Errorf("field %d: %w", i, err)
		}
	}
	return nil
}

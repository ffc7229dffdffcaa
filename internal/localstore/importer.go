package localstore

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/hpungsan/narrsvc/internal/errors"
	"github.com/hpungsan/narrsvc/internal/workspace"
)

// Record kinds accepted by Import.
const (
	KindWorkspace    = "workspace"
	KindPermission   = "permission"
	KindObject       = "object"
	KindReference    = "reference"
	KindSetItem      = "set_item"
	KindPalette      = "palette"
	KindPaletteEntry = "palette_entry"
)

// Record is one line of a seed file. Which fields apply depends on Kind.
// Object refs are either UPAs ("1/2/3") or "<workspace name>/<object name>"
// for an object saved earlier in the same import, which resolves to its
// latest version.
type Record struct {
	Kind string `json:"kind"`

	// workspace
	Name       string            `json:"name,omitempty"`
	Owner      string            `json:"owner,omitempty"`
	GlobalRead bool              `json:"global_read,omitempty"`
	Metadata   map[string]string `json:"metadata,omitempty"`

	// permission, object, palette, palette_entry
	Workspace string `json:"workspace,omitempty"`
	User      string `json:"user,omitempty"`
	Perm      string `json:"perm,omitempty"`

	// object
	Type                   string `json:"type,omitempty"`
	SavedBy                string `json:"saved_by,omitempty"`
	SavedAt                string `json:"saved_at,omitempty"`
	CopiedFrom             string `json:"copied_from,omitempty"`
	CopySourceInaccessible bool   `json:"copy_source_inaccessible,omitempty"`

	// reference, set_item, palette, palette_entry
	From   string `json:"from,omitempty"`
	To     string `json:"to,omitempty"`
	Set    string `json:"set,omitempty"`
	Item   string `json:"item,omitempty"`
	Object string `json:"object,omitempty"`
}

// ImportOutput contains the result of an import.
type ImportOutput struct {
	Imported int           `json:"imported"`
	Errors   []ImportError `json:"errors"`
}

// ImportError describes one record that could not be applied.
type ImportError struct {
	Line    int    `json:"line"`
	Kind    string `json:"kind,omitempty"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// maxLineBytes bounds a single seed record.
const maxLineBytes = 4 << 20

// Import applies JSONL seed records in order. A failing record is reported
// and skipped; later records still apply.
func (s *Store) Import(ctx context.Context, r io.Reader) (*ImportOutput, error) {
	imp := &importer{store: s, workspaces: map[string]int64{}, objects: map[string]string{}}
	out := &ImportOutput{Errors: []ImportError{}}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		var rec Record
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			out.Errors = append(out.Errors, ImportError{
				Line:    lineNum,
				Code:    "PARSE_ERROR",
				Message: fmt.Sprintf("invalid JSON: %v", err),
			})
			continue
		}

		if err := imp.apply(ctx, rec); err != nil {
			code := string(errors.ErrInternal)
			if nErr, ok := errors.As(err); ok {
				code = string(nErr.Code)
			}
			out.Errors = append(out.Errors, ImportError{Line: lineNum, Kind: rec.Kind, Code: code, Message: err.Error()})
			continue
		}
		out.Imported++
	}

	if err := scanner.Err(); err != nil {
		out.Errors = append(out.Errors, ImportError{
			Line:    lineNum,
			Code:    "READ_ERROR",
			Message: fmt.Sprintf("failed to read input: %v", err),
		})
	}
	return out, nil
}

// ImportFile applies the seed records in a .jsonl file.
func (s *Store) ImportFile(ctx context.Context, path string) (*ImportOutput, error) {
	if filepath.Ext(path) != ".jsonl" {
		return nil, errors.NewInvalidArgument("seed file must have .jsonl extension")
	}
	f, err := openSeedFile(filepath.Clean(path))
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return s.Import(ctx, f)
}

// importer remembers names created earlier in the same import.
type importer struct {
	store      *Store
	workspaces map[string]int64  // name -> id
	objects    map[string]string // "ws/name" -> latest UPA
}

func (imp *importer) apply(ctx context.Context, rec Record) error {
	switch rec.Kind {
	case KindWorkspace:
		info, err := imp.store.CreateWorkspace(ctx, NewWorkspace{
			Name:       rec.Name,
			Owner:      rec.Owner,
			GlobalRead: rec.GlobalRead,
			Metadata:   rec.Metadata,
		})
		if err != nil {
			return err
		}
		imp.workspaces[info.Name] = info.ID
		return nil

	case KindPermission:
		wsID, err := imp.workspaceID(ctx, rec.Workspace)
		if err != nil {
			return err
		}
		return imp.store.SetPermission(ctx, wsID, rec.User, rec.Perm)

	case KindObject:
		wsID, err := imp.workspaceID(ctx, rec.Workspace)
		if err != nil {
			return err
		}
		in := NewObject{
			WorkspaceID:            wsID,
			Name:                   rec.Name,
			Type:                   rec.Type,
			SavedBy:                rec.SavedBy,
			Metadata:               rec.Metadata,
			CopySourceInaccessible: rec.CopySourceInaccessible,
		}
		if rec.SavedAt != "" {
			t, ok := workspace.ParseTimestamp(rec.SavedAt)
			if !ok {
				return errors.NewInvalidArgument("unparseable saved_at: " + rec.SavedAt)
			}
			in.SavedAt = t
		}
		if rec.CopiedFrom != "" {
			if in.CopiedFrom, err = imp.resolve(rec.CopiedFrom); err != nil {
				return err
			}
		}
		info, err := imp.store.SaveObject(ctx, in)
		if err != nil {
			return err
		}
		imp.objects[info.WorkspaceName+"/"+info.Name] = info.Ref()
		return nil

	case KindReference:
		from, err := imp.resolve(rec.From)
		if err != nil {
			return err
		}
		to, err := imp.resolve(rec.To)
		if err != nil {
			return err
		}
		return imp.store.AddReference(ctx, from, to)

	case KindSetItem:
		set, err := imp.resolve(rec.Set)
		if err != nil {
			return err
		}
		item, err := imp.resolve(rec.Item)
		if err != nil {
			return err
		}
		return imp.store.AddSetItems(ctx, set, item)

	case KindPalette, KindPaletteEntry:
		wsID, err := imp.workspaceID(ctx, rec.Workspace)
		if err != nil {
			return err
		}
		ref, err := imp.resolve(rec.Object)
		if err != nil {
			return err
		}
		if rec.Kind == KindPalette {
			return imp.store.SetPalette(ctx, wsID, ref)
		}
		return imp.store.AddPaletteEntry(ctx, wsID, ref)
	}
	return errors.NewInvalidArgument(fmt.Sprintf("unknown record kind %q", rec.Kind))
}

// workspaceID resolves a workspace name or id, preferring this import's names.
func (imp *importer) workspaceID(ctx context.Context, name string) (int64, error) {
	if id, ok := imp.workspaces[name]; ok {
		return id, nil
	}
	var id int64
	err := imp.store.db.QueryRowContext(ctx,
		`SELECT id FROM workspaces WHERE name = ? OR CAST(id AS TEXT) = ?`, name, name).Scan(&id)
	if err != nil {
		return 0, errors.NewNotFound("workspace " + name)
	}
	imp.workspaces[name] = id
	return id, nil
}

// resolve turns a UPA or "<workspace>/<object>" name ref into a UPA.
func (imp *importer) resolve(ref string) (string, error) {
	if parsed, err := workspace.ParseRef(ref); err == nil && parsed.Version > 0 {
		return parsed.String(), nil
	}
	if upa, ok := imp.objects[ref]; ok {
		return upa, nil
	}
	return "", errors.NewNotFound("object " + ref)
}

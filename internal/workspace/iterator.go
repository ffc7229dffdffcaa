package workspace

import (
	"context"

	"github.com/golang/glog"
)

// DefaultPartSize is the object id span requested per ListObjects call.
const DefaultPartSize = 10000

// IteratorOptions configures an ObjectIterator.
type IteratorOptions struct {
	PartSize        int64 // default: DefaultPartSize
	IncludeMetadata bool
}

// ObjectIterator walks every object in a list of workspaces, one id range
// at a time, so no single call returns more than PartSize ids.
// It is forward-only; build a new one to start over.
//
//	it := NewObjectIterator(client, infos, IteratorOptions{})
//	for it.Next(ctx) {
//		info := it.Info()
//	}
//	if err := it.Err(); err != nil { ... }
type ObjectIterator struct {
	client     Client
	workspaces []WorkspaceInfo
	opts       IteratorOptions

	wsIdx int
	minID int64
	page  []ObjectInfo
	pos   int
	cur   ObjectInfo
	err   error
	calls int
}

// NewObjectIterator creates an iterator over the given workspaces.
func NewObjectIterator(client Client, workspaces []WorkspaceInfo, opts IteratorOptions) *ObjectIterator {
	if opts.PartSize <= 0 {
		opts.PartSize = DefaultPartSize
	}
	return &ObjectIterator{
		client:     client,
		workspaces: workspaces,
		opts:       opts,
		minID:      1,
	}
}

// Next advances to the next object. It returns false when the sequence is
// exhausted or a remote call failed; check Err to tell them apart.
func (it *ObjectIterator) Next(ctx context.Context) bool {
	for {
		if it.err != nil {
			return false
		}
		if it.pos < len(it.page) {
			it.cur = it.page[it.pos]
			it.pos++
			return true
		}
		if !it.fetchPage(ctx) {
			return false
		}
	}
}

// Info returns the current object.
func (it *ObjectIterator) Info() ObjectInfo {
	return it.cur
}

// Err returns the error that stopped iteration, if any.
func (it *ObjectIterator) Err() error {
	return it.err
}

// Calls returns the number of ListObjects calls made so far.
func (it *ObjectIterator) Calls() int {
	return it.calls
}

// fetchPage loads the next non-exhausted id range. Returns false when there
// are no ranges left or the call failed.
func (it *ObjectIterator) fetchPage(ctx context.Context) bool {
	for it.wsIdx < len(it.workspaces) {
		ws := it.workspaces[it.wsIdx]
		if it.minID > ws.MaxObjectID {
			it.wsIdx++
			it.minID = 1
			continue
		}

		if err := ctx.Err(); err != nil {
			it.err = err
			return false
		}

		maxID := it.minID + it.opts.PartSize - 1
		params := ListObjectsParams{
			IDs:         []int64{ws.ID},
			MinObjectID: it.minID,
			MaxObjectID: maxID,
		}
		if it.opts.IncludeMetadata {
			params.IncludeMetadata = 1
		}

		page, err := it.client.ListObjects(ctx, params)
		it.calls++
		if err != nil {
			it.err = err
			return false
		}
		glog.V(2).Infof("[list] ws %d ids %d-%d: %d objects", ws.ID, it.minID, maxID, len(page))

		it.minID += it.opts.PartSize
		it.page = page
		it.pos = 0
		return true
	}
	it.page = nil
	it.pos = 0
	return false
}

// ListAllObjects drains an iterator over workspaces into a slice.
// Any remote failure fails the whole listing; no partial result is returned.
func ListAllObjects(ctx context.Context, client Client, workspaces []WorkspaceInfo, opts IteratorOptions) ([]ObjectInfo, error) {
	it := NewObjectIterator(client, workspaces, opts)
	var out []ObjectInfo
	for it.Next(ctx) {
		out = append(out, it.Info())
	}
	if err := it.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

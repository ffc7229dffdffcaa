package ops

import (
	"context"

	"github.com/hpungsan/narrsvc/internal/workspace"
)

// ListAvailableTypesInput contains parameters for the ListAvailableTypes operation.
type ListAvailableTypesInput struct {
	Workspaces []string // ids or names, required
}

// ListAvailableTypesOutput maps version-stripped type to item count.
type ListAvailableTypesOutput struct {
	TypeStat map[string]int `json:"type_stat"`
}

// ListAvailableTypes counts the types present in the merged listing of the
// given workspaces (sets and plain objects, each counted once).
func ListAvailableTypes(ctx context.Context, svc Services, input ListAvailableTypesInput) (*ListAvailableTypesOutput, error) {
	listing, err := ListObjectsWithSets(ctx, svc, ListObjectsWithSetsInput{
		Workspaces: input.Workspaces,
	})
	if err != nil {
		return nil, err
	}

	stat := make(map[string]int)
	for _, item := range listing.Data {
		stat[workspace.StripTypeVersion(item.ObjectInfo.TypeString)]++
	}
	return &ListAvailableTypesOutput{TypeStat: stat}, nil
}

package ops

import (
	"context"
	"strings"

	"github.com/hpungsan/narrsvc/internal/errors"
	"github.com/hpungsan/narrsvc/internal/workspace"
)

// FindObjectReportInput contains parameters for the FindObjectReport operation.
type FindObjectReportInput struct {
	UPA string // ws/obj/ver
}

// FindObjectReportOutput lists the reports that reference an object.
// Inaccessible and Error describe a copy whose source cannot be read; that is
// a normal result, not a failure.
type FindObjectReportOutput struct {
	ReportUPAs   []string `json:"report_upas"`
	ObjectUPA    string   `json:"object_upa"`
	Inaccessible int      `json:"inaccessible,omitempty"`
	Error        string   `json:"error,omitempty"`
}

const (
	errCopySourceInaccessible = "No report found. This object is a copy, and its source is inaccessible."
	errCopyChainTooLong       = "No report found. Copy chain is too long."
)

// FindObjectReport finds the reports referencing an object. When there are
// none and the object is a copy, the search continues at the copy's source.
func FindObjectReport(ctx context.Context, svc Services, input FindObjectReportInput) (*FindObjectReportOutput, error) {
	ref, err := workspace.ParseRef(input.UPA)
	if err != nil || ref.Version == 0 {
		return nil, errors.NewInvalidArgument("Incorrect upa format: required format is <workspace_id>/<object_id>/<version>")
	}

	upa := ref.String()
	for hop := 0; hop <= MaxCopyHops; hop++ {
		reports, err := referencingReports(ctx, svc.Workspace, upa)
		if err != nil {
			return nil, err
		}
		if len(reports) > 0 {
			return &FindObjectReportOutput{ReportUPAs: reports, ObjectUPA: upa}, nil
		}

		data, err := svc.Workspace.GetObjectInfoWithProvenance(ctx, []workspace.ObjectIdentity{{Ref: upa}})
		if err != nil {
			return nil, upstream(serviceWorkspace, err)
		}
		if len(data) == 0 {
			return nil, errors.NewNotFound(upa)
		}
		if data[0].CopySourceInaccessible == 1 {
			return &FindObjectReportOutput{
				ReportUPAs:   []string{},
				ObjectUPA:    upa,
				Inaccessible: 1,
				Error:        errCopySourceInaccessible,
			}, nil
		}
		if data[0].Copied == "" {
			return &FindObjectReportOutput{ReportUPAs: []string{}, ObjectUPA: upa}, nil
		}
		upa = data[0].Copied
	}

	return &FindObjectReportOutput{ReportUPAs: []string{}, ObjectUPA: upa, Error: errCopyChainTooLong}, nil
}

func referencingReports(ctx context.Context, client workspace.Client, upa string) ([]string, error) {
	refs, err := client.ListReferencingObjects(ctx, []workspace.ObjectIdentity{{Ref: upa}})
	if err != nil {
		return nil, upstream(serviceWorkspace, err)
	}
	if len(refs) == 0 {
		return nil, nil
	}
	var reports []string
	for _, info := range refs[0] {
		if strings.Contains(info.TypeString, ReportType) {
			reports = append(reports, info.Ref())
		}
	}
	return reports, nil
}

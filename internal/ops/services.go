package ops

import (
	"github.com/hpungsan/narrsvc/internal/config"
	"github.com/hpungsan/narrsvc/internal/datapalette"
	"github.com/hpungsan/narrsvc/internal/errors"
	"github.com/hpungsan/narrsvc/internal/setapi"
	"github.com/hpungsan/narrsvc/internal/workspace"
)

// Defaults for aggregation settings.
const (
	DefaultFetchLimit          = 30000
	DefaultNarrativeTypePrefix = "KBaseNarrative"
	ReportType                 = "KBaseReport.Report"
	MaxCopyHops                = 50
)

// Upstream service names used in error details.
const (
	serviceWorkspace   = "Workspace"
	serviceSetAPI      = "SetAPI"
	serviceDataPalette = "DataPaletteService"
)

// Services bundles the collaborators and per-deployment settings every
// operation needs. It holds no per-call state and is safe to share.
type Services struct {
	Workspace workspace.Client
	Sets      setapi.Client
	Palette   datapalette.Client

	// User is the caller; "mine" and "shared" are resolved relative to it.
	User string

	PartSize            int64  // default: workspace.DefaultPartSize
	DefaultLimit        int    // default: DefaultFetchLimit
	NarrativeTypePrefix string // default: DefaultNarrativeTypePrefix
}

// NewServices wires collaborators with settings taken from cfg.
func NewServices(ws workspace.Client, sets setapi.Client, palette datapalette.Client, cfg *config.Config) Services {
	svc := Services{
		Workspace: ws,
		Sets:      sets,
		Palette:   palette,
	}
	if cfg != nil {
		svc.User = cfg.UserID
		svc.PartSize = int64(cfg.ListPartSize)
		svc.DefaultLimit = cfg.DefaultFetchLimit
		svc.NarrativeTypePrefix = cfg.NarrativeTypePrefix
	}
	return svc
}

func (s Services) partSize() int64 {
	if s.PartSize <= 0 {
		return workspace.DefaultPartSize
	}
	return s.PartSize
}

func (s Services) defaultLimit() int {
	if s.DefaultLimit <= 0 {
		return DefaultFetchLimit
	}
	return s.DefaultLimit
}

func (s Services) narrativePrefix() string {
	if s.NarrativeTypePrefix == "" {
		return DefaultNarrativeTypePrefix
	}
	return s.NarrativeTypePrefix
}

// upstream tags a collaborator failure as UPSTREAM_UNAVAILABLE unless the
// client already classified it.
func upstream(service string, err error) error {
	if err == nil {
		return nil
	}
	if _, ok := errors.As(err); ok {
		return err
	}
	return errors.NewUpstream(service, err)
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

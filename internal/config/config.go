package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	// WorkspaceURL is the object store's JSON-RPC endpoint.
	WorkspaceURL string `json:"workspace_url,omitempty"`

	// ServiceWizardURL resolves dynamic services (SetAPI, DataPalette) to their current URLs.
	ServiceWizardURL string `json:"service_wizard_url,omitempty"`

	// AuthToken is sent as the Authorization header on every upstream call.
	// Prefer NARRSVC_AUTH_TOKEN over writing it to config.json.
	AuthToken string `json:"auth_token,omitempty"`

	// UserID is the caller's username; "mine"/"shared" are resolved relative to it.
	UserID string `json:"user_id,omitempty"`

	// SetAPIVersion and DataPaletteVersion select dynamic service releases ("release", "beta", "dev" or a version).
	SetAPIVersion      string `json:"set_api_version,omitempty"`
	DataPaletteVersion string `json:"data_palette_version,omitempty"`

	// ServiceURLCacheSeconds is how long a resolved dynamic service URL is reused.
	ServiceURLCacheSeconds int `json:"service_url_cache_seconds,omitempty"`

	// RequestTimeoutSeconds bounds each upstream HTTP call. 0 means no client-side timeout.
	RequestTimeoutSeconds int `json:"request_timeout_seconds,omitempty"`

	// ListPartSize is the object id span per paginated list call.
	ListPartSize int `json:"list_part_size,omitempty"`

	// DefaultFetchLimit caps fetch_accessible_data results when no limit is given.
	DefaultFetchLimit int `json:"default_fetch_limit,omitempty"`

	// NarrativeTypePrefix identifies narrative objects for ignore_narratives.
	NarrativeTypePrefix string `json:"narrative_type_prefix,omitempty"`

	// LocalStore serves all collaborators from the SQLite store in the base directory
	// instead of remote services.
	LocalStore bool `json:"local_store,omitempty"`

	// DBMaxOpenConns limits the maximum number of open database connections (local store only).
	// 0 means use sql.DB default (unlimited).
	DBMaxOpenConns int `json:"db_max_open_conns,omitempty"`

	// DBMaxIdleConns limits the maximum number of idle database connections (local store only).
	DBMaxIdleConns int `json:"db_max_idle_conns,omitempty"`

	// DisabledTools is a list of MCP tool names to exclude from registration.
	// Unknown tool names are logged as warnings.
	DisabledTools []string `json:"disabled_tools,omitempty"`

	// DisabledTypes is a list of tool groups to disable entirely.
	// Known types: "data", "report". Unknown type names are logged as warnings.
	DisabledTypes []string `json:"disabled_types,omitempty"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		SetAPIVersion:          "release",
		DataPaletteVersion:     "release",
		ServiceURLCacheSeconds: 300,
		ListPartSize:           10000,
		DefaultFetchLimit:      30000,
		NarrativeTypePrefix:    "KBaseNarrative",
	}
}

// Load loads configuration from baseDir/config.json.
// Returns default config if the file doesn't exist.
// The baseDir parameter allows tests to use t.TempDir() instead of ~/.narrsvc.
func Load(baseDir string) (*Config, error) {
	return loadFile(filepath.Join(baseDir, "config.json"))
}

// LoadWithRepo loads configuration from both global (~/.narrsvc) and repo (.narrsvc) directories.
// Repo config is found by walking upward from startDir to find the nearest .narrsvc/config.json.
// Repo config takes precedence for scalar values; arrays are merged (deduplicated).
// Either or both configs may be missing.
func LoadWithRepo(globalDir, startDir string) (*Config, error) {
	global, err := loadFileRaw(filepath.Join(globalDir, "config.json"))
	if err != nil {
		return nil, err
	}

	// Walk upward from startDir to find repo config
	repoConfigPath := FindRepoConfig(startDir)
	repo, err := loadFileRaw(repoConfigPath)
	if err != nil {
		return nil, err
	}

	// Apply defaults, then global, then repo
	return Merge(Merge(DefaultConfig(), global), repo), nil
}

// FindRepoConfig walks upward from startDir to find the nearest .narrsvc/config.json.
// Returns the path if found, or empty string if not found.
func FindRepoConfig(startDir string) string {
	dir := startDir
	for {
		configPath := filepath.Join(dir, ".narrsvc", "config.json")
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached root, not found
			return ""
		}
		dir = parent
	}
}

// Environment variables read by ApplyEnv.
const (
	EnvWorkspaceURL     = "NARRSVC_WORKSPACE_URL"
	EnvServiceWizardURL = "NARRSVC_SERVICE_WIZARD_URL"
	EnvAuthToken        = "NARRSVC_AUTH_TOKEN"
	EnvUserID           = "NARRSVC_USER_ID"
	EnvListPartSize     = "NARRSVC_LIST_PART_SIZE"
	EnvLocalStore       = "NARRSVC_LOCAL_STORE"
)

// ApplyEnv loads a .env file from the working directory if present, then
// overrides cfg from NARRSVC_* variables. Variables already set in the
// process environment win over .env entries.
func ApplyEnv(cfg *Config) {
	_ = godotenv.Load()

	if v := strings.TrimSpace(os.Getenv(EnvWorkspaceURL)); v != "" {
		cfg.WorkspaceURL = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvServiceWizardURL)); v != "" {
		cfg.ServiceWizardURL = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvAuthToken)); v != "" {
		cfg.AuthToken = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvUserID)); v != "" {
		cfg.UserID = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvListPartSize)); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.ListPartSize = n
		}
	}
	if v := strings.TrimSpace(os.Getenv(EnvLocalStore)); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.LocalStore = b
		}
	}
}

// loadFileRaw loads configuration from a specific file path.
// Returns zero-valued config if the file doesn't exist (not defaults).
func loadFileRaw(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			// File doesn't exist, return zero config
			return &Config{}, nil
		}
		return nil, err
	}

	cfg := &Config{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// loadFile loads configuration from a specific file path.
// Returns default config if the file doesn't exist.
func loadFile(configPath string) (*Config, error) {
	cfg, err := loadFileRaw(configPath)
	if err != nil {
		return nil, err
	}
	return Merge(DefaultConfig(), cfg), nil
}

// Merge combines base and overlay configs.
// Overlay values take precedence for scalars; arrays are merged and deduplicated.
func Merge(base, overlay *Config) *Config {
	result := &Config{}

	// Strings: overlay wins if non-empty, else base
	result.WorkspaceURL = firstNonEmpty(overlay.WorkspaceURL, base.WorkspaceURL)
	result.ServiceWizardURL = firstNonEmpty(overlay.ServiceWizardURL, base.ServiceWizardURL)
	result.AuthToken = firstNonEmpty(overlay.AuthToken, base.AuthToken)
	result.UserID = firstNonEmpty(overlay.UserID, base.UserID)
	result.SetAPIVersion = firstNonEmpty(overlay.SetAPIVersion, base.SetAPIVersion)
	result.DataPaletteVersion = firstNonEmpty(overlay.DataPaletteVersion, base.DataPaletteVersion)
	result.NarrativeTypePrefix = firstNonEmpty(overlay.NarrativeTypePrefix, base.NarrativeTypePrefix)

	// Ints: overlay wins if non-zero, else base
	result.ServiceURLCacheSeconds = firstNonZero(overlay.ServiceURLCacheSeconds, base.ServiceURLCacheSeconds)
	result.RequestTimeoutSeconds = firstNonZero(overlay.RequestTimeoutSeconds, base.RequestTimeoutSeconds)
	result.ListPartSize = firstNonZero(overlay.ListPartSize, base.ListPartSize)
	result.DefaultFetchLimit = firstNonZero(overlay.DefaultFetchLimit, base.DefaultFetchLimit)
	result.DBMaxOpenConns = firstNonZero(overlay.DBMaxOpenConns, base.DBMaxOpenConns)
	result.DBMaxIdleConns = firstNonZero(overlay.DBMaxIdleConns, base.DBMaxIdleConns)

	// Booleans: overlay wins if true, else base
	result.LocalStore = base.LocalStore || overlay.LocalStore

	// Arrays: merge and deduplicate
	result.DisabledTools = mergeStringSlice(base.DisabledTools, overlay.DisabledTools)
	result.DisabledTypes = mergeStringSlice(base.DisabledTypes, overlay.DisabledTypes)

	return result
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

func firstNonZero(values ...int) int {
	for _, v := range values {
		if v != 0 {
			return v
		}
	}
	return 0
}

// mergeStringSlice combines two slices, trims whitespace, and removes duplicates.
func mergeStringSlice(a, b []string) []string {
	seen := make(map[string]bool)
	result := make([]string, 0, len(a)+len(b))

	for _, s := range a {
		s = strings.TrimSpace(s)
		if s != "" && !seen[s] {
			seen[s] = true
			result = append(result, s)
		}
	}
	for _, s := range b {
		s = strings.TrimSpace(s)
		if s != "" && !seen[s] {
			seen[s] = true
			result = append(result, s)
		}
	}

	if len(result) == 0 {
		return nil
	}
	return result
}

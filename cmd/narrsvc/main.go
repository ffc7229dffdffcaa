package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/golang/glog"

	"github.com/hpungsan/narrsvc/internal/config"
	"github.com/hpungsan/narrsvc/internal/localstore"
	"github.com/hpungsan/narrsvc/internal/mcp"
	"github.com/hpungsan/narrsvc/internal/ops"
	"github.com/hpungsan/narrsvc/internal/rpc"
)

// Version is set via -ldflags at build time.
var Version = "dev"

// envVerbosity sets the glog -v level.
const envVerbosity = "NARRSVC_VERBOSITY"

// cliCommands contains known CLI subcommands.
var cliCommands = map[string]bool{
	"list-objects": true, "available-types": true,
	"fetch-data": true, "fetch-workspace-data": true,
	"find-report": true, "permission": true, "import": true,
	"list-narratives": true, "list-narratorials": true,
	"help": true,
}

// isCLIMode determines if we should run CLI vs MCP server.
func isCLIMode() bool {
	if len(os.Args) < 2 {
		return false // No args → MCP server
	}
	arg := os.Args[1]
	if cliCommands[arg] {
		return true
	}
	if arg == "--help" || arg == "-h" || arg == "--version" || arg == "-v" {
		return true
	}
	return false
}

// isHelpOrVersion returns true if the user is requesting help or version info.
func isHelpOrVersion() bool {
	if len(os.Args) < 2 {
		return false
	}
	arg := os.Args[1]
	return arg == "--help" || arg == "-h" || arg == "--version" || arg == "-v" || arg == "help"
}

// isTerminal returns true if stdin is a terminal (not piped).
func isTerminal() bool {
	stat, _ := os.Stdin.Stat()
	return (stat.Mode() & os.ModeCharDevice) != 0
}

// printBanner displays a friendly banner when run interactively without args.
func printBanner() {
	fmt.Println(`
   narrsvc

  Narrative data service

  Usage: narrsvc <command> [options]
         narrsvc --help

  MCP server mode requires piped input.`)
}

// initGlog routes glog to stderr so stdout stays free for MCP and JSON output.
func initGlog() {
	_ = flag.Set("logtostderr", "true")
	_ = flag.Set("stderrthreshold", "WARNING")
	if v := os.Getenv(envVerbosity); v != "" {
		_ = flag.Set("v", v)
	}
}

// openServices wires the collaborators: the SQLite store when cfg.LocalStore
// is set, the remote services otherwise. store is nil in remote mode.
func openServices(cfg *config.Config, baseDir string) (ops.Services, *localstore.Store, func(), error) {
	if cfg.LocalStore {
		database, err := localstore.Init(baseDir)
		if err != nil {
			return ops.Services{}, nil, nil, fmt.Errorf("failed to initialize local store: %w", err)
		}
		localstore.ConfigurePool(database, cfg)
		store := localstore.New(database, cfg.UserID)
		glog.V(1).Infof("[main] local store at %s as user %q", baseDir, cfg.UserID)
		return ops.NewServices(store, store, store, cfg), store, func() { database.Close() }, nil
	}

	if cfg.WorkspaceURL == "" || cfg.ServiceWizardURL == "" {
		return ops.Services{}, nil, nil, fmt.Errorf("workspace_url and service_wizard_url are required unless local_store is set")
	}
	opts := rpc.Options{
		Token:   cfg.AuthToken,
		Timeout: time.Duration(cfg.RequestTimeoutSeconds) * time.Second,
	}
	cache := rpc.NewURLCache(time.Duration(cfg.ServiceURLCacheSeconds) * time.Second)
	wizard := rpc.NewClient(cfg.ServiceWizardURL, opts)

	ws := rpc.NewWorkspaceClient(cfg.WorkspaceURL, opts)
	sets := rpc.NewSetAPIClient(rpc.NewDynamicClient(wizard, rpc.ModuleSetAPI, cfg.SetAPIVersion, opts, cache))
	palette := rpc.NewDataPaletteClient(rpc.NewDynamicClient(wizard, rpc.ModuleDataPalette, cfg.DataPaletteVersion, opts, cache))
	glog.V(1).Infof("[main] remote services workspace=%s wizard=%s", cfg.WorkspaceURL, cfg.ServiceWizardURL)
	return ops.NewServices(ws, sets, palette, cfg), nil, func() {}, nil
}

func main() {
	initGlog()
	defer glog.Flush()

	// No args + interactive terminal → show banner and exit
	if len(os.Args) < 2 && isTerminal() {
		printBanner()
		return
	}

	// Handle --help/--version before any service setup
	if isHelpOrVersion() {
		app := newCLIApp(ops.Services{}, nil)
		if err := app.Run(os.Args); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: could not determine home directory: %v\n", err)
		os.Exit(1)
	}
	baseDir := filepath.Join(homeDir, ".narrsvc")

	cwd, err := os.Getwd()
	if err != nil {
		cwd = baseDir
	}
	cfg, err := config.LoadWithRepo(baseDir, cwd)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: failed to load config: %v\n", err)
		os.Exit(1)
	}
	config.ApplyEnv(cfg)

	if unknown := mcp.ValidateDisabledTools(cfg.DisabledTools); len(unknown) > 0 {
		glog.Warningf("[main] unknown tools in disabled_tools: %v", unknown)
	}
	if unknown := mcp.ValidateDisabledTypes(cfg.DisabledTypes); len(unknown) > 0 {
		glog.Warningf("[main] unknown types in disabled_types: %v", unknown)
	}

	svc, store, closeFn, err := openServices(cfg, baseDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	defer closeFn()

	// CLI mode: known subcommand
	if isCLIMode() {
		app := newCLIApp(svc, store)
		if err := app.Run(os.Args); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			closeFn()
			os.Exit(1)
		}
		return
	}

	// Unknown argument + terminal → show error (don't start MCP server)
	if len(os.Args) >= 2 && isTerminal() {
		fmt.Fprintf(os.Stderr, "error: unknown command %q\n", os.Args[1])
		fmt.Fprintf(os.Stderr, "Run 'narrsvc --help' for usage.\n")
		closeFn()
		os.Exit(1)
	}

	// MCP server mode (default)
	if err := mcp.Run(svc, cfg, Version); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		closeFn()
		os.Exit(1)
	}
}

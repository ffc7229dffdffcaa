package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/hpungsan/narrsvc/internal/errors"
	"github.com/hpungsan/narrsvc/internal/localstore"
	"github.com/hpungsan/narrsvc/internal/ops"
)

// maxStdinBytes bounds piped import input.
const maxStdinBytes = 64 << 20

// newCLIApp creates the CLI application with all commands.
// store is nil unless the local store is in use.
func newCLIApp(svc ops.Services, store *localstore.Store) *cli.App {
	app := &cli.App{
		Name:    "narrsvc",
		Usage:   "Narrative data service",
		Version: Version,
		Commands: []*cli.Command{
			listObjectsCmd(svc),
			availableTypesCmd(svc),
			fetchDataCmd(svc),
			fetchWorkspaceDataCmd(svc),
			findReportCmd(svc),
			permissionCmd(svc),
			listNarrativesCmd(svc),
			listNarratorialsCmd(svc),
			importCmd(store),
		},
	}
	// Disable default exit error handler to allow proper error return in tests
	app.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return app
}

// fetchFlags are shared by fetch-data and fetch-workspace-data.
func fetchFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "types", Aliases: []string{"t"}, Usage: "Comma-separated Module.Type allow-list"},
		&cli.IntFlag{Name: "limit", Aliases: []string{"l"}, Usage: "Maximum objects returned (default from config)"},
		&cli.BoolFlag{Name: "type-counts", Usage: "Include a type histogram"},
		&cli.BoolFlag{Name: "simple-types", Usage: "Reduce types to the bare type name"},
		&cli.BoolFlag{Name: "include-narratives", Usage: "Keep narrative objects"},
		&cli.BoolFlag{Name: "metadata", Usage: "Request object metadata"},
	}
}

// fetchParams converts the shared fetch flags to operation params.
func fetchParams(c *cli.Context) ops.Params {
	params := ops.Params{
		"include_type_counts": boolToInt(c.Bool("type-counts")),
		"simple_types":        boolToInt(c.Bool("simple-types")),
		"ignore_narratives":   boolToInt(!c.Bool("include-narratives")),
		"include_metadata":    boolToInt(c.Bool("metadata")),
	}
	if c.IsSet("limit") {
		params["limit"] = c.Int("limit")
	}
	if types := parseList(c.String("types")); types != nil {
		params["types"] = types
	}
	return params
}

// listObjectsCmd creates the list-objects command.
func listObjectsCmd(svc ops.Services) *cli.Command {
	return &cli.Command{
		Name:      "list-objects",
		Usage:     "List workspace objects merged with sets and data palettes",
		ArgsUsage: "[workspace...]",
		Flags: []cli.Flag{
			&cli.Int64Flag{Name: "ws-id", Usage: "Workspace id"},
			&cli.StringFlag{Name: "ws-name", Usage: "Workspace name"},
			&cli.StringFlag{Name: "types", Aliases: []string{"t"}, Usage: "Comma-separated Module.Type allow-list"},
			&cli.BoolFlag{Name: "metadata", Aliases: []string{"m"}, Usage: "Include object metadata"},
			&cli.BoolFlag{Name: "palettes", Aliases: []string{"p"}, Usage: "Include data-palette objects"},
		},
		Action: func(c *cli.Context) error {
			input := ops.ListObjectsWithSetsInput{
				WorkspaceID:         c.Int64("ws-id"),
				WorkspaceName:       c.String("ws-name"),
				Workspaces:          c.Args().Slice(),
				Types:               parseList(c.String("types")),
				IncludeMetadata:     c.Bool("metadata"),
				IncludeDataPalettes: c.Bool("palettes"),
			}

			output, err := ops.ListObjectsWithSets(c.Context, svc, input)
			if err != nil {
				return outputError(err)
			}

			return outputJSON(output)
		},
	}
}

// availableTypesCmd creates the available-types command.
func availableTypesCmd(svc ops.Services) *cli.Command {
	return &cli.Command{
		Name:      "available-types",
		Usage:     "Count objects per type across workspaces",
		ArgsUsage: "<workspace...>",
		Action: func(c *cli.Context) error {
			if c.NArg() == 0 {
				return outputError(errors.NewInvalidArgument("at least one workspace is required"))
			}

			output, err := ops.ListAvailableTypes(c.Context, svc, ops.ListAvailableTypesInput{Workspaces: c.Args().Slice()})
			if err != nil {
				return outputError(err)
			}

			return outputJSON(output)
		},
	}
}

// fetchDataCmd creates the fetch-data command.
func fetchDataCmd(svc ops.Services) *cli.Command {
	return &cli.Command{
		Name:      "fetch-data",
		Usage:     "Fetch objects from your own (mine) or shared workspaces",
		ArgsUsage: "<mine|shared>",
		Flags: append(fetchFlags(),
			&cli.StringFlag{Name: "ignore", Usage: "Comma-separated workspace ids to skip"},
		),
		Action: func(c *cli.Context) error {
			params := fetchParams(c)
			params["data_set"] = c.Args().First()
			if ignore := c.String("ignore"); ignore != "" {
				ids, err := parseIDs(ignore)
				if err != nil {
					return outputError(errors.NewInvalidArgument(err.Error()))
				}
				params["ignore_workspaces"] = ids
			}

			output, err := ops.FetchAccessibleData(c.Context, svc, params)
			if err != nil {
				return outputError(err)
			}

			return outputJSON(output)
		},
	}
}

// fetchWorkspaceDataCmd creates the fetch-workspace-data command.
func fetchWorkspaceDataCmd(svc ops.Services) *cli.Command {
	return &cli.Command{
		Name:      "fetch-workspace-data",
		Usage:     "Fetch objects from specific workspaces",
		ArgsUsage: "<workspace_id...>",
		Flags:     fetchFlags(),
		Action: func(c *cli.Context) error {
			ids, err := parseIDs(strings.Join(c.Args().Slice(), ","))
			if err != nil {
				return outputError(errors.NewInvalidArgument(err.Error()))
			}
			params := fetchParams(c)
			params["workspace_ids"] = ids

			output, err := ops.FetchSpecificWorkspaceData(c.Context, svc, params)
			if err != nil {
				return outputError(err)
			}

			return outputJSON(output)
		},
	}
}

// findReportCmd creates the find-report command.
func findReportCmd(svc ops.Services) *cli.Command {
	return &cli.Command{
		Name:      "find-report",
		Usage:     "Find the reports referencing an object",
		ArgsUsage: "<ws/obj/ver>",
		Action: func(c *cli.Context) error {
			output, err := ops.FindObjectReport(c.Context, svc, ops.FindObjectReportInput{UPA: c.Args().First()})
			if err != nil {
				return outputError(err)
			}

			return outputJSON(output)
		},
	}
}

// permissionCmd creates the permission command.
func permissionCmd(svc ops.Services) *cli.Command {
	return &cli.Command{
		Name:      "permission",
		Usage:     "Show a user's permission on a workspace",
		ArgsUsage: "<workspace_id>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "user", Aliases: []string{"u"}, Usage: "Username (default: configured user)"},
		},
		Action: func(c *cli.Context) error {
			id, err := strconv.ParseInt(c.Args().First(), 10, 64)
			if err != nil {
				return outputError(errors.NewInvalidArgument("workspace id must be an integer"))
			}

			output, err := ops.UserPermission(c.Context, svc, ops.UserPermissionInput{User: c.String("user"), WorkspaceID: id})
			if err != nil {
				return outputError(err)
			}

			return outputJSON(output)
		},
	}
}

// listNarrativesCmd creates the list-narratives command.
func listNarrativesCmd(svc ops.Services) *cli.Command {
	return &cli.Command{
		Name:  "list-narratives",
		Usage: "List your own, shared, or public narratives",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "type", Aliases: []string{"t"}, Value: ops.NarrativesMine, Usage: "mine, shared or public"},
		},
		Action: func(c *cli.Context) error {
			output, err := ops.ListNarratives(c.Context, svc, ops.ListNarrativesInput{Type: c.String("type")})
			if err != nil {
				return outputError(err)
			}

			return outputJSON(output)
		},
	}
}

// listNarratorialsCmd creates the list-narratorials command.
func listNarratorialsCmd(svc ops.Services) *cli.Command {
	return &cli.Command{
		Name:  "list-narratorials",
		Usage: "List narratives flagged as narratorials",
		Action: func(c *cli.Context) error {
			output, err := ops.ListNarratorials(c.Context, svc)
			if err != nil {
				return outputError(err)
			}

			return outputJSON(output)
		},
	}
}

// importCmd creates the import command.
func importCmd(store *localstore.Store) *cli.Command {
	return &cli.Command{
		Name:  "import",
		Usage: "Load JSONL seed records into the local store (reads stdin, or --file)",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "file", Aliases: []string{"f"}, Usage: "Seed file path (default: stdin)"},
		},
		Action: func(c *cli.Context) error {
			if store == nil {
				return outputError(errors.NewInvalidArgument("import requires local_store"))
			}

			if path := c.String("file"); path != "" {
				output, err := store.ImportFile(c.Context, path)
				if err != nil {
					return outputError(err)
				}
				return outputJSON(output)
			}

			if !stdinHasData() {
				return outputError(errors.NewInvalidArgument("seed records must be piped via stdin or given with --file"))
			}
			text, err := readStdin(maxStdinBytes)
			if err != nil {
				return outputError(errors.NewInvalidArgument(err.Error()))
			}

			output, err := store.Import(c.Context, strings.NewReader(text))
			if err != nil {
				return outputError(err)
			}

			return outputJSON(output)
		},
	}
}

// Helper functions

// outputJSON marshals result to stdout as JSON.
func outputJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputError formats error for CLI.
func outputError(err error) error {
	if nErr, ok := errors.As(err); ok {
		return cli.Exit(fmt.Sprintf("[%s] %s", nErr.Code, nErr.Message), 1)
	}
	return cli.Exit(err.Error(), 1)
}

// stdinHasData returns true if stdin has piped data (not a terminal).
func stdinHasData() bool {
	stat, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (stat.Mode() & os.ModeCharDevice) == 0
}

// readStdin reads at most limit bytes from stdin.
func readStdin(limit int64) (string, error) {
	data, err := io.ReadAll(io.LimitReader(os.Stdin, limit+1))
	if err != nil {
		return "", err
	}
	if int64(len(data)) > limit {
		return "", fmt.Errorf("input exceeds %d bytes", limit)
	}
	return strings.TrimSpace(string(data)), nil
}

// parseList splits a comma-separated string, dropping empty entries.
func parseList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// parseIDs parses a comma-separated list of workspace ids.
func parseIDs(s string) ([]int64, error) {
	var ids []int64
	for _, part := range parseList(s) {
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid workspace id: %s", part)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"

	"github.com/specialistvlad/taskgraph/internal/app"
	"github.com/specialistvlad/taskgraph/internal/taskerr"
	"github.com/specialistvlad/taskgraph/internal/yaml"
	"github.com/spf13/cobra"
)

// Process exit codes.
const (
	ExitOK         = 0
	ExitExecution  = 1
	ExitUsage      = 2
	ExitValidation = 3
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

// configFlags maps command-line flags onto koanf configuration keys. Only
// flags set explicitly override the file and environment layers.
var configFlags = map[string]string{
	"log-format":          "log_format",
	"log-level":           "log_level",
	"healthcheck-port":    "healthcheck_port",
	"workers":             "workers",
	"failure-policy":      "failure_policy",
	"artifacts-dir":       "artifacts_dir",
	"artifact-overwrite":  "artifact_overwrite",
	"tracking-file":       "tracking_file",
	"tracking-socket-url": "tracking_socket_url",
	"job-attempts":        "job_attempts",
}

// Execute runs the command line. Results go to outW, logs to errW. The
// returned error, if any, is an *ExitError.
func Execute(ctx context.Context, args []string, outW, errW io.Writer, opts ...app.Option) error {
	root := NewRootCmd(outW, errW, opts...)
	root.SetArgs(args)
	if err := root.ExecuteContext(ctx); err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			return exitErr
		}
		return &ExitError{Code: ExitUsage, Message: err.Error()}
	}
	return nil
}

// NewRootCmd builds the taskgraph command tree.
func NewRootCmd(outW, errW io.Writer, opts ...app.Option) *cobra.Command {
	root := &cobra.Command{
		Use:           "taskgraph",
		Short:         "Validate, plan and run typed task graphs",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(outW)
	root.SetErr(errW)

	defaults := app.DefaultConfig()
	pf := root.PersistentFlags()
	pf.String("config", "", "Path to a YAML configuration file.")
	pf.String("log-format", defaults.LogFormat, "Log output format. Options: 'text', 'json' or 'pretty'.")
	pf.String("log-level", defaults.LogLevel, "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")
	pf.Int("healthcheck-port", 0, "Port for the HTTP health check and metrics server. 0 is disabled.")
	pf.Int("workers", defaults.Workers, "Number of concurrent workers for the executor.")
	pf.String("failure-policy", defaults.FailurePolicy, "What a failed step does to the rest of the job. Options: 'continue' or 'fail-fast'.")
	pf.String("artifacts-dir", defaults.ArtifactsDir, "Directory artifacts are written to.")
	pf.Bool("artifact-overwrite", false, "Let a later artifact replace an earlier one with the same destination.")
	pf.String("tracking-file", "", "Append tracking records to this JSON-lines file.")
	pf.String("tracking-socket-url", "", "Stream tracking records to this socket.io server.")
	pf.Int("job-attempts", defaults.JobAttempts, "How many times a failed job is attempted.")

	root.AddCommand(
		newRunCmd(errW, opts),
		newValidateCmd(errW, opts),
		newPlanCmd(errW, opts),
	)
	return root
}

func newRunCmd(errW io.Writer, opts []app.Option) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run GRAPH",
		Short: "Validate, plan and execute a graph, then write its artifacts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			params, err := cmd.Flags().GetStringArray("param")
			if err != nil {
				return &ExitError{Code: ExitUsage, Message: err.Error()}
			}
			overrides, err := parseParams(params)
			if err != nil {
				return err
			}
			a, err := newApp(cmd, args[0], errW, overrides, opts)
			if err != nil {
				return err
			}

			res, err := a.Run(cmd.Context())
			if res != nil && res.Report != nil {
				printResult(cmd.OutOrStdout(), res)
			}
			return exitError(err)
		},
	}
	cmd.Flags().StringArrayP("param", "p", nil, "Entrypoint parameter override as name=value; repeatable. Values are parsed as YAML scalars.")
	return cmd
}

func newValidateCmd(errW io.Writer, opts []app.Option) *cobra.Command {
	return &cobra.Command{
		Use:   "validate GRAPH",
		Short: "Check a graph for errors without running it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd, args[0], errW, nil, opts)
			if err != nil {
				return err
			}
			if err := a.Validate(cmd.Context()); err != nil {
				return exitError(err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "graph is valid")
			return nil
		},
	}
}

func newPlanCmd(errW io.Writer, opts []app.Option) *cobra.Command {
	return &cobra.Command{
		Use:   "plan GRAPH",
		Short: "Print the order steps would run in",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd, args[0], errW, nil, opts)
			if err != nil {
				return err
			}
			order, err := a.Plan(cmd.Context())
			if err != nil {
				return exitError(err)
			}
			for _, name := range order {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
			return nil
		},
	}
}

// newApp layers the configuration and constructs the application.
func newApp(cmd *cobra.Command, graphPath string, errW io.Writer, params map[string]any, opts []app.Option) (*app.App, error) {
	overrides := map[string]any{"graph_path": graphPath}
	for flag, key := range configFlags {
		if f := cmd.Flags().Lookup(flag); f != nil && f.Changed {
			overrides[key] = f.Value.String()
		}
	}
	if len(params) > 0 {
		overrides["params"] = params
	}

	configFile, _ := cmd.Flags().GetString("config")
	cfg, err := app.LoadConfig(configFile, overrides)
	if err != nil {
		return nil, &ExitError{Code: ExitUsage, Message: err.Error()}
	}
	slog.Debug("Configuration resolved.", "config", cfg)

	a, err := app.NewApp(errW, cfg, opts...)
	if err != nil {
		return nil, &ExitError{Code: ExitUsage, Message: err.Error()}
	}
	return a, nil
}

// parseParams turns name=value pairs into parameter values.
func parseParams(pairs []string) (map[string]any, error) {
	out := make(map[string]any, len(pairs))
	for _, p := range pairs {
		name, value, ok := strings.Cut(p, "=")
		if !ok || name == "" {
			return nil, &ExitError{Code: ExitUsage, Message: fmt.Sprintf("invalid --param %q: expected name=value", p)}
		}
		out[name] = yaml.ParseScalar(value)
	}
	return out, nil
}

// exitError maps an application error onto the process exit code.
func exitError(err error) error {
	switch {
	case err == nil:
		return nil
	case taskerr.IsValidation(err):
		return &ExitError{Code: ExitValidation, Message: err.Error()}
	case errors.Is(err, app.ErrLoad):
		return &ExitError{Code: ExitUsage, Message: err.Error()}
	default:
		return &ExitError{Code: ExitExecution, Message: err.Error()}
	}
}

func printResult(w io.Writer, res *app.Result) {
	fmt.Fprintf(w, "job %s %s\n", res.JobID, res.Report.Status)
	for _, s := range res.Report.Steps {
		line := fmt.Sprintf("  %-20s %s", s.Name, s.Status)
		if s.BlockedBy != "" {
			line += " (blocked by " + s.BlockedBy + ")"
		}
		fmt.Fprintln(w, line)
	}
	names := make([]string, 0, len(res.Artifacts))
	for name := range res.Artifacts {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(w, "  artifact %s -> %s\n", name, res.Artifacts[name])
	}
}

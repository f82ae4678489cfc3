package main

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/spf13/cobra"

	"ddcbright/internal/config"
)

var version = "dev"

// usageError marks failures caused by how the command was invoked.
type usageError struct{ err error }

func (e usageError) Error() string { return e.err.Error() }
func (e usageError) Unwrap() error { return e.err }

type app struct {
	configPath string
	verbose    bool
	cfg        config.Config

	stdout io.Writer
	stderr io.Writer
}

func main() {
	os.Exit(execute(os.Args[1:], os.Stdout, os.Stderr))
}

func execute(args []string, stdout, stderr io.Writer) int {
	a := &app{stdout: stdout, stderr: stderr}
	root := a.rootCmd()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	cmd, err := root.ExecuteC()
	if err == nil {
		return 0
	}
	fmt.Fprintf(stderr, "ddcbright: %v\n", err)
	var ue usageError
	if errors.As(err, &ue) {
		if cmd == nil {
			cmd = root
		}
		fmt.Fprint(stderr, cmd.UsageString())
		return 2
	}
	return 1
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "ddcbright <output> <feature-code> [value]",
		Short: "Read or change a monitor VCP feature over DDC/CI",
		Long: `ddcbright reads a VCP feature (brightness is 0x10) from the monitor attached
to a DRM output such as DP-1, and optionally sets it.

The feature code may be decimal (16), hex with a 0x prefix (0x10) or hex
with an h suffix (10h). The value is absolute (40) or relative to the
current value (5+ or 5-). Results are clamped to the feature maximum.

The reading is printed as JSON and stored in <state_dir>/<output>.json.
An output starting with "i2c-" is used as the adapter name directly.`,
		Version:       version,
		Args:          usageArgs(cobra.RangeArgs(2, 3)),
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := parseRequest(args)
			if err != nil {
				return usageError{err}
			}
			return run(a.cfg, req, a.stdout)
		},
	}
	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "path to YAML config (default "+config.DefaultPath()+")")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "log progress to stderr")
	root.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return usageError{err}
	})
	root.AddCommand(a.listCmd())
	return root
}

func usageArgs(pa cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := pa(cmd, args); err != nil {
			return usageError{err}
		}
		return nil
	}
}

func (a *app) setup(cmd *cobra.Command) error {
	configureLogging(a.verbose, a.stderr)

	var err error
	if cmd.Flags().Changed("config") {
		a.cfg, err = config.Load(a.configPath)
	} else {
		a.cfg, err = config.LoadOrDefault(config.DefaultPath())
	}
	if err != nil {
		return fmt.Errorf("config load failed: %w", err)
	}
	return nil
}

func configureLogging(verbose bool, w io.Writer) {
	log.SetFlags(0)
	log.SetPrefix("ddcbright: ")
	if verbose {
		log.SetOutput(w)
		return
	}
	log.SetOutput(io.Discard)
}

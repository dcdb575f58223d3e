// GoHighLevel MCP gateway entry point.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/matiasleandrokruk/ghl-gateway/internal/version"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout))
}

// usageError marks bad flags or arguments so run can exit with 2.
type usageError struct{ err error }

func (e usageError) Error() string { return e.err.Error() }
func (e usageError) Unwrap() error { return e.err }

// run executes the CLI and returns the process exit code:
// 0 on success, 1 on a runtime failure, 2 on a usage error.
func run(args []string, out io.Writer) int {
	root := newRootCmd()
	root.SetArgs(args)
	root.SetOut(out)
	root.SetErr(out)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(out, "Error:", err) //nolint:errcheck
		var ue usageError
		if errors.As(err, &ue) {
			return 2
		}
		return 1
	}
	return 0
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "ghl-gateway",
		Short: "Authenticated MCP gateway for GoHighLevel tools",
		Long: `ghl-gateway proxies MCP tool calls to GoHighLevel on behalf of
authenticated callers. It validates parameters against the tool catalog,
rate limits per client and records every dispatched call.

Without a subcommand the HTTP server is started.`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serveCmd().RunE(cmd, args)
		},
	}
	root.SetVersionTemplate(version.String() + "\n")
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return usageError{err: err}
	})

	root.AddCommand(
		serveCmd(),
		catalogCmd(),
		auditCmd(),
		versionCmd(),
	)
	return root
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version.String()) //nolint:errcheck
		},
	}
}

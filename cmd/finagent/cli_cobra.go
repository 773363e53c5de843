package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func executeCLI() error {
	return buildRootCommand().Execute()
}

func buildRootCommand() *cobra.Command {
	var showVersion bool

	root := &cobra.Command{
		Use:   "finagent",
		Short: "Financial agent with scoped memory, tool-call learning, and orchestration tracing",
		Long: strings.TrimSpace(`finagent runs financial analysis tools through an orchestrator that
remembers what it learns: category mappings derived from tool outcomes, user
preferences and corrections, and a full trace of every tool call.`),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if showVersion {
				printVersion()
				return nil
			}
			_ = cmd.Help()
			return fmt.Errorf("a subcommand is required")
		},
	}
	root.CompletionOptions.DisableDefaultCmd = true
	root.Flags().BoolVarP(&showVersion, "version", "v", false, "Show build/version metadata")

	root.AddCommand(newOnboardCommand())
	root.AddCommand(newReplCommand())
	root.AddCommand(newDemoCommand())
	root.AddCommand(newReportCommand())
	root.AddCommand(newExportCommand())
	root.AddCommand(newStatusCommand())
	root.AddCommand(newVersionCommand())

	return root
}

func newOnboardCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "onboard",
		Short:   "Initialize ~/.finagent config and workspace",
		Example: "  finagent onboard",
		RunE: func(cmd *cobra.Command, args []string) error {
			return onboard()
		},
	}
}

func newReplCommand() *cobra.Command {
	var (
		user    string
		session string
		debug   bool
	)

	cmd := &cobra.Command{
		Use:   "repl",
		Short: "Interactive session against memory, tools, and traces",
		Example: strings.Join([]string{
			"  finagent repl",
			"  finagent repl --user alice --session april-review",
		}, "\n"),
		RunE: func(cmd *cobra.Command, args []string) error {
			return replCmd(user, session, debug)
		},
	}

	cmd.Flags().StringVarP(&user, "user", "u", "local", "User ID for memory namespacing")
	cmd.Flags().StringVarP(&session, "session", "s", "cli-default", "Session ID for continuity")
	cmd.Flags().BoolVarP(&debug, "debug", "d", false, "Enable debug logging")
	return cmd
}

func newDemoCommand() *cobra.Command {
	var (
		user    string
		session string
		debug   bool
	)

	cmd := &cobra.Command{
		Use:     "demo",
		Short:   "Run the canned financial review plan and print its trace",
		Example: "  finagent demo --user alice",
		RunE: func(cmd *cobra.Command, args []string) error {
			return demoCmd(user, session, debug)
		},
	}

	cmd.Flags().StringVarP(&user, "user", "u", "local", "User ID for memory namespacing")
	cmd.Flags().StringVarP(&session, "session", "s", "demo", "Session ID for the run")
	cmd.Flags().BoolVarP(&debug, "debug", "d", false, "Enable debug logging")
	return cmd
}

func newReportCommand() *cobra.Command {
	var debug bool

	cmd := &cobra.Command{
		Use:     "report <orchestration-id>",
		Short:   "Print a human-readable report for one orchestration",
		Args:    cobra.ExactArgs(1),
		Example: "  finagent report orch-6f2c...",
		RunE: func(cmd *cobra.Command, args []string) error {
			return reportCmd(args[0], debug)
		},
	}

	cmd.Flags().BoolVarP(&debug, "debug", "d", false, "Enable debug logging")
	return cmd
}

func newExportCommand() *cobra.Command {
	var (
		session string
		debug   bool
	)

	cmd := &cobra.Command{
		Use:     "export",
		Short:   "Dump traces and summary stats as JSON",
		Example: "  finagent export --session april-review",
		RunE: func(cmd *cobra.Command, args []string) error {
			return exportCmd(session, debug)
		},
	}

	cmd.Flags().StringVarP(&session, "session", "s", "", "Limit to one session (default: all)")
	cmd.Flags().BoolVarP(&debug, "debug", "d", false, "Enable debug logging")
	return cmd
}

func newStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "status",
		Short:   "Show configuration and storage readiness",
		Example: "  finagent status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return statusCmd()
		},
	}
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "version",
		Short:   "Show build/version metadata",
		Example: "  finagent version",
		RunE: func(cmd *cobra.Command, args []string) error {
			printVersion()
			return nil
		},
	}
}

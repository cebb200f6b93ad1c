package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/xiaoyuanzhu-com/flowtrack/apperrors"
	"github.com/xiaoyuanzhu-com/flowtrack/config"
)

// Execute runs the main CLI process.
func Execute() {
	rootCmd := NewRootCmd(config.Get())
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(exitCode(err))
	}
}

// NewRootCmd builds the command tree against cfg
func NewRootCmd(cfg *config.Config) *cobra.Command {
	a := newApp(cfg)

	serve := newServeCmd(a)
	rootCmd := &cobra.Command{
		Use:   "flowtrack",
		Short: "Version control for FL Studio projects",
		Long: "flowtrack keeps timestamped snapshots of .flp projects next to the present " +
			"version, with notes, search, and a remote mirror.",
		SilenceUsage: true,

		// Execute's caller prints the error
		SilenceErrors: true,

		// With no subcommand, run the server
		RunE: serve.RunE,
	}
	rootCmd.AddCommand(
		serve,
		newProjectsCmd(a),
		newVersionsCmd(a),
		newNewCmd(a),
		newSnapshotCmd(a),
		newRevertCmd(a),
		newRmCmd(a),
		newNoteCmd(a),
		newAdoptCmd(a),
		newExportCmd(a),
		newImportCmd(a),
		newScanCmd(a),
		newSettingsCmd(a),
	)
	return rootCmd
}

func exitCode(err error) int {
	switch apperrors.KindOf(err) {
	case apperrors.KindValidation:
		return 2
	case apperrors.KindPrecondition, apperrors.KindConflict:
		return 3
	case apperrors.KindNotFound:
		return 4
	default:
		return 1
	}
}

package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/xiaoyuanzhu-com/flowtrack/workers/reconcile"
)

func newExportCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "export <project...>",
		Short: "Upload projects to the remote mirror",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSync(cmd, a, "exported", func(e *reconcile.Engine) (string, error) {
				return e.StartExport(args)
			})
		},
	}
}

func newImportCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "import",
		Short: "Download every project from the remote mirror",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSync(cmd, a, "imported", func(e *reconcile.Engine) (string, error) {
				return e.StartImportRemote()
			})
		},
	}
}

func newScanCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "scan <dir>",
		Short: "Store every .flp under dir as a new snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSync(cmd, a, "scanned", func(e *reconcile.Engine) (string, error) {
				return e.StartScanLocal(args[0])
			})
		},
	}
}

// runSync starts a run and prints its progress until it ends
func runSync(cmd *cobra.Command, a *app, verb string, start func(*reconcile.Engine) (string, error)) error {
	engine, err := a.engine(cmd.Context())
	if err != nil {
		return err
	}
	defer a.close()
	defer engine.Stop()

	out := cmd.OutOrStdout()
	final := make(chan reconcile.Event, 1)
	engine.SetSink(func(ev reconcile.Event) {
		switch ev.Kind {
		case reconcile.EventProgress:
			fmt.Fprintf(out, "%d/%d\n", ev.Done, ev.Total)
		default:
			final <- ev
		}
	})

	if _, err := start(engine); err != nil {
		return err
	}

	ev := <-final
	if ev.Kind == reconcile.EventFailed {
		return ev.Err
	}
	fmt.Fprintf(out, "%s %d files\n", verb, ev.Count)
	return nil
}

package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/xiaoyuanzhu-com/flowtrack/apperrors"
	"github.com/xiaoyuanzhu-com/flowtrack/fs"
)

const timestampDisplayLayout = "2006-01-02 15:04"

func newProjectsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "projects [query]",
		Short: "List projects, optionally filtered by name, version or note text",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			projects, err := a.index.FilterProjects(firstArg(args))
			if err != nil {
				return err
			}
			for _, p := range projects {
				fmt.Fprintln(cmd.OutOrStdout(), p)
			}
			return nil
		},
	}
}

func newVersionsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "versions <project> [query]",
		Short: "List a project's versions, present first then newest snapshot first",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			project := args[0]
			if err := fs.ValidateProjectName(project); err != nil {
				return err
			}
			versions, err := a.index.FilterVersions(project, secondArg(args))
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "VERSION\tKIND\tSAVED\tNOTE")
			for _, v := range versions {
				kind, saved := "snapshot", "-"
				if v.Present {
					kind = "present"
				} else if v.HasTimestamp() {
					saved = v.Timestamp.Format(timestampDisplayLayout)
				}
				note := ""
				if v.HasNote {
					if note, err = a.repo.ReadNote(project, v.Name); err != nil {
						return err
					}
					note = firstLine(note)
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", v.Name, kind, saved, note)
			}
			return w.Flush()
		},
	}
}

func newNewCmd(a *app) *cobra.Command {
	var note string
	var template string
	cmd := &cobra.Command{
		Use:   "new <name>",
		Short: "Create a project from the template",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if template == "" {
				template = a.cfg.TemplatePath
			}
			err := a.repo.CreateProject(cmd.Context(), fs.CreateProjectRequest{
				Name:     args[0],
				Template: template,
				Note:     optional(cmd, "note", note),
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created %s\n", fs.PresentName(args[0]))
			return nil
		},
	}
	cmd.Flags().StringVarP(&note, "note", "m", "", "Note for the present version")
	cmd.Flags().StringVar(&template, "template", "", "Template .flp (defaults to FLOWTRACK_TEMPLATE)")
	return cmd
}

func newSnapshotCmd(a *app) *cobra.Command {
	var note string
	cmd := &cobra.Command{
		Use:   "snapshot <project>",
		Short: "Back up the present version as a timestamped snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			snapshot, err := a.repo.CreateSnapshot(cmd.Context(), args[0], optional(cmd, "note", note))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created %s\n", snapshot)
			return nil
		},
	}
	cmd.Flags().StringVarP(&note, "note", "m", "", "Note for the snapshot")
	return cmd
}

func newRevertCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "revert <project> <snapshot>",
		Short: "Overwrite the present version with a snapshot",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.repo.Revert(cmd.Context(), args[0], args[1]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "reverted %s to %s\n", args[0], args[1])
			return nil
		},
	}
}

func newRmCmd(a *app) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "rm <project> [snapshot]",
		Short: "Delete a snapshot, or a whole project with --yes",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 2 {
				if err := a.repo.DeleteSnapshot(cmd.Context(), args[0], args[1]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", args[1])
				return nil
			}

			if !yes {
				return apperrors.Validation("rm", "deleting project %q removes every version; pass --yes to confirm", args[0])
			}
			if err := a.repo.DeleteProject(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted project %s\n", args[0])
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Confirm deleting a whole project")
	return cmd
}

func newNoteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "note <project> <version> [text]",
		Short: "Print a version's note, or replace it with text",
		Args:  cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			project, version := args[0], args[1]
			if err := fs.ValidateProjectName(project); err != nil {
				return err
			}
			if err := fs.ValidateVersionName(version); err != nil {
				return err
			}

			if len(args) == 3 {
				if err := a.repo.WriteNote(cmd.Context(), project, version, args[2]); err != nil {
					return err
				}
			}
			note, err := a.repo.ReadNote(project, version)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), note)
			return nil
		},
	}
}

func newAdoptCmd(a *app) *cobra.Command {
	var note string
	cmd := &cobra.Command{
		Use:   "adopt <file.flp>",
		Short: "Put an outside .flp under version control, named after the file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			project, snapshot, err := a.repo.AdoptExternalFile(cmd.Context(), args[0], optional(cmd, "note", note))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "adopted into %s as %s\n", project, snapshot)
			return nil
		},
	}
	cmd.Flags().StringVarP(&note, "note", "m", "", "Note for the snapshot")
	return cmd
}

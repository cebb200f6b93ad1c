package cli

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"
	"github.com/xiaoyuanzhu-com/flowtrack/apperrors"
	"github.com/xiaoyuanzhu-com/flowtrack/db"
)

func newSettingsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "settings [key] [value]",
		Short: "Show or change persisted settings (editor_path, log_level)",
		Args:  cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			database, err := a.db()
			if err != nil {
				return err
			}
			defer a.close()
			out := cmd.OutOrStdout()

			if len(args) == 0 {
				settings, err := database.GetAllSettings()
				if err != nil {
					return err
				}
				keys := make([]string, 0, len(settings))
				for k := range settings {
					keys = append(keys, k)
				}
				sort.Strings(keys)
				for _, k := range keys {
					fmt.Fprintf(out, "%s=%s\n", k, settings[k])
				}
				return nil
			}

			key := args[0]
			if !db.IsKnownSetting(key) {
				return apperrors.Validation("settings", "unknown setting %q", key)
			}
			if len(args) == 2 {
				if err := database.SetSetting(key, args[1]); err != nil {
					return err
				}
			}
			value, err := database.GetSetting(key)
			if err != nil {
				return err
			}
			fmt.Fprintln(out, value)
			return nil
		},
	}
}

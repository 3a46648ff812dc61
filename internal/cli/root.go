package cli

import (
	"log/slog"

	"github.com/spf13/cobra"
)

// rootOptions — глобальные флаги.
type rootOptions struct {
	settingsPath string
	jsonOutput   bool
	logger       *slog.Logger
}

func (r *rootOptions) output(cmd *cobra.Command) *Output {
	return NewOutput(cmd.OutOrStdout(), cmd.ErrOrStderr(), r.jsonOutput)
}

// NewRootCmd создаёт корневую команду rowpipe.
func NewRootCmd(version string, logger *slog.Logger) *cobra.Command {
	root := &rootOptions{logger: logger}

	cmd := &cobra.Command{
		Use:           "rowpipe",
		Short:         "Rowpipe — turn CSV rows into ordered HTTP request sequences",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&root.settingsPath, "settings", "", "Settings file (default rowpipe.yaml if present)")
	cmd.PersistentFlags().BoolVar(&root.jsonOutput, "json", false, "Output in JSON format")

	cmd.AddCommand(
		newRunCmd(root),
		newInitCmd(root),
		newValidateCmd(root),
	)

	return cmd
}

package cli

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/bookwright/steward/internal/event"
)

// VersionInfo reports the build's version identifiers.
type VersionInfo struct {
	Version         string `json:"version"`
	EnvelopeVersion string `json:"envelopeVersion"`
	GoVersion       string `json:"goVersion"`
}

// NewVersionCommand creates the version command.
func NewVersionCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "version",
		Short:         "Print version information",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			info := VersionInfo{
				Version:         event.EngineVersion,
				EnvelopeVersion: event.EnvelopeVersion,
				GoVersion:       runtime.Version(),
			}
			formatter := &OutputFormatter{Format: rootOpts.Format, Writer: cmd.OutOrStdout()}
			if formatter.Format == "json" {
				return formatter.Success(info)
			}
			fmt.Fprintf(formatter.Writer, "steward %s (envelope v%s, %s)\n",
				info.Version, info.EnvelopeVersion, info.GoVersion)
			return nil
		},
	}
	return cmd
}

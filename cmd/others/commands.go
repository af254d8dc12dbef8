package others

import "github.com/spf13/cobra"

// Actions defines cross-cutting system subcommands.
type Actions interface {
	Version(cmd *cobra.Command, args []string) error
}

// Commands builds the system command set.
func Commands(h Actions) []*cobra.Command {
	return []*cobra.Command{
		{
			Use:   "version",
			Short: "Show version and build information",
			RunE:  h.Version,
		},
	}
}

package scan

import "github.com/spf13/cobra"

// Actions defines the scan operations.
type Actions interface {
	Scan(cmd *cobra.Command, args []string) error
}

// Command builds the "scan" command.
func Command(h Actions) *cobra.Command {
	scanCmd := &cobra.Command{
		Use:   "scan [flags] [FOLDER]",
		Short: "Fingerprint files under a folder or a configured preset",
		Args:  cobra.MaximumNArgs(1),
		RunE:  h.Scan,
	}
	scanCmd.Flags().String("preset", "", "use a named scan preset from the config file")
	scanCmd.Flags().String("filter", "", "filename filter (regular expression, case-insensitive)")
	scanCmd.Flags().Bool("only-new", false, "skip files already under management")
	return scanCmd
}

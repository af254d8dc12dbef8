package backup

import "github.com/spf13/cobra"

// Actions defines the backup lifecycle operations.
type Actions interface {
	Register(cmd *cobra.Command, args []string) error
	Verify(cmd *cobra.Command, args []string) error
	Create(cmd *cobra.Command, args []string) error
	List(cmd *cobra.Command, args []string) error
	Hint(cmd *cobra.Command, args []string) error
}

// Command builds the "backup" parent command with all subcommands.
func Command(h Actions) *cobra.Command {
	backupCmd := &cobra.Command{
		Use:   "backup",
		Short: "Manage cold-storage backups",
	}

	registerCmd := &cobra.Command{
		Use:   "register [flags] MOUNT_POINT",
		Short: "Register a mounted volume as a backup",
		Args:  cobra.ExactArgs(1),
		RunE:  h.Register,
	}
	registerCmd.Flags().String("label", "", "backup label (required)")
	registerCmd.Flags().Bool("eject", false, "eject the medium afterwards")
	_ = registerCmd.MarkFlagRequired("label")

	verifyCmd := &cobra.Command{
		Use:   "verify [flags] MOUNT_POINT",
		Short: "Verify a registered backup against the catalog",
		Args:  cobra.ExactArgs(1),
		RunE:  h.Verify,
	}
	verifyCmd.Flags().Bool("eject", false, "eject the medium afterwards")

	createCmd := &cobra.Command{
		Use:   "create [flags] FOLDER [FOLDER...]",
		Short: "Stage folders into a new encrypted backup volume",
		Args:  cobra.MinimumNArgs(1),
		RunE:  h.Create,
	}
	createCmd.Flags().String("name", "", "backup name (default: derived from the folder names)")
	createCmd.Flags().String("encryption", "", "encryption algorithm")
	createCmd.Flags().String("hash", "", "hash algorithm")
	createCmd.Flags().Bool("burn", false, "burn the image, then register and verify the medium")

	listCmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List registered backups",
		RunE:    h.List,
	}
	listCmd.Flags().Bool("mounted", false, "show only currently mounted registered backups")
	listCmd.Flags().Bool("unregistered", false, "show mounted volumes that are not registered")

	hintCmd := &cobra.Command{
		Use:   "hint FOLDER [FOLDER...]",
		Short: "Suggest a backup label from the folder names",
		Args:  cobra.MinimumNArgs(1),
		RunE:  h.Hint,
	}

	backupCmd.AddCommand(registerCmd, verifyCmd, createCmd, listCmd, hintCmd)
	return backupCmd
}

package backup

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/tidalwave-it/solidblue/cmd/core"
	"github.com/tidalwave-it/solidblue/config"
	"github.com/tidalwave-it/solidblue/engine"
	"github.com/tidalwave-it/solidblue/progress"
	"github.com/tidalwave-it/solidblue/types"
)

// Handler implements the backup actions.
type Handler struct {
	core.BaseHandler
}

var _ Actions = Handler{}

// Register indexes a mounted volume under a new label.
func (h Handler) Register(cmd *cobra.Command, args []string) error {
	ctx, conf, err := h.Init(cmd)
	if err != nil {
		return err
	}
	label, _ := cmd.Flags().GetString("label")
	eject, _ := cmd.Flags().GetBool("eject")

	return core.RunWorkflow(ctx, func(ctx context.Context, obs progress.Observer) error {
		return core.NewEngine(conf, obs).RegisterBackup(ctx, label, args[0], eject)
	})
}

// Verify recomputes fingerprints on a registered backup volume.
func (h Handler) Verify(cmd *cobra.Command, args []string) error {
	ctx, conf, err := h.Init(cmd)
	if err != nil {
		return err
	}
	eject, _ := cmd.Flags().GetBool("eject")

	return core.RunWorkflow(ctx, func(ctx context.Context, obs progress.Observer) error {
		return core.NewEngine(conf, obs).VerifyBackup(ctx, args[0], eject)
	})
}

// Create stages folders into a fresh encrypted container and optionally
// burns, registers and verifies the medium.
func (h Handler) Create(cmd *cobra.Command, args []string) error {
	ctx, conf, err := h.Init(cmd)
	if err != nil {
		return err
	}
	name, _ := cmd.Flags().GetString("name")
	encryption, _ := cmd.Flags().GetString("encryption")
	hash, _ := cmd.Flags().GetString("hash")
	burn, _ := cmd.Flags().GetBool("burn")

	if name == "" {
		if name = engine.BackupNameHint(args); name == "" {
			return fmt.Errorf("cannot derive a backup name from %v, use --name", args)
		}
	}
	if encryption == "" {
		encryption = config.DefaultVeracryptAlgorithm
	}
	if hash == "" {
		hash = config.DefaultVeracryptHashAlgorithm
	}
	algo, err := config.ResolveAlgorithm(config.VeracryptAlgorithms, encryption)
	if err != nil {
		return err
	}
	hashAlgo, err := config.ResolveAlgorithm(config.VeracryptHashAlgorithms, hash)
	if err != nil {
		return err
	}

	return core.RunWorkflow(ctx, func(ctx context.Context, obs progress.Observer) error {
		return core.NewEngine(conf, obs).CreateEncryptedBackup(ctx, name, algo, hashAlgo, args, burn)
	})
}

// List renders registered backups, or the mounted/unregistered volume views.
func (h Handler) List(cmd *cobra.Command, args []string) error {
	ctx, conf, err := h.Init(cmd)
	if err != nil {
		return err
	}
	mounted, _ := cmd.Flags().GetBool("mounted")
	unregistered, _ := cmd.Flags().GetBool("unregistered")

	eng := core.NewEngine(conf, progress.Nop)
	if mounted || unregistered {
		volumes, err := eng.MountedBackupVolumes(ctx, mounted)
		if err != nil {
			return err
		}
		if len(volumes) == 0 {
			fmt.Println("No volumes found.")
			return nil
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "MOUNT POINT\tLABEL")
		for _, v := range volumes {
			fmt.Fprintf(w, "%s\t%s\n", v.MountPoint, v.Label)
		}
		return w.Flush()
	}

	backups, err := eng.Backups(ctx)
	if err != nil {
		return err
	}
	if len(backups) == 0 {
		fmt.Println("No backups registered.")
		return nil
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "LABEL\tVOLUME UUID\tENCRYPTED\tREGISTERED\tLAST CHECK")
	for _, b := range backups {
		lastCheck := "never"
		if b.LatestCheckDate != nil {
			lastCheck = b.LatestCheckDate.Format(types.TimeFormat)
		}
		fmt.Fprintf(w, "%s\t%s\t%v\t%s\t%s\n",
			b.Label,
			b.VolumeID,
			b.Encrypted,
			b.RegistrationDate.Format(types.TimeFormat),
			lastCheck,
		)
	}
	return w.Flush()
}

// Hint prints the label suggestion for a set of folders.
func (h Handler) Hint(cmd *cobra.Command, args []string) error {
	if _, _, err := h.Init(cmd); err != nil {
		return err
	}
	hint := engine.BackupNameHint(args)
	if hint == "" {
		return fmt.Errorf("folder names do not form a contiguous numbered sequence")
	}
	fmt.Println(hint)
	return nil
}

package scan

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tidalwave-it/solidblue/cmd/core"
	"github.com/tidalwave-it/solidblue/progress"
)

// Handler implements the scan actions.
type Handler struct {
	core.BaseHandler
}

var _ Actions = Handler{}

// Scan resolves the target folder and filter, then runs the scan workflow
// with the terminal observer attached.
func (h Handler) Scan(cmd *cobra.Command, args []string) error {
	ctx, conf, err := h.Init(cmd)
	if err != nil {
		return err
	}

	preset, _ := cmd.Flags().GetString("preset")
	filter, _ := cmd.Flags().GetString("filter")
	onlyNew, _ := cmd.Flags().GetBool("only-new")

	var folder string
	switch {
	case preset != "":
		scan, err := conf.ScanPreset(preset)
		if err != nil {
			return err
		}
		folder = scan.Path
		if filter == "" {
			filter = scan.Filter
		}
	case len(args) == 1:
		folder = args[0]
	default:
		return fmt.Errorf("either a folder argument or --preset is required")
	}

	return core.RunWorkflow(ctx, func(ctx context.Context, obs progress.Observer) error {
		return core.NewEngine(conf, obs).Scan(ctx, folder, filter, onlyNew)
	})
}

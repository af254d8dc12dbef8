package others

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/tidalwave-it/solidblue/cmd/core"
)

// Version is stamped at build time via -ldflags.
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildTime = "unknown"
)

// Handler implements the system actions.
type Handler struct {
	core.BaseHandler
}

var _ Actions = Handler{}

func (h Handler) Version(_ *cobra.Command, _ []string) error {
	fmt.Printf("solidblue %s (%s) built %s with %s\n", Version, GitCommit, BuildTime, runtime.Version())
	return nil
}

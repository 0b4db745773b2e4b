package app

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap/zapcore"

	"github.com/criticalstack/lighthouse/cmd/lighthouse/app/certs"
	"github.com/criticalstack/lighthouse/cmd/lighthouse/app/serve"
	"github.com/criticalstack/lighthouse/cmd/lighthouse/app/version"
	"github.com/criticalstack/lighthouse/internal/log"
)

var opts struct {
	Verbose bool
}

func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lighthouse",
		Short: "discovery registry for independently operated clusters",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if opts.Verbose {
				log.SetLevel(zapcore.DebugLevel)
			}
		},
	}

	cmd.AddCommand(
		certs.NewCommand(),
		serve.NewCommand(),
		version.NewCommand(),
	)

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose log output (debug)")
	return cmd
}

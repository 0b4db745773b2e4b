package certs

import (
	"github.com/spf13/cobra"

	certsgenerate "github.com/criticalstack/lighthouse/cmd/lighthouse/app/certs/generate"
	certsinit "github.com/criticalstack/lighthouse/cmd/lighthouse/app/certs/init"
)

func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "certs",
		Short: "manage the CA and client certificate lighthouse uses to talk to etcd",
	}
	cmd.AddCommand(
		certsinit.NewCommand(),
		certsgenerate.NewCommand(),
	)
	return cmd
}

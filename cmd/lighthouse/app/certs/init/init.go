package init

import (
	"io/ioutil"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/criticalstack/lighthouse/internal/pki"
)

var opts struct {
	CertDir string
}

func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "init",
		Short:         "initialize a new CA for lighthouse's etcd client certificate",
		Args:          cobra.NoArgs,
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.CertDir != "" {
				if err := os.MkdirAll(opts.CertDir, 0755); err != nil && !os.IsExist(err) {
					return err
				}
			}
			ca, err := pki.NewDefaultRootCA()
			if err != nil {
				return err
			}
			if err := ioutil.WriteFile(filepath.Join(opts.CertDir, "ca.crt"), ca.CA.CertPEM, 0644); err != nil {
				return err
			}
			return ioutil.WriteFile(filepath.Join(opts.CertDir, "ca.key"), ca.CA.KeyPEM, 0600)
		},
	}
	cmd.Flags().StringVar(&opts.CertDir, "cert-dir", "", "directory to write ca.crt / ca.key into")
	return cmd
}

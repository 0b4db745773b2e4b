package generate

import (
	"io/ioutil"
	"path/filepath"
	"strings"

	"github.com/cloudflare/cfssl/csr"
	"github.com/spf13/cobra"

	"github.com/criticalstack/lighthouse/internal/pki"
)

var opts struct {
	CertDir  string
	AltNames string
	CN       string
}

func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "generate",
		Short:         "generate the client certificate lighthouse presents to etcd",
		Aliases:       []string{"gen"},
		Args:          cobra.NoArgs,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			var hosts []string
			if opts.AltNames != "" {
				hosts = strings.Split(opts.AltNames, ",")
			}
			ca, err := pki.NewRootCAFromFile(filepath.Join(opts.CertDir, "ca.crt"), filepath.Join(opts.CertDir, "ca.key"))
			if err != nil {
				return err
			}
			kp, err := ca.GenerateCertificates(pki.ClientSigningProfile, &csr.CertificateRequest{
				Names:      []csr.Name{{C: "US", ST: "Massachusetts", L: "Boston"}},
				KeyRequest: &csr.BasicKeyRequest{A: "rsa", S: 2048},
				Hosts:      hosts,
				CN:         opts.CN,
			})
			if err != nil {
				return err
			}
			if err := ioutil.WriteFile(filepath.Join(opts.CertDir, "client.crt"), kp.CertPEM, 0644); err != nil {
				return err
			}
			return ioutil.WriteFile(filepath.Join(opts.CertDir, "client.key"), kp.KeyPEM, 0600)
		},
	}

	cmd.Flags().StringVar(&opts.CertDir, "cert-dir", "", "")
	cmd.Flags().StringVar(&opts.AltNames, "alt-names", "", "")
	cmd.Flags().StringVar(&opts.CN, "cn", "lighthouse-client", "")
	return cmd
}

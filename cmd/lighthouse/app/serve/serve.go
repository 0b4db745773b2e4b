package serve

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/criticalstack/lighthouse/internal/config"
	"github.com/criticalstack/lighthouse/internal/eviction"
	"github.com/criticalstack/lighthouse/internal/httpapi"
	"github.com/criticalstack/lighthouse/internal/log"
	"github.com/criticalstack/lighthouse/internal/metrics"
	"github.com/criticalstack/lighthouse/internal/netutil"
	"github.com/criticalstack/lighthouse/internal/registry"
	"github.com/criticalstack/lighthouse/internal/replay"
	"github.com/criticalstack/lighthouse/internal/store"
	"github.com/criticalstack/lighthouse/internal/store/etcdstore"
	"github.com/criticalstack/lighthouse/internal/store/memory"
)

const replaySweepInterval = 5 * time.Minute

var opts struct {
	ConfigFile string
}

func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "serve",
		Short:         "run the discovery registry",
		Args:          cobra.NoArgs,
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.New(viper.GetViper(), opts.ConfigFile)
			if err != nil {
				return err
			}
			return run(cfg)
		},
	}
	cmd.Flags().StringVarP(&opts.ConfigFile, "config", "c", "", "config file")
	return cmd
}

func run(cfg *config.Config) error {
	clusters, nodes, closeStores, err := buildStores(cfg)
	if err != nil {
		return err
	}
	defer closeStores()

	rc := replay.New(cfg.NonceValidation.WindowDuration)
	ev := eviction.New(nodes, cfg.NodeEviction.MaxNodesPerClusterVersion)
	reg := registry.New(clusters, nodes, rc, ev, registry.Config{MaxPerGroup: cfg.NodeEviction.MaxNodesPerClusterVersion})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go rc.Run(ctx, replaySweepInterval)
	go ev.Run(ctx)
	go sampleGauges(ctx, rc, ev)

	apiSrv := &http.Server{Addr: cfg.ListenAddress, Handler: httpapi.New(reg)}
	metricsSrv := &http.Server{Addr: cfg.MetricsAddress, Handler: metrics.Handler()}

	errCh := make(chan error, 2)
	go func() {
		log.Infof("listening on %s", advertisedAddr(cfg.ListenAddress))
		errCh <- apiSrv.ListenAndServe()
	}()
	go func() {
		log.Infof("serving metrics on %s", cfg.MetricsAddress)
		errCh <- metricsSrv.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Infof("received signal %s, shutting down", sig)
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return err
		}
	}

	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	_ = apiSrv.Shutdown(shutdownCtx)
	_ = metricsSrv.Shutdown(shutdownCtx)
	return nil
}

func sampleGauges(ctx context.Context, rc *replay.Cache, ev *eviction.Worker) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			metrics.ReplayCacheSize.Set(float64(rc.Len()))
			metrics.EvictionQueueDepth.Set(float64(ev.QueueDepth()))
		case <-ctx.Done():
			return
		}
	}
}

// advertisedAddr resolves ListenAddress for display in the startup log
// line: an empty or unspecified host (":8080", "0.0.0.0:8080") is swapped
// for the detected host IPv4 address so operators see where the registry
// is actually reachable rather than a wildcard that means nothing off-box.
func advertisedAddr(listen string) string {
	addr, err := netutil.ParseAddr(listen)
	if err != nil {
		return listen
	}
	if addr.Host != "" && !addr.IsUnspecified() {
		return addr.String()
	}
	host, err := netutil.DetectHostIPv4()
	if err != nil {
		return addr.String()
	}
	addr.Host = host
	return addr.String()
}

// buildStores dispatches on ConnectionStrings__DefaultConnection: a
// "memory://" scheme (the default) selects the in-memory store; anything
// else is treated as an etcd endpoint list.
func buildStores(cfg *config.Config) (store.ClusterStore, store.NodeStore, func(), error) {
	conn := cfg.ConnectionStrings.DefaultConnection
	if conn == "" || conn == "memory://" {
		return memory.NewClusterStore(), memory.NewNodeStore(), func() {}, nil
	}

	endpoints := strings.Split(strings.TrimPrefix(conn, "etcd://"), ",")
	etcdCfg := &etcdstore.Config{
		Endpoints: endpoints,
		Security: etcdstore.SecurityConfig{
			CertFile:      cfg.Security.CertFile,
			KeyFile:       cfg.Security.KeyFile,
			TrustedCAFile: cfg.Security.TrustedCAFile,
		},
	}
	clusters, err := etcdstore.NewClusterStore(etcdCfg)
	if err != nil {
		return nil, nil, nil, err
	}
	nodes, err := etcdstore.NewNodeStore(etcdCfg)
	if err != nil {
		return nil, nil, nil, err
	}
	return clusters, nodes, func() {
		clusters.Close()
		nodes.Close()
	}, nil
}

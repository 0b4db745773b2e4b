// Package etcdstore is the durable implementation of store.ClusterStore and
// store.NodeStore, adapted from the teacher codebase's pkg/client (a thin
// typed wrapper over clientv3.Client) and pkg/e2db key-prefix conventions,
// specialized to the two tables the registry needs instead of a generic
// reflection-driven ORM.
package etcdstore

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"io/ioutil"
	"time"

	"github.com/pkg/errors"
	clientv3 "go.etcd.io/etcd/client/v3"
)

var ErrKeyNotFound = errors.New("key not found")

// SecurityConfig configures mutual TLS for the etcd connection, using
// material produced by the pki package (itself backed by cfssl, see
// cmd/lighthouse/app/certs).
type SecurityConfig struct {
	CertFile      string
	KeyFile       string
	TrustedCAFile string
}

func (sc SecurityConfig) Enabled() bool {
	return sc.CertFile != "" || sc.KeyFile != "" || sc.TrustedCAFile != ""
}

func (sc SecurityConfig) tlsConfig() (*tls.Config, error) {
	if !sc.Enabled() {
		return nil, nil
	}
	cert, err := tls.LoadX509KeyPair(sc.CertFile, sc.KeyFile)
	if err != nil {
		return nil, errors.Wrap(err, "cannot load client certificate")
	}
	tlsCfg := &tls.Config{Certificates: []tls.Certificate{cert}}
	if sc.TrustedCAFile != "" {
		caPEM, err := ioutil.ReadFile(sc.TrustedCAFile)
		if err != nil {
			return nil, errors.Wrap(err, "cannot read trusted CA file")
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(caPEM) {
			return nil, errors.New("no certificates found in trusted CA file")
		}
		tlsCfg.RootCAs = pool
	}
	return tlsCfg, nil
}

// Config configures the durable store's connection to etcd.
type Config struct {
	Endpoints []string
	Security  SecurityConfig
	Timeout   time.Duration
}

func (c *Config) validate() error {
	if len(c.Endpoints) == 0 {
		return errors.New("must provide at least one etcd endpoint")
	}
	if c.Timeout == 0 {
		c.Timeout = 2 * time.Second
	}
	return nil
}

// client is a narrow, typed wrapper over clientv3.Client exposing exactly
// the operations the registry's two stores need, the same shape as the
// teacher's pkg/client.Client.
type client struct {
	*clientv3.Client
	cfg *Config
}

func newClient(cfg *Config) (*client, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	tlsCfg, err := cfg.Security.tlsConfig()
	if err != nil {
		return nil, err
	}
	cli, err := clientv3.New(clientv3.Config{
		Endpoints:   cfg.Endpoints,
		DialTimeout: cfg.Timeout,
		TLS:         tlsCfg,
	})
	if err != nil {
		return nil, err
	}
	return &client{Client: cli, cfg: cfg}, nil
}

func (c *client) ctx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), c.cfg.Timeout)
}

func (c *client) get(ctx context.Context, key string, opts ...clientv3.OpOption) (*clientv3.GetResponse, error) {
	resp, err := c.Client.Get(ctx, key, opts...)
	if err != nil {
		return nil, err
	}
	return resp, nil
}

func (c *client) getOne(ctx context.Context, key string) ([]byte, error) {
	resp, err := c.get(ctx, key)
	if err != nil {
		return nil, err
	}
	if len(resp.Kvs) == 0 {
		return nil, errors.Wrap(ErrKeyNotFound, key)
	}
	return resp.Kvs[0].Value, nil
}

func (c *client) put(ctx context.Context, key, value string) error {
	_, err := c.Client.Put(ctx, key, value)
	return err
}

// putIfAbsent is the teacher's SetOnce idiom: an etcd transaction guarded
// by "this key has never been written" (version == 0), which is what makes
// ClusterStore.Add atomic across concurrent callers racing on the same
// cluster id.
func (c *client) putIfAbsent(ctx context.Context, key, value string) (bool, error) {
	resp, err := c.Client.Txn(ctx).If(
		clientv3.Compare(clientv3.Version(key), "=", 0),
	).Then(
		clientv3.OpPut(key, value),
	).Commit()
	if err != nil {
		return false, err
	}
	return resp.Succeeded, nil
}

func (c *client) prefix(ctx context.Context, key string, opts ...clientv3.OpOption) ([]*clientv3mvccKV, error) {
	resp, err := c.get(ctx, key, append(opts, clientv3.WithPrefix())...)
	if err != nil {
		return nil, err
	}
	out := make([]*clientv3mvccKV, len(resp.Kvs))
	for i, kv := range resp.Kvs {
		out[i] = &clientv3mvccKV{Key: string(kv.Key), Value: kv.Value}
	}
	return out, nil
}

// clientv3mvccKV mirrors the subset of mvccpb.KeyValue this package needs,
// avoiding a direct dependency on etcd's internal mvcc wire types (which,
// unlike clientv3 itself, are not part of the modern client module's
// supported surface).
type clientv3mvccKV struct {
	Key   string
	Value []byte
}

func (c *client) delete(ctx context.Context, key string, opts ...clientv3.OpOption) (int64, error) {
	resp, err := c.Client.Delete(ctx, key, opts...)
	if err != nil {
		return 0, err
	}
	return resp.Deleted, nil
}

// incr atomically increments the counter stored at key, retrying the
// compare-and-swap on contention. Grounded on the teacher's client.Incr,
// which instead took a distributed lock; a CAS loop gives the same
// atomicity without a lease-backed session, since the registry only needs
// this for surrogate id assignment, not long-held mutual exclusion.
func (c *client) incr(ctx context.Context, key string) (int64, error) {
	for {
		resp, err := c.Client.Get(ctx, key)
		if err != nil {
			return 0, err
		}
		var cur int64
		var modRev int64
		if len(resp.Kvs) > 0 {
			cur = parseInt64(resp.Kvs[0].Value)
			modRev = resp.Kvs[0].ModRevision
		}
		next := cur + 1
		txn := c.Client.Txn(ctx).If(
			clientv3.Compare(clientv3.ModRevision(key), "=", modRev),
		).Then(
			clientv3.OpPut(key, formatInt64(next)),
		)
		txnResp, err := txn.Commit()
		if err != nil {
			return 0, err
		}
		if txnResp.Succeeded {
			return next, nil
		}
		// another writer incremented concurrently, retry
	}
}

func (c *client) Close() error {
	return c.Client.Close()
}

func parseInt64(b []byte) int64 {
	var n int64
	for _, ch := range b {
		if ch < '0' || ch > '9' {
			return 0
		}
		n = n*10 + int64(ch-'0')
	}
	return n
}

func formatInt64(n int64) string {
	if n == 0 {
		return "0"
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	return string(buf[i:])
}

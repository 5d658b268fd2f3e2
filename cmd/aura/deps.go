package main

import (
	"fmt"
	"path/filepath"

	"github.com/hack-pad/hackpadfs"
	osfs "github.com/hack-pad/hackpadfs/os"

	"github.com/arshiaxbt/Aura/internal/metrics"
	"github.com/arshiaxbt/Aura/internal/remote"
	"github.com/arshiaxbt/Aura/internal/store"
	"github.com/arshiaxbt/Aura/pkg/reputation"
	"github.com/arshiaxbt/Aura/pkg/resolver"
	"github.com/arshiaxbt/Aura/pkg/security"
	"github.com/arshiaxbt/Aura/pkg/vault"
)

const notesDB = "notes.db"

func remoteOptions(service string) remote.Options {
	return remote.Options{
		Service:   service,
		Timeout:   cfg.HTTPTimeout,
		RateLimit: cfg.RateLimit,
		Retries:   cfg.HTTPRetries,
		Backoff:   cfg.HTTPBackoff,
	}
}

func newScorer(m *metrics.Metrics) *reputation.Client {
	return reputation.NewClient(reputation.Config{
		BaseURL: cfg.ScoreAPI,
		Remote:  remoteOptions("reputation"),
		Metrics: m,
	})
}

func newResolver() resolver.Router {
	return resolver.Router{
		Mainnet: resolver.NewRPCResolver(resolver.RPCConfig{
			Endpoint: cfg.EthRPC,
			Registry: resolver.ENSRegistry,
			Remote:   remoteOptions("ens"),
		}),
		Base: resolver.NewRPCResolver(resolver.RPCConfig{
			Endpoint: cfg.BaseRPC,
			Registry: resolver.BaseRegistry,
			Remote:   remoteOptions("basenames"),
		}),
	}
}

func newSecurityScanner() *security.Scanner {
	var bl security.Blacklist
	if cfg.BlacklistAPI != "" {
		bl = security.NewHTTPBlacklist(cfg.BlacklistAPI, remoteOptions("blacklist"))
	}
	return security.NewScanner(security.NewGoPlus(cfg.SecurityAPI, remoteOptions("goplus")), bl, nil)
}

// openDataFS roots a file system at the data directory, creating it.
func openDataFS() (hackpadfs.FS, error) {
	dir, err := filepath.Abs(cfg.DataDir)
	if err != nil {
		return nil, err
	}
	fs := osfs.NewFS()
	p, err := fs.FromOSPath(dir)
	if err != nil {
		return nil, fmt.Errorf("data dir %s: %w", dir, err)
	}
	if err := hackpadfs.MkdirAll(fs, p, 0o700); err != nil {
		return nil, fmt.Errorf("create data dir %s: %w", dir, err)
	}
	return fs.Sub(p)
}

// vaultEnv is the vault of the data directory.
type vaultEnv struct {
	manager *vault.Manager
	notes   *vault.Notes
	store   *store.SQLiteStore
}

func openVault() (*vaultEnv, error) {
	fs, err := openDataFS()
	if err != nil {
		return nil, err
	}
	st, err := store.NewSQLiteStoreWithDSN(filepath.Join(cfg.DataDir, notesDB))
	if err != nil {
		return nil, err
	}
	m := vault.NewManager(vault.NewFileValidatorStore(fs), nil, vault.Config{TTL: cfg.VaultTTL})
	return &vaultEnv{manager: m, notes: vault.NewNotes(st, m), store: st}, nil
}

func (v *vaultEnv) Close() error {
	v.manager.Close()
	return v.store.Close()
}

package secretstore

import (
	"context"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"

	"github.com/espen/sup-gateway/internal/metrics"
)

// fileDocument is the on-disk YAML shape for a FileStore.
//
//	principals:
//	  - access_key_id: AKID...
//	    secret_key_hex: 0123...
//	    disabled: false
type fileDocument struct {
	Principals []filePrincipal `yaml:"principals"`
}

type filePrincipal struct {
	AccessKeyID  string `yaml:"access_key_id"`
	SecretKeyHex string `yaml:"secret_key_hex"`
	Disabled     bool   `yaml:"disabled"`
}

// FileStore is a Store backed by a YAML file on disk, reloaded on a cron
// schedule so secrets can be rotated without restarting the gateway.
type FileStore struct {
	path string
	mem  *MemoryStore
	log  *slog.Logger

	mu  sync.Mutex // serializes Reload against itself
	sch *cron.Cron
}

// NewFileStore loads path once and returns a FileStore wrapping the
// result. Call StartReloading to keep it fresh on a schedule.
func NewFileStore(path string, logger *slog.Logger) (*FileStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	fs := &FileStore{path: path, mem: NewMemoryStore(nil), log: logger}
	if err := fs.Reload(); err != nil {
		return nil, err
	}
	return fs, nil
}

// GetSecret implements Store.
func (fs *FileStore) GetSecret(ctx context.Context, principalID string) (Secret, error) {
	return fs.mem.GetSecret(ctx, principalID)
}

// Reload re-reads the backing file and atomically swaps the secret set.
// A parse failure leaves the previously loaded secrets in place.
func (fs *FileStore) Reload() error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	raw, err := os.ReadFile(fs.path)
	if err != nil {
		metrics.SecretStoreReloadsTotal.WithLabelValues("error").Inc()
		return fmt.Errorf("secretstore: reading %s: %w", fs.path, err)
	}

	var doc fileDocument
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		metrics.SecretStoreReloadsTotal.WithLabelValues("error").Inc()
		return fmt.Errorf("secretstore: parsing %s: %w", fs.path, err)
	}

	secrets := make(map[string]Secret, len(doc.Principals))
	for _, p := range doc.Principals {
		if p.AccessKeyID == "" {
			metrics.SecretStoreReloadsTotal.WithLabelValues("error").Inc()
			return fmt.Errorf("secretstore: %s: principal with empty access_key_id", fs.path)
		}
		key, err := hex.DecodeString(p.SecretKeyHex)
		if err != nil {
			metrics.SecretStoreReloadsTotal.WithLabelValues("error").Inc()
			return fmt.Errorf("secretstore: %s: principal %s: secret_key_hex: %w", fs.path, p.AccessKeyID, err)
		}
		secrets[p.AccessKeyID] = Secret{
			PrincipalID: p.AccessKeyID,
			Key:         key,
			Disabled:    p.Disabled,
		}
	}

	fs.mem.Replace(secrets)
	metrics.SecretStoreReloadsTotal.WithLabelValues("success").Inc()
	fs.log.Info("secret store reloaded", "path", fs.path, "principals", len(secrets))
	return nil
}

// StartReloading schedules Reload on the given cron spec (standard 5-field
// cron syntax, e.g. "*/5 * * * *"). Reload failures are logged and do not
// stop the scheduler or disturb the currently loaded secrets.
func (fs *FileStore) StartReloading(spec string) error {
	fs.sch = cron.New()
	_, err := fs.sch.AddFunc(spec, func() {
		if err := fs.Reload(); err != nil {
			fs.log.Error("secret store reload failed", "path", fs.path, "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("secretstore: invalid reload schedule %q: %w", spec, err)
	}
	fs.sch.Start()
	return nil
}

// StopReloading stops the reload schedule, if one was started.
func (fs *FileStore) StopReloading() {
	if fs.sch == nil {
		return
	}
	ctx := fs.sch.Stop()
	<-ctx.Done()
}

// Package app exports and restores registry snapshots through the storage backend.
package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/treehouse/treehouse/internal/compress"
	"github.com/treehouse/treehouse/internal/config"
	"github.com/treehouse/treehouse/internal/cryptoutil"
	"github.com/treehouse/treehouse/internal/lock"
	"github.com/treehouse/treehouse/internal/notify"
	"github.com/treehouse/treehouse/internal/registry"
	"github.com/treehouse/treehouse/internal/storage"
	"github.com/treehouse/treehouse/internal/util"
	"github.com/treehouse/treehouse/internal/version"
)

const (
	snapshotKind = "registry"
	Latest       = "latest"
)

var ErrNoSnapshots = errors.New("no snapshots found")

type App struct {
	Cfg      *config.Config
	Registry *registry.Registry
	Storage  storage.Storage
	Log      zerolog.Logger
	Notifier notify.Notifier
	Now      func() time.Time
}

func New(cfg *config.Config, reg *registry.Registry, store storage.Storage, log zerolog.Logger, notifier notify.Notifier) *App {
	return &App{Cfg: cfg, Registry: reg, Storage: store, Log: log, Notifier: notifier, Now: time.Now}
}

type ExportResult struct {
	Manifest storage.Manifest
	Key      string
}

// Export writes the current registry contents as a new snapshot object.
func (a *App) Export(ctx context.Context) (*ExportResult, error) {
	start := a.now()
	var opErr error
	var key string
	defer func() {
		a.notify(notify.Event{Type: notify.EventSnapshot, Message: "snapshot export", Key: key}, start, opErr)
	}()

	guard, err := lock.Acquire(a.Cfg.Global.LockFile)
	if err != nil {
		opErr = err
		return nil, err
	}
	defer guard.Release()

	cfg := a.Cfg.Snapshot
	if err := compress.Validate(cfg.Compression); err != nil {
		opErr = err
		return nil, err
	}
	if cfg.Encryption && cfg.EncryptionKey == "" {
		opErr = fmt.Errorf("encryption is enabled but encryption_key is empty")
		return nil, opErr
	}

	snap := a.Registry.Snapshot()
	key = util.BuildObjectKey(a.Cfg.Storage.Prefix, snapshotKind, start, buildExtension(cfg.Compression, cfg.Encryption))

	pipeReader, pipeWriter := io.Pipe()
	eg, egCtx := errgroup.WithContext(ctx)

	eg.Go(func() error {
		defer pipeReader.Close()
		return a.Storage.Put(egCtx, key, pipeReader, -1, map[string]string{"treehouse-snapshot": "true"})
	})

	eg.Go(func() error {
		err := a.encode(pipeWriter, snap)
		if err != nil {
			_ = pipeWriter.CloseWithError(err)
			return err
		}
		return pipeWriter.Close()
	})

	if err := eg.Wait(); err != nil {
		opErr = err
		return nil, err
	}

	stat, err := a.Storage.Stat(ctx, key)
	if err != nil {
		opErr = err
		return nil, err
	}
	manifest := storage.Manifest{
		ID:          uuid.NewString(),
		Key:         key,
		Compression: cfg.Compression,
		Encryption:  cfg.Encryption,
		CreatedAt:   start.UTC(),
		SizeBytes:   stat.Size,
		Users:       len(snap.Users),
		Menus:       len(snap.Menus),
		MenuItems:   len(snap.MenuItems),
		Orders:      len(snap.Orders),
		Batches:     len(snap.Batches),
		ToolVersion: version.Version,
	}
	if err := a.writeManifest(ctx, manifest); err != nil {
		a.Log.Warn().Err(err).Msg("failed to write manifest")
	}
	if err := a.applyRetention(ctx); err != nil {
		a.Log.Warn().Err(err).Msg("retention failed")
	}

	a.Log.Info().Str("key", key).Int("users", manifest.Users).Int64("bytes", manifest.SizeBytes).Msg("snapshot exported")
	return &ExportResult{Manifest: manifest, Key: key}, nil
}

// encode streams snap through the configured compression and encryption layers into w.
func (a *App) encode(w io.Writer, snap registry.Snapshot) error {
	cfg := a.Cfg.Snapshot
	writer := w
	var closers []io.Closer
	if cfg.Encryption {
		keyBytes, err := cryptoutil.ParseKey(cfg.EncryptionKey)
		if err != nil {
			return err
		}
		encWriter, err := cryptoutil.EncryptWriter(writer, keyBytes)
		if err != nil {
			return err
		}
		writer = encWriter
		closers = append(closers, encWriter)
	}
	if cfg.Compression != "" && cfg.Compression != compress.TypeNone {
		compWriter, err := compress.WrapWriter(cfg.Compression, writer)
		if err != nil {
			return err
		}
		writer = compWriter
		closers = append(closers, compWriter)
	}
	if err := json.NewEncoder(writer).Encode(snap); err != nil {
		return err
	}
	for i := len(closers) - 1; i >= 0; i-- {
		if err := closers[i].Close(); err != nil {
			return err
		}
	}
	return nil
}

// Import loads the snapshot at key, or the newest one for Latest, into the registry.
func (a *App) Import(ctx context.Context, key string) (string, error) {
	start := a.now()
	var opErr error
	defer func() {
		a.notify(notify.Event{Type: notify.EventSnapshot, Message: "snapshot import", Key: key}, start, opErr)
	}()

	if key == "" || key == Latest {
		latest, err := a.latest(ctx)
		if err != nil {
			opErr = err
			return "", err
		}
		key = latest
	}

	manifest, err := a.readManifest(ctx, key)
	if err != nil {
		a.Log.Debug().Err(err).Str("key", key).Msg("manifest unavailable, inferring format from config")
	}

	reader, err := a.Storage.Get(ctx, key)
	if err != nil {
		opErr = err
		return key, err
	}
	defer reader.Close()

	payload := io.Reader(reader)
	encrypted := manifest.Encryption || strings.HasSuffix(key, ".enc")
	if encrypted {
		if a.Cfg.Snapshot.EncryptionKey == "" {
			opErr = fmt.Errorf("encryption key is required to import encrypted snapshot")
			return key, opErr
		}
		keyBytes, err := cryptoutil.ParseKey(a.Cfg.Snapshot.EncryptionKey)
		if err != nil {
			opErr = err
			return key, err
		}
		payload, err = cryptoutil.DecryptReader(payload, keyBytes)
		if err != nil {
			opErr = err
			return key, err
		}
	}

	compression := manifest.Compression
	if compression == "" {
		compression = compressionFromKey(key)
	}
	compReader, err := compress.WrapReader(compression, payload)
	if err != nil {
		opErr = err
		return key, err
	}
	defer compReader.Close()

	var snap registry.Snapshot
	if err := json.NewDecoder(compReader).Decode(&snap); err != nil {
		opErr = fmt.Errorf("decode snapshot %s: %w", key, err)
		return key, opErr
	}
	a.Registry.Restore(snap)
	a.Log.Info().Str("key", key).Int("users", len(snap.Users)).Int("menus", len(snap.Menus)).Int("orders", len(snap.Orders)).Msg("snapshot imported")
	return key, nil
}

// List returns snapshot objects newest first, manifests excluded.
func (a *App) List(ctx context.Context) ([]storage.ObjectInfo, error) {
	objects, err := a.Storage.List(ctx, util.BuildPrefix(a.Cfg.Storage.Prefix, snapshotKind))
	if err != nil {
		return nil, err
	}
	var snapshots []storage.ObjectInfo
	for _, obj := range objects {
		if obj.IsManifest {
			continue
		}
		snapshots = append(snapshots, obj)
	}
	sort.Slice(snapshots, func(i, j int) bool { return snapshots[i].Key > snapshots[j].Key })
	return snapshots, nil
}

func (a *App) latest(ctx context.Context) (string, error) {
	snapshots, err := a.List(ctx)
	if err != nil {
		return "", err
	}
	if len(snapshots) == 0 {
		return "", ErrNoSnapshots
	}
	return snapshots[0].Key, nil
}

func (a *App) writeManifest(ctx context.Context, manifest storage.Manifest) error {
	payload, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return err
	}
	key := storage.ManifestKey(manifest.Key)
	return a.Storage.Put(ctx, key, strings.NewReader(string(payload)), int64(len(payload)), map[string]string{"treehouse-manifest": "true"})
}

func (a *App) readManifest(ctx context.Context, key string) (storage.Manifest, error) {
	reader, err := a.Storage.Get(ctx, storage.ManifestKey(key))
	if err != nil {
		return storage.Manifest{}, err
	}
	defer reader.Close()
	var manifest storage.Manifest
	if err := json.NewDecoder(reader).Decode(&manifest); err != nil {
		return storage.Manifest{}, err
	}
	return manifest, nil
}

func (a *App) applyRetention(ctx context.Context) error {
	policy := a.Cfg.Snapshot.Retention
	if policy.KeepDays == 0 && policy.KeepLast == 0 {
		return nil
	}
	snapshots, err := a.List(ctx)
	if err != nil {
		return err
	}
	cutoff := a.now().AddDate(0, 0, -policy.KeepDays)
	for i, obj := range snapshots {
		if policy.KeepLast > 0 && i < policy.KeepLast {
			continue
		}
		if policy.KeepDays > 0 && obj.Modified.After(cutoff) {
			continue
		}
		_ = a.Storage.Delete(ctx, obj.Key)
		_ = a.Storage.Delete(ctx, storage.ManifestKey(obj.Key))
	}
	return nil
}

func (a *App) notify(event notify.Event, start time.Time, err error) {
	if a.Notifier == nil {
		return
	}
	event.Status = statusFromErr(err)
	event.StartedAt = start
	event.EndedAt = a.now()
	event.Duration = event.EndedAt.Sub(start).String()
	if err != nil {
		event.Error = err.Error()
	}
	if nerr := a.Notifier.Notify(context.Background(), event); nerr != nil {
		a.Log.Warn().Err(nerr).Msg("notification failed")
	}
}

func (a *App) now() time.Time {
	if a.Now == nil {
		return time.Now()
	}
	return a.Now()
}

func buildExtension(compression string, encryption bool) string {
	ext := "json"
	if suffix := compress.Extension(compression); suffix != "" {
		ext += "." + suffix
	}
	if encryption {
		ext += ".enc"
	}
	return ext
}

func compressionFromKey(key string) string {
	key = strings.TrimSuffix(key, ".enc")
	switch {
	case strings.HasSuffix(key, ".zst"):
		return compress.TypeZstd
	case strings.HasSuffix(key, ".gz"):
		return compress.TypeGzip
	default:
		return compress.TypeNone
	}
}

func statusFromErr(err error) string {
	if err == nil {
		return "success"
	}
	return "failed"
}

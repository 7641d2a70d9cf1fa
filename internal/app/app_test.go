package app

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/treehouse/treehouse/internal/config"
	"github.com/treehouse/treehouse/internal/cryptoutil"
	"github.com/treehouse/treehouse/internal/notify"
	"github.com/treehouse/treehouse/internal/registry"
	"github.com/treehouse/treehouse/internal/storage"
)

type recorder struct {
	events []notify.Event
}

func (r *recorder) Notify(_ context.Context, event notify.Event) error {
	r.events = append(r.events, event)
	return nil
}

func newTestApp(t *testing.T, snap config.SnapshotConfig) (*App, *recorder) {
	t.Helper()
	dir := t.TempDir()
	cfg := &config.Config{
		Global:   config.GlobalConfig{LockFile: filepath.Join(dir, "snapshot.lock")},
		Snapshot: snap,
		Storage:  config.StorageConfig{Backend: "local", Prefix: "treehouse"},
	}
	rec := &recorder{}
	a := New(cfg, registry.New(), storage.NewLocal(filepath.Join(dir, "store")), zerolog.Nop(), rec)
	clock := time.Date(2024, 3, 12, 17, 0, 0, 0, time.UTC)
	a.Now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}
	return a, rec
}

func TestExportImportRoundTrip(t *testing.T) {
	key, err := cryptoutil.GenerateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	cases := []config.SnapshotConfig{
		{Compression: "none"},
		{Compression: "gzip"},
		{Compression: "zstd", Encryption: true, EncryptionKey: key},
	}
	for _, snapCfg := range cases {
		t.Run(snapCfg.Compression, func(t *testing.T) {
			a, rec := newTestApp(t, snapCfg)
			a.Registry.SeedSampleData()
			if _, _, err := a.Registry.Signup(registry.SignupRequest{PhoneNumber: "(708) 901-1754", DormBuilding: "allen hall"}); err != nil {
				t.Fatalf("signup: %v", err)
			}
			slot := time.Date(2024, 3, 12, 17, 25, 0, 0, time.UTC)
			if _, err := a.Registry.PlaceOrder(registry.OrderRequest{UserID: 1, Items: []registry.OrderLine{{MenuItemID: 1, Quantity: 2}}, ScheduledTime: slot}); err != nil {
				t.Fatalf("place order: %v", err)
			}

			res, err := a.Export(context.Background())
			if err != nil {
				t.Fatalf("export: %v", err)
			}
			if !strings.HasPrefix(res.Key, "treehouse/registry/") {
				t.Fatalf("unexpected key: %s", res.Key)
			}
			if snapCfg.Encryption && !strings.HasSuffix(res.Key, ".enc") {
				t.Fatalf("expected .enc suffix, got %s", res.Key)
			}
			if res.Manifest.Users != 1 || res.Manifest.Menus != 3 || res.Manifest.Orders != 1 || res.Manifest.Batches != 1 || res.Manifest.ID == "" {
				t.Fatalf("unexpected manifest: %+v", res.Manifest)
			}

			a.Registry = registry.New()
			imported, err := a.Import(context.Background(), Latest)
			if err != nil {
				t.Fatalf("import: %v", err)
			}
			if imported != res.Key {
				t.Fatalf("imported %s, want %s", imported, res.Key)
			}
			users := a.Registry.Users()
			if len(users) != 1 || users[0].PhoneNumber != "7089011754" || users[0].DormBuilding != "Allen Hall" {
				t.Fatalf("unexpected users after import: %+v", users)
			}
			if len(a.Registry.Menus()) != 3 {
				t.Fatalf("expected 3 menus after import")
			}
			detail, err := a.Registry.Order(1)
			if err != nil || detail.Order.TotalAmount.StringFixed(2) != "21.90" || detail.Batch == nil || !detail.Batch.DeliveryTime.Equal(slot) {
				t.Fatalf("unexpected order after import: %+v err=%v", detail, err)
			}
			if len(rec.events) != 2 || rec.events[0].Status != "success" || rec.events[1].Status != "success" {
				t.Fatalf("unexpected events: %+v", rec.events)
			}
		})
	}
}

func TestImportWithoutSnapshots(t *testing.T) {
	a, rec := newTestApp(t, config.SnapshotConfig{Compression: "zstd"})
	if _, err := a.Import(context.Background(), Latest); !errors.Is(err, ErrNoSnapshots) {
		t.Fatalf("expected ErrNoSnapshots, got %v", err)
	}
	if len(rec.events) != 1 || rec.events[0].Status != "failed" {
		t.Fatalf("expected failed event, got %+v", rec.events)
	}
}

func TestExportRequiresKeyWhenEncrypting(t *testing.T) {
	a, _ := newTestApp(t, config.SnapshotConfig{Compression: "zstd", Encryption: true})
	if _, err := a.Export(context.Background()); err == nil {
		t.Fatalf("expected error without encryption key")
	}
}

func TestRetentionKeepLast(t *testing.T) {
	a, _ := newTestApp(t, config.SnapshotConfig{Compression: "gzip", Retention: config.Retention{KeepLast: 2}})
	var keys []string
	for i := 0; i < 4; i++ {
		res, err := a.Export(context.Background())
		if err != nil {
			t.Fatalf("export %d: %v", i, err)
		}
		keys = append(keys, res.Key)
	}
	list, err := a.List(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 snapshots after retention, got %d", len(list))
	}
	if list[0].Key != keys[3] || list[1].Key != keys[2] {
		t.Fatalf("unexpected retained keys: %s, %s", list[0].Key, list[1].Key)
	}
}

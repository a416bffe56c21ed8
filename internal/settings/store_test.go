package settings

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/allbin/go-irbridge"
)

func openTestStore(t *testing.T) (*ViperStore, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "irbridge", "config.yaml")
	store, err := Open(path, zerolog.Nop())
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store, path
}

func TestOpenMissingFile(t *testing.T) {
	store, path := openTestStore(t)

	if store.Path() != path {
		t.Errorf("Expected path %s, got %s", path, store.Path())
	}
	if store.IsSet(irbridge.KeyTransportKind) {
		t.Error("Expected no keys in a missing file")
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("Expected Open not to create the file, got %v", err)
	}
}

func TestSetPersists(t *testing.T) {
	store, path := openTestStore(t)

	if err := store.Set(irbridge.KeyTransportKind, "tcp"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := store.Set(irbridge.KeyTCPServerPort, 9000); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := store.Set(irbridge.KeyTCPIsServer, false); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	reopened, err := Open(path, zerolog.Nop())
	if err != nil {
		t.Fatalf("Reopen failed: %v", err)
	}
	defer reopened.Close()

	if got := reopened.GetString(irbridge.KeyTransportKind); got != "tcp" {
		t.Errorf("Expected tcp, got %q", got)
	}
	if got := reopened.GetInt(irbridge.KeyTCPServerPort); got != 9000 {
		t.Errorf("Expected 9000, got %d", got)
	}
	if !reopened.IsSet(irbridge.KeyTCPIsServer) || reopened.GetBool(irbridge.KeyTCPIsServer) {
		t.Error("Expected tcp.is_server to be stored as false")
	}

	tcp := irbridge.LoadTCPConfig(reopened)
	if tcp.IsServer || tcp.ServerPort != 9000 {
		t.Errorf("Unexpected TCP config: %+v", tcp)
	}
}

func TestEnvironmentOverride(t *testing.T) {
	t.Setenv("IRBRIDGE_TCP_CLIENT_HOST", "10.1.2.3")
	store, _ := openTestStore(t)

	if got := store.GetString(irbridge.KeyTCPClientHost); got != "10.1.2.3" {
		t.Errorf("Expected 10.1.2.3, got %q", got)
	}
}

func TestInvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("ir: [unterminated\n"), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
	if _, err := Open(path, zerolog.Nop()); err == nil {
		t.Error("Expected an error for a malformed file")
	}
}

func TestWatchPicksUpExternalEdits(t *testing.T) {
	store, path := openTestStore(t)
	if err := store.Set(irbridge.KeyTransportKind, "none"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	changed := make(chan struct{}, 8)
	notify := func() {
		select {
		case changed <- struct{}{}:
		default:
		}
	}
	if err := store.Watch(notify); err != nil {
		t.Fatalf("Watch failed: %v", err)
	}
	if err := store.Watch(func() {}); err == nil {
		t.Error("Expected a second Watch to fail")
	}

	other, err := Open(path, zerolog.Nop())
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer other.Close()
	if err := other.Set(irbridge.KeyTransportKind, "tcp"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	deadline := time.After(3 * time.Second)
	for store.GetString(irbridge.KeyTransportKind) != "tcp" {
		select {
		case <-changed:
		case <-deadline:
			t.Fatalf("Expected the watcher to reload, kind is %q", store.GetString(irbridge.KeyTransportKind))
		}
	}
}

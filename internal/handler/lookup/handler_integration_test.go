package lookup

import (
	"net"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/TomasB/ipcountry/internal/data"
	"github.com/TomasB/ipcountry/internal/reload"
	"github.com/TomasB/ipcountry/internal/store"
	"github.com/gin-gonic/gin"
)

const testMMDBPath = "../../../testdata/GeoLite2-Country-Test.mmdb"

func skipIfNoMMDB(t *testing.T) {
	t.Helper()
	if _, err := os.Stat(testMMDBPath); os.IsNotExist(err) {
		t.Skip("test MMDB file not found; download it first")
	}
}

// deployMMDB copies the test database to a temp path the test may rewrite.
func deployMMDB(t *testing.T) (string, []byte) {
	t.Helper()
	skipIfNoMMDB(t)

	buf, err := os.ReadFile(testMMDBPath)
	if err != nil {
		t.Fatalf("failed to read MMDB: %v", err)
	}
	path := filepath.Join(t.TempDir(), "country.mmdb")
	if err := os.WriteFile(path, buf, 0o644); err != nil {
		t.Fatalf("failed to copy MMDB: %v", err)
	}
	return path, buf
}

func setupIntegrationRouter(t *testing.T, path string) (*gin.Engine, *store.Handle) {
	t.Helper()

	reader, err := data.NewMmdbReader(path)
	if err != nil {
		t.Fatalf("failed to open MMDB: %v", err)
	}
	h := store.New(reader)
	t.Cleanup(func() { h.Close() })

	return setupRouter(h), h
}

func TestIntegration_LookupGB(t *testing.T) {
	skipIfNoMMDB(t)
	router, _ := setupIntegrationRouter(t, testMMDBPath)

	if got := decodeCountry(t, get(router, "/2.125.160.216")); got != "GB" {
		t.Errorf("expected country GB, got %s", got)
	}
}

func TestIntegration_LookupUS(t *testing.T) {
	skipIfNoMMDB(t)
	router, _ := setupIntegrationRouter(t, testMMDBPath)

	if got := decodeCountry(t, get(router, "/216.160.83.56")); got != "US" {
		t.Errorf("expected country US, got %s", got)
	}
}

func TestIntegration_LookupUnmapped(t *testing.T) {
	skipIfNoMMDB(t)
	router, _ := setupIntegrationRouter(t, testMMDBPath)

	w := get(router, "/10.0.0.1")
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d: %s", w.Code, w.Body.String())
	}
	if w.Body.String() != internalErrorBody {
		t.Errorf("expected generic body, got %q", w.Body.String())
	}
}

func TestIntegration_ServesThroughFileRewrites(t *testing.T) {
	path, original := deployMMDB(t)
	router, h := setupIntegrationRouter(t, path)
	loop := reload.New(h, data.Open, path, time.Hour)

	ref, err := h.Read()
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	defer ref.Release()

	// Truncating the deployed file must not disturb the installed snapshot.
	if err := os.Truncate(path, 0); err != nil {
		t.Fatalf("failed to truncate file: %v", err)
	}
	if got := decodeCountry(t, get(router, "/2.125.160.216")); got != "GB" {
		t.Errorf("expected GB after truncate, got %s", got)
	}

	// A half-written file fails to reload and the snapshot keeps serving.
	if err := os.WriteFile(path, original[:len(original)/2], 0o644); err != nil {
		t.Fatalf("failed to rewrite file: %v", err)
	}
	if err := loop.Reload(); err == nil {
		t.Fatal("expected reload of a partial file to fail")
	}
	if got := decodeCountry(t, get(router, "/2.125.160.216")); got != "GB" {
		t.Errorf("expected GB after failed reload, got %s", got)
	}

	// Renaming a complete file into place reloads successfully.
	staged := path + ".tmp"
	if err := os.WriteFile(staged, original, 0o644); err != nil {
		t.Fatalf("failed to stage file: %v", err)
	}
	if err := os.Rename(staged, path); err != nil {
		t.Fatalf("failed to rename file: %v", err)
	}
	if err := loop.Reload(); err != nil {
		t.Fatalf("reload failed: %v", err)
	}

	after, err := h.Read()
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	defer after.Release()
	if after.Generation() != ref.Generation()+1 {
		t.Errorf("expected generation %d, got %d", ref.Generation()+1, after.Generation())
	}
	if got := decodeCountry(t, get(router, "/216.160.83.56")); got != "US" {
		t.Errorf("expected US after reload, got %s", got)
	}

	country, err := ref.Database().LookupCountry(net.ParseIP("2.125.160.216"))
	if err != nil || country != "GB" {
		t.Errorf("expected superseded snapshot to still answer GB, got %q, %v", country, err)
	}
}

package e2e

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"ggufd/internal/httpapi"
	"ggufd/internal/llamacpp"
	"ggufd/internal/manager"
	"ggufd/internal/registry"
)

// createTempModelsDir creates a temporary directory populated with small .gguf files
// and returns the directory path and the file paths.
func createTempModelsDir(t *testing.T, names ...string) (string, []string) {
	t.Helper()
	dir := t.TempDir()
	var paths []string
	for _, n := range names {
		p := filepath.Join(dir, n)
		if err := os.WriteFile(p, make([]byte, 2048), 0o644); err != nil {
			t.Fatalf("write temp model %s: %v", p, err)
		}
		paths = append(paths, p)
	}
	return dir, paths
}

// newServerForDir serves a manager backed by rt over a registry scanned from modelsDir.
func newServerForDir(t *testing.T, modelsDir string, rt llamacpp.Runtime) (*httptest.Server, *manager.Manager) {
	t.Helper()
	reg, err := registry.LoadDir(modelsDir)
	if err != nil {
		t.Fatalf("scan models: %v", err)
	}
	mgr := manager.NewWithConfig(manager.ManagerConfig{Runtime: rt, Registry: reg})
	srv := httptest.NewServer(httpapi.NewMux(mgr))
	t.Cleanup(func() {
		srv.Close()
		_ = mgr.Shutdown()
	})
	return srv, mgr
}

func post(t *testing.T, srv *httptest.Server, path string, body any) (*http.Response, []byte) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode: %v", err)
		}
	}
	resp, err := http.Post(srv.URL+path, "application/json", &buf)
	if err != nil {
		t.Fatalf("POST %s: %v", path, err)
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	return resp, b
}

func get(t *testing.T, srv *httptest.Server, path string, out any) int {
	t.Helper()
	resp, err := http.Get(srv.URL + path)
	if err != nil {
		t.Fatalf("GET %s: %v", path, err)
	}
	defer resp.Body.Close()
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode %s: %v", path, err)
		}
	}
	return resp.StatusCode
}

func u32(n uint32) *uint32 { return &n }
